// dsd - Dominican Republic salary deductions (AFP, ARS, ISR)
//
// Usage:
//   dsd 50000
//   dsd --rules capped --format json compute 120000
//   dsd rules
//   dsd serve --port 8080
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"salary-deductions/api"
	"salary-deductions/decision/deductions"
	"salary-deductions/pkg/platform"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const salaryPrompt = "Introduzca su salario mensual: "

func main() {
	if err := platform.LoadDotEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not load .env: %v\n", err)
	}

	app := newApp(os.Stdin, os.Stdout, os.Stderr)
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// runner carries the process streams so commands can be exercised in tests.
type runner struct {
	in     io.Reader
	out    io.Writer
	errOut io.Writer
}

func newApp(in io.Reader, out, errOut io.Writer) *cli.App {
	r := &runner{in: in, out: out, errOut: errOut}

	return &cli.App{
		Name:      "dsd",
		Usage:     "Compute AFP, ARS and ISR deductions for a monthly salary in the Dominican Republic",
		Version:   fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		ArgsUsage: "[SALARY]",
		Reader:    in,
		Writer:    out,
		ErrWriter: errOut,

		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "warn",
				Usage:   "Log level (debug, info, warn, error)",
				EnvVars: []string{"DSD_LOG_LEVEL"},
			},
			&cli.StringFlag{
				Name:    "rules",
				Aliases: []string{"r"},
				Value:   deductions.DefaultRuleSet,
				Usage:   "Rule set (" + strings.Join(deductions.RuleSetNames(), ", ") + ")",
				EnvVars: []string{"DSD_RULES"},
			},
			&cli.BoolFlag{
				Name:    "lenient",
				Usage:   "Treat an unparseable salary as zero instead of failing",
				EnvVars: []string{"DSD_LENIENT"},
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Value:   formatText,
				Usage:   "Output format (text, json, markdown)",
				EnvVars: []string{"DSD_FORMAT"},
			},
		},

		Action: r.runCompute,

		Commands: []*cli.Command{
			{
				Name:      "compute",
				Usage:     "Compute deductions for a monthly salary (prompts when SALARY is omitted)",
				ArgsUsage: "[SALARY]",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Output format (text, json, markdown); overrides the global flag",
					},
				},
				Action: r.runCompute,
			},
			{
				Name:   "rules",
				Usage:  "Print the active rule table",
				Action: r.runRules,
			},
			serveCommand(r),
		},
	}
}

func (r *runner) setup(c *cli.Context) (*deductions.Engine, zerolog.Logger, error) {
	logger := platform.NewLogger(r.errOut, c.String("log-level"))

	rules, err := deductions.Lookup(c.String("rules"))
	if err != nil {
		return nil, logger, err
	}
	engine, err := deductions.NewEngine(rules, logger)
	if err != nil {
		return nil, logger, err
	}
	return engine, logger, nil
}

func (r *runner) runCompute(c *cli.Context) error {
	engine, logger, err := r.setup(c)
	if err != nil {
		return err
	}

	format := outputFormat(c)
	if !validFormat(format) {
		return fmt.Errorf("unknown output format %q", format)
	}
	if c.Args().Len() > 1 {
		return fmt.Errorf("unexpected arguments %q: flags must come before the salary",
			c.Args().Tail())
	}

	raw := c.Args().First()
	if raw == "" {
		raw, err = r.prompt()
		if err != nil {
			return fmt.Errorf("failed to read salary: %w", err)
		}
	}

	mode := deductions.ParseStrict
	if c.Bool("lenient") {
		mode = deductions.ParseLenient
	}
	salary, coerced, err := deductions.ParseSalary(raw, mode)
	if err != nil {
		return err
	}
	if coerced {
		logger.Warn().Str("input", raw).Str("salary", salary.String()).Msg("Salary input coerced to a number")
	}

	ctx := c.Context
	if ctx == nil {
		ctx = context.Background()
	}
	result, err := engine.Calculate(ctx, deductions.Request{Salary: salary})
	if err != nil {
		return fmt.Errorf("calculation failed: %w", err)
	}

	return writeResult(r.out, format, result)
}

// outputFormat returns the nearest --format that has a value. The compute
// command's flag has no default so the global one shows through.
func outputFormat(c *cli.Context) string {
	for _, ctx := range c.Lineage() {
		if v := ctx.String("format"); v != "" {
			return v
		}
	}
	return formatText
}

func (r *runner) prompt() (string, error) {
	fmt.Fprint(r.out, salaryPrompt)
	line, err := bufio.NewReader(r.in).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func (r *runner) runRules(c *cli.Context) error {
	engine, _, err := r.setup(c)
	if err != nil {
		return err
	}
	return writeRules(r.out, engine.Rules())
}

func serveCommand(r *runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the deductions HTTP API",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Value:   8080,
				Usage:   "API server port",
				EnvVars: []string{"DSD_PORT"},
			},
			&cli.StringFlag{
				Name:    "api-key",
				Usage:   "Require this value in the X-API-Key header",
				EnvVars: []string{"DSD_API_KEY"},
			},
		},
		Action: func(c *cli.Context) error {
			engine, logger, err := r.setup(c)
			if err != nil {
				return err
			}

			cfg := api.DefaultConfig()
			cfg.Port = c.Int("port")
			cfg.APIKey = c.String("api-key")

			return api.NewServer(engine, cfg, logger).StartWithGracefulShutdown()
		},
	}
}
