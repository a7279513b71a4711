package deductions

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	perrors "salary-deductions/pkg/errors"
)

// Engine validates requests and runs Compute against a fixed rule table.
// It holds no mutable state and is safe for concurrent use.
type Engine struct {
	rules  RuleTable
	logger zerolog.Logger
}

// Request contains inputs for one calculation
type Request struct {
	Salary decimal.Decimal
}

// NewEngine creates an engine for rules. The table is validated once here.
func NewEngine(rules RuleTable, logger zerolog.Logger) (*Engine, error) {
	if err := rules.Validate(); err != nil {
		return nil, fmt.Errorf("rule set %q: %w", rules.Name, err)
	}
	return &Engine{
		rules:  rules,
		logger: logger.With().Str("rules", rules.Name).Logger(),
	}, nil
}

// Rules returns the engine's rule table.
func (e *Engine) Rules() RuleTable {
	return e.rules
}

// Calculate computes deductions for req.Salary.
func (e *Engine) Calculate(ctx context.Context, req Request) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if req.Salary.IsNegative() {
		return nil, perrors.NewInvalidInputError("salary", "must not be negative: %s", req.Salary)
	}

	result := Compute(req.Salary, e.rules)

	e.logger.Debug().
		Str("salary", result.Salary.String()).
		Str("annual_taxable", result.AnnualTaxable.String()).
		Int("bracket", result.Bracket).
		Str("total", result.Total.StringFixed(2)).
		Msg("Deductions computed")

	return &result, nil
}
