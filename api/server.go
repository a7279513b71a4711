// Package api exposes the deduction calculator over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"salary-deductions/decision/deductions"
	perrors "salary-deductions/pkg/errors"
	"salary-deductions/pkg/platform"
)

// Server is the HTTP API server
type Server struct {
	httpServer *http.Server
	engine     *deductions.Engine
	config     *Config
	logger     zerolog.Logger
}

// Config holds server configuration
type Config struct {
	Port           int
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	MaxRequestSize int64
	APIKey         string
}

// DefaultConfig returns default server configuration
func DefaultConfig() *Config {
	return &Config{
		Port:           8080,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		MaxRequestSize: 64 * 1024,
	}
}

// NewServer creates a new API server
func NewServer(engine *deductions.Engine, config *Config, logger zerolog.Logger) *Server {
	if config == nil {
		config = DefaultConfig()
	}
	if config.MaxRequestSize <= 0 {
		config.MaxRequestSize = DefaultConfig().MaxRequestSize
	}
	return &Server{
		engine: engine,
		config: config,
		logger: logger,
	}
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.loggingMiddleware)

	r.Get("/health", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(platform.APIKeyMiddleware(s.config.APIKey))
		r.Get("/rules", s.handleRules)
		r.Get("/deductions", s.handleDeductions)
		r.Post("/deductions", s.handleDeductions)
	})
	return r
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.Routes(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	s.logger.Info().Int("port", s.config.Port).Str("rules", s.engine.Rules().Name).Msg("API server starting")
	return s.httpServer.ListenAndServe()
}

// StartWithGracefulShutdown starts server with graceful shutdown handling
func (s *Server) StartWithGracefulShutdown() error {
	errChan := make(chan error, 1)
	go func() {
		if err := s.Start(); !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errChan:
		return err
	case <-quit:
		s.logger.Info().Msg("Shutting down server")
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(ctx)
	}
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Str("request_id", middleware.GetReqID(r.Context())).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

func (s *Server) handleRules(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, s.engine.Rules())
}

// DeductionRequest is the POST body. Salary may be a JSON number or string.
type DeductionRequest struct {
	Salary json.RawMessage `json:"salary"`
}

// DeductionResponse renders money with two decimals.
type DeductionResponse struct {
	ID            string `json:"id"`
	Rules         string `json:"rules"`
	Salary        string `json:"salary"`
	Pension       string `json:"pension"`
	Insurance     string `json:"insurance"`
	IncomeTax     string `json:"income_tax"`
	Total         string `json:"total"`
	Net           string `json:"net"`
	AnnualTaxable string `json:"annual_taxable"`
	Bracket       int    `json:"bracket"`
}

func (s *Server) handleDeductions(w http.ResponseWriter, r *http.Request) {
	raw, err := s.salaryFromRequest(w, r)
	if err != nil {
		s.jsonError(w, http.StatusBadRequest, perrors.ErrCodeInvalidInput, err.Error())
		return
	}

	salary, _, err := deductions.ParseSalary(raw, deductions.ParseStrict)
	if err != nil {
		s.writeError(w, err)
		return
	}

	result, err := s.engine.Calculate(r.Context(), deductions.Request{Salary: salary})
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.jsonResponse(w, http.StatusOK, DeductionResponse{
		ID:            uuid.NewString(),
		Rules:         result.RuleSet,
		Salary:        result.Salary.StringFixed(2),
		Pension:       result.Pension.StringFixed(2),
		Insurance:     result.Insurance.StringFixed(2),
		IncomeTax:     result.IncomeTax.StringFixed(2),
		Total:         result.Total.StringFixed(2),
		Net:           result.Net.StringFixed(2),
		AnnualTaxable: result.AnnualTaxable.StringFixed(2),
		Bracket:       result.Bracket,
	})
}

func (s *Server) salaryFromRequest(w http.ResponseWriter, r *http.Request) (string, error) {
	if r.Method == http.MethodGet {
		return r.URL.Query().Get("salary"), nil
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxRequestSize)
	var req DeductionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return "", fmt.Errorf("invalid request: %w", err)
	}

	value := strings.TrimSpace(string(req.Salary))
	if strings.HasPrefix(value, `"`) {
		var str string
		if err := json.Unmarshal(req.Salary, &str); err != nil {
			return "", fmt.Errorf("invalid salary: %w", err)
		}
		return str, nil
	}
	if value == "null" {
		return "", nil
	}
	return value, nil
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	var de *perrors.DeductionError
	if errors.As(err, &de) {
		s.jsonError(w, http.StatusBadRequest, de.Code, de.Message)
		return
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		s.jsonError(w, http.StatusServiceUnavailable, "", err.Error())
		return
	}
	s.logger.Error().Err(err).Msg("Deduction calculation failed")
	s.jsonError(w, http.StatusInternalServerError, "", "internal error")
}

func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to write response")
	}
}

func (s *Server) jsonError(w http.ResponseWriter, status int, code, message string) {
	body := map[string]string{"error": message}
	if code != "" {
		body["code"] = code
	}
	s.jsonResponse(w, status, body)
}
