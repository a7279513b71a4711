package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salary-deductions/decision/deductions"
	perrors "salary-deductions/pkg/errors"
)

func newTestServer(t *testing.T, rules deductions.RuleTable, apiKey string) http.Handler {
	t.Helper()
	engine, err := deductions.NewEngine(rules, zerolog.Nop())
	require.NoError(t, err)

	cfg := DefaultConfig()
	cfg.APIKey = apiKey
	return NewServer(engine, cfg, zerolog.Nop()).Routes()
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestHealth(t *testing.T) {
	h := newTestServer(t, deductions.DefaultRules(), "")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", decodeBody[map[string]string](t, rec)["status"])
}

func TestDeductionsPost(t *testing.T) {
	h := newTestServer(t, deductions.DefaultRules(), "")

	for _, body := range []string{`{"salary":"50000.00"}`, `{"salary":50000}`, `{"salary":"RD$50,000"}`} {
		t.Run(body, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/deductions", strings.NewReader(body))
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			resp := decodeBody[DeductionResponse](t, rec)
			assert.Equal(t, "uncapped", resp.Rules)
			assert.Equal(t, "50000.00", resp.Salary)
			assert.Equal(t, "1435.00", resp.Pension)
			assert.Equal(t, "1520.00", resp.Insurance)
			assert.Equal(t, "1854.00", resp.IncomeTax)
			assert.Equal(t, "4809.00", resp.Total)
			assert.Equal(t, "45191.00", resp.Net)
			assert.Equal(t, "564540.00", resp.AnnualTaxable)
			assert.Equal(t, 1, resp.Bracket)
			_, err := uuid.Parse(resp.ID)
			assert.NoError(t, err)
		})
	}
}

func TestDeductionsGetWithCappedRules(t *testing.T) {
	h := newTestServer(t, deductions.CappedRules(), "")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/deductions?salary=250000", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody[DeductionResponse](t, rec)
	assert.Equal(t, "capped", resp.Rules)
	assert.Equal(t, "5402.26", resp.Pension)
	assert.Equal(t, "2861.13", resp.Insurance)
}

func TestDeductionsInvalidInput(t *testing.T) {
	h := newTestServer(t, deductions.DefaultRules(), "")

	tests := []struct {
		name string
		req  *http.Request
	}{
		{"negative", httptest.NewRequest(http.MethodPost, "/api/v1/deductions", strings.NewReader(`{"salary":-5}`))},
		{"text", httptest.NewRequest(http.MethodPost, "/api/v1/deductions", strings.NewReader(`{"salary":"lots"}`))},
		{"missing", httptest.NewRequest(http.MethodPost, "/api/v1/deductions", strings.NewReader(`{}`))},
		{"malformed json", httptest.NewRequest(http.MethodPost, "/api/v1/deductions", strings.NewReader(`{"salary":`))},
		{"empty query", httptest.NewRequest(http.MethodGet, "/api/v1/deductions", nil)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, tt.req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			body := decodeBody[map[string]string](t, rec)
			assert.Equal(t, perrors.ErrCodeInvalidInput, body["code"])
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestRules(t *testing.T) {
	h := newTestServer(t, deductions.CappedRules(), "")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/rules", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var rules deductions.RuleTable
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rules))
	assert.Equal(t, "capped", rules.Name)
	assert.Len(t, rules.Brackets, 3)
	assert.True(t, rules.PensionCeiling.Valid)
	assert.Equal(t, "5402.2584", rules.PensionCeiling.Decimal.String())
}

func TestAPIKeyRequired(t *testing.T) {
	h := newTestServer(t, deductions.DefaultRules(), "s3cret")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/deductions?salary=1000", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/deductions?salary=1000", nil)
	req.Header.Set("X-API-Key", "s3cret")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	// health stays open
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
