package platform

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "info")
	logger.Debug().Msg("hidden")
	logger.Info().Msg("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")

	buf.Reset()
	logger = NewLogger(&buf, "bogus")
	logger.Info().Msg("below warn")
	logger.Warn().Msg("warned")
	assert.NotContains(t, buf.String(), "below warn")
	assert.Contains(t, buf.String(), "warned")
}

func TestLoadDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("DSD_TEST_RULES=capped\n"), 0o644))
	t.Setenv("DSD_TEST_RULES", "")
	require.NoError(t, os.Unsetenv("DSD_TEST_RULES"))

	require.NoError(t, LoadDotEnv(path))
	assert.Equal(t, "capped", os.Getenv("DSD_TEST_RULES"))

	assert.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), "missing.env")))
}

func TestAPIKeyMiddleware(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		name   string
		key    string
		header string
		want   int
	}{
		{name: "disabled", key: "", header: "", want: http.StatusOK},
		{name: "missing header", key: "secret", header: "", want: http.StatusUnauthorized},
		{name: "wrong key", key: "secret", header: "nope", want: http.StatusUnauthorized},
		{name: "matching key", key: "secret", header: "secret", want: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("X-API-Key", tt.header)
			}
			rec := httptest.NewRecorder()
			APIKeyMiddleware(tt.key)(ok).ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}
