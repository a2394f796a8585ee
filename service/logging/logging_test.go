package logging

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoggerTo_Levels(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, NewLoggerTo(&bytes.Buffer{}, "DEBUG").GetLevel())
	assert.Equal(t, zerolog.WarnLevel, NewLoggerTo(&bytes.Buffer{}, " warn ").GetLevel())
	assert.Equal(t, zerolog.InfoLevel, NewLoggerTo(&bytes.Buffer{}, "loud").GetLevel())
	assert.Equal(t, zerolog.InfoLevel, NewLoggerTo(&bytes.Buffer{}, "").GetLevel())
}

func TestGinMiddleware_LogsRequest(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var buf bytes.Buffer
	logger := NewLoggerTo(&buf, "info")

	engine := gin.New()
	engine.Use(GinMiddleware(logger))
	engine.GET("/api/missing", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/missing", nil))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "warn", line["level"])
	assert.Equal(t, "/api/missing", line["path"])
	assert.Equal(t, float64(http.StatusNotFound), line["status"])
	assert.Contains(t, line, "time")
}
