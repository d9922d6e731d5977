package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogger_LevelFollowsStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := map[int]zapcore.Level{
		http.StatusOK:                  zapcore.InfoLevel,
		http.StatusPaymentRequired:     zapcore.WarnLevel,
		http.StatusInternalServerError: zapcore.ErrorLevel,
	}
	for status, level := range cases {
		core, logs := observer.New(zapcore.DebugLevel)
		r := gin.New()
		r.Use(TraceID(), Logger(zap.New(core)))
		r.POST("/api/game/buy", func(c *gin.Context) {
			c.Set(SessionIDKey, "sess-1")
			c.Status(status)
		})
		req := httptest.NewRequest(http.MethodPost, "/api/game/buy", nil)
		req.Header.Set(TraceIDHeader, "t-1")
		r.ServeHTTP(httptest.NewRecorder(), req)

		entries := logs.All()
		require.Len(t, entries, 1)
		assert.Equal(t, level, entries[0].Level, "status %d", status)
		fields := entries[0].ContextMap()
		assert.Equal(t, "t-1", fields["trace_id"])
		assert.Equal(t, "sess-1", fields["session_id"])
		assert.Equal(t, int64(status), fields["status"])
	}
}
