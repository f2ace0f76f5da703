package middleware

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"shopbot/internal/domain/model"
	"shopbot/internal/repository/memstore"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *log.Logger {
	l := log.New("test")
	l.SetOutput(io.Discard)
	return l
}

// =====================
// ChatbotSettings
// =====================

func TestChatbotSettings_SetsFlag(t *testing.T) {
	s := memstore.New()
	_, err := s.Settings().SetActivation(context.Background(), model.ChatbotActivationName, false, time.Now())
	require.NoError(t, err)

	e := echo.New()
	var fromCtx, fromEcho bool
	e.GET("/x", func(c echo.Context) error {
		fromEcho = ChatbotActive(c)
		fromCtx = ChatbotActiveFromContext(c.Request().Context())
		return c.NoContent(http.StatusOK)
	}, ChatbotSettings(s.Settings(), testLogger()))

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, fromEcho)
	assert.False(t, fromCtx)
}

func TestChatbotSettings_DefaultActive(t *testing.T) {
	s := memstore.New()

	e := echo.New()
	var active bool
	e.GET("/x", func(c echo.Context) error {
		active = ChatbotActive(c)
		return c.NoContent(http.StatusOK)
	}, ChatbotSettings(s.Settings(), testLogger()))

	e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.True(t, active)
}

// =====================
// Throttle
// =====================

func TestThrottle_MemoryStore_Blocks(t *testing.T) {
	e := echo.New()
	e.POST("/track", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	}, Throttle(NewMemoryThrottleStore(2, time.Minute), testLogger()))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/track", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	//別IPは別カウント
	req := httptest.NewRequest(http.MethodPost, "/track", nil)
	req.RemoteAddr = "10.0.0.2:1234"
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
