package middleware

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"golang.org/x/time/rate"
)

// redisが無いとき用。インスタンスごとのカウントになる
func NewMemoryThrottleStore(limit int, window time.Duration) echomw.RateLimiterStore {
	return echomw.NewRateLimiterMemoryStoreWithConfig(echomw.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(float64(limit) / window.Seconds()),
		Burst:     limit,
		ExpiresIn: 3 * window,
	})
}

// クライアントIP単位で回数制限。超えたら429
func Throttle(store echomw.RateLimiterStore, logger echo.Logger) echo.MiddlewareFunc {
	return echomw.RateLimiterWithConfig(echomw.RateLimiterConfig{
		Store: store,
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return c.JSON(http.StatusForbidden, errorJSON("forbidden"))
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			//storeのエラー（redis落ち）も拒否する。ログだけ残す
			if err != nil && !errors.Is(err, echomw.ErrRateLimitExceeded) {
				logger.Warnj(log.JSON{"msg": "throttle store failed", "ip": identifier, "error": err.Error()})
			}
			return c.JSON(http.StatusTooManyRequests, errorJSON("too many requests"))
		},
	})
}
