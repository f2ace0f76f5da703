package middleware

import (
	"context"

	"shopbot/internal/domain/model"
	"shopbot/internal/repository"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
)

const CtxChatbotActiveKey = "chatbot_active" // bool

type chatbotCtxKey struct{}

// chatbotのON/OFFをリクエストごとに1回だけ読んでcontextに入れる。
// 読めなかったときはON扱い（初回作成時の値と同じ）
func ChatbotSettings(settings repository.SettingRepository, logger echo.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()

			active := true
			a, err := settings.GetActivation(req.Context(), model.ChatbotActivationName)
			if err != nil {
				logger.Warnj(log.JSON{"msg": "read chatbot setting failed", "error": err.Error()})
			} else {
				active = a.IsActive
			}

			c.Set(CtxChatbotActiveKey, active)
			c.SetRequest(req.WithContext(context.WithValue(req.Context(), chatbotCtxKey{}, active)))
			return next(c)
		}
	}
}

// middlewareを通っていなければfalse
func ChatbotActive(c echo.Context) bool {
	v, ok := c.Get(CtxChatbotActiveKey).(bool)
	return ok && v
}

// usecase側でctxから読む用
func ChatbotActiveFromContext(ctx context.Context) bool {
	v, ok := ctx.Value(chatbotCtxKey{}).(bool)
	return ok && v
}
