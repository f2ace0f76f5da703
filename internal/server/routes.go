package server

import (
	"shopbot/internal/handler"

	"github.com/labstack/echo/v4"
)

type Handlers struct {
	Checkout  *handler.CheckoutHandler
	Payment   *handler.PaymentHandler
	Orders    *handler.OrderHandler
	Customers *handler.CustomerHandler
	Settings  *handler.SettingsHandler
	Products  *handler.ProductHandler
	Health    *handler.HealthHandler
}

type Middlewares struct {
	Chatbot          echo.MiddlewareFunc // chatbot_activeをcontextへ
	TrackingThrottle echo.MiddlewareFunc // 追跡は5回/分
}

func RegisterRoutes(e *echo.Echo, h Handlers, m Middlewares) {
	h.Health.RegisterRoutes(e)
	h.Products.RegisterRoutes(e)
	h.Checkout.RegisterRoutes(e)
	h.Payment.RegisterRoutes(e)
	h.Orders.RegisterRoutes(e, m.TrackingThrottle)
	h.Customers.RegisterRoutes(e, m.Chatbot)
	h.Settings.RegisterRoutes(e)
}
