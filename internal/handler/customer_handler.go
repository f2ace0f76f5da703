package handler

import (
	"net/http"
	"strconv"

	"shopbot/internal/middleware"
	"shopbot/internal/usecase"

	"github.com/labstack/echo/v4"
)

// n8n（WhatsApp）用の顧客/会話API。レスポンスには必ずchatbot_activeを付ける
type CustomerHandler struct {
	uc *usecase.CustomerUsecase
}

// DI
func NewCustomerHandler(uc *usecase.CustomerUsecase) *CustomerHandler {
	return &CustomerHandler{uc: uc}
}

type CreateCustomerRequest struct {
	Name        string `json:"name" validate:"required,max=255"`
	PhoneNumber string `json:"phone_number" validate:"required,max=20"`
}

type CreateMessageLogRequest struct {
	CustomerID       int64  `json:"customer_id" validate:"required,gt=0"`
	CustomerMessages string `json:"customer_messages"`
	AIMessages       string `json:"ai_messages"`
}

type SendMessageRequest struct {
	CustomerID int64  `json:"customer_id" validate:"required,gt=0"`
	Message    string `json:"message" validate:"required,max=1000"`
	Sender     string `json:"sender" validate:"required,oneof=customer ai"`
}

func (h *CustomerHandler) RegisterRoutes(e *echo.Echo, chatbot echo.MiddlewareFunc) {
	e.POST("/customers", h.create, chatbot)
	e.GET("/customers/db/:phone_number", h.lookup, chatbot)
	e.GET("/customers/phone", h.findByPhone, chatbot)

	e.POST("/message-logs", h.createMessageLog, chatbot)
	e.GET("/message-logs", h.recentMessageLogs, chatbot)

	e.GET("/chat/messages/:customer_id", h.conversation, chatbot)
	e.POST("/chat/send", h.send, chatbot)
}

func (h *CustomerHandler) create(c echo.Context) error {
	var req CreateCustomerRequest
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}

	cust, err := h.uc.Create(c.Request().Context(), usecase.CreateCustomerInput{Name: req.Name, PhoneNumber: req.PhoneNumber})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"success":        true,
		"customer":       cust,
		"chatbot_active": middleware.ChatbotActive(c),
	})
}

func (h *CustomerHandler) lookup(c echo.Context) error {
	out, err := h.uc.LookupByPhone(c.Request().Context(), c.Param("phone_number"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"found":          out.Found,
		"customer":       out.Customer,
		"chatbot_active": middleware.ChatbotActive(c),
	})
}

func (h *CustomerHandler) findByPhone(c echo.Context) error {
	cust, err := h.uc.FindByPhone(c.Request().Context(), c.QueryParam("phone_number"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success":        true,
		"customer":       cust,
		"chatbot_active": middleware.ChatbotActive(c),
	})
}

func (h *CustomerHandler) createMessageLog(c echo.Context) error {
	var req CreateMessageLogRequest
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}

	m, err := h.uc.CreateMessageLog(c.Request().Context(), usecase.CreateMessageLogInput{
		CustomerID:       req.CustomerID,
		CustomerMessages: req.CustomerMessages,
		AIMessages:       req.AIMessages,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"success":        true,
		"message_log":    m,
		"chatbot_active": middleware.ChatbotActive(c),
	})
}

func (h *CustomerHandler) recentMessageLogs(c echo.Context) error {
	logs, err := h.uc.RecentMessageLogs(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message_logs":   logs,
		"chatbot_active": middleware.ChatbotActive(c),
	})
}

func (h *CustomerHandler) conversation(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("customer_id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid customer_id"})
	}

	conv, err := h.uc.Conversation(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success":        true,
		"customer":       conv.Customer,
		"messages":       conv.Messages,
		"chatbot_active": middleware.ChatbotActive(c),
	})
}

func (h *CustomerHandler) send(c echo.Context) error {
	var req SendMessageRequest
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}

	m, err := h.uc.Send(c.Request().Context(), usecase.SendMessageInput{
		CustomerID: req.CustomerID,
		Message:    req.Message,
		Sender:     req.Sender,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"success":        true,
		"message":        "Message sent successfully",
		"message_log":    m,
		"chatbot_active": middleware.ChatbotActive(c),
	})
}
