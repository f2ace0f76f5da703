package usecase

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
)

// handlerにそのまま返せるエラー。Fields/Availableはレスポンスにも載る
type HTTPError struct {
	Status    int
	Message   string
	Fields    map[string]string // 422のときの項目別メッセージ
	Available *int64            // 在庫不足のときの残り在庫
	Err       error             // 原因（ログ用、レスポンスには出さない）
}

func (e *HTTPError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%d: %s: %v", e.Status, e.Message, e.Err)
	}
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

func (e *HTTPError) Unwrap() error { return e.Err }

func NewHTTPError(status int, message string) error {
	return &HTTPError{
		Status:  status,
		Message: message,
	}
}

func AsHTTPError(err error) (*HTTPError, bool) {
	var he *HTTPError
	ok := errors.As(err, &he)
	return he, ok
}

// 422
func NewValidationError(fields map[string]string) error {
	return &HTTPError{
		Status:  http.StatusUnprocessableEntity,
		Message: "validation error",
		Fields:  fields,
	}
}

// 400 + 残り在庫
func NewInsufficientStockError(available int64) error {
	return &HTTPError{
		Status:    http.StatusBadRequest,
		Message:   fmt.Sprintf("insufficient stock, available: %d", available),
		Available: &available,
	}
}

func internalError(err error) error {
	return &HTTPError{Status: http.StatusInternalServerError, Message: "internal error", Err: err}
}

func dbError(err error) error {
	return &HTTPError{Status: http.StatusInternalServerError, Message: "db error", Err: err}
}

// 500系は原因をログに残す（レスポンスには出さない）
func logInternal(logger echo.Logger, msg string, err error, fields log.JSON) {
	if he, ok := AsHTTPError(err); ok && (he.Status < http.StatusInternalServerError || he.Err == nil) {
		return
	}
	entry := log.JSON{"msg": msg, "error": err.Error()}
	for k, v := range fields {
		entry[k] = v
	}
	logger.Errorj(entry)
}
