package server

import (
	"errors"
	"net/http"
	"reflect"
	"strings"

	"shopbot/internal/usecase"

	"github.com/go-playground/validator/v10"
)

// echo.Validator。失敗したら項目ごとのメッセージで422
type RequestValidator struct {
	v *validator.Validate
}

func NewRequestValidator() *RequestValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	//エラーのキーはjsonの名前にする
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			name = strings.SplitN(f.Tag.Get("query"), ",", 2)[0]
		}
		return name
	})
	return &RequestValidator{v: v}
}

func (rv *RequestValidator) Validate(i interface{}) error {
	err := rv.v.Struct(i)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return usecase.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = message(fe)
	}
	return usecase.NewValidationError(fields)
}

func message(fe validator.FieldError) string {
	f := fe.Field()
	switch fe.Tag() {
	case "required", "required_if":
		return f + " is required"
	case "email":
		return f + " must be a valid email address"
	case "oneof":
		return f + " must be one of: " + fe.Param()
	case "gt":
		return f + " must be greater than " + fe.Param()
	case "min", "gte":
		return f + " must be at least " + fe.Param()
	case "max", "lte":
		return f + " may not be greater than " + fe.Param()
	default:
		return f + " is invalid"
	}
}
