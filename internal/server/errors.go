package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/jonathan/form-autofill/internal/browser"
	"github.com/jonathan/form-autofill/internal/fetch"
	"github.com/jonathan/form-autofill/internal/schemas"
)

// ErrValidation indicates request validation failure
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// ErrBrowserUnavailable indicates the server was started without a browser session.
type ErrBrowserUnavailable struct{}

func (e *ErrBrowserUnavailable) Error() string {
	return "live page filling is not available: no browser configured"
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	var (
		validationErr *ErrValidation
		schemaErr     *schemas.ValidationError
		loadErr       *schemas.SchemaLoadError
		fieldErrs     validator.ValidationErrors
		unavailable   *ErrBrowserUnavailable
		pageErr       *browser.PageError
		fetchErr      *fetch.Error
	)
	switch {
	case errors.As(err, &validationErr), errors.As(err, &schemaErr), errors.As(err, &loadErr), errors.As(err, &fieldErrs):
		return http.StatusBadRequest
	case errors.As(err, &unavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.As(err, &pageErr), errors.As(err, &fetchErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
