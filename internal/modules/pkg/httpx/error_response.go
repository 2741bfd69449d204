package httpx

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Machine-readable codes carried in APIError.Code
const (
	CodeValidation   = "VALIDATION_ERROR"
	CodeBadRequest   = "BAD_REQUEST"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeForbidden    = "FORBIDDEN"
	CodeNotFound     = "RESOURCE_NOT_FOUND"
	CodeBusinessRule = "BUSINESS_RULE_VIOLATION"
	CodeUpstream     = "UPSTREAM_ERROR"
	CodeHTTP         = "HTTP_ERROR"
	CodeInternal     = "INTERNAL_SERVER_ERROR"
)

// APIError is the body of every 4xx and 5xx response
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"` // e.g. the field errors of a VALIDATION_ERROR
}

func NewAPIError(code, message string, details any) APIError {
	return APIError{
		Code:    code,
		Message: message,
		Details: details,
	}
}

// SendAPIError writes err as JSON. A 401 also advertises the bearer scheme,
// which is what OAuth2 password-flow clients expect
func SendAPIError(c echo.Context, httpStatus int, err APIError) error {
	if httpStatus == http.StatusUnauthorized {
		c.Response().Header().Set(echo.HeaderWWWAuthenticate, "Bearer")
	}
	return c.JSON(httpStatus, err)
}
