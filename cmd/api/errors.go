package main

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/Guizzs26/tradebook/internal/modules/auth"
	"github.com/Guizzs26/tradebook/internal/modules/pkg/httpx"
	ctxlogger "github.com/Guizzs26/tradebook/internal/modules/pkg/logger/context"
	"github.com/Guizzs26/tradebook/internal/modules/pkg/validatorx"
	"github.com/Guizzs26/tradebook/internal/modules/positions"
	"github.com/Guizzs26/tradebook/internal/modules/tickers"
	"github.com/labstack/echo/v4"
)

type domainError struct {
	target error
	status int
	code   string
}

// domainErrors is checked in order, the first match wins.
// The 401 entries come before the 404 ones: RequireAuth wraps auth.ErrNotFound in auth.ErrUnauthorized
var domainErrors = []domainError{
	{auth.ErrUnauthorized, http.StatusUnauthorized, httpx.CodeUnauthorized},
	{auth.ErrInvalidCredentials, http.StatusUnauthorized, httpx.CodeUnauthorized},
	{auth.ErrInvalidRefreshToken, http.StatusUnauthorized, httpx.CodeUnauthorized},
	{auth.ErrExpired, http.StatusUnauthorized, httpx.CodeUnauthorized},
	{auth.ErrRevoked, http.StatusUnauthorized, httpx.CodeUnauthorized},
	{auth.ErrMalformedToken, http.StatusUnauthorized, httpx.CodeUnauthorized},

	{auth.ErrCsrfMismatch, http.StatusForbidden, httpx.CodeForbidden},

	{auth.ErrAlreadyRegistered, http.StatusBadRequest, httpx.CodeBadRequest},
	{tickers.ErrInvalidFrequency, http.StatusBadRequest, httpx.CodeBadRequest},
	{tickers.ErrDateRange, http.StatusBadRequest, httpx.CodeBadRequest},

	{auth.ErrUserNotFound, http.StatusNotFound, httpx.CodeNotFound},
	{auth.ErrNotFound, http.StatusNotFound, httpx.CodeNotFound},
	{tickers.ErrTickerNotFound, http.StatusNotFound, httpx.CodeNotFound},
	{tickers.ErrOptionNotFound, http.StatusNotFound, httpx.CodeNotFound},
	{positions.ErrPositionNotFound, http.StatusNotFound, httpx.CodeNotFound},

	{positions.ErrInvalidCategory, http.StatusUnprocessableEntity, httpx.CodeBusinessRule},
	{positions.ErrInvalidQuantity, http.StatusUnprocessableEntity, httpx.CodeBusinessRule},
	{positions.ErrCloseBeforeOpen, http.StatusUnprocessableEntity, httpx.CodeBusinessRule},
	{positions.ErrMissingExpiry, http.StatusUnprocessableEntity, httpx.CodeBusinessRule},
	{positions.ErrInvalidRemark, http.StatusUnprocessableEntity, httpx.CodeBusinessRule},

	{tickers.ErrProvider, http.StatusBadGateway, httpx.CodeUpstream},
}

// customErrorHandler is the centralized error handler for the entire API
// It intercepts any error returned from a handler, inspects its type, and
// formats a standardized JSON error response using our httpx.APIError structure
func customErrorHandler(err error, c echo.Context) {
	log := ctxlogger.GetLogger(c.Request().Context())
	if c.Response().Committed {
		return
	}

	// 1. Validation errors from the validatorx package
	var valErr validatorx.ValidationError
	if errors.As(err, &valErr) {
		errResp := httpx.NewAPIError(
			httpx.CodeValidation,
			"One or more fields failed validation",
			valErr.Errors,
		)
		_ = httpx.SendAPIError(c, http.StatusBadRequest, errResp)
		return
	}

	// 2. Known domain errors
	for _, de := range domainErrors {
		if !errors.Is(err, de.target) {
			continue
		}
		msg := err.Error()
		if de.status == http.StatusBadGateway {
			// upstream bodies stay in the log
			log.Warn("market data provider failure", slog.String("error", msg))
			msg = de.target.Error()
		}
		_ = httpx.SendAPIError(c, de.status, httpx.NewAPIError(de.code, msg, nil))
		return
	}

	// 3. Generic Echo HTTP errors
	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		errResp := httpx.NewAPIError(httpx.CodeHTTP, fmt.Sprintf("%v", httpErr.Message), nil)
		_ = httpx.SendAPIError(c, httpErr.Code, errResp)
		return
	}

	// 4. Fallback for any other unexpected error
	log.Error("unhandled internal error", slog.String("error", err.Error()))
	errResp := httpx.NewAPIError(
		httpx.CodeInternal,
		"An unexpected error occurred",
		nil,
	)
	_ = httpx.SendAPIError(c, http.StatusInternalServerError, errResp)
}
