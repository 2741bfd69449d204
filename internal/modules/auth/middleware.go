package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	ctxlogger "github.com/Guizzs26/tradebook/internal/modules/pkg/logger/context"
	"github.com/labstack/echo/v4"
)

type userKey struct{}

// WithUser returns a copy of ctx carrying the authenticated user
func WithUser(ctx context.Context, user *User) context.Context {
	return context.WithValue(ctx, userKey{}, user)
}

// UserFromContext returns the user set by RequireAuth
func UserFromContext(ctx context.Context) (*User, bool) {
	u, ok := ctx.Value(userKey{}).(*User)
	return u, ok && u != nil
}

// RequireAuth resolves the bearer token to a user before the handler runs.
// Failures are returned so the central error handler answers 401
func RequireAuth(svc *Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()

			user, err := svc.Identify(ctx, BearerToken(c.Request()))
			if err != nil {
				// a token whose user is gone is not a valid credential here
				if errors.Is(err, ErrNotFound) {
					return fmt.Errorf("%w: %w", ErrUnauthorized, err)
				}
				return err
			}

			ctx = WithUser(ctx, user)
			ctx = ctxlogger.With(ctx, slog.String("user_id", user.ID.String()))
			c.SetRequest(c.Request().WithContext(ctx))

			return next(c)
		}
	}
}
