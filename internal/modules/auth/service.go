package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Guizzs26/tradebook/internal/modules/pkg/clock"
	ctxlogger "github.com/Guizzs26/tradebook/internal/modules/pkg/logger/context"
	"github.com/google/uuid"
)

// Session is everything a successful login or refresh hands back to the client.
// The access token goes in the response body, the other two travel as cookies
type Session struct {
	AccessToken  string
	TokenType    string
	ExpiresAt    time.Time
	RefreshToken string
	CSRFToken    string
}

// RefreshParams carries the three values a refresh call presents
type RefreshParams struct {
	RefreshToken string
	CSRFCookie   string
	CSRFHeader   string
}

// Service composes the codec, revocation registry, refresh store and csrf guard
// into the register/login/refresh/logout/identify use cases
type Service struct {
	users         UserRepository
	passwords     PasswordHasher
	codec         *TokenCodec
	revocations   RevocationRegistry
	refreshTokens RefreshStore
	csrf          *CSRFGuard
	clock         clock.Clock
}

func NewService(
	users UserRepository,
	passwords PasswordHasher,
	codec *TokenCodec,
	revocations RevocationRegistry,
	refreshTokens RefreshStore,
	csrf *CSRFGuard,
	clk clock.Clock,
) *Service {
	return &Service{
		users:         users,
		passwords:     passwords,
		codec:         codec,
		revocations:   revocations,
		refreshTokens: refreshTokens,
		csrf:          csrf,
		clock:         clk,
	}
}

// Register is the use case for creating a new account
func (s *Service) Register(ctx context.Context, email, password string) (*User, error) {
	email = normalizeEmail(email)

	if _, err := s.users.FindByEmail(ctx, email); !errors.Is(err, ErrUserNotFound) {
		if err == nil {
			return nil, ErrAlreadyRegistered
		}
		return nil, fmt.Errorf("check user by email for register: %w", err)
	}

	passwordHash, err := s.passwords.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := s.clock.Now()
	user := &User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: passwordHash,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	// Save reports ErrAlreadyRegistered itself when a concurrent register wins the race
	if err := s.users.Save(ctx, user); err != nil {
		if errors.Is(err, ErrAlreadyRegistered) {
			return nil, ErrAlreadyRegistered
		}
		return nil, fmt.Errorf("save user in register: %w", err)
	}

	ctxlogger.GetLogger(ctx).Info("user registered", slog.String("user_id", user.ID.String()))
	return user, nil
}

// Login is the use case for exchanging credentials for a new session
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	log := ctxlogger.GetLogger(ctx)

	user, err := s.users.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("find user for login: %w", err)
	}

	ok, err := s.passwords.Verify(password, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("verify password for login: %w", err)
	}
	if !ok {
		log.Info("login rejected", slog.String("user_id", user.ID.String()))
		return nil, ErrInvalidCredentials
	}

	refreshToken, err := s.refreshTokens.Issue(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to issue refresh token: %w", err)
	}

	session, err := s.newSession(user, refreshToken)
	if err != nil {
		return nil, err
	}

	log.Info("user logged in", slog.String("user_id", user.ID.String()))
	return session, nil
}

// Refresh is the use case for trading a refresh token for a new session.
// The csrf check runs before the refresh store is touched
func (s *Service) Refresh(ctx context.Context, p RefreshParams) (*Session, error) {
	if !s.csrf.Verify(p.CSRFCookie, p.CSRFHeader) {
		return nil, ErrCsrfMismatch
	}

	userID, nextRefresh, err := s.refreshTokens.Rotate(ctx, p.RefreshToken)
	if err != nil {
		if errors.Is(err, ErrInvalidRefreshToken) {
			return nil, ErrInvalidRefreshToken
		}
		return nil, fmt.Errorf("failed to rotate refresh token: %w", err)
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		// the replacement must not outlive a deleted user
		if revokeErr := s.refreshTokens.Revoke(ctx, userID, nextRefresh); revokeErr != nil {
			ctxlogger.GetLogger(ctx).Warn("failed to drop orphan refresh token", slog.String("error", revokeErr.Error()))
		}
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("find user for refresh: %w", err)
	}

	return s.newSession(user, nextRefresh)
}

// Logout revokes the access token and, when one is presented, the refresh token.
// A token that is already invalid (malformed, expired, revoked) is rejected with ErrInvalidCredentials
func (s *Service) Logout(ctx context.Context, accessToken, refreshToken string) error {
	claims, err := s.authenticate(ctx, accessToken)
	if err != nil {
		if errors.Is(err, ErrUnauthorized) {
			return fmt.Errorf("%w: %w", ErrInvalidCredentials, err)
		}
		return err
	}

	if err := s.revocations.Revoke(ctx, accessToken, claims.ExpiresAt); err != nil {
		return fmt.Errorf("failed to revoke access token: %w", err)
	}

	if refreshToken != "" {
		if err := s.revokeOwnRefresh(ctx, claims.Subject, refreshToken); err != nil {
			return err
		}
	}

	ctxlogger.GetLogger(ctx).Info("user logged out", slog.String("subject", claims.Subject))
	return nil
}

// revokeOwnRefresh drops the refresh token only when it belongs to the logged out user
func (s *Service) revokeOwnRefresh(ctx context.Context, email, refreshToken string) error {
	user, err := s.users.FindByEmail(ctx, email)
	if errors.Is(err, ErrUserNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("find user for logout: %w", err)
	}

	if err := s.refreshTokens.Revoke(ctx, user.ID, refreshToken); err != nil {
		return fmt.Errorf("failed to revoke refresh token: %w", err)
	}
	return nil
}

// Identify resolves an access token to its user. Revocation is checked before the signature
func (s *Service) Identify(ctx context.Context, accessToken string) (*User, error) {
	claims, err := s.authenticate(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	user, err := s.users.FindByEmail(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find user for identify: %w", err)
	}

	return user, nil
}

// authenticate runs the revocation check, then the codec. Client-side failures
// come back as ErrUnauthorized wrapping the concrete reason
func (s *Service) authenticate(ctx context.Context, accessToken string) (*AccessClaims, error) {
	if accessToken == "" {
		return nil, fmt.Errorf("%w: %w", ErrUnauthorized, ErrMalformedToken)
	}

	revoked, err := s.revocations.IsRevoked(ctx, accessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to check token revocation: %w", err)
	}
	if revoked {
		return nil, fmt.Errorf("%w: %w", ErrUnauthorized, ErrRevoked)
	}

	claims, err := s.codec.Verify(accessToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnauthorized, err)
	}

	return claims, nil
}

func (s *Service) newSession(user *User, refreshToken string) (*Session, error) {
	accessToken, expiresAt, err := s.codec.Issue(user.Email, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to issue access token: %w", err)
	}

	csrfToken, err := s.csrf.Issue()
	if err != nil {
		return nil, fmt.Errorf("failed to issue csrf token: %w", err)
	}

	return &Session{
		AccessToken:  accessToken,
		TokenType:    "bearer",
		ExpiresAt:    expiresAt,
		RefreshToken: refreshToken,
		CSRFToken:    csrfToken,
	}, nil
}
