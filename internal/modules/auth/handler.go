package auth

import (
	"net/http"
	"strings"
	"time"

	"github.com/Guizzs26/tradebook/internal/modules/pkg/httpx"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const (
	RefreshCookieName = "refresh_token"
	CSRFCookieName    = "csrf_token"
	CSRFHeaderName    = "X-CSRF-TOKEN"
)

// CookieConfig holds the attributes shared by the refresh and csrf cookies
type CookieConfig struct {
	Secure bool
	Domain string
	Path   string
	MaxAge int
}

// DefaultCookieConfig matches the refresh token horizon
func DefaultCookieConfig(secure bool, domain string) CookieConfig {
	return CookieConfig{
		Secure: secure,
		Domain: domain,
		Path:   "/",
		MaxAge: int(DefaultRefreshTokenTTL / time.Second),
	}
}

// AuthHandler holds dependencies for auth-related HTTP handlers
type AuthHandler struct {
	authService *Service
	cookies     CookieConfig
}

// NewAuthHandler creates a new instance of AuthHandler
func NewAuthHandler(authService *Service, cookies CookieConfig) *AuthHandler {
	return &AuthHandler{authService: authService, cookies: cookies}
}

// RegisterRoutes sets up the API routes for the auth module
func (h *AuthHandler) RegisterRoutes(apiRouteGroup *echo.Group) {
	authGroup := apiRouteGroup.Group("/auth")

	// POST /api/v1/auth/register
	authGroup.POST("/register", h.registerHandler)
	authGroup.POST("/token", h.loginHandler)
	authGroup.POST("/refresh", h.refreshHandler)
	authGroup.POST("/logout", h.logoutHandler)
	authGroup.POST("/get_user_id", h.identifyHandler)
}

// RegisterRequest accepts a JSON body or the OAuth2 password form
type RegisterRequest struct {
	Username string `json:"username" form:"username" validate:"required,max=255"`
	Password string `json:"password" form:"password" validate:"required,max=128"`
}

// LoginRequest only checks presence, any mismatch after that is ErrInvalidCredentials
type LoginRequest struct {
	Username string `json:"username" form:"username" validate:"required"`
	Password string `json:"password" form:"password" validate:"required"`
}

// TokenResponse defines the body returned by login and refresh
type TokenResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// UserIDResponse defines the body returned by register and get_user_id
type UserIDResponse struct {
	ID uuid.UUID `json:"id"`
}

func (h *AuthHandler) registerHandler(c echo.Context) error {
	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body format")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	user, err := h.authService.Register(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		return err
	}

	return httpx.SendSuccess(c, http.StatusCreated, UserIDResponse{ID: user.ID})
}

func (h *AuthHandler) loginHandler(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body format")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	session, err := h.authService.Login(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		return err
	}

	h.setSessionCookies(c, session)
	return httpx.SendSuccess(c, http.StatusOK, toTokenResponse(session))
}

func (h *AuthHandler) refreshHandler(c echo.Context) error {
	params := RefreshParams{
		RefreshToken: cookieValue(c, RefreshCookieName),
		CSRFCookie:   cookieValue(c, CSRFCookieName),
		CSRFHeader:   c.Request().Header.Get(CSRFHeaderName),
	}

	session, err := h.authService.Refresh(c.Request().Context(), params)
	if err != nil {
		return err
	}

	h.setSessionCookies(c, session)
	return httpx.SendSuccess(c, http.StatusOK, toTokenResponse(session))
}

func (h *AuthHandler) logoutHandler(c echo.Context) error {
	err := h.authService.Logout(
		c.Request().Context(),
		BearerToken(c.Request()),
		cookieValue(c, RefreshCookieName),
	)
	if err != nil {
		return err
	}

	h.clearSessionCookies(c)
	return httpx.SendNoContent(c)
}

func (h *AuthHandler) identifyHandler(c echo.Context) error {
	user, err := h.authService.Identify(c.Request().Context(), BearerToken(c.Request()))
	if err != nil {
		return err
	}

	return httpx.SendSuccess(c, http.StatusOK, UserIDResponse{ID: user.ID})
}

func (h *AuthHandler) setSessionCookies(c echo.Context, s *Session) {
	c.SetCookie(h.newCookie(RefreshCookieName, s.RefreshToken, true, h.cookies.MaxAge))
	c.SetCookie(h.newCookie(CSRFCookieName, s.CSRFToken, false, h.cookies.MaxAge))
}

func (h *AuthHandler) clearSessionCookies(c echo.Context) {
	c.SetCookie(h.newCookie(RefreshCookieName, "", true, -1))
	c.SetCookie(h.newCookie(CSRFCookieName, "", false, -1))
}

func (h *AuthHandler) newCookie(name, value string, httpOnly bool, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     h.cookies.Path,
		Domain:   h.cookies.Domain,
		MaxAge:   maxAge,
		Secure:   h.cookies.Secure,
		HttpOnly: httpOnly,
		SameSite: http.SameSiteNoneMode,
	}
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header.
// It returns "" when the header is missing or uses another scheme
func BearerToken(r *http.Request) string {
	header := r.Header.Get(echo.HeaderAuthorization)
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

func cookieValue(c echo.Context, name string) string {
	cookie, err := c.Cookie(name)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// toTokenResponse maps a Session to the public TokenResponse DTO
func toTokenResponse(s *Session) TokenResponse {
	return TokenResponse{
		AccessToken: s.AccessToken,
		TokenType:   s.TokenType,
		ExpiresAt:   s.ExpiresAt,
	}
}
