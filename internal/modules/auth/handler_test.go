package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/Guizzs26/tradebook/internal/modules/pkg/validatorx"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type handlerFixture struct {
	*serviceFixture
	e *echo.Echo
	h *AuthHandler
}

func newHandlerFixture(t *testing.T) *handlerFixture {
	t.Helper()
	e := echo.New()
	e.Validator = validatorx.NewValidator()

	sf := newServiceFixture(t)
	return &handlerFixture{
		serviceFixture: sf,
		e:              e,
		h:              NewAuthHandler(sf.svc, DefaultCookieConfig(true, "example.com")),
	}
}

func (f *handlerFixture) call(t *testing.T, handler echo.HandlerFunc, req *http.Request) (*httptest.ResponseRecorder, error) {
	t.Helper()
	rec := httptest.NewRecorder()
	return rec, handler(f.e.NewContext(req, rec))
}

func jsonRequest(body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}

func formRequest(values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(values.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	return req
}

func findCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestAuthHandler_RegisterAndLogin(t *testing.T) {
	f := newHandlerFixture(t)

	rec, err := f.call(t, f.h.registerHandler, jsonRequest(`{"username":"a@x.com","password":"password-1"}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, rec.Code)

	_, err = f.call(t, f.h.registerHandler, jsonRequest(`{"username":"a@x.com","password":"password-2"}`))
	assert.ErrorIs(t, err, ErrAlreadyRegistered)

	_, err = f.call(t, f.h.loginHandler, formRequest(url.Values{"username": {"a@x.com"}, "password": {"wrong-password"}}))
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	rec, err = f.call(t, f.h.loginHandler, formRequest(url.Values{"username": {"a@x.com"}, "password": {"password-1"}}))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data TokenResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.NotEmpty(t, body.Data.AccessToken)
	assert.Equal(t, "bearer", body.Data.TokenType)

	refresh := findCookie(rec, RefreshCookieName)
	require.NotNil(t, refresh)
	assert.True(t, refresh.HttpOnly)
	assert.True(t, refresh.Secure)
	assert.Equal(t, http.SameSiteNoneMode, refresh.SameSite)
	assert.Equal(t, 604800, refresh.MaxAge)
	assert.Equal(t, "/", refresh.Path)
	assert.Equal(t, "example.com", refresh.Domain)

	csrf := findCookie(rec, CSRFCookieName)
	require.NotNil(t, csrf)
	assert.False(t, csrf.HttpOnly)
	assert.Equal(t, http.SameSiteNoneMode, csrf.SameSite)
	assert.Equal(t, 604800, csrf.MaxAge)
}

func TestAuthHandler_LoginValidation(t *testing.T) {
	f := newHandlerFixture(t)

	_, err := f.call(t, f.h.loginHandler, jsonRequest(`{"username":"","password":""}`))
	var valErr validatorx.ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Len(t, valErr.Errors, 2)

	_, err = f.call(t, f.h.loginHandler, jsonRequest(`{"username":`))
	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusBadRequest, httpErr.Code)
}

func TestAuthHandler_ShortCredentials(t *testing.T) {
	f := newHandlerFixture(t)

	rec, err := f.call(t, f.h.registerHandler, formRequest(url.Values{"username": {"a@x.com"}, "password": {"pw"}}))
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, rec.Code)

	tests := []struct {
		name     string
		username string
		password string
	}{
		{"short wrong password", "a@x.com", "wrong"},
		{"non-email username", "alice", "pw"},
		{"unknown user", "b@x.com", "pw"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.call(t, f.h.loginHandler, formRequest(url.Values{"username": {tt.username}, "password": {tt.password}}))
			assert.ErrorIs(t, err, ErrInvalidCredentials)
		})
	}

	rec, err = f.call(t, f.h.loginHandler, formRequest(url.Values{"username": {"a@x.com"}, "password": {"pw"}}))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthHandler_RefreshAndLogout(t *testing.T) {
	f := newHandlerFixture(t)

	_, err := f.svc.Register(t.Context(), "a@x.com", "password-1")
	require.NoError(t, err)
	session, err := f.svc.Login(t.Context(), "a@x.com", "password-1")
	require.NoError(t, err)

	withCookies := func(req *http.Request, csrfHeader string) *http.Request {
		req.AddCookie(&http.Cookie{Name: RefreshCookieName, Value: session.RefreshToken})
		req.AddCookie(&http.Cookie{Name: CSRFCookieName, Value: session.CSRFToken})
		if csrfHeader != "" {
			req.Header.Set(CSRFHeaderName, csrfHeader)
		}
		return req
	}

	_, err = f.call(t, f.h.refreshHandler, withCookies(httptest.NewRequest(http.MethodPost, "/", nil), ""))
	assert.ErrorIs(t, err, ErrCsrfMismatch)

	rec, err := f.call(t, f.h.refreshHandler, withCookies(httptest.NewRequest(http.MethodPost, "/", nil), session.CSRFToken))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)

	rotated := findCookie(rec, RefreshCookieName)
	require.NotNil(t, rotated)
	assert.NotEqual(t, session.RefreshToken, rotated.Value)

	var body struct {
		Data TokenResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+body.Data.AccessToken)
	req.AddCookie(&http.Cookie{Name: RefreshCookieName, Value: rotated.Value})
	rec, err = f.call(t, f.h.logoutHandler, req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())

	cleared := findCookie(rec, RefreshCookieName)
	require.NotNil(t, cleared)
	assert.Equal(t, -1, cleared.MaxAge)

	req = httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+body.Data.AccessToken)
	_, err = f.call(t, f.h.identifyHandler, req)
	assert.ErrorIs(t, err, ErrRevoked)
}

func TestAuthHandler_Identify(t *testing.T) {
	f := newHandlerFixture(t)

	user, err := f.svc.Register(t.Context(), "a@x.com", "password-1")
	require.NoError(t, err)
	session, err := f.svc.Login(t.Context(), "a@x.com", "password-1")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+session.AccessToken)
	rec, err := f.call(t, f.h.identifyHandler, req)
	require.NoError(t, err)

	var body struct {
		Data UserIDResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, user.ID, body.Data.ID)

	_, err = f.call(t, f.h.identifyHandler, httptest.NewRequest(http.MethodPost, "/", nil))
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestBearerToken(t *testing.T) {
	tests := map[string]string{
		"Bearer abc":  "abc",
		"bearer abc":  "abc",
		"Bearer  abc": "abc",
		"Basic abc":   "",
		"abc":         "",
		"":            "",
	}
	for header, want := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			req.Header.Set(echo.HeaderAuthorization, header)
		}
		assert.Equal(t, want, BearerToken(req), header)
	}
}
