package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
)

func guardedEcho(secret string) *echo.Echo {
	e := echo.New()
	e.POST("/preload/:class", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	}, AdminGuard(secret))
	return e
}

func TestAdminGuardAcceptsValidToken(t *testing.T) {
	e := guardedEcho("sekret")

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "ops"})
	signed, err := tok.SignedString([]byte("sekret"))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/preload/1", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestAdminGuardRejectsBadTokens(t *testing.T) {
	e := guardedEcho("sekret")

	// No header at all.
	req := httptest.NewRequest(http.MethodPost, "/preload/1", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	// Token signed with the wrong secret.
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "ops"})
	signed, err := tok.SignedString([]byte("other"))
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodPost, "/preload/1", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdminGuardDisabledWithoutSecret(t *testing.T) {
	e := guardedEcho("")
	req := httptest.NewRequest(http.MethodPost, "/preload/1", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}
