package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/portalis-api/internal/middleware"
)

const jwtTestSecret = "test-secret"

func newJWTApp(t *testing.T) (*fiber.App, *string) {
	t.Helper()

	var captured string
	app := fiber.New()
	app.Get("/protected", middleware.JWTProtected(jwtTestSecret), func(c *fiber.Ctx) error {
		if id, ok := c.Locals("user_id").(string); ok {
			captured = id
		}
		return c.SendStatus(fiber.StatusOK)
	})

	return app, &captured
}

func signToken(t *testing.T, claims jwt.MapClaims, secret string) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)

	return signed
}

func requestWithToken(t *testing.T, app *fiber.App, token string) *http.Response {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	return resp
}

func TestJWTProtectedAcceptsStringSubject(t *testing.T) {
	app, captured := newJWTApp(t)

	token := signToken(t, jwt.MapClaims{
		"sub": "2021-00123",
		"exp": time.Now().Add(time.Hour).Unix(),
	}, jwtTestSecret)

	resp := requestWithToken(t, app, token)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, "2021-00123", *captured)
}

func TestJWTProtectedNormalizesNumericSubject(t *testing.T) {
	app, captured := newJWTApp(t)

	token := signToken(t, jwt.MapClaims{
		"sub": 123456,
		"exp": time.Now().Add(time.Hour).Unix(),
	}, jwtTestSecret)

	resp := requestWithToken(t, app, token)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, "123456", *captured)
}

func TestJWTProtectedRejectsMissingHeader(t *testing.T) {
	app, _ := newJWTApp(t)

	resp := requestWithToken(t, app, "")
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestJWTProtectedRejectsWrongSignature(t *testing.T) {
	app, _ := newJWTApp(t)

	token := signToken(t, jwt.MapClaims{
		"sub": "2021-00123",
		"exp": time.Now().Add(time.Hour).Unix(),
	}, "other-secret")

	resp := requestWithToken(t, app, token)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestJWTProtectedRejectsExpiredToken(t *testing.T) {
	app, _ := newJWTApp(t)

	token := signToken(t, jwt.MapClaims{
		"sub": "2021-00123",
		"exp": time.Now().Add(-time.Hour).Unix(),
	}, jwtTestSecret)

	resp := requestWithToken(t, app, token)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestJWTProtectedRejectsTokenWithoutSubject(t *testing.T) {
	app, _ := newJWTApp(t)

	token := signToken(t, jwt.MapClaims{
		"exp": time.Now().Add(time.Hour).Unix(),
	}, jwtTestSecret)

	resp := requestWithToken(t, app, token)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestCorrelationIDIsGeneratedAndEchoed(t *testing.T) {
	app := fiber.New()
	app.Use(middleware.CorrelationID())
	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString(middleware.GetCorrelationID(c))
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.NotEmpty(t, resp.Header.Get("X-Correlation-ID"))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Correlation-ID", "abc-123")
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, "abc-123", resp.Header.Get("X-Correlation-ID"))
}
