package middleware

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"tupad-admin/internal/adapters/persistence/models"
	"tupad-admin/internal/core/domain"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func ok(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusNoContent) }

func status(t *testing.T, app *fiber.App, req *http.Request) int {
	t.Helper()
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp.StatusCode
}

func TestOriginGuard(t *testing.T) {
	app := fiber.New()
	app.Use(OriginGuard("https://admin.tupad.gov.ph, https://ops.tupad.gov.ph/"))
	app.All("/x", ok)

	cases := []struct {
		name   string
		method string
		origin string
		host   string
		want   int
	}{
		{"safe method skips the check", http.MethodGet, "", "", fiber.StatusNoContent},
		{"allowed origin", http.MethodPost, "https://admin.tupad.gov.ph", "", fiber.StatusNoContent},
		{"trailing slash in allowlist", http.MethodDelete, "https://ops.tupad.gov.ph", "", fiber.StatusNoContent},
		{"same host", http.MethodPut, "http://api.internal:3000", "api.internal:3000", fiber.StatusNoContent},
		{"foreign origin", http.MethodPost, "https://evil.example", "", fiber.StatusForbidden},
		{"missing origin", http.MethodPatch, "", "", fiber.StatusForbidden},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, "/x", nil)
			if tc.origin != "" {
				req.Header.Set(fiber.HeaderOrigin, tc.origin)
			}
			if tc.host != "" {
				req.Host = tc.host
			}
			assert.Equal(t, tc.want, status(t, app, req))
		})
	}
}

func TestRateLimiter_FixedWindow(t *testing.T) {
	app := fiber.New()
	// nil storage falls back to the limiter's in-memory store
	app.Use(RateLimiter(nil, 2, time.Minute, "test", "slow down"))
	app.Get("/x", ok)

	for i := 0; i < 2; i++ {
		assert.Equal(t, fiber.StatusNoContent, status(t, app, httptest.NewRequest(http.MethodGet, "/x", nil)))
	}
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/x", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get(fiber.HeaderRetryAfter))
}

func TestRequireCapability(t *testing.T) {
	withAccount := func(role domain.Role) fiber.Handler {
		return func(c *fiber.Ctx) error {
			c.Locals(LocalAccount, &models.Account{ID: 7, Role: string(role)})
			return c.Next()
		}
	}

	app := fiber.New()
	app.Get("/anon", RequireCapability(domain.CapViewAdmins), ok)
	app.Get("/encoder", withAccount(domain.RoleDataEncoder), RequireCapability(domain.CapManageAdmins), ok)
	app.Get("/admin", withAccount(domain.RoleSystemAdmin), RequireCapability(domain.CapManageAdmins), ok)

	assert.Equal(t, fiber.StatusUnauthorized, status(t, app, httptest.NewRequest(http.MethodGet, "/anon", nil)))
	assert.Equal(t, fiber.StatusForbidden, status(t, app, httptest.NewRequest(http.MethodGet, "/encoder", nil)))
	assert.Equal(t, fiber.StatusNoContent, status(t, app, httptest.NewRequest(http.MethodGet, "/admin", nil)))
}

func TestSessionToken_PrefersCookie(t *testing.T) {
	app := fiber.New()
	app.Get("/x", func(c *fiber.Ctx) error {
		return c.SendString(SessionToken(c, "auth-token"))
	})

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Authorization", "Bearer from-header")
	req.AddCookie(&http.Cookie{Name: "auth-token", Value: "from-cookie"})
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "from-cookie", string(body))
}

func TestCustomErrorHandler(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: CustomErrorHandler(zap.NewNop())})
	app.Get("/fiber", func(c *fiber.Ctx) error { return fiber.ErrTeapot })
	app.Get("/plain", func(c *fiber.Ctx) error { return errors.New("boom") })

	assert.Equal(t, fiber.StatusTeapot, status(t, app, httptest.NewRequest(http.MethodGet, "/fiber", nil)))
	assert.Equal(t, fiber.StatusInternalServerError, status(t, app, httptest.NewRequest(http.MethodGet, "/plain", nil)))
	assert.Equal(t, fiber.StatusNotFound, status(t, app, httptest.NewRequest(http.MethodGet, "/missing", nil)))
}
