package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"timesheet_app_go/models"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditContext(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/projects", nil)
	req.Header.Set("User-Agent", "audit-test")
	req.Header.Set(echo.HeaderXRealIP, "10.1.2.3")
	c := e.NewContext(req, httptest.NewRecorder())
	c.Set(ContextKeyUser, &models.User{ID: 9, Name: "Ana", Role: models.RoleManager})

	handler := AuditContext()(func(c echo.Context) error {
		ctx := GetAuditContext(c)
		assert.Equal(t, uint(9), ctx.UserID)
		assert.Equal(t, "Ana", ctx.UserName)
		assert.Equal(t, models.RoleManager, ctx.UserRole)
		assert.Equal(t, "10.1.2.3", ctx.IPAddress)
		assert.Equal(t, "audit-test", ctx.UserAgent)
		return nil
	})
	require.NoError(t, handler(c))
}

func TestGetAuditContext_WithoutMiddleware(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("User-Agent", "bare")
	c := e.NewContext(req, httptest.NewRecorder())

	ctx := GetAuditContext(c)
	assert.Zero(t, ctx.UserID)
	assert.Equal(t, "bare", ctx.UserAgent)
}
