package middleware

import (
	"errors"
	"net/http"
	"strings"

	"timesheet_app_go/db"
	"timesheet_app_go/models"
	"timesheet_app_go/services"

	"github.com/labstack/echo/v4"
)

const (
	// ContextKeyUser is the context key for the authenticated user
	ContextKeyUser = "user"
	// ContextKeySession is the context key for the session
	ContextKeySession = "session"
	// ContextKeyToken is the context key for the raw bearer token
	ContextKeyToken = "token"
)

// ErrUnauthenticated is the 401 returned to requests without a valid bearer token
var ErrUnauthenticated = echo.NewHTTPError(http.StatusUnauthorized, "Unauthenticated.")

// BearerToken extracts the token from an "Authorization: Bearer <token>" header
func BearerToken(c echo.Context) string {
	auth := c.Request().Header.Get(echo.HeaderAuthorization)
	parts := strings.Fields(auth)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return parts[1]
}

// RequireAuth is middleware that requires a valid bearer token backed by a live session
func RequireAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := BearerToken(c)
			if raw == "" {
				return ErrUnauthenticated
			}

			claims, err := services.ParseToken(secret, raw)
			if err != nil {
				return ErrUnauthenticated
			}
			userID, err := claims.UserID()
			if err != nil {
				return ErrUnauthenticated
			}

			// The session backs the token; a deleted session revokes it
			session, err := services.ValidateSession(db.DB, claims.ID)
			if err != nil {
				if errors.Is(err, services.ErrSessionNotFound) || errors.Is(err, services.ErrSessionExpired) {
					return ErrUnauthenticated
				}
				return err
			}
			if session.UserID != userID || !session.User.IsActive {
				return ErrUnauthenticated
			}

			c.Set(ContextKeyUser, &session.User)
			c.Set(ContextKeySession, session)
			c.Set(ContextKeyToken, raw)

			return next(c)
		}
	}
}

// RequireRole is middleware that requires specific roles
func RequireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user := GetCurrentUser(c)
			if user == nil {
				return ErrUnauthenticated
			}

			for _, role := range roles {
				if user.Role == role {
					return next(c)
				}
			}
			return echo.NewHTTPError(http.StatusForbidden, "Insufficient permissions")
		}
	}
}

// GetCurrentUser retrieves the current user from context
func GetCurrentUser(c echo.Context) *models.User {
	user, ok := c.Get(ContextKeyUser).(*models.User)
	if !ok {
		return nil
	}
	return user
}

// GetCurrentSession retrieves the session backing the current token
func GetCurrentSession(c echo.Context) *models.Session {
	session, ok := c.Get(ContextKeySession).(*models.Session)
	if !ok {
		return nil
	}
	return session
}

// CanManageOthers reports whether the current user may act on other users' time
func CanManageOthers(c echo.Context) bool {
	user := GetCurrentUser(c)
	return user != nil && (user.Role == models.RoleAdmin || user.Role == models.RoleManager)
}
