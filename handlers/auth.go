package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"timesheet_app_go/db"
	"timesheet_app_go/logger"
	"timesheet_app_go/middleware"
	"timesheet_app_go/models"
	"timesheet_app_go/services"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// LoginRequest is the body of POST /api/login
type LoginRequest struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

func (r LoginRequest) validate() services.ValidationErrors {
	v := services.ValidationErrors{}
	if strings.TrimSpace(r.Email) == "" {
		v.Add("email", "The email field is required.")
	} else if !strings.Contains(r.Email, "@") {
		v.Add("email", "The email field must be a valid email address.")
	}
	if r.Password == "" {
		v.Add("password", "The password field is required.")
	}
	return v
}

// LoginResponse carries the bearer token for subsequent requests
type LoginResponse struct {
	Token     string       `json:"token"`
	TokenType string       `json:"token_type"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *models.User `json:"user"`
}

// LoginHandler exchanges an email and password for a bearer token
func LoginHandler(c echo.Context) error {
	var req LoginRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	if v := req.validate(); len(v) > 0 {
		return validationFailed(c, v)
	}

	user, err := services.Authenticate(db.DB, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) || errors.Is(err, services.ErrUserInactive) {
			return echo.NewHTTPError(http.StatusUnauthorized, "Invalid credentials.")
		}
		return handleServiceError(c, err, "log in")
	}

	cfg := getConfig(c)
	ttl := time.Duration(cfg.TokenTTLHours) * time.Hour
	session, err := services.CreateSession(db.DB, user.ID, ttl, c.RealIP(), c.Request().UserAgent())
	if err != nil {
		return handleServiceError(c, err, "create session")
	}

	token, err := services.IssueToken(cfg.SessionSecret, user.ID, session.Token, session.ExpiresAt)
	if err != nil {
		return handleServiceError(c, err, "issue token")
	}

	services.LogAuditEvent(db.DB, services.AuditContext{
		UserID:    user.ID,
		UserName:  user.Name,
		UserRole:  user.Role,
		IPAddress: c.RealIP(),
		UserAgent: c.Request().UserAgent(),
	}, services.AuditEvent{
		Action:       models.AuditActionLogin,
		ResourceType: "User",
		ResourceID:   strconv.FormatUint(uint64(user.ID), 10),
		ResourceName: user.Name,
		Description:  "User logged in",
	})

	return c.JSON(http.StatusOK, LoginResponse{
		Token:     token,
		TokenType: "Bearer",
		ExpiresAt: session.ExpiresAt,
		User:      user,
	})
}

// LogoutHandler revokes the session behind the current token
func LogoutHandler(c echo.Context) error {
	session := middleware.GetCurrentSession(c)
	if session == nil {
		return middleware.ErrUnauthenticated
	}
	if err := services.DeleteSession(db.DB, session.Token); err != nil {
		return handleServiceError(c, err, "log out")
	}

	services.LogAuditEvent(db.DB, middleware.GetAuditContext(c), services.AuditEvent{
		Action:       models.AuditActionLogout,
		ResourceType: "User",
		ResourceID:   strconv.FormatUint(uint64(session.UserID), 10),
		Description:  "User logged out",
	})

	return c.JSON(http.StatusOK, map[string]string{"message": "Logged out successfully."})
}

// CurrentUserHandler returns the authenticated user
func CurrentUserHandler(c echo.Context) error {
	user := middleware.GetCurrentUser(c)
	if user == nil {
		return middleware.ErrUnauthenticated
	}
	return c.JSON(http.StatusOK, user)
}

// APITestHandler is an unauthenticated liveness check
func APITestHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"message": "API funcionando correctamente"})
}

// CheckCredentialsHandler reports whether a login pair would succeed without creating a session.
// It is a development aid and answers 404 in production.
func CheckCredentialsHandler(c echo.Context) error {
	if getConfig(c).Environment == "production" {
		return echo.ErrNotFound
	}

	var req LoginRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	if v := req.validate(); len(v) > 0 {
		return validationFailed(c, v)
	}

	check, err := services.CheckCredentials(db.DB, req.Email, req.Password)
	if err != nil {
		return handleServiceError(c, err, "check credentials")
	}

	logger.Log.Info("Credential check",
		zap.String("ip", c.RealIP()),
		zap.Bool("user_exists", check.UserExists),
		zap.Bool("password_valid", check.PasswordValid),
	)

	if !check.UserExists {
		return c.JSON(http.StatusNotFound, map[string]interface{}{
			"status":  "error",
			"message": "User not found",
			"email":   req.Email,
		})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":         "success",
		"user_exists":    check.UserExists,
		"password_valid": check.PasswordValid,
		"is_active":      check.IsActive,
	})
}
