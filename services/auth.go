package services

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"timesheet_app_go/logger"
	"timesheet_app_go/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	// BcryptCost is the cost factor for bcrypt hashing
	BcryptCost = 10
	// SessionTokenLength is the length of the session token in bytes (64 chars hex)
	SessionTokenLength = 32
	// DefaultSessionDuration is the default session duration (7 days)
	DefaultSessionDuration = 7 * 24 * time.Hour
)

// Auth errors
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserInactive       = errors.New("user is inactive")
	ErrSessionNotFound    = errors.New("session not found")
	ErrSessionExpired     = errors.New("session expired")
)

// dummyHash is compared against when the email is unknown so both failure
// paths spend the same bcrypt time
var dummyHash = "$2a$10$X7.G.t8./.t.t.t.t.t.t.t.t.t.t.t.t.t.t.t.t.t.t.t.t"

func init() {
	if hash, err := HashPassword("dummy_password_for_timing_mitigation"); err == nil {
		dummyHash = hash
	}
}

// HashPassword hashes a password using bcrypt
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(bytes), nil
}

// VerifyPassword verifies a password against a bcrypt hash
func VerifyPassword(hashedPassword, password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
	return err == nil
}

// GenerateSessionToken generates a cryptographically secure random token
func GenerateSessionToken() (string, error) {
	bytes := make([]byte, SessionTokenLength)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate session token: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}

// Authenticate checks an email and password pair and stamps the login time
func Authenticate(db *gorm.DB, email, password string) (*models.User, error) {
	var user models.User
	err := db.Where("LOWER(email) = ?", strings.ToLower(strings.TrimSpace(email))).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			VerifyPassword(dummyHash, password)
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !VerifyPassword(user.Password, password) {
		LogSecurityEvent(db, "LOGIN_FAILED", user.ID, "wrong password")
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		LogSecurityEvent(db, "LOGIN_BLOCKED", user.ID, "inactive user")
		return nil, ErrUserInactive
	}

	now := time.Now()
	user.LastLoginAt = &now
	if err := db.Model(&user).Update("last_login_at", now).Error; err != nil {
		return nil, fmt.Errorf("failed to update last login: %w", err)
	}
	return &user, nil
}

// CredentialCheck reports whether an email matches a user and the password matches it
type CredentialCheck struct {
	UserExists    bool `json:"user_exists"`
	PasswordValid bool `json:"password_valid"`
	IsActive      bool `json:"is_active"`
}

// CheckCredentials inspects a login pair without creating a session
func CheckCredentials(db *gorm.DB, email, password string) (*CredentialCheck, error) {
	var user models.User
	err := db.Where("LOWER(email) = ?", strings.ToLower(strings.TrimSpace(email))).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &CredentialCheck{}, nil
	}
	if err != nil {
		return nil, err
	}
	return &CredentialCheck{
		UserExists:    true,
		PasswordValid: VerifyPassword(user.Password, password),
		IsActive:      user.IsActive,
	}, nil
}

// CreateSession creates a new session for a user
func CreateSession(db *gorm.DB, userID uint, ttl time.Duration, ipAddress, userAgent string) (*models.Session, error) {
	token, err := GenerateSessionToken()
	if err != nil {
		return nil, err
	}
	if ttl <= 0 {
		ttl = DefaultSessionDuration
	}

	session := &models.Session{
		ID:        uuid.New().String(),
		UserID:    userID,
		Token:     token,
		ExpiresAt: time.Now().Add(ttl),
		IPAddress: ipAddress,
		UserAgent: userAgent,
	}

	if err := db.Create(session).Error; err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return session, nil
}

// ValidateSession validates a session token and returns the session with its user
func ValidateSession(db *gorm.DB, token string) (*models.Session, error) {
	var session models.Session

	err := db.Preload("User").
		Where("token = ?", token).
		First(&session).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to validate session: %w", err)
	}

	if session.IsExpired() {
		// Delete expired session
		db.Delete(&session)
		return nil, ErrSessionExpired
	}

	return &session, nil
}

// DeleteSession deletes a session (logout)
func DeleteSession(db *gorm.DB, token string) error {
	result := db.Where("token = ?", token).Delete(&models.Session{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete session: %w", result.Error)
	}
	return nil
}

// CleanupExpiredSessions removes all expired sessions from the database
func CleanupExpiredSessions(db *gorm.DB) error {
	result := db.Where("expires_at < ?", time.Now()).Delete(&models.Session{})
	if result.Error != nil {
		return fmt.Errorf("failed to cleanup expired sessions: %w", result.Error)
	}
	if result.RowsAffected > 0 {
		logger.Log.Info("Cleaned up expired sessions", zap.Int64("count", result.RowsAffected))
	}
	return nil
}

// DeleteAllUserSessions deletes all sessions for a specific user
func DeleteAllUserSessions(db *gorm.DB, userID uint) error {
	result := db.Where("user_id = ?", userID).Delete(&models.Session{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete user sessions: %w", result.Error)
	}
	if result.RowsAffected > 0 {
		logger.Log.Info("Deleted user sessions", zap.Uint("user_id", userID), zap.Int64("count", result.RowsAffected))
	}
	return nil
}

// LogSecurityEvent logs security-related events and persists them to the audit log
func LogSecurityEvent(db *gorm.DB, eventType string, userID uint, details string) {
	logger.Log.Warn("security event",
		zap.String("event", eventType),
		zap.Uint("user_id", userID),
		zap.String("details", details),
	)
	LogAuditEvent(db, AuditContext{UserID: userID, UserName: "system", UserRole: "system"}, AuditEvent{
		Action:       models.AuditActionLogin,
		ResourceType: "SecurityEvent",
		ResourceID:   eventType,
		Description:  details,
	})
}
