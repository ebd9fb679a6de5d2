package service

import (
	"strings"

	"github.com/google/uuid"
	"todolist/internal/apperrors"
	"todolist/internal/models"
)

const (
	maxNameLength     = 500
	maxUsernameLength = 64
	// bcrypt ignores input past 72 bytes.
	maxPasswordLength = 72
)

// ValidateID reports whether s is a well-formed identifier.
func ValidateID(s, field string) error {
	if s == "" {
		return apperrors.Validation("%s is required", field)
	}
	if _, err := uuid.Parse(s); err != nil {
		return apperrors.Validation("invalid %s", field)
	}
	return nil
}

// NormalizeName trims name and rejects empty or oversized values.
func NormalizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", apperrors.Validation("name must not be empty")
	}
	if len([]rune(name)) > maxNameLength {
		return "", apperrors.Validation("name must be at most %d characters", maxNameLength)
	}
	return name, nil
}

// ParseStatus rejects values outside the four lifecycle states.
func ParseStatus(s string) (models.Status, error) {
	st := models.Status(s)
	if !st.Valid() {
		return "", apperrors.Validation("invalid status %q", s)
	}
	return st, nil
}

func validateCredentials(username, password string) (string, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return "", apperrors.Validation("username and password are required")
	}
	if len(username) > maxUsernameLength {
		return "", apperrors.Validation("username must be at most %d characters", maxUsernameLength)
	}
	if len(password) > maxPasswordLength {
		return "", apperrors.Validation("password must be at most %d bytes", maxPasswordLength)
	}
	return username, nil
}
