package auth

import (
	"errors"
	"regexp"
	"time"
)

// usernamePattern defines the valid format for usernames:
// alphanumeric, dots, hyphens, underscores, 1-50 characters.
var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9._-]{1,50}$`)

// maxUsernameLength is the maximum allowed username length.
const maxUsernameLength = 50

// IsValidUsername checks if a username meets format requirements.
// Usernames must be 1-50 characters, alphanumeric with dots, hyphens, underscores.
func IsValidUsername(username string) bool {
	return len(username) <= maxUsernameLength && usernamePattern.MatchString(username)
}

// Role represents an authorisation tier in the system.
// Role names are stored and serialised in upper case to preserve the
// wire format expected by existing clients.
type Role string

const (
	// RoleAdmin has every permission in the catalog, including user management.
	RoleAdmin Role = "ADMIN"

	// RoleManager has full inventory control but no user management.
	RoleManager Role = "MANAGER"

	// RoleUser has full CRUD on inventory resources (items, categories,
	// tags, folders) plus read access everywhere.
	RoleUser Role = "USER"

	// RoleViewer has read-only access to every resource.
	RoleViewer Role = "VIEWER"
)

// ValidRoles is the closed set of user roles.
var ValidRoles = []Role{RoleAdmin, RoleManager, RoleUser, RoleViewer}

// IsValidRole returns true if the role is one of the closed role set.
func IsValidRole(r Role) bool {
	for _, v := range ValidRoles {
		if r == v {
			return true
		}
	}
	return false
}

// User represents an account in the system.
//
// Users are never hard-deleted by the auth flow: the IsActive flag
// disables login while preserving history. JSON field names follow the
// public API contract (camelCase).
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // never serialised
	Role         Role      `json:"role"`
	IsActive     bool      `json:"isActive"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// RefreshToken represents a stored refresh token for session management.
//
// Only the SHA-256 hash of the raw token is persisted. LastUsedAt is nil
// until the token is first presented for refresh.
type RefreshToken struct {
	ID         string     `json:"id"`
	UserID     string     `json:"userId"`
	TokenHash  string     `json:"-"` // never serialised
	DeviceInfo string     `json:"deviceInfo,omitempty"`
	ExpiresAt  time.Time  `json:"expiresAt"`
	Revoked    bool       `json:"revoked"`
	LastUsedAt *time.Time `json:"lastUsedAt,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
}

// Principal is the verified identity extracted from a validated access
// token and attached to a request context.
type Principal struct {
	UserID   string
	Username string
	Role     Role
}

// Sentinel errors for auth operations.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
	ErrUserInactive       = errors.New("user account is inactive")
	ErrUserExists         = errors.New("username or email already exists")
	ErrTokenInvalid       = errors.New("invalid or expired refresh token")
	ErrForbidden          = errors.New("insufficient permissions")
)
