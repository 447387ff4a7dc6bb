package domain

import (
	"strings"
	"time"
)

// UserRole distinguishes administrators from sales users.
type UserRole string

const (
	UserRoleAdmin UserRole = "admin"
	UserRoleUser  UserRole = "user"
)

// User is an authenticated CRM operator. Active users with role user form the assignment pool.
type User struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	Role         UserRole
	AvatarURL    string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// FullName falls back to the username when no name is set.
func (u *User) FullName() string {
	if name := joinName(u.FirstName, u.LastName); name != "" {
		return name
	}
	return u.Username
}

// Alias returns the two-letter initials shown next to owned records.
func (u *User) Alias() string {
	if u.FirstName != "" && u.LastName != "" {
		return strings.ToUpper(u.FirstName[:1] + u.LastName[:1])
	}
	if len(u.Username) < 2 {
		return strings.ToUpper(u.Username)
	}
	return strings.ToUpper(u.Username[:2])
}

// IsAdmin reports whether the user has the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == UserRoleAdmin
}

func joinName(first, last string) string {
	return strings.TrimSpace(first + " " + last)
}
