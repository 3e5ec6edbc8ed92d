package domain

import (
	"fmt"
	"time"
)

const (
	RolePortalAdmin = "portal_admin"
	RoleClientAdmin = "client_admin"
	RoleUser        = "user"
)

// ValidRole reports whether role is one of the three portal roles.
func ValidRole(role string) bool {
	switch role {
	case RolePortalAdmin, RoleClientAdmin, RoleUser:
		return true
	}
	return false
}

// User models an authenticated actor in the system.
type User struct {
	ID           string    `json:"id" bson:"_id"`
	Username     string    `json:"username" bson:"username"`
	Email        string    `json:"email,omitempty" bson:"email,omitempty"`
	PasswordHash string    `json:"-" bson:"password_hash"`
	Role         string    `json:"role" bson:"role"`
	ClientID     string    `json:"client_id,omitempty" bson:"client_id,omitempty"`
	CreatedAt    time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" bson:"updated_at"`
}

// IsPortalAdmin reports whether the user sits at the top of the role hierarchy.
func (u *User) IsPortalAdmin() bool { return u != nil && u.Role == RolePortalAdmin }

// ValidateTenancy checks the role/client binding: portal admins belong to no
// client, every other role belongs to exactly one.
func ValidateTenancy(role, clientID string) error {
	if !ValidRole(role) {
		return fmt.Errorf("%w: unknown role %q", ErrInvalidInput, role)
	}
	if role == RolePortalAdmin && clientID != "" {
		return fmt.Errorf("%w: portal_admin cannot belong to a client", ErrInvalidInput)
	}
	if role != RolePortalAdmin && clientID == "" {
		return fmt.Errorf("%w: role %s requires client_id", ErrInvalidInput, role)
	}
	return nil
}
