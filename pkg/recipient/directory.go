package recipient

import (
	"context"
	"errors"
)

// Role is a directory role flag used by rule recipient policies.
type Role string

const (
	RoleOfficer Role = "officer"
	RoleAdmin   Role = "admin"
)

// ErrUserNotFound is returned by directory lookups for unknown users.
var ErrUserNotFound = errors.New("user not found")

// Directory is the boundary to the user/complaint subsystem. The notification
// engine only reads from it.
type Directory interface {
	// User returns the directory entry for a user id.
	User(ctx context.Context, id string) (*User, error)

	// EntityOwner returns the user id owning the triggering entity, e.g.
	// the complaint submitter. Empty string when unknown.
	EntityOwner(ctx context.Context, entityID string) (string, error)

	// DepartmentOfficer returns the officer assigned to the entity's
	// department. Empty string when the entity has no department or the
	// department has no assigned officer.
	DepartmentOfficer(ctx context.Context, entityID string) (string, error)

	// UsersByRole returns ids of all users carrying the role flag.
	UsersByRole(ctx context.Context, role Role) ([]string, error)
}
