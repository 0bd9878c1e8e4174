package recipient

import (
	"context"
	"sync"
)

// MemoryDirectory implements Directory in memory for testing and local
// development.
type MemoryDirectory struct {
	mu       sync.RWMutex
	users    map[string]*User
	owners   map[string]string // entityID -> owner userID
	officers map[string]string // entityID -> department officer userID
}

// NewMemoryDirectory creates an empty in-memory directory.
func NewMemoryDirectory() *MemoryDirectory {
	return &MemoryDirectory{
		users:    make(map[string]*User),
		owners:   make(map[string]string),
		officers: make(map[string]string),
	}
}

// AddUser registers or replaces a user.
func (md *MemoryDirectory) AddUser(u User) {
	md.mu.Lock()
	defer md.mu.Unlock()
	userCopy := u
	md.users[u.ID] = &userCopy
}

// SetEntityOwner records the owner of an entity.
func (md *MemoryDirectory) SetEntityOwner(entityID, userID string) {
	md.mu.Lock()
	defer md.mu.Unlock()
	md.owners[entityID] = userID
}

// SetDepartmentOfficer records the officer handling an entity's department.
func (md *MemoryDirectory) SetDepartmentOfficer(entityID, userID string) {
	md.mu.Lock()
	defer md.mu.Unlock()
	md.officers[entityID] = userID
}

// User implements Directory.
func (md *MemoryDirectory) User(ctx context.Context, id string) (*User, error) {
	md.mu.RLock()
	defer md.mu.RUnlock()

	u, ok := md.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	userCopy := *u
	return &userCopy, nil
}

// EntityOwner implements Directory.
func (md *MemoryDirectory) EntityOwner(ctx context.Context, entityID string) (string, error) {
	md.mu.RLock()
	defer md.mu.RUnlock()
	return md.owners[entityID], nil
}

// DepartmentOfficer implements Directory.
func (md *MemoryDirectory) DepartmentOfficer(ctx context.Context, entityID string) (string, error) {
	md.mu.RLock()
	defer md.mu.RUnlock()
	return md.officers[entityID], nil
}

// UsersByRole implements Directory.
func (md *MemoryDirectory) UsersByRole(ctx context.Context, role Role) ([]string, error) {
	md.mu.RLock()
	defer md.mu.RUnlock()

	var ids []string
	for id, u := range md.users {
		switch role {
		case RoleOfficer:
			if u.IsOfficer {
				ids = append(ids, id)
			}
		case RoleAdmin:
			if u.IsAdmin {
				ids = append(ids, id)
			}
		}
	}
	return ids, nil
}
