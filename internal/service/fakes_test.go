package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"doctrack/api/internal/models"
	"doctrack/api/internal/repository"
)

// In-memory stand-ins for the pgx repositories.

type memUserStore struct {
	mu    sync.Mutex
	users map[string]models.User
}

func newMemUserStore() *memUserStore {
	return &memUserStore{users: make(map[string]models.User)}
}

func (m *memUserStore) FindByEmail(_ context.Context, email string) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return models.User{}, repository.ErrUserNotFound
}

func (m *memUserStore) GetByID(_ context.Context, id string) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return models.User{}, repository.ErrUserNotFound
	}
	return u, nil
}

func (m *memUserStore) EmailExists(_ context.Context, email string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			return true, nil
		}
	}
	return false, nil
}

func (m *memUserStore) Create(_ context.Context, user models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[user.ID] = user
	return nil
}

func (m *memUserStore) UpdatePasswordHash(_ context.Context, id string, hash []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.PasswordHash = hash
	m.users[id] = u
	return nil
}

type memSessionStore struct {
	mu       sync.Mutex
	sessions map[string]models.UserSession
}

func newMemSessionStore() *memSessionStore {
	return &memSessionStore{sessions: make(map[string]models.UserSession)}
}

func (m *memSessionStore) CreateExclusive(_ context.Context, session models.UserSession) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	invalidated := 0
	for id, s := range m.sessions {
		if s.UserID == session.UserID && s.IsActive {
			s.IsActive = false
			m.sessions[id] = s
			invalidated++
		}
	}
	m.sessions[session.ID] = session
	return invalidated, nil
}

func (m *memSessionStore) GetByID(_ context.Context, id string) (models.UserSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return models.UserSession{}, repository.ErrSessionNotFound
	}
	return s, nil
}

func (m *memSessionStore) FindActiveByTokenID(_ context.Context, tokenID string) (models.UserSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sessions {
		if s.TokenID == tokenID && s.IsActive {
			return s, nil
		}
	}
	return models.UserSession{}, repository.ErrSessionNotFound
}

func (m *memSessionStore) FindActiveByRefreshID(_ context.Context, userID string, refreshTokenID string) (models.UserSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sessions {
		if s.UserID == userID && s.RefreshTokenID == refreshTokenID && s.IsActive {
			return s, nil
		}
	}
	return models.UserSession{}, repository.ErrSessionNotFound
}

func (m *memSessionStore) ListByUser(_ context.Context, userID string) ([]models.UserSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.UserSession
	for _, s := range m.sessions {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *memSessionStore) Deactivate(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return repository.ErrSessionNotFound
	}
	s.IsActive = false
	m.sessions[id] = s
	return nil
}

func (m *memSessionStore) DeactivateAllExcept(_ context.Context, userID string, keepSessionID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, s := range m.sessions {
		if s.UserID == userID && s.IsActive && id != keepSessionID {
			s.IsActive = false
			m.sessions[id] = s
			n++
		}
	}
	return n, nil
}

func (m *memSessionStore) Touch(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return repository.ErrSessionNotFound
	}
	s.LastActivityAt = time.Now()
	m.sessions[id] = s
	return nil
}

func (m *memSessionStore) DeactivateExpired(_ context.Context, now time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, s := range m.sessions {
		if s.IsActive && now.After(s.ExpiresAt) {
			s.IsActive = false
			m.sessions[id] = s
			n++
		}
	}
	return n, nil
}

func (m *memSessionStore) DeleteOlderThan(_ context.Context, cutoff time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, s := range m.sessions {
		if !s.IsActive && s.CreatedAt.Before(cutoff) {
			delete(m.sessions, id)
			n++
		}
	}
	return n, nil
}

func (m *memSessionStore) activeSessionsFor(userID string) []models.UserSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.UserSession
	for _, s := range m.sessions {
		if s.UserID == userID && s.IsActive {
			out = append(out, s)
		}
	}
	return out
}

type memRoleStore struct {
	mu    sync.Mutex
	roles map[string]models.Role
	edges map[string]map[string]struct{} // roleID -> permissionID set
	users *memUserStore
	perms *memPermissionStore

	replaceErr error
}

func newMemRoleStore(users *memUserStore, perms *memPermissionStore) *memRoleStore {
	return &memRoleStore{
		roles: make(map[string]models.Role),
		edges: make(map[string]map[string]struct{}),
		users: users,
		perms: perms,
	}
}

func (m *memRoleStore) GetByID(_ context.Context, id string) (models.Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.roles[id]
	if !ok {
		return models.Role{}, repository.ErrRoleNotFound
	}
	return r, nil
}

func (m *memRoleStore) FindByName(_ context.Context, name string) (models.Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.roles {
		if strings.EqualFold(r.Name, name) {
			return r, nil
		}
	}
	return models.Role{}, repository.ErrRoleNotFound
}

func (m *memRoleStore) List(_ context.Context) ([]models.Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Role
	for _, r := range m.roles {
		out = append(out, r)
	}
	return out, nil
}

func (m *memRoleStore) Create(_ context.Context, role models.Role) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.roles[role.ID] = role
	return nil
}

func (m *memRoleStore) Update(_ context.Context, role models.Role) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.roles[role.ID]; !ok {
		return repository.ErrRoleNotFound
	}
	m.roles[role.ID] = role
	return nil
}

func (m *memRoleStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.roles[id]; !ok {
		return repository.ErrRoleNotFound
	}
	delete(m.roles, id)
	delete(m.edges, id)
	return nil
}

func (m *memRoleStore) ClearRoleFromInactiveUsers(_ context.Context, roleID string) (int, error) {
	m.users.mu.Lock()
	defer m.users.mu.Unlock()
	n := 0
	for id, u := range m.users.users {
		if u.RoleID != nil && *u.RoleID == roleID && !u.IsActive {
			u.RoleID = nil
			m.users.users[id] = u
			n++
		}
	}
	return n, nil
}

func (m *memRoleStore) ListPermissions(_ context.Context, roleID string) ([]models.Permission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Permission
	for pid := range m.edges[roleID] {
		if p, ok := m.perms.byID(pid); ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memRoleStore) ReplacePermissions(_ context.Context, roleID string, permissionIDs []string, _ *string) error {
	if m.replaceErr != nil {
		return m.replaceErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	set := make(map[string]struct{}, len(permissionIDs))
	for _, pid := range permissionIDs {
		set[pid] = struct{}{}
	}
	m.edges[roleID] = set
	return nil
}

func (m *memRoleStore) AssignPermission(_ context.Context, roleID string, permissionID string, _ *string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.edges[roleID] == nil {
		m.edges[roleID] = make(map[string]struct{})
	}
	if _, ok := m.edges[roleID][permissionID]; ok {
		return false, nil
	}
	m.edges[roleID][permissionID] = struct{}{}
	return true, nil
}

func (m *memRoleStore) RemovePermission(_ context.Context, roleID string, permissionID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.edges[roleID][permissionID]; !ok {
		return false, nil
	}
	delete(m.edges[roleID], permissionID)
	return true, nil
}

func (m *memRoleStore) edgeIDs(roleID string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for pid := range m.edges[roleID] {
		out = append(out, pid)
	}
	return out
}

type memPermissionStore struct {
	mu    sync.Mutex
	perms map[string]models.Permission
	roles *memRoleStore
}

func newMemPermissionStore() *memPermissionStore {
	return &memPermissionStore{perms: make(map[string]models.Permission)}
}

func (m *memPermissionStore) byID(id string) (models.Permission, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.perms[id]
	return p, ok
}

func (m *memPermissionStore) GetByID(_ context.Context, id string) (models.Permission, error) {
	p, ok := m.byID(id)
	if !ok {
		return models.Permission{}, repository.ErrPermissionNotFound
	}
	return p, nil
}

func (m *memPermissionStore) FindByCode(_ context.Context, code string) (models.Permission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.perms {
		if p.Code == code {
			return p, nil
		}
	}
	return models.Permission{}, repository.ErrPermissionNotFound
}

func (m *memPermissionStore) List(_ context.Context) ([]models.Permission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Permission
	for _, p := range m.perms {
		out = append(out, p)
	}
	return out, nil
}

func (m *memPermissionStore) Create(_ context.Context, perm models.Permission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.perms[perm.ID] = perm
	return nil
}

func (m *memPermissionStore) Update(_ context.Context, perm models.Permission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.perms[perm.ID]; !ok {
		return repository.ErrPermissionNotFound
	}
	m.perms[perm.ID] = perm
	return nil
}

func (m *memPermissionStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.perms[id]; !ok {
		return repository.ErrPermissionNotFound
	}
	delete(m.perms, id)
	return nil
}

func (m *memPermissionStore) CountReferencingRoles(_ context.Context, id string) (int, error) {
	if m.roles == nil {
		return 0, nil
	}
	m.roles.mu.Lock()
	defer m.roles.mu.Unlock()
	n := 0
	for _, edges := range m.roles.edges {
		if _, ok := edges[id]; ok {
			n++
		}
	}
	return n, nil
}

func (m *memPermissionStore) CountByIDs(_ context.Context, permIDs []string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, id := range permIDs {
		if _, ok := m.perms[id]; ok {
			n++
		}
	}
	return n, nil
}

type memAttemptStore struct {
	mu       sync.Mutex
	attempts []models.LoginAttempt

	insertErr error
}

func newMemAttemptStore() *memAttemptStore { return &memAttemptStore{} }

func (m *memAttemptStore) Insert(_ context.Context, attempt models.LoginAttempt) error {
	if m.insertErr != nil {
		return m.insertErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attempts = append(m.attempts, attempt)
	return nil
}

func (m *memAttemptStore) RecentFailures(_ context.Context, email string, since time.Time, limit int) ([]time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var times []time.Time
	for _, a := range m.attempts {
		if a.Email == email && !a.Succeeded && !a.AttemptedAt.Before(since) {
			times = append(times, a.AttemptedAt)
		}
	}
	sort.Slice(times, func(i, j int) bool { return times[i].After(times[j]) })
	if len(times) > limit {
		times = times[:limit]
	}
	return times, nil
}

func (m *memAttemptStore) DeleteOlderThan(_ context.Context, cutoff time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.attempts[:0]
	n := 0
	for _, a := range m.attempts {
		if a.AttemptedAt.Before(cutoff) {
			n++
			continue
		}
		kept = append(kept, a)
	}
	m.attempts = kept
	return n, nil
}

func (m *memAttemptStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.attempts)
}

type memDirectory struct {
	mu          sync.Mutex
	areas       map[string]bool // id -> active
	activeUsers map[string]int  // roleID -> count
}

func newMemDirectory() *memDirectory {
	return &memDirectory{areas: make(map[string]bool), activeUsers: make(map[string]int)}
}

func (m *memDirectory) AreaActive(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	active, ok := m.areas[id]
	if !ok {
		return false, repository.ErrAreaNotFound
	}
	return active, nil
}

func (m *memDirectory) ActiveUserCountForRole(_ context.Context, roleID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.activeUsers[roleID], nil
}

type memNotifier struct {
	mu     sync.Mutex
	events []string // "userID:reason"
}

func (m *memNotifier) SessionInvalidated(userID string, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, userID+":"+reason)
}

func (m *memNotifier) eventCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.events)
}
