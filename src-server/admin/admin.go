// Package admin manages tenants, their users, API keys and the platform's
// own health and activity metrics.
package admin

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"evhub/src-server/apperr"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type Tenant struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Domain    string    `json:"domain,omitempty"`
	Plan      string    `json:"plan,omitempty"`
	Status    string    `json:"status,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type TenantPatch struct {
	Name   *string `json:"name,omitempty"`
	Domain *string `json:"domain,omitempty"`
	Plan   *string `json:"plan,omitempty"`
	Status *string `json:"status,omitempty"`
}

type Role string

const (
	RoleAdmin     Role = "admin"
	RoleOrganizer Role = "organizer"
	RoleAttendee  Role = "attendee"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleOrganizer, RoleAttendee:
		return true
	}
	return false
}

type User struct {
	ID           string    `json:"id"`
	TenantID     string    `json:"tenantId,omitempty"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Role         Role      `json:"role"`
	IsSuperAdmin bool      `json:"isSuperAdmin"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type UserPatch struct {
	Name         *string `json:"name,omitempty"`
	Email        *string `json:"email,omitempty"`
	Role         *Role   `json:"role,omitempty"`
	IsSuperAdmin *bool   `json:"isSuperAdmin,omitempty"`
}

// Service keeps the admin data in memory. All methods are safe for
// concurrent use.
type Service struct {
	mu      sync.RWMutex
	tenants map[string]Tenant
	users   map[string]User
	keys    map[string]APIKey
	samples []Sample

	// ping checks the primary store, may be nil
	ping       func(ctx context.Context) error
	startedAt  time.Time
	now        func() time.Time
	newID      func() string
	bcryptCost int
}

type Option func(*Service)

// WithPing sets the store health check reported by Health.
func WithPing(ping func(ctx context.Context) error) Option {
	return func(s *Service) { s.ping = ping }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(opts ...Option) *Service {
	s := &Service{
		tenants:    make(map[string]Tenant),
		users:      make(map[string]User),
		keys:       make(map[string]APIKey),
		now:        time.Now,
		newID:      uuid.NewString,
		bcryptCost: bcrypt.DefaultCost,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.startedAt = s.now()
	return s
}

// Tenants lists every tenant, oldest first.
func (s *Service) Tenants() []Tenant {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]Tenant, 0, len(s.tenants))
	for _, t := range s.tenants {
		result = append(result, t)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result
}

func (s *Service) CreateTenant(t Tenant) (Tenant, error) {
	if strings.TrimSpace(t.Name) == "" {
		return Tenant{}, apperr.Validation("Tenant name is required")
	}
	if t.Status == "" {
		t.Status = "active"
	}
	now := s.now().UTC()
	t.ID = s.newID()
	t.CreatedAt = now
	t.UpdatedAt = now

	s.mu.Lock()
	defer s.mu.Unlock()
	s.tenants[t.ID] = t
	slog.Info("tenant created", "tenant_id", t.ID, "name", t.Name)
	return t, nil
}

func (s *Service) UpdateTenant(id string, patch TenantPatch) (Tenant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tenants[id]
	if !ok {
		return Tenant{}, apperr.NotFound("Tenant not found")
	}
	if patch.Name != nil {
		if strings.TrimSpace(*patch.Name) == "" {
			return Tenant{}, apperr.Validation("Tenant name is required")
		}
		t.Name = *patch.Name
	}
	if patch.Domain != nil {
		t.Domain = *patch.Domain
	}
	if patch.Plan != nil {
		t.Plan = *patch.Plan
	}
	if patch.Status != nil {
		t.Status = *patch.Status
	}
	t.UpdatedAt = s.now().UTC()
	s.tenants[id] = t
	return t, nil
}

// DeleteTenant removes a tenant; unknown ids are ignored.
func (s *Service) DeleteTenant(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tenants, id)
}

// Users lists users, oldest first. A non-empty tenantID keeps only that
// tenant's users.
func (s *Service) Users(tenantID string) []User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]User, 0)
	for _, u := range s.users {
		if tenantID == "" || u.TenantID == tenantID {
			result = append(result, u)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result
}

func (s *Service) User(id string) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return User{}, apperr.NotFound("User not found")
	}
	return u, nil
}

// CreateUser adds a user to tenantID, which may be empty for platform
// staff.
func (s *Service) CreateUser(u User, tenantID string) (User, error) {
	switch {
	case strings.TrimSpace(u.Name) == "":
		return User{}, apperr.Validation("User name is required")
	case !strings.Contains(u.Email, "@"):
		return User{}, apperr.Validation("A valid email is required")
	case u.Role == "":
		u.Role = RoleAttendee
	case !u.Role.Valid():
		return User{}, apperr.Validation("Invalid role %q", u.Role)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if tenantID != "" {
		if _, ok := s.tenants[tenantID]; !ok {
			return User{}, apperr.NotFound("Tenant not found")
		}
	}
	now := s.now().UTC()
	u.ID = s.newID()
	u.TenantID = tenantID
	u.CreatedAt = now
	u.UpdatedAt = now
	s.users[u.ID] = u
	return u, nil
}

func (s *Service) UpdateUser(id string, patch UserPatch) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return User{}, apperr.NotFound("User not found")
	}
	if patch.Name != nil {
		u.Name = *patch.Name
	}
	if patch.Email != nil {
		if !strings.Contains(*patch.Email, "@") {
			return User{}, apperr.Validation("A valid email is required")
		}
		u.Email = *patch.Email
	}
	if patch.Role != nil {
		if !patch.Role.Valid() {
			return User{}, apperr.Validation("Invalid role %q", *patch.Role)
		}
		u.Role = *patch.Role
	}
	if patch.IsSuperAdmin != nil {
		u.IsSuperAdmin = *patch.IsSuperAdmin
	}
	u.UpdatedAt = s.now().UTC()
	s.users[id] = u
	return u, nil
}

// DeleteUser removes a user; unknown ids are ignored.
func (s *Service) DeleteUser(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.users, id)
}

// UserByEmail finds a user by email, ignoring case.
func (s *Service) UserByEmail(email string) (User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return u, true
		}
	}
	return User{}, false
}
