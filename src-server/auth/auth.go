// Package auth signs users in and lets super admins act as another user.
//
// Sign-in is a mock: any email without a registered password is accepted
// and given a demo identity picked from the email address.
package auth

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"evhub/src-server/admin"
	"evhub/src-server/apperr"
	"evhub/src-server/jwt"

	"golang.org/x/crypto/bcrypt"
)

// Directory is where registered users live.
type Directory interface {
	UserByEmail(email string) (admin.User, bool)
	User(id string) (admin.User, error)
	CreateUser(u admin.User, tenantID string) (admin.User, error)
}

// Session is who is signed in. Original is the super admin behind an
// impersonated session.
type Session struct {
	User     admin.User  `json:"user"`
	Original *admin.User `json:"originalUser,omitempty"`
}

func (s Session) Impersonating() bool {
	return s.Original != nil
}

type Service struct {
	directory Directory
	secret    string
	expire    time.Duration
	now       func() time.Time

	mu         sync.RWMutex
	passwords  map[string][]byte // user id -> bcrypt hash
	twoFactor  map[string]*twoFactor
	bcryptCost int
}

func NewService(directory Directory, secret string, expire time.Duration) *Service {
	return &Service{
		directory:  directory,
		secret:     secret,
		expire:     expire,
		now:        time.Now,
		passwords:  make(map[string][]byte),
		twoFactor:  make(map[string]*twoFactor),
		bcryptCost: bcrypt.DefaultCost,
	}
}

// demoUser picks the demo identity for an email without an account.
func demoUser(email string) admin.User {
	switch {
	case strings.Contains(email, "organizer"):
		return admin.User{ID: "2", Email: email, Name: "Organizer User", Role: admin.RoleOrganizer}
	case strings.Contains(email, "admin"):
		return admin.User{ID: "1", Email: email, Name: "Admin User", Role: admin.RoleAdmin}
	}
	return admin.User{ID: "3", Email: email, Name: "Attendee User", Role: admin.RoleAttendee}
}

func (s *Service) Login(email, password string) (Session, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return Session{}, apperr.Validation("Email is required")
	}

	u, ok := s.directory.UserByEmail(email)
	if !ok {
		return Session{User: demoUser(email)}, nil
	}
	s.mu.RLock()
	hash, hasPassword := s.passwords[u.ID]
	s.mu.RUnlock()
	if hasPassword && bcrypt.CompareHashAndPassword(hash, []byte(password)) != nil {
		return Session{}, apperr.Permission("Invalid email or password")
	}
	return Session{User: u}, nil
}

// Register creates an organizer or attendee account. Admins are only
// created through the admin directory.
func (s *Service) Register(name, email, password string, role admin.Role) (Session, error) {
	if role == admin.RoleAdmin {
		return Session{}, apperr.Validation("Can't register as an admin")
	}
	if problems := ValidatePassword(password); len(problems) > 0 {
		return Session{}, apperr.Validation("%s", strings.Join(problems, "; "))
	}
	if _, exists := s.directory.UserByEmail(email); exists {
		return Session{}, apperr.Validation("An account with this email already exists")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return Session{}, fmt.Errorf("(*Service).Register: %w", err)
	}
	u, err := s.directory.CreateUser(admin.User{Name: name, Email: email, Role: role}, "")
	if err != nil {
		return Session{}, fmt.Errorf("(*Service).Register: %w", err)
	}

	s.mu.Lock()
	s.passwords[u.ID] = hash
	s.mu.Unlock()
	slog.Info("account registered", "user_id", u.ID, "role", u.Role)
	return Session{User: u}, nil
}

// Impersonate switches current to targetID. Only super admins may do it and
// never to themselves. Impersonating again from an impersonated session
// keeps the first original user.
func (s *Service) Impersonate(current *Session, targetID string) (Session, error) {
	if current == nil {
		return Session{}, apperr.Permission("No user logged in")
	}
	actor := current.User
	if current.Original != nil {
		actor = *current.Original
	}
	if !actor.IsSuperAdmin {
		return Session{}, apperr.Permission("Insufficient permissions")
	}
	if targetID == current.User.ID || targetID == actor.ID {
		return Session{}, apperr.Validation("Cannot impersonate yourself")
	}
	target, err := s.directory.User(targetID)
	if err != nil {
		return Session{}, fmt.Errorf("(*Service).Impersonate: %w", err)
	}

	slog.Warn("impersonation started", "actor_id", actor.ID, "target_id", target.ID)
	return Session{User: target, Original: &actor}, nil
}

// StopImpersonation returns to the original user. ok is false when the
// session wasn't impersonating anyone.
func (s *Service) StopImpersonation(current Session) (Session, bool) {
	if current.Original == nil {
		return current, false
	}
	return Session{User: *current.Original}, true
}

// Issue signs a session into a token valid for the configured duration.
func (s *Service) Issue(session Session) (string, error) {
	now := s.now()
	payload := toPayload(session.User)
	payload.IssuedAt = now.Unix()
	payload.ExpiresAt = now.Add(s.expire).Unix()
	if session.Original != nil {
		original := toPayload(*session.Original)
		payload.Original = &original
	}
	token, err := jwt.Encode(payload, s.secret)
	if err != nil {
		return "", fmt.Errorf("(*Service).Issue: %w", err)
	}
	return token, nil
}

// Parse turns a token back into its session. Bad or expired tokens are
// permission errors.
func (s *Service) Parse(token string) (Session, error) {
	payload, err := jwt.Decode(token, s.secret, s.now())
	if err != nil {
		slog.Debug("rejected session token", "error", err)
		return Session{}, apperr.Permission("Session expired, please sign in again")
	}
	session := Session{User: fromPayload(*payload)}
	if payload.Original != nil {
		original := fromPayload(*payload.Original)
		session.Original = &original
	}
	return session, nil
}

func toPayload(u admin.User) jwt.Payload {
	return jwt.Payload{
		UserID:     u.ID,
		UserName:   u.Name,
		Email:      u.Email,
		Role:       string(u.Role),
		TenantID:   u.TenantID,
		SuperAdmin: u.IsSuperAdmin,
	}
}

func fromPayload(p jwt.Payload) admin.User {
	return admin.User{
		ID:           p.UserID,
		Name:         p.UserName,
		Email:        p.Email,
		Role:         admin.Role(p.Role),
		TenantID:     p.TenantID,
		IsSuperAdmin: p.SuperAdmin,
	}
}
