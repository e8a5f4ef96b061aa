// Package support tracks tenant support tickets and live chat sessions.
package support

import (
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"evhub/src-server/apperr"

	"github.com/google/uuid"
)

type Status string

const (
	StatusOpen       Status = "open"
	StatusInProgress Status = "in-progress"
	StatusResolved   Status = "resolved"
	StatusClosed     Status = "closed"
)

func (s Status) Valid() bool {
	switch s {
	case StatusOpen, StatusInProgress, StatusResolved, StatusClosed:
		return true
	}
	return false
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

type Ticket struct {
	ID          string    `json:"id"`
	TenantID    string    `json:"tenantId"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Status      Status    `json:"status"`
	Priority    Priority  `json:"priority"`
	AssignedTo  string    `json:"assignedTo,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type TicketPatch struct {
	Title       *string   `json:"title,omitempty"`
	Description *string   `json:"description,omitempty"`
	Status      *Status   `json:"status,omitempty"`
	Priority    *Priority `json:"priority,omitempty"`
	AssignedTo  *string   `json:"assignedTo,omitempty"`
}

type Chat struct {
	ID        string    `json:"chatId"`
	UserID    string    `json:"userId"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

type Service struct {
	mu      sync.RWMutex
	tickets map[string]Ticket
	chats   map[string]Chat
	now     func() time.Time
	newID   func() string
}

func NewService() *Service {
	return &Service{
		tickets: make(map[string]Ticket),
		chats:   make(map[string]Chat),
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

// CreateTicket opens a ticket. Whatever status the caller sent, a new
// ticket is open; a blank priority means medium.
func (s *Service) CreateTicket(t Ticket) (Ticket, error) {
	switch {
	case strings.TrimSpace(t.TenantID) == "":
		return Ticket{}, apperr.Validation("Ticket must belong to a tenant")
	case strings.TrimSpace(t.Title) == "":
		return Ticket{}, apperr.Validation("Ticket title is required")
	case t.Priority == "":
		t.Priority = PriorityMedium
	case !t.Priority.Valid():
		return Ticket{}, apperr.Validation("Invalid priority %q", t.Priority)
	}
	now := s.now().UTC()
	t.ID = s.newID()
	t.Status = StatusOpen
	t.CreatedAt = now
	t.UpdatedAt = now

	s.mu.Lock()
	defer s.mu.Unlock()
	s.tickets[t.ID] = t
	slog.Info("support ticket opened", "ticket_id", t.ID, "tenant_id", t.TenantID, "priority", t.Priority)
	return t, nil
}

func (s *Service) Ticket(id string) (Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tickets[id]
	if !ok {
		return Ticket{}, apperr.NotFound("Ticket not found")
	}
	return t, nil
}

func (s *Service) UpdateTicket(id string, patch TicketPatch) (Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tickets[id]
	if !ok {
		return Ticket{}, apperr.NotFound("Ticket not found")
	}
	if patch.Status != nil && !patch.Status.Valid() {
		return Ticket{}, apperr.Validation("Invalid status %q", *patch.Status)
	}
	if patch.Priority != nil && !patch.Priority.Valid() {
		return Ticket{}, apperr.Validation("Invalid priority %q", *patch.Priority)
	}
	if patch.Title != nil {
		t.Title = *patch.Title
	}
	if patch.Description != nil {
		t.Description = *patch.Description
	}
	if patch.Status != nil {
		t.Status = *patch.Status
	}
	if patch.Priority != nil {
		t.Priority = *patch.Priority
	}
	if patch.AssignedTo != nil {
		t.AssignedTo = *patch.AssignedTo
	}
	t.UpdatedAt = s.now().UTC()
	s.tickets[id] = t
	return t, nil
}

// TicketsByTenant lists a tenant's tickets, newest first.
func (s *Service) TicketsByTenant(tenantID string) []Ticket {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]Ticket, 0)
	for _, t := range s.tickets {
		if t.TenantID == tenantID {
			result = append(result, t)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID > result[j].ID
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result
}

func (s *Service) StartChat(userID string) (Chat, error) {
	if strings.TrimSpace(userID) == "" {
		return Chat{}, apperr.Validation("A user is required to start a chat")
	}
	c := Chat{
		ID:        s.newID(),
		UserID:    userID,
		Status:    "active",
		CreatedAt: s.now().UTC(),
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chats[c.ID] = c
	return c, nil
}
