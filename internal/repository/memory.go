package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/fleet-helpdesk/internal/domain"
)

// MemoryUserRepository implements UserRepository in memory. Used when no Postgres DSN is
// configured and in tests.
type MemoryUserRepository struct {
	mu    sync.RWMutex
	store map[string]domain.User
}

// NewMemoryUserRepository creates an empty repository.
func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{store: make(map[string]domain.User)}
}

func (r *MemoryUserRepository) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	email := strings.ToLower(user.Email)
	for _, existing := range r.store {
		if existing.Email == email {
			return ErrUniqueViolation
		}
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if _, ok := r.store[user.ID]; ok {
		return ErrUniqueViolation
	}
	now := time.Now().UTC()
	user.Email = email
	user.CreatedAt = now
	user.UpdatedAt = now
	r.store[user.ID] = *user
	return nil
}

func (r *MemoryUserRepository) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.store[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &user, nil
}

func (r *MemoryUserRepository) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	email = strings.ToLower(email)
	for _, user := range r.store {
		if user.Email == email {
			u := user
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

// MemoryHelpdeskRepository implements HelpdeskRepository in memory with the same uniqueness
// rules as the SQL schema: unique ticket numbers and one non-ENCERRADO ticket per client.
type MemoryHelpdeskRepository struct {
	mu    sync.RWMutex
	store map[string]domain.Helpdesk
}

// NewMemoryHelpdeskRepository creates an empty repository.
func NewMemoryHelpdeskRepository() *MemoryHelpdeskRepository {
	return &MemoryHelpdeskRepository{store: make(map[string]domain.Helpdesk)}
}

func cloneHelpdesk(h domain.Helpdesk) domain.Helpdesk {
	out := h
	if h.UserID != nil {
		v := *h.UserID
		out.UserID = &v
	}
	if h.AssignedUserID != nil {
		v := *h.AssignedUserID
		out.AssignedUserID = &v
	}
	if h.Module != nil {
		v := *h.Module
		out.Module = &v
	}
	if h.ClosedAt != nil {
		v := *h.ClosedAt
		out.ClosedAt = &v
	}
	return out
}

func (r *MemoryHelpdeskRepository) openConflict(h domain.Helpdesk) bool {
	if h.Status == domain.HelpdeskStatusClosed {
		return false
	}
	for id, existing := range r.store {
		if id != h.ID && existing.ClientID == h.ClientID && existing.Status != domain.HelpdeskStatusClosed {
			return true
		}
	}
	return false
}

func (r *MemoryHelpdeskRepository) Create(_ context.Context, h *domain.Helpdesk) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.store[h.ID]; ok {
		return ErrUniqueViolation
	}
	for _, existing := range r.store {
		if existing.TicketNumber == h.TicketNumber {
			return ErrUniqueViolation
		}
	}
	if r.openConflict(*h) {
		return ErrOpenTicketExists
	}
	h.UpdatedAt = time.Now().UTC()
	r.store[h.ID] = cloneHelpdesk(*h)
	return nil
}

func (r *MemoryHelpdeskRepository) Update(_ context.Context, h *domain.Helpdesk) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.store[h.ID]
	if !ok {
		return ErrNotFound
	}
	if r.openConflict(*h) {
		return ErrOpenTicketExists
	}
	existing.AssignedUserID = h.AssignedUserID
	existing.Status = h.Status
	existing.Priority = h.Priority
	existing.ClosedAt = h.ClosedAt
	existing.UpdatedAt = time.Now().UTC()
	h.UpdatedAt = existing.UpdatedAt
	r.store[h.ID] = cloneHelpdesk(existing)
	return nil
}

func (r *MemoryHelpdeskRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.store[id]; !ok {
		return ErrNotFound
	}
	delete(r.store, id)
	return nil
}

func (r *MemoryHelpdeskRepository) GetByID(_ context.Context, id string) (*domain.Helpdesk, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.store[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := cloneHelpdesk(h)
	return &out, nil
}

func (r *MemoryHelpdeskRepository) FindOpenByClient(_ context.Context, clientID string) (*domain.Helpdesk, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, h := range r.store {
		if h.ClientID == clientID && h.Status != domain.HelpdeskStatusClosed {
			out := cloneHelpdesk(h)
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (r *MemoryHelpdeskRepository) LastTicketNumber(_ context.Context, prefix string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	last := ""
	for _, h := range r.store {
		if !strings.HasPrefix(h.TicketNumber, prefix) {
			continue
		}
		if len(h.TicketNumber) > len(last) || len(h.TicketNumber) == len(last) && h.TicketNumber > last {
			last = h.TicketNumber
		}
	}
	return last, nil
}

func (r *MemoryHelpdeskRepository) TouchLastMessage(_ context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.store[id]
	if !ok {
		return ErrNotFound
	}
	h.LastMessageAt = at
	h.UpdatedAt = time.Now().UTC()
	r.store[id] = h
	return nil
}

func (r *MemoryHelpdeskRepository) matching(filter HelpdeskFilter) []domain.Helpdesk {
	result := []domain.Helpdesk{}
	for _, h := range r.store {
		if filter.Status != nil && h.Status != *filter.Status {
			continue
		}
		if filter.Priority != nil && h.Priority != *filter.Priority {
			continue
		}
		if filter.Category != nil && h.Category != *filter.Category {
			continue
		}
		if filter.ClientID != nil && h.ClientID != *filter.ClientID {
			continue
		}
		if filter.AssignedUserID != nil && (h.AssignedUserID == nil || *h.AssignedUserID != *filter.AssignedUserID) {
			continue
		}
		result = append(result, cloneHelpdesk(h))
	}
	return result
}

func (r *MemoryHelpdeskRepository) List(_ context.Context, filter HelpdeskFilter) ([]domain.Helpdesk, error) {
	r.mu.RLock()
	result := r.matching(filter)
	r.mu.RUnlock()

	less := func(a, b domain.Helpdesk) int {
		switch filter.SortBy {
		case SortByUpdatedAt:
			return a.UpdatedAt.Compare(b.UpdatedAt)
		case SortByLastMessageAt:
			return a.LastMessageAt.Compare(b.LastMessageAt)
		case SortByPriority:
			return a.Priority.Rank() - b.Priority.Rank()
		default:
			return a.CreatedAt.Compare(b.CreatedAt)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		c := less(result[i], result[j])
		if c == 0 {
			c = strings.Compare(result[i].ID, result[j].ID)
		}
		if filter.SortDesc {
			return c > 0
		}
		return c < 0
	})

	limit := filter.Limit
	if limit <= 0 {
		limit = 10
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	if offset >= len(result) {
		return []domain.Helpdesk{}, nil
	}
	end := offset + limit
	if end > len(result) {
		end = len(result)
	}
	return result[offset:end], nil
}

func (r *MemoryHelpdeskRepository) Count(_ context.Context, filter HelpdeskFilter) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.matching(filter)), nil
}
