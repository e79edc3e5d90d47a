package state

import (
	"context"
	"errors"
	"sync"

	"github.com/smileclinic/whatsbot/internal/domain/models"
)

// MemoryStore is a process-local Store. Sessions are handed out by pointer and
// keep their identity across calls; state is lost on restart.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]*models.Session
	drafts   map[string]*models.BookingDraft
}

// NewMemoryStore builds an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*models.Session),
		drafts:   make(map[string]*models.BookingDraft),
	}
}

func (m *MemoryStore) Session(_ context.Context, userID string) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sessions[userID]; ok {
		return s, nil
	}
	s := models.NewSession(userID)
	m.sessions[userID] = s
	return s, nil
}

// SaveSession copies session into the stored record so previously returned
// pointers observe the update.
func (m *MemoryStore) SaveSession(_ context.Context, session *models.Session) error {
	if session == nil || session.UserID == "" {
		return errors.New("session with user id is required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.sessions[session.UserID]; ok {
		if existing != session {
			*existing = *session
		}
		return nil
	}
	cp := *session
	m.sessions[session.UserID] = &cp
	return nil
}

func (m *MemoryStore) Draft(_ context.Context, userID string) (*models.BookingDraft, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	d, ok := m.drafts[userID]
	if !ok {
		return nil, nil
	}
	cp := *d
	return &cp, nil
}

func (m *MemoryStore) SaveDraft(_ context.Context, userID string, draft *models.BookingDraft) error {
	if draft == nil {
		return m.DeleteDraft(context.Background(), userID)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *draft
	m.drafts[userID] = &cp
	return nil
}

func (m *MemoryStore) DeleteDraft(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.drafts, userID)
	return nil
}

// Len reports how many sessions and drafts are held.
func (m *MemoryStore) Len() (sessions, drafts int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions), len(m.drafts)
}
