package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fleetdesk/fleetdesk/internal/domain/session"
)

// SessionRepository is an in-memory session.Repository.
type SessionRepository struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*session.Session
	nextID   int64
}

func NewSessionRepository() *SessionRepository {
	return &SessionRepository{sessions: make(map[uuid.UUID]*session.Session)}
}

func (r *SessionRepository) Create(ctx context.Context, s *session.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	s.ID = r.nextID
	cp := *s
	r.sessions[s.SessionID] = &cp
	return nil
}

func (r *SessionRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*session.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.sessions {
		if s.TokenHash == tokenHash {
			cp := *s
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *SessionRepository) DeleteByID(ctx context.Context, sessionID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, sessionID)
	return nil
}

func (r *SessionRepository) DeleteByTokenHash(ctx context.Context, tokenHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, s := range r.sessions {
		if s.TokenHash == tokenHash {
			delete(r.sessions, id)
			return nil
		}
	}
	return nil
}

func (r *SessionRepository) UpdateLastSeen(ctx context.Context, sessionID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[sessionID]; ok {
		now := time.Now().UTC()
		s.LastSeenAt = &now
	}
	return nil
}

func (r *SessionRepository) DeleteExpired(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	var removed int
	for id, s := range r.sessions {
		if s.IsExpired(now) {
			delete(r.sessions, id)
			removed++
		}
	}
	return removed, nil
}
