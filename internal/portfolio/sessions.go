package portfolio

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"vencha/internal/engine"
)

const sessionTTL = 15 * time.Minute

// negotiation sessions are ephemeral: nothing is committed until the player
// accepts or revises, so the deal lives in memory with a short TTL and dies
// with the process.
type negotiationSession struct {
	id          string
	userID      string
	startupID   string
	startupName string
	neg         *engine.Negotiation
	expiresAt   time.Time
}

type sessionStore struct {
	mu       sync.Mutex
	sessions map[string]*negotiationSession
	now      func() time.Time
}

func newSessionStore() *sessionStore {
	return &sessionStore{
		sessions: make(map[string]*negotiationSession),
		now:      time.Now,
	}
}

func (st *sessionStore) put(userID, startupID, startupName string, neg *engine.Negotiation) *negotiationSession {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.purgeLocked()
	s := &negotiationSession{
		id:          uuid.NewString(),
		userID:      userID,
		startupID:   startupID,
		startupName: startupName,
		neg:         neg,
		expiresAt:   st.now().Add(sessionTTL),
	}
	st.sessions[s.id] = s
	return s
}

// get returns the live session if it belongs to the user and has not
// expired. Expired entries are dropped on the way.
func (st *sessionStore) get(userID, id string) (*negotiationSession, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.purgeLocked()
	s, ok := st.sessions[id]
	if !ok {
		return nil, ErrNegotiationNotFound
	}
	if s.userID != userID {
		return nil, ErrUnauthorized
	}
	return s, nil
}

func (st *sessionStore) delete(id string) {
	st.mu.Lock()
	delete(st.sessions, id)
	st.mu.Unlock()
}

func (st *sessionStore) purgeLocked() {
	now := st.now()
	for id, s := range st.sessions {
		if now.After(s.expiresAt) {
			delete(st.sessions, id)
		}
	}
}
