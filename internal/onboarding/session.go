package onboarding

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrSessionNotFound is returned for unknown or expired sessions.
var ErrSessionNotFound = errors.New("onboarding session not found")

// Session wraps the wizard aggregate for one tenant walking through the
// wizard. All reads and mutations go through the session so concurrent HTTP
// handlers see a consistent aggregate.
type Session struct {
	ID        uuid.UUID `json:"id"`
	TenantID  string    `json:"tenant_id"`
	CreatedAt time.Time `json:"created_at"`

	mu        sync.Mutex
	state     State
	updatedAt time.Time
}

// State returns a snapshot of the aggregate.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// UpdatedAt returns the last mutation time.
func (s *Session) UpdatedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updatedAt
}

// Apply merges a patch into the aggregate and returns the new snapshot.
// This is the only mutation primitive.
func (s *Session) Apply(p Patch) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = s.state.Merge(p)
	s.updatedAt = time.Now()
	return s.state
}

// ApplyClientPatch merges a patch supplied over HTTP. ConnectionStatus and
// StatusMessage are owned by the connection flow: values from the existing
// integration with the same id are carried over, and ids the session has not
// seen start at not_connected.
func (s *Session) ApplyClientPatch(p Patch) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.Integrations != nil {
		current := make(map[string]Integration, len(s.state.Integrations))
		for _, in := range s.state.Integrations {
			current[in.ID] = in
		}
		next := make([]Integration, len(p.Integrations))
		copy(next, p.Integrations)
		for i := range next {
			if old, ok := current[next[i].ID]; ok {
				next[i].ConnectionStatus = old.ConnectionStatus
				next[i].StatusMessage = old.StatusMessage
			} else {
				next[i].ConnectionStatus = ConnectionNotConnected
				next[i].StatusMessage = ""
			}
		}
		p.Integrations = next
	}
	s.state = s.state.Merge(p)
	s.updatedAt = time.Now()
	return s.state
}

// Advance moves to the next step when the current step's gate allows it.
// It reports whether the step changed; a failed gate is a no-op.
func (s *Session) Advance() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.CurrentStep >= len(Steps)-1 {
		return false
	}
	if !s.state.CanProceed() {
		return false
	}
	s.state.CurrentStep++
	s.updatedAt = time.Now()
	return true
}

// Retreat moves one step back, floored at the first step. It is refused
// while a deployment is in flight.
func (s *Session) Retreat() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.IsDeploying {
		return false
	}
	if s.state.CurrentStep <= 0 {
		return false
	}
	s.state.CurrentStep--
	s.updatedAt = time.Now()
	return true
}

// Integration returns the integration with the given provider id.
func (s *Session) Integration(provider string) (Integration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, in := range s.state.Integrations {
		if in.ID == provider {
			return in, true
		}
	}
	return Integration{}, false
}

// SetConnectionStatus updates one integration's connection status and
// message. The integrations slice is copied so snapshots taken earlier stay
// stable.
func (s *Session) SetConnectionStatus(provider string, status ConnectionStatus, message string) (Integration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, in := range s.state.Integrations {
		if in.ID != provider {
			continue
		}
		next := make([]Integration, len(s.state.Integrations))
		copy(next, s.state.Integrations)
		next[i].ConnectionStatus = status
		next[i].StatusMessage = message
		s.state.Integrations = next
		s.updatedAt = time.Now()
		return next[i], nil
	}
	return Integration{}, fmt.Errorf("integration %s not present in session", provider)
}

// Store keeps live wizard sessions in memory. Sessions are discarded after
// the TTL or when the wizard completes; saved applications are persisted
// separately.
type Store struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
	ttl      time.Duration
}

// NewStore creates a session store with the given retention TTL.
func NewStore(ttl time.Duration) *Store {
	return &Store{
		sessions: make(map[uuid.UUID]*Session),
		ttl:      ttl,
	}
}

// Create registers a new session with default wizard state.
func (st *Store) Create(websiteURL string) *Session {
	now := time.Now()
	sess := &Session{
		ID:        uuid.New(),
		TenantID:  uuid.New().String(),
		CreatedAt: now,
		state:     NewState(websiteURL),
		updatedAt: now,
	}
	st.mu.Lock()
	st.sessions[sess.ID] = sess
	st.mu.Unlock()
	return sess
}

// Get returns the session with the given id.
func (st *Store) Get(id uuid.UUID) (*Session, error) {
	st.mu.RLock()
	sess, ok := st.sessions[id]
	st.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// Delete removes a session.
func (st *Store) Delete(id uuid.UUID) {
	st.mu.Lock()
	delete(st.sessions, id)
	st.mu.Unlock()
}

// All returns every live session.
func (st *Store) All() []*Session {
	st.mu.RLock()
	defer st.mu.RUnlock()
	out := make([]*Session, 0, len(st.sessions))
	for _, sess := range st.sessions {
		out = append(out, sess)
	}
	return out
}

// Sweep evicts sessions idle past the TTL and returns how many were removed.
func (st *Store) Sweep() int {
	cutoff := time.Now().Add(-st.ttl)
	st.mu.Lock()
	defer st.mu.Unlock()
	removed := 0
	for id, sess := range st.sessions {
		if sess.UpdatedAt().Before(cutoff) {
			delete(st.sessions, id)
			removed++
		}
	}
	return removed
}
