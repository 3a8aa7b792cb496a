// Package session owns all ephemeral collaboration state: who is
// reachable, which rooms exist, who occupies them and who is mid-call.
// Everything lives in one Manager so tests can build an isolated
// instance and the server can hand one to its adapters.
package session

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/avelis/collabd/internal/domain"
	"github.com/avelis/collabd/internal/protocol"
	"github.com/avelis/collabd/internal/store"
)

var (
	ErrAccessDenied   = errors.New("access denied")
	ErrConnectionGone = errors.New("connection no longer registered")
)

const DefaultCursorWindow = 50 * time.Millisecond

type Manager struct {
	store        store.Membership
	cursorWindow time.Duration

	mu       sync.Mutex
	presence map[domain.UserID]Sender
	rooms    map[domain.ProjectID]*room
	byConn   map[string]map[domain.ProjectID]struct{}
	cursor   *throttle
}

func NewManager(membership store.Membership, cursorWindow time.Duration) *Manager {
	if cursorWindow <= 0 {
		cursorWindow = DefaultCursorWindow
	}
	return &Manager{
		store:        membership,
		cursorWindow: cursorWindow,
		presence:     make(map[domain.UserID]Sender),
		rooms:        make(map[domain.ProjectID]*room),
		byConn:       make(map[string]map[domain.ProjectID]struct{}),
		cursor:       newThrottle(cursorWindow),
	}
}

// Register makes s the deliverable handle for its identity. A prior
// handle for the same identity is superseded and closed; its room
// memberships unwind through the normal disconnect path when its
// transport tears down.
func (m *Manager) Register(s Sender) {
	uid := s.Identity().ID

	m.mu.Lock()
	old := m.presence[uid]
	m.presence[uid] = s
	m.mu.Unlock()

	if old != nil && old != s {
		log.Info().Str("module", "session").Str("user_id", string(uid)).Msg("superseding stale connection")
		old.Close()
	}
	log.Info().Str("module", "session").Str("user_id", string(uid)).Str("conn_id", s.ID()).Msg("registered")
}

// Lookup resolves an identity to its live handle. Absence means the
// user is offline and whatever was meant for them is simply not sent.
func (m *Manager) Lookup(uid domain.UserID) (Sender, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.presence[uid]
	return s, ok
}

// Disconnect unwinds every room the connection occupies and then drops
// its presence entry. Must run exactly once per connection teardown;
// the transport adapter guards that. Room cleanup happens first so the
// departure broadcasts still carry a valid identity.
func (m *Manager) Disconnect(s Sender) {
	uid := s.Identity().ID

	m.mu.Lock()
	defer m.mu.Unlock()

	for projectID := range m.byConn[s.ID()] {
		if r, ok := m.rooms[projectID]; ok {
			m.removeMemberLocked(r, s)
		}
	}
	delete(m.byConn, s.ID())

	// A reconnection may already hold the presence slot; only the
	// still-current handle unregisters.
	if m.presence[uid] == s {
		delete(m.presence, uid)
	}
	log.Info().Str("module", "session").Str("user_id", string(uid)).Str("conn_id", s.ID()).Msg("disconnected")
}

// NotifyUser is the directed push used by the REST layer (invitations,
// kick notices, project updates). Reports whether the user was online.
func (m *Manager) NotifyUser(uid domain.UserID, event string, payload json.RawMessage) bool {
	target, ok := m.Lookup(uid)
	if !ok {
		return false
	}
	m.send(target, protocol.Notify{Type: protocol.EventType(event), Payload: payload})
	return true
}

func (m *Manager) send(s Sender, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "session").Msg("marshal outbound event")
		return
	}
	if err := s.TrySend(b); err != nil {
		log.Debug().Err(err).Str("module", "session").Str("conn_id", s.ID()).Msg("dropped outbound event")
	}
}
