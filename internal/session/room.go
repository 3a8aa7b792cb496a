package session

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/avelis/collabd/internal/domain"
	"github.com/avelis/collabd/internal/protocol"
)

// room is the live set of connections collaborating on one project.
// Members are keyed by identity so a rejoin replaces rather than
// duplicates. calls tracks who is mid-call, only so a disconnect can
// force-end toward the peer. transcript is the ephemeral chat buffer
// wiped whenever the room falls back to waiting.
type room struct {
	id         domain.ProjectID
	members    map[domain.UserID]Sender
	calls      map[domain.UserID]struct{}
	transcript []protocol.ChatMessage
	active     bool
}

func newRoom(id domain.ProjectID) *room {
	return &room{
		id:      id,
		members: make(map[domain.UserID]Sender),
		calls:   make(map[domain.UserID]struct{}),
	}
}

// Join authorizes the connection against the membership store and, if
// allowed, commits it into the room. The store answer is fetched
// outside the lock; the commit re-validates that the connection is
// still the registered handle before touching room state. Returns the
// pre-join roster so the client can render existing participants.
func (m *Manager) Join(ctx context.Context, s Sender, projectID domain.ProjectID) ([]domain.Identity, error) {
	uid := s.Identity().ID

	ok, err := m.store.IsMember(ctx, projectID, uid)
	if err != nil {
		// Fail closed: an unreachable store denies, never admits.
		log.Error().Err(err).Str("module", "session").Str("project_id", string(projectID)).Msg("membership lookup failed")
		return nil, ErrAccessDenied
	}
	if !ok {
		return nil, ErrAccessDenied
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.presence[uid] != s {
		return nil, ErrConnectionGone
	}

	r, ok := m.rooms[projectID]
	if !ok {
		r = newRoom(projectID)
		m.rooms[projectID] = r
	}

	roster := r.rosterExcept(uid)

	if r.members[uid] == s {
		// Already joined; answer with the roster, no re-broadcast.
		return roster, nil
	}
	r.members[uid] = s
	if m.byConn[s.ID()] == nil {
		m.byConn[s.ID()] = make(map[domain.ProjectID]struct{})
	}
	m.byConn[s.ID()][projectID] = struct{}{}

	joined := protocol.UserJoined{
		Type:      protocol.EvtUserJoined,
		ProjectID: projectID,
		UserID:    uid,
		UserName:  s.Identity().Name,
	}
	for memberID, member := range r.members {
		if memberID != uid {
			m.send(member, joined)
		}
	}

	m.recomputeLifecycleLocked(r, s)

	log.Info().Str("module", "session").Str("user_id", string(uid)).Str("project_id", string(projectID)).Int("occupancy", len(r.members)).Msg("joined room")
	return roster, nil
}

// Leave removes the connection from the room unconditionally. No
// authorization is needed to walk out.
func (m *Manager) Leave(s Sender, projectID domain.ProjectID) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.rooms[projectID]
	if !ok {
		return
	}
	m.removeMemberLocked(r, s)
}

func (r *room) rosterExcept(uid domain.UserID) []domain.Identity {
	roster := make([]domain.Identity, 0, len(r.members))
	for memberID, member := range r.members {
		if memberID != uid {
			roster = append(roster, member.Identity())
		}
	}
	return roster
}

// recomputeLifecycleLocked derives waiting/active fresh from occupancy.
// The active transition fires only on crossing the threshold upward and
// goes to the whole room; waiting goes to whoever remains (at most one
// member). joiner is non-nil on the join path so a lone joiner hears
// waiting directly.
func (m *Manager) recomputeLifecycleLocked(r *room, joiner Sender) {
	occ := len(r.members)
	if occ >= 2 {
		if !r.active {
			r.active = true
			active := protocol.RoomState{Type: protocol.EvtRoomActive, ProjectID: r.id}
			for _, member := range r.members {
				m.send(member, active)
			}
		}
		return
	}

	r.active = false
	waiting := protocol.RoomState{Type: protocol.EvtRoomWaiting, ProjectID: r.id}
	if joiner != nil {
		m.send(joiner, waiting)
		return
	}
	for _, member := range r.members {
		m.send(member, waiting)
	}
}

// removeMemberLocked is the shared tail of leave and disconnect: drop
// membership, tell the survivors, recompute lifecycle and wipe
// ephemeral state when the room falls below two.
func (m *Manager) removeMemberLocked(r *room, s Sender) {
	uid := s.Identity().ID
	if r.members[uid] != s {
		return
	}
	delete(r.members, uid)
	if set, ok := m.byConn[s.ID()]; ok {
		delete(set, r.id)
	}
	m.cursor.forget(r.id, uid)

	_, hadCall := r.calls[uid]
	delete(r.calls, uid)

	left := protocol.UserLeft{Type: protocol.EvtUserLeft, ProjectID: r.id, UserID: uid}
	cursorGone := protocol.CursorLeave{Type: protocol.EvtCursorLeave, ProjectID: r.id, UserID: uid}
	for _, member := range r.members {
		m.send(member, left)
		m.send(member, cursorGone)
	}

	m.recomputeLifecycleLocked(r, nil)

	if len(r.members) < 2 {
		r.transcript = nil
		clearMsg := protocol.ChatClear{Type: protocol.EvtChatClear, ProjectID: r.id}
		for _, member := range r.members {
			m.send(member, clearMsg)
		}
		if hadCall {
			ended := protocol.CallSignal{
				Type:      protocol.EvtCallEnd,
				ProjectID: r.id,
				From:      protocol.UserRef{ID: uid},
			}
			for _, member := range r.members {
				m.send(member, ended)
			}
		}
		// Nobody left on either side of a call once occupancy drops.
		clear(r.calls)
	}

	if len(r.members) == 0 {
		delete(m.rooms, r.id)
	}
	log.Info().Str("module", "session").Str("user_id", string(uid)).Str("project_id", string(r.id)).Int("occupancy", len(r.members)).Msg("left room")
}
