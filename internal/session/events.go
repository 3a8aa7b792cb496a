package session

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/avelis/collabd/internal/domain"
	"github.com/avelis/collabd/internal/protocol"
)

// Chat broadcasts a message to the whole room, sender included. Dropped
// silently unless the sender still passes the membership store check
// (a member removed from the project mid-session stops being heard even
// though nothing evicts them from the room) and at least one other
// person is there to read it.
func (m *Manager) Chat(ctx context.Context, s Sender, projectID domain.ProjectID, text string) {
	uid := s.Identity().ID

	ok, err := m.store.IsMember(ctx, projectID, uid)
	if err != nil || !ok {
		log.Debug().Err(err).Str("module", "session").Str("user_id", string(uid)).Str("project_id", string(projectID)).Msg("chat dropped: not authorized")
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	r, joined := m.rooms[projectID]
	if !joined || r.members[uid] != s || len(r.members) < 2 {
		return
	}

	msg := protocol.ChatMessage{
		Type:      protocol.EvtChatMessage,
		ProjectID: projectID,
		User:      protocol.UserRef{ID: uid, Name: s.Identity().Name},
		Message:   text,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	r.transcript = append(r.transcript, msg)
	for _, member := range r.members {
		m.send(member, msg)
	}
}

// Cursor fans a position update out to everyone else in the room, rate
// limited per (room, sender). Cursor updates never consult the external
// store; the live membership check is enough for positional noise.
func (m *Manager) Cursor(s Sender, projectID domain.ProjectID, x, y float64) {
	uid := s.Identity().ID

	m.mu.Lock()
	defer m.mu.Unlock()

	r, joined := m.rooms[projectID]
	if !joined || r.members[uid] != s {
		return
	}
	if !m.cursor.allow(projectID, uid) {
		return
	}

	move := protocol.CursorMove{
		Type:      protocol.EvtCursorMove,
		ProjectID: projectID,
		User:      protocol.UserRef{ID: uid, Name: s.Identity().Name},
		Position:  protocol.Position{X: x, Y: y},
	}
	for memberID, member := range r.members {
		if memberID != uid {
			m.send(member, move)
		}
	}
}

// TaskUpdate relays a board refresh hint to the other room members. The
// actual task mutation already happened through the REST layer; this is
// only the announcement.
func (m *Manager) TaskUpdate(s Sender, projectID domain.ProjectID, tasks json.RawMessage) {
	uid := s.Identity().ID

	m.mu.Lock()
	defer m.mu.Unlock()

	r, joined := m.rooms[projectID]
	if !joined || r.members[uid] != s {
		return
	}

	update := protocol.TaskUpdate{Type: protocol.EvtTaskUpdate, ProjectID: projectID, Tasks: tasks}
	for memberID, member := range r.members {
		if memberID != uid {
			m.send(member, update)
		}
	}
}
