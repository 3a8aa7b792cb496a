package session

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/avelis/collabd/internal/domain"
	"github.com/avelis/collabd/internal/protocol"
)

// RelayCall forwards one leg of call signaling (offer, answer or end)
// to a specific identity. The payload is opaque; the server never looks
// inside it. An offline target means the leg evaporates, the caller
// finds out through its own call timeout. An offer marks both parties
// as in-call in the room so a later disconnect can force-end toward the
// survivor; an end clears the sender's mark.
func (m *Manager) RelayCall(ctx context.Context, s Sender, kind protocol.EventType, to domain.UserID, projectID domain.ProjectID, signal json.RawMessage) {
	switch kind {
	case protocol.EvtCallOffer, protocol.EvtCallAnswer, protocol.EvtCallEnd:
	default:
		log.Warn().Str("module", "session").Str("kind", string(kind)).Msg("unknown call signal kind")
		return
	}

	uid := s.Identity().ID

	ok, err := m.store.IsMember(ctx, projectID, uid)
	if err != nil || !ok {
		log.Debug().Err(err).Str("module", "session").Str("user_id", string(uid)).Str("project_id", string(projectID)).Msg("call signal dropped: not authorized")
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	r, joined := m.rooms[projectID]
	if !joined || r.members[uid] != s {
		return
	}

	if kind == protocol.EvtCallEnd {
		delete(r.calls, uid)
	}

	target, online := m.presence[to]
	if !online {
		return
	}
	if kind == protocol.EvtCallOffer {
		r.calls[uid] = struct{}{}
		r.calls[to] = struct{}{}
	}
	m.send(target, protocol.CallSignal{
		Type:      kind,
		ProjectID: projectID,
		From:      protocol.UserRef{ID: uid, Name: s.Identity().Name},
		Signal:    signal,
	})
}
