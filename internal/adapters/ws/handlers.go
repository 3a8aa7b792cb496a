package ws

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/avelis/collabd/internal/protocol"
	"github.com/avelis/collabd/internal/session"
)

// dispatch decodes the envelope and routes to the handler for its
// kind. The inbound vocabulary is closed; anything else is logged and
// dropped.
func (ctl *Controller) dispatch(ctx context.Context, c *Conn, data []byte) {
	var env protocol.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		log.Warn().Err(err).Str("module", "ws").Str("conn_id", c.ID()).Msg("bad json")
		return
	}

	switch env.Type {
	case protocol.EvtJoinProject:
		ctl.handleJoin(ctx, c, data)
	case protocol.EvtLeaveProject:
		ctl.handleLeave(c, data)
	case protocol.EvtChatMessage:
		ctl.handleChat(ctx, c, data)
	case protocol.EvtCursorMove:
		ctl.handleCursor(c, data)
	case protocol.EvtTaskUpdate:
		ctl.handleTaskUpdate(c, data)
	case protocol.EvtCallOffer, protocol.EvtCallAnswer, protocol.EvtCallEnd:
		ctl.handleCallSignal(ctx, c, env.Type, data)
	default:
		log.Warn().Str("module", "ws").Str("type", string(env.Type)).Msg("unknown event")
	}
}

func (ctl *Controller) handleJoin(ctx context.Context, c *Conn, data []byte) {
	var p protocol.JoinProject
	if err := json.Unmarshal(data, &p); err != nil || p.ProjectID == "" {
		log.Warn().Err(err).Str("module", "ws").Msg("bad join payload")
		return
	}

	existing, err := ctl.sessions.Join(ctx, c, p.ProjectID)
	if err != nil {
		msg := "Access denied"
		if !errors.Is(err, session.ErrAccessDenied) {
			msg = "Join failed"
		}
		ctl.reply(c, protocol.JoinAck{
			Type:      protocol.EvtJoinAck,
			ProjectID: p.ProjectID,
			Status:    protocol.StatusError,
			Message:   msg,
		})
		return
	}

	ctl.reply(c, protocol.JoinAck{
		Type:          protocol.EvtJoinAck,
		ProjectID:     p.ProjectID,
		Status:        protocol.StatusOK,
		ExistingUsers: existing,
	})
}

func (ctl *Controller) handleLeave(c *Conn, data []byte) {
	var p protocol.LeaveProject
	if err := json.Unmarshal(data, &p); err != nil || p.ProjectID == "" {
		return
	}
	ctl.sessions.Leave(c, p.ProjectID)
}

func (ctl *Controller) handleChat(ctx context.Context, c *Conn, data []byte) {
	var p protocol.ChatSend
	if err := json.Unmarshal(data, &p); err != nil || p.ProjectID == "" {
		return
	}
	ctl.sessions.Chat(ctx, c, p.ProjectID, p.Text)
}

func (ctl *Controller) handleCursor(c *Conn, data []byte) {
	var p protocol.CursorSend
	if err := json.Unmarshal(data, &p); err != nil || p.ProjectID == "" {
		return
	}
	ctl.sessions.Cursor(c, p.ProjectID, p.X, p.Y)
}

func (ctl *Controller) handleTaskUpdate(c *Conn, data []byte) {
	var p protocol.TaskUpdateSend
	if err := json.Unmarshal(data, &p); err != nil || p.ProjectID == "" {
		return
	}
	ctl.sessions.TaskUpdate(c, p.ProjectID, p.Tasks)
}

func (ctl *Controller) handleCallSignal(ctx context.Context, c *Conn, kind protocol.EventType, data []byte) {
	var p protocol.CallSend
	if err := json.Unmarshal(data, &p); err != nil || p.To == "" || p.ProjectID == "" {
		return
	}
	ctl.sessions.RelayCall(ctx, c, kind, p.To, p.ProjectID, p.Signal)
}

func (ctl *Controller) reply(c *Conn, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "ws").Msg("marshal reply")
		return
	}
	_ = c.TrySend(b)
}
