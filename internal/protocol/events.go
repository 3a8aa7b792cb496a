// Package protocol defines the websocket event vocabulary. Every frame
// is a JSON object with a "type" field; the remaining fields are flat on
// the same object, one struct per event kind.
package protocol

import (
	"encoding/json"

	"github.com/avelis/collabd/internal/domain"
)

type EventType string

// Client -> server.
const (
	EvtJoinProject  EventType = "join:project"
	EvtLeaveProject EventType = "leave:project"
	EvtChatMessage  EventType = "chat:message"
	EvtCursorMove   EventType = "cursor:move"
	EvtTaskUpdate   EventType = "task:update"
	EvtCallOffer    EventType = "call:offer"
	EvtCallAnswer   EventType = "call:answer"
	EvtCallEnd      EventType = "call:end"
)

// Server -> client.
const (
	EvtJoinAck     EventType = "join:ack"
	EvtUserJoined  EventType = "user:joined"
	EvtUserLeft    EventType = "user:left"
	EvtRoomActive  EventType = "room:active"
	EvtRoomWaiting EventType = "room:waiting"
	EvtChatClear   EventType = "chat:clear"
	EvtCursorLeave EventType = "cursor:leave"
)

// Envelope is the first-pass decode, just enough to dispatch.
type Envelope struct {
	Type EventType `json:"type"`
}

// UserRef is the identity summary attached to broadcasts so clients can
// attribute them.
type UserRef struct {
	ID   domain.UserID `json:"id"`
	Name string        `json:"name,omitempty"`
}

// --- inbound payloads ---

type JoinProject struct {
	Type      EventType        `json:"type"`
	ProjectID domain.ProjectID `json:"projectId"`
}

type LeaveProject struct {
	Type      EventType        `json:"type"`
	ProjectID domain.ProjectID `json:"projectId"`
}

type ChatSend struct {
	Type      EventType        `json:"type"`
	ProjectID domain.ProjectID `json:"projectId"`
	Text      string           `json:"text"`
}

type CursorSend struct {
	Type      EventType        `json:"type"`
	ProjectID domain.ProjectID `json:"projectId"`
	X         float64          `json:"x"`
	Y         float64          `json:"y"`
}

type TaskUpdateSend struct {
	Type      EventType        `json:"type"`
	ProjectID domain.ProjectID `json:"projectId"`
	Tasks     json.RawMessage  `json:"tasks"`
}

// CallSend carries one leg of call signaling. Signal is opaque to the
// server; it is relayed verbatim.
type CallSend struct {
	Type      EventType        `json:"type"`
	To        domain.UserID    `json:"to"`
	ProjectID domain.ProjectID `json:"projectId"`
	Signal    json.RawMessage  `json:"signal,omitempty"`
}

// --- outbound payloads ---

const (
	StatusOK    = "ok"
	StatusError = "error"
)

type JoinAck struct {
	Type          EventType         `json:"type"`
	ProjectID     domain.ProjectID  `json:"projectId"`
	Status        string            `json:"status"`
	Message       string            `json:"message,omitempty"`
	ExistingUsers []domain.Identity `json:"existingUsers,omitempty"`
}

type UserJoined struct {
	Type      EventType        `json:"type"`
	ProjectID domain.ProjectID `json:"projectId"`
	UserID    domain.UserID    `json:"userId"`
	UserName  string           `json:"userName"`
}

type UserLeft struct {
	Type      EventType        `json:"type"`
	ProjectID domain.ProjectID `json:"projectId"`
	UserID    domain.UserID    `json:"userId"`
}

type RoomState struct {
	Type      EventType        `json:"type"`
	ProjectID domain.ProjectID `json:"projectId"`
}

type ChatMessage struct {
	Type      EventType        `json:"type"`
	ProjectID domain.ProjectID `json:"projectId"`
	User      UserRef          `json:"user"`
	Message   string           `json:"message"`
	Timestamp string           `json:"timestamp"`
}

type ChatClear struct {
	Type      EventType        `json:"type"`
	ProjectID domain.ProjectID `json:"projectId"`
}

type CursorMove struct {
	Type      EventType        `json:"type"`
	ProjectID domain.ProjectID `json:"projectId"`
	User      UserRef          `json:"user"`
	Position  Position         `json:"position"`
}

type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type CursorLeave struct {
	Type      EventType        `json:"type"`
	ProjectID domain.ProjectID `json:"projectId"`
	UserID    domain.UserID    `json:"userId"`
}

type TaskUpdate struct {
	Type      EventType        `json:"type"`
	ProjectID domain.ProjectID `json:"projectId"`
	Tasks     json.RawMessage  `json:"tasks"`
}

// CallSignal is a relayed offer/answer/end, or the forced end broadcast
// on disconnect (Signal empty in the forced case).
type CallSignal struct {
	Type      EventType        `json:"type"`
	ProjectID domain.ProjectID `json:"projectId"`
	From      UserRef          `json:"from"`
	Signal    json.RawMessage  `json:"signal,omitempty"`
}

// Notify is a one-shot directed push from the REST layer (invitations,
// kick notices, project updates). Event names are opaque here.
type Notify struct {
	Type    EventType       `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}
