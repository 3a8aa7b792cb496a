package session

import "github.com/avelis/collabd/internal/domain"

// Read-only introspection of the session state. Consumed by tests and
// by operational surfaces (health endpoints, debug dumps); nothing in
// here mutates, and none of it participates in event handling.

// OccupancyOf reports the live member count of a room. Zero for rooms
// that do not exist.
func (m *Manager) OccupancyOf(projectID domain.ProjectID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.rooms[projectID]; ok {
		return len(r.members)
	}
	return 0
}

// RoomActive reports the derived lifecycle state of a room.
func (m *Manager) RoomActive(projectID domain.ProjectID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.rooms[projectID]; ok {
		return r.active
	}
	return false
}

// TranscriptLen reports how many chat messages the room's ephemeral
// buffer currently holds. The buffer is never replayed to joiners; it
// exists only to be wiped when the room falls back to waiting.
func (m *Manager) TranscriptLen(projectID domain.ProjectID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.rooms[projectID]; ok {
		return len(r.transcript)
	}
	return 0
}

// InCall reports whether the identity holds a call association in the
// room.
func (m *Manager) InCall(projectID domain.ProjectID, uid domain.UserID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.rooms[projectID]; ok {
		_, in := r.calls[uid]
		return in
	}
	return false
}
