package session

import (
	"time"

	"github.com/avelis/collabd/internal/domain"
)

type throttleKey struct {
	projectID domain.ProjectID
	userID    domain.UserID
}

// throttle passes the first event per (room, sender) in each window and
// drops the rest. Cursor traffic is the hottest path in the system;
// without this every mouse twitch fans out to the whole room.
// Callers hold the Manager lock, so no mutex of its own.
type throttle struct {
	window   time.Duration
	lastSent map[throttleKey]time.Time
	now      func() time.Time
}

func newThrottle(window time.Duration) *throttle {
	return &throttle{
		window:   window,
		lastSent: make(map[throttleKey]time.Time),
		now:      time.Now,
	}
}

func (t *throttle) allow(projectID domain.ProjectID, userID domain.UserID) bool {
	key := throttleKey{projectID, userID}
	now := t.now()
	if last, ok := t.lastSent[key]; ok && now.Sub(last) < t.window {
		return false
	}
	t.lastSent[key] = now
	return true
}

func (t *throttle) forget(projectID domain.ProjectID, userID domain.UserID) {
	delete(t.lastSent, throttleKey{projectID, userID})
}
