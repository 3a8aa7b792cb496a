package session

import "github.com/avelis/collabd/internal/domain"

// Sender is one authenticated connection as the session layer sees it.
// TrySend must not block; delivery to a slow or dead peer is the
// transport's problem, not the session state's.
type Sender interface {
	ID() string
	Identity() domain.Identity
	TrySend(b []byte) error
	Close()
}
