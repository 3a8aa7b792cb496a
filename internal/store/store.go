// Package store declares the external project-membership lookup the
// session layer authorizes joins against. The data itself is owned by
// the REST layer; this side only ever reads.
package store

import (
	"context"

	"github.com/avelis/collabd/internal/domain"
)

type Membership interface {
	// IsMember reports whether the identity belongs to the project at
	// the time of the call. Answers are point-in-time facts and may be
	// stale by the time the caller acts on them.
	IsMember(ctx context.Context, projectID domain.ProjectID, userID domain.UserID) (bool, error)
}
