// Package postgres binds the membership lookup to the project database
// the REST layer writes.
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/avelis/collabd/internal/domain"
)

type MembershipStore struct {
	db *sql.DB
}

func Open(databaseURL string) (*MembershipStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	return &MembershipStore{db: db}, nil
}

func NewMembershipStore(db *sql.DB) *MembershipStore {
	return &MembershipStore{db: db}
}

func (s *MembershipStore) IsMember(ctx context.Context, projectID domain.ProjectID, userID domain.UserID) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM project_members WHERE project_id = $1 AND user_id = $2",
		string(projectID), string(userID),
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("membership query: %w", err)
	}
	return count > 0, nil
}

func (s *MembershipStore) Close() error {
	return s.db.Close()
}
