// Package memory is an in-memory membership store for development and
// tests.
package memory

import (
	"context"
	"sync"

	"github.com/avelis/collabd/internal/domain"
)

type MembershipStore struct {
	mu       sync.RWMutex
	projects map[domain.ProjectID]map[domain.UserID]bool
	err      error
}

func NewMembershipStore() *MembershipStore {
	return &MembershipStore{projects: make(map[domain.ProjectID]map[domain.UserID]bool)}
}

func (s *MembershipStore) Add(projectID domain.ProjectID, userID domain.UserID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.projects[projectID] == nil {
		s.projects[projectID] = make(map[domain.UserID]bool)
	}
	s.projects[projectID][userID] = true
}

func (s *MembershipStore) Remove(projectID domain.ProjectID, userID domain.UserID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.projects[projectID], userID)
}

// Fail makes every subsequent lookup return err. Lets tests exercise
// the fail-closed path.
func (s *MembershipStore) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

func (s *MembershipStore) IsMember(ctx context.Context, projectID domain.ProjectID, userID domain.UserID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.err != nil {
		return false, s.err
	}
	return s.projects[projectID][userID], nil
}
