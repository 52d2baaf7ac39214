package memory

import (
	"context"
	"time"

	"github.com/dmitrijs2005/gatekeeper/internal/common"
	"github.com/dmitrijs2005/gatekeeper/internal/server/models"
	"github.com/google/uuid"
)

// ResetTokenRepository implements resettokens.Repository. Tokens are keyed
// by account, so each account holds at most one.
type ResetTokenRepository struct {
	s *store
	h *handle
}

func (r *ResetTokenRepository) Replace(_ context.Context, t *models.ResetToken) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	stored := *t
	stored.CreatedAt = s.now()

	prev, hadPrev := s.resets[t.AccountID]
	s.resets[t.AccountID] = stored

	r.h.record(func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if hadPrev {
			s.resets[prev.AccountID] = prev
		} else {
			delete(s.resets, stored.AccountID)
		}
	})
	return nil
}

func (r *ResetTokenRepository) Consume(_ context.Context, tokenHash string, now time.Time) (string, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	for accountID, t := range s.resets {
		if t.TokenHash != tokenHash {
			continue
		}
		if !t.ExpiresAt.After(now) {
			return "", common.ErrNotFound
		}
		delete(s.resets, accountID)
		r.h.record(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if _, ok := s.resets[t.AccountID]; !ok {
				s.resets[t.AccountID] = t
			}
		})
		return accountID, nil
	}
	return "", common.ErrNotFound
}

func (r *ResetTokenRepository) DeleteByAccount(_ context.Context, accountID string) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.resets[accountID]
	if !ok {
		return nil
	}
	delete(s.resets, accountID)
	r.h.record(func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, ok := s.resets[accountID]; !ok {
			s.resets[accountID] = t
		}
	})
	return nil
}
