package memory

import (
	"context"

	"github.com/dmitrijs2005/gatekeeper/internal/common"
	"github.com/dmitrijs2005/gatekeeper/internal/server/models"
	"github.com/google/uuid"
)

// AccountRepository implements accounts.Repository.
type AccountRepository struct {
	s *store
	h *handle
}

func (r *AccountRepository) Create(_ context.Context, a *models.Account) (*models.Account, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.byEmail[a.Email]; taken {
		return nil, common.ErrConflict
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if _, taken := s.accounts[a.ID]; taken {
		return nil, common.ErrConflict
	}

	stored := *a
	stored.CreatedAt = s.now()
	stored.UpdatedAt = stored.CreatedAt
	s.accounts[stored.ID] = stored
	s.byEmail[stored.Email] = stored.ID
	s.order = append(s.order, stored.ID)

	r.h.record(func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.accounts, stored.ID)
		delete(s.byEmail, stored.Email)
		for i, id := range s.order {
			if id == stored.ID {
				s.order = append(s.order[:i], s.order[i+1:]...)
				break
			}
		}
	})

	return &stored, nil
}

func (r *AccountRepository) GetByID(_ context.Context, id string) (*models.Account, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	a, ok := r.s.accounts[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return &a, nil
}

func (r *AccountRepository) GetByEmail(_ context.Context, email string) (*models.Account, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	id, ok := r.s.byEmail[email]
	if !ok {
		return nil, common.ErrNotFound
	}
	a := r.s.accounts[id]
	return &a, nil
}

func (r *AccountRepository) ListByApproval(_ context.Context, approved bool) ([]models.Account, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	result := make([]models.Account, 0)
	for _, id := range r.s.order {
		if a := r.s.accounts[id]; a.Approved == approved {
			result = append(result, a)
		}
	}
	return result, nil
}

func (r *AccountRepository) MarkApproved(_ context.Context, id string) (*models.Account, error) {
	return r.update(id, func(a *models.Account) bool {
		if a.Approved {
			return false
		}
		a.Approved = true
		return true
	})
}

func (r *AccountRepository) MarkEmailConfirmed(_ context.Context, id string) (*models.Account, error) {
	return r.update(id, func(a *models.Account) bool {
		if a.EmailConfirmed {
			return false
		}
		a.EmailConfirmed = true
		return true
	})
}

func (r *AccountRepository) UpdateProfile(_ context.Context, id string, u models.ProfileUpdate) (*models.Account, error) {
	return r.update(id, func(a *models.Account) bool {
		*a = u.Apply(*a)
		return true
	})
}

func (r *AccountRepository) UpdatePassword(_ context.Context, id string, passwordHash string) error {
	_, err := r.update(id, func(a *models.Account) bool {
		a.PasswordHash = passwordHash
		return true
	})
	return err
}

// update applies fn to the stored account under the lock. fn returning
// false leaves the account untouched and yields common.ErrNotFound.
func (r *AccountRepository) update(id string, fn func(a *models.Account) bool) (*models.Account, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.accounts[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	next := prev
	if !fn(&next) {
		return nil, common.ErrNotFound
	}
	next.UpdatedAt = s.now()
	s.accounts[id] = next

	r.h.record(func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, ok := s.accounts[id]; ok {
			s.accounts[id] = prev
		}
	})

	return &next, nil
}
