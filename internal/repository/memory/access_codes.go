package memory

import (
	"context"
	"sort"
	"time"

	"github.com/designengineer/course-api/internal/model"
	"github.com/designengineer/course-api/internal/repository"
)

type AccessCodes struct{ s *Store }

func (r *AccessCodes) Create(_ context.Context, c *model.TemporaryAccessCode) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.codes[c.Code]; ok {
		return repository.ErrConflict
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	if c.Status == "" {
		c.Status = model.CodeActive
	}
	if c.RedeemedBy == nil {
		c.RedeemedBy = []string{}
	}
	stored := copyCode(c)
	r.s.codes[c.Code] = &stored
	return nil
}

func (r *AccessCodes) Get(_ context.Context, code string) (model.TemporaryAccessCode, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.codes[code]
	if !ok {
		return model.TemporaryAccessCode{}, repository.ErrNotFound
	}
	return copyCode(c), nil
}

func (r *AccessCodes) List(_ context.Context) ([]model.TemporaryAccessCode, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]model.TemporaryAccessCode, 0, len(r.s.codes))
	for _, c := range r.s.codes {
		out = append(out, copyCode(c))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].Code < out[j].Code
	})
	return out, nil
}

func (r *AccessCodes) ExpireStale(_ context.Context, now time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, c := range r.s.codes {
		if c.Status == model.CodeActive && !now.Before(c.ExpiresAt) {
			c.Status = model.CodeExpired
			n++
		}
	}
	return n, nil
}

// Redeem mirrors the MySQL transaction under the store lock.
func (r *AccessCodes) Redeem(_ context.Context, code, userID string, now time.Time,
	grant func(model.TemporaryAccessCode) model.Enrollment) (model.Enrollment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.codes[code]
	if !ok {
		return model.Enrollment{}, repository.ErrNotFound
	}
	if c.Status != model.CodeActive || !now.Before(c.ExpiresAt) {
		return model.Enrollment{}, repository.ErrExpired
	}
	if c.Exhausted() {
		return model.Enrollment{}, repository.ErrExhausted
	}
	if model.OtherActive(r.s.userEnrollments(userID), code, now) != nil {
		return model.Enrollment{}, repository.ErrActiveEnrollment
	}
	if c.RedeemedByUser(userID) {
		return model.Enrollment{}, repository.ErrConflict
	}
	e := grant(copyCode(c))
	if err := r.s.insertEnrollment(&e); err != nil {
		return model.Enrollment{}, err
	}
	c.RedeemedBy = append(c.RedeemedBy, userID)
	return e, nil
}
