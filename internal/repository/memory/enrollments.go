package memory

import (
	"context"
	"sort"
	"time"

	"github.com/designengineer/course-api/internal/model"
	"github.com/designengineer/course-api/internal/repository"
)

type Enrollments struct{ s *Store }

func (r *Enrollments) Create(_ context.Context, e *model.Enrollment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.insertEnrollment(e)
}

func (r *Enrollments) ListByUser(_ context.Context, userID string) ([]model.Enrollment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []model.Enrollment
	for _, e := range r.s.enrollments {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].PurchasedAt.Equal(out[j].PurchasedAt) {
			return out[i].PurchasedAt.After(out[j].PurchasedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (r *Enrollments) GetByOrderID(_ context.Context, orderID string) (model.Enrollment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, e := range r.s.enrollments {
		if orderID != "" && e.OrderID == orderID {
			return e, nil
		}
	}
	return model.Enrollment{}, repository.ErrNotFound
}

func (r *Enrollments) SetStatusByOrder(_ context.Context, orderID string, status model.EnrollmentStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i := range r.s.enrollments {
		if orderID != "" && r.s.enrollments[i].OrderID == orderID {
			r.s.enrollments[i].Status = status
			return nil
		}
	}
	return repository.ErrNotFound
}

func (r *Enrollments) ExpireTemporary(_ context.Context, now time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for i := range r.s.enrollments {
		e := &r.s.enrollments[i]
		if e.IsTemporary && e.Status == model.EnrollmentActive && e.ExpiresAt != nil && !now.Before(*e.ExpiresAt) {
			e.Status = model.EnrollmentExpired
			n++
		}
	}
	return n, nil
}
