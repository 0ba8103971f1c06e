package memory

import (
	"context"

	"github.com/designengineer/course-api/internal/model"
	"github.com/designengineer/course-api/internal/repository"
)

type Certificates struct{ s *Store }

func (r *Certificates) Create(_ context.Context, c *model.Certificate) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, x := range r.s.certificates {
		if x.Slug == c.Slug || (x.UserID == c.UserID && x.Platform == c.Platform && x.Track == c.Track) {
			return repository.ErrConflict
		}
	}
	r.s.nextCertID++
	c.ID = r.s.nextCertID
	r.s.certificates = append(r.s.certificates, *c)
	return nil
}

func (r *Certificates) GetBySlug(_ context.Context, slug string) (model.Certificate, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, c := range r.s.certificates {
		if c.Slug == slug {
			return c, nil
		}
	}
	return model.Certificate{}, repository.ErrNotFound
}

func (r *Certificates) Get(_ context.Context, userID string, platform model.Platform, track model.Track) (model.Certificate, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, c := range r.s.certificates {
		if c.UserID == userID && c.Platform == platform && c.Track == track {
			return c, nil
		}
	}
	return model.Certificate{}, repository.ErrNotFound
}

func (r *Certificates) ListByUser(_ context.Context, userID string) ([]model.Certificate, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []model.Certificate
	for _, c := range r.s.certificates {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	return out, nil
}
