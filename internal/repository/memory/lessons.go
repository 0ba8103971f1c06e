package memory

import (
	"context"

	"github.com/designengineer/course-api/internal/model"
)

type Lessons struct{ s *Store }

func (r *Lessons) ListTrack(_ context.Context, track model.Track, platform model.Platform) ([]model.Lesson, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []model.Lesson
	for _, l := range r.s.lessons {
		if l.Track == track && l.Platform == platform {
			out = append(out, l)
		}
	}
	sortLessons(out)
	return out, nil
}

func (r *Lessons) ListAll(_ context.Context) ([]model.Lesson, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]model.Lesson, 0, len(r.s.lessons))
	for _, l := range r.s.lessons {
		out = append(out, l)
	}
	sortLessons(out)
	return out, nil
}

func (r *Lessons) Upsert(_ context.Context, l model.Lesson) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.lessons[l.Path] = l
	return nil
}
