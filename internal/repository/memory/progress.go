package memory

import (
	"context"
	"sort"

	"github.com/designengineer/course-api/internal/model"
	"github.com/designengineer/course-api/internal/repository"
)

type Progress struct{ s *Store }

func (r *Progress) Get(_ context.Context, userID, lessonPath string) (model.LessonProgress, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.progress[userID][lessonPath]
	if !ok {
		return model.LessonProgress{}, repository.ErrNotFound
	}
	return p, nil
}

func (r *Progress) ListByUser(_ context.Context, userID string) ([]model.LessonProgress, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []model.LessonProgress
	for _, p := range r.s.progress[userID] {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LessonPath < out[j].LessonPath })
	return out, nil
}

// Record merges d into the stored row under the store lock.
func (r *Progress) Record(_ context.Context, d model.LessonProgress) (model.LessonProgress, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rows := r.s.progress[d.UserID]
	if rows == nil {
		rows = map[string]model.LessonProgress{}
		r.s.progress[d.UserID] = rows
	}
	p := rows[d.LessonPath].Apply(d)
	rows[d.LessonPath] = p
	return p, nil
}
