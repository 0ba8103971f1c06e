package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/designengineer/course-api/internal/access"
	"github.com/designengineer/course-api/internal/model"
)

// Progress records lesson progress and summarizes it per access level.
type Progress struct {
	store   ProgressStore
	lessons LessonStore
	ents    *Entitlements
	log     *zap.Logger

	Now func() time.Time
}

func NewProgress(store ProgressStore, lessons LessonStore, ents *Entitlements, log *zap.Logger) *Progress {
	if log == nil {
		log = zap.NewNop()
	}
	return &Progress{store: store, lessons: lessons, ents: ents, log: log, Now: time.Now}
}

// UpdateInput is one progress beacon from the lesson page.
type UpdateInput struct {
	UserID     string
	LessonPath string
	Status     model.LessonStatus
	TimeSpent  int64
}

// Update merges in into the stored row using LessonProgress.Apply.  The
// merge runs inside the store so concurrent beacons never lose time.
func (s *Progress) Update(ctx context.Context, in UpdateInput) (model.LessonProgress, error) {
	if in.UserID == "" {
		return model.LessonProgress{}, ErrUnauthorized
	}
	path := access.NormalizePath(in.LessonPath)
	if path == "" || in.Status == "" {
		return model.LessonProgress{}, fail(ErrInvalidInput, "Missing required fields")
	}
	if !in.Status.Valid() {
		return model.LessonProgress{}, fail(ErrInvalidInput, "Invalid status")
	}
	if in.TimeSpent < 0 {
		in.TimeSpent = 0
	}

	now := s.Now().UTC()
	beacon := model.LessonProgress{
		UserID:           in.UserID,
		LessonPath:       path,
		Status:           in.Status,
		TimeSpentSeconds: in.TimeSpent,
		StartedAt:        &now,
		UpdatedAt:        now,
	}
	if in.Status == model.LessonCompleted {
		beacon.CompletedAt = &now
	}
	p, err := s.store.Record(ctx, beacon)
	if err != nil {
		return model.LessonProgress{}, fmt.Errorf("record progress: %w", err)
	}
	return p, nil
}

// Get returns the user's progress rows and the stats for their level.
func (s *Progress) Get(ctx context.Context, userID string) ([]model.LessonProgress, model.ProgressStats, error) {
	if userID == "" {
		return nil, model.ProgressStats{}, ErrUnauthorized
	}
	rows, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, model.ProgressStats{}, fmt.Errorf("list progress: %w", err)
	}
	if rows == nil {
		rows = []model.LessonProgress{}
	}
	acc, err := s.ents.Resolve(ctx, userID)
	if err != nil {
		return nil, model.ProgressStats{}, err
	}
	catalog, err := s.lessons.ListAll(ctx)
	if err != nil {
		return nil, model.ProgressStats{}, fmt.Errorf("list lessons: %w", err)
	}
	return rows, Stats(rows, catalog, acc.Level), nil
}

// Stats summarizes rows for level.  Only lessons level can open count,
// and counts are capped by the number of catalog lessons level can open so
// stale rows never report more than 100%.
func Stats(rows []model.LessonProgress, catalog []model.Lesson, level model.AccessLevel) model.ProgressStats {
	total := 0
	for _, l := range catalog {
		if access.CanAccessLesson(level, l.Path) {
			total++
		}
	}
	var completed, inProgress int
	var spent int64
	for _, p := range rows {
		spent += p.TimeSpentSeconds
		if !access.CanAccessLesson(level, p.LessonPath) {
			continue
		}
		switch p.Status {
		case model.LessonCompleted:
			completed++
		case model.LessonInProgress:
			inProgress++
		}
	}
	completed = min(completed, total)
	inProgress = min(inProgress, total-completed)
	pct := 0
	if total > 0 {
		pct = min(100, int(math.Round(float64(completed)*100/float64(total))))
	}
	return model.ProgressStats{
		TotalLessons:         total,
		CompletedCount:       completed,
		InProgressCount:      inProgress,
		CompletionPercentage: pct,
		TotalTimeSpent:       spent,
		TotalTimeFormatted:   FormatDuration(spent),
		AccessLevel:          level,
	}
}

// FormatDuration renders seconds as "Xh Ym", or "Ym" under an hour.
func FormatDuration(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	h := seconds / 3600
	m := (seconds % 3600) / 60
	if h > 0 {
		return fmt.Sprintf("%dh %dm", h, m)
	}
	return fmt.Sprintf("%dm", m)
}
