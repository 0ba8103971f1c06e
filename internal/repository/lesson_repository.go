package repository

import (
	"context"
	"database/sql"

	"github.com/designengineer/course-api/internal/model"
)

// LessonRepo reads the course catalog used for completion totals.
type LessonRepo struct{ DB *sql.DB }

func NewLessonRepo(db *sql.DB) *LessonRepo { return &LessonRepo{DB: db} }

// ListTrack returns the lessons of one track×platform in course order.
func (r *LessonRepo) ListTrack(ctx context.Context, track model.Track, platform model.Platform) ([]model.Lesson, error) {
	return r.query(ctx,
		"SELECT path, title, track, platform, position FROM course_lessons WHERE track=? AND platform=? ORDER BY position, path",
		string(track), string(platform))
}

// ListAll returns the full catalog.
func (r *LessonRepo) ListAll(ctx context.Context) ([]model.Lesson, error) {
	return r.query(ctx, "SELECT path, title, track, platform, position FROM course_lessons ORDER BY track, platform, position, path")
}

func (r *LessonRepo) query(ctx context.Context, q string, args ...any) ([]model.Lesson, error) {
	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Lesson
	for rows.Next() {
		var (
			l               model.Lesson
			track, platform string
		)
		if err := rows.Scan(&l.Path, &l.Title, &track, &platform, &l.Position); err != nil {
			return nil, err
		}
		l.Track = model.Track(track)
		l.Platform = model.Platform(platform)
		out = append(out, l)
	}
	return out, rows.Err()
}

// Upsert inserts or replaces one catalog entry.
func (r *LessonRepo) Upsert(ctx context.Context, l model.Lesson) error {
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO course_lessons (path, title, track, platform, position) VALUES (?,?,?,?,?)
		 ON DUPLICATE KEY UPDATE title=VALUES(title), track=VALUES(track), platform=VALUES(platform), position=VALUES(position)`,
		l.Path, l.Title, string(l.Track), string(l.Platform), l.Position)
	return err
}
