package repository

import (
	"context"
	"database/sql"

	"github.com/designengineer/course-api/internal/model"
)

// ProgressRepo stores per-lesson progress rows keyed by (user_id, lesson_path).
type ProgressRepo struct{ DB *sql.DB }

func NewProgressRepo(db *sql.DB) *ProgressRepo { return &ProgressRepo{DB: db} }

func scanProgress(s rowScanner) (model.LessonProgress, error) {
	var (
		p                  model.LessonProgress
		status             string
		started, completed sql.NullTime
	)
	if err := s.Scan(&p.UserID, &p.LessonPath, &status, &p.TimeSpentSeconds, &started, &completed, &p.UpdatedAt); err != nil {
		return p, err
	}
	p.Status = model.LessonStatus(status)
	p.StartedAt = timePtr(started)
	p.CompletedAt = timePtr(completed)
	return p, nil
}

// ListByUser returns every progress row of userID ordered by path.
func (r *ProgressRepo) ListByUser(ctx context.Context, userID string) ([]model.LessonProgress, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT user_id, lesson_path, status, time_spent_seconds, started_at, completed_at, updated_at
		 FROM lesson_progress WHERE user_id=? ORDER BY lesson_path`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.LessonProgress
	for rows.Next() {
		p, err := scanProgress(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

const selectProgress = `SELECT user_id, lesson_path, status, time_spent_seconds, started_at, completed_at, updated_at
	FROM lesson_progress WHERE user_id=? AND lesson_path=?`

// Record upserts the beacon d in one statement so concurrent beacons add
// up, then reads the merged row back inside the same transaction.
func (r *ProgressRepo) Record(ctx context.Context, d model.LessonProgress) (p model.LessonProgress, err error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return p, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	if _, err = tx.ExecContext(ctx,
		`INSERT INTO lesson_progress (user_id, lesson_path, status, time_spent_seconds, started_at, completed_at, updated_at)
		 VALUES (?,?,?,?,?,?,?)
		 ON DUPLICATE KEY UPDATE
			time_spent_seconds = time_spent_seconds + VALUES(time_spent_seconds),
			started_at = COALESCE(started_at, VALUES(started_at)),
			completed_at = COALESCE(completed_at, VALUES(completed_at)),
			status = IF(status='completed', 'completed', VALUES(status)),
			updated_at = VALUES(updated_at)`,
		d.UserID, d.LessonPath, string(d.Status), d.TimeSpentSeconds,
		nullTime(d.StartedAt), nullTime(d.CompletedAt), d.UpdatedAt.UTC()); err != nil {
		return p, err
	}
	if p, err = scanProgress(tx.QueryRowContext(ctx, selectProgress, d.UserID, d.LessonPath)); err != nil {
		return p, err
	}
	err = tx.Commit()
	return p, err
}
