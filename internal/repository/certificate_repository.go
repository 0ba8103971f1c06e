package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/designengineer/course-api/internal/model"
)

// CertificateRepo stores issued certificates.  Rows are never updated.
type CertificateRepo struct{ DB *sql.DB }

func NewCertificateRepo(db *sql.DB) *CertificateRepo { return &CertificateRepo{DB: db} }

const certificateColumns = `id, slug, title, user_id, user_name, user_email, platform, track,
	certificate_number, issued_at, design_completed_at, engineering_completed_at,
	convergence_completed_at, completed_at, total_time_spent_seconds`

func scanCertificate(s rowScanner) (model.Certificate, error) {
	var (
		c                            model.Certificate
		platform, track              string
		design, eng, conv, completed sql.NullTime
	)
	err := s.Scan(&c.ID, &c.Slug, &c.Title, &c.UserID, &c.UserName, &c.UserEmail, &platform, &track,
		&c.CertificateNumber, &c.IssuedAt, &design, &eng, &conv, &completed, &c.TotalTimeSpentSeconds)
	if err != nil {
		return c, err
	}
	c.Platform = model.Platform(platform)
	c.Track = model.Track(track)
	c.DesignCompletedAt = timePtr(design)
	c.EngineeringCompletedAt = timePtr(eng)
	c.ConvergenceCompletedAt = timePtr(conv)
	c.CompletedAt = timePtr(completed)
	return c, nil
}

// Create inserts c.  A certificate already issued for the same user,
// platform and track yields ErrConflict.
func (r *CertificateRepo) Create(ctx context.Context, c *model.Certificate) error {
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO certificates (slug, title, user_id, user_name, user_email, platform, track,
			certificate_number, issued_at, design_completed_at, engineering_completed_at,
			convergence_completed_at, completed_at, total_time_spent_seconds)
		 VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		c.Slug, c.Title, c.UserID, c.UserName, c.UserEmail, string(c.Platform), string(c.Track),
		c.CertificateNumber, c.IssuedAt.UTC(), nullTime(c.DesignCompletedAt), nullTime(c.EngineeringCompletedAt),
		nullTime(c.ConvergenceCompletedAt), nullTime(c.CompletedAt), c.TotalTimeSpentSeconds)
	if err != nil {
		if isDuplicate(err) {
			return ErrConflict
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	c.ID = uint64(id)
	return nil
}

// GetBySlug is the public verification lookup.
func (r *CertificateRepo) GetBySlug(ctx context.Context, slug string) (model.Certificate, error) {
	c, err := scanCertificate(r.DB.QueryRowContext(ctx,
		"SELECT "+certificateColumns+" FROM certificates WHERE slug=? LIMIT 1", slug))
	if errors.Is(err, sql.ErrNoRows) {
		return c, ErrNotFound
	}
	return c, err
}

// Get returns the certificate of userID for platform and track ("" for the
// platform certificate).
func (r *CertificateRepo) Get(ctx context.Context, userID string, platform model.Platform, track model.Track) (model.Certificate, error) {
	c, err := scanCertificate(r.DB.QueryRowContext(ctx,
		"SELECT "+certificateColumns+" FROM certificates WHERE user_id=? AND platform=? AND track=? LIMIT 1",
		userID, string(platform), string(track)))
	if errors.Is(err, sql.ErrNoRows) {
		return c, ErrNotFound
	}
	return c, err
}

// ListByUser returns all certificates of userID, oldest first.
func (r *CertificateRepo) ListByUser(ctx context.Context, userID string) ([]model.Certificate, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+certificateColumns+" FROM certificates WHERE user_id=? ORDER BY issued_at, id", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Certificate
	for rows.Next() {
		c, err := scanCertificate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
