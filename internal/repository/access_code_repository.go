package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/designengineer/course-api/internal/model"
)

// AccessCodeRepo stores temporary access codes and their redemptions.
type AccessCodeRepo struct{ DB *sql.DB }

func NewAccessCodeRepo(db *sql.DB) *AccessCodeRepo { return &AccessCodeRepo{DB: db} }

// Create inserts a code.  Codes must already be canonical.
func (r *AccessCodeRepo) Create(ctx context.Context, c *model.TemporaryAccessCode) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	if c.Status == "" {
		c.Status = model.CodeActive
	}
	var limit sql.NullInt64
	if c.MaxRedemptions != nil {
		limit = sql.NullInt64{Int64: int64(*c.MaxRedemptions), Valid: true}
	}
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO temporary_access_codes (code, access_level, expires_at, max_redemptions, status, created_at) VALUES (?,?,?,?,?,?)",
		c.Code, string(c.AccessLevel), c.ExpiresAt.UTC(), limit, string(c.Status), c.CreatedAt.UTC())
	if isDuplicate(err) {
		return ErrConflict
	}
	return err
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func scanCode(s rowScanner) (model.TemporaryAccessCode, error) {
	var (
		c             model.TemporaryAccessCode
		level, status string
		limit         sql.NullInt64
	)
	if err := s.Scan(&c.Code, &level, &c.ExpiresAt, &limit, &status, &c.CreatedAt); err != nil {
		return c, err
	}
	c.AccessLevel = model.ResolveAccessLevel(level)
	c.Status = model.CodeStatus(status)
	if limit.Valid {
		n := int(limit.Int64)
		c.MaxRedemptions = &n
	}
	c.RedeemedBy = []string{}
	return c, nil
}

func redeemedBy(ctx context.Context, q queryer, code string) ([]string, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT user_id FROM temporary_access_redemptions WHERE code=? ORDER BY redeemed_at", code)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []string{}
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// Get returns a code with its redemption list.
func (r *AccessCodeRepo) Get(ctx context.Context, code string) (model.TemporaryAccessCode, error) {
	c, err := scanCode(r.DB.QueryRowContext(ctx,
		"SELECT code, access_level, expires_at, max_redemptions, status, created_at FROM temporary_access_codes WHERE code=? LIMIT 1",
		code))
	if errors.Is(err, sql.ErrNoRows) {
		return c, ErrNotFound
	}
	if err != nil {
		return c, err
	}
	c.RedeemedBy, err = redeemedBy(ctx, r.DB, code)
	return c, err
}

// List returns every code, newest first.
func (r *AccessCodeRepo) List(ctx context.Context) ([]model.TemporaryAccessCode, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT code, access_level, expires_at, max_redemptions, status, created_at FROM temporary_access_codes ORDER BY created_at DESC, code")
	if err != nil {
		return nil, err
	}
	var out []model.TemporaryAccessCode
	for rows.Next() {
		c, err := scanCode(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		if out[i].RedeemedBy, err = redeemedBy(ctx, r.DB, out[i].Code); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// ExpireStale marks active codes past their expiry as expired.
func (r *AccessCodeRepo) ExpireStale(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE temporary_access_codes SET status='expired' WHERE status='active' AND expires_at <= ?", now.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Redeem atomically records a redemption of code by userID and inserts the
// enrollment built by grant.  The code row is locked for the duration of
// the transaction so concurrent redemptions serialize on the count check.
// The user's redemption_locks row serializes redemptions of different
// codes by one user, so the active enrollment check cannot be raced.
// UNIQUE(code, user_id) rejects a second redemption by the same user with
// ErrConflict.  Locks are always taken code first, then user.
func (r *AccessCodeRepo) Redeem(ctx context.Context, code, userID string, now time.Time,
	grant func(model.TemporaryAccessCode) model.Enrollment) (e model.Enrollment, err error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return e, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	c, err := scanCode(tx.QueryRowContext(ctx,
		"SELECT code, access_level, expires_at, max_redemptions, status, created_at FROM temporary_access_codes WHERE code=? FOR UPDATE",
		code))
	if errors.Is(err, sql.ErrNoRows) {
		return e, ErrNotFound
	}
	if err != nil {
		return e, err
	}
	if c.Status != model.CodeActive || !now.Before(c.ExpiresAt) {
		return e, ErrExpired
	}
	if c.MaxRedemptions != nil {
		var used int
		if err = tx.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM temporary_access_redemptions WHERE code=?", code).Scan(&used); err != nil {
			return e, err
		}
		if used >= *c.MaxRedemptions {
			return e, ErrExhausted
		}
	}

	if err = lockUser(ctx, tx, userID, now); err != nil {
		return e, err
	}
	active, err := activeEnrollmentsForUpdate(ctx, tx, userID)
	if err != nil {
		return e, err
	}
	if model.OtherActive(active, code, now) != nil {
		return e, ErrActiveEnrollment
	}

	e = grant(c)
	if err = insertEnrollment(ctx, tx, &e); err != nil {
		return e, err
	}
	if _, err = tx.ExecContext(ctx,
		"INSERT INTO temporary_access_redemptions (code, user_id, enrollment_id, redeemed_at) VALUES (?,?,?,?)",
		code, userID, e.ID, now.UTC()); err != nil {
		if isDuplicate(err) {
			err = ErrConflict
		}
		return e, err
	}
	err = tx.Commit()
	return e, err
}

// lockUser takes the per-user redemption guard.  The upsert blocks while
// another transaction holds the row.
func lockUser(ctx context.Context, tx *sql.Tx, userID string, now time.Time) error {
	_, err := tx.ExecContext(ctx,
		"INSERT INTO redemption_locks (user_id, locked_at) VALUES (?,?) ON DUPLICATE KEY UPDATE locked_at=VALUES(locked_at)",
		userID, now.UTC())
	return err
}

func activeEnrollmentsForUpdate(ctx context.Context, tx *sql.Tx, userID string) ([]model.Enrollment, error) {
	rows, err := tx.QueryContext(ctx,
		"SELECT "+enrollmentColumns+" FROM enrollments WHERE user_id=? AND status='active' FOR UPDATE", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Enrollment
	for rows.Next() {
		e, err := scanEnrollment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
