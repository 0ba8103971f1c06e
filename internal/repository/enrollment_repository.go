package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/designengineer/course-api/internal/model"
)

// EnrollmentRepo stores enrollments.  A user may hold several rows; the
// service layer decides which one is effective.
type EnrollmentRepo struct{ DB *sql.DB }

func NewEnrollmentRepo(db *sql.DB) *EnrollmentRepo { return &EnrollmentRepo{DB: db} }

const enrollmentColumns = `id, slug, user_id, product_id, access_level, purchased_at,
	lemon_squeezy_customer_id, lemon_squeezy_order_id, email_domain, status,
	is_temporary, temporary_source, expires_at, created_at`

func scanEnrollment(s rowScanner) (model.Enrollment, error) {
	var (
		e                       model.Enrollment
		level, status           string
		customer, order, domain sql.NullString
		source                  sql.NullString
		expires                 sql.NullTime
	)
	err := s.Scan(&e.ID, &e.Slug, &e.UserID, &e.ProductID, &level, &e.PurchasedAt,
		&customer, &order, &domain, &status, &e.IsTemporary, &source, &expires, &e.CreatedAt)
	if err != nil {
		return e, err
	}
	e.AccessLevel = model.ResolveAccessLevel(level)
	e.Status = model.EnrollmentStatus(status)
	e.CustomerID = customer.String
	e.OrderID = order.String
	e.EmailDomain = domain.String
	e.TemporarySource = source.String
	e.ExpiresAt = timePtr(expires)
	return e, nil
}

// Create inserts e and fills its ID and CreatedAt.  A replayed order id or
// slug yields ErrConflict.
func (r *EnrollmentRepo) Create(ctx context.Context, e *model.Enrollment) error {
	return insertEnrollment(ctx, r.DB, e)
}

// execer is the subset shared by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertEnrollment(ctx context.Context, db execer, e *model.Enrollment) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	if e.Status == "" {
		e.Status = model.EnrollmentActive
	}
	res, err := db.ExecContext(ctx,
		`INSERT INTO enrollments (slug, user_id, product_id, access_level, purchased_at,
			lemon_squeezy_customer_id, lemon_squeezy_order_id, email_domain, status,
			is_temporary, temporary_source, expires_at, created_at)
		 VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		e.Slug, e.UserID, e.ProductID, string(e.AccessLevel), e.PurchasedAt.UTC(),
		nullString(e.CustomerID), nullString(e.OrderID), nullString(e.EmailDomain), string(e.Status),
		e.IsTemporary, nullString(e.TemporarySource), nullTime(e.ExpiresAt), e.CreatedAt.UTC())
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
	e.ID = uint64(id)
	return nil
}

// ListByUser returns every enrollment of userID, newest first.
func (r *EnrollmentRepo) ListByUser(ctx context.Context, userID string) ([]model.Enrollment, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+enrollmentColumns+" FROM enrollments WHERE user_id=? ORDER BY purchased_at DESC, id DESC",
		userID)
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

// GetByOrderID returns the enrollment created for a Lemon Squeezy order.
func (r *EnrollmentRepo) GetByOrderID(ctx context.Context, orderID string) (model.Enrollment, error) {
	e, err := scanEnrollment(r.DB.QueryRowContext(ctx,
		"SELECT "+enrollmentColumns+" FROM enrollments WHERE lemon_squeezy_order_id=? LIMIT 1", orderID))
	if errors.Is(err, sql.ErrNoRows) {
		return e, ErrNotFound
	}
	return e, err
}

// SetStatusByOrder changes the status of the enrollment for orderID.
func (r *EnrollmentRepo) SetStatusByOrder(ctx context.Context, orderID string, status model.EnrollmentStatus) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE enrollments SET status=? WHERE lemon_squeezy_order_id=?", string(status), orderID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ExpireTemporary marks active temporary enrollments past their expiry as
// expired and returns how many rows changed.
func (r *EnrollmentRepo) ExpireTemporary(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE enrollments SET status='expired'
		 WHERE is_temporary=1 AND status='active' AND expires_at IS NOT NULL AND expires_at <= ?`,
		now.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
