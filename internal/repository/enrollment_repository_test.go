package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/designengineer/course-api/internal/model"
)

func TestEnrollmentRepo_Create(t *testing.T) {
	ctx := context.Background()
	db, mock := newMock(t)
	repo := NewEnrollmentRepo(db)

	mock.ExpectExec(sqlText("INSERT INTO enrollments (slug, user_id")).
		WithArgs("enrollment-8001", "user_9", "101", "design_web", sqlmock.AnyArg(),
			"cus_1", "8001", "navy.mil", "active", false, nil, nil, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(17, 1))

	e := model.Enrollment{
		Slug: "enrollment-8001", UserID: "user_9", ProductID: "101", AccessLevel: model.AccessDesignWeb,
		PurchasedAt: testNow, CustomerID: "cus_1", OrderID: "8001", EmailDomain: "navy.mil",
	}
	require.NoError(t, repo.Create(ctx, &e))
	assert.Equal(t, uint64(17), e.ID)
	assert.Equal(t, model.EnrollmentActive, e.Status)
	assert.False(t, e.CreatedAt.IsZero())
}

func TestEnrollmentRepo_CreateErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("replayed order", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectExec(sqlText("INSERT INTO enrollments")).WillReturnError(duplicateEntry())
		err := NewEnrollmentRepo(db).Create(ctx, &model.Enrollment{Slug: "s", UserID: "u", OrderID: "8001"})
		assert.ErrorIs(t, err, ErrConflict)
	})

	t.Run("driver failure passes through", func(t *testing.T) {
		db, mock := newMock(t)
		boom := errors.New("bad connection")
		mock.ExpectExec(sqlText("INSERT INTO enrollments")).WillReturnError(boom)
		err := NewEnrollmentRepo(db).Create(ctx, &model.Enrollment{Slug: "s", UserID: "u"})
		assert.ErrorIs(t, err, boom)
		assert.NotErrorIs(t, err, ErrConflict)
	})
}

func TestEnrollmentRepo_GetByOrderID(t *testing.T) {
	ctx := context.Background()
	db, mock := newMock(t)
	repo := NewEnrollmentRepo(db)
	expires := testNow.Add(72 * time.Hour)

	mock.ExpectQuery(sqlText("FROM enrollments WHERE lemon_squeezy_order_id=? LIMIT 1")).WithArgs("8001").
		WillReturnRows(sqlmock.NewRows(enrollmentCols).AddRow(
			17, "enrollment-8001", "user_9", "109", "Bundle", testNow,
			"cus_1", "8001", "navy.mil", "refunded", false, nil, expires, testNow))

	e, err := repo.GetByOrderID(ctx, "8001")
	require.NoError(t, err)
	assert.Equal(t, uint64(17), e.ID)
	assert.Equal(t, "enrollment-8001", e.Slug)
	assert.Equal(t, "user_9", e.UserID)
	assert.Equal(t, "109", e.ProductID)
	assert.Equal(t, model.AccessFull, e.AccessLevel, "legacy alias normalized on read")
	assert.Equal(t, "cus_1", e.CustomerID)
	assert.Equal(t, "8001", e.OrderID)
	assert.Equal(t, "navy.mil", e.EmailDomain)
	assert.Equal(t, model.EnrollmentRefunded, e.Status)
	assert.Empty(t, e.TemporarySource)
	require.NotNil(t, e.ExpiresAt)
	assert.Equal(t, expires, *e.ExpiresAt)

	mock.ExpectQuery(sqlText("FROM enrollments WHERE lemon_squeezy_order_id=? LIMIT 1")).WithArgs("9999").
		WillReturnRows(sqlmock.NewRows(enrollmentCols))
	_, err = repo.GetByOrderID(ctx, "9999")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEnrollmentRepo_SetStatusByOrder(t *testing.T) {
	ctx := context.Background()
	db, mock := newMock(t)
	repo := NewEnrollmentRepo(db)

	mock.ExpectExec(sqlText("UPDATE enrollments SET status=? WHERE lemon_squeezy_order_id=?")).
		WithArgs("refunded", "8001").WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.SetStatusByOrder(ctx, "8001", model.EnrollmentRefunded))

	mock.ExpectExec(sqlText("UPDATE enrollments SET status=?")).
		WithArgs("refunded", "9999").WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.SetStatusByOrder(ctx, "9999", model.EnrollmentRefunded), ErrNotFound)
}
