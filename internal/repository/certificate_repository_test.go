package repository

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/designengineer/course-api/internal/model"
)

func newCertificate() *model.Certificate {
	done := testNow
	return &model.Certificate{
		Slug: "dxe-web-ada", Title: "Design Engineer: Web", UserID: "user_1", UserName: "Ada Lovelace",
		UserEmail: "ada@studio.dev", Platform: model.PlatformWeb, CertificateNumber: "DXE-WEB-0001",
		IssuedAt: testNow, DesignCompletedAt: &done, CompletedAt: &done, TotalTimeSpentSeconds: 5400,
	}
}

func TestCertificateRepo_Create(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec(sqlText("INSERT INTO certificates (slug, title, user_id")).
		WithArgs("dxe-web-ada", "Design Engineer: Web", "user_1", "Ada Lovelace", "ada@studio.dev", "web", "",
			"DXE-WEB-0001", sqlmock.AnyArg(), sqlmock.AnyArg(), nil, nil, sqlmock.AnyArg(), int64(5400)).
		WillReturnResult(sqlmock.NewResult(5, 1))

	c := newCertificate()
	require.NoError(t, NewCertificateRepo(db).Create(context.Background(), c))
	assert.Equal(t, uint64(5), c.ID)
}

func TestCertificateRepo_CreateConflict(t *testing.T) {
	// UNIQUE(user_id, platform, track) rejects a second platform certificate.
	db, mock := newMock(t)
	mock.ExpectExec(sqlText("INSERT INTO certificates")).WillReturnError(duplicateEntry())

	c := newCertificate()
	err := NewCertificateRepo(db).Create(context.Background(), c)
	assert.ErrorIs(t, err, ErrConflict)
	assert.Zero(t, c.ID)
}

func TestCertificateRepo_GetBySlug(t *testing.T) {
	ctx := context.Background()
	db, mock := newMock(t)
	repo := NewCertificateRepo(db)
	cols := []string{"id", "slug", "title", "user_id", "user_name", "user_email", "platform", "track",
		"certificate_number", "issued_at", "design_completed_at", "engineering_completed_at",
		"convergence_completed_at", "completed_at", "total_time_spent_seconds"}

	mock.ExpectQuery(sqlText("FROM certificates WHERE slug=? LIMIT 1")).WithArgs("dxe-ios-ada").
		WillReturnRows(sqlmock.NewRows(cols).AddRow(
			6, "dxe-ios-ada", "Design Track: iOS", "user_1", "Ada Lovelace", "ada@studio.dev", "ios", "design",
			"DXE-IOS-0002", testNow, testNow, nil, nil, testNow, int64(1200)))

	c, err := repo.GetBySlug(ctx, "dxe-ios-ada")
	require.NoError(t, err)
	assert.Equal(t, uint64(6), c.ID)
	assert.Equal(t, model.PlatformIOS, c.Platform)
	assert.Equal(t, model.TrackDesign, c.Track)
	assert.Equal(t, "DXE-IOS-0002", c.CertificateNumber)
	require.NotNil(t, c.DesignCompletedAt)
	assert.Nil(t, c.EngineeringCompletedAt)
	assert.Equal(t, int64(1200), c.TotalTimeSpentSeconds)

	mock.ExpectQuery(sqlText("FROM certificates WHERE slug=?")).WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(cols))
	_, err = repo.GetBySlug(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}
