package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/designengineer/course-api/internal/model"
)

var progressCols = []string{"user_id", "lesson_path", "status", "time_spent_seconds", "started_at", "completed_at", "updated_at"}

func TestProgressRepo_RecordAccumulatesInOneStatement(t *testing.T) {
	db, mock := newMock(t)
	path := "design-track/web/02-color/01-basics"

	mock.ExpectBegin()
	mock.ExpectExec(sqlText("time_spent_seconds = time_spent_seconds + VALUES(time_spent_seconds)")).
		WithArgs("user_1", path, "in_progress", int64(30), sqlmock.AnyArg(), nil, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectQuery(sqlText("FROM lesson_progress WHERE user_id=? AND lesson_path=?")).WithArgs("user_1", path).
		WillReturnRows(sqlmock.NewRows(progressCols).
			AddRow("user_1", path, "completed", int64(330), testNow, testNow, testNow))
	mock.ExpectCommit()

	now := testNow
	p, err := NewProgressRepo(db).Record(context.Background(), model.LessonProgress{
		UserID: "user_1", LessonPath: path, Status: model.LessonInProgress,
		TimeSpentSeconds: 30, StartedAt: &now, UpdatedAt: now,
	})
	require.NoError(t, err)
	assert.Equal(t, model.LessonCompleted, p.Status)
	assert.Equal(t, int64(330), p.TimeSpentSeconds)
	assert.NotNil(t, p.CompletedAt)
}

func TestProgressRepo_RecordRollsBack(t *testing.T) {
	db, mock := newMock(t)
	boom := errors.New("lock wait timeout")

	mock.ExpectBegin()
	mock.ExpectExec(sqlText("INSERT INTO lesson_progress")).WillReturnError(boom)
	mock.ExpectRollback()

	_, err := NewProgressRepo(db).Record(context.Background(), model.LessonProgress{
		UserID: "user_1", LessonPath: "x/y", Status: model.LessonInProgress, UpdatedAt: testNow,
	})
	assert.ErrorIs(t, err, boom)
}
