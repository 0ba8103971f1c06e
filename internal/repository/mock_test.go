package repository

import (
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

// newMock returns a sqlmock-backed DB whose expectations are checked when
// the test ends.
func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return db, mock
}

// sqlText matches a literal statement fragment.
func sqlText(s string) string { return regexp.QuoteMeta(s) }

func duplicateEntry() error {
	return &mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'x' for key 'PRIMARY'"}
}

var enrollmentCols = []string{"id", "slug", "user_id", "product_id", "access_level", "purchased_at",
	"lemon_squeezy_customer_id", "lemon_squeezy_order_id", "email_domain", "status",
	"is_temporary", "temporary_source", "expires_at", "created_at"}

var codeCols = []string{"code", "access_level", "expires_at", "max_redemptions", "status", "created_at"}

func TestIsDuplicate(t *testing.T) {
	assert.True(t, isDuplicate(duplicateEntry()))
	assert.False(t, isDuplicate(&mysql.MySQLError{Number: 1213, Message: "Deadlock found"}))
	assert.False(t, isDuplicate(nil))
}
