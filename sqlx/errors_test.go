package sqlx

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"sqlite unique", sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintPrimaryKey}, ErrConstraintViolation},
		{"sqlite busy", sqlite3.Error{Code: sqlite3.ErrBusy}, ErrQueryFailed},
		{"sqlite cantopen", sqlite3.Error{Code: sqlite3.ErrCantOpen}, ErrConnection},
		{"pq unique", &pq.Error{Code: "23505"}, ErrConstraintViolation},
		{"pq connection", &pq.Error{Code: "08006"}, ErrConnection},
		{"pq syntax", &pq.Error{Code: "42601"}, ErrQueryFailed},
		{"pgx foreign key", &pgconn.PgError{Code: "23503"}, ErrConstraintViolation},
		{"pgx undefined table", &pgconn.PgError{Code: "42P01"}, ErrQueryFailed},
		{"mysql duplicate", &mysql.MySQLError{Number: 1062}, ErrConstraintViolation},
		{"mysql check", &mysql.MySQLError{Number: 3819}, ErrConstraintViolation},
		{"mysql syntax", &mysql.MySQLError{Number: 1064}, ErrQueryFailed},
		{"bad conn", fmt.Errorf("wrapped: %w", driver.ErrBadConn), ErrConnection},
		{"mysql invalid conn", mysql.ErrInvalidConn, ErrConnection},
		{"unknown", errors.New("boom"), ErrQueryFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify("op", tt.err)
			require.ErrorIs(t, got, tt.want)
			require.ErrorIs(t, got, tt.err)
		})
	}
	require.NoError(t, Classify("op", nil))
}
