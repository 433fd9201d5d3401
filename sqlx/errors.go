package sqlx

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"slices"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

// Error taxonomy shared by the engine, the pool and the HTTP layer.
// Errors returned by this package wrap exactly one of these plus the driver error.
var (
	ErrConnection          = errors.New("connection error")
	ErrPoolExhausted       = errors.New("connection pool exhausted")
	ErrQueryFailed         = errors.New("query failed")
	ErrConstraintViolation = errors.New("constraint violation")
	ErrKeyNotFound         = errors.New("key not found")
	ErrDeserialization     = errors.New("deserialization error")
	ErrInvalidArgument     = errors.New("invalid argument")
	// ErrInternal marks branches that should not be reachable, e.g. COUNT(*) without a row.
	ErrInternal = errors.New("internal error")
)

// mysql error numbers raised by integrity checks.
var mysqlConstraintCodes = []uint16{
	1022, // ER_DUP_KEY
	1048, // ER_BAD_NULL_ERROR
	1062, // ER_DUP_ENTRY
	1169, // ER_DUP_UNIQUE
	1216, // ER_NO_REFERENCED_ROW
	1217, // ER_ROW_IS_REFERENCED
	1451, // ER_ROW_IS_REFERENCED_2
	1452, // ER_NO_REFERENCED_ROW_2
	1557, // ER_FOREIGN_DUPLICATE_KEY
	3819, // ER_CHECK_CONSTRAINT_VIOLATED
}

// IsConstraint reports whether err is an integrity constraint violation raised by
// any of the supported drivers.
func IsConstraint(err error) bool {
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.Code == sqlite3.ErrConstraint
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code.Class() == "23"
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return strings.HasPrefix(pgErr.Code, "23")
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return slices.Contains(mysqlConstraintCodes, myErr.Number)
	}
	return false
}

// IsConnection reports whether err originates from the transport rather than from the
// statement itself.
func IsConnection(err error) bool {
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) ||
		errors.Is(err, mysql.ErrInvalidConn) || errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled) {
		return true
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.Code == sqlite3.ErrCantOpen || liteErr.Code == sqlite3.ErrNotADB
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code.Class() == "08"
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return strings.HasPrefix(pgErr.Code, "08")
	}
	var netErr net.Error
	return errors.As(err, &netErr) || pgconn.Timeout(err)
}

// Classify wraps a driver error with its taxonomy sentinel.
func Classify(op string, err error) error {
	if err == nil {
		return nil
	}
	switch {
	case IsConstraint(err):
		return fmt.Errorf("%s: %w: %w", op, ErrConstraintViolation, err)
	case IsConnection(err):
		return fmt.Errorf("%s: %w: %w", op, ErrConnection, err)
	default:
		return fmt.Errorf("%s: %w: %w", op, ErrQueryFailed, err)
	}
}
