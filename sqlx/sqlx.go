// Package sqlx maps entity descriptors onto SQL CRUD statements.
//
// Every mutating operation is a single statement committed on its own; there is no
// cross-call transaction.
package sqlx

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/kcmvp/geoadmin/entity"
	"github.com/samber/mo"
)

// Page converts a 1-based page index and a page size into the closed rank range
// [lower, upper] expected by Load.
func Page(pageIndex, pageSize int64) (lower, upper int64, err error) {
	if pageIndex < 1 || pageSize < 1 {
		return 0, 0, fmt.Errorf("%w: page_index=%d page_size=%d", ErrInvalidArgument, pageIndex, pageSize)
	}
	return (pageIndex-1)*pageSize + 1, pageSize * pageIndex, nil
}

// Count returns the number of rows of T's table.
func Count[T entity.Entity](ctx context.Context, conn Conn) (int64, error) {
	table := entity.Table[T]()
	rows, err := conn.QueryContext(ctx, countSQL[T]())
	if err != nil {
		return 0, Classify("count "+table, err)
	}
	defer func() { _ = rows.Close() }()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return 0, Classify("count "+table, err)
		}
		return 0, fmt.Errorf("count %s: %w: no row returned", table, ErrInternal)
	}
	var n int64
	if err := rows.Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w: %w", table, ErrDeserialization, err)
	}
	return n, Classify("count "+table, rows.Err())
}

// Load returns the rows ranked lower..upper (1-based, inclusive) in ascending key order.
func Load[T entity.Entity, PT entity.Ptr[T]](ctx context.Context, conn Conn, lower, upper int64) ([]T, error) {
	table := entity.Table[T]()
	if lower < 1 || upper < lower {
		return nil, fmt.Errorf("load %s: %w: range [%d, %d]", table, ErrInvalidArgument, lower, upper)
	}
	query, args := selectPageSQL[T](conn.Dialect(), lower, upper)
	rows, err := conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, Classify("load "+table, err)
	}
	return scanAll[T, PT](rows, "load "+table)
}

// Find looks a row up by the key values of key. Non-key fields of key are ignored.
func Find[T entity.Entity, PT entity.Ptr[T]](ctx context.Context, conn Conn, key T) (mo.Option[T], error) {
	op := "find " + key.Table()
	query, args := selectByKeySQL(conn.Dialect(), key)
	rows, err := conn.QueryContext(ctx, query, args...)
	if err != nil {
		return mo.None[T](), Classify(op, err)
	}
	found, err := scanAll[T, PT](rows, op)
	if err != nil {
		return mo.None[T](), err
	}
	if len(found) == 0 {
		return mo.None[T](), nil
	}
	return mo.Some(found[0]), nil
}

// Insert writes v as a new row.
func Insert[T entity.Entity](ctx context.Context, conn Conn, v T) error {
	query, args := insertSQL(conn.Dialect(), v)
	_, err := conn.ExecContext(ctx, query, args...)
	return Classify("insert "+v.Table(), err)
}

// Update replaces the row identified by the keys of older with the columns of newer.
//
// The key check and the write are one conditional statement: if no row matches the
// keys of older any more, nothing is written and ErrKeyNotFound is returned.
func Update[T entity.Entity](ctx context.Context, conn Conn, older, newer T) error {
	op := "update " + newer.Table()
	query, args := updateSQL(conn.Dialect(), older, newer)
	res, err := conn.ExecContext(ctx, query, args...)
	if err != nil {
		return Classify(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return Classify(op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w: %v", op, ErrKeyNotFound, older.KeyValues())
	}
	return nil
}

// Delete removes the row identified by the keys of v. Deleting an absent key succeeds.
func Delete[T entity.Entity](ctx context.Context, conn Conn, v T) error {
	query, args := deleteSQL(conn.Dialect(), v)
	_, err := conn.ExecContext(ctx, query, args...)
	return Classify("delete "+v.Table(), err)
}

// scanAll drains and closes rows. Each row must provide exactly the declared columns.
func scanAll[T entity.Entity, PT entity.Ptr[T]](rows *sql.Rows, op string) ([]T, error) {
	defer func() { _ = rows.Close() }()

	var zero T
	cols, err := rows.Columns()
	if err != nil {
		return nil, Classify(op, err)
	}
	if len(cols) != len(zero.Columns()) {
		return nil, fmt.Errorf("%s: %w: got %d columns, want %d", op, ErrDeserialization, len(cols), len(zero.Columns()))
	}

	out := make([]T, 0)
	for rows.Next() {
		var v T
		if err := rows.Scan(PT(&v).Pointers()...); err != nil {
			return nil, fmt.Errorf("%s: %w: %w", op, ErrDeserialization, err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, Classify(op, err)
	}
	return out, nil
}
