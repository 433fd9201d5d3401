package sqlx

import (
	"fmt"
	"strings"

	"github.com/kcmvp/geoadmin/entity"
	"github.com/samber/lo"
)

// -----------------------------
// Internal SQL builders
// -----------------------------
//
// Identifiers come from entity descriptors only. Every value is a bind parameter.

// placeholders returns n placeholders starting at the 1-based position from.
func placeholders(d Dialect, from, n int) []string {
	return lo.Times(n, func(i int) string { return d.Placeholder(from + i) })
}

// assignments renders "col = ?" pairs starting at the 1-based position from.
func assignments(d Dialect, cols []string, from int) []string {
	return lo.Map(cols, func(col string, i int) string {
		return fmt.Sprintf("%s = %s", col, d.Placeholder(from+i))
	})
}

func keyWhere(d Dialect, keys []string, from int) string {
	return strings.Join(assignments(d, keys, from), " AND ")
}

func countSQL[T entity.Entity]() string {
	return fmt.Sprintf("SELECT COUNT(*) FROM %s", entity.Table[T]())
}

// selectPageSQL orders by the key columns so the rank of a row is stable between pages.
func selectPageSQL[T entity.Entity](d Dialect, lower, upper int64) (string, []any) {
	var ent T
	query := fmt.Sprintf(
		"SELECT %s FROM %s ORDER BY %s LIMIT %s OFFSET %s",
		strings.Join(ent.Columns(), ", "),
		ent.Table(),
		strings.Join(ent.Keys(), ", "),
		d.Placeholder(1),
		d.Placeholder(2),
	)
	return query, []any{upper - lower + 1, lower - 1}
}

func selectByKeySQL[T entity.Entity](d Dialect, key T) (string, []any) {
	query := fmt.Sprintf(
		"SELECT %s FROM %s WHERE %s",
		strings.Join(key.Columns(), ", "),
		key.Table(),
		keyWhere(d, key.Keys(), 1),
	)
	return query, key.KeyValues()
}

func insertSQL[T entity.Entity](d Dialect, v T) (string, []any) {
	cols := v.Columns()
	query := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)",
		v.Table(),
		strings.Join(cols, ", "),
		strings.Join(placeholders(d, 1, len(cols)), ", "),
	)
	return query, v.Values()
}

// updateSQL sets every column from newer and matches the row on the keys of older.
func updateSQL[T entity.Entity](d Dialect, older, newer T) (string, []any) {
	cols := newer.Columns()
	query := fmt.Sprintf(
		"UPDATE %s SET %s WHERE %s",
		newer.Table(),
		strings.Join(assignments(d, cols, 1), ", "),
		keyWhere(d, older.Keys(), len(cols)+1),
	)
	args := make([]any, 0, len(cols)+len(older.Keys()))
	args = append(args, newer.Values()...)
	args = append(args, older.KeyValues()...)
	return query, args
}

func deleteSQL[T entity.Entity](d Dialect, v T) (string, []any) {
	query := fmt.Sprintf("DELETE FROM %s WHERE %s", v.Table(), keyWhere(d, v.Keys(), 1))
	return query, v.KeyValues()
}
