package entity

import (
	"errors"
	"fmt"

	"github.com/samber/lo"
)

// Entity defines the contract for database-aware models.
//
// Every method is written by hand for each type; nothing is discovered at runtime. Columns,
// Values and Pointers share one positional order, and Keys/KeyValues share another. SQL
// builders bind parameters by position, so the two orders are the whole contract.
type Entity interface {
	// Table returns the table name. It must be a constant.
	Table() string
	// Columns returns the column names in bind order.
	Columns() []string
	// Keys returns the primary-key columns, a non-empty subset of Columns.
	Keys() []string
	// Values returns the column values aligned with Columns.
	Values() []any
	// KeyValues returns the key values aligned with Keys.
	KeyValues() []any
}

// Scanner is implemented by pointer receivers that expose scan destinations
// aligned with Columns.
type Scanner interface {
	Pointers() []any
}

// Ptr is the constraint used by generic readers: PT is *T and can be scanned into.
// It lets callers allocate a T and fill it from a row without reflection.
type Ptr[T Entity] interface {
	*T
	Entity
	Scanner
}

// Nullable is implemented by entities with columns that may hold NULL. Only those
// columns may be left out of a request body.
type Nullable interface {
	Nullable() []string
}

var ErrMisaligned = errors.New("entity descriptor misaligned")

// Check verifies the descriptor invariants of e. It is used by tests and at router
// registration time so a mistake in a hand-written descriptor fails fast.
func Check[T Entity, PT Ptr[T]](e T) error {
	cols := e.Columns()
	keys := e.Keys()
	if e.Table() == "" {
		return fmt.Errorf("%w: %T has no table", ErrMisaligned, e)
	}
	if len(cols) == 0 {
		return fmt.Errorf("%w: %s has no columns", ErrMisaligned, e.Table())
	}
	if len(keys) == 0 {
		return fmt.Errorf("%w: %s has no key columns", ErrMisaligned, e.Table())
	}
	if dup := lo.FindDuplicates(cols); len(dup) > 0 {
		return fmt.Errorf("%w: %s has duplicated columns %v", ErrMisaligned, e.Table(), dup)
	}
	if missing, _ := lo.Difference(keys, cols); len(missing) > 0 {
		return fmt.Errorf("%w: %s key columns %v are not columns", ErrMisaligned, e.Table(), missing)
	}
	if n, ok := any(e).(Nullable); ok {
		nullable := n.Nullable()
		if missing, _ := lo.Difference(nullable, cols); len(missing) > 0 {
			return fmt.Errorf("%w: %s nullable columns %v are not columns", ErrMisaligned, e.Table(), missing)
		}
		if both := lo.Intersect(keys, nullable); len(both) > 0 {
			return fmt.Errorf("%w: %s key columns %v are nullable", ErrMisaligned, e.Table(), both)
		}
	}
	if n := len(e.Values()); n != len(cols) {
		return fmt.Errorf("%w: %s has %d values for %d columns", ErrMisaligned, e.Table(), n, len(cols))
	}
	if n := len(e.KeyValues()); n != len(keys) {
		return fmt.Errorf("%w: %s has %d key values for %d keys", ErrMisaligned, e.Table(), n, len(keys))
	}
	if n := len(PT(&e).Pointers()); n != len(cols) {
		return fmt.Errorf("%w: %s has %d scan targets for %d columns", ErrMisaligned, e.Table(), n, len(cols))
	}
	return nil
}

// Table returns the table name of T without requiring an instance.
func Table[T Entity]() string {
	var e T
	return e.Table()
}

// Required returns the columns of T a row must carry: all of them except the nullable ones.
func Required[T Entity]() []string {
	var e T
	if n, ok := any(e).(Nullable); ok {
		required, _ := lo.Difference(e.Columns(), n.Nullable())
		return required
	}
	return e.Columns()
}
