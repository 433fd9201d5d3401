package web

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/kcmvp/geoadmin/entity"
	"github.com/kcmvp/geoadmin/sqlx"
	"github.com/samber/lo"
)

// Table is the untyped view of one registered entity that handlers work with.
// Bodies are raw JSON; results are ready to be rendered.
type Table interface {
	Name() string
	Keys() []string
	Required() []string
	Count(ctx context.Context, conn sqlx.Conn) (int64, error)
	Load(ctx context.Context, conn sqlx.Conn, lower, upper int64) (any, error)
	Insert(ctx context.Context, conn sqlx.Conn, body []byte) (any, error)
	Update(ctx context.Context, conn sqlx.Conn, older, newer []byte) (any, error)
	Delete(ctx context.Context, conn sqlx.Conn, body []byte) (any, error)
}

type table[T entity.Entity, PT entity.Ptr[T]] struct{}

func (table[T, PT]) Name() string {
	return entity.Table[T]()
}

func (table[T, PT]) Keys() []string {
	var e T
	return e.Keys()
}

func (table[T, PT]) Required() []string {
	return entity.Required[T]()
}

func (table[T, PT]) Count(ctx context.Context, conn sqlx.Conn) (int64, error) {
	return sqlx.Count[T](ctx, conn)
}

func (table[T, PT]) Load(ctx context.Context, conn sqlx.Conn, lower, upper int64) (any, error) {
	rows, err := sqlx.Load[T, PT](ctx, conn, lower, upper)
	if rows == nil {
		rows = []T{}
	}
	return rows, err
}

func (table[T, PT]) Insert(ctx context.Context, conn sqlx.Conn, body []byte) (any, error) {
	v, err := decode[T](body)
	if err != nil {
		return nil, err
	}
	if err = validate(v); err != nil {
		return nil, err
	}
	return v, sqlx.Insert(ctx, conn, v)
}

func (table[T, PT]) Update(ctx context.Context, conn sqlx.Conn, older, newer []byte) (any, error) {
	o, err := decode[T](older)
	if err != nil {
		return nil, err
	}
	n, err := decode[T](newer)
	if err != nil {
		return nil, err
	}
	if err = validate(n); err != nil {
		return nil, err
	}
	return n, sqlx.Update(ctx, conn, o, n)
}

func (table[T, PT]) Delete(ctx context.Context, conn sqlx.Conn, body []byte) (any, error) {
	v, err := decode[T](body)
	if err != nil {
		return nil, err
	}
	return v, sqlx.Delete(ctx, conn, v)
}

// decode binds body onto a T and runs the binding validators declared on it.
func decode[T any](body []byte) (T, error) {
	var v T
	if err := binding.JSON.BindBody(body, &v); err != nil {
		return v, fmt.Errorf("%w: %w", ErrMalformedBody, err)
	}
	return v, nil
}

// validate applies the row rules of entities that declare some.
func validate(v any) error {
	if r, ok := v.(interface{ Validate() error }); ok {
		if err := r.Validate(); err != nil {
			return fmt.Errorf("%w: %w", sqlx.ErrInvalidArgument, err)
		}
	}
	return nil
}

// Registry maps the table segment of a URL onto a registered entity.
type Registry struct {
	tables map[string]Table
}

func NewRegistry() *Registry {
	return &Registry{tables: map[string]Table{}}
}

// Register exposes T under its table name. The descriptor is checked here so a
// misaligned entity fails at startup instead of on the first request.
func Register[T entity.Entity, PT entity.Ptr[T]](r *Registry) error {
	var zero T
	if err := entity.Check[T, PT](zero); err != nil {
		return err
	}
	name := zero.Table()
	if _, ok := r.tables[name]; ok {
		return fmt.Errorf("table %s registered twice", name)
	}
	r.tables[name] = table[T, PT]{}
	return nil
}

// Lookup resolves a URL table segment. Anything after the first dot is ignored, so
// "continents.tera" names the continents table.
func (r *Registry) Lookup(segment string) (Table, error) {
	name, _, _ := strings.Cut(segment, ".")
	t, ok := r.tables[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTable, segment)
	}
	return t, nil
}

func (r *Registry) Names() []string {
	names := lo.Keys(r.tables)
	slices.Sort(names)
	return names
}
