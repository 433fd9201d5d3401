// Package constraint holds the field rules applied to rows posted by the grid before
// they reach the database.
package constraint

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/samber/lo"
)

type Number interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 | ~float32 | ~float64
}

// Validator checks one value.
type Validator[T any] func(v T) error

var (
	ErrViolation = errors.New("constraint violated")

	ErrBlank     = errors.New("must not be blank")
	ErrLengthMax = errors.New("length must be at most")
	ErrMustGte   = errors.New("must be greater than or equal to")
	ErrMustLte   = errors.New("must be less than or equal to")
	ErrCharSet   = errors.New("can only contain")
)

// NotBlank rejects empty and whitespace-only strings.
func NotBlank() Validator[string] {
	return func(s string) error {
		return lo.Ternary(strings.TrimSpace(s) == "", ErrBlank, nil)
	}
}

// MaxLength limits the length in characters, not bytes.
func MaxLength(max int) Validator[string] {
	return func(s string) error {
		return lo.Ternary(utf8.RuneCountInString(s) > max, fmt.Errorf("%w %d", ErrLengthMax, max), nil)
	}
}

// CharSet accepts strings made of letters, digits and the given extra characters only.
func CharSet(extra string) Validator[string] {
	allowed := string(lo.LettersCharset) + string(lo.NumbersCharset) + extra
	return func(s string) error {
		bad := lo.ContainsBy([]rune(s), func(r rune) bool {
			return !strings.ContainsRune(allowed, r)
		})
		return lo.Ternary(bad, fmt.Errorf("%w letters, digits and %q", ErrCharSet, extra), nil)
	}
}

func Gte[T Number](min T) Validator[T] {
	return func(v T) error {
		return lo.Ternary(v < min, fmt.Errorf("%w %v", ErrMustGte, min), nil)
	}
}

func Lte[T Number](max T) Validator[T] {
	return func(v T) error {
		return lo.Ternary(v > max, fmt.Errorf("%w %v", ErrMustLte, max), nil)
	}
}

// Optional applies validators to a non-nil pointer only.
func Optional[T any](validators ...Validator[T]) Validator[*T] {
	return func(v *T) error {
		if v == nil {
			return nil
		}
		for _, validate := range validators {
			if err := validate(*v); err != nil {
				return err
			}
		}
		return nil
	}
}

// Field runs validators against v and names the first failure after field.
func Field[T any](field string, v T, validators ...Validator[T]) error {
	for _, validate := range validators {
		if err := validate(v); err != nil {
			return fmt.Errorf("%w: %s %w", ErrViolation, field, err)
		}
	}
	return nil
}

// All joins the failures of several Field checks.
func All(errs ...error) error {
	return errors.Join(errs...)
}
