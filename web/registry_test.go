package web

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/kcmvp/geoadmin/auth"
	"github.com/kcmvp/geoadmin/constraint"
	"github.com/kcmvp/geoadmin/entity"
	"github.com/kcmvp/geoadmin/schema"
	"github.com/kcmvp/geoadmin/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

type keyless struct{ schema.Continent }

func (keyless) Keys() []string     { return nil }
func (keyless) KeyValues() []any   { return nil }
func (k *keyless) Pointers() []any { return k.Continent.Pointers() }

func TestRegistry(t *testing.T) {
	reg := geography(t)
	require.Error(t, Register[schema.Continent](reg), "registered twice")
	require.ErrorIs(t, Register[keyless](reg), entity.ErrMisaligned)

	for _, segment := range []string{"continents", "continents.tera", "continents.json"} {
		tbl, err := reg.Lookup(segment)
		require.NoError(t, err, segment)
		assert.Equal(t, "continents", tbl.Name())
		assert.Equal(t, []string{"name"}, tbl.Keys())
	}
	cities, err := reg.Lookup("cities")
	require.NoError(t, err)
	assert.Equal(t, []string{"city_id", "city_name"}, cities.Required())
	regions, err := reg.Lookup("regions")
	require.NoError(t, err)
	assert.Equal(t, []string{"region_id", "region_name", "population", "area_m2", "climate"}, regions.Required())

	_, err = reg.Lookup("users_info")
	require.ErrorIs(t, err, ErrUnknownTable)
	_, err = reg.Lookup(".continents")
	require.ErrorIs(t, err, ErrUnknownTable)
}

func TestDecode(t *testing.T) {
	v, err := decode[schema.Region]([]byte(`{"region_id":3,"region_name":"Kansai","population":22000000,"fg_country_name":"Japan"}`))
	require.NoError(t, err)
	assert.Equal(t, int64(3), v.RegionID)
	require.NotNil(t, v.FgCountryName)
	assert.Equal(t, "Japan", *v.FgCountryName)
	assert.Nil(t, v.FgCentreCityID)

	_, err = decode[schema.Region]([]byte(`{"region_id":"three"}`))
	require.ErrorIs(t, err, ErrMalformedBody)
	_, err = decode[schema.Country]([]byte(`{"fg_continent_name":"Asia"}`))
	require.ErrorIs(t, err, ErrMalformedBody)
}

func TestRequireFields(t *testing.T) {
	cities, err := geography(t).Lookup("cities")
	require.NoError(t, err)
	tests := []struct {
		row string
		ok  bool
	}{
		{`{"city_id":1,"city_name":"Kobe","fg_region_id":2}`, true},
		{`{"city_id":1,"city_name":"Kobe"}`, true},
		{`{"city_id":1,"city_name":"Kobe","fg_region_id":null}`, true},
		{`{"city_name":"Kobe"}`, false},
		{`{"city_id":null,"city_name":"Kobe"}`, false},
		{`{"city_id":1}`, false},
		{`{}`, false},
	}
	for _, test := range tests {
		err := requireFields(cities, gjson.Parse(test.row), cities.Required())
		if test.ok {
			assert.NoError(t, err, test.row)
		} else {
			assert.ErrorIs(t, err, ErrMalformedBody, test.row)
		}
	}
}

func TestStatusOf(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{fmt.Errorf("%w: %q", ErrUnknownTable, "planets"), http.StatusNotFound},
		{fmt.Errorf("%w: eof", ErrMalformedBody), http.StatusBadRequest},
		{fmt.Errorf("page: %w", sqlx.ErrInvalidArgument), http.StatusBadRequest},
		{fmt.Errorf("update: %w", sqlx.ErrKeyNotFound), http.StatusConflict},
		{fmt.Errorf("insert: %w: %w", sqlx.ErrConstraintViolation, errors.New("UNIQUE constraint failed")), http.StatusConflict},
		{fmt.Errorf("acquire: %w", sqlx.ErrPoolExhausted), http.StatusServiceUnavailable},
		{fmt.Errorf("load: %w", sqlx.ErrDeserialization), http.StatusInternalServerError},
		{fmt.Errorf("count: %w", sqlx.ErrQueryFailed), http.StatusInternalServerError},
		{fmt.Errorf("acquire: %w", sqlx.ErrConnection), http.StatusInternalServerError},
		{fmt.Errorf("count: %w", sqlx.ErrInternal), http.StatusInternalServerError},
		{auth.ErrLoginFailed, http.StatusInternalServerError},
	}
	for _, test := range tests {
		status, message := StatusOf(test.err)
		assert.Equal(t, test.status, status, test.err.Error())
		assert.NotContains(t, message, "UNIQUE")
	}
}

func TestValidateRows(t *testing.T) {
	require.NoError(t, validate(schema.Continent{Name: "Asia"}))
	err := validate(schema.Continent{Name: "Mu", AreaM2: -1})
	require.ErrorIs(t, err, sqlx.ErrInvalidArgument)
	require.ErrorIs(t, err, constraint.ErrMustGte)
	// entities without rules pass through
	require.NoError(t, validate(schema.UserRecord{}))
}
