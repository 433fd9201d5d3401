package sqlx_test

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/kcmvp/geoadmin/internal/testdb"
	"github.com/kcmvp/geoadmin/schema"
	"github.com/kcmvp/geoadmin/sqlx"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type CRUDTestSuite struct {
	suite.Suite
	conn sqlx.Conn
	ctx  context.Context
}

func (s *CRUDTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.conn = sqlx.Bind(testdb.Open(s.T()), sqlx.SQLite)
}

func (s *CRUDTestSuite) TestAsiaScenario() {
	before, err := sqlx.Count[schema.Continent](s.ctx, s.conn)
	s.Require().NoError(err)
	s.Require().Zero(before)

	asia := schema.Continent{Name: "Asia", AreaM2: 44579000.0}
	s.Require().NoError(sqlx.Insert(s.ctx, s.conn, asia))

	page, err := sqlx.Load[schema.Continent](s.ctx, s.conn, 1, 1)
	s.Require().NoError(err)
	s.Require().Equal([]schema.Continent{asia}, page)

	after, err := sqlx.Count[schema.Continent](s.ctx, s.conn)
	s.Require().NoError(err)
	s.Require().Equal(before+1, after)
}

func (s *CRUDTestSuite) TestPaginationCoverage() {
	const total, size = 23, 5
	ids := rand.Perm(total)
	for _, id := range ids {
		city := schema.City{CityID: int64(id + 1), CityName: fmt.Sprintf("city-%02d", id+1)}
		s.Require().NoError(sqlx.Insert(s.ctx, s.conn, city))
	}
	count, err := sqlx.Count[schema.City](s.ctx, s.conn)
	s.Require().NoError(err)
	s.Require().EqualValues(total, count)

	var seen []int64
	pages := (total + size - 1) / size
	for i := 1; i <= pages; i++ {
		lower, upper, err := sqlx.Page(int64(i), size)
		s.Require().NoError(err)
		rows, err := sqlx.Load[schema.City](s.ctx, s.conn, lower, upper)
		s.Require().NoError(err)
		if i < pages {
			s.Require().Len(rows, size)
		}
		seen = append(seen, lo.Map(rows, func(c schema.City, _ int) int64 { return c.CityID })...)
	}
	s.Require().Equal(lo.RangeFrom(int64(1), total), seen)

	beyond, err := sqlx.Load[schema.City](s.ctx, s.conn, total+1, total+size)
	s.Require().NoError(err)
	s.Require().Empty(beyond)
}

func (s *CRUDTestSuite) TestRoundTripWithNulls() {
	country := "Japan"
	centre := int64(10)
	region := schema.Region{
		RegionID:       1,
		RegionName:     "Kanto",
		FgCountryName:  &country,
		Population:     43000000,
		AreaM2:         32423.9,
		Climate:        "humid subtropical",
		FgCentreCityID: &centre,
	}
	bare := schema.Region{RegionID: 2, RegionName: "Nowhere"}
	s.Require().NoError(sqlx.Insert(s.ctx, s.conn, region))
	s.Require().NoError(sqlx.Insert(s.ctx, s.conn, bare))

	got, err := sqlx.Find[schema.Region](s.ctx, s.conn, schema.Region{RegionID: 1})
	s.Require().NoError(err)
	s.Require().True(got.IsPresent())
	s.Require().Equal(region, got.MustGet())

	got, err = sqlx.Find[schema.Region](s.ctx, s.conn, schema.Region{RegionID: 2})
	s.Require().NoError(err)
	s.Require().Nil(got.MustGet().FgCountryName)
	s.Require().Nil(got.MustGet().FgCentreCityID)

	missing, err := sqlx.Find[schema.Region](s.ctx, s.conn, schema.Region{RegionID: 3})
	s.Require().NoError(err)
	s.Require().True(missing.IsAbsent())
}

func (s *CRUDTestSuite) TestInsertConstraintViolation() {
	asia := schema.Continent{Name: "Asia", AreaM2: 1}
	s.Require().NoError(sqlx.Insert(s.ctx, s.conn, asia))
	s.Require().ErrorIs(sqlx.Insert(s.ctx, s.conn, asia), sqlx.ErrConstraintViolation)
	s.Require().ErrorIs(sqlx.Insert(s.ctx, s.conn, schema.Continent{Name: "Minus", AreaM2: -1}), sqlx.ErrConstraintViolation)

	count, err := sqlx.Count[schema.Continent](s.ctx, s.conn)
	s.Require().NoError(err)
	s.Require().EqualValues(1, count, "a rejected insert leaves nothing behind")
}

func (s *CRUDTestSuite) TestIdempotentDelete() {
	district := schema.District{DistrictID: 7, DistrictName: "Shibuya"}
	s.Require().NoError(sqlx.Insert(s.ctx, s.conn, district))
	s.Require().NoError(sqlx.Delete(s.ctx, s.conn, district))
	s.Require().NoError(sqlx.Delete(s.ctx, s.conn, district))

	got, err := sqlx.Find[schema.District](s.ctx, s.conn, district)
	s.Require().NoError(err)
	s.Require().True(got.IsAbsent())
}

func (s *CRUDTestSuite) TestUpdate() {
	old := schema.Country{Name: "Burma"}
	s.Require().NoError(sqlx.Insert(s.ctx, s.conn, old))

	continent := "Asia"
	renamed := schema.Country{Name: "Myanmar", FgContinentName: &continent}
	s.Require().NoError(sqlx.Update(s.ctx, s.conn, old, renamed))

	gone, err := sqlx.Find[schema.Country](s.ctx, s.conn, old)
	s.Require().NoError(err)
	s.Require().True(gone.IsAbsent())
	got, err := sqlx.Find[schema.Country](s.ctx, s.conn, renamed)
	s.Require().NoError(err)
	s.Require().Equal(renamed, got.MustGet())

	// identical values still match the row
	s.Require().NoError(sqlx.Update(s.ctx, s.conn, renamed, renamed))
}

func (s *CRUDTestSuite) TestUpdateGuard() {
	city := schema.City{CityID: 1, CityName: "Edo"}
	s.Require().NoError(sqlx.Insert(s.ctx, s.conn, city))

	// a concurrent actor removes the row between read and update
	s.Require().NoError(sqlx.Delete(s.ctx, s.conn, city))
	err := sqlx.Update(s.ctx, s.conn, city, schema.City{CityID: 1, CityName: "Tokyo"})
	s.Require().ErrorIs(err, sqlx.ErrKeyNotFound)

	count, err := sqlx.Count[schema.City](s.ctx, s.conn)
	s.Require().NoError(err)
	s.Require().Zero(count)

	// a concurrent actor changes the key
	s.Require().NoError(sqlx.Insert(s.ctx, s.conn, city))
	s.Require().NoError(sqlx.Update(s.ctx, s.conn, city, schema.City{CityID: 2, CityName: "Edo"}))
	err = sqlx.Update(s.ctx, s.conn, city, schema.City{CityID: 1, CityName: "Tokyo"})
	s.Require().ErrorIs(err, sqlx.ErrKeyNotFound)

	rows, err := sqlx.Load[schema.City](s.ctx, s.conn, 1, 10)
	s.Require().NoError(err)
	s.Require().Equal([]schema.City{{CityID: 2, CityName: "Edo"}}, rows)
}

func (s *CRUDTestSuite) TestLoadInvalidRange() {
	_, err := sqlx.Load[schema.City](s.ctx, s.conn, 0, 10)
	s.Require().ErrorIs(err, sqlx.ErrInvalidArgument)
	_, err = sqlx.Load[schema.City](s.ctx, s.conn, 5, 4)
	s.Require().ErrorIs(err, sqlx.ErrInvalidArgument)
}

func TestCRUDTestSuite(t *testing.T) {
	suite.Run(t, new(CRUDTestSuite))
}

func TestPage(t *testing.T) {
	lower, upper, err := sqlx.Page(1, 10)
	require.NoError(t, err)
	require.Equal(t, [2]int64{1, 10}, [2]int64{lower, upper})

	lower, upper, err = sqlx.Page(3, 7)
	require.NoError(t, err)
	require.Equal(t, [2]int64{15, 21}, [2]int64{lower, upper})

	for _, bad := range [][2]int64{{0, 10}, {1, 0}, {-1, 5}} {
		_, _, err := sqlx.Page(bad[0], bad[1])
		require.ErrorIs(t, err, sqlx.ErrInvalidArgument)
	}
}

func mockConn(t *testing.T) (sqlx.Conn, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return sqlx.Bind(db, sqlx.SQLite), mock
}

func TestCount_NoRowIsInternal(t *testing.T) {
	conn, mock := mockConn(t)
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM continents").WillReturnRows(sqlmock.NewRows([]string{"count"}))
	_, err := sqlx.Count[schema.Continent](context.Background(), conn)
	require.ErrorIs(t, err, sqlx.ErrInternal)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCount_DriverFailure(t *testing.T) {
	conn, mock := mockConn(t)
	mock.ExpectQuery("SELECT COUNT").WillReturnError(fmt.Errorf("no such table: continents"))
	_, err := sqlx.Count[schema.Continent](context.Background(), conn)
	require.ErrorIs(t, err, sqlx.ErrQueryFailed)
}

func TestLoad_Deserialization(t *testing.T) {
	conn, mock := mockConn(t)
	mock.ExpectQuery("SELECT name, area_m2 FROM continents").
		WithArgs(int64(10), int64(0)).
		WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("Asia"))
	_, err := sqlx.Load[schema.Continent](context.Background(), conn, 1, 10)
	require.ErrorIs(t, err, sqlx.ErrDeserialization)

	mock.ExpectQuery("SELECT name, area_m2 FROM continents").
		WithArgs(int64(10), int64(0)).
		WillReturnRows(sqlmock.NewRows([]string{"name", "area_m2"}).AddRow("Asia", "huge"))
	_, err = sqlx.Load[schema.Continent](context.Background(), conn, 1, 10)
	require.ErrorIs(t, err, sqlx.ErrDeserialization)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdate_ZeroRowsIsKeyNotFound(t *testing.T) {
	conn, mock := mockConn(t)
	mock.ExpectExec("UPDATE continents SET name = \\?, area_m2 = \\? WHERE name = \\?").
		WithArgs("Asia", 1.0, "Asia").
		WillReturnResult(sqlmock.NewResult(0, 0))
	err := sqlx.Update(context.Background(), conn, schema.Continent{Name: "Asia"}, schema.Continent{Name: "Asia", AreaM2: 1})
	require.ErrorIs(t, err, sqlx.ErrKeyNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsert_ConnectionFailure(t *testing.T) {
	conn, mock := mockConn(t)
	reset := &net.OpError{Op: "write", Net: "tcp", Err: errors.New("connection reset by peer")}
	mock.ExpectExec("INSERT INTO continents").WillReturnError(reset)
	err := sqlx.Insert(context.Background(), conn, schema.Continent{Name: "Asia"})
	require.ErrorIs(t, err, sqlx.ErrConnection)
}
