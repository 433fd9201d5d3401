// Package schema holds the entity descriptors of the geography dataset and of the user store.
//
// JSON keys equal column names; the grid client posts rows back exactly as it received them.
package schema

import "github.com/kcmvp/geoadmin/entity"

// Continent is keyed by name.
type Continent struct {
	Name   string  `json:"name" binding:"required"`
	AreaM2 float64 `json:"area_m2"`
}

func (c Continent) Table() string     { return "continents" }
func (c Continent) Columns() []string { return []string{"name", "area_m2"} }
func (c Continent) Keys() []string    { return []string{"name"} }
func (c Continent) Values() []any     { return []any{c.Name, c.AreaM2} }
func (c Continent) KeyValues() []any  { return []any{c.Name} }
func (c *Continent) Pointers() []any  { return []any{&c.Name, &c.AreaM2} }

// City optionally belongs to a region.
type City struct {
	CityID     int64  `json:"city_id"`
	CityName   string `json:"city_name"`
	FgRegionID *int64 `json:"fg_region_id"`
}

func (c City) Table() string      { return "cities" }
func (c City) Columns() []string  { return []string{"city_id", "city_name", "fg_region_id"} }
func (c City) Keys() []string     { return []string{"city_id"} }
func (c City) Values() []any      { return []any{c.CityID, c.CityName, c.FgRegionID} }
func (c City) KeyValues() []any   { return []any{c.CityID} }
func (c *City) Pointers() []any   { return []any{&c.CityID, &c.CityName, &c.FgRegionID} }
func (c City) Nullable() []string { return []string{"fg_region_id"} }

// Country is keyed by name; continent and capital are soft references.
type Country struct {
	Name            string  `json:"name" binding:"required"`
	FgContinentName *string `json:"fg_continent_name"`
	FgCapitalCityID *int64  `json:"fg_capital_city_id"`
}

func (c Country) Table() string { return "countries" }
func (c Country) Columns() []string {
	return []string{"name", "fg_continent_name", "fg_capital_city_id"}
}
func (c Country) Keys() []string { return []string{"name"} }
func (c Country) Values() []any {
	return []any{c.Name, c.FgContinentName, c.FgCapitalCityID}
}
func (c Country) KeyValues() []any { return []any{c.Name} }
func (c *Country) Pointers() []any {
	return []any{&c.Name, &c.FgContinentName, &c.FgCapitalCityID}
}
func (c Country) Nullable() []string {
	return []string{"fg_continent_name", "fg_capital_city_id"}
}

// District optionally belongs to a city.
type District struct {
	DistrictID   int64  `json:"district_id"`
	DistrictName string `json:"district_name"`
	FgCityID     *int64 `json:"fg_city_id"`
}

func (d District) Table() string { return "districts" }
func (d District) Columns() []string {
	return []string{"district_id", "district_name", "fg_city_id"}
}
func (d District) Keys() []string     { return []string{"district_id"} }
func (d District) Values() []any      { return []any{d.DistrictID, d.DistrictName, d.FgCityID} }
func (d District) KeyValues() []any   { return []any{d.DistrictID} }
func (d *District) Pointers() []any   { return []any{&d.DistrictID, &d.DistrictName, &d.FgCityID} }
func (d District) Nullable() []string { return []string{"fg_city_id"} }

// Region is the widest table of the dataset.
type Region struct {
	RegionID       int64   `json:"region_id"`
	RegionName     string  `json:"region_name"`
	FgCountryName  *string `json:"fg_country_name"`
	Population     int64   `json:"population"`
	AreaM2         float64 `json:"area_m2"`
	Climate        string  `json:"climate"`
	FgCentreCityID *int64  `json:"fg_centre_city_id"`
}

func (r Region) Table() string { return "regions" }
func (r Region) Columns() []string {
	return []string{
		"region_id",
		"region_name",
		"fg_country_name",
		"population",
		"area_m2",
		"climate",
		"fg_centre_city_id",
	}
}
func (r Region) Keys() []string { return []string{"region_id"} }
func (r Region) Values() []any {
	return []any{
		r.RegionID,
		r.RegionName,
		r.FgCountryName,
		r.Population,
		r.AreaM2,
		r.Climate,
		r.FgCentreCityID,
	}
}
func (r Region) KeyValues() []any { return []any{r.RegionID} }
func (r *Region) Pointers() []any {
	return []any{
		&r.RegionID,
		&r.RegionName,
		&r.FgCountryName,
		&r.Population,
		&r.AreaM2,
		&r.Climate,
		&r.FgCentreCityID,
	}
}
func (r Region) Nullable() []string {
	return []string{"fg_country_name", "fg_centre_city_id"}
}

var (
	_ entity.Scanner  = (*Continent)(nil)
	_ entity.Scanner  = (*City)(nil)
	_ entity.Scanner  = (*Country)(nil)
	_ entity.Scanner  = (*District)(nil)
	_ entity.Scanner  = (*Region)(nil)
	_ entity.Nullable = City{}
	_ entity.Nullable = Country{}
	_ entity.Nullable = District{}
	_ entity.Nullable = Region{}
)
