package schema

import c "github.com/kcmvp/geoadmin/constraint"

const (
	maxNameLen = 64
	// surface of the Earth
	maxAreaM2 = 510_072_000e6
)

var (
	nameRules = []c.Validator[string]{c.NotBlank(), c.MaxLength(maxNameLen)}
	areaRules = []c.Validator[float64]{c.Gte(0.0), c.Lte(maxAreaM2)}
)

// Validate checks a continent before it is written.
func (x Continent) Validate() error {
	return c.All(
		c.Field("name", x.Name, nameRules...),
		c.Field("area_m2", x.AreaM2, areaRules...),
	)
}

func (x Country) Validate() error {
	return c.All(
		c.Field("name", x.Name, nameRules...),
		c.Field("fg_continent_name", x.FgContinentName, c.Optional(nameRules...)),
	)
}

func (x Region) Validate() error {
	return c.All(
		c.Field("region_name", x.RegionName, nameRules...),
		c.Field("fg_country_name", x.FgCountryName, c.Optional(nameRules...)),
		c.Field("population", x.Population, c.Gte[int64](0)),
		c.Field("area_m2", x.AreaM2, areaRules...),
	)
}

func (x City) Validate() error {
	return c.Field("city_name", x.CityName, nameRules...)
}

func (x District) Validate() error {
	return c.Field("district_name", x.DistrictName, nameRules...)
}
