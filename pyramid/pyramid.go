// Package pyramid describes the multi-resolution tiling schemes a globe is
// tessellated against: an ordered set of levels that each cover the root
// sector with a fixed grid of geographic tiles, every level subdividing the
// previous one by an integer factor.
package pyramid

import (
	"embed"
	"encoding/json"
	"fmt"
	"os"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/perimeterx/marshmallow"

	"github.com/globeviz/tessera/geo"
)

var (
	//go:embed pyramids/*.json
	embeddedPyramidsFS    embed.FS
	embeddedLevelSetCache = make(map[string]*LevelSet)
)

// Config is the JSON-loadable description of a level pyramid.
type Config struct {
	// Pyramid identifier
	ID string `validate:"required" json:"id"`
	// Title of this pyramid, normally used for display to a human
	Title string `json:"title,omitempty"`
	// Brief narrative description of this pyramid
	Description string `json:"description,omitempty"`
	// Geographic coverage of every level. Defaults to the full sphere.
	Sector geo.Sector `json:"-"`
	// Tile height in degrees of latitude at the coarsest level
	FirstLevelDeltaLat float64 `validate:"required,gt=0,lte=180" json:"firstLevelDeltaLat"`
	// Tile width in degrees of longitude at the coarsest level
	FirstLevelDeltaLon float64 `validate:"required,gt=0,lte=360" json:"firstLevelDeltaLon"`
	// Number of levels, coarsest first
	NumLevels int `validate:"required,min=1" json:"numLevels"`
	// Subdivision factor between adjacent levels
	Factor int `default:"2" validate:"min=2" json:"factor,omitempty"`
	// Width of each tile's raster payload in pixels
	TileWidth int `default:"256" validate:"min=1" json:"tileWidth,omitempty"`
	// Height of each tile's raster payload in pixels
	TileHeight int `default:"256" validate:"min=1" json:"tileHeight,omitempty"`
}

func (c *Config) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Config        // not a pointer, because it would cause recursion to this function
		SpecialSector map[string]float64 `json:"sector,omitempty"`
	}{
		Config: *c,
		SpecialSector: map[string]float64{
			"minLat": c.Sector.MinLat,
			"maxLat": c.Sector.MaxLat,
			"minLon": c.Sector.MinLon,
			"maxLon": c.Sector.MaxLon,
		},
	})
}

func (c *Config) UnmarshalJSON(data []byte) error {
	err := defaults.Set(c)
	if err != nil {
		return err
	}

	specials, err := marshmallow.Unmarshal(data, c, marshmallow.WithExcludeKnownFieldsFromMap(true))
	if err != nil {
		return err
	}

	// Sector
	rawSector, ok := specials["sector"]
	if !ok {
		c.Sector = geo.FullSphere
	} else {
		c.Sector, err = unmarshalSector(rawSector)
		if err != nil {
			return err
		}
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	return validate.Struct(c)
}

func unmarshalSector(rawSector interface{}) (geo.Sector, error) {
	var s geo.Sector
	rawSectorMap, ok := rawSector.(map[string]interface{})
	if !ok {
		return s, fmt.Errorf(`"sector" should be an object, not a %T`, rawSector)
	}
	for key, dst := range map[string]*float64{
		"minLat": &s.MinLat,
		"maxLat": &s.MaxLat,
		"minLon": &s.MinLon,
		"maxLon": &s.MaxLon,
	} {
		rawValue, ok := rawSectorMap[key]
		if !ok {
			return s, fmt.Errorf(`missing key "%v" in sector`, key)
		}
		*dst, ok = rawValue.(float64)
		if !ok {
			return s, fmt.Errorf(`sector property %v is not a number but a %T`, key, rawValue)
		}
	}
	if !s.IsValid() {
		return s, fmt.Errorf("sector %v has no extent", s)
	}
	return s, nil
}

// LoadLevelSetFile builds a LevelSet from a pyramid definition on disk.
func LoadLevelSetFile(path string) (*LevelSet, error) {
	configJSON, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var config Config
	err = json.Unmarshal(configJSON, &config)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, ErrInvalidConfiguration)
	}
	return NewLevelSet(config)
}

// LoadEmbeddedLevelSet builds (and caches) a LevelSet from one of the
// built-in pyramid definitions, e.g. "GlobalGeographic".
func LoadEmbeddedLevelSet(id string) (*LevelSet, error) {
	cached, ok := embeddedLevelSetCache[id]
	if ok {
		return cached, nil
	}
	configJSON, err := embeddedPyramidsFS.ReadFile("pyramids/" + id + ".json")
	if err != nil {
		return nil, err
	}
	var config Config
	err = json.Unmarshal(configJSON, &config)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, ErrInvalidConfiguration)
	}
	ls, err := NewLevelSet(config)
	if err != nil {
		return nil, err
	}
	embeddedLevelSetCache[id] = ls
	return ls, nil
}
