package pyramid

import (
	"fmt"
	"math"

	"github.com/go-playground/validator/v10"

	"github.com/globeviz/tessera/geo"
	"github.com/globeviz/tessera/mathhelp"
)

// TileKey addresses exactly one geographic sector at one resolution level.
type TileKey struct {
	Level int
	Row   int
	Col   int
}

func (k TileKey) String() string {
	return fmt.Sprintf("%d/%d/%d", k.Level, k.Row, k.Col)
}

// Level is one resolution tier of a pyramid. Rows are numbered from the
// root sector's southern edge, columns from its western edge.
type Level struct {
	// Ordinal index, 0 = coarsest
	Number int
	// Tile height in degrees of latitude
	TileDeltaLat float64
	// Tile width in degrees of longitude
	TileDeltaLon float64
	NumRows      int
	NumCols      int
	// Raster payload dimensions in pixels
	TileWidth  int
	TileHeight int
}

// TexelSizeDeg returns the geographic height of one tile pixel in degrees.
func (l Level) TexelSizeDeg() float64 {
	return l.TileDeltaLat / float64(l.TileHeight)
}

// LevelSet is an immutable ordered sequence of levels covering a root
// sector. Shared read-only by all tessellation passes.
type LevelSet struct {
	ID     string
	Sector geo.Sector
	Factor int

	levels []Level
}

// NewLevelSet builds the level pyramid described by config. Returns
// ErrInvalidConfiguration when the parameters are inconsistent.
func NewLevelSet(config Config) (*LevelSet, error) {
	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(&config); err != nil {
		return nil, fmt.Errorf("%v: %w", err, ErrInvalidConfiguration)
	}
	if !config.Sector.IsValid() {
		return nil, fmt.Errorf("sector %v has no extent: %w", config.Sector, ErrInvalidConfiguration)
	}
	if config.FirstLevelDeltaLat > config.Sector.DeltaLat() ||
		config.FirstLevelDeltaLon > config.Sector.DeltaLon() {
		return nil, fmt.Errorf("first level tile delta %vx%v exceeds sector %v: %w",
			config.FirstLevelDeltaLat, config.FirstLevelDeltaLon, config.Sector, ErrInvalidConfiguration)
	}

	ls := &LevelSet{
		ID:     config.ID,
		Sector: config.Sector,
		Factor: config.Factor,
		levels: make([]Level, config.NumLevels),
	}
	deltaLat := config.FirstLevelDeltaLat
	deltaLon := config.FirstLevelDeltaLon
	for n := 0; n < config.NumLevels; n++ {
		ls.levels[n] = Level{
			Number:       n,
			TileDeltaLat: deltaLat,
			TileDeltaLon: deltaLon,
			NumRows:      int(math.Ceil(config.Sector.DeltaLat() / deltaLat)),
			NumCols:      int(math.Ceil(config.Sector.DeltaLon() / deltaLon)),
			TileWidth:    config.TileWidth,
			TileHeight:   config.TileHeight,
		}
		deltaLat /= float64(config.Factor)
		deltaLon /= float64(config.Factor)
	}
	return ls, nil
}

func (ls *LevelSet) NumLevels() int {
	return len(ls.levels)
}

// Level returns the level with the given ordinal index.
func (ls *LevelSet) Level(n int) (Level, bool) {
	if n < 0 || n >= len(ls.levels) {
		return Level{}, false
	}
	return ls.levels[n], true
}

// FinestLevel returns the highest-resolution level.
func (ls *LevelSet) FinestLevel() Level {
	return ls.levels[len(ls.levels)-1]
}

// LevelForResolution returns the coarsest level whose texel size is at most
// degPerTexel degrees, or the finest level when no level is fine enough.
func (ls *LevelSet) LevelForResolution(degPerTexel float64) Level {
	for _, l := range ls.levels {
		if l.TexelSizeDeg() <= degPerTexel {
			return l
		}
	}
	return ls.FinestLevel()
}

// TileSector returns the geographic sector addressed by key.
func (ls *LevelSet) TileSector(key TileKey) (geo.Sector, bool) {
	l, ok := ls.Level(key.Level)
	if !ok {
		return geo.Sector{}, false
	}
	if !mathhelp.BetweenInc(key.Row, 0, l.NumRows-1) ||
		!mathhelp.BetweenInc(key.Col, 0, l.NumCols-1) {
		return geo.Sector{}, false
	}

	s := geo.Sector{
		MinLat: ls.Sector.MinLat + float64(key.Row)*l.TileDeltaLat,
		MinLon: ls.Sector.MinLon + float64(key.Col)*l.TileDeltaLon,
	}
	s.MaxLat = min(s.MinLat+l.TileDeltaLat, ls.Sector.MaxLat)
	s.MaxLon = min(s.MinLon+l.TileDeltaLon, ls.Sector.MaxLon)
	return s, true
}

// TileAt returns the key of the tile containing the location at the given
// level. Pure arithmetic from the sector origin, no search.
func (ls *LevelSet) TileAt(level int, lat, lon float64) (TileKey, bool) {
	l, ok := ls.Level(level)
	if !ok || !ls.Sector.Contains(lat, lon) {
		return TileKey{}, false
	}

	// Clamping keeps the maximum edges addressable: the sector's own
	// MaxLat/MaxLon fall into the last row/column.
	row := mathhelp.ClampInt(int((lat-ls.Sector.MinLat)/l.TileDeltaLat), 0, l.NumRows-1)
	col := mathhelp.ClampInt(int((lon-ls.Sector.MinLon)/l.TileDeltaLon), 0, l.NumCols-1)
	return TileKey{Level: level, Row: row, Col: col}, true
}

// TopLevelKeys returns every tile key of the coarsest level, row-major from
// the southwest corner.
func (ls *LevelSet) TopLevelKeys() []TileKey {
	top := ls.levels[0]
	keys := make([]TileKey, 0, top.NumRows*top.NumCols)
	for row := 0; row < top.NumRows; row++ {
		for col := 0; col < top.NumCols; col++ {
			keys = append(keys, TileKey{Level: 0, Row: row, Col: col})
		}
	}
	return keys
}

// ChildKeys returns the keys subdividing key at the next finer level,
// row-major, or nil when key is on the finest level or out of range.
func (ls *LevelSet) ChildKeys(key TileKey) []TileKey {
	if _, ok := ls.TileSector(key); !ok {
		return nil
	}
	next, ok := ls.Level(key.Level + 1)
	if !ok {
		return nil
	}

	keys := make([]TileKey, 0, ls.Factor*ls.Factor)
	for r := 0; r < ls.Factor; r++ {
		for c := 0; c < ls.Factor; c++ {
			row := key.Row*ls.Factor + r
			col := key.Col*ls.Factor + c
			if row >= next.NumRows || col >= next.NumCols {
				continue
			}
			keys = append(keys, TileKey{Level: next.Number, Row: row, Col: col})
		}
	}
	return keys
}
