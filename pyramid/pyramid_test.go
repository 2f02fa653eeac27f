package pyramid

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/globeviz/tessera/geo"
)

func TestLoadEmbeddedLevelSet(t *testing.T) {
	ls, err := LoadEmbeddedLevelSet("GlobalGeographic")
	require.NoError(t, err)

	assert.Equal(t, "GlobalGeographic", ls.ID)
	assert.Equal(t, geo.FullSphere, ls.Sector)
	assert.Equal(t, 2, ls.Factor)
	assert.Equal(t, 16, ls.NumLevels())

	top, ok := ls.Level(0)
	require.True(t, ok)
	assert.Equal(t, 1, top.NumRows)
	assert.Equal(t, 2, top.NumCols)
	assert.Equal(t, 256, top.TileWidth, "tile pixel dimensions default to 256")

	// Each level halves the previous level's tile delta.
	for n := 1; n < ls.NumLevels(); n++ {
		parent, _ := ls.Level(n - 1)
		child, _ := ls.Level(n)
		assert.Equal(t, parent.TileDeltaLat/2, child.TileDeltaLat)
		assert.Equal(t, parent.TileDeltaLon/2, child.TileDeltaLon)
		assert.Equal(t, parent.NumRows*2, child.NumRows)
		assert.Equal(t, parent.NumCols*2, child.NumCols)
	}

	// Loaded sets are cached.
	again, err := LoadEmbeddedLevelSet("GlobalGeographic")
	require.NoError(t, err)
	assert.Same(t, ls, again)

	_, err = LoadEmbeddedLevelSet("DoesNotExist")
	require.Error(t, err)
}

func TestLoadLevelSetFile(t *testing.T) {
	ls, err := LoadLevelSetFile(filepath.Join("testdata", "MediterraneanQuad.json"))
	require.NoError(t, err)

	assert.Equal(t, geo.Sector{MinLat: 30, MaxLat: 46, MinLon: -6, MaxLon: 36}, ls.Sector)

	top, ok := ls.Level(0)
	require.True(t, ok)
	assert.Equal(t, 2, top.NumRows)
	assert.Equal(t, 6, top.NumCols, "a partial trailing column still gets a tile")
	assert.Equal(t, 512, top.TileWidth)

	// The trailing column's sector is clamped to the root sector.
	s, ok := ls.TileSector(TileKey{Level: 0, Row: 0, Col: 5})
	require.True(t, ok)
	assert.Equal(t, 34.0, s.MinLon)
	assert.Equal(t, 36.0, s.MaxLon)
}

func TestNewLevelSetInvalidConfiguration(t *testing.T) {
	valid := Config{
		ID:                 "test",
		Sector:             geo.FullSphere,
		FirstLevelDeltaLat: 90,
		FirstLevelDeltaLon: 90,
		NumLevels:          4,
		Factor:             2,
		TileWidth:          256,
		TileHeight:         256,
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing id", func(c *Config) { c.ID = "" }},
		{"no levels", func(c *Config) { c.NumLevels = 0 }},
		{"factor below 2", func(c *Config) { c.Factor = 1 }},
		{"zero delta", func(c *Config) { c.FirstLevelDeltaLat = 0 }},
		{"empty sector", func(c *Config) { c.Sector = geo.Sector{} }},
		{"inverted sector", func(c *Config) { c.Sector = geo.Sector{MinLat: 10, MaxLat: -10, MinLon: 0, MaxLon: 10} }},
		{"delta exceeds sector", func(c *Config) {
			c.Sector = geo.Sector{MinLat: 0, MaxLat: 10, MinLon: 0, MaxLon: 10}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := valid
			tt.mutate(&config)
			_, err := NewLevelSet(config)
			require.ErrorIs(t, err, ErrInvalidConfiguration)
		})
	}

	_, err := NewLevelSet(valid)
	require.NoError(t, err)
}

func quadLevelSet(t *testing.T) *LevelSet {
	t.Helper()
	ls, err := NewLevelSet(Config{
		ID:                 "quad",
		Sector:             geo.FullSphere,
		FirstLevelDeltaLat: 180,
		FirstLevelDeltaLon: 360,
		NumLevels:          4,
		Factor:             2,
		TileWidth:          256,
		TileHeight:         256,
	})
	require.NoError(t, err)
	return ls
}

func TestTileSector(t *testing.T) {
	ls := quadLevelSet(t)

	root, ok := ls.TileSector(TileKey{Level: 0, Row: 0, Col: 0})
	require.True(t, ok)
	assert.Equal(t, geo.FullSphere, root, "a single top-level tile covers the root sector")

	s, ok := ls.TileSector(TileKey{Level: 1, Row: 1, Col: 0})
	require.True(t, ok)
	assert.Equal(t, geo.Sector{MinLat: 0, MaxLat: 90, MinLon: -180, MaxLon: 0}, s)

	for _, key := range []TileKey{
		{Level: 4, Row: 0, Col: 0},
		{Level: -1, Row: 0, Col: 0},
		{Level: 1, Row: 2, Col: 0},
		{Level: 1, Row: 0, Col: -1},
	} {
		_, ok := ls.TileSector(key)
		assert.Falsef(t, ok, "key %v should be out of range", key)
	}
}

func TestTileAt(t *testing.T) {
	ls := quadLevelSet(t)

	key, ok := ls.TileAt(1, 45, 90)
	require.True(t, ok)
	assert.Equal(t, TileKey{Level: 1, Row: 1, Col: 1}, key)

	// The sector's maximum edges fall into the last row and column.
	key, ok = ls.TileAt(1, 90, 180)
	require.True(t, ok)
	assert.Equal(t, TileKey{Level: 1, Row: 1, Col: 1}, key)

	_, ok = ls.TileAt(1, 91, 0)
	assert.False(t, ok)
	_, ok = ls.TileAt(9, 0, 0)
	assert.False(t, ok)

	// TileAt and TileSector agree.
	key, ok = ls.TileAt(3, -10, 10)
	require.True(t, ok)
	s, ok := ls.TileSector(key)
	require.True(t, ok)
	assert.True(t, s.Contains(-10, 10))
}

func TestTopLevelKeys(t *testing.T) {
	ls, err := LoadEmbeddedLevelSet("GlobalGeographic")
	require.NoError(t, err)

	keys := ls.TopLevelKeys()
	require.Equal(t, []TileKey{
		{Level: 0, Row: 0, Col: 0},
		{Level: 0, Row: 0, Col: 1},
	}, keys)
}

func TestChildKeys(t *testing.T) {
	ls := quadLevelSet(t)

	children := ls.ChildKeys(TileKey{Level: 0, Row: 0, Col: 0})
	require.Len(t, children, 4)

	// The children partition the parent's sector.
	parent, _ := ls.TileSector(TileKey{Level: 0, Row: 0, Col: 0})
	union := geo.Sector{MinLat: 90, MaxLat: -90, MinLon: 180, MaxLon: -180}
	for _, child := range children {
		assert.Equal(t, 1, child.Level)
		s, ok := ls.TileSector(child)
		require.True(t, ok)
		assert.True(t, parent.ContainsSector(s))
		union = union.Union(s)
	}
	assert.Equal(t, parent, union)

	assert.Nil(t, ls.ChildKeys(TileKey{Level: 3, Row: 0, Col: 0}), "finest level has no children")
	assert.Nil(t, ls.ChildKeys(TileKey{Level: 1, Row: 7, Col: 0}))
}

func TestLevelForResolution(t *testing.T) {
	ls := quadLevelSet(t)

	// Level 0 texel size is 180/256 deg; each level halves it.
	l0, _ := ls.Level(0)
	assert.Equal(t, 0, ls.LevelForResolution(l0.TexelSizeDeg()).Number)
	assert.Equal(t, 0, ls.LevelForResolution(10).Number)
	assert.Equal(t, 1, ls.LevelForResolution(l0.TexelSizeDeg()/2).Number)
	assert.Equal(t, 3, ls.LevelForResolution(1e-9).Number, "too fine a request clamps to the finest level")
}

func TestConfigJSONRoundTrip(t *testing.T) {
	config := Config{
		ID:                 "roundtrip",
		Title:              "Round Trip",
		Sector:             geo.Sector{MinLat: -10, MaxLat: 10, MinLon: 20, MaxLon: 40},
		FirstLevelDeltaLat: 10,
		FirstLevelDeltaLon: 10,
		NumLevels:          3,
		Factor:             2,
		TileWidth:          128,
		TileHeight:         128,
	}

	data, err := json.Marshal(&config)
	require.NoError(t, err)

	var got Config
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, config, got)
}
