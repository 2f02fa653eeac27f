package tess

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/globeviz/tessera/cache"
	"github.com/globeviz/tessera/geo"
	"github.com/globeviz/tessera/pyramid"
)

func testLevelSet(t *testing.T, numLevels int) *pyramid.LevelSet {
	t.Helper()
	ls, err := pyramid.NewLevelSet(pyramid.Config{
		ID:                 "test",
		Sector:             geo.FullSphere,
		FirstLevelDeltaLat: 180,
		FirstLevelDeltaLon: 360,
		NumLevels:          numLevels,
		Factor:             2,
		TileWidth:          256,
		TileHeight:         256,
	})
	require.NoError(t, err)
	return ls
}

func testEngine(t *testing.T, numLevels int, opts Options) (*Tessellator, *SyntheticProvider) {
	t.Helper()
	provider := NewSyntheticProvider(geo.Earth)
	provider.Synchronous = true
	tess, err := NewTessellator(geo.Earth, testLevelSet(t, numLevels), cache.New(1<<30), provider, opts)
	require.NoError(t, err)
	return tess, provider
}

func testController(t *testing.T, tess *Tessellator, altitude float64) *FrameController {
	t.Helper()
	fc, err := NewFrameController(tess, 800, 800, 45)
	require.NoError(t, err)
	fc.Camera = Camera{Lat: 0, Lon: 0, Altitude: altitude}
	return fc
}

func visibleKeys(tiles []*Tile) []pyramid.TileKey {
	keys := make([]pyramid.TileKey, len(tiles))
	for i, tile := range tiles {
		keys[i] = tile.Key
	}
	return keys
}

func TestOptionsDefaults(t *testing.T) {
	tess, _ := testEngine(t, 2, Options{})
	assert.Equal(t, 170.0, tess.Options().DetailThreshold)
	assert.Equal(t, uint64(30), tess.Options().StaleFrameLimit)

	_, err := NewTessellator(geo.Earth, testLevelSet(t, 2), cache.New(1), NewSyntheticProvider(geo.Earth),
		Options{DetailThreshold: -1})
	require.ErrorIs(t, err, geo.ErrInvalidArgument)
}

func TestFarEyeSelectsRoot(t *testing.T) {
	tess, _ := testEngine(t, 4, Options{})
	fc := testController(t, tess, 2e8)

	// First frame: nothing resident yet, the root's fetch is issued and the
	// frame completes with an empty visible set rather than blocking.
	tiles, err := fc.RenderFrame()
	require.NoError(t, err)
	assert.Empty(t, tiles)

	// Second frame drains the completion; exactly the root is visible.
	tiles, err = fc.RenderFrame()
	require.NoError(t, err)
	require.Len(t, tiles, 1)
	assert.Equal(t, pyramid.TileKey{Level: 0, Row: 0, Col: 0}, tiles[0].Key)
	assert.False(t, tiles[0].Degraded)
	require.NotNil(t, tiles[0].Content)
	_, hasGeometry := tiles[0].Content.(HasGeometry)
	assert.True(t, hasGeometry)
}

func TestNearEyeSelectsFinestLevel(t *testing.T) {
	tess, _ := testEngine(t, 4, Options{})
	fc := testController(t, tess, 5e6)

	var tiles []*Tile
	var err error
	for frame := 0; frame < 4; frame++ {
		tiles, err = fc.RenderFrame()
		require.NoError(t, err)
	}
	require.NotEmpty(t, tiles)

	finest := tess.LevelSet().FinestLevel()
	seen := make(map[pyramid.TileKey]bool)
	for _, tile := range tiles {
		assert.Equal(t, finest.Number, tile.Key.Level)
		assert.False(t, seen[tile.Key], "no duplicate keys in one sequence")
		seen[tile.Key] = true
		require.NotNil(t, tile.Content)
	}

	// Part of the pyramid is outside the view frustum and culled.
	assert.Less(t, len(tiles), finest.NumRows*finest.NumCols)
}

func TestFrustumExcludedSectorNeverEmitted(t *testing.T) {
	tess, _ := testEngine(t, 4, Options{})
	fc := testController(t, tess, 1e6)

	for frame := 0; frame < 4; frame++ {
		_, err := fc.RenderFrame()
		require.NoError(t, err)
	}
	tiles, err := fc.RenderFrame()
	require.NoError(t, err)
	require.NotEmpty(t, tiles)

	// With the eye 1000 km over (0, 0) and a 45 degree field of view, the
	// polar regions are far outside the view cone.
	for _, tile := range tiles {
		assert.False(t, tile.Sector.Contains(85, 90),
			"tile %v should have been culled", tile.Key)
	}
}

func TestTessellateIsDeterministic(t *testing.T) {
	tess, _ := testEngine(t, 4, Options{})
	fc := testController(t, tess, 5e6)

	for frame := 0; frame < 4; frame++ {
		_, err := fc.RenderFrame()
		require.NoError(t, err)
	}

	view, err := fc.ViewState()
	require.NoError(t, err)
	first := visibleKeys(tess.Tessellate(view))
	second := visibleKeys(tess.Tessellate(view))
	assert.Equal(t, first, second)
	assert.NotEmpty(t, first)
}

func TestDegradeToAncestorThenPromote(t *testing.T) {
	tess, _ := testEngine(t, 2, Options{})
	fc := testController(t, tess, 2e8)

	// Warm the root from afar.
	for frame := 0; frame < 2; frame++ {
		_, err := fc.RenderFrame()
		require.NoError(t, err)
	}
	rootKey := pyramid.TileKey{Level: 0, Row: 0, Col: 0}
	rootContent, ok := tess.Cache().Get(rootKey)
	require.True(t, ok)

	// Move in: the root subdivides, its children are not resident yet and
	// render the root's content in their place.
	fc.Camera.Altitude = 2e7
	tiles, err := fc.RenderFrame()
	require.NoError(t, err)
	require.Len(t, tiles, 4)
	for _, tile := range tiles {
		assert.Equal(t, 1, tile.Key.Level)
		assert.True(t, tile.Degraded)
		assert.Equal(t, rootKey, tile.DegradedFrom)
		assert.Same(t, rootContent, tile.Content)
	}

	// The next frame drains the children's completions and promotes them.
	tiles, err = fc.RenderFrame()
	require.NoError(t, err)
	require.Len(t, tiles, 4)
	for _, tile := range tiles {
		assert.False(t, tile.Degraded)
		require.NotNil(t, tile.Content)
		assert.NotSame(t, rootContent, tile.Content)
	}
}

// recordingProvider captures requests without ever completing them.
type recordingProvider struct {
	completions chan Completion
	requests    map[pyramid.TileKey]context.Context
}

func newRecordingProvider() *recordingProvider {
	return &recordingProvider{
		completions: make(chan Completion),
		requests:    make(map[pyramid.TileKey]context.Context),
	}
}

func (p *recordingProvider) Completions() <-chan Completion {
	return p.completions
}

func (p *recordingProvider) RequestContent(ctx context.Context, key pyramid.TileKey, _ geo.Sector, _ pyramid.Level) {
	p.requests[key] = ctx
}

func TestStaleFetchesAreCancelled(t *testing.T) {
	provider := newRecordingProvider()
	tess, err := NewTessellator(geo.Earth, testLevelSet(t, 2), cache.New(1<<30), provider,
		Options{StaleFrameLimit: 1})
	require.NoError(t, err)
	fc := testController(t, tess, 2e7)

	// Close in: the four leaf tiles are requested.
	_, err = fc.RenderFrame()
	require.NoError(t, err)
	require.Len(t, provider.requests, 4)

	// Pull back: only the root is wanted now. After the leaves have gone
	// unwanted past the stale limit their fetches are cancelled.
	fc.Camera.Altitude = 2e8
	for frame := 0; frame < 3; frame++ {
		_, err = fc.RenderFrame()
		require.NoError(t, err)
	}

	rootKey := pyramid.TileKey{Level: 0, Row: 0, Col: 0}
	for key, ctx := range provider.requests {
		if key == rootKey {
			assert.NoError(t, ctx.Err(), "the root fetch is still wanted")
			continue
		}
		assert.ErrorIs(t, ctx.Err(), context.Canceled, "leaf %v should be cancelled", key)
	}
}

func TestFailedCompletionsAreRetried(t *testing.T) {
	tess, provider := testEngine(t, 2, Options{})
	provider.Fail = func(pyramid.TileKey) error { return ErrTransientError }
	fc := testController(t, tess, 2e8)

	// Failures never surface as frame errors; the visible set is simply
	// empty until content arrives.
	for frame := 0; frame < 3; frame++ {
		tiles, err := fc.RenderFrame()
		require.NoError(t, err)
		assert.Empty(t, tiles)
	}

	// Once the provider recovers, the retried fetch fills the cache.
	provider.Fail = nil
	_, err := fc.RenderFrame()
	require.NoError(t, err)
	tiles, err := fc.RenderFrame()
	require.NoError(t, err)
	require.Len(t, tiles, 1)
	assert.False(t, tiles[0].Degraded)
}

func TestMixedDepthsByProjectedSize(t *testing.T) {
	tess, _ := testEngine(t, 6, Options{})
	fc := testController(t, tess, 2e6)

	var tiles []*Tile
	var err error
	for frame := 0; frame < 6; frame++ {
		tiles, err = fc.RenderFrame()
		require.NoError(t, err)
	}
	require.NotEmpty(t, tiles)

	levels := make(map[int]int)
	for _, tile := range tiles {
		levels[tile.Key.Level]++
	}
	assert.Greater(t, len(levels), 1,
		"near and far tiles should resolve to different depths, got %v", levels)
}
