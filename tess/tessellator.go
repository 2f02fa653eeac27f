// Package tess walks a level pyramid each frame and decides, per tile,
// whether its resolution suffices for the current view or its children
// must be visited instead. The walk produces the ordered visible tile set
// consumed by an external renderer; tile content arrives asynchronously
// from a Provider and is held in a byte-budgeted cache.
package tess

import (
	"context"
	"fmt"
	"math"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/umpc/go-sortedmap"

	"github.com/globeviz/tessera/cache"
	"github.com/globeviz/tessera/geo"
	"github.com/globeviz/tessera/pyramid"
)

// Options tunes the tessellation walk. The zero value gets defaults.
type Options struct {
	// DetailThreshold is the projected tile extent in pixels above which a
	// tile is subdivided. Lower values subdivide sooner.
	DetailThreshold float64 `default:"170" validate:"gt=0"`
	// StaleFrameLimit is the number of frames a tile may go unvisited
	// before its in-flight fetch is cancelled and its arena entry dropped.
	StaleFrameLimit uint64 `default:"30" validate:"min=1"`
}

// pendingFetch tracks one in-flight content request.
type pendingFetch struct {
	lastWanted uint64
	cancel     context.CancelFunc
}

// Tessellator produces the visible tile set for a view. A single pass runs
// synchronously on the caller's goroutine; only the cache is shared with
// provider goroutines.
type Tessellator struct {
	globe    geo.Globe
	levels   *pyramid.LevelSet
	cache    *cache.Cache
	provider Provider
	opts     Options

	arena   map[pyramid.TileKey]*Tile
	pending *sortedmap.SortedMap
	frame   uint64
}

func NewTessellator(globe geo.Globe, levels *pyramid.LevelSet, c *cache.Cache, provider Provider, opts Options) (*Tessellator, error) {
	if err := defaults.Set(&opts); err != nil {
		return nil, err
	}
	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(&opts); err != nil {
		return nil, fmt.Errorf("%v: %w", err, geo.ErrInvalidArgument)
	}

	return &Tessellator{
		globe:    globe,
		levels:   levels,
		cache:    c,
		provider: provider,
		opts:     opts,
		arena:    make(map[pyramid.TileKey]*Tile),
		pending: sortedmap.New(64, func(x, y interface{}) bool {
			return x.(pendingFetch).lastWanted < y.(pendingFetch).lastWanted
		}),
	}, nil
}

func (t *Tessellator) Globe() geo.Globe {
	return t.globe
}

// LevelSet exposes the pyramid for read-only introspection, e.g. picking.
func (t *Tessellator) LevelSet() *pyramid.LevelSet {
	return t.levels
}

func (t *Tessellator) Cache() *cache.Cache {
	return t.cache
}

// Options returns the effective options after defaulting.
func (t *Tessellator) Options() Options {
	return t.opts
}

// Frame returns the number of completed tessellation passes.
func (t *Tessellator) Frame() uint64 {
	return t.frame
}

// tessPass holds one pass's accumulating state.
type tessPass struct {
	view    ViewState
	frustum *geo.Frustum
	visible []*Tile
	pinned  []pyramid.TileKey
}

// Tessellate walks the pyramid top-down for the given view and returns the
// visible tiles, coarsest-first in deterministic row-major order, each with
// non-nil content. Tiles whose content is not resident render a resident
// ancestor's content in their place (Degraded) or are omitted this frame.
func (t *Tessellator) Tessellate(view ViewState) []*Tile {
	t.frame++
	t.drainCompletions()

	frustum := geo.FrustumFromMatrix(&view.ViewProjection)
	pass := &tessPass{view: view, frustum: &frustum}
	for _, key := range t.levels.TopLevelKeys() {
		t.walk(pass, key)
	}

	// The visible set is pinned across the trim so end-of-frame eviction
	// can never free content that is about to be rendered.
	for _, key := range pass.pinned {
		t.cache.Pin(key)
	}
	t.cache.Trim()
	t.cache.UnpinAll()

	t.cancelStale()
	t.pruneArena()

	Logger().Debug("tessellation pass complete",
		"frame", t.frame, "visible", len(pass.visible), "pending", t.pending.Len())
	return pass.visible
}

func (t *Tessellator) walk(pass *tessPass, key pyramid.TileKey) {
	tile := t.tile(key)
	tile.lastVisited = t.frame

	bounds := tile.BoundingVolume(t.globe)
	if !bounds.IntersectsFrustum(pass.frustum) {
		return
	}

	if t.mustSubdivide(pass, bounds) {
		children := t.levels.ChildKeys(key)
		if len(children) > 0 {
			for _, child := range children {
				t.walk(pass, child)
			}
			return
		}
		// Finest level: select regardless of the metric.
	}
	t.emit(pass, tile)
}

// mustSubdivide compares the tile's projected screen extent against the
// detail threshold. Strictly distance based: two tiles of the same level
// may resolve to different depths when their distances to the eye differ.
func (t *Tessellator) mustSubdivide(pass *tessPass, bounds geo.BoundingVolume) bool {
	distance := bounds.DistanceTo(pass.view.Eye)
	if distance <= 0 {
		// Eye inside the volume.
		return true
	}

	halfFovRad := pass.view.FovYDegrees * 0.5 * math.Pi / 180
	pixelsPerMeter := pass.view.ViewportHeight / (2 * distance * math.Tan(halfFovRad))
	projected := 2 * bounds.Radius() * pixelsPerMeter
	return projected > t.opts.DetailThreshold
}

func (t *Tessellator) emit(pass *tessPass, tile *Tile) {
	if content, ok := t.cache.Get(tile.Key); ok {
		tile.Content = content.(Content)
		tile.Degraded = false
		tile.DegradedFrom = pyramid.TileKey{}
		pass.pinned = append(pass.pinned, tile.Key)
		pass.visible = append(pass.visible, tile)
		return
	}

	t.requestContent(tile)

	// Graceful degradation: render the nearest resident ancestor in this
	// tile's place until its own content arrives.
	key := tile.Key
	for key.Level > 0 {
		key = pyramid.TileKey{Level: key.Level - 1, Row: key.Row / t.levels.Factor, Col: key.Col / t.levels.Factor}
		content, ok := t.cache.Get(key)
		if !ok {
			continue
		}
		tile.Content = content.(Content)
		tile.Degraded = true
		tile.DegradedFrom = key
		pass.pinned = append(pass.pinned, key)
		pass.visible = append(pass.visible, tile)
		return
	}

	// Nothing resident along the ancestor chain: omitted this frame.
	tile.Content = nil
	tile.Degraded = false
	Logger().Debug("no resident content, tile omitted", "tile", tile.Key.String())
}

// requestContent issues a fetch for the tile unless one is already in
// flight, in which case the fetch's last-wanted frame is bumped so it
// survives staleness cancellation.
func (t *Tessellator) requestContent(tile *Tile) {
	if rec, ok := t.pending.Get(tile.Key); ok {
		pf := rec.(pendingFetch)
		pf.lastWanted = t.frame
		t.pending.Replace(tile.Key, pf)
		return
	}

	level, ok := t.levels.Level(tile.Key.Level)
	if !ok {
		panic(fmt.Errorf("tile %v has no level in the pyramid", tile.Key))
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.pending.Replace(tile.Key, pendingFetch{lastWanted: t.frame, cancel: cancel})
	Logger().Debug("requesting tile content", "tile", tile.Key.String())
	t.provider.RequestContent(ctx, tile.Key, tile.Sector, level)
}

// drainCompletions moves finished fetches into the cache. Runs at frame
// start and never blocks; failures are dropped and retried whenever the
// tile is wanted again.
func (t *Tessellator) drainCompletions() {
	for {
		select {
		case completion := <-t.provider.Completions():
			if rec, ok := t.pending.Get(completion.Key); ok {
				rec.(pendingFetch).cancel()
				t.pending.Delete(completion.Key)
			}
			if completion.Err != nil {
				Logger().Debug("tile content fetch failed",
					"tile", completion.Key.String(), "err", completion.Err)
				continue
			}
			t.cache.Put(completion.Key, completion.Content, completion.Content.Size())
		default:
			return
		}
	}
}

// cancelStale cancels fetches for tiles that have fallen out of the wanted
// set for more than StaleFrameLimit frames. The ledger is sorted by
// last-wanted frame, so the scan stops at the first fresh entry.
func (t *Tessellator) cancelStale() {
	if t.pending.Len() == 0 {
		return
	}
	byKey := t.pending.Map()
	for _, key := range t.pending.Keys() {
		pf := byKey[key].(pendingFetch)
		if t.frame-pf.lastWanted <= t.opts.StaleFrameLimit {
			break
		}
		pf.cancel()
		t.pending.Delete(key)
		Logger().Debug("cancelled stale tile fetch", "tile", key.(pyramid.TileKey).String())
	}
}

// pruneArena drops tiles no pass has visited recently. Their bounding
// volumes are recomputed if the view returns to them.
func (t *Tessellator) pruneArena() {
	for key, tile := range t.arena {
		if t.frame-tile.lastVisited > t.opts.StaleFrameLimit {
			delete(t.arena, key)
		}
	}
}

func (t *Tessellator) tile(key pyramid.TileKey) *Tile {
	if tile, ok := t.arena[key]; ok {
		return tile
	}
	sector, ok := t.levels.TileSector(key)
	if !ok {
		panic(fmt.Errorf("tile key %v is outside the pyramid", key))
	}
	tile := newTile(key, sector)
	t.arena[key] = tile
	return tile
}
