package tess

import (
	"github.com/globeviz/tessera/geo"
	"github.com/globeviz/tessera/pyramid"
)

// Tile is a node of the tessellation quadtree: one geographic sector at one
// resolution level. Tiles live in the tessellator's arena keyed by TileKey;
// children are recomputed from the key on demand, never linked by pointer.
type Tile struct {
	Key    pyramid.TileKey
	Sector geo.Sector

	// Content is set while the tile is part of a visible set. When
	// Degraded is true the content belongs to the ancestor DegradedFrom
	// and is rendered in this tile's place.
	Content      Content
	Degraded     bool
	DegradedFrom pyramid.TileKey

	bounds      geo.BoundingVolume
	lastVisited uint64
}

func newTile(key pyramid.TileKey, sector geo.Sector) *Tile {
	return &Tile{Key: key, Sector: sector}
}

// boundsGrid is the sample density for bounding volume computation.
const boundsGrid = 5

// BoundingVolume returns the tile's bounding volume, computing it on first
// use and caching it with the tile. A point set too degenerate for an
// oriented box degrades to a bounding sphere instead of failing.
func (t *Tile) BoundingVolume(globe geo.Globe) geo.BoundingVolume {
	if t.bounds != nil {
		return t.bounds
	}

	points := globe.SurfacePoints(t.Sector, boundsGrid, boundsGrid)
	box, err := geo.BoxFromPoints(points, 3)
	if err == nil {
		t.bounds = box
		return t.bounds
	}
	Logger().Debug("bounding box degenerate, falling back to sphere",
		"tile", t.Key.String(), "err", err)

	sphere, err := geo.SphereFromPoints(points, 3)
	if err == nil {
		t.bounds = sphere
		return t.bounds
	}

	// SurfacePoints always yields at least four points, so this is only
	// reachable with a malformed sector.
	lat, lon := t.Sector.Centroid()
	t.bounds = geo.NewBoundingSphere(globe.GeographicToCartesian(lat, lon, 0), globe.Radius)
	return t.bounds
}
