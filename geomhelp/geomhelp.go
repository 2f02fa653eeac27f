// Package geomhelp converts geographic sectors to go-spatial geometries,
// mainly for debug output.
package geomhelp

import (
	"strings"

	"github.com/go-spatial/geom"
	"github.com/go-spatial/geom/encoding/wkt"
	"github.com/muesli/reflow/truncate"

	"github.com/globeviz/tessera/geo"
)

// SectorToPolygon returns the sector's outline as a single-ring polygon in
// lon/lat order.
func SectorToPolygon(s geo.Sector) geom.Polygon {
	return geom.Polygon{{
		{s.MinLon, s.MinLat},
		{s.MaxLon, s.MinLat},
		{s.MaxLon, s.MaxLat},
		{s.MinLon, s.MaxLat},
	}}
}

// SectorsToMultiPolygon collects sector outlines into one multipolygon,
// handy for dumping a frame's tile coverage as a single geometry.
func SectorsToMultiPolygon(sectors []geo.Sector) geom.MultiPolygon {
	mp := make(geom.MultiPolygon, len(sectors))
	for i := range sectors {
		mp[i] = SectorToPolygon(sectors[i])
	}
	return mp
}

// WktMustEncode encodes a geometry as WKT, truncated to maxLen characters
// (0 disables truncation). Panics on encoding failure.
func WktMustEncode(g geom.Geometry, maxLen uint) string {
	if maxLen == 0 {
		return wkt.MustEncode(g)
	}
	return truncate.StringWithTail(wkt.MustEncode(g), maxLen, "...")
}

// SectorWkt is shorthand for encoding a single sector outline.
func SectorWkt(s geo.Sector, maxLen uint) string {
	return WktMustEncode(SectorToPolygon(s), maxLen)
}

// SectorsWkt encodes sector outlines one per line, each truncated to maxLen.
func SectorsWkt(sectors []geo.Sector, maxLen uint) string {
	lines := make([]string, len(sectors))
	for i := range sectors {
		lines[i] = SectorWkt(sectors[i], maxLen)
	}
	return strings.Join(lines, "\n")
}
