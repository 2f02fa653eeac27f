package geo

import (
	"fmt"

	"github.com/go-spatial/geom"
)

// Sector is a geographic rectangle in degrees. Latitude grows northward,
// longitude grows eastward.
type Sector struct {
	MinLat float64
	MaxLat float64
	MinLon float64
	MaxLon float64
}

// FullSphere covers the whole globe.
var FullSphere = Sector{MinLat: -90, MaxLat: 90, MinLon: -180, MaxLon: 180}

func (s Sector) DeltaLat() float64 {
	return s.MaxLat - s.MinLat
}

func (s Sector) DeltaLon() float64 {
	return s.MaxLon - s.MinLon
}

// IsValid reports whether the sector has positive extent in both directions.
func (s Sector) IsValid() bool {
	return s.MinLat < s.MaxLat && s.MinLon < s.MaxLon
}

// Centroid returns the latitude/longitude midpoint.
func (s Sector) Centroid() (lat, lon float64) {
	return (s.MinLat + s.MaxLat) / 2, (s.MinLon + s.MaxLon) / 2
}

// Contains reports whether the location is inside the sector. The maximum
// edges are inclusive so a full-sphere sector contains the poles and the
// antimeridian.
func (s Sector) Contains(lat, lon float64) bool {
	return s.MinLat <= lat && lat <= s.MaxLat &&
		s.MinLon <= lon && lon <= s.MaxLon
}

// ContainsSector reports whether o lies entirely within s.
func (s Sector) ContainsSector(o Sector) bool {
	return s.MinLat <= o.MinLat && o.MaxLat <= s.MaxLat &&
		s.MinLon <= o.MinLon && o.MaxLon <= s.MaxLon
}

// Intersects reports whether the two sectors share any area. Touching edges
// do not count as intersection.
func (s Sector) Intersects(o Sector) bool {
	return s.MinLat < o.MaxLat && o.MinLat < s.MaxLat &&
		s.MinLon < o.MaxLon && o.MinLon < s.MaxLon
}

// Union returns the smallest sector containing both s and o.
func (s Sector) Union(o Sector) Sector {
	return Sector{
		MinLat: min(s.MinLat, o.MinLat),
		MaxLat: max(s.MaxLat, o.MaxLat),
		MinLon: min(s.MinLon, o.MinLon),
		MaxLon: max(s.MaxLon, o.MaxLon),
	}
}

// ToGeomExtent converts to a geom.Extent in lon/lat (x/y) order.
func (s Sector) ToGeomExtent() geom.Extent {
	return geom.Extent{s.MinLon, s.MinLat, s.MaxLon, s.MaxLat}
}

// FromGeomExtent converts a lon/lat geom.Extent to a Sector.
func FromGeomExtent(e geom.Extent) Sector {
	return Sector{MinLat: e.MinY(), MaxLat: e.MaxY(), MinLon: e.MinX(), MaxLon: e.MaxX()}
}

func (s Sector) String() string {
	return fmt.Sprintf("(%v,%v)-(%v,%v)", s.MinLat, s.MinLon, s.MaxLat, s.MaxLon)
}
