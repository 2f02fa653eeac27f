package geo

import "math"

// Globe models the planet as a sphere of the given radius in meters. The
// Cartesian frame is ECEF-like: x points at latitude/longitude (0, 0), z at
// the north pole.
type Globe struct {
	Radius float64
}

// Earth is a spherical earth using the WGS84 equatorial radius.
var Earth = Globe{Radius: 6378137}

// GeographicToCartesian converts a geodetic location and altitude (meters
// above the surface) to Cartesian model coordinates.
func (g Globe) GeographicToCartesian(latDeg, lonDeg, altitude float64) Vec3 {
	lat := latDeg * math.Pi / 180
	lon := lonDeg * math.Pi / 180
	r := g.Radius + altitude

	cosLat := math.Cos(lat)
	return Vec3{
		X: r * cosLat * math.Cos(lon),
		Y: r * cosLat * math.Sin(lon),
		Z: r * math.Sin(lat),
	}
}

// SurfacePoints samples a numLat x numLon grid of surface points spanning
// the sector, inclusive of its edges, packed as consecutive x/y/z tuples
// (stride 3). The packing matches what SetToCovarianceOfPoints expects.
// Grids smaller than 2x2 collapse to the sector's corners.
func (g Globe) SurfacePoints(sector Sector, numLat, numLon int) []float64 {
	if numLat < 2 {
		numLat = 2
	}
	if numLon < 2 {
		numLon = 2
	}

	points := make([]float64, 0, numLat*numLon*3)
	for j := 0; j < numLat; j++ {
		lat := sector.MinLat + sector.DeltaLat()*float64(j)/float64(numLat-1)
		for i := 0; i < numLon; i++ {
			lon := sector.MinLon + sector.DeltaLon()*float64(i)/float64(numLon-1)
			p := g.GeographicToCartesian(lat, lon, 0)
			points = append(points, p.X, p.Y, p.Z)
		}
	}
	return points
}
