package geomhelp

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/globeviz/tessera/geo"
)

func TestSectorToPolygon(t *testing.T) {
	p := SectorToPolygon(geo.Sector{MinLat: -10, MaxLat: 10, MinLon: 20, MaxLon: 40})
	require.Len(t, p, 1)
	require.Len(t, p[0], 4)
	assert.Equal(t, [2]float64{20, -10}, p[0][0], "coordinates are lon/lat")
	assert.Equal(t, [2]float64{40, 10}, p[0][2])
}

func TestSectorWkt(t *testing.T) {
	s := geo.Sector{MinLat: 0, MaxLat: 1, MinLon: 0, MaxLon: 1}

	full := SectorWkt(s, 0)
	assert.True(t, strings.HasPrefix(full, "POLYGON"))
	assert.Contains(t, full, "1 1")

	short := SectorWkt(s, 12)
	assert.LessOrEqual(t, len(short), 12)
	assert.True(t, strings.HasSuffix(short, "..."))
}

func TestSectorsWkt(t *testing.T) {
	sectors := []geo.Sector{
		{MinLat: 0, MaxLat: 1, MinLon: 0, MaxLon: 1},
		{MinLat: 1, MaxLat: 2, MinLon: 1, MaxLon: 2},
	}
	out := SectorsWkt(sectors, 0)
	assert.Equal(t, 2, strings.Count(out, "POLYGON"))

	mp := SectorsToMultiPolygon(sectors)
	require.Len(t, mp, 2)
}
