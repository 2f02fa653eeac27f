package tess

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/globeviz/tessera/geo"
	"github.com/globeviz/tessera/pyramid"
)

func TestBuildTileMesh(t *testing.T) {
	sector := geo.Sector{MinLat: 0, MaxLat: 10, MinLon: 0, MaxLon: 10}
	mesh := BuildTileMesh(geo.Earth, sector, 3, 4)

	assert.Len(t, mesh.Vertices, 3*4*3)
	// Two triangles per cell, 2x3 cells.
	assert.Len(t, mesh.Indices, 6*2*3)
	// The skirt walks the border once.
	assert.Len(t, mesh.SkirtIndices, 2*(3+4)-4)

	for _, idx := range mesh.Indices {
		assert.Less(t, int(idx), 3*4)
	}
	for _, idx := range mesh.SkirtIndices {
		assert.Less(t, int(idx), 3*4)
	}

	// Identical input produces identical output.
	again := BuildTileMesh(geo.Earth, sector, 3, 4)
	assert.Equal(t, mesh, again)

	// Degenerate grid sizes collapse to 2x2.
	tiny := BuildTileMesh(geo.Earth, sector, 0, 1)
	assert.Len(t, tiny.Vertices, 2*2*3)
	assert.Len(t, tiny.Indices, 6)
}

func TestContentSizeAndRelease(t *testing.T) {
	mesh := BuildTileMesh(geo.Earth, geo.FullSphere, 2, 2)
	wantMeshSize := int64(8*len(mesh.Vertices) + 4*len(mesh.Indices) + 4*len(mesh.SkirtIndices))

	mc := NewMeshContent(mesh)
	assert.Equal(t, wantMeshSize, mc.Size())
	assert.Same(t, mesh, mc.Geometry())
	mc.Release()
	assert.Nil(t, mc.Geometry())
	assert.Equal(t, int64(0), mc.Size())

	texture := []byte{1, 2, 3, 4}
	tmc := NewTexturedMeshContent(BuildTileMesh(geo.Earth, geo.FullSphere, 2, 2), texture)
	assert.Equal(t, wantMeshSize+4, tmc.Size())
	assert.Equal(t, texture, tmc.Texture())
	tmc.Release()
	assert.Nil(t, tmc.Geometry())
	assert.Nil(t, tmc.Texture())

	// Both variants advertise geometry through the capability interface.
	var _ HasGeometry = (*MeshContent)(nil)
	var _ HasGeometry = (*TexturedMeshContent)(nil)
	var _ HasTexture = (*TexturedMeshContent)(nil)
}

func TestSyntheticProvider(t *testing.T) {
	p := NewSyntheticProvider(geo.Earth)
	p.Synchronous = true

	key := pyramid.TileKey{Level: 1, Row: 0, Col: 1}
	sector := geo.Sector{MinLat: 0, MaxLat: 90, MinLon: 0, MaxLon: 180}
	level := pyramid.Level{Number: 1, TileWidth: 256, TileHeight: 256}

	p.RequestContent(context.Background(), key, sector, level)

	select {
	case completion := <-p.Completions():
		require.NoError(t, completion.Err)
		assert.Equal(t, key, completion.Key)
		geom, ok := completion.Content.(HasGeometry)
		require.True(t, ok)
		assert.NotEmpty(t, geom.Geometry().Vertices)
	default:
		t.Fatal("expected a completion")
	}
}

func TestSyntheticProviderFailureInjection(t *testing.T) {
	p := NewSyntheticProvider(geo.Earth)
	p.Synchronous = true
	p.Fail = func(key pyramid.TileKey) error {
		if key.Level == 0 {
			return ErrTransientError
		}
		return nil
	}

	p.RequestContent(context.Background(), pyramid.TileKey{}, geo.FullSphere, pyramid.Level{TileWidth: 256, TileHeight: 256})
	completion := <-p.Completions()
	require.ErrorIs(t, completion.Err, ErrTransientError)
	assert.Nil(t, completion.Content)
}

func TestSyntheticProviderHonorsCancellation(t *testing.T) {
	p := NewSyntheticProvider(geo.Earth)
	p.Synchronous = true

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p.RequestContent(ctx, pyramid.TileKey{}, geo.FullSphere, pyramid.Level{TileWidth: 256, TileHeight: 256})

	select {
	case <-p.Completions():
		t.Fatal("cancelled request must not deliver a completion")
	default:
	}
}
