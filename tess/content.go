package tess

import (
	"github.com/globeviz/tessera/cache"
	"github.com/globeviz/tessera/geo"
)

// Content is a tile's renderable payload as stored in the cache. Concrete
// variants advertise what they carry through the capability interfaces
// HasGeometry and HasTexture; renderers type-switch on those rather than on
// concrete types.
type Content interface {
	cache.Payload
}

// HasGeometry is implemented by content carrying a renderable surface mesh.
type HasGeometry interface {
	Geometry() *Mesh
}

// HasTexture is implemented by content carrying an encoded raster payload.
// The bytes are opaque to the engine; decoding is the renderer's concern.
type HasTexture interface {
	Texture() []byte
}

// Mesh is a tile's triangulated surface: packed x/y/z vertices, triangle
// indices and the skirt indices that stitch the tile to its neighbors at
// resolution boundaries.
type Mesh struct {
	Vertices     []float64
	Indices      []uint32
	SkirtIndices []uint32
}

// SizeBytes estimates the mesh's resident size.
func (m *Mesh) SizeBytes() int64 {
	return int64(8*len(m.Vertices) + 4*len(m.Indices) + 4*len(m.SkirtIndices))
}

// MeshContent is geometry-only tile content.
type MeshContent struct {
	mesh *Mesh
}

func NewMeshContent(mesh *Mesh) *MeshContent {
	return &MeshContent{mesh: mesh}
}

func (c *MeshContent) Geometry() *Mesh {
	return c.mesh
}

func (c *MeshContent) Size() int64 {
	if c.mesh == nil {
		return 0
	}
	return c.mesh.SizeBytes()
}

// Release drops the buffers. The content must not be used afterwards.
func (c *MeshContent) Release() {
	c.mesh = nil
}

// TexturedMeshContent is tile content carrying both a surface mesh and an
// encoded texture.
type TexturedMeshContent struct {
	mesh    *Mesh
	texture []byte
}

func NewTexturedMeshContent(mesh *Mesh, texture []byte) *TexturedMeshContent {
	return &TexturedMeshContent{mesh: mesh, texture: texture}
}

func (c *TexturedMeshContent) Geometry() *Mesh {
	return c.mesh
}

func (c *TexturedMeshContent) Texture() []byte {
	return c.texture
}

func (c *TexturedMeshContent) Size() int64 {
	size := int64(len(c.texture))
	if c.mesh != nil {
		size += c.mesh.SizeBytes()
	}
	return size
}

func (c *TexturedMeshContent) Release() {
	c.mesh = nil
	c.texture = nil
}

// BuildTileMesh samples a numLat x numLon grid of surface points over the
// sector and triangulates it, with a skirt index loop around the border.
// Deterministic for identical inputs.
func BuildTileMesh(globe geo.Globe, sector geo.Sector, numLat, numLon int) *Mesh {
	if numLat < 2 {
		numLat = 2
	}
	if numLon < 2 {
		numLon = 2
	}
	vertices := globe.SurfacePoints(sector, numLat, numLon)

	// Two triangles per grid cell, counter-clockwise seen from outside.
	indices := make([]uint32, 0, 6*(numLat-1)*(numLon-1))
	for j := 0; j < numLat-1; j++ {
		for i := 0; i < numLon-1; i++ {
			sw := uint32(j*numLon + i)
			se := sw + 1
			nw := sw + uint32(numLon)
			ne := nw + 1
			indices = append(indices, sw, se, ne, sw, ne, nw)
		}
	}

	// Border loop, south edge west to east, then counter-clockwise around.
	skirt := make([]uint32, 0, 2*(numLat+numLon)-4)
	for i := 0; i < numLon; i++ {
		skirt = append(skirt, uint32(i))
	}
	for j := 1; j < numLat; j++ {
		skirt = append(skirt, uint32(j*numLon+numLon-1))
	}
	for i := numLon - 2; i >= 0; i-- {
		skirt = append(skirt, uint32((numLat-1)*numLon+i))
	}
	for j := numLat - 2; j >= 1; j-- {
		skirt = append(skirt, uint32(j*numLon))
	}

	return &Mesh{Vertices: vertices, Indices: indices, SkirtIndices: skirt}
}
