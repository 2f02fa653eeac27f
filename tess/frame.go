package tess

import (
	"fmt"
	"math"

	"github.com/globeviz/tessera/geo"
)

// ViewState is the per-frame view description consumed by Tessellate.
// Rebuilt every frame, never mutated during a pass.
type ViewState struct {
	Eye            geo.Vec3
	View           geo.Matrix
	Projection     geo.Matrix
	ViewProjection geo.Matrix
	ViewportWidth  float64
	ViewportHeight float64
	FovYDegrees    float64
}

// Camera is a geodetic eye position looking straight down at the globe
// center, with north up.
type Camera struct {
	Lat      float64
	Lon      float64
	Altitude float64
}

// FrameController drives one tessellation pass per frame: it owns the
// camera and viewport, derives the ViewState and hands the resulting tile
// list to the external renderer.
type FrameController struct {
	Camera Camera

	tess           *Tessellator
	viewportWidth  float64
	viewportHeight float64
	fovYDegrees    float64
}

func NewFrameController(t *Tessellator, viewportWidth, viewportHeight, fovYDegrees float64) (*FrameController, error) {
	// Validate the projection parameters once, up front.
	var m geo.Matrix
	if err := m.SetToPerspectiveProjection(viewportWidth, viewportHeight, fovYDegrees, 1, 2); err != nil {
		return nil, err
	}
	return &FrameController{
		tess:           t,
		viewportWidth:  viewportWidth,
		viewportHeight: viewportHeight,
		fovYDegrees:    fovYDegrees,
	}, nil
}

func (fc *FrameController) Tessellator() *Tessellator {
	return fc.tess
}

// ViewState builds the current frame's view description from the camera.
func (fc *FrameController) ViewState() (ViewState, error) {
	globe := fc.tess.Globe()
	if fc.Camera.Altitude <= 0 {
		return ViewState{}, fmt.Errorf("camera altitude %v is not positive: %w",
			fc.Camera.Altitude, geo.ErrInvalidArgument)
	}
	eye := globe.GeographicToCartesian(fc.Camera.Lat, fc.Camera.Lon, fc.Camera.Altitude)

	// Camera basis: backward away from the globe center, north as the up
	// hint, or the x axis when looking down a pole.
	backward := eye.Normalize()
	upHint := geo.Vec3{Z: 1}
	if math.Abs(backward.Dot(upHint)) > 0.999 {
		upHint = geo.Vec3{X: 1}
	}
	right := upHint.Cross(backward).Normalize()
	up := backward.Cross(right)

	camToWorld := geo.Matrix{
		right.X, up.X, backward.X, eye.X,
		right.Y, up.Y, backward.Y, eye.Y,
		right.Z, up.Z, backward.Z, eye.Z,
		0, 0, 0, 1,
	}
	var view geo.Matrix
	view.InvertOrthonormalMatrix(&camToWorld)

	// Clip distances track the eye altitude: the nearest surface is one
	// altitude away, the farthest visible point no more than the eye's
	// distance from the center plus one radius.
	near := max(1, fc.Camera.Altitude*0.1)
	far := eye.Length() + globe.Radius
	var projection geo.Matrix
	err := projection.SetToPerspectiveProjection(fc.viewportWidth, fc.viewportHeight, fc.fovYDegrees, near, far)
	if err != nil {
		return ViewState{}, err
	}

	viewProjection := projection
	viewProjection.Multiply(&view)

	return ViewState{
		Eye:            eye,
		View:           view,
		Projection:     projection,
		ViewProjection: viewProjection,
		ViewportWidth:  fc.viewportWidth,
		ViewportHeight: fc.viewportHeight,
		FovYDegrees:    fc.fovYDegrees,
	}, nil
}

// RenderFrame runs one tessellation pass and returns the ordered visible
// tile list for the renderer.
func (fc *FrameController) RenderFrame() ([]*Tile, error) {
	view, err := fc.ViewState()
	if err != nil {
		return nil, err
	}
	return fc.tess.Tessellate(view), nil
}
