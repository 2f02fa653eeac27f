package tess

import (
	"context"

	"github.com/globeviz/tessera/geo"
	"github.com/globeviz/tessera/mathhelp"
	"github.com/globeviz/tessera/pyramid"
)

// Completion is the asynchronous result of a content request. Either
// Content or Err is set; an Err wrapping ErrContentUnavailable or
// ErrTransientError is retried on a later frame.
type Completion struct {
	Key     pyramid.TileKey
	Content Content
	Err     error
}

// Provider supplies tile content asynchronously. RequestContent must return
// promptly; the result is delivered through Completions. A provider must
// stop working on a request once its context is cancelled, and must not
// send its completion after that.
type Provider interface {
	RequestContent(ctx context.Context, key pyramid.TileKey, sector geo.Sector, level pyramid.Level)
	Completions() <-chan Completion
}

// SyntheticProvider builds procedural tile meshes. It backs tests and the
// CLI's offline mode; content is deterministic per key.
type SyntheticProvider struct {
	globe       geo.Globe
	completions chan Completion

	// Fail, when set, is consulted per key to inject fetch failures.
	Fail func(key pyramid.TileKey) error
	// Synchronous makes RequestContent deliver before returning, keeping
	// single-goroutine tests deterministic. The channel must be drained
	// every frame either way.
	Synchronous bool
}

func NewSyntheticProvider(globe geo.Globe) *SyntheticProvider {
	return &SyntheticProvider{
		globe:       globe,
		completions: make(chan Completion, 256),
	}
}

func (p *SyntheticProvider) Completions() <-chan Completion {
	return p.completions
}

func (p *SyntheticProvider) RequestContent(ctx context.Context, key pyramid.TileKey, sector geo.Sector, level pyramid.Level) {
	if p.Synchronous {
		p.build(ctx, key, sector, level)
		return
	}
	go p.build(ctx, key, sector, level)
}

func (p *SyntheticProvider) build(ctx context.Context, key pyramid.TileKey, sector geo.Sector, level pyramid.Level) {
	if err := ctx.Err(); err != nil {
		return
	}

	completion := Completion{Key: key}
	if p.Fail != nil {
		completion.Err = p.Fail(key)
	}
	if completion.Err == nil {
		// Mesh density scales with the tile's raster dimensions, capped to
		// keep synthetic tiles cheap.
		grid := mathhelp.ClampInt(level.TileWidth/16, 2, 33)
		completion.Content = NewMeshContent(BuildTileMesh(p.globe, sector, grid, grid))
	}

	select {
	case p.completions <- completion:
	case <-ctx.Done():
	}
}
