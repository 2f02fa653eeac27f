// Package gpkg serves tile content from a GeoPackage-style SQLite tile
// pyramid: a table of pre-encoded raster blobs keyed by zoom level, column
// and row. The blobs stay opaque; they are attached as texture bytes to a
// procedurally built surface mesh.
package gpkg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/globeviz/tessera/geo"
	"github.com/globeviz/tessera/pyramid"
	"github.com/globeviz/tessera/tess"
)

// meshGrid is the vertex grid density of the meshes built for fetched tiles.
const meshGrid = 17

// Provider implements tess.Provider against a GeoPackage tiles table.
// Each request runs on its own goroutine and honors its context.
type Provider struct {
	db          *sql.DB
	table       string
	globe       geo.Globe
	completions chan tess.Completion
}

// Open opens the GeoPackage at path and serves tiles from the named table.
func Open(path, table string, globe geo.Globe) (*Provider, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening geopackage %v: %w", path, err)
	}
	if err = db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("opening geopackage %v: %w", path, err)
	}
	return &Provider{
		db:          db,
		table:       table,
		globe:       globe,
		completions: make(chan tess.Completion, 256),
	}, nil
}

func (p *Provider) Close() error {
	return p.db.Close()
}

func (p *Provider) Completions() <-chan tess.Completion {
	return p.completions
}

func (p *Provider) RequestContent(ctx context.Context, key pyramid.TileKey, sector geo.Sector, level pyramid.Level) {
	go p.fetch(ctx, key, sector, level)
}

func (p *Provider) fetch(ctx context.Context, key pyramid.TileKey, sector geo.Sector, level pyramid.Level) {
	// GeoPackage tile rows count down from the northern edge.
	gpkgRow := level.NumRows - 1 - key.Row

	//nolint:gosec // table is configuration, not user input
	query := fmt.Sprintf(
		"SELECT tile_data FROM %s WHERE zoom_level = ? AND tile_column = ? AND tile_row = ?", p.table)

	completion := tess.Completion{Key: key}
	var blob []byte
	err := p.db.QueryRowContext(ctx, query, key.Level, key.Col, gpkgRow).Scan(&blob)
	switch {
	case ctx.Err() != nil:
		return
	case errors.Is(err, sql.ErrNoRows):
		completion.Err = fmt.Errorf("tile %v: %w", key, tess.ErrContentUnavailable)
	case err != nil:
		completion.Err = fmt.Errorf("tile %v: %v: %w", key, err, tess.ErrTransientError)
	default:
		mesh := tess.BuildTileMesh(p.globe, sector, meshGrid, meshGrid)
		completion.Content = tess.NewTexturedMeshContent(mesh, blob)
	}

	select {
	case p.completions <- completion:
	case <-ctx.Done():
	}
}
