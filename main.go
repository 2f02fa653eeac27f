package main

import (
	"fmt"
	"log"
	"log/slog"
	"os"
	"slices"
	"strings"

	"github.com/carlmjohnson/versioninfo"

	"github.com/globeviz/tessera/cache"
	"github.com/globeviz/tessera/geo"
	"github.com/globeviz/tessera/geomhelp"
	"github.com/globeviz/tessera/gpkg"
	"github.com/globeviz/tessera/pyramid"
	"github.com/globeviz/tessera/tess"

	"github.com/iancoleman/strcase"
	"github.com/urfave/cli/v2"
	"golang.org/x/exp/maps"
)

const PYRAMID string = `pyramid`
const SOURCE string = `sourceGpkg`
const TILESTABLE string = `tilesTable`
const CACHEBUDGET string = `cacheBudget`
const VIEWPORTWIDTH string = `viewportWidth`
const VIEWPORTHEIGHT string = `viewportHeight`
const FOV string = `fov`
const DETAILTHRESHOLD string = `detailThreshold`
const EYELAT string = `eyeLat`
const EYELON string = `eyeLon`
const EYEALTITUDE string = `eyeAltitude`
const ORBITSTEP string = `orbitStep`
const FRAMES string = `frames`
const WKTDUMP string = `wktDump`
const VERBOSE string = `verbose`

// wktMaxLen keeps dumped tile outlines to one readable line each.
const wktMaxLen = 120

//nolint:funlen
func main() {
	app := cli.NewApp()
	app.Name = "tessera"
	app.Usage = "A Golang globe tessellation engine"
	app.Version = versioninfo.Short()

	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:     PYRAMID,
			Aliases:  []string{"p"},
			Usage:    "ID of a built-in level pyramid. E.g.: GlobalGeographic",
			Value:    "GlobalGeographic",
			Required: false,
			EnvVars:  []string{strcase.ToScreamingSnake(PYRAMID)},
		},
		&cli.StringFlag{
			Name:     SOURCE,
			Aliases:  []string{"s"},
			Usage:    "Source GPKG with a tiles table to serve content from. Without it, procedural content is generated",
			Required: false,
			EnvVars:  []string{strcase.ToScreamingSnake(SOURCE)},
		},
		&cli.StringFlag{
			Name:     TILESTABLE,
			Usage:    "Name of the tiles table in the source GPKG",
			Value:    "tiles",
			Required: false,
			EnvVars:  []string{strcase.ToScreamingSnake(TILESTABLE)},
		},
		&cli.Int64Flag{
			Name:     CACHEBUDGET,
			Aliases:  []string{"b"},
			Usage:    "Tile cache budget in bytes",
			Value:    256 << 20,
			Required: false,
			EnvVars:  []string{strcase.ToScreamingSnake(CACHEBUDGET)},
		},
		&cli.Float64Flag{
			Name:     VIEWPORTWIDTH,
			Usage:    "Viewport width in pixels",
			Value:    1024,
			Required: false,
			EnvVars:  []string{strcase.ToScreamingSnake(VIEWPORTWIDTH)},
		},
		&cli.Float64Flag{
			Name:     VIEWPORTHEIGHT,
			Usage:    "Viewport height in pixels",
			Value:    768,
			Required: false,
			EnvVars:  []string{strcase.ToScreamingSnake(VIEWPORTHEIGHT)},
		},
		&cli.Float64Flag{
			Name:     FOV,
			Usage:    "Vertical field of view in degrees",
			Value:    45,
			Required: false,
			EnvVars:  []string{strcase.ToScreamingSnake(FOV)},
		},
		&cli.Float64Flag{
			Name:     DETAILTHRESHOLD,
			Aliases:  []string{"d"},
			Usage:    "Projected tile extent in pixels above which a tile is subdivided",
			Value:    170,
			Required: false,
			EnvVars:  []string{strcase.ToScreamingSnake(DETAILTHRESHOLD)},
		},
		&cli.Float64Flag{
			Name:     EYELAT,
			Usage:    "Eye latitude in degrees",
			Value:    0,
			Required: false,
			EnvVars:  []string{strcase.ToScreamingSnake(EYELAT)},
		},
		&cli.Float64Flag{
			Name:     EYELON,
			Usage:    "Eye longitude in degrees",
			Value:    0,
			Required: false,
			EnvVars:  []string{strcase.ToScreamingSnake(EYELON)},
		},
		&cli.Float64Flag{
			Name:     EYEALTITUDE,
			Aliases:  []string{"a"},
			Usage:    "Eye altitude in meters above the surface",
			Value:    1e7,
			Required: false,
			EnvVars:  []string{strcase.ToScreamingSnake(EYEALTITUDE)},
		},
		&cli.Float64Flag{
			Name:     ORBITSTEP,
			Usage:    "Degrees of longitude the eye moves per frame",
			Value:    0,
			Required: false,
			EnvVars:  []string{strcase.ToScreamingSnake(ORBITSTEP)},
		},
		&cli.IntFlag{
			Name:     FRAMES,
			Aliases:  []string{"n"},
			Usage:    "Number of frames to tessellate",
			Value:    10,
			Required: false,
			EnvVars:  []string{strcase.ToScreamingSnake(FRAMES)},
		},
		&cli.BoolFlag{
			Name:     WKTDUMP,
			Usage:    "Dump the visible tile sectors as WKT each frame",
			Required: false,
			EnvVars:  []string{strcase.ToScreamingSnake(WKTDUMP)},
		},
		&cli.BoolFlag{
			Name:     VERBOSE,
			Aliases:  []string{"v"},
			Usage:    "Enable debug logging of the tessellation engine",
			Required: false,
			EnvVars:  []string{strcase.ToScreamingSnake(VERBOSE)},
		},
	}

	app.Action = func(c *cli.Context) error {
		if c.Bool(VERBOSE) {
			tess.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
				Level: slog.LevelDebug,
			})))
		}

		levelSet, err := pyramid.LoadEmbeddedLevelSet(c.String(PYRAMID))
		if err != nil {
			return err
		}

		var provider tess.Provider
		if source := c.String(SOURCE); source != "" {
			if _, err = os.Stat(source); os.IsNotExist(err) {
				log.Fatalf("error opening source GeoPackage: %s", err)
			}
			gpkgProvider, err := gpkg.Open(source, c.String(TILESTABLE), geo.Earth)
			if err != nil {
				return err
			}
			defer gpkgProvider.Close()
			provider = gpkgProvider
		} else {
			provider = tess.NewSyntheticProvider(geo.Earth)
		}

		tileCache := cache.New(c.Int64(CACHEBUDGET))
		tessellator, err := tess.NewTessellator(geo.Earth, levelSet, tileCache, provider,
			tess.Options{DetailThreshold: c.Float64(DETAILTHRESHOLD)})
		if err != nil {
			return err
		}
		controller, err := tess.NewFrameController(tessellator,
			c.Float64(VIEWPORTWIDTH), c.Float64(VIEWPORTHEIGHT), c.Float64(FOV))
		if err != nil {
			return err
		}
		controller.Camera = tess.Camera{
			Lat:      c.Float64(EYELAT),
			Lon:      c.Float64(EYELON),
			Altitude: c.Float64(EYEALTITUDE),
		}

		log.Println("=== start tessellating ===")
		for frame := 0; frame < c.Int(FRAMES); frame++ {
			tiles, err := controller.RenderFrame()
			if err != nil {
				return err
			}
			log.Printf("  frame %d: %d visible tiles, levels %s",
				frame+1, len(tiles), levelHistogram(tiles))
			if c.Bool(WKTDUMP) {
				dumpWkt(tiles)
			}

			controller.Camera.Lon = wrapLon(controller.Camera.Lon + c.Float64(ORBITSTEP))
		}
		log.Println("=== done tessellating ===")

		stats := tileCache.Stats()
		log.Printf("cache: %d tiles resident, %d/%d bytes, %d hits, %d misses, %d evictions",
			tileCache.Len(), tileCache.Used(), tileCache.Budget(),
			stats.Hits, stats.Misses, stats.Evictions)
		return nil
	}

	err := app.Run(os.Args)
	if err != nil {
		log.Fatal(err)
	}
}

func levelHistogram(tiles []*tess.Tile) string {
	histogram := make(map[int]int)
	for _, tile := range tiles {
		histogram[tile.Key.Level]++
	}
	levels := maps.Keys(histogram)
	slices.Sort(levels)

	parts := make([]string, len(levels))
	for i, level := range levels {
		parts[i] = fmt.Sprintf("%d:%d", level, histogram[level])
	}
	return "{" + strings.Join(parts, " ") + "}"
}

func dumpWkt(tiles []*tess.Tile) {
	for _, tile := range tiles {
		suffix := ""
		if tile.Degraded {
			suffix = fmt.Sprintf(" (degraded from %v)", tile.DegradedFrom)
		}
		log.Printf("    %v %s%s", tile.Key, geomhelp.SectorWkt(tile.Sector, wktMaxLen), suffix)
	}
}

func wrapLon(lon float64) float64 {
	for lon > 180 {
		lon -= 360
	}
	for lon < -180 {
		lon += 360
	}
	return lon
}
