// geoip-ingest converts a raw IP+hit-count traffic log into the
// longitude,latitude,weight CSV the main cluster command ingests,
// resolving each IP through a local MaxMind City database.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/jimspencer/spidermap/internal/geo"
	"github.com/jimspencer/spidermap/internal/geoipingest"
	"github.com/jimspencer/spidermap/internal/ingest"
	"github.com/jimspencer/spidermap/internal/logger"
)

func main() {
	var (
		dbPath       = flag.String("mmdb", os.Getenv("GEOIP_MMDB_PATH"), "path to a MaxMind GeoLite2/GeoIP2 City .mmdb file")
		logPath      = flag.String("log", "", "path to the traffic log (ip<space>count per line); defaults to stdin")
		outPath      = flag.String("out", "", "output CSV path; defaults to stdout")
		boundaryPath = flag.String("boundary-file", "", "optional GeoJSON Polygon restricting resolved coordinates")
	)
	flag.Parse()
	l := logger.Setup()

	if *dbPath == "" {
		fmt.Fprintln(os.Stderr, "geoip-ingest: -mmdb or GEOIP_MMDB_PATH is required")
		os.Exit(1)
	}
	resolver, err := geoipingest.Open(*dbPath)
	if err != nil {
		l.Error("mmdb_open_error", "err", err)
		os.Exit(1)
	}
	defer resolver.Close()
	l.Info("mmdb_open_ok", "build", resolver.BuildInfo().BuildEpoch)

	src := os.Stdin
	if *logPath != "" {
		f, err := os.Open(*logPath)
		if err != nil {
			l.Error("log_open_error", "err", err)
			os.Exit(1)
		}
		defer f.Close()
		src = f
	}

	var boundary *geo.Polygon
	if *boundaryPath != "" {
		bf, err := os.Open(*boundaryPath)
		if err != nil {
			l.Error("boundary_open_error", "err", err)
			os.Exit(1)
		}
		poly, err := geo.LoadPolygonGeoJSON(bf)
		_ = bf.Close()
		if err != nil {
			l.Error("boundary_parse_error", "err", err)
			os.Exit(1)
		}
		boundary = &poly
	}

	dup := ingest.NewDuplicateCoordDetector()
	result, err := resolver.Build(src, boundary, dup)
	if err != nil {
		l.Error("geoip_build_error", "err", err)
		os.Exit(1)
	}

	out := os.Stdout
	if *outPath != "" {
		f, err := os.Create(*outPath)
		if err != nil {
			l.Error("out_create_error", "err", err)
			os.Exit(1)
		}
		defer f.Close()
		out = f
	}
	if err := geoipingest.WriteCSV(out, result.Rows); err != nil {
		l.Error("write_csv_error", "err", err)
		os.Exit(1)
	}

	l.Info("geoip_ingest_summary",
		"lines", result.LinesRead,
		"cities", len(result.Rows),
		"resolved_hits", result.ResolvedHits,
		"unresolved_lines", result.UnresolvedLines,
		"duplicate_cities", result.DuplicateCityCount,
	)
}
