// Package ingest reads clustering input (§6): UTF-8 CSV rows of
// longitude, latitude, weight, building the initial singleton Points the
// scheduler's arena is seeded with. Streaming and batched-aggregation here
// mirror this codebase's batched-commit ingest tools, adapted from a
// database-write cadence to an in-memory one since there is no downstream
// database in the hot path.
package ingest

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/jimspencer/spidermap/internal/clustererr"
	"github.com/jimspencer/spidermap/internal/logger"
	"github.com/jimspencer/spidermap/internal/region"
)

// Row is one parsed input line before it is assigned a stable id.
type Row struct {
	Lon, Lat, Weight float64
	Source           int // index into the list of input files this row came from
}

// ReadCSV parses r as a clustering input file: a header line (ignored)
// followed by comma-separated longitude,latitude,weight rows. Whitespace
// is trimmed from each field. Rows with weight <= 0 are skipped per §6;
// a row with the wrong field count or a non-numeric field is a fatal
// InputFormat error carrying the 1-based source line number.
func ReadCSV(r io.Reader, source int) ([]Row, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)

	var rows []Row
	line := 0
	skipped := 0
	for sc.Scan() {
		line++
		if line == 1 {
			continue // header
		}
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		parts := strings.Split(text, ",")
		if len(parts) != 3 {
			return nil, clustererr.WithLine(clustererr.InputFormat, "ingest.ReadCSV", line, "expected 3 fields, got "+strconv.Itoa(len(parts)))
		}
		lon, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
		if err != nil {
			return nil, clustererr.WithLine(clustererr.InputFormat, "ingest.ReadCSV", line, "longitude not numeric")
		}
		lat, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if err != nil {
			return nil, clustererr.WithLine(clustererr.InputFormat, "ingest.ReadCSV", line, "latitude not numeric")
		}
		weight, err := strconv.ParseFloat(strings.TrimSpace(parts[2]), 64)
		if err != nil {
			return nil, clustererr.WithLine(clustererr.InputFormat, "ingest.ReadCSV", line, "weight not numeric")
		}
		if weight <= 0 {
			skipped++
			continue
		}
		rows = append(rows, Row{Lon: lon, Lat: lat, Weight: weight, Source: source})
	}
	if err := sc.Err(); err != nil {
		return nil, clustererr.Wrap(clustererr.IO, "ingest.ReadCSV", err)
	}
	logger.L().Debug("ingest_csv_read", "rows", len(rows), "skipped_nonpositive_weight", skipped)
	return rows, nil
}

// BuildSingletons assigns a stable, 0-based origId to each row in
// encounter order and constructs the corresponding singleton Points.
func BuildSingletons(rows []Row) []region.Point {
	pts := make([]region.Point, len(rows))
	for i, r := range rows {
		pts[i] = region.Point{ID: i, Lon: r.Lon, Lat: r.Lat, Weight: r.Weight}
	}
	return pts
}
