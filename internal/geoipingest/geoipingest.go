// Package geoipingest builds clustering-ready CSV input from a raw traffic
// log of IP addresses plus hit counts, resolved to city-level coordinates
// through a local MaxMind GeoIP2 City database (§6, §9.3). It streams the
// log line-by-line and aggregates in memory, the same batched-commit
// streaming style this codebase's database ingest tools use, adapted from
// a SQL commit cadence to an in-memory one.
package geoipingest

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"

	"github.com/oschwald/geoip2-golang"
	"github.com/oschwald/maxminddb-golang"

	"github.com/jimspencer/spidermap/internal/geo"
	"github.com/jimspencer/spidermap/internal/ingest"
	"github.com/jimspencer/spidermap/internal/logger"
)

// cityKey groups aggregated hits by resolved city centroid, since many
// distinct IPs in a traffic log resolve to the same city.
type cityKey struct {
	lon, lat float64
}

// cityLookupper is the subset of *geoip2.Reader's API this package depends
// on, narrowed out so tests can supply a database-free fake.
type cityLookupper interface {
	City(net.IP) (*geoip2.City, error)
}

// Resolver wraps an open MaxMind City database.
type Resolver struct {
	reader *geoip2.Reader // non-nil only when opened via Open; used for Close/BuildInfo
	lookup cityLookupper
}

// Open opens the .mmdb file at path.
func Open(path string) (*Resolver, error) {
	r, err := geoip2.Open(path)
	if err != nil {
		return nil, err
	}
	return &Resolver{reader: r, lookup: r}, nil
}

// Close releases the underlying database handle. A no-op for resolvers not
// backed by an on-disk database.
func (r *Resolver) Close() error {
	if r.reader == nil {
		return nil
	}
	return r.reader.Close()
}

// BuildInfo reports the database's own build epoch, surfaced purely for
// diagnostic logging. Zero-value when not backed by an on-disk database.
func (r *Resolver) BuildInfo() maxminddb.Metadata {
	if r.reader == nil {
		return maxminddb.Metadata{}
	}
	return r.reader.Metadata()
}

// city resolves an IP string to a coordinate and city name. ok is false
// when the address fails to parse or has no city-level record.
func (r *Resolver) city(ipStr string) (lon, lat float64, city string, ok bool) {
	ip := net.ParseIP(ipStr)
	if ip == nil {
		return 0, 0, "", false
	}
	rec, err := r.lookup.City(ip)
	if err != nil {
		return 0, 0, "", false
	}
	if rec.Location.Latitude == 0 && rec.Location.Longitude == 0 {
		return 0, 0, "", false
	}
	name := rec.City.Names["en"]
	return rec.Location.Longitude, rec.Location.Latitude, name, true
}

// BuildResult summarizes one ingest pass.
type BuildResult struct {
	Rows               []ingest.Row
	LinesRead          int
	ResolvedHits       int64
	UnresolvedLines    int
	DuplicateCityCount int
}

// Build streams a traffic log of "ip count" lines (whitespace-separated,
// one per line, blank lines ignored) and aggregates hit counts per
// resolved city centroid. boundary, if non-nil, drops resolved coordinates
// outside it. dup, if non-nil, flags (without dropping) rows sharing an
// exact resolved coordinate with an earlier row, purely as a diagnostic.
func (r *Resolver) Build(src io.Reader, boundary *geo.Polygon, dup *ingest.DuplicateCoordDetector) (BuildResult, error) {
	sc := bufio.NewScanner(src)
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)

	agg := make(map[cityKey]float64)
	order := make([]cityKey, 0)

	var res BuildResult
	for sc.Scan() {
		res.LinesRead++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 2 {
			res.UnresolvedLines++
			continue
		}
		count, err := strconv.ParseFloat(fields[1], 64)
		if err != nil || count <= 0 {
			res.UnresolvedLines++
			continue
		}
		lon, lat, _, ok := r.city(fields[0])
		if !ok {
			res.UnresolvedLines++
			logger.L().Debug("geoip_unresolved", "ip", fields[0])
			continue
		}
		if boundary != nil && !geo.Contains(geo.Point{Lon: lon, Lat: lat}, *boundary) {
			continue
		}
		if dup != nil && dup.CheckAndMark(lon, lat) {
			res.DuplicateCityCount++
		}
		k := cityKey{lon: lon, lat: lat}
		if _, seen := agg[k]; !seen {
			order = append(order, k)
		}
		agg[k] += count
		res.ResolvedHits += int64(count)
	}
	if err := sc.Err(); err != nil {
		return res, err
	}

	res.Rows = make([]ingest.Row, 0, len(order))
	for _, k := range order {
		res.Rows = append(res.Rows, ingest.Row{Lon: k.lon, Lat: k.lat, Weight: agg[k]})
	}
	logger.L().Info("geoip_ingest_done",
		"lines", res.LinesRead,
		"cities", len(res.Rows),
		"resolved_hits", res.ResolvedHits,
		"unresolved_lines", res.UnresolvedLines,
	)
	return res, nil
}

// WriteCSV writes rows in the main ingest path's expected format (§6):
// header line, then lon,lat,weight.
func WriteCSV(w io.Writer, rows []ingest.Row) error {
	if _, err := fmt.Fprintln(w, "lon,lat,weight"); err != nil {
		return err
	}
	for _, r := range rows {
		if _, err := fmt.Fprintf(w, "%g,%g,%g\n", r.Lon, r.Lat, r.Weight); err != nil {
			return err
		}
	}
	return nil
}
