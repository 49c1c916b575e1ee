package ingest

import (
	"strconv"

	"github.com/jimspencer/spidermap/internal/logger"
)

// coordGrid is the rounding grid (in degrees) used to decide whether rows
// from different sources describe the same physical location, per §6.
const coordGrid = 0.0001

// SourceConfidence is the per-input-file confidence weight used by Fuse.
// A source not present in this map defaults to 1.0, equal footing with
// every other unweighted source.
type SourceConfidence map[int]float64

// gridKey rounds a coordinate to the fusion grid and returns a comparable
// key for grouping.
func gridKey(lon, lat float64) string {
	rl := roundTo(lon, coordGrid)
	rt := roundTo(lat, coordGrid)
	return strconv.FormatFloat(rl, 'f', 4, 64) + "," + strconv.FormatFloat(rt, 'f', 4, 64)
}

func roundTo(v, grid float64) float64 {
	if grid == 0 {
		return v
	}
	n := v / grid
	if n >= 0 {
		return float64(int64(n+0.5)) * grid
	}
	return float64(int64(n-0.5)) * grid
}

// Fuse combines rows across more than one input source by confidence
// weight, per §6: rows sharing a rounded coordinate key are replaced by a
// single row whose weight is the confidence-weighted sum of the
// contributing rows' weights and whose coordinate is the
// confidence-weighted centroid. Rows are grouped by grid key whatever
// their source, so rows from the same source that share a key are
// combined too; each output weight is already scaled by its source's
// confidence, and output rows carry Source 0.
func Fuse(rows []Row, confidence SourceConfidence) []Row {
	if len(rows) == 0 {
		return rows
	}

	type bucket struct {
		sumW, sumWLon, sumWLat float64
		sources                map[int]struct{}
	}
	buckets := make(map[string]*bucket)
	order := make([]string, 0)

	confOf := func(src int) float64 {
		if confidence == nil {
			return 1.0
		}
		if c, ok := confidence[src]; ok {
			return c
		}
		return 1.0
	}

	for _, r := range rows {
		k := gridKey(r.Lon, r.Lat)
		b, ok := buckets[k]
		if !ok {
			b = &bucket{sources: make(map[int]struct{})}
			buckets[k] = b
			order = append(order, k)
		}
		c := confOf(r.Source)
		w := r.Weight * c
		b.sumW += w
		b.sumWLon += w * r.Lon
		b.sumWLat += w * r.Lat
		b.sources[r.Source] = struct{}{}
	}

	fused := make([]Row, 0, len(order))
	multiSource := 0
	for _, k := range order {
		b := buckets[k]
		if b.sumW == 0 {
			continue
		}
		if len(b.sources) > 1 {
			multiSource++
		}
		fused = append(fused, Row{
			Lon:    b.sumWLon / b.sumW,
			Lat:    b.sumWLat / b.sumW,
			Weight: b.sumW,
		})
	}
	logger.L().Debug("ingest_fusion", "input_rows", len(rows), "fused_rows", len(fused), "multi_source_rows", multiSource)
	return fused
}
