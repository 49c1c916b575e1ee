package ingest

import (
	"hash/fnv"

	"github.com/jimspencer/spidermap/internal/geo"
	"github.com/jimspencer/spidermap/internal/metrics"
)

// dupBloomGeohashPrecision is chosen fine enough (sub-meter) that two rows
// only collide under it when they're exact-duplicate coordinates, not
// merely nearby ones; the bloom filter is an exact-duplicate diagnostic,
// not a proximity one.
const dupBloomGeohashPrecision = 11

// dupBloomBits is the bitset size for the duplicate-coordinate diagnostic.
// It is sized generously relative to typical input volumes so the false
// positive rate stays low without needing to be tuned per run.
const dupBloomBits = 1 << 20
const dupBloomHashes = 4

// DuplicateCoordDetector is a small in-process Bloom filter flagging input
// rows that share an exact coordinate with an earlier row, purely as an
// ingest-time diagnostic (§7, §9.3): it never suppresses a row, since a
// duplicate coordinate is the correct signal for the scheduler to merge
// those regions first, not an ingest error.
type DuplicateCoordDetector struct {
	bits []uint64
}

// NewDuplicateCoordDetector returns an empty detector.
func NewDuplicateCoordDetector() *DuplicateCoordDetector {
	return &DuplicateCoordDetector{bits: make([]uint64, dupBloomBits/64)}
}

func coordPositions(lon, lat float64) []uint32 {
	key := geo.Encode(geo.Point{Lon: lon, Lat: lat}, dupBloomGeohashPrecision)
	pos := make([]uint32, dupBloomHashes)
	for i := 0; i < dupBloomHashes; i++ {
		h := fnv.New64a()
		h.Write([]byte{byte(i)})
		h.Write([]byte(key))
		pos[i] = uint32(h.Sum64() % uint64(dupBloomBits))
	}
	return pos
}

func (d *DuplicateCoordDetector) get(pos uint32) bool {
	return d.bits[pos/64]&(1<<(pos%64)) != 0
}

func (d *DuplicateCoordDetector) set(pos uint32) {
	d.bits[pos/64] |= 1 << (pos % 64)
}

// CheckAndMark reports whether (lon, lat) has been seen by an earlier call,
// marking it as seen either way. It increments the ingest duplicate-
// coordinate metric on a positive detection.
func (d *DuplicateCoordDetector) CheckAndMark(lon, lat float64) bool {
	positions := coordPositions(lon, lat)
	seen := true
	for _, p := range positions {
		if !d.get(p) {
			seen = false
		}
	}
	if !seen {
		for _, p := range positions {
			d.set(p)
		}
		return false
	}
	metrics.IngestDuplicateCoordTotal.Inc()
	return true
}
