// Package emit writes the merge record stream (§6): one line per merge,
//13 whitespace-separated fields, in merge order.
package emit

import (
	"bufio"
	"fmt"
	"io"

	"github.com/jimspencer/spidermap/internal/clustererr"
	"github.com/jimspencer/spidermap/internal/region"
)

// Writer appends merge records to an underlying stream, assigning a
// 1-based, monotonically increasing sequence number to each.
type Writer struct {
	w   *bufio.Writer
	seq int
}

// NewWriter wraps w for buffered record writes. Callers must call Flush
// when done.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w)}
}

// Record writes one merge record for the pair (a, b), a being the heavier
// side, using a and b's pre-merge centroid and original coordinates. Rows
// where b's weight is exactly zero are suppressed per §6's degenerate-input
// guard; ingest already filters zero-weight rows, so this case is not
// expected to trigger in practice but is retained defensively.
func (w *Writer) Record(a, b *region.Region) error {
	if b.N == 0 {
		return nil
	}
	w.seq++
	_, err := fmt.Fprintf(w.w, "%d %d %g %g %g %g %g %d %g %g %g %g %g\n",
		w.seq,
		a.ID, a.N, a.Y, a.X, a.OrigLat, a.OrigLon,
		b.ID, b.N, b.Y, b.X, b.OrigLat, b.OrigLon,
	)
	if err != nil {
		return clustererr.Wrap(clustererr.IO, "emit.Record", err)
	}
	return nil
}

// Seq reports the number of records written so far.
func (w *Writer) Seq() int { return w.seq }

// Flush pushes any buffered bytes to the underlying writer.
func (w *Writer) Flush() error {
	if err := w.w.Flush(); err != nil {
		return clustererr.Wrap(clustererr.IO, "emit.Flush", err)
	}
	return nil
}
