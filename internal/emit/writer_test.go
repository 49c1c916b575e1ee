package emit

import (
	"bytes"
	"strconv"
	"strings"
	"testing"

	"github.com/jimspencer/spidermap/internal/region"
)

func TestRecordFormatAndSeq(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	a := &region.Region{ID: 3, X: 0.5, Y: 0, N: 2, OrigLon: 0, OrigLat: 0}
	b := &region.Region{ID: 7, X: 1, Y: 0, N: 1, OrigLon: 1, OrigLat: 0}
	if err := w.Record(a, b); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	fields := strings.Fields(buf.String())
	if len(fields) != 13 {
		t.Fatalf("expected 13 fields, got %d: %q", len(fields), buf.String())
	}
	if fields[0] != "1" {
		t.Fatalf("seq should start at 1, got %q", fields[0])
	}
	if fields[1] != "3" {
		t.Fatalf("idA should be 3, got %q", fields[1])
	}
}

func TestRecordSuppressesZeroWeightB(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	a := &region.Region{ID: 1, N: 5}
	b := &region.Region{ID: 2, N: 0}
	if err := w.Record(a, b); err != nil {
		t.Fatalf("Record: %v", err)
	}
	w.Flush()
	if buf.Len() != 0 {
		t.Fatalf("expected no output for nB==0, got %q", buf.String())
	}
	if w.Seq() != 0 {
		t.Fatalf("suppressed record must not consume a sequence number, got %d", w.Seq())
	}
}

func TestSeqIncrementsMonotonically(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	a := &region.Region{ID: 1, N: 2}
	b := &region.Region{ID: 2, N: 1}
	for i := 0; i < 3; i++ {
		if err := w.Record(a, b); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}
	w.Flush()
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	for i, line := range lines {
		want := i + 1
		fields := strings.Fields(line)
		if fields[0] != strconv.Itoa(want) {
			t.Fatalf("line %d: seq = %q, want %d", i, fields[0], want)
		}
	}
}
