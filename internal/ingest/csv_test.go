package ingest

import (
	"strings"
	"testing"

	"github.com/jimspencer/spidermap/internal/clustererr"
)

func TestReadCSVSkipsHeaderAndNonPositiveWeight(t *testing.T) {
	in := "lon,lat,weight\n0,0,1\n1,1,0\n2,2,-5\n3,3,4\n"
	rows, err := ReadCSV(strings.NewReader(in), 0)
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows after filtering, got %d", len(rows))
	}
	if rows[0].Lon != 0 || rows[1].Lon != 3 {
		t.Fatalf("unexpected rows: %+v", rows)
	}
}

func TestReadCSVTrimsWhitespace(t *testing.T) {
	in := "lon,lat,weight\n 1.5 , 2.5 , 3.5 \n"
	rows, err := ReadCSV(strings.NewReader(in), 0)
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if len(rows) != 1 || rows[0].Lon != 1.5 || rows[0].Lat != 2.5 || rows[0].Weight != 3.5 {
		t.Fatalf("unexpected parse: %+v", rows)
	}
}

func TestReadCSVMalformedRowReportsLine(t *testing.T) {
	in := "lon,lat,weight\n0,0,1\nnot,a,row,here\n"
	_, err := ReadCSV(strings.NewReader(in), 0)
	if err == nil {
		t.Fatalf("expected an error for malformed row")
	}
	var ce *clustererr.Error
	if !asClustererr(err, &ce) {
		t.Fatalf("expected a *clustererr.Error")
	}
	if ce.Kind != clustererr.InputFormat {
		t.Fatalf("expected InputFormat kind, got %v", ce.Kind)
	}
	if ce.Line != 3 {
		t.Fatalf("expected line 3, got %d", ce.Line)
	}
}

func asClustererr(err error, target **clustererr.Error) bool {
	ce, ok := err.(*clustererr.Error)
	if !ok {
		return false
	}
	*target = ce
	return true
}

func TestBuildSingletonsAssignsSequentialIDs(t *testing.T) {
	rows := []Row{{Lon: 0, Lat: 0, Weight: 1}, {Lon: 1, Lat: 1, Weight: 2}}
	pts := BuildSingletons(rows)
	if pts[0].ID != 0 || pts[1].ID != 1 {
		t.Fatalf("expected sequential ids, got %+v", pts)
	}
}
