package clustererr

import (
	"errors"
	"testing"
)

func TestErrorAsRoundTrips(t *testing.T) {
	base := errors.New("disk full")
	wrapped := Wrap(IO, "emit.Write", base)
	var e *Error
	if !errors.As(wrapped, &e) {
		t.Fatalf("errors.As should match *Error")
	}
	if e.Kind != IO {
		t.Fatalf("Kind = %v, want IO", e.Kind)
	}
	if !errors.Is(wrapped, base) {
		t.Fatalf("errors.Is should see through to the wrapped cause")
	}
}

func TestKindString(t *testing.T) {
	if InputFormat.String() != "InputFormat" {
		t.Fatalf("unexpected Kind string: %s", InputFormat.String())
	}
}

func TestWithLineFormatsLine(t *testing.T) {
	e := WithLine(InputFormat, "ingest.csv", 42, "weight is not numeric")
	if got, want := e.Error(), "InputFormat: ingest.csv (line 42): weight is not numeric"; got != want {
		t.Fatalf("Error() = %q, want %q", got, want)
	}
}
