package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jimspencer/spidermap/internal/config"
)

func TestHandleJobsRequiresAdminToken(t *testing.T) {
	s := New(config.Config{}, nil)
	mux := s.BuildRoutes()
	req := httptest.NewRequest(http.MethodPost, "/jobs", strings.NewReader(`{}`))
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("want 503 with no ADMIN_TOKEN configured, got %d", rr.Code)
	}
}

func TestHandleJobsRejectsWrongToken(t *testing.T) {
	t.Setenv("ADMIN_TOKEN", "secret")
	s := New(config.Config{}, nil)
	mux := s.BuildRoutes()
	req := httptest.NewRequest(http.MethodPost, "/jobs", strings.NewReader(`{}`))
	req.Header.Set("x-admin-token", "wrong")
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("want 403 for wrong token, got %d", rr.Code)
	}
}

func TestSubmitAndPollMissingInputFails(t *testing.T) {
	t.Setenv("ADMIN_TOKEN", "secret")
	s := New(config.Config{}, nil)
	mux := s.BuildRoutes()

	body := `{"input_paths":["/nonexistent/does-not-exist.csv"]}`
	req := httptest.NewRequest(http.MethodPost, "/jobs", strings.NewReader(body))
	req.Header.Set("x-admin-token", "secret")
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusAccepted {
		t.Fatalf("want 202, got %d", rr.Code)
	}
	var job Job
	if err := json.NewDecoder(rr.Body).Decode(&job); err != nil {
		t.Fatalf("decode: %v", err)
	}

	var final Job
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		getReq := httptest.NewRequest(http.MethodGet, "/jobs/"+job.ID, nil)
		getRR := httptest.NewRecorder()
		mux.ServeHTTP(getRR, getReq)
		_ = json.NewDecoder(getRR.Body).Decode(&final)
		if final.Status == StatusDone || final.Status == StatusFailed {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if final.Status != StatusFailed {
		t.Fatalf("want job to fail against a missing input file, got status %q", final.Status)
	}
}

func TestHandleJobByIDUnknown(t *testing.T) {
	s := New(config.Config{}, nil)
	mux := s.BuildRoutes()
	req := httptest.NewRequest(http.MethodGet, "/jobs/does-not-exist", nil)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("want 404, got %d", rr.Code)
	}
}

func TestHandleHealthz(t *testing.T) {
	s := New(config.Config{}, nil)
	mux := s.BuildRoutes()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("want 200, got %d", rr.Code)
	}
}
