// Package server is the optional control-plane HTTP surface (§9.6): submit
// a clustering run as a background job and poll its status, instead of
// invoking the CLI synchronously. Routes are registered on an independent
// ServeMux the same way this codebase's query API is built separately
// from its entrypoint, so the mux can be mounted under any prefix.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jimspencer/spidermap/internal/cache"
	"github.com/jimspencer/spidermap/internal/clustererr"
	"github.com/jimspencer/spidermap/internal/config"
	"github.com/jimspencer/spidermap/internal/emit"
	"github.com/jimspencer/spidermap/internal/geo"
	"github.com/jimspencer/spidermap/internal/ingest"
	"github.com/jimspencer/spidermap/internal/kernelreg"
	"github.com/jimspencer/spidermap/internal/logger"
	"github.com/jimspencer/spidermap/internal/metrics"
	"github.com/jimspencer/spidermap/internal/potential"
	"github.com/jimspencer/spidermap/internal/region"
	"github.com/jimspencer/spidermap/internal/scheduler"
	"github.com/jimspencer/spidermap/internal/store"
	"github.com/jimspencer/spidermap/internal/utils"
)

// JobRequest is the POST /jobs request body.
type JobRequest struct {
	InputPaths     []string `json:"input_paths"`
	OutputPath     string   `json:"output_path"`
	MaxRecords     int      `json:"max_records"`
	CacheThreshold float64  `json:"cache_threshold"`
	CacheBackend   string   `json:"cache_backend"`
	Kernel         string   `json:"kernel"`
	BoundaryFile   string   `json:"boundary_file"`
	ParallelInit   bool     `json:"parallel_init"`
	InitWorkers    int      `json:"init_workers"`
	RunScope       string   `json:"run_scope"`
}

// JobStatus is the lifecycle state of a submitted job.
type JobStatus string

const (
	StatusQueued  JobStatus = "queued"
	StatusRunning JobStatus = "running"
	StatusDone    JobStatus = "done"
	StatusFailed  JobStatus = "failed"
)

// Job is one submitted clustering run, tracked from submission through
// completion.
type Job struct {
	ID            string    `json:"id"`
	Status        JobStatus `json:"status"`
	MergesEmitted int       `json:"merges_emitted,omitempty"`
	Error         string    `json:"error,omitempty"`
	SubmittedAt   time.Time `json:"submitted_at"`
	FinishedAt    time.Time `json:"finished_at,omitempty"`
}

// Server holds the in-memory job table and the shared dependencies every
// job's pipeline needs (registry, run ledger, default config).
type Server struct {
	mu       sync.Mutex
	jobs     map[string]*Job
	nextID   int64
	registry *kernelreg.Registry
	runs     *store.RunStore
	defaults config.Config
}

// New builds a Server. runs may be nil, in which case the run ledger is a
// no-op, per store.RunStore's documented nil-safe behavior.
func New(defaults config.Config, runs *store.RunStore) *Server {
	return &Server{
		jobs:     make(map[string]*Job),
		registry: kernelreg.New(),
		runs:     runs,
		defaults: defaults,
	}
}

// BuildRoutes returns the control-plane ServeMux: job submission/status,
// health, and metrics.
func (s *Server) BuildRoutes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/jobs", s.handleJobs)
	mux.HandleFunc("/jobs/", s.handleJobByID)
	mux.HandleFunc("/healthz", handleHealthz)
	mux.Handle("/metrics", metrics.Handler())
	return mux
}

func handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}

// requireAdminToken enforces the x-admin-token header against ADMIN_TOKEN,
// mirroring this codebase's own admin-gated maintenance endpoint. A call
// with no ADMIN_TOKEN configured is rejected outright rather than left
// open, since job submission can run arbitrarily large merges.
func requireAdminToken(w http.ResponseWriter, r *http.Request) bool {
	want := os.Getenv("ADMIN_TOKEN")
	if want == "" {
		w.WriteHeader(http.StatusServiceUnavailable)
		return false
	}
	if r.Header.Get("x-admin-token") != want {
		w.WriteHeader(http.StatusForbidden)
		return false
	}
	return true
}

func (s *Server) handleJobs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if !requireAdminToken(w, r) {
		return
	}
	var req JobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	job := s.submit(req)
	w.Header().Set("content-type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	_ = json.NewEncoder(w).Encode(job)
}

func (s *Server) handleJobByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	id := r.URL.Path[len("/jobs/"):]
	s.mu.Lock()
	job, ok := s.jobs[id]
	s.mu.Unlock()
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	w.Header().Set("content-type", "application/json")
	_ = json.NewEncoder(w).Encode(job)
}

// submit registers a new job and starts its pipeline in a background
// goroutine, returning immediately with the queued job record.
func (s *Server) submit(req JobRequest) *Job {
	id := fmt.Sprintf("job-%d", atomic.AddInt64(&s.nextID, 1))
	job := &Job{ID: id, Status: StatusQueued, SubmittedAt: time.Now()}

	s.mu.Lock()
	s.jobs[id] = job
	s.mu.Unlock()

	go s.run(job, req)
	return job
}

func (s *Server) run(job *Job, req JobRequest) {
	s.setStatus(job.ID, StatusRunning, 0, nil)
	merges, err := s.runPipeline(job.ID, req)
	if err != nil {
		logger.L().Error("job_failed", "job_id", job.ID, "err", err)
		s.setStatus(job.ID, StatusFailed, 0, err)
		metrics.JobsTotal.WithLabelValues(string(StatusFailed)).Inc()
		return
	}
	s.setStatus(job.ID, StatusDone, merges, nil)
	metrics.JobsTotal.WithLabelValues(string(StatusDone)).Inc()
}

func (s *Server) setStatus(id string, status JobStatus, merges int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return
	}
	job.Status = status
	job.MergesEmitted = merges
	if err != nil {
		job.Error = err.Error()
	}
	if status == StatusDone || status == StatusFailed {
		job.FinishedAt = time.Now()
	}
}

// runPipeline executes one full ingest-cluster-emit pass for a job
// request, applying request overrides on top of the server's defaults.
// It is the same pipeline cmd/cluster drives synchronously, wrapped for
// background execution.
func (s *Server) runPipeline(jobID string, req JobRequest) (int, error) {
	cfg := s.defaults
	if len(req.InputPaths) > 0 {
		cfg.InputPaths = req.InputPaths
	}
	if req.OutputPath != "" {
		cfg.OutputPath = req.OutputPath
	}
	if req.MaxRecords > 0 {
		cfg.MaxRecords = req.MaxRecords
	}
	if req.CacheThreshold > 0 {
		cfg.CacheThreshold = req.CacheThreshold
	}
	if req.CacheBackend != "" {
		cfg.CacheBackend = req.CacheBackend
	}
	if req.Kernel != "" {
		cfg.KernelName = req.Kernel
	}
	if req.BoundaryFile != "" {
		cfg.BoundaryFile = req.BoundaryFile
	}
	if req.ParallelInit {
		cfg.ParallelInit = req.ParallelInit
	}
	if req.InitWorkers > 0 {
		cfg.InitWorkers = req.InitWorkers
	}
	cfg.RunScope = req.RunScope
	if cfg.RunScope == "" {
		cfg.RunScope = jobID
	}
	if len(cfg.InputPaths) == 0 {
		return 0, clustererr.New(clustererr.InputFormat, "server.runPipeline", "no input paths configured")
	}

	var rows []ingest.Row
	for i, p := range cfg.InputPaths {
		f, err := os.Open(p)
		if err != nil {
			return 0, clustererr.Wrap(clustererr.IO, "server.runPipeline", err)
		}
		fileRows, err := ingest.ReadCSV(f, i)
		_ = f.Close()
		if err != nil {
			return 0, err
		}
		rows = append(rows, fileRows...)
	}
	if len(cfg.InputPaths) > 1 {
		rows = ingest.Fuse(rows, ingest.SourceConfidence{})
	}

	if cfg.BoundaryFile != "" {
		bf, err := os.Open(cfg.BoundaryFile)
		if err != nil {
			return 0, clustererr.Wrap(clustererr.IO, "server.runPipeline", err)
		}
		poly, err := geo.LoadPolygonGeoJSON(bf)
		_ = bf.Close()
		if err != nil {
			return 0, err
		}
		filtered := rows[:0]
		for _, row := range rows {
			if geo.Contains(geo.Point{Lon: row.Lon, Lat: row.Lat}, poly) {
				filtered = append(filtered, row)
			}
		}
		rows = filtered
	}

	points := ingest.BuildSingletons(rows)
	ar := region.NewArena(2*len(points) - 1)
	for _, p := range points {
		ar.Add(region.NewSingleton(p))
	}

	kernelFn, err := s.registry.Kernel(cfg.KernelName)
	if err != nil {
		return 0, clustererr.Wrap(clustererr.InputFormat, "server.runPipeline", err)
	}
	eval := &potential.Evaluator{Kernel: potential.DistanceKernel(kernelFn)}

	var c cache.Cache
	if cfg.CacheBackend == "redis" {
		rc := utils.OpenRedis(cfg.RedisAddr, cfg.RedisPass)
		c = cache.NewRedisCache(rc, cache.ScopedHashKey("spidermap:potential", cfg.RunScope))
	} else {
		c = cache.NewMemCache()
	}

	out, err := os.Create(cfg.OutputPath)
	if err != nil {
		return 0, clustererr.Wrap(clustererr.IO, "server.runPipeline", err)
	}
	defer out.Close()
	w := emit.NewWriter(out)

	runID, _ := s.runs.StartRun(context.Background(), store.RunParams{
		InputPath:      strings.Join(cfg.InputPaths, ","),
		RegionCount:    len(points),
		Kernel:         cfg.KernelName,
		CacheBackend:   cfg.CacheBackend,
		CacheThreshold: cfg.CacheThreshold,
	})
	start := time.Now()

	sched := scheduler.New(ar, eval, c, cfg.CacheThreshold)
	sched.MaxRecord = cfg.MaxRecords
	sched.ParallelInit = cfg.ParallelInit
	sched.InitWorkers = cfg.InitWorkers
	merges, err := sched.Run(context.Background(), w)

	status := "done"
	if err != nil {
		status = "failed"
	}
	_ = s.runs.FinishRun(context.Background(), runID, store.RunResult{
		Status:        status,
		MergesEmitted: merges,
		PeakLiveSet:   len(points),
		DurationMs:    time.Since(start).Milliseconds(),
	})
	return merges, err
}
