// cluster runs one clustering invocation end-to-end: ingest, merge loop,
// emit, optional run-ledger bookkeeping. Configuration layers CLI flags
// over environment variables over defaults, the same precedence this
// codebase's other command-line tools use.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jimspencer/spidermap/internal/cache"
	"github.com/jimspencer/spidermap/internal/config"
	"github.com/jimspencer/spidermap/internal/emit"
	"github.com/jimspencer/spidermap/internal/geo"
	"github.com/jimspencer/spidermap/internal/ingest"
	"github.com/jimspencer/spidermap/internal/kernelreg"
	"github.com/jimspencer/spidermap/internal/logger"
	"github.com/jimspencer/spidermap/internal/migrate"
	"github.com/jimspencer/spidermap/internal/potential"
	"github.com/jimspencer/spidermap/internal/region"
	"github.com/jimspencer/spidermap/internal/scheduler"
	"github.com/jimspencer/spidermap/internal/store"
	"github.com/jimspencer/spidermap/internal/utils"
)

var (
	inputPaths     []string
	outputPath     string
	maxRecords     int
	cacheThreshold float64
	cacheBackend   string
	kernelName     string
	boundaryFile   string
	parallelInit   bool
	initWorkers    int
	runScope       string

	rootCmd = &cobra.Command{
		Use:   "cluster",
		Short: "Cluster weighted geo points by gravitational-potential merge order",
		RunE:  runCluster,
	}
)

func init() {
	rootCmd.Flags().StringSliceVar(&inputPaths, "input", nil, "input CSV file(s), comma-separated")
	rootCmd.Flags().StringVar(&outputPath, "output", "", "output merge-record file")
	rootCmd.Flags().IntVar(&maxRecords, "max-records", 0, "stop after this many merges (0 = unlimited)")
	rootCmd.Flags().Float64Var(&cacheThreshold, "cache-threshold", 0, "minimum member count a just-merged region must have for its pairs to be cached")
	rootCmd.Flags().StringVar(&cacheBackend, "cache-backend", "", `cache backend: "memory" or "redis"`)
	rootCmd.Flags().StringVar(&kernelName, "kernel", "", `distance kernel: "inverse4" (default) or "inverse6"`)
	rootCmd.Flags().StringVar(&boundaryFile, "boundary-file", "", "optional GeoJSON Polygon restricting ingest")
	rootCmd.Flags().BoolVar(&parallelInit, "parallel-init", false, "use the worker-pool best-partner seeding pass instead of the sequential scan")
	rootCmd.Flags().IntVar(&initWorkers, "init-workers", 0, "worker count for --parallel-init (0 = GOMAXPROCS)")
	rootCmd.Flags().StringVar(&runScope, "run-scope", "", "shared Redis cache namespace for cooperating shard processes")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runCluster(cmd *cobra.Command, args []string) error {
	config.LoadDotEnv()
	logger.Setup()
	l := logger.L()

	cfg := config.FromEnv()
	if len(inputPaths) > 0 {
		cfg.InputPaths = inputPaths
	}
	if outputPath != "" {
		cfg.OutputPath = outputPath
	}
	if cmd.Flags().Changed("max-records") {
		cfg.MaxRecords = maxRecords
	}
	if cmd.Flags().Changed("cache-threshold") {
		cfg.CacheThreshold = cacheThreshold
	}
	if cacheBackend != "" {
		cfg.CacheBackend = cacheBackend
	}
	if kernelName != "" {
		cfg.KernelName = kernelName
	}
	if boundaryFile != "" {
		cfg.BoundaryFile = boundaryFile
	}
	if cmd.Flags().Changed("parallel-init") {
		cfg.ParallelInit = parallelInit
	}
	if cmd.Flags().Changed("init-workers") {
		cfg.InitWorkers = initWorkers
	}
	if runScope != "" {
		cfg.RunScope = runScope
	}
	if len(cfg.InputPaths) == 0 {
		return fmt.Errorf("no input files: pass --input or set CLUSTER_INPUT")
	}

	l.Info("cluster_start", "inputs", cfg.InputPaths, "output", cfg.OutputPath, "kernel", cfg.KernelName, "cache_backend", cfg.CacheBackend)

	var rows []ingest.Row
	for i, p := range cfg.InputPaths {
		f, err := os.Open(p)
		if err != nil {
			return err
		}
		fileRows, err := ingest.ReadCSV(f, i)
		_ = f.Close()
		if err != nil {
			return err
		}
		l.Info("ingest_file_done", "path", p, "rows", len(fileRows))
		rows = append(rows, fileRows...)
	}
	if len(cfg.InputPaths) > 1 {
		before := len(rows)
		rows = ingest.Fuse(rows, ingest.SourceConfidence{})
		l.Info("ingest_fusion_applied", "before", before, "after", len(rows))
	}

	if cfg.BoundaryFile != "" {
		bf, err := os.Open(cfg.BoundaryFile)
		if err != nil {
			return err
		}
		poly, err := geo.LoadPolygonGeoJSON(bf)
		_ = bf.Close()
		if err != nil {
			return err
		}
		filtered := rows[:0]
		for _, row := range rows {
			if geo.Contains(geo.Point{Lon: row.Lon, Lat: row.Lat}, poly) {
				filtered = append(filtered, row)
			}
		}
		l.Info("ingest_boundary_filter", "before", len(rows), "after", len(filtered))
		rows = filtered
	}

	dup := ingest.NewDuplicateCoordDetector()
	dupCount := 0
	for _, row := range rows {
		if dup.CheckAndMark(row.Lon, row.Lat) {
			dupCount++
		}
	}
	if dupCount > 0 {
		l.Info("ingest_duplicate_coords", "count", dupCount)
	}

	points := ingest.BuildSingletons(rows)
	if len(points) == 0 {
		return fmt.Errorf("no points survived ingest")
	}
	ar := region.NewArena(2*len(points) - 1)
	for _, p := range points {
		ar.Add(region.NewSingleton(p))
	}

	registry := kernelreg.New()
	kernelFn, err := registry.Kernel(cfg.KernelName)
	if err != nil {
		return err
	}
	eval := &potential.Evaluator{Kernel: potential.DistanceKernel(kernelFn)}

	var c cache.Cache
	switch cfg.CacheBackend {
	case "redis":
		rc := utils.OpenRedis(cfg.RedisAddr, cfg.RedisPass)
		c = cache.NewRedisCache(rc, cache.ScopedHashKey("spidermap:potential", cfg.RunScope))
	default:
		c = cache.NewMemCache()
	}

	out, err := os.Create(cfg.OutputPath)
	if err != nil {
		return err
	}
	defer out.Close()
	w := emit.NewWriter(out)

	var runs *store.RunStore
	if db, err := utils.OpenPostgresFromEnv(); err != nil {
		l.Error("db_open_error", "err", err)
	} else if db != nil {
		if err := migrate.EnsureSchema(db); err != nil {
			l.Error("schema_error", "err", err)
		}
		runs = store.AttachDB(db)
		defer runs.Close()
	}

	runID, _ := runs.StartRun(context.Background(), store.RunParams{
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
	merges, runErr := sched.Run(cmd.Context(), w)

	status := "done"
	if runErr != nil {
		status = "failed"
	}
	_ = runs.FinishRun(context.Background(), runID, store.RunResult{
		Status:        status,
		MergesEmitted: merges,
		PeakLiveSet:   len(points),
		DurationMs:    time.Since(start).Milliseconds(),
	})

	l.Info("cluster_done", "merges", merges, "status", status)
	return runErr
}
