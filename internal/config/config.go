// Package config loads run configuration for the clustering CLI (§6):
// input/output paths and the tunables governing the cache and kernel,
// readable from environment variables and an optional .env file per this
// codebase's established convention, with CLI flags taking precedence.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds every tunable a clustering invocation needs.
type Config struct {
	InputPaths     []string
	OutputPath     string
	MaxRecords     int     // 0 means unlimited
	CacheThreshold float64 // T in §4.4: a just-merged region's member count must exceed this for its pairs to be cached, default 100
	CacheBackend   string  // "memory" or "redis"
	KernelName     string  // "inverse4" (default) or "inverse6"
	BoundaryFile   string  // optional GeoJSON-derived polygon file restricting ingest

	ParallelInit bool // enable the optional worker-pool seeding pass (§5); off by default
	InitWorkers  int  // 0 means runtime.GOMAXPROCS(0)

	// RunScope namespaces the Redis potential cache (§9.2) so that
	// several shard processes cooperating on one logical run, each
	// pointed at the same scope by whatever started them, share cache
	// state instead of silently colliding with unrelated runs on the
	// same Redis instance. Empty falls back to a single fixed key,
	// matching single-process behavior.
	RunScope string

	RedisAddr string
	RedisPass string
	RedisDB   int

	PostgresDSN string

	ServerAddr string
	AdminToken string
}

// LoadDotEnv loads a .env file if present, mirroring this codebase's
// startup sequence. A missing file is not an error.
func LoadDotEnv() {
	_ = godotenv.Load(".env")
}

// FromEnv builds a Config from environment variables, applying the same
// defaults documented in §6. CLI flag parsing (cmd/cluster) overlays
// whatever flags were explicitly set on top of this.
func FromEnv() Config {
	cfg := Config{
		OutputPath:     getEnvDefault("CLUSTER_OUTPUT", "out.txt"),
		MaxRecords:     getEnvInt("CLUSTER_MAX_RECORDS", 0),
		CacheThreshold: getEnvFloat("CLUSTER_CACHE_THRESHOLD", 100),
		CacheBackend:   getEnvDefault("CLUSTER_CACHE_BACKEND", "memory"),
		KernelName:     getEnvDefault("CLUSTER_KERNEL", "inverse4"),
		BoundaryFile:   os.Getenv("CLUSTER_BOUNDARY_FILE"),
		ParallelInit:   getEnvBool("CLUSTER_PARALLEL_INIT", false),
		InitWorkers:    getEnvInt("CLUSTER_INIT_WORKERS", 0),
		RunScope:       os.Getenv("CLUSTER_RUN_SCOPE"),
		RedisAddr:      buildRedisAddr(),
		RedisPass:      os.Getenv("REDIS_PASS"),
		RedisDB:        getEnvInt("REDIS_DB", 0),
		PostgresDSN:    os.Getenv("DATABASE_URL"),
		ServerAddr:     getEnvDefault("CLUSTER_SERVER_ADDR", ":8090"),
		AdminToken:     os.Getenv("ADMIN_TOKEN"),
	}
	if in := os.Getenv("CLUSTER_INPUT"); in != "" {
		cfg.InputPaths = splitAndTrim(in, ",")
	}
	return cfg
}

func buildRedisAddr() string {
	host := os.Getenv("REDIS_HOST")
	if host == "" {
		return ""
	}
	port := os.Getenv("REDIS_PORT")
	if port == "" {
		port = "6379"
	}
	return host + ":" + port
}

func splitAndTrim(s, sep string) []string {
	parts := strings.Split(s, sep)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

// DefaultOutputDir resolves a default directory for local run artifacts,
// following this codebase's convention of a data/ subdirectory relative
// to the working directory rather than an absolute system path.
func DefaultOutputDir() string {
	return filepath.Join("data", "runs")
}
