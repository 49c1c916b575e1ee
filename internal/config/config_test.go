package config

import "testing"

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("CLUSTER_OUTPUT", "")
	t.Setenv("CLUSTER_CACHE_THRESHOLD", "")
	t.Setenv("CLUSTER_KERNEL", "")
	cfg := FromEnv()
	if cfg.OutputPath != "out.txt" {
		t.Fatalf("default OutputPath = %q", cfg.OutputPath)
	}
	if cfg.CacheThreshold != 100 {
		t.Fatalf("default CacheThreshold = %v, want 100", cfg.CacheThreshold)
	}
	if cfg.KernelName != "inverse4" {
		t.Fatalf("default KernelName = %q, want inverse4", cfg.KernelName)
	}
}

func TestFromEnvSplitsMultipleInputs(t *testing.T) {
	t.Setenv("CLUSTER_INPUT", "a.csv, b.csv ,c.csv")
	cfg := FromEnv()
	if len(cfg.InputPaths) != 3 {
		t.Fatalf("expected 3 input paths, got %v", cfg.InputPaths)
	}
	if cfg.InputPaths[1] != "b.csv" {
		t.Fatalf("expected trimmed path b.csv, got %q", cfg.InputPaths[1])
	}
}

func TestFromEnvParallelInitDefaultsOff(t *testing.T) {
	t.Setenv("CLUSTER_PARALLEL_INIT", "")
	t.Setenv("CLUSTER_INIT_WORKERS", "")
	t.Setenv("CLUSTER_RUN_SCOPE", "")
	cfg := FromEnv()
	if cfg.ParallelInit {
		t.Fatalf("default ParallelInit should be false")
	}
	if cfg.InitWorkers != 0 {
		t.Fatalf("default InitWorkers = %d, want 0", cfg.InitWorkers)
	}
	if cfg.RunScope != "" {
		t.Fatalf("default RunScope = %q, want empty", cfg.RunScope)
	}
}

func TestFromEnvParallelInitEnabled(t *testing.T) {
	t.Setenv("CLUSTER_PARALLEL_INIT", "true")
	t.Setenv("CLUSTER_INIT_WORKERS", "8")
	t.Setenv("CLUSTER_RUN_SCOPE", "shard-a")
	cfg := FromEnv()
	if !cfg.ParallelInit {
		t.Fatalf("expected ParallelInit true")
	}
	if cfg.InitWorkers != 8 {
		t.Fatalf("InitWorkers = %d, want 8", cfg.InitWorkers)
	}
	if cfg.RunScope != "shard-a" {
		t.Fatalf("RunScope = %q, want shard-a", cfg.RunScope)
	}
}

func TestBuildRedisAddrEmptyWithoutHost(t *testing.T) {
	t.Setenv("REDIS_HOST", "")
	cfg := FromEnv()
	if cfg.RedisAddr != "" {
		t.Fatalf("expected empty RedisAddr without REDIS_HOST, got %q", cfg.RedisAddr)
	}
}
