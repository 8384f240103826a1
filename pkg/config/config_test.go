package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/oarkflow/errors"

	basic "github.com/akadjoker/basic-interpreter"
)

const sampleYAML = `
runtime:
  timeout: 2s
  max_expression_depth: 64
  max_loop_iterations: 1000
  log_execution: false
globals:
  limit: 10
  rate: 0.25
log_level: debug
history_file: /tmp/basic_history.json
print_env: true
server:
  addr: ":8080"
`

func TestLoadFromStringYAML(t *testing.T) {
	cfg, err := LoadFromString(sampleYAML, "yaml")
	if err != nil {
		t.Fatalf("LoadFromString failed: %v", err)
	}
	if cfg.Server.Addr != ":8080" || cfg.Server.CacheSize != DefaultCacheSize {
		t.Fatalf("unexpected server section %+v", cfg.Server)
	}
	if !cfg.PrintEnv || cfg.HistoryFile != "/tmp/basic_history.json" {
		t.Fatalf("unexpected runner settings %+v", cfg)
	}

	rc := cfg.RuntimeConfig(basic.RuntimeConfig{MaxExpressionDepth: 512, LogExecution: true})
	if rc.Timeout != 2*time.Second || rc.MaxExpressionDepth != 64 || rc.MaxLoopIterations != 1000 || rc.LogExecution {
		t.Fatalf("unexpected runtime config %+v", rc)
	}

	globals := cfg.GlobalNumbers()
	if globals["limit"].IsFloat() || globals["limit"].Int64() != 10 {
		t.Fatalf("expected integer limit, got %s", globals["limit"])
	}
	if !globals["rate"].IsFloat() || globals["rate"].Float64() != 0.25 {
		t.Fatalf("expected float rate, got %s", globals["rate"])
	}
}

func TestLoadFromStringJSON(t *testing.T) {
	cfg, err := LoadFromString(`{"globals": {"Width": 3}, "runtime": {"max_loop_iterations": 5}}`, "json")
	if err != nil {
		t.Fatalf("LoadFromString failed: %v", err)
	}
	if cfg.Server.Addr != DefaultServerAddr {
		t.Fatalf("expected default addr, got %q", cfg.Server.Addr)
	}
	if got := cfg.GlobalNumbers()["width"]; got.Int64() != 3 {
		t.Fatalf("expected width=3, got %s", got)
	}
	rc := cfg.RuntimeConfig(basic.RuntimeConfig{MaxExpressionDepth: 512})
	if rc.MaxLoopIterations != 5 || rc.MaxExpressionDepth != 512 {
		t.Fatalf("unexpected runtime config %+v", rc)
	}
}

const sampleBCL = `
log_level = "warn"
print_env = true
runtime = {
    timeout             = "1s"
    max_loop_iterations = 50
}
server = {
    addr       = ":9090"
    cache_size = 8
}
`

func TestLoadFromStringBCL(t *testing.T) {
	cfg, err := LoadFromString(sampleBCL, "bcl")
	if err != nil {
		t.Fatalf("LoadFromString failed: %v", err)
	}
	if cfg.LogLevel != "warn" || !cfg.PrintEnv {
		t.Fatalf("unexpected runner settings %+v", cfg)
	}
	if cfg.Server.Addr != ":9090" || cfg.Server.CacheSize != 8 {
		t.Fatalf("unexpected server section %+v", cfg.Server)
	}
	rc := cfg.RuntimeConfig(basic.RuntimeConfig{MaxExpressionDepth: 512})
	if rc.Timeout != time.Second || rc.MaxLoopIterations != 50 || rc.MaxExpressionDepth != 512 {
		t.Fatalf("unexpected runtime config %+v", rc)
	}
}

func TestLoadByExtension(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "basic.yml")
	if err := os.WriteFile(path, []byte(sampleYAML), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("expected debug log level, got %q", cfg.LogLevel)
	}
	if cfg.Logger() == nil {
		t.Fatalf("expected logger")
	}

	if _, err := Load(filepath.Join(dir, "basic.toml")); err == nil {
		t.Fatalf("expected unsupported format error")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []string{
		"runtime:\n  timeout: soon\n",
		"runtime:\n  timeout: -1s\n",
		"runtime:\n  max_loop_iterations: -1\n",
		"runtime:\n  max_expression_depth: -2\n",
		"log_level: loud\n",
		"server:\n  cache_size: -5\n",
		"globals:\n  1abc: 2\n",
	}
	for _, content := range tests {
		_, err := LoadFromString(content, "yaml")
		var ce *errors.Error
		if !errors.As(err, &ce) || ce.Code != errors.INVALID {
			t.Fatalf("expected invalid config error for %q, got %v", content, err)
		}
	}
	var cfg *Config
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error for nil config")
	}
}

func TestUnsupportedFormat(t *testing.T) {
	_, err := LoadFromString("x = 1", "ini")
	var ce *errors.Error
	if !errors.As(err, &ce) || ce.Code != errors.INVALID || ce.Operation != "config.LoadFromString" {
		t.Fatalf("expected unsupported format error, got %v", err)
	}
	if _, err := LoadFromString("runtime: [1", "yaml"); err == nil {
		t.Fatalf("expected decode error")
	}
}
