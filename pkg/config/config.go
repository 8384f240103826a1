package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/oarkflow/bcl"
	"github.com/oarkflow/convert"
	"github.com/oarkflow/errors"
	"github.com/oarkflow/json"
	"github.com/oarkflow/log"
	"gopkg.in/yaml.v3"

	basic "github.com/akadjoker/basic-interpreter"
)

// Config describes how programs are run by the command line tools and the
// HTTP server.
type Config struct {
	Runtime     RuntimeSpec    `json:"runtime" yaml:"runtime"`
	Globals     map[string]any `json:"globals" yaml:"globals"`
	LogLevel    string         `json:"log_level" yaml:"log_level"`
	HistoryFile string         `json:"history_file" yaml:"history_file"`
	PrintEnv    bool           `json:"print_env" yaml:"print_env"`
	Server      ServerSpec     `json:"server" yaml:"server"`
}

// RuntimeSpec mirrors basic.RuntimeConfig. Zero values keep the package
// defaults.
type RuntimeSpec struct {
	Timeout            string `json:"timeout" yaml:"timeout"`
	MaxExpressionDepth int    `json:"max_expression_depth" yaml:"max_expression_depth"`
	MaxLoopIterations  int    `json:"max_loop_iterations" yaml:"max_loop_iterations"`
	LogExecution       *bool  `json:"log_execution" yaml:"log_execution"`
}

type ServerSpec struct {
	Addr      string `json:"addr" yaml:"addr"`
	CacheSize int    `json:"cache_size" yaml:"cache_size"`
}

const (
	DefaultServerAddr = ":3000"
	DefaultCacheSize  = 1024
)

var logLevels = map[string]struct{}{
	"trace": {}, "debug": {}, "info": {}, "warn": {}, "error": {}, "fatal": {},
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		LogLevel: "info",
		Server:   ServerSpec{Addr: DefaultServerAddr, CacheSize: DefaultCacheSize},
	}
}

// Load reads a config file, picking the decoder from its extension.
func Load(path string) (*Config, error) {
	ext := strings.ToLower(filepath.Ext(path))
	fn, ok := decoders[strings.TrimPrefix(ext, ".")]
	if !ok {
		return nil, invalid("config.Load", "unsupported config format: %s", ext)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "could not read config file", "config.Load")
	}
	return decode(raw, fn)
}

// LoadFromString decodes raw config text in the named format.
func LoadFromString(content, format string) (*Config, error) {
	fn, ok := decoders[strings.ToLower(format)]
	if !ok {
		return nil, invalid("config.LoadFromString", "unsupported format: %s", format)
	}
	return decode([]byte(content), fn)
}

var decoders = map[string]func([]byte, any) error{
	"yaml": yaml.Unmarshal,
	"yml":  yaml.Unmarshal,
	"json": func(data []byte, v any) error {
		return json.Unmarshal(data, v)
	},
	"bcl": func(data []byte, v any) error {
		_, err := bcl.Unmarshal(data, v)
		return err
	},
}

func decode(data []byte, fn func([]byte, any) error) (*Config, error) {
	cfg := Default()
	if err := fn(data, cfg); err != nil {
		return nil, errors.NewInvalid(err, "could not decode config", "config.decode")
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = DefaultServerAddr
	}
	if cfg.Server.CacheSize == 0 {
		cfg.Server.CacheSize = DefaultCacheSize
	}
	return cfg, cfg.Validate()
}

// Validate checks limits, the log level and that every global is numeric.
func (cfg *Config) Validate() error {
	if cfg == nil {
		return invalid("config.Validate", "config is nil")
	}
	if cfg.Runtime.Timeout != "" {
		d, err := time.ParseDuration(cfg.Runtime.Timeout)
		if err != nil {
			return errors.NewInvalid(err, fmt.Sprintf("invalid runtime timeout %q", cfg.Runtime.Timeout), "config.Validate")
		}
		if d < 0 {
			return invalid("config.Validate", "runtime timeout must not be negative")
		}
	}
	if cfg.Runtime.MaxExpressionDepth < 0 {
		return invalid("config.Validate", "max_expression_depth must not be negative")
	}
	if cfg.Runtime.MaxLoopIterations < 0 {
		return invalid("config.Validate", "max_loop_iterations must not be negative")
	}
	if cfg.LogLevel != "" {
		if _, ok := logLevels[strings.ToLower(cfg.LogLevel)]; !ok {
			return invalid("config.Validate", "unknown log level %q", cfg.LogLevel)
		}
	}
	if cfg.Server.CacheSize < 0 {
		return invalid("config.Validate", "server cache_size must not be negative")
	}
	for name, value := range cfg.Globals {
		if !validName(name) {
			return invalid("config.Validate", "global %q is not a valid identifier", name)
		}
		if _, ok := convert.ToFloat64(value); !ok {
			return invalid("config.Validate", "global %q is not a number", name)
		}
	}
	return nil
}

// RuntimeConfig applies the runtime section on top of base.
func (cfg *Config) RuntimeConfig(base basic.RuntimeConfig) basic.RuntimeConfig {
	if cfg.Runtime.Timeout != "" {
		if d, err := time.ParseDuration(cfg.Runtime.Timeout); err == nil {
			base.Timeout = d
		}
	}
	if cfg.Runtime.MaxExpressionDepth > 0 {
		base.MaxExpressionDepth = cfg.Runtime.MaxExpressionDepth
	}
	if cfg.Runtime.MaxLoopIterations > 0 {
		base.MaxLoopIterations = cfg.Runtime.MaxLoopIterations
	}
	if cfg.Runtime.LogExecution != nil {
		base.LogExecution = *cfg.Runtime.LogExecution
	}
	return base
}

// GlobalNumbers converts the globals section into interpreter numbers. Whole
// values become integers. Names are lowercased like identifiers in source.
func (cfg *Config) GlobalNumbers() map[string]basic.Number {
	globals := make(map[string]basic.Number, len(cfg.Globals))
	for name, value := range cfg.Globals {
		f, ok := convert.ToFloat64(value)
		if !ok {
			continue
		}
		name = strings.ToLower(name)
		if f == math.Trunc(f) && math.Abs(f) < 1e18 {
			globals[name] = basic.Int(int64(f))
		} else {
			globals[name] = basic.Float(f)
		}
	}
	return globals
}

// Logger builds a logger at the configured level.
func (cfg *Config) Logger() *log.Logger {
	level := cfg.LogLevel
	if level == "" {
		level = "info"
	}
	return &log.Logger{
		Level:  log.ParseLevel(strings.ToLower(level)),
		Writer: &log.IOWriter{Writer: os.Stderr},
	}
}

func invalid(op, format string, args ...any) error {
	return errors.NewInvalid(nil, fmt.Sprintf(format, args...), op)
}

func validName(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}
