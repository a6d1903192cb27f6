package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/simusolve/internal/compute"
)

const (
	DefaultBackend   = "auto"
	DefaultLogLevel  = "info"
	DefaultTolerance = 1e-6
	DefaultDataDir   = "runs"
)

// ErrInvalid is wrapped by every Validate failure.
var ErrInvalid = errors.New("config: invalid value")

type Config struct {
	Backend     string          `yaml:"backend"`
	Device      int             `yaml:"device"`
	Workers     int             `yaml:"workers"`
	MinChunk    int             `yaml:"min_chunk"`
	MemoryLimit int             `yaml:"memory_limit"`
	LogLevel    string          `yaml:"log_level"`
	DataDir     string          `yaml:"data_dir"`
	Solver      SolverConfig    `yaml:"solver"`
	Generator   GeneratorConfig `yaml:"generator"`
}

type SolverConfig struct {
	Scrub        bool    `yaml:"scrub"`
	StrictFinite bool    `yaml:"strict_finite"`
	Tolerance    float64 `yaml:"tolerance"`
}

type GeneratorConfig struct {
	Seed     uint64 `yaml:"seed"`
	Dominant bool   `yaml:"dominant"`
}

func DefaultConfig() *Config {
	return &Config{
		Backend:  DefaultBackend,
		LogLevel: DefaultLogLevel,
		DataDir:  DefaultDataDir,
		Solver: SolverConfig{
			Tolerance: DefaultTolerance,
		},
		Generator: GeneratorConfig{
			Seed:     1,
			Dominant: true,
		},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks ranges; zero worker and chunk counts mean "backend default".
func (c *Config) Validate() error {
	var errs []error
	if c.Backend == "" {
		errs = append(errs, fmt.Errorf("%w: backend is empty", ErrInvalid))
	}
	if c.Device < 0 {
		errs = append(errs, fmt.Errorf("%w: device %d", ErrInvalid, c.Device))
	}
	if c.Workers < 0 {
		errs = append(errs, fmt.Errorf("%w: workers %d", ErrInvalid, c.Workers))
	}
	if c.MinChunk < 0 {
		errs = append(errs, fmt.Errorf("%w: min_chunk %d", ErrInvalid, c.MinChunk))
	}
	if c.MemoryLimit < 0 {
		errs = append(errs, fmt.Errorf("%w: memory_limit %d", ErrInvalid, c.MemoryLimit))
	}
	if c.Solver.Tolerance <= 0 {
		errs = append(errs, fmt.Errorf("%w: tolerance %g", ErrInvalid, c.Solver.Tolerance))
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("%w: log_level %q", ErrInvalid, c.LogLevel))
	}
	return errors.Join(errs...)
}

// Level parses LogLevel, falling back to info.
func (c *Config) Level() zerolog.Level {
	lvl, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil || c.LogLevel == "" {
		return zerolog.InfoLevel
	}
	return lvl
}

func (c *Config) BackendOptions() compute.Options {
	return compute.Options{
		Workers:          c.Workers,
		MinChunk:         c.MinChunk,
		MemoryLimitBytes: c.MemoryLimit,
	}
}

// OpenBackend resolves Backend by name; "auto" picks the first available.
func (c *Config) OpenBackend() (compute.Backend, error) {
	if c.Backend == DefaultBackend {
		return compute.AutoSelect(c.BackendOptions())
	}
	return compute.Lookup(c.Backend, c.BackendOptions())
}
