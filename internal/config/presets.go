package config

import "sort"

// Presets are named profiles selectable with --preset style flags.
var Presets = map[string]*Config{
	"default": DefaultConfig(),
	"debug": {
		Backend: "cpu", LogLevel: "debug", DataDir: DefaultDataDir,
		Solver:    SolverConfig{Scrub: true, StrictFinite: true, Tolerance: DefaultTolerance},
		Generator: GeneratorConfig{Seed: 1, Dominant: true},
	},
	"strict": {
		Backend: DefaultBackend, LogLevel: "warn", DataDir: DefaultDataDir,
		Solver:    SolverConfig{StrictFinite: true, Tolerance: 1e-9},
		Generator: GeneratorConfig{Seed: 1, Dominant: true},
	},
	"serial": {
		Backend: "cpu", Workers: 1, MinChunk: 1 << 20, LogLevel: DefaultLogLevel, DataDir: DefaultDataDir,
		Solver:    SolverConfig{Tolerance: DefaultTolerance},
		Generator: GeneratorConfig{Seed: 1, Dominant: true},
	},
}

// GetPreset returns a copy of the named profile, or nil.
func GetPreset(name string) *Config {
	cfg, ok := Presets[name]
	if !ok {
		return nil
	}
	out := *cfg
	return &out
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
