// Package config holds the typed, validated configuration accepted by the
// HMM constructor (spec.md §6), shared between the CLI and test fixtures
// that want the same default/validation behavior the binary uses.
package config

import "fmt"

// Config mirrors spec.md §6's parameter list. The zero Config is not
// useful on its own; start from Default and override fields as needed.
type Config struct {
	RunGenotyping bool    `json:"run_genotyping"`
	RunPhasing    bool    `json:"run_phasing"`
	Recombrate    float64 `json:"recombrate"`
	Uniform       bool    `json:"uniform"`
	EffectiveN    float64 `json:"effective_n"`
	OnlyPaths     []int   `json:"only_paths,omitempty"`
	Normalize     bool    `json:"normalize"`
}

// Default returns the parameter defaults spec.md §6 names: recombrate 1.26,
// effective_N 25000, normalize true, both passes enabled, uniform false.
func Default() Config {
	return Config{
		RunGenotyping: true,
		RunPhasing:    true,
		Recombrate:    1.26,
		EffectiveN:    25000,
		Normalize:     true,
	}
}

// Validate checks the ConfigError conditions spec.md §7 names that can be
// caught before any SiteSummary is even read: at least one of
// run_genotyping/run_phasing must be set, and the numeric parameters must be
// physically sensible.
func (c Config) Validate() error {
	if !c.RunGenotyping && !c.RunPhasing {
		return fmt.Errorf("config: run_genotyping and run_phasing are both false: nothing to compute")
	}
	if c.Recombrate < 0 {
		return fmt.Errorf("config: recombrate must be >= 0, got %v", c.Recombrate)
	}
	if c.EffectiveN <= 0 {
		return fmt.Errorf("config: effective_n must be > 0, got %v", c.EffectiveN)
	}
	seen := make(map[int]bool, len(c.OnlyPaths))
	for _, p := range c.OnlyPaths {
		if p < 0 {
			return fmt.Errorf("config: only_paths contains negative index %d", p)
		}
		if seen[p] {
			return fmt.Errorf("config: only_paths contains duplicate index %d", p)
		}
		seen[p] = true
	}
	return nil
}
