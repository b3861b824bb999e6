// Package stress drives the objfmt object format the way a collector
// test does: build a heap of inter-referencing vectors through a
// reserve/commit allocator, mutate it, and validate everything after
// every phase. Runs are reproducible from a seed.
package stress

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Config holds the parameters of a stress run.
type Config struct {
	// Seed drives every pseudo-random choice in the run. Equal seeds and
	// parameters reproduce the same heap and the same mutations.
	Seed uint64 `toml:"seed"`

	// Objects is how many vector objects the build phase creates.
	Objects int `toml:"objects"`

	// MaxSlots bounds the slot count of a built vector (inclusive).
	MaxSlots int `toml:"max-slots"`

	// Mutations is how many write/swap/read operations the mutation
	// phase applies.
	Mutations int `toml:"mutations"`

	// CommitFailRate is the probability that the arena invalidates a
	// reservation at commit time, forcing the builder's retry loop.
	CommitFailRate float64 `toml:"commit-fail-rate"`

	// SegmentWords is the arena segment size in words.
	SegmentWords int `toml:"segment-words"`
}

// DefaultConfig returns the parameters of a small, deterministic run.
func DefaultConfig() Config {
	return Config{
		Seed:         1,
		Objects:      256,
		MaxSlots:     32,
		Mutations:    4096,
		SegmentWords: 4096,
	}
}

// Load parses a TOML config file. Fields absent from the file keep their
// defaults.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("cannot read %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse error in %s: %w", path, err)
	}
	return cfg, nil
}

// Validate reports the first nonsensical parameter.
func (c Config) Validate() error {
	if c.Objects < 0 {
		return fmt.Errorf("stress: objects must be non-negative, got %d", c.Objects)
	}
	if c.MaxSlots < 0 {
		return fmt.Errorf("stress: max-slots must be non-negative, got %d", c.MaxSlots)
	}
	if c.Mutations < 0 {
		return fmt.Errorf("stress: mutations must be non-negative, got %d", c.Mutations)
	}
	if c.CommitFailRate < 0 || c.CommitFailRate >= 1 {
		return fmt.Errorf("stress: commit-fail-rate must be in [0, 1), got %g", c.CommitFailRate)
	}
	if c.SegmentWords < c.MaxSlots+2 {
		return fmt.Errorf("stress: segment-words %d cannot hold a %d-slot vector", c.SegmentWords, c.MaxSlots)
	}
	return nil
}
