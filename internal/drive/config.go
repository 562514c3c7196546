package drive

import (
	"errors"
	"fmt"
	"strconv"
)

var ErrInvalidConfig = errors.New("drive: invalid config")

// Config describes one run: a writer publishing Writes sequence numbers
// followed by Sentinel, and Readers goroutines polling until they see it.
type Config struct {
	Readers  int    `mapstructure:"readers"`
	Writes   int    `mapstructure:"writes"`
	MaxSpin  int    `mapstructure:"max_spin"` // upper bound of the busy loop after each read
	Sentinel string `mapstructure:"sentinel"`
	Baseline bool   `mapstructure:"baseline"` // use the RWMutex store instead
}

// DefaultConfig mirrors the classic demo: two readers, a million writes.
func DefaultConfig() Config {
	return Config{
		Readers:  2,
		Writes:   1_000_000,
		MaxSpin:  64,
		Sentinel: "done",
	}
}

// Validate reports the first problem with c.
func (c Config) Validate() error {
	switch {
	case c.Readers < 1:
		return fmt.Errorf("%w: readers must be >= 1, got %d", ErrInvalidConfig, c.Readers)
	case c.Writes < 0:
		return fmt.Errorf("%w: writes must be >= 0, got %d", ErrInvalidConfig, c.Writes)
	case c.MaxSpin < 0:
		return fmt.Errorf("%w: max_spin must be >= 0, got %d", ErrInvalidConfig, c.MaxSpin)
	case c.Sentinel == "":
		return fmt.Errorf("%w: sentinel must not be empty", ErrInvalidConfig)
	}
	if _, err := strconv.Atoi(c.Sentinel); err == nil {
		return fmt.Errorf("%w: sentinel %q collides with a sequence number", ErrInvalidConfig, c.Sentinel)
	}
	return nil
}
