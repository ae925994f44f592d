// Package optimizer models a small closed energy system (grid connection,
// producers, storages, consumers and heat sub-networks) over a rolling
// horizon and computes the dispatch minimizing a grid-side objective by
// mixed-integer linear programming.
package optimizer

import "fmt"

// Config carries the horizon parameters shared by every asset of one
// EndUser: the number of discrete steps and their length in hours.
//
// The handle is rebindable: callers may change Horizon between scenarios
// and construct a fresh asset graph against it. Assets capture array
// lengths at construction time, so all assets of one EndUser must be
// built against the same Config state; Optimize reports an invalid-shape
// error otherwise.
type Config struct {
	Horizon int     // number of discrete steps
	DeltaT  float64 // length of one step [h]
}

// DefaultConfig returns the standard day-ahead setup: 96 quarter-hour
// steps covering 24 hours.
func DefaultConfig() *Config {
	return &Config{
		Horizon: int(24 * 60 / 15),
		DeltaT:  15.0 / 60.0,
	}
}

// Validate checks the configuration values.
func (c *Config) Validate() error {
	if c.Horizon <= 0 {
		return fmt.Errorf("horizon must be greater than 0, got: %d", c.Horizon)
	}
	if c.DeltaT <= 0 {
		return fmt.Errorf("delta_t must be greater than 0, got: %g", c.DeltaT)
	}
	return nil
}

// zeros returns a horizon-length array of zeros.
func (c *Config) zeros() []float64 {
	return make([]float64, c.Horizon)
}

// filled returns a horizon-length array with every entry set to v.
func (c *Config) filled(v float64) []float64 {
	out := make([]float64, c.Horizon)
	for i := range out {
		out[i] = v
	}
	return out
}
