// Package solar synthesizes PV production profiles for the optimization
// horizon from the solar position at a location.
package solar

import (
	"fmt"
	"math"
	"time"

	"github.com/sixdouglas/suncalc"

	"github.com/devskill-org/enduseroptimizer/optimizer"
)

// Site describes a PV installation.
type Site struct {
	Latitude  float64 // degrees
	Longitude float64 // degrees
	PeakPower float64 // kW at zenith under clear sky
	// CloudCover scales the whole profile, 0 (clear) to 100 (overcast).
	// Clouds reduce output by up to 90%.
	CloudCover float64
}

// Validate checks the site parameters.
func (s Site) Validate() error {
	if s.Latitude < -90 || s.Latitude > 90 {
		return fmt.Errorf("latitude must be between -90 and 90, got: %f", s.Latitude)
	}
	if s.Longitude < -180 || s.Longitude > 180 {
		return fmt.Errorf("longitude must be between -180 and 180, got: %f", s.Longitude)
	}
	if s.PeakPower < 0 {
		return fmt.Errorf("peak power must be non-negative, got: %f", s.PeakPower)
	}
	if s.CloudCover < 0 || s.CloudCover > 100 {
		return fmt.Errorf("cloud cover must be between 0 and 100, got: %f", s.CloudCover)
	}
	return nil
}

// PowerAt estimates the PV output at one instant: peak power scaled by
// the sine of the solar altitude (0 at the horizon, 1 at zenith) and
// the cloud factor.
func (s Site) PowerAt(t time.Time) float64 {
	pos := suncalc.GetPosition(t, s.Latitude, s.Longitude)
	factor := math.Sin(pos.Altitude)
	if factor <= 0 {
		return 0
	}
	cloudFactor := 1.0 - (s.CloudCover/100.0)*0.90
	return s.PeakPower * factor * cloudFactor
}

// Profile samples the site's output over the horizon starting at start.
func (s Site) Profile(start time.Time, cfg *optimizer.Config) ([]float64, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	step := time.Duration(cfg.DeltaT * float64(time.Hour))
	out := make([]float64, cfg.Horizon)
	for k := range out {
		out[k] = s.PowerAt(start.Add(time.Duration(k) * step))
	}
	return out, nil
}

// NewProducer builds a producer whose availability profile follows the
// site over the end user's horizon.
func (s Site) NewProducer(start time.Time, cfg *optimizer.Config) (*optimizer.Producer, error) {
	profile, err := s.Profile(start, cfg)
	if err != nil {
		return nil, err
	}
	p := optimizer.NewProducer(cfg)
	p.Name = "PV"
	p.PowerActual = profile
	return p, nil
}
