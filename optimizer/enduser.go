package optimizer

import (
	"log"
	"os"
	"time"
)

// EndUser represents a closed system (building, community) where
// electricity is transported without losses. It owns one grid connection
// and the lists of producers, storages, consumers and heat nodes, and is
// the unit the optimizer works on.
type EndUser struct {
	Name string

	Producers []*Producer
	Storages  []*Storage
	Consumers []*Consumer
	HeatNodes []*HeatNode
	Grid      *Grid

	// StartTime anchors the horizon on the wall clock; it only matters
	// for timestamps, serialization and display.
	StartTime time.Time

	// Flexibility enables the flexible assets: consumer deficits,
	// storage charge/discharge and heat storage capacitance. When
	// false, the dispatch degenerates to rigid supply of the desired
	// profiles.
	Flexibility bool

	// Solve outcome. Status uses the solver vocabulary ("Optimal",
	// "Infeasible", ...); Loss is NaN when the solver produced no
	// objective value. IncludeResults gates result serialization and
	// is set after every solve.
	Loss           float64
	Status         string
	IncludeResults bool

	// Logger receives the status line after each solve. Defaults to
	// stdout; replace it before calling Optimize to redirect.
	Logger *log.Logger

	cfg *Config
}

// NewEndUser returns an empty end user bound to cfg. The grid is
// default-constructed; all asset lists start empty.
func NewEndUser(cfg *Config) *EndUser {
	return &EndUser{
		Name:        "EndUser",
		Grid:        NewGrid(cfg),
		StartTime:   time.Date(2021, time.June, 1, 0, 0, 0, 0, time.UTC),
		Flexibility: true,
		Status:      StatusNotSolved,
		Logger:      log.New(os.Stdout, "[OPTIMIZER] ", log.LstdFlags),
		cfg:         cfg,
	}
}

// Config returns the horizon configuration this end user was built
// against.
func (eu *EndUser) Config() *Config { return eu.cfg }

// Timestamps returns the wall-clock instant of every step of the
// horizon: StartTime + k*DeltaT.
func (eu *EndUser) Timestamps() []time.Time {
	out := make([]time.Time, eu.cfg.Horizon)
	step := time.Duration(eu.cfg.DeltaT * float64(time.Hour))
	for k := range out {
		out[k] = eu.StartTime.Add(time.Duration(k) * step)
	}
	return out
}

// validate checks every input array shape and every scalar range before
// a solve. The grid must be present.
func (eu *EndUser) validate() error {
	if err := eu.cfg.Validate(); err != nil {
		return &InputError{Asset: "EndUser", Index: 0, Field: "config", Reason: err.Error()}
	}
	if eu.Grid == nil {
		return &InputError{Asset: "EndUser", Index: 0, Field: "grid", Reason: "missing grid"}
	}
	h := eu.cfg.Horizon
	if err := eu.Grid.validate(0, h); err != nil {
		return err
	}
	for i, p := range eu.Producers {
		if err := p.validate(i, h); err != nil {
			return err
		}
	}
	for i, s := range eu.Storages {
		if err := s.validate(i, h); err != nil {
			return err
		}
	}
	for i, c := range eu.Consumers {
		if err := c.validate(i, h); err != nil {
			return err
		}
	}
	for i, hn := range eu.HeatNodes {
		if err := hn.validate(i, h); err != nil {
			return err
		}
	}
	return nil
}
