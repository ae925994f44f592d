package optimizer

// HeatProducer converts electrical power into heat inside a HeatNode,
// e.g. a heating rod or a heat pump (efficiency above 1 models a COP).
// Start/stop behavior is discrete: the producer is either off or running
// at no less than its minimum power factor, and a startup burns
// PowerLossStartup that never reaches the heat side.
type HeatProducer struct {
	Name string

	Efficiency         float64 // heat out per electrical in
	PowerMax           float64 // kW
	MinimumPowerFactor float64 // [0,1], minimum fraction of PowerMax when running
	PowerLossStartup   float64 // kW burned when starting

	// Results.
	Starting []float64 // 0/1 startup indicator per step
	Running  []float64 // 0/1 running indicator per step
	Power    []float64 // kW electrical consumption per step
}

// NewHeatProducer returns a 5 kW resistive heater.
func NewHeatProducer(cfg *Config) *HeatProducer {
	return &HeatProducer{
		Name:               "HeatProducer",
		Efficiency:         0.98,
		PowerMax:           5,
		MinimumPowerFactor: 0.01,
		PowerLossStartup:   0,
	}
}

func (hp *HeatProducer) validate(idx int) error {
	asset := "HeatProducer"
	if hp.Efficiency <= 0 {
		return &InputError{Asset: asset, Index: idx, Field: "efficiency_i",
			Reason: "must be greater than 0"}
	}
	if hp.PowerMax < 0 {
		return &InputError{Asset: asset, Index: idx, Field: "power_max_i",
			Reason: "must be non-negative"}
	}
	if hp.MinimumPowerFactor < 0 || hp.MinimumPowerFactor > 1 {
		return &InputError{Asset: asset, Index: idx, Field: "minimum_power_factor_i",
			Reason: "must be in [0,1]"}
	}
	if hp.PowerLossStartup < 0 {
		return &InputError{Asset: asset, Index: idx, Field: "power_loss_startup_i",
			Reason: "must be non-negative"}
	}
	return nil
}

func (hp *HeatProducer) toDocument(includeResults bool) map[string]any {
	data := map[string]any{
		"efficiency_i":           hp.Efficiency,
		"power_max_i":            hp.PowerMax,
		"minimum_power_factor_i": hp.MinimumPowerFactor,
		"power_loss_startup_i":   hp.PowerLossStartup,
	}
	if includeResults {
		data["starting_k"] = floats(hp.Starting)
		data["running_k"] = floats(hp.Running)
		data["power_k"] = floats(hp.Power)
	}
	return data
}

func heatProducerFromDocument(data map[string]any, includeResults bool) (*HeatProducer, error) {
	hp := &HeatProducer{Name: "HeatProducer"}
	var err error
	if hp.Efficiency, err = docFloat(data, "efficiency_i"); err != nil {
		return nil, err
	}
	if hp.PowerMax, err = docFloat(data, "power_max_i"); err != nil {
		return nil, err
	}
	if hp.MinimumPowerFactor, err = docFloat(data, "minimum_power_factor_i"); err != nil {
		return nil, err
	}
	if hp.PowerLossStartup, err = docFloat(data, "power_loss_startup_i"); err != nil {
		return nil, err
	}
	if includeResults {
		if hp.Starting, err = docFloats(data, "starting_k"); err != nil {
			return nil, err
		}
		if hp.Running, err = docFloats(data, "running_k"); err != nil {
			return nil, err
		}
		if hp.Power, err = docFloats(data, "power_k"); err != nil {
			return nil, err
		}
	}
	return hp, nil
}
