package optimizer

// Consumer is a deferrable electrical consumer. It asks for a desired
// power profile; when the EndUser is flexible, delivery may lag behind
// by at most the per-step energy deficit budget.
type Consumer struct {
	Name string

	PowerMax float64 // kW
	PowerMin float64 // kW

	Available        []float64 // 0/1, per step
	EnergyDeficitMax []float64 // kWh, per step
	PowerDesired     []float64 // kW, per step

	// Results.
	PowerActual   []float64 // kW delivered per step
	EnergyDeficit []float64 // kWh cumulative under-delivery per step
}

// NewConsumer returns an always-available consumer accepting up to
// 100 kW with no deficit budget.
func NewConsumer(cfg *Config) *Consumer {
	return &Consumer{
		Name:             "Consumer",
		PowerMax:         100.0,
		PowerMin:         0.0,
		Available:        cfg.filled(1),
		EnergyDeficitMax: cfg.zeros(),
		PowerDesired:     cfg.zeros(),
	}
}

func (c *Consumer) validate(idx int, horizon int) error {
	if err := checkLen("Consumer", idx, horizon,
		arr{"available_k", c.Available},
		arr{"energy_deficit_max_k", c.EnergyDeficitMax},
		arr{"power_desired_k", c.PowerDesired},
	); err != nil {
		return err
	}
	if c.PowerMin > c.PowerMax {
		return &InputError{Asset: "Consumer", Index: idx, Field: "power_min_i",
			Reason: "must not exceed power_max"}
	}
	if err := checkBinary("Consumer", idx, "available_k", c.Available); err != nil {
		return err
	}
	if err := checkNonNegative("Consumer", idx, "energy_deficit_max_k", c.EnergyDeficitMax); err != nil {
		return err
	}
	return checkNonNegative("Consumer", idx, "power_desired_k", c.PowerDesired)
}

func (c *Consumer) toDocument(includeResults bool) map[string]any {
	data := map[string]any{
		"power_max_i":          c.PowerMax,
		"power_min_i":          c.PowerMin,
		"available_k":          floats(c.Available),
		"energy_deficit_max_k": floats(c.EnergyDeficitMax),
		"power_desired_k":      floats(c.PowerDesired),
	}
	if includeResults {
		data["power_actual_k"] = floats(c.PowerActual)
		data["energy_deficit_k"] = floats(c.EnergyDeficit)
	}
	return data
}

func consumerFromDocument(data map[string]any, includeResults bool) (*Consumer, error) {
	c := &Consumer{Name: "Consumer"}
	var err error
	if c.PowerMax, err = docFloat(data, "power_max_i"); err != nil {
		return nil, err
	}
	if c.PowerMin, err = docFloat(data, "power_min_i"); err != nil {
		return nil, err
	}
	if c.Available, err = docFloats(data, "available_k"); err != nil {
		return nil, err
	}
	if c.EnergyDeficitMax, err = docFloats(data, "energy_deficit_max_k"); err != nil {
		return nil, err
	}
	if c.PowerDesired, err = docFloats(data, "power_desired_k"); err != nil {
		return nil, err
	}
	if includeResults {
		if c.PowerActual, err = docFloats(data, "power_actual_k"); err != nil {
			return nil, err
		}
		if c.EnergyDeficit, err = docFloats(data, "energy_deficit_k"); err != nil {
			return nil, err
		}
	}
	return c, nil
}
