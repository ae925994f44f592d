package optimizer

// HeatConsumer is an exogenous heat demand inside a HeatNode.
type HeatConsumer struct {
	Name string

	PowerActual []float64 // kW heat demand per step
}

// NewHeatConsumer returns a heat consumer with zero demand.
func NewHeatConsumer(cfg *Config) *HeatConsumer {
	return &HeatConsumer{
		Name:        "HeatConsumer",
		PowerActual: cfg.zeros(),
	}
}

func (hc *HeatConsumer) validate(idx int, horizon int) error {
	if err := checkLen("HeatConsumer", idx, horizon,
		arr{"power_actual_k", hc.PowerActual},
	); err != nil {
		return err
	}
	return checkNonNegative("HeatConsumer", idx, "power_actual_k", hc.PowerActual)
}

// toDocument ignores includeResults: heat demand has no result arrays.
func (hc *HeatConsumer) toDocument(includeResults bool) map[string]any {
	return map[string]any{
		"power_actual_k": floats(hc.PowerActual),
	}
}

func heatConsumerFromDocument(data map[string]any, includeResults bool) (*HeatConsumer, error) {
	hc := &HeatConsumer{Name: "HeatConsumer"}
	var err error
	if hc.PowerActual, err = docFloats(data, "power_actual_k"); err != nil {
		return nil, err
	}
	return hc, nil
}
