package optimizer

// Producer is an electrical energy producer with an exogenous power
// profile, e.g. a PV plant or a run-of-river turbine. A fraction of the
// available power can be curtailed for feasibility.
type Producer struct {
	Name string

	// CurtailmentFactorMax is the fraction of the produced power that
	// may be curtailed, in [0,1].
	CurtailmentFactorMax float64

	PowerActual []float64 // kW, per step, available power

	// Results.
	CurtailmentFactor []float64 // fraction curtailed per step
}

// NewProducer returns a producer with a zero profile and no curtailment
// allowance.
func NewProducer(cfg *Config) *Producer {
	return &Producer{
		Name:        "Producer",
		PowerActual: cfg.zeros(),
	}
}

func (p *Producer) validate(idx int, horizon int) error {
	if err := checkLen("Producer", idx, horizon,
		arr{"power_actual_k", p.PowerActual},
	); err != nil {
		return err
	}
	if p.CurtailmentFactorMax < 0 || p.CurtailmentFactorMax > 1 {
		return &InputError{Asset: "Producer", Index: idx, Field: "power_curtailment_factor_max_i",
			Reason: "must be in [0,1]"}
	}
	return checkNonNegative("Producer", idx, "power_actual_k", p.PowerActual)
}

func (p *Producer) toDocument(includeResults bool) map[string]any {
	data := map[string]any{
		"power_curtailment_factor_max_i": p.CurtailmentFactorMax,
		"power_actual_k":                 floats(p.PowerActual),
	}
	if includeResults {
		data["power_curtailment_factor_k"] = floats(p.CurtailmentFactor)
	}
	return data
}

func producerFromDocument(data map[string]any, includeResults bool) (*Producer, error) {
	p := &Producer{Name: "Producer"}
	var err error
	if p.CurtailmentFactorMax, err = docFloat(data, "power_curtailment_factor_max_i"); err != nil {
		return nil, err
	}
	if p.PowerActual, err = docFloats(data, "power_actual_k"); err != nil {
		return nil, err
	}
	if includeResults {
		if p.CurtailmentFactor, err = docFloats(data, "power_curtailment_factor_k"); err != nil {
			return nil, err
		}
	}
	return p, nil
}
