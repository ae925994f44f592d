package optimizer

// Storage is a battery-like electrical storage. Availability windows
// model a storage that is physically connected only part of the horizon
// (e.g. an electric vehicle): on each connect event the energy content
// restarts from StateOfChargeInitial, and at the last step of the
// horizon, when the storage is available there, it must reach
// StateOfChargeFinal. Disconnect events impose no final-state condition;
// on unavailable steps the energy content is bounded to zero.
type Storage struct {
	Name string

	EfficiencyCharging    float64 // (0,1]
	EfficiencyDischarging float64 // (0,1]
	PowerChargeMax        float64 // kW
	PowerChargeMin        float64 // kW, declared but not constrained
	PowerDischargeMax     float64 // kW
	PowerDischargeMin     float64 // kW, declared but not constrained
	EnergyCapacity        float64 // kWh
	StateOfChargeMax      float64 // [0,1]
	StateOfChargeMin      float64 // [0,1]

	Available            []float64 // 0/1, per step
	StateOfChargeInitial []float64 // [0,1], read on connect events
	StateOfChargeFinal   []float64 // [0,1], read at the last step of the horizon

	// Results.
	EventConnect     []bool    // derived from Available
	EventDisconnect  []bool    // derived from Available
	Energy           []float64 // kWh
	PowerCharging    []float64 // kW
	PowerDischarging []float64 // kW
}

// NewStorage returns a 50 kWh storage with 90% one-way efficiencies,
// 100 kW charge/discharge limits and a 10-90% SoC window, available for
// the whole horizon.
func NewStorage(cfg *Config) *Storage {
	return &Storage{
		Name:                  "Storage",
		EfficiencyCharging:    0.9,
		EfficiencyDischarging: 0.9,
		PowerChargeMax:        100.0,
		PowerChargeMin:        100.0,
		PowerDischargeMax:     100.0,
		PowerDischargeMin:     100.0,
		EnergyCapacity:        50.0,
		StateOfChargeMax:      0.90,
		StateOfChargeMin:      0.10,
		Available:             cfg.filled(1),
		StateOfChargeInitial:  cfg.zeros(),
		StateOfChargeFinal:    cfg.zeros(),
	}
}

func (s *Storage) validate(idx int, horizon int) error {
	if err := checkLen("Storage", idx, horizon,
		arr{"available_k", s.Available},
		arr{"state_of_charge_initial_k", s.StateOfChargeInitial},
		arr{"state_of_charge_final_k", s.StateOfChargeFinal},
	); err != nil {
		return err
	}
	if s.EfficiencyCharging <= 0 || s.EfficiencyCharging > 1 {
		return &InputError{Asset: "Storage", Index: idx, Field: "efficiency_charging_i",
			Reason: "must be in (0,1]"}
	}
	if s.EfficiencyDischarging <= 0 || s.EfficiencyDischarging > 1 {
		return &InputError{Asset: "Storage", Index: idx, Field: "efficiency_discharging_i",
			Reason: "must be in (0,1]"}
	}
	if s.PowerChargeMax < 0 {
		return &InputError{Asset: "Storage", Index: idx, Field: "power_charge_max_i",
			Reason: "must be non-negative"}
	}
	if s.PowerDischargeMax < 0 {
		return &InputError{Asset: "Storage", Index: idx, Field: "power_discharge_max_i",
			Reason: "must be non-negative"}
	}
	if s.EnergyCapacity < 0 {
		return &InputError{Asset: "Storage", Index: idx, Field: "energy_capacity_i",
			Reason: "must be non-negative"}
	}
	if s.StateOfChargeMin < 0 || s.StateOfChargeMin > 1 ||
		s.StateOfChargeMax < 0 || s.StateOfChargeMax > 1 ||
		s.StateOfChargeMin > s.StateOfChargeMax {
		return &InputError{Asset: "Storage", Index: idx, Field: "state_of_charge_min_i",
			Reason: "SoC window must satisfy 0 <= min <= max <= 1"}
	}
	if err := checkBinary("Storage", idx, "available_k", s.Available); err != nil {
		return err
	}
	if err := checkUnitRange("Storage", idx, "state_of_charge_initial_k", s.StateOfChargeInitial); err != nil {
		return err
	}
	return checkUnitRange("Storage", idx, "state_of_charge_final_k", s.StateOfChargeFinal)
}

// computeEvents derives the connect/disconnect events from the
// availability profile. The storage counts as connecting at k=0 when it
// starts the window available.
func (s *Storage) computeEvents(horizon int) {
	s.EventConnect = make([]bool, horizon)
	s.EventDisconnect = make([]bool, horizon)
	s.EventConnect[0] = s.Available[0] == 1
	for k := 1; k < horizon; k++ {
		s.EventConnect[k] = s.Available[k] == 1 && s.Available[k-1] == 0
		s.EventDisconnect[k] = s.Available[k] == 0 && s.Available[k-1] == 1
	}
}

func (s *Storage) toDocument(includeResults bool) map[string]any {
	data := map[string]any{
		"efficiency_charging_i":     s.EfficiencyCharging,
		"efficiency_discharging_i":  s.EfficiencyDischarging,
		"power_charge_max_i":        s.PowerChargeMax,
		"power_charge_min_i":        s.PowerChargeMin,
		"power_discharge_max_i":     s.PowerDischargeMax,
		"power_discharge_min_i":     s.PowerDischargeMin,
		"energy_capacity_i":         s.EnergyCapacity,
		"state_of_charge_max_i":     s.StateOfChargeMax,
		"state_of_charge_min_i":     s.StateOfChargeMin,
		"available_k":               floats(s.Available),
		"state_of_charge_initial_k": floats(s.StateOfChargeInitial),
		"state_of_charge_final_k":   floats(s.StateOfChargeFinal),
	}
	if includeResults {
		data["energy_k"] = floats(s.Energy)
		data["power_charging_k"] = floats(s.PowerCharging)
		data["power_discharging_k"] = floats(s.PowerDischarging)
	}
	return data
}

func storageFromDocument(data map[string]any, includeResults bool) (*Storage, error) {
	s := &Storage{Name: "Storage"}
	var err error
	if s.EfficiencyCharging, err = docFloat(data, "efficiency_charging_i"); err != nil {
		return nil, err
	}
	if s.EfficiencyDischarging, err = docFloat(data, "efficiency_discharging_i"); err != nil {
		return nil, err
	}
	if s.PowerChargeMax, err = docFloat(data, "power_charge_max_i"); err != nil {
		return nil, err
	}
	if s.PowerChargeMin, err = docFloat(data, "power_charge_min_i"); err != nil {
		return nil, err
	}
	if s.PowerDischargeMax, err = docFloat(data, "power_discharge_max_i"); err != nil {
		return nil, err
	}
	if s.PowerDischargeMin, err = docFloat(data, "power_discharge_min_i"); err != nil {
		return nil, err
	}
	if s.EnergyCapacity, err = docFloat(data, "energy_capacity_i"); err != nil {
		return nil, err
	}
	if s.StateOfChargeMax, err = docFloat(data, "state_of_charge_max_i"); err != nil {
		return nil, err
	}
	if s.StateOfChargeMin, err = docFloat(data, "state_of_charge_min_i"); err != nil {
		return nil, err
	}
	if s.Available, err = docFloats(data, "available_k"); err != nil {
		return nil, err
	}
	if s.StateOfChargeInitial, err = docFloats(data, "state_of_charge_initial_k"); err != nil {
		return nil, err
	}
	if s.StateOfChargeFinal, err = docFloats(data, "state_of_charge_final_k"); err != nil {
		return nil, err
	}
	if includeResults {
		if s.Energy, err = docFloats(data, "energy_k"); err != nil {
			return nil, err
		}
		if s.PowerCharging, err = docFloats(data, "power_charging_k"); err != nil {
			return nil, err
		}
		if s.PowerDischarging, err = docFloats(data, "power_discharging_k"); err != nil {
			return nil, err
		}
	}
	return s, nil
}
