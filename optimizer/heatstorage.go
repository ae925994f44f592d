package optimizer

// HeatStorage is a sensible-heat water tank inside a HeatNode. Its
// state is the tank temperature; thermal capacitance couples the energy
// entering and leaving the tank across steps.
type HeatStorage struct {
	Name string

	TemperatureMax   float64 // degC
	TemperatureMin   float64 // degC
	LossFactor       float64 // kWh/K heat loss per step
	Volume           float64 // l
	Density          float64 // kg/l
	SpecificHeat     float64 // kWh/kg/K
	TemperatureInput float64 // degC of the input flow
	TemperatureInit  float64 // degC at the start of the horizon
	TemperatureFinal float64 // degC required at the end of the horizon
	FlowMax          float64 // l/h

	// Results.
	EnergyIn    []float64 // kWh entering per step
	EnergyOut   []float64 // kWh leaving per step
	Flow        []float64 // l/s; not computed by Optimize, left as loaded
	Temperature []float64 // degC
}

// NewHeatStorage returns a 200 l domestic hot water tank.
func NewHeatStorage(cfg *Config) *HeatStorage {
	return &HeatStorage{
		Name:             "HeatStorage",
		TemperatureMax:   80,
		TemperatureMin:   40,
		LossFactor:       1e-4,
		Volume:           200,
		Density:          1,
		SpecificHeat:     1.11e-3,
		TemperatureInput: 10,
		TemperatureInit:  60,
		TemperatureFinal: 60,
		FlowMax:          5 * 3600,
	}
}

func (hs *HeatStorage) validate(idx int) error {
	asset := "HeatStorage"
	if hs.Volume < 0 {
		return &InputError{Asset: asset, Index: idx, Field: "volume_i",
			Reason: "must be non-negative"}
	}
	if hs.Density < 0 {
		return &InputError{Asset: asset, Index: idx, Field: "density_i",
			Reason: "must be non-negative"}
	}
	if hs.SpecificHeat < 0 {
		return &InputError{Asset: asset, Index: idx, Field: "specific_heat_i",
			Reason: "must be non-negative"}
	}
	if hs.LossFactor < 0 {
		return &InputError{Asset: asset, Index: idx, Field: "loss_factor_i",
			Reason: "must be non-negative"}
	}
	if hs.TemperatureMin > hs.TemperatureMax {
		return &InputError{Asset: asset, Index: idx, Field: "temperature_min_i",
			Reason: "must not exceed temperature_max"}
	}
	if hs.TemperatureInit < hs.TemperatureMin || hs.TemperatureInit > hs.TemperatureMax {
		return &InputError{Asset: asset, Index: idx, Field: "temperature_init_i",
			Reason: "must be inside the temperature window"}
	}
	if hs.TemperatureFinal < hs.TemperatureMin || hs.TemperatureFinal > hs.TemperatureMax {
		return &InputError{Asset: asset, Index: idx, Field: "temperature_final_i",
			Reason: "must be inside the temperature window"}
	}
	return nil
}

func (hs *HeatStorage) toDocument(includeResults bool) map[string]any {
	data := map[string]any{
		"temperature_max_i":   hs.TemperatureMax,
		"temperature_min_i":   hs.TemperatureMin,
		"loss_factor_i":       hs.LossFactor,
		"volume_i":            hs.Volume,
		"density_i":           hs.Density,
		"specific_heat_i":     hs.SpecificHeat,
		"temperature_input_i": hs.TemperatureInput,
		"temperature_init_i":  hs.TemperatureInit,
		"temperature_final_i": hs.TemperatureFinal,
		"flow_max_i":          hs.FlowMax,
	}
	if includeResults {
		data["flow_k"] = floats(hs.Flow)
		data["temperature_k"] = floats(hs.Temperature)
	}
	return data
}

func heatStorageFromDocument(data map[string]any, includeResults bool) (*HeatStorage, error) {
	hs := &HeatStorage{Name: "HeatStorage"}
	var err error
	if hs.TemperatureMax, err = docFloat(data, "temperature_max_i"); err != nil {
		return nil, err
	}
	if hs.TemperatureMin, err = docFloat(data, "temperature_min_i"); err != nil {
		return nil, err
	}
	if hs.LossFactor, err = docFloat(data, "loss_factor_i"); err != nil {
		return nil, err
	}
	if hs.Volume, err = docFloat(data, "volume_i"); err != nil {
		return nil, err
	}
	if hs.Density, err = docFloat(data, "density_i"); err != nil {
		return nil, err
	}
	if hs.SpecificHeat, err = docFloat(data, "specific_heat_i"); err != nil {
		return nil, err
	}
	if hs.TemperatureInput, err = docFloat(data, "temperature_input_i"); err != nil {
		return nil, err
	}
	if hs.TemperatureInit, err = docFloat(data, "temperature_init_i"); err != nil {
		return nil, err
	}
	if hs.TemperatureFinal, err = docFloat(data, "temperature_final_i"); err != nil {
		return nil, err
	}
	if hs.FlowMax, err = docFloat(data, "flow_max_i"); err != nil {
		return nil, err
	}
	if includeResults {
		if hs.Flow, err = docFloats(data, "flow_k"); err != nil {
			return nil, err
		}
		if hs.Temperature, err = docFloats(data, "temperature_k"); err != nil {
			return nil, err
		}
	}
	return hs, nil
}
