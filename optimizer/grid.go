package optimizer

import "sort"

// Grid describes the external electricity grid an EndUser is connected
// to: import/export power limits, tariffs and the objective selection.
//
// Input arrays are caller-provided and read by the optimizer; result
// arrays are written by Optimize (binaries as 0/1 values) and stay nil
// until the first solve.
type Grid struct {
	Name string

	// DischargeToGrid allows simultaneous discharging of storages and
	// export to the grid.
	DischargeToGrid bool

	PowerImportMax []float64 // kW, per step
	PowerExportMax []float64 // kW, per step
	ImportTariff   []float64 // currency/kWh, per step
	ExportTariff   []float64 // currency/kWh, per step

	// LossF selects the objective from the registry; see LossFunctions.
	LossF string

	// Results.
	PowerImport     []float64 // kW
	PowerExport     []float64 // kW
	ExportingToGrid []float64 // 0/1 indicator
}

// NewGrid returns a grid with 100 kW symmetric limits, zero tariffs and
// the cost objective.
func NewGrid(cfg *Config) *Grid {
	return &Grid{
		Name:            "Grid",
		DischargeToGrid: true,
		PowerImportMax:  cfg.filled(100.0),
		PowerExportMax:  cfg.filled(100.0),
		ImportTariff:    cfg.zeros(),
		ExportTariff:    cfg.zeros(),
		LossF:           LossMinimizeCost,
	}
}

// Objective registry names.
const (
	LossMinimizeCost       = "minimize_cost"
	LossMinimizeGridSupply = "minimize_grid_supply"
)

// lossCoeffs returns the objective coefficients of the import and export
// variables at step k for one named loss function. The registry is
// closed: an unknown name fails before any solve.
var lossCoeffs = map[string]func(g *Grid, k int) (imp, exp float64){
	LossMinimizeCost: func(g *Grid, k int) (float64, float64) {
		return g.ImportTariff[k], -g.ExportTariff[k]
	},
	LossMinimizeGridSupply: func(g *Grid, k int) (float64, float64) {
		return 1, 0
	},
}

// LossFunctions lists the registered loss function names, sorted.
func LossFunctions() []string {
	names := make([]string, 0, len(lossCoeffs))
	for name := range lossCoeffs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (g *Grid) validate(idx int, horizon int) error {
	if err := checkLen("Grid", idx, horizon,
		arr{"power_import_max_k", g.PowerImportMax},
		arr{"power_export_max_k", g.PowerExportMax},
		arr{"import_tariff_k", g.ImportTariff},
		arr{"export_tariff_k", g.ExportTariff},
	); err != nil {
		return err
	}
	if err := checkNonNegative("Grid", idx, "power_import_max_k", g.PowerImportMax); err != nil {
		return err
	}
	return checkNonNegative("Grid", idx, "power_export_max_k", g.PowerExportMax)
}

func (g *Grid) toDocument(includeResults bool) map[string]any {
	data := map[string]any{
		"discharge_to_grid_b": g.DischargeToGrid,
		"power_import_max_k":  floats(g.PowerImportMax),
		"power_export_max_k":  floats(g.PowerExportMax),
		"import_tariff_k":     floats(g.ImportTariff),
		"export_tariff_k":     floats(g.ExportTariff),
		"loss_f_s":            g.LossF,
	}
	if includeResults {
		data["power_import_k"] = floats(g.PowerImport)
		data["power_export_k"] = floats(g.PowerExport)
	}
	return data
}

func gridFromDocument(data map[string]any, includeResults bool) (*Grid, error) {
	g := &Grid{Name: "Grid", DischargeToGrid: true}
	var err error
	if g.DischargeToGrid, err = docBool(data, "discharge_to_grid_b"); err != nil {
		return nil, err
	}
	if g.PowerImportMax, err = docFloats(data, "power_import_max_k"); err != nil {
		return nil, err
	}
	if g.PowerExportMax, err = docFloats(data, "power_export_max_k"); err != nil {
		return nil, err
	}
	if g.ImportTariff, err = docFloats(data, "import_tariff_k"); err != nil {
		return nil, err
	}
	if g.ExportTariff, err = docFloats(data, "export_tariff_k"); err != nil {
		return nil, err
	}
	if g.LossF, err = docString(data, "loss_f_s"); err != nil {
		return nil, err
	}
	if includeResults {
		if g.PowerImport, err = docFloats(data, "power_import_k"); err != nil {
			return nil, err
		}
		if g.PowerExport, err = docFloats(data, "power_export_k"); err != nil {
			return nil, err
		}
	}
	return g, nil
}
