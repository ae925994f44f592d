package tariff

import (
	"fmt"
	"time"

	"github.com/devskill-org/enduseroptimizer/optimizer"
)

// Fees adjusts raw auction prices to what the end user actually pays
// and receives, all in EUR/MWh.
type Fees struct {
	ImportOperator float64 // added on import
	ImportDelivery float64 // added on import
	ExportOperator float64 // subtracted on export
}

// Schedule resamples a price document onto the optimization horizon and
// converts EUR/MWh auction prices into the optimizer's currency/kWh
// tariffs, fee-adjusted. Export tariffs are floored at zero.
//
// Every step of [start, start + H*DeltaT) must be covered by the
// document; a gap is an error rather than a silent zero.
func Schedule(doc *PublicationMarketDocument, start time.Time, cfg *optimizer.Config, fees Fees) (importTariff, exportTariff []float64, err error) {
	if doc == nil {
		return nil, nil, fmt.Errorf("nil price document")
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	step := time.Duration(cfg.DeltaT * float64(time.Hour))
	importTariff = make([]float64, cfg.Horizon)
	exportTariff = make([]float64, cfg.Horizon)
	for k := 0; k < cfg.Horizon; k++ {
		at := start.Add(time.Duration(k) * step)
		price, found := doc.PriceAt(at)
		if !found {
			return nil, nil, fmt.Errorf("no price for step %d (%s)", k, at.Format(time.RFC3339))
		}
		importTariff[k] = (price + fees.ImportOperator + fees.ImportDelivery) / 1000.0
		exportPrice := (price - fees.ExportOperator) / 1000.0
		if exportPrice < 0 {
			exportPrice = 0
		}
		exportTariff[k] = exportPrice
	}
	return importTariff, exportTariff, nil
}

// ApplyToGrid fills the grid's tariff arrays from a price document.
func ApplyToGrid(grid *optimizer.Grid, doc *PublicationMarketDocument, start time.Time, cfg *optimizer.Config, fees Fees) error {
	importTariff, exportTariff, err := Schedule(doc, start, cfg, fees)
	if err != nil {
		return err
	}
	grid.ImportTariff = importTariff
	grid.ExportTariff = exportTariff
	return nil
}
