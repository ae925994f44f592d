package optimizer

import (
	"fmt"
	"io"
	"log"
	"math"

	"github.com/devskill-org/enduseroptimizer/milp"
)

// Solve statuses, re-exported so callers do not need to import the milp
// package to inspect EndUser.Status.
const (
	StatusNotSolved  = milp.StatusNotSolved
	StatusOptimal    = milp.StatusOptimal
	StatusInfeasible = milp.StatusInfeasible
	StatusUnbounded  = milp.StatusUnbounded
	StatusUndefined  = milp.StatusUndefined
)

// Optimize computes the dispatch of the end user over the horizon: it
// translates the asset graph into a MILP, solves it, and writes the
// per-step results back onto the assets.
//
// Validation errors (shapes, ranges, unknown objective) are returned
// before any solve. Infeasibility and unboundedness are NOT errors:
// they are reported through Status, and the caller must inspect it.
// Result arrays are written unconditionally; when the solver produced
// no value for a variable the result entry is NaN.
func (eu *EndUser) Optimize() error {
	if err := eu.validate(); err != nil {
		return err
	}
	loss, ok := lossCoeffs[eu.Grid.LossF]
	if !ok {
		return &ObjectiveError{Name: eu.Grid.LossF}
	}

	h := eu.cfg.Horizon
	dt := eu.cfg.DeltaT
	flex := 0.0
	if eu.Flexibility {
		flex = 1
	}

	m := milp.NewModel("dispatch")

	// Consumers: delivered power and the cumulative deficit
	// accumulator. The recurrence is emitted for k >= 1 only; k = 0
	// anchors the accumulator at the first under-delivery.
	consumerPower := make([][]milp.Var, len(eu.Consumers))
	consumerDeficit := make([][]milp.Var, len(eu.Consumers))
	for i, c := range eu.Consumers {
		power := make([]milp.Var, h)
		deficit := make([]milp.Var, h)
		for k := 0; k < h; k++ {
			deficit[k] = m.Continuous(0, c.EnergyDeficitMax[k]*flex,
				fmt.Sprintf("energy_deficit_k[%d]%d", i, k))
			power[k] = m.Continuous(c.PowerMin, c.Available[k]*c.PowerMax,
				fmt.Sprintf("power_actual_k[%d]%d", i, k))
		}
		m.AddConstraint(fmt.Sprintf("energy_deficit[%d]0", i),
			[]milp.Term{{Var: deficit[0], Coeff: 1}, {Var: power[0], Coeff: dt}},
			milp.Equal, c.PowerDesired[0]*dt)
		for k := 1; k < h; k++ {
			m.AddConstraint(fmt.Sprintf("energy_deficit[%d]%d", i, k),
				[]milp.Term{
					{Var: deficit[k], Coeff: 1},
					{Var: deficit[k-1], Coeff: -1},
					{Var: power[k], Coeff: dt},
				},
				milp.Equal, c.PowerDesired[k]*dt)
		}
		consumerPower[i] = power
		consumerDeficit[i] = deficit
	}

	// Storages: energy state with connect/disconnect handling. On
	// unavailable steps the variable bounds collapse to zero and no
	// dynamics equation is emitted.
	storageEnergy := make([][]milp.Var, len(eu.Storages))
	storageCharge := make([][]milp.Var, len(eu.Storages))
	storageDischarge := make([][]milp.Var, len(eu.Storages))
	for i, s := range eu.Storages {
		s.computeEvents(h)
		energy := make([]milp.Var, h)
		charge := make([]milp.Var, h)
		discharge := make([]milp.Var, h)
		for k := 0; k < h; k++ {
			energy[k] = m.Continuous(
				s.Available[k]*s.EnergyCapacity*s.StateOfChargeMin,
				s.Available[k]*s.EnergyCapacity*s.StateOfChargeMax,
				fmt.Sprintf("storage_energy_k[%d]%d", i, k))
			charge[k] = m.Continuous(0, s.Available[k]*s.PowerChargeMax*flex,
				fmt.Sprintf("storage_power_charging_k[%d]%d", i, k))
			discharge[k] = m.Continuous(0, s.Available[k]*s.PowerDischargeMax*flex,
				fmt.Sprintf("storage_power_discharging_k[%d]%d", i, k))
		}
		for k := 0; k < h; k++ {
			if s.Available[k] != 1 {
				continue
			}
			flow := []milp.Term{
				{Var: energy[k], Coeff: -1},
				{Var: charge[k], Coeff: s.EfficiencyCharging * dt},
				{Var: discharge[k], Coeff: -dt / s.EfficiencyDischarging},
			}
			if s.EventConnect[k] {
				// Fresh connection (or start of window): restart from
				// the given initial state of charge.
				m.AddConstraint(fmt.Sprintf("energy_storage[%d]%d_initial", i, k),
					flow, milp.Equal, -s.EnergyCapacity*s.StateOfChargeInitial[k])
			} else {
				m.AddConstraint(fmt.Sprintf("energy_storage[%d]%d", i, k),
					append(flow, milp.Term{Var: energy[k-1], Coeff: 1}),
					milp.Equal, 0)
			}
			if s.EventDisconnect[k] || k == h-1 {
				m.AddConstraint(fmt.Sprintf("energy_storage[%d]%d_final", i, k),
					[]milp.Term{{Var: energy[k], Coeff: -1}},
					milp.Equal, -s.EnergyCapacity*s.StateOfChargeFinal[k])
			}
		}
		storageEnergy[i] = energy
		storageCharge[i] = charge
		storageDischarge[i] = discharge
	}

	// Producers: curtailment fraction per step.
	producerCurtail := make([][]milp.Var, len(eu.Producers))
	for i, p := range eu.Producers {
		curtail := make([]milp.Var, h)
		for k := 0; k < h; k++ {
			curtail[k] = m.Continuous(0, p.CurtailmentFactorMax,
				fmt.Sprintf("producer_curtailment_factor_k[%d]%d", i, k))
		}
		producerCurtail[i] = curtail
	}

	// Heat nodes.
	heatPower := make([][][]milp.Var, len(eu.HeatNodes))
	heatRunning := make([][][]milp.Var, len(eu.HeatNodes))
	heatStarting := make([][][]milp.Var, len(eu.HeatNodes))
	heatTemperature := make([][][]milp.Var, len(eu.HeatNodes))
	heatEnergyIn := make([][][]milp.Var, len(eu.HeatNodes))
	heatEnergyOut := make([][][]milp.Var, len(eu.HeatNodes))
	for i, hn := range eu.HeatNodes {
		heatPower[i] = make([][]milp.Var, len(hn.HeatProducers))
		heatRunning[i] = make([][]milp.Var, len(hn.HeatProducers))
		heatStarting[i] = make([][]milp.Var, len(hn.HeatProducers))
		for j, hp := range hn.HeatProducers {
			power := make([]milp.Var, h)
			running := make([]milp.Var, h)
			starting := make([]milp.Var, h)
			for k := 0; k < h; k++ {
				power[k] = m.Continuous(0, math.Inf(1),
					fmt.Sprintf("power_k-heatnode[%d]-producer[%d]%d", i, j, k))
				running[k] = m.Binary(
					fmt.Sprintf("running_k-heatnode[%d]-producer[%d]%d", i, j, k))
				starting[k] = m.Binary(
					fmt.Sprintf("starting_k-heatnode[%d]-producer[%d]%d", i, j, k))
			}

			// power <= (running + starting*loss) * power_max, and the
			// two lower bounds tying power to the indicators.
			for k := 0; k < h; k++ {
				m.AddConstraint(fmt.Sprintf("power_max-heatnode[%d]-producer[%d]%d", i, j, k),
					[]milp.Term{
						{Var: power[k], Coeff: -1},
						{Var: running[k], Coeff: hp.PowerMax},
						{Var: starting[k], Coeff: hp.PowerLossStartup * hp.PowerMax},
					},
					milp.GreaterEq, 0)
				m.AddConstraint(fmt.Sprintf("power_min-heatnode[%d]-producer[%d]%d", i, j, k),
					[]milp.Term{
						{Var: power[k], Coeff: -1},
						{Var: running[k], Coeff: hp.MinimumPowerFactor * hp.PowerMax},
					},
					milp.LessEq, 0)
				m.AddConstraint(fmt.Sprintf("power_start-heatnode[%d]-producer[%d]%d", i, j, k),
					[]milp.Term{
						{Var: power[k], Coeff: -1},
						{Var: starting[k], Coeff: hp.PowerLossStartup * hp.PowerMax},
					},
					milp.LessEq, 0)
			}

			// Startup logic: starting[k] = 1 iff the producer turns on
			// between k-1 and k (at k=0, iff it is running).
			m.AddConstraint(fmt.Sprintf("starting-heatnode[%d]-producer[%d]0", i, j),
				[]milp.Term{
					{Var: starting[0], Coeff: -1},
					{Var: running[0], Coeff: 1},
				},
				milp.Equal, 0)
			for k := 1; k < h; k++ {
				m.AddConstraint(fmt.Sprintf("starting1-heatnode[%d]-producer[%d]%d", i, j, k),
					[]milp.Term{
						{Var: starting[k], Coeff: -1},
						{Var: running[k], Coeff: 1},
					},
					milp.GreaterEq, 0)
				m.AddConstraint(fmt.Sprintf("starting2-heatnode[%d]-producer[%d]%d", i, j, k),
					[]milp.Term{
						{Var: starting[k], Coeff: 1},
						{Var: running[k-1], Coeff: 1},
					},
					milp.LessEq, 1)
				m.AddConstraint(fmt.Sprintf("starting3-heatnode[%d]-producer[%d]%d", i, j, k),
					[]milp.Term{
						{Var: starting[k], Coeff: -1},
						{Var: running[k], Coeff: 1},
						{Var: running[k-1], Coeff: -1},
					},
					milp.LessEq, 0)
			}
			heatPower[i][j] = power
			heatRunning[i][j] = running
			heatStarting[i][j] = starting
		}

		heatTemperature[i] = make([][]milp.Var, len(hn.HeatStorages))
		heatEnergyIn[i] = make([][]milp.Var, len(hn.HeatStorages))
		heatEnergyOut[i] = make([][]milp.Var, len(hn.HeatStorages))
		for j, hs := range hn.HeatStorages {
			temperature := make([]milp.Var, h)
			energyIn := make([]milp.Var, h)
			energyOut := make([]milp.Var, h)
			for k := 0; k < h; k++ {
				temperature[k] = m.Continuous(hs.TemperatureMin, hs.TemperatureMax,
					fmt.Sprintf("temperature_k-heatnode[%d]-storage[%d]%d", i, j, k))
				energyIn[k] = m.Free(
					fmt.Sprintf("energy_in_k-heatnode[%d]-storage[%d]%d", i, j, k))
				energyOut[k] = m.Free(
					fmt.Sprintf("energy_out_k-heatnode[%d]-storage[%d]%d", i, j, k))
			}

			m.AddConstraint(fmt.Sprintf("temperature_final-heatnode[%d]-storage[%d]", i, j),
				[]milp.Term{{Var: temperature[h-1], Coeff: -1}},
				milp.Equal, -hs.TemperatureFinal)

			// Temperature evolution. With flexibility off the thermal
			// capacitance drops out and the balance pins
			// energy_in - energy_out to the standing loss.
			capacitance := hs.Volume * flex * hs.Density * hs.SpecificHeat
			m.AddConstraint(fmt.Sprintf("heat_storage-heatnode[%d]-storage[%d]initial", i, j),
				[]milp.Term{
					{Var: temperature[0], Coeff: -capacitance - hs.LossFactor},
					{Var: energyIn[0], Coeff: 1},
					{Var: energyOut[0], Coeff: -1},
				},
				milp.Equal, -capacitance*hs.TemperatureInit)
			for k := 1; k < h; k++ {
				m.AddConstraint(fmt.Sprintf("heat_storage-heatnode[%d]-storage[%d]%d", i, j, k),
					[]milp.Term{
						{Var: temperature[k], Coeff: -capacitance - hs.LossFactor},
						{Var: temperature[k-1], Coeff: capacitance},
						{Var: energyIn[k], Coeff: 1},
						{Var: energyOut[k], Coeff: -1},
					},
					milp.Equal, 0)
			}
			heatTemperature[i][j] = temperature
			heatEnergyIn[i][j] = energyIn
			heatEnergyOut[i][j] = energyOut
		}

		// Node balance: heat entering the storages equals the heat the
		// producers deliver (startup power never reaches the heat
		// side), and heat leaving them covers the consumer demand.
		if len(hn.HeatStorages) > 0 {
			for k := 0; k < h; k++ {
				var terms []milp.Term
				for j := range hn.HeatStorages {
					terms = append(terms, milp.Term{Var: heatEnergyIn[i][j][k], Coeff: 1})
				}
				for j, hp := range hn.HeatProducers {
					terms = append(terms,
						milp.Term{Var: heatPower[i][j][k], Coeff: -hp.Efficiency * dt},
						milp.Term{Var: heatStarting[i][j][k],
							Coeff: hp.PowerLossStartup * hp.PowerMax * hp.Efficiency * dt})
				}
				m.AddConstraint(fmt.Sprintf("energy_in-heatnode[%d]%d", i, k),
					terms, milp.Equal, 0)
			}
		}
		for k := 0; k < h; k++ {
			var terms []milp.Term
			demand := 0.0
			for j := range hn.HeatStorages {
				terms = append(terms, milp.Term{Var: heatEnergyOut[i][j][k], Coeff: 1})
			}
			for _, hc := range hn.HeatConsumers {
				demand += hc.PowerActual[k] * dt
			}
			m.AddConstraint(fmt.Sprintf("energy_out-heatnode[%d]%d", i, k),
				terms, milp.Equal, demand)
		}
	}

	// Grid.
	gridImport := make([]milp.Var, h)
	gridExport := make([]milp.Var, h)
	exporting := make([]milp.Var, h)
	for k := 0; k < h; k++ {
		gridImport[k] = m.Continuous(0, eu.Grid.PowerImportMax[k],
			fmt.Sprintf("grid_import%d", k))
		gridExport[k] = m.Continuous(0, eu.Grid.PowerExportMax[k],
			fmt.Sprintf("grid_export%d", k))
		exporting[k] = m.Binary(fmt.Sprintf("exporting_to_grid_k%d", k))
	}

	// Electrical power balance: net import covers consumption, heat
	// production and storage throughput minus uncurtailed production.
	for k := 0; k < h; k++ {
		terms := []milp.Term{
			{Var: gridImport[k], Coeff: -1},
			{Var: gridExport[k], Coeff: 1},
		}
		for i := range eu.Consumers {
			terms = append(terms, milp.Term{Var: consumerPower[i][k], Coeff: 1})
		}
		for i, hn := range eu.HeatNodes {
			for j := range hn.HeatProducers {
				terms = append(terms, milp.Term{Var: heatPower[i][j][k], Coeff: 1})
			}
		}
		for i := range eu.Storages {
			terms = append(terms,
				milp.Term{Var: storageCharge[i][k], Coeff: 1},
				milp.Term{Var: storageDischarge[i][k], Coeff: -1})
		}
		rhs := 0.0
		for i, p := range eu.Producers {
			// -actual*(1-curtail) splits into a constant and a
			// curtailment term.
			terms = append(terms, milp.Term{Var: producerCurtail[i][k], Coeff: p.PowerActual[k]})
			rhs += p.PowerActual[k]
		}
		m.AddConstraint(fmt.Sprintf("power_balance%d", k), terms, milp.Equal, rhs)
	}

	// Import and export are mutually exclusive, switched by the
	// exporting indicator against the per-step caps.
	for k := 0; k < h; k++ {
		m.AddConstraint(fmt.Sprintf("export_indicator%d", k),
			[]milp.Term{
				{Var: gridExport[k], Coeff: -1},
				{Var: exporting[k], Coeff: eu.Grid.PowerExportMax[k]},
			},
			milp.GreaterEq, 0)
		m.AddConstraint(fmt.Sprintf("mutually_exclusive_import_export%d", k),
			[]milp.Term{
				{Var: gridImport[k], Coeff: 1},
				{Var: exporting[k], Coeff: eu.Grid.PowerImportMax[k]},
			},
			milp.LessEq, eu.Grid.PowerImportMax[k])
	}

	// Optionally forbid discharging storages into the grid.
	if !eu.Grid.DischargeToGrid {
		totalDischargeMax := 0.0
		for _, s := range eu.Storages {
			totalDischargeMax += s.PowerDischargeMax
		}
		for k := 0; k < h; k++ {
			terms := make([]milp.Term, 0, len(eu.Storages)+1)
			for i := range eu.Storages {
				terms = append(terms, milp.Term{Var: storageDischarge[i][k], Coeff: 1})
			}
			terms = append(terms, milp.Term{Var: exporting[k], Coeff: totalDischargeMax})
			m.AddConstraint(fmt.Sprintf("exclusive_export_discharge%d", k),
				terms, milp.LessEq, totalDischargeMax)
		}
	}

	// Objective from the loss registry.
	objective := make([]milp.Term, 0, 2*h)
	for k := 0; k < h; k++ {
		impCoeff, expCoeff := loss(eu.Grid, k)
		objective = append(objective,
			milp.Term{Var: gridImport[k], Coeff: impCoeff},
			milp.Term{Var: gridExport[k], Coeff: expCoeff})
	}
	m.Minimize(objective)

	sol, err := m.Solve()
	if err != nil {
		eu.Status = StatusNotSolved
		return fmt.Errorf("solving dispatch problem (%v): %w", err, ErrSolverFailure)
	}

	logger := eu.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	eu.Status = sol.Status
	logger.Printf("Status: %s", sol.Status)
	if math.IsNaN(sol.Objective) {
		logger.Printf("Cost function cannot be evaluated")
	} else {
		logger.Printf("Total value of the cost function = %.2f", sol.Objective)
	}

	// Readback, unconditionally: absent values come back as NaN.
	for i, c := range eu.Consumers {
		c.EnergyDeficit = sol.Values(consumerDeficit[i])
		c.PowerActual = sol.Values(consumerPower[i])
	}
	for i, s := range eu.Storages {
		s.Energy = sol.Values(storageEnergy[i])
		s.PowerCharging = sol.Values(storageCharge[i])
		s.PowerDischarging = sol.Values(storageDischarge[i])
	}
	for i, p := range eu.Producers {
		p.CurtailmentFactor = sol.Values(producerCurtail[i])
	}
	for i, hn := range eu.HeatNodes {
		for j, hp := range hn.HeatProducers {
			hp.Starting = sol.Values(heatStarting[i][j])
			hp.Running = sol.Values(heatRunning[i][j])
			hp.Power = sol.Values(heatPower[i][j])
		}
		for j, hs := range hn.HeatStorages {
			hs.Temperature = sol.Values(heatTemperature[i][j])
			hs.EnergyIn = sol.Values(heatEnergyIn[i][j])
			hs.EnergyOut = sol.Values(heatEnergyOut[i][j])
		}
	}
	eu.Grid.PowerImport = sol.Values(gridImport)
	eu.Grid.PowerExport = sol.Values(gridExport)
	eu.Grid.ExportingToGrid = sol.Values(exporting)

	eu.Loss = sol.Objective
	eu.IncludeResults = true
	return nil
}
