// Package main provides the end-user dispatch optimizer CLI: solve a
// serialized system description, optionally enriched with day-ahead
// tariffs, a synthesized PV profile and live plant values, and hand the
// result to the table printer, the chart renderer, the database or the
// web dashboard.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/devskill-org/enduseroptimizer/meter"
	"github.com/devskill-org/enduseroptimizer/optimizer"
	"github.com/devskill-org/enduseroptimizer/plot"
	"github.com/devskill-org/enduseroptimizer/server"
	"github.com/devskill-org/enduseroptimizer/solar"
	"github.com/devskill-org/enduseroptimizer/store"
	"github.com/devskill-org/enduseroptimizer/tariff"
)

func main() {
	var (
		configFile  = flag.String("config", "", "Configuration file path (JSON)")
		inputFile   = flag.String("input", "", "Serialized end-user document to optimize (JSON)")
		outputFile  = flag.String("output", "", "Write the solved document to this file")
		plotFile    = flag.String("plot", "", "Render the solved document to this HTML file")
		fetchPrices = flag.Bool("tariffs", false, "Fetch ENTSO-E day-ahead prices onto the grid tariffs")
		addPV       = flag.Bool("pv", false, "Add a PV producer synthesized from the configured site")
		readMeter   = flag.Bool("meter", false, "Seed storage state of charge from the plant meter")
		serve       = flag.Bool("serve", false, "Run the web server instead of a one-shot optimization")
		help        = flag.Bool("help", false, "Show help message")
	)
	flag.Parse()

	if *help {
		showHelp()
		return
	}

	config := DefaultAppConfig()
	if *configFile != "" {
		var err error
		if config, err = LoadAppConfig(*configFile); err != nil {
			fmt.Println("Error loading configuration:", err)
			os.Exit(1)
		}
	}

	logger := log.New(os.Stdout, "[OPTIMIZER] ", log.LstdFlags)

	if *serve {
		runServer(config, logger)
		return
	}

	if *inputFile == "" {
		fmt.Println("Error: -input is required (or use -serve)")
		flag.PrintDefaults()
		os.Exit(1)
	}

	eu, err := loadDocument(*inputFile)
	if err != nil {
		logger.Printf("Error loading input: %v", err)
		os.Exit(1)
	}
	eu.Logger = logger

	ctx := context.Background()
	if *fetchPrices {
		if err := applyDayAheadTariffs(ctx, config, eu); err != nil {
			logger.Printf("Error fetching tariffs: %v", err)
			os.Exit(1)
		}
	}
	if *addPV {
		site := solar.Site{
			Latitude:  config.Latitude,
			Longitude: config.Longitude,
			PeakPower: config.MaxSolarPower,
		}
		producer, err := site.NewProducer(eu.StartTime, eu.Config())
		if err != nil {
			logger.Printf("Error building PV profile: %v", err)
			os.Exit(1)
		}
		eu.Producers = append(eu.Producers, producer)
		logger.Printf("Added PV producer (%.1f kW peak)", config.MaxSolarPower)
	}
	if *readMeter {
		if err := seedFromMeter(config, eu, logger); err != nil {
			logger.Printf("Error reading plant meter: %v", err)
			os.Exit(1)
		}
	}

	if err := eu.Optimize(); err != nil {
		logger.Printf("Error during optimization: %v", err)
		os.Exit(1)
	}
	printDispatch(eu)

	if *outputFile != "" {
		if err := writeDocument(eu, *outputFile); err != nil {
			logger.Printf("Error writing output: %v", err)
			os.Exit(1)
		}
		logger.Printf("Solved document written to %s", *outputFile)
	}
	if *plotFile != "" {
		if err := plot.RenderFile(eu.ToDocument(), *plotFile); err != nil {
			logger.Printf("Error rendering charts: %v", err)
			os.Exit(1)
		}
		logger.Printf("Charts written to %s", *plotFile)
	}
	if config.PostgresConnString != "" {
		if err := persistPlan(ctx, config, eu, logger); err != nil {
			logger.Printf("Error persisting plan: %v", err)
			os.Exit(1)
		}
	}
}

func runServer(config *AppConfig, logger *log.Logger) {
	port := config.ListenPort
	if port == 0 {
		port = 8080
	}
	srv := server.New(port, logger)
	srv.Start()
	logger.Printf("Server started. Press Ctrl+C to stop...")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	logger.Printf("Shutdown signal received, stopping server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Stop(ctx); err != nil {
		logger.Printf("Error stopping server: %v", err)
	}
	logger.Printf("Server stopped successfully")
}

func loadDocument(path string) (*optimizer.EndUser, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}
	var doc optimizer.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode document JSON: %w", err)
	}
	return optimizer.LoadEndUser(doc)
}

func writeDocument(eu *optimizer.EndUser, path string) error {
	raw, err := json.MarshalIndent(eu.ToDocument(), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode document JSON: %w", err)
	}
	return os.WriteFile(path, raw, 0o644)
}

func applyDayAheadTariffs(ctx context.Context, config *AppConfig, eu *optimizer.EndUser) error {
	if config.SecurityToken == "" {
		return fmt.Errorf("security_token not configured")
	}
	client := tariff.NewClient(config.SecurityToken)
	if config.UrlFormat != "" {
		client.SetURLFormat(config.UrlFormat)
	}
	cfg := eu.Config()
	span := time.Duration(float64(cfg.Horizon) * cfg.DeltaT * float64(time.Hour))
	doc, err := client.DownloadHorizon(ctx, eu.StartTime, span)
	if err != nil {
		return err
	}
	fees := tariff.Fees{
		ImportOperator: config.ImportPriceOperatorFee,
		ImportDelivery: config.ImportPriceDeliveryFee,
		ExportOperator: config.ExportPriceOperatorFee,
	}
	return tariff.ApplyToGrid(eu.Grid, doc, eu.StartTime, cfg, fees)
}

// seedFromMeter overwrites the first-step state of charge of every
// storage with the measured battery SoC.
func seedFromMeter(config *AppConfig, eu *optimizer.EndUser, logger *log.Logger) error {
	if config.PlantModbusAddress == "" {
		return fmt.Errorf("plant_modbus_address not configured")
	}
	client, err := meter.Dial(config.PlantModbusAddress)
	if err != nil {
		return err
	}
	defer client.Close()

	snap, err := client.ReadSnapshot()
	if err != nil {
		return err
	}
	logger.Printf("Plant snapshot: PV %.2f kW, battery SoC %.1f%%, grid %.2f kW",
		snap.PhotovoltaicPower, snap.BatterySOC*100, snap.GridActivePower)
	for _, s := range eu.Storages {
		if len(s.StateOfChargeInitial) > 0 {
			s.StateOfChargeInitial[0] = snap.BatterySOC
		}
	}
	return nil
}

func persistPlan(ctx context.Context, config *AppConfig, eu *optimizer.EndUser, logger *log.Logger) error {
	st, err := store.Open(config.PostgresConnString, logger)
	if err != nil {
		return err
	}
	defer st.Close()
	if err := st.EnsureSchema(ctx); err != nil {
		return err
	}
	return st.SavePlan(ctx, eu)
}

func printDispatch(eu *optimizer.EndUser) {
	fmt.Println("\n========================================")
	fmt.Println("DISPATCH RESULTS")
	fmt.Println("========================================")
	fmt.Printf("Status: %s\n", eu.Status)
	fmt.Printf("Loss:   %.4f\n\n", eu.Loss)

	fmt.Println("┌──────┬──────────────────┬────────────┬────────────┬───────────┬───────────┬────────────┐")
	fmt.Println("│ Step │    Timestamp     │ Grid Imprt │ Grid Exprt │ Stor Chrg │ Stor Dsch │ Cons Power │")
	fmt.Println("│      │                  │    (kW)    │    (kW)    │    (kW)   │    (kW)   │    (kW)    │")
	fmt.Println("├──────┼──────────────────┼────────────┼────────────┼───────────┼───────────┼────────────┤")

	timestamps := eu.Timestamps()
	for k := 0; k < eu.Config().Horizon; k++ {
		var charge, discharge, consumption float64
		for _, s := range eu.Storages {
			if k < len(s.PowerCharging) {
				charge += s.PowerCharging[k]
				discharge += s.PowerDischarging[k]
			}
		}
		for _, c := range eu.Consumers {
			if k < len(c.PowerActual) {
				consumption += c.PowerActual[k]
			}
		}
		fmt.Printf("│ %4d │ %16s │   %6.2f   │   %6.2f   │   %6.2f  │   %6.2f  │   %6.2f   │\n",
			k,
			timestamps[k].Format("2006-01-02 15:04"),
			eu.Grid.PowerImport[k],
			eu.Grid.PowerExport[k],
			charge,
			discharge,
			consumption,
		)
	}
	fmt.Println("└──────┴──────────────────┴────────────┴────────────┴───────────┴───────────┴────────────┘")
}

func showHelp() {
	fmt.Println("End-User Dispatch Optimizer - minimize grid cost or supply over a rolling horizon")
	fmt.Println()
	fmt.Println("DESCRIPTION:")
	fmt.Println("  Solves the dispatch of a closed energy system (grid connection, producers,")
	fmt.Println("  storages, deferrable consumers and heat sub-networks) as a mixed-integer")
	fmt.Println("  linear program and writes the per-step plan back onto the system description.")
	fmt.Println()
	fmt.Println("USAGE:")
	fmt.Println("  enduseroptimizer [OPTIONS]")
	fmt.Println()
	fmt.Println("OPTIONS:")
	flag.PrintDefaults()
	fmt.Println()
	fmt.Println("EXAMPLES:")
	fmt.Println("  # Solve a serialized system and print the dispatch table")
	fmt.Println("  enduseroptimizer -input system.json")
	fmt.Println()
	fmt.Println("  # Solve with fresh day-ahead prices and render charts")
	fmt.Println("  enduseroptimizer -config config.json -input system.json -tariffs -plot out.html")
	fmt.Println()
	fmt.Println("  # Run the optimization web server")
	fmt.Println("  enduseroptimizer -config config.json -serve")
}
