package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// AppConfig carries the operational settings around the optimizer core:
// where to listen, where to persist, and how to fetch live inputs.
type AppConfig struct {
	// Horizon settings.
	Horizon int     `json:"horizon"` // number of steps
	DeltaT  float64 `json:"delta_t"` // step length in hours

	// Web server.
	ListenPort int `json:"listen_port"` // used with -serve; 0 = port 8080

	// Persistence.
	PostgresConnString string `json:"postgres_conn_string"` // empty = disabled

	// Day-ahead tariff ingestion (ENTSO-E).
	SecurityToken          string  `json:"security_token"`
	UrlFormat              string  `json:"url_format"`
	ImportPriceOperatorFee float64 `json:"import_price_operator_fee"` // EUR/MWh
	ImportPriceDeliveryFee float64 `json:"import_price_delivery_fee"` // EUR/MWh
	ExportPriceOperatorFee float64 `json:"export_price_operator_fee"` // EUR/MWh

	// PV site for synthesized producer profiles.
	Latitude      float64 `json:"latitude"`
	Longitude     float64 `json:"longitude"`
	MaxSolarPower float64 `json:"max_solar_power"` // kW peak

	// Live plant readout.
	PlantModbusAddress string `json:"plant_modbus_address"` // IP:PORT, empty = disabled
}

// DefaultAppConfig returns a configuration with default values.
func DefaultAppConfig() *AppConfig {
	return &AppConfig{
		Horizon:                96,
		DeltaT:                 0.25,
		ListenPort:             0,
		ImportPriceOperatorFee: 8.5,
		ImportPriceDeliveryFee: 40.0,
		ExportPriceOperatorFee: 17.0,
		Latitude:               56.9496, // Riga, Latvia
		Longitude:              24.1052, // Riga, Latvia
		MaxSolarPower:          30.0,
	}
}

// LoadAppConfig loads the configuration from a JSON file.
func LoadAppConfig(filename string) (*AppConfig, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()
	return LoadAppConfigFromReader(file)
}

// LoadAppConfigFromReader loads the configuration from an io.Reader.
func LoadAppConfigFromReader(reader io.Reader) (*AppConfig, error) {
	config := DefaultAppConfig()
	if err := json.NewDecoder(reader).Decode(config); err != nil {
		return nil, fmt.Errorf("failed to decode config JSON: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return config, nil
}

// Validate checks the configuration values.
func (c *AppConfig) Validate() error {
	if c.Horizon <= 0 {
		return fmt.Errorf("horizon must be greater than 0, got: %d", c.Horizon)
	}
	if c.DeltaT <= 0 {
		return fmt.Errorf("delta_t must be greater than 0, got: %g", c.DeltaT)
	}
	if c.ListenPort < 0 || c.ListenPort > 65535 {
		return fmt.Errorf("listen_port must be between 0 and 65535, got: %d", c.ListenPort)
	}
	if c.Latitude < -90 || c.Latitude > 90 {
		return fmt.Errorf("latitude must be between -90 and 90, got: %f", c.Latitude)
	}
	if c.Longitude < -180 || c.Longitude > 180 {
		return fmt.Errorf("longitude must be between -180 and 180, got: %f", c.Longitude)
	}
	if c.MaxSolarPower < 0 {
		return fmt.Errorf("max_solar_power must be non-negative, got: %f", c.MaxSolarPower)
	}
	if c.ImportPriceOperatorFee < 0 || c.ImportPriceDeliveryFee < 0 || c.ExportPriceOperatorFee < 0 {
		return fmt.Errorf("price fees must be non-negative")
	}
	return nil
}
