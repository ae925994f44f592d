package main

import (
	"strings"
	"testing"
)

func TestLoadAppConfigFromReader(t *testing.T) {
	json := `{
		"horizon": 48,
		"delta_t": 0.5,
		"listen_port": 9090,
		"import_price_operator_fee": 10.0
	}`
	config, err := LoadAppConfigFromReader(strings.NewReader(json))
	if err != nil {
		t.Fatalf("LoadAppConfigFromReader() error: %v", err)
	}
	if config.Horizon != 48 {
		t.Errorf("Horizon = %d, want 48", config.Horizon)
	}
	if config.DeltaT != 0.5 {
		t.Errorf("DeltaT = %g, want 0.5", config.DeltaT)
	}
	if config.ListenPort != 9090 {
		t.Errorf("ListenPort = %d, want 9090", config.ListenPort)
	}
	if config.ImportPriceOperatorFee != 10.0 {
		t.Errorf("ImportPriceOperatorFee = %g, want 10", config.ImportPriceOperatorFee)
	}
	// Unset fields keep their defaults.
	if config.ImportPriceDeliveryFee != 40.0 {
		t.Errorf("ImportPriceDeliveryFee = %g, want default 40", config.ImportPriceDeliveryFee)
	}
}

func TestAppConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *AppConfig)
		wantErr bool
	}{
		{"defaults", func(c *AppConfig) {}, false},
		{"zero horizon", func(c *AppConfig) { c.Horizon = 0 }, true},
		{"negative delta_t", func(c *AppConfig) { c.DeltaT = -1 }, true},
		{"port out of range", func(c *AppConfig) { c.ListenPort = 70000 }, true},
		{"bad latitude", func(c *AppConfig) { c.Latitude = 100 }, true},
		{"negative fee", func(c *AppConfig) { c.ExportPriceOperatorFee = -1 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultAppConfig()
			tt.mutate(config)
			err := config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadAppConfigRejectsInvalid(t *testing.T) {
	if _, err := LoadAppConfigFromReader(strings.NewReader(`{"horizon": -1}`)); err == nil {
		t.Fatal("LoadAppConfigFromReader() with invalid horizon succeeded, want error")
	}
}
