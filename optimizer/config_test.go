package optimizer

import "testing"

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Horizon != 96 {
		t.Errorf("Horizon = %d, want 96", cfg.Horizon)
	}
	if cfg.DeltaT != 0.25 {
		t.Errorf("DeltaT = %g, want 0.25", cfg.DeltaT)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error: %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"valid", Config{Horizon: 24, DeltaT: 1}, false},
		{"zero horizon", Config{Horizon: 0, DeltaT: 1}, true},
		{"negative horizon", Config{Horizon: -1, DeltaT: 1}, true},
		{"zero delta_t", Config{Horizon: 24, DeltaT: 0}, true},
		{"negative delta_t", Config{Horizon: 24, DeltaT: -0.25}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestAssetDefaultsFollowHorizon(t *testing.T) {
	cfg := &Config{Horizon: 7, DeltaT: 0.25}
	if got := len(NewGrid(cfg).PowerImportMax); got != 7 {
		t.Errorf("grid array length = %d, want 7", got)
	}
	if got := len(NewProducer(cfg).PowerActual); got != 7 {
		t.Errorf("producer array length = %d, want 7", got)
	}
	if got := len(NewStorage(cfg).Available); got != 7 {
		t.Errorf("storage array length = %d, want 7", got)
	}
	if got := len(NewConsumer(cfg).PowerDesired); got != 7 {
		t.Errorf("consumer array length = %d, want 7", got)
	}
	if got := len(NewHeatConsumer(cfg).PowerActual); got != 7 {
		t.Errorf("heat consumer array length = %d, want 7", got)
	}
}
