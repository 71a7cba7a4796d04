package collector

import (
	"testing"
	"time"

	"netmon/internal/config"
)

func TestDefaultProbeConfig(t *testing.T) {
	cfg := DefaultProbeConfig()

	if cfg.Timeout != 10*time.Second {
		t.Errorf("Expected Timeout 10s, got %v", cfg.Timeout)
	}
	if cfg.Location != "Unknown Location" {
		t.Errorf("Expected Location 'Unknown Location', got '%s'", cfg.Location)
	}
	if cfg.ReachEndpoint != "8.8.8.8:53" {
		t.Errorf("Expected ReachEndpoint '8.8.8.8:53', got '%s'", cfg.ReachEndpoint)
	}
	if cfg.IncludeLoopback {
		t.Error("Expected IncludeLoopback to be false by default")
	}
}

func TestFromConfig(t *testing.T) {
	got := FromConfig(config.ProbeConfig{
		Timeout:  5 * time.Second,
		HostID:   "10084",
		DeviceID: "netmon-host",
	})

	if got.Timeout != 5*time.Second {
		t.Errorf("Expected Timeout 5s, got %v", got.Timeout)
	}
	if got.HostID != "10084" || got.DeviceID != "netmon-host" {
		t.Errorf("identity not copied: %+v", got)
	}
	// empty location keeps the default
	if got.Location != "Unknown Location" {
		t.Errorf("Expected default location, got '%s'", got.Location)
	}
}

func TestProbeConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     ProbeConfig
		wantErr bool
	}{
		{"valid default config", DefaultProbeConfig(), false},
		{"zero timeout", DefaultProbeConfig().WithTimeout(0), true},
		{"empty location", DefaultProbeConfig().WithIdentity("h", "d", ""), true},
		{"reach without timeout", DefaultProbeConfig().WithReach("1.1.1.1:53", 0), true},
		{"reach disabled", DefaultProbeConfig().WithReach("", 0), false},
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

func TestProbeConfig_WithMethods(t *testing.T) {
	cfg := DefaultProbeConfig()

	newCfg := cfg.WithTimeout(2 * time.Second)
	if newCfg.Timeout != 2*time.Second {
		t.Errorf("WithTimeout failed, got %v", newCfg.Timeout)
	}
	if cfg.Timeout != 10*time.Second {
		t.Error("WithTimeout mutated original config")
	}

	newCfg = cfg.WithIdentity("h1", "core-sw-01", "HQ")
	if newCfg.HostID != "h1" || newCfg.DeviceID != "core-sw-01" || newCfg.Location != "HQ" {
		t.Errorf("WithIdentity failed, got %+v", newCfg)
	}

	newCfg = cfg.WithLoopback(true)
	if !newCfg.IncludeLoopback {
		t.Error("WithLoopback(true) failed")
	}
}

func TestConfigError(t *testing.T) {
	err := &ConfigError{
		Field:   "TestField",
		Message: "test message",
	}

	expected := "config error: TestField test message"
	if err.Error() != expected {
		t.Errorf("Expected error '%s', got '%s'", expected, err.Error())
	}
}
