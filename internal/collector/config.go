package collector

import (
	"time"

	"netmon/internal/config"
)

// ProbeConfig controls what the host probe reads and how it labels the
// observations it produces. Use DefaultProbeConfig() and override as needed.
type ProbeConfig struct {
	Timeout time.Duration // per-sample collection timeout (default: 10s)

	// Identity stamped on every observation.
	HostID     string
	DeviceID   string // defaults to the hostname when empty
	Location   string
	DeviceType string

	// Reachability check; disabled when the endpoint is empty.
	ReachEndpoint string
	ReachTimeout  time.Duration

	IncludeLoopback bool // report the loopback interface too (default: false)
}

func DefaultProbeConfig() ProbeConfig {
	return ProbeConfig{
		Timeout:       10 * time.Second,
		Location:      "Unknown Location",
		DeviceType:    "server",
		ReachEndpoint: "8.8.8.8:53",
		ReachTimeout:  3 * time.Second,
	}
}

// FromConfig overlays the probe section of the service configuration on the
// defaults.
func FromConfig(c config.ProbeConfig) ProbeConfig {
	p := DefaultProbeConfig()
	if c.Timeout > 0 {
		p.Timeout = c.Timeout
	}
	p.HostID = c.HostID
	p.DeviceID = c.DeviceID
	if c.Location != "" {
		p.Location = c.Location
	}
	return p
}

func (c ProbeConfig) WithTimeout(d time.Duration) ProbeConfig {
	c.Timeout = d
	return c
}

func (c ProbeConfig) WithIdentity(hostID, deviceID, location string) ProbeConfig {
	c.HostID = hostID
	c.DeviceID = deviceID
	c.Location = location
	return c
}

// WithReach returns a copy with the reachability endpoint replaced. An empty
// endpoint turns the check off.
func (c ProbeConfig) WithReach(endpoint string, timeout time.Duration) ProbeConfig {
	c.ReachEndpoint = endpoint
	c.ReachTimeout = timeout
	return c
}

func (c ProbeConfig) WithLoopback(enabled bool) ProbeConfig {
	c.IncludeLoopback = enabled
	return c
}

func (c ProbeConfig) Validate() error {
	if c.Timeout <= 0 {
		return &ConfigError{Field: "Timeout", Message: "must be positive"}
	}
	if c.Location == "" {
		return &ConfigError{Field: "Location", Message: "must not be empty"}
	}
	if c.ReachEndpoint != "" && c.ReachTimeout <= 0 {
		return &ConfigError{Field: "ReachTimeout", Message: "must be positive when ReachEndpoint is set"}
	}
	return nil
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error: " + e.Field + " " + e.Message
}
