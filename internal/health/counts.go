package health

import (
	"strings"

	"netmon/internal/model"
)

// CityCounts buckets a city's offices. Offices must carry a live DeviceCount.
func CityCounts(offices []model.Office) Counts {
	c := Counts{Total: len(offices)}
	for _, o := range offices {
		switch {
		case !o.Active():
			c.Down++
		case o.DeviceCount > 0:
			c.Healthy++
		default:
			c.Degraded++
		}
	}
	return c
}

// CitySummary is the per-city input to CountryCounts.
type CitySummary struct {
	City    string `json:"city"`
	Offices int    `json:"offices"`
	Devices int    `json:"devices"`
}

// CountryCounts buckets a country's cities: a city with offices and devices
// is healthy, offices without devices is degraded, no offices is down.
func CountryCounts(cities []CitySummary) Counts {
	c := Counts{Total: len(cities)}
	for _, city := range cities {
		switch {
		case city.Offices == 0:
			c.Down++
		case city.Devices > 0:
			c.Healthy++
		default:
			c.Degraded++
		}
	}
	return c
}

// DeviceState is the per-device input to DeviceCounts.
type DeviceState struct {
	Status   string `json:"status"`
	Severity string `json:"severity"`
}

// DeviceCounts buckets an office's devices by their latest status and alert
// severity.
func DeviceCounts(devices []DeviceState) Counts {
	c := Counts{Total: len(devices)}
	for _, d := range devices {
		switch deviceBucket(d) {
		case bucketHealthy:
			c.Healthy++
		case bucketDown:
			c.Down++
		default:
			c.Degraded++
		}
	}
	return c
}

type bucket int

const (
	bucketHealthy bucket = iota
	bucketDegraded
	bucketDown
)

func deviceBucket(d DeviceState) bucket {
	if isDownStatus(d.Status) || isCriticalSeverity(d.Severity) {
		return bucketDown
	}
	status := strings.ToLower(d.Status)
	sev := strings.ToLower(d.Severity)
	healthyStatus := status == "up" || status == "operational"
	healthySeverity := sev == "" || sev == "info" || sev == "healthy"
	if healthyStatus && healthySeverity {
		return bucketHealthy
	}
	return bucketDegraded
}

func isDownStatus(status string) bool {
	s := strings.ToLower(status)
	return s == "down" || s == "offline"
}

func isCriticalSeverity(severity string) bool {
	s := strings.ToLower(severity)
	return s == "critical" || s == "error"
}
