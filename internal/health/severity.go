package health

import "strings"

// ImpactLevel maps an alert severity to a business impact label.
func ImpactLevel(severity string) string {
	switch strings.ToLower(severity) {
	case "critical", "error", "high":
		return "High"
	case "medium", "warning", "warn":
		return "Medium"
	case "low", "info":
		return "Low"
	default:
		return "Medium"
	}
}

// TimeToFix estimates resolution time for an alert severity.
func TimeToFix(severity string) string {
	switch strings.ToLower(severity) {
	case "critical":
		return "Immediate (0-30 minutes)"
	case "error", "high":
		return "1-2 hours"
	case "medium", "warning", "warn":
		return "2-4 hours"
	case "low", "info":
		return "4-24 hours"
	default:
		return "1-4 hours"
	}
}

// Bucket collapses a severity into the location listing buckets.
func Bucket(severity string) string {
	switch strings.ToLower(severity) {
	case "critical":
		return "critical"
	case "warning":
		return "warning"
	default:
		return "healthy"
	}
}
