// Package health reduces office, city and device status counts into a 0-100
// score with a four-level classification, and flags probe observations.
package health

import "math"

type Status string

const (
	StatusExcellent Status = "excellent"
	StatusGood      Status = "good"
	StatusWarning   Status = "warning"
	StatusCritical  Status = "critical"
)

// Counts are the status buckets fed to the classifier. For cities the
// buckets count offices; for offices they count devices.
type Counts struct {
	Total    int `json:"total"`
	Healthy  int `json:"healthy"`
	Degraded int `json:"degraded"`
	Down     int `json:"down"`
}

// Score is the classifier output.
type Score struct {
	Score  int    `json:"healthScore"`
	Status Status `json:"status"`
	Counts Counts `json:"counts"`
}

// Classifier applies the score ladder with configurable cutoffs.
type Classifier struct {
	cfg Config
}

func NewClassifier(cfg Config) *Classifier {
	return &Classifier{cfg: cfg}
}

var defaultClassifier = NewClassifier(DefaultConfig())

// Classify uses the default 90/75 cutoffs.
func Classify(c Counts) Score {
	return defaultClassifier.Classify(c)
}

// Classify computes round(healthy/total*100) and walks the ladder in fixed
// order; the first matching rule wins. Zero total yields critical/0.
func (cl *Classifier) Classify(c Counts) Score {
	score := 0
	if c.Total > 0 {
		score = int(math.Round(float64(c.Healthy) / float64(c.Total) * 100))
	}
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	var st Status
	switch {
	case score >= cl.cfg.ExcellentScore && c.Down == 0:
		st = StatusExcellent
	case score >= cl.cfg.GoodScore:
		st = StatusGood
	case c.Degraded > 0:
		st = StatusWarning
	default:
		// down offices, or nothing to score
		st = StatusCritical
	}

	return Score{Score: score, Status: st, Counts: c}
}

// ClassifyScore walks the plain 90/75/50 ladder on the score alone. Countries
// are rated this way.
func (cl *Classifier) ClassifyScore(c Counts) Score {
	sc := cl.Classify(c)
	switch {
	case sc.Score >= cl.cfg.ExcellentScore:
		sc.Status = StatusExcellent
	case sc.Score >= cl.cfg.GoodScore:
		sc.Status = StatusGood
	case sc.Score >= cl.cfg.WarningScore:
		sc.Status = StatusWarning
	default:
		sc.Status = StatusCritical
	}
	return sc
}

// ClassifyDevices rates an office from its devices. A device that is down or
// carries a critical alert keeps the office out of excellent and good. When
// no device reported yet but assigned > 0 the office counts as fully healthy.
func (cl *Classifier) ClassifyDevices(devices []DeviceState, assigned int) Score {
	if len(devices) == 0 && assigned > 0 {
		return Score{
			Score:  100,
			Status: StatusExcellent,
			Counts: Counts{Total: assigned, Healthy: assigned},
		}
	}

	sc := cl.Classify(DeviceCounts(devices))
	var down, critical int
	for _, d := range devices {
		if isDownStatus(d.Status) {
			down++
		}
		if isCriticalSeverity(d.Severity) {
			critical++
		}
	}

	switch {
	case sc.Score >= cl.cfg.ExcellentScore && critical == 0 && down == 0:
		sc.Status = StatusExcellent
	case sc.Score >= cl.cfg.GoodScore && critical == 0:
		sc.Status = StatusGood
	case sc.Score >= cl.cfg.WarningScore:
		sc.Status = StatusWarning
	default:
		sc.Status = StatusCritical
	}
	return sc
}
