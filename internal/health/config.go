package health

// Thresholds defines warning and critical levels for metrics
type Thresholds struct {
	Warning  float64
	Critical float64
}

type Config struct {
	// Score cutoffs for the classification ladder.
	ExcellentScore int
	GoodScore      int
	WarningScore   int

	// Probe thresholds used by the Flagger.
	CPU    Thresholds
	Memory Thresholds
	Disk   Thresholds
}

func DefaultConfig() Config {
	return Config{
		ExcellentScore: 90,
		GoodScore:      75,
		WarningScore:   50,
		CPU:            Thresholds{Warning: 70.0, Critical: 90.0},
		Memory:         Thresholds{Warning: 70.0, Critical: 90.0},
		Disk:           Thresholds{Warning: 80.0, Critical: 90.0},
	}
}
