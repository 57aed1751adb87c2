package sentinel

// Action is what the hosting collaborator should do when an alert fires.
type Action string

const (
	ActionWarn  Action = "warn"
	ActionPause Action = "pause"
)

// Severity grades an alert.
type Severity string

const (
	SeverityWarn     Severity = "warn"
	SeverityCritical Severity = "critical"
)

// LoopConfig tunes the tool-call loop detector.
type LoopConfig struct {
	// WindowSize is how many recent tool calls to inspect.
	WindowSize int `yaml:"windowSize"`

	// RepeatThreshold fires when any (tool, params-hash) group reaches
	// this count within the window.
	RepeatThreshold int `yaml:"repeatThreshold"`

	Action Action `yaml:"action"`
}

// ContextSpikeConfig tunes the context growth detector. Both conditions
// must hold for a firing.
type ContextSpikeConfig struct {
	// GrowthPercent is the minimum relative growth, e.g. 150 for +150%.
	GrowthPercent float64 `yaml:"growthPercent"`

	// AbsoluteMin is the minimum absolute token delta, e.g. 50000.
	AbsoluteMin int64 `yaml:"absoluteMin"`

	Action Action `yaml:"action"`
}

// CostVelocityConfig tunes the cost-rate spike detector.
type CostVelocityConfig struct {
	// WindowMinutes is the short window ending at the record's timestamp.
	WindowMinutes int `yaml:"windowMinutes"`

	// Multiplier fires when the short-window rate reaches this multiple
	// of the 24-hour baseline rate.
	Multiplier float64 `yaml:"multiplier"`

	Action Action `yaml:"action"`
}

// HeartbeatDriftConfig tunes the scheduled-job cost drift detector.
type HeartbeatDriftConfig struct {
	// LookbackRuns is how many historical runs to compare against.
	LookbackRuns int `yaml:"lookbackRuns"`

	// DriftPercent fires when the latest run costs this percentage more
	// than the mean of the older runs, e.g. 50 for 1.5×.
	DriftPercent float64 `yaml:"driftPercent"`

	Action Action `yaml:"action"`
}

// Config enables and tunes the detectors. A nil section disables that
// detector entirely.
type Config struct {
	LoopDetection  *LoopConfig           `yaml:"loopDetection"`
	ContextSpike   *ContextSpikeConfig   `yaml:"contextSpike"`
	CostVelocity   *CostVelocityConfig   `yaml:"costVelocity"`
	HeartbeatDrift *HeartbeatDriftConfig `yaml:"heartbeatDrift"`

	// AlertChannel is the delivery channel handed to the Notifier;
	// empty falls back to log delivery.
	AlertChannel string `yaml:"alertChannel"`
}

// Alert is one fired detection. Alerts are transient: the engine never
// persists them, delivery is the collaborator's job.
type Alert struct {
	// ID is a unique identifier for downstream correlation.
	ID string

	// Detector names the check that fired.
	Detector string

	Severity   Severity
	SessionKey string
	Message    string
	Action     Action

	// Data carries detector-specific structured fields.
	Data map[string]any
}
