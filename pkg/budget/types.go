package budget

// Action controls whether collaborators enforce blocking on exceeded
// budgets or only warn.
type Action string

const (
	ActionWarn  Action = "warn"
	ActionBlock Action = "block"
)

// Level is the severity classification of current spend. Levels are
// ordered: Ok < Warning < Throttle < Exceeded.
type Level int

const (
	// LevelOk means no configured period has crossed a threshold.
	LevelOk Level = iota

	// LevelWarning means spend crossed the warn threshold.
	LevelWarning

	// LevelThrottle means spend crossed the throttle threshold; the
	// result names a cheaper fallback model.
	LevelThrottle

	// LevelExceeded means spend reached or passed the limit.
	LevelExceeded
)

// String returns the level's wire label.
func (l Level) String() string {
	switch l {
	case LevelWarning:
		return "warning"
	case LevelThrottle:
		return "throttle"
	case LevelExceeded:
		return "exceeded"
	default:
		return "ok"
	}
}

// Period labels the budget window that triggered a result.
type Period string

const (
	PeriodDaily   Period = "daily"
	PeriodWeekly  Period = "weekly"
	PeriodMonthly Period = "monthly"
)

// ScopeOverride is a partial per-scope override of the three limits.
// Nil fields inherit the global value.
type ScopeOverride struct {
	DailyLimitUSD   *float64 `yaml:"dailyLimitUsd"`
	WeeklyLimitUSD  *float64 `yaml:"weeklyLimitUsd"`
	MonthlyLimitUSD *float64 `yaml:"monthlyLimitUsd"`
}

// Config holds budget limits and thresholds. Nil limits are unconfigured
// and never evaluated.
type Config struct {
	DailyLimitUSD   *float64 `yaml:"dailyLimitUsd"`
	WeeklyLimitUSD  *float64 `yaml:"weeklyLimitUsd"`
	MonthlyLimitUSD *float64 `yaml:"monthlyLimitUsd"`

	// WarnThreshold is the warning fraction of the limit (0-1).
	// Zero means the default of 0.8.
	WarnThreshold float64 `yaml:"warnThreshold"`

	// ThrottleThreshold, when set together with ThrottleFallbackModel,
	// enables the throttle level. It must exceed WarnThreshold to be
	// meaningful.
	ThrottleThreshold     float64 `yaml:"throttleThreshold"`
	ThrottleFallbackModel string  `yaml:"throttleFallbackModel"`

	// Action controls collaborator enforcement on exceeded budgets.
	Action Action `yaml:"action"`

	// Scopes maps scope keys ("cron:<jobId>", "cron:*", "agent:<id>",
	// "agent:*") to partial limit overrides.
	Scopes map[string]ScopeOverride `yaml:"scopes"`
}

// DefaultWarnThreshold applies when Config.WarnThreshold is zero.
const DefaultWarnThreshold = 0.8

// warnThreshold returns the effective warn fraction.
func (c *Config) warnThreshold() float64 {
	if c.WarnThreshold > 0 {
		return c.WarnThreshold
	}
	return DefaultWarnThreshold
}

// Result is the outcome of a budget check. For LevelOk all numeric fields
// are zero and Message is empty.
type Result struct {
	Level        Level
	Period       Period
	CurrentSpend float64
	Limit        float64
	Percent      float64

	// FallbackModel is set only for LevelThrottle.
	FallbackModel string

	Message string
}
