// Package severity maps signed day variances onto the traffic-light bands
// the tables render, and computes schedule progress percentages. Two band
// tables exist: point events (was a single date hit on schedule) and stage
// ranges (how late is a stage's end). They use different thresholds and must
// not be swapped between record kinds.
package severity

import (
	"math"
	"time"

	"gantry/api/internal/datemath"
)

type Level string

const (
	LevelUnknown            Level = "unknown"
	LevelNormal             Level = "normal"
	LevelWarning            Level = "warning"
	LevelEscalateSite       Level = "escalate-to-site"
	LevelEscalateManagement Level = "escalate-to-management"
	LevelYellow             Level = "yellow"
	LevelOrange             Level = "orange"
	LevelCritical           Level = "critical"
)

// Class is a classified variance: the band identifier plus the localized
// label exports and the UI show.
type Class struct {
	Level Level  `json:"level"`
	Label string `json:"label"`
}

type band struct {
	min   int // inclusive lower bound on variance
	max   int // inclusive upper bound
	level Level
	label string
}

// Table is an ordered set of variance bands. Bands cover the integers
// exhaustively; classification is total over present variances.
type Table struct {
	name    string
	unknown Class
	bands   []band
}

const (
	unbounded = math.MaxInt
	openBelow = math.MinInt
)

// PointEvent classifies a single milestone date (procurement request
// submissions). Boundary rows: -7 is still a warning, -8 escalates to the
// site, -30 is the last site-level value, -31 reaches management.
var PointEvent = Table{
	name:    "point-event",
	unknown: Class{Level: LevelUnknown, Label: "無資料"},
	bands: []band{
		{min: 0, max: unbounded, level: LevelNormal, label: "正常"},
		{min: -7, max: -1, level: LevelWarning, label: "警示 (黃燈)"},
		{min: -30, max: -8, level: LevelEscalateSite, label: "延誤需通知 (橘燈)"},
		{min: openBelow, max: -31, level: LevelEscalateManagement, label: "嚴重延誤 (紅燈)"},
	},
}

// StageRange classifies a stage's scheduled-end versus actual-end variance
// (operations control table). Thresholds differ from PointEvent: yellow runs
// to -10, orange to -29, -30 and beyond is critical.
var StageRange = Table{
	name:    "stage-range",
	unknown: Class{Level: LevelUnknown, Label: "無資料"},
	bands: []band{
		{min: 0, max: unbounded, level: LevelNormal, label: "正常"},
		{min: -10, max: -1, level: LevelYellow, label: "輕微落後 (黃)"},
		{min: -29, max: -11, level: LevelOrange, label: "警示落後 (橘)"},
		{min: openBelow, max: -30, level: LevelCritical, label: "嚴重落後 (紅)"},
	},
}

// Classify maps a variance to its band. ok=false (no variance computable)
// yields the table's unknown class.
func (t Table) Classify(variance int, ok bool) Class {
	if !ok {
		return t.unknown
	}
	for _, b := range t.bands {
		if variance >= b.min && variance <= b.max {
			return Class{Level: b.level, Label: b.label}
		}
	}
	return t.unknown
}

// Name identifies the table in logs and documentation.
func (t Table) Name() string { return t.name }

// RangeProgress computes percent-complete for one in-progress stage window.
// The target end is the actual end when present, else the scheduled end.
// A window with no start, a future start, or no usable target is 0%; a
// degenerate zero-or-negative-length window counts as done.
func RangeProgress(actualStart, actualEnd, scheduledEnd string, today time.Time) int {
	start, ok := datemath.ParseDate(actualStart)
	if !ok {
		return 0
	}
	day := midnight(today)
	if day.Before(start) {
		return 0
	}

	target, ok := datemath.ParseDate(actualEnd)
	if !ok {
		target, ok = datemath.ParseDate(scheduledEnd)
		if !ok {
			return 0
		}
	}

	total := target.Sub(start)
	if total <= 0 {
		return 100
	}
	elapsed := day.Sub(start)
	pct := int(math.Round(float64(elapsed) / float64(total) * 100))
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	return pct
}

// StageWindow is the slice of an operation record project progress needs.
type StageWindow struct {
	Category     string
	ActualStart  string
	ActualEnd    string
	ScheduledEnd string
}

// ProjectProgress computes whole-project percent-complete. The project
// starts at the earliest actual start across all stages. The target is the
// scheduled end of the last terminal-stage record (falling back to the last
// record overall). 100% is asserted only from that record's actual end;
// schedule math alone caps at 99% so the report never claims completion the
// site has not confirmed.
func ProjectProgress(stages []StageWindow, terminalStage string, today time.Time) int {
	var start time.Time
	haveStart := false
	for _, st := range stages {
		d, ok := datemath.ParseDate(st.ActualStart)
		if !ok {
			continue
		}
		if !haveStart || d.Before(start) {
			start = d
			haveStart = true
		}
	}
	if !haveStart {
		return 0
	}

	var target *StageWindow
	for i := range stages {
		if stages[i].Category == terminalStage {
			target = &stages[i]
		}
	}
	if target == nil {
		if len(stages) == 0 {
			return 0
		}
		target = &stages[len(stages)-1]
	}

	if _, done := datemath.ParseDate(target.ActualEnd); done {
		return 100
	}

	end, ok := datemath.ParseDate(target.ScheduledEnd)
	if !ok {
		return 0
	}

	total := end.Sub(start)
	if total <= 0 {
		return 0
	}
	elapsed := midnight(today).Sub(start)
	if elapsed < 0 {
		return 0
	}
	pct := float64(elapsed) / float64(total) * 100
	if pct > 99 {
		pct = 99
	}
	if pct < 0 {
		pct = 0
	}
	return int(math.Round(pct))
}

func midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
