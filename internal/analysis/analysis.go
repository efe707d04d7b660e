// Package analysis reshapes a project's procurement records into a bounded
// payload for the external schedule-analysis collaborator and validates
// what comes back.
package analysis

import (
	"context"
	"time"

	"gantry/api/internal/datemath"
	"gantry/api/internal/severity"
	"gantry/api/internal/store"
)

// Tuple is one reduced record row. Variance is nil when either date is
// absent or malformed.
type Tuple struct {
	Item      string `json:"item"`
	Scheduled string `json:"scheduled"`
	Actual    string `json:"actual"`
	Variance  *int   `json:"variance"`
	Status    string `json:"status"`
	Remarks   string `json:"remarks"`
}

// Filter bounds the payload sent to the collaborator. With no flag set,
// every non-empty record is included; with several, a record matching any
// enabled criterion is included.
type Filter struct {
	LateOnly          bool `json:"lateOnly"`
	RecentActuals     bool `json:"recentActuals"`
	UpcomingScheduled bool `json:"upcomingScheduled"`
}

func (f Filter) any() bool {
	return f.LateOnly || f.RecentActuals || f.UpcomingScheduled
}

// Result is the collaborator's response shape. All three fields are
// required on the wire.
type Result struct {
	Summary         string   `json:"summary"`
	CriticalDelays  []string `json:"criticalDelays"`
	Recommendations []string `json:"recommendations"`
}

const windowDays = 30

// Reduce derives tuples from the project's records, dropping blank rows
// and applying the filter.
func Reduce(records []store.ProcurementRecord, filter Filter, now time.Time) []Tuple {
	tuples := make([]Tuple, 0, len(records))
	for _, r := range records {
		if r.EngineeringItem == "" && r.ScheduledRequestDate == "" && r.ActualRequestDate == "" {
			continue
		}
		v, ok := datemath.VarianceDays(r.ScheduledRequestDate, r.ActualRequestDate)
		if filter.any() && !matches(r, v, ok, filter, now) {
			continue
		}
		tuple := Tuple{
			Item:      r.EngineeringItem,
			Scheduled: r.ScheduledRequestDate,
			Actual:    r.ActualRequestDate,
			Status:    severity.PointEvent.Classify(v, ok).Label,
			Remarks:   r.Remarks,
		}
		if ok {
			variance := v
			tuple.Variance = &variance
		}
		tuples = append(tuples, tuple)
	}
	return tuples
}

func matches(r store.ProcurementRecord, v int, ok bool, filter Filter, now time.Time) bool {
	if filter.LateOnly && ok && v < 0 {
		return true
	}
	if filter.RecentActuals && withinWindow(r.ActualRequestDate, now.AddDate(0, 0, -windowDays), now) {
		return true
	}
	if filter.UpcomingScheduled && withinWindow(r.ScheduledRequestDate, now, now.AddDate(0, 0, windowDays)) {
		return true
	}
	return false
}

func withinWindow(date string, from, to time.Time) bool {
	d, ok := datemath.ParseDate(date)
	if !ok {
		return false
	}
	from = from.Truncate(24 * time.Hour)
	to = to.Truncate(24 * time.Hour)
	return !d.Before(from) && !d.After(to)
}

// Collaborator is the external text-generation port. The HTTP client is
// the production implementation; tests substitute a local fake.
type Collaborator interface {
	Analyze(ctx context.Context, tuples []Tuple) (Result, error)
}

// NoCriticalItems is the canned local result returned when the reduced set
// is empty. It never touches the collaborator.
func NoCriticalItems() Result {
	return Result{
		Summary:         "目前篩選範圍內無重大延誤項目。",
		CriticalDelays:  []string{},
		Recommendations: []string{},
	}
}

// Summarize runs one analysis attempt. An empty tuple set resolves
// locally; a collaborator failure surfaces as-is, no retry and no partial
// result.
func Summarize(ctx context.Context, c Collaborator, tuples []Tuple) (Result, error) {
	if len(tuples) == 0 {
		return NoCriticalItems(), nil
	}
	return c.Analyze(ctx, tuples)
}
