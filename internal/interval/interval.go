// Package interval splits a time-ordered observation set into
// possibly-overlapping analysis windows.
package interval

import (
	"sort"
	"time"
)

// Range is one window's nominal start and end.
type Range struct {
	Start time.Time
	End   time.Time
}

// Interval is a window together with the indices of the records whose
// timestamps fall inside it (tolerance included). Member indices refer
// to the caller's record slice and are never mutated after creation.
type Interval struct {
	Start   time.Time
	End     time.Time
	Members []int
}

// Partition builds windows from start to end. Window n begins at
// start + n*timestep and spans interval hours; membership is tested
// against the window expanded by ± tolerance hours, so neighbouring
// windows share records whenever the tolerance exceeds the gap between
// them. times must be sorted ascending; the result is deterministic
// for identical inputs.
func Partition(times []time.Time, start, end time.Time, timestepHours, toleranceHours, intervalHours int) ([]Interval, []Range) {
	if timestepHours <= 0 || intervalHours <= 0 || !start.Before(end) {
		return nil, nil
	}

	step := time.Duration(timestepHours) * time.Hour
	span := time.Duration(intervalHours) * time.Hour
	tol := time.Duration(toleranceHours) * time.Hour

	var intervals []Interval
	var ranges []Range
	for t := start; t.Before(end); t = t.Add(step) {
		wEnd := t.Add(span)
		if wEnd.After(end) {
			wEnd = end
		}
		intervals = append(intervals, Interval{
			Start:   t,
			End:     wEnd,
			Members: membersIn(times, t.Add(-tol), wEnd.Add(tol)),
		})
		ranges = append(ranges, Range{Start: t, End: wEnd})
	}
	return intervals, ranges
}

// membersIn returns the indices of timestamps within [lo, hi],
// inclusive on both ends. times must be sorted ascending.
func membersIn(times []time.Time, lo, hi time.Time) []int {
	first := sort.Search(len(times), func(i int) bool { return !times[i].Before(lo) })
	var members []int
	for i := first; i < len(times) && !times[i].After(hi); i++ {
		members = append(members, i)
	}
	return members
}
