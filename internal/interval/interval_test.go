package interval

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func day(d int) time.Time {
	return time.Date(2021, 2, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, d)
}

func TestPartitionWindowLayout(t *testing.T) {
	// 6 days, 24h step, 72h windows: the last windows are clipped to
	// the overall end.
	_, ranges := Partition(nil, day(0), day(6), 24, 0, 72)
	if len(ranges) != 6 {
		t.Fatalf("got %d windows, want 6", len(ranges))
	}
	want := []Range{
		{day(0), day(3)},
		{day(1), day(4)},
		{day(2), day(5)},
		{day(3), day(6)},
		{day(4), day(6)},
		{day(5), day(6)},
	}
	if diff := cmp.Diff(want, ranges); diff != "" {
		t.Errorf("window layout mismatch (-want +got):\n%s", diff)
	}
}

func TestPartitionMembership(t *testing.T) {
	times := []time.Time{
		day(0).Add(time.Hour),      // 0
		day(1).Add(12 * time.Hour), // 1
		day(4).Add(6 * time.Hour),  // 2
	}
	intervals, _ := Partition(times, day(0), day(6), 48, 0, 48)
	if len(intervals) != 3 {
		t.Fatalf("got %d intervals, want 3", len(intervals))
	}
	want := [][]int{{0, 1}, nil, {2}}
	for i, iv := range intervals {
		if diff := cmp.Diff(want[i], iv.Members); diff != "" {
			t.Errorf("interval %d members mismatch (-want +got):\n%s", i, diff)
		}
	}
}

func TestPartitionToleranceOverlap(t *testing.T) {
	// A record just outside a window is pulled in by the tolerance,
	// so neighbouring windows share it.
	times := []time.Time{day(2).Add(2 * time.Hour)}
	intervals, _ := Partition(times, day(0), day(4), 48, 6, 48)
	if len(intervals) != 2 {
		t.Fatalf("got %d intervals, want 2", len(intervals))
	}
	for i, iv := range intervals {
		if len(iv.Members) != 1 {
			t.Errorf("interval %d members = %v, want the shared record", i, iv.Members)
		}
	}
}

func TestPartitionBoundariesInclusive(t *testing.T) {
	times := []time.Time{day(0), day(2)}
	intervals, _ := Partition(times, day(0), day(2), 48, 0, 48)
	if len(intervals) != 1 {
		t.Fatalf("got %d intervals, want 1", len(intervals))
	}
	if len(intervals[0].Members) != 2 {
		t.Errorf("members = %v, want both boundary records", intervals[0].Members)
	}
}

func TestPartitionDeterministic(t *testing.T) {
	times := []time.Time{day(0).Add(3 * time.Hour), day(1), day(3).Add(20 * time.Hour)}
	a, ar := Partition(times, day(0), day(5), 24, 12, 72)
	b, br := Partition(times, day(0), day(5), 24, 12, 72)
	if diff := cmp.Diff(a, b); diff != "" {
		t.Errorf("intervals differ between identical calls:\n%s", diff)
	}
	if diff := cmp.Diff(ar, br); diff != "" {
		t.Errorf("ranges differ between identical calls:\n%s", diff)
	}
}

func TestPartitionDegenerateInputs(t *testing.T) {
	tests := []struct {
		name     string
		start    time.Time
		end      time.Time
		timestep int
		interval int
	}{
		{"zero timestep", day(0), day(2), 0, 24},
		{"zero interval", day(0), day(2), 24, 0},
		{"start after end", day(2), day(0), 24, 24},
		{"start equals end", day(0), day(0), 24, 24},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			intervals, ranges := Partition(nil, tt.start, tt.end, tt.timestep, 0, tt.interval)
			if intervals != nil || ranges != nil {
				t.Errorf("got %d intervals, %d ranges, want none", len(intervals), len(ranges))
			}
		})
	}
}
