// Package series implements the cleaning and derived-metrics stage: it
// consumes the assembled TimeSeries read-only and produces a new
// CleanedSeries, so re-runs with different tuning never corrupt the
// extraction output.
package series

// Flag records how a sample reached its current state. Rejected points
// are marked, never deleted, so every cleaning decision stays traceable.
type Flag int

const (
	// FlagMeasured is an accepted extraction value.
	FlagMeasured Flag = iota
	// FlagMissing means no reading existed (gap, failed ROI, out of window).
	FlagMissing
	// FlagOutlier marks a point rejected by the MAD filter.
	FlagOutlier
	// FlagProvisional marks an implausible jump awaiting adjudication.
	FlagProvisional
	// FlagInterpolated marks a gap filled from valid neighbours.
	FlagInterpolated
)

func (f Flag) String() string {
	switch f {
	case FlagMeasured:
		return "measured"
	case FlagMissing:
		return "missing"
	case FlagOutlier:
		return "outlier"
	case FlagProvisional:
		return "provisional"
	case FlagInterpolated:
		return "interpolated"
	default:
		return "unknown"
	}
}

// Sample is one (time, value) point of a cleaned role series. Time is
// seconds relative to T-0 once synchronized. Invalid samples keep their
// position so gaps stay explicit and distinguishable from a valid zero.
type Sample struct {
	Frame int
	Time  float64
	Value float64
	Valid bool
	Flag  Flag
}

// RoleSeries is one role's cleaned scalar series on the common frame grid.
type RoleSeries struct {
	Role    string
	Samples []Sample
}

// ValidCount returns the number of valid samples.
func (rs *RoleSeries) ValidCount() int {
	n := 0
	for _, s := range rs.Samples {
		if s.Valid {
			n++
		}
	}
	return n
}

// Interval is a closed frame range of consecutive invalid samples.
type Interval struct {
	StartFrame int
	EndFrame   int
}

// InvalidIntervals returns the runs of invalid samples in the series.
func (rs *RoleSeries) InvalidIntervals() []Interval {
	var out []Interval
	open := false
	var cur Interval
	for _, s := range rs.Samples {
		if !s.Valid {
			if !open {
				open = true
				cur = Interval{StartFrame: s.Frame}
			}
			cur.EndFrame = s.Frame
			continue
		}
		if open {
			out = append(out, cur)
			open = false
		}
	}
	if open {
		out = append(out, cur)
	}
	return out
}

// CleanedSeries is the final per-launch dataset: cleaned per-role series
// plus derived metrics aligned on the same frame grid, all with
// timestamps expressed as signed offsets from T-0.
type CleanedSeries struct {
	T0Frame float64 // frame index of the liftoff instant (may be fractional)
	FPS     float64

	Roles   map[string]*RoleSeries
	Derived map[string]*RoleSeries

	// Events lists accepted engine state transitions in frame order.
	Events []EngineEvent
}

// Role returns a cleaned or derived series, or nil when the role was
// never observed.
func (cs *CleanedSeries) Role(role string) *RoleSeries {
	if rs, ok := cs.Roles[role]; ok {
		return rs
	}
	return cs.Derived[role]
}

// EngineEvent is one debounce-accepted ignition or shutdown of a single
// engine within a bank. Frame is the first frame of the sustained run.
type EngineEvent struct {
	Role   string
	Engine int
	Frame  int
	Time   float64
	Lit    bool
}
