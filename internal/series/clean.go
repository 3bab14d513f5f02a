package series

import (
	"log"
	"sort"
	"strings"

	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/launchtrace/internal/config"
	"github.com/banshee-data/launchtrace/internal/detect"
	"github.com/banshee-data/launchtrace/internal/pipeline"
)

// Cleaner turns an assembled TimeSeries into a CleanedSeries. All
// run-wide state (debounce counters, thresholds) lives here, threaded in
// from the tuning config, so cleaning is reproducible and re-runnable.
type Cleaner struct {
	cfg *config.TuningConfig

	// T0Frame, when >= 0, overrides clock-based T-0 detection with an
	// externally supplied liftoff frame.
	T0Frame float64
}

// NewCleaner returns a Cleaner with the given tuning.
func NewCleaner(cfg *config.TuningConfig) *Cleaner {
	return &Cleaner{cfg: cfg, T0Frame: -1}
}

// Clean runs the full cleaning pass: per-role extraction, engine
// debouncing, fuel-jump adjudication, outlier rejection, bounded gap
// interpolation, T-0 synchronization and derived metrics.
func (c *Cleaner) Clean(ts *pipeline.TimeSeries) *CleanedSeries {
	cs := &CleanedSeries{
		FPS:     ts.FPS,
		Roles:   make(map[string]*RoleSeries),
		Derived: make(map[string]*RoleSeries),
	}

	t0 := c.T0Frame
	if t0 < 0 {
		t0 = detectT0(ts)
	}
	cs.T0Frame = t0

	roles := collectRoles(ts)
	for _, role := range roles {
		switch {
		case strings.Contains(role, "_engines_"):
			rs, events := c.engineCountSeries(ts, role, t0)
			cs.Roles[role] = rs
			cs.Events = append(cs.Events, events...)
		case strings.Contains(role, "_fuel_"):
			rs := c.scalarSeries(ts, role, t0)
			c.adjudicateFuelJumps(rs)
			c.interpolateGaps(rs)
			cs.Roles[role] = rs
		case role == "time":
			// The clock series exists only to anchor T-0.
		default:
			rs := c.scalarSeries(ts, role, t0)
			c.rejectOutliers(rs)
			c.interpolateGaps(rs)
			cs.Roles[role] = rs
		}
	}

	sort.SliceStable(cs.Events, func(i, j int) bool {
		return cs.Events[i].Frame < cs.Events[j].Frame
	})
	aggregateEngineBanks(cs)
	c.derive(cs)
	return cs
}

// collectRoles returns the sorted role names seen anywhere in the series.
func collectRoles(ts *pipeline.TimeSeries) []string {
	seen := map[string]bool{}
	for _, fr := range ts.Readings {
		for role := range fr.Roles {
			seen[role] = true
		}
	}
	roles := make([]string, 0, len(seen))
	for role := range seen {
		roles = append(roles, role)
	}
	sort.Strings(roles)
	return roles
}

// detectT0 finds the liftoff frame from the T-clock role: the first
// usable clock reading is projected back to the frame where the clock
// read zero. Returns the start of the range when no clock reading exists.
func detectT0(ts *pipeline.TimeSeries) float64 {
	for _, fr := range ts.Readings {
		r, ok := fr.Roles["time"]
		if !ok || r.Status != detect.StatusOK {
			continue
		}
		t0 := float64(fr.Index) - r.Value*ts.FPS
		log.Printf("[series] T-0 anchored at frame %.1f (clock %+.0fs at frame %d)", t0, r.Value, fr.Index)
		return t0
	}
	log.Printf("[series] no clock reading found; T-0 defaults to frame %d", ts.Start)
	return float64(ts.Start)
}

// scalarSeries extracts one role's raw scalar samples on the frame grid,
// with missing/failed/out-of-window readings as explicit invalid points.
func (c *Cleaner) scalarSeries(ts *pipeline.TimeSeries, role string, t0 float64) *RoleSeries {
	rs := &RoleSeries{Role: role, Samples: make([]Sample, 0, len(ts.Readings)+len(ts.Gaps))}

	appendMissing := func(frame int) {
		rs.Samples = append(rs.Samples, Sample{
			Frame: frame,
			Time:  (float64(frame) - t0) / ts.FPS,
			Valid: false,
			Flag:  FlagMissing,
		})
	}

	gapIdx := 0
	for _, fr := range ts.Readings {
		for gapIdx < len(ts.Gaps) && ts.Gaps[gapIdx] < fr.Index {
			appendMissing(ts.Gaps[gapIdx])
			gapIdx++
		}
		s := Sample{
			Frame: fr.Index,
			Time:  (float64(fr.Index) - t0) / ts.FPS,
			Flag:  FlagMissing,
		}
		if r, ok := fr.Roles[role]; ok && r.Status == detect.StatusOK {
			s.Value = r.Value
			s.Valid = true
			s.Flag = FlagMeasured
		}
		rs.Samples = append(rs.Samples, s)
	}
	for gapIdx < len(ts.Gaps) {
		appendMissing(ts.Gaps[gapIdx])
		gapIdx++
	}
	return rs
}

// engineCountSeries debounces each engine in a bank, emits the count of
// accepted-lit engines per frame and the accepted state transitions.
// Debouncers reset when the bank's ROI goes out of window so a later
// window starts clean.
func (c *Cleaner) engineCountSeries(ts *pipeline.TimeSeries, role string, t0 float64) (*RoleSeries, []EngineEvent) {
	rs := &RoleSeries{Role: role, Samples: make([]Sample, 0, len(ts.Readings))}
	var events []EngineEvent
	var states []*detect.EngineState
	k := c.cfg.GetDebounceFrames()

	for _, fr := range ts.Readings {
		s := Sample{
			Frame: fr.Index,
			Time:  (float64(fr.Index) - t0) / ts.FPS,
			Flag:  FlagMissing,
		}
		r, ok := fr.Roles[role]
		switch {
		case !ok || r.Status == detect.StatusOutOfWindow:
			for _, st := range states {
				st.Reset()
			}
		case r.Status == detect.StatusOK:
			if states == nil {
				states = make([]*detect.EngineState, len(r.Lit))
				for i := range states {
					states[i] = detect.NewEngineState(k)
				}
			}
			count := 0
			for i, lit := range r.Lit {
				if i >= len(states) {
					break
				}
				if changed, at := states[i].Update(fr.Index, lit); changed {
					events = append(events, EngineEvent{
						Role:   role,
						Engine: i,
						Frame:  at,
						Time:   (float64(at) - t0) / ts.FPS,
						Lit:    lit,
					})
				}
				if states[i].Lit() {
					count++
				}
			}
			s.Value = float64(count)
			s.Valid = true
			s.Flag = FlagMeasured
		}
		rs.Samples = append(rs.Samples, s)
	}
	return rs, events
}

// adjudicateFuelJumps marks fuel-fraction samples provisional when they
// jump implausibly against the previous valid sample, then invalidates
// them so interpolation can decide. A provisional point confirmed by its
// successor (the level stays there) is reinstated.
func (c *Cleaner) adjudicateFuelJumps(rs *RoleSeries) {
	maxJump := c.cfg.GetFuelJumpFraction()
	lastValid := -1
	for i := range rs.Samples {
		s := &rs.Samples[i]
		if !s.Valid {
			continue
		}
		if lastValid >= 0 {
			jump := s.Value - rs.Samples[lastValid].Value
			if jump < 0 {
				jump = -jump
			}
			if jump > maxJump {
				// Peek at the next valid sample: a confirmed new level is
				// real (stage separation venting), an unconfirmed one is
				// noise.
				confirmed := false
				for j := i + 1; j < len(rs.Samples); j++ {
					if !rs.Samples[j].Valid {
						continue
					}
					delta := rs.Samples[j].Value - s.Value
					if delta < 0 {
						delta = -delta
					}
					confirmed = delta <= maxJump
					break
				}
				if !confirmed {
					s.Valid = false
					s.Flag = FlagProvisional
					continue
				}
			}
		}
		lastValid = i
	}
}

// rejectOutliers applies a sliding-window median/MAD filter. Points
// beyond the configured multiple of the window MAD from the window
// median are invalidated, never deleted.
func (c *Cleaner) rejectOutliers(rs *RoleSeries) {
	window := c.cfg.GetOutlierWindow()
	factor := c.cfg.GetOutlierMADFactor()
	half := window / 2

	n := len(rs.Samples)
	reject := make([]bool, n)
	for i := 0; i < n; i++ {
		if !rs.Samples[i].Valid {
			continue
		}
		lo, hi := i-half, i+half
		if lo < 0 {
			lo = 0
		}
		if hi >= n {
			hi = n - 1
		}
		var vals []float64
		for j := lo; j <= hi; j++ {
			if rs.Samples[j].Valid {
				vals = append(vals, rs.Samples[j].Value)
			}
		}
		if len(vals) < 3 {
			continue
		}
		med := median(vals)
		dev := make([]float64, len(vals))
		for j, v := range vals {
			d := v - med
			if d < 0 {
				d = -d
			}
			dev[j] = d
		}
		mad := median(dev)
		if mad < 1e-9 {
			mad = 1e-9
		}
		d := rs.Samples[i].Value - med
		if d < 0 {
			d = -d
		}
		if d > factor*mad {
			reject[i] = true
		}
	}

	for i := range rs.Samples {
		if reject[i] {
			rs.Samples[i].Valid = false
			rs.Samples[i].Flag = FlagOutlier
		}
	}
}

// median returns the 50th percentile of xs. xs is copied, not mutated.
func median(xs []float64) float64 {
	sorted := make([]float64, len(xs))
	copy(sorted, xs)
	sort.Float64s(sorted)
	return stat.Quantile(0.5, stat.Empirical, sorted, nil)
}

// interpolateGaps fills runs of invalid samples shorter than the
// configured span by linear interpolation between the nearest valid
// neighbours. Longer runs stay invalid and propagate to derived metrics.
func (c *Cleaner) interpolateGaps(rs *RoleSeries) {
	maxGap := c.cfg.GetMaxGapFrames()
	n := len(rs.Samples)

	prevValid := -1
	for i := 0; i <= n; i++ {
		if i < n && !rs.Samples[i].Valid {
			continue
		}
		if prevValid >= 0 && i < n && i-prevValid > 1 {
			gapFrames := rs.Samples[i].Frame - rs.Samples[prevValid].Frame
			if gapFrames <= maxGap {
				a, b := rs.Samples[prevValid], rs.Samples[i]
				for j := prevValid + 1; j < i; j++ {
					frac := float64(rs.Samples[j].Frame-a.Frame) / float64(b.Frame-a.Frame)
					rs.Samples[j].Value = a.Value + frac*(b.Value-a.Value)
					rs.Samples[j].Valid = true
					rs.Samples[j].Flag = FlagInterpolated
				}
			}
		}
		if i < n {
			prevValid = i
		}
	}
}

// aggregateEngineBanks sums per-bank engine counts into an _engines_all
// series per vehicle. A frame is valid only when every bank is valid.
func aggregateEngineBanks(cs *CleanedSeries) {
	banks := map[string][]*RoleSeries{}
	for role, rs := range cs.Roles {
		idx := strings.Index(role, "_engines_")
		if idx < 0 {
			continue
		}
		vehicle := role[:idx]
		banks[vehicle] = append(banks[vehicle], rs)
	}

	for vehicle, group := range banks {
		if len(group) == 0 {
			continue
		}
		n := len(group[0].Samples)
		all := &RoleSeries{
			Role:    vehicle + "_engines_all",
			Samples: make([]Sample, n),
		}
		for i := 0; i < n; i++ {
			s := Sample{
				Frame: group[0].Samples[i].Frame,
				Time:  group[0].Samples[i].Time,
				Valid: true,
				Flag:  FlagMeasured,
			}
			for _, rs := range group {
				if i >= len(rs.Samples) || !rs.Samples[i].Valid {
					s.Valid = false
					s.Flag = FlagMissing
					break
				}
				s.Value += rs.Samples[i].Value
			}
			if !s.Valid {
				s.Value = 0
			}
			all.Samples[i] = s
		}
		cs.Roles[all.Role] = all
	}
}
