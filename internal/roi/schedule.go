// Package roi loads and indexes the region-of-interest schedule that maps
// telemetry roles to rectangular frame regions over activation windows.
package roi

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

// SupportedVersion is the only schedule document version this engine accepts.
const SupportedVersion = 1

// Time unit constants for schedule activation windows.
const (
	UnitFrames  = "frames"
	UnitSeconds = "seconds"
)

// ROI is one rectangular region serving a telemetry role over an
// activation window. Start and End are expressed in the schedule's time
// unit; nil means open-ended (from recording start / to recording end).
type ROI struct {
	ID    string   `json:"id"`
	Label string   `json:"label"`
	X     int      `json:"x"`
	Y     int      `json:"y"`
	W     int      `json:"w"`
	H     int      `json:"h"`
	Start *float64 `json:"start_time"`
	End   *float64 `json:"end_time"`
	Role  string   `json:"match_to_role"`
}

// ActiveAt reports whether the ROI's window contains t. Windows are
// half-open: [start, end).
func (r *ROI) ActiveAt(t float64) bool {
	if r.Start != nil && t < *r.Start {
		return false
	}
	if r.End != nil && t >= *r.End {
		return false
	}
	return true
}

// Schedule is a validated, immutable ROI registry with an interval index
// for O(log n) active-set lookup.
type Schedule struct {
	Version  int
	TimeUnit string

	rois   []*ROI
	byRole map[string][]*ROI

	// Elementary-interval index: bounds is the sorted set of distinct
	// window endpoints; segments[i] holds the ROIs active between
	// bounds[i-1] (inclusive) and bounds[i] (exclusive), with segments[0]
	// covering everything before the first boundary.
	bounds   []float64
	segments [][]*ROI
}

// scheduleDoc is the on-disk schedule format.
type scheduleDoc struct {
	Version  int    `json:"version"`
	TimeUnit string `json:"time_unit"`
	ROIs     []*ROI `json:"rois"`
}

// LoadSchedule reads and validates a schedule document from disk.
func LoadSchedule(path string) (*Schedule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schedule file: %w", err)
	}
	return ParseSchedule(data)
}

// ParseSchedule parses and validates a schedule document. All
// configuration errors are reported here, before any frame is processed.
func ParseSchedule(data []byte) (*Schedule, error) {
	var doc scheduleDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse schedule JSON: %w", err)
	}

	if doc.Version != SupportedVersion {
		return nil, fmt.Errorf("unsupported schedule version %d (supported: %d)", doc.Version, SupportedVersion)
	}
	if doc.TimeUnit != UnitFrames && doc.TimeUnit != UnitSeconds {
		return nil, fmt.Errorf("unknown time_unit %q (must be %q or %q)", doc.TimeUnit, UnitFrames, UnitSeconds)
	}

	s := &Schedule{
		Version:  doc.Version,
		TimeUnit: doc.TimeUnit,
		rois:     doc.ROIs,
		byRole:   make(map[string][]*ROI),
	}

	seen := make(map[string]bool, len(doc.ROIs))
	for _, r := range doc.ROIs {
		if r.ID == "" {
			return nil, fmt.Errorf("ROI with empty id (label=%q)", r.Label)
		}
		if seen[r.ID] {
			return nil, fmt.Errorf("duplicate ROI id %q", r.ID)
		}
		seen[r.ID] = true

		if r.X < 0 || r.Y < 0 || r.W <= 0 || r.H <= 0 {
			return nil, fmt.Errorf("ROI %q has malformed rectangle (x=%d y=%d w=%d h=%d)", r.ID, r.X, r.Y, r.W, r.H)
		}
		if r.Start != nil && r.End != nil && *r.Start >= *r.End {
			return nil, fmt.Errorf("ROI %q has empty window (start=%v end=%v)", r.ID, *r.Start, *r.End)
		}
		if r.Role == "" {
			return nil, fmt.Errorf("ROI %q has no match_to_role", r.ID)
		}
		s.byRole[r.Role] = append(s.byRole[r.Role], r)
	}

	// Two windows serving the same role must never overlap; this is a
	// configuration error and fails at load time, not extraction time.
	for role, group := range s.byRole {
		for i := 0; i < len(group); i++ {
			for j := i + 1; j < len(group); j++ {
				if windowsOverlap(group[i], group[j]) {
					return nil, fmt.Errorf("role %q served by overlapping ROIs %q and %q", role, group[i].ID, group[j].ID)
				}
			}
		}
	}

	s.buildIndex()
	return s, nil
}

// windowsOverlap reports whether two half-open windows intersect. A nil
// bound extends the window to the corresponding end of the recording.
func windowsOverlap(a, b *ROI) bool {
	// a starts before b ends, and b starts before a ends.
	aBeforeBEnd := b.End == nil || a.Start == nil || *a.Start < *b.End
	bBeforeAEnd := a.End == nil || b.Start == nil || *b.Start < *a.End
	return aBeforeBEnd && bBeforeAEnd
}

// buildIndex precomputes the active ROI set for every elementary interval
// between distinct window endpoints. Lookup is then a single binary search
// regardless of schedule size.
func (s *Schedule) buildIndex() {
	boundSet := make(map[float64]bool)
	for _, r := range s.rois {
		if r.Start != nil {
			boundSet[*r.Start] = true
		}
		if r.End != nil {
			boundSet[*r.End] = true
		}
	}

	s.bounds = make([]float64, 0, len(boundSet))
	for b := range boundSet {
		s.bounds = append(s.bounds, b)
	}
	sort.Float64s(s.bounds)

	s.segments = make([][]*ROI, len(s.bounds)+1)
	for seg := range s.segments {
		// Pick a representative instant inside this elementary interval.
		var t float64
		switch {
		case len(s.bounds) == 0:
			t = 0
		case seg == 0:
			t = s.bounds[0] - 1
		case seg == len(s.bounds):
			t = s.bounds[len(s.bounds)-1]
		default:
			t = (s.bounds[seg-1] + s.bounds[seg]) / 2
		}
		for _, r := range s.rois {
			if r.ActiveAt(t) {
				s.segments[seg] = append(s.segments[seg], r)
			}
		}
	}
}

// ActiveAt returns every ROI whose window contains t. The returned slice
// is shared and must not be mutated.
func (s *Schedule) ActiveAt(t float64) []*ROI {
	seg := sort.Search(len(s.bounds), func(i int) bool { return s.bounds[i] > t })
	return s.segments[seg]
}

// ResolveRole returns the single ROI serving role at instant t. Per-role
// overlap is rejected at load, so at most one ROI can match.
func (s *Schedule) ResolveRole(role string, t float64) (*ROI, error) {
	for _, r := range s.byRole[role] {
		if r.ActiveAt(t) {
			return r, nil
		}
	}
	return nil, fmt.Errorf("no ROI serves role %q at t=%v", role, t)
}

// Roles returns the sorted set of roles named by the schedule.
func (s *Schedule) Roles() []string {
	roles := make([]string, 0, len(s.byRole))
	for role := range s.byRole {
		roles = append(roles, role)
	}
	sort.Strings(roles)
	return roles
}

// Len returns the number of ROIs in the schedule.
func (s *Schedule) Len() int {
	return len(s.rois)
}
