package pipeline

import (
	"fmt"
	"sort"

	"github.com/banshee-data/launchtrace/internal/detect"
)

// TimeSeries is the canonical per-launch dataset: FrameReadings ordered
// by frame index with strictly increasing timestamps. Missing indices in
// the requested range are recorded as explicit gaps, never silently
// skipped. The assembler owns the series; the cleaning stage reads it
// without mutation.
type TimeSeries struct {
	Start  int
	End    int
	Stride int
	FPS    float64

	Readings []*FrameReading
	Gaps     []int // requested indices with no reading
}

// Assemble orders an unordered collection of worker outputs by frame
// index. A duplicate index is a fatal logic error: the pipeline must
// process each index exactly once.
func Assemble(readings []*FrameReading, start, end, stride int, fps float64) (*TimeSeries, error) {
	sorted := make([]*FrameReading, len(readings))
	copy(sorted, readings)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Index < sorted[j].Index })

	for i := 1; i < len(sorted); i++ {
		if sorted[i].Index == sorted[i-1].Index {
			return nil, fmt.Errorf("assembler: duplicate reading for frame %d", sorted[i].Index)
		}
	}

	byIndex := make(map[int]bool, len(sorted))
	for _, fr := range sorted {
		byIndex[fr.Index] = true
	}

	var gaps []int
	for i := start; i < end; i += stride {
		if !byIndex[i] {
			gaps = append(gaps, i)
		}
	}

	return &TimeSeries{
		Start:    start,
		End:      end,
		Stride:   stride,
		FPS:      fps,
		Readings: sorted,
		Gaps:     gaps,
	}, nil
}

// HighestContiguous returns the highest frame index up to which the
// series has a reading for every requested index. Partial runs remain
// usable up to this point. Returns Start-Stride when nothing contiguous
// was processed.
func (ts *TimeSeries) HighestContiguous() int {
	next := ts.Start
	for _, fr := range ts.Readings {
		if fr.Index != next {
			break
		}
		next += ts.Stride
	}
	return next - ts.Stride
}

// Summary counts extraction outcomes for the run report. Failures are
// reported, never silently dropped from the dataset.
type Summary struct {
	Frames       int
	FailedFrames int // frames where decoding itself failed
	Gaps         int
	FailedByRole map[string]int
	OKByRole     map[string]int
}

// Summarize tallies per-role and per-frame outcomes.
func (ts *TimeSeries) Summarize() Summary {
	s := Summary{
		Frames:       len(ts.Readings),
		Gaps:         len(ts.Gaps),
		FailedByRole: make(map[string]int),
		OKByRole:     make(map[string]int),
	}
	for _, fr := range ts.Readings {
		if fr.DecodeFailed {
			s.FailedFrames++
		}
		for role, r := range fr.Roles {
			switch r.Status {
			case detect.StatusFailed:
				s.FailedByRole[role]++
			case detect.StatusOK:
				s.OKByRole[role]++
			}
		}
	}
	return s
}
