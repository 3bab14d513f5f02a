// Package pipeline orchestrates frame decoding, ROI scheduling and
// detection across a bounded worker pool, then assembles worker output
// into an ordered time series. Work units are single frame indices and
// are independent, so they execute concurrently and out of order; the
// assembler restores index order.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"runtime"
	"sync"

	"github.com/banshee-data/launchtrace/internal/detect"
	"github.com/banshee-data/launchtrace/internal/roi"
	"github.com/banshee-data/launchtrace/internal/video"
)

// ErrCancelled reports that a run stopped before covering the requested
// range. Partial results up to the highest contiguous index remain valid.
var ErrCancelled = errors.New("extraction cancelled before range completed")

// ProgressFunc is invoked after each processed frame with the committed
// reading and cumulative counts. Called from the collector goroutine
// only; the reading is immutable by then.
type ProgressFunc func(fr *FrameReading, processed, total int)

// Config wires the extractor's collaborators and tuning.
type Config struct {
	Source    video.Source
	Schedule  *roi.Schedule
	Detectors *detect.Set

	// Workers is the pool size; zero means all CPU cores.
	Workers int

	// Buffer bounds the number of in-flight FrameReadings between the
	// workers and the collector. Decoding is the memory-heavy step, so
	// workers must not run unboundedly ahead of consumption.
	Buffer int

	Progress ProgressFunc
}

// Extractor processes a frame range in parallel, producing one
// FrameReading per frame. It owns in-flight readings until they are
// committed to the assembled series.
type Extractor struct {
	cfg Config
}

// NewExtractor validates the configuration and returns an Extractor.
func NewExtractor(cfg Config) (*Extractor, error) {
	if cfg.Source == nil {
		return nil, errors.New("pipeline: nil frame source")
	}
	if cfg.Schedule == nil {
		return nil, errors.New("pipeline: nil ROI schedule")
	}
	if cfg.Detectors == nil {
		return nil, errors.New("pipeline: nil detector set")
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if cfg.Buffer <= 0 {
		cfg.Buffer = cfg.Workers * 4
	}
	return &Extractor{cfg: cfg}, nil
}

// Run processes frames [start, end) at the given stride and returns the
// assembled, index-ordered series. A per-ROI recognition failure or a
// frame decode failure never aborts the run; cancellation via ctx stops
// dispatch between frames and returns the partial series alongside
// ErrCancelled.
func (e *Extractor) Run(ctx context.Context, start, end, stride int) (*TimeSeries, error) {
	if start < 0 || end <= start {
		return nil, fmt.Errorf("pipeline: invalid frame range [%d, %d)", start, end)
	}
	if stride < 1 {
		stride = 1
	}

	indices := make([]int, 0, (end-start+stride-1)/stride)
	for i := start; i < end; i += stride {
		indices = append(indices, i)
	}

	work := make(chan int)
	results := make(chan *FrameReading, e.cfg.Buffer)

	var wg sync.WaitGroup
	for w := 0; w < e.cfg.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e.worker(ctx, work, results)
		}()
	}

	// Dispatcher: stops handing out new frames once ctx is done;
	// in-flight frames are allowed to finish so no FrameReading is ever
	// half-built.
	go func() {
		defer close(work)
		for _, idx := range indices {
			select {
			case work <- idx:
			case <-ctx.Done():
				debugf("dispatch stopped at frame %d: %v", idx, ctx.Err())
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	readings := make([]*FrameReading, 0, len(indices))
	for fr := range results {
		readings = append(readings, fr)
		if e.cfg.Progress != nil {
			e.cfg.Progress(fr, len(readings), len(indices))
		}
	}

	series, err := Assemble(readings, start, end, stride, e.cfg.Source.FPS())
	if err != nil {
		return nil, err
	}

	if len(readings) < len(indices) {
		return series, ErrCancelled
	}
	return series, nil
}

// worker pulls frame indices until the queue closes. All intermediate
// state (decoded frame, crops, detector scratch) is worker-local; the
// work and result channels are the only shared structures.
//
// Frames decode under a non-cancelled context: once an index is
// dispatched it finishes normally, so cancellation never turns an
// attempted frame into a spurious decode failure. The dispatcher is the
// only place that observes ctx.
func (e *Extractor) worker(ctx context.Context, work <-chan int, results chan<- *FrameReading) {
	frameCtx := context.WithoutCancel(ctx)
	for idx := range work {
		results <- e.processFrame(frameCtx, idx)
	}
}

// processFrame produces the FrameReading for one frame index. Every
// schedule role gets an entry: out-of-window, failed, or a value.
func (e *Extractor) processFrame(ctx context.Context, idx int) *FrameReading {
	fps := e.cfg.Source.FPS()
	t := float64(idx)
	if e.cfg.Schedule.TimeUnit == roi.UnitSeconds {
		t = float64(idx) / fps
	}

	fr := &FrameReading{
		Index:     idx,
		Timestamp: float64(idx) / fps,
		Roles:     make(map[string]detect.RoleReading),
	}
	for _, role := range e.cfg.Schedule.Roles() {
		fr.Roles[role] = detect.OutOfWindow(role)
	}

	active := e.cfg.Schedule.ActiveAt(t)
	if len(active) == 0 {
		return fr
	}

	frame, err := e.cfg.Source.DecodeFrame(ctx, idx)
	if err != nil {
		// Frame-level decode failure: all active roles fail, the batch
		// continues.
		debugf("frame %d decode failed: %v", idx, err)
		fr.DecodeFailed = true
		for _, r := range active {
			fr.Roles[r.Role] = detect.Failed(r.Role, detect.KindNumeric, err.Error())
		}
		return fr
	}

	for _, r := range active {
		d, ok := e.cfg.Detectors.For(r.Role)
		if !ok {
			// Detector set is built from the schedule's roles, so this
			// indicates a wiring bug rather than bad input.
			fr.Roles[r.Role] = detect.Failed(r.Role, detect.KindNumeric, "no detector for role")
			continue
		}
		crop := video.Crop(frame, image.Rect(r.X, r.Y, r.X+r.W, r.Y+r.H))
		fr.Roles[r.Role] = d.Detect(crop)
	}
	return fr
}
