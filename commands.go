package main

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"log"
	"math"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/banshee-data/launchtrace/internal/config"
	"github.com/banshee-data/launchtrace/internal/db"
	"github.com/banshee-data/launchtrace/internal/detect"
	"github.com/banshee-data/launchtrace/internal/monitor"
	"github.com/banshee-data/launchtrace/internal/ocr"
	"github.com/banshee-data/launchtrace/internal/pipeline"
	"github.com/banshee-data/launchtrace/internal/roi"
	"github.com/banshee-data/launchtrace/internal/series"
	"github.com/banshee-data/launchtrace/internal/video"
)

// runExtraction wires the whole run: source, schedule, detectors,
// pipeline, cleaning, persistence, plots. Returns the process exit code.
func runExtraction(ctx context.Context) int {
	cfg := config.EmptyTuningConfig()
	if *configPath != "" {
		var err error
		cfg, err = config.LoadTuningConfig(*configPath)
		if err != nil {
			log.Printf("failed to load tuning config: %v", err)
			return exitError
		}
	}
	if *debugLog {
		pipeline.SetDebugLogger(os.Stderr)
	}

	schedule, source, recognizer, err := buildInputs()
	if err != nil {
		log.Printf("failed to set up inputs: %v", err)
		return exitError
	}

	detectors, err := detect.NewSet(schedule.Roles(), recognizer, cfg)
	if err != nil {
		log.Printf("failed to build detectors: %v", err)
		return exitError
	}

	start, end := *startFrame, *endFrame
	if end <= 0 || end > source.FrameCount() {
		end = source.FrameCount()
	}
	if start < 0 || start >= end {
		log.Printf("invalid frame range [%d, %d)", start, end)
		return exitError
	}
	stride := *sampleRate
	if stride <= 0 {
		stride = cfg.GetSampleRate()
	}

	database, err := db.NewDB(*dbFile)
	if err != nil {
		log.Printf("failed to open database: %v", err)
		return exitError
	}
	defer database.Close()

	sourceName := *framesDir
	scheduleName := *schedulePath
	if *devMode {
		sourceName = "synthetic"
		scheduleName = "builtin"
	}
	runID, err := database.CreateRun(sourceName, scheduleName, source.FPS(), start, end, stride)
	if err != nil {
		log.Printf("failed to create run: %v", err)
		return exitError
	}
	log.Printf("[run] %s: frames [%d, %d) stride %d from %s", runID, start, end, stride, sourceName)

	frames := (end - start + stride - 1) / stride
	stats := monitor.NewRunStats(frames)
	hub := monitor.NewHub()

	var wg sync.WaitGroup
	serverCtx, stopServer := context.WithCancel(ctx)
	defer stopServer()

	if *listen != "" {
		ws := monitor.NewWebServer(monitor.WebServerConfig{
			Address: *listen,
			Stats:   stats,
			DB:      database,
			Hub:     hub,
		})
		wg.Add(1)
		go func() {
			defer wg.Done()
			ws.Start(serverCtx)
		}()
	}

	// Periodic progress logging and websocket broadcast.
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(time.Duration(*logInterval) * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				snap := stats.Snapshot()
				log.Printf("[run] %d/%d frames (%.1f%%), %.1f frames/s",
					snap.FramesDone, snap.FramesTotal, snap.Percent, snap.FramesPerSec)
				hub.Broadcast(snap)
			case <-serverCtx.Done():
				return
			}
		}
	}()

	extractor, err := pipeline.NewExtractor(pipeline.Config{
		Source:    source,
		Schedule:  schedule,
		Detectors: detectors,
		Workers:   pickWorkers(cfg),
		Progress: func(fr *pipeline.FrameReading, processed, total int) {
			if fr.DecodeFailed {
				stats.AddDecodeFailure()
			}
			stats.AddFrame(fr.FailedRoles())
		},
	})
	if err != nil {
		log.Printf("failed to build extractor: %v", err)
		return exitError
	}

	ts, err := extractor.Run(ctx, start, end, stride)
	cancelled := errors.Is(err, pipeline.ErrCancelled)
	if err != nil && !cancelled {
		log.Printf("extraction failed: %v", err)
		_ = database.FinishRun(runID, db.RunStatusFailed, 0, 0, 0)
		return exitError
	}
	if cancelled {
		log.Printf("[run] cancelled with %d of %d frames extracted (contiguous through frame %d)",
			len(ts.Readings), frames, ts.HighestContiguous())
	}

	cleaner := series.NewCleaner(cfg)
	cleaner.T0Frame = *t0Frame
	cs := cleaner.Clean(ts)

	if err := database.SaveSeries(runID, cs, cfg.GetBatchSize()); err != nil {
		log.Printf("failed to persist series: %v", err)
		return exitError
	}

	summary := ts.Summarize()
	status := db.RunStatusComplete
	if cancelled {
		status = db.RunStatusCancelled
	}
	if err := database.FinishRun(runID, status, cs.T0Frame, summary.Frames, summary.FailedFrames); err != nil {
		log.Printf("failed to finish run: %v", err)
		return exitError
	}

	if *plotsDir != "" {
		count, err := monitor.NewFlightPlotter(*plotsDir).GeneratePlots(cs)
		if err != nil {
			log.Printf("failed to generate plots: %v", err)
			return exitError
		}
		log.Printf("[run] wrote %d plots to %s", count, *plotsDir)
	}

	printSummary(runID, summary, cs)

	stopServer()
	wg.Wait()

	if cancelled {
		return exitIncomplete
	}
	return exitOK
}

// pickWorkers prefers the -workers flag over the tuning config.
func pickWorkers(cfg *config.TuningConfig) int {
	if *workers > 0 {
		return *workers
	}
	return cfg.GetWorkers()
}

// buildInputs returns the schedule, frame source and text recognizer for
// the selected mode. The built-in recognizer reads the synthetic fixture
// encoding; production OCR backends plug in behind ocr.Recognizer.
func buildInputs() (*roi.Schedule, video.Source, ocr.Recognizer, error) {
	if *devMode {
		schedule, err := roi.ParseSchedule([]byte(devSchedule))
		if err != nil {
			return nil, nil, nil, fmt.Errorf("builtin schedule: %w", err)
		}
		source := &video.SyntheticSource{
			Width:  1920,
			Height: 1080,
			Frames: devFrames,
			Rate:   *fps,
			Paint:  devPainter,
		}
		return schedule, source, ocr.SyntheticRecognizer{}, nil
	}

	schedule, err := roi.LoadSchedule(*schedulePath)
	if err != nil {
		return nil, nil, nil, err
	}
	source, err := video.NewDirectorySource(*framesDir, *fps)
	if err != nil {
		return nil, nil, nil, err
	}
	if !*synthOCR {
		return nil, nil, nil, fmt.Errorf("no OCR backend is built in; pass -synthetic-ocr to run the fixture recognizer against %s", *framesDir)
	}
	log.Print("[run] using the fixture text recognizer; real frames will not produce readings")
	return schedule, source, ocr.SyntheticRecognizer{}, nil
}

// printSummary reports extraction outcomes per role plus the cleaned
// series' remaining invalid intervals.
func printSummary(runID string, summary pipeline.Summary, cs *series.CleanedSeries) {
	fmt.Printf("run %s\n", runID)
	fmt.Printf("  frames extracted: %d (%d decode failures, %d gaps)\n",
		summary.Frames, summary.FailedFrames, summary.Gaps)
	fmt.Printf("  T-0 at frame %.1f\n", cs.T0Frame)

	var roles []string
	for role := range summary.FailedByRole {
		roles = append(roles, role)
	}
	sort.Strings(roles)
	for _, role := range roles {
		fmt.Printf("  %-20s %d failed readings\n", role, summary.FailedByRole[role])
	}

	roles = roles[:0]
	for role := range cs.Roles {
		roles = append(roles, role)
	}
	sort.Strings(roles)
	for _, role := range roles {
		rs := cs.Roles[role]
		intervals := rs.InvalidIntervals()
		if len(intervals) == 0 {
			continue
		}
		fmt.Printf("  %-20s %d invalid intervals (first [%d, %d])\n",
			role, len(intervals), intervals[0].StartFrame, intervals[0].EndFrame)
	}

	if len(cs.Events) > 0 {
		fmt.Printf("  engine events: %d\n", len(cs.Events))
	}
}

// Dev mode renders a scripted 60-second launch: clock starts at T-10s,
// the booster throttles up through liftoff, and propellant drains
// linearly. It exercises every detector kind without needing footage.
const devFrames = 1800

const devLiftoffFrame = 300

const devSchedule = `{
  "version": 1,
  "time_unit": "frames",
  "rois": [
    {"id": "clock", "label": "T clock", "x": 860, "y": 950, "w": 200, "h": 40,
     "match_to_role": "time"},
    {"id": "sh-speed", "label": "booster speed", "x": 300, "y": 960, "w": 120, "h": 30,
     "match_to_role": "sh_speed"},
    {"id": "sh-alt", "label": "booster altitude", "x": 300, "y": 1000, "w": 120, "h": 30,
     "match_to_role": "sh_altitude"},
    {"id": "ss-speed", "label": "ship speed", "x": 1500, "y": 960, "w": 120, "h": 30,
     "match_to_role": "ss_speed"},
    {"id": "ss-alt", "label": "ship altitude", "x": 1500, "y": 1000, "w": 120, "h": 30,
     "match_to_role": "ss_altitude"},
    {"id": "sh-central", "label": "booster center engines", "x": 40, "y": 910, "w": 150, "h": 150,
     "match_to_role": "sh_engines_central"},
    {"id": "sh-fuel-lox", "label": "booster LOX", "x": 420, "y": 960, "w": 100, "h": 10,
     "match_to_role": "sh_fuel_lox"},
    {"id": "ss-fuel-lox", "label": "ship LOX", "x": 1620, "y": 960, "w": 100, "h": 10,
     "match_to_role": "ss_fuel_lox"}
  ]
}`

// devPainter draws the scripted overlay for one frame.
func devPainter(index int, img *image.RGBA) {
	t := float64(index-devLiftoffFrame) / 30.0 // seconds from liftoff

	// T clock.
	ocr.EncodeText(img, 860, 950, formatClock(t), 0.95)

	// Speeds and altitudes follow a crude constant-thrust profile, zero
	// before liftoff.
	speed := 0.0
	alt := 0.0
	if t > 0 {
		speed = 120 * t          // km/h
		alt = 0.004 * t * t * 10 // km
	}
	ocr.EncodeText(img, 300, 960, fmt.Sprintf("%d", int(speed)), 0.95)
	ocr.EncodeText(img, 300, 1000, fmt.Sprintf("%d", int(alt)), 0.95)
	ocr.EncodeText(img, 1500, 960, fmt.Sprintf("%d", int(speed*1.1)), 0.95)
	ocr.EncodeText(img, 1500, 1000, fmt.Sprintf("%d", int(alt*1.2)), 0.95)

	// Central engine bank lights three seconds before liftoff.
	if t > -3 {
		for _, p := range detect.EngineOffsets("sh_engines_central") {
			img.SetRGBA(40+p.X, 910+p.Y, color.RGBA{R: 255, G: 255, B: 255, A: 255})
		}
	}

	// Propellant gauges drain linearly after liftoff.
	fill := 1.0
	if t > 0 {
		fill = math.Max(0, 1.0-t/150.0)
	}
	paintDevGauge(img, 420, 960, 100, 10, fill)
	paintDevGauge(img, 1620, 960, 100, 10, fill)
}

// paintDevGauge draws an active gauge bar: mismatched reference pixels on
// the top row and a bright fill along the middle row.
func paintDevGauge(img *image.RGBA, x, y, w, h int, fill float64) {
	img.SetRGBA(x+1, y, color.RGBA{R: 10, G: 10, B: 10, A: 255})
	img.SetRGBA(x+3, y, color.RGBA{R: 240, G: 240, B: 240, A: 255})

	row := y + h/2
	for i := 0; i < w; i++ {
		c := color.RGBA{R: 15, G: 15, B: 15, A: 255}
		if float64(i) < fill*float64(w) {
			c = color.RGBA{R: 250, G: 250, B: 250, A: 255}
		}
		img.SetRGBA(x+i, row, c)
	}
}

// formatClock renders seconds-from-liftoff as the overlay clock string.
func formatClock(t float64) string {
	sign := "+"
	if t < 0 {
		sign = "-"
		t = -t
	}
	s := int(t)
	return fmt.Sprintf("T%s%02d:%02d:%02d", sign, s/3600, (s%3600)/60, s%60)
}
