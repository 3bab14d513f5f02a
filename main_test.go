package main

import (
	"context"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/banshee-data/launchtrace/internal/config"
	"github.com/banshee-data/launchtrace/internal/detect"
	"github.com/banshee-data/launchtrace/internal/ocr"
	"github.com/banshee-data/launchtrace/internal/pipeline"
	"github.com/banshee-data/launchtrace/internal/roi"
	"github.com/banshee-data/launchtrace/internal/series"
	"github.com/banshee-data/launchtrace/internal/video"
)

func TestDevScheduleParses(t *testing.T) {
	schedule, err := roi.ParseSchedule([]byte(devSchedule))
	if err != nil {
		t.Fatalf("built-in schedule failed to parse: %v", err)
	}
	roles := schedule.Roles()
	want := map[string]bool{
		"time": false, "sh_speed": false, "sh_altitude": false,
		"ss_speed": false, "ss_altitude": false,
		"sh_engines_central": false, "sh_fuel_lox": false, "ss_fuel_lox": false,
	}
	for _, r := range roles {
		if _, ok := want[r]; !ok {
			t.Errorf("unexpected role %q", r)
		}
		want[r] = true
	}
	for r, seen := range want {
		if !seen {
			t.Errorf("role %q missing from built-in schedule", r)
		}
	}
}

func TestFormatClock(t *testing.T) {
	cases := []struct {
		t    float64
		want string
	}{
		{0, "T+00:00:00"},
		{-1, "T-00:00:01"},
		{59.9, "T+00:00:59"},
		{3661, "T+01:01:01"},
		{-10, "T-00:00:10"},
	}
	for _, c := range cases {
		if got := formatClock(c.t); got != c.want {
			t.Errorf("formatClock(%v) = %q, want %q", c.t, got, c.want)
		}
	}
}

func TestBuildInputs_RequiresOCRBackend(t *testing.T) {
	dir := t.TempDir()
	schedFile := filepath.Join(dir, "rois.json")
	if err := os.WriteFile(schedFile, []byte(devSchedule), 0644); err != nil {
		t.Fatal(err)
	}
	framesPath := filepath.Join(dir, "frames")
	if err := os.Mkdir(framesPath, 0755); err != nil {
		t.Fatal(err)
	}
	f, err := os.Create(filepath.Join(framesPath, "frame_0001.png"))
	if err != nil {
		t.Fatal(err)
	}
	if err := png.Encode(f, image.NewRGBA(image.Rect(0, 0, 8, 8))); err != nil {
		t.Fatal(err)
	}
	f.Close()

	oldDev, oldSched, oldFrames, oldSynth := *devMode, *schedulePath, *framesDir, *synthOCR
	defer func() {
		*devMode, *schedulePath, *framesDir, *synthOCR = oldDev, oldSched, oldFrames, oldSynth
	}()
	*devMode = false
	*schedulePath = schedFile
	*framesDir = framesPath

	*synthOCR = false
	if _, _, _, err := buildInputs(); err == nil {
		t.Fatal("expected an error when no OCR backend is selected for real frames")
	}

	*synthOCR = true
	_, source, recognizer, err := buildInputs()
	if err != nil {
		t.Fatalf("buildInputs with -synthetic-ocr failed: %v", err)
	}
	if source == nil || recognizer == nil {
		t.Fatal("expected a source and recognizer")
	}
}

// TestDevRun_LiftoffWindow extracts a slice of the scripted launch around
// liftoff and checks that the cleaned series reflects the script.
func TestDevRun_LiftoffWindow(t *testing.T) {
	schedule, err := roi.ParseSchedule([]byte(devSchedule))
	if err != nil {
		t.Fatalf("ParseSchedule failed: %v", err)
	}
	source := &video.SyntheticSource{
		Width:  1920,
		Height: 1080,
		Frames: devFrames,
		Rate:   30,
		Paint:  devPainter,
	}
	cfg := config.EmptyTuningConfig()
	detectors, err := detect.NewSet(schedule.Roles(), ocr.SyntheticRecognizer{}, cfg)
	if err != nil {
		t.Fatalf("NewSet failed: %v", err)
	}
	extractor, err := pipeline.NewExtractor(pipeline.Config{
		Source:    source,
		Schedule:  schedule,
		Detectors: detectors,
		Workers:   4,
	})
	if err != nil {
		t.Fatalf("NewExtractor failed: %v", err)
	}

	// 30 frames before liftoff to 57 after, every 3rd frame.
	ts, err := extractor.Run(context.Background(), 270, 360, 3)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(ts.Gaps) != 0 {
		t.Fatalf("synthetic run produced gaps: %v", ts.Gaps)
	}

	cs := series.NewCleaner(cfg).Clean(ts)

	// The first sampled frame shows an exact-second clock value, so T-0
	// anchors on it: frame 270 reads T-00:00:01.
	if cs.T0Frame != 300 {
		t.Errorf("T0Frame = %v, want 300", cs.T0Frame)
	}

	speed := cs.Role("sh_speed")
	if speed == nil {
		t.Fatal("sh_speed series missing")
	}
	sampleAt := func(rs *series.RoleSeries, frame int) series.Sample {
		t.Helper()
		for _, s := range rs.Samples {
			if s.Frame == frame {
				return s
			}
		}
		t.Fatalf("no sample at frame %d in %s", frame, rs.Role)
		return series.Sample{}
	}

	// Zero until liftoff, then 120 km/h per second of flight.
	if s := sampleAt(speed, 285); !s.Valid || s.Value != 0 {
		t.Errorf("pre-liftoff speed = %+v, want valid 0", s)
	}
	if s := sampleAt(speed, 330); !s.Valid || s.Value != 120 {
		t.Errorf("speed at T+1 = %+v, want valid 120", s)
	}
	if s := sampleAt(speed, 330); s.Time != 1.0 {
		t.Errorf("time at frame 330 = %v, want 1.0", s.Time)
	}

	// The central bank is lit throughout this window; once debounce
	// settles, every engine counts.
	engines := cs.Role("sh_engines_central")
	if engines == nil {
		t.Fatal("sh_engines_central series missing")
	}
	banks := len(detect.EngineOffsets("sh_engines_central"))
	last := engines.Samples[len(engines.Samples)-1]
	if !last.Valid || last.Value != float64(banks) {
		t.Errorf("engine count = %+v, want %d", last, banks)
	}

	// Propellant has barely drained two seconds into flight.
	fuel := cs.Role("sh_fuel_lox")
	if fuel == nil {
		t.Fatal("sh_fuel_lox series missing")
	}
	if s := fuel.Samples[len(fuel.Samples)-1]; !s.Valid || s.Value < 0.9 || s.Value > 1.0 {
		t.Errorf("fuel level = %+v, want valid in [0.9, 1.0]", s)
	}

	// Acceleration derives from the speed ramp: 120 km/h/s is 33.3 m/s².
	accel := cs.Role("sh_acceleration")
	if accel == nil {
		t.Fatal("sh_acceleration series missing")
	}
	if s := sampleAt(accel, 357); !s.Valid || s.Value < 30 || s.Value > 37 {
		t.Errorf("acceleration = %+v, want valid ~33.3", s)
	}
}
