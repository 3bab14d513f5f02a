package monitor

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/banshee-data/launchtrace/internal/series"
)

func testCleanedSeries() *series.CleanedSeries {
	speed := &series.RoleSeries{Role: "ss_speed"}
	accel := &series.RoleSeries{Role: "ss_acceleration"}
	for i := 0; i < 50; i++ {
		t := float64(i) / 30.0
		valid := i != 25 // one broken point to exercise the gap path
		speed.Samples = append(speed.Samples, series.Sample{
			Frame: i, Time: t, Value: float64(i) * 10, Valid: valid, Flag: series.FlagMeasured,
		})
		accel.Samples = append(accel.Samples, series.Sample{
			Frame: i, Time: t, Value: 9.5, Valid: valid, Flag: series.FlagMeasured,
		})
	}
	return &series.CleanedSeries{
		FPS:     30,
		Roles:   map[string]*series.RoleSeries{"ss_speed": speed},
		Derived: map[string]*series.RoleSeries{"ss_acceleration": accel},
	}
}

func TestFlightPlotter_GeneratePlots(t *testing.T) {
	dir := t.TempDir()
	fp := NewFlightPlotter(dir)

	count, err := fp.GeneratePlots(testCleanedSeries())
	if err != nil {
		t.Fatalf("GeneratePlots failed: %v", err)
	}
	// Only the speed and acceleration groups have data.
	if count != 2 {
		t.Errorf("count = %d, want 2", count)
	}

	for _, name := range []string{"speed.png", "acceleration.png"} {
		info, err := os.Stat(filepath.Join(dir, name))
		if err != nil {
			t.Errorf("expected %s: %v", name, err)
			continue
		}
		if info.Size() == 0 {
			t.Errorf("%s is empty", name)
		}
	}

	// Groups with no data must not leave files behind.
	if _, err := os.Stat(filepath.Join(dir, "altitude.png")); !os.IsNotExist(err) {
		t.Error("altitude.png should not exist for a run without altitude roles")
	}
}

func TestFlightPlotter_NoOutputDir(t *testing.T) {
	fp := NewFlightPlotter("")
	if _, err := fp.GeneratePlots(testCleanedSeries()); err == nil {
		t.Fatal("expected error with no output directory")
	}
}
