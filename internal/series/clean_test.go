package series

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/launchtrace/internal/config"
	"github.com/banshee-data/launchtrace/internal/detect"
	"github.com/banshee-data/launchtrace/internal/pipeline"
)

func iptr(v int) *int         { return &v }
func fptr(v float64) *float64 { return &v }

// seriesOf builds an assembled run on a contiguous frame grid, one role
// per frame, from a generator returning the reading for each frame.
func seriesOf(n int, fps float64, gen func(i int) map[string]detect.RoleReading) *pipeline.TimeSeries {
	ts := &pipeline.TimeSeries{Start: 0, End: n, Stride: 1, FPS: fps}
	for i := 0; i < n; i++ {
		ts.Readings = append(ts.Readings, &pipeline.FrameReading{
			Index:     i,
			Timestamp: float64(i) / fps,
			Roles:     gen(i),
		})
	}
	return ts
}

func okReading(role string, v float64) detect.RoleReading {
	return detect.RoleReading{Role: role, Kind: detect.KindNumeric, Status: detect.StatusOK, Value: v, Confidence: 0.95}
}

func failedReading(role string) detect.RoleReading {
	return detect.RoleReading{Role: role, Kind: detect.KindNumeric, Status: detect.StatusFailed}
}

func TestClean_OutlierSpikeInterpolated(t *testing.T) {
	cfg := &config.TuningConfig{}
	ts := seriesOf(60, 30, func(i int) map[string]detect.RoleReading {
		v := float64(i) * 10
		if i == 30 {
			v = 25000 // single mangled readout
		}
		return map[string]detect.RoleReading{"ss_speed": okReading("ss_speed", v)}
	})

	cs := NewCleaner(cfg).Clean(ts)
	rs := cs.Role("ss_speed")
	require.NotNil(t, rs)
	require.Len(t, rs.Samples, 60)

	spike := rs.Samples[30]
	assert.True(t, spike.Valid, "rejected spike should be refilled by interpolation")
	assert.Equal(t, FlagInterpolated, spike.Flag)
	assert.InDelta(t, 300.0, spike.Value, 1e-9)

	// Neighbours are untouched measurements.
	assert.Equal(t, FlagMeasured, rs.Samples[29].Flag)
	assert.Equal(t, FlagMeasured, rs.Samples[31].Flag)
}

func TestClean_LongGapStaysInvalid(t *testing.T) {
	cfg := &config.TuningConfig{MaxGapFrames: iptr(5)}
	ts := seriesOf(60, 30, func(i int) map[string]detect.RoleReading {
		if i >= 20 && i < 40 {
			return map[string]detect.RoleReading{"ss_speed": failedReading("ss_speed")}
		}
		return map[string]detect.RoleReading{"ss_speed": okReading("ss_speed", float64(i)*10)}
	})

	cs := NewCleaner(cfg).Clean(ts)
	rs := cs.Role("ss_speed")
	require.NotNil(t, rs)

	for i := 20; i < 40; i++ {
		assert.False(t, rs.Samples[i].Valid, "frame %d inside a 20-frame gap must stay invalid", i)
		assert.Equal(t, FlagMissing, rs.Samples[i].Flag)
	}
	assert.True(t, rs.Samples[19].Valid)
	assert.True(t, rs.Samples[40].Valid)
}

func TestClean_ShortGapInterpolated(t *testing.T) {
	cfg := &config.TuningConfig{MaxGapFrames: iptr(5)}
	ts := seriesOf(20, 30, func(i int) map[string]detect.RoleReading {
		if i == 10 || i == 11 {
			return map[string]detect.RoleReading{"ss_altitude": failedReading("ss_altitude")}
		}
		return map[string]detect.RoleReading{"ss_altitude": okReading("ss_altitude", float64(i))}
	})

	cs := NewCleaner(cfg).Clean(ts)
	rs := cs.Role("ss_altitude")
	require.NotNil(t, rs)
	assert.Equal(t, FlagInterpolated, rs.Samples[10].Flag)
	assert.InDelta(t, 10.0, rs.Samples[10].Value, 1e-9)
	assert.InDelta(t, 11.0, rs.Samples[11].Value, 1e-9)
	assert.Equal(t, 20, rs.ValidCount())
}

func TestClean_EngineDebounceSuppressesFlicker(t *testing.T) {
	cfg := &config.TuningConfig{DebounceFrames: iptr(3)}
	ts := seriesOf(30, 30, func(i int) map[string]detect.RoleReading {
		lit := []bool{true, true, true}
		if i == 10 {
			lit[1] = false // one-frame dropout
		}
		if i >= 20 {
			lit = []bool{false, false, false} // real shutdown
		}
		return map[string]detect.RoleReading{"sh_engines_central": {
			Role: "sh_engines_central", Kind: detect.KindEngines, Status: detect.StatusOK, Lit: lit,
			Value: float64(len(lit)),
		}}
	})

	cs := NewCleaner(cfg).Clean(ts)
	rs := cs.Role("sh_engines_central")
	require.NotNil(t, rs)

	assert.Equal(t, 3.0, rs.Samples[10].Value, "single-frame dropout must be absorbed")
	assert.Equal(t, 3.0, rs.Samples[21].Value, "shutdown not yet sustained")
	assert.Equal(t, 0.0, rs.Samples[25].Value, "sustained shutdown accepted")

	// One shutdown event per engine, stamped at the start of the run.
	require.Len(t, cs.Events, 3)
	for _, ev := range cs.Events {
		assert.Equal(t, "sh_engines_central", ev.Role)
		assert.Equal(t, 20, ev.Frame)
		assert.False(t, ev.Lit)
	}
}

func TestClean_EngineAggregate(t *testing.T) {
	cfg := &config.TuningConfig{DebounceFrames: iptr(1)}
	ts := seriesOf(10, 30, func(i int) map[string]detect.RoleReading {
		return map[string]detect.RoleReading{
			"sh_engines_central": {Role: "sh_engines_central", Kind: detect.KindEngines, Status: detect.StatusOK, Lit: []bool{true, true, true}},
			"sh_engines_inner":   {Role: "sh_engines_inner", Kind: detect.KindEngines, Status: detect.StatusOK, Lit: []bool{true, true, false, false}},
		}
	})

	cs := NewCleaner(cfg).Clean(ts)
	all := cs.Role("sh_engines_all")
	require.NotNil(t, all)
	assert.Equal(t, 5.0, all.Samples[4].Value)
	assert.True(t, all.Samples[4].Valid)
}

func TestClean_T0FromClock(t *testing.T) {
	cfg := &config.TuningConfig{}
	ts := seriesOf(90, 30, func(i int) map[string]detect.RoleReading {
		roles := map[string]detect.RoleReading{"ss_speed": okReading("ss_speed", float64(i))}
		if i == 60 {
			// Clock reads T+1s at frame 60, so liftoff was frame 30.
			roles["time"] = detect.RoleReading{Role: "time", Kind: detect.KindClock, Status: detect.StatusOK, Value: 1.0, Confidence: 0.9}
		}
		return roles
	})

	cs := NewCleaner(cfg).Clean(ts)
	assert.InDelta(t, 30.0, cs.T0Frame, 1e-9)

	rs := cs.Role("ss_speed")
	require.NotNil(t, rs)
	assert.InDelta(t, -1.0, rs.Samples[0].Time, 1e-9)
	assert.InDelta(t, 0.0, rs.Samples[30].Time, 1e-9)
	assert.InDelta(t, 1.0, rs.Samples[60].Time, 1e-9)

	// The clock role itself is consumed, not published.
	assert.Nil(t, cs.Role("time"))
}

func TestClean_T0Override(t *testing.T) {
	cfg := &config.TuningConfig{}
	ts := seriesOf(10, 30, func(i int) map[string]detect.RoleReading {
		return map[string]detect.RoleReading{"ss_speed": okReading("ss_speed", 0)}
	})

	c := NewCleaner(cfg)
	c.T0Frame = 5
	cs := c.Clean(ts)
	assert.InDelta(t, 5.0, cs.T0Frame, 1e-9)
	assert.InDelta(t, -5.0/30.0, cs.Role("ss_speed").Samples[0].Time, 1e-9)
}

func TestClean_FuelJumpRejected(t *testing.T) {
	cfg := &config.TuningConfig{FuelJumpFraction: fptr(0.15)}
	ts := seriesOf(20, 30, func(i int) map[string]detect.RoleReading {
		v := 0.8
		if i == 10 {
			v = 0.2 // implausible single-frame drop
		}
		return map[string]detect.RoleReading{"sh_fuel_lox": {
			Role: "sh_fuel_lox", Kind: detect.KindGauge, Status: detect.StatusOK, Value: v,
		}}
	})

	cs := NewCleaner(cfg).Clean(ts)
	rs := cs.Role("sh_fuel_lox")
	require.NotNil(t, rs)
	assert.Equal(t, FlagInterpolated, rs.Samples[10].Flag)
	assert.InDelta(t, 0.8, rs.Samples[10].Value, 1e-9)
}

func TestClean_FuelJumpConfirmedLevelKept(t *testing.T) {
	cfg := &config.TuningConfig{FuelJumpFraction: fptr(0.15)}
	ts := seriesOf(20, 30, func(i int) map[string]detect.RoleReading {
		v := 0.8
		if i >= 10 {
			v = 0.3 // readout settles at the new level
		}
		return map[string]detect.RoleReading{"sh_fuel_lox": {
			Role: "sh_fuel_lox", Kind: detect.KindGauge, Status: detect.StatusOK, Value: v,
		}}
	})

	cs := NewCleaner(cfg).Clean(ts)
	rs := cs.Role("sh_fuel_lox")
	require.NotNil(t, rs)
	assert.Equal(t, FlagMeasured, rs.Samples[10].Flag)
	assert.InDelta(t, 0.3, rs.Samples[10].Value, 1e-9)
}

func TestClean_GapFramesFromAssembler(t *testing.T) {
	cfg := &config.TuningConfig{MaxGapFrames: iptr(50)}
	ts := seriesOf(10, 30, func(i int) map[string]detect.RoleReading {
		return map[string]detect.RoleReading{"ss_speed": okReading("ss_speed", float64(i))}
	})
	// Simulate a frame the extractor never produced.
	ts.Readings = append(ts.Readings[:5], ts.Readings[6:]...)
	ts.Gaps = []int{5}

	cs := NewCleaner(cfg).Clean(ts)
	rs := cs.Role("ss_speed")
	require.NotNil(t, rs)
	require.Len(t, rs.Samples, 10)
	assert.Equal(t, 5, rs.Samples[5].Frame)
	assert.Equal(t, FlagInterpolated, rs.Samples[5].Flag)
	assert.InDelta(t, 5.0, rs.Samples[5].Value, 1e-9)
}
