package detect

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bankDetector(offsets []image.Point, threshold int) *EngineBankDetector {
	return &EngineBankDetector{role: "ss_engines_rearth", offsets: offsets, whiteThreshold: threshold}
}

func TestEngineBankDetector_LitAndUnlit(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 100, 100))
	// Engine 0 lit (white), engine 1 unlit (dark), engine 2 grey below threshold.
	img.Set(10, 10, color.RGBA{255, 255, 255, 255})
	img.Set(20, 20, color.RGBA{10, 10, 10, 255})
	img.Set(30, 30, color.RGBA{200, 200, 200, 255})

	d := bankDetector([]image.Point{{10, 10}, {20, 20}, {30, 30}}, 240)
	r := d.Detect(img)

	require.Equal(t, StatusOK, r.Status)
	assert.Equal(t, []bool{true, false, false}, r.Lit)
	assert.Equal(t, 1, r.LitCount())
	assert.Equal(t, 1.0, r.Value)
}

func TestEngineBankDetector_NearWhiteCounts(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 50, 50))
	img.Set(5, 5, color.RGBA{245, 242, 250, 255})

	d := bankDetector([]image.Point{{5, 5}}, 240)
	r := d.Detect(img)
	assert.Equal(t, []bool{true}, r.Lit)
}

func TestEngineBankDetector_OutOfBoundsReadsUnlit(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 10, 10))
	d := bankDetector([]image.Point{{5, 5}, {50, 50}}, 240)
	r := d.Detect(img)
	require.Equal(t, StatusOK, r.Status)
	assert.Equal(t, []bool{false, false}, r.Lit)
}

func TestEngineBankDetector_EmptyCrop(t *testing.T) {
	d := bankDetector([]image.Point{{0, 0}}, 240)
	r := d.Detect(image.NewRGBA(image.Rect(0, 0, 0, 0)))
	assert.Equal(t, StatusFailed, r.Status)
}

func TestEngineState_FlickerSuppressed(t *testing.T) {
	s := NewEngineState(3)
	s.Update(0, false) // seed

	// Single-frame flicker: flips on for one frame then reverts.
	changed, _ := s.Update(1, true)
	assert.False(t, changed)
	changed, _ = s.Update(2, false)
	assert.False(t, changed)
	assert.False(t, s.Lit())
}

func TestEngineState_SustainedFlipAccepted(t *testing.T) {
	s := NewEngineState(3)
	s.Update(10, false) // seed

	changed, _ := s.Update(11, true)
	assert.False(t, changed)
	changed, _ = s.Update(12, true)
	assert.False(t, changed)
	changed, at := s.Update(13, true)
	assert.True(t, changed)
	// Transition timestamped at the first frame of the sustained run.
	assert.Equal(t, 11, at)
	assert.True(t, s.Lit())
}

func TestEngineState_FlickerThenSustained(t *testing.T) {
	s := NewEngineState(2)
	s.Update(0, false)

	s.Update(1, true)  // start of a run
	s.Update(2, false) // reverts: flicker absorbed
	assert.False(t, s.Lit())

	changed, _ := s.Update(3, true)
	assert.False(t, changed)
	changed, at := s.Update(4, true)
	assert.True(t, changed)
	assert.Equal(t, 3, at)
}

func TestEngineState_Reset(t *testing.T) {
	s := NewEngineState(2)
	s.Update(0, true)
	require.True(t, s.Lit())

	s.Reset()
	assert.False(t, s.Lit())

	// After reset the next observation seeds without debouncing.
	changed, _ := s.Update(100, true)
	assert.False(t, changed)
	assert.True(t, s.Lit())
}
