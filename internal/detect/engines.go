package detect

import (
	"image"
)

// EngineBankDetector classifies a bank of engine indicator lamps as lit
// or unlit by sampling fixed offsets inside the engine-diagram ROI. An
// indicator counts as lit when every colour channel is at or above the
// calibrated white threshold (the overlay draws lit engines solid white).
type EngineBankDetector struct {
	role           string
	offsets        []image.Point // sample positions relative to the ROI origin
	whiteThreshold int
}

// Role returns the telemetry role this detector serves.
func (d *EngineBankDetector) Role() string { return d.role }

// DetectorKind returns KindEngines.
func (d *EngineBankDetector) DetectorKind() Kind { return KindEngines }

// Engines returns the number of engines in the bank.
func (d *EngineBankDetector) Engines() int { return len(d.offsets) }

// Detect samples each engine's indicator pixel. Offsets that fall outside
// the crop read as unlit rather than failing the bank: a partially
// clipped diagram still yields the visible engines.
func (d *EngineBankDetector) Detect(crop image.Image) RoleReading {
	b := crop.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return Failed(d.role, KindEngines, "empty crop")
	}

	lit := make([]bool, len(d.offsets))
	for i, off := range d.offsets {
		x := b.Min.X + off.X
		y := b.Min.Y + off.Y
		if x < b.Min.X || x >= b.Max.X || y < b.Min.Y || y >= b.Max.Y {
			continue
		}
		r, g, bl, _ := crop.At(x, y).RGBA()
		t := uint32(d.whiteThreshold) << 8
		lit[i] = r >= t && g >= t && bl >= t
	}

	reading := RoleReading{Role: d.role, Kind: KindEngines, Status: StatusOK, Lit: lit}
	reading.Value = float64(reading.LitCount())
	return reading
}
