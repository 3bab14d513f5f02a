package detect

import (
	"fmt"
	"image"
)

// GaugeDetector reads a horizontal propellant-gauge ROI and maps the
// filled proportion of the bar to a fraction in [0, 1]. Two reference
// offsets just left of the bar decide whether the gauge is drawn at all:
// before the overlay shows propellant data their normalised brightness
// difference is flat and the gauge reads as absent.
type GaugeDetector struct {
	role          string
	refA, refB    image.Point // reference sample offsets relative to the ROI origin
	brightCutoff  float64     // normalised brightness above which a bar pixel counts as filled
	refDiffCutoff float64     // minimum normalised ref-pixel difference for an active gauge
}

// Role returns the telemetry role this detector serves.
func (d *GaugeDetector) Role() string { return d.role }

// DetectorKind returns KindGauge.
func (d *GaugeDetector) DetectorKind() Kind { return KindGauge }

// grayAt returns the 8-bit luminance of the pixel at crop-relative (x, y).
func grayAt(img image.Image, x, y int) float64 {
	b := img.Bounds()
	r, g, bl, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
	// Rec. 601 luma, matching a grayscale conversion of the frame.
	return (0.299*float64(r) + 0.587*float64(g) + 0.114*float64(bl)) / 257.0
}

// Detect measures the filled fraction of the gauge bar along the middle
// row of the crop. The result is clamped to [0, 1]; implausible jumps
// between adjacent frames are adjudicated later by the cleaning stage,
// which has the ordered series.
func (d *GaugeDetector) Detect(crop image.Image) RoleReading {
	b := crop.Bounds()
	w, h := b.Dx(), b.Dy()
	if w < 4 || h < 1 {
		return Failed(d.role, KindGauge, "crop too small for gauge")
	}

	inBounds := func(p image.Point) bool {
		return p.X >= 0 && p.X < w && p.Y >= 0 && p.Y < h
	}
	if !inBounds(d.refA) || !inBounds(d.refB) {
		return Failed(d.role, KindGauge, "reference pixels outside crop")
	}

	row := h / 2
	profile := make([]float64, w)
	lo, hi := 255.0, 0.0
	for x := 0; x < w; x++ {
		v := grayAt(crop, x, row)
		profile[x] = v
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	span := hi - lo
	if span == 0 {
		span = 1
	}

	refDiff := (grayAt(crop, d.refB.X, d.refB.Y) - grayAt(crop, d.refA.X, d.refA.Y)) / span
	if refDiff < 0 {
		refDiff = -refDiff
	}
	if refDiff <= d.refDiffCutoff {
		return Failed(d.role, KindGauge, fmt.Sprintf("gauge not active (ref diff %.3f)", refDiff))
	}

	// Rightmost bright pixel marks the fill boundary.
	fillEnd := -1
	for x := 0; x < w; x++ {
		if (profile[x]-lo)/span > d.brightCutoff {
			fillEnd = x
		}
	}
	if fillEnd < 0 {
		return RoleReading{Role: d.role, Kind: KindGauge, Status: StatusOK, Value: 0}
	}

	fraction := float64(fillEnd+1) / float64(w)
	if fraction > 1 {
		fraction = 1
	}
	return RoleReading{Role: d.role, Kind: KindGauge, Status: StatusOK, Value: fraction}
}
