package detect

import "image"

// Engine indicator offsets, relative to each engine-diagram ROI origin.
// Calibrated against the 1080p webcast overlay with the stock schedule
// rectangles: the booster diagram ROI at (40, 910) and the ship diagram
// ROI at (1740, 910).
var engineBanks = map[string][]image.Point{
	"sh_engines_central": {
		{69, 60}, {80, 79}, {58, 79},
	},
	"sh_engines_inner": {
		{62, 108}, {42, 96}, {34, 76}, {38, 54}, {54, 40},
		{76, 38}, {96, 48}, {104, 68}, {100, 90}, {84, 106},
	},
	"sh_engines_outer": {
		{66, 134}, {46, 130}, {30, 120}, {17, 106}, {9, 88},
		{7, 70}, {11, 50}, {21, 34}, {35, 20}, {53, 12},
		{72, 10}, {91, 14}, {108, 24}, {121, 38}, {129, 56},
		{131, 76}, {127, 95}, {117, 112}, {103, 124}, {85, 132},
	},
	"ss_engines_rearth": {
		{61, 76}, {90, 76}, {75, 102},
	},
	"ss_engines_rvac": {
		{24, 114}, {75, 27}, {126, 114},
	},
}

// Gauge reference offsets, relative to each propellant-gauge ROI origin.
// The bar occupies the full ROI width; the two reference samples sit on
// the gauge label just left of the bar and differ in brightness only when
// the overlay is drawing propellant data.
var gaugeRefs = map[string][2]image.Point{
	"sh_fuel_lox": {{1, 0}, {3, 0}},
	"sh_fuel_ch4": {{1, 0}, {3, 0}},
	"ss_fuel_lox": {{1, 0}, {3, 0}},
	"ss_fuel_ch4": {{1, 0}, {3, 0}},
}

// EngineOffsets returns the calibrated indicator offsets for an engine
// bank role, relative to the bank's ROI origin. Nil for unknown roles.
// Fixture generators use this to light the same pixels the detector
// samples.
func EngineOffsets(role string) []image.Point {
	offsets, ok := engineBanks[role]
	if !ok {
		return nil
	}
	out := make([]image.Point, len(offsets))
	copy(out, offsets)
	return out
}

// numericRange is the plausible display range for a numeric role. Values
// outside it are recognition failures (a confused digit, not physics).
type numericRange struct {
	min, max float64
}

// Display units: km/h for speed, km for altitude.
var numericRanges = map[string]numericRange{
	"sh_speed":    {0, 6000},
	"ss_speed":    {0, 28000},
	"sh_altitude": {0, 100},
	"ss_altitude": {0, 200},
}

// fallbackNumericRange covers numeric roles without a calibrated range.
var fallbackNumericRange = numericRange{0, 30000}

// clockRange bounds the T clock at one day either side of liftoff.
var clockRange = numericRange{-86400, 86400}
