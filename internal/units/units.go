// Package units provides shared constants and conversions for telemetry units.
package units

// Unit constants for values as displayed on the webcast overlay and as
// stored internally.
const (
	KMH = "kmh"
	MPS = "mps"
	KM  = "km"
	M   = "m"
)

// StandardGravity is the conversion factor between acceleration in m/s²
// and G-force (1 g = 9.81 m/s²).
const StandardGravity = 9.81

// KMHToMPS converts a speed from kilometres per hour (the overlay display
// unit) to metres per second (the internal unit).
func KMHToMPS(kmh float64) float64 {
	return kmh * (1000.0 / 3600.0)
}

// MPSToKMH converts a speed from metres per second to kilometres per hour.
func MPSToKMH(mps float64) float64 {
	return mps * 3.6
}

// KMToM converts an altitude from kilometres (the overlay display unit)
// to metres.
func KMToM(km float64) float64 {
	return km * 1000.0
}

// AccelToG converts an acceleration in m/s² to G-force.
func AccelToG(accel float64) float64 {
	return accel / StandardGravity
}
