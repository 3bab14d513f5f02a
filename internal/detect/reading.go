// Package detect turns ROI crops into typed telemetry readings. Detector
// variants (numeric, engine bank, fuel gauge) share the Detect contract so
// the extraction pipeline can dispatch on role without knowing detector
// internals.
package detect

// Kind tags the detector variant that produced a reading.
type Kind int

const (
	KindNumeric Kind = iota
	KindClock
	KindEngines
	KindGauge
)

func (k Kind) String() string {
	switch k {
	case KindNumeric:
		return "numeric"
	case KindClock:
		return "clock"
	case KindEngines:
		return "engines"
	case KindGauge:
		return "gauge"
	default:
		return "unknown"
	}
}

// Status is the extraction outcome for one role on one frame. Failure is
// a recorded data state, not an error: a failed role never aborts a frame.
type Status int

const (
	// StatusOK means the reading carries a usable value.
	StatusOK Status = iota
	// StatusFailed means recognition or parsing failed for this role.
	StatusFailed
	// StatusOutOfWindow means no ROI served this role at this frame.
	StatusOutOfWindow
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusFailed:
		return "failed"
	case StatusOutOfWindow:
		return "out_of_window"
	default:
		return "unknown"
	}
}

// RoleReading is the raw extracted value for one role on one frame.
// Immutable once produced by a detector.
type RoleReading struct {
	Role       string
	Kind       Kind
	Status     Status
	Value      float64 // numeric telemetry, signed clock seconds, or gauge fraction
	Confidence float64 // recognition confidence for numeric roles, 0-1
	Lit        []bool  // per-engine ignition flags for engine-bank roles
	Cause      string  // short failure description when Status != StatusOK
}

// Failed returns a failed reading for role with a cause.
func Failed(role string, kind Kind, cause string) RoleReading {
	return RoleReading{Role: role, Kind: kind, Status: StatusFailed, Cause: cause}
}

// OutOfWindow returns an out-of-window reading for role.
func OutOfWindow(role string) RoleReading {
	return RoleReading{Role: role, Status: StatusOutOfWindow}
}

// LitCount returns the number of lit engines in an engine-bank reading.
func (r RoleReading) LitCount() int {
	n := 0
	for _, on := range r.Lit {
		if on {
			n++
		}
	}
	return n
}
