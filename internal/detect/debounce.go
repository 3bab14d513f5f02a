package detect

// EngineState tracks one engine's debounced ignition flag. A state flip
// must persist for K consecutive observed frames before it is accepted;
// shorter runs (single-frame flicker from compression artifacts) are
// absorbed. The accepted transition is timestamped at the first frame of
// the sustained run.
//
// EngineState is fed in frame order by the cleaning stage, after the
// assembler has ordered the series; extraction itself stays stateless so
// frames can be processed in parallel.
type EngineState struct {
	k int

	seeded       bool
	lit          bool
	pending      bool
	pendingCount int
	pendingStart int
}

// NewEngineState returns a debouncer requiring k consecutive frames. k
// of 1 accepts every flip immediately.
func NewEngineState(k int) *EngineState {
	if k < 1 {
		k = 1
	}
	return &EngineState{k: k}
}

// Lit returns the current accepted ignition state.
func (s *EngineState) Lit() bool { return s.lit }

// Update feeds one observed frame. It returns whether the accepted state
// changed, and if so the frame index at which the sustained run began.
func (s *EngineState) Update(frame int, lit bool) (changed bool, at int) {
	if !s.seeded {
		// First observation seeds the state without debouncing.
		s.seeded = true
		s.lit = lit
		return false, 0
	}

	if lit == s.lit {
		// Observation agrees with the accepted state; any pending flip
		// was flicker.
		s.pendingCount = 0
		return false, 0
	}

	if s.pendingCount == 0 || lit != s.pending {
		s.pending = lit
		s.pendingCount = 1
		s.pendingStart = frame
	} else {
		s.pendingCount++
	}

	if s.pendingCount >= s.k {
		s.lit = lit
		s.pendingCount = 0
		return true, s.pendingStart
	}
	return false, 0
}

// Reset clears all state, for when the engine's ROI goes out of window.
func (s *EngineState) Reset() {
	s.seeded = false
	s.lit = false
	s.pendingCount = 0
}
