package detect

import (
	"fmt"
	"image"
	"strings"

	"github.com/banshee-data/launchtrace/internal/config"
	"github.com/banshee-data/launchtrace/internal/ocr"
)

// Detector is the common capability of all detector variants. The
// pipeline dispatches crops to detectors by role without knowing which
// variant serves it, so new kinds can be added without touching the
// pipeline.
type Detector interface {
	Role() string
	DetectorKind() Kind
	Detect(crop image.Image) RoleReading
}

// Set holds one detector per telemetry role, built once per run from the
// schedule's roles.
type Set struct {
	detectors map[string]Detector
}

// NewSet builds detectors for every role. An unrecognizable role is a
// configuration error reported here, before any frame is processed.
func NewSet(roles []string, recognizer ocr.Recognizer, cfg *config.TuningConfig) (*Set, error) {
	s := &Set{detectors: make(map[string]Detector, len(roles))}
	for _, role := range roles {
		d, err := buildDetector(role, recognizer, cfg)
		if err != nil {
			return nil, err
		}
		s.detectors[role] = d
	}
	return s, nil
}

// buildDetector classifies a role and constructs the matching variant.
func buildDetector(role string, recognizer ocr.Recognizer, cfg *config.TuningConfig) (Detector, error) {
	switch {
	case role == "time":
		return &NumericDetector{
			role:          role,
			kind:          KindClock,
			recognizer:    recognizer,
			minConfidence: cfg.GetMinConfidence(),
			min:           clockRange.min,
			max:           clockRange.max,
		}, nil

	case strings.Contains(role, "_engines_"):
		offsets, ok := engineBanks[role]
		if !ok {
			return nil, fmt.Errorf("engine role %q has no calibrated bank", role)
		}
		return &EngineBankDetector{
			role:           role,
			offsets:        offsets,
			whiteThreshold: cfg.GetWhiteThreshold(),
		}, nil

	case strings.Contains(role, "_fuel_"):
		refs, ok := gaugeRefs[role]
		if !ok {
			return nil, fmt.Errorf("fuel role %q has no calibrated gauge references", role)
		}
		return &GaugeDetector{
			role:          role,
			refA:          refs[0],
			refB:          refs[1],
			brightCutoff:  cfg.GetGaugeBrightCutoff(),
			refDiffCutoff: cfg.GetGaugeRefDiffCutoff(),
		}, nil

	case strings.HasSuffix(role, "_speed") || strings.HasSuffix(role, "_altitude"):
		rng, ok := numericRanges[role]
		if !ok {
			rng = fallbackNumericRange
		}
		return &NumericDetector{
			role:          role,
			kind:          KindNumeric,
			recognizer:    recognizer,
			minConfidence: cfg.GetMinConfidence(),
			min:           rng.min,
			max:           rng.max,
		}, nil

	default:
		return nil, fmt.Errorf("role %q does not match any detector variant", role)
	}
}

// For returns the detector serving role.
func (s *Set) For(role string) (Detector, bool) {
	d, ok := s.detectors[role]
	return d, ok
}

// Roles returns the number of roles with detectors.
func (s *Set) Roles() int {
	return len(s.detectors)
}
