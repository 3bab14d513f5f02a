package detect

import (
	"fmt"
	"image"
	"regexp"
	"strconv"
	"strings"

	"github.com/banshee-data/launchtrace/internal/ocr"
)

// ocrConfusions maps characters the recognizer commonly mistakes for
// visually similar digits on the overlay font.
var ocrConfusions = strings.NewReplacer(
	"O", "0",
	"o", "0",
	"D", "0",
	"l", "1",
	"I", "1",
	"i", "1",
	"S", "5",
	"s", "5",
	"B", "8",
	"Z", "2",
	"g", "9",
)

var (
	numberRe = regexp.MustCompile(`\d+`)
	clockRe  = regexp.MustCompile(`[+-]\d{2}:\d{2}:\d{2}`)
)

// CleanText repairs digit confusions and strips everything the overlay
// never displays, leaving digits, sign, colon and whitespace.
func CleanText(text string) string {
	repaired := ocrConfusions.Replace(text)
	var b strings.Builder
	for _, c := range repaired {
		switch {
		case c >= '0' && c <= '9', c == '+', c == '-', c == ':', c == ' ', c == '\n':
			b.WriteRune(c)
		}
	}
	return b.String()
}

// ParseNumber extracts the first integer group from cleaned text.
func ParseNumber(text string) (float64, error) {
	m := numberRe.FindString(text)
	if m == "" {
		return 0, fmt.Errorf("no numeric value in %q", text)
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse %q: %w", m, err)
	}
	return v, nil
}

// ParseClock extracts a signed T-clock value ([+-]HH:MM:SS) from cleaned
// text and returns it as signed seconds.
func ParseClock(text string) (float64, error) {
	m := clockRe.FindString(text)
	if m == "" {
		return 0, fmt.Errorf("no clock value in %q", text)
	}
	sign := 1.0
	if m[0] == '-' {
		sign = -1.0
	}
	parts := strings.Split(m[1:], ":")
	h, _ := strconv.Atoi(parts[0])
	mi, _ := strconv.Atoi(parts[1])
	s, _ := strconv.Atoi(parts[2])
	if mi > 59 || s > 59 {
		return 0, fmt.Errorf("implausible clock value %q", m)
	}
	return sign * float64(h*3600+mi*60+s), nil
}

// NumericDetector recognizes a numeric overlay field (speed, altitude or
// the T clock) and validates it against the role's plausible range.
type NumericDetector struct {
	role          string
	kind          Kind
	recognizer    ocr.Recognizer
	minConfidence float64
	min, max      float64
}

// Role returns the telemetry role this detector serves.
func (d *NumericDetector) Role() string { return d.role }

// DetectorKind returns KindNumeric or KindClock.
func (d *NumericDetector) DetectorKind() Kind { return d.kind }

// Detect recognizes and parses the crop. Confidence below the configured
// floor is a failure, never a silently accepted low-confidence value.
func (d *NumericDetector) Detect(crop image.Image) RoleReading {
	text, conf, err := d.recognizer.RecognizeText(crop)
	if err != nil {
		return Failed(d.role, d.kind, err.Error())
	}
	if conf < d.minConfidence {
		return Failed(d.role, d.kind, fmt.Sprintf("confidence %.2f below floor %.2f", conf, d.minConfidence))
	}

	cleaned := CleanText(text)
	var value float64
	if d.kind == KindClock {
		value, err = ParseClock(cleaned)
	} else {
		value, err = ParseNumber(cleaned)
	}
	if err != nil {
		return Failed(d.role, d.kind, err.Error())
	}
	if value < d.min || value > d.max {
		return Failed(d.role, d.kind, fmt.Sprintf("value %v outside plausible range [%v, %v]", value, d.min, d.max))
	}

	return RoleReading{Role: d.role, Kind: d.kind, Status: StatusOK, Value: value, Confidence: conf}
}
