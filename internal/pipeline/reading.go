package pipeline

import (
	"github.com/banshee-data/launchtrace/internal/detect"
)

// FrameReading holds every role's raw extracted value for one frame.
// It is produced by a single worker, immutable once handed to the
// assembler, and carries an entry for every schedule role so downstream
// stages can distinguish failed from out-of-window without consulting
// the schedule again.
type FrameReading struct {
	Index     int
	Timestamp float64 // seconds from recording start
	Roles     map[string]detect.RoleReading

	// DecodeFailed is set when the frame itself could not be read; every
	// role is then marked failed.
	DecodeFailed bool
}

// FailedRoles returns the number of roles with a failed reading.
func (fr *FrameReading) FailedRoles() int {
	n := 0
	for _, r := range fr.Roles {
		if r.Status == detect.StatusFailed {
			n++
		}
	}
	return n
}
