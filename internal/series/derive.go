package series

import (
	"strings"

	"github.com/banshee-data/launchtrace/internal/units"
)

// derive computes acceleration and G-force series from each cleaned
// speed series. Differencing spans the configured frame stride, so a
// single frame of display jitter does not swamp the derivative.
func (c *Cleaner) derive(cs *CleanedSeries) {
	stride := c.cfg.GetDeriveStride()
	maxAccel := c.cfg.GetMaxAcceleration()

	for role, rs := range cs.Roles {
		if !strings.HasSuffix(role, "_speed") {
			continue
		}
		vehicle := strings.TrimSuffix(role, "_speed")
		accel := differentiate(rs, vehicle+"_acceleration", stride, maxAccel)
		cs.Derived[accel.Role] = accel

		g := &RoleSeries{Role: vehicle + "_g_force", Samples: make([]Sample, len(accel.Samples))}
		for i, s := range accel.Samples {
			g.Samples[i] = Sample{
				Frame: s.Frame,
				Time:  s.Time,
				Value: units.AccelToG(s.Value),
				Valid: s.Valid,
				Flag:  s.Flag,
			}
			if !s.Valid {
				g.Samples[i].Value = 0
			}
		}
		cs.Derived[g.Role] = g
	}
}

// differentiate produces d(speed)/dt in m/s^2 from a km/h speed series.
// A sample is valid only when every sample in its stride window is valid
// and the result stays under the physical ceiling; an unresolved gap
// anywhere inside the window therefore yields invalid derivatives, not a
// spurious spike.
func differentiate(rs *RoleSeries, role string, stride int, maxAccel float64) *RoleSeries {
	n := len(rs.Samples)
	out := &RoleSeries{Role: role, Samples: make([]Sample, n)}

	lastInvalid := -1
	for i := 0; i < n; i++ {
		if !rs.Samples[i].Valid {
			lastInvalid = i
		}
		s := Sample{
			Frame: rs.Samples[i].Frame,
			Time:  rs.Samples[i].Time,
			Valid: false,
			Flag:  FlagMissing,
		}
		j := i - stride
		// lastInvalid < j means the whole window [j, i] is valid.
		if j >= 0 && lastInvalid < j {
			dt := rs.Samples[i].Time - rs.Samples[j].Time
			if dt > 0 {
				dv := units.KMHToMPS(rs.Samples[i].Value) - units.KMHToMPS(rs.Samples[j].Value)
				a := dv / dt
				if a <= maxAccel && a >= -maxAccel {
					s.Value = a
					s.Valid = true
					s.Flag = FlagMeasured
				} else {
					s.Flag = FlagOutlier
				}
			}
		}
		out.Samples[i] = s
	}
	return out
}
