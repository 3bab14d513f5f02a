package monitor

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/launchtrace/internal/series"
)

// FlightPlotter renders a cleaned run to PNG time-series plots, one file
// per metric group. Invalid samples are dropped from the line so gaps
// show as breaks instead of dives to zero.
type FlightPlotter struct {
	outputDir string
}

// NewFlightPlotter creates a plotter writing into outputDir.
func NewFlightPlotter(outputDir string) *FlightPlotter {
	return &FlightPlotter{outputDir: outputDir}
}

// plotGroup is one output file: the roles drawn together and the axis label.
type plotGroup struct {
	name  string
	yAxis string
	roles []string
}

var plotGroups = []plotGroup{
	{"speed", "Speed (km/h)", []string{"sh_speed", "ss_speed"}},
	{"altitude", "Altitude (km)", []string{"sh_altitude", "ss_altitude"}},
	{"acceleration", "Acceleration (m/s^2)", []string{"sh_acceleration", "ss_acceleration"}},
	{"g_force", "G-Force", []string{"sh_g_force", "ss_g_force"}},
	{"engines", "Engines Lit", []string{"sh_engines_all", "ss_engines_all"}},
	{"fuel", "Fuel Fraction", []string{"sh_fuel_lox", "sh_fuel_ch4", "ss_fuel_lox", "ss_fuel_ch4"}},
}

// GeneratePlots creates PNG files for each metric group present in the
// cleaned series. Returns the number of plots generated and any error.
func (fp *FlightPlotter) GeneratePlots(cs *series.CleanedSeries) (int, error) {
	if fp.outputDir == "" {
		return 0, fmt.Errorf("no output directory configured")
	}
	if err := os.MkdirAll(fp.outputDir, 0755); err != nil {
		return 0, fmt.Errorf("failed to create output dir: %w", err)
	}

	plotCount := 0
	for _, group := range plotGroups {
		generated, err := fp.generateGroupPlot(cs, group)
		if err != nil {
			return plotCount, fmt.Errorf("%s: %w", group.name, err)
		}
		if generated {
			plotCount++
		}
	}

	return plotCount, nil
}

// generateGroupPlot draws one metric group. Returns false when none of
// the group's roles exist in the run.
func (fp *FlightPlotter) generateGroupPlot(cs *series.CleanedSeries, group plotGroup) (bool, error) {
	p := plot.New()
	p.Title.Text = group.name
	p.X.Label.Text = "T (s)"
	p.Y.Label.Text = group.yAxis

	colors := generateColors(len(group.roles))

	added := false
	for i, role := range group.roles {
		rs := cs.Role(role)
		if rs == nil {
			continue
		}

		pts := make(plotter.XYs, 0, len(rs.Samples))
		for _, s := range rs.Samples {
			if !s.Valid {
				continue
			}
			pts = append(pts, plotter.XY{X: s.Time, Y: s.Value})
		}
		if len(pts) == 0 {
			continue
		}

		line, err := plotter.NewLine(pts)
		if err != nil {
			return false, err
		}
		line.Color = colors[i]
		line.Width = vg.Points(1)
		p.Add(line)
		p.Legend.Add(role, line)
		added = true
	}

	if !added {
		return false, nil
	}

	p.Legend.Top = true
	file := filepath.Join(fp.outputDir, group.name+".png")
	if err := p.Save(14*vg.Inch, 6*vg.Inch, file); err != nil {
		return false, fmt.Errorf("failed to save %s: %w", file, err)
	}
	return true, nil
}

// generateColors returns n evenly spaced hues.
func generateColors(n int) []color.Color {
	if n <= 0 {
		return nil
	}

	colors := make([]color.Color, n)
	for i := 0; i < n; i++ {
		hue := float64(i) / float64(n)
		r, g, b := hslToRGB(hue, 0.7, 0.5)
		colors[i] = color.RGBA{R: r, G: g, B: b, A: 255}
	}
	return colors
}

// hslToRGB converts HSL to RGB (0-255 range)
func hslToRGB(h, s, l float64) (r, g, b uint8) {
	var rf, gf, bf float64

	if s == 0 {
		rf, gf, bf = l, l, l
	} else {
		hue2rgb := func(p, q, t float64) float64 {
			if t < 0 {
				t += 1
			}
			if t > 1 {
				t -= 1
			}
			if t < 1.0/6.0 {
				return p + (q-p)*6*t
			}
			if t < 1.0/2.0 {
				return q
			}
			if t < 2.0/3.0 {
				return p + (q-p)*(2.0/3.0-t)*6
			}
			return p
		}

		var q float64
		if l < 0.5 {
			q = l * (1 + s)
		} else {
			q = l + s - l*s
		}
		p := 2*l - q

		rf = hue2rgb(p, q, h+1.0/3.0)
		gf = hue2rgb(p, q, h)
		bf = hue2rgb(p, q, h-1.0/3.0)
	}

	return uint8(rf * 255), uint8(gf * 255), uint8(bf * 255)
}
