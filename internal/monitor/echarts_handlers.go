package monitor

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/launchtrace/internal/db"
)

// chartRoles are the stored series drawn on the flight dashboard, grouped
// per chart. Roles absent from the run are skipped.
var chartRoles = []struct {
	title string
	unit  string
	roles []string
}{
	{"Speed", "km/h", []string{"sh_speed", "ss_speed"}},
	{"Altitude", "km", []string{"sh_altitude", "ss_altitude"}},
	{"Acceleration", "m/s²", []string{"sh_acceleration", "ss_acceleration"}},
	{"G-Force", "g", []string{"sh_g_force", "ss_g_force"}},
	{"Engines Lit", "count", []string{"sh_engines_all", "ss_engines_all"}},
	{"Fuel Level", "fraction", []string{"sh_fuel_lox", "sh_fuel_ch4", "ss_fuel_lox", "ss_fuel_ch4"}},
}

// BuildFlightPage assembles the go-echarts dashboard for one stored run.
// Invalid samples break the line rather than plotting as zeros.
func BuildFlightPage(database *db.DB, run *db.Run) (*components.Page, error) {
	page := components.NewPage()
	page.PageTitle = "Flight Telemetry"

	for _, group := range chartRoles {
		line := charts.NewLine()
		line.SetGlobalOptions(
			charts.WithInitializationOpts(opts.Initialization{Width: "1200px", Height: "400px"}),
			charts.WithTitleOpts(opts.Title{
				Title:    group.title,
				Subtitle: fmt.Sprintf("run=%s video=%s", run.RunID, run.Video),
			}),
			charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
			charts.WithXAxisOpts(opts.XAxis{Name: "T (s)"}),
			charts.WithYAxisOpts(opts.YAxis{Name: group.unit}),
		)

		added := false
		for _, role := range group.roles {
			samples, err := database.Samples(run.RunID, role)
			if err != nil {
				return nil, err
			}
			if len(samples) == 0 {
				continue
			}

			var x []string
			var y []opts.LineData
			for _, s := range samples {
				x = append(x, fmt.Sprintf("%.2f", s.Time))
				if s.Valid {
					y = append(y, opts.LineData{Value: s.Value})
				} else {
					y = append(y, opts.LineData{Value: nil})
				}
			}
			if !added {
				line.SetXAxis(x)
			}
			line.AddSeries(role, y, charts.WithLineChartOpts(opts.LineChart{ConnectNulls: opts.Bool(false)}))
			added = true
		}
		if added {
			page.AddCharts(line)
		}
	}

	return page, nil
}

// handleFlightChart renders the dashboard HTML for one stored run.
// Query params:
//
//	run_id (required)
func (ws *WebServer) handleFlightChart(w http.ResponseWriter, r *http.Request) {
	if ws.db == nil {
		ws.writeJSONError(w, http.StatusNotFound, "no database configured")
		return
	}
	runID := r.URL.Query().Get("run_id")
	if runID == "" {
		ws.writeJSONError(w, http.StatusBadRequest, "run_id is required")
		return
	}

	run, err := ws.db.GetRun(runID)
	if err != nil {
		ws.writeJSONError(w, http.StatusNotFound, err.Error())
		return
	}

	page, err := BuildFlightPage(ws.db, run)
	if err != nil {
		ws.writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}

	var buf bytes.Buffer
	if err := page.Render(&buf); err != nil {
		ws.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("render error: %v", err))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}
