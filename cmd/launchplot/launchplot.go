// Command launchplot renders plots and chart pages from stored
// extraction runs, without re-processing any frames.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/banshee-data/launchtrace/internal/db"
	"github.com/banshee-data/launchtrace/internal/monitor"
	"github.com/banshee-data/launchtrace/internal/version"
)

var (
	dbFile      = flag.String("db", "launch_data.db", "Path to the SQLite results database")
	runID       = flag.String("run", "", "Run ID to plot (empty = most recent run)")
	listRuns    = flag.Bool("list", false, "List stored runs and exit")
	plotsDir    = flag.String("plots", "", "Directory for PNG flight plots")
	htmlFile    = flag.String("html", "", "Output path for the interactive chart page")
	showVersion = flag.Bool("version", false, "Print version information and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("launchplot %s\n", version.String())
		return
	}

	database, err := db.NewDB(*dbFile)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer database.Close()

	if *listRuns {
		if err := printRuns(database); err != nil {
			log.Fatalf("failed to list runs: %v", err)
		}
		return
	}

	if *plotsDir == "" && *htmlFile == "" {
		log.Fatal("nothing to do: pass -plots and/or -html (or -list)")
	}

	id := *runID
	if id == "" {
		id, err = latestRun(database)
		if err != nil {
			log.Fatalf("failed to pick a run: %v", err)
		}
		log.Printf("[plot] using most recent run %s", id)
	}

	if *plotsDir != "" {
		cs, err := database.LoadSeries(id)
		if err != nil {
			log.Fatalf("failed to load series: %v", err)
		}
		count, err := monitor.NewFlightPlotter(*plotsDir).GeneratePlots(cs)
		if err != nil {
			log.Fatalf("failed to generate plots: %v", err)
		}
		log.Printf("[plot] wrote %d plots to %s", count, *plotsDir)
	}

	if *htmlFile != "" {
		if err := writeChartPage(database, id, *htmlFile); err != nil {
			log.Fatalf("failed to write chart page: %v", err)
		}
		log.Printf("[plot] wrote chart page to %s", *htmlFile)
	}
}

// latestRun returns the most recently started run's ID.
func latestRun(database *db.DB) (string, error) {
	runs, err := database.ListRuns(1)
	if err != nil {
		return "", err
	}
	if len(runs) == 0 {
		return "", fmt.Errorf("no runs stored in %s", *dbFile)
	}
	return runs[0].RunID, nil
}

func printRuns(database *db.DB) error {
	runs, err := database.ListRuns(0)
	if err != nil {
		return err
	}
	for _, r := range runs {
		fmt.Printf("%s  %-9s  frames [%d, %d) stride %d  %s\n",
			r.RunID, r.Status, r.FrameStart, r.FrameEnd, r.Stride, r.Video)
	}
	return nil
}

func writeChartPage(database *db.DB, id, path string) error {
	run, err := database.GetRun(id)
	if err != nil {
		return err
	}
	page, err := monitor.BuildFlightPage(database, run)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return page.Render(f)
}
