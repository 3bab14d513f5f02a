package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/banshee-data/launchtrace/internal/version"
)

var (
	devMode      = flag.Bool("dev", false, "Run against a built-in synthetic launch instead of real frames")
	framesDir    = flag.String("frames", "", "Directory of extracted webcast frames (PNG/JPEG, filename order)")
	schedulePath = flag.String("schedule", "", "Path to the ROI schedule JSON")
	configPath   = flag.String("config", "", "Path to the tuning config JSON (optional)")
	dbFile       = flag.String("db", "launch_data.db", "Path to the SQLite results database")
	fps          = flag.Float64("fps", 30, "Frame rate of the source recording")
	startFrame   = flag.Int("start", 0, "First frame of the extraction range")
	endFrame     = flag.Int("end", 0, "Frame after the last one to extract (0 = whole source)")
	sampleRate   = flag.Int("sample", 0, "Process every Nth frame (0 = tuning config default)")
	workers      = flag.Int("workers", 0, "Worker pool size (0 = all CPU cores)")
	t0Frame      = flag.Float64("t0", -1, "Liftoff frame override (-1 = detect from the T-clock ROI)")
	listen       = flag.String("listen", "", "HTTP listen address for live progress (empty = no server)")
	plotsDir     = flag.String("plots", "", "Directory for PNG flight plots (empty = no plots)")
	synthOCR     = flag.Bool("synthetic-ocr", false, "Use the fixture text recognizer on real frames (testing only)")
	debugLog     = flag.Bool("debug", false, "Enable pipeline debug logging")
	logInterval  = flag.Int("log-interval", 5, "Progress logging interval in seconds")
	showVersion  = flag.Bool("version", false, "Print version information and exit")
)

// Exit codes: 0 full range extracted (individual ROI failures are data,
// not errors), 1 configuration or I/O error, 2 cancelled before the
// range completed (partial results are persisted).
const (
	exitOK         = 0
	exitError      = 1
	exitIncomplete = 2
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("launchtrace %s\n", version.String())
		os.Exit(exitOK)
	}

	if *schedulePath == "" && !*devMode {
		log.Print("a -schedule is required outside -dev mode")
		os.Exit(exitError)
	}
	if *framesDir == "" && !*devMode {
		log.Print("a -frames directory is required outside -dev mode")
		os.Exit(exitError)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	os.Exit(runExtraction(ctx))
}
