package monitor

import (
	"log"
	"sync"
	"time"
)

// StatsSnapshot represents a snapshot of current extraction statistics
type StatsSnapshot struct {
	FramesPerSec   float64
	FramesDone     int64
	FramesTotal    int64
	DecodeFailures int64
	RoleFailures   int64
	Percent        float64
	Timestamp      time.Time
}

// RunStats tracks extraction progress with thread-safe operations
type RunStats struct {
	mu             sync.Mutex
	framesTotal    int64
	framesDone     int64
	decodeFailures int64
	roleFailures   int64
	windowFrames   int64
	lastReset      time.Time
	startTime      time.Time
	latestSnapshot *StatsSnapshot
}

// NewRunStats creates stats for a run over the given number of frames
func NewRunStats(framesTotal int) *RunStats {
	now := time.Now()
	return &RunStats{
		framesTotal: int64(framesTotal),
		lastReset:   now,
		startTime:   now,
	}
}

// AddFrame records one processed frame and its failed role count
func (rs *RunStats) AddFrame(failedRoles int) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.framesDone++
	rs.windowFrames++
	rs.roleFailures += int64(failedRoles)
}

// AddDecodeFailure records a frame the decoder could not produce
func (rs *RunStats) AddDecodeFailure() {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.decodeFailures++
}

// Snapshot computes the current rates and stores the result for the web
// interface. The throughput window resets on each call.
func (rs *RunStats) Snapshot() *StatsSnapshot {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	now := time.Now()
	duration := now.Sub(rs.lastReset)
	fps := 0.0
	if duration > 0 {
		fps = float64(rs.windowFrames) / duration.Seconds()
	}
	percent := 0.0
	if rs.framesTotal > 0 {
		percent = 100 * float64(rs.framesDone) / float64(rs.framesTotal)
	}

	snap := &StatsSnapshot{
		FramesPerSec:   fps,
		FramesDone:     rs.framesDone,
		FramesTotal:    rs.framesTotal,
		DecodeFailures: rs.decodeFailures,
		RoleFailures:   rs.roleFailures,
		Percent:        percent,
		Timestamp:      now,
	}

	rs.windowFrames = 0
	rs.lastReset = now
	rs.latestSnapshot = snap
	return snap
}

// GetLatestSnapshot returns the most recent snapshot, or nil before the
// first Snapshot call.
func (rs *RunStats) GetLatestSnapshot() *StatsSnapshot {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return rs.latestSnapshot
}

// LogStats logs formatted progress for terminal runs
func (rs *RunStats) LogStats() {
	snap := rs.Snapshot()
	if snap.FramesDone == 0 {
		return
	}
	log.Printf("[stats] %d/%d frames (%.1f%%), %.1f frames/s, %d decode failures, %d role failures",
		snap.FramesDone, snap.FramesTotal, snap.Percent, snap.FramesPerSec,
		snap.DecodeFailures, snap.RoleFailures)
}
