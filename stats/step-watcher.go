package stats

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	c "github.com/relloyd/pgmirror/constants"
	"github.com/relloyd/pgmirror/logger"
)

// StepWatcher saves stats for one table transfer periodically.
// The transfer calls StartWatching(), AddRows() per committed batch and StopWatching().
type StepWatcher struct {
	log             logger.Logger // debug logging
	stepName        string        // usually the table identifier
	onUpdate        func(Stats)   // optional, called after every AddRows and on stop
	rowCount        int64
	rowsExpected    int64
	startTime       time.Time
	rowsPerSecDelta int64
	rowsPerSecAvg   int64
	priorRowCount   int64     // allows us to calculate delta rows per sec between ticker timeout.
	priorTime       time.Time // allows us to calculate delta rows per sec between ticker timeout.
	mu              sync.Mutex
	ticker          *time.Ticker
	tickerDone      chan struct{}
	isRunning       atomic.Bool
}

// Stats is a point in time view of a StepWatcher.
type Stats struct {
	StepName           string `json:"stepName"`
	StatusText         string `json:"statusText"`
	StatusEmoji        string `json:"statusEmoji"`
	ElapsedTimeSec     int    `json:"elapsedTimeSec"`
	TotalRowsProcessed int64  `json:"totalRowsProcessed"`
	RowsExpected       int64  `json:"rowsExpected"`
	PercentComplete    int    `json:"percentComplete"`
	RowsPerSecondAvg   int    `json:"rowsPerSecondAvg"`
	RowsPerSecondDelta int    `json:"rowsPerSecondDelta"`
	Running            bool   `json:"running"`
}

func NewStepWatcher(log logger.Logger, stepName string, onUpdate func(Stats)) *StepWatcher {
	return &StepWatcher{log: log, stepName: stepName, onUpdate: onUpdate, tickerDone: make(chan struct{})}
}

// StartWatching resets the counters and starts periodic rate calculation.
// rowsExpected may be 0 if the total is unknown.
func (n *StepWatcher) StartWatching(rowsExpected int64) {
	n.mu.Lock()
	now := time.Now()
	n.startTime = now
	n.priorTime = now
	n.priorRowCount = 0
	n.mu.Unlock()
	atomic.StoreInt64(&n.rowCount, 0)
	atomic.StoreInt64(&n.rowsExpected, rowsExpected)
	n.isRunning.Store(true)
	n.CalculateStats()
	n.ticker = time.NewTicker(time.Second * c.StatsCaptureFrequencySeconds)
	go func() {
		for {
			select {
			case <-n.ticker.C:
				n.CalculateStats()
			case <-n.tickerDone:
				return
			}
		}
	}()
}

// AddRows records rows that were committed.
func (n *StepWatcher) AddRows(rows int64) {
	atomic.AddInt64(&n.rowCount, rows)
	if n.onUpdate != nil {
		n.onUpdate(n.RenderStats())
	}
}

// RowCount returns the rows recorded so far.
func (n *StepWatcher) RowCount() int64 {
	return atomic.LoadInt64(&n.rowCount)
}

// StopWatching stops the ticker and calculates the final stats.
func (n *StepWatcher) StopWatching() {
	if !n.isRunning.Load() {
		return
	}
	n.ticker.Stop()
	n.tickerDone <- struct{}{} // stop the goroutine that calculates stats.
	n.CalculateStats()         // force final stats calculation.
	n.isRunning.Store(false)
	if n.onUpdate != nil {
		n.onUpdate(n.RenderStats())
	}
}

func (n *StepWatcher) CalculateStats() {
	n.mu.Lock()
	defer n.mu.Unlock()
	deltaTime := int64(time.Since(n.priorTime).Seconds())
	if deltaTime < 1 { // if we will cause divide by 0 error...
		deltaTime = 1 // force div by 1.
	}
	rowCount := atomic.LoadInt64(&n.rowCount)
	deltaRowCount := rowCount - n.priorRowCount
	atomic.StoreInt64(&n.rowsPerSecDelta, deltaRowCount/deltaTime)
	n.log.Debug("STATS: ", n.stepName, " processing ", deltaRowCount/deltaTime, " rows per sec")
	n.priorRowCount = rowCount
	n.priorTime = time.Now()
	atomic.StoreInt64(&n.rowsPerSecAvg, rowCount/getNumSecondsSinceTimeOrOne(n.startTime))
}

// RenderStats gets a struct filled with stats at the point of time it is called.
func (n *StepWatcher) RenderStats() Stats {
	isRunning := n.isRunning.Load()
	var statusText, statusEmoji string
	if isRunning {
		statusText = "running"
		statusEmoji = "\U0000231B" // hour glass
	} else {
		statusText = "complete"
		statusEmoji = "\U00002705" // green tick
	}
	n.mu.Lock()
	start := n.startTime
	n.mu.Unlock()
	rows := atomic.LoadInt64(&n.rowCount)
	expected := atomic.LoadInt64(&n.rowsExpected)
	return Stats{
		StepName:           n.stepName,
		StatusText:         statusText,
		StatusEmoji:        statusEmoji,
		ElapsedTimeSec:     int(time.Since(start).Seconds()),
		TotalRowsProcessed: rows,
		RowsExpected:       expected,
		PercentComplete:    percent(rows, expected),
		RowsPerSecondAvg:   int(atomic.LoadInt64(&n.rowsPerSecAvg)),
		RowsPerSecondDelta: int(atomic.LoadInt64(&n.rowsPerSecDelta)),
		Running:            isRunning,
	}
}

// percent returns done/total as a whole percentage capped at 100.
// An unknown total counts as complete.
func percent(done int64, total int64) int {
	if total <= 0 {
		return 100
	}
	p := int(done * 100 / total)
	if p > 100 {
		p = 100
	}
	return p
}

// String will format the stats for general logging.
func (s Stats) String() string {
	return fmt.Sprintf(
		"Stats for %v %v %v "+
			"elapsedTimeSec=%v "+
			"totalRowsProcessed=%v "+
			"rowsExpected=%v "+
			"rowsPerSecondAvg=%v "+
			"rowsPerSecondDelta=%v",
		s.StepName, s.StatusText, s.StatusEmoji,
		s.ElapsedTimeSec,
		s.TotalRowsProcessed,
		s.RowsExpected,
		s.RowsPerSecondAvg,
		s.RowsPerSecondDelta,
	)
}

func getNumSecondsSinceTimeOrOne(t time.Time) (seconds int64) {
	seconds = int64(time.Since(t).Seconds())
	if seconds < 1 {
		seconds = 1
	}
	return
}
