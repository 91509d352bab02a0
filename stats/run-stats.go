package stats

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/cevaris/ordered_map"
	"github.com/relloyd/pgmirror/logger"
)

// StatsFetcher returns the stats of every watched table.
type StatsFetcher interface {
	GetStats() []Stats
}

// Outcome is the end state of one table in a run.
type Outcome int

const (
	OutcomeSucceeded Outcome = iota
	OutcomeFailed
	OutcomeSkipped
)

var DefaultStatsDumpFrequencySeconds = 30 // default stats dump interval may be overridden by use of options in constructor below!

// RunStats holds the metrics of one sync run and the StepWatcher of each table it transferred.
type RunStats struct {
	tablesProcessed int64
	tablesSucceeded int64
	tablesFailed    int64
	tablesSkipped   int64
	rowsSynced      int64
	startTime       time.Time
	endTime         time.Time

	ticker              *time.Ticker
	tickerDone          chan struct{}
	tickerIsRunningFlag int32
	tickerFrequency     int
	mu                  sync.Mutex
	log                 logger.Logger           // error|info|debug logging
	mapStepStats        *ordered_map.OrderedMap // StepWatcher per table, in the order tables were processed.
}

// Summary is a snapshot of RunStats.
type Summary struct {
	TablesProcessed int64
	TablesSucceeded int64
	TablesFailed    int64
	TablesSkipped   int64
	RowsSynced      int64
	Elapsed         time.Duration
}

// SetStatsDumpFrequency returns a function that can be supplied as an option to constructor NewRunStats().
// Zero disables periodic dumping.
func SetStatsDumpFrequency(seconds int) func(t *RunStats) {
	return func(t *RunStats) {
		t.tickerFrequency = seconds
	}
}

// NewRunStats creates a RunStats whose clock starts now.
func NewRunStats(log logger.Logger, options ...func(t *RunStats)) *RunStats {
	t := &RunStats{log: log, tickerFrequency: DefaultStatsDumpFrequencySeconds, startTime: time.Now()}
	for _, option := range options {
		option(t)
	}
	t.mapStepStats = ordered_map.NewOrderedMap()
	return t
}

// AddStepWatcher creates a StepWatcher for table and saves it.
func (t *RunStats) AddStepWatcher(table string, onUpdate func(Stats)) *StepWatcher {
	sw := NewStepWatcher(t.log, table, onUpdate)
	t.mu.Lock()
	t.mapStepStats.Set(table, sw)
	t.mu.Unlock()
	return sw
}

// RecordTable counts the outcome of one table and the rows it synced.
func (t *RunStats) RecordTable(o Outcome, rows int64) {
	atomic.AddInt64(&t.tablesProcessed, 1)
	atomic.AddInt64(&t.rowsSynced, rows)
	switch o {
	case OutcomeSucceeded:
		atomic.AddInt64(&t.tablesSucceeded, 1)
	case OutcomeFailed:
		atomic.AddInt64(&t.tablesFailed, 1)
	case OutcomeSkipped:
		atomic.AddInt64(&t.tablesSkipped, 1)
	}
}

// Finish stops the run clock.
func (t *RunStats) Finish() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.endTime.IsZero() {
		t.endTime = time.Now()
	}
}

// Summary returns the run metrics so far.
func (t *RunStats) Summary() Summary {
	t.mu.Lock()
	end := t.endTime
	t.mu.Unlock()
	if end.IsZero() {
		end = time.Now()
	}
	return Summary{
		TablesProcessed: atomic.LoadInt64(&t.tablesProcessed),
		TablesSucceeded: atomic.LoadInt64(&t.tablesSucceeded),
		TablesFailed:    atomic.LoadInt64(&t.tablesFailed),
		TablesSkipped:   atomic.LoadInt64(&t.tablesSkipped),
		RowsSynced:      atomic.LoadInt64(&t.rowsSynced),
		Elapsed:         end.Sub(t.startTime),
	}
}

func (t *RunStats) StartDumping() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if atomic.LoadInt32(&t.tickerIsRunningFlag) != 0 {
		t.log.Debug("stats dumper ticker already running")
		return
	}
	if t.tickerFrequency <= 0 {
		t.log.Debug("stats dumper disabled")
		return
	}
	ticker := time.NewTicker(time.Second * time.Duration(t.tickerFrequency))
	done := make(chan struct{})
	t.ticker = ticker
	t.tickerDone = done
	atomic.StoreInt32(&t.tickerIsRunningFlag, 1)
	go func() {
		t.log.Debug("stats dumper ticker started")
		for {
			select {
			case <-done:
				t.log.Debug("stats dumper ticker stopped")
				return
			case <-ticker.C:
				t.logStats(true)
			}
		}
	}()
}

// StopDumping will stop the ticker, only if it was started by a call to StartDumping().
// The dumper takes t.mu while logging so the done channel is closed after the lock is released.
func (t *RunStats) StopDumping() {
	t.mu.Lock()
	if atomic.LoadInt32(&t.tickerIsRunningFlag) == 0 { // if we never started to dump stats...
		t.mu.Unlock()
		return
	}
	atomic.StoreInt32(&t.tickerIsRunningFlag, 0)
	t.ticker.Stop()
	done := t.tickerDone
	t.tickerDone = nil
	t.mu.Unlock()
	close(done) // cause the goroutine to exit (we can't close ticker.C)
}

// logStats writes the stats of each table, optionally only those still running.
func (t *RunStats) logStats(runningOnly bool) {
	for _, s := range t.GetStats() {
		if runningOnly && !s.Running {
			continue
		}
		t.log.Info(s.String())
	}
}

// GetStats implements interface StatsFetcher{}.
func (t *RunStats) GetStats() []Stats {
	t.mu.Lock()
	watchers := make([]*StepWatcher, 0, t.mapStepStats.Len())
	iter := t.mapStepStats.IterFunc()
	for kv, ok := iter(); ok; kv, ok = iter() { // for each table watched...
		watchers = append(watchers, kv.Value.(*StepWatcher))
	}
	t.mu.Unlock()
	statsList := make([]Stats, 0, len(watchers))
	for _, sw := range watchers {
		statsList = append(statsList, sw.RenderStats())
	}
	return statsList
}
