package stats

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/mattn/go-isatty"
	c "github.com/relloyd/pgmirror/constants"
)

// ProgressReporter prints transfer progress for people watching a run.
// On a terminal the current line is rewritten in place, otherwise a line is printed at coarse steps.
type ProgressReporter struct {
	mu          sync.Mutex
	out         io.Writer
	tty         bool
	lastPercent map[string]int
}

// NewProgressReporter writes to f and detects whether f is a terminal.
func NewProgressReporter(f *os.File) *ProgressReporter {
	tty := isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	return NewProgressReporterWriter(f, tty)
}

// NewProgressReporterWriter writes to out, rewriting lines in place if tty is set.
func NewProgressReporterWriter(out io.Writer, tty bool) *ProgressReporter {
	return &ProgressReporter{out: out, tty: tty, lastPercent: make(map[string]int)}
}

// Update renders s if it moved far enough since the last line for the same table.
// It matches the onUpdate signature of StepWatcher.
func (p *ProgressReporter) Update(s Stats) {
	p.mu.Lock()
	defer p.mu.Unlock()
	last, seen := p.lastPercent[s.StepName]
	step := c.ProgressLogStepPercent
	if p.tty {
		step = c.ProgressLineRewriteMinPercent
	}
	if s.Running && seen && s.PercentComplete-last < step {
		return
	}
	p.lastPercent[s.StepName] = s.PercentComplete
	line := fmt.Sprintf("%v %v %3d%% %v/%v rows",
		s.StepName, bar(s.PercentComplete), s.PercentComplete, s.TotalRowsProcessed, s.RowsExpected)
	if !p.tty {
		_, _ = fmt.Fprintln(p.out, line)
		return
	}
	_, _ = fmt.Fprint(p.out, "\r"+line)
	if !s.Running {
		_, _ = fmt.Fprintln(p.out)
		delete(p.lastPercent, s.StepName)
	}
}

// Outcome prints the end state of a table on its own line.
func (p *ProgressReporter) Outcome(table string, status string, detail string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if detail != "" {
		_, _ = fmt.Fprintf(p.out, "%v: %v (%v)\n", table, status, detail)
		return
	}
	_, _ = fmt.Fprintf(p.out, "%v: %v\n", table, status)
}

// Printf writes a free-form line.
func (p *ProgressReporter) Printf(format string, args ...interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, _ = fmt.Fprintf(p.out, format, args...)
}

func bar(pct int) string {
	filled := pct * c.ProgressBarWidth / 100
	return "[" + strings.Repeat("#", filled) + strings.Repeat(".", c.ProgressBarWidth-filled) + "]"
}
