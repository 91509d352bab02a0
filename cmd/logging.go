package cmd

import (
	"fmt"
	"os"

	"github.com/relloyd/pgmirror/constants"
	"github.com/relloyd/pgmirror/logger"
)

// newLogger returns a logger at level that writes to logFile, or to STDERR if logFile is blank.
// The returned func closes the log file.
func newLogger(level string, logFile string) (logger.Logger, func(), error) {
	log := logger.NewLogger(constants.ServiceName, level, stackDumpOnPanic)
	f, err := log.OpenLogFile(logFile)
	if err != nil {
		return nil, nil, err
	}
	closer := func() {
		if f != nil {
			if err := f.Close(); err != nil {
				fmt.Fprintf(os.Stderr, "error closing log file %v: %v\n", logFile, err)
			}
		}
	}
	return log, closer, nil
}
