package actions

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/relloyd/pgmirror/logger"
	"github.com/relloyd/pgmirror/rdbms/shared"
	"github.com/relloyd/pgmirror/stats"
)

type WebServerResponse uint32

const (
	Okay WebServerResponse = iota + 1
	Error
)

func (w WebServerResponse) MarshalJSON() ([]byte, error) {
	var retval string
	switch w {
	case Okay:
		retval = "ok"
	case Error:
		retval = "error"
	default:
		err := fmt.Errorf("unhandled WebServerResponse value in MarshalJSON() conversion")
		return nil, err
	}
	return json.Marshal(retval)
}

type ResponseHealth struct {
	Status       WebServerResponse `json:"status"`
	Running      bool              `json:"running"`
	RunsFinished int               `json:"runsFinished"`
}

type ResponseSimple struct {
	Status  WebServerResponse `json:"status"`
	Message string            `json:"message"`
}

type ResponseRun struct {
	Status  WebServerResponse `json:"status"`
	Message string            `json:"message"`
	Run     *RunReport        `json:"run,omitempty"`
}

type ResponseTableStats struct {
	Status  WebServerResponse `json:"status"`
	Message string            `json:"message"`
	Stats   *stats.Stats      `json:"stats,omitempty"`
}

// RunReport is the JSON view of a RunContext.
type RunReport struct {
	RunId           string        `json:"runId"`
	Error           string        `json:"error,omitempty"`
	TablesProcessed int64         `json:"tablesProcessed"`
	TablesSucceeded int64         `json:"tablesSucceeded"`
	TablesFailed    int64         `json:"tablesFailed"`
	TablesSkipped   int64         `json:"tablesSkipped"`
	RowsSynced      int64         `json:"rowsSynced"`
	ElapsedSec      float64       `json:"elapsedSec"`
	Tables          []TableReport `json:"tables"`
}

type TableReport struct {
	Table     string `json:"table"`
	Method    string `json:"method,omitempty"`
	Rows      int64  `json:"rows"`
	Skipped   bool   `json:"skipped,omitempty"`
	Partial   bool   `json:"partial,omitempty"`
	ErrorKind string `json:"errorKind,omitempty"`
	Error     string `json:"error,omitempty"`
}

// NewRunReport renders rc and the error its run returned, if any.
func NewRunReport(rc *RunContext, runErr error) *RunReport {
	s := rc.Stats.Summary()
	r := &RunReport{
		RunId:           rc.RunId,
		TablesProcessed: s.TablesProcessed,
		TablesSucceeded: s.TablesSucceeded,
		TablesFailed:    s.TablesFailed,
		TablesSkipped:   s.TablesSkipped,
		RowsSynced:      s.RowsSynced,
		ElapsedSec:      s.Elapsed.Seconds(),
		Tables:          make([]TableReport, 0),
	}
	if runErr != nil {
		r.Error = runErr.Error()
	}
	for _, res := range rc.TableResults() {
		t := TableReport{Table: res.Table, Method: string(res.Method), Rows: res.Rows, Skipped: res.Skipped, Partial: res.Partial}
		if res.Err != nil {
			t.ErrorKind = shared.KindOf(res.Err).String()
			t.Error = res.Err.Error()
		}
		r.Tables = append(r.Tables, t)
	}
	return r
}

func GetHandlerHealth(log logger.Logger, board *StatusBoard) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		respond(log, w, http.StatusOK, ResponseHealth{Status: Okay, Running: board.Current() != nil, RunsFinished: board.RunsFinished()})
	}
}

func GetHandlerRunCurrent(log logger.Logger, board *StatusBoard) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		rc := board.Current()
		if rc == nil {
			respond(log, w, http.StatusNotFound, ResponseRun{Status: Error, Message: "no sync run in progress"})
			return
		}
		respond(log, w, http.StatusOK, ResponseRun{Status: Okay, Run: NewRunReport(rc, nil)})
	}
}

func GetHandlerRunLast(log logger.Logger, board *StatusBoard) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		rc, err := board.Last()
		if rc == nil {
			respond(log, w, http.StatusNotFound, ResponseRun{Status: Error, Message: "no sync run has finished yet"})
			return
		}
		respond(log, w, http.StatusOK, ResponseRun{Status: Okay, Run: NewRunReport(rc, err)})
	}
}

// GetHandlerTableStats returns the progress of a table in the current run, else the last run.
func GetHandlerTableStats(log logger.Logger, board *StatusBoard) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		table := mux.Vars(r)["table"]
		last, _ := board.Last()
		for _, rc := range []*RunContext{board.Current(), last} {
			if rc == nil {
				continue
			}
			for _, s := range rc.Stats.GetStats() {
				if s.StepName == table {
					respond(log, w, http.StatusOK, ResponseTableStats{Status: Okay, Stats: &s})
					return
				}
			}
		}
		log.Info("HTTP request for stats of table ", table, " that has not been synced")
		respond(log, w, http.StatusNotFound, ResponseTableStats{Status: Error, Message: fmt.Sprintf("table %v has not been synced", table)})
	}
}

func GetHandlerStop(log logger.Logger, stop func()) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		stop()
		log.Info("Stop signal sent")
		respond(log, w, http.StatusOK, ResponseSimple{Status: Okay, Message: "stopping"})
	}
}

// respond will write code and the JSON form of i to w.
func respond(log logger.Logger, w http.ResponseWriter, code int, i interface{}) {
	j, err := json.MarshalIndent(i, "", "  ")
	if err != nil {
		log.Error("unable to marshal response: ", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err = w.Write(j); err != nil {
		log.Error("unable to write response: ", err)
	}
}
