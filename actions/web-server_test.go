package actions

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/relloyd/pgmirror/logger"
	"github.com/relloyd/pgmirror/rdbms/shared"
	"github.com/relloyd/pgmirror/syncstate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func getJSON(t *testing.T, h http.Handler, method string, url string, out interface{}) int {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(method, url, nil))
	if out != nil {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), out), w.Body.String())
	}
	return w.Code
}

func TestStatusRoutes(t *testing.T) {
	log := logger.NewLogger("pgmirror", "error", true)
	board := NewStatusBoard()
	stopped := false
	router := newStatusRouter(log, board, func() { stopped = true })

	var health map[string]interface{}
	assert.Equal(t, http.StatusOK, getJSON(t, router, http.MethodGet, "/health", &health))
	assert.Equal(t, "ok", health["status"])
	assert.Equal(t, false, health["running"])
	assert.Equal(t, http.StatusNotFound, getJSON(t, router, http.MethodGet, "/runs/current", nil))
	assert.Equal(t, http.StatusNotFound, getJSON(t, router, http.MethodGet, "/runs/last", nil))

	rc := NewRunContext(log, nil, 0)
	board.Started(rc)
	w := rc.Stats.AddStepWatcher("pub.orders", nil)
	w.StartWatching(10)
	w.AddRows(4)
	w.StopWatching()
	rc.Record(TableResult{Table: "pub.orders", Method: syncstate.SyncMethodFull, Rows: 4})
	rc.Record(TableResult{Table: "pub.secret", Err: shared.NewSyncError(shared.ErrorKindPermission, "pub.secret", errors.New("access denied"))})

	var run struct {
		Status string    `json:"status"`
		Run    RunReport `json:"run"`
	}
	assert.Equal(t, http.StatusOK, getJSON(t, router, http.MethodGet, "/runs/current", &run))
	assert.Equal(t, rc.RunId, run.Run.RunId)
	assert.Equal(t, int64(2), run.Run.TablesProcessed)
	assert.Equal(t, int64(1), run.Run.TablesFailed)
	require.Len(t, run.Run.Tables, 2)
	assert.Equal(t, "full", run.Run.Tables[0].Method)
	assert.Equal(t, "permission", run.Run.Tables[1].ErrorKind)

	var tableStats struct {
		Stats struct {
			StepName           string `json:"stepName"`
			TotalRowsProcessed int64  `json:"totalRowsProcessed"`
		} `json:"stats"`
	}
	assert.Equal(t, http.StatusOK, getJSON(t, router, http.MethodGet, "/tables/pub.orders/stats", &tableStats))
	assert.Equal(t, "pub.orders", tableStats.Stats.StepName)
	assert.Equal(t, int64(4), tableStats.Stats.TotalRowsProcessed)
	assert.Equal(t, http.StatusNotFound, getJSON(t, router, http.MethodGet, "/tables/pub.nothing/stats", nil))

	board.Finished(rc, errors.New("interrupted"))
	assert.Equal(t, http.StatusNotFound, getJSON(t, router, http.MethodGet, "/runs/current", nil))
	assert.Equal(t, http.StatusOK, getJSON(t, router, http.MethodGet, "/runs/last", &run))
	assert.Equal(t, "interrupted", run.Run.Error)
	assert.Equal(t, 1, board.RunsFinished())

	assert.Equal(t, http.StatusMethodNotAllowed, getJSON(t, router, http.MethodGet, "/stop", nil))
	assert.Equal(t, http.StatusOK, getJSON(t, router, http.MethodPost, "/stop", nil))
	assert.True(t, stopped)
}

func TestStatusServerStartsAndStops(t *testing.T) {
	log := logger.NewLogger("pgmirror", "error", true)
	srv, err := StartStatusServer(log, 0, NewStatusBoard(), func() {})
	require.NoError(t, err)
	resp, err := http.Get(fmt.Sprintf("http://127.0.0.1:%v/health", srv.Port()))
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NoError(t, srv.Shutdown())
}

func TestNilStatusBoardIgnoresRuns(t *testing.T) {
	var board *StatusBoard
	assert.NotPanics(t, func() {
		board.Started(nil)
		board.Finished(nil, nil)
	})
}
