package actions

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/relloyd/pgmirror/logger"
)

// StatusBoard tracks the run in progress and the last finished run for the status server.
// A nil *StatusBoard ignores all calls.
type StatusBoard struct {
	mu       sync.RWMutex
	current  *RunContext
	last     *RunContext
	lastErr  error
	finished int
}

func NewStatusBoard() *StatusBoard {
	return &StatusBoard{}
}

// Started records rc as the run in progress.
func (b *StatusBoard) Started(rc *RunContext) {
	if b == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.current = rc
}

// Finished moves rc from in progress to last finished.
func (b *StatusBoard) Finished(rc *RunContext, err error) {
	if b == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.current == rc {
		b.current = nil
	}
	b.last = rc
	b.lastErr = err
	b.finished++
}

// Current returns the run in progress or nil.
func (b *StatusBoard) Current() *RunContext {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.current
}

// Last returns the last finished run, or nil, and the error it returned.
func (b *StatusBoard) Last() (*RunContext, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.last, b.lastErr
}

// RunsFinished returns how many runs have finished since start up.
func (b *StatusBoard) RunsFinished() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.finished
}

// newStatusRouter creates the routes of the status server.
// stop is called by the /stop route.
func newStatusRouter(log logger.Logger, board *StatusBoard, stop func()) *mux.Router {
	r := mux.NewRouter()
	r.Path("/health").Methods(http.MethodGet).HandlerFunc(GetHandlerHealth(log, board))
	r.Path("/runs/current").Methods(http.MethodGet).HandlerFunc(GetHandlerRunCurrent(log, board))
	r.Path("/runs/last").Methods(http.MethodGet).HandlerFunc(GetHandlerRunLast(log, board))
	r.Path("/tables/{table}/stats").Methods(http.MethodGet).HandlerFunc(GetHandlerTableStats(log, board))
	r.Path("/stop").Methods(http.MethodPost).HandlerFunc(GetHandlerStop(log, stop))
	return r
}

// StatusServer serves run status over HTTP while sync repeats.
type StatusServer struct {
	log logger.Logger
	srv *http.Server
	ln  net.Listener
}

// StartStatusServer listens on port, or a free port if port is 0, and serves in the background.
func StartStatusServer(log logger.Logger, port int, board *StatusBoard, stop func()) (*StatusServer, error) {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%v", port))
	if err != nil {
		return nil, errors.Wrapf(err, "unable to listen on port %v", port)
	}
	srv := &http.Server{ // timeouts avoid Slowloris attacks.
		WriteTimeout: time.Second * 15,
		ReadTimeout:  time.Second * 15,
		IdleTimeout:  time.Second * 60,
		Handler:      newStatusRouter(log, board, stop),
	}
	s := &StatusServer{log: log, srv: srv, ln: ln}
	go func() {
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			log.Error("status server stopped: ", err)
		}
	}()
	log.Info("status server listening on ", ln.Addr())
	return s, nil
}

// Port returns the port the server listens on.
func (s *StatusServer) Port() int {
	return s.ln.Addr().(*net.TCPAddr).Port
}

// Shutdown waits up to 15 seconds for open requests to finish.
func (s *StatusServer) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	s.log.Info("shutting down status server...")
	return s.srv.Shutdown(ctx)
}
