package actions

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/relloyd/pgmirror/constants"
	"github.com/relloyd/pgmirror/ignore"
	"github.com/relloyd/pgmirror/logger"
	"github.com/relloyd/pgmirror/rdbms"
	"github.com/relloyd/pgmirror/rdbms/shared"
	"github.com/relloyd/pgmirror/syncstate"
	"github.com/robfig/cron/v3"
)

// RunSync validates cfg and syncs once, or repeatedly when a repeat interval or schedule is set.
// With cfg.StatusPort set, run status is served over HTTP until RunSync returns.
func RunSync(ctx context.Context, log logger.Logger, cfg *SyncConfig, progress Progress) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	var board *StatusBoard
	if cfg.StatusPort > 0 {
		var stop context.CancelFunc
		ctx, stop = context.WithCancel(ctx)
		defer stop()
		board = NewStatusBoard()
		srv, err := StartStatusServer(log, cfg.StatusPort, board, stop)
		if err != nil {
			return err
		}
		defer func() {
			if err := srv.Shutdown(); err != nil {
				log.Error("error shutting down status server: ", err)
			}
		}()
	}
	return Repeat(ctx, log, cfg, func(ctx context.Context) error {
		_, err := SyncOnce(ctx, log, cfg, progress, board)
		return err
	})
}

// Repeat calls fn once, or every cfg.RepeatInterval seconds, or on cfg.Schedule, until ctx is done.
// Runs are independent so an error is logged and the next run goes ahead.
func Repeat(ctx context.Context, log logger.Logger, cfg *SyncConfig, fn func(ctx context.Context) error) error {
	switch {
	case cfg.Schedule != "":
		return repeatOnSchedule(ctx, log, cfg.Schedule, fn)
	case cfg.RepeatInterval > 0:
		return repeatEvery(ctx, log, time.Duration(cfg.RepeatInterval)*time.Second, fn)
	}
	return fn(ctx)
}

func repeatEvery(ctx context.Context, log logger.Logger, interval time.Duration, fn func(ctx context.Context) error) error {
	for {
		if err := fn(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			log.Error("sync run failed: ", err)
		}
		log.Info("sleeping for ", interval)
		select {
		case <-ctx.Done():
			log.Info("stopping repeated sync")
			return nil
		case <-time.After(interval):
		}
	}
}

func repeatOnSchedule(ctx context.Context, log logger.Logger, schedule string, fn func(ctx context.Context) error) error {
	// SkipIfStillRunning stops runs from overlapping when one takes longer than the schedule interval.
	cr := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	_, err := cr.AddFunc(schedule, func() {
		if err := fn(ctx); err != nil && ctx.Err() == nil {
			log.Error("scheduled sync run failed: ", err)
		}
	})
	if err != nil {
		return errors.Wrapf(err, "invalid cron schedule %q", schedule)
	}
	log.Info("sync scheduled with ", schedule)
	cr.Start()
	<-ctx.Done()
	log.Info("stopping scheduled sync")
	<-cr.Stop().Done()
	return nil
}

// SyncOnce connects to both databases and runs the Orchestrator.
// Connections are closed before it returns. board may be nil.
func SyncOnce(ctx context.Context, log logger.Logger, cfg *SyncConfig, progress Progress, board *StatusBoard) (rc *RunContext, err error) {
	registry, err := ignore.Load(cfg.IgnoreFile)
	if err != nil {
		return nil, err
	}
	rc = NewRunContext(log, registry, cfg.StatsDumpFrequencySeconds)
	board.Started(rc)
	defer func() {
		board.Finished(rc, err)
	}()
	timeout := time.Duration(cfg.ConnectTimeoutSeconds) * time.Second
	srcConn, err := rdbms.OpenDbConnection(ctx, rc.Log,
		shared.NewDsnConnectionDetails(cfg.SourceType, "source", cfg.SourceDsn), timeout)
	if err != nil {
		return rc, err
	}
	defer srcConn.Close()
	dstConn, err := rdbms.OpenDbConnection(ctx, rc.Log,
		shared.NewDsnConnectionDetails(constants.ConnectionTypePostgres, "target", cfg.TargetDsn), timeout)
	if err != nil {
		return rc, err
	}
	defer dstConn.Close()
	src, err := rdbms.NewSourceConnection(rc.Log, srcConn, rdbms.NewCursorGuard(int64(cfg.MaxCursors)))
	if err != nil {
		return rc, shared.NewSyncError(shared.ErrorKindConnection, "", err)
	}
	store, err := syncstate.NewStore(rc.Log, dstConn.GetDb(), constants.ConnectionTypePostgres, cfg.StateSchema)
	if err != nil {
		return rc, err
	}
	o := NewOrchestrator(&OrchestratorConfig{
		Cfg:         cfg,
		Source:      src,
		Destination: rdbms.NewPostgresTarget(rc.Log, dstConn),
		State:       store,
		Progress:    progress,
	})
	return rc, o.Run(ctx, rc)
}
