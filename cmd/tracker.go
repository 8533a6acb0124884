package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/popframe/internal/model"
	"github.com/sells-group/popframe/internal/store"
)

// tracker records one engine invocation in the run store. A tracker with
// no store records nothing.
type tracker struct {
	st  store.Store
	run *model.Run
}

func startRun(ctx context.Context, st store.Store, kind model.RunKind, params any) (*tracker, error) {
	t := &tracker{st: st}
	if st == nil {
		return t, nil
	}
	run, err := st.CreateRun(ctx, kind, params)
	if err != nil {
		return nil, eris.Wrap(err, "create run")
	}
	t.run = run
	zap.L().Info("run started", zap.String("run_id", run.ID), zap.String("kind", string(kind)))
	return t, nil
}

// ID returns the run id, or "" when untracked.
func (t *tracker) ID() string {
	if t.run == nil {
		return ""
	}
	return t.run.ID
}

// finish marks the run complete, or failed when runErr is set. runErr is
// returned unchanged so callers can end with `return t.finish(...)`.
func (t *tracker) finish(ctx context.Context, summary *model.RunSummary, runErr error) error {
	if t.run == nil {
		return runErr
	}
	if runErr != nil {
		if err := t.st.FailRun(ctx, t.run.ID, runErr.Error()); err != nil {
			zap.L().Error("record run failure", zap.String("run_id", t.run.ID), zap.Error(err))
		}
		return runErr
	}
	if err := t.st.CompleteRun(ctx, t.run.ID, summary); err != nil {
		return eris.Wrap(err, "complete run")
	}
	zap.L().Info("run complete",
		zap.String("run_id", t.run.ID),
		zap.Int64("duration_ms", summary.DurationMs),
	)
	return nil
}

func (t *tracker) saveAgglomerations(ctx context.Context, aggs []model.Agglomeration, members []model.Membership) error {
	if t.run == nil {
		return nil
	}
	if err := t.st.SaveAgglomerations(ctx, t.run.ID, aggs); err != nil {
		return err
	}
	return t.st.SaveMemberships(ctx, t.run.ID, members)
}

// openStore opens the configured run store; nil when the driver is none.
func openStore(ctx context.Context) (store.Store, error) {
	if err := cfg.Validate("store"); err != nil {
		return nil, err
	}
	return store.Open(ctx, cfg.Store)
}
