package scenario

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"cpswap/internal/model"
	"cpswap/internal/storage"
)

// Reasons recorded on step errors.
const (
	ReasonRejected          = "rejected"
	ReasonUnexpectedError   = "unexpected_error"
	ReasonUnexpectedSuccess = "unexpected_success"
)

// RunConfig holds runtime settings for a scenario run.
type RunConfig struct {
	BatchSize    int
	MaxRetries   int
	RetryBackoff time.Duration
	// Strict fails the run when any step disagrees with its expectation.
	Strict bool
}

// Summary counts what a run did.
type Summary struct {
	Steps      int
	Applied    int
	Rejected   int
	Mismatched int
	Replayed   int
	Events     int
}

// Runner applies scenario steps in batches. After each batch it flushes the events the engine
// emitted, the rejected steps and fresh pool snapshots, then saves a checkpoint. State lives in
// memory, so a resumed run replays every step but persists nothing up to the checkpoint.
type Runner struct {
	cfg        RunConfig
	world      *World
	events     *storage.Buffer
	storage    storage.Storage
	checkpoint CheckpointStore
	logger     *zap.Logger
}

// NewRunner builds a Runner. events must be the sink the world's engine emits to.
func NewRunner(cfg RunConfig, world *World, events *storage.Buffer, storageSink storage.Storage, checkpoint CheckpointStore, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		cfg:        cfg,
		world:      world,
		events:     events,
		storage:    storageSink,
		checkpoint: checkpoint,
		logger:     logger,
	}
}

// Run executes steps in order.
func (r *Runner) Run(ctx context.Context, steps []Step) (Summary, error) {
	var summary Summary
	if r.world == nil {
		return summary, fmt.Errorf("world is nil")
	}
	if r.events == nil {
		return summary, fmt.Errorf("event buffer is nil")
	}
	if r.storage == nil {
		return summary, fmt.Errorf("storage is nil")
	}
	if len(steps) == 0 {
		r.logger.Info("nothing to run")
		return summary, nil
	}

	resumeLine := 0
	if r.checkpoint != nil {
		line, ok, err := r.checkpoint.Load(ctx)
		if err != nil {
			return summary, err
		}
		if ok {
			resumeLine = line
			r.logger.Info("resume from checkpoint", zap.Int("last_processed_line", line))
		}
	}

	ranges, err := SplitSteps(0, len(steps)-1, r.cfg.BatchSize)
	if err != nil {
		return summary, err
	}

	for _, batch := range ranges {
		select {
		case <-ctx.Done():
			return summary, ctx.Err()
		default:
		}

		var stepErrors []model.StepError
		for _, step := range steps[batch.From : batch.To+1] {
			summary.Steps++
			err := r.world.Apply(step)
			replay := step.Line <= resumeLine
			if replay {
				summary.Replayed++
				r.events.Discard()
			}

			stepErr, ok := r.classify(step, err, &summary)
			if ok && !replay {
				stepErrors = append(stepErrors, stepErr)
			}
		}

		lastLine := steps[batch.To].Line
		if lastLine <= resumeLine {
			continue
		}
		n, err := r.persist(ctx, stepErrors)
		if err != nil {
			return summary, err
		}
		summary.Events += n

		if r.checkpoint != nil {
			if err := r.checkpoint.Save(ctx, lastLine); err != nil {
				return summary, err
			}
		}

		r.logger.Info("batch complete",
			zap.Int("from_line", steps[batch.From].Line),
			zap.Int("to_line", lastLine),
			zap.Int("events", n),
			zap.Int("step_errors", len(stepErrors)),
		)
	}

	r.logger.Info("scenario complete",
		zap.Int("steps", summary.Steps),
		zap.Int("applied", summary.Applied),
		zap.Int("rejected", summary.Rejected),
		zap.Int("mismatched", summary.Mismatched),
		zap.Int("replayed", summary.Replayed),
		zap.Int("events", summary.Events),
	)

	if r.cfg.Strict && summary.Mismatched > 0 {
		return summary, fmt.Errorf("%d steps did not match their expectation", summary.Mismatched)
	}
	return summary, nil
}

// classify updates summary with the outcome of step and returns the error record to store, if any.
func (r *Runner) classify(step Step, err error, summary *Summary) (model.StepError, bool) {
	if err == nil {
		summary.Applied++
		if step.Expect == "" {
			return model.StepError{}, false
		}
		summary.Mismatched++
		r.logger.Warn("step succeeded unexpectedly", zap.Int("line", step.Line), zap.String("op", step.Op), zap.String("expect", step.Expect))
		return model.StepError{
			Line:   step.Line,
			Op:     step.Op,
			Reason: ReasonUnexpectedSuccess,
			Error:  "expected " + step.Expect,
		}, true
	}

	summary.Rejected++
	reason := ReasonRejected
	if !matchesExpectation(step.Expect, err) {
		summary.Mismatched++
		reason = ReasonUnexpectedError
		r.logger.Warn("step failed", zap.Int("line", step.Line), zap.String("op", step.Op), zap.String("expect", step.Expect), zap.Error(err))
	} else {
		r.logger.Debug("step rejected", zap.Int("line", step.Line), zap.String("op", step.Op), zap.Error(err))
	}
	return model.StepError{
		Line:   step.Line,
		Op:     step.Op,
		Code:   model.CodeOf(err),
		Reason: reason,
		Error:  err.Error(),
	}, true
}

func matchesExpectation(expect string, err error) bool {
	if expect == "" {
		return false
	}
	if model.CodeOf(err) != 0 {
		return model.NameOf(err) == expect
	}
	return strings.Contains(err.Error(), expect)
}

// persist writes the buffered events, stepErrors and current pool snapshots.
func (r *Runner) persist(ctx context.Context, stepErrors []model.StepError) (int, error) {
	pending := r.events.Len()
	err := withRetry(ctx, r.logger, "flush events", r.cfg.MaxRetries, r.cfg.RetryBackoff, func(ctx context.Context) error {
		return r.events.Flush(ctx, r.storage)
	})
	if err != nil {
		return 0, fmt.Errorf("store events: %w", err)
	}

	err = withRetry(ctx, r.logger, "store step errors", r.cfg.MaxRetries, r.cfg.RetryBackoff, func(ctx context.Context) error {
		return r.storage.PutStepErrors(ctx, stepErrors)
	})
	if err != nil {
		return 0, fmt.Errorf("store step errors: %w", err)
	}

	snapshots, err := r.world.Snapshots()
	if err != nil {
		return 0, err
	}
	err = withRetry(ctx, r.logger, "store pool snapshots", r.cfg.MaxRetries, r.cfg.RetryBackoff, func(ctx context.Context) error {
		return r.storage.PutPoolSnapshots(ctx, snapshots)
	})
	if err != nil {
		return 0, fmt.Errorf("store pool snapshots: %w", err)
	}
	return pending, nil
}
