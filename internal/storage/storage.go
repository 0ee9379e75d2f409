package storage

import (
	"context"

	"cpswap/internal/model"
)

// Storage defines a sink for pool events, pool snapshots and rejected scenario steps.
type Storage interface {
	PutEventBatch(ctx context.Context, records []model.EventRecord) error
	PutPoolSnapshots(ctx context.Context, pools []model.PoolSnapshot) error
	PutStepErrors(ctx context.Context, stepErrors []model.StepError) error
}
