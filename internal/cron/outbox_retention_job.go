package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

const defaultOutboxRetention = 30 * 24 * time.Hour

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxRetentionRepo interface {
	DeletePublishedBefore(tx *gorm.DB, cutoff time.Time) (int64, error)
}

type dlqCounter interface {
	Count(ctx context.Context) (int64, error)
}

type OutboxRetentionJobParams struct {
	Logger     *logger.Logger
	DB         txRunner
	Repository outboxRetentionRepo
	// DLQ is optional; when set each run logs the dead-letter depth.
	DLQ       dlqCounter
	Retention time.Duration
}

// NewOutboxRetentionJob deletes published outbox rows older than Retention.
func NewOutboxRetentionJob(params OutboxRetentionJobParams) (Job, error) {
	switch {
	case params.Logger == nil:
		return nil, errors.New("logger required")
	case params.DB == nil:
		return nil, errors.New("db runner required")
	case params.Repository == nil:
		return nil, errors.New("outbox repository required")
	}
	return &outboxRetentionJob{
		params: params,
		window: positiveOr(params.Retention, defaultOutboxRetention),
		now:    time.Now,
	}, nil
}

type outboxRetentionJob struct {
	params OutboxRetentionJobParams
	window time.Duration
	now    func() time.Time
}

func (j *outboxRetentionJob) Name() string { return "outbox-retention" }

func (j *outboxRetentionJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.window)
	var deleted int64
	err := j.params.DB.WithTx(ctx, func(tx *gorm.DB) (err error) {
		deleted, err = j.params.Repository.DeletePublishedBefore(tx, cutoff)
		return err
	})
	if err != nil {
		return fmt.Errorf("outbox retention: %w", err)
	}

	logg := j.params.Logger
	fields := logger.Fields{"cutoff": cutoff, "rows_deleted": deleted}
	if j.params.DLQ != nil {
		depth, err := j.params.DLQ.Count(ctx)
		if err != nil {
			logg.Warn(logg.WithField(ctx, "error", err.Error()), "outbox.dlq_count_failed")
		} else {
			fields["dlq_depth"] = depth
		}
	}
	logg.Info(logg.WithFields(ctx, fields), "outbox.retention_complete")
	return nil
}

func positiveOr(d, fallback time.Duration) time.Duration {
	if d > 0 {
		return d
	}
	return fallback
}
