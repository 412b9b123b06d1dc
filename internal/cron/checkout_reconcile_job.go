package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/storefront-backend/internal/checkout"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

const (
	defaultReconcileAfter = 15 * time.Minute
	defaultReconcileBatch = 100
)

type checkoutReconciler interface {
	Reconcile(ctx context.Context, olderThan time.Duration, limit int) (*checkout.ReconcileReport, error)
}

type CheckoutReconcileJobParams struct {
	Logger   *logger.Logger
	Checkout checkoutReconciler
	After    time.Duration
	Batch    int
}

// NewCheckoutReconcileJob resolves checkout sessions whose webhook never
// arrived by asking the payment gateway for their state.
func NewCheckoutReconcileJob(params CheckoutReconcileJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Checkout == nil {
		return nil, fmt.Errorf("checkout service required")
	}
	after := params.After
	if after <= 0 {
		after = defaultReconcileAfter
	}
	batch := params.Batch
	if batch <= 0 {
		batch = defaultReconcileBatch
	}
	return &checkoutReconcileJob{
		logg:     params.Logger,
		checkout: params.Checkout,
		after:    after,
		batch:    batch,
	}, nil
}

type checkoutReconcileJob struct {
	logg     *logger.Logger
	checkout checkoutReconciler
	after    time.Duration
	batch    int
}

func (j *checkoutReconcileJob) Name() string { return "checkout-reconcile" }

func (j *checkoutReconcileJob) Run(ctx context.Context) error {
	report, err := j.checkout.Reconcile(ctx, j.after, j.batch)
	if report != nil {
		logCtx := j.logg.WithFields(ctx, map[string]any{
			"checked":      report.Checked,
			"materialized": report.Materialized,
			"expired":      report.Expired,
			"pending":      report.Pending,
		})
		j.logg.Info(logCtx, "checkout reconcile pass complete")
	}
	if err != nil {
		return fmt.Errorf("checkout reconcile: %w", err)
	}
	return nil
}
