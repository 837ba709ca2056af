// Package engine - Reconciliation run orchestrator
// Wires the external collaborators (enumerator, metrics provider,
// mutator) to the classifier, plan builder and reconciler. Each
// observation -> plan -> result pipeline is independent; there is no
// transactional guarantee across the batch and partial application is
// an accepted outcome.
package engine

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"dbtier/core/catalog"
	"dbtier/core/classify"
	"dbtier/core/plan"
	"dbtier/core/protect"
	"dbtier/core/reconcile"
	"dbtier/core/types"
	"dbtier/internal/errors"
	"dbtier/internal/logging"
)

// DatabaseInfo is what the enumerator yields per non-system database
type DatabaseInfo struct {
	// ID identifies the database
	ID types.ResourceID

	// CurrentTier is the provider-reported tier name
	CurrentTier string

	// MaxStorageGB is the database's storage footprint
	MaxStorageGB float64
}

// Enumerator lists the databases in scope for a run
type Enumerator interface {
	Databases(ctx context.Context) ([]DatabaseInfo, error)
}

// Utilization is an aggregated metric window for one database
type Utilization struct {
	// AvgPct is the average capacity utilization, 0 to 100
	AvgPct float64

	// MaxPct is the peak capacity utilization, 0 to 100
	MaxPct float64

	// SampleCount is how many samples the window aggregates; zero
	// marks the observation low-confidence
	SampleCount int
}

// MetricsProvider returns utilization for a database over a lookback
// window in days
type MetricsProvider interface {
	Utilization(ctx context.Context, id types.ResourceID, lookbackDays int) (Utilization, error)
}

// Options control a reconciliation run
type Options struct {
	// Mode selects scan, dry-run or apply
	Mode types.RunMode

	// LookbackDays is the metric aggregation window
	LookbackDays int

	// MaxParallelObservations bounds concurrent metric retrieval to
	// respect upstream API rate limits
	MaxParallelObservations int

	// Reconcile holds the reconciler settings
	Reconcile reconcile.Options
}

// DefaultOptions returns run defaults
func DefaultOptions() Options {
	return Options{
		Mode:                    types.ModeDryRun,
		LookbackDays:            14,
		MaxParallelObservations: 8,
		Reconcile:               reconcile.DefaultOptions(),
	}
}

// Result is the complete output of one run, consumable by any
// reporting sink without further transformation
type Result struct {
	// RunID uniquely identifies the run
	RunID string `json:"run_id"`

	// Mode is the run mode that produced the result
	Mode types.RunMode `json:"mode"`

	// Observations are the scan-pass snapshots, in enumeration order
	Observations []types.Observation `json:"observations"`

	// Plans are the reconciliation decisions, in enumeration order
	Plans []types.Plan `json:"plans"`

	// Results are the per-resource apply outcomes; nil in scan mode
	Results []types.ApplyResult `json:"results,omitempty"`

	// Failures lists resources excluded during classification
	Failures []plan.Failure `json:"failures,omitempty"`

	// Summary aggregates counts and the projected cost delta
	Summary types.Summary `json:"summary"`
}

// Engine runs the observation -> classification -> plan -> reconcile
// pipeline
type Engine struct {
	enumerator Enumerator
	metrics    MetricsProvider
	catalog    *catalog.Catalog
	protected  protect.RuleSet
	builder    *plan.Builder
	reconciler *reconcile.Reconciler
	opts       Options
}

// New assembles an engine. Threshold and catalog validation happen
// here, before any resource is touched; an invalid configuration
// aborts the whole run.
func New(
	enumerator Enumerator,
	metrics MetricsProvider,
	mutator reconcile.Mutator,
	cat *catalog.Catalog,
	thresholds classify.Thresholds,
	protected protect.RuleSet,
	opts Options,
) (*Engine, error) {
	if enumerator == nil {
		return nil, errors.Config("engine requires an enumerator")
	}
	if metrics == nil {
		return nil, errors.Config("engine requires a metrics provider")
	}
	if opts.LookbackDays <= 0 {
		opts.LookbackDays = 14
	}
	if opts.MaxParallelObservations <= 0 {
		opts.MaxParallelObservations = 8
	}
	if opts.Mode == "" {
		opts.Mode = types.ModeDryRun
	}
	opts.Reconcile.Mode = opts.Mode

	classifier, err := classify.New(cat, thresholds)
	if err != nil {
		return nil, err
	}
	reconciler, err := reconcile.New(mutator, opts.Reconcile)
	if err != nil {
		return nil, err
	}

	return &Engine{
		enumerator: enumerator,
		metrics:    metrics,
		catalog:    cat,
		protected:  protected,
		builder:    plan.NewBuilder(cat, classifier),
		reconciler: reconciler,
		opts:       opts,
	}, nil
}

// Run executes one reconciliation pass
func (e *Engine) Run(ctx context.Context) (*Result, error) {
	runID := uuid.NewString()
	log := logging.With(zap.String("run_id", runID), zap.String("mode", string(e.opts.Mode)))

	databases, err := e.enumerator.Databases(ctx)
	if err != nil {
		return nil, errors.Enumeration(err)
	}
	log.Info("enumerated databases", zap.Int("count", len(databases)))

	observations := e.observe(ctx, databases)

	plans, failures := e.builder.BuildAll(observations)
	for _, f := range failures {
		log.Warn("resource excluded from planning",
			zap.String("resource", f.ID.String()),
			zap.Error(f.Err))
	}

	results := e.reconciler.Reconcile(ctx, plans)

	res := &Result{
		RunID:        runID,
		Mode:         e.opts.Mode,
		Observations: observations,
		Plans:        plans,
		Results:      results,
		Failures:     failures,
	}
	res.Summary = types.Summarize(plans, results)
	res.Summary.Failed += len(failures)
	res.Summary.Total += len(failures)

	log.Info("run complete",
		zap.Int("upgraded", res.Summary.Upgraded),
		zap.Int("downgraded", res.Summary.Downgraded),
		zap.Int("kept", res.Summary.Kept),
		zap.Int("protected", res.Summary.Protected),
		zap.Int("failed", res.Summary.Failed),
		zap.String("projected_monthly_delta", res.Summary.ProjectedMonthlyDelta.StringFixed(2)))

	return res, nil
}

// observe gathers utilization for every database concurrently, bounded
// by MaxParallelObservations. Metric retrieval errors degrade to a
// zero-utilization low-confidence observation; they never fail the
// resource. Output preserves enumeration order.
func (e *Engine) observe(ctx context.Context, databases []DatabaseInfo) []types.Observation {
	observations := make([]types.Observation, len(databases))

	var g errgroup.Group
	g.SetLimit(e.opts.MaxParallelObservations)
	for i, db := range databases {
		i, db := i, db
		g.Go(func() error {
			obs := types.Observation{
				ID:           db.ID,
				CurrentTier:  db.CurrentTier,
				MaxStorageGB: db.MaxStorageGB,
				Protected:    e.protected.Match(db.ID),
			}

			util, err := e.metrics.Utilization(ctx, db.ID, e.opts.LookbackDays)
			if err != nil {
				logging.Warn("metrics unavailable, assuming zero utilization",
					zap.String("resource", db.ID.String()),
					zap.Error(errors.Observation(db.ID.String(), err)))
				obs.LowConfidence = true
			} else {
				obs.AvgUtilizationPct = util.AvgPct
				obs.MaxUtilizationPct = util.MaxPct
				obs.LowConfidence = util.SampleCount == 0
			}

			observations[i] = obs
			return nil
		})
	}
	_ = g.Wait()

	return observations
}
