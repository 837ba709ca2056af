// Package reconcile - Tier reconciliation
// Applies (or simulates) plans against resources. Each mutation is an
// independent unit of work: one failure never prevents processing of
// subsequent resources. Mutations against the same parent server are
// serialized; independent servers run in parallel.
package reconcile

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"dbtier/core/types"
	"dbtier/internal/errors"
	"dbtier/internal/logging"
)

// Mutator applies a tier change to a resource. Implementations must be
// idempotent: applying the tier a resource is already on must succeed.
type Mutator interface {
	ApplyTier(ctx context.Context, id types.ResourceID, tier string) error
}

// Options control reconciliation behavior
type Options struct {
	// Mode selects scan, dry-run or apply semantics
	Mode types.RunMode

	// MaxParallelServers bounds how many servers are mutated at once
	MaxParallelServers int

	// RetryMaxAttempts bounds mutation attempts per resource,
	// including the first; zero means no retries
	RetryMaxAttempts int

	// RetryInitialInterval is the first backoff delay
	RetryInitialInterval time.Duration

	// RequestsPerSecond throttles mutation calls across all workers;
	// zero disables throttling
	RequestsPerSecond float64
}

// DefaultOptions returns conservative reconciliation settings
func DefaultOptions() Options {
	return Options{
		Mode:                 types.ModeDryRun,
		MaxParallelServers:   4,
		RetryMaxAttempts:     3,
		RetryInitialInterval: 500 * time.Millisecond,
		RequestsPerSecond:    0,
	}
}

// Reconciler drives plans to terminal apply results
type Reconciler struct {
	mutator Mutator
	opts    Options
	limiter *rate.Limiter
}

// New creates a reconciler. The mutator may be nil for scan and
// dry-run modes.
func New(m Mutator, opts Options) (*Reconciler, error) {
	if opts.Mode == "" {
		opts.Mode = types.ModeDryRun
	}
	switch opts.Mode {
	case types.ModeScan, types.ModeDryRun, types.ModeApply:
	default:
		return nil, errors.Configf("unknown run mode %q", opts.Mode)
	}
	if opts.Mode == types.ModeApply && m == nil {
		return nil, errors.Config("apply mode requires a mutator")
	}
	if opts.MaxParallelServers <= 0 {
		opts.MaxParallelServers = 1
	}
	if opts.RetryMaxAttempts <= 0 {
		opts.RetryMaxAttempts = 1
	}
	if opts.RetryInitialInterval <= 0 {
		opts.RetryInitialInterval = 500 * time.Millisecond
	}

	var limiter *rate.Limiter
	if opts.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}
	return &Reconciler{mutator: m, opts: opts, limiter: limiter}, nil
}

// Reconcile processes plans according to the run mode and returns one
// result per plan in plan order. Scan mode returns nil: no mutation is
// attempted and nothing is simulated.
//
// Cancellation stops admission of new resources; the in-flight
// mutation completes so no resource is left mid-change. Unadmitted
// plans are reported as skipped.
func (r *Reconciler) Reconcile(ctx context.Context, plans []types.Plan) []types.ApplyResult {
	switch r.opts.Mode {
	case types.ModeScan:
		return nil
	case types.ModeDryRun:
		return r.dryRun(plans)
	}
	return r.apply(ctx, plans)
}

func (r *Reconciler) dryRun(plans []types.Plan) []types.ApplyResult {
	results := make([]types.ApplyResult, len(plans))
	for i, p := range plans {
		results[i] = types.ApplyResult{
			ID:       p.ID,
			FromTier: p.CurrentTier,
			ToTier:   p.TargetTier,
			Status:   types.StatusDryRun,
		}
	}
	return results
}

func (r *Reconciler) apply(ctx context.Context, plans []types.Plan) []types.ApplyResult {
	// Group by parent server, preserving plan order within each group.
	order := make([]string, 0)
	groups := make(map[string][]int)
	for i, p := range plans {
		key := p.ID.ServerKey()
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], i)
	}

	results := make([]types.ApplyResult, len(plans))

	var g errgroup.Group
	g.SetLimit(r.opts.MaxParallelServers)
	for _, key := range order {
		indices := groups[key]
		g.Go(func() error {
			for _, i := range indices {
				// Stop admitting new work once cancelled; the mutation
				// already in flight on this worker has completed.
				if err := ctx.Err(); err != nil {
					results[i] = skipped(plans[i], err)
					continue
				}
				results[i] = r.applyOne(ctx, plans[i])
			}
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func skipped(p types.Plan, cause error) types.ApplyResult {
	return types.ApplyResult{
		ID:       p.ID,
		FromTier: p.CurrentTier,
		ToTier:   p.CurrentTier,
		Status:   types.StatusSkipped,
		Err:      cause.Error(),
	}
}

// applyOne drives one plan through Planned -> Applying -> Applied|Failed
func (r *Reconciler) applyOne(ctx context.Context, p types.Plan) types.ApplyResult {
	if p.Action == types.ActionKeep {
		return types.ApplyResult{
			ID:       p.ID,
			FromTier: p.CurrentTier,
			ToTier:   p.CurrentTier,
			Status:   types.StatusSkipped,
		}
	}

	// Idempotent no-op: the resource is already on the target tier.
	if p.TargetTier == p.CurrentTier {
		return types.ApplyResult{
			ID:       p.ID,
			FromTier: p.CurrentTier,
			ToTier:   p.TargetTier,
			Status:   types.StatusApplied,
		}
	}

	attempts := 0
	op := func() error {
		if r.limiter != nil {
			if err := r.limiter.Wait(ctx); err != nil {
				return backoff.Permanent(err)
			}
		}
		attempts++
		err := r.mutator.ApplyTier(ctx, p.ID, p.TargetTier)
		if err == nil {
			return nil
		}
		if !errors.IsTransient(err) {
			return backoff.Permanent(err)
		}
		logging.Warn("transient mutation failure, retrying",
			zap.String("resource", p.ID.String()),
			zap.String("target_tier", p.TargetTier),
			zap.Int("attempt", attempts),
			zap.Error(err))
		return err
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = r.opts.RetryInitialInterval
	policy := backoff.WithContext(
		backoff.WithMaxRetries(bo, uint64(r.opts.RetryMaxAttempts-1)), ctx)

	if err := backoff.Retry(op, policy); err != nil {
		return types.ApplyResult{
			ID:       p.ID,
			FromTier: p.CurrentTier,
			ToTier:   p.CurrentTier,
			Status:   types.StatusFailed,
			Err:      errors.Mutation(p.ID.String(), err).Error(),
			Attempts: attempts,
		}
	}

	logging.Info("tier applied",
		zap.String("resource", p.ID.String()),
		zap.String("from_tier", p.CurrentTier),
		zap.String("to_tier", p.TargetTier),
		zap.Int("attempts", attempts))

	return types.ApplyResult{
		ID:       p.ID,
		FromTier: p.CurrentTier,
		ToTier:   p.TargetTier,
		Status:   types.StatusApplied,
		Attempts: attempts,
	}
}
