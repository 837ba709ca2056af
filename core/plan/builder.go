// Package plan - Plan builder and cost calculator
// Combines classifier decisions with the tier catalog into concrete
// plans. Pure; no dependency on time or external state beyond the
// catalog.
package plan

import (
	"dbtier/core/catalog"
	"dbtier/core/classify"
	"dbtier/core/types"
	"dbtier/internal/errors"
)

// Decider produces a decision for one observation. Satisfied by
// *classify.Classifier.
type Decider interface {
	Classify(obs types.Observation) (classify.Decision, error)
}

// Builder resolves decisions into plans with cost deltas
type Builder struct {
	catalog *catalog.Catalog
	decider Decider
}

// NewBuilder creates a plan builder
func NewBuilder(cat *catalog.Catalog, d Decider) *Builder {
	return &Builder{catalog: cat, decider: d}
}

// Build derives the plan for a single observation. Identical
// observations always produce identical plans.
//
// A non-Keep decision for a protected observation indicates a logic
// bug in the decision table; Build panics rather than producing a plan
// that would mutate a protected resource.
func (b *Builder) Build(obs types.Observation) (types.Plan, error) {
	decision, err := b.decider.Classify(obs)
	if err != nil {
		return types.Plan{}, err
	}

	if obs.Protected && decision.Action != types.ActionKeep {
		panic(errors.ProtectedInvariant(obs.ID.String()))
	}

	current, err := b.catalog.Get(obs.CurrentTier)
	if err != nil {
		return types.Plan{}, errors.UnknownTier(obs.CurrentTier, obs.ID.String())
	}
	target, err := b.catalog.Get(decision.TargetTier)
	if err != nil {
		return types.Plan{}, errors.Internal("decision targets a tier outside the catalog", err)
	}

	return types.Plan{
		ID:               obs.ID,
		Action:           decision.Action,
		CurrentTier:      current.Name,
		TargetTier:       target.Name,
		Reason:           decision.Reason,
		MonthlyCostDelta: target.MonthlyPrice.Sub(current.MonthlyPrice),
		Priority:         decision.Priority,
		Protected:        obs.Protected,
		LowConfidence:    obs.LowConfidence,
	}, nil
}

// BuildAll derives plans for a batch of observations, preserving
// order. A resource that fails classification is returned in the
// failure list; it never aborts the batch.
func (b *Builder) BuildAll(observations []types.Observation) ([]types.Plan, []Failure) {
	plans := make([]types.Plan, 0, len(observations))
	var failures []Failure
	for _, obs := range observations {
		p, err := b.Build(obs)
		if err != nil {
			failures = append(failures, Failure{ID: obs.ID, Err: err})
			continue
		}
		plans = append(plans, p)
	}
	return plans, failures
}

// Failure records a resource excluded from planning
type Failure struct {
	// ID identifies the failed resource
	ID types.ResourceID `json:"id"`

	// Err is the classification error
	Err error `json:"error"`
}
