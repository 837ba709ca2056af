// Package classify - Utilization classifier
// A decision table evaluated in strict priority order; the first
// matching rule wins regardless of declaration order elsewhere.
package classify

import (
	"dbtier/core/catalog"
	"dbtier/core/types"
	"dbtier/internal/errors"
)

// Rule reasons, stable across runs so report sinks can group on them
const (
	ReasonProtected         = "protected"
	ReasonCritical          = "critical: max utilization exceeds critical threshold"
	ReasonPeakPressure      = "sustained peak pressure"
	ReasonStorageIncompat   = "storage incompatible with lower tier"
	ReasonLowUtilization    = "sustained low utilization"
	ReasonSpikyKeepHeadroom = "low average but spiky - retaining headroom"
	ReasonWithinNormalRange = "within normal range"
)

// Decision is the classifier's verdict for one observation
type Decision struct {
	// Action is the decided tier change
	Action types.Action

	// TargetTier is the resolved tier name; equals the current tier
	// for Keep
	TargetTier string

	// Reason is the matched rule's explanation
	Reason string

	// Priority ranks the decision for review
	Priority types.Priority
}

// Classifier maps observations to decisions against one catalog and
// one threshold policy
type Classifier struct {
	catalog    *catalog.Catalog
	thresholds Thresholds
}

// New builds a classifier, rejecting contradictory thresholds up front
func New(cat *catalog.Catalog, t Thresholds) (*Classifier, error) {
	if cat == nil {
		return nil, errors.Config("classifier requires a catalog")
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &Classifier{catalog: cat, thresholds: t}, nil
}

// Thresholds returns the policy the classifier evaluates against
func (c *Classifier) Thresholds() Thresholds {
	return c.thresholds
}

// Classify evaluates the decision table for a single observation.
// A current tier missing from the catalog fails only this resource.
func (c *Classifier) Classify(obs types.Observation) (Decision, error) {
	current, err := c.catalog.Get(obs.CurrentTier)
	if err != nil {
		return Decision{}, errors.UnknownTier(obs.CurrentTier, obs.ID.String())
	}

	// Rule 1: protected resources are never touched, however extreme
	// the utilization
	if obs.Protected {
		return Decision{
			Action:     types.ActionKeep,
			TargetTier: current.Name,
			Reason:     ReasonProtected,
			Priority:   types.PriorityNone,
		}, nil
	}

	t := c.thresholds

	// Rule 2: critical peak pressure, jump two levels
	if obs.MaxUtilizationPct >= t.Critical {
		target, err := c.catalog.LevelsUp(current.Name, 2)
		if err != nil {
			return Decision{}, err
		}
		return Decision{
			Action:     types.ActionUpgrade,
			TargetTier: target.Name,
			Reason:     ReasonCritical,
			Priority:   types.PriorityCritical,
		}, nil
	}

	// Rule 3: sustained peak pressure, one level
	if obs.MaxUtilizationPct >= t.Upgrade {
		target, err := c.catalog.LevelsUp(current.Name, 1)
		if err != nil {
			return Decision{}, err
		}
		return Decision{
			Action:     types.ActionUpgrade,
			TargetTier: target.Name,
			Reason:     ReasonPeakPressure,
			Priority:   types.PriorityHigh,
		}, nil
	}

	lowAvg := obs.AvgUtilizationPct <= t.DowngradeAvg
	lowMax := obs.MaxUtilizationPct <= t.DowngradeMax

	// Rule 4: downgrade candidate, demoted to Keep when the lower tier
	// cannot hold the data
	if lowAvg && lowMax && current.Name != c.catalog.Lowest().Name {
		target, err := c.catalog.LevelsDown(current.Name, 1)
		if err != nil {
			return Decision{}, err
		}
		if target.MaxStorageGB < obs.MaxStorageGB {
			return Decision{
				Action:     types.ActionKeep,
				TargetTier: current.Name,
				Reason:     ReasonStorageIncompat,
				Priority:   types.PriorityCaution,
			}, nil
		}
		return Decision{
			Action:     types.ActionDowngrade,
			TargetTier: target.Name,
			Reason:     ReasonLowUtilization,
			Priority:   types.PrioritySavings,
		}, nil
	}

	// Rule 5: low average but spiky peaks, keep the headroom
	if lowAvg && obs.MaxUtilizationPct > t.DowngradeMax {
		return Decision{
			Action:     types.ActionKeep,
			TargetTier: current.Name,
			Reason:     ReasonSpikyKeepHeadroom,
			Priority:   types.PriorityCaution,
		}, nil
	}

	// Rule 6: nothing to do
	return Decision{
		Action:     types.ActionKeep,
		TargetTier: current.Name,
		Reason:     ReasonWithinNormalRange,
		Priority:   types.PriorityNone,
	}, nil
}
