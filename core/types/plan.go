// Package types - Plan and apply-result types
package types

import "github.com/shopspring/decimal"

// Action is the tier change decided for a resource
type Action string

const (
	// ActionUpgrade moves the resource to a higher tier
	ActionUpgrade Action = "upgrade"

	// ActionDowngrade moves the resource to a lower tier
	ActionDowngrade Action = "downgrade"

	// ActionKeep leaves the resource on its current tier
	ActionKeep Action = "keep"
)

// Priority ranks how urgently a plan should be reviewed or applied
type Priority string

const (
	// PriorityCritical marks resources at risk of throttling now
	PriorityCritical Priority = "critical"

	// PriorityHigh marks sustained peak pressure
	PriorityHigh Priority = "high"

	// PriorityCaution marks resources kept despite unusual telemetry
	PriorityCaution Priority = "caution"

	// PrioritySavings marks cost-reduction opportunities
	PrioritySavings Priority = "savings"

	// PriorityNone marks resources with nothing to do
	PriorityNone Priority = "none"
)

// RunMode selects how far the reconciler goes
type RunMode string

const (
	// ModeScan produces observations and plans only
	ModeScan RunMode = "scan"

	// ModeDryRun simulates application, recording a result per plan
	ModeDryRun RunMode = "dry-run"

	// ModeApply performs real tier mutations
	ModeApply RunMode = "apply"
)

// Plan is the reconciliation decision for one resource; derived
// deterministically from exactly one Observation
type Plan struct {
	// ID identifies the planned database
	ID ResourceID `json:"id"`

	// Action is the decided tier change
	Action Action `json:"action"`

	// CurrentTier is the tier the resource is on now
	CurrentTier string `json:"current_tier"`

	// TargetTier is the tier the resource should be on; equals
	// CurrentTier for Keep. Always a member of the catalog.
	TargetTier string `json:"target_tier"`

	// Reason is the human-readable rule explanation
	Reason string `json:"reason"`

	// MonthlyCostDelta is target price minus current price; negative
	// for downgrades
	MonthlyCostDelta decimal.Decimal `json:"monthly_cost_delta"`

	// Priority ranks the plan for review
	Priority Priority `json:"priority"`

	// Protected is true when the keep was forced by the protected set
	Protected bool `json:"protected,omitempty"`

	// LowConfidence carries the observation's low-confidence flag so
	// report sinks can call out zero-sample downgrades
	LowConfidence bool `json:"low_confidence,omitempty"`
}

// ApplyStatus is the terminal state of one reconciliation attempt
type ApplyStatus string

const (
	// StatusApplied means the tier change completed (or was already in
	// place)
	StatusApplied ApplyStatus = "applied"

	// StatusSkipped means no mutation was attempted
	StatusSkipped ApplyStatus = "skipped"

	// StatusDryRun means the mutation was simulated only
	StatusDryRun ApplyStatus = "dry-run"

	// StatusFailed means the mutation was attempted and rejected
	StatusFailed ApplyStatus = "failed"
)

// ApplyResult records the outcome of reconciling one plan
type ApplyResult struct {
	// ID identifies the database
	ID ResourceID `json:"id"`

	// FromTier is the tier before reconciliation
	FromTier string `json:"from_tier"`

	// ToTier is the tier after reconciliation
	ToTier string `json:"to_tier"`

	// Status is the terminal state
	Status ApplyStatus `json:"status"`

	// Err holds the failure message when Status is failed
	Err string `json:"error,omitempty"`

	// Attempts counts mutation attempts including retries
	Attempts int `json:"attempts,omitempty"`
}
