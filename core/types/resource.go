// Package types - Core reconciliation types
package types

// ResourceID identifies a single database
type ResourceID struct {
	// Subscription is the owning subscription identifier
	Subscription string `json:"subscription"`

	// Server is the logical server name
	Server string `json:"server"`

	// Database is the database name
	Database string `json:"database"`
}

// String returns a stable subscription/server/database representation
func (r ResourceID) String() string {
	return r.Subscription + "/" + r.Server + "/" + r.Database
}

// ServerKey identifies the parent server; mutations against the same
// parent must be serialized
func (r ResourceID) ServerKey() string {
	return r.Subscription + "/" + r.Server
}

// Observation is one scan-pass snapshot of a database; never mutated
// after creation
type Observation struct {
	// ID identifies the observed database
	ID ResourceID `json:"id"`

	// CurrentTier is the tier name reported by the provider
	CurrentTier string `json:"current_tier"`

	// MaxStorageGB is the database's current maximum storage footprint
	MaxStorageGB float64 `json:"max_storage_gb"`

	// AvgUtilizationPct is average capacity utilization over the
	// lookback window, 0 to 100
	AvgUtilizationPct float64 `json:"avg_utilization_pct"`

	// MaxUtilizationPct is peak capacity utilization over the lookback
	// window, 0 to 100
	MaxUtilizationPct float64 `json:"max_utilization_pct"`

	// Protected marks the database as exempt from tier changes
	Protected bool `json:"protected"`

	// LowConfidence marks observations built from zero metric samples
	LowConfidence bool `json:"low_confidence,omitempty"`
}
