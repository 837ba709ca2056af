// Package static - File-backed collaborators
// Implements the enumerator, metrics provider and mutator contracts
// over an inventory snapshot, for offline scans, rehearsal runs and
// tests. Real provider collaborators live outside this repository.
package static

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"dbtier/core/engine"
	"dbtier/core/types"
	"dbtier/internal/errors"
)

// DatabaseRecord is one inventory entry with its aggregated metrics
type DatabaseRecord struct {
	// Subscription is the owning subscription identifier
	Subscription string `json:"subscription" yaml:"subscription"`

	// Server is the logical server name
	Server string `json:"server" yaml:"server"`

	// Database is the database name
	Database string `json:"database" yaml:"database"`

	// CurrentTier is the provider-reported tier name
	CurrentTier string `json:"current_tier" yaml:"current_tier"`

	// MaxStorageGB is the database's storage footprint
	MaxStorageGB float64 `json:"max_storage_gb" yaml:"max_storage_gb"`

	// AvgUtilizationPct is the aggregated average utilization
	AvgUtilizationPct float64 `json:"avg_utilization_pct" yaml:"avg_utilization_pct"`

	// MaxUtilizationPct is the aggregated peak utilization
	MaxUtilizationPct float64 `json:"max_utilization_pct" yaml:"max_utilization_pct"`

	// SampleCount is how many samples back the aggregates; zero means
	// low confidence
	SampleCount int `json:"sample_count" yaml:"sample_count"`
}

// Inventory is the on-disk snapshot format
type Inventory struct {
	// Databases lists every database in scope
	Databases []DatabaseRecord `json:"databases" yaml:"databases"`
}

// Source serves inventory records as enumerator, metrics provider and
// mutator. ApplyTier updates the in-memory record, so a rehearsal run
// behaves like a provider that accepted the change.
type Source struct {
	mu      sync.RWMutex
	records []DatabaseRecord
}

// NewSource creates a source from records
func NewSource(records []DatabaseRecord) *Source {
	out := make([]DatabaseRecord, len(records))
	copy(out, records)
	return &Source{records: out}
}

// Load reads an inventory file; the format follows the file extension
// (.json, .yaml, .yml)
func Load(path string) (*Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.TypeConfig, "cannot read inventory file", err)
	}

	var inv Inventory
	switch filepath.Ext(path) {
	case ".json":
		err = json.Unmarshal(data, &inv)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &inv)
	default:
		return nil, errors.Configf("unsupported inventory format %q", filepath.Ext(path))
	}
	if err != nil {
		return nil, errors.Wrap(errors.TypeConfig, "cannot parse inventory file", err)
	}
	return NewSource(inv.Databases), nil
}

// Save writes the current inventory state as JSON
func (s *Source) Save(path string) error {
	s.mu.RLock()
	inv := Inventory{Databases: make([]DatabaseRecord, len(s.records))}
	copy(inv.Databases, s.records)
	s.mu.RUnlock()

	data, err := json.MarshalIndent(inv, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Databases implements engine.Enumerator
func (s *Source) Databases(ctx context.Context) ([]engine.DatabaseInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]engine.DatabaseInfo, len(s.records))
	for i, r := range s.records {
		out[i] = engine.DatabaseInfo{
			ID:           types.ResourceID{Subscription: r.Subscription, Server: r.Server, Database: r.Database},
			CurrentTier:  r.CurrentTier,
			MaxStorageGB: r.MaxStorageGB,
		}
	}
	return out, nil
}

// Utilization implements engine.MetricsProvider. The lookback window
// is ignored; the snapshot already holds aggregated values.
func (s *Source) Utilization(ctx context.Context, id types.ResourceID, lookbackDays int) (engine.Utilization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.find(id)
	if !ok {
		return engine.Utilization{}, errors.Observation(id.String(), os.ErrNotExist)
	}
	r := s.records[i]
	return engine.Utilization{
		AvgPct:      r.AvgUtilizationPct,
		MaxPct:      r.MaxUtilizationPct,
		SampleCount: r.SampleCount,
	}, nil
}

// ApplyTier implements reconcile.Mutator by updating the in-memory
// record
func (s *Source) ApplyTier(ctx context.Context, id types.ResourceID, tier string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.find(id)
	if !ok {
		return errors.Mutation(id.String(), os.ErrNotExist)
	}
	s.records[i].CurrentTier = tier
	return nil
}

// Records returns a copy of the current inventory state
func (s *Source) Records() []DatabaseRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]DatabaseRecord, len(s.records))
	copy(out, s.records)
	return out
}

// find locates a record by identity; callers hold the lock
func (s *Source) find(id types.ResourceID) (int, bool) {
	for i, r := range s.records {
		if r.Subscription == id.Subscription && r.Server == id.Server && r.Database == id.Database {
			return i, true
		}
	}
	return 0, false
}
