// Package config provides configuration management.
// The whole run is driven by one explicit configuration object: tier
// catalog, thresholds, protected set, run mode and lookback window.
// Files may be JSON, YAML or HCL, selected by extension.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/hashicorp/hcl/v2/hclsimple"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"dbtier/core/catalog"
	"dbtier/core/classify"
	"dbtier/core/engine"
	"dbtier/core/protect"
	"dbtier/core/types"
	"dbtier/internal/errors"
	"dbtier/internal/logging"
)

// Config is the main application configuration
type Config struct {
	// Mode is the run mode: scan, dry-run or apply
	Mode string `json:"mode" yaml:"mode" hcl:"mode,optional" validate:"omitempty,oneof=scan dry-run apply"`

	// LookbackDays is the metric aggregation window
	LookbackDays int `json:"lookback_days" yaml:"lookback_days" hcl:"lookback_days,optional" validate:"omitempty,min=1,max=365"`

	// ThresholdPreset names a built-in threshold policy; mutually
	// exclusive with Thresholds
	ThresholdPreset string `json:"threshold_preset,omitempty" yaml:"threshold_preset" hcl:"threshold_preset,optional"`

	// Thresholds overrides the preset with explicit values
	Thresholds *ThresholdsConfig `json:"thresholds,omitempty" yaml:"thresholds" hcl:"thresholds,block"`

	// Tiers declares a custom catalog; empty means the standard DTU
	// ladder
	Tiers []TierConfig `json:"tiers,omitempty" yaml:"tiers" hcl:"tier,block"`

	// Protected declares the do-not-touch set
	Protected *ProtectedConfig `json:"protected,omitempty" yaml:"protected" hcl:"protected,block"`

	// Concurrency bounds parallel work
	Concurrency *ConcurrencyConfig `json:"concurrency,omitempty" yaml:"concurrency" hcl:"concurrency,block"`

	// Retry controls mutation retries
	Retry *RetryConfig `json:"retry,omitempty" yaml:"retry" hcl:"retry,block"`

	// Logging contains logging configuration
	Logging *logging.Config `json:"logging,omitempty" yaml:"logging" hcl:"logging,block"`

	// Inventory is the path to a static inventory snapshot
	Inventory string `json:"inventory,omitempty" yaml:"inventory" hcl:"inventory,optional"`
}

// ThresholdsConfig mirrors classify.Thresholds for file decoding
type ThresholdsConfig struct {
	// Critical triggers a two-level upgrade
	Critical float64 `json:"critical" yaml:"critical" hcl:"critical" validate:"min=0,max=100"`

	// Upgrade triggers a one-level upgrade
	Upgrade float64 `json:"upgrade" yaml:"upgrade" hcl:"upgrade" validate:"min=0,max=100"`

	// DowngradeAvg is the average ceiling for downgrades
	DowngradeAvg float64 `json:"downgrade_avg" yaml:"downgrade_avg" hcl:"downgrade_avg" validate:"min=0,max=100"`

	// DowngradeMax is the peak ceiling for downgrades
	DowngradeMax float64 `json:"downgrade_max" yaml:"downgrade_max" hcl:"downgrade_max" validate:"min=0,max=100"`
}

// TierConfig declares one catalog tier; price is a decimal string
type TierConfig struct {
	// Name is the tier name and HCL block label
	Name string `json:"name" yaml:"name" hcl:"name,label" validate:"required"`

	// CapacityUnits is the tier's throughput measure
	CapacityUnits int `json:"capacity_units" yaml:"capacity_units" hcl:"capacity_units" validate:"gt=0"`

	// MonthlyPrice is the list price as a decimal string
	MonthlyPrice string `json:"monthly_price" yaml:"monthly_price" hcl:"monthly_price" validate:"required"`

	// MaxStorageGB is the storage ceiling
	MaxStorageGB float64 `json:"max_storage_gb" yaml:"max_storage_gb" hcl:"max_storage_gb" validate:"gt=0"`
}

// ProtectedConfig declares the protected set
type ProtectedConfig struct {
	// IDs lists exact identifiers as subscription/server/database
	IDs []string `json:"ids,omitempty" yaml:"ids" hcl:"ids,optional" validate:"dive,protected_id"`

	// ServerPrefixes exempts servers by name prefix
	ServerPrefixes []string `json:"server_prefixes,omitempty" yaml:"server_prefixes" hcl:"server_prefixes,optional"`

	// NameContains exempts resources by name substring
	NameContains []string `json:"name_contains,omitempty" yaml:"name_contains" hcl:"name_contains,optional"`
}

// ConcurrencyConfig bounds parallel work
type ConcurrencyConfig struct {
	// MaxParallelObservations bounds concurrent metric retrieval
	MaxParallelObservations int `json:"max_parallel_observations" yaml:"max_parallel_observations" hcl:"max_parallel_observations,optional" validate:"min=0,max=64"`

	// MaxParallelServers bounds concurrent server mutation
	MaxParallelServers int `json:"max_parallel_servers" yaml:"max_parallel_servers" hcl:"max_parallel_servers,optional" validate:"min=0,max=64"`

	// RequestsPerSecond throttles mutation calls; zero disables
	RequestsPerSecond float64 `json:"requests_per_second" yaml:"requests_per_second" hcl:"requests_per_second,optional" validate:"min=0"`
}

// RetryConfig controls mutation retries
type RetryConfig struct {
	// MaxAttempts bounds attempts per resource, including the first
	MaxAttempts int `json:"max_attempts" yaml:"max_attempts" hcl:"max_attempts,optional" validate:"min=1,max=10"`

	// InitialIntervalMS is the first backoff delay in milliseconds
	InitialIntervalMS int `json:"initial_interval_ms" yaml:"initial_interval_ms" hcl:"initial_interval_ms,optional" validate:"min=0"`
}

// Default returns a default configuration
func Default() *Config {
	logCfg := logging.DefaultConfig()
	return &Config{
		Mode:            string(types.ModeScan),
		LookbackDays:    14,
		ThresholdPreset: classify.PresetBalanced,
		Concurrency: &ConcurrencyConfig{
			MaxParallelObservations: 8,
			MaxParallelServers:      4,
		},
		Retry: &RetryConfig{
			MaxAttempts:       3,
			InitialIntervalMS: 500,
		},
		Logging: &logCfg,
	}
}

// Load reads configuration from a file; a missing file yields the
// defaults
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, errors.Wrap(errors.TypeConfig, "cannot read config file", err)
	}

	cfg := Default()
	// The preset default stands in only when the file names neither a
	// preset nor explicit thresholds; a file carrying a thresholds
	// block must not collide with it.
	cfg.ThresholdPreset = ""
	switch filepath.Ext(path) {
	case ".json":
		err = json.Unmarshal(data, cfg)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	case ".hcl":
		err = hclsimple.Decode(path, data, nil, cfg)
	default:
		return nil, errors.Configf("unsupported config format %q", filepath.Ext(path))
	}
	if err != nil {
		return nil, errors.Wrap(errors.TypeConfig, "cannot parse config file", err)
	}
	if cfg.ThresholdPreset == "" && cfg.Thresholds == nil {
		cfg.ThresholdPreset = classify.PresetBalanced
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("protected_id", func(fl validator.FieldLevel) bool {
		return len(strings.Split(fl.Field().String(), "/")) == 3
	})
	return v
}

// Validate checks structural constraints. Cross-value rules the tag
// language cannot express (preset vs explicit thresholds, catalog
// monotonicity) are checked by the Build helpers.
func (c *Config) Validate() error {
	if err := newValidator().Struct(c); err != nil {
		return errors.Wrap(errors.TypeConfig, "invalid configuration", err)
	}
	if c.ThresholdPreset != "" && c.Thresholds != nil {
		return errors.Config("threshold_preset and thresholds are mutually exclusive")
	}
	return nil
}

// BuildCatalog constructs the tier catalog, validating ordering
func (c *Config) BuildCatalog() (*catalog.Catalog, error) {
	if len(c.Tiers) == 0 {
		return catalog.StandardDTU(), nil
	}
	tiers := make([]catalog.TierDefinition, len(c.Tiers))
	for i, t := range c.Tiers {
		price, err := decimal.NewFromString(t.MonthlyPrice)
		if err != nil {
			return nil, errors.Configf("tier %q: invalid monthly price %q", t.Name, t.MonthlyPrice)
		}
		tiers[i] = catalog.TierDefinition{
			Name:          t.Name,
			CapacityUnits: t.CapacityUnits,
			MonthlyPrice:  price,
			MaxStorageGB:  t.MaxStorageGB,
		}
	}
	return catalog.New(tiers)
}

// BuildThresholds resolves the threshold policy
func (c *Config) BuildThresholds() (classify.Thresholds, error) {
	if c.Thresholds != nil {
		t := classify.Thresholds{
			Critical:     c.Thresholds.Critical,
			Upgrade:      c.Thresholds.Upgrade,
			DowngradeAvg: c.Thresholds.DowngradeAvg,
			DowngradeMax: c.Thresholds.DowngradeMax,
		}
		return t, t.Validate()
	}
	preset := c.ThresholdPreset
	if preset == "" {
		preset = classify.PresetBalanced
	}
	return classify.Preset(preset)
}

// BuildProtected resolves the protected rule set
func (c *Config) BuildProtected() (protect.RuleSet, error) {
	if c.Protected == nil {
		return protect.RuleSet{}, nil
	}
	rs := protect.RuleSet{
		ServerPrefixes: c.Protected.ServerPrefixes,
		NameContains:   c.Protected.NameContains,
	}
	for _, raw := range c.Protected.IDs {
		parts := strings.Split(raw, "/")
		if len(parts) != 3 {
			return protect.RuleSet{}, errors.Configf("protected id %q must be subscription/server/database", raw)
		}
		rs.IDs = append(rs.IDs, types.ResourceID{
			Subscription: parts[0],
			Server:       parts[1],
			Database:     parts[2],
		})
	}
	return rs, nil
}

// BuildEngineOptions resolves engine and reconciler options
func (c *Config) BuildEngineOptions() engine.Options {
	opts := engine.DefaultOptions()
	opts.Mode = types.RunMode(c.Mode)
	if opts.Mode == "" {
		opts.Mode = types.ModeScan
	}
	if c.LookbackDays > 0 {
		opts.LookbackDays = c.LookbackDays
	}
	if c.Concurrency != nil {
		if c.Concurrency.MaxParallelObservations > 0 {
			opts.MaxParallelObservations = c.Concurrency.MaxParallelObservations
		}
		if c.Concurrency.MaxParallelServers > 0 {
			opts.Reconcile.MaxParallelServers = c.Concurrency.MaxParallelServers
		}
		opts.Reconcile.RequestsPerSecond = c.Concurrency.RequestsPerSecond
	}
	if c.Retry != nil {
		if c.Retry.MaxAttempts > 0 {
			opts.Reconcile.RetryMaxAttempts = c.Retry.MaxAttempts
		}
		if c.Retry.InitialIntervalMS > 0 {
			opts.Reconcile.RetryInitialInterval = time.Duration(c.Retry.InitialIntervalMS) * time.Millisecond
		}
	}
	return opts
}

// Global configuration instance
var globalConfig = Default()

// Get returns the global configuration
func Get() *Config {
	return globalConfig
}

// Set sets the global configuration
func Set(config *Config) {
	globalConfig = config
}
