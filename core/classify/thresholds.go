// Package classify - Utilization thresholds
// Thresholds are configuration, not constants. The source scripts
// carried two genuinely different policies; they are kept as separate
// named presets and never merged.
package classify

import (
	"dbtier/internal/errors"
)

// Thresholds holds the utilization boundaries the classifier evaluates
// against, all in percent of tier capacity
type Thresholds struct {
	// Critical triggers a two-level upgrade when peak utilization
	// reaches it
	Critical float64 `json:"critical"`

	// Upgrade triggers a one-level upgrade when peak utilization
	// reaches it
	Upgrade float64 `json:"upgrade"`

	// DowngradeAvg is the average-utilization ceiling for a downgrade
	DowngradeAvg float64 `json:"downgrade_avg"`

	// DowngradeMax is the peak-utilization ceiling for a downgrade
	DowngradeMax float64 `json:"downgrade_max"`
}

// Preset names for the threshold policies found in production use
const (
	// PresetBalanced is the default policy: one-level upgrades begin
	// at 65% peak and downgrades require avg<=15 with max<=35
	PresetBalanced = "balanced"

	// PresetPeakSensitive waits for 70% peak before upgrading; for
	// fleets where brief spikes are routine
	PresetPeakSensitive = "peak-sensitive"
)

var presets = map[string]Thresholds{
	PresetBalanced:      {Critical: 90, Upgrade: 65, DowngradeAvg: 15, DowngradeMax: 35},
	PresetPeakSensitive: {Critical: 90, Upgrade: 70, DowngradeAvg: 15, DowngradeMax: 35},
}

// Preset returns a named threshold policy
func Preset(name string) (Thresholds, error) {
	t, ok := presets[name]
	if !ok {
		return Thresholds{}, errors.Configf("unknown threshold preset %q", name)
	}
	return t, nil
}

// PresetNames returns the available preset names
func PresetNames() []string {
	return []string{PresetBalanced, PresetPeakSensitive}
}

// Validate rejects contradictory or out-of-range thresholds
func (t Thresholds) Validate() error {
	for _, v := range []struct {
		name  string
		value float64
	}{
		{"critical", t.Critical},
		{"upgrade", t.Upgrade},
		{"downgrade_avg", t.DowngradeAvg},
		{"downgrade_max", t.DowngradeMax},
	} {
		if v.value < 0 || v.value > 100 {
			return errors.Configf("threshold %s must be within [0,100], got %g", v.name, v.value)
		}
	}
	if t.DowngradeAvg >= t.Upgrade {
		return errors.Configf(
			"ambiguous thresholds: downgrade_avg (%g) must be below upgrade (%g)",
			t.DowngradeAvg, t.Upgrade)
	}
	return nil
}
