package classify

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dbtier/core/catalog"
	"dbtier/core/types"
	"dbtier/internal/errors"
)

func usd(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	c, err := catalog.New([]catalog.TierDefinition{
		{Name: "Basic", CapacityUnits: 5, MonthlyPrice: usd("5"), MaxStorageGB: 2},
		{Name: "S0", CapacityUnits: 10, MonthlyPrice: usd("15"), MaxStorageGB: 250},
		{Name: "S1", CapacityUnits: 20, MonthlyPrice: usd("30"), MaxStorageGB: 250},
		{Name: "S2", CapacityUnits: 50, MonthlyPrice: usd("75"), MaxStorageGB: 250},
	})
	require.NoError(t, err)
	return c
}

func testThresholds() Thresholds {
	return Thresholds{Critical: 90, Upgrade: 65, DowngradeAvg: 15, DowngradeMax: 35}
}

func testClassifier(t *testing.T) *Classifier {
	t.Helper()
	c, err := New(testCatalog(t), testThresholds())
	require.NoError(t, err)
	return c
}

func obs(tier string, avg, max float64) types.Observation {
	return types.Observation{
		ID:                types.ResourceID{Subscription: "sub", Server: "srv", Database: "db"},
		CurrentTier:       tier,
		MaxStorageGB:      50,
		AvgUtilizationPct: avg,
		MaxUtilizationPct: max,
	}
}

func TestClassify_ProtectedAlwaysKeeps(t *testing.T) {
	c := testClassifier(t)

	// Boundary fuzz: protection short-circuits every utilization
	// combination, including the most extreme ones.
	for _, avg := range []float64{0, 14.9, 15, 15.1, 50, 100} {
		for _, max := range []float64{0, 35, 64.9, 65, 89.9, 90, 99, 100} {
			o := obs("S1", avg, max)
			o.Protected = true

			d, err := c.Classify(o)
			require.NoError(t, err)
			assert.Equal(t, types.ActionKeep, d.Action, "avg=%g max=%g", avg, max)
			assert.Equal(t, ReasonProtected, d.Reason)
			assert.Equal(t, "S1", d.TargetTier)
		}
	}
}

func TestClassify_CriticalPeakJumpsTwoLevels(t *testing.T) {
	c := testClassifier(t)

	d, err := c.Classify(obs("S0", 50, 96))
	require.NoError(t, err)
	assert.Equal(t, types.ActionUpgrade, d.Action)
	assert.Equal(t, "S2", d.TargetTier)
	assert.Equal(t, ReasonCritical, d.Reason)
	assert.Equal(t, types.PriorityCritical, d.Priority)
}

func TestClassify_CriticalBoundaryIsInclusive(t *testing.T) {
	c := testClassifier(t)

	d, err := c.Classify(obs("S0", 50, 90))
	require.NoError(t, err)
	assert.Equal(t, types.ActionUpgrade, d.Action)
	assert.Equal(t, "S2", d.TargetTier)
}

func TestClassify_CriticalClampsAtHighestTier(t *testing.T) {
	c := testClassifier(t)

	d, err := c.Classify(obs("S1", 50, 95))
	require.NoError(t, err)
	assert.Equal(t, "S2", d.TargetTier)

	d, err = c.Classify(obs("S2", 50, 95))
	require.NoError(t, err)
	assert.Equal(t, types.ActionUpgrade, d.Action)
	assert.Equal(t, "S2", d.TargetTier, "already at top: clamped, not an error")
}

func TestClassify_SustainedPeakUpgradesOneLevel(t *testing.T) {
	c := testClassifier(t)

	for _, max := range []float64{65, 70, 89.9} {
		d, err := c.Classify(obs("S0", 40, max))
		require.NoError(t, err)
		assert.Equal(t, types.ActionUpgrade, d.Action, "max=%g", max)
		assert.Equal(t, "S1", d.TargetTier)
		assert.Equal(t, ReasonPeakPressure, d.Reason)
		assert.Equal(t, types.PriorityHigh, d.Priority)
	}
}

func TestClassify_LowUtilizationDowngrades(t *testing.T) {
	c := testClassifier(t)

	d, err := c.Classify(obs("S1", 8, 20))
	require.NoError(t, err)
	assert.Equal(t, types.ActionDowngrade, d.Action)
	assert.Equal(t, "S0", d.TargetTier)
	assert.Equal(t, ReasonLowUtilization, d.Reason)
	assert.Equal(t, types.PrioritySavings, d.Priority)
}

func TestClassify_DowngradeBoundariesAreInclusive(t *testing.T) {
	c := testClassifier(t)

	d, err := c.Classify(obs("S1", 15, 35))
	require.NoError(t, err)
	assert.Equal(t, types.ActionDowngrade, d.Action)
}

func TestClassify_DowngradeBlockedByStorage(t *testing.T) {
	c := testClassifier(t)

	// S0 -> Basic would leave only 2GB for a 50GB database.
	d, err := c.Classify(obs("S0", 5, 10))
	require.NoError(t, err)
	assert.Equal(t, types.ActionKeep, d.Action)
	assert.Equal(t, "S0", d.TargetTier)
	assert.Equal(t, ReasonStorageIncompat, d.Reason)
	assert.Equal(t, types.PriorityCaution, d.Priority)
}

func TestClassify_DowngradeAllowedWhenStorageFits(t *testing.T) {
	c := testClassifier(t)

	o := obs("S0", 5, 10)
	o.MaxStorageGB = 1.5
	d, err := c.Classify(o)
	require.NoError(t, err)
	assert.Equal(t, types.ActionDowngrade, d.Action)
	assert.Equal(t, "Basic", d.TargetTier)
}

func TestClassify_LowestTierNeverDowngrades(t *testing.T) {
	c := testClassifier(t)

	o := obs("Basic", 0, 0)
	o.MaxStorageGB = 1
	d, err := c.Classify(o)
	require.NoError(t, err)
	assert.Equal(t, types.ActionKeep, d.Action)
	assert.Equal(t, ReasonWithinNormalRange, d.Reason)
}

func TestClassify_SpikyLowAverageKeepsHeadroom(t *testing.T) {
	c := testClassifier(t)

	d, err := c.Classify(obs("S1", 10, 50))
	require.NoError(t, err)
	assert.Equal(t, types.ActionKeep, d.Action)
	assert.Equal(t, ReasonSpikyKeepHeadroom, d.Reason)
	assert.Equal(t, types.PriorityCaution, d.Priority)
}

func TestClassify_WithinNormalRange(t *testing.T) {
	c := testClassifier(t)

	d, err := c.Classify(obs("S1", 40, 55))
	require.NoError(t, err)
	assert.Equal(t, types.ActionKeep, d.Action)
	assert.Equal(t, ReasonWithinNormalRange, d.Reason)
	assert.Equal(t, types.PriorityNone, d.Priority)
	assert.Equal(t, "S1", d.TargetTier)
}

func TestClassify_ZeroUtilizationTriggersDowngradeRules(t *testing.T) {
	// Absent metrics are valid input, treated as zero utilization.
	c := testClassifier(t)

	d, err := c.Classify(obs("S1", 0, 0))
	require.NoError(t, err)
	assert.Equal(t, types.ActionDowngrade, d.Action)
	assert.Equal(t, "S0", d.TargetTier)
}

func TestClassify_UnknownTierFailsOnlyThatResource(t *testing.T) {
	c := testClassifier(t)

	_, err := c.Classify(obs("Hyperscale", 40, 55))
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.TypeUnknownTier))
}

func TestClassify_Deterministic(t *testing.T) {
	c := testClassifier(t)

	o := obs("S1", 8, 20)
	first, err := c.Classify(o)
	require.NoError(t, err)
	second, err := c.Classify(o)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestThresholds_RejectsAmbiguousOverlap(t *testing.T) {
	tt := Thresholds{Critical: 90, Upgrade: 30, DowngradeAvg: 30, DowngradeMax: 35}

	err := tt.Validate()
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.TypeConfig))

	_, err = New(testCatalog(t), tt)
	require.Error(t, err)
}

func TestThresholds_RejectsOutOfRange(t *testing.T) {
	tt := testThresholds()
	tt.Critical = 101

	err := tt.Validate()
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.TypeConfig))
}

func TestPresets_AreDistinctPolicies(t *testing.T) {
	balanced, err := Preset(PresetBalanced)
	require.NoError(t, err)
	peak, err := Preset(PresetPeakSensitive)
	require.NoError(t, err)

	assert.Equal(t, 65.0, balanced.Upgrade)
	assert.Equal(t, 70.0, peak.Upgrade)
	require.NoError(t, balanced.Validate())
	require.NoError(t, peak.Validate())

	// The two policies disagree at max=67: that is the point of
	// keeping them separate.
	cb, err := New(testCatalog(t), balanced)
	require.NoError(t, err)
	cp, err := New(testCatalog(t), peak)
	require.NoError(t, err)

	db, err := cb.Classify(obs("S0", 40, 67))
	require.NoError(t, err)
	dp, err := cp.Classify(obs("S0", 40, 67))
	require.NoError(t, err)
	assert.Equal(t, types.ActionUpgrade, db.Action)
	assert.Equal(t, types.ActionKeep, dp.Action)
}

func TestPreset_UnknownName(t *testing.T) {
	_, err := Preset("lenient")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.TypeConfig))
}
