// Package catalog - Ordered capacity tier catalog
// This is the source of truth for tier ordering, pricing and storage
// ceilings. A catalog is immutable for the duration of a run.
package catalog

import (
	"github.com/shopspring/decimal"

	"dbtier/internal/errors"
)

// TierDefinition describes one capacity tier
type TierDefinition struct {
	// Name is the provider SKU name
	Name string `json:"name"`

	// CapacityUnits is the provider's abstract throughput measure
	CapacityUnits int `json:"capacity_units"`

	// MonthlyPrice is the list price per month
	MonthlyPrice decimal.Decimal `json:"monthly_price"`

	// MaxStorageGB is the storage ceiling for the tier
	MaxStorageGB float64 `json:"max_storage_gb"`
}

// Catalog is an ordered sequence of tiers with strictly increasing
// capacity and price
type Catalog struct {
	tiers []TierDefinition
	index map[string]int
}

// New builds a catalog, validating the ordering invariants. Capacity
// and price must be strictly increasing; all values must be positive;
// names must be unique.
func New(tiers []TierDefinition) (*Catalog, error) {
	if len(tiers) == 0 {
		return nil, errors.Config("catalog must contain at least one tier")
	}

	index := make(map[string]int, len(tiers))
	for i, t := range tiers {
		if t.Name == "" {
			return nil, errors.Configf("catalog tier %d has no name", i)
		}
		if _, dup := index[t.Name]; dup {
			return nil, errors.Configf("catalog tier %q declared twice", t.Name)
		}
		if t.CapacityUnits <= 0 {
			return nil, errors.Configf("tier %q: capacity units must be positive", t.Name)
		}
		if !t.MonthlyPrice.IsPositive() {
			return nil, errors.Configf("tier %q: monthly price must be positive", t.Name)
		}
		if t.MaxStorageGB <= 0 {
			return nil, errors.Configf("tier %q: max storage must be positive", t.Name)
		}
		if i > 0 {
			prev := tiers[i-1]
			if t.CapacityUnits <= prev.CapacityUnits {
				return nil, errors.Configf("tier %q: capacity units not strictly increasing after %q", t.Name, prev.Name)
			}
			if t.MonthlyPrice.Cmp(prev.MonthlyPrice) <= 0 {
				return nil, errors.Configf("tier %q: monthly price not strictly increasing after %q", t.Name, prev.Name)
			}
		}
		index[t.Name] = i
	}

	out := make([]TierDefinition, len(tiers))
	copy(out, tiers)
	return &Catalog{tiers: out, index: index}, nil
}

// MustNew builds a catalog and panics on invalid input; for built-in
// presets only
func MustNew(tiers []TierDefinition) *Catalog {
	c, err := New(tiers)
	if err != nil {
		panic(err)
	}
	return c
}

// Len returns the number of tiers
func (c *Catalog) Len() int {
	return len(c.tiers)
}

// IndexOf returns the position of a tier by name
func (c *Catalog) IndexOf(name string) (int, error) {
	i, ok := c.index[name]
	if !ok {
		return 0, errors.UnknownTier(name, "")
	}
	return i, nil
}

// Get returns a tier by name
func (c *Catalog) Get(name string) (TierDefinition, error) {
	i, err := c.IndexOf(name)
	if err != nil {
		return TierDefinition{}, err
	}
	return c.tiers[i], nil
}

// At returns the tier at a position; callers must pass a valid index
func (c *Catalog) At(i int) TierDefinition {
	return c.tiers[i]
}

// Lowest returns the first tier in the order
func (c *Catalog) Lowest() TierDefinition {
	return c.tiers[0]
}

// Highest returns the last tier in the order
func (c *Catalog) Highest() TierDefinition {
	return c.tiers[len(c.tiers)-1]
}

// LevelsUp returns the tier n positions above name, clamped at the top
// of the catalog. Clamping is intentional and never errors.
func (c *Catalog) LevelsUp(name string, n int) (TierDefinition, error) {
	i, err := c.IndexOf(name)
	if err != nil {
		return TierDefinition{}, err
	}
	target := i + n
	if target > len(c.tiers)-1 {
		target = len(c.tiers) - 1
	}
	return c.tiers[target], nil
}

// LevelsDown returns the tier n positions below name, clamped at the
// bottom of the catalog
func (c *Catalog) LevelsDown(name string, n int) (TierDefinition, error) {
	i, err := c.IndexOf(name)
	if err != nil {
		return TierDefinition{}, err
	}
	target := i - n
	if target < 0 {
		target = 0
	}
	return c.tiers[target], nil
}

// Names returns tier names in catalog order
func (c *Catalog) Names() []string {
	names := make([]string, len(c.tiers))
	for i, t := range c.tiers {
		names[i] = t.Name
	}
	return names
}

// Tiers returns a copy of the tier definitions in order
func (c *Catalog) Tiers() []TierDefinition {
	out := make([]TierDefinition, len(c.tiers))
	copy(out, c.tiers)
	return out
}
