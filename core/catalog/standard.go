// Package catalog - Built-in DTU catalog
// List prices for the provider's single-database DTU model.
package catalog

import "github.com/shopspring/decimal"

func usd(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// StandardDTU returns the standard single-database DTU tier ladder.
// Order is the upgrade order; capacity and price are strictly
// increasing by construction.
func StandardDTU() *Catalog {
	return MustNew([]TierDefinition{
		{Name: "Basic", CapacityUnits: 5, MonthlyPrice: usd("5"), MaxStorageGB: 2},
		{Name: "S0", CapacityUnits: 10, MonthlyPrice: usd("15"), MaxStorageGB: 250},
		{Name: "S1", CapacityUnits: 20, MonthlyPrice: usd("30"), MaxStorageGB: 250},
		{Name: "S2", CapacityUnits: 50, MonthlyPrice: usd("75"), MaxStorageGB: 250},
		{Name: "S3", CapacityUnits: 100, MonthlyPrice: usd("150"), MaxStorageGB: 250},
		{Name: "P1", CapacityUnits: 125, MonthlyPrice: usd("465"), MaxStorageGB: 500},
		{Name: "P2", CapacityUnits: 250, MonthlyPrice: usd("930"), MaxStorageGB: 500},
		{Name: "P4", CapacityUnits: 500, MonthlyPrice: usd("1860"), MaxStorageGB: 500},
	})
}
