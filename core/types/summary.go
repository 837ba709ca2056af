// Package types - Run summary
package types

import "github.com/shopspring/decimal"

// Summary aggregates a reconciliation run for reporting
type Summary struct {
	// Total is the number of databases observed
	Total int `json:"total"`

	// Upgraded counts upgrade plans
	Upgraded int `json:"upgraded"`

	// Downgraded counts downgrade plans
	Downgraded int `json:"downgraded"`

	// Kept counts keep plans for unprotected resources
	Kept int `json:"kept"`

	// Protected counts keep plans forced by the protected set
	Protected int `json:"protected"`

	// Failed counts resources that failed classification or mutation
	Failed int `json:"failed"`

	// ProjectedMonthlyDelta sums the cost deltas of all non-Keep plans
	ProjectedMonthlyDelta decimal.Decimal `json:"projected_monthly_delta"`
}

// Summarize folds plans and apply results into a Summary. Failures
// recorded in results override the plan-level counts.
func Summarize(plans []Plan, results []ApplyResult) Summary {
	s := Summary{Total: len(plans)}

	failed := make(map[ResourceID]bool)
	for _, r := range results {
		if r.Status == StatusFailed {
			failed[r.ID] = true
		}
	}

	for _, p := range plans {
		if failed[p.ID] {
			s.Failed++
			continue
		}
		switch p.Action {
		case ActionUpgrade:
			s.Upgraded++
			s.ProjectedMonthlyDelta = s.ProjectedMonthlyDelta.Add(p.MonthlyCostDelta)
		case ActionDowngrade:
			s.Downgraded++
			s.ProjectedMonthlyDelta = s.ProjectedMonthlyDelta.Add(p.MonthlyCostDelta)
		case ActionKeep:
			if p.Protected {
				s.Protected++
			} else {
				s.Kept++
			}
		}
	}
	return s
}
