// Package output - Concrete renderers
package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"dbtier/core/engine"
	"dbtier/core/types"
)

// CLIFormatter renders a human-readable table plus summary
type CLIFormatter struct{}

// Format returns the format type
func (f *CLIFormatter) Format() Format { return FormatCLI }

// Render writes the plan table and run summary
func (f *CLIFormatter) Render(w io.Writer, result *engine.Result) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintln(tw, "RESOURCE\tTIER\tTARGET\tACTION\tPRIORITY\tDELTA/MO\tREASON")
	status := statusByResource(result.Results)
	for _, p := range result.Plans {
		reason := p.Reason
		if p.LowConfidence {
			reason += " (low confidence)"
		}
		if st, ok := status[p.ID]; ok && st.Status == types.StatusFailed {
			reason = st.Err
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			p.ID.String(), p.CurrentTier, p.TargetTier,
			p.Action, p.Priority, p.MonthlyCostDelta.StringFixed(2), reason)
	}
	for _, fail := range result.Failures {
		fmt.Fprintf(tw, "%s\t-\t-\tfailed\t-\t-\t%v\n", fail.ID.String(), fail.Err)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	s := result.Summary
	fmt.Fprintf(w, "\n%d databases: %d upgrade, %d downgrade, %d keep, %d protected, %d failed\n",
		s.Total, s.Upgraded, s.Downgraded, s.Kept, s.Protected, s.Failed)
	fmt.Fprintf(w, "projected monthly delta: %s\n", s.ProjectedMonthlyDelta.StringFixed(2))
	return nil
}

// JSONFormatter renders the full result as indented JSON
type JSONFormatter struct{}

// Format returns the format type
func (f *JSONFormatter) Format() Format { return FormatJSON }

// Render writes the result as JSON
func (f *JSONFormatter) Render(w io.Writer, result *engine.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// CSVFormatter renders one row per planned resource
type CSVFormatter struct{}

// Format returns the format type
func (f *CSVFormatter) Format() Format { return FormatCSV }

// Render writes a CSV with a header row
func (f *CSVFormatter) Render(w io.Writer, result *engine.Result) error {
	cw := csv.NewWriter(w)
	header := []string{
		"subscription", "server", "database",
		"current_tier", "target_tier", "action", "priority",
		"monthly_cost_delta", "reason", "status", "error",
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	status := statusByResource(result.Results)
	for _, p := range result.Plans {
		st, err := "", ""
		if r, ok := status[p.ID]; ok {
			st, err = string(r.Status), r.Err
		}
		row := []string{
			p.ID.Subscription, p.ID.Server, p.ID.Database,
			p.CurrentTier, p.TargetTier, string(p.Action), string(p.Priority),
			p.MonthlyCostDelta.StringFixed(2), p.Reason, st, err,
		}
		if werr := cw.Write(row); werr != nil {
			return werr
		}
	}
	for _, fail := range result.Failures {
		row := []string{
			fail.ID.Subscription, fail.ID.Server, fail.ID.Database,
			"", "", "", "", "", "", string(types.StatusFailed), fail.Err.Error(),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func statusByResource(results []types.ApplyResult) map[types.ResourceID]types.ApplyResult {
	if len(results) == 0 {
		return nil
	}
	m := make(map[types.ResourceID]types.ApplyResult, len(results))
	for _, r := range results {
		m[r.ID] = r
	}
	return m
}
