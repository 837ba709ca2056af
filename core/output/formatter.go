// Package output provides output formatting interfaces.
// Renders plan and apply-result sequences for humans and machines.
package output

import (
	"io"

	"dbtier/core/engine"
	"dbtier/internal/errors"
)

// Format represents output format type
type Format string

const (
	// FormatCLI is a human-readable table
	FormatCLI Format = "cli"

	// FormatJSON is machine-readable JSON
	FormatJSON Format = "json"

	// FormatCSV is one row per resource, for spreadsheet review
	FormatCSV Format = "csv"
)

// Formatter produces output in a specific format
type Formatter interface {
	// Format returns the format type
	Format() Format

	// Render produces output for the given run result
	Render(w io.Writer, result *engine.Result) error
}

// ForFormat returns the formatter for a format name
func ForFormat(f Format) (Formatter, error) {
	switch f {
	case FormatCLI, "":
		return &CLIFormatter{}, nil
	case FormatJSON:
		return &JSONFormatter{}, nil
	case FormatCSV:
		return &CSVFormatter{}, nil
	}
	return nil, errors.Configf("unknown output format %q", f)
}
