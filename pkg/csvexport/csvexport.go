// Package csvexport writes tabular exports that are safe to open in a
// spreadsheet.
package csvexport

import (
	"encoding/csv"
	"io"
	"strings"
)

// Write emits header then rows as CSV. Cells that a spreadsheet would
// evaluate as a formula are prefixed with a single quote.
func Write(w io.Writer, header []string, rows [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(sanitizeRow(header)); err != nil {
		return err
	}
	for _, row := range rows {
		if err := cw.Write(sanitizeRow(row)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Sanitize neutralises a single cell.
func Sanitize(cell string) string {
	if cell == "" {
		return cell
	}
	if strings.ContainsRune("=+-@", rune(cell[0])) {
		return "'" + cell
	}
	return cell
}

func sanitizeRow(row []string) []string {
	out := make([]string, len(row))
	for i, cell := range row {
		out[i] = Sanitize(cell)
	}
	return out
}
