package engine

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"time"

	"quantbt/types"
)

// WriteFillsCSVFile writes a run's fill log to a CSV file at the given path.
func WriteFillsCSVFile(path string, fills []types.Fill) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create fills file: %w", err)
	}
	defer f.Close()

	return WriteFillsCSV(f, fills)
}

// WriteFillsCSV writes fills to any io.Writer as CSV. Pass os.Stdout for
// debugging, or a file.
func WriteFillsCSV(w io.Writer, fills []types.Fill) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	header := []string{
		"timestamp", // RFC3339
		"symbol",
		"side",
		"quantity",
		"price",
		"commission",
		"realized_pnl",
		"closing",
		"reason",
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, fill := range fills {
		record := []string{
			fill.Timestamp.Format(time.RFC3339),
			fill.Symbol,
			string(fill.Side),
			fill.Quantity.String(),
			fill.Price.String(),
			fill.Commission.String(),
			fill.RealizedPnL.String(),
			fmt.Sprintf("%t", fill.Closing),
			fill.Reason,
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write record: %w", err)
		}
	}

	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}
