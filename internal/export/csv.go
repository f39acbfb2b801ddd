// Package export writes stored snapshots in tabular form.
package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/Houeta/seat-watch/internal/models"
	"github.com/jszwec/csvutil"
)

// Row is one stored section together with the watch it belongs to.
type Row struct {
	WatchID     string `csv:"watch_id"`
	Recipient   string `csv:"recipient"`
	WatchStatus string `csv:"watch_status"`
	models.Section
}

// Rows flattens watches into one row per stored section, in watch order.
func Rows(watches []models.Watch) []Row {
	var rows []Row
	for _, w := range watches {
		for _, s := range w.Sections {
			rows = append(rows, Row{
				WatchID:     w.ID,
				Recipient:   w.Recipient,
				WatchStatus: string(w.Status),
				Section:     s,
			})
		}
	}

	return rows
}

// WriteCSV writes the sections of every watch as CSV with a header line.
func WriteCSV(w io.Writer, watches []models.Watch) error {
	const opn = "export.WriteCSV"

	writer := csv.NewWriter(w)
	encoder := csvutil.NewEncoder(writer)

	rows := Rows(watches)
	if len(rows) == 0 {
		if err := encoder.EncodeHeader(Row{}); err != nil {
			return fmt.Errorf("%s: failed to write header: %w", opn, err)
		}
	} else if err := encoder.Encode(rows); err != nil {
		return fmt.Errorf("%s: failed to encode rows: %w", opn, err)
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("%s: failed to flush: %w", opn, err)
	}

	return nil
}
