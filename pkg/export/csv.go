package export

import (
	"encoding/csv"
	"fmt"
	"io"
)

// Column maps one CSV column to a field of T.
type Column[T any] struct {
	Header string
	Value  func(T) string
}

// WriteCSV streams rows to w with a header line built from columns.
func WriteCSV[T any](w io.Writer, columns []Column[T], rows []T) error {
	if len(columns) == 0 {
		return fmt.Errorf("csv requires at least one column")
	}
	writer := csv.NewWriter(w)
	headers := make([]string, len(columns))
	for i, col := range columns {
		headers[i] = col.Header
	}
	if err := writer.Write(headers); err != nil {
		return fmt.Errorf("write csv headers: %w", err)
	}
	record := make([]string, len(columns))
	for _, row := range rows {
		for i, col := range columns {
			record[i] = col.Value(row)
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}
