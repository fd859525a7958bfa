// Package tabular converts between in-memory records and the textual
// tabular format used inside export archives. Serialization is plain CSV;
// deserialization is header-driven with typed-column coercion.
package tabular

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Table is an ordered set of columns plus one value map per row. Values
// are nil (null), string, int64 or float64.
type Table struct {
	Columns []string
	Rows    []map[string]any
}

// Marshal renders the table as a header line followed by one record per
// row. Fields containing commas, quotes or newlines are quoted with
// internal quote-doubling; nil values render empty.
func Marshal(t Table) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(t.Columns); err != nil {
		return nil, fmt.Errorf("writing header: %w", err)
	}

	record := make([]string, len(t.Columns))
	for i, row := range t.Rows {
		for j, col := range t.Columns {
			record[j] = formatValue(row[col])
		}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("writing row %d: %w", i, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flushing table: %w", err)
	}
	return buf.Bytes(), nil
}

// Unmarshal parses header-driven rows. Individual malformed rows are
// collected as warnings and skipped, never fatal; the returned table holds
// whatever rows did parse.
func Unmarshal(data []byte) (Table, []string, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err == io.EOF {
		return Table{}, nil, fmt.Errorf("empty table")
	}
	if err != nil {
		return Table{}, nil, fmt.Errorf("reading header: %w", err)
	}

	t := Table{Columns: header}
	var warnings []string

	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("skipping malformed row: %v", err))
			continue
		}
		if len(record) != len(header) {
			warnings = append(warnings,
				fmt.Sprintf("skipping row with %d fields, want %d", len(record), len(header)))
			continue
		}

		row := make(map[string]any, len(header))
		for i, col := range header {
			row[col] = coerceValue(col, record[i])
		}
		t.Rows = append(t.Rows, row)
	}

	return t, warnings, nil
}

func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}

// coerceValue applies the typed-column rules: columns named exactly "id"
// or "price", or ending in "_id", parse to a number when the value is
// numeric; timestamp columns ("_at" suffix) and all other columns stay
// trimmed strings. Empty fields decode to nil throughout, so null fields
// survive a round trip.
func coerceValue(col, val string) any {
	val = strings.TrimSpace(val)
	if val == "" {
		return nil
	}

	if col == "id" || col == "price" || strings.HasSuffix(col, "_id") {
		if i, err := strconv.ParseInt(val, 10, 64); err == nil {
			return i
		}
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}

	return val
}
