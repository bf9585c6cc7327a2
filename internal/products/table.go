package products

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"time"
)

// Product names, also used as file name suffixes.
const (
	ProductElog        = "elog"
	ProductUnderway    = "underway"
	ProductStations    = "stations"
	ProductCTDMetadata = "ctd_metadata"
)

// All lists every product in generation order.
var All = []string{ProductCTDMetadata, ProductUnderway, ProductStations, ProductElog}

const defaultPrecision = 6

// Table is a rendered data product. Cells hold string, int, float64 or
// time.Time values; NaN floats are missing values.
type Table struct {
	Columns []string
	Rows    [][]any
	// Precision overrides the number of decimal places for float columns.
	Precision map[string]int
}

// Len returns the number of rows.
func (t Table) Len() int { return len(t.Rows) }

func (t Table) precision(col string) int {
	if p, ok := t.Precision[col]; ok {
		return p
	}
	return defaultPrecision
}

// WriteCSV writes the table with a header row. Missing floats are "NaN" and
// times are RFC 3339 UTC.
func WriteCSV(w io.Writer, t Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns); err != nil {
		return err
	}
	record := make([]string, len(t.Columns))
	for _, row := range t.Rows {
		for i, col := range t.Columns {
			record[i] = formatCell(cellAt(row, i), t.precision(col))
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteJSON writes the table as an array of objects keyed by column, in
// column order. Missing floats are null.
func WriteJSON(w io.Writer, t Table) error {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for r, row := range t.Rows {
		if r > 0 {
			buf.WriteByte(',')
		}
		buf.WriteByte('{')
		for i, col := range t.Columns {
			if i > 0 {
				buf.WriteByte(',')
			}
			key, err := json.Marshal(col)
			if err != nil {
				return err
			}
			buf.Write(key)
			buf.WriteByte(':')
			val, err := jsonCell(cellAt(row, i), t.precision(col))
			if err != nil {
				return fmt.Errorf("column %s row %d: %w", col, r, err)
			}
			buf.Write(val)
		}
		buf.WriteByte('}')
	}
	buf.WriteString("]\n")
	_, err := w.Write(buf.Bytes())
	return err
}

func cellAt(row []any, i int) any {
	if i < len(row) {
		return row[i]
	}
	return nil
}

func formatCell(v any, precision int) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case int:
		return strconv.Itoa(x)
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return "NaN"
		}
		return strconv.FormatFloat(x, 'f', precision, 64)
	case time.Time:
		if x.IsZero() {
			return ""
		}
		return x.UTC().Format(time.RFC3339Nano)
	default:
		return fmt.Sprint(x)
	}
}

func jsonCell(v any, precision int) ([]byte, error) {
	switch x := v.(type) {
	case nil:
		return []byte("null"), nil
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return []byte("null"), nil
		}
		// same digits as the CSV form
		return []byte(strconv.FormatFloat(x, 'f', precision, 64)), nil
	case time.Time:
		if x.IsZero() {
			return []byte("null"), nil
		}
		return json.Marshal(x.UTC().Format(time.RFC3339Nano))
	default:
		return json.Marshal(x)
	}
}
