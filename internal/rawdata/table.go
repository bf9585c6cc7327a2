package rawdata

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/unicode/norm"

	"github.com/couchcryptid/cruise-data-etl/internal/domain"
)

// Table is an immutable, header-indexed view of a CSV or spreadsheet.
// Column names are cleaned with CleanColumnName.
type Table struct {
	file    string
	columns []string
	index   map[string]int
	rows    [][]string
}

// NewTable builds a table from a header row and data rows. Short rows are
// padded with empty cells.
func NewTable(file string, header []string, rows [][]string) *Table {
	t := &Table{
		file:    file,
		columns: make([]string, len(header)),
		index:   make(map[string]int, len(header)),
		rows:    make([][]string, 0, len(rows)),
	}
	for i, h := range header {
		name := CleanColumnName(h)
		t.columns[i] = name
		if _, dup := t.index[name]; !dup {
			t.index[name] = i
		}
	}
	for _, r := range rows {
		if isBlank(r) {
			continue
		}
		row := make([]string, len(header))
		copy(row, r)
		t.rows = append(t.rows, row)
	}
	return t
}

// File returns the path the table was read from.
func (t *Table) File() string { return t.file }

// Columns returns the cleaned column names in file order.
func (t *Table) Columns() []string {
	return append([]string(nil), t.columns...)
}

// Len returns the number of data rows.
func (t *Table) Len() int { return len(t.rows) }

// Has reports whether the table has the named column.
func (t *Table) Has(column string) bool {
	_, ok := t.index[column]
	return ok
}

// Value returns the trimmed cell at row for column, or "" if the column is absent.
func (t *Table) Value(row int, column string) string {
	i, ok := t.index[column]
	if !ok {
		return ""
	}
	return strings.TrimSpace(t.rows[row][i])
}

// Require returns a *domain.MalformedInputError naming every missing column.
func (t *Table) Require(columns ...string) error {
	var missing []string
	for _, c := range columns {
		if !t.Has(c) {
			missing = append(missing, c)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return &domain.MalformedInputError{
		File:    t.file,
		Columns: missing,
		Reason:  fmt.Sprintf("missing required columns (have %s)", strings.Join(t.columns, ", ")),
	}
}

var (
	nonIdentRe   = regexp.MustCompile(`[^a-z0-9_]+`)
	leadingDigit = regexp.MustCompile(`^([0-9])`)
)

// CleanColumnName lower-cases a column header and replaces runs of other
// characters with "_": "Dec_LAT" -> "dec_lat", "dateTime8601" ->
// "datetime8601", "2nd Pass" -> "_2nd_pass".
func CleanColumnName(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = nonIdentRe.ReplaceAllString(s, "_")
	s = strings.TrimSuffix(s, "_")
	return leadingDigit.ReplaceAllString(s, "_$1")
}

// ReadTable reads a CSV or XLSX file whose first row is the header.
func ReadTable(path string) (*Table, error) {
	records, err := readRecords(path, 0)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, &domain.MalformedInputError{File: path, Reason: "no header row"}
	}
	return NewTable(path, records[0], records[1:]), nil
}

// readRecords returns every row of a CSV or the first sheet of an XLSX
// file. For CSV, lines starting with comment are skipped when comment is
// non-zero.
func readRecords(path string, comment rune) ([][]string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return readXLSX(path)
	default:
		return readCSV(path, comment)
	}
}

func readCSV(path string, comment rune) ([][]string, error) {
	text, err := readText(path)
	if err != nil {
		return nil, err
	}
	r := csv.NewReader(strings.NewReader(text))
	r.FieldsPerRecord = -1
	r.Comment = comment
	r.LazyQuotes = true
	var records [][]string
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &domain.MalformedInputError{File: path, Reason: err.Error()}
		}
		records = append(records, rec)
	}
	return records, nil
}

func readXLSX(path string) ([][]string, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, &domain.MalformedInputError{File: path, Reason: err.Error()}
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, &domain.MalformedInputError{File: path, Reason: "workbook has no sheets"}
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, &domain.MalformedInputError{File: path, Reason: err.Error()}
	}
	for i := range rows {
		for j := range rows[i] {
			rows[i][j] = norm.NFC.String(rows[i][j])
		}
	}
	return rows, nil
}

// readText reads a text file as UTF-8, falling back to Latin-1 for files
// that are not valid UTF-8. The result is NFC-normalised.
func readText(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return decodeText(b)
}

func decodeText(b []byte) (string, error) {
	b = bytes.TrimPrefix(b, []byte("\xef\xbb\xbf"))
	if !utf8.Valid(b) {
		decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(b)
		if err != nil {
			return "", fmt.Errorf("decode latin-1: %w", err)
		}
		b = decoded
	}
	return norm.NFC.String(string(b)), nil
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
