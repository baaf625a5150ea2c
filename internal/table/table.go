// Package table reads and writes the tabular batch files accepted by the service.
//
// A Table keeps the header and rows exactly as read, as strings, so a batch can be
// returned to the user unchanged apart from the columns appended to it.
package table

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// Supported formats.
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

// Table is a header plus string rows. Every row has len(Header) cells.
type Table struct {
	Header []string
	Rows   [][]string
}

// ParseError reports an unreadable or malformed upload.
type ParseError struct {
	Format string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("cannot read %s file: %v", e.Format, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// FormatOf returns the format implied by a file name, or "" when unsupported.
func FormatOf(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return FormatCSV
	case ".xlsx":
		return FormatXLSX
	default:
		return ""
	}
}

// Read parses r according to the extension of filename.
func Read(filename string, r io.Reader) (*Table, error) {
	switch FormatOf(filename) {
	case FormatCSV:
		return ReadCSV(r)
	case FormatXLSX:
		return ReadXLSX(r)
	default:
		return nil, &ParseError{
			Format: strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), "."),
			Err:    fmt.Errorf("unsupported file type %q, expected .csv or .xlsx", filepath.Ext(filename)),
		}
	}
}

// Index returns the position of column name, or -1.
func (t *Table) Index(name string) int {
	for i, h := range t.Header {
		if h == name {
			return i
		}
	}
	return -1
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

// WithColumn returns a copy of t with column name set to values. An existing column
// of that name is overwritten in place, otherwise the column is appended. t is not
// modified.
func (t *Table) WithColumn(name string, values []string) (*Table, error) {
	if len(values) != len(t.Rows) {
		return nil, fmt.Errorf("column %s has %d values for %d rows", name, len(values), len(t.Rows))
	}

	at, width := t.Index(name), len(t.Header)
	if at < 0 {
		at = width
		width++
	}

	out := &Table{
		Header: make([]string, width),
		Rows:   make([][]string, len(t.Rows)),
	}
	copy(out.Header, t.Header)
	out.Header[at] = name
	for i, row := range t.Rows {
		cells := make([]string, width)
		copy(cells, row)
		cells[at] = values[i]
		out.Rows[i] = cells
	}
	return out, nil
}

// checkWidth rejects rows holding values beyond the last header column.
func checkWidth(format string, header []string, rows [][]string) error {
	for i, row := range rows {
		if len(row) > len(header) && !isBlank(row[len(header):]) {
			return &ParseError{
				Format: format,
				Err:    fmt.Errorf("row %d has %d fields, header has %d", i+2, len(row), len(header)),
			}
		}
	}
	return nil
}

// normalize strips a UTF-8 BOM and surrounding blanks from the header, drops
// fully empty trailing rows and pads short rows.
func normalize(header []string, rows [][]string) *Table {
	h := make([]string, len(header))
	for i, name := range header {
		if i == 0 {
			name = strings.TrimPrefix(name, "\ufeff")
		}
		h[i] = strings.TrimSpace(name)
	}

	out := make([][]string, 0, len(rows))
	for _, row := range rows {
		if isBlank(row) {
			continue
		}
		cells := make([]string, len(h))
		copy(cells, row)
		out = append(out, cells)
	}
	return &Table{Header: h, Rows: out}
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
