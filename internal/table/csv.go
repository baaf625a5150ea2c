package table

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
)

// ReadCSV parses a comma separated file whose first record is the header.
func ReadCSV(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, &ParseError{Format: FormatCSV, Err: err}
	}
	if len(records) == 0 {
		return nil, &ParseError{Format: FormatCSV, Err: errors.New("file is empty")}
	}

	if err := checkWidth(FormatCSV, records[0], records[1:]); err != nil {
		return nil, err
	}
	return normalize(records[0], records[1:]), nil
}

// WriteCSV writes t with its header.
func WriteCSV(w io.Writer, t *Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return fmt.Errorf("write rows: %w", err)
	}
	return nil
}
