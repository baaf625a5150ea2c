package table

import (
	"errors"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// ReadXLSX parses the first worksheet of a workbook. The first row is the header.
func ReadXLSX(r io.Reader) (*Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, &ParseError{Format: FormatXLSX, Err: err}
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, &ParseError{Format: FormatXLSX, Err: errors.New("workbook has no sheets")}
	}

	// raw values, so a number format on the sheet never rounds the inputs
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, &ParseError{Format: FormatXLSX, Err: fmt.Errorf("sheet %s: %w", sheets[0], err)}
	}
	if len(rows) == 0 {
		return nil, &ParseError{Format: FormatXLSX, Err: fmt.Errorf("sheet %s is empty", sheets[0])}
	}

	if err := checkWidth(FormatXLSX, rows[0], rows[1:]); err != nil {
		return nil, err
	}
	// excelize omits trailing empty cells, so short rows are padded by normalize
	return normalize(rows[0], rows[1:]), nil
}
