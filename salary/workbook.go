package salary

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/warp/benefit-engine/generic"
)

// ReadWorkbook returns the first sheet of an .xlsx file as a grid for
// ParseGrid. Cells are read with their display formatting.
func ReadWorkbook(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: workbook has no sheets", generic.ErrUnknownFormat)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}
	return rows, nil
}
