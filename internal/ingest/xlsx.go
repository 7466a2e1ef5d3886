package ingest

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/ignite/workforce-monitor/internal/timenorm"
)

// ReadXLSX parses the first sheet of a workbook into a raw table. Header
// detection is the same as for CSV input.
func ReadXLSX(r io.Reader) (timenorm.Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return timenorm.Table{}, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return timenorm.Table{}, nil
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return timenorm.Table{}, fmt.Errorf("read sheet %s: %w", sheets[0], err)
	}
	return tableFromRows(rows), nil
}
