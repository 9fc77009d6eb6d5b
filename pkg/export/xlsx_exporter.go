package export

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
)

const (
	defaultSheetName = "Sheet1"
	maxSheetNameLen  = 31
)

// XLSXExporter renders a Dataset into a single-sheet workbook.
type XLSXExporter struct{}

// NewXLSXExporter constructs an XLSX exporter.
func NewXLSXExporter() *XLSXExporter {
	return &XLSXExporter{}
}

// Render writes the header row in bold followed by the dataset rows. Numbers and dates keep their cell types.
func (e *XLSXExporter) Render(data Dataset) ([]byte, error) {
	if err := validate(data, "xlsx"); err != nil {
		return nil, err
	}
	f := excelize.NewFile()
	defer f.Close() //nolint:errcheck

	sheet := data.SheetName
	if sheet == "" {
		sheet = defaultSheetName
	}
	if len(sheet) > maxSheetNameLen {
		sheet = sheet[:maxSheetNameLen]
	}
	if sheet != defaultSheetName {
		if err := f.SetSheetName(defaultSheetName, sheet); err != nil {
			return nil, fmt.Errorf("name sheet: %w", err)
		}
	}

	headers := make([]interface{}, len(data.Headers))
	for i, h := range data.Headers {
		headers[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &headers); err != nil {
		return nil, fmt.Errorf("write xlsx headers: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}
	lastHeader, _ := excelize.CoordinatesToCellName(len(data.Headers), 1)
	if err := f.SetCellStyle(sheet, "A1", lastHeader, bold); err != nil {
		return nil, fmt.Errorf("style xlsx headers: %w", err)
	}

	dateStyle, err := f.NewStyle(&excelize.Style{NumFmt: 14})
	if err != nil {
		return nil, fmt.Errorf("create date style: %w", err)
	}

	for rowIdx, row := range data.Rows {
		cell, _ := excelize.CoordinatesToCellName(1, rowIdx+2)
		values := make([]interface{}, len(row))
		copy(values, row)
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return nil, fmt.Errorf("write xlsx row %d: %w", rowIdx, err)
		}
		for colIdx, v := range row {
			if _, ok := v.(time.Time); ok {
				dateCell, _ := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
				_ = f.SetCellStyle(sheet, dateCell, dateCell, dateStyle)
			}
		}
	}

	lastCol, _ := excelize.ColumnNumberToName(len(data.Headers))
	if err := f.SetColWidth(sheet, "A", lastCol, 22); err != nil {
		return nil, fmt.Errorf("size xlsx columns: %w", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("render xlsx: %w", err)
	}
	return buf.Bytes(), nil
}
