package export

import (
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"
)

const sheetName = "Orders"

// ExcelWriter writes documents as a single-sheet workbook
type ExcelWriter struct{}

// NewExcelWriter creates an ExcelWriter
func NewExcelWriter() *ExcelWriter {
	return &ExcelWriter{}
}

// Write renders the document. Filters go above the header row; an RTL
// document gets a right-to-left sheet.
func (w *ExcelWriter) Write(ctx context.Context, doc Document) ([]byte, error) {
	if len(doc.Columns) == 0 {
		return nil, NewError(ErrCodeEmptyDocument, "document has no columns", nil)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return nil, NewError(ErrCodeWriteFailed, "rename sheet", err)
	}
	rtl := doc.RTL
	if err := f.SetSheetView(sheetName, 0, &excelize.ViewOptions{RightToLeft: &rtl}); err != nil {
		return nil, NewError(ErrCodeWriteFailed, "set sheet view", err)
	}

	styleTitle, _ := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true, Size: 14}})
	styleHeader, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#b45309"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	styleBorder, _ := f.NewStyle(&excelize.Style{Border: []excelize.Border{
		{Type: "left", Color: "000000", Style: 1},
		{Type: "top", Color: "000000", Style: 1},
		{Type: "bottom", Color: "000000", Style: 1},
		{Type: "right", Color: "000000", Style: 1},
	}})

	row := 1
	if doc.Title != "" {
		_ = f.SetCellValue(sheetName, "A1", doc.Title)
		_ = f.SetCellStyle(sheetName, "A1", "A1", styleTitle)
		row += 2
	}
	for _, fl := range doc.Filters {
		_ = f.SetCellValue(sheetName, fmt.Sprintf("A%d", row), fl.Label)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("B%d", row), fl.Value)
		row++
	}
	if len(doc.Filters) > 0 {
		row++
	}

	for i, h := range doc.Columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, row)
		_ = f.SetCellValue(sheetName, cell, h)
		_ = f.SetCellStyle(sheetName, cell, cell, styleHeader)
	}
	headerRow := row
	row++

	for _, r := range doc.Rows {
		for i, v := range r.Cells() {
			if i >= len(doc.Columns) {
				break
			}
			cell, _ := excelize.CoordinatesToCellName(i+1, row)
			_ = f.SetCellValue(sheetName, cell, v)
		}
		row++
	}

	lastCol, _ := excelize.ColumnNumberToName(len(doc.Columns))
	if len(doc.Rows) > 0 {
		_ = f.SetCellStyle(sheetName, fmt.Sprintf("A%d", headerRow+1), fmt.Sprintf("%s%d", lastCol, row-1), styleBorder)
	}
	_ = f.SetColWidth(sheetName, "A", lastCol, 18)
	_ = f.SetColWidth(sheetName, "E", "E", 40)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, NewError(ErrCodeWriteFailed, "write workbook", err)
	}
	return buf.Bytes(), nil
}
