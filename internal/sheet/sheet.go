// Package sheet turns an accumulated circuit legend into the final
// spreadsheet bytes.
package sheet

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/voltread/voltread/internal/legend"
)

// SheetName is the single worksheet holding the legend.
const SheetName = "Legend"

// headerRow is the row carrying the circuit table header; circuits
// start on the row after it.
const headerRow = 5

// Build renders the legend into xlsx bytes. The caller persists them;
// this package never touches the filesystem.
func Build(l legend.Legend) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	f.SetSheetName("Sheet1", SheetName)

	meta := [][2]string{
		{"Issuing company", l.IssuingCompany},
		{"Project / site", l.ProjectSite},
		{"Distribution board", l.DistributionBoard},
	}
	for i, pair := range meta {
		row := i + 1
		if err := f.SetCellValue(SheetName, fmt.Sprintf("A%d", row), pair[0]); err != nil {
			return nil, fmt.Errorf("failed to write label row %d: %w", row, err)
		}
		if err := f.SetCellValue(SheetName, fmt.Sprintf("B%d", row), pair[1]); err != nil {
			return nil, fmt.Errorf("failed to write value row %d: %w", row, err)
		}
	}

	for col, title := range map[string]string{"A": "Tag", "B": "Rating", "C": "Description"} {
		if err := f.SetCellValue(SheetName, fmt.Sprintf("%s%d", col, headerRow), title); err != nil {
			return nil, fmt.Errorf("failed to write table header: %w", err)
		}
	}

	boldStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}
	if err := f.SetCellStyle(SheetName, fmt.Sprintf("A%d", headerRow), fmt.Sprintf("C%d", headerRow), boldStyle); err != nil {
		return nil, fmt.Errorf("failed to style table header: %w", err)
	}

	for i, c := range l.Circuits {
		row := headerRow + 1 + i
		cells := map[string]string{"A": c.Tag, "B": c.Rating, "C": c.Description}
		for col, value := range cells {
			if err := f.SetCellValue(SheetName, fmt.Sprintf("%s%d", col, row), value); err != nil {
				return nil, fmt.Errorf("failed to write circuit row %d: %w", row, err)
			}
		}
	}

	if err := f.SetColWidth(SheetName, "A", "A", 18); err != nil {
		return nil, fmt.Errorf("failed to set column width: %w", err)
	}
	if err := f.SetColWidth(SheetName, "B", "C", 36); err != nil {
		return nil, fmt.Errorf("failed to set column width: %w", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize spreadsheet: %w", err)
	}
	return buf.Bytes(), nil
}
