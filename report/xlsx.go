package report

import (
	"fmt"

	"f0oster/adaudit/enumeration"

	"github.com/xuri/excelize/v2"
)

const (
	summarySheet  = "Summary"
	findingsSheet = "Findings"
)

// WriteXLSX emits the spreadsheet report: a Summary sheet with the
// per-category counts (the original report layout) and a Findings sheet
// with every record.
func WriteXLSX(aggregate *enumeration.Aggregate, path string) error {
	file := excelize.NewFile()
	defer file.Close()

	if err := file.SetSheetName("Sheet1", summarySheet); err != nil {
		return fmt.Errorf("failed to prepare summary sheet: %w", err)
	}
	setCell(file, summarySheet, 1, "Category", "Count")
	for i, category := range enumeration.Categories() {
		setCell(file, summarySheet, i+2, string(category), aggregate.Count(category))
	}

	if _, err := file.NewSheet(findingsSheet); err != nil {
		return fmt.Errorf("failed to create findings sheet: %w", err)
	}
	setCell(file, findingsSheet, 1, "Category", "Subject", "Related")
	for i, record := range aggregate.Records {
		setCell(file, findingsSheet, i+2, string(record.Category), record.Subject, record.Related)
	}

	if err := file.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save report %s: %w", path, err)
	}
	return nil
}

func setCell(file *excelize.File, sheet string, row int, values ...interface{}) {
	for i, value := range values {
		cell, err := excelize.CoordinatesToCellName(i+1, row)
		if err != nil {
			continue
		}
		// SetCellValue only fails for invalid coordinates, checked above.
		_ = file.SetCellValue(sheet, cell, value)
	}
}
