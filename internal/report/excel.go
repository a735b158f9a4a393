package report

import (
	"fmt"
	"path/filepath"

	"github.com/xuri/excelize/v2"
)

const ExcelName = "sprint_report.xlsx"

// ExcelExporter writes the sprint report as a workbook with a Summary
// sheet plus one sheet per category.
type ExcelExporter struct {
	OutputDir string
}

func NewExcelExporter(outputDir string) *ExcelExporter {
	return &ExcelExporter{OutputDir: outputDir}
}

func (e *ExcelExporter) Export(rep Report) (string, error) {
	filename := filepath.Join(e.OutputDir, ExcelName)

	f := excelize.NewFile()
	defer f.Close()

	if err := e.createSummarySheet(f, rep); err != nil {
		return "", fmt.Errorf("failed to create summary sheet: %w", err)
	}
	if err := e.createRowsSheet(f, "Stories", rep.Stories, true); err != nil {
		return "", fmt.Errorf("failed to create stories sheet: %w", err)
	}
	if err := e.createRowsSheet(f, "Defects", rep.Defects, false); err != nil {
		return "", fmt.Errorf("failed to create defects sheet: %w", err)
	}

	f.DeleteSheet("Sheet1")

	if err := f.SaveAs(filename); err != nil {
		return "", fmt.Errorf("failed to save excel file: %w", err)
	}

	return filename, nil
}

func (e *ExcelExporter) createSummarySheet(f *excelize.File, rep Report) error {
	const sheet = "Summary"
	index, err := f.NewSheet(sheet)
	if err != nil {
		return err
	}
	f.SetActiveSheet(index)

	headerStyle := e.headerStyle(f)

	f.SetCellValue(sheet, "A1", "Sprint")
	f.SetCellValue(sheet, "B1", rep.SprintName)
	f.SetCellValue(sheet, "A2", "Generated")
	f.SetCellValue(sheet, "B2", rep.GeneratedAt.Format("2006-01-02 15:04 MST"))

	labels := []struct {
		name  string
		value any
	}{
		{"Stories", rep.StoryStats.Total},
		{"Stories Done", rep.StoryStats.Done},
		{"Story Completion %", rep.StoryStats.CompletionRate()},
		{"Defects", rep.DefectStats.Total},
		{"Defects Resolved", rep.DefectStats.Done},
		{"Defect Resolution %", rep.DefectStats.CompletionRate()},
		{"Committed Points", rep.StoryStats.Points},
		{"Velocity", rep.StoryStats.Velocity()},
	}

	row := 4
	f.SetCellValue(sheet, cellName(1, row), "Metric")
	f.SetCellValue(sheet, cellName(2, row), "Value")
	f.SetCellStyle(sheet, cellName(1, row), cellName(2, row), headerStyle)
	row++
	for _, l := range labels {
		f.SetCellValue(sheet, cellName(1, row), l.name)
		f.SetCellValue(sheet, cellName(2, row), l.value)
		row++
	}

	f.SetColWidth(sheet, "A", "A", 24)
	f.SetColWidth(sheet, "B", "B", 28)
	return nil
}

func (e *ExcelExporter) createRowsSheet(f *excelize.File, sheet string, rows []Row, withPoints bool) error {
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}

	headerStyle := e.headerStyle(f)

	header := []string{"Key", "Summary", "Type", "Status", "Priority", "Assignee", "Reporter", "Created", "Updated"}
	if withPoints {
		header = append(header, "Story Points")
	}
	for col, name := range header {
		f.SetCellValue(sheet, cellName(col+1, 1), name)
	}
	f.SetCellStyle(sheet, cellName(1, 1), cellName(len(header), 1), headerStyle)

	for i, r := range rows {
		row := i + 2
		values := []any{r.Key, r.Summary, r.Type, r.Status, r.Priority, r.Assignee, r.Reporter, formatDate(r.Created), formatDate(r.Updated)}
		if withPoints {
			values = append(values, r.StoryPoints)
		}
		for col, v := range values {
			f.SetCellValue(sheet, cellName(col+1, row), v)
		}
	}

	f.SetColWidth(sheet, "B", "B", 60)
	return nil
}

func (e *ExcelExporter) headerStyle(f *excelize.File) int {
	style, _ := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Font:      &excelize.Font{Bold: true, Color: "#FFFFFF"},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	return style
}

func cellName(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}
