package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

const (
	StoriesCSVName = "sprint_stories.csv"
	DefectsCSVName = "sprint_defects.csv"
)

// CSVExporter writes the classified rows as CSV files under OutputDir.
type CSVExporter struct {
	OutputDir string
}

func NewCSVExporter(outputDir string) *CSVExporter {
	return &CSVExporter{OutputDir: outputDir}
}

// Export writes sprint_stories.csv and sprint_defects.csv and returns
// their paths. Files are written even when a category is empty so a
// consumer always finds both.
func (e *CSVExporter) Export(stories, defects []Row) (storiesPath, defectsPath string, err error) {
	if err := os.MkdirAll(e.OutputDir, 0755); err != nil {
		return "", "", fmt.Errorf("failed to create output directory: %w", err)
	}

	storiesPath = filepath.Join(e.OutputDir, StoriesCSVName)
	if err := writeRowsCSV(storiesPath, stories, true); err != nil {
		return "", "", fmt.Errorf("failed to export stories: %w", err)
	}

	defectsPath = filepath.Join(e.OutputDir, DefectsCSVName)
	if err := writeRowsCSV(defectsPath, defects, false); err != nil {
		return "", "", fmt.Errorf("failed to export defects: %w", err)
	}

	return storiesPath, defectsPath, nil
}

func writeRowsCSV(path string, rows []Row, withPoints bool) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{"Key", "Summary", "Type", "Status", "Priority", "Assignee", "Reporter", "Created", "Updated"}
	if withPoints {
		header = append(header, "Story Points")
	}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, row := range rows {
		record := []string{
			row.Key,
			row.Summary,
			row.Type,
			row.Status,
			row.Priority,
			row.Assignee,
			row.Reporter,
			formatDate(row.Created),
			formatDate(row.Updated),
		}
		if withPoints {
			record = append(record, strconv.FormatFloat(row.StoryPoints, 'f', -1, 64))
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	return writer.Error()
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}
