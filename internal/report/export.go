package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// Table is a report flattened for spreadsheet export.
type Table struct {
	Sheet  string
	Header []string
	Rows   [][]any
}

// DateWiseTable flattens date-wise rows.
func DateWiseTable(rows []DateRow) Table {
	t := Table{
		Sheet:  "Date-wise",
		Header: []string{"Date", "Course", "Class", "Present", "Absent", "Late", "Total", "Percentage"},
	}
	for _, r := range rows {
		t.Rows = append(t.Rows, []any{r.Date.String(), deref(r.Course), deref(r.Class), r.Present, r.Absent, r.Late, r.Total, r.Percentage})
	}
	return t
}

// StudentWiseTable flattens student-wise rows.
func StudentWiseTable(rows []StudentRow) Table {
	t := Table{
		Sheet:  "Student-wise",
		Header: []string{"Student ID", "Roll No", "Name", "Attended", "Missed", "Late", "Total", "Percentage"},
	}
	for _, r := range rows {
		t.Rows = append(t.Rows, []any{r.StudentID, deref(r.RollNo), deref(r.Name), r.Attended, r.Missed, r.Late, r.Total, r.Percentage})
	}
	return t
}

// WriteXLSX writes the table as a single-sheet workbook with a bold header.
func WriteXLSX(w io.Writer, t Table) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", t.Sheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	header := make([]any, len(t.Header))
	for i, h := range t.Header {
		header[i] = h
	}
	if err := f.SetSheetRow(t.Sheet, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	if err := f.SetRowStyle(t.Sheet, 1, 1, bold); err != nil {
		return err
	}
	for i, row := range t.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(t.Sheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}
	return f.Write(w)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
