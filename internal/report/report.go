// Package report renders a learner's progress as an Excel workbook.
package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/xzeeeeen/HM/internal/catalog"
	"github.com/xzeeeeen/HM/internal/progress"
	"github.com/xzeeeeen/HM/internal/unlock"
)

const (
	SheetProgress = "Progress"
	SheetSummary  = "Summary"
)

var (
	progressHeader = []any{"Course", "Module", "Status", "Lessons Done", "Lessons Total", "Best Score", "Passing Score"}
	summaryHeader  = []any{"Course", "Category", "Modules Completed", "Modules Total", "Progress %"}
)

// Write renders one row per module of every course, plus a per-course
// summary sheet, and writes the workbook to w.
func Write(w io.Writer, courses []catalog.Course, p *progress.Progress) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetProgress); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(SheetSummary); err != nil {
		return fmt.Errorf("add summary sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}
	for sheet, header := range map[string][]any{SheetProgress: progressHeader, SheetSummary: summaryHeader} {
		if err := writeRow(f, sheet, 1, header); err != nil {
			return err
		}
		last, _ := excelize.CoordinatesToCellName(len(header), 1)
		if err := f.SetCellStyle(sheet, "A1", last, bold); err != nil {
			return fmt.Errorf("style %s header: %w", sheet, err)
		}
		if err := f.SetColWidth(sheet, "A", "B", 32); err != nil {
			return fmt.Errorf("size %s columns: %w", sheet, err)
		}
	}

	row := 2
	for i, course := range courses {
		view := unlock.Compute(course, p)
		for j, mv := range view.Modules {
			m := course.Modules[j]
			best := any("")
			if mv.HasScore {
				best = mv.BestScore
			}
			if err := writeRow(f, SheetProgress, row, []any{
				course.Title,
				m.Title,
				string(mv.Status),
				mv.LessonsCompleted,
				mv.LessonsTotal,
				best,
				mv.PassingScore,
			}); err != nil {
				return err
			}
			row++
		}

		if err := writeRow(f, SheetSummary, i+2, []any{
			course.Title,
			course.Category,
			view.ModulesCompleted,
			view.ModulesTotal,
			view.Progress,
		}); err != nil {
			return err
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("write %s row %d: %w", sheet, row, err)
	}
	return nil
}
