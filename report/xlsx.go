// Package report renders task exports as xlsx workbooks.
package report

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"stationdesk/tasks"
)

const (
	TaskSheet    = "工項"
	SummarySheet = "統計"
)

var taskHeader = []any{"UID", "場站", "項目代碼", "項目名稱", "期限", "狀態", "執行人", "最後更新", "附件"}

var summaryHeader = []any{"場站", "總數", "待處理", "進行中", "已完成", "逾期", "完成率(%)"}

// TaskWorkbook builds a workbook with one row per task view and a per-station summary sheet.
func TaskWorkbook(views []tasks.View, summary tasks.Summary, generatedAt time.Time) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", TaskSheet); err != nil {
		return nil, fmt.Errorf("failed to rename sheet: %w", err)
	}
	if _, err := f.NewSheet(SummarySheet); err != nil {
		return nil, fmt.Errorf("failed to create summary sheet: %w", err)
	}

	header, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#DDEBF7"}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	if err := writeRow(f, TaskSheet, 1, taskHeader); err != nil {
		return nil, err
	}
	for i, v := range views {
		row := []any{
			v.UID, v.StationName, v.ItemCode, v.ItemName, v.DeadlineDate,
			string(v.EffectiveStatus), v.ExecutorEmail, v.LastUpdated, v.AttachmentURL,
		}
		if err := writeRow(f, TaskSheet, i+2, row); err != nil {
			return nil, err
		}
	}
	f.SetCellStyle(TaskSheet, "A1", "I1", header)
	f.SetColWidth(TaskSheet, "A", "A", 14)
	f.SetColWidth(TaskSheet, "B", "B", 22)
	f.SetColWidth(TaskSheet, "D", "D", 30)
	f.SetColWidth(TaskSheet, "E", "H", 16)
	f.SetColWidth(TaskSheet, "I", "I", 40)

	if err := writeRow(f, SummarySheet, 1, summaryHeader); err != nil {
		return nil, err
	}
	rowNum := 2
	for _, s := range summary.PerStation {
		if err := writeRow(f, SummarySheet, rowNum, countsRow(s.StationName, s.Counts)); err != nil {
			return nil, err
		}
		rowNum++
	}
	if err := writeRow(f, SummarySheet, rowNum, countsRow("合計", summary.Global)); err != nil {
		return nil, err
	}
	f.SetCellValue(SummarySheet, fmt.Sprintf("A%d", rowNum+2), "產出時間")
	f.SetCellValue(SummarySheet, fmt.Sprintf("B%d", rowNum+2), generatedAt.Format("2006-01-02 15:04:05"))
	f.SetCellStyle(SummarySheet, "A1", "G1", header)
	f.SetColWidth(SummarySheet, "A", "A", 22)

	return f, nil
}

func countsRow(name string, c tasks.Counts) []any {
	return []any{name, c.Total, c.Pending, c.InProgress, c.Completed, c.Overdue, c.Rate}
}

func writeRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("failed to write %s row %d: %w", sheet, row, err)
	}
	return nil
}

// WriteTasks streams the task workbook to w.
func WriteTasks(w io.Writer, views []tasks.View, summary tasks.Summary, generatedAt time.Time) error {
	f, err := TaskWorkbook(views, summary, generatedAt)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}
