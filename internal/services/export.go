package services

import (
	"bytes"
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"
)

const (
	sheetMembers = "Members"
	sheetRevenue = "Revenue"
	sheetMonthly = "Monthly"
)

var memberExportHeader = []string{
	"Code", "First Name", "Last Name", "Type", "Plan", "Status", "Price Paid", "Registered",
}

// ExportWorkbook renders the revenue and monthly registration reports as an .xlsx file.
func (s *StatisticsService) ExportWorkbook(ctx context.Context) ([]byte, error) {
	revenue, err := s.Revenue(ctx)
	if err != nil {
		return nil, err
	}
	monthly, err := s.MonthlyRegistrations(ctx)
	if err != nil {
		return nil, err
	}
	return buildWorkbook(revenue, monthly, s.cal)
}

func buildWorkbook(revenue *RevenueReport, monthly *MonthlyReport, cal *Calendar) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetMembers); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	for _, name := range []string{sheetRevenue, sheetMonthly} {
		if _, err := f.NewSheet(name); err != nil {
			return nil, fmt.Errorf("create sheet %s: %w", name, err)
		}
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}

	// Members
	if err := writeRow(f, sheetMembers, 1, headerStyle, toCells(memberExportHeader)...); err != nil {
		return nil, err
	}
	for i, m := range revenue.Members {
		row := i + 2
		price, _ := m.PricePaid.Float64()
		if err := writeRow(f, sheetMembers, row, 0,
			m.UniqueCode, m.FirstName, m.LastName, string(m.MemberType), string(m.GymPlan),
			string(m.Status), price, m.DateRegistered.In(cal.Location()).Format("2006-01-02 15:04:05"),
		); err != nil {
			return nil, err
		}
	}
	if err := f.SetColWidth(sheetMembers, "A", "H", 16); err != nil {
		return nil, fmt.Errorf("set column width: %w", err)
	}
	if err := f.SetPanes(sheetMembers, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return nil, fmt.Errorf("freeze panes: %w", err)
	}

	// Revenue
	if err := writeRow(f, sheetRevenue, 1, headerStyle, "Metric", "Value"); err != nil {
		return nil, err
	}
	stats := revenue.Stats
	revenueRows := [][]interface{}{
		{"Total Revenue", stats.TotalRevenue.StringFixed(2)},
		{"Monthly Revenue", stats.MonthlyRevenue.StringFixed(2)},
		{"Daily Revenue", stats.DailyRevenue.StringFixed(2)},
		{"Total Members", stats.TotalMembers},
		{"Active Members", stats.ActiveMembers},
	}
	for i, r := range revenueRows {
		if err := writeRow(f, sheetRevenue, i+2, 0, r...); err != nil {
			return nil, err
		}
	}

	// Monthly
	if err := writeRow(f, sheetMonthly, 1, headerStyle, "Month", "Student", "Faculty", "Outsider"); err != nil {
		return nil, err
	}
	chart := monthly.OverviewChart
	for i, label := range chart.Labels {
		if err := writeRow(f, sheetMonthly, i+2, 0, label, chart.Students[i], chart.Faculty[i], chart.Outsiders[i]); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// writeRow fills one row starting at column A; style 0 leaves cells unstyled.
func writeRow(f *excelize.File, sheet string, row, style int, values ...interface{}) error {
	for col, v := range values {
		cell, err := excelize.CoordinatesToCellName(col+1, row)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, v); err != nil {
			return fmt.Errorf("set cell %s!%s: %w", sheet, cell, err)
		}
		if style != 0 {
			if err := f.SetCellStyle(sheet, cell, cell, style); err != nil {
				return fmt.Errorf("style cell %s!%s: %w", sheet, cell, err)
			}
		}
	}
	return nil
}

func toCells(values []string) []interface{} {
	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return cells
}
