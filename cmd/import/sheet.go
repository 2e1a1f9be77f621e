package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/tmht/attendance-api/internal/calendar"
	"github.com/tmht/attendance-api/internal/database"
)

// Spreadsheet headers, as the dashboard names its member columns.
const (
	headerFullName    = "Full Name"
	headerGender      = "Gender"
	headerPhone       = "Phone Number"
	headerAge         = "Age"
	headerLevel       = "Current Level"
	headerJoinDate    = "Join Date"
	headerBadge       = "Badge Type"
	headerManualBadge = "Manual Badge"
)

// readSpreadsheet reads a roster workbook. The first worksheet holds one
// member per row under a header row; "Attendance 5th"-style headers become
// marks. The sheet name is returned as the month table key, since rosters
// are kept one sheet per month ("October_2025").
func readSpreadsheet(r io.Reader) (*database.ImportData, error) {
	file, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer func() { _ = file.Close() }()

	sheetName := file.GetSheetName(0)
	if sheetName == "" {
		return nil, fmt.Errorf("no worksheet found")
	}

	rows, err := file.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", sheetName, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("worksheet %s is empty", sheetName)
	}

	headerIndex := map[string]int{}
	var attendanceHeaders []string
	for i, header := range rows[0] {
		header = strings.TrimSpace(header)
		headerIndex[header] = i
		if strings.HasPrefix(header, calendar.ColumnPrefix) {
			attendanceHeaders = append(attendanceHeaders, header)
		}
	}

	if _, ok := headerIndex[headerFullName]; !ok {
		return nil, fmt.Errorf("missing required column: %s", headerFullName)
	}
	if _, ok := headerIndex[headerGender]; !ok {
		return nil, fmt.Errorf("missing required column: %s", headerGender)
	}

	data := &database.ImportData{MonthTable: sheetName}
	data.Metadata.Source = "spreadsheet"

	for _, row := range rows[1:] {
		cell := func(header string) string {
			idx, ok := headerIndex[header]
			if !ok || idx >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[idx])
		}

		rec := database.ImportMember{
			FullName:    cell(headerFullName),
			Gender:      cell(headerGender),
			Phone:       cell(headerPhone),
			Age:         cell(headerAge),
			Level:       cell(headerLevel),
			JoinDate:    cell(headerJoinDate),
			Badge:       cell(headerBadge),
			ManualBadge: cell(headerManualBadge),
			Attendance:  map[string]any{},
		}
		for _, header := range attendanceHeaders {
			if v := cell(header); v != "" {
				rec.Attendance[header] = v
			}
		}

		// Trailing blank rows
		if rec.FullName == "" && rec.Gender == "" && len(rec.Attendance) == 0 {
			continue
		}
		data.Members = append(data.Members, rec)
	}

	return data, nil
}
