package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"
)

var csvHeader = []string{"Meeting Name", "Start Time", "End Time", "Attendance", "Participants"}

// WriteCSV writes the report as a CSV file. The Attendance column holds
// the attendance emails when known, the bare count when only that is
// known, and stays empty otherwise.
func (r *Report) WriteCSV(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, m := range r.Meetings {
		record := []string{m.Subject, m.StartTime, m.EndTime, attendanceCell(m), m.Participants}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush CSV: %w", err)
	}

	return nil
}

func attendanceCell(m *Meeting) string {
	if len(m.AttendanceEmails) > 0 {
		return strings.Join(m.AttendanceEmails, ", ")
	}
	if m.AttendanceCount != nil {
		return fmt.Sprintf("%d", *m.AttendanceCount)
	}
	return ""
}
