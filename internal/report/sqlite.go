package report

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

const meetingsSchema = `
CREATE TABLE IF NOT EXISTS meetings (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	month TEXT NOT NULL,
	subject TEXT NOT NULL,
	start_time TEXT NOT NULL,
	end_time TEXT NOT NULL,
	participants TEXT,
	attendance_count INTEGER,
	attendance_emails TEXT,
	attendee_emails TEXT
);`

// WriteSQLite appends the report's meetings to a SQLite database,
// creating the meetings table when missing. Email lists are stored
// comma separated.
func (r *Report) WriteSQLite(path string) error {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if _, err := db.Exec(meetingsSchema); err != nil {
		return fmt.Errorf("failed to create meetings table: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO meetings
		(month, subject, start_time, end_time, participants, attendance_count, attendance_emails, attendee_emails)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, m := range r.Meetings {
		_, err := stmt.Exec(
			r.Month,
			m.Subject,
			m.StartTime,
			m.EndTime,
			m.Participants,
			m.AttendanceCount,
			strings.Join(m.AttendanceEmails, ", "),
			strings.Join(m.AttendeeEmails, ", "),
		)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to insert meeting: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}

	return nil
}
