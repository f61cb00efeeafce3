package report

import (
	"fmt"
	"os"
	"time"

	"github.com/emersion/go-ical"
	"github.com/google/uuid"
)

// WriteICS writes the report's meetings as an iCalendar file, one VEVENT
// per meeting.
func (r *Report) WriteICS(path string) error {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, "-//meetfetch//meeting report//EN")

	now := time.Now().UTC()
	for _, m := range r.Meetings {
		event := ical.NewEvent()
		event.Props.SetText(ical.PropUID, uuid.NewString())
		event.Props.SetText(ical.PropSummary, m.Subject)
		event.Props.SetDateTime(ical.PropDateTimeStamp, now)
		event.Props.SetDateTime(ical.PropDateTimeStart, m.start)
		event.Props.SetDateTime(ical.PropDateTimeEnd, m.end)
		if m.Participants != "" {
			event.Props.SetText(ical.PropDescription, "Participants: "+m.Participants)
		}
		cal.Children = append(cal.Children, event.Component)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create ICS file: %w", err)
	}
	defer f.Close()

	if err := ical.NewEncoder(f).Encode(cal); err != nil {
		return fmt.Errorf("failed to encode ICS: %w", err)
	}

	return nil
}
