// Package report turns raw Graph events into the monthly meeting report
// and exports it in the supported formats.
package report

import (
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/avh/meetfetch/internal/output"
	"github.com/avh/meetfetch/internal/timewin"
	"github.com/avh/meetfetch/libgraph"
)

const timeFormat = "2006-01-02 15:04:05"

// Meeting is one normalized calendar entry in the report.
type Meeting struct {
	Subject          string   `json:"subject"`
	StartTime        string   `json:"startTime"`
	EndTime          string   `json:"endTime"`
	Participants     string   `json:"participants"`
	AttendanceCount  *int     `json:"attendanceCount"`
	AttendanceEmails []string `json:"attendanceEmails"`
	AttendeeEmails   []string `json:"attendeeEmails"`
	Body             string   `json:"body,omitempty"`

	// Parsed endpoints in the output zone, kept for the calendar and
	// database exports.
	start time.Time
	end   time.Time
}

// Report is the complete monthly report written to stdout.
type Report struct {
	Month    string     `json:"month"`
	Count    int        `json:"count"`
	Meetings []*Meeting `json:"meetings"`
}

// Options controls report construction.
type Options struct {
	// Zone is the output timezone for formatted times.
	Zone *time.Location

	// Enrich, when set, looks up attendance for a meeting's join URL.
	// A nil result leaves the meeting without attendance data.
	Enrich func(joinURL string) *libgraph.Attendance

	// IncludeBody adds the event body, converted to Markdown, to each
	// meeting.
	IncludeBody bool

	Log *logrus.Entry
}

// Build normalizes the fetched events into a report for the given month.
// Events whose start or end cannot be parsed are dropped with a warning
// rather than failing the run.
func Build(monthKey string, events []*libgraph.Event, opts Options) *Report {
	zone := opts.Zone
	if zone == nil {
		zone = time.UTC
	}
	log := opts.Log
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}

	meetings := make([]*Meeting, 0, len(events))
	for _, event := range events {
		meeting, ok := normalize(event, zone, log)
		if !ok {
			continue
		}

		if opts.Enrich != nil {
			if attendance := opts.Enrich(event.JoinURL()); attendance != nil {
				count := attendance.Count
				meeting.AttendanceCount = &count
				meeting.AttendanceEmails = attendance.Emails
			}
		}

		if opts.IncludeBody && event.Body != nil {
			meeting.Body = output.BodyText(event.Body.ContentType, event.Body.Content)
		}

		meetings = append(meetings, meeting)
	}

	sort.SliceStable(meetings, func(i, j int) bool {
		return meetings[i].start.Before(meetings[j].start)
	})

	return &Report{
		Month:    monthKey,
		Count:    len(meetings),
		Meetings: meetings,
	}
}

func normalize(event *libgraph.Event, zone *time.Location, log *logrus.Entry) (*Meeting, bool) {
	subject := event.Subject
	if subject == "" {
		subject = "No Subject"
	}

	start, end, ok := eventEndpoints(event, zone)
	if !ok {
		log.WithField("subject", subject).Warn("skipping event with unparsable times")
		return nil, false
	}

	var names []string
	var emails []string
	for _, attendee := range event.Attendees {
		if attendee.EmailAddress == nil {
			continue
		}
		if attendee.EmailAddress.Name != "" {
			names = append(names, attendee.EmailAddress.Name)
		}
		if attendee.EmailAddress.Address != "" {
			emails = append(emails, attendee.EmailAddress.Address)
		}
	}
	if emails == nil {
		emails = []string{}
	}

	return &Meeting{
		Subject:          subject,
		StartTime:        start.Format(timeFormat),
		EndTime:          end.Format(timeFormat),
		Participants:     strings.Join(names, ", "),
		AttendanceEmails: []string{},
		AttendeeEmails:   emails,
		start:            start,
		end:              end,
	}, true
}

func eventEndpoints(event *libgraph.Event, zone *time.Location) (time.Time, time.Time, bool) {
	if event.Start == nil || event.End == nil {
		return time.Time{}, time.Time{}, false
	}

	start, ok := timewin.NormalizeEventTime(event.Start.DateTime, event.Start.TimeZone, zone)
	if !ok {
		return time.Time{}, time.Time{}, false
	}
	end, ok := timewin.NormalizeEventTime(event.End.DateTime, event.End.TimeZone, zone)
	if !ok {
		return time.Time{}, time.Time{}, false
	}

	return start, end, true
}
