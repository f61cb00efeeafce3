package libgraph

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
)

// Attendance is the result of an attendance lookup: the number of
// attendance records and the unique participant emails, sorted.
type Attendance struct {
	Count  int
	Emails []string
}

type onlineMeeting struct {
	ID string `json:"id"`
}

type attendanceReport struct {
	ID              string `json:"id"`
	CreatedDateTime string `json:"createdDateTime"`
}

type attendanceRecord struct {
	Identity *struct {
		User *struct {
			Email string `json:"email"`
		} `json:"user"`
	} `json:"identity"`
}

// EscapeODataString doubles every single quote so a value can be
// embedded in an OData filter literal.
func EscapeODataString(value string) string {
	return strings.ReplaceAll(value, "'", "''")
}

// FetchAttendance performs the three-step lookup for a meeting's
// attendance: meeting by join URL, latest attendance report, then its
// records. Returns nil when the join URL is absent, no meeting or report
// exists, or any call fails; enrichment failures never abort the run.
func (c *Client) FetchAttendance(ctx context.Context, joinURL string) *Attendance {
	if joinURL == "" {
		return nil
	}

	params := url.Values{}
	params.Set("$filter", fmt.Sprintf("joinWebUrl eq '%s'", EscapeODataString(joinURL)))

	var meetings struct {
		Value []*onlineMeeting `json:"value"`
	}
	if !c.getList(ctx, c.baseURL+"/me/onlineMeetings?"+params.Encode(), "attendance lookup", &meetings) {
		return nil
	}
	if len(meetings.Value) == 0 || meetings.Value[0].ID == "" {
		return nil
	}
	meetingID := meetings.Value[0].ID

	var reports struct {
		Value []*attendanceReport `json:"value"`
	}
	reportsURL := fmt.Sprintf("%s/me/onlineMeetings/%s/attendanceReports", c.baseURL, meetingID)
	if !c.getList(ctx, reportsURL, "attendance reports", &reports) {
		return nil
	}
	if len(reports.Value) == 0 {
		return nil
	}

	sort.Slice(reports.Value, func(i, j int) bool {
		return reports.Value[i].CreatedDateTime < reports.Value[j].CreatedDateTime
	})
	latest := reports.Value[len(reports.Value)-1]
	if latest.ID == "" {
		return nil
	}

	var records struct {
		Value []*attendanceRecord `json:"value"`
	}
	recordsURL := fmt.Sprintf("%s/me/onlineMeetings/%s/attendanceReports/%s/attendanceRecords", c.baseURL, meetingID, latest.ID)
	if !c.getList(ctx, recordsURL, "attendance records", &records) {
		return nil
	}

	seen := make(map[string]bool)
	for _, record := range records.Value {
		if record.Identity == nil || record.Identity.User == nil {
			continue
		}
		if email := record.Identity.User.Email; email != "" {
			seen[email] = true
		}
	}

	emails := make([]string, 0, len(seen))
	for email := range seen {
		emails = append(emails, email)
	}
	sort.Strings(emails)

	return &Attendance{Count: len(records.Value), Emails: emails}
}

// getList fetches a JSON list endpoint into out, logging and reporting
// false on any failure.
func (c *Client) getList(ctx context.Context, url, what string, out interface{}) bool {
	status, body, err := c.get(ctx, url)
	if err != nil {
		c.log.WithError(err).Errorf("%s failed", what)
		return false
	}
	if status != http.StatusOK {
		c.log.WithFields(logrus.Fields{
			"status": status,
			"body":   string(body),
		}).Errorf("%s failed", what)
		return false
	}
	if err := json.Unmarshal(body, out); err != nil {
		c.log.WithError(err).Errorf("%s returned malformed response", what)
		return false
	}
	return true
}
