package libgraph

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/sirupsen/logrus"

	"github.com/avh/meetfetch/internal/timewin"
)

// Event represents a calendar event from Microsoft Graph
type Event struct {
	ID               string             `json:"id,omitempty"`
	Subject          string             `json:"subject,omitempty"`
	Start            *DateTimeTimeZone  `json:"start,omitempty"`
	End              *DateTimeTimeZone  `json:"end,omitempty"`
	Attendees        []*Attendee        `json:"attendees,omitempty"`
	Body             *ItemBody          `json:"body,omitempty"`
	OnlineMeeting    *OnlineMeetingInfo `json:"onlineMeeting,omitempty"`
	OnlineMeetingURL string             `json:"onlineMeetingUrl,omitempty"`
}

// DateTimeTimeZone represents a date/time with timezone from Graph API
type DateTimeTimeZone struct {
	DateTime string `json:"dateTime,omitempty"`
	TimeZone string `json:"timeZone,omitempty"`
}

// Attendee represents a meeting attendee
type Attendee struct {
	EmailAddress *EmailAddress `json:"emailAddress,omitempty"`
	Type         string        `json:"type,omitempty"` // required, optional, resource
}

// EmailAddress represents an email address
type EmailAddress struct {
	Name    string `json:"name,omitempty"`
	Address string `json:"address,omitempty"`
}

// ItemBody represents event body content
type ItemBody struct {
	ContentType string `json:"contentType,omitempty"`
	Content     string `json:"content,omitempty"`
}

// OnlineMeetingInfo represents online meeting details
type OnlineMeetingInfo struct {
	JoinURL string `json:"joinUrl,omitempty"`
}

// EventList represents a list of events returned by Graph API
type EventList struct {
	Value    []*Event `json:"value"`
	NextLink string   `json:"@odata.nextLink,omitempty"`
}

// JoinURL returns the event's online-meeting identifier. The API exposes
// it in two possible locations; the first non-absent one wins.
func (e *Event) JoinURL() string {
	if e.OnlineMeetingURL != "" {
		return e.OnlineMeetingURL
	}
	if e.OnlineMeeting != nil {
		return e.OnlineMeeting.JoinURL
	}
	return ""
}

// eventSelectFields are the only fields the pipeline consumes.
const eventSelectFields = "subject,start,end,attendees,onlineMeeting,onlineMeetingUrl"

// EventsQueryURL builds the first page URL for the user's events within
// the window.
func (c *Client) EventsQueryURL(w timewin.Window, top int, includeBody bool) string {
	fields := eventSelectFields
	if includeBody {
		fields += ",body"
	}

	params := url.Values{}
	params.Set("$filter", fmt.Sprintf("start/dateTime ge '%s' and end/dateTime le '%s'", w.StartISO(), w.EndISO()))
	params.Set("$select", fields)
	params.Set("$top", fmt.Sprintf("%d", top))

	return c.baseURL + "/me/events?" + params.Encode()
}

// FetchEvents pages through the events query, following the continuation
// link until none remains. A failed page logs and terminates pagination;
// previously fetched pages are kept. There is no retry.
func (c *Client) FetchEvents(ctx context.Context, queryURL string) []*Event {
	var events []*Event

	for queryURL != "" {
		status, body, err := c.get(ctx, queryURL)
		if err != nil {
			c.log.WithError(err).Error("failed to fetch events page")
			break
		}
		if status != http.StatusOK {
			c.log.WithFields(logrus.Fields{
				"status": status,
				"body":   string(body),
			}).Error("failed to fetch events page")
			break
		}

		var page EventList
		if err := json.Unmarshal(body, &page); err != nil {
			c.log.WithError(err).Error("failed to unmarshal events page")
			break
		}

		events = append(events, page.Value...)
		queryURL = page.NextLink
	}

	return events
}
