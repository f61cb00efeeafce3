package libgraph

import (
	"context"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
)

const joinURL = "https://teams.microsoft.com/l/meetup-join/abc123"

func TestFetchAttendance(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/me/onlineMeetings", func(w http.ResponseWriter, r *http.Request) {
		filter := r.URL.Query().Get("$filter")
		expected := "joinWebUrl eq '" + joinURL + "'"
		if filter != expected {
			t.Errorf("Expected filter %q, got %q", expected, filter)
		}
		w.Write([]byte(`{"value":[{"id":"meeting1"}]}`))
	})
	mux.HandleFunc("/me/onlineMeetings/meeting1/attendanceReports", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"value":[{"id":"report1","createdDateTime":"2025-03-03T10:05:00Z"}]}`))
	})
	mux.HandleFunc("/me/onlineMeetings/meeting1/attendanceReports/report1/attendanceRecords", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"value":[
			{"identity":{"user":{"email":"zoe@example.com"}}},
			{"identity":{"user":{"email":"adam@example.com"}}},
			{"identity":{"user":{"email":"adam@example.com"}}},
			{"identity":{"user":{"email":""}}},
			{"identity":null}
		]}`))
	})

	client := NewClient(context.Background(), "test-token", "")
	client.baseURL = server.URL

	attendance := client.FetchAttendance(context.Background(), joinURL)
	if attendance == nil {
		t.Fatal("Expected attendance, got nil")
	}

	if attendance.Count != 5 {
		t.Errorf("Expected count 5, got %d", attendance.Count)
	}

	expectedEmails := []string{"adam@example.com", "zoe@example.com"}
	if !reflect.DeepEqual(attendance.Emails, expectedEmails) {
		t.Errorf("Expected emails %v, got %v", expectedEmails, attendance.Emails)
	}
}

func TestFetchAttendanceUsesLatestReport(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/me/onlineMeetings", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"value":[{"id":"meeting1"}]}`))
	})
	mux.HandleFunc("/me/onlineMeetings/meeting1/attendanceReports", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"value":[
			{"id":"newer","createdDateTime":"2025-03-10T10:00:00Z"},
			{"id":"older","createdDateTime":"2025-03-03T10:00:00Z"}
		]}`))
	})
	mux.HandleFunc("/me/onlineMeetings/meeting1/attendanceReports/newer/attendanceRecords", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"value":[{"identity":{"user":{"email":"late@example.com"}}}]}`))
	})
	mux.HandleFunc("/me/onlineMeetings/meeting1/attendanceReports/older/attendanceRecords", func(w http.ResponseWriter, r *http.Request) {
		t.Error("Fetched records for the older report")
	})

	client := NewClient(context.Background(), "test-token", "")
	client.baseURL = server.URL

	attendance := client.FetchAttendance(context.Background(), joinURL)
	if attendance == nil {
		t.Fatal("Expected attendance, got nil")
	}

	if len(attendance.Emails) != 1 || attendance.Emails[0] != "late@example.com" {
		t.Errorf("Expected records from the newest report, got %v", attendance.Emails)
	}
}

func TestFetchAttendanceEscapesQuotes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		filter := r.URL.Query().Get("$filter")
		expected := "joinWebUrl eq 'https://example.com/it''s-a-meeting'"
		if filter != expected {
			t.Errorf("Expected filter %q, got %q", expected, filter)
		}
		w.Write([]byte(`{"value":[]}`))
	}))
	defer server.Close()

	client := NewClient(context.Background(), "test-token", "")
	client.baseURL = server.URL

	client.FetchAttendance(context.Background(), "https://example.com/it's-a-meeting")
}

func TestFetchAttendanceNoMeeting(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"value":[]}`))
	}))
	defer server.Close()

	client := NewClient(context.Background(), "test-token", "")
	client.baseURL = server.URL

	if attendance := client.FetchAttendance(context.Background(), joinURL); attendance != nil {
		t.Errorf("Expected nil attendance when no meeting matches, got %+v", attendance)
	}
}

func TestFetchAttendanceNoReports(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/me/onlineMeetings", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"value":[{"id":"meeting1"}]}`))
	})
	mux.HandleFunc("/me/onlineMeetings/meeting1/attendanceReports", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"value":[]}`))
	})

	client := NewClient(context.Background(), "test-token", "")
	client.baseURL = server.URL

	if attendance := client.FetchAttendance(context.Background(), joinURL); attendance != nil {
		t.Errorf("Expected nil attendance when no reports exist, got %+v", attendance)
	}
}

func TestFetchAttendanceRecordsFailure(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/me/onlineMeetings", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"value":[{"id":"meeting1"}]}`))
	})
	mux.HandleFunc("/me/onlineMeetings/meeting1/attendanceReports", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"value":[{"id":"report1","createdDateTime":"2025-03-03T10:05:00Z"}]}`))
	})
	mux.HandleFunc("/me/onlineMeetings/meeting1/attendanceReports/report1/attendanceRecords", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})

	client := NewClient(context.Background(), "test-token", "")
	client.baseURL = server.URL

	if attendance := client.FetchAttendance(context.Background(), joinURL); attendance != nil {
		t.Errorf("Expected nil attendance on records failure, got %+v", attendance)
	}
}

func TestFetchAttendanceEmptyJoinURL(t *testing.T) {
	client := NewClient(context.Background(), "test-token", "")

	if attendance := client.FetchAttendance(context.Background(), ""); attendance != nil {
		t.Errorf("Expected nil attendance for empty join URL, got %+v", attendance)
	}
}

func TestEscapeODataString(t *testing.T) {
	if got := EscapeODataString("no quotes"); got != "no quotes" {
		t.Errorf("Expected unchanged string, got %q", got)
	}
	if got := EscapeODataString("it's"); got != "it''s" {
		t.Errorf("Expected doubled quote, got %q", got)
	}
	if got := EscapeODataString("''"); got != "''''" {
		t.Errorf("Expected four quotes, got %q", got)
	}
}
