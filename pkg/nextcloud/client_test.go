package nextcloud

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/emersion/go-webdav/caldav"
)

func TestEndpoint(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://cloud.example.com", "https://cloud.example.com/remote.php/dav"},
		{"https://cloud.example.com/", "https://cloud.example.com/remote.php/dav"},
		{" https://example.com/nextcloud ", "https://example.com/nextcloud/remote.php/dav"},
		{"https://cloud.example.com/remote.php/dav", "https://cloud.example.com/remote.php/dav"},
	}
	for _, tt := range tests {
		got, err := Endpoint(tt.in)
		if err != nil {
			t.Errorf("Endpoint(%q) failed: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("Endpoint(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}

	if _, err := Endpoint("cloud.example.com"); err == nil {
		t.Error("Expected an error for a URL without scheme")
	}
}

func TestSlug(t *testing.T) {
	tests := map[string]string{
		"Errands":          "errands",
		"My Chores!":       "my-chores",
		"  Weekly -- list": "weekly-list",
		"???":              "tasks",
	}
	for in, want := range tests {
		if got := Slug(in); got != want {
			t.Errorf("Slug(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSupportsTodo(t *testing.T) {
	if !supportsTodo(caldav.Calendar{}) {
		t.Error("Expected a calendar without component set to accept tasks")
	}
	if !supportsTodo(caldav.Calendar{SupportedComponentSet: []string{"VEVENT", "VTODO"}}) {
		t.Error("Expected VTODO support")
	}
	if supportsTodo(caldav.Calendar{SupportedComponentSet: []string{"VEVENT"}}) {
		t.Error("Expected an events-only calendar to be rejected")
	}
}

func TestMkCalendar(t *testing.T) {
	var method, body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
		b, _ := io.ReadAll(r.Body)
		body = string(b)
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	if err := mkCalendar(context.Background(), srv.Client(), srv.URL+"/calendars/alice/errands/", "Chores & more"); err != nil {
		t.Fatalf("mkCalendar failed: %v", err)
	}
	if method != "MKCALENDAR" {
		t.Errorf("Expected MKCALENDAR, got %s", method)
	}
	if !strings.Contains(body, "<d:displayname>Chores &amp; more</d:displayname>") {
		t.Errorf("Expected escaped display name, got:\n%s", body)
	}
	if !strings.Contains(body, `<c:comp name="VTODO"/>`) {
		t.Errorf("Expected VTODO component set, got:\n%s", body)
	}
}

func TestMkCalendarRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusMethodNotAllowed)
	}))
	defer srv.Close()

	if err := mkCalendar(context.Background(), srv.Client(), srv.URL+"/calendars/alice/errands/", "Errands"); err == nil {
		t.Error("Expected an error when the collection already exists")
	}
}
