// Package nextcloud talks CalDAV to a Nextcloud server and exposes its task
// lists (calendars supporting VTODO) as a remote.Directory.
package nextcloud

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/emersion/go-ical"
	"github.com/emersion/go-webdav"
	"github.com/emersion/go-webdav/caldav"

	"github.com/harrisonrobin/errands/pkg/codec"
	"github.com/harrisonrobin/errands/pkg/remote"
)

const (
	davPath        = "/remote.php/dav"
	requestTimeout = 30 * time.Second
)

var _ remote.Directory = (*Client)(nil)

// Client is an authenticated CalDAV session rooted at the user's calendar
// home set.
type Client struct {
	http    webdav.HTTPClient
	cal     *caldav.Client
	base    *url.URL
	homeSet string
}

// Endpoint turns a Nextcloud base URL into its DAV endpoint. URLs already
// pointing at remote.php/dav are kept.
func Endpoint(rawURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", fmt.Errorf("invalid nextcloud url %q: %w", rawURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("invalid nextcloud url %q: missing scheme or host", rawURL)
	}
	if !strings.Contains(u.Path, davPath) {
		u.Path = strings.TrimSuffix(u.Path, "/") + davPath
	}
	return u.String(), nil
}

// Dial authenticates with basic auth and discovers the calendar home set.
func Dial(ctx context.Context, rawURL, username, password string) (*Client, error) {
	endpoint, err := Endpoint(rawURL)
	if err != nil {
		return nil, err
	}
	base, err := url.Parse(endpoint)
	if err != nil {
		return nil, err
	}

	hc := webdav.HTTPClientWithBasicAuth(&http.Client{Timeout: requestTimeout}, username, password)
	cal, err := caldav.NewClient(hc, endpoint)
	if err != nil {
		return nil, fmt.Errorf("unable to create CalDAV client: %w", err)
	}

	principal, err := cal.FindCurrentUserPrincipal(ctx)
	if err != nil {
		return nil, fmt.Errorf("unable to find user principal: %w", err)
	}
	homeSet, err := cal.FindCalendarHomeSet(ctx, principal)
	if err != nil {
		return nil, fmt.Errorf("unable to find calendar home set: %w", err)
	}

	return &Client{http: hc, cal: cal, base: base, homeSet: homeSet}, nil
}

// ListTaskLists returns the calendars that can hold tasks.
func (c *Client) ListTaskLists(ctx context.Context) ([]remote.TaskList, error) {
	cals, err := c.cal.FindCalendars(ctx, c.homeSet)
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve calendar list: %w", err)
	}

	var lists []remote.TaskList
	for _, cal := range cals {
		if supportsTodo(cal) {
			lists = append(lists, remote.TaskList{ID: cal.Path, Name: cal.Name})
		}
	}
	return lists, nil
}

func supportsTodo(cal caldav.Calendar) bool {
	if len(cal.SupportedComponentSet) == 0 {
		return true
	}
	for _, comp := range cal.SupportedComponentSet {
		if strings.EqualFold(comp, ical.CompToDo) {
			return true
		}
	}
	return false
}

// CreateTaskList creates a VTODO-only calendar in the home set.
func (c *Client) CreateTaskList(ctx context.Context, name string) (remote.TaskList, error) {
	p := path.Join(c.homeSet, Slug(name)) + "/"
	target := c.base.ResolveReference(&url.URL{Path: p})
	if err := mkCalendar(ctx, c.http, target.String(), name); err != nil {
		return remote.TaskList{}, err
	}
	return remote.TaskList{ID: p, Name: name}, nil
}

// ListTasks returns every VTODO of the list, re-encoded as text. Objects that
// cannot be re-encoded are skipped with a warning.
func (c *Client) ListTasks(ctx context.Context, list remote.TaskList) ([]remote.Record, error) {
	query := &caldav.CalendarQuery{
		CompRequest: caldav.CalendarCompRequest{
			Name:     ical.CompCalendar,
			AllProps: true,
			AllComps: true,
		},
		CompFilter: caldav.CompFilter{
			Name:  ical.CompCalendar,
			Comps: []caldav.CompFilter{{Name: ical.CompToDo}},
		},
	}
	objs, err := c.cal.QueryCalendar(ctx, list.ID, query)
	if err != nil {
		return nil, fmt.Errorf("unable to query tasks of %s: %w", list.ID, err)
	}

	records := make([]remote.Record, 0, len(objs))
	for _, obj := range objs {
		if obj.Data == nil {
			continue
		}
		codec.Stamp(obj.Data, time.Now())
		body, err := codec.Render(obj.Data)
		if err != nil {
			log.Printf("Warning: skipping unreadable task %s: %v", obj.Path, err)
			continue
		}
		records = append(records, remote.Record{
			List: list.ID,
			ID:   obj.Path,
			ETag: obj.ETag,
			Body: body,
		})
	}
	return records, nil
}

// CreateTask stores body as <uid>.ics in the list.
func (c *Client) CreateTask(ctx context.Context, list remote.TaskList, body string) (remote.Record, error) {
	cal, err := codec.Parse(body)
	if err != nil {
		return remote.Record{}, err
	}
	f, err := codec.FromCalendar(cal)
	if err != nil {
		return remote.Record{}, err
	}

	p := path.Join(list.ID, f.UID+".ics")
	obj, err := c.cal.PutCalendarObject(ctx, p, cal)
	if err != nil {
		return remote.Record{}, fmt.Errorf("unable to create task %s: %w", p, err)
	}
	return remote.Record{List: list.ID, ID: p, ETag: obj.ETag, Body: body}, nil
}

// UpdateTask overwrites the object at rec.ID with rec.Body.
func (c *Client) UpdateTask(ctx context.Context, rec remote.Record) error {
	cal, err := codec.Parse(rec.Body)
	if err != nil {
		return err
	}
	if _, err := c.cal.PutCalendarObject(ctx, rec.ID, cal); err != nil {
		return fmt.Errorf("unable to update task %s: %w", rec.ID, err)
	}
	return nil
}

// Slug derives a collection name from a display name.
func Slug(name string) string {
	var sb strings.Builder
	dash := false
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			sb.WriteRune(r)
			dash = false
		case !dash && sb.Len() > 0:
			sb.WriteByte('-')
			dash = true
		}
	}
	s := strings.TrimSuffix(sb.String(), "-")
	if s == "" {
		return "tasks"
	}
	return s
}

// mkCalendar issues MKCALENDAR for a VTODO-only collection. go-webdav's
// client has no MKCALENDAR with a component set.
func mkCalendar(ctx context.Context, hc webdav.HTTPClient, target, name string) error {
	var escaped bytes.Buffer
	if err := xml.EscapeText(&escaped, []byte(name)); err != nil {
		return err
	}
	body := fmt.Sprintf(mkCalendarBody, escaped.String())

	req, err := http.NewRequestWithContext(ctx, "MKCALENDAR", target, strings.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/xml; charset=utf-8")

	resp, err := hc.Do(req)
	if err != nil {
		return fmt.Errorf("unable to create task list %q: %w", name, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("unable to create task list %q: server returned %s", name, resp.Status)
	}
	return nil
}

const mkCalendarBody = `<?xml version="1.0" encoding="utf-8"?>
<c:mkcalendar xmlns:d="DAV:" xmlns:c="urn:ietf:params:xml:ns:caldav">
  <d:set>
    <d:prop>
      <d:displayname>%s</d:displayname>
      <c:supported-calendar-component-set>
        <c:comp name="VTODO"/>
      </c:supported-calendar-component-set>
    </d:prop>
  </d:set>
</c:mkcalendar>
`
