// Package codec translates between local task records and the iCalendar
// VTODO bodies stored on the remote task list.
package codec

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/emersion/go-ical"

	"github.com/harrisonrobin/errands/pkg/model"
)

const (
	// StatusCompleted is the only STATUS value the codec recognises.
	StatusCompleted = "COMPLETED"

	// PropColor carries the Errands colour tag. Errands itself reads this
	// exact name, so it is not X- prefixed.
	PropColor = "ERRANDS-COLOR"

	productID = "-//Errands//Errands sync//EN"
)

// ErrMalformed is returned when a body has no VTODO or no UID.
var ErrMalformed = errors.New("malformed task body")

// Fields are the task attributes carried by a remote body.
type Fields struct {
	UID       string
	Summary   string
	RelatedTo string
	Status    string
	Color     string
}

// Completed reports whether the status is COMPLETED.
func (f Fields) Completed() bool {
	return f.Status == StatusCompleted
}

// FieldsFor maps a local task onto remote fields. parent is passed separately
// because providers resolve it differently.
func FieldsFor(t model.Task, uid, parent string) Fields {
	f := Fields{
		UID:       uid,
		Summary:   t.Text,
		RelatedTo: parent,
		Color:     t.Color,
	}
	if t.Completed {
		f.Status = StatusCompleted
	}
	return f
}

// NeedsUpdate reports whether existing differs from target in any field a
// local edit can change.
func NeedsUpdate(existing, target Fields) bool {
	return existing.Summary != target.Summary ||
		existing.RelatedTo != target.RelatedTo ||
		existing.Completed() != target.Completed() ||
		existing.Color != target.Color
}

// Codec encodes fields into VCALENDAR bodies. Now stamps DTSTAMP; a fixed
// clock makes the output reproducible.
type Codec struct {
	Now func() time.Time
}

func New() *Codec {
	return &Codec{Now: time.Now}
}

// Calendar builds the VCALENDAR holding one VTODO for f.
func (c *Codec) Calendar(f Fields) *ical.Calendar {
	now := time.Now
	if c != nil && c.Now != nil {
		now = c.Now
	}

	todo := ical.NewComponent(ical.CompToDo)
	todo.Props.SetText(ical.PropUID, f.UID)
	todo.Props.SetDateTime(ical.PropDateTimeStamp, now().UTC().Truncate(time.Second))
	todo.Props.SetText(ical.PropSummary, f.Summary)
	todo.Props.SetText(ical.PropRelatedTo, f.RelatedTo)
	if f.Completed() {
		todo.Props.SetText(ical.PropStatus, StatusCompleted)
	}
	todo.Props.SetText(PropColor, f.Color)

	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, productID)
	cal.Children = append(cal.Children, todo)
	return cal
}

// Encode renders f as an iCalendar body.
func (c *Codec) Encode(f Fields) (string, error) {
	if f.UID == "" {
		return "", fmt.Errorf("%w: empty uid", ErrMalformed)
	}
	return Render(c.Calendar(f))
}

// Render serialises an already built calendar.
func Render(cal *ical.Calendar) (string, error) {
	var sb strings.Builder
	if err := ical.NewEncoder(&sb).Encode(cal); err != nil {
		return "", fmt.Errorf("failed to encode calendar: %w", err)
	}
	return sb.String(), nil
}

// Stamp adds a DTSTAMP of now to calendar components that lack one. Other
// clients sometimes omit it, and the encoder refuses such components.
func Stamp(cal *ical.Calendar, now time.Time) {
	for _, child := range cal.Children {
		switch child.Name {
		case ical.CompToDo, ical.CompEvent, ical.CompJournal:
		default:
			continue
		}
		if child.Props.Get(ical.PropDateTimeStamp) == nil {
			child.Props.SetDateTime(ical.PropDateTimeStamp, now.UTC().Truncate(time.Second))
		}
	}
}

// Parse decodes a body into a calendar without interpreting it.
func Parse(body string) (*ical.Calendar, error) {
	cal, err := ical.NewDecoder(strings.NewReader(body)).Decode()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return cal, nil
}

// Decode extracts the fields of the first VTODO in body.
func Decode(body string) (Fields, error) {
	cal, err := Parse(body)
	if err != nil {
		return Fields{}, err
	}
	return FromCalendar(cal)
}

// FromCalendar extracts the fields of the first VTODO in cal.
func FromCalendar(cal *ical.Calendar) (Fields, error) {
	var todo *ical.Component
	for _, child := range cal.Children {
		if child.Name == ical.CompToDo {
			todo = child
			break
		}
	}
	if todo == nil {
		return Fields{}, fmt.Errorf("%w: no VTODO", ErrMalformed)
	}

	var f Fields
	var err error
	if f.UID, err = todo.Props.Text(ical.PropUID); err != nil {
		return Fields{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if f.UID == "" {
		return Fields{}, fmt.Errorf("%w: missing UID", ErrMalformed)
	}
	f.Summary, _ = todo.Props.Text(ical.PropSummary)
	f.RelatedTo, _ = todo.Props.Text(ical.PropRelatedTo)
	f.Color, _ = todo.Props.Text(PropColor)
	if prop := todo.Props.Get(ical.PropStatus); prop != nil {
		f.Status = strings.ToUpper(prop.Value)
	}
	return f, nil
}
