package ics

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"github.com/kaan-dogan/RA-Duty-Schedule/internal/model"
)

// Description line prefixes. ParseRecords reads the same prefixes back.
const (
	descDutyType = "Duty Type: "
	descAssigned = "Assigned To: "
	descPeople   = "People: "
	descComplete = "Duty Complete: "
)

// DefaultCalendarName is used when ExportOptions.CalendarName is empty.
const DefaultCalendarName = "Duty Calendar"

// ExportOptions controls calendar-level properties of an export.
type ExportOptions struct {
	// CalendarName is written as X-WR-CALNAME.
	CalendarName string
	// Now is used for DTSTAMP. Zero means time.Now().
	Now time.Time
}

// Build renders duties as an iCalendar document with CRLF line endings.
func Build(duties []model.Duty, opts ExportOptions) string {
	return newCalendar(duties, opts).Serialize(ical.WithNewLineWindows)
}

// Write renders duties as an iCalendar document to w.
func Write(w io.Writer, duties []model.Duty, opts ExportOptions) error {
	return newCalendar(duties, opts).SerializeTo(w, ical.WithNewLineWindows)
}

func newCalendar(duties []model.Duty, opts ExportOptions) *ical.Calendar {
	name := opts.CalendarName
	if name == "" {
		name = DefaultCalendarName
	}
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}

	cal := ical.NewCalendarFor("dutycal")
	cal.SetMethod(ical.MethodPublish)
	cal.SetXWRCalName(name)

	for _, d := range duties {
		ev := cal.AddEvent(eventUID(d.Record))
		ev.SetDtStampTime(now)
		ev.SetStartAt(d.Start)
		ev.SetEndAt(d.End)
		ev.SetSummary(d.Title)
		if desc := description(d); desc != "" {
			ev.SetDescription(desc)
		}
		if d.DutyType != "" {
			ev.AddCategory(d.DutyType)
		}
	}
	return cal
}

// description lists the non-empty record fields, one per line.
func description(d model.Duty) string {
	lines := make([]string, 0, 4)
	if d.DutyType != "" {
		lines = append(lines, descDutyType+d.DutyType)
	}
	if d.AssignedTo != "" {
		lines = append(lines, descAssigned+d.AssignedTo)
	}
	if len(d.People) > 0 {
		lines = append(lines, descPeople+strings.Join(d.People, ", "))
	}
	if d.Complete != "" {
		lines = append(lines, descComplete+d.Complete)
	}
	return strings.Join(lines, "\n")
}

// eventUID is stable across exports of the same record so calendar clients
// update events in place instead of duplicating them.
func eventUID(rec model.Record) string {
	sum := sha256.Sum256([]byte(rec.Source + "\x00" + rec.Title + "\x00" + rec.Start.UTC().Format(time.RFC3339)))
	return hex.EncodeToString(sum[:12]) + "@dutycal"
}
