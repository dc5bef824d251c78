package ics

import (
	"bytes"
	"errors"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	appLog "github.com/kaan-dogan/RA-Duty-Schedule/internal/log"
	"github.com/kaan-dogan/RA-Duty-Schedule/internal/model"
)

// ParseRecords imports a calendar, typically one written by Build, back into
// records.
//
//   - SUMMARY becomes the title.
//   - DTSTART/DTEND are converted into loc (nil means time.Local).
//   - Duty type, assignment and completion are read from the DESCRIPTION
//     lines Build writes; CATEGORIES is used when the description has no
//     duty type.
//   - A VEVENT without a usable DTSTART is logged and skipped. A missing
//     DTEND makes a zero-length duty.
func ParseRecords(source string, body []byte, loc *time.Location) ([]model.Record, error) {
	if len(body) == 0 {
		return nil, errors.New("ics: empty body")
	}
	if loc == nil {
		loc = time.Local
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	out := make([]model.Record, 0)
	for _, ve := range cal.Events() {
		rec, perr := parseVEvent(source, ve, loc)
		if perr != nil {
			appLog.Error("ics: vevent import failed, skipping", perr, "source", source, "uid", ve.Id())
			continue
		}
		out = append(out, rec)
	}

	appLog.Debug("ics: import completed", "source", source, "record_count", len(out))
	return out, nil
}

func parseVEvent(source string, ve *ical.VEvent, loc *time.Location) (model.Record, error) {
	rec := model.Record{Source: source}

	start, err := ve.GetStartAt()
	if err != nil {
		return rec, err
	}
	rec.Start = start.In(loc)
	rec.End = rec.Start
	if end, err := ve.GetEndAt(); err == nil {
		rec.End = end.In(loc)
	}

	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		rec.Title = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyDescription); p != nil {
		for _, line := range strings.Split(p.Value, "\n") {
			line = strings.TrimRight(line, "\r")
			switch {
			case strings.HasPrefix(line, descDutyType):
				rec.DutyType = strings.TrimPrefix(line, descDutyType)
			case strings.HasPrefix(line, descAssigned):
				rec.AssignedTo = strings.TrimPrefix(line, descAssigned)
			case strings.HasPrefix(line, descComplete):
				rec.Complete = strings.TrimPrefix(line, descComplete)
			}
		}
	}
	if rec.DutyType == "" {
		if p := ve.GetProperty(ical.ComponentPropertyCategories); p != nil {
			rec.DutyType = p.Value
		}
	}

	if strings.TrimSpace(rec.Title) == "" {
		return rec, errors.New("ics: missing SUMMARY")
	}
	return rec, nil
}
