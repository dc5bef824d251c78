package ics

import (
	"errors"
	"time"

	"github.com/teambition/rrule-go"

	appLog "github.com/kaan-dogan/RA-Duty-Schedule/internal/log"
	"github.com/kaan-dogan/RA-Duty-Schedule/internal/model"
)

const (
	defaultMaxOccurrences = 1000
)

// StandingDuty is a duty that repeats on a schedule ("every Monday 18:00,
// Front Desk, Bob Lee") instead of being listed row by row in the export.
type StandingDuty struct {
	Title      string
	DutyType   string
	AssignedTo string

	// RRule is an RFC 5545 recurrence rule without DTSTART, e.g.
	// "FREQ=WEEKLY;BYDAY=MO,TH".
	RRule string
	// Start is the first occurrence; its clock time and location carry over
	// to every occurrence.
	Start time.Time
	// Duration of each occurrence.
	Duration time.Duration
	// Except lists occurrence starts to drop (holidays, closures).
	Except []time.Time
}

// ExpandConfig controls standing-duty expansion.
type ExpandConfig struct {
	// RangeStart / RangeEnd bound the occurrences (inclusive).
	RangeStart time.Time
	RangeEnd   time.Time

	// MaxOccurrences caps each duty. Zero means defaultMaxOccurrences.
	MaxOccurrences int
}

// ExpandResult carries the generated records and the titles of duties that
// hit the cap.
type ExpandResult struct {
	Records   []model.Record
	Truncated []string
}

// ExpandStanding turns standing duties into concrete records inside the
// configured range. A duty with an invalid rule is logged and skipped.
func ExpandStanding(duties []StandingDuty, cfg ExpandConfig) (ExpandResult, error) {
	var result ExpandResult

	if cfg.RangeEnd.Before(cfg.RangeStart) {
		return result, errors.New("ics: expand RangeEnd is before RangeStart")
	}
	if cfg.MaxOccurrences <= 0 {
		cfg.MaxOccurrences = defaultMaxOccurrences
	}

	result.Records = make([]model.Record, 0)
	for _, d := range duties {
		starts, hitCap, err := occurrences(d, cfg)
		if err != nil {
			appLog.Error("ics: standing duty rule invalid, skipping", err, "title", d.Title, "rrule", d.RRule)
			continue
		}
		if hitCap {
			result.Truncated = append(result.Truncated, d.Title)
			appLog.Error("ics: standing duty truncated",
				errors.New("max occurrences reached"),
				"title", d.Title,
				"cap", cfg.MaxOccurrences,
			)
		}

		for _, s := range starts {
			result.Records = append(result.Records, model.Record{
				Source:     "standing",
				Title:      d.Title,
				Start:      s,
				End:        s.Add(d.Duration),
				DutyType:   d.DutyType,
				AssignedTo: d.AssignedTo,
			})
		}
	}

	return result, nil
}

func occurrences(d StandingDuty, cfg ExpandConfig) ([]time.Time, bool, error) {
	if d.Start.IsZero() {
		return nil, false, errors.New("ics: standing duty has no start")
	}

	r, err := rrule.StrToRRule(d.RRule)
	if err != nil {
		return nil, false, err
	}
	r.DTStart(d.Start)

	var set rrule.Set
	set.RRule(r)
	for _, ex := range d.Except {
		set.ExDate(ex.In(d.Start.Location()))
	}

	loc := d.Start.Location()
	starts := set.Between(cfg.RangeStart.In(loc), cfg.RangeEnd.In(loc), true)
	if len(starts) > cfg.MaxOccurrences {
		return starts[:cfg.MaxOccurrences], true, nil
	}
	return starts, false, nil
}
