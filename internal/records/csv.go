package records

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	appLog "github.com/kaan-dogan/RA-Duty-Schedule/internal/log"
	"github.com/kaan-dogan/RA-Duty-Schedule/internal/model"
)

// Column names of the roster export.
const (
	ColTitle    = "Title"
	ColStart    = "Start"
	ColEnd      = "End"
	ColDutyType = "Duty Type"
	ColAssigned = "Assigned To"
	ColComplete = "Duty Complete"
)

// dateLayout accepts one- or two-digit day, month and hour ("1/9/2025 8:00").
const dateLayout = "2/1/2006 15:04"

// ErrMissingColumn is returned when a required header column is absent.
var ErrMissingColumn = errors.New("records: missing required column")

// ParseCSV reads a roster export with a header row.
//
//   - Title, Start and End are required columns; Duty Type, Assigned To and
//     Duty Complete are optional.
//   - Rows with an empty Title, Start or End are skipped silently.
//   - Rows whose dates do not parse, and rows the CSV reader rejects, are
//     logged and skipped. Stray quotes inside a field are kept literally.
//   - Dates use DD/MM/YYYY HH:MM and are interpreted in loc.
func ParseCSV(source string, r io.Reader, loc *time.Location) ([]model.Record, error) {
	if loc == nil {
		loc = time.Local
	}

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	// Hand-edited exports carry stray quotes ("Movie "Night" setup").
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return []model.Record{}, nil
		}
		return nil, fmt.Errorf("records: read header: %w", err)
	}

	idx := make(map[string]int, len(header))
	for i, h := range header {
		// Exports from spreadsheet tools often start with a UTF-8 BOM.
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		idx[h] = i
	}
	for _, col := range []string{ColTitle, ColStart, ColEnd} {
		if _, ok := idx[col]; !ok {
			return nil, fmt.Errorf("%w %q", ErrMissingColumn, col)
		}
	}

	field := func(row []string, col string) string {
		i, ok := idx[col]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}

	out := make([]model.Record, 0)
	line := 1
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				appLog.Error("records: malformed row, skipping", err, "source", source, "line", perr.Line)
				continue
			}
			return nil, fmt.Errorf("records: read line %d: %w", line, err)
		}

		title := field(row, ColTitle)
		startRaw := strings.TrimSpace(field(row, ColStart))
		endRaw := strings.TrimSpace(field(row, ColEnd))
		if strings.TrimSpace(title) == "" || startRaw == "" || endRaw == "" {
			continue
		}

		start, err := ParseDate(startRaw, loc)
		if err != nil {
			appLog.Error("records: bad start date, skipping row", err, "source", source, "line", line, "title", title)
			continue
		}
		end, err := ParseDate(endRaw, loc)
		if err != nil {
			appLog.Error("records: bad end date, skipping row", err, "source", source, "line", line, "title", title)
			continue
		}

		out = append(out, model.Record{
			Source:     source,
			Title:      title,
			Start:      start,
			End:        end,
			DutyType:   CleanDutyType(field(row, ColDutyType)),
			AssignedTo: strings.TrimSpace(field(row, ColAssigned)),
			Complete:   strings.TrimSpace(field(row, ColComplete)),
		})
	}

	appLog.Debug("records: csv parsed", "source", source, "record_count", len(out))
	return out, nil
}

// ParseDate parses a DD/MM/YYYY HH:MM timestamp in loc.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	return time.ParseInLocation(dateLayout, strings.Join(strings.Fields(s), " "), loc)
}

var dutyTypeCleaner = strings.NewReplacer("[", "", "]", "", `"`, "")

// CleanDutyType strips the JSON-list decoration the export puts around duty
// types: `["PG Only Duty"]` -> `PG Only Duty`.
func CleanDutyType(s string) string {
	return strings.TrimSpace(dutyTypeCleaner.Replace(s))
}
