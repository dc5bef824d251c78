// Package records loads duty records from roster exports: CSV files, CSV
// downloads, and previously exported ICS calendars.
package records

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kaan-dogan/RA-Duty-Schedule/internal/ics"
	appLog "github.com/kaan-dogan/RA-Duty-Schedule/internal/log"
	"github.com/kaan-dogan/RA-Duty-Schedule/internal/model"
)

// Source is one roster export.
type Source struct {
	// ID is used in logs and as Record.Source.
	ID string
	// Location is a file path or an http(s) URL.
	Location string
}

// IsRemote reports whether the source is downloaded over HTTP.
func (s Source) IsRemote() bool {
	return strings.HasPrefix(s.Location, "http://") || strings.HasPrefix(s.Location, "https://")
}

// Loader reads sources into records. Remote sources go through a caching
// Fetcher; dates are interpreted in Location.
type Loader struct {
	fetcher  *Fetcher
	location *time.Location
}

// NewLoader creates a Loader. A nil loc means time.Local.
func NewLoader(cacheDir string, loc *time.Location) *Loader {
	if loc == nil {
		loc = time.Local
	}
	return &Loader{
		fetcher:  NewFetcher(cacheDir),
		location: loc,
	}
}

// Load reads a single source. The payload format is sniffed: a body starting
// with BEGIN:VCALENDAR is imported as ICS, anything else is parsed as CSV.
func (l *Loader) Load(ctx context.Context, src Source) ([]model.Record, error) {
	if src.Location == "" {
		return nil, errors.New("records: source location is empty")
	}
	if src.ID == "" {
		src.ID = src.Location
	}

	var body []byte
	if src.IsRemote() {
		res, err := l.fetcher.Fetch(ctx, src)
		if err != nil {
			return nil, err
		}
		body = res.Body
	} else {
		data, err := os.ReadFile(src.Location)
		if err != nil {
			return nil, fmt.Errorf("records: read %s: %w", src.ID, err)
		}
		body = data
	}

	return l.decode(src, body)
}

func (l *Loader) decode(src Source, body []byte) ([]model.Record, error) {
	trimmed := bytes.TrimSpace(bytes.TrimPrefix(body, []byte("\ufeff")))
	if bytes.HasPrefix(trimmed, []byte("BEGIN:VCALENDAR")) {
		recs, err := ics.ParseRecords(src.ID, trimmed, l.location)
		if err != nil {
			return nil, fmt.Errorf("records: import %s: %w", src.ID, err)
		}
		return recs, nil
	}
	return ParseCSV(src.ID, bytes.NewReader(body), l.location)
}

// LoadAll reads every source. A failing source is logged and skipped, and
// its error returned alongside the records of the sources that worked.
func (l *Loader) LoadAll(ctx context.Context, sources []Source) ([]model.Record, []error) {
	out := make([]model.Record, 0)
	errs := make([]error, 0)

	for _, src := range sources {
		recs, err := l.Load(ctx, src)
		if err != nil {
			errs = append(errs, err)
			appLog.Error("records: source load failed", err, "id", src.ID)
			continue
		}
		appLog.Info("records: source loaded", "id", src.ID, "record_count", len(recs))
		out = append(out, recs...)
	}

	return out, errs
}
