// Package calendar owns the loaded duty data. Every load reads all sources,
// builds a fresh roster and resolves every record against it; the result is
// published as an immutable Snapshot.
package calendar

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/kaan-dogan/RA-Duty-Schedule/internal/config"
	"github.com/kaan-dogan/RA-Duty-Schedule/internal/ics"
	appLog "github.com/kaan-dogan/RA-Duty-Schedule/internal/log"
	"github.com/kaan-dogan/RA-Duty-Schedule/internal/model"
	"github.com/kaan-dogan/RA-Duty-Schedule/internal/records"
	"github.com/kaan-dogan/RA-Duty-Schedule/internal/roster"
)

// RefreshOff disables periodic reloads when used as the refresh schedule.
const RefreshOff = "off"

// Snapshot is the result of one load. It is never modified after Build.
type Snapshot struct {
	Records  []model.Record
	Roster   *roster.Roster
	Duties   []model.Duty
	LoadedAt time.Time
}

// BuildSnapshot builds the roster from recs in load order, so the first
// spelling in the data is canonical, then resolves every record. Snapshot
// records and duties are sorted by start time.
func BuildSnapshot(recs []model.Record, labels []string, now time.Time) *Snapshot {
	var opts []roster.Option
	if labels != nil {
		opts = append(opts, roster.WithLabels(labels))
	}
	rs := roster.Build(recs, opts...)

	sorted := make([]model.Record, len(recs))
	copy(sorted, recs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Start.Before(sorted[j].Start)
	})
	return &Snapshot{
		Records:  sorted,
		Roster:   rs,
		Duties:   rs.ResolveAll(sorted),
		LoadedAt: now,
	}
}

// Service loads sources and holds the current snapshot.
type Service struct {
	cfg    *config.Config
	loader *records.Loader
	now    func() time.Time

	mu   sync.RWMutex
	snap *Snapshot

	reloadMu sync.Mutex
}

// NewService creates a Service. Nothing is loaded until Reload.
func NewService(cfg *config.Config) *Service {
	return &Service{
		cfg:    cfg,
		loader: records.NewLoader(cfg.CacheDir, cfg.Location()),
		now:    time.Now,
		snap:   BuildSnapshot(nil, cfg.Labels, time.Time{}),
	}
}

// Snapshot returns the current snapshot; before the first successful load
// it is empty.
func (s *Service) Snapshot() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// Reload reads every source and swaps in a new snapshot. If sources are
// configured and none of them loads, the previous snapshot is kept and an
// error returned. Partial failures are logged and the rest is used.
func (s *Service) Reload(ctx context.Context) (*Snapshot, error) {
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	sources := make([]records.Source, 0, len(s.cfg.Sources))
	for _, sc := range s.cfg.Sources {
		if sc.Location() == "" {
			continue
		}
		sources = append(sources, records.Source{ID: sc.EffectiveID(), Location: sc.Location()})
	}

	recs, errs := s.loader.LoadAll(ctx, sources)
	if len(sources) > 0 && len(errs) == len(sources) {
		return s.Snapshot(), fmt.Errorf("calendar: all %d sources failed: %w", len(sources), errors.Join(errs...))
	}

	now := s.now()
	recs = append(recs, s.standingRecords(now)...)

	snap := BuildSnapshot(recs, s.cfg.Labels, now)

	s.mu.Lock()
	s.snap = snap
	s.mu.Unlock()

	appLog.Info("calendar: loaded",
		"sources", len(sources),
		"failed_sources", len(errs),
		"duties", len(snap.Duties),
		"people", snap.Roster.Len(),
	)
	return snap, nil
}

// standingRecords expands the configured standing duties over the horizon
// around now. Entries with unparseable dates are logged and skipped.
func (s *Service) standingRecords(now time.Time) []model.Record {
	if len(s.cfg.StandingDuties) == 0 {
		return nil
	}
	loc := s.cfg.Location()

	duties := make([]ics.StandingDuty, 0, len(s.cfg.StandingDuties))
	for _, sd := range s.cfg.StandingDuties {
		start, err := records.ParseDate(sd.Start, loc)
		if err != nil {
			appLog.Error("calendar: standing duty start invalid, skipping", err, "title", sd.Title, "start", sd.Start)
			continue
		}
		except := make([]time.Time, 0, len(sd.Except))
		for _, ex := range sd.Except {
			t, err := records.ParseDate(ex, loc)
			if err != nil {
				appLog.Error("calendar: standing duty exception invalid, ignoring", err, "title", sd.Title, "except", ex)
				continue
			}
			except = append(except, t)
		}
		duties = append(duties, ics.StandingDuty{
			Title:      sd.Title,
			DutyType:   records.CleanDutyType(sd.DutyType),
			AssignedTo: strings.TrimSpace(sd.AssignedTo),
			RRule:      sd.RRule,
			Start:      start,
			Duration:   sd.ParsedDuration(),
			Except:     except,
		})
	}

	horizon := time.Duration(s.cfg.HorizonDays) * 24 * time.Hour
	res, err := ics.ExpandStanding(duties, ics.ExpandConfig{
		RangeStart: now.Add(-horizon),
		RangeEnd:   now.Add(horizon),
	})
	if err != nil {
		appLog.Error("calendar: standing duty expansion failed", err)
		return nil
	}
	return res.Records
}

// Start schedules periodic reloads on the configured cron spec until ctx is
// cancelled. It does not perform an initial load.
func (s *Service) Start(ctx context.Context) error {
	spec := strings.TrimSpace(s.cfg.RefreshCron)
	if spec == "" || strings.EqualFold(spec, RefreshOff) {
		appLog.Info("calendar: periodic reload disabled")
		return nil
	}

	c := cron.New(cron.WithLocation(s.cfg.Location()))
	if _, err := c.AddFunc(spec, func() {
		if _, err := s.Reload(ctx); err != nil {
			appLog.Error("calendar: scheduled reload failed, keeping previous data", err)
		}
	}); err != nil {
		return fmt.Errorf("calendar: refresh schedule %q: %w", spec, err)
	}

	c.Start()
	appLog.Info("calendar: periodic reload scheduled", "refresh", spec)

	go func() {
		<-ctx.Done()
		<-c.Stop().Done()
		appLog.Debug("calendar: scheduler stopped")
	}()
	return nil
}
