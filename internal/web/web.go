package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/kaan-dogan/RA-Duty-Schedule/internal/calendar"
	"github.com/kaan-dogan/RA-Duty-Schedule/internal/config"
	"github.com/kaan-dogan/RA-Duty-Schedule/internal/filter"
	"github.com/kaan-dogan/RA-Duty-Schedule/internal/ics"
	appLog "github.com/kaan-dogan/RA-Duty-Schedule/internal/log"
)

// Server exposes the loaded duties to a calendar UI: JSON for the widget
// and person picker, ICS for "add to my calendar".
type Server struct {
	cfg *config.Config
	svc *calendar.Service
	mux *http.ServeMux
}

// NewServer constructs a new Server.
func NewServer(cfg *config.Config, svc *calendar.Service) *Server {
	s := &Server{
		cfg: cfg,
		svc: svc,
		mux: http.NewServeMux(),
	}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured with both
// a username and a password.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	return s.cfg.BasicAuth.Username != "" && s.cfg.BasicAuth.Password != ""
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="dutycal", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// Run serves on cfg.Listen until ctx is cancelled, then shuts down
// gracefully.
func Run(ctx context.Context, cfg *config.Config, svc *calendar.Service) error {
	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           NewServer(cfg, svc).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/api/events", s.handleEvents)
	s.mux.HandleFunc("/api/people", s.handlePeople)
	s.mux.HandleFunc("/api/people/known", s.handleKnown)
	s.mux.HandleFunc("/api/types", s.handleTypes)
	s.mux.HandleFunc("/api/reload", s.handleReload)
	s.mux.HandleFunc("/export.ics", s.handleExport)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// eventDTO is the JSON view of one duty.
type eventDTO struct {
	Title      string    `json:"title"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
	DutyType   string    `json:"duty_type"`
	AssignedTo string    `json:"assigned_to"`
	Complete   string    `json:"complete"`
	People     []string  `json:"people"`
	Color      string    `json:"color"`
}

// eventsResponse is the JSON response shape for /api/events.
type eventsResponse struct {
	Events   []eventDTO `json:"events"`
	Total    int        `json:"total"`
	LoadedAt time.Time  `json:"loaded_at"`
}

// knownResponse is the JSON response shape for /api/people/known.
type knownResponse struct {
	Name      string `json:"name"`
	Known     bool   `json:"known"`
	Canonical string `json:"canonical"`
}

// reloadResponse is the JSON response shape for /api/reload.
type reloadResponse struct {
	Duties   int       `json:"duties"`
	People   int       `json:"people"`
	LoadedAt time.Time `json:"loaded_at"`
}

func criteriaFromQuery(r *http.Request) filter.Criteria {
	q := r.URL.Query()
	return filter.Criteria{
		DutyType: q.Get("type"),
		Query:    q.Get("q"),
		Person:   q.Get("person"),
	}
}

// handleEvents returns the duties matching the query filters.
//
// GET /api/events?type=Event&q=hot&person=andrew
//   - type:   duty type substring
//   - q:      free text over title, assignment and type
//   - person: any spelling of a roster member
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	snap := s.svc.Snapshot()
	duties := filter.Apply(snap.Duties, criteriaFromQuery(r), snap.Roster)

	dtos := make([]eventDTO, 0, len(duties))
	for _, d := range duties {
		dtos = append(dtos, eventDTO{
			Title:      d.Title,
			Start:      d.Start,
			End:        d.End,
			DutyType:   d.DutyType,
			AssignedTo: d.AssignedTo,
			Complete:   d.Complete,
			People:     d.People,
			Color:      s.cfg.ColorFor(d.DutyType),
		})
	}

	writeJSON(w, http.StatusOK, eventsResponse{
		Events:   dtos,
		Total:    len(snap.Duties),
		LoadedAt: snap.LoadedAt,
	})
}

// handlePeople returns the sorted roster for a person picker.
func (s *Server) handlePeople(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	writeJSON(w, http.StatusOK, s.svc.Snapshot().Roster.Names())
}

// handleKnown reports whether ?name= is a roster member and how it
// canonicalizes.
func (s *Server) handleKnown(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	name := r.URL.Query().Get("name")
	if strings.TrimSpace(name) == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	rs := s.svc.Snapshot().Roster
	writeJSON(w, http.StatusOK, knownResponse{
		Name:      name,
		Known:     rs.IsKnown(name),
		Canonical: rs.Canonicalize(name),
	})
}

func (s *Server) handleTypes(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	writeJSON(w, http.StatusOK, filter.DutyTypes(s.svc.Snapshot().Duties))
}

// handleReload reloads all sources now. The previous data stays in place
// when the reload fails.
func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	snap, err := s.svc.Reload(r.Context())
	if err != nil {
		appLog.Error("api reload failed", err)
		writeError(w, http.StatusBadGateway, "reload failed")
		return
	}
	writeJSON(w, http.StatusOK, reloadResponse{
		Duties:   len(snap.Duties),
		People:   snap.Roster.Len(),
		LoadedAt: snap.LoadedAt,
	})
}

// handleExport writes the filtered duties as an ICS attachment. Accepts the
// same filters as /api/events.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	snap := s.svc.Snapshot()
	c := criteriaFromQuery(r)
	duties := filter.Apply(snap.Duties, c, snap.Roster)

	name := s.cfg.CalendarName
	if c.Person != "" {
		name = snap.Roster.Canonicalize(c.Person) + " - " + name
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+exportFilename(name)+`"`)
	w.WriteHeader(http.StatusOK)
	if err := ics.Write(w, duties, ics.ExportOptions{CalendarName: name}); err != nil {
		appLog.Error("failed to write ICS export", err)
	}
	appLog.Info("api export", "duties", len(duties), "type", c.DutyType, "person", c.Person)
}

var unsafeFilename = regexp.MustCompile(`[^A-Za-z0-9]+`)

// exportFilename turns a calendar name into a download name:
// "Andrew - Duty Calendar" becomes "andrew-duty-calendar.ics".
func exportFilename(name string) string {
	base := strings.Trim(unsafeFilename.ReplaceAllString(name, "-"), "-")
	if base == "" {
		base = "duties"
	}
	return strings.ToLower(base) + ".ics"
}

func allowMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method == method || (method == http.MethodGet && r.Method == http.MethodHead) {
		return true
	}
	w.Header().Set("Allow", method)
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	return false
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
