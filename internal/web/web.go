// Package web serves the calendar feeds over HTTP: the single-source and
// merged ICS endpoints, a health probe, and a small index page that
// builds subscription links.
package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"bilical/internal/bilibili"
	"bilical/internal/config"
	"bilical/internal/ics"
	appLog "bilical/internal/log"
)

// FollowLister is the slice of the bilibili client the server needs.
type FollowLister interface {
	FollowList(ctx context.Context, vmid string) ([]bilibili.Show, error)
}

// SourceFetcher is the slice of the ICS fetcher the server needs.
type SourceFetcher interface {
	FetchAll(ctx context.Context, sources []ics.Source) []ics.FetchResult
}

// Server wires the follow-list client and the external fetcher behind the
// HTTP endpoints, with an in-memory TTL cache of generated feeds.
type Server struct {
	cfg     *config.Config
	follows FollowLister
	fetcher SourceFetcher
	mux     *http.ServeMux

	feedMu sync.Mutex
	feeds  map[string]cachedFeed

	// now is injectable for tests; defaults to time.Now.
	now func() time.Time
}

type cachedFeed struct {
	body    string
	expires time.Time
}

// NewServer constructs a Server.
func NewServer(cfg *config.Config, follows FollowLister, fetcher SourceFetcher) *Server {
	s := &Server{
		cfg:     cfg,
		follows: follows,
		fetcher: fetcher,
		mux:     http.NewServeMux(),
		feeds:   make(map[string]cachedFeed),
		now:     time.Now,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/", s.handleIndex)
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/ics", s.handleICS)
	s.mux.HandleFunc("/ics/merged", s.handleMergedICS)
}

// Handler returns the full middleware-wrapped handler.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		h = s.basicAuthMiddleware(h)
	}
	return s.requestIDMiddleware(h)
}

func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	return s.cfg.BasicAuth.Username != "" && s.cfg.BasicAuth.Password != ""
}

// basicAuthMiddleware guards all handlers except /health.
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
			w.Header().Set("WWW-Authenticate", `Basic realm="bilical", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requestIDMiddleware tags every request with an id for log correlation.
func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		w.Header().Set("X-Request-Id", reqID)
		appLog.Debug("http request", "request_id", reqID, "method", r.Method, "path", r.URL.Path)
		next.ServeHTTP(w, r)
	})
}

func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) handleICS(w http.ResponseWriter, r *http.Request) {
	vmid, ok := requireVmid(w, r)
	if !ok {
		return
	}

	if body, hit := s.lookupFeed("single:" + vmid); hit {
		serveCalendar(w, vmid, body)
		return
	}

	shows, err := s.airingShows(r.Context(), vmid)
	if err != nil {
		writeUpstreamError(w, vmid, err)
		return
	}

	body := ics.Generate(shows, vmid, s.now())
	s.storeFeed("single:"+vmid, body)
	serveCalendar(w, vmid, body)
}

func (s *Server) handleMergedICS(w http.ResponseWriter, r *http.Request) {
	vmid, ok := requireVmid(w, r)
	if !ok {
		return
	}

	if body, hit := s.lookupFeed("merged:" + vmid); hit {
		serveCalendar(w, vmid, body)
		return
	}

	shows, err := s.airingShows(r.Context(), vmid)
	if err != nil {
		writeUpstreamError(w, vmid, err)
		return
	}

	externals := s.fetchExternal(r.Context())
	body, nonEmpty := ics.GenerateMerged(shows, vmid, externals, s.now())
	if !nonEmpty {
		// Nothing to show: serve a placeholder calendar.
		body = ics.EmptyCalendar("追番日历 " + vmid)
	}
	s.storeFeed("merged:"+vmid, body)
	serveCalendar(w, vmid, body)
}

func (s *Server) airingShows(ctx context.Context, vmid string) ([]bilibili.Show, error) {
	shows, err := s.follows.FollowList(ctx, vmid)
	if err != nil {
		return nil, err
	}
	return bilibili.FilterAiring(shows), nil
}

// fetchExternal resolves the configured external sources into parsed-ready
// calendars. Fetch failures were already omitted by the fetcher.
func (s *Server) fetchExternal(ctx context.Context) []ics.ExternalCalendar {
	sources := configuredSources(s.cfg)
	if len(sources) == 0 {
		return nil
	}
	results := s.fetcher.FetchAll(ctx, sources)
	out := make([]ics.ExternalCalendar, 0, len(results))
	for _, res := range results {
		out = append(out, ics.ExternalCalendar{Label: res.Source.Label, Body: res.Body})
	}
	return out
}

func configuredSources(cfg *config.Config) []ics.Source {
	out := make([]ics.Source, 0, len(cfg.External))
	for _, e := range cfg.External {
		label := e.Name
		if label == "" {
			label = e.URL
		}
		out = append(out, ics.Source{ID: e.ID, Label: label, URL: e.URL})
	}
	return out
}

func (s *Server) lookupFeed(key string) (string, bool) {
	s.feedMu.Lock()
	defer s.feedMu.Unlock()
	entry, ok := s.feeds[key]
	if !ok || s.now().After(entry.expires) {
		return "", false
	}
	return entry.body, true
}

func (s *Server) storeFeed(key, body string) {
	s.feedMu.Lock()
	defer s.feedMu.Unlock()
	s.feeds[key] = cachedFeed{body: body, expires: s.now().Add(s.cfg.FeedTTL())}
}

func requireVmid(w http.ResponseWriter, r *http.Request) (string, bool) {
	vmid := r.URL.Query().Get("vmid")
	if vmid == "" || !isDigits(vmid) {
		http.Error(w, "missing or invalid vmid", http.StatusBadRequest)
		return "", false
	}
	return vmid, true
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func serveCalendar(w http.ResponseWriter, vmid, body string) {
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=bili_bangumi_%s.ics", vmid))
	_, _ = w.Write([]byte(body))
}

func writeUpstreamError(w http.ResponseWriter, vmid string, err error) {
	var apiErr *bilibili.APIError
	switch {
	case errors.Is(err, bilibili.ErrPrivate):
		appLog.Info("follow list private", "vmid", vmid)
		http.Error(w, "该用户的追番列表未公开", http.StatusForbidden)
	case errors.As(err, &apiErr):
		appLog.Error("upstream api error", err, "vmid", vmid, "code", apiErr.Code)
		http.Error(w, "上游接口返回错误", http.StatusBadGateway)
	default:
		appLog.Error("follow list fetch failed", err, "vmid", vmid)
		http.Error(w, "获取追番列表失败", http.StatusBadGateway)
	}
}
