package status

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/georgevio/oml4go/internal/channel"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)

	r.Handle("/metrics", promhttp.HandlerFor(
		newMetricsRegistry(s.channels, s.state),
		promhttp.HandlerOpts{},
	))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Route("/channels", func(r chi.Router) {
			r.Get("/", s.handleListChannels)
			r.Get("/{name}", s.handleGetChannel)
		})
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeNotFound(w, "no such endpoint")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, ErrCodeMethodNotAllow, "method not allowed")
	})

	return r
}

// channelView is the JSON form of a channel.
type channelView struct {
	Name    string `json:"name"`
	Domain  string `json:"domain"`
	URL     string `json:"url"`
	Healthy bool   `json:"healthy"`
	Dropped uint64 `json:"dropped"`
	Error   string `json:"error,omitempty"`
}

func viewOf(ch *channel.Channel) channelView {
	v := channelView{
		Name:    ch.Name(),
		Domain:  ch.Domain(),
		URL:     ch.URL(),
		Healthy: true,
		Dropped: ch.Dropped(),
	}
	if err := ch.Err(); err != nil {
		v.Healthy = false
		v.Error = err.Error()
	}
	return v
}

// handleHealth reports collection state. Any failed channel makes the
// response 503 so load balancers and probes notice.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	body := map[string]any{
		"status":  "ok",
		"version": s.version,
		"active":  s.state.Active(),
		"domain":  s.identity.Domain,
		"node_id": s.identity.NodeID,
		"app":     s.identity.AppName,
	}
	if s.state.Active() {
		body["start_time"] = s.state.StartTime().UTC().Format(time.RFC3339)
	}

	status := http.StatusOK
	for _, ch := range s.channels.Channels() {
		if ch.Err() != nil {
			body["status"] = "degraded"
			status = http.StatusServiceUnavailable
			break
		}
	}
	writeJSON(w, status, body)
}

func (s *Server) handleListChannels(w http.ResponseWriter, _ *http.Request) {
	channels := s.channels.Channels()
	views := make([]channelView, 0, len(channels))
	for _, ch := range channels {
		views = append(views, viewOf(ch))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"channels": views,
		"count":    len(views),
	})
}

// handleGetChannel looks a channel up by name and optional ?domain=.
func (s *Server) handleGetChannel(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	domain := r.URL.Query().Get("domain")
	if domain == "" {
		domain = channel.DefaultDomain
	}

	for _, ch := range s.channels.Channels() {
		if ch.Name() == name && ch.Domain() == domain {
			writeJSON(w, http.StatusOK, viewOf(ch))
			return
		}
	}
	writeNotFound(w, "channel not found")
}
