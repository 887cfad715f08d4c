// Package http exposes a loaded system over a REST API: campaign
// simulation, interactive stepping sessions and live transition streams.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aretw0/sluice"
	"github.com/aretw0/sluice/internal/presentation/graph"
	"github.com/aretw0/sluice/pkg/domain"
	"github.com/aretw0/sluice/pkg/observability"
	"github.com/aretw0/sluice/pkg/session"
)

// Server routes API requests to a simulator and a session manager, both
// operating on one loaded system.
type Server struct {
	System   *domain.System
	Sim      *sluice.Simulator
	Sessions *session.Manager
	Streams  *StreamManager
}

// NewHandler creates the HTTP handler for a loaded system.
func NewHandler(sys *domain.System, sim *sluice.Simulator, sessions *session.Manager) http.Handler {
	server := &Server{
		System:   sys,
		Sim:      sim,
		Sessions: sessions,
		Streams:  NewStreamManager(),
	}
	r := chi.NewRouter()

	r.Get("/healthz", server.GetHealth)
	r.Get("/info", server.GetInfo)
	r.Get("/system", server.GetSystem)
	r.Get("/system/mermaid", server.GetSystemGraph)
	r.Post("/simulate", server.Simulate)
	r.Post("/sessions", server.StartSession)
	r.Get("/sessions", server.ListSessions)
	r.Get("/sessions/{id}/transitions", server.GetTransitions)
	r.Post("/sessions/{id}/step", server.Step)
	r.Delete("/sessions/{id}", server.DeleteSession)
	r.Get("/sessions/{id}/events", server.SubscribeEvents)
	r.Handle("/metrics", promhttp.HandlerFor(
		observability.DefaultRegistry().GetPrometheusRegistry(),
		promhttp.HandlerOpts{}))

	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Custom-Header")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetHealth handles the GET /healthz request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]string{"status": "ok"}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	resp := map[string]string{
		"app":     "sluice-http",
		"version": strings.TrimSpace(sluice.Version),
		"system":  s.System.Name,
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// GetSystem handles the GET /system request.
func (s *Server) GetSystem(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.System); err != nil {
		slog.Error("GetSystem response encode failed", "error", err)
	}
}

// GetSystemGraph handles the GET /system/mermaid request. With a session_id
// query parameter the diagram is overlaid with that session's live state.
func (s *Server) GetSystemGraph(w http.ResponseWriter, r *http.Request) {
	var overlay *graph.GraphOverlay
	if sessionID := r.URL.Query().Get("session_id"); sessionID != "" {
		err := s.Sessions.With(r.Context(), sessionID, func(ctx context.Context, sess *session.Session) error {
			overlay = buildOverlay(s.System, sess)
			return nil
		})
		if err != nil {
			if errors.Is(err, domain.ErrSessionNotFound) {
				http.Error(w, "Session not found", http.StatusNotFound)
				return
			}
			http.Error(w, fmt.Sprintf("Overlay error: %v", err), http.StatusInternalServerError)
			slog.Error("GetSystemGraph overlay failed", "session_id", sessionID, "error", err)
			return
		}
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprint(w, graph.GenerateMermaid(s.System, overlay))
}

// buildOverlay marks components whose automata left their initial state and
// components with an unfed input flow.
func buildOverlay(sys *domain.System, sess *session.Session) *graph.GraphOverlay {
	overlay := &graph.GraphOverlay{}
	for _, comp := range sys.Components {
		for _, a := range comp.Automata {
			state, err := sess.State(comp.Name, a.Name)
			if err == nil && len(a.States) > 0 && state != a.States[0] {
				overlay.Degraded = append(overlay.Degraded, comp.Name)
				break
			}
		}
		for _, in := range comp.FlowsIn {
			fed, err := sess.Value(comp.Name, domain.VarName(in.Name, domain.SuffixFedIn))
			if err == nil && !fed {
				overlay.Unfed = append(overlay.Unfed, comp.Name)
				break
			}
		}
	}
	return overlay
}

// SimulateRequest is the POST /simulate request body. A nil System runs the
// campaign against the system the server was started with.
type SimulateRequest struct {
	System *domain.System          `json:"system,omitempty"`
	Config domain.SimulationConfig `json:"config"`
}

// Simulate handles the POST /simulate request.
func (s *Server) Simulate(w http.ResponseWriter, r *http.Request) {
	var body SimulateRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		slog.Warn("Simulate: Invalid request body", "error", err)
		return
	}

	sys := body.System
	if sys == nil {
		sys = s.System
	}

	campaign, err := s.Sim.Run(r.Context(), sys, body.Config)
	if err != nil {
		var cfgErr *domain.ConfigError
		if errors.As(err, &cfgErr) {
			http.Error(w, fmt.Sprintf("Invalid simulation: %v", err), http.StatusBadRequest)
			slog.Warn("Simulate: Invalid simulation", "error", err)
			return
		}
		http.Error(w, fmt.Sprintf("Simulate error: %v", err), http.StatusInternalServerError)
		slog.Error("Simulate failed", "error", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(campaign); err != nil {
		slog.Error("Simulate response encode failed", "error", err)
	}
}

// StartSessionRequest is the POST /sessions request body. All fields are
// optional; a blank ID gets a generated UUID.
type StartSessionRequest struct {
	ID   string  `json:"id,omitempty"`
	Seed *uint64 `json:"seed,omitempty"`
	Run  *int    `json:"run,omitempty"`
}

// SessionInfo is the wire form of a stepping session's public state.
type SessionInfo struct {
	ID             string    `json:"id"`
	System         string    `json:"system"`
	CreatedAt      time.Time `json:"created_at"`
	Time           float64   `json:"time"`
	Frozen         bool      `json:"frozen"`
	ReachedTargets []string  `json:"reached_targets,omitempty"`
}

func sessionInfo(sess *session.Session) SessionInfo {
	return SessionInfo{
		ID:             sess.ID,
		System:         sess.System,
		CreatedAt:      sess.CreatedAt,
		Time:           sess.Now(),
		Frozen:         sess.Frozen(),
		ReachedTargets: sess.ReachedTargets(),
	}
}

// StartSession handles the POST /sessions request.
func (s *Server) StartSession(w http.ResponseWriter, r *http.Request) {
	var body StartSessionRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			slog.Warn("StartSession: Invalid request body", "error", err)
			return
		}
	}

	var opts []session.StartOption
	if body.ID != "" {
		opts = append(opts, session.WithID(body.ID))
	}
	if body.Seed != nil {
		opts = append(opts, session.WithSeed(*body.Seed))
	}
	if body.Run != nil {
		opts = append(opts, session.WithRun(*body.Run))
	}

	sess, err := s.Sessions.Start(r.Context(), s.System, opts...)
	if err != nil {
		if errors.Is(err, domain.ErrDuplicateName) {
			http.Error(w, fmt.Sprintf("Session conflict: %v", err), http.StatusConflict)
			return
		}
		var cfgErr *domain.ConfigError
		if errors.As(err, &cfgErr) {
			http.Error(w, fmt.Sprintf("Invalid system: %v", err), http.StatusBadRequest)
			slog.Warn("StartSession: Invalid system", "error", err)
			return
		}
		http.Error(w, fmt.Sprintf("Start error: %v", err), http.StatusInternalServerError)
		slog.Error("StartSession failed", "error", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(sessionInfo(sess)); err != nil {
		slog.Error("StartSession response encode failed", "error", err)
	}
}

// ListSessions handles the GET /sessions request.
func (s *Server) ListSessions(w http.ResponseWriter, r *http.Request) {
	resp := map[string][]string{"sessions": s.Sessions.List(r.Context())}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("ListSessions response encode failed", "error", err)
	}
}

// TransitionsResponse is the GET /sessions/{id}/transitions response body.
type TransitionsResponse struct {
	Session     SessionInfo            `json:"session"`
	Transitions []domain.TransitionRef `json:"transitions"`
}

// GetTransitions handles the GET /sessions/{id}/transitions request.
func (s *Server) GetTransitions(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")

	var resp TransitionsResponse
	err := s.Sessions.With(r.Context(), sessionID, func(ctx context.Context, sess *session.Session) error {
		resp = TransitionsResponse{
			Session:     sessionInfo(sess),
			Transitions: sess.Fireable(),
		}
		return nil
	})
	if err != nil {
		s.writeSessionError(w, "GetTransitions", sessionID, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("GetTransitions response encode failed", "error", err)
	}
}

// StepRequest is the POST /sessions/{id}/step request body. An empty body
// fires the next scheduled transition. Transition forces a specific armed
// transition to fire at the current clock instead. Until advances the clock
// to the given time, firing everything scheduled on the way.
type StepRequest struct {
	Transition string   `json:"transition,omitempty"`
	Until      *float64 `json:"until,omitempty"`
}

// StepResponse is the POST /sessions/{id}/step response body. Fired lists
// the transitions this step fired in order; it is empty when the schedule
// was already exhausted or the clock advance crossed no event.
type StepResponse struct {
	Session SessionInfo              `json:"session"`
	Fired   []domain.FiredTransition `json:"fired"`
}

// Step handles the POST /sessions/{id}/step request.
func (s *Server) Step(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")

	var body StepRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			slog.Warn("Step: Invalid request body", "error", err)
			return
		}
	}
	if body.Transition != "" && body.Until != nil {
		http.Error(w, "Use either transition or until, not both", http.StatusBadRequest)
		return
	}

	var resp StepResponse
	err := s.Sessions.With(r.Context(), sessionID, func(ctx context.Context, sess *session.Session) error {
		fired := []domain.FiredTransition{}

		switch {
		case body.Until != nil:
			var err error
			if fired, err = sess.Advance(ctx, *body.Until); err != nil {
				return err
			}
		case body.Transition != "":
			ft, err := sess.Fire(ctx, body.Transition)
			if err != nil {
				return err
			}
			if ft != nil {
				fired = append(fired, *ft)
			}
		default:
			ft, err := sess.StepForward(ctx)
			if err != nil {
				return err
			}
			if ft != nil {
				fired = append(fired, *ft)
			}
		}

		resp = StepResponse{
			Session: sessionInfo(sess),
			Fired:   fired,
		}
		return nil
	})
	if err != nil {
		s.writeSessionError(w, "Step", sessionID, err)
		return
	}

	for _, fired := range resp.Fired {
		if bytes, err := json.Marshal(fired); err == nil {
			s.Streams.Broadcast(sessionID, string(bytes))
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("Step response encode failed", "error", err)
	}
}

// DeleteSession handles the DELETE /sessions/{id} request.
func (s *Server) DeleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")

	if err := s.Sessions.Close(r.Context(), sessionID); err != nil {
		s.writeSessionError(w, "DeleteSession", sessionID, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// writeSessionError maps session and stepping errors to HTTP statuses.
func (s *Server) writeSessionError(w http.ResponseWriter, op, sessionID string, err error) {
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		http.Error(w, "Session not found", http.StatusNotFound)
	case errors.Is(err, domain.ErrUnknownTransition):
		http.Error(w, fmt.Sprintf("Unknown transition: %v", err), http.StatusNotFound)
	case errors.Is(err, domain.ErrRunFrozen):
		http.Error(w, fmt.Sprintf("Run frozen: %v", err), http.StatusConflict)
	default:
		http.Error(w, fmt.Sprintf("%s error: %v", op, err), http.StatusInternalServerError)
		slog.Error(op+" failed", "session_id", sessionID, "error", err)
	}
}

// StreamManager handles active SSE connections
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan<- string]struct{} // SessionID -> Set of Channels
}

func NewStreamManager() *StreamManager {
	return &StreamManager{
		subscribers: make(map[string]map[chan<- string]struct{}),
	}
}

func (sm *StreamManager) Subscribe(sessionID string) (chan string, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan string, 10)
	if _, ok := sm.subscribers[sessionID]; !ok {
		sm.subscribers[sessionID] = make(map[chan<- string]struct{})
	}
	sm.subscribers[sessionID][ch] = struct{}{}

	return ch, func() {
		sm.mu.Lock()
		defer sm.mu.Unlock()
		if subs, ok := sm.subscribers[sessionID]; ok {
			delete(subs, ch)
			close(ch)
			if len(subs) == 0 {
				delete(sm.subscribers, sessionID)
			}
		}
	}
}

func (sm *StreamManager) Broadcast(sessionID string, msg string) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	slog.Debug("StreamManager: Broadcasting", "session_id", sessionID, "payload_size", len(msg))

	if subs, ok := sm.subscribers[sessionID]; ok {
		for ch := range subs {
			select {
			case ch <- msg:
			default:
				// Drop message if channel is full (slow client)
				slog.Warn("SSE: Client buffer full, dropping message", "session_id", sessionID)
			}
		}
	}
}

// SubscribeEvents handles the GET /sessions/{id}/events request (SSE). Every
// transition fired through the step endpoint is pushed to subscribers of that
// session as a JSON event.
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		slog.Error("SubscribeEvents: Streaming not supported")
		return
	}

	sessionID := chi.URLParam(r, "id")
	if _, err := s.Sessions.Get(r.Context(), sessionID); err != nil {
		s.writeSessionError(w, "SubscribeEvents", sessionID, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	slog.Info("SSE: Subscribing to Session Updates", "session_id", sessionID)

	ch, cancel := s.Streams.Subscribe(sessionID)
	defer cancel()

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			slog.Info("SSE Client Disconnected", "session_id", sessionID)
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}

func init() {
	// Configure default slog to output JSON to stderr
	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	slog.SetDefault(logger)
}
