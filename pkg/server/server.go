// Package server exposes the Session Controller over HTTP: one endpoint
// that accepts a goal and streams the resulting SessionEvents back as
// server-sent events, per SPEC_FULL.md §4.8's [ADD] external surface.
package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/prime-radiant-inc/sprout/pkg/logger"
	"github.com/prime-radiant-inc/sprout/pkg/session"
)

// Server wraps a session.Controller behind an HTTP API.
type Server struct {
	ctrl *session.Controller
	mux  *chi.Mux
}

// New builds a Server that submits every goal to ctrl.
func New(ctrl *session.Controller) *Server {
	s := &Server{ctrl: ctrl, mux: chi.NewRouter()}
	s.mux.Use(middleware.Recoverer)
	s.mux.Use(middleware.Logger)
	s.mux.Post("/sessions", s.handleSubmitGoal)
	return s
}

// ServeHTTP implements http.Handler, routing through chi.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

type submitGoalRequest struct {
	Goal string `json:"goal"`
	// ResumeLogPath, if set, replays a prior session's JSONL event log as
	// history before this goal (see session.Controller.ResumeAndSubmitGoal).
	ResumeLogPath string `json:"resume_log_path,omitempty"`
}

// handleSubmitGoal submits the request body's goal to the Session
// Controller and streams its event bus as SSE, one `data:` line of JSON per
// SessionEvent, until the run completes.
func (s *Server) handleSubmitGoal(w http.ResponseWriter, r *http.Request) {
	var req submitGoalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return
	}
	if req.Goal == "" {
		http.Error(w, "goal is required", http.StatusBadRequest)
		return
	}

	var sess *session.Session
	var err error
	if req.ResumeLogPath != "" {
		sess, err = s.ctrl.ResumeAndSubmitGoal(r.Context(), req.Goal, req.ResumeLogPath)
	} else {
		sess, err = s.ctrl.SubmitGoal(r.Context(), req.Goal)
	}
	if err != nil {
		http.Error(w, fmt.Sprintf("could not start session: %v", err), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	for event := range sess.Events {
		line, err := json.Marshal(event)
		if err != nil {
			logger.Get().Warn("server: marshal event failed", "err", err)
			continue
		}
		if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Kind, line); err != nil {
			return
		}
		flusher.Flush()
	}

	result, runErr := sess.Wait()
	if runErr != nil {
		fmt.Fprintf(w, "event: error\ndata: %s\n\n", errJSON(runErr))
		flusher.Flush()
		return
	}
	resultLine, _ := json.Marshal(result)
	fmt.Fprintf(w, "event: result\ndata: %s\n\n", resultLine)
	flusher.Flush()
}

func errJSON(err error) string {
	data, marshalErr := json.Marshal(map[string]string{"error": err.Error()})
	if marshalErr != nil {
		return `{"error":"unknown"}`
	}
	return string(data)
}
