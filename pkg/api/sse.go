package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/specfoundry/specfoundry/pkg/errors"
	"github.com/specfoundry/specfoundry/pkg/model"
	"github.com/specfoundry/specfoundry/pkg/workflow"
)

// sseDelta is the payload of a "delta" event.
type sseDelta struct {
	Text string `json:"text"`
}

// sseError is the payload of an "error" event.
type sseError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// handleInteractStream runs a generation turn and relays the stream as
// server-sent events: zero or more "delta" events followed by exactly
// one "done" or "error" event. Failures after the stream has started
// cannot change the HTTP status anymore, so they always travel as an
// "error" event.
func (s *Server) handleInteractStream(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "artifactID")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var body interactRequest
	if err := decodeBody(r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeError(w, r, errors.New(errors.ErrCodeInternal, "streaming not supported by connection"))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	opts := workflow.GenerationOptions{Provider: body.Provider, Model: body.Model}
	result, err := s.orch.InteractStream(r.Context(), id, body.Message, opts, func(ev model.StreamEvent) {
		switch ev.Type {
		case model.StreamEventDelta:
			writeSSE(w, flusher, "delta", sseDelta{Text: ev.Delta})
		case model.StreamEventError:
			writeSSE(w, flusher, "error", sseError{
				Code:    string(errors.CodeOf(ev.Err)),
				Message: ev.Err.Error(),
			})
		}
	})
	if err != nil {
		// The terminal error event already went out through the sink.
		return
	}
	writeSSE(w, flusher, "done", result)
}

func writeSSE(w http.ResponseWriter, flusher http.Flusher, event string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
	flusher.Flush()
}
