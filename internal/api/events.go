package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/lueurxax/sentiment-dashboard/internal/core/domain"
	"github.com/lueurxax/sentiment-dashboard/internal/dashboard"
)

const (
	eventNameState   = "state"
	keepAliveComment = ": keep-alive\n\n"
)

var eventKeepAlive = 15 * time.Second

// stateEvent is the SSE payload. History is left out; clients fetch it
// from /api/results when an analysis finishes.
type stateEvent struct {
	Stats     domain.RunningStats `json:"stats"`
	Badges    []domain.Badge      `json:"badges"`
	Progress  domain.Progress     `json:"progress"`
	Analyzing bool                `json:"analyzing"`
	Results   int                 `json:"results"`
}

func newStateEvent(snap dashboard.Snapshot) stateEvent {
	return stateEvent{
		Stats:     snap.Stats,
		Badges:    snap.Badges,
		Progress:  snap.Progress,
		Analyzing: snap.Analyzing,
		Results:   len(snap.History),
	}
}

// handleEvents streams session state as server-sent events until the client
// goes away.
func (h *Handler) handleEvents(w http.ResponseWriter, r *http.Request) int {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return h.writeError(w, http.StatusInternalServerError, "Streaming is not supported.")
	}

	s, status := h.session(w, r)
	if status != 0 {
		return status
	}

	updates, unsubscribe := s.Subscribe()
	defer unsubscribe()

	hdr := w.Header()
	hdr.Set(contentTypeHeader, "text/event-stream")
	hdr.Set("Cache-Control", "no-cache")
	hdr.Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	if err := writeEvent(w, s.Snapshot()); err != nil {
		return http.StatusOK
	}

	flusher.Flush()

	ticker := time.NewTicker(eventKeepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return http.StatusOK
		case <-ticker.C:
			if _, err := fmt.Fprint(w, keepAliveComment); err != nil {
				return http.StatusOK
			}
		case snap, ok := <-updates:
			if !ok {
				return http.StatusOK
			}

			if err := writeEvent(w, snap); err != nil {
				h.logger.Debug().Err(err).Msg("event stream closed")
				return http.StatusOK
			}
		}

		flusher.Flush()
	}
}

func writeEvent(w http.ResponseWriter, snap dashboard.Snapshot) error {
	data, err := json.Marshal(newStateEvent(snap))
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", eventNameState, data); err != nil {
		return fmt.Errorf("write event: %w", err)
	}

	return nil
}
