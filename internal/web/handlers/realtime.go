package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/property-insights/internal/audit"
	"github.com/property-insights/internal/debug"
)

// DefaultPollInterval is how often the update stream checks for a new run
const DefaultPollInterval = 30 * time.Second

// RealtimeHandler pushes run changes via Server-Sent Events. A new run
// appears whenever the source files change.
type RealtimeHandler struct {
	Source   Source
	Interval time.Duration
}

// UpdateNotification is one event on the stream
type UpdateNotification struct {
	Type      string      `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// RunUpdate announces the run now being served
type RunUpdate struct {
	RunID      string         `json:"run_id"`
	Properties int            `json:"properties"`
	Resolution *audit.Summary `json:"resolution"`
}

// SSEUpdates streams a "run" event on connect and whenever the served run
// changes, with heartbeats in between. The stream ends on the first failed
// write.
func (h *RealtimeHandler) SSEUpdates(w http.ResponseWriter, r *http.Request) {
	if _, ok := w.(http.Flusher); !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	// the server's WriteTimeout covers whole responses, this one is open-ended
	rc := http.NewResponseController(w)
	if err := rc.SetWriteDeadline(time.Time{}); err != nil && !errors.Is(err, http.ErrNotSupported) {
		debug.Warnf("clearing stream write deadline: %v", err)
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	interval := h.Interval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	ctx := r.Context()
	lastRun := ""
	check := func() error {
		snap, err := h.Source.Snapshot(ctx)
		if err != nil {
			return h.sendSSEEvent(w, rc, "error", map[string]string{"error": "dataset unavailable"})
		}
		if snap.Result.RunID == lastRun {
			return h.sendSSEEvent(w, rc, "heartbeat", nil)
		}
		lastRun = snap.Result.RunID
		return h.sendSSEEvent(w, rc, "run", RunUpdate{
			RunID:      snap.Result.RunID,
			Properties: len(snap.Result.Properties),
			Resolution: snap.Result.Report.Resolution,
		})
	}

	if err := check(); err != nil {
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := check(); err != nil {
				return
			}
		}
	}
}

func (h *RealtimeHandler) sendSSEEvent(w http.ResponseWriter, rc *http.ResponseController, eventType string, data interface{}) error {
	payload, err := json.Marshal(UpdateNotification{
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Data:      data,
	})
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", eventType, payload); err != nil {
		return err
	}
	return rc.Flush()
}
