package api

import (
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/banshee-data/objtrack/internal/httputil"
	"github.com/banshee-data/objtrack/internal/tracker"
)

// TrackSummary is the list view of one identity.
type TrackSummary struct {
	ID             int64         `json:"objectid"`
	Centroid       tracker.Point `json:"centroid"`
	LastBox        tracker.Box   `json:"last_box"`
	HistoryLength  int           `json:"history_length"`
	FirstSeenFrame uint64        `json:"first_seen_frame"`
	LastSeenFrame  uint64        `json:"last_seen_frame"`
}

func summarise(obj tracker.TrackedObject) TrackSummary {
	return TrackSummary{
		ID:             obj.ID,
		Centroid:       obj.Centroid,
		LastBox:        obj.LastBox(),
		HistoryLength:  len(obj.History),
		FirstSeenFrame: obj.FirstSeenFrame,
		LastSeenFrame:  obj.LastSeenFrame,
	}
}

func (s *Server) listTracks(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w, http.MethodGet)
		return
	}
	snap := s.tracker.Snapshot()
	out := make([]TrackSummary, 0, len(snap))
	for _, obj := range snap {
		out = append(out, summarise(obj))
	}
	httputil.WriteJSONOK(w, out)
}

func (s *Server) showTrack(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w, http.MethodGet)
		return
	}
	raw := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/tracks/"), "/")
	if raw == "" {
		s.listTracks(w, r)
		return
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 0 {
		httputil.BadRequest(w, fmt.Sprintf("invalid object id %q", raw))
		return
	}
	obj, ok := s.tracker.Track(id)
	if !ok {
		httputil.NotFound(w, fmt.Sprintf("object %d is not tracked", id))
		return
	}
	httputil.WriteJSONOK(w, obj)
}

func (s *Server) showStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w, http.MethodGet)
		return
	}
	stats := s.tracker.Stats()
	cfg := s.tracker.Config()
	httputil.WriteJSONOK(w, map[string]interface{}{
		"tracker":            stats,
		"match_threshold":    cfg.MatchThreshold,
		"max_missed_frames":  cfg.MaxMissedFrames,
		"dropped_detections": s.pipeline.Dropped(),
	})
}

func (s *Server) listFrames(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w, http.MethodGet)
		return
	}
	if s.recorder == nil {
		httputil.NotFound(w, "frame recording is disabled")
		return
	}

	limit := s.frameLogLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			httputil.BadRequest(w, fmt.Sprintf("invalid limit %q", v))
			return
		}
		limit = n
	}
	if limit > maxFrameLogLimit {
		limit = maxFrameLogLimit
	}

	frames, err := s.recorder.RecentFrames(r.Context(), limit)
	if err != nil {
		log.Printf("failed to read frame log: %v", err)
		httputil.InternalServerError(w, "failed to read frame log")
		return
	}
	httputil.WriteJSONOK(w, frames)
}
