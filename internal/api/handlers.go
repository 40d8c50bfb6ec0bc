package api

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/banshee-data/objtrack/internal/db"
	"github.com/banshee-data/objtrack/internal/httputil"
	"github.com/banshee-data/objtrack/internal/inference"
	"github.com/banshee-data/objtrack/internal/tracker"
	"github.com/banshee-data/objtrack/internal/version"
)

// uploadField is the multipart field carrying the frame.
const uploadField = "image"

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w, http.MethodGet)
		return
	}
	httputil.WriteJSONOK(w, map[string]string{
		"status":  "OK",
		"version": version.Version,
	})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w, http.MethodGet, http.MethodPost)
		return
	}
	cleared := s.tracker.ResetAll()
	if s.recorder != nil {
		if err := s.recorder.RecordReset(r.Context(), cleared); err != nil {
			log.Printf("failed to log tracker reset: %v", err)
		}
	}
	httputil.WriteJSONOK(w, map[string]interface{}{
		"status":  "reset",
		"cleared": cleared,
	})
}

// handleFile runs one uploaded frame through detection, classification and
// the tracker and answers with one record per kept box.
func (s *Server) handleFile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w, http.MethodPost)
		return
	}
	start := s.clock.Now()

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httputil.RequestTooLarge(w, fmt.Sprintf("upload exceeds %d bytes", s.maxUploadBytes))
			return
		}
		httputil.BadRequest(w, fmt.Sprintf("invalid multipart form: %v", err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, _, err := r.FormFile(uploadField)
	if err != nil {
		httputil.BadRequest(w, fmt.Sprintf("missing form field %q", uploadField))
		return
	}
	defer file.Close()

	img, err := inference.DecodeImage(file)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}

	res, err := s.pipeline.Run(r.Context(), img)
	if err != nil {
		s.writeInferenceError(w, err)
		return
	}

	records, seq := s.tracker.ProcessFrameSeq(res.Observations)

	if s.recorder != nil {
		frame := &db.Frame{
			Seq:        seq,
			Width:      img.Bounds().Dx(),
			Height:     img.Bounds().Dy(),
			Dropped:    res.Dropped,
			DurationMS: float64(s.clock.Since(start).Nanoseconds()) / 1e6,
			RecordedAt: s.clock.Now(),
			Records:    frameRecords(records, res.Detections),
		}
		// Recording runs detached from the request so a client hanging up
		// does not lose the frame.
		if err := s.recorder.RecordFrame(context.WithoutCancel(r.Context()), frame); err != nil {
			log.Printf("failed to record frame %d: %v", seq, err)
		}
	}

	httputil.WriteJSONOK(w, records)
}

func (s *Server) writeInferenceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, inference.ErrUpstream):
		log.Printf("upstream model server failed: %v", err)
		httputil.BadGateway(w, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		httputil.WriteJSONError(w, http.StatusGatewayTimeout, err.Error())
	default:
		log.Printf("inference failed: %v", err)
		httputil.InternalServerError(w, "inference failed")
	}
}

func frameRecords(records []tracker.Record, dets []inference.Detection) []db.FrameRecord {
	out := make([]db.FrameRecord, len(records))
	for i, rec := range records {
		out[i] = db.FrameRecord{
			ObjectID:  rec.Identity,
			ClassName: rec.Label,
			Left:      rec.Left,
			Top:       rec.Top,
			Right:     rec.Right,
			Bottom:    rec.Bottom,
			Matched:   rec.Matched,
		}
		if i < len(dets) {
			out[i].Score = dets[i].Score
		}
	}
	return out
}
