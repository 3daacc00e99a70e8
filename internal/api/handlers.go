package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/forPelevin/threadreel/internal/domain/captions"
	"github.com/forPelevin/threadreel/internal/domain/narration"
	"github.com/forPelevin/threadreel/internal/domain/subtitles"
	"github.com/forPelevin/threadreel/internal/jobs"
	"github.com/forPelevin/threadreel/internal/log"
	"github.com/forPelevin/threadreel/internal/ports/adapters/reddit"
	"github.com/forPelevin/threadreel/internal/store"
	"github.com/forPelevin/threadreel/internal/types"
	"github.com/forPelevin/threadreel/internal/usecase"
)

type createVideoRequest struct {
	URL         string `json:"url"`
	MaxComments int    `json:"max_comments"`
}

type createNarrationRequest struct {
	Title string `json:"title"`
	Text  string `json:"text"`
}

type createResponse struct {
	VideoID string `json:"video_id"`
	Title   string `json:"title,omitempty"`
	Message string `json:"message"`
}

type videoResponse struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	SourceRef   string          `json:"source_ref,omitempty"`
	Status      types.JobStatus `json:"status"`
	DurationSec float64         `json:"duration_sec,omitempty"`
	VideoURL    string          `json:"video_url,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func toVideoResponse(j types.RenderJob) videoResponse {
	v := videoResponse{
		ID:          j.ID,
		Title:       j.Title,
		SourceRef:   j.SourceRef,
		Status:      j.Status,
		DurationSec: j.DurationSec,
		CreatedAt:   j.CreatedAt,
		UpdatedAt:   j.UpdatedAt,
	}
	if j.Status == types.StatusCompleted && j.OutputPath != "" {
		v.VideoURL = "/videos/" + filepath.Base(j.OutputPath)
	}
	return v
}

func (s *Server) handleCreateVideo(w http.ResponseWriter, r *http.Request) {
	var req createVideoRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.URL == "" {
		writeError(w, http.StatusBadRequest, "InvalidURL", "url is required")
		return
	}
	res, err := s.d.Creator.CreateVideo(r.Context(), usecase.VideoInput{
		OwnerID:     ownerID(r),
		URL:         req.URL,
		MaxComments: req.MaxComments,
	})
	s.respondCreated(w, r, res, err)
}

func (s *Server) handleCreateNarration(w http.ResponseWriter, r *http.Request) {
	var req createNarrationRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := s.d.Creator.CreateFromText(r.Context(), usecase.NarrationInput{
		OwnerID: ownerID(r),
		Title:   req.Title,
		Text:    req.Text,
	})
	s.respondCreated(w, r, res, err)
}

func (s *Server) respondCreated(w http.ResponseWriter, r *http.Request, res usecase.Result, err error) {
	if err != nil {
		s.writeDomainError(w, r, err, res.JobID)
		return
	}
	writeJSON(w, http.StatusAccepted, createResponse{
		VideoID: res.JobID,
		Title:   res.Title,
		Message: "video generation started",
	})
}

func (s *Server) handleListVideos(w http.ResponseWriter, r *http.Request) {
	list, err := s.d.Store.ListJobs(r.Context(), ownerID(r))
	if err != nil {
		s.writeDomainError(w, r, err, "")
		return
	}
	out := make([]videoResponse, 0, len(list))
	for _, j := range list {
		out = append(out, toVideoResponse(j))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetVideo(w http.ResponseWriter, r *http.Request) {
	j, err := s.d.Store.GetJob(r.Context(), chi.URLParam(r, "id"), ownerID(r))
	if err != nil {
		s.writeDomainError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, toVideoResponse(j))
}

// handleSubtitles re-derives the caption track of a completed job from its
// stored narration and duration.
func (s *Server) handleSubtitles(w http.ResponseWriter, r *http.Request) {
	j, err := s.d.Store.GetJob(r.Context(), chi.URLParam(r, "id"), ownerID(r))
	if err != nil {
		s.writeDomainError(w, r, err, "")
		return
	}
	if j.Status != types.StatusCompleted {
		writeError(w, http.StatusConflict, "NotReady", fmt.Sprintf("job is %s", j.Status))
		return
	}
	segs, err := captions.Segment(j.InputText, j.DurationSec, s.cfg.Captions...)
	if err != nil {
		s.writeDomainError(w, r, err, "")
		return
	}
	w.Header().Set("Content-Type", "application/x-subrip; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "video_"+j.ID+".srt"))
	_, _ = w.Write([]byte(subtitles.EncodeSRT(segs)))
}

func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, err error, jobID string) {
	status, code := classify(err)
	if status >= http.StatusInternalServerError {
		logger := log.WithContext(r.Context(), s.logger)
		logger.Error().Err(err).Str(log.FieldJobID, jobID).Msg("request failed")
	}
	body := map[string]string{"error": code, "message": err.Error()}
	if jobID != "" {
		body["video_id"] = jobID
	}
	writeJSON(w, status, body)
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, reddit.ErrInvalidURL):
		return http.StatusBadRequest, "InvalidURL"
	case errors.Is(err, usecase.ErrEmptyNarration):
		return http.StatusBadRequest, "EmptyNarration"
	case errors.Is(err, store.ErrJobNotFound):
		return http.StatusNotFound, "JobNotFound"
	case errors.Is(err, narration.ErrSummarizerUnavailable):
		return http.StatusServiceUnavailable, "SummarizerUnavailable"
	case errors.Is(err, jobs.ErrQueueFull), errors.Is(err, jobs.ErrStopped):
		return http.StatusServiceUnavailable, "QueueUnavailable"
	case errors.Is(err, usecase.ErrUpstream):
		return http.StatusBadGateway, "UpstreamFailed"
	case errors.Is(err, captions.ErrSegmentation):
		return http.StatusUnprocessableEntity, "SegmentationFailed"
	default:
		return http.StatusInternalServerError, "InternalError"
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "InvalidRequest", "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, errCode, msg string) {
	writeJSON(w, code, map[string]string{"error": errCode, "message": msg})
}
