package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"runtime/debug"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/richinsley/tryon2go/client"
	"github.com/richinsley/tryon2go/tryon"
)

// MsgJobRunning is returned while every in-flight slot is taken.
const MsgJobRunning = "A try-on is already running. Please wait for it to finish."

type errorResponse struct {
	Error string `json:"error"`
}

type submitResponse struct {
	JobID uuid.UUID `json:"job_id"`
}

type optionChoice struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

type optionsResponse struct {
	Defaults          tryon.Options  `json:"defaults"`
	Categories        []optionChoice `json:"categories"`
	GarmentPhotoTypes []optionChoice `json:"garment_photo_types"`
	GuidanceScale     [2]float64     `json:"guidance_scale_range"`
	Timesteps         [2]int         `json:"timesteps_range"`
	NumSamples        [2]int         `json:"num_samples_range"`
	MaxUploadBytes    int64          `json:"max_upload_bytes"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Encoding response failed", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleOptions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, buildOptionsResponse(s.cfg.Server.MaxUploadBytes))
}

func buildOptionsResponse(maxUpload int64) optionsResponse {
	resp := optionsResponse{
		Defaults:       tryon.DefaultOptions(),
		GuidanceScale:  [2]float64{tryon.MinGuidanceScale, tryon.MaxGuidanceScale},
		Timesteps:      [2]int{tryon.MinTimesteps, tryon.MaxTimesteps},
		NumSamples:     [2]int{tryon.MinNumSamples, tryon.MaxNumSamples},
		MaxUploadBytes: maxUpload,
	}
	for _, c := range tryon.Categories {
		resp.Categories = append(resp.Categories, optionChoice{Value: string(c), Label: c.Label()})
	}
	for _, t := range tryon.GarmentPhotoTypes {
		resp.GarmentPhotoTypes = append(resp.GarmentPhotoTypes, optionChoice{Value: string(t), Label: t.Label()})
	}
	return resp
}

func (s *Server) handleTryOn(w http.ResponseWriter, r *http.Request) {
	if !s.limiter.Allow() {
		SubmissionsRejected.WithLabelValues("rate_limited").Inc()
		writeError(w, http.StatusTooManyRequests, tryon.MsgRateLimited)
		return
	}

	// two images plus form fields
	maxBody := 2*s.cfg.Server.MaxUploadBytes + 1<<20
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			SubmissionsRejected.WithLabelValues("too_large").Inc()
			writeError(w, http.StatusRequestEntityTooLarge, tryon.MsgBadDimensions)
			return
		}
		SubmissionsRejected.WithLabelValues("invalid").Inc()
		writeError(w, http.StatusBadRequest, "Invalid upload: "+err.Error())
		return
	}
	defer r.MultipartForm.RemoveAll()

	model, err := s.formImage(r.MultipartForm, "model_image")
	if err == nil && model == nil {
		err = tryon.ErrMissingImages
	}
	var garment *tryon.ImageFile
	if err == nil {
		garment, err = s.formImage(r.MultipartForm, "garment_image")
		if err == nil && garment == nil {
			err = tryon.ErrMissingImages
		}
	}
	if err != nil {
		SubmissionsRejected.WithLabelValues("invalid").Inc()
		writeError(w, http.StatusBadRequest, tryon.UserMessage(err))
		return
	}

	opts, err := tryon.OptionsFromValues(r.PostForm)
	if err != nil {
		SubmissionsRejected.WithLabelValues("invalid").Inc()
		writeError(w, http.StatusBadRequest, tryon.UserMessage(err))
		return
	}

	select {
	case s.inflight <- struct{}{}:
	default:
		SubmissionsRejected.WithLabelValues("busy").Inc()
		writeError(w, http.StatusTooManyRequests, MsgJobRunning)
		return
	}

	job := s.jobs.Create()
	slog.Info("Try-on job accepted", "job_id", job.ID, "category", opts.Category, "num_samples", opts.NumSamples)
	go s.runJob(job.ID, model, garment, opts)

	writeJSON(w, http.StatusAccepted, submitResponse{JobID: job.ID})
}

// formImage returns nil without error when the field is absent.
func (s *Server) formImage(form *multipart.Form, field string) (*tryon.ImageFile, error) {
	headers := form.File[field]
	if len(headers) == 0 {
		return nil, nil
	}
	fh := headers[0]
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return tryon.NewImageFile(fh.Filename, f, s.cfg.Server.MaxUploadBytes)
}

func (s *Server) runJob(id uuid.UUID, model, garment *tryon.ImageFile, opts tryon.Options) {
	JobsInFlight.Inc()
	defer func() {
		JobsInFlight.Dec()
		<-s.inflight
	}()
	defer func() {
		if p := recover(); p != nil {
			err := fmt.Errorf("try-on runner panicked: %v", p)
			slog.Error("Try-on job panicked", "job_id", id, "error", err, "stack", string(debug.Stack()))
			JobsTotal.WithLabelValues("failed").Inc()
			s.reportFailure(id, err)
			s.jobs.Fail(id, tryon.MsgGeneric)
		}
	}()

	ctx, cancel := context.WithTimeout(s.baseCtx, s.cfg.Fal.Timeout)
	defer cancel()

	start := s.clock.Now()
	result, err := s.runner.TryOn(ctx, model, garment, opts, func(progress string) {
		s.jobs.SetProgress(id, progress)
	})
	JobDuration.Observe(s.clock.Since(start).Seconds())

	if err != nil {
		slog.Error("Try-on job failed", "job_id", id, "error", err)
		JobsTotal.WithLabelValues("failed").Inc()
		s.reportFailure(id, err)
		s.jobs.Fail(id, tryon.UserMessage(err))
		return
	}

	JobsTotal.WithLabelValues("succeeded").Inc()
	slog.Info("Try-on job completed", "job_id", id, "request_id", result.RequestID, "results", len(result.URLs))
	s.jobs.Succeed(id, result, client.ProgressCompleted)
}

func (s *Server) jobID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid job id")
		return uuid.Nil, false
	}
	return id, true
}

func (s *Server) handleJob(w http.ResponseWriter, r *http.Request) {
	id, ok := s.jobID(w, r)
	if !ok {
		return
	}
	job, ok := s.jobs.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	writeJSON(w, http.StatusOK, job)
}
