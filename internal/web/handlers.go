package web

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"mediasync/internal/catalog"
	"mediasync/internal/pipeline"
	"mediasync/pkg/utils"
)

// maxUploadMemory bounds how much of a multipart body is held in memory;
// larger parts spill to disk.
const maxUploadMemory = 32 << 20

var allowedExtensions = map[string]bool{
	".mp3":  true,
	".m4a":  true,
	".flac": true,
	".wav":  true,
	".mp4":  true,
}

type JobResponse struct {
	ID          string    `json:"id"`
	Files       []string  `json:"files"`
	Status      JobStatus `json:"status"`
	Stage       string    `json:"stage,omitempty"`
	StageIndex  int       `json:"stage_index"`
	StageCount  int       `json:"stage_count"`
	Warnings    []string  `json:"warnings,omitempty"`
	Error       string    `json:"error,omitempty"`
	CreatedAt   string    `json:"created_at"`
	StartedAt   *string   `json:"started_at,omitempty"`
	CompletedAt *string   `json:"completed_at,omitempty"`
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		http.Error(w, "Invalid multipart body", http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	parts := r.MultipartForm.File["files"]
	if len(parts) == 0 {
		http.Error(w, "At least one file is required", http.StatusBadRequest)
		return
	}

	batchDir, err := utils.CreateTempDir()
	if err != nil {
		s.logger.Error("failed to create batch directory", zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	var names []string
	for _, part := range parts {
		name, err := s.saveUpload(part, batchDir)
		if err != nil {
			utils.Cleanup(batchDir)
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		names = append(names, name)
	}

	job := s.jobMgr.CreateJob(names, batchDir)
	s.logger.Info("created ingestion job",
		zap.String("job_id", job.ID), zap.Int("files", len(names)))

	// Start the pipeline in the background
	go s.processJob(job)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(s.jobToResponse(job))
}

// saveUpload writes one uploaded part into the batch directory under a
// sanitized base name. The client-supplied path is never trusted.
func (s *Server) saveUpload(part *multipart.FileHeader, batchDir string) (string, error) {
	ext := strings.ToLower(filepath.Ext(part.Filename))
	if !allowedExtensions[ext] {
		return "", fmt.Errorf("unsupported file type: %s", part.Filename)
	}

	base := filepath.Base(part.Filename)
	name := catalog.Sanitize(strings.TrimSuffix(base, filepath.Ext(base))) + ext
	if name == ext {
		return "", fmt.Errorf("invalid file name: %s", part.Filename)
	}

	src, err := part.Open()
	if err != nil {
		return "", fmt.Errorf("failed to read upload %s: %w", part.Filename, err)
	}
	defer src.Close()

	dst, err := os.Create(filepath.Join(batchDir, name))
	if err != nil {
		return "", fmt.Errorf("failed to store upload %s: %w", name, err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return "", fmt.Errorf("failed to store upload %s: %w", name, err)
	}
	return name, nil
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	jobs := s.jobMgr.ListJobs()
	responses := make([]*JobResponse, len(jobs))
	for i, job := range jobs {
		responses[i] = s.jobToResponse(job)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(responses)
}

func (s *Server) handleJobAction(w http.ResponseWriter, r *http.Request) {
	// Extract job ID from path: /api/jobs/{id} or /api/jobs/{id}/cancel
	path := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
	parts := strings.Split(path, "/")
	if len(parts) == 0 || parts[0] == "" {
		http.Error(w, "Job ID required", http.StatusBadRequest)
		return
	}

	jobID := parts[0]

	// Handle GET /api/jobs/{id}
	if r.Method == http.MethodGet && len(parts) == 1 {
		job, err := s.jobMgr.GetJob(jobID)
		if err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(s.jobToResponse(job))
		return
	}

	// Handle POST /api/jobs/{id}/cancel
	if r.Method == http.MethodPost && len(parts) == 2 && parts[1] == "cancel" {
		job, err := s.jobMgr.GetJob(jobID)
		if err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}

		if job.Cancel != nil {
			job.Cancel()
		}

		s.jobMgr.UpdateJob(jobID, func(j *Job) {
			j.Status = StatusCancelled
		})

		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{"status": "cancelled"})
		return
	}

	http.Error(w, "Invalid request", http.StatusBadRequest)
}

func (s *Server) processJob(job *Job) {
	ctx, cancel := context.WithCancel(s.ctx)
	defer cancel()
	defer utils.Cleanup(job.BatchDir)

	s.jobMgr.UpdateJob(job.ID, func(j *Job) {
		j.Cancel = cancel
		j.Status = StatusRunning
		j.StageCount = pipeline.StageCount
	})

	s.logger.Info("starting ingestion job", zap.String("job_id", job.ID))

	hooks := pipeline.Hooks{
		OnStage: func(name string) {
			s.jobMgr.UpdateJob(job.ID, func(j *Job) {
				j.Stage = name
				j.StageIndex++
			})
		},
		OnWarning: func(msg string) {
			s.jobMgr.UpdateJob(job.ID, func(j *Job) {
				j.Warnings = append(j.Warnings, msg)
			})
		},
	}

	if err := s.pipe.Run(ctx, job.BatchDir, hooks); err != nil {
		s.logger.Error("ingestion job failed",
			zap.String("job_id", job.ID), zap.Error(err))
		s.jobMgr.UpdateJob(job.ID, func(j *Job) {
			if j.Status != StatusCancelled {
				j.Status = StatusFailed
				j.Error = err.Error()
			}
		})
		return
	}

	s.jobMgr.UpdateJob(job.ID, func(j *Job) {
		if j.Status != StatusCancelled {
			j.Status = StatusCompleted
		}
	})

	s.logger.Info("ingestion job completed", zap.String("job_id", job.ID))
}

func (s *Server) jobToResponse(job *Job) *JobResponse {
	resp := &JobResponse{
		ID:         job.ID,
		Files:      job.Files,
		Status:     job.Status,
		Stage:      job.Stage,
		StageIndex: job.StageIndex,
		StageCount: job.StageCount,
		Warnings:   job.Warnings,
		Error:      job.Error,
		CreatedAt:  job.CreatedAt.Format("2006-01-02 15:04:05"),
	}

	if job.StartedAt != nil {
		started := job.StartedAt.Format("2006-01-02 15:04:05")
		resp.StartedAt = &started
	}

	if job.CompletedAt != nil {
		completed := job.CompletedAt.Format("2006-01-02 15:04:05")
		resp.CompletedAt = &completed
	}

	return resp
}
