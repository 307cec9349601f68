package web

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"mediasync/internal/pipeline"
)

type fakeRunner struct {
	err      error
	batchDir string
	files    []string
}

func (f *fakeRunner) Run(ctx context.Context, batchDir string, hooks pipeline.Hooks) error {
	f.batchDir = batchDir
	entries, _ := os.ReadDir(batchDir)
	for _, e := range entries {
		f.files = append(f.files, e.Name())
	}
	if hooks.OnStage != nil {
		hooks.OnStage("extraction")
	}
	return f.err
}

func newTestServer(t *testing.T, runner Runner) (*Server, *JobManager) {
	t.Helper()
	jm := NewJobManager()
	return NewServer(context.Background(), jm, runner, zap.NewNop()), jm
}

func multipartBody(t *testing.T, names ...string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	for _, name := range names {
		part, err := w.CreateFormFile("files", name)
		if err != nil {
			t.Fatal(err)
		}
		part.Write([]byte("content"))
	}
	w.Close()
	return body, w.FormDataContentType()
}

func waitForStatus(t *testing.T, jm *JobManager, id string, want JobStatus) *Job {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		job, err := jm.GetJob(id)
		if err == nil && job.Status == want {
			return job
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("job %s never reached status %s", id, want)
	return nil
}

func TestIngestRunsPipeline(t *testing.T) {
	runner := &fakeRunner{}
	srv, jm := newTestServer(t, runner)

	body, contentType := multipartBody(t, "My Song.mp3", "clip.mp4")
	req := httptest.NewRequest(http.MethodPost, "/api/ingest", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp JobResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Files) != 2 {
		t.Errorf("accepted %d files, want 2", len(resp.Files))
	}

	waitForStatus(t, jm, resp.ID, StatusCompleted)
	if len(runner.files) != 2 {
		t.Errorf("pipeline saw files %v, want 2", runner.files)
	}
	// Batch directory is removed once the job finishes.
	if _, err := os.Stat(runner.batchDir); !os.IsNotExist(err) {
		t.Error("batch directory not cleaned up")
	}
}

func TestIngestSanitizesFilenames(t *testing.T) {
	runner := &fakeRunner{}
	srv, jm := newTestServer(t, runner)

	body, contentType := multipartBody(t, `bad:name?.mp3`)
	req := httptest.NewRequest(http.MethodPost, "/api/ingest", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	srv.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp JobResponse
	json.NewDecoder(rec.Body).Decode(&resp)
	if resp.Files[0] != "bad_name_.mp3" {
		t.Errorf("stored name = %q, want bad_name_.mp3", resp.Files[0])
	}
	waitForStatus(t, jm, resp.ID, StatusCompleted)
}

func TestIngestRejectsUnsupportedType(t *testing.T) {
	srv, _ := newTestServer(t, &fakeRunner{})

	body, contentType := multipartBody(t, "malware.exe")
	req := httptest.NewRequest(http.MethodPost, "/api/ingest", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	srv.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestIngestRequiresFiles(t *testing.T) {
	srv, _ := newTestServer(t, &fakeRunner{})

	body, contentType := multipartBody(t)
	req := httptest.NewRequest(http.MethodPost, "/api/ingest", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	srv.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestIngestFailedPipelineMarksJobFailed(t *testing.T) {
	runner := &fakeRunner{err: os.ErrPermission}
	srv, jm := newTestServer(t, runner)

	body, contentType := multipartBody(t, "song.mp3")
	req := httptest.NewRequest(http.MethodPost, "/api/ingest", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	srv.Router().ServeHTTP(rec, req)

	var resp JobResponse
	json.NewDecoder(rec.Body).Decode(&resp)
	job := waitForStatus(t, jm, resp.ID, StatusFailed)
	if job.Error == "" {
		t.Error("failed job should carry an error message")
	}
}

func TestGetJob(t *testing.T) {
	srv, jm := newTestServer(t, &fakeRunner{})
	job := jm.CreateJob([]string{"a.mp3"}, filepath.Join(t.TempDir(), "batch"))

	req := httptest.NewRequest(http.MethodGet, "/api/jobs/"+job.ID, nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp JobResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.ID != job.ID || resp.Status != StatusPending {
		t.Errorf("response = %+v", resp)
	}
}

func TestGetJobNotFound(t *testing.T) {
	srv, _ := newTestServer(t, &fakeRunner{})

	req := httptest.NewRequest(http.MethodGet, "/api/jobs/unknown", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}
