package tempo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestClientDetermineTempo(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/tempo" || r.Method != http.MethodPost {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if _, _, err := r.FormFile("file"); err != nil {
			t.Errorf("missing file part: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]float64{"bpm": 128.4})
	}))
	defer server.Close()

	path := filepath.Join(t.TempDir(), "song.mp3")
	if err := os.WriteFile(path, []byte("audio"), 0644); err != nil {
		t.Fatal(err)
	}

	client := NewClient(server.URL, 5*time.Second)
	bpm, err := client.DetermineTempo(context.Background(), path)
	if err != nil {
		t.Fatalf("DetermineTempo failed: %v", err)
	}
	if bpm != 128.4 {
		t.Errorf("bpm = %v, want 128.4", bpm)
	}
}

func TestClientServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model failure", http.StatusInternalServerError)
	}))
	defer server.Close()

	path := filepath.Join(t.TempDir(), "song.mp3")
	os.WriteFile(path, []byte("audio"), 0644)

	client := NewClient(server.URL, 5*time.Second)
	_, err := client.DetermineTempo(context.Background(), path)
	if !errors.Is(err, ErrInference) {
		t.Errorf("err = %v, want ErrInference", err)
	}
}

func TestSidecarRoundTrip(t *testing.T) {
	dir := t.TempDir()
	audio := filepath.Join(dir, "song.mp3")

	sidecarPath := SidecarPath(audio)
	if want := filepath.Join(dir, "song_bpm.json"); sidecarPath != want {
		t.Fatalf("SidecarPath = %q, want %q", sidecarPath, want)
	}

	if err := os.WriteFile(sidecarPath, []byte(`{"bpm": 128.4}`), 0644); err != nil {
		t.Fatal(err)
	}

	sc, err := ReadSidecar(audio)
	if err != nil {
		t.Fatalf("ReadSidecar failed: %v", err)
	}
	if sc == nil || sc.BPM != 128.4 {
		t.Errorf("sidecar = %+v, want bpm 128.4", sc)
	}

	// One-shot consumption: the sidecar must be gone.
	if _, err := os.Stat(sidecarPath); !os.IsNotExist(err) {
		t.Error("sidecar still exists after consumption")
	}

	// A second read finds nothing, without error.
	sc, err = ReadSidecar(audio)
	if err != nil || sc != nil {
		t.Errorf("second ReadSidecar = (%+v, %v), want (nil, nil)", sc, err)
	}
}

// fakeDetector returns a fixed bpm per file and can fail on demand.
type fakeDetector struct {
	mu    sync.Mutex
	calls []string
	fail  map[string]bool
}

func (f *fakeDetector) DetermineTempo(_ context.Context, path string) (float64, error) {
	f.mu.Lock()
	f.calls = append(f.calls, filepath.Base(path))
	f.mu.Unlock()
	if f.fail[filepath.Base(path)] {
		return 0, fmt.Errorf("%w: decode error", ErrInference)
	}
	return 120, nil
}

func TestAnalyzerRun(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.mp3", "b.flac", "broken.mp3", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	det := &fakeDetector{fail: map[string]bool{"broken.mp3": true}}
	analyzer := NewAnalyzer(det, 4, zap.NewNop())

	stats, err := analyzer.Run(context.Background(), dir)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if stats.Analyzed != 2 || stats.Failed != 1 || stats.Skipped != 0 {
		t.Errorf("stats = %+v, want 2 analyzed, 1 failed", stats)
	}

	// Sidecars only for successes, never for non-audio files.
	for _, name := range []string{"a_bpm.json", "b_bpm.json"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("missing sidecar %s", name)
		}
	}
	if _, err := os.Stat(filepath.Join(dir, "broken_bpm.json")); !os.IsNotExist(err) {
		t.Error("sidecar written for failed file")
	}

	// Ledger persisted with the successes.
	ledger, err := loadLedger(filepath.Join(dir, LedgerFile))
	if err != nil {
		t.Fatal(err)
	}
	if !ledger["a.mp3"] || !ledger["b.flac"] || ledger["broken.mp3"] {
		t.Errorf("ledger = %v", ledger)
	}
}

func TestAnalyzerSkipsLedgeredFiles(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "a.mp3"), []byte("x"), 0644)
	os.WriteFile(filepath.Join(dir, "b.mp3"), []byte("x"), 0644)
	os.WriteFile(filepath.Join(dir, LedgerFile), []byte(`{"a.mp3": true}`), 0644)

	det := &fakeDetector{}
	analyzer := NewAnalyzer(det, 2, zap.NewNop())

	stats, err := analyzer.Run(context.Background(), dir)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if stats.Skipped != 1 || stats.Analyzed != 1 {
		t.Errorf("stats = %+v, want 1 skipped 1 analyzed", stats)
	}
	if len(det.calls) != 1 || det.calls[0] != "b.mp3" {
		t.Errorf("detector calls = %v, want just b.mp3", det.calls)
	}
}

func TestAnalyzerEmptyDir(t *testing.T) {
	analyzer := NewAnalyzer(&fakeDetector{}, 2, zap.NewNop())
	stats, err := analyzer.Run(context.Background(), t.TempDir())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if stats != (Stats{}) {
		t.Errorf("stats = %+v, want zero", stats)
	}
}
