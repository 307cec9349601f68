package tempo

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// LedgerFile records which files have already been analyzed, so repeated
// runs over the same directory skip the expensive inference calls.
const LedgerFile = "processed_files.json"

var audioExtensions = map[string]bool{
	".mp3":  true,
	".m4a":  true,
	".flac": true,
	".wav":  true,
}

// Sidecar is the transient per-file artifact carrying the detected tempo.
// Extraction consumes it once and deletes it.
type Sidecar struct {
	BPM float64 `json:"bpm"`
}

// SidecarPath returns the sidecar location for an audio file path.
func SidecarPath(audioPath string) string {
	ext := filepath.Ext(audioPath)
	return strings.TrimSuffix(audioPath, ext) + "_bpm.json"
}

// ReadSidecar loads and deletes the sidecar for audioPath. A missing
// sidecar returns (nil, nil): tempo detection simply didn't run or failed
// for that file.
func ReadSidecar(audioPath string) (*Sidecar, error) {
	path := SidecarPath(audioPath)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read sidecar %s: %w", path, err)
	}

	var sc Sidecar
	if err := json.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("failed to parse sidecar %s: %w", path, err)
	}

	// One-shot consumption.
	if err := os.Remove(path); err != nil {
		return nil, fmt.Errorf("failed to remove sidecar %s: %w", path, err)
	}
	return &sc, nil
}

// Stats summarizes one analysis pass.
type Stats struct {
	Analyzed int
	Skipped  int
	Failed   int
}

// Analyzer runs tempo detection across a directory on a bounded worker
// pool and writes one sidecar per successful file.
type Analyzer struct {
	detector Detector
	workers  int
	log      *zap.Logger
}

// NewAnalyzer builds an analyzer with the given pool size; sizes below one
// fall back to a single worker.
func NewAnalyzer(detector Detector, workers int, log *zap.Logger) *Analyzer {
	if workers < 1 {
		workers = 1
	}
	return &Analyzer{detector: detector, workers: workers, log: log}
}

type result struct {
	file string
	err  error
}

// Run analyzes every audio file directly under dir that the ledger has not
// seen yet. Inference failures are logged and skipped; the batch always
// completes. The ledger is owned by the collecting goroutine alone, so no
// lock guards it; results funnel through a single channel and are
// reconciled after all workers join.
func (a *Analyzer) Run(ctx context.Context, dir string) (Stats, error) {
	var stats Stats

	entries, err := os.ReadDir(dir)
	if err != nil {
		return stats, fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	ledger, err := loadLedger(filepath.Join(dir, LedgerFile))
	if err != nil {
		return stats, err
	}

	var pending []string
	for _, entry := range entries {
		if entry.IsDir() || !audioExtensions[strings.ToLower(filepath.Ext(entry.Name()))] {
			continue
		}
		if ledger[entry.Name()] {
			stats.Skipped++
			a.log.Debug("skipping already analyzed file", zap.String("file", entry.Name()))
			continue
		}
		pending = append(pending, entry.Name())
	}

	if len(pending) == 0 {
		return stats, nil
	}
	a.log.Info("starting tempo analysis",
		zap.Int("files", len(pending)), zap.Int("workers", a.workers))

	jobs := make(chan string)
	results := make(chan result)

	var wg sync.WaitGroup
	for i := 0; i < a.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for name := range jobs {
				results <- result{file: name, err: a.analyzeOne(ctx, dir, name)}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, name := range pending {
			select {
			case jobs <- name:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	changed := false
	for res := range results {
		if res.err != nil {
			stats.Failed++
			a.log.Warn("tempo analysis failed", zap.String("file", res.file), zap.Error(res.err))
			continue
		}
		stats.Analyzed++
		ledger[res.file] = true
		changed = true
	}

	if changed {
		if err := saveLedger(filepath.Join(dir, LedgerFile), ledger); err != nil {
			return stats, err
		}
	}
	return stats, nil
}

func (a *Analyzer) analyzeOne(ctx context.Context, dir, name string) error {
	path := filepath.Join(dir, name)
	bpm, err := a.detector.DetermineTempo(ctx, path)
	if err != nil {
		return err
	}

	data, err := json.Marshal(Sidecar{BPM: bpm})
	if err != nil {
		return err
	}
	if err := os.WriteFile(SidecarPath(path), data, 0644); err != nil {
		return fmt.Errorf("failed to write sidecar: %w", err)
	}

	a.log.Debug("detected tempo", zap.String("file", name), zap.Float64("bpm", bpm))
	return nil
}

func loadLedger(path string) (map[string]bool, error) {
	ledger := make(map[string]bool)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return ledger, nil
		}
		return nil, fmt.Errorf("failed to read ledger %s: %w", path, err)
	}
	if err := json.Unmarshal(data, &ledger); err != nil {
		return nil, fmt.Errorf("failed to parse ledger %s: %w", path, err)
	}
	return ledger, nil
}

func saveLedger(path string, ledger map[string]bool) error {
	data, err := json.MarshalIndent(ledger, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write ledger %s: %w", path, err)
	}
	return nil
}
