package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"mediasync/internal/catalog"
)

// Outcome is the result of a single staleness-checked upload.
type Outcome int

const (
	Uploaded           Outcome = iota // local was newer, remote overwritten
	UploadedAsNew                     // remote did not exist
	SkippedRemoteNewer                // remote strictly newer, left alone
	Failed                            // transport or filesystem failure
)

func (o Outcome) String() string {
	switch o {
	case Uploaded:
		return "uploaded"
	case UploadedAsNew:
		return "uploaded as new"
	case SkippedRemoteNewer:
		return "skipped, remote newer"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// SyncStats counts outcomes across a directory sync.
type SyncStats struct {
	Uploaded int
	Skipped  int
	Failed   int
}

// Syncer pushes local files and catalogs to a blob store.
type Syncer struct {
	store BlobStore
	log   *zap.Logger
}

// NewSyncer returns a Syncer writing through the given store.
func NewSyncer(store BlobStore, log *zap.Logger) *Syncer {
	return &Syncer{store: store, log: log}
}

// UploadIfNewer uploads localPath under key unless the remote object is
// strictly newer than the local file. A missing remote object uploads
// unconditionally. Transport errors yield Failed with the cause; the caller
// continues with remaining files.
func (s *Syncer) UploadIfNewer(ctx context.Context, localPath, key string) (Outcome, error) {
	info, err := os.Stat(localPath)
	if err != nil {
		return Failed, fmt.Errorf("failed to stat %s: %w", localPath, err)
	}
	localModified := info.ModTime().UTC()

	remoteModified, err := s.store.GetLastModified(ctx, key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			if err := s.store.PutFile(ctx, key, localPath); err != nil {
				return Failed, err
			}
			return UploadedAsNew, nil
		}
		return Failed, err
	}

	if remoteModified.After(localModified) {
		return SkippedRemoteNewer, nil
	}

	if err := s.store.PutFile(ctx, key, localPath); err != nil {
		return Failed, err
	}
	return Uploaded, nil
}

// SyncDir walks every file under localDir and syncs each one to
// prefix+relativePath. One file's failure never blocks the others; the
// stats record how the batch went.
func (s *Syncer) SyncDir(ctx context.Context, localDir, prefix string) (SyncStats, error) {
	var stats SyncStats

	err := filepath.Walk(localDir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return err
		}

		rel, err := filepath.Rel(localDir, path)
		if err != nil {
			return err
		}
		key := prefix + filepath.ToSlash(rel)

		outcome, err := s.UploadIfNewer(ctx, path, key)
		switch outcome {
		case Uploaded, UploadedAsNew:
			stats.Uploaded++
			s.log.Info("synced object", zap.String("key", key), zap.String("outcome", outcome.String()))
		case SkippedRemoteNewer:
			stats.Skipped++
			s.log.Debug("skipped object, remote newer", zap.String("key", key))
		case Failed:
			stats.Failed++
			s.log.Warn("failed to sync object", zap.String("key", key), zap.Error(err))
		}
		return nil
	})
	if err != nil {
		return stats, fmt.Errorf("failed to walk %s: %w", localDir, err)
	}
	return stats, nil
}

// PruneRemote deletes objects under prefix that no longer have a local
// counterpart in localDir. Directory marker keys are left alone. Delete
// failures are logged and skipped.
func (s *Syncer) PruneRemote(ctx context.Context, localDir, prefix string) (int, error) {
	keys, err := s.store.List(ctx, prefix)
	if err != nil {
		return 0, err
	}

	pruned := 0
	for _, key := range keys {
		if strings.HasSuffix(key, "/") {
			continue
		}
		rel := strings.TrimPrefix(key, prefix)
		localPath := filepath.Join(localDir, filepath.FromSlash(rel))
		if _, err := os.Stat(localPath); err == nil {
			continue
		}
		if err := s.store.Delete(ctx, key); err != nil {
			s.log.Warn("failed to prune object", zap.String("key", key), zap.Error(err))
			continue
		}
		pruned++
		s.log.Info("pruned object with no local counterpart", zap.String("key", key))
	}
	return pruned, nil
}

// SyncCatalog reconciles an incoming batch catalog against the remote
// canonical one. The remote catalog is always downloaded (absence counts as
// empty), merged, saved to localPath, and the merged result uploaded
// without a staleness check. The merge output is authoritative.
func (s *Syncer) SyncCatalog(ctx context.Context, incoming *catalog.Catalog, localPath, key string) (catalog.MergeReport, error) {
	var existing *catalog.Catalog

	data, err := s.store.Get(ctx, key)
	switch {
	case errors.Is(err, ErrNotFound):
		existing = catalog.New()
	case err != nil:
		return catalog.MergeReport{}, err
	default:
		existing, err = catalog.Parse(data)
		if err != nil {
			return catalog.MergeReport{}, fmt.Errorf("remote catalog %s: %w", key, err)
		}
	}

	merged, report := catalog.Merge(existing, incoming)
	if report.DuplicateIDs > 0 {
		s.log.Warn("incoming batch carries duplicate ids",
			zap.String("catalog", key),
			zap.Int("duplicates", report.DuplicateIDs))
	}

	if err := merged.Save(localPath); err != nil {
		return report, err
	}

	encoded, err := merged.Encode()
	if err != nil {
		return report, err
	}
	if err := s.store.Put(ctx, key, encoded); err != nil {
		return report, err
	}

	s.log.Info("catalog merged and uploaded",
		zap.String("catalog", key),
		zap.Int("replaced", report.Replaced),
		zap.Int("added", report.Added),
		zap.Int("entries", merged.Len()))
	return report, nil
}
