package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"todoey/internal/repository"
	"todoey/internal/snapshot"
)

// BackupService writes a plist export of the whole store to disk.
type BackupService struct {
	source repository.Exporter
	path   string
	log    *zap.Logger
}

func NewBackupService(source repository.Exporter, path string, log *zap.Logger) *BackupService {
	return &BackupService{source: source, path: path, log: log.Named("backup")}
}

// Run replaces the backup file with the current store contents.
func (s *BackupService) Run(ctx context.Context) error {
	if s.path == "" {
		return fmt.Errorf("backup path is not configured")
	}
	started := time.Now()

	snap, err := s.source.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("export store: %w", err)
	}
	if err := snapshot.WriteFile(s.path, snap); err != nil {
		return fmt.Errorf("write backup: %w", err)
	}

	items := 0
	for _, rec := range snap.Categories {
		items += len(rec.Items)
	}
	s.log.Info("backup written",
		zap.String("path", s.path),
		zap.Int("categories", len(snap.Categories)),
		zap.Int("items", items),
		zap.Duration("took", time.Since(started)),
	)
	return nil
}
