package jobs

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
)

// UploadFilePrefix marks spool files written by the upload handler.
const UploadFilePrefix = "upload-"

// UploadSweeper removes spooled upload files older than a TTL. Files left
// behind by an interrupted request are reclaimed on the next run.
type UploadSweeper struct {
	dir string
	ttl time.Duration
	log *zap.Logger
	now func() time.Time
}

// NewUploadSweeper creates a sweeper over dir.
func NewUploadSweeper(dir string, ttl time.Duration, log *zap.Logger) *UploadSweeper {
	if log == nil {
		log = zap.NewNop()
	}
	return &UploadSweeper{dir: dir, ttl: ttl, log: log, now: time.Now}
}

// ProcessJobs deletes expired spool files. A missing directory is not an error.
func (s *UploadSweeper) ProcessJobs(ctx context.Context) error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read upload dir: %w", err)
	}

	cutoff := s.now().Add(-s.ttl)
	var errs []error
	removed := 0
	for _, e := range entries {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !e.Type().IsRegular() || !strings.HasPrefix(e.Name(), UploadFilePrefix) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, e.Name())); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
			continue
		}
		removed++
	}

	if removed > 0 {
		s.log.Info("expired uploads removed", zap.Int("count", removed))
	}
	return errors.Join(errs...)
}
