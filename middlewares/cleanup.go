package middlewares

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"shen-meme-go/contract"
)

const (
	tmpCleanupJob     = "shen:tmp-cleanup"
	minCleanupEvery   = time.Minute
	defaultCleanupAge = 24 * time.Hour
)

// tmpCleanupMiddleware removes old meme files on a schedule. It never
// handles messages.
type tmpCleanupMiddleware struct {
	*MiddlewareContext
	spec   string
	maxAge time.Duration
	dir    string
}

func NewTmpCleanupMiddleware(base *MiddlewareContext) Middleware {
	if base.cfg.Shen.CleanupCron == "" {
		return nil
	}
	maxAge := base.cfg.Shen.CleanupMaxAge
	if maxAge <= 0 {
		maxAge = defaultCleanupAge
	}
	return &tmpCleanupMiddleware{
		MiddlewareContext: base,
		spec:              base.cfg.Shen.CleanupCron,
		maxAge:            maxAge,
		dir:               base.cfg.TmpDir(),
	}
}

func (t *tmpCleanupMiddleware) OnMessage(ctx context.Context, msg contract.GenericMessage) bool {
	return false
}

func (t *tmpCleanupMiddleware) Start() error {
	if err := ValidateCronInterval(t.spec, minCleanupEvery); err != nil {
		return err
	}
	if err := t.cron.AddCronJob(tmpCleanupJob, t.spec, t.run); err != nil {
		return err
	}
	next, _ := t.cron.NextRun(tmpCleanupJob)
	logger.Info("Temp cleanup scheduled",
		slog.String("spec", t.spec),
		slog.Duration("maxAge", t.maxAge),
		slog.Time("next", next),
	)
	return nil
}

func (t *tmpCleanupMiddleware) Stop() error {
	t.cron.RemoveCronJob(tmpCleanupJob)
	return nil
}

func (t *tmpCleanupMiddleware) run() {
	removed, err := CleanTmpDir(t.dir, t.maxAge, time.Now())
	if err != nil {
		logger.Error("Temp cleanup failed", slog.String("dir", t.dir), slog.Any("error", err))
		return
	}
	logger.Info("Temp cleanup done", slog.String("dir", t.dir), slog.Int("removed", removed))
}

// CleanTmpDir deletes meme files in dir last modified before now-maxAge.
// A missing dir is not an error.
func CleanTmpDir(dir string, maxAge time.Duration, now time.Time) (int, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	cutoff := now.Add(-maxAge)
	removed := 0
	var errs []error
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if ok, _ := filepath.Match(tmpFilePattern, entry.Name()); !ok {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(dir, entry.Name())); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
			continue
		}
		removed++
	}
	return removed, errors.Join(errs...)
}
