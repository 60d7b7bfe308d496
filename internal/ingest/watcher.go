package ingest

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

type WatchConfig struct {
	Roots       []string // directories to watch (recursive)
	InitialScan bool     // if true, walk roots and emit existing files
	SkipHidden  bool
	Debounce    time.Duration // coalesce rapid write bursts while a file is copied in
	Logger      *slog.Logger
}

// StartWatcher emits statement paths created or changed under the roots until
// ctx is done. Both channels close when the watcher stops.
func StartWatcher(ctx context.Context, cfg WatchConfig) (<-chan string, <-chan error, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if len(cfg.Roots) == 0 {
		return nil, nil, errors.New("no roots provided")
	}
	evCh := make(chan string, 256)
	errCh := make(chan error, 1)

	w, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Error("failed to create fsnotify watcher", "error", err)
		return nil, nil, err
	}

	var initial []string
	addDir := func(root string) error {
		return filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}
			if cfg.SkipHidden && path != root && IsHidden(path) {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if d.IsDir() {
				return w.Add(path)
			}
			if cfg.InitialScan && AllowedExt(filepath.Ext(path)) {
				initial = append(initial, path)
			}
			return nil
		})
	}
	for _, r := range cfg.Roots {
		if err := addDir(r); err != nil {
			logger.Error("failed to add root directory", "root", r, "error", err)
			_ = w.Close()
			return nil, nil, err
		}
	}

	go func() {
		var (
			mu      sync.Mutex
			timer   *time.Timer
			pending = map[string]struct{}{}
			wg      sync.WaitGroup
		)
		defer close(errCh)
		defer close(evCh)
		defer wg.Wait()
		defer func() {
			if err := w.Close(); err != nil {
				logger.Warn("watcher close failed", "error", err)
			}
		}()

		emit := func(p string) {
			select {
			case evCh <- p:
			case <-ctx.Done():
			}
		}
		for _, p := range initial {
			emit(p)
		}

		flush := func() {
			defer wg.Done()
			mu.Lock()
			batch := make([]string, 0, len(pending))
			for p := range pending {
				batch = append(batch, p)
				delete(pending, p)
			}
			mu.Unlock()
			for _, p := range batch {
				emit(p)
			}
		}

		for {
			select {
			case <-ctx.Done():
				mu.Lock()
				if timer != nil && timer.Stop() {
					wg.Done()
				}
				mu.Unlock()
				return
			case e, ok := <-w.Events:
				if !ok {
					return
				}
				if e.Op&fsnotify.Create == fsnotify.Create {
					tryAddDir(w, e.Name, logger)
				}
				if cfg.SkipHidden && IsHidden(e.Name) {
					continue
				}
				if !AllowedExt(filepath.Ext(e.Name)) || e.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
					continue
				}
				mu.Lock()
				pending[e.Name] = struct{}{}
				if timer != nil && timer.Stop() {
					wg.Done()
				}
				wg.Add(1)
				timer = time.AfterFunc(cfg.Debounce, flush)
				mu.Unlock()
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				logger.Error("watcher error", "error", err)
				select {
				case errCh <- err:
				default:
				}
			}
		}
	}()

	return evCh, errCh, nil
}

// tryAddDir watches a directory created after startup; files are ignored.
func tryAddDir(w *fsnotify.Watcher, path string, logger *slog.Logger) {
	st, err := os.Stat(path)
	if err != nil || !st.IsDir() {
		return
	}
	if err := w.Add(path); err != nil {
		logger.Warn("failed to add new directory to watcher", "path", path, "error", err)
	}
}

// Serve feeds every watched path to ing until ctx is done. Already-seen content
// is skipped by the ingestor's hash check.
func Serve(ctx context.Context, ing Ingestor, cfg WatchConfig) error {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	paths, errs, err := StartWatcher(ctx, cfg)
	if err != nil {
		return err
	}
	logger.Info("inbox.watching", "roots", cfg.Roots, "initial_scan", cfg.InitialScan)
	for {
		select {
		case p, ok := <-paths:
			if !ok {
				return ctx.Err()
			}
			r, err := ing.IngestPath(ctx, p)
			if err != nil {
				logger.Warn("inbox.ingest.failed", "path", p, "error", err)
				continue
			}
			logger.Info("inbox.ingested", "path", r.SourcePath, "job_id", r.JobID, "deduplicated", r.Deduplicated)
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			logger.Warn("inbox.watch.error", "error", err)
		}
	}
}
