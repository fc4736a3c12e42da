package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// WatchConfig configures the archive inbox watcher.
type WatchConfig struct {
	Dir         string        // directory to watch (not recursive)
	InitialScan bool          // emit archives already present at start
	Debounce    time.Duration // wait for writes to settle before emitting
}

// WatchInbox emits the path of every .zip archive created or written in the
// inbox directory. Channels are closed when ctx ends.
func WatchInbox(ctx context.Context, cfg WatchConfig, logger *zap.Logger) (<-chan string, <-chan error, error) {
	if strings.TrimSpace(cfg.Dir) == "" {
		return nil, nil, errors.New("inbox directory is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Error("ingest.watch.create_failed", zap.Error(err))
		return nil, nil, err
	}
	if err := w.Add(cfg.Dir); err != nil {
		logger.Error("ingest.watch.add_failed", zap.String("dir", cfg.Dir), zap.Error(err))
		_ = w.Close()
		return nil, nil, err
	}

	evCh := make(chan string, 64)
	errCh := make(chan error, 1)

	var initial []string
	if cfg.InitialScan {
		dirEntries, err := os.ReadDir(cfg.Dir)
		if err != nil {
			_ = w.Close()
			return nil, nil, err
		}
		for _, de := range dirEntries {
			if !de.IsDir() && isArchive(de.Name()) {
				initial = append(initial, filepath.Join(cfg.Dir, de.Name()))
			}
		}
	}

	go func() {
		defer close(evCh)
		defer close(errCh)
		defer func() {
			if err := w.Close(); err != nil {
				logger.Warn("ingest.watch.close_failed", zap.Error(err))
			}
		}()

		for _, p := range initial {
			select {
			case evCh <- p:
			case <-ctx.Done():
				return
			}
		}

		pending := map[string]time.Time{}
		var tick <-chan time.Time
		if cfg.Debounce > 0 {
			ticker := time.NewTicker(cfg.Debounce)
			defer ticker.Stop()
			tick = ticker.C
		}

		emit := func(p string) bool {
			select {
			case evCh <- p:
				logger.Info("ingest.watch.archive", zap.String("path", p))
				return true
			case <-ctx.Done():
				return false
			}
		}

		for {
			select {
			case <-ctx.Done():
				return
			case e, ok := <-w.Events:
				if !ok {
					return
				}
				if !isArchive(e.Name) || e.Op&(fsnotify.Create|fsnotify.Write) == 0 {
					continue
				}
				if cfg.Debounce <= 0 {
					if !emit(e.Name) {
						return
					}
					continue
				}
				pending[e.Name] = time.Now()
			case now := <-tick:
				for p, last := range pending {
					if now.Sub(last) < cfg.Debounce {
						continue
					}
					delete(pending, p)
					if !emit(p) {
						return
					}
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				logger.Error("ingest.watch.error", zap.Error(err))
				select {
				case errCh <- err:
				default:
				}
			}
		}
	}()

	return evCh, errCh, nil
}

func isArchive(p string) bool {
	return strings.EqualFold(filepath.Ext(p), ".zip") && !strings.HasPrefix(filepath.Base(p), ".")
}
