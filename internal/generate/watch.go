package generate

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const watchDebounce = 250 * time.Millisecond

// Watch calls fn each time the file at path is written, created or
// renamed into place. Bursts of events are collapsed into one call. It
// returns when ctx is done.
func Watch(ctx context.Context, path string, logger *zap.Logger, fn func(context.Context) error) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	// Editors often replace the file, so watch its directory.
	if err := w.Add(filepath.Dir(abs)); err != nil {
		return err
	}
	logger.Info("watching config", zap.String("path", abs))

	timer := time.NewTimer(watchDebounce)
	timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			timer.Reset(watchDebounce)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch error", zap.Error(err))
		case <-timer.C:
			logger.Info("config changed, regenerating", zap.String("path", abs))
			if err := fn(ctx); err != nil {
				logger.Error("regeneration failed", zap.Error(err))
			}
		}
	}
}
