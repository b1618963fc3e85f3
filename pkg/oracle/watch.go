package oracle

import (
	"context"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Reloadable is implemented by oracles whose backing definition can be
// re-read from disk, such as the Starlark script oracle.
type Reloadable interface {
	Reload() error
}

// WatchScript watches a script file and reloads the oracle whenever the
// file is written. It is a dev-mode convenience; when it is not running,
// an oracle's definition is fixed at resolution time. Blocks until the
// context is cancelled.
func WatchScript(ctx context.Context, path string, target Reloadable, logger zerolog.Logger) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(path); err != nil {
		return err
	}

	logger = logger.With().Str("component", "oracle-watcher").Str("path", path).Logger()
	logger.Info().Msg("Watching oracle script")

	// Editors fire several events per save; coalesce them.
	var pending <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				pending = time.After(100 * time.Millisecond)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn().Err(err).Msg("Watcher error")
		case <-pending:
			pending = nil
			if err := target.Reload(); err != nil {
				logger.Warn().Err(err).Msg("Oracle reload failed, keeping previous definition")
				continue
			}
			logger.Info().Msg("Oracle script reloaded")
		}
	}
}
