package config

import (
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// Live holds a hot-reloadable Config snapshot. Reads never block on the
// watcher goroutine: Current() just loads the latest atomically-swapped
// pointer. Only sessions started after a reload observe the new values —
// sessions already running keep whatever Config values they were started
// with, matching spec.md's note that the Engine itself never
// restarts or resubscribes in response to a config change.
type Live struct {
	path    string
	current atomic.Pointer[Config]
	watcher *fsnotify.Watcher
	logger  *logrus.Entry
}

// WatchConfig loads path once, then watches it for writes, atomically
// swapping the snapshot returned by Current on every successful reload.
// A reload that fails to parse is logged and the previous snapshot is kept.
func WatchConfig(path string) (*Live, error) {
	initial, err := LoadConfigFromPath(path)
	if err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if err := watcher.Add(path); err != nil {
		watcher.Close()
		return nil, err
	}

	live := &Live{
		path:    path,
		watcher: watcher,
		logger:  logrus.WithField("config_path", path),
	}
	live.current.Store(initial)

	go live.watch()

	return live, nil
}

func (l *Live) Current() *Config {
	return l.current.Load()
}

func (l *Live) Close() error {
	return l.watcher.Close()
}

func (l *Live) watch() {
	for {
		select {
		case event, ok := <-l.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}

			reloaded, err := LoadConfigFromPath(l.path)
			if err != nil {
				l.logger.WithError(err).Warn("config reload failed, keeping previous snapshot")
				continue
			}

			l.current.Store(reloaded)
			l.logger.Info("config reloaded")
		case err, ok := <-l.watcher.Errors:
			if !ok {
				return
			}
			l.logger.WithError(err).Warn("config watcher error")
		}
	}
}
