package main

import (
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// debounce is the time after a handled write during which further writes to
// the same file are ignored.
const debounce = 2 * time.Second

// watch calls f with the name of each file that is written to. The returned
// watcher must be closed to stop watching.
func watch(logger logrus.FieldLogger, files []string, f func(name string)) (*fsnotify.Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "create watcher")
	}
	for _, name := range files {
		if err := watcher.Add(name); err != nil {
			watcher.Close()
			return nil, errors.Wrapf(err, "watch %s", name)
		}
	}
	logger.WithField("files", len(files)).Info("watching")

	wait := make(map[string]time.Time)
	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if wait[event.Name].After(time.Now()) {
					continue
				}
				if event.Op&fsnotify.Write == fsnotify.Write {
					f(event.Name)
					wait[event.Name] = time.Now().Add(debounce)
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.WithError(err).Error("watch")
			}
		}
	}()
	return watcher, nil
}
