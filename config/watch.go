package config

import (
	"bufio"
	"os"

	"github.com/fsnotify/fsnotify"

	"github.com/launix-de/cephosd/log"
)

// WatchPassthrough watches a plain-text file of one passthrough flag
// per line (e.g. a bare "NOOP_WRITE" line to enable it, absent to
// disable) and calls onChange with the recomputed NoopWrite value
// every time the file is written. It runs until stop is closed.
func WatchPassthrough(path string, logger *log.Logger, onChange func(noopWrite bool), stop <-chan struct{}) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(path); err != nil {
		watcher.Close()
		return err
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-stop:
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				noop, err := readNoopWriteFlag(path)
				if err != nil {
					logger.Warningf("config: reloading %s: %v", path, err)
					continue
				}
				logger.Infof("config: reloaded %s, NOOP_WRITE=%v", path, noop)
				onChange(noop)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warningf("config: watch error on %s: %v", path, err)
			}
		}
	}()
	return nil
}

func readNoopWriteFlag(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if scanner.Text() == "NOOP_WRITE" {
			return true, nil
		}
	}
	return false, scanner.Err()
}
