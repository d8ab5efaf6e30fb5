package main

// fileWatcher watches for writes to files in the specified directories
// having the configured suffixes. It is used in development mode to
// reload the web templates on change.

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/sync/errgroup"
)

// defaultFlushDuration sets the time given to wait for multiple editor writes
const defaultFlushDuration time.Duration = 25 * time.Millisecond

// WatchSpec is a combination of a directory and the file suffixes to
// watch under it.
type WatchSpec struct {
	Dir      string
	Suffixes []string
}

// FileChangeNotifier watches one or more WatchSpec directories and
// coalesces write events into refresh signals.
type FileChangeNotifier struct {
	dirSuffixMap  map[string][]string
	watcher       *fsnotify.Watcher
	update        chan bool
	flushDuration time.Duration
}

// NewFileChangeNotifier registers a FileChangeNotifier for the provided
// specs. Suffixes provided without the leading "dot" ('.') have this
// prepended.
func NewFileChangeNotifier(specs []WatchSpec) (*FileChangeNotifier, error) {

	if len(specs) < 1 {
		return nil, fmt.Errorf("at least one dir/suffix watch spec needed")
	}

	fcn := FileChangeNotifier{
		dirSuffixMap:  map[string][]string{},
		update:        make(chan bool),
		flushDuration: defaultFlushDuration,
	}

	var err error
	fcn.watcher, err = fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("fsnotify new watcher error: %w", err)
	}

	for _, spec := range specs {
		dir := filepath.Clean(spec.Dir)
		check, err := os.Stat(dir)
		if err != nil {
			return nil, fmt.Errorf("dir %q not found: %w", dir, err)
		}
		if !check.IsDir() {
			return nil, fmt.Errorf("%q is not a directory", dir)
		}
		if _, found := fcn.dirSuffixMap[dir]; found {
			return nil, fmt.Errorf("%q already registered", dir)
		}
		if err := fcn.watcher.Add(dir); err != nil {
			return nil, fmt.Errorf("fsnotify add error for dir %q: %w", dir, err)
		}

		fcn.dirSuffixMap[dir] = []string{}
		for _, ix := range spec.Suffixes {
			if len(ix) > 0 && ix[0] != byte('.') {
				ix = "." + ix
			}
			fcn.dirSuffixMap[dir] = append(fcn.dirSuffixMap[dir], ix)
		}
	}
	return &fcn, nil
}

// Watch watches the filesystem for the registered events, returning any
// error found while doing so. Watch blocks, so needs to be run in a
// goroutine. Consumers should iterate over [Update] to receive notice
// of a file write event requiring a refresh.
func (fcn *FileChangeNotifier) Watch(ctx context.Context) error {

	// eventChan is an internal chan used for buffering editor writes.
	eventChan := make(chan bool)

	g, ctx := errgroup.WithContext(ctx)

	// This goroutine watches for *fsnotify.Watcher events.
	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case err, ok := <-fcn.watcher.Errors:
				if !ok {
					return errors.New("unexpected close from watcher.Errors")
				}
				return fmt.Errorf("unexpected notify error: %w", err)

			case e, ok := <-fcn.watcher.Events:
				if !ok {
					return errors.New("unexpected close from watcher.Events")
				}
				// skip events that aren't writes
				if !e.Has(fsnotify.Write) {
					continue
				}
				dir := filepath.Dir(e.Name)
				basename := filepath.Base(e.Name)

				// ignore dot files
				if len(basename) > 0 && basename[0] == '.' {
					continue
				}

				suffixes, ok := fcn.dirSuffixMap[dir]
				if !ok {
					return fmt.Errorf("could not find matcher for dir %q", dir)
				}
				for _, ix := range suffixes {
					if strings.HasSuffix(strings.ToLower(basename), strings.ToLower(ix)) {
						eventChan <- true
					}
				}
			}
		}
	})

	// Simple buffer of double writes by editors like vim.
	g.Go(func() error {
		flush := false
		timer := time.NewTicker(fcn.flushDuration)
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()

			case _, ok := <-eventChan:
				if !ok {
					return nil
				}
				flush = true
				timer.Reset(fcn.flushDuration)
			case <-timer.C:
				if flush {
					fcn.update <- true
					flush = false
				}
			}
		}
	})

	err := g.Wait()
	close(eventChan)
	close(fcn.update)
	_ = fcn.watcher.Close()
	return err
}

// Update returns a channel signalling a file refresh event.
func (fcn *FileChangeNotifier) Update() <-chan bool {
	return fcn.update
}
