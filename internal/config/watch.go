// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultWatchDebounce collapses the burst of events editors emit on save.
const DefaultWatchDebounce = 200 * time.Millisecond

// Watch reloads the config at path whenever it changes and passes the result
// to onChange. A reload that fails validation is reported through onChange
// with a nil config; the caller keeps its previous settings.
//
// The parent directory is watched rather than the file, since editors
// commonly replace the file through a rename. Watch blocks until ctx is done.
func Watch(ctx context.Context, path string, debounce time.Duration, onChange func(*Config, error)) error {
	if debounce <= 0 {
		debounce = DefaultWatchDebounce
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve config path: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(absPath)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(absPath), err)
	}

	// Stopped timer; armed on the first relevant event.
	timer := time.NewTimer(debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != absPath {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			timer.Reset(debounce)

		case <-timer.C:
			cfg, err := LoadFromPath(absPath)
			onChange(cfg, err)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			onChange(nil, fmt.Errorf("config watcher: %w", err))
		}
	}
}
