// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// relevant reports whether event may have produced a new or changed file.
func relevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return false
	}
	if hidden(filepath.Base(event.Name)) {
		return false
	}
	info, err := os.Stat(event.Name)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular()
}

// DefaultSettle is how long a file must stay unchanged before Watch reports it.
const DefaultSettle = 2 * time.Second

// WatchOption configures Watch.
type WatchOption func(*watcher)

// WithSettle sets the quiet period a file's size and modification time must
// hold before it is reported. Values below one millisecond are raised to it.
func WithSettle(d time.Duration) WatchOption {
	return func(w *watcher) {
		w.settle = max(d, time.Millisecond)
	}
}

// pendingFile tracks a file that changed and has not settled yet.
type pendingFile struct {
	size  int64
	mod   time.Time
	due   time.Time
	timer *time.Timer
}

type watcher struct {
	done    chan struct{}
	settle  time.Duration
	pending map[string]*pendingFile
	settled chan string
	logger  *slog.Logger
}

// schedule (re)starts the quiet period of path.
func (w *watcher) schedule(path string) {
	p, ok := w.pending[path]
	if !ok {
		p = &pendingFile{}
		w.pending[path] = p
	}
	p.size, p.mod = snapshot(path)
	p.due = time.Now().Add(w.settle)
	if !ok {
		p.timer = time.AfterFunc(w.settle, func() {
			select {
			case w.settled <- path:
			case <-w.done:
			}
		})
		return
	}
	p.timer.Reset(w.settle)
}

// ready reports whether path has settled. A file that changed since it was
// scheduled gets a new quiet period; a file that vanished is dropped.
func (w *watcher) ready(path string) bool {
	p, ok := w.pending[path]
	if !ok || time.Now().Before(p.due) {
		return false
	}
	info, err := os.Stat(path)
	if err != nil {
		p.timer.Stop()
		delete(w.pending, path)
		return false
	}
	if info.Size() != p.size || !info.ModTime().Equal(p.mod) {
		w.logger.Debug("file still changing", "path", path, "size", info.Size())
		w.schedule(path)
		return false
	}
	delete(w.pending, path)
	return true
}

func (w *watcher) stop() {
	close(w.done)
	for _, p := range w.pending {
		p.timer.Stop()
	}
}

func snapshot(path string) (int64, time.Time) {
	info, err := os.Stat(path)
	if err != nil {
		return -1, time.Time{}
	}
	return info.Size(), info.ModTime()
}

// Watch calls fn once for each file created or written in dir, after its
// size and modification time have held still for the settle period, until
// ctx is done. fn runs on the watching goroutine; a slow fn delays later
// reports. Watch returns nil when ctx is canceled.
func Watch(ctx context.Context, dir string, fn func(path string), opts ...WatchOption) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer fsw.Close()

	if err := fsw.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}

	w := &watcher{
		done:    make(chan struct{}),
		settle:  DefaultSettle,
		pending: make(map[string]*pendingFile),
		settled: make(chan string),
		logger:  slog.Default().With("component", "monitor"),
	}
	for _, opt := range opts {
		opt(w)
	}
	defer w.stop()

	w.logger.Info("watching directory", "dir", dir, "settle", w.settle)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if relevant(event) {
				w.logger.Debug("file event", "path", event.Name, "op", event.Op.String())
				w.schedule(event.Name)
			}
		case path := <-w.settled:
			if w.ready(path) {
				w.logger.Debug("file settled", "path", path)
				fn(path)
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", "error", err)
		}
	}
}
