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

package filevec

import (
	"context"
	"path/filepath"

	"github.com/poiesic/filevec/monitor"
	"github.com/poiesic/filevec/storage/badger"
)

// stateStore persists the known-file sets of monitored directories.
type stateStore struct {
	known   *badger.KnownFileStore
	backend *badger.Backend // Set when the store owns its database
}

func (s *stateStore) Close() error {
	if s.backend == nil {
		return nil
	}
	return s.backend.Close()
}

// knownFiles returns the fingerprint store, sharing the badger sink's
// database when there is one.
func (u *Uploader) knownFiles() (*badger.KnownFileStore, error) {
	u.stateMu.Lock()
	defer u.stateMu.Unlock()

	if u.state != nil {
		return u.state.known, nil
	}

	if sink, ok := u.sink.(*badger.Sink); ok {
		u.state = &stateStore{known: badger.NewKnownFileStore(sink.Backend())}
		return u.state.known, nil
	}

	backend, err := badger.OpenBackend(u.cfg.Monitor.StateDir, false)
	if err != nil {
		return nil, err
	}
	u.state = &stateStore{known: badger.NewKnownFileStore(backend), backend: backend}
	return u.state.known, nil
}

func monitorDir(dir string) string {
	if abs, err := filepath.Abs(dir); err == nil {
		return abs
	}
	return dir
}

// NewFiles returns the files of the monitored directory that were not
// uploaded yet, or changed since.
func (u *Uploader) NewFiles(ctx context.Context) ([]monitor.File, error) {
	store, err := u.knownFiles()
	if err != nil {
		return nil, err
	}

	dir := monitorDir(u.cfg.Monitor.Dir)
	known, err := store.Load(ctx, dir)
	if err != nil {
		return nil, err
	}

	files, _, err := monitor.Detect(dir, known, monitor.Options{
		Include: u.cfg.Monitor.Include,
		Exclude: u.cfg.Monitor.Exclude,
	})
	return files, err
}

// MarkUploaded records files as uploaded so NewFiles skips them.
func (u *Uploader) MarkUploaded(ctx context.Context, files ...monitor.File) error {
	if len(files) == 0 {
		return nil
	}
	store, err := u.knownFiles()
	if err != nil {
		return err
	}

	known := monitor.KnownSet{}
	for _, f := range files {
		known.Mark(f)
	}
	return store.Save(ctx, monitorDir(u.cfg.Monitor.Dir), known)
}

// ForgetUploaded clears the uploaded-file record of the monitored directory.
func (u *Uploader) ForgetUploaded() error {
	store, err := u.knownFiles()
	if err != nil {
		return err
	}
	return store.Forget(monitorDir(u.cfg.Monitor.Dir))
}

// UploadNew uploads every new file of the monitored directory and marks the
// ones that had no failed chunks. It returns the per-file results.
func (u *Uploader) UploadNew(ctx context.Context, newObserver ObserverFactory) ([]FileResult, error) {
	files, err := u.NewFiles(ctx)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, nil
	}

	paths := make([]string, len(files))
	for i, f := range files {
		paths[i] = f.Path
	}

	results, err := u.UploadFiles(ctx, paths, newObserver)

	var done []monitor.File
	for i, r := range results {
		if r.Err == nil && r.Run != nil && r.Run.Failed == 0 && !r.Run.Canceled {
			done = append(done, files[i])
		}
	}
	if markErr := u.MarkUploaded(context.WithoutCancel(ctx), done...); markErr != nil {
		u.logger.Error("error saving uploaded files", "err", markErr)
		if err == nil {
			err = markErr
		}
	}
	return results, err
}
