package store

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/tartampluch/remindme/internal/config"
)

var tempPrefix = strings.TrimSuffix(config.FileTempGlob, "*")

// File stores one JSON document per key in a directory. Writes go through a
// temporary file and a rename so readers never see partial content.
type File struct {
	dir string

	mu sync.Mutex
	// own remembers the digest of the last value this handle wrote per key
	// (nil after a delete) so Watch can skip its own writes.
	own map[string]*[sha256.Size]byte
}

// NewFile opens (and creates if needed) a directory-backed store.
func NewFile(dir string) (*File, error) {
	if err := ensureDir(dir); err != nil {
		return nil, err
	}
	return &File{dir: dir, own: make(map[string]*[sha256.Size]byte)}, nil
}

func (f *File) path(key string) string {
	return filepath.Join(f.dir, url.PathEscape(key)+config.FileExtJSON)
}

func (f *File) Get(_ context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(f.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrStoreRead, err)
	}
	return data, nil
}

func (f *File) Set(_ context.Context, key string, value []byte) error {
	tmp, err := os.CreateTemp(f.dir, config.FileTempGlob)
	if err != nil {
		return fmt.Errorf("%s: %w", config.ErrStoreWrite, err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(value); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("%s: %w", config.ErrStoreWrite, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%s: %w", config.ErrStoreWrite, err)
	}

	sum := sha256.Sum256(value)
	f.mu.Lock()
	f.own[key] = &sum
	f.mu.Unlock()

	if err := os.Rename(tmp.Name(), f.path(key)); err != nil {
		return fmt.Errorf("%s: %w", config.ErrStoreWrite, err)
	}
	return nil
}

func (f *File) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	f.own[key] = nil
	f.mu.Unlock()

	if err := os.Remove(f.path(key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%s: %w", config.ErrStoreDelete, err)
	}
	return nil
}

func (f *File) Keys(_ context.Context, prefix string) ([]string, error) {
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrStoreList, err)
	}

	var keys []string
	for _, e := range entries {
		key, ok := f.keyOf(e.Name())
		if ok && !e.IsDir() && strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	slices.Sort(keys)
	return keys, nil
}

func (f *File) Close() error { return nil }

// keyOf maps a file name back to its key; temporary and foreign files are ignored.
func (f *File) keyOf(name string) (string, bool) {
	name = filepath.Base(name)
	if strings.HasPrefix(name, tempPrefix) {
		return "", false
	}
	escaped, ok := strings.CutSuffix(name, config.FileExtJSON)
	if !ok {
		return "", false
	}
	key, err := url.PathUnescape(escaped)
	if err != nil {
		return "", false
	}
	return key, true
}

// Watch reports files changed by other processes. It stops and closes the
// channel when ctx is done.
func (f *File) Watch(ctx context.Context) (<-chan Change, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrStoreWatch, err)
	}
	if err := w.Add(f.dir); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("%s: %w", config.ErrStoreWatch, err)
	}

	out := make(chan Change, config.WatchBufferSize)
	go f.run(ctx, w, out)
	return out, nil
}

func (f *File) run(ctx context.Context, w *fsnotify.Watcher, out chan<- Change) {
	log := slog.With(config.LogKeyComponent, config.CompWatcher, config.LogKeyFile, f.dir)
	log.Debug(config.MsgWatchStart)

	defer func() {
		_ = w.Close()
		close(out)
		log.Debug(config.MsgWatchStop)
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.Events:
			if !ok {
				return
			}
			change, ok := f.handleEvent(event)
			if !ok {
				continue
			}
			log.Debug(config.MsgWatchEvent, config.LogKeyKey, change.Key)
			select {
			case out <- change:
			case <-ctx.Done():
				return
			}

		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			log.Warn(config.MsgWatchError, config.LogKeyError, err)
		}
	}
}

// handleEvent turns a filesystem event into a Change, dropping events that
// echo this handle's own writes.
func (f *File) handleEvent(event fsnotify.Event) (Change, bool) {
	key, ok := f.keyOf(event.Name)
	if !ok {
		return Change{}, false
	}

	switch {
	case event.Has(fsnotify.Create), event.Has(fsnotify.Write):
		data, err := os.ReadFile(event.Name)
		if err != nil {
			return Change{}, false
		}
		sum := sha256.Sum256(data)
		if f.isOwn(key, &sum) {
			return Change{}, false
		}
		return Change{Key: key, Value: data}, true

	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		if _, err := os.Stat(event.Name); err == nil {
			return Change{}, false
		}
		if f.isOwn(key, nil) {
			return Change{}, false
		}
		return Change{Key: key}, true
	}
	return Change{}, false
}

func (f *File) isOwn(key string, sum *[sha256.Size]byte) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	last, ok := f.own[key]
	if !ok {
		return false
	}
	if last == nil || sum == nil {
		return last == nil && sum == nil
	}
	return *last == *sum
}
