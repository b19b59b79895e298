package settings

import (
	"bytes"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"

	"github.com/golang/glog"

	"github.com/dshills/livesettings/internal/settings/document"
	"github.com/dshills/livesettings/internal/settings/loader"
	"github.com/dshills/livesettings/internal/settings/notify"
	"github.com/dshills/livesettings/internal/settings/watcher"
)

// Path returns the default file used by Load and Save.
func (s *Store) Path() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.path
}

// SetPath changes the default file. With auto reload on, the watcher
// follows it.
func (s *Store) SetPath(path string) {
	s.mu.Lock()
	old := s.path
	s.path = path
	s.lastSync = nil
	w := s.watcher
	s.mu.Unlock()

	if w != nil && old != path {
		_ = w.Unwatch(old)
		if path != "" {
			if err := w.Watch(path); err != nil {
				glog.Warningf("[watch] %s: %v", path, err)
			}
		}
	}
}

// Load replaces the document with the contents of path and makes path the
// default file. An empty path loads the default file.
func (s *Store) Load(path string) error {
	if path != "" {
		s.SetPath(path)
	}
	return s.LoadFrom("")
}

// LoadFrom replaces the document with the contents of path without
// changing the default file. An empty path loads the default file.
//
// Every registered cell is bumped; those whose path resolves in the new
// document are notified with notify.SourceLoad. On failure the document
// is left as it was and the error is a *LoadError.
func (s *Store) LoadFrom(path string) error {
	if path == "" {
		path = s.Path()
	}
	if path == "" {
		return ErrNoPath
	}

	data, err := loader.ReadFile(path)
	if err != nil {
		glog.Warningf("[store] load %s: %v", path, err)
		return err
	}
	return s.loadBytes(data, path, path)
}

// LoadBytes replaces the document with data, which must be JSON. origin
// is passed to observers in notify.Args.Origin.
func (s *Store) LoadBytes(data []byte, origin string) error {
	return s.loadBytes(data, "", origin)
}

// loadBytes installs data as the document. file is where data was read
// from, if anywhere.
func (s *Store) loadBytes(data []byte, file, origin string) error {
	doc, err := document.Parse(data)
	if err != nil {
		return &LoadError{Kind: LoadErrorParse, Path: origin, Err: err}
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}

	s.doc = doc
	if file != "" && samePath(file, s.path) {
		s.lastSync = bytes.Clone(data)
	}

	b := s.newBatch()
	for _, key := range slices.Sorted(maps.Keys(s.cells)) {
		c := s.cells[key]
		n, ok := doc.Get(c.ptr)
		if !ok {
			c.bump()
			continue
		}
		c.notify(b, n, notify.Args{Source: notify.SourceLoad, Origin: origin})
	}
	s.mu.Unlock()

	glog.Infof("[store] loaded %s (%d settings notified)", origin, b.Len())
	b.Commit()
	return nil
}

// Save writes the document to path and makes path the default file. An
// empty path saves to the default file.
func (s *Store) Save(path string) error {
	if path != "" {
		s.SetPath(path)
	}
	return s.SaveAs("")
}

// SaveAs writes the document to path without changing the default file.
// An empty path saves to the default file. The write is atomic: the
// document goes to a temporary file which is then renamed over path.
func (s *Store) SaveAs(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if path == "" {
		path = s.path
	}
	return s.saveLocked(path)
}

func (s *Store) saveLocked(path string) error {
	if path == "" {
		return ErrNoPath
	}

	data := s.doc.Pretty(s.indent)
	if err := writeFileAtomic(path, data); err != nil {
		glog.Errorf("[store] save %s: %v", path, err)
		return err
	}
	if samePath(path, s.path) {
		s.lastSync = data
	}

	glog.V(1).Infof("[store] saved %s (%d bytes)", path, len(data))
	return nil
}

func writeFileAtomic(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory: %w", err)
		}
	}

	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0o644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

func samePath(a, b string) bool {
	if a == b {
		return true
	}
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	return errA == nil && errB == nil && absA == absB
}

func (s *Store) startWatcher() {
	w := watcher.New(watcher.WithDebounce(s.debounce))
	w.OnChange(s.handleFileChange)

	if s.path != "" {
		if err := w.Watch(s.path); err != nil {
			glog.Warningf("[watch] %s: %v", s.path, err)
		}
	}
	if err := w.Start(); err != nil {
		glog.Warningf("[watch] start: %v", err)
		return
	}
	s.watcher = w
}

// handleFileChange reloads the default file after an external change.
func (s *Store) handleFileChange(event watcher.Event) {
	if event.Op == watcher.OpRemove || event.Op == watcher.OpRename {
		glog.V(1).Infof("[watch] %s %s, keeping current document", event.Path, event.Op)
		return
	}

	data, err := loader.ReadFile(event.Path)
	if err != nil {
		glog.Warningf("[watch] reload %s: %v", event.Path, err)
		return
	}

	s.mu.Lock()
	current := samePath(event.Path, s.path)
	echo := bytes.Equal(data, s.lastSync)
	s.mu.Unlock()

	if !current || echo {
		return
	}
	if err := s.loadBytes(data, event.Path, "watcher"); err != nil {
		glog.Warningf("[watch] reload %s: %v", event.Path, err)
	}
}
