package settings

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dshills/livesettings/internal/settings/notify"
)

func TestStore_SaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "settings.json")

	s := NewStore(WithPath(path))
	_ = Set(s, "/name", "editor")
	_ = Set(s, "/size", 12)
	_ = Set(s, "/tags", []string{"a", "b"})
	if err := s.Save(""); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Errorf("temp file left behind: %v", err)
	}

	r := NewStore()
	if err := r.Load(path); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if r.Path() != path {
		t.Errorf("Path = %q, want %q", r.Path(), path)
	}
	if got := string(r.Bytes()); got != string(s.Bytes()) {
		t.Errorf("loaded %s, saved %s", got, s.Bytes())
	}
}

func TestStore_SaveFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	s := NewStore(WithPath(path), WithIndent("\t"))
	_ = s.Set("/a", []byte(`{"b":1}`), notify.Args{})

	if err := s.Save(""); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	want := "{\n\t\"a\": {\n\t\t\"b\": 1\n\t}\n}\n"
	if string(data) != want {
		t.Errorf("file = %q, want %q", data, want)
	}
}

func TestStore_SaveAsKeepsPath(t *testing.T) {
	dir := t.TempDir()
	main := filepath.Join(dir, "main.json")
	backup := filepath.Join(dir, "backup.json")

	s := NewStore(WithPath(main))
	_ = s.Set("/a", []byte(`1`), notify.Args{})
	if err := s.SaveAs(backup); err != nil {
		t.Fatal(err)
	}
	if s.Path() != main {
		t.Errorf("Path = %q after SaveAs", s.Path())
	}
	if _, err := os.Stat(backup); err != nil {
		t.Errorf("backup not written: %v", err)
	}
	if _, err := os.Stat(main); !os.IsNotExist(err) {
		t.Errorf("main file written by SaveAs: %v", err)
	}
}

func TestStore_LoadErrors(t *testing.T) {
	dir := t.TempDir()
	broken := filepath.Join(dir, "broken.json")
	if err := os.WriteFile(broken, []byte(`{"a":`), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		path string
		kind LoadErrorKind
	}{
		{"missing file", filepath.Join(dir, "missing.json"), LoadErrorCannotOpen},
		{"directory", dir, LoadErrorFileHandle},
		{"invalid json", broken, LoadErrorParse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := loaded(t, `{"keep":true}`)
			err := s.LoadFrom(tt.path)

			var le *LoadError
			if !errors.As(err, &le) {
				t.Fatalf("LoadFrom error = %v, want *LoadError", err)
			}
			if le.Kind != tt.kind {
				t.Errorf("Kind = %s, want %s", le.Kind, tt.kind)
			}
			if got := string(s.Bytes()); got != `{"keep":true}` {
				t.Errorf("document changed on failed load: %s", got)
			}
		})
	}
}

func TestStore_LoadOtherFormats(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"settings.toml": "name = \"x\"\n[window]\nwidth = 80\n",
		"settings.yaml": "name: x\nwindow:\n  width: 80\n",
	}

	for name, content := range files {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
				t.Fatal(err)
			}
			s := NewStore()
			if err := s.LoadFrom(path); err != nil {
				t.Fatalf("LoadFrom: %v", err)
			}
			if got := Get[int](s, "/window/width"); got != 80 {
				t.Errorf("/window/width = %d", got)
			}
			if got := Get[string](s, "/name"); got != "x" {
				t.Errorf("/name = %q", got)
			}
		})
	}
}

func TestStore_NoPath(t *testing.T) {
	s := NewStore()
	s.SetPath("")

	if err := s.LoadFrom(""); !errors.Is(err, ErrNoPath) {
		t.Errorf("LoadFrom = %v, want ErrNoPath", err)
	}
	if err := s.SaveAs(""); !errors.Is(err, ErrNoPath) {
		t.Errorf("SaveAs = %v, want ErrNoPath", err)
	}
}

func TestStore_SaveOnChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	s := NewStore(WithPath(path), WithSaveMethod(SaveOnChange))

	_ = s.Set("/a", []byte(`1`), notify.Args{})

	r := NewStore()
	if err := r.LoadFrom(path); err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if got := Get[int](r, "/a"); got != 1 {
		t.Errorf("/a = %d in saved file", got)
	}

	s.Remove("/a")
	r2 := NewStore()
	if err := r2.LoadFrom(path); err != nil {
		t.Fatal(err)
	}
	if got := string(r2.Bytes()); got != `{}` {
		t.Errorf("file after remove = %s", got)
	}
}

func TestStore_SaveOnClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	s := NewStore(WithPath(path), WithSaveMethod(SaveOnClose))

	_ = s.Set("/a", []byte(`1`), notify.Args{})
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("file written before Close: %v", err)
	}

	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("file not written on Close: %v", err)
	}
	if err := s.SaveAs(""); !errors.Is(err, ErrClosed) {
		t.Errorf("SaveAs after Close = %v, want ErrClosed", err)
	}
}

func TestStore_AutoReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	if err := os.WriteFile(path, []byte(`{"a":1}`), 0o644); err != nil {
		t.Fatal(err)
	}

	s := NewStore(WithPath(path), WithAutoReload(true), WithDebounce(20*time.Millisecond))
	defer s.Close()
	if err := s.Load(""); err != nil {
		t.Fatal(err)
	}

	h := NewSetting(s, "/a", 0)
	reloads := make(chan notify.Args, 8)
	h.Connect(func(_ int, a notify.Args) {
		if a.Source == notify.SourceLoad {
			reloads <- a
		}
	}, false)

	if err := os.WriteFile(path, []byte(`{"a":2}`), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case a := <-reloads:
		if a.Origin != "watcher" {
			t.Errorf("Origin = %q, want watcher", a.Origin)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("external change was not reloaded")
	}
	if got := h.Get(); got != 2 {
		t.Errorf("Get = %d after reload, want 2", got)
	}

	// Our own save must not come back as a reload.
	for len(reloads) > 0 {
		<-reloads
	}
	if err := s.Save(""); err != nil {
		t.Fatal(err)
	}
	select {
	case a := <-reloads:
		t.Errorf("own save reloaded: %+v", a)
	case <-time.After(300 * time.Millisecond):
	}
}
