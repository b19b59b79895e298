package settings

import (
	"time"

	"github.com/dshills/livesettings/internal/settings/codec"
)

// SaveMethod controls when a store writes itself to its file.
type SaveMethod uint8

const (
	saveOnCloseFlag SaveMethod = 1 << iota
	saveOnChangeFlag

	// SaveManually only saves when Save is called.
	SaveManually SaveMethod = 0

	// SaveOnClose saves when the store is closed.
	SaveOnClose = saveOnCloseFlag

	// SaveOnChange saves after every successful mutation.
	SaveOnChange = saveOnChangeFlag

	// SaveAlways saves after every mutation and on close.
	SaveAlways = saveOnCloseFlag | saveOnChangeFlag
)

// String returns the save method name.
func (m SaveMethod) String() string {
	switch m {
	case SaveManually:
		return "manual"
	case SaveOnClose:
		return "on-close"
	case SaveOnChange:
		return "on-change"
	case SaveAlways:
		return "always"
	default:
		return "unknown"
	}
}

func (m SaveMethod) has(flag SaveMethod) bool {
	return m&flag != 0
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithPath sets the default file used by Load and Save.
func WithPath(path string) StoreOption {
	return func(s *Store) {
		if path != "" {
			s.path = path
		}
	}
}

// WithSaveMethod sets when the store saves itself.
func WithSaveMethod(m SaveMethod) StoreOption {
	return func(s *Store) {
		s.saveMethod = m
	}
}

// WithIndent sets the indentation used when the document is written out.
func WithIndent(indent string) StoreOption {
	return func(s *Store) {
		s.indent = indent
	}
}

// WithAutoReload makes the store watch its default file and reload it
// when something else changes it.
func WithAutoReload(enable bool) StoreOption {
	return func(s *Store) {
		s.autoReload = enable
	}
}

// WithDebounce sets the quiet period the auto-reload watcher waits for
// before reloading.
func WithDebounce(d time.Duration) StoreOption {
	return func(s *Store) {
		if d >= 0 {
			s.debounce = d
		}
	}
}

// Flag modifies how a setting behaves.
type Flag uint8

const (
	// DoNotPersist keeps writes in the setting's cache and never touches
	// the document.
	DoNotPersist Flag = 1 << iota
)

type settingOptions struct {
	flags Flag
	codec any
}

// Option configures a Setting.
type Option func(*settingOptions)

// WithFlags adds flags to a setting.
func WithFlags(f Flag) Option {
	return func(o *settingOptions) {
		o.flags |= f
	}
}

// WithCodec overrides the codec a setting uses. NewSetting panics if c
// does not match the setting's value type.
func WithCodec[T any](c codec.Codec[T]) Option {
	return func(o *settingOptions) {
		o.codec = c
	}
}
