package settings

import (
	"errors"

	"github.com/dshills/livesettings/internal/settings/loader"
)

// Errors returned by store and setting operations.
var (
	// ErrClosed indicates the store has been closed.
	ErrClosed = errors.New("settings store closed")

	// ErrExpired indicates the setting's path was removed from the store.
	ErrExpired = errors.New("setting expired")

	// ErrUnbound indicates the setting could not attach to its store.
	ErrUnbound = errors.New("setting not bound to a store")

	// ErrInvalidPath indicates a malformed settings path.
	ErrInvalidPath = errors.New("invalid settings path")

	// ErrNoPath indicates a load or save with no file path configured.
	ErrNoPath = errors.New("no settings file path")
)

// LoadError describes a failed load. Use errors.As to get at the Kind.
type LoadError = loader.Error

// LoadErrorKind classifies a failed load.
type LoadErrorKind = loader.Kind

// Load error kinds.
const (
	LoadErrorNone       = loader.KindNone
	LoadErrorCannotOpen = loader.KindCannotOpen
	LoadErrorFileHandle = loader.KindFileHandle
	LoadErrorRead       = loader.KindRead
	LoadErrorSeek       = loader.KindSeek
	LoadErrorParse      = loader.KindParse
)
