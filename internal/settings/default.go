package settings

import "sync"

var (
	defaultOnce  sync.Once
	defaultStore *Store
)

// Default returns the process-wide store, creating it on first use with
// default options. Prefer passing a *Store explicitly; Default exists for
// code that has nowhere to keep one.
func Default() *Store {
	defaultOnce.Do(func() {
		defaultStore = NewStore()
	})
	return defaultStore
}
