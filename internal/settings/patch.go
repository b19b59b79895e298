package settings

import (
	"fmt"
	"maps"
	"slices"

	jsonpatch "github.com/evanphx/json-patch"
	"github.com/golang/glog"

	"github.com/dshills/livesettings/internal/settings/document"
	"github.com/dshills/livesettings/internal/settings/notify"
)

// ApplyPatch applies an RFC 6902 JSON Patch to the whole document. The
// patch either applies completely or not at all. Every registered cell
// whose value changed is bumped, and those that still resolve are
// notified with notify.SourcePatch.
//
// Patched objects come back with their keys sorted.
func (s *Store) ApplyPatch(patch []byte, args notify.Args) error {
	ops, err := jsonpatch.DecodePatch(patch)
	if err != nil {
		return fmt.Errorf("decode patch: %w", err)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}

	out, err := ops.Apply(s.doc.Bytes())
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("apply patch: %w", err)
	}
	doc, err := document.Parse(out)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("apply patch: %w", err)
	}

	old := s.doc
	s.doc = doc

	args.Source = notify.SourcePatch
	b := s.newBatch()
	for _, key := range slices.Sorted(maps.Keys(s.cells)) {
		c := s.cells[key]
		before, hadBefore := old.Get(c.ptr)
		after, hasAfter := doc.Get(c.ptr)
		if hadBefore == hasAfter && before.Raw == after.Raw {
			continue
		}
		if !hasAfter {
			c.bump()
			continue
		}
		c.notify(b, after, args)
	}
	s.mu.Unlock()

	glog.V(1).Infof("[store] patch applied (%d ops, %d settings notified)", len(ops), b.Len())
	b.Commit()
	s.autoSave()
	return nil
}
