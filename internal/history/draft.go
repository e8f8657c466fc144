package history

import (
	"context"
	"errors"
	"fmt"
)

// SaveFunc persists one completed section draft. The caller is expected to
// re-fetch afterwards; the server copy is authoritative.
type SaveFunc[T any] func(ctx context.Context, items []T) error

// Draft is an editable working copy of one medical-history section. Edits
// accumulate locally and hit the server only on Save, as a whole-array
// replacement.
type Draft[T any] struct {
	items []T
	dirty bool
	save  SaveFunc[T]
}

// NewDraft copies the current section contents into a fresh draft.
func NewDraft[T any](current []T, save SaveFunc[T]) *Draft[T] {
	items := make([]T, len(current))
	copy(items, current)
	return &Draft[T]{items: items, save: save}
}

// Items returns a copy of the working set.
func (d *Draft[T]) Items() []T {
	out := make([]T, len(d.items))
	copy(out, d.items)
	return out
}

func (d *Draft[T]) Len() int { return len(d.items) }

// Dirty reports whether the draft diverges from the copy it started from.
func (d *Draft[T]) Dirty() bool { return d.dirty }

// Add appends an entry to the draft.
func (d *Draft[T]) Add(item T) {
	d.items = append(d.items, item)
	d.dirty = true
}

// UpdateAt replaces the entry at index i.
func (d *Draft[T]) UpdateAt(i int, item T) error {
	if i < 0 || i >= len(d.items) {
		return fmt.Errorf("history: index %d out of range (len %d)", i, len(d.items))
	}
	d.items[i] = item
	d.dirty = true
	return nil
}

// RemoveAt deletes the entry at index i.
func (d *Draft[T]) RemoveAt(i int) error {
	if i < 0 || i >= len(d.items) {
		return fmt.Errorf("history: index %d out of range (len %d)", i, len(d.items))
	}
	d.items = append(d.items[:i], d.items[i+1:]...)
	d.dirty = true
	return nil
}

// Save persists the whole draft. On failure the draft stays dirty so the
// user can resubmit; there is no automatic retry.
func (d *Draft[T]) Save(ctx context.Context) error {
	if d.save == nil {
		return errors.New("history: draft has no save function")
	}
	if err := d.save(ctx, d.Items()); err != nil {
		return fmt.Errorf("history: save section: %w", err)
	}
	d.dirty = false
	return nil
}
