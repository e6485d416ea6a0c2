/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package playout

import "time"

// CollectionEnumerator is the collaborator contract a build draws media
// from. Implementations decide ordering, shuffling, and exhaustion policy;
// the build loop only ever calls these three methods.
type CollectionEnumerator interface {
	// Current returns the item the cursor sits on, or ok=false if the
	// collection has nothing left to offer.
	Current() (MediaItem, bool)
	// MoveNext advances the cursor past the item just consumed. It
	// returns true if the cursor now sits on a valid item.
	MoveNext() bool
	// MinimumDuration returns a lower bound on every remaining item's
	// duration, or ok=false if no such bound is known. Duration-mode
	// filler uses this to decide when a gap can never be filled again.
	MinimumDuration() (time.Duration, bool)
}

// SliceEnumerator is a reference CollectionEnumerator over a fixed,
// pre-ordered slice of media items. It never reshuffles and never repeats:
// once exhausted it stays exhausted. Tests and simple fixed playlists use
// this directly; LoopEnumerator wraps it to repeat the sequence.
type SliceEnumerator struct {
	items []MediaItem
	pos   int
}

// NewSliceEnumerator builds a SliceEnumerator over items, starting at the
// first element.
func NewSliceEnumerator(items []MediaItem) *SliceEnumerator {
	return &SliceEnumerator{items: items}
}

func (e *SliceEnumerator) Current() (MediaItem, bool) {
	if e.pos >= len(e.items) {
		return MediaItem{}, false
	}
	return e.items[e.pos], true
}

func (e *SliceEnumerator) MoveNext() bool {
	if e.pos < len(e.items) {
		e.pos++
	}
	return e.pos < len(e.items)
}

func (e *SliceEnumerator) MinimumDuration() (time.Duration, bool) {
	if e.pos >= len(e.items) {
		return 0, false
	}
	min := e.items[e.pos].Duration
	for _, it := range e.items[e.pos:] {
		if it.Duration < min {
			min = it.Duration
		}
	}
	return min, true
}

// Resettable is an enumerator that can restart from its first item. No
// enumerator in this package implements it; LoopEnumerator below restarts
// its inner SliceEnumerator directly.
type Resettable interface {
	Reset()
}

// LoopEnumerator adapts a SliceEnumerator to loop indefinitely.
type LoopEnumerator struct {
	inner *SliceEnumerator
}

func NewLoopEnumerator(items []MediaItem) *LoopEnumerator {
	return &LoopEnumerator{inner: NewSliceEnumerator(items)}
}

func (e *LoopEnumerator) Current() (MediaItem, bool) {
	if cur, ok := e.inner.Current(); ok {
		return cur, true
	}
	if len(e.inner.items) == 0 {
		return MediaItem{}, false
	}
	e.inner.pos = 0
	return e.inner.Current()
}

func (e *LoopEnumerator) MoveNext() bool {
	if len(e.inner.items) == 0 {
		return false
	}
	e.inner.pos++
	if e.inner.pos >= len(e.inner.items) {
		e.inner.pos = 0
	}
	return true
}

func (e *LoopEnumerator) MinimumDuration() (time.Duration, bool) {
	if len(e.inner.items) == 0 {
		return 0, false
	}
	min := e.inner.items[0].Duration
	for _, it := range e.inner.items {
		if it.Duration < min {
			min = it.Duration
		}
	}
	return min, true
}
