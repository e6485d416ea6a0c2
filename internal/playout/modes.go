/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package playout

import (
	"context"
	"time"
)

func primaryCurrent(e CollectionEnumerator) (MediaItem, bool) {
	if e == nil {
		return MediaItem{}, false
	}
	return e.Current()
}

func canceled(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

// earlierOf returns whichever of nextItemStart and hardStop comes first,
// so a Flood or Duration schedule item with no following fixed-start item
// still stops at the build's overall hard stop instead of draining an
// unbounded collection forever.
func earlierOf(nextItemStart *time.Time, hardStop time.Time) time.Time {
	if nextItemStart == nil || hardStop.Before(*nextItemStart) {
		return hardStop
	}
	return *nextItemStart
}

// scheduleOnce plays the primary collection's current item exactly once.
func scheduleOnce(ctx context.Context, state PlayoutBuilderState, item *OnceItem, fc fillerContext) (PlayoutBuilderState, []PlayoutItem, error) {
	base := item.ScheduleItemBase
	itemStart := GetStartTimeAfter(state, item, fc.loc)
	enumerator := fc.enumerators[base.CollectionKey]
	media, ok := primaryCurrent(enumerator)
	if !ok {
		return clearMidProgress(state), nil, &BuildError{Kind: ErrorCollectionEmpty, Message: "Once item's collection is empty"}
	}

	gg := state.NextGuideGroup
	out, err := buildPrimaryItems(base, media, fc, itemStart, gg)
	if err != nil {
		return state, nil, err
	}
	enumerator.MoveNext()
	end := lastFinish(out, itemStart)

	next := advance(state, func(s *PlayoutBuilderState) {
		s.CurrentTime = end
		s.NextGuideGroup = gg + 1
		s.InFlood = false
		s.MultipleRemaining = nil
		s.DurationFinish = nil
		s.InDurationFiller = false
	})
	return next, out, nil
}

// scheduleFlood plays primary items back-to-back, stopping before any
// primary that would encroach on the next fixed-start schedule item or the
// build's overall hard stop, then drains TailFiller to cover the remaining
// gap without crossing that boundary either.
func scheduleFlood(ctx context.Context, state PlayoutBuilderState, item *FloodItem, fc fillerContext, nextItemStart *time.Time, hardStop time.Time) (PlayoutBuilderState, []PlayoutItem, error) {
	base := item.ScheduleItemBase
	enumerator := fc.enumerators[base.CollectionKey]
	cur := advance(state, func(s *PlayoutBuilderState) { s.CurrentTime = GetStartTimeAfter(state, item, fc.loc) })
	boundary := earlierOf(nextItemStart, hardStop)
	var allItems []PlayoutItem

	for {
		if canceled(ctx) {
			next := advance(cur, func(s *PlayoutBuilderState) { s.InFlood = true })
			return next, allItems, &BuildError{Kind: ErrorScanCanceled}
		}
		if !cur.CurrentTime.Before(boundary) {
			break
		}
		media, ok := primaryCurrent(enumerator)
		if !ok {
			break
		}
		if cur.CurrentTime.Add(media.Duration).After(boundary) {
			break
		}

		itemStart := cur.CurrentTime
		gg := cur.NextGuideGroup
		out, err := buildPrimaryItems(base, media, fc, itemStart, gg)
		if err != nil {
			return cur, allItems, err
		}
		enumerator.MoveNext()
		end := lastFinish(out, itemStart)
		allItems = append(allItems, out...)
		cur = advance(cur, func(s *PlayoutBuilderState) {
			s.CurrentTime = end
			s.NextGuideGroup = gg + 1
			s.InFlood = true
		})
	}

	if base.TailFiller != nil {
		var tailItems []PlayoutItem
		cur, tailItems = appendTailFiller(cur, *base.TailFiller, boundary, fc)
		allItems = append(allItems, tailItems...)
	}

	cur = advance(cur, func(s *PlayoutBuilderState) { s.InFlood = false })
	return cur, allItems, nil
}

// scheduleMultiple plays exactly Count primary items, resuming from
// state.MultipleRemaining if a previous build stopped partway through.
func scheduleMultiple(ctx context.Context, state PlayoutBuilderState, item *MultipleItem, fc fillerContext) (PlayoutBuilderState, []PlayoutItem, error) {
	base := item.ScheduleItemBase
	remaining := item.Count
	if state.MultipleRemaining != nil {
		remaining = *state.MultipleRemaining
	}
	cur := state
	var allItems []PlayoutItem
	enumerator := fc.enumerators[base.CollectionKey]

	for remaining > 0 {
		if canceled(ctx) {
			rem := remaining
			next := advance(cur, func(s *PlayoutBuilderState) { s.MultipleRemaining = &rem })
			return next, allItems, &BuildError{Kind: ErrorScanCanceled}
		}

		itemStart := GetStartTimeAfter(cur, item, fc.loc)
		media, ok := primaryCurrent(enumerator)
		if !ok {
			rem := remaining
			return advance(cur, func(s *PlayoutBuilderState) { s.MultipleRemaining = &rem }), allItems,
				&BuildError{Kind: ErrorCollectionEmpty, Message: "Multiple item's collection is empty"}
		}

		gg := cur.NextGuideGroup
		out, err := buildPrimaryItems(base, media, fc, itemStart, gg)
		if err != nil {
			return cur, allItems, err
		}
		enumerator.MoveNext()
		end := lastFinish(out, itemStart)
		allItems = append(allItems, out...)
		remaining--
		rem := remaining
		cur = advance(cur, func(s *PlayoutBuilderState) {
			s.CurrentTime = end
			s.NextGuideGroup = gg + 1
			if rem > 0 {
				s.MultipleRemaining = &rem
			} else {
				s.MultipleRemaining = nil
			}
		})
	}

	return cur, allItems, nil
}

// scheduleDuration plays primary items until PlayoutDuration has elapsed
// from the item's start (resuming from state.DurationFinish if set), then
// disposes of whatever gap remains per TailMode.
func scheduleDuration(ctx context.Context, state PlayoutBuilderState, item *DurationItem, fc fillerContext, nextItemStart *time.Time, hardStop time.Time) (PlayoutBuilderState, []PlayoutItem, error) {
	base := item.ScheduleItemBase
	itemStart := GetStartTimeAfter(state, item, fc.loc)
	cur := advance(state, func(s *PlayoutBuilderState) { s.CurrentTime = itemStart })

	finish := cur.DurationFinish
	if finish == nil {
		f := itemStart.Add(item.PlayoutDuration)
		finish = &f
	}
	boundary := earlierOf(nextItemStart, hardStop)
	if boundary.Before(*finish) {
		finish = &boundary
	}

	enumerator := fc.enumerators[base.CollectionKey]
	var allItems []PlayoutItem

	for {
		if canceled(ctx) {
			next := advance(cur, func(s *PlayoutBuilderState) { s.DurationFinish = finish })
			return next, allItems, &BuildError{Kind: ErrorScanCanceled}
		}
		media, ok := primaryCurrent(enumerator)
		if !ok {
			break
		}
		if cur.CurrentTime.Add(media.Duration).After(*finish) {
			break
		}

		gg := cur.NextGuideGroup
		out, err := buildPrimaryItems(base, media, fc, cur.CurrentTime, gg)
		if err != nil {
			return cur, allItems, err
		}
		enumerator.MoveNext()
		end := lastFinish(out, cur.CurrentTime)
		allItems = append(allItems, out...)
		cur = advance(cur, func(s *PlayoutBuilderState) {
			s.CurrentTime = end
			s.NextGuideGroup = gg + 1
			s.DurationFinish = finish
		})
	}

	if item.TailMode == TailFiller && base.TailFiller != nil {
		cur = advance(cur, func(s *PlayoutBuilderState) { s.InDurationFiller = true })
		var tailItems []PlayoutItem
		cur, tailItems = appendTailFiller(cur, *base.TailFiller, *finish, fc)
		allItems = append(allItems, tailItems...)
		cur = advance(cur, func(s *PlayoutBuilderState) { s.InDurationFiller = false })
	} else {
		cur = advance(cur, func(s *PlayoutBuilderState) { s.CurrentTime = *finish })
	}
	cur = advance(cur, func(s *PlayoutBuilderState) { s.DurationFinish = nil })

	return cur, allItems, nil
}
