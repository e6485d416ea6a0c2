/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package playout

import "time"

// Logger is the minimal surface the build needs to report recovered,
// non-fatal conditions (BadConfiguration, CollectionEmpty, ...) without
// aborting. Callers adapt their zerolog.Logger to this with a one-line
// shim.
type Logger interface {
	Warnf(format string, args ...any)
}

// fillerContext bundles a build's read-only collaborators: the enumerators
// keyed by CollectionKey, the station's local time zone (used for pad and
// fixed-start arithmetic), and an optional logger for recovered
// BadConfiguration conditions.
type fillerContext struct {
	enumerators map[CollectionKey]CollectionEnumerator
	loc         *time.Location
	logger      Logger
}

func (fc fillerContext) warnf(format string, args ...any) {
	if fc.logger != nil {
		fc.logger.Warnf(format, args...)
	}
}

// draftItem is a not-yet-timestamped PlayoutItem: a duration and a role,
// awaiting restamp once its position in the final sequence is known.
type draftItem struct {
	mediaItemID       string
	duration          time.Duration
	inPoint           time.Duration
	playToFinish      bool
	kind              FillerKind
	disableWatermarks bool
}

func sumDraftDuration(items []draftItem) time.Duration {
	var total time.Duration
	for _, it := range items {
		total += it.duration
	}
	return total
}

// fallbackDraft synthesizes a shortfall item sized to span. When base has a
// configured FallbackFiller, its collection supplies the item's identity (the
// item still plays to finish regardless of that media's own natural length);
// with no fallback collection configured or available, the shortfall still
// plays — dead air is worse than an unattributed item — just with an empty
// mediaItemID.
func fallbackDraft(base ScheduleItemBase, fc fillerContext, span time.Duration) draftItem {
	d := draftItem{duration: span, playToFinish: true, kind: FillerKindFallback}
	if base.FallbackFiller == nil {
		return d
	}
	d.disableWatermarks = !base.FallbackFiller.AllowWatermarks
	enumerator := fc.enumerators[base.FallbackFiller.CollectionKey]
	if enumerator == nil {
		return d
	}
	media, ok := enumerator.Current()
	if !ok {
		return d
	}
	d.mediaItemID = media.ID
	enumerator.MoveNext()
	return d
}

// composePrimary builds the full ordered draft sequence for one selected
// primary MediaItem, per the canonical composition order: non-pad PreRoll,
// then either the primary whole or its chapters interleaved with mid-roll
// filler, then non-pad PostRoll, then at most one Pad-mode adjustment pass.
func composePrimary(base ScheduleItemBase, primary MediaItem, fc fillerContext, start time.Time) ([]draftItem, error) {
	padFiller, padCount := selectPadFiller(base)
	if padCount > 1 {
		fc.warnf("schedule item %d: more than one Pad-mode filler slot configured, falling back to primary alone", base.Index)
		return []draftItem{primaryWholeDraft(primary)}, nil
	}

	var items []draftItem

	if base.PreRollFiller != nil && base.PreRollFiller.Mode != FillerModePad {
		items = append(items, drainFiller(*base.PreRollFiller, FillerKindPreRoll, fc)...)
	}

	hasMidRollFamily := base.MidRollEnterFiller != nil || base.MidRollFiller != nil || base.MidRollExitFiller != nil
	effectiveChapters := primary.Chapters
	if !hasMidRollFamily || len(effectiveChapters) <= 1 {
		effectiveChapters = nil
	}

	if len(effectiveChapters) == 0 {
		items = append(items, primaryWholeDraft(primary))
	} else {
		midRollIsPad := base.MidRollFiller != nil && base.MidRollFiller.Mode == FillerModePad
		items = append(items, interleaveChapters(base, primary, effectiveChapters, fc, !midRollIsPad)...)
	}

	if base.PostRollFiller != nil && base.PostRollFiller.Mode != FillerModePad {
		items = append(items, drainFiller(*base.PostRollFiller, FillerKindPostRoll, fc)...)
	}

	if padFiller != nil {
		items = applyPad(base, effectiveChapters, items, *padFiller, fc, start)
	}

	return items, nil
}

func primaryWholeDraft(item MediaItem) draftItem {
	return draftItem{mediaItemID: item.ID, duration: item.Duration, kind: FillerKindNone}
}

func chapterDraft(item MediaItem, ch MediaChapter) draftItem {
	return draftItem{
		mediaItemID: item.ID,
		duration:    ch.EndTime - ch.StartTime,
		inPoint:     ch.StartTime,
		kind:        FillerKindNone,
	}
}

// selectPadFiller looks across the three slots Pad mode is meaningful for
// and returns the configured Pad filler, if exactly one exists, and how
// many were found (more than one is a BadConfiguration condition the caller
// recovers from).
func selectPadFiller(base ScheduleItemBase) (*FillerPreset, int) {
	var pad *FillerPreset
	count := 0
	for _, candidate := range []*FillerPreset{base.PreRollFiller, base.MidRollFiller, base.PostRollFiller} {
		if candidate != nil && candidate.Mode == FillerModePad {
			count++
			pad = candidate
		}
	}
	return pad, count
}

// interleaveChapters lays out chapters as primary drafts, inserting a
// mid-roll block between every consecutive pair. drainBody controls whether
// the mid-roll filler's own body is drained here (false when MidRollFiller
// is Pad-mode and will instead be handled by the pad pass against the
// already-laid-out gaps).
func interleaveChapters(base ScheduleItemBase, primary MediaItem, chapters []MediaChapter, fc fillerContext, drainBody bool) []draftItem {
	var items []draftItem
	for i, ch := range chapters {
		items = append(items, chapterDraft(primary, ch))
		if i == len(chapters)-1 {
			break
		}
		items = append(items, buildMidRollBlock(base, fc, drainBody)...)
	}
	return items
}

// buildMidRollBlock drains MidRollEnter, then the mid-roll body (if
// drainBody), then MidRollExit. If no body item materializes — the body
// slot is unconfigured, its collection is empty, or drainBody is false —
// any enter item already drained is rolled back: a mid-roll interruption
// never appears without its body.
func buildMidRollBlock(base ScheduleItemBase, fc fillerContext, drainBody bool) []draftItem {
	var enter []draftItem
	if base.MidRollEnterFiller != nil {
		enter = drainFiller(*base.MidRollEnterFiller, FillerKindMidRollEnter, fc)
	}

	var body []draftItem
	if drainBody && base.MidRollFiller != nil {
		body = drainFiller(*base.MidRollFiller, FillerKindMidRoll, fc)
	}
	if len(body) == 0 {
		return nil
	}

	block := append([]draftItem{}, enter...)
	block = append(block, body...)
	if base.MidRollExitFiller != nil {
		block = append(block, drainFiller(*base.MidRollExitFiller, FillerKindMidRollExit, fc)...)
	}
	return block
}

func drainFiller(preset FillerPreset, kind FillerKind, fc fillerContext) []draftItem {
	enumerator := fc.enumerators[preset.CollectionKey]
	if enumerator == nil {
		return nil
	}
	disableWatermarks := !preset.AllowWatermarks
	switch preset.Mode {
	case FillerModeCount:
		count := 0
		if preset.Count != nil {
			count = *preset.Count
		}
		return drainCount(enumerator, kind, count, disableWatermarks)
	case FillerModeDuration:
		var budget time.Duration
		if preset.Duration != nil {
			budget = *preset.Duration
		}
		return drainDuration(enumerator, kind, budget, disableWatermarks)
	default:
		return nil
	}
}

func drainCount(enumerator CollectionEnumerator, kind FillerKind, count int, disableWatermarks bool) []draftItem {
	var items []draftItem
	for i := 0; i < count; i++ {
		media, ok := enumerator.Current()
		if !ok {
			break
		}
		items = append(items, draftItem{mediaItemID: media.ID, duration: media.Duration, kind: kind, disableWatermarks: disableWatermarks})
		enumerator.MoveNext()
	}
	return items
}

// drainDuration appends items while the remaining budget can still fit
// something: an item too long for what's left is skipped (the enumerator
// still advances past it) rather than truncated, and draining stops for
// good once the remaining budget falls below every remaining item's
// minimum duration.
func drainDuration(enumerator CollectionEnumerator, kind FillerKind, budget time.Duration, disableWatermarks bool) []draftItem {
	if enumerator == nil {
		return nil
	}
	var items []draftItem
	remaining := budget
	const safetyLimit = 100000 // guards against a pathological non-terminating enumerator
	for i := 0; remaining > 0 && i < safetyLimit; i++ {
		if minDur, hasMin := enumerator.MinimumDuration(); hasMin && remaining < minDur {
			break
		}
		media, ok := enumerator.Current()
		if !ok {
			break
		}
		if media.Duration > remaining {
			if !enumerator.MoveNext() {
				break
			}
			continue
		}
		items = append(items, draftItem{mediaItemID: media.ID, duration: media.Duration, kind: kind, disableWatermarks: disableWatermarks})
		remaining -= media.Duration
		enumerator.MoveNext()
	}
	return items
}

// applyPad runs the pad pass: at most one of PreRoll/MidRoll/PostRoll may
// be Pad-mode, and it alone absorbs the gap between the items already laid
// out and the next pad-to-nearest-minute boundary.
func applyPad(base ScheduleItemBase, effectiveChapters []MediaChapter, items []draftItem, padFiller FillerPreset, fc fillerContext, start time.Time) []draftItem {
	padN := 1
	if padFiller.PadToNearestMinute != nil {
		padN = *padFiller.PadToNearestMinute
	}

	local := start.Add(sumDraftDuration(items)).In(fc.loc)
	target := roundUpToMinute(local, padN)
	remaining := target.Sub(local)
	if remaining <= 0 {
		return items
	}

	switch padFiller.Kind {
	case FillerKindPreRoll:
		fill := drainDuration(fc.enumerators[padFiller.CollectionKey], FillerKindPreRoll, remaining, !padFiller.AllowWatermarks)
		used := sumDraftDuration(fill)
		if shortfall := remaining - used; shortfall > 0 {
			fill = append(fill, fallbackDraft(base, fc, shortfall))
		}
		return append(fill, items...)
	case FillerKindPostRoll:
		fill := drainDuration(fc.enumerators[padFiller.CollectionKey], FillerKindPostRoll, remaining, !padFiller.AllowWatermarks)
		used := sumDraftDuration(fill)
		if shortfall := remaining - used; shortfall > 0 {
			fill = append(fill, fallbackDraft(base, fc, shortfall))
		}
		return append(items, fill...)
	case FillerKindMidRoll:
		return applyMidRollPad(base, effectiveChapters, items, remaining, fc)
	default:
		return items
	}
}

// applyMidRollPad spreads remaining evenly across the gaps between
// chapters, each gap getting its own enter/body/exit block (or a fallback
// item if the body can't be drained). With no chapters to anchor on, the
// whole remainder is pushed to a trailing fallback instead.
func applyMidRollPad(base ScheduleItemBase, chapters []MediaChapter, items []draftItem, remaining time.Duration, fc fillerContext) []draftItem {
	gaps := len(chapters) - 1
	if gaps < 1 {
		return append(items, fallbackDraft(base, fc, remaining))
	}

	splitAt := len(items)
	for splitAt > 0 && items[splitAt-1].kind == FillerKindPostRoll {
		splitAt--
	}
	head, tail := items[:splitAt], items[splitAt:]

	average := remaining / time.Duration(gaps)
	var rebuilt []draftItem
	var filled time.Duration
	for i, it := range head {
		rebuilt = append(rebuilt, it)
		atChapterBoundary := it.kind == FillerKindNone && i < len(head)-1 && head[i+1].kind == FillerKindNone
		if !atChapterBoundary {
			continue
		}
		if filled >= remaining {
			continue
		}
		share := average
		if left := remaining - filled; share > left {
			share = left
		}
		block, used := fillMidRollGap(base, fc, share)
		filled += used
		rebuilt = append(rebuilt, block...)
	}

	if filled < remaining {
		rebuilt = append(rebuilt, fallbackDraft(base, fc, remaining-filled))
	}

	return append(rebuilt, tail...)
}

// fillMidRollGap builds one gap's enter/body/exit block sized to at most
// budget: enter and exit are drained first and the body fills what they
// leave. If the body can't be drained at all, the gap is covered by a single
// fallback item sized to budget and any enter or exit item is dropped unused.
func fillMidRollGap(base ScheduleItemBase, fc fillerContext, budget time.Duration) ([]draftItem, time.Duration) {
	var enter []draftItem
	var enterUsed time.Duration
	if base.MidRollEnterFiller != nil {
		enter = drainFiller(*base.MidRollEnterFiller, FillerKindMidRollEnter, fc)
		enterUsed = sumDraftDuration(enter)
	}

	var exit []draftItem
	var exitUsed time.Duration
	if base.MidRollExitFiller != nil {
		exit = drainFiller(*base.MidRollExitFiller, FillerKindMidRollExit, fc)
		exitUsed = sumDraftDuration(exit)
	}

	var body []draftItem
	if base.MidRollFiller != nil && budget > enterUsed+exitUsed {
		body = drainDuration(fc.enumerators[base.MidRollFiller.CollectionKey], FillerKindMidRoll, budget-enterUsed-exitUsed, !base.MidRollFiller.AllowWatermarks)
	}
	if len(body) == 0 {
		return []draftItem{fallbackDraft(base, fc, budget)}, budget
	}

	block := append([]draftItem{}, enter...)
	block = append(block, body...)
	block = append(block, exit...)
	return block, enterUsed + sumDraftDuration(body) + exitUsed
}

// restamp converts an ordered draft sequence into concrete PlayoutItems
// starting at start, all sharing guideGroup. This is the only place start
// times are assigned — composition works purely in durations until now.
func restamp(items []draftItem, start time.Time, guideGroup int64) []PlayoutItem {
	cursor := start
	out := make([]PlayoutItem, 0, len(items))
	for _, it := range items {
		finish := cursor.Add(it.duration)
		pi := PlayoutItem{
			MediaItemID:       it.mediaItemID,
			Start:             cursor,
			Finish:            finish,
			InPoint:           it.inPoint,
			GuideGroup:        guideGroup,
			FillerKind:        it.kind,
			DisableWatermarks: it.disableWatermarks,
		}
		if !it.playToFinish {
			pi.OutPoint = it.inPoint + it.duration
		}
		out = append(out, pi)
		cursor = finish
	}
	return out
}

// buildPrimaryItems composes and restamps one primary selection in a
// single call; every mode scheduler goes through this.
func buildPrimaryItems(base ScheduleItemBase, primary MediaItem, fc fillerContext, start time.Time, guideGroup int64) ([]PlayoutItem, error) {
	drafts, err := composePrimary(base, primary, fc, start)
	if err != nil {
		return nil, err
	}
	return restamp(drafts, start, guideGroup), nil
}

func lastFinish(items []PlayoutItem, fallback time.Time) time.Time {
	if len(items) == 0 {
		return fallback
	}
	return items[len(items)-1].Finish
}

// appendTailFiller drains a tail filler collection, item by item, stopping
// before any item would cross boundary. Shared by Flood's end-of-run tail
// and Duration's TailFiller disposition.
func appendTailFiller(state PlayoutBuilderState, tailFiller FillerPreset, boundary time.Time, fc fillerContext) (PlayoutBuilderState, []PlayoutItem) {
	enumerator := fc.enumerators[tailFiller.CollectionKey]
	if enumerator == nil {
		return state, nil
	}
	var items []PlayoutItem
	cur := state
	for {
		media, ok := enumerator.Current()
		if !ok {
			break
		}
		finish := cur.CurrentTime.Add(media.Duration)
		if finish.After(boundary) {
			break
		}
		items = append(items, PlayoutItem{
			MediaItemID:       media.ID,
			Start:             cur.CurrentTime,
			Finish:            finish,
			OutPoint:          media.Duration,
			FillerKind:        FillerKindTail,
			DisableWatermarks: !tailFiller.AllowWatermarks,
		})
		enumerator.MoveNext()
		cur = advance(cur, func(s *PlayoutBuilderState) { s.CurrentTime = finish })
	}
	return cur, items
}
