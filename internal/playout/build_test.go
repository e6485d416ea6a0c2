/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package playout

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func ptrDuration(d time.Duration) *time.Duration { return &d }
func ptrInt(i int) *int                           { return &i }

func mustPreset(t *testing.T, preset FillerPreset) *FillerPreset {
	t.Helper()
	out, err := NewFillerPreset(preset)
	require.NoError(t, err)
	return out
}

var keyPrimary = CollectionKey{CollectionType: "collection", ID: "primary"}
var keyTail = CollectionKey{CollectionType: "collection", ID: "tail"}
var keyPostRoll = CollectionKey{CollectionType: "collection", ID: "postroll"}
var keyMid = CollectionKey{CollectionType: "collection", ID: "mid"}
var keyMidEnter = CollectionKey{CollectionType: "collection", ID: "mid-enter"}
var keyMidExit = CollectionKey{CollectionType: "collection", ID: "mid-exit"}

// S1 — Fixed-start Once, no filler.
func TestScenarioOnceFixedStartNoFiller(t *testing.T) {
	loc := time.UTC
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, loc)
	schedule := []ScheduleItem{
		&OnceItem{ScheduleItemBase{CollectionKey: keyPrimary, StartType: StartFixed, StartTime: 20 * time.Hour}},
	}
	enumerators := map[CollectionKey]CollectionEnumerator{
		keyPrimary: NewSliceEnumerator([]MediaItem{{ID: "m1", Duration: 30 * time.Minute}}),
	}

	result, err := BuildPlayout(context.Background(), BuildRequest{
		Schedule:     schedule,
		Enumerators:  enumerators,
		InitialState: PlayoutBuilderState{CurrentTime: start},
		HardStop:     start.Add(24 * time.Hour),
		Location:     loc,
	})
	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	item := result.Items[0]
	require.Equal(t, time.Date(2026, 3, 1, 20, 0, 0, 0, loc), item.Start)
	require.Equal(t, time.Date(2026, 3, 1, 20, 30, 0, 0, loc), item.Finish)
	require.Equal(t, FillerKindNone, item.FillerKind)
}

// S2 — Flood with tail filler.
func TestScenarioFloodWithTailFiller(t *testing.T) {
	loc := time.UTC
	start := time.Date(2026, 3, 1, 20, 0, 0, 0, loc)
	primaries := make([]MediaItem, 10)
	for i := range primaries {
		primaries[i] = MediaItem{ID: "p", Duration: 25 * time.Minute}
	}
	tails := make([]MediaItem, 20)
	for i := range tails {
		tails[i] = MediaItem{ID: "t", Duration: 2 * time.Minute}
	}

	schedule := []ScheduleItem{
		&FloodItem{ScheduleItemBase{
			CollectionKey: keyPrimary,
			StartType:     StartDynamic,
			TailFiller:    mustPreset(t, FillerPreset{Kind: FillerKindTail, Mode: FillerModeDuration, Duration: ptrDuration(0), CollectionKey: keyTail}),
		}},
		&OnceItem{ScheduleItemBase{CollectionKey: CollectionKey{CollectionType: "collection", ID: "next-show"}, StartType: StartFixed, StartTime: 22 * time.Hour}},
	}
	enumerators := map[CollectionKey]CollectionEnumerator{
		keyPrimary: NewSliceEnumerator(primaries),
		keyTail:    NewSliceEnumerator(tails),
	}

	result, err := BuildPlayout(context.Background(), BuildRequest{
		Schedule:     schedule,
		Enumerators:  enumerators,
		InitialState: PlayoutBuilderState{CurrentTime: start},
		HardStop:     start.Add(24 * time.Hour),
		Location:     loc,
	})
	require.NoError(t, err)

	var primaryItems, tailItems []PlayoutItem
	for _, it := range result.Items {
		switch it.FillerKind {
		case FillerKindNone:
			primaryItems = append(primaryItems, it)
		case FillerKindTail:
			tailItems = append(tailItems, it)
		}
	}
	require.Len(t, primaryItems, 4) // 20:00, 20:25, 20:50, 21:15 - a 5th would end at 22:05, over.
	require.Equal(t, time.Date(2026, 3, 1, 21, 40, 0, 0, loc), primaryItems[3].Finish)
	require.Len(t, tailItems, 10) // 20 minutes of 2-minute items exactly reaches 22:00.
	require.Equal(t, time.Date(2026, 3, 1, 22, 0, 0, 0, loc), tailItems[len(tailItems)-1].Finish)
}

// S3 — Pad to nearest 30 minutes, PostRoll.
func TestScenarioPadToNearestMinutePostRoll(t *testing.T) {
	loc := time.UTC
	start := time.Date(2026, 3, 1, 20, 0, 0, 0, loc)
	schedule := []ScheduleItem{
		&OnceItem{ScheduleItemBase{
			CollectionKey:  keyPrimary,
			StartType:      StartDynamic,
			PostRollFiller: mustPreset(t, FillerPreset{Kind: FillerKindPostRoll, Mode: FillerModePad, PadToNearestMinute: ptrInt(30), CollectionKey: keyPostRoll}),
		}},
	}
	enumerators := map[CollectionKey]CollectionEnumerator{
		keyPrimary:  NewSliceEnumerator([]MediaItem{{ID: "p", Duration: 40 * time.Minute}}),
		keyPostRoll: NewSliceEnumerator([]MediaItem{{ID: "pr", Duration: 7 * time.Minute}}),
	}

	result, err := BuildPlayout(context.Background(), BuildRequest{
		Schedule:     schedule,
		Enumerators:  enumerators,
		InitialState: PlayoutBuilderState{CurrentTime: start},
		HardStop:     start.Add(24 * time.Hour),
		Location:     loc,
	})
	require.NoError(t, err)
	require.Len(t, result.Items, 3) // primary, 7-min filler, fallback shortfall.

	require.Equal(t, start, result.Items[0].Start)
	require.Equal(t, time.Date(2026, 3, 1, 20, 40, 0, 0, loc), result.Items[0].Finish)

	require.Equal(t, FillerKindPostRoll, result.Items[1].FillerKind)
	require.Equal(t, 7*time.Minute, result.Items[1].Finish.Sub(result.Items[1].Start))

	last := result.Items[2]
	require.Equal(t, FillerKindFallback, last.FillerKind)
	require.Equal(t, time.Date(2026, 3, 1, 21, 0, 0, 0, loc), last.Finish)
	require.Equal(t, time.Duration(0), last.OutPoint) // fallback plays to Finish.

	total := last.Finish.Sub(result.Items[0].Start)
	require.Equal(t, time.Hour, total)
}

func chapteredPrimary() MediaItem {
	return MediaItem{
		ID:       "c",
		Duration: 40 * time.Second,
		Chapters: []MediaChapter{
			{StartTime: 0, EndTime: 10 * time.Second},
			{StartTime: 10 * time.Second, EndTime: 25 * time.Second},
			{StartTime: 25 * time.Second, EndTime: 40 * time.Second},
		},
	}
}

// S4 — Mid-roll with chapters.
func TestScenarioMidRollWithChapters(t *testing.T) {
	loc := time.UTC
	start := time.Date(2026, 3, 1, 20, 0, 0, 0, loc)
	base := ScheduleItemBase{
		CollectionKey:      keyPrimary,
		StartType:          StartDynamic,
		MidRollEnterFiller: mustPreset(t, FillerPreset{Kind: FillerKindMidRollEnter, Mode: FillerModeCount, Count: ptrInt(1), CollectionKey: keyMidEnter}),
		MidRollFiller:      mustPreset(t, FillerPreset{Kind: FillerKindMidRoll, Mode: FillerModeCount, Count: ptrInt(1), CollectionKey: keyMid}),
		MidRollExitFiller:  mustPreset(t, FillerPreset{Kind: FillerKindMidRollExit, Mode: FillerModeCount, Count: ptrInt(1), CollectionKey: keyMidExit}),
	}
	schedule := []ScheduleItem{&OnceItem{base}}
	enumerators := map[CollectionKey]CollectionEnumerator{
		keyPrimary:  NewSliceEnumerator([]MediaItem{chapteredPrimary()}),
		keyMidEnter: NewSliceEnumerator([]MediaItem{{ID: "enter", Duration: 5 * time.Second}, {ID: "enter", Duration: 5 * time.Second}}),
		keyMid:      NewSliceEnumerator([]MediaItem{{ID: "mid", Duration: 60 * time.Second}, {ID: "mid", Duration: 60 * time.Second}}),
		keyMidExit:  NewSliceEnumerator([]MediaItem{{ID: "exit", Duration: 5 * time.Second}, {ID: "exit", Duration: 5 * time.Second}}),
	}

	result, err := BuildPlayout(context.Background(), BuildRequest{
		Schedule:     schedule,
		Enumerators:  enumerators,
		InitialState: PlayoutBuilderState{CurrentTime: start},
		HardStop:     start.Add(24 * time.Hour),
		Location:     loc,
	})
	require.NoError(t, err)
	require.Len(t, result.Items, 9)

	kinds := make([]FillerKind, len(result.Items))
	for i, it := range result.Items {
		kinds[i] = it.FillerKind
	}
	require.Equal(t, []FillerKind{
		FillerKindNone, FillerKindMidRollEnter, FillerKindMidRoll, FillerKindMidRollExit,
		FillerKindNone, FillerKindMidRollEnter, FillerKindMidRoll, FillerKindMidRollExit,
		FillerKindNone,
	}, kinds)

	require.Equal(t, time.Duration(0), result.Items[0].InPoint)
	require.Equal(t, 10*time.Second, result.Items[4].InPoint)
	require.Equal(t, 25*time.Second, result.Items[8].InPoint)
}

// S5 — Mid-roll rollback.
func TestScenarioMidRollRollback(t *testing.T) {
	loc := time.UTC
	start := time.Date(2026, 3, 1, 20, 0, 0, 0, loc)
	base := ScheduleItemBase{
		CollectionKey:      keyPrimary,
		StartType:          StartDynamic,
		MidRollEnterFiller: mustPreset(t, FillerPreset{Kind: FillerKindMidRollEnter, Mode: FillerModeCount, Count: ptrInt(1), CollectionKey: keyMidEnter}),
		MidRollFiller:      mustPreset(t, FillerPreset{Kind: FillerKindMidRoll, Mode: FillerModeDuration, Duration: ptrDuration(0), CollectionKey: keyMid}),
		MidRollExitFiller:  mustPreset(t, FillerPreset{Kind: FillerKindMidRollExit, Mode: FillerModeCount, Count: ptrInt(1), CollectionKey: keyMidExit}),
	}
	schedule := []ScheduleItem{&OnceItem{base}}
	enumerators := map[CollectionKey]CollectionEnumerator{
		keyPrimary:  NewSliceEnumerator([]MediaItem{chapteredPrimary()}),
		keyMidEnter: NewSliceEnumerator([]MediaItem{{ID: "enter", Duration: 5 * time.Second}}),
		keyMid:      NewSliceEnumerator(nil),
		keyMidExit:  NewSliceEnumerator([]MediaItem{{ID: "exit", Duration: 5 * time.Second}}),
	}

	result, err := BuildPlayout(context.Background(), BuildRequest{
		Schedule:     schedule,
		Enumerators:  enumerators,
		InitialState: PlayoutBuilderState{CurrentTime: start},
		HardStop:     start.Add(24 * time.Hour),
		Location:     loc,
	})
	require.NoError(t, err)
	require.Len(t, result.Items, 3)
	for _, it := range result.Items {
		require.Equal(t, FillerKindNone, it.FillerKind)
	}
}

// cancelingEnumerator triggers a cancellation after a configured number of
// MoveNext calls, used to simulate a mid-build context cancellation.
type cancelingEnumerator struct {
	*SliceEnumerator
	after  int
	count  int
	cancel context.CancelFunc
}

func (e *cancelingEnumerator) MoveNext() bool {
	e.count++
	ok := e.SliceEnumerator.MoveNext()
	if e.count == e.after {
		e.cancel()
	}
	return ok
}

// S6 — Multiple with cancellation.
func TestScenarioMultipleWithCancellation(t *testing.T) {
	loc := time.UTC
	start := time.Date(2026, 3, 1, 20, 0, 0, 0, loc)
	items := make([]MediaItem, 10)
	for i := range items {
		items[i] = MediaItem{ID: "m", Duration: time.Minute}
	}

	ctx, cancel := context.WithCancel(context.Background())
	enumerator := &cancelingEnumerator{SliceEnumerator: NewSliceEnumerator(items), after: 5, cancel: cancel}

	multi := &MultipleItem{ScheduleItemBase: ScheduleItemBase{CollectionKey: keyPrimary, StartType: StartDynamic}, Count: 10}
	fc := fillerContext{enumerators: map[CollectionKey]CollectionEnumerator{keyPrimary: enumerator}, loc: loc}

	state, out, err := scheduleMultiple(ctx, PlayoutBuilderState{CurrentTime: start}, multi, fc)
	require.Error(t, err)
	var be *BuildError
	require.ErrorAs(t, err, &be)
	require.Equal(t, ErrorScanCanceled, be.Kind)
	require.Len(t, out, 5)
	require.NotNil(t, state.MultipleRemaining)
	require.Equal(t, 5, *state.MultipleRemaining)
}

// Invariant 1 & 4: contiguous items, and total duration equals span.
func TestInvariantContiguousAndConservesDuration(t *testing.T) {
	loc := time.UTC
	start := time.Date(2026, 3, 1, 20, 0, 0, 0, loc)
	items := make([]MediaItem, 5)
	for i := range items {
		items[i] = MediaItem{ID: "m", Duration: 10 * time.Minute}
	}
	multi := &MultipleItem{ScheduleItemBase: ScheduleItemBase{CollectionKey: keyPrimary, StartType: StartDynamic}, Count: 5}
	fc := fillerContext{enumerators: map[CollectionKey]CollectionEnumerator{keyPrimary: NewSliceEnumerator(items)}, loc: loc}

	_, out, err := scheduleMultiple(context.Background(), PlayoutBuilderState{CurrentTime: start}, multi, fc)
	require.NoError(t, err)
	require.Len(t, out, 5)

	for i := 0; i < len(out)-1; i++ {
		require.Equal(t, out[i].Finish, out[i+1].Start)
	}
	require.Equal(t, start, out[0].Start)
	require.Equal(t, out[len(out)-1].Finish.Sub(out[0].Start), 50*time.Minute)
}

// Invariant 3: no item finishes past the hard stop.
func TestInvariantRespectsHardStop(t *testing.T) {
	loc := time.UTC
	start := time.Date(2026, 3, 1, 20, 0, 0, 0, loc)
	hardStop := start.Add(45 * time.Minute)
	items := make([]MediaItem, 20)
	for i := range items {
		items[i] = MediaItem{ID: "m", Duration: 10 * time.Minute}
	}
	schedule := []ScheduleItem{&FloodItem{ScheduleItemBase{CollectionKey: keyPrimary, StartType: StartDynamic}}}

	result, err := BuildPlayout(context.Background(), BuildRequest{
		Schedule:     schedule,
		Enumerators:  map[CollectionKey]CollectionEnumerator{keyPrimary: NewLoopEnumerator(items)},
		InitialState: PlayoutBuilderState{CurrentTime: start},
		HardStop:     hardStop,
		Location:     loc,
	})
	require.NoError(t, err)
	for _, it := range result.Items {
		require.False(t, it.Finish.After(hardStop))
	}
}

// Invariant 5: NextGuideGroup strictly increases across distinct primaries.
func TestInvariantGuideGroupMonotonic(t *testing.T) {
	loc := time.UTC
	start := time.Date(2026, 3, 1, 20, 0, 0, 0, loc)
	items := make([]MediaItem, 3)
	for i := range items {
		items[i] = MediaItem{ID: "m", Duration: 5 * time.Minute}
	}
	multi := &MultipleItem{ScheduleItemBase: ScheduleItemBase{CollectionKey: keyPrimary, StartType: StartDynamic}, Count: 3}
	fc := fillerContext{enumerators: map[CollectionKey]CollectionEnumerator{keyPrimary: NewSliceEnumerator(items)}, loc: loc}

	_, out, err := scheduleMultiple(context.Background(), PlayoutBuilderState{CurrentTime: start}, multi, fc)
	require.NoError(t, err)

	seen := map[int64]bool{}
	var last int64 = -1
	for _, it := range out {
		if !seen[it.GuideGroup] {
			require.Greater(t, it.GuideGroup, last)
			last = it.GuideGroup
			seen[it.GuideGroup] = true
		}
	}
}

// Resume after a mid-item ScanCanceled must re-enter the interrupted
// schedule item rather than skip it, so MultipleRemaining actually gets
// consumed on the next call.
func TestResumeAfterMidItemCancelReentersSameItem(t *testing.T) {
	loc := time.UTC
	start := time.Date(2026, 3, 1, 20, 0, 0, 0, loc)
	items := make([]MediaItem, 10)
	for i := range items {
		items[i] = MediaItem{ID: "m", Duration: time.Minute}
	}

	ctx, cancel := context.WithCancel(context.Background())
	enumerator := &cancelingEnumerator{SliceEnumerator: NewSliceEnumerator(items), after: 5, cancel: cancel}

	schedule := []ScheduleItem{
		&MultipleItem{ScheduleItemBase: ScheduleItemBase{CollectionKey: keyPrimary, StartType: StartDynamic}, Count: 10},
	}

	result, err := BuildPlayout(ctx, BuildRequest{
		Schedule:     schedule,
		Enumerators:  map[CollectionKey]CollectionEnumerator{keyPrimary: enumerator},
		InitialState: PlayoutBuilderState{CurrentTime: start},
		HardStop:     start.Add(24 * time.Hour),
		Location:     loc,
	})
	require.Error(t, err)
	var be *BuildError
	require.ErrorAs(t, err, &be)
	require.Equal(t, ErrorScanCanceled, be.Kind)
	require.Len(t, result.Items, 5)
	require.Equal(t, 0, result.State.NextScheduleIndex) // item 0 is still in progress, not skipped.
	require.NotNil(t, result.State.MultipleRemaining)
	require.Equal(t, 5, *result.State.MultipleRemaining)

	resumed, err := BuildPlayout(context.Background(), BuildRequest{
		Schedule:     schedule,
		Enumerators:  map[CollectionKey]CollectionEnumerator{keyPrimary: enumerator.SliceEnumerator},
		InitialState: result.State,
		HardStop:     start.Add(24 * time.Hour),
		Location:     loc,
	})
	require.NoError(t, err)
	require.Len(t, resumed.Items, 5) // the remaining 5 of the original Count=10.
	require.Equal(t, len(schedule), resumed.State.NextScheduleIndex)
}

// FallbackFiller supplies the shortfall item's media identity, not just its
// size, when a fallback collection is configured.
func TestFallbackFillerSuppliesMediaIdentity(t *testing.T) {
	loc := time.UTC
	start := time.Date(2026, 3, 1, 20, 0, 0, 0, loc)
	keyFallback := CollectionKey{CollectionType: "collection", ID: "fallback"}
	schedule := []ScheduleItem{
		&OnceItem{ScheduleItemBase{
			CollectionKey:  keyPrimary,
			StartType:      StartDynamic,
			PostRollFiller: mustPreset(t, FillerPreset{Kind: FillerKindPostRoll, Mode: FillerModePad, PadToNearestMinute: ptrInt(30), CollectionKey: keyPostRoll}),
			FallbackFiller: mustPreset(t, FillerPreset{Kind: FillerKindFallback, Mode: FillerModeDuration, Duration: ptrDuration(0), CollectionKey: keyFallback}),
		}},
	}
	enumerators := map[CollectionKey]CollectionEnumerator{
		keyPrimary:  NewSliceEnumerator([]MediaItem{{ID: "p", Duration: 40 * time.Minute}}),
		keyPostRoll: NewSliceEnumerator([]MediaItem{{ID: "pr", Duration: 7 * time.Minute}}),
		keyFallback: NewSliceEnumerator([]MediaItem{{ID: "standby-loop", Duration: time.Hour}}),
	}

	result, err := BuildPlayout(context.Background(), BuildRequest{
		Schedule:     schedule,
		Enumerators:  enumerators,
		InitialState: PlayoutBuilderState{CurrentTime: start},
		HardStop:     start.Add(24 * time.Hour),
		Location:     loc,
	})
	require.NoError(t, err)
	require.Len(t, result.Items, 3)

	last := result.Items[2]
	require.Equal(t, FillerKindFallback, last.FillerKind)
	require.Equal(t, "standby-loop", last.MediaItemID) // sourced from FallbackFiller, not left blank.
	require.Equal(t, time.Duration(0), last.OutPoint)   // still plays to Finish regardless of the media's own length.
}

// DisableWatermarks is derived from the active FillerPreset.AllowWatermarks
// wherever filler items are assembled, not left permanently false.
func TestDisableWatermarksDerivedFromFillerPreset(t *testing.T) {
	loc := time.UTC
	start := time.Date(2026, 3, 1, 20, 0, 0, 0, loc)
	schedule := []ScheduleItem{
		&OnceItem{ScheduleItemBase{
			CollectionKey:  keyPrimary,
			StartType:      StartDynamic,
			PostRollFiller: mustPreset(t, FillerPreset{Kind: FillerKindPostRoll, Mode: FillerModeDuration, Duration: ptrDuration(7 * time.Minute), AllowWatermarks: false, CollectionKey: keyPostRoll}),
		}},
	}
	enumerators := map[CollectionKey]CollectionEnumerator{
		keyPrimary:  NewSliceEnumerator([]MediaItem{{ID: "p", Duration: 40 * time.Minute}}),
		keyPostRoll: NewSliceEnumerator([]MediaItem{{ID: "pr", Duration: 7 * time.Minute}}),
	}

	result, err := BuildPlayout(context.Background(), BuildRequest{
		Schedule:     schedule,
		Enumerators:  enumerators,
		InitialState: PlayoutBuilderState{CurrentTime: start},
		HardStop:     start.Add(24 * time.Hour),
		Location:     loc,
	})
	require.NoError(t, err)
	require.Len(t, result.Items, 2)

	require.False(t, result.Items[0].DisableWatermarks) // primary content always keeps watermarks.
	require.True(t, result.Items[1].DisableWatermarks)  // post-roll preset has AllowWatermarks=false.
}

// Round-trip: resuming from a final state with an empty remaining schedule
// yields zero items and an unchanged state.
func TestRoundTripResumeFromFinalStateIsNoop(t *testing.T) {
	loc := time.UTC
	start := time.Date(2026, 3, 1, 20, 0, 0, 0, loc)
	finalState := PlayoutBuilderState{CurrentTime: start, NextScheduleIndex: 0, NextGuideGroup: 3}

	result, err := BuildPlayout(context.Background(), BuildRequest{
		Schedule:     nil,
		Enumerators:  map[CollectionKey]CollectionEnumerator{},
		InitialState: finalState,
		HardStop:     start.Add(time.Hour),
		Location:     loc,
	})
	require.NoError(t, err)
	require.Empty(t, result.Items)
	require.Equal(t, finalState, result.State)
}
