/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package playout

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func mustLoc(t *testing.T, name string) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation(name)
	require.NoError(t, err)
	return loc
}

func TestGetStartTimeAfterDynamicContinues(t *testing.T) {
	loc := time.UTC
	state := PlayoutBuilderState{CurrentTime: time.Date(2026, 3, 1, 10, 0, 0, 0, loc)}
	item := &OnceItem{ScheduleItemBase{StartType: StartDynamic}}
	got := GetStartTimeAfter(state, item, loc)
	require.Equal(t, state.CurrentTime, got)
}

func TestGetStartTimeAfterFixedFiresImmediatelyAtExactAnchor(t *testing.T) {
	loc := time.UTC
	anchor := time.Date(2026, 3, 1, 20, 0, 0, 0, loc)
	state := PlayoutBuilderState{CurrentTime: anchor}
	item := &OnceItem{ScheduleItemBase{StartType: StartFixed, StartTime: 20 * time.Hour}}
	got := GetStartTimeAfter(state, item, loc)
	require.Equal(t, anchor, got)
}

func TestGetStartTimeAfterFixedRollsToNextDayWhenPassed(t *testing.T) {
	loc := time.UTC
	state := PlayoutBuilderState{CurrentTime: time.Date(2026, 3, 1, 20, 30, 0, 0, loc)}
	item := &OnceItem{ScheduleItemBase{StartType: StartFixed, StartTime: 20 * time.Hour}}
	got := GetStartTimeAfter(state, item, loc)
	require.Equal(t, time.Date(2026, 3, 2, 20, 0, 0, 0, loc), got)
}

func TestGetStartTimeAfterFixedMidProgressContinues(t *testing.T) {
	loc := time.UTC
	cur := time.Date(2026, 3, 1, 20, 10, 0, 0, loc)
	remaining := 3
	state := PlayoutBuilderState{CurrentTime: cur, MultipleRemaining: &remaining}
	item := &MultipleItem{ScheduleItemBase: ScheduleItemBase{StartType: StartFixed, StartTime: 20 * time.Hour}, Count: 5}
	got := GetStartTimeAfter(state, item, loc)
	require.Equal(t, cur, got)
}

func TestGetStartTimeAfterFixedIsDSTSafe(t *testing.T) {
	// America/New_York springs forward at 2026-03-08 02:00 local -> 03:00.
	loc := mustLoc(t, "America/New_York")
	state := PlayoutBuilderState{CurrentTime: time.Date(2026, 3, 8, 1, 0, 0, 0, loc).UTC()}
	item := &OnceItem{ScheduleItemBase{StartType: StartFixed, StartTime: 20 * time.Hour}} // 20:00 local
	got := GetStartTimeAfter(state, item, loc)
	local := got.In(loc)
	require.Equal(t, 20, local.Hour())
	require.Equal(t, 8, local.Day())
}

func TestGetFillerStartTimeAfterClampsToHardStop(t *testing.T) {
	loc := time.UTC
	hardStop := time.Date(2026, 3, 1, 20, 0, 0, 0, loc)
	state := PlayoutBuilderState{CurrentTime: time.Date(2026, 3, 1, 21, 0, 0, 0, loc)}
	item := &OnceItem{ScheduleItemBase{StartType: StartDynamic}}
	got := GetFillerStartTimeAfter(state, item, hardStop, loc)
	require.Equal(t, hardStop, got)
}

func TestRoundUpToMinuteAlreadyAligned(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 20, 30, 0, 0, time.UTC)
	require.Equal(t, t0, roundUpToMinute(t0, 30))
}

func TestRoundUpToMinuteRoundsForward(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 20, 40, 0, 0, time.UTC)
	got := roundUpToMinute(t0, 30)
	require.Equal(t, time.Date(2026, 3, 1, 21, 0, 0, 0, time.UTC), got)
}

func TestRoundUpToMinuteCrossesMidnight(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 23, 50, 0, 0, time.UTC)
	got := roundUpToMinute(t0, 15)
	require.Equal(t, time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), got)
}
