/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package playout

import "time"

// isMidProgress reports whether state still holds progress for item that
// should suppress re-anchoring to its fixed start time (the item is
// continuing a Flood run, a partial Multiple count, or a Duration window
// rather than starting fresh).
func isMidProgress(item ScheduleItem, state PlayoutBuilderState) bool {
	switch item.(type) {
	case *MultipleItem:
		return state.MultipleRemaining != nil
	case *DurationItem:
		return state.DurationFinish != nil || state.InDurationFiller
	case *FloodItem:
		return state.InFlood
	default:
		return false
	}
}

// GetStartTimeAfter computes the instant a schedule item should start from,
// given the builder is currently at state.CurrentTime. Dynamic items, and
// fixed items that are mid-progress, simply continue from CurrentTime.
// Fresh fixed items anchor to the next occurrence (today or tomorrow, in
// the station's local time zone) of their time-of-day offset — computed
// against the wall-clock date so DST transitions shift the UTC instant but
// never the local clock reading.
func GetStartTimeAfter(state PlayoutBuilderState, item ScheduleItem, loc *time.Location) time.Time {
	base := item.Base()
	if base.StartType != StartFixed || isMidProgress(item, state) {
		return state.CurrentTime
	}

	local := state.CurrentTime.In(loc)
	h := int(base.StartTime / time.Hour)
	m := int(base.StartTime % time.Hour / time.Minute)
	s := int(base.StartTime % time.Minute / time.Second)
	ns := int(base.StartTime % time.Second)
	anchor := time.Date(local.Year(), local.Month(), local.Day(), h, m, s, ns, loc)
	if local.After(anchor) {
		anchor = anchor.AddDate(0, 0, 1)
	}
	return anchor.UTC()
}

// GetFillerStartTimeAfter is GetStartTimeAfter clamped to hardStop: a
// filler slot never starts a build past the point the whole build must
// stop.
func GetFillerStartTimeAfter(state PlayoutBuilderState, item ScheduleItem, hardStop time.Time, loc *time.Location) time.Time {
	t := GetStartTimeAfter(state, item, loc)
	if t.After(hardStop) {
		return hardStop
	}
	return t
}

// roundUpToMinute returns the next instant, at or after t, that falls on a
// multiple-of-n-minutes boundary with zero seconds and nanoseconds. If t is
// already on such a boundary, t is returned unchanged.
func roundUpToMinute(t time.Time, n int) time.Time {
	if n <= 0 {
		n = 1
	}
	if t.Second() == 0 && t.Nanosecond() == 0 && t.Minute()%n == 0 {
		return t
	}
	dayStart := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	minutesSinceMidnight := t.Hour()*60 + t.Minute()
	next := (minutesSinceMidnight/n + 1) * n
	days := next / (24 * 60)
	rem := next % (24 * 60)
	return dayStart.AddDate(0, 0, days).Add(time.Duration(rem) * time.Minute)
}
