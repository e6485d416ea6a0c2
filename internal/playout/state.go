/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package playout

import "time"

// PlayoutBuilderState is the full, serializable progress of a build: the
// next instant to schedule from, the next guide-group id to assign, and
// whatever mid-item progress a Flood/Multiple/Duration schedule item left
// behind when the previous build stopped. Two builds given the same state
// and the same schedule/collections produce identical output.
type PlayoutBuilderState struct {
	CurrentTime time.Time

	// NextScheduleIndex is the index into the schedule slice to resume
	// from; it lets a canceled build continue exactly where it left off
	// instead of re-running already-built schedule items.
	NextScheduleIndex int

	// NextGuideGroup is strictly monotonic across distinct primary item
	// selections; every draft produced for one primary shares a value.
	NextGuideGroup int64

	InFlood bool

	// MultipleRemaining carries the outstanding count for a Multiple
	// schedule item interrupted mid-run. Nil means "not in progress".
	MultipleRemaining *int

	// DurationFinish is the target finish instant for a Duration
	// schedule item interrupted mid-run. Nil means "not in progress".
	DurationFinish *time.Time

	// InDurationFiller marks that state was captured while draining a
	// Duration item's tail filler, so a resumed build knows not to
	// recompute DurationFinish from PlayoutDuration.
	InDurationFiller bool
}

// advance returns a new state built by copying state and applying mutate to
// the copy. This stands in for a record-update expression: state is never
// mutated in place, every transition goes through this one seam.
func advance(state PlayoutBuilderState, mutate func(*PlayoutBuilderState)) PlayoutBuilderState {
	next := state
	mutate(&next)
	return next
}

func clearMidProgress(state PlayoutBuilderState) PlayoutBuilderState {
	return advance(state, func(s *PlayoutBuilderState) {
		s.InFlood = false
		s.MultipleRemaining = nil
		s.DurationFinish = nil
		s.InDurationFiller = false
	})
}
