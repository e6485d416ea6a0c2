/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package playout

import (
	"context"
	"errors"
	"time"
)

// BuildRequest is everything BuildPlayout needs: the ordered schedule, the
// enumerators it draws from (keyed by CollectionKey), the state to resume
// from, the instant beyond which nothing more may be scheduled, and the
// station's local time zone for fixed-start and pad arithmetic.
type BuildRequest struct {
	Schedule     []ScheduleItem
	Enumerators  map[CollectionKey]CollectionEnumerator
	InitialState PlayoutBuilderState
	HardStop     time.Time
	Location     *time.Location
	Logger       Logger
}

// BuildResult is a completed or partial build: the resumable state and the
// playout items produced this call.
type BuildResult struct {
	State PlayoutBuilderState
	Items []PlayoutItem
}

// BuildPlayout runs the schedule forward from req.InitialState.CurrentTime,
// dispatching each schedule item to its mode scheduler in turn, until the
// schedule is exhausted, the hard stop is reached, or ctx is canceled.
//
// A canceled context or a Fatal collaborator error stops the loop early and
// returns the partial result alongside the error; every other error kind
// (CollectionEmpty, BadConfiguration, CollaboratorFault) is logged and the
// loop continues with the next schedule item — one bad item never aborts
// an otherwise-buildable playout.
func BuildPlayout(ctx context.Context, req BuildRequest) (BuildResult, error) {
	loc := req.Location
	if loc == nil {
		loc = time.UTC
	}
	fc := fillerContext{enumerators: req.Enumerators, loc: loc, logger: req.Logger}
	state := req.InitialState
	var items []PlayoutItem

	for i := state.NextScheduleIndex; i < len(req.Schedule); i++ {
		if !state.CurrentTime.Before(req.HardStop) {
			break
		}
		if canceled(ctx) {
			state.NextScheduleIndex = i
			return BuildResult{State: state, Items: items}, &BuildError{Kind: ErrorScanCanceled, Message: "build canceled before schedule item"}
		}

		scheduleItem := req.Schedule[i]
		var (
			out []PlayoutItem
			err error
		)

		switch v := scheduleItem.(type) {
		case *OnceItem:
			state, out, err = scheduleOnce(ctx, state, v, fc)
		case *FloodItem:
			nextStart := fixedStartOfNext(req.Schedule, i+1, state, loc)
			state, out, err = scheduleFlood(ctx, state, v, fc, nextStart, req.HardStop)
		case *MultipleItem:
			state, out, err = scheduleMultiple(ctx, state, v, fc)
		case *DurationItem:
			nextStart := fixedStartOfNext(req.Schedule, i+1, state, loc)
			state, out, err = scheduleDuration(ctx, state, v, fc, nextStart, req.HardStop)
		default:
			err = &BuildError{Kind: ErrorFatal, Message: "unknown schedule item variant"}
		}

		items = append(items, out...)

		if err != nil {
			var be *BuildError
			if errors.As(err, &be) {
				if be.Kind == ErrorScanCanceled {
					// The item at i was interrupted mid-dispatch, not completed;
					// resume must re-enter it so Multiple/Flood/Duration's
					// carried-over progress (MultipleRemaining, InFlood,
					// DurationFinish) is actually consumed next time, not skipped.
					state.NextScheduleIndex = i
					return BuildResult{State: state, Items: items}, err
				}
				if be.Kind == ErrorFatal {
					state.NextScheduleIndex = i
					return BuildResult{State: state, Items: items}, err
				}
				fc.warnf("schedule item %d: %s: %s", i, be.Kind, be.Message)
			}
		}

		state.NextScheduleIndex = i + 1
	}

	return BuildResult{State: state, Items: items}, nil
}

// fixedStartOfNext peeks at schedule[idx] and, if it's a fresh fixed-start
// item, returns the instant it will anchor to. Flood and Duration use this
// to know where they must yield.
func fixedStartOfNext(schedule []ScheduleItem, idx int, state PlayoutBuilderState, loc *time.Location) *time.Time {
	if idx < 0 || idx >= len(schedule) {
		return nil
	}
	next := schedule[idx]
	if next.Base().StartType != StartFixed {
		return nil
	}
	t := GetStartTimeAfter(state, next, loc)
	return &t
}
