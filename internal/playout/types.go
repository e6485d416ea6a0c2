/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package playout implements the mode-dispatched schedule builder and its
// filler-composition engine: given an ordered program schedule and a set of
// media collections, it produces a concrete, time-stamped PlayoutItem
// sequence for a linear channel between a start instant and a hard stop.
//
// The package is single-threaded and does no I/O; callers own persistence,
// enumerator implementations, and scheduling cadence.
package playout

import "time"

// MediaItem is a read-only view of a playable asset: its id, head-version
// duration, and an ordered chapter list (possibly empty).
type MediaItem struct {
	ID       string
	Duration time.Duration
	Chapters []MediaChapter
}

// MediaChapter marks a content segment as an offset range within a
// MediaItem's duration. Chapters are sorted by StartTime.
type MediaChapter struct {
	StartTime time.Duration
	EndTime   time.Duration
}

// FillerKind is the closed set of roles a PlayoutItem can play.
type FillerKind int

const (
	FillerKindNone FillerKind = iota
	FillerKindPreRoll
	FillerKindMidRoll
	FillerKindMidRollEnter
	FillerKindMidRollExit
	FillerKindPostRoll
	FillerKindTail
	FillerKindFallback
)

func (k FillerKind) String() string {
	switch k {
	case FillerKindNone:
		return "none"
	case FillerKindPreRoll:
		return "pre_roll"
	case FillerKindMidRoll:
		return "mid_roll"
	case FillerKindMidRollEnter:
		return "mid_roll_enter"
	case FillerKindMidRollExit:
		return "mid_roll_exit"
	case FillerKindPostRoll:
		return "post_roll"
	case FillerKindTail:
		return "tail"
	case FillerKindFallback:
		return "fallback"
	default:
		return "unknown"
	}
}

// FillerMode is the closed set of ways a filler slot can be sized.
type FillerMode int

const (
	FillerModeDuration FillerMode = iota
	FillerModeCount
	FillerModePad
)

// CollectionKey identifies a collection an enumerator draws from. It is a
// value type so it can be used directly as a map key — structural equality,
// stable hash, no pointer identity involved.
type CollectionKey struct {
	CollectionType string
	ID             string
}

// FillerPreset configures one filler slot. Construct with NewFillerPreset
// rather than the struct literal so mode/field invariants are enforced once,
// at configuration time, instead of faulting mid-build.
type FillerPreset struct {
	Kind               FillerKind
	Mode               FillerMode
	Duration           *time.Duration
	Count              *int
	PadToNearestMinute *int
	AllowWatermarks    bool
	CollectionKey      CollectionKey
}

// NewFillerPreset validates the invariants spec'd for FillerPreset:
// Duration mode requires Duration set, Count mode requires Count set, and
// Pad mode requires PadToNearestMinute set and is only meaningful for
// PreRoll, MidRoll, or PostRoll kinds.
func NewFillerPreset(preset FillerPreset) (*FillerPreset, error) {
	switch preset.Mode {
	case FillerModeDuration:
		if preset.Duration == nil {
			return nil, &BuildError{Kind: ErrorBadConfiguration, Message: "duration-mode filler preset requires Duration"}
		}
	case FillerModeCount:
		if preset.Count == nil {
			return nil, &BuildError{Kind: ErrorBadConfiguration, Message: "count-mode filler preset requires Count"}
		}
	case FillerModePad:
		if preset.PadToNearestMinute == nil {
			return nil, &BuildError{Kind: ErrorBadConfiguration, Message: "pad-mode filler preset requires PadToNearestMinute"}
		}
		switch preset.Kind {
		case FillerKindPreRoll, FillerKindMidRoll, FillerKindPostRoll:
		default:
			return nil, &BuildError{Kind: ErrorBadConfiguration, Message: "pad mode is only meaningful for PreRoll, MidRoll, or PostRoll"}
		}
	}
	out := preset
	return &out, nil
}

// PlayoutItem is one entry in a built playout: a single playback of a media
// item (or filler) with a start/finish. Invariant: Start <= Finish;
// OutPoint-InPoint equals the intended played span, zero for fallback items
// that play to Finish regardless of the underlying media's natural length.
type PlayoutItem struct {
	MediaItemID       string
	Start             time.Time
	Finish            time.Time
	InPoint           time.Duration
	OutPoint          time.Duration
	GuideGroup        int64
	FillerKind        FillerKind
	DisableWatermarks bool
}
