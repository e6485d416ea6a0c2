/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package playout

import "time"

// StartType selects whether a schedule item anchors to a clock time-of-day
// or simply continues from wherever the previous item left off.
type StartType int

const (
	StartDynamic StartType = iota
	StartFixed
)

// TailMode selects what a Duration-mode schedule item does with the gap
// between its last primary item and its target finish time.
type TailMode int

const (
	// TailFiller drains the item's TailFiller slot to cover the gap.
	TailFiller TailMode = iota
	// TailOffline leaves the gap unfilled; the channel goes dark.
	TailOffline
)

// ScheduleItemBase holds the fields common to every program schedule item
// variant. It is embedded by each of Once/Flood/Multiple/Duration rather
// than shared via a tagged union, so Go callers get plain structs and a
// type switch instead of a discriminated-union library.
type ScheduleItemBase struct {
	Index          int
	CollectionType string
	CollectionKey  CollectionKey
	StartType      StartType
	// StartTime is a time-of-day offset from local midnight. Only
	// meaningful when StartType == StartFixed.
	StartTime time.Duration

	PreRollFiller      *FillerPreset
	MidRollEnterFiller *FillerPreset
	MidRollFiller      *FillerPreset
	MidRollExitFiller  *FillerPreset
	PostRollFiller     *FillerPreset
	TailFiller         *FillerPreset
	FallbackFiller     *FillerPreset
}

// ScheduleItem is the sealed set of program schedule item variants: Once,
// Flood, Multiple, Duration. Build code recovers the variant with a type
// switch on the concrete pointer type, not a method on this interface.
type ScheduleItem interface {
	Base() ScheduleItemBase
}

// OnceItem plays its primary collection's current item exactly once.
type OnceItem struct{ ScheduleItemBase }

func (o *OnceItem) Base() ScheduleItemBase { return o.ScheduleItemBase }

// FloodItem plays primary items back-to-back until the next fixed-start
// schedule item would be encroached upon, or the collection is exhausted.
type FloodItem struct{ ScheduleItemBase }

func (f *FloodItem) Base() ScheduleItemBase { return f.ScheduleItemBase }

// MultipleItem plays exactly Count primary items, resuming a partial count
// across builds via PlayoutBuilderState.MultipleRemaining.
type MultipleItem struct {
	ScheduleItemBase
	Count int
}

func (m *MultipleItem) Base() ScheduleItemBase { return m.ScheduleItemBase }

// DurationItem plays primary items until PlayoutDuration has elapsed, then
// disposes of any remaining gap per TailMode.
type DurationItem struct {
	ScheduleItemBase
	PlayoutDuration time.Duration
	TailMode        TailMode
}

func (d *DurationItem) Base() ScheduleItemBase { return d.ScheduleItemBase }
