/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package clock

import (
	"time"

	"github.com/friendsincode/signalcaster/internal/playout"
)

// Compiler expands a station's clock templates into an ordered
// playout.ScheduleItem list covering the requested window.
type Compiler interface {
	Compile(stationID string, start time.Time, horizon time.Duration) ([]playout.ScheduleItem, error)
}
