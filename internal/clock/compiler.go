/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package clock

import (
	"errors"
	"sort"
	"time"

	"github.com/friendsincode/signalcaster/internal/models"
	"github.com/friendsincode/signalcaster/internal/playout"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// Planner compiles clock templates into playout schedule items.
type Planner struct {
	db     *gorm.DB
	logger zerolog.Logger
}

// NewPlanner constructs a clock planner.
func NewPlanner(db *gorm.DB, logger zerolog.Logger) *Planner {
	return &Planner{db: db, logger: logger}
}

// Compile loads a station's clock templates and expands them over the
// requested horizon into an ordered, Fixed-start Once item per grid slot
// occurrence, ready to hand to playout.BuildPlayout.
func (p *Planner) Compile(stationID string, start time.Time, horizon time.Duration) ([]playout.ScheduleItem, error) {
	start = start.UTC().Truncate(time.Minute)
	if horizon <= 0 {
		horizon = time.Hour
	}

	var station models.Station
	loc := time.UTC
	if err := p.db.Select("timezone").Where("id = ?", stationID).First(&station).Error; err == nil && station.Timezone != "" {
		loaded, loadErr := time.LoadLocation(station.Timezone)
		if loadErr == nil {
			loc = loaded
		} else {
			p.logger.Warn().Err(loadErr).Str("station_id", stationID).Str("timezone", station.Timezone).Msg("invalid station timezone, falling back to UTC")
		}
	}

	var clockHours []models.ClockHour
	// Order by window width ascending so narrower (more specific) clocks are
	// matched before broader ones (e.g. a 6-12 clock beats a 0-24 fallback).
	// Ties broken by start_hour then created_at for deterministic selection.
	err := p.db.Where("station_id = ?", stationID).
		Preload("Slots").
		Order("(end_hour - start_hour) ASC, start_hour ASC, created_at ASC").
		Find(&clockHours).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if len(clockHours) == 0 {
		return nil, nil
	}

	return buildScheduleForStation(clockHours, start, horizon, loc), nil
}

// CompileForClock expands a single clock hour template, ignoring station
// window selection entirely. Used by Simulate* APIs to preview one template.
func (p *Planner) CompileForClock(clockID string, start time.Time, horizon time.Duration) ([]playout.ScheduleItem, error) {
	start = start.UTC().Truncate(time.Minute)
	if horizon <= 0 {
		horizon = time.Hour
	}

	var clockHour models.ClockHour
	if err := p.db.Where("id = ?", clockID).Preload("Slots").First(&clockHour).Error; err != nil {
		return nil, err
	}
	if len(clockHour.Slots) == 0 {
		return nil, nil
	}

	return buildScheduleForHour(clockHour, start, horizon, time.UTC), nil
}

// CompileFixture expands a single, caller-supplied clock hour template
// without touching the database. Used by "playoutd simulate --fixture" to
// preview a clock-template definition loaded from a YAML fixture file before
// it is ever saved as a models.ClockHour row.
func CompileFixture(clockHour models.ClockHour, start time.Time, horizon time.Duration, loc *time.Location) []playout.ScheduleItem {
	start = start.UTC().Truncate(time.Minute)
	if horizon <= 0 {
		horizon = time.Hour
	}
	if loc == nil {
		loc = time.UTC
	}
	if len(clockHour.Slots) == 0 {
		return nil
	}
	return buildScheduleForHour(clockHour, start, horizon, loc)
}

func buildScheduleForHour(clockHour models.ClockHour, start time.Time, horizon time.Duration, loc *time.Location) []playout.ScheduleItem {
	slots := sortedSlots(clockHour.Slots)
	items := make([]playout.ScheduleItem, 0, len(slots)*int(horizon/time.Hour+1))
	cursor := start.Truncate(time.Hour)
	end := start.Add(horizon)
	index := 0

	for cursor.Before(end) {
		for _, slot := range slots {
			planStart := cursor.Add(slot.Offset)
			if planStart.Before(start) || !planStart.Before(end) {
				continue
			}
			items = append(items, scheduleItemForSlot(slot, planStart, loc, index))
			index++
		}
		cursor = cursor.Add(time.Hour)
	}

	return items
}

func buildScheduleForStation(clockHours []models.ClockHour, start time.Time, horizon time.Duration, loc *time.Location) []playout.ScheduleItem {
	if len(clockHours) == 0 {
		return nil
	}
	cursor := start.Truncate(time.Hour)
	end := start.Add(horizon)
	items := make([]playout.ScheduleItem, 0, len(clockHours)*int(horizon/time.Hour+1))
	index := 0

	for cursor.Before(end) {
		clockHour := selectClockHour(clockHours, cursor, loc)
		if clockHour != nil && len(clockHour.Slots) > 0 {
			for _, slot := range sortedSlots(clockHour.Slots) {
				planStart := cursor.Add(slot.Offset)
				if planStart.Before(start) || !planStart.Before(end) {
					continue
				}
				items = append(items, scheduleItemForSlot(slot, planStart, loc, index))
				index++
			}
		}
		cursor = cursor.Add(time.Hour)
	}

	return items
}

// scheduleItemForSlot converts one clock grid occurrence into a Fixed-start
// Once item. StartTime is the slot's time-of-day offset in the station's
// local zone; playout.GetStartTimeAfter anchors each occurrence to the next
// local calendar day on which that time-of-day has not yet passed, which
// reproduces the grid's hour-by-hour, day-by-day repetition exactly as long
// as items are fed to BuildPlayout in ascending chronological order (which
// this function guarantees by construction).
func scheduleItemForSlot(slot models.ClockSlot, planStart time.Time, loc *time.Location, index int) playout.ScheduleItem {
	local := planStart.In(loc)
	h, m, s := local.Clock()
	startTime := time.Duration(h)*time.Hour + time.Duration(m)*time.Minute + time.Duration(s)*time.Second + time.Duration(local.Nanosecond())

	return &playout.OnceItem{ScheduleItemBase: playout.ScheduleItemBase{
		Index:          index,
		CollectionType: string(slot.Type),
		CollectionKey:  collectionKeyForSlot(slot),
		StartType:      playout.StartFixed,
		StartTime:      startTime,
	}}
}

func collectionKeyForSlot(slot models.ClockSlot) playout.CollectionKey {
	switch slot.Type {
	case models.SlotTypeSmartBlock:
		return playout.CollectionKey{CollectionType: "smart_block", ID: payloadString(slot.Payload, "smart_block_id")}
	case models.SlotTypeHardItem:
		return playout.CollectionKey{CollectionType: "media", ID: payloadString(slot.Payload, "media_id")}
	case models.SlotTypeStopset:
		if playlistID := payloadString(slot.Payload, "playlist_id"); playlistID != "" {
			return playout.CollectionKey{CollectionType: "playlist", ID: playlistID}
		}
		return playout.CollectionKey{CollectionType: "media", ID: payloadString(slot.Payload, "media_id")}
	default:
		return playout.CollectionKey{CollectionType: string(slot.Type), ID: slot.ID}
	}
}

func payloadString(payload map[string]any, key string) string {
	if payload == nil {
		return ""
	}
	if v, ok := payload[key].(string); ok {
		return v
	}
	return ""
}

func sortedSlots(in []models.ClockSlot) []models.ClockSlot {
	slots := make([]models.ClockSlot, len(in))
	copy(slots, in)
	sort.Slice(slots, func(i, j int) bool {
		return slots[i].Position < slots[j].Position
	})
	return slots
}

func selectClockHour(clockHours []models.ClockHour, instant time.Time, loc *time.Location) *models.ClockHour {
	local := instant.In(loc)
	hour := local.Hour()

	for i := range clockHours {
		if clockWindowApplies(clockHours[i], hour) {
			return &clockHours[i]
		}
	}
	return nil
}

func clockWindowApplies(clockHour models.ClockHour, hour int) bool {
	startHour, endHour := normalizeClockWindow(clockHour.StartHour, clockHour.EndHour)
	if startHour == endHour {
		return true
	}
	if startHour < endHour {
		return hour >= startHour && hour < endHour
	}
	return hour >= startHour || hour < endHour
}

func normalizeClockWindow(startHour, endHour int) (int, int) {
	if startHour < 0 || startHour > 23 {
		startHour = 0
	}
	if endHour < 1 || endHour > 24 {
		endHour = 24
	}
	return startHour, endHour
}
