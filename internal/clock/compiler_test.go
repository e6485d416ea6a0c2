/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package clock

import (
	"testing"
	"time"

	"github.com/friendsincode/signalcaster/internal/models"
	"github.com/friendsincode/signalcaster/internal/playout"
	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newPlannerTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&models.Station{}, &models.ClockHour{}, &models.ClockSlot{}); err != nil {
		t.Fatalf("migrate schema: %v", err)
	}
	return db
}

func onceItemsOf(t *testing.T, items []playout.ScheduleItem) []*playout.OnceItem {
	t.Helper()
	out := make([]*playout.OnceItem, len(items))
	for i, item := range items {
		once, ok := item.(*playout.OnceItem)
		if !ok {
			t.Fatalf("item[%d] is %T, want *playout.OnceItem", i, item)
		}
		out[i] = once
	}
	return out
}

func TestCompileSelectsClockByHourWindow(t *testing.T) {
	db := newPlannerTestDB(t)
	planner := NewPlanner(db, zerolog.Nop())

	stationID := "station-1"
	if err := db.Create(&models.Station{ID: stationID, Name: "Test", Timezone: "UTC"}).Error; err != nil {
		t.Fatalf("create station: %v", err)
	}

	morning := models.ClockHour{
		ID:        "clock-morning",
		StationID: stationID,
		Name:      "Morning",
		StartHour: 6,
		EndHour:   12,
		Slots: []models.ClockSlot{
			{
				ID:          "slot-morning",
				ClockHourID: "clock-morning",
				Position:    0,
				Offset:      0,
				Type:        models.SlotTypeHardItem,
				Payload:     map[string]any{"media_id": "m1"},
			},
		},
	}
	afternoon := models.ClockHour{
		ID:        "clock-afternoon",
		StationID: stationID,
		Name:      "Afternoon",
		StartHour: 12,
		EndHour:   24,
		Slots: []models.ClockSlot{
			{
				ID:          "slot-afternoon",
				ClockHourID: "clock-afternoon",
				Position:    0,
				Offset:      0,
				Type:        models.SlotTypeHardItem,
				Payload:     map[string]any{"media_id": "m2"},
			},
		},
	}
	if err := db.Create(&morning).Error; err != nil {
		t.Fatalf("create morning clock: %v", err)
	}
	if err := db.Create(&afternoon).Error; err != nil {
		t.Fatalf("create afternoon clock: %v", err)
	}

	start := time.Date(2026, 2, 25, 10, 30, 0, 0, time.UTC)
	items, err := planner.Compile(stationID, start, 4*time.Hour)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if len(items) != 4 {
		t.Fatalf("items len = %d, want 4", len(items))
	}

	wantStartTimes := []time.Duration{11 * time.Hour, 12 * time.Hour, 13 * time.Hour, 14 * time.Hour}
	wantMedia := []string{"m1", "m2", "m2", "m2"}
	for i, once := range onceItemsOf(t, items) {
		if once.StartType != playout.StartFixed {
			t.Fatalf("item[%d].StartType = %v, want Fixed", i, once.StartType)
		}
		if once.StartTime != wantStartTimes[i] {
			t.Fatalf("item[%d].StartTime = %v, want %v", i, once.StartTime, wantStartTimes[i])
		}
		if once.CollectionKey.ID != wantMedia[i] {
			t.Fatalf("item[%d].CollectionKey.ID = %q, want %q", i, once.CollectionKey.ID, wantMedia[i])
		}
	}
}

func TestCompileNarrowClockBeats24HourFallback(t *testing.T) {
	db := newPlannerTestDB(t)
	planner := NewPlanner(db, zerolog.Nop())

	stationID := "station-narrow"
	if err := db.Create(&models.Station{ID: stationID, Name: "Narrow", Timezone: "UTC"}).Error; err != nil {
		t.Fatalf("create station: %v", err)
	}

	// Create 24-hour fallback clock FIRST (broader window)
	fallback := models.ClockHour{
		ID:        "clock-fallback",
		StationID: stationID,
		Name:      "All Day Fallback",
		StartHour: 0,
		EndHour:   24,
		Slots: []models.ClockSlot{
			{
				ID:          "slot-fallback",
				ClockHourID: "clock-fallback",
				Position:    0,
				Offset:      0,
				Type:        models.SlotTypeHardItem,
				Payload:     map[string]any{"media_id": "fallback"},
			},
		},
	}
	if err := db.Create(&fallback).Error; err != nil {
		t.Fatalf("create fallback clock: %v", err)
	}

	// Create narrow morning clock SECOND (should still win for hours 6-12)
	morning := models.ClockHour{
		ID:        "clock-morning-narrow",
		StationID: stationID,
		Name:      "Morning Show",
		StartHour: 6,
		EndHour:   12,
		Slots: []models.ClockSlot{
			{
				ID:          "slot-morning-narrow",
				ClockHourID: "clock-morning-narrow",
				Position:    0,
				Offset:      0,
				Type:        models.SlotTypeHardItem,
				Payload:     map[string]any{"media_id": "morning"},
			},
		},
	}
	if err := db.Create(&morning).Error; err != nil {
		t.Fatalf("create morning clock: %v", err)
	}

	// Compile from 5:30 to 13:30
	// Hour 5 plan (5:00) is before start (5:30), so filtered out.
	// Expected: morning for 6-11, fallback for 12-13 = 8 items
	start := time.Date(2026, 2, 25, 5, 30, 0, 0, time.UTC)
	items, err := planner.Compile(stationID, start, 8*time.Hour)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if len(items) != 8 {
		t.Fatalf("items len = %d, want 8", len(items))
	}

	once := onceItemsOf(t, items)
	for i := 0; i < 6; i++ {
		if once[i].CollectionKey.ID != "morning" {
			t.Errorf("item[%d] media = %q, want morning", i, once[i].CollectionKey.ID)
		}
	}
	for i := 6; i < 8; i++ {
		if once[i].CollectionKey.ID != "fallback" {
			t.Errorf("item[%d] media = %q, want fallback", i, once[i].CollectionKey.ID)
		}
	}
}

func TestCompileSupportsOvernightClockWindow(t *testing.T) {
	db := newPlannerTestDB(t)
	planner := NewPlanner(db, zerolog.Nop())

	stationID := "station-2"
	if err := db.Create(&models.Station{ID: stationID, Name: "Night", Timezone: "UTC"}).Error; err != nil {
		t.Fatalf("create station: %v", err)
	}

	overnight := models.ClockHour{
		ID:        "clock-overnight",
		StationID: stationID,
		Name:      "Overnight",
		StartHour: 22,
		EndHour:   2,
		Slots: []models.ClockSlot{
			{
				ID:          "slot-overnight",
				ClockHourID: "clock-overnight",
				Position:    0,
				Offset:      0,
				Type:        models.SlotTypeHardItem,
				Payload:     map[string]any{"media_id": "p3"},
			},
		},
	}
	if err := db.Create(&overnight).Error; err != nil {
		t.Fatalf("create overnight clock: %v", err)
	}

	start := time.Date(2026, 2, 25, 21, 20, 0, 0, time.UTC)
	items, err := planner.Compile(stationID, start, 6*time.Hour)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if len(items) != 4 {
		t.Fatalf("items len = %d, want 4", len(items))
	}

	wantStartTimes := []time.Duration{22 * time.Hour, 23 * time.Hour, 0, 1 * time.Hour}
	for i, once := range onceItemsOf(t, items) {
		if once.StartTime != wantStartTimes[i] {
			t.Fatalf("item[%d].StartTime = %v, want %v", i, once.StartTime, wantStartTimes[i])
		}
	}
}

func TestCompileFixtureExpandsWithoutDatabase(t *testing.T) {
	clockHour := models.ClockHour{
		ID:   "fixture-clock",
		Name: "Fixture",
		Slots: []models.ClockSlot{
			{ID: "fixture-slot", Position: 0, Offset: 0, Type: models.SlotTypeHardItem, Payload: map[string]any{"media_id": "fixture-media"}},
		},
	}

	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	items := CompileFixture(clockHour, start, 3*time.Hour, time.UTC)
	if len(items) != 3 {
		t.Fatalf("items len = %d, want 3", len(items))
	}

	wantStartTimes := []time.Duration{9 * time.Hour, 10 * time.Hour, 11 * time.Hour}
	for i, once := range onceItemsOf(t, items) {
		if once.CollectionKey.ID != "fixture-media" {
			t.Errorf("item[%d] media = %q, want fixture-media", i, once.CollectionKey.ID)
		}
		if once.StartTime != wantStartTimes[i] {
			t.Errorf("item[%d].StartTime = %v, want %v", i, once.StartTime, wantStartTimes[i])
		}
	}
}

func TestCompileFixtureWithNoSlotsReturnsNil(t *testing.T) {
	clockHour := models.ClockHour{ID: "empty-fixture", Name: "Empty"}
	items := CompileFixture(clockHour, time.Now().UTC(), time.Hour, nil)
	if items != nil {
		t.Fatalf("items = %v, want nil", items)
	}
}
