/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/friendsincode/signalcaster/internal/playout"
)

func TestFlattenScheduleExtractsBaseFields(t *testing.T) {
	schedule := []playout.ScheduleItem{
		&playout.OnceItem{ScheduleItemBase: playout.ScheduleItemBase{
			Index:          0,
			CollectionType: "media",
			CollectionKey:  playout.CollectionKey{CollectionType: "media", ID: "media-1"},
			StartType:      playout.StartFixed,
		}},
		&playout.OnceItem{ScheduleItemBase: playout.ScheduleItemBase{
			Index:          1,
			CollectionType: "smart_block",
			CollectionKey:  playout.CollectionKey{CollectionType: "smart_block", ID: "block-1"},
			StartType:      playout.StartFixed,
		}},
	}

	items := flattenSchedule(schedule)
	if len(items) != 2 {
		t.Fatalf("len(items) = %d, want 2", len(items))
	}
	if items[0].CollectionID != "media-1" || items[0].CollectionType != "media" {
		t.Errorf("items[0] = %+v, want media-1/media", items[0])
	}
	if items[1].CollectionID != "block-1" || items[1].CollectionType != "smart_block" {
		t.Errorf("items[1] = %+v, want block-1/smart_block", items[1])
	}
}

func TestSimulateFromFixtureExpandsYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fixture.yaml")
	contents := `
name: Morning Fixture
timezone: UTC
slots:
  - position: 0
    offset_seconds: 0
    type: hard_item
    payload:
      media_id: fixture-media
`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	start := time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)
	items, err := simulateFromFixture(path, start, 2*time.Hour)
	if err != nil {
		t.Fatalf("simulateFromFixture returned error: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("len(items) = %d, want 2", len(items))
	}
	for _, item := range items {
		if item.CollectionID != "fixture-media" {
			t.Errorf("item.CollectionID = %q, want fixture-media", item.CollectionID)
		}
	}
}

func TestSimulateFromFixtureRejectsInvalidTimezone(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fixture.yaml")
	contents := `
name: Bad Timezone
timezone: Not/AZone
slots:
  - position: 0
    offset_seconds: 0
    type: hard_item
    payload:
      media_id: m1
`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	_, err := simulateFromFixture(path, time.Now().UTC(), time.Hour)
	if err == nil {
		t.Fatal("expected an error for an invalid fixture timezone")
	}
}
