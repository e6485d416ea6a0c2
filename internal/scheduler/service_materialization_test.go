/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/friendsincode/signalcaster/internal/models"
	"github.com/friendsincode/signalcaster/internal/playout"
	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newMaterializationTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite db: %v", err)
	}
	if err := db.AutoMigrate(&models.Station{}, &models.Mount{}, &models.ScheduleEntry{}); err != nil {
		t.Fatalf("failed to migrate schema: %v", err)
	}

	svc := &Service{
		db:     db,
		logger: zerolog.Nop(),
	}
	return svc, db
}

func createTestMount(t *testing.T, db *gorm.DB, stationID, mountID string) {
	t.Helper()
	m := models.Mount{
		ID:        mountID,
		StationID: stationID,
		Name:      "Main",
	}
	if err := db.Create(&m).Error; err != nil {
		t.Fatalf("failed to create mount: %v", err)
	}
}

func TestPersistPlayoutItemsWritesScheduleEntries(t *testing.T) {
	svc, db := newMaterializationTestService(t)
	ctx := context.Background()

	stationID := "station-persist"
	mountID := "mount-persist"
	createTestMount(t, db, stationID, mountID)

	start := time.Now().UTC().Truncate(time.Second)
	items := []playout.PlayoutItem{
		{
			MediaItemID: "media-1",
			Start:       start,
			Finish:      start.Add(3 * time.Minute),
			FillerKind:  playout.FillerKindNone,
			GuideGroup:  1,
		},
		{
			MediaItemID: "media-2",
			Start:       start.Add(3 * time.Minute),
			Finish:      start.Add(6 * time.Minute),
			FillerKind:  playout.FillerKindFallback,
			GuideGroup:  1,
		},
	}

	created, err := svc.persistPlayoutItems(ctx, stationID, mountID, items)
	if err != nil {
		t.Fatalf("persistPlayoutItems returned error: %v", err)
	}
	if created != 2 {
		t.Fatalf("created = %d, want 2", created)
	}

	var entries []models.ScheduleEntry
	if err := db.Order("starts_at ASC").Find(&entries).Error; err != nil {
		t.Fatalf("failed to load schedule entries: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("len(entries) = %d, want 2", len(entries))
	}
	if entries[0].SourceID != "media-1" || entries[0].IsFiller {
		t.Fatalf("entries[0] = %+v, want media-1 non-filler", entries[0])
	}
	if entries[1].SourceID != "media-2" || !entries[1].IsFiller {
		t.Fatalf("entries[1] = %+v, want media-2 filler", entries[1])
	}
}

func TestPersistPlayoutItemsSkipsAlreadyScheduled(t *testing.T) {
	svc, db := newMaterializationTestService(t)
	ctx := context.Background()

	stationID := "station-dup"
	mountID := "mount-dup"
	createTestMount(t, db, stationID, mountID)

	start := time.Now().UTC().Truncate(time.Second)
	item := playout.PlayoutItem{
		MediaItemID: "media-dup",
		Start:       start,
		Finish:      start.Add(3 * time.Minute),
	}

	firstCreated, err := svc.persistPlayoutItems(ctx, stationID, mountID, []playout.PlayoutItem{item})
	if err != nil {
		t.Fatalf("first persistPlayoutItems returned error: %v", err)
	}
	if firstCreated != 1 {
		t.Fatalf("firstCreated = %d, want 1", firstCreated)
	}

	secondCreated, err := svc.persistPlayoutItems(ctx, stationID, mountID, []playout.PlayoutItem{item})
	if err != nil {
		t.Fatalf("second persistPlayoutItems returned error: %v", err)
	}
	if secondCreated != 0 {
		t.Fatalf("secondCreated = %d, want 0 (duplicate start time)", secondCreated)
	}

	var count int64
	if err := db.Model(&models.ScheduleEntry{}).Count(&count).Error; err != nil {
		t.Fatalf("failed to count schedule entries: %v", err)
	}
	if count != 1 {
		t.Fatalf("schedule entry count = %d, want 1", count)
	}
}

func TestGetDefaultMountIDReturnsStationMount(t *testing.T) {
	svc, db := newMaterializationTestService(t)
	ctx := context.Background()

	stationID := "station-mounts"
	if err := db.Create(&models.Mount{ID: "mount-b", StationID: stationID, Name: "Second"}).Error; err != nil {
		t.Fatalf("failed to create mount: %v", err)
	}
	got := svc.getDefaultMountID(ctx, stationID)
	if got != "mount-b" {
		t.Fatalf("getDefaultMountID = %q, want %q", got, "mount-b")
	}
}

func TestStationLocationFallsBackToUTC(t *testing.T) {
	svc, db := newMaterializationTestService(t)
	ctx := context.Background()

	if err := db.Create(&models.Station{ID: "station-badtz", Name: "Bad", Timezone: "Not/AZone"}).Error; err != nil {
		t.Fatalf("failed to create station: %v", err)
	}
	loc := svc.stationLocation(ctx, "station-badtz")
	if loc != time.UTC {
		t.Fatalf("stationLocation = %v, want UTC", loc)
	}
}
