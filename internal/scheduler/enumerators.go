/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package scheduler

import (
	"context"
	"time"

	"github.com/friendsincode/signalcaster/internal/models"
	"github.com/friendsincode/signalcaster/internal/playout"
	"github.com/friendsincode/signalcaster/internal/smartblock"
	"gorm.io/gorm"
)

// smartBlockRefillChunk is how much sequence the engine is asked to
// materialize each time a smartBlockEnumerator's buffer runs dry.
const smartBlockRefillChunk = 30 * time.Minute

// buildEnumerators resolves one playout.CollectionEnumerator per distinct
// CollectionKey referenced by a compiled schedule, backed by the station's
// media items, playlists and smart blocks.
func (s *Service) buildEnumerators(ctx context.Context, stationID string, schedule []playout.ScheduleItem) map[playout.CollectionKey]playout.CollectionEnumerator {
	enumerators := make(map[playout.CollectionKey]playout.CollectionEnumerator)
	for _, item := range schedule {
		key := item.Base().CollectionKey
		if _, ok := enumerators[key]; ok || key.ID == "" {
			continue
		}
		enumerator, err := s.resolveEnumerator(ctx, stationID, key)
		if err != nil {
			s.logger.Warn().Err(err).
				Str("collection_type", key.CollectionType).
				Str("collection_id", key.ID).
				Msg("failed to resolve collection enumerator")
			continue
		}
		if enumerator != nil {
			enumerators[key] = enumerator
		}
	}
	return enumerators
}

func (s *Service) resolveEnumerator(ctx context.Context, stationID string, key playout.CollectionKey) (playout.CollectionEnumerator, error) {
	switch key.CollectionType {
	case "media":
		return s.mediaEnumerator(ctx, key.ID)
	case "playlist":
		return s.playlistEnumerator(ctx, key.ID)
	case "smart_block":
		return newSmartBlockEnumerator(ctx, s.db, s.engine, stationID, key.ID), nil
	default:
		return nil, nil
	}
}

// mediaEnumerator wraps a single, always-available MediaItem (a hard item
// slot replays the same item on every pull).
func (s *Service) mediaEnumerator(ctx context.Context, mediaID string) (playout.CollectionEnumerator, error) {
	var item models.MediaItem
	if err := s.db.WithContext(ctx).Preload("Chapters").Where("id = ?", mediaID).First(&item).Error; err != nil {
		return nil, err
	}
	return playout.NewLoopEnumerator([]playout.MediaItem{toPlayoutMedia(item)}), nil
}

// playlistEnumerator wraps a stored, ordered playlist, looping once exhausted.
func (s *Service) playlistEnumerator(ctx context.Context, playlistID string) (playout.CollectionEnumerator, error) {
	var playlistItems []models.PlaylistItem
	if err := s.db.WithContext(ctx).Where("playlist_id = ?", playlistID).Order("position ASC").Find(&playlistItems).Error; err != nil {
		return nil, err
	}
	if len(playlistItems) == 0 {
		return nil, nil
	}

	mediaIDs := make([]string, len(playlistItems))
	for i, pi := range playlistItems {
		mediaIDs[i] = pi.MediaID
	}
	var mediaRows []models.MediaItem
	if err := s.db.WithContext(ctx).Preload("Chapters").Where("id IN ?", mediaIDs).Find(&mediaRows).Error; err != nil {
		return nil, err
	}
	byID := make(map[string]models.MediaItem, len(mediaRows))
	for _, m := range mediaRows {
		byID[m.ID] = m
	}

	items := make([]playout.MediaItem, 0, len(playlistItems))
	for _, pi := range playlistItems {
		if m, ok := byID[pi.MediaID]; ok {
			items = append(items, toPlayoutMedia(m))
		}
	}
	if len(items) == 0 {
		return nil, nil
	}
	return playout.NewLoopEnumerator(items), nil
}

func toPlayoutMedia(m models.MediaItem) playout.MediaItem {
	chapters := make([]playout.MediaChapter, len(m.Chapters))
	for i, c := range m.Chapters {
		chapters[i] = playout.MediaChapter{StartTime: c.StartOffset, EndTime: c.EndOffset}
	}
	return playout.MediaItem{ID: m.ID, Duration: m.Duration, Chapters: chapters}
}

// smartBlockEnumerator draws one track at a time from a smart block's
// rule-evaluated sequence, refilling its buffer from the engine whenever it
// runs dry. Unlike the static slice enumerators, it can't know its whole
// future sequence up front, so MinimumDuration only ever reports the
// duration of the item currently buffered.
//
// If the engine can't resolve a sequence at all (smartblock.ErrUnresolved or
// an empty result), the buffer falls back to one randomly selected analyzed
// track for the station, the same emergency measure a hard-item or stopset
// slot gets implicitly by always having a fixed source: better one
// off-rotation track than dead air.
type smartBlockEnumerator struct {
	ctx          context.Context
	db           *gorm.DB
	engine       *smartblock.Engine
	stationID    string
	smartBlockID string
	buffer       []playout.MediaItem
	pos          int
	refills      int64
}

func newSmartBlockEnumerator(ctx context.Context, db *gorm.DB, engine *smartblock.Engine, stationID, smartBlockID string) *smartBlockEnumerator {
	return &smartBlockEnumerator{ctx: ctx, db: db, engine: engine, stationID: stationID, smartBlockID: smartBlockID}
}

// ensureBuffer refills from the smart block engine once the current buffer is
// exhausted. The Seed is wall-clock derived: the engine's own shuffling is a
// collaborator outside playout.BuildPlayout, which stays deterministic given
// a fixed enumerator sequence — it is not itself required to reproduce the
// same track order across resumed builds.
func (e *smartBlockEnumerator) ensureBuffer() {
	if e.pos < len(e.buffer) {
		return
	}
	e.refills++
	result, err := e.engine.Generate(e.ctx, smartblock.GenerateRequest{
		SmartBlockID: e.smartBlockID,
		StationID:    e.stationID,
		Seed:         time.Now().UnixNano() + e.refills,
		Duration:     smartBlockRefillChunk.Milliseconds(),
	})
	e.buffer = nil
	e.pos = 0
	if err != nil || len(result.Items) == 0 {
		if fallback, ok := randomFallbackMedia(e.ctx, e.db, e.stationID); ok {
			e.buffer = []playout.MediaItem{fallback}
		}
		return
	}
	items := make([]playout.MediaItem, len(result.Items))
	for i, it := range result.Items {
		items[i] = playout.MediaItem{ID: it.MediaID, Duration: time.Duration(it.EndsAtMS-it.StartsAtMS) * time.Millisecond}
	}
	e.buffer = items
}

// randomFallbackMedia picks one analyzed track at random for the station.
// Last-resort safety net used when a smart block's rules yield nothing.
func randomFallbackMedia(ctx context.Context, db *gorm.DB, stationID string) (playout.MediaItem, bool) {
	var item models.MediaItem
	err := db.WithContext(ctx).
		Preload("Chapters").
		Where("station_id = ? AND analysis_state = ?", stationID, models.AnalysisComplete).
		Order("RANDOM()").
		First(&item).Error
	if err != nil {
		return playout.MediaItem{}, false
	}
	media := toPlayoutMedia(item)
	if media.Duration <= 0 {
		media.Duration = 3 * time.Minute
	}
	return media, true
}

func (e *smartBlockEnumerator) Current() (playout.MediaItem, bool) {
	e.ensureBuffer()
	if e.pos >= len(e.buffer) {
		return playout.MediaItem{}, false
	}
	return e.buffer[e.pos], true
}

func (e *smartBlockEnumerator) MoveNext() bool {
	e.pos++
	_, ok := e.Current()
	return ok
}

func (e *smartBlockEnumerator) MinimumDuration() (time.Duration, bool) {
	media, ok := e.Current()
	if !ok {
		return 0, false
	}
	return media.Duration, true
}
