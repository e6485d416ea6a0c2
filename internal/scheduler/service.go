/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/friendsincode/signalcaster/internal/cache"
	"github.com/friendsincode/signalcaster/internal/clock"
	"github.com/friendsincode/signalcaster/internal/events"
	"github.com/friendsincode/signalcaster/internal/models"
	"github.com/friendsincode/signalcaster/internal/playout"
	"github.com/friendsincode/signalcaster/internal/scheduler/state"
	"github.com/friendsincode/signalcaster/internal/scheduling"
	"github.com/friendsincode/signalcaster/internal/smartblock"
	"github.com/friendsincode/signalcaster/internal/telemetry"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// publisher is satisfied by both events.Bus (in-process only) and
// eventbus.NATSBus (NATS-backed with an in-process fallback), so the
// scheduler doesn't care which transport is wired in.
type publisher interface {
	Publish(eventType events.EventType, payload events.Payload)
}

// Service orchestrates the rolling playout plan: it asks the clock planner
// for an ordered schedule, hands that schedule and its backing enumerators to
// the playout builder, and materializes the resulting items as persisted
// ScheduleEntry rows.
type Service struct {
	db          *gorm.DB
	planner     *clock.Planner
	engine      *smartblock.Engine
	stateStore  *state.Store
	validator   *scheduling.Validator
	cache       *cache.Cache
	bus         publisher
	logger      zerolog.Logger
	lookahead   time.Duration
	hardStop    time.Duration
	mu          sync.Mutex
	lastCleanup time.Time
}

// New constructs the scheduler service. hardStop is an absolute ceiling on a
// single build call regardless of lookahead (0 means no separate ceiling —
// lookahead alone bounds the build).
func New(db *gorm.DB, planner *clock.Planner, engine *smartblock.Engine, stateStore *state.Store, lookahead, hardStop time.Duration, logger zerolog.Logger) *Service {
	if lookahead <= 0 {
		lookahead = 24 * time.Hour
	}
	return &Service{
		db:         db,
		planner:    planner,
		engine:     engine,
		stateStore: stateStore,
		validator:  scheduling.NewValidator(db, logger),
		lookahead:  lookahead,
		hardStop:   hardStop,
		logger:     logger,
	}
}

// buildHorizon returns how far ahead of now a single build call may run,
// honoring hardStop as a ceiling on lookahead when it is the tighter bound.
func (s *Service) buildHorizon() time.Duration {
	if s.hardStop > 0 && s.hardStop < s.lookahead {
		return s.hardStop
	}
	return s.lookahead
}

// SetCache sets the cache instance for the scheduler.
func (s *Service) SetCache(c *cache.Cache) {
	s.cache = c
}

// SetBus wires an event bus so completed builds notify cache-invalidation
// and audit subscribers. Accepts either the in-process events.Bus or a
// NATS-backed eventbus.NATSBus.
func (s *Service) SetBus(bus publisher) {
	s.bus = bus
}

// Run executes the scheduler loop until the context is cancelled.
func (s *Service) Run(ctx context.Context) error {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	s.logger.Info().Msg("scheduler loop started")
	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("scheduler loop stopped")
			return ctx.Err()
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Service) tick(ctx context.Context) {
	telemetry.SchedulerTicksTotal.Inc()

	stationIDs, err := s.getStationIDs(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("scheduler failed to load stations")
		telemetry.SchedulerErrorsTotal.WithLabelValues("", "load_stations").Inc()
		return
	}

	for _, stationID := range stationIDs {
		if err := s.scheduleStation(ctx, stationID); err != nil {
			s.logger.Warn().Err(err).Str("station", stationID).Msg("station scheduling failed")
			telemetry.SchedulerErrorsTotal.WithLabelValues(stationID, "schedule_station").Inc()
		}
	}

	// Periodically clean up old materialized entries (once per hour)
	s.maybeCleanupOldEntries(ctx)
}

// maybeCleanupOldEntries deletes materialized schedule entries older than 7 days.
// Runs at most once per hour to avoid unnecessary DB churn.
func (s *Service) maybeCleanupOldEntries(ctx context.Context) {
	s.mu.Lock()
	if time.Since(s.lastCleanup) < time.Hour {
		s.mu.Unlock()
		return
	}
	s.lastCleanup = time.Now()
	s.mu.Unlock()

	cutoff := time.Now().UTC().Add(-7 * 24 * time.Hour)
	result := s.db.WithContext(ctx).
		Where("ends_at < ?", cutoff).
		Delete(&models.ScheduleEntry{})
	if result.Error != nil {
		s.logger.Warn().Err(result.Error).Msg("failed to clean up old schedule entries")
		return
	}
	if result.RowsAffected > 0 {
		s.logger.Info().Int64("deleted", result.RowsAffected).Msg("cleaned up old materialized schedule entries")
	}
}

// getStationIDs retrieves station IDs, using cache when available.
func (s *Service) getStationIDs(ctx context.Context) ([]string, error) {
	if s.cache != nil {
		if cached, ok := s.cache.GetStationList(ctx); ok {
			ids := make([]string, len(cached))
			for i, station := range cached {
				ids[i] = station.ID
			}
			return ids, nil
		}
	}

	var stations []models.Station
	if err := s.db.WithContext(ctx).Select("id").Find(&stations).Error; err != nil {
		return nil, err
	}

	if s.cache != nil {
		cached := make([]cache.CachedStation, len(stations))
		for i, station := range stations {
			cached[i] = cache.CachedStation{ID: station.ID}
		}
		if err := s.cache.SetStationList(ctx, cached); err != nil {
			s.logger.Debug().Err(err).Msg("failed to cache station list")
		}
	}

	ids := make([]string, len(stations))
	for i, station := range stations {
		ids[i] = station.ID
	}
	return ids, nil
}

// scheduleStation compiles a station's clock templates into a schedule,
// resolves the collection enumerators it needs, resumes the station's saved
// playout.PlayoutBuilderState (or starts a fresh one), and runs the build.
// Resulting items are persisted as ScheduleEntry rows and the advanced state
// is saved so the next tick picks up exactly where this one left off.
func (s *Service) scheduleStation(ctx context.Context, stationID string) (buildErr error) {
	ctx, span := telemetry.StartSpan(ctx, "scheduler", "scheduleStation")
	defer span.End()
	telemetry.AddSpanAttributes(span, map[string]any{"station_id": stationID})

	entriesCreated := 0
	startTime := time.Now()
	defer func() {
		if s.bus == nil {
			return
		}
		if buildErr != nil {
			s.bus.Publish(events.EventScheduleBuildFailed, events.Payload{
				"station_id": stationID,
				"error":      buildErr.Error(),
			})
			return
		}
		if entriesCreated > 0 {
			s.bus.Publish(events.EventScheduleUpdate, events.Payload{
				"station_id": stationID,
				"entries":    entriesCreated,
			})
			s.bus.Publish(events.EventAuditScheduleRefresh, events.Payload{
				"station_id": stationID,
				"entries":    entriesCreated,
				"duration_s": time.Since(startTime).Seconds(),
			})
		}
	}()

	now := startTime.UTC()

	schedule, err := s.planner.Compile(stationID, now, s.lookahead)
	if err != nil {
		telemetry.RecordError(span, err)
		telemetry.SchedulerErrorsTotal.WithLabelValues(stationID, "compile").Inc()
		return err
	}

	if len(schedule) == 0 {
		reason, details, action := s.explainNoPlans(ctx, stationID)
		s.logger.Info().
			Str("station", stationID).
			Str("reason", reason).
			Str("details", details).
			Str("action", action).
			Msg("no schedule items to build")
		telemetry.ScheduleBuildDuration.WithLabelValues(stationID).Observe(time.Since(startTime).Seconds())
		return nil
	}

	mountID := s.getDefaultMountID(ctx, stationID)
	if mountID == "" {
		s.logger.Warn().Str("station", stationID).Msg("no mount found for station, skipping build")
		return nil
	}

	initial, ok := s.stateStore.BuildState(stationID)
	if !ok || initial.CurrentTime.Before(now) {
		initial = playout.PlayoutBuilderState{CurrentTime: now}
	}

	enumerators := s.buildEnumerators(ctx, stationID, schedule)
	loc := s.stationLocation(ctx, stationID)

	result, buildErr := playout.BuildPlayout(ctx, playout.BuildRequest{
		Schedule:     schedule,
		Enumerators:  enumerators,
		InitialState: initial,
		HardStop:     now.Add(s.buildHorizon()),
		Location:     loc,
		Logger:       zerologPlayoutLogger{logger: s.logger, stationID: stationID},
	})
	s.stateStore.SetBuildState(stationID, result.State)

	entriesCreated, persistErr := s.persistPlayoutItems(ctx, stationID, mountID, result.Items)
	if persistErr != nil {
		telemetry.SchedulerErrorsTotal.WithLabelValues(stationID, "persist_entries").Inc()
		return persistErr
	}

	if buildErr != nil {
		var be *playout.BuildError
		if errors.As(buildErr, &be) {
			telemetry.BuildErrorsTotal.WithLabelValues(be.Kind.String()).Inc()
			if be.Fatal() {
				s.logger.Error().Err(buildErr).Str("station", stationID).Msg("playout build stopped early")
				telemetry.SchedulerErrorsTotal.WithLabelValues(stationID, "build").Inc()
				return buildErr
			}
		}
	}

	duration := time.Since(startTime).Seconds()
	telemetry.ScheduleBuildDuration.WithLabelValues(stationID).Observe(duration)
	telemetry.ScheduleEntriesTotal.WithLabelValues(stationID).Add(float64(entriesCreated))
	telemetry.BuildProgressRatio.WithLabelValues(stationID).Set(progressRatio(result.State, schedule))

	if entriesCreated > 0 {
		s.validateFreshlyBuilt(ctx, stationID, result.Items)
	}

	return nil
}

// validateFreshlyBuilt runs the station's schedule rules against the window
// just persisted and logs any violations; rule checking never blocks a
// build, it only surfaces problems for operators to fix upstream.
func (s *Service) validateFreshlyBuilt(ctx context.Context, stationID string, items []playout.PlayoutItem) {
	if len(items) == 0 {
		return
	}
	start := items[0].Start
	end := items[0].Finish
	for _, item := range items {
		if item.Start.Before(start) {
			start = item.Start
		}
		if item.Finish.After(end) {
			end = item.Finish
		}
	}

	result, err := s.validator.Validate(stationID, start, end)
	if err != nil {
		s.logger.Debug().Err(err).Str("station", stationID).Msg("schedule validation failed to run")
		return
	}
	if len(result.Errors) > 0 {
		telemetry.ScheduleValidationViolationsTotal.WithLabelValues(stationID, "error").Add(float64(len(result.Errors)))
		s.logger.Warn().Str("station", stationID).Int("count", len(result.Errors)).Msg("schedule rule errors detected")
	}
	if len(result.Warnings) > 0 {
		telemetry.ScheduleValidationViolationsTotal.WithLabelValues(stationID, "warning").Add(float64(len(result.Warnings)))
	}
}

// progressRatio reports how far through the compiled schedule the build
// advanced, 0 when nothing has run yet and 1 once every item has been
// dispatched at least once.
func progressRatio(state playout.PlayoutBuilderState, schedule []playout.ScheduleItem) float64 {
	if len(schedule) == 0 {
		return 1
	}
	return float64(state.NextScheduleIndex) / float64(len(schedule))
}

// zerologPlayoutLogger adapts zerolog to playout.Logger's single-method
// surface. The playout builder already recovers and continues past every
// non-fatal error kind internally (BadConfiguration, CollectionEmpty,
// CollaboratorFault); this shim only has the formatted message to work with,
// so it logs at Warn and bumps a single aggregate counter. Kind-specific
// counts are only available for the Fatal/ScanCanceled errors BuildPlayout
// actually returns to the caller, which scheduleStation labels directly.
type zerologPlayoutLogger struct {
	logger    zerolog.Logger
	stationID string
}

func (l zerologPlayoutLogger) Warnf(format string, args ...any) {
	l.logger.Warn().Str("station", l.stationID).Msgf(format, args...)
	telemetry.BuildErrorsTotal.WithLabelValues("recovered").Inc()
}

// stationLocation loads a station's configured time zone, falling back to
// UTC when unset or invalid.
func (s *Service) stationLocation(ctx context.Context, stationID string) *time.Location {
	var station models.Station
	if err := s.db.WithContext(ctx).Select("timezone").Where("id = ?", stationID).First(&station).Error; err != nil || station.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(station.Timezone)
	if err != nil {
		s.logger.Warn().Err(err).Str("station_id", stationID).Str("timezone", station.Timezone).Msg("invalid station timezone, falling back to UTC")
		return time.UTC
	}
	return loc
}

// persistPlayoutItems writes a batch of playout.PlayoutItem as ScheduleEntry
// rows, skipping any that already exist for this station/mount/start time so
// a resumed build never double-inserts an occurrence it already materialized.
func (s *Service) persistPlayoutItems(ctx context.Context, stationID, mountID string, items []playout.PlayoutItem) (int, error) {
	if len(items) == 0 {
		return 0, nil
	}

	windowStart := items[0].Start
	windowEnd := items[0].Start
	for _, item := range items {
		if item.Start.Before(windowStart) {
			windowStart = item.Start
		}
		if item.Start.After(windowEnd) {
			windowEnd = item.Start
		}
	}

	var existing []models.ScheduleEntry
	if err := s.db.WithContext(ctx).
		Select("starts_at").
		Where("station_id = ? AND mount_id = ? AND starts_at >= ? AND starts_at <= ?", stationID, mountID, windowStart, windowEnd).
		Find(&existing).Error; err != nil {
		return 0, err
	}
	seen := make(map[int64]struct{}, len(existing))
	for _, e := range existing {
		seen[e.StartsAt.UnixNano()] = struct{}{}
	}

	entries := make([]models.ScheduleEntry, 0, len(items))
	for _, item := range items {
		if _, dup := seen[item.Start.UnixNano()]; dup {
			continue
		}
		entries = append(entries, models.ScheduleEntry{
			ID:         uuid.NewString(),
			StationID:  stationID,
			MountID:    mountID,
			StartsAt:   item.Start,
			EndsAt:     item.Finish,
			SourceType: "media",
			SourceID:   item.MediaItemID,
			IsFiller:   item.FillerKind != playout.FillerKindNone,
			GuideGroup: item.GuideGroup,
			Metadata: map[string]any{
				"filler_kind":        item.FillerKind.String(),
				"in_point_ms":        item.InPoint.Milliseconds(),
				"out_point_ms":       item.OutPoint.Milliseconds(),
				"disable_watermarks": item.DisableWatermarks,
			},
		})
	}
	if len(entries) == 0 {
		return 0, nil
	}
	if err := s.db.WithContext(ctx).Create(&entries).Error; err != nil {
		return 0, err
	}
	return len(entries), nil
}

func (s *Service) explainNoPlans(ctx context.Context, stationID string) (reason, details, action string) {
	var clockHours []models.ClockHour
	err := s.db.WithContext(ctx).
		Where("station_id = ?", stationID).
		Preload("Slots").
		Order("created_at ASC").
		Find(&clockHours).Error
	if errors.Is(err, gorm.ErrRecordNotFound) || len(clockHours) == 0 {
		return "no_clock_template", "No clock template exists for this station.", "Create a Clock Template and add at least one slot."
	}
	if err != nil {
		return "clock_lookup_failed", "Scheduler could not inspect clock configuration: " + err.Error(), "Check database health and retry scheduler."
	}
	for _, clockHour := range clockHours {
		if len(clockHour.Slots) > 0 {
			return "no_slots_generated", "Clock templates exist, but no schedule items were generated for the requested window.", "Verify clock start/end hour windows, slot offsets, and scheduler lookahead."
		}
	}
	return "clock_has_no_slots", "Clock templates exist, but all are empty (zero slots).", "Edit a Clock Template and add at least one slot (hard item, smart block, stopset, etc.)."
}

// getDefaultMountID retrieves the first mount for a station, using cache when available.
func (s *Service) getDefaultMountID(ctx context.Context, stationID string) string {
	if s.cache != nil {
		if cached, ok := s.cache.GetDefaultMount(ctx, stationID); ok {
			return cached.ID
		}
	}

	var mount models.Mount
	err := s.db.WithContext(ctx).
		Where("station_id = ?", stationID).
		Order("created_at ASC").
		First(&mount).Error
	if err != nil {
		return ""
	}

	if s.cache != nil {
		cached := &cache.CachedMount{
			ID:        mount.ID,
			StationID: mount.StationID,
			Name:      mount.Name,
		}
		if err := s.cache.SetDefaultMount(ctx, stationID, cached); err != nil {
			s.logger.Debug().Err(err).Str("station_id", stationID).Msg("failed to cache default mount")
		}
	}

	return mount.ID
}

// Materialize exposes smart block generation for APIs.
func (s *Service) Materialize(ctx context.Context, req smartblock.GenerateRequest) (smartblock.GenerateResult, error) {
	return s.engine.Generate(ctx, req)
}

// RefreshStation triggers immediate scheduling for a station.
func (s *Service) RefreshStation(ctx context.Context, stationID string) error {
	return s.scheduleStation(ctx, stationID)
}

// Simulate returns the schedule items the planner would compile for a
// station over the given window, without running the playout build or
// persisting anything.
func (s *Service) Simulate(ctx context.Context, stationID string, start time.Time, horizon time.Duration) ([]playout.ScheduleItem, error) {
	return s.planner.Compile(stationID, start, horizon)
}

// SimulateClock previews a single clock template in isolation.
func (s *Service) SimulateClock(ctx context.Context, clockID string, start time.Time, horizon time.Duration) ([]playout.ScheduleItem, error) {
	return s.planner.CompileForClock(clockID, start, horizon)
}

// Upcoming returns upcoming schedule entries within horizon.
func (s *Service) Upcoming(ctx context.Context, stationID string, from time.Time, horizon time.Duration) ([]models.ScheduleEntry, error) {
	if horizon <= 0 {
		horizon = 24 * time.Hour
	}
	var entries []models.ScheduleEntry
	err := s.db.WithContext(ctx).
		Where("station_id = ?", stationID).
		Where("starts_at >= ?", from).
		Where("starts_at <= ?", from.Add(horizon)).
		Order("starts_at ASC").
		Find(&entries).Error
	return entries, err
}
