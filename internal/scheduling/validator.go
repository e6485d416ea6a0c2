/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package scheduling

import (
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/friendsincode/signalcaster/internal/models"
)

// ScheduleItem is the shape the validator checks rules against: either a
// materialized ScheduleEntry row or a freshly built, not-yet-persisted
// playout.PlayoutItem being checked before it is committed.
type ScheduleItem struct {
	ID         string
	Display    string // human-friendly label for diagnostic messages
	StationID  string
	StartsAt   time.Time
	EndsAt     time.Time
	SourceType string
	SourceID   string
	IsFiller   bool
	GuideGroup int64
	Metadata   map[string]any
}

// Validator checks a built or materialized schedule against built-in and
// station-configured rules. It never builds the schedule itself — that is
// the playout package's job — it only judges the result.
type Validator struct {
	db     *gorm.DB
	logger zerolog.Logger
}

// NewValidator creates a new schedule validator.
func NewValidator(db *gorm.DB, logger zerolog.Logger) *Validator {
	return &Validator{
		db:     db,
		logger: logger.With().Str("component", "scheduler_validator").Logger(),
	}
}

// Validate checks the materialized schedule for a station within a date range.
func (v *Validator) Validate(stationID string, start, end time.Time) (*models.ValidationResult, error) {
	items, err := v.fetchScheduleItems(stationID, start, end)
	if err != nil {
		return nil, err
	}
	return v.ValidateItems(stationID, items, start, end)
}

// ValidateItems runs all built-in and configured rules against an in-memory
// set of items, without touching the database for the items themselves.
// Validate calls it with the rows it loaded for the requested window.
func (v *Validator) ValidateItems(stationID string, items []ScheduleItem, start, end time.Time) (*models.ValidationResult, error) {
	result := &models.ValidationResult{
		Valid:      true,
		Errors:     []models.ValidationViolation{},
		Warnings:   []models.ValidationViolation{},
		Info:       []models.ValidationViolation{},
		CheckedAt:  time.Now(),
		RangeStart: start,
		RangeEnd:   end,
	}

	var rules []models.ScheduleRule
	v.db.Where("station_id = ? AND active = ?", stationID, true).Find(&rules)

	for _, violation := range v.checkOverlaps(items) {
		result.Errors = append(result.Errors, violation)
		result.Valid = false
	}

	for _, rule := range rules {
		for _, violation := range v.runRule(rule, items, start, end) {
			switch violation.Severity {
			case models.RuleSeverityError:
				result.Errors = append(result.Errors, violation)
				result.Valid = false
			case models.RuleSeverityWarning:
				result.Warnings = append(result.Warnings, violation)
			case models.RuleSeverityInfo:
				result.Info = append(result.Info, violation)
			}
		}
	}

	return result, nil
}

// ValidateItem checks a single item against overlap and configured rules
// (for pre-commit validation of one freshly built PlayoutItem).
func (v *Validator) ValidateItem(item ScheduleItem) ([]models.ValidationViolation, error) {
	items, err := v.fetchScheduleItems(item.StationID, item.StartsAt.Add(-24*time.Hour), item.EndsAt.Add(24*time.Hour))
	if err != nil {
		return nil, err
	}
	items = append(items, item)

	var violations []models.ValidationViolation
	for _, other := range items {
		if other.ID == item.ID {
			continue
		}
		if itemsOverlap(item, other) {
			violations = append(violations, overlapViolation(item, other))
			break
		}
	}

	var rules []models.ScheduleRule
	v.db.Where("station_id = ? AND active = ?", item.StationID, true).Find(&rules)
	for _, rule := range rules {
		violations = append(violations, v.runRuleForItem(rule, item)...)
	}

	return violations, nil
}

func (v *Validator) fetchScheduleItems(stationID string, start, end time.Time) ([]ScheduleItem, error) {
	var entries []models.ScheduleEntry
	if err := v.db.Where("station_id = ? AND starts_at < ? AND ends_at > ?",
		stationID, end, start).Find(&entries).Error; err != nil {
		return nil, err
	}

	items := make([]ScheduleItem, 0, len(entries))
	for _, entry := range entries {
		items = append(items, ScheduleItem{
			ID:         entry.ID,
			Display:    entry.SourceType,
			StationID:  entry.StationID,
			StartsAt:   entry.StartsAt,
			EndsAt:     entry.EndsAt,
			SourceType: entry.SourceType,
			SourceID:   entry.SourceID,
			IsFiller:   entry.IsFiller,
			GuideGroup: entry.GuideGroup,
			Metadata:   entry.Metadata,
		})
	}

	sort.Slice(items, func(i, j int) bool {
		return items[i].StartsAt.Before(items[j].StartsAt)
	})

	return items, nil
}

// checkOverlaps detects overlapping items — the one rule that is always on,
// since two items playing the same second is never a valid linear schedule.
func (v *Validator) checkOverlaps(items []ScheduleItem) []models.ValidationViolation {
	var violations []models.ValidationViolation

	for i := 0; i < len(items); i++ {
		for j := i + 1; j < len(items); j++ {
			if itemsOverlap(items[i], items[j]) {
				violations = append(violations, overlapViolation(items[i], items[j]))
			}
		}
	}

	return violations
}

func overlapViolation(a, b ScheduleItem) models.ValidationViolation {
	overlapStart := maxTime(a.StartsAt, b.StartsAt)
	overlapEnd := minTime(a.EndsAt, b.EndsAt)
	overlapMinutes := int(overlapEnd.Sub(overlapStart).Minutes())
	if overlapMinutes < 0 {
		overlapMinutes = 0
	}

	return models.ValidationViolation{
		RuleType:    models.RuleTypeOverlap,
		RuleName:    "Schedule Overlap",
		Severity:    models.RuleSeverityError,
		Message:     fmt.Sprintf("%s overlaps with %s from %s to %s (%d minutes). Only one item may play at a time.", itemLabel(a), itemLabel(b), overlapStart.Format(time.RFC3339), overlapEnd.Format(time.RFC3339), overlapMinutes),
		StartsAt:    a.StartsAt,
		EndsAt:      a.EndsAt,
		AffectedIDs: []string{a.ID, b.ID},
		Details: map[string]any{
			"overlap_start":   overlapStart,
			"overlap_end":     overlapEnd,
			"overlap_minutes": overlapMinutes,
		},
	}
}

func itemLabel(item ScheduleItem) string {
	if item.Display != "" {
		return item.Display
	}
	if item.SourceType != "" {
		return item.SourceType
	}
	return "item"
}

func maxTime(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func minTime(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}

func itemsOverlap(a, b ScheduleItem) bool {
	return a.StartsAt.Before(b.EndsAt) && a.EndsAt.After(b.StartsAt)
}

func (v *Validator) runRule(rule models.ScheduleRule, items []ScheduleItem, start, end time.Time) []models.ValidationViolation {
	switch rule.RuleType {
	case models.RuleTypeGap:
		return v.checkGaps(rule, items)
	case models.RuleTypeMinDuration:
		return v.checkMinDuration(rule, items)
	case models.RuleTypeMaxDuration:
		return v.checkMaxDuration(rule, items)
	case models.RuleTypeMinuteAlign:
		return v.checkMinuteAlignment(rule, items)
	default:
		return nil
	}
}

func (v *Validator) runRuleForItem(rule models.ScheduleRule, item ScheduleItem) []models.ValidationViolation {
	switch rule.RuleType {
	case models.RuleTypeMinDuration:
		return v.checkMinDuration(rule, []ScheduleItem{item})
	case models.RuleTypeMaxDuration:
		return v.checkMaxDuration(rule, []ScheduleItem{item})
	case models.RuleTypeMinuteAlign:
		return v.checkMinuteAlignment(rule, []ScheduleItem{item})
	default:
		return nil
	}
}

// checkGaps detects gaps in the schedule exceeding the configured threshold.
// A linear channel plan should have no unexplained silence between items.
func (v *Validator) checkGaps(rule models.ScheduleRule, items []ScheduleItem) []models.ValidationViolation {
	var violations []models.ValidationViolation

	maxGapMinutes := 1 // default: any gap over a minute is suspicious for a filled-to-the-second plan
	if val, ok := rule.Config["max_gap_minutes"].(float64); ok {
		maxGapMinutes = int(val)
	}

	for i := 0; i < len(items)-1; i++ {
		gapStart := items[i].EndsAt
		gapEnd := items[i+1].StartsAt
		gapMinutes := int(gapEnd.Sub(gapStart).Minutes())
		if gapMinutes > maxGapMinutes {
			violations = append(violations, models.ValidationViolation{
				RuleID:   rule.ID,
				RuleType: models.RuleTypeGap,
				RuleName: rule.Name,
				Severity: rule.Severity,
				Message:  fmt.Sprintf("Schedule gap of %d minutes exceeds the %d minute threshold", gapMinutes, maxGapMinutes),
				StartsAt: gapStart,
				EndsAt:   gapEnd,
				Details: map[string]any{
					"gap_minutes": gapMinutes,
					"max_allowed": maxGapMinutes,
				},
			})
		}
	}

	return violations
}

func (v *Validator) checkMinDuration(rule models.ScheduleRule, items []ScheduleItem) []models.ValidationViolation {
	var violations []models.ValidationViolation

	minMinutes := 0
	if val, ok := rule.Config["minutes"].(float64); ok {
		minMinutes = int(val)
	}

	for _, item := range items {
		duration := int(item.EndsAt.Sub(item.StartsAt).Minutes())
		if duration < minMinutes {
			violations = append(violations, models.ValidationViolation{
				RuleID:      rule.ID,
				RuleType:    models.RuleTypeMinDuration,
				RuleName:    rule.Name,
				Severity:    rule.Severity,
				Message:     fmt.Sprintf("%s duration %dm is below the %dm minimum", itemLabel(item), duration, minMinutes),
				StartsAt:    item.StartsAt,
				EndsAt:      item.EndsAt,
				AffectedIDs: []string{item.ID},
				Details: map[string]any{
					"duration_minutes": duration,
					"min_required":     minMinutes,
				},
			})
		}
	}

	return violations
}

func (v *Validator) checkMaxDuration(rule models.ScheduleRule, items []ScheduleItem) []models.ValidationViolation {
	var violations []models.ValidationViolation

	maxMinutes := 240
	if val, ok := rule.Config["minutes"].(float64); ok {
		maxMinutes = int(val)
	}

	for _, item := range items {
		duration := int(item.EndsAt.Sub(item.StartsAt).Minutes())
		if duration > maxMinutes {
			violations = append(violations, models.ValidationViolation{
				RuleID:      rule.ID,
				RuleType:    models.RuleTypeMaxDuration,
				RuleName:    rule.Name,
				Severity:    rule.Severity,
				Message:     fmt.Sprintf("%s duration %dm exceeds the %dm maximum", itemLabel(item), duration, maxMinutes),
				StartsAt:    item.StartsAt,
				EndsAt:      item.EndsAt,
				AffectedIDs: []string{item.ID},
				Details: map[string]any{
					"duration_minutes": duration,
					"max_allowed":      maxMinutes,
				},
			})
		}
	}

	return violations
}

// checkMinuteAlignment flags guide-group items whose end does not land on a
// whole minute boundary, which the filler composer's pad-to-nearest-minute
// step is responsible for preventing.
func (v *Validator) checkMinuteAlignment(rule models.ScheduleRule, items []ScheduleItem) []models.ValidationViolation {
	var violations []models.ValidationViolation

	for _, item := range items {
		if item.GuideGroup == 0 {
			continue
		}
		if item.EndsAt.Second() != 0 || item.EndsAt.Nanosecond() != 0 {
			violations = append(violations, models.ValidationViolation{
				RuleID:      rule.ID,
				RuleType:    models.RuleTypeMinuteAlign,
				RuleName:    rule.Name,
				Severity:    rule.Severity,
				Message:     fmt.Sprintf("Guide group %d ends at %s, which is not aligned to a minute boundary", item.GuideGroup, item.EndsAt.Format(time.RFC3339)),
				StartsAt:    item.StartsAt,
				EndsAt:      item.EndsAt,
				AffectedIDs: []string{item.ID},
			})
		}
	}

	return violations
}
