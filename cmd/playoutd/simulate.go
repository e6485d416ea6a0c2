/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/friendsincode/signalcaster/internal/clock"
	"github.com/friendsincode/signalcaster/internal/config"
	"github.com/friendsincode/signalcaster/internal/db"
	"github.com/friendsincode/signalcaster/internal/logging"
	"github.com/friendsincode/signalcaster/internal/models"
	"github.com/friendsincode/signalcaster/internal/playout"
)

var (
	simulateClockID string
	simulateFixture string
	simulateStart   string
	simulateHorizon time.Duration
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Preview a clock template's compiled schedule without persisting anything",
	Long: `simulate expands a single clock hour template into the ordered
schedule items playout.BuildPlayout would consume, and prints them as JSON.

Pass --clock to preview a template already stored in the database, or
--fixture to preview a template defined in a local YAML file before it is
ever saved — handy for iterating on a clock design offline.`,
	RunE: runSimulate,
}

func init() {
	simulateCmd.Flags().StringVar(&simulateClockID, "clock", "", "Clock template ID to preview (mutually exclusive with --fixture)")
	simulateCmd.Flags().StringVar(&simulateFixture, "fixture", "", "Path to a YAML clock-template fixture to preview")
	simulateCmd.Flags().StringVar(&simulateStart, "start", "", "Preview window start, RFC3339 (default: now)")
	simulateCmd.Flags().DurationVar(&simulateHorizon, "horizon", time.Hour, "Preview window length")
	rootCmd.AddCommand(simulateCmd)
}

// clockFixture is the on-disk shape of a --fixture file: a human-editable
// stand-in for a models.ClockHour row and its slots.
type clockFixture struct {
	Name     string             `yaml:"name"`
	Timezone string             `yaml:"timezone"`
	Slots    []clockFixtureSlot `yaml:"slots"`
}

type clockFixtureSlot struct {
	Position   int            `yaml:"position"`
	OffsetSecs int            `yaml:"offset_seconds"`
	Type       string         `yaml:"type"`
	Payload    map[string]any `yaml:"payload"`
}

func runSimulate(cmd *cobra.Command, args []string) error {
	if simulateClockID == "" && simulateFixture == "" {
		return fmt.Errorf("one of --clock or --fixture is required")
	}
	if simulateClockID != "" && simulateFixture != "" {
		return fmt.Errorf("--clock and --fixture are mutually exclusive")
	}

	start := time.Now().UTC()
	if simulateStart != "" {
		parsed, err := time.Parse(time.RFC3339, simulateStart)
		if err != nil {
			return fmt.Errorf("invalid --start: %w", err)
		}
		start = parsed.UTC()
	}

	var items []playoutScheduleItem
	if simulateFixture != "" {
		fixtureItems, err := simulateFromFixture(simulateFixture, start, simulateHorizon)
		if err != nil {
			return err
		}
		items = fixtureItems
	} else {
		dbItems, err := simulateFromDatabase(cmd, simulateClockID, start, simulateHorizon)
		if err != nil {
			return err
		}
		items = dbItems
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(items)
}

// playoutScheduleItem is a flattened, JSON-friendly view of a
// playout.ScheduleItem's base fields, since the interface itself has no
// exported field set a caller outside the package can marshal directly.
type playoutScheduleItem struct {
	Index          int    `json:"index"`
	CollectionType string `json:"collection_type"`
	CollectionID   string `json:"collection_id"`
}

func simulateFromDatabase(cmd *cobra.Command, clockID string, start time.Time, horizon time.Duration) ([]playoutScheduleItem, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := logging.Setup(cfg.Environment)

	database, err := db.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close(database)

	planner := clock.NewPlanner(database, logger)
	schedule, err := planner.CompileForClock(clockID, start, horizon)
	if err != nil {
		return nil, fmt.Errorf("compile clock %s: %w", clockID, err)
	}
	return flattenSchedule(schedule), nil
}

func simulateFromFixture(path string, start time.Time, horizon time.Duration) ([]playoutScheduleItem, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}

	var fixture clockFixture
	if err := yaml.Unmarshal(raw, &fixture); err != nil {
		return nil, fmt.Errorf("parse fixture: %w", err)
	}

	loc := time.UTC
	if fixture.Timezone != "" {
		loaded, err := time.LoadLocation(fixture.Timezone)
		if err != nil {
			return nil, fmt.Errorf("invalid fixture timezone %q: %w", fixture.Timezone, err)
		}
		loc = loaded
	}

	clockHour := models.ClockHour{
		ID:   uuid.NewString(),
		Name: fixture.Name,
	}
	for _, slot := range fixture.Slots {
		clockHour.Slots = append(clockHour.Slots, models.ClockSlot{
			ID:       uuid.NewString(),
			Position: slot.Position,
			Offset:   time.Duration(slot.OffsetSecs) * time.Second,
			Type:     models.ClockSlotType(slot.Type),
			Payload:  slot.Payload,
		})
	}

	schedule := clock.CompileFixture(clockHour, start, horizon, loc)
	return flattenSchedule(schedule), nil
}

func flattenSchedule(schedule []playout.ScheduleItem) []playoutScheduleItem {
	items := make([]playoutScheduleItem, len(schedule))
	for i, item := range schedule {
		base := item.Base()
		items[i] = playoutScheduleItem{
			Index:          base.Index,
			CollectionType: base.CollectionType,
			CollectionID:   base.CollectionKey.ID,
		}
	}
	return items
}
