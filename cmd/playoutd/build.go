/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/friendsincode/signalcaster/internal/clock"
	"github.com/friendsincode/signalcaster/internal/config"
	"github.com/friendsincode/signalcaster/internal/db"
	"github.com/friendsincode/signalcaster/internal/logging"
	"github.com/friendsincode/signalcaster/internal/scheduler"
	schedulerstate "github.com/friendsincode/signalcaster/internal/scheduler/state"
	"github.com/friendsincode/signalcaster/internal/smartblock"
)

var buildStationID string

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Run one immediate scheduling pass for a station",
	Long: `build connects to the configured database, compiles the given
station's clock templates, runs the playout builder once, and persists the
resulting schedule entries, then exits. Useful for diagnosing why a station
isn't producing schedule entries without waiting for the next scheduler
tick.`,
	RunE: runBuild,
}

func init() {
	buildCmd.Flags().StringVar(&buildStationID, "station", "", "Station ID to build (required)")
	buildCmd.MarkFlagRequired("station")
	rootCmd.AddCommand(buildCmd)
}

func runBuild(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := logging.Setup(cfg.Environment)

	database, err := db.Connect(cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close(database)

	if err := db.Migrate(database); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}

	planner := clock.NewPlanner(database, logger)
	stateStore := schedulerstate.NewStore()
	blockEngine := smartblock.New(database, logger)
	svc := scheduler.New(database, planner, blockEngine, stateStore, cfg.BuildLookahead, cfg.BuildHardStop, logger)

	ctx := cmd.Context()
	if err := svc.RefreshStation(ctx, buildStationID); err != nil {
		return fmt.Errorf("build station %s: %w", buildStationID, err)
	}

	entries, err := svc.Upcoming(ctx, buildStationID, time.Now().UTC(), cfg.BuildLookahead)
	if err != nil {
		return fmt.Errorf("load upcoming entries: %w", err)
	}

	fmt.Printf("build complete for station %s: %d entries scheduled over the next %s\n",
		buildStationID, len(entries), cfg.BuildLookahead)
	return nil
}
