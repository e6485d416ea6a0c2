/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "playoutd",
	Short: "signalcaster playout scheduler",
	Long: `playoutd compiles station clock templates into a rolling playout
schedule and materializes it as persisted schedule entries.

Run "playoutd serve" to start the scheduler loop and ops HTTP surface
(health and metrics only). Use "playoutd build" and "playoutd simulate"
for one-shot diagnostics against a running database.`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
