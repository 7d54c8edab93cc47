// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or clear the provider result cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show how many entries the result cache holds",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore(cmd.Context(), app.cfg.Cache)
		if err != nil {
			return err
		}
		if store == nil {
			return errors.New("result cache disabled (cache.backend: none)")
		}
		defer store.Close()

		st, err := store.Stats(cmd.Context())
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "backend  %s\n", st.Backend)
		fmt.Fprintf(w, "entries  %d\n", st.Entries)
		fmt.Fprintf(w, "expired  %d\n", st.Expired)
		return nil
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every entry from the result cache",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore(cmd.Context(), app.cfg.Cache)
		if err != nil {
			return err
		}
		if store == nil {
			return errors.New("result cache disabled (cache.backend: none)")
		}
		defer store.Close()

		n, err := store.Clear(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed %d cache entries.\n", n)
		return nil
	},
}

func init() {
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheClearCmd)
	rootCmd.AddCommand(cacheCmd)
}
