// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/rankcompare/internal/report"
	"github.com/pdiddy/rankcompare/internal/snapshot"
	"github.com/pdiddy/rankcompare/pkg/types"
)

var searchCmd = &cobra.Command{
	Use:   "search [query...]",
	Short: "Fetch one query from several providers",
	Long: `Search sends the query to every requested provider and prints each
provider's ranked list. Providers that fail are listed with the reason;
the command fails only when no provider returns results.

With --boost the lists are re-ranked by the configured boost model (or the
model in --boost-file). With --out the run is saved as a snapshot that
compare and evaluate can read with --from.`,
	RunE: runSearch,
}

func init() {
	addRunFlags(searchCmd)
	searchCmd.Flags().Bool("boost", false, "re-rank results with the boost model")
	searchCmd.Flags().String("boost-file", "", "YAML boost model replacing the configured one (implies --boost)")
	searchCmd.Flags().String("format", report.FormatNameTable, "output format: table, json or csl")
	searchCmd.Flags().String("out", "", "save the run as a YAML snapshot at this path")

	rootCmd.AddCommand(searchCmd)
}

// addRunFlags registers the aggregation flags shared by search, compare and
// evaluate.
func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().String("sources", "", "comma-separated providers (default: all enabled)")
	cmd.Flags().String("fields", "", "comma-separated result fields to request (e.g. title,abstract,doi)")
	cmd.Flags().Int("limit", 20, "maximum results per provider")
	cmd.Flags().Int("max-attempts", 0, "attempts per provider (default: aggregate.max_attempts)")
	cmd.Flags().Bool("no-cache", false, "bypass the result cache")
	cmd.Flags().Bool("no-intent", false, "skip query-intent rewriting")
}

func readRunFlags(cmd *cobra.Command) runOptions {
	sources, _ := cmd.Flags().GetString("sources")
	fields, _ := cmd.Flags().GetString("fields")
	limit, _ := cmd.Flags().GetInt("limit")
	maxAttempts, _ := cmd.Flags().GetInt("max-attempts")
	noCache, _ := cmd.Flags().GetBool("no-cache")
	noIntent, _ := cmd.Flags().GetBool("no-intent")
	return runOptions{
		sources:     splitList(sources),
		fields:      splitList(fields),
		limit:       limit,
		maxAttempts: maxAttempts,
		noCache:     noCache,
		noIntent:    noIntent,
	}
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := queryArg(args)
	if query == "" {
		return errors.New("provide a query")
	}
	format, _ := cmd.Flags().GetString("format")
	switch format {
	case report.FormatNameTable, report.FormatNameJSON, report.FormatNameCSL:
	default:
		return fmt.Errorf("unknown format %q: use table, json or csl", format)
	}

	boostFile, _ := cmd.Flags().GetString("boost-file")
	doBoost, _ := cmd.Flags().GetBool("boost")
	doBoost = doBoost || boostFile != ""
	bcfg, err := loadBoost(boostFile)
	if err != nil {
		return err
	}

	opts := readRunFlags(cmd)
	out, err := liveRun(cmd.Context(), query, opts, bcfg)
	if err != nil && out.Results == nil {
		return err
	}
	if err != nil {
		app.log.WithError(err).Warn("search interrupted; showing partial results")
	}

	var applied *types.BoostConfig
	if doBoost {
		out.Results = boostAll(out.Results, bcfg)
		applied = &bcfg
	}

	if path, _ := cmd.Flags().GetString("out"); path != "" {
		snap := snapshot.FromOutput(out, requestedSources(opts), opts.limit, applied, time.Now())
		if err := snapshot.Write(path, snap); err != nil {
			return err
		}
		app.log.WithField("path", path).Info("snapshot saved")
	}

	w := cmd.OutOrStdout()
	switch format {
	case report.FormatNameJSON:
		if err := report.FormatJSON(report.NewRunDocument(out), w); err != nil {
			return err
		}
	case report.FormatNameCSL:
		if err := report.FormatCSL(flatten(out.Results), w); err != nil {
			return err
		}
	default:
		report.FormatRun(out, w)
	}

	if out.Empty() {
		return errors.New("no results from any requested source")
	}
	return nil
}

func requestedSources(opts runOptions) []string {
	if len(opts.sources) > 0 {
		return opts.sources
	}
	return enabledSources(app.cfg)
}

// flatten concatenates per-source lists in source order.
func flatten(results map[string][]types.SearchResult) []types.SearchResult {
	names := make([]string, 0, len(results))
	for name := range results {
		names = append(names, name)
	}
	sort.Strings(names)

	var out []types.SearchResult
	for _, name := range names {
		out = append(out, results[name]...)
	}
	return out
}
