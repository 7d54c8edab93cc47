// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/pdiddy/rankcompare/internal/compare"
	"github.com/pdiddy/rankcompare/internal/report"
	"github.com/pdiddy/rankcompare/internal/snapshot"
	"github.com/pdiddy/rankcompare/pkg/types"
)

var compareCmd = &cobra.Command{
	Use:   "compare [query...]",
	Short: "Measure how much providers agree on a ranking",
	Long: `Compare reports, for every pair of providers, the shared results (by DOI,
or by title when neither side has a DOI), results at the same rank, Jaccard
similarity, rank-biased overlap and term cosine similarity.

Results come from a live search or, with --from, from a saved snapshot.`,
	RunE: runCompare,
}

func init() {
	addRunFlags(compareCmd)
	addInputFlags(compareCmd)
	compareCmd.Flags().String("metrics", "", "comma-separated metrics: jaccard, rbo, cosine (default: all)")
	compareCmd.Flags().String("on", "", "comma-separated fields for per-field Jaccard and cosine (default cosine fields: title,abstract)")
	compareCmd.Flags().Float64("persistence", compare.DefaultPersistence, "RBO persistence p in (0, 1)")
	compareCmd.Flags().String("format", report.FormatNameTable, "output format: table or json")

	rootCmd.AddCommand(compareCmd)
}

// addInputFlags registers the flags selecting where result lists come from.
func addInputFlags(cmd *cobra.Command) {
	cmd.Flags().String("from", "", "read results from a snapshot instead of searching")
	cmd.Flags().Bool("boost", false, "re-rank results with the boost model before scoring")
	cmd.Flags().String("boost-file", "", "YAML boost model replacing the configured one (implies --boost)")
}

// resultSets returns the query and per-source lists to score, from a
// snapshot or a live search, boosted when requested.
func resultSets(cmd *cobra.Command, args []string) (string, map[string][]types.SearchResult, error) {
	boostFile, _ := cmd.Flags().GetString("boost-file")
	doBoost, _ := cmd.Flags().GetBool("boost")
	bcfg, err := loadBoost(boostFile)
	if err != nil {
		return "", nil, err
	}

	var (
		query   string
		results map[string][]types.SearchResult
	)
	if from, _ := cmd.Flags().GetString("from"); from != "" {
		snap, err := snapshot.Read(from)
		if err != nil {
			return "", nil, err
		}
		opts := readRunFlags(cmd)
		results, err = snap.Select(opts.sources)
		if err != nil {
			return "", nil, err
		}
		query = snap.Query
		if q := queryArg(args); q != "" {
			query = q
		}
	} else {
		query = queryArg(args)
		if query == "" {
			return "", nil, errors.New("provide a query or --from")
		}
		out, err := liveRun(cmd.Context(), query, readRunFlags(cmd), bcfg)
		if err != nil {
			return "", nil, err
		}
		for _, f := range out.Failures {
			app.log.WithFields(logrus.Fields{"source": f.Source, "reason": f.Reason}).Warn("source left out")
		}
		results = out.Results
	}

	if doBoost || boostFile != "" {
		results = boostAll(results, bcfg)
	}
	return query, results, nil
}

func runCompare(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	if format != report.FormatNameTable && format != report.FormatNameJSON {
		return fmt.Errorf("unknown format %q: use table or json", format)
	}
	metricNames, _ := cmd.Flags().GetString("metrics")
	on, _ := cmd.Flags().GetString("on")
	p, _ := cmd.Flags().GetFloat64("persistence")

	_, results, err := resultSets(cmd, args)
	if err != nil {
		return err
	}
	if len(results) < 2 {
		return fmt.Errorf("need results from at least two sources, have %d", len(results))
	}

	comparisons := compare.All(results, compare.Options{
		Metrics:     splitList(metricNames),
		Fields:      splitList(on),
		Persistence: p,
	})

	w := cmd.OutOrStdout()
	if format == report.FormatNameJSON {
		return report.FormatJSON(comparisons, w)
	}
	report.FormatComparisons(comparisons, w)
	return nil
}
