// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"errors"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/pdiddy/rankcompare/internal/evaluate"
	"github.com/pdiddy/rankcompare/internal/judgments"
	"github.com/pdiddy/rankcompare/internal/report"
	"github.com/pdiddy/rankcompare/pkg/types"
)

const defaultJudgmentsPath = "judgments"

var evaluateCmd = &cobra.Command{
	Use:   "evaluate [query...]",
	Short: "Score provider rankings against relevance judgments",
	Long: `Evaluate matches each provider's results to the judged documents of a
case (by bibliographic identifier, then by title) and reports nDCG and
precision at 5, 10 and 20, and recall.

The query is matched to the case's judged queries exactly, then by shared
words, then by spelling similarity. When nothing matches, the judged
queries are listed.`,
	RunE: runEvaluate,
}

var casesCmd = &cobra.Command{
	Use:   "cases",
	Short: "List judgment cases and their queries",
	RunE:  runCases,
}

func init() {
	addRunFlags(evaluateCmd)
	addInputFlags(evaluateCmd)
	evaluateCmd.Flags().String("judgments", defaultJudgmentsPath, "judgment YAML file or directory")
	evaluateCmd.Flags().String("case", "", "judgment case ID (default: the only case)")
	evaluateCmd.Flags().String("format", report.FormatNameTable, "output format: table or json")

	casesCmd.Flags().String("judgments", defaultJudgmentsPath, "judgment YAML file or directory")

	rootCmd.AddCommand(evaluateCmd)
	rootCmd.AddCommand(casesCmd)
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	if format != report.FormatNameTable && format != report.FormatNameJSON {
		return fmt.Errorf("unknown format %q: use table or json", format)
	}
	path, _ := cmd.Flags().GetString("judgments")
	store, err := judgments.Load(path, app.log)
	if err != nil {
		return err
	}
	caseID, _ := cmd.Flags().GetString("case")
	if caseID == "" {
		id, ok := store.DefaultCase()
		if !ok {
			return errors.New("several judgment cases loaded; choose one with --case")
		}
		caseID = id
	}
	judged, err := store.Judgments(caseID)
	if err != nil {
		return err
	}

	query, results, err := resultSets(cmd, args)
	if err != nil {
		return err
	}

	sources := make([]string, 0, len(results))
	for name := range results {
		sources = append(sources, name)
	}
	sort.Strings(sources)

	evals := make(map[string]types.EvaluationResult, len(sources))
	for _, name := range sources {
		evals[name] = evaluate.Evaluate(query, results[name], judged)
	}

	w := cmd.OutOrStdout()
	if format == report.FormatNameJSON {
		return report.FormatJSON(evals, w)
	}
	fmt.Fprintf(w, "Case: %s\nQuery: %s\n\n", caseID, query)
	for _, name := range sources {
		report.FormatEvaluation(name, evals[name], w)
	}
	if len(sources) == 0 {
		fmt.Fprintln(w, "No results from any requested source.")
	}
	return nil
}

func runCases(cmd *cobra.Command, args []string) error {
	path, _ := cmd.Flags().GetString("judgments")
	store, err := judgments.Load(path, app.log)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	cases := store.ListCases()
	if len(cases) == 0 {
		fmt.Fprintln(w, "No judgment cases found.")
		return nil
	}
	for _, c := range cases {
		if c.Name != "" {
			fmt.Fprintf(w, "%s  %s\n", c.ID, c.Name)
		} else {
			fmt.Fprintln(w, c.ID)
		}
		for _, q := range c.Queries {
			fmt.Fprintf(w, "  - %s\n", q)
		}
	}
	return nil
}
