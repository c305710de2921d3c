package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/AstraSolis/quicklog/pkg/analyze"
)

var (
	trendDays int

	trendsCmd = &cobra.Command{
		Use:   "trends",
		Short: "Show error counts per day",
		Long: `trends buckets ERROR and FATAL entries by UTC calendar date over
the trailing days, today included. Days without errors print as zero.`,
		RunE: runTrends,
	}
)

func init() {
	trendsCmd.Flags().IntVar(&trendDays, "days", 7, "number of trailing days")
	rootCmd.AddCommand(trendsCmd)
}

func runTrends(cmd *cobra.Command, args []string) error {
	dir, err := analyzeDir()
	if err != nil {
		return err
	}

	points, err := analyze.New(dir).ErrorTrends(trendDays)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if outputFormat == "json" {
		return printJSON(w, points)
	}

	max := 0
	for _, p := range points {
		if p.Count > max {
			max = p.Count
		}
	}
	for _, p := range points {
		bar := ""
		if max > 0 {
			bar = strings.Repeat("#", p.Count*40/max)
		}
		fmt.Fprintf(w, "%s  %4d  %s\n", p.Date, p.Count, bar)
	}
	return nil
}
