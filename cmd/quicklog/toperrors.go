package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AstraSolis/quicklog/pkg/analyze"
)

var (
	topLimit int

	topErrorsCmd = &cobra.Command{
		Use:   "top-errors",
		Short: "Show the most frequent error messages",
		RunE:  runTopErrors,
	}
)

func init() {
	topErrorsCmd.Flags().IntVar(&topLimit, "limit", 10, "maximum groups to print")
	rootCmd.AddCommand(topErrorsCmd)
}

func runTopErrors(cmd *cobra.Command, args []string) error {
	dir, err := analyzeDir()
	if err != nil {
		return err
	}

	groups, err := analyze.New(dir).TopErrors(topLimit)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if outputFormat == "json" {
		return printJSON(w, groups)
	}

	if len(groups) == 0 {
		fmt.Fprintln(w, "no errors recorded")
		return nil
	}
	for _, g := range groups {
		fmt.Fprintf(w, "%5d  %s  %s\n", g.Count, g.LastOccurred, g.Message)
	}
	return nil
}
