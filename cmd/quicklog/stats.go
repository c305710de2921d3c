package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/AstraSolis/quicklog/internal/store"
	"github.com/AstraSolis/quicklog/pkg/analyze"
	"github.com/AstraSolis/quicklog/pkg/model"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show entry counts and on-disk usage",
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

type statsReport struct {
	Logs  model.LogStats  `json:"logs"`
	Files model.FileStats `json:"files"`
}

func runStats(cmd *cobra.Command, args []string) error {
	dir, err := analyzeDir()
	if err != nil {
		return err
	}

	logStats, err := analyze.New(dir).Stats()
	if err != nil {
		return err
	}
	fileStats, err := store.DirStats(dir)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if outputFormat == "json" {
		return printJSON(w, statsReport{Logs: logStats, Files: fileStats})
	}

	fmt.Fprintf(w, "Total entries:  %d\n", logStats.TotalLogs)
	fmt.Fprintf(w, "Errors:         %d\n", logStats.ErrorCount)
	fmt.Fprintf(w, "Warnings:       %d\n", logStats.WarningCount)

	fmt.Fprintln(w, "By level:")
	for _, l := range model.Levels {
		if n := logStats.ByLevel[l.String()]; n > 0 {
			fmt.Fprintf(w, "  %-6s %d\n", l.String(), n)
		}
	}

	if len(logStats.ByCategory) > 0 {
		cats := make([]string, 0, len(logStats.ByCategory))
		for c := range logStats.ByCategory {
			cats = append(cats, c)
		}
		sort.Strings(cats)
		fmt.Fprintln(w, "By category:")
		for _, c := range cats {
			fmt.Fprintf(w, "  %-8s %d\n", c, logStats.ByCategory[c])
		}
	}

	fmt.Fprintf(w, "Disk: %d files, %d bytes (%d active, %d archived, %d compressed)\n",
		fileStats.FileCount, fileStats.TotalSizeBytes,
		len(fileStats.ActiveFiles), fileStats.ArchivedFiles, fileStats.CompressedFiles)
	return nil
}
