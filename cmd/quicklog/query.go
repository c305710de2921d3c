package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/AstraSolis/quicklog/internal/format"
	"github.com/AstraSolis/quicklog/pkg/analyze"
	"github.com/AstraSolis/quicklog/pkg/model"
)

var (
	queryStart      string
	queryEnd        string
	queryLevels     []string
	queryCategories []string
	querySources    []string
	queryKeyword    string
	queryRegex      string
	queryWhere      string
	querySortBy     string
	queryOrder      string
	queryOffset     int
	queryLimit      int

	queryCmd = &cobra.Command{
		Use:   "query",
		Short: "Search and filter stored entries",
		Long: `query scans the log directory (archives included, compressed or
not) and prints the entries matching the given filters.`,
		RunE: runQuery,
	}
)

func init() {
	f := queryCmd.Flags()
	f.StringVar(&queryStart, "start", "", "inclusive lower timestamp bound (ISO-8601)")
	f.StringVar(&queryEnd, "end", "", "inclusive upper timestamp bound (ISO-8601)")
	f.StringSliceVar(&queryLevels, "level", nil, "levels to keep (repeatable)")
	f.StringSliceVar(&queryCategories, "category", nil, "categories to keep (repeatable)")
	f.StringSliceVar(&querySources, "source", nil, "sources to keep (repeatable)")
	f.StringVar(&queryKeyword, "keyword", "", "case-insensitive substring over message and filename")
	f.StringVar(&queryRegex, "regex", "", "regular expression over message and filename")
	f.StringVar(&queryWhere, "where", "", `filter expression, e.g. 'level >= ERROR AND message CONTAINS "timeout"'`)
	f.StringVar(&querySortBy, "sort", "timestamp", "sort key: timestamp, level, category or source")
	f.StringVar(&queryOrder, "order", "desc", "sort order: asc or desc")
	f.IntVar(&queryOffset, "offset", 0, "entries to skip")
	f.IntVar(&queryLimit, "limit", 100, "maximum entries to print (0 = unlimited)")
	rootCmd.AddCommand(queryCmd)
}

func buildQueryOptions() (model.QueryOptions, error) {
	opts := model.QueryOptions{
		StartTime: queryStart,
		EndTime:   queryEnd,
		Keyword:   queryKeyword,
		Regex:     queryRegex,
		Where:     queryWhere,
		Offset:    queryOffset,
		Limit:     queryLimit,
	}

	switch querySortBy {
	case "timestamp":
		opts.SortBy = model.SortByTimestamp
	case "level":
		opts.SortBy = model.SortByLevel
	case "category":
		opts.SortBy = model.SortByCategory
	case "source":
		opts.SortBy = model.SortBySource
	default:
		return opts, fmt.Errorf("unknown sort key %q", querySortBy)
	}
	switch queryOrder {
	case "asc":
		opts.Order = model.OrderAsc
	case "desc":
		opts.Order = model.OrderDesc
	default:
		return opts, fmt.Errorf("unknown sort order %q", queryOrder)
	}

	for _, s := range queryLevels {
		l, err := model.ParseLevel(s)
		if err != nil {
			return opts, err
		}
		opts.Levels = append(opts.Levels, l)
	}
	for _, s := range queryCategories {
		c, err := model.ParseCategory(s)
		if err != nil {
			return opts, err
		}
		opts.Categories = append(opts.Categories, c)
	}
	for _, s := range querySources {
		src, err := model.ParseSource(s)
		if err != nil {
			return opts, err
		}
		opts.Sources = append(opts.Sources, src)
	}
	return opts, nil
}

func runQuery(cmd *cobra.Command, args []string) error {
	dir, err := analyzeDir()
	if err != nil {
		return err
	}
	opts, err := buildQueryOptions()
	if err != nil {
		return err
	}

	entries, err := analyze.New(dir).Query(opts)
	if err != nil {
		return err
	}
	return printEntries(cmd.OutOrStdout(), entries)
}

func printEntries(w io.Writer, entries []*model.LogEntry) error {
	switch outputFormat {
	case "json":
		return printJSON(w, entries)
	case "text":
		colors := stdoutIsTerminal()
		for _, e := range entries {
			opts := format.DefaultConsoleOptions(e.Level)
			opts.Colors = colors
			if _, err := fmt.Fprintln(w, format.Console(e, opts)); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("unknown output format %q", outputFormat)
	}
}
