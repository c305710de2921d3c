package main

import (
	"bufio"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/AstraSolis/quicklog/pkg/analyze"
	"github.com/AstraSolis/quicklog/pkg/model"
	"github.com/AstraSolis/quicklog/pkg/recorder"
)

var (
	writeLevel    string
	writeCategory string
	writeFilename string

	writeCmd = &cobra.Command{
		Use:   "write",
		Short: "Record entries read from stdin",
		Long: `write reads stdin line by line and records each line. Lines that
already are canonical JSON (or legacy text) entries keep their own
level, category and payload; anything else is recorded verbatim with
the --level and --category flags. The buffer is drained before exit,
also on SIGINT/SIGTERM.`,
		RunE: runWrite,
	}
)

func init() {
	writeCmd.Flags().StringVar(&writeLevel, "level", "info", "level for plain text lines")
	writeCmd.Flags().StringVar(&writeCategory, "category", "app", "category for plain text lines")
	writeCmd.Flags().StringVar(&writeFilename, "filename", "stdin", "filename tag for plain text lines")
	rootCmd.AddCommand(writeCmd)
}

func runWrite(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	level, err := model.ParseLevel(writeLevel)
	if err != nil {
		return err
	}
	category, err := model.ParseCategory(writeCategory)
	if err != nil {
		return err
	}

	rec, err := recorder.New(cfg)
	if err != nil {
		return err
	}

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	count := 0
loop:
	for {
		select {
		case line, ok := <-lines:
			if !ok {
				break loop
			}
			recordLine(rec, line, level, category)
			count++
		case <-quit:
			break loop
		}
	}

	if err := rec.Destroy(); err != nil {
		return fmt.Errorf("drain: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "processed %d lines\n", count)
	return nil
}

// recordLine replays an already-structured line with its own fields,
// or records plain text under the flag defaults.
func recordLine(rec *recorder.Recorder, line string, level model.Level, category model.Category) {
	if e, ok := analyze.ParseLine(line); ok {
		var opts []recorder.Option
		if e.Data != nil {
			opts = append(opts, recorder.WithData(e.Data))
		}
		if e.Error != nil {
			opts = append(opts, recorder.WithErrorInfo(e.Error))
		}
		rec.Record(e.Level, e.Message, e.Module.Category, e.Module.Filename, opts...)
		return
	}
	rec.Record(level, strings.TrimRight(line, "\r"), category, writeFilename)
}
