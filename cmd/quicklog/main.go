package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/AstraSolis/quicklog/internal/config"
	"github.com/AstraSolis/quicklog/pkg/model"
)

var (
	configPath   string
	logDir       string
	outputFormat string

	rootCmd = &cobra.Command{
		Use:   "quicklog",
		Short: "Structured log recording and analysis",
		Long: `quicklog writes structured application logs to rotating files and
reads them back for filtering, aggregation and trend analysis.`,
		SilenceUsage: true,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default quicklog.yaml in . or next to the log dir)")
	rootCmd.PersistentFlags().StringVarP(&logDir, "dir", "d", "", "log directory (overrides config and environment)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "text", "output format: text or json")
}

func loadConfig() (model.Config, error) {
	return config.Load(configPath, logDir)
}

// analyzeDir resolves the directory read-side commands operate on.
func analyzeDir() (string, error) {
	cfg, err := loadConfig()
	if err != nil {
		return "", err
	}
	return cfg.Dir, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func stdoutIsTerminal() bool {
	info, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
