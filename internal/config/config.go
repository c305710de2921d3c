package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/AstraSolis/quicklog/pkg/model"
)

// rawConfig mirrors the config file keys with plain types; level and
// source are parsed into their enum forms after unmarshalling.
type rawConfig struct {
	Level         string        `mapstructure:"level"`
	Console       bool          `mapstructure:"console"`
	File          bool          `mapstructure:"file"`
	Dir           string        `mapstructure:"dir"`
	MaxFileSizeMB int           `mapstructure:"max-file-size-mb"`
	MaxFiles      int           `mapstructure:"max-files"`
	RetentionDays int           `mapstructure:"retention-days"`
	Compress      bool          `mapstructure:"compress"`
	BufferSize    int           `mapstructure:"buffer-size"`
	FlushInterval time.Duration `mapstructure:"flush-interval"`
	Source        string        `mapstructure:"source"`
}

// Load assembles the runtime configuration from defaults, an optional
// config file, and QUICKLOG_* environment variables, in ascending
// precedence. With an empty configPath, quicklog.yaml is looked up in
// the working directory and next to the log directory. dirOverride,
// when set, wins over every other source.
func Load(configPath, dirOverride string) (model.Config, error) {
	def := model.DefaultConfig()

	v := viper.New()
	v.SetEnvPrefix("QUICKLOG")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	v.SetDefault("level", def.Level.String())
	v.SetDefault("console", def.Console)
	v.SetDefault("file", def.File)
	v.SetDefault("dir", def.Dir)
	v.SetDefault("max-file-size-mb", def.MaxFileSizeMB)
	v.SetDefault("max-files", def.MaxFiles)
	v.SetDefault("retention-days", def.RetentionDays)
	v.SetDefault("compress", def.Compress)
	v.SetDefault("buffer-size", def.BufferSize)
	v.SetDefault("flush-interval", def.FlushInterval)
	v.SetDefault("source", string(def.Source))

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("quicklog")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if dirOverride != "" {
			v.AddConfigPath(filepath.Dir(dirOverride))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return model.Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var raw rawConfig
	if err := v.Unmarshal(&raw); err != nil {
		return model.Config{}, fmt.Errorf("parse config: %w", err)
	}

	level, err := model.ParseLevel(raw.Level)
	if err != nil {
		return model.Config{}, err
	}
	source, err := model.ParseSource(raw.Source)
	if err != nil {
		return model.Config{}, err
	}

	cfg := model.Config{
		Level:         level,
		Console:       raw.Console,
		File:          raw.File,
		Dir:           expandHome(raw.Dir),
		MaxFileSizeMB: raw.MaxFileSizeMB,
		MaxFiles:      raw.MaxFiles,
		RetentionDays: raw.RetentionDays,
		Compress:      raw.Compress,
		BufferSize:    raw.BufferSize,
		FlushInterval: raw.FlushInterval,
		Source:        source,
	}
	if dirOverride != "" {
		cfg.Dir = expandHome(dirOverride)
	}

	if err := cfg.Validate(); err != nil {
		return model.Config{}, err
	}
	return cfg, nil
}

func expandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
