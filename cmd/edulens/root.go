package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/edulens/edulens/internal/app"
	"github.com/edulens/edulens/internal/dataset"
	"github.com/edulens/edulens/internal/errutil"
	"github.com/edulens/edulens/internal/eviction"
	"github.com/edulens/edulens/internal/filecache"
	"github.com/edulens/edulens/internal/hashutil"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "edulens",
	Short: "Store, browse and summarize educational datasets",
	Long: `edulens keeps a library of small educational datasets (CSV and Excel),
describes them, and caches the results in a bounded on-disk cache.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		if _, printErr := fmt.Fprintln(os.Stderr, err); printErr != nil {
			errutil.ReportError(printErr, "Failed to print error to stderr")
		}
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.String("data-dir", "./edulens_data", "Directory holding uploaded datasets and the index")
	flags.String("cache-dir", "./edulens_cache", "Directory for cached results")
	flags.Int64("max-cache-size-mb", filecache.DefaultMaxBytes/(1024*1024), "Max cache size in megabytes (0 = unlimited)")
	flags.Int64("min-free-space", 0, "Min free disk space in bytes to keep on the cache filesystem")
	flags.Duration("eviction-interval", 0, "Interval between eviction sweeps (0 = only at startup)")
	flags.String("eviction-strategy", eviction.DefaultStrategy, "Eviction strategy to use (lrm, lru)")
	flags.String("cache-hash", hashutil.Default, "Hash used to name cache entry files (md5, sha256)")
	flags.Int("max-rows", dataset.DefaultMaxRows, "Max rows loaded per dataset")
	flags.String("log-level", "info", "Log level (debug, info, warn, error)")

	for _, name := range []string{
		"data-dir", "cache-dir", "max-cache-size-mb", "min-free-space", "eviction-interval",
		"eviction-strategy", "cache-hash", "max-rows", "log-level",
	} {
		mustBindPFlag(name, flags.Lookup(name))
	}
}

func mustBindPFlag(key string, flag *pflag.Flag) {
	if err := viper.BindPFlag(key, flag); err != nil {
		errutil.ReportError(err, "Failed to bind flag", "flag", key)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("EDULENS")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	var level slog.Level
	if err := level.UnmarshalText([]byte(viper.GetString("log-level"))); err != nil {
		errutil.LogMsg(err, "Invalid log level, using info")
		level = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

func loadConfig() app.Config {
	return app.Config{
		Port:             viper.GetInt("port"),
		DataDir:          viper.GetString("data-dir"),
		CacheDir:         viper.GetString("cache-dir"),
		MaxCacheSize:     viper.GetInt64("max-cache-size-mb") * 1024 * 1024,
		MinFreeSpace:     viper.GetInt64("min-free-space"),
		EvictionInterval: viper.GetDuration("eviction-interval"),
		EvictionStrategy: viper.GetString("eviction-strategy"),
		CacheHash:        viper.GetString("cache-hash"),
		MaxRows:          viper.GetInt("max-rows"),
	}
}

// mustApp builds the application or exits.
func mustApp() *app.App {
	a, err := app.New(loadConfig())
	if err != nil {
		errutil.ReportError(err, "Failed to initialize")
		os.Exit(1)
	}
	return a
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}
