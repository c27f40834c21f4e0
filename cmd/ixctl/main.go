// Command ixctl is a CLI front end over internal/manager: create,
// destroy, insert into, and scan an index without writing Go code
// (SPEC_FULL.md §6).
package main

import (
	"fmt"
	"os"

	"github.com/getsentry/sentry-go"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"ixtree/internal/manager"
)

var (
	cfgFile    string
	baseDir    string
	cachePages int
	ratePerSec float64
	rateBurst  float64
	logLevel   string
	sentryDSN  string
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "ixctl",
		Short: "Manage disk-resident B+-tree indexes",
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.ixctl.yaml)")
	root.PersistentFlags().StringVar(&baseDir, "base-dir", ".", "directory holding index files and the catalog")
	root.PersistentFlags().IntVar(&cachePages, "cache-pages", 64, "pager LRU cache size, in pages")
	root.PersistentFlags().Float64Var(&ratePerSec, "rate-limit", 0, "page writes per second (0 disables throttling)")
	root.PersistentFlags().Float64Var(&rateBurst, "rate-burst", 0, "page write burst allowance")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "zap log level: debug, info, warn, error")
	root.PersistentFlags().StringVar(&sentryDSN, "sentry-dsn", "", "Sentry DSN for poisoned-handle flush failures (optional)")

	cobra.OnInitialize(initConfig)

	root.AddCommand(newCreateCmd(), newDestroyCmd(), newOpenAndInsertCmd(), newScanCmd())
	return root
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName(".ixctl")
		viper.AddConfigPath("$HOME")
	}
	viper.SetEnvPrefix("IXCTL")
	viper.AutomaticEnv()
	_ = viper.ReadInConfig()

	if viper.IsSet("base_dir") {
		baseDir = viper.GetString("base_dir")
	}
	if viper.IsSet("cache_pages") {
		cachePages = viper.GetInt("cache_pages")
	}
	if viper.IsSet("log_level") {
		logLevel = viper.GetString("log_level")
	}
	if viper.IsSet("sentry_dsn") {
		sentryDSN = viper.GetString("sentry_dsn")
	}
}

func newLogger() (*zap.Logger, error) {
	var lvl zap.AtomicLevel
	if err := lvl.UnmarshalText([]byte(logLevel)); err != nil {
		return nil, err
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = lvl
	return cfg.Build()
}

func openManager() (*manager.Manager, *zap.Logger, error) {
	logger, err := newLogger()
	if err != nil {
		return nil, nil, err
	}

	var opts []manager.Option
	opts = append(opts, manager.WithLogger(logger), manager.WithCachePages(cachePages))
	if ratePerSec > 0 {
		opts = append(opts, manager.WithRateLimit(ratePerSec, rateBurst))
	}
	if sentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{Dsn: sentryDSN}); err != nil {
			return nil, nil, err
		}
		opts = append(opts, manager.WithSentryReporting(true))
	}

	m, err := manager.Open(baseDir, opts...)
	if err != nil {
		return nil, nil, err
	}
	return m, logger, nil
}
