// Package cli implements the haruchi command tree.
package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/haruchi-os/haruchi-sync/internal/daemon"
	"github.com/haruchi-os/haruchi-sync/internal/domain"
	"github.com/haruchi-os/haruchi-sync/internal/infra/journal"
	"github.com/haruchi-os/haruchi-sync/internal/infra/notion"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "haruchi",
	Short: "Haruchi XP sync daemon",
	Long: `Haruchi turns completed tasks into XP. It polls the configured
source collections for completed-but-ungranted records, writes XP ledger
entries, and serves the game summary the widget polls.

Secrets and collection IDs come from the environment (NOTION_API_KEY,
XP_LOG_DB_ID, HARUCHI_PAGE_ID, and the per-source *_DB_ID variables);
property names and tuning live in the config file.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", defaultConfigPath(), "path to config file")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "haruchi.toml"
	}
	return filepath.Join(home, ".haruchi", "config.toml")
}

// loadConfig reads the config file and environment overrides.
func loadConfig() (daemon.Config, error) {
	return daemon.Load(cfgFile)
}

// newLogger builds the zap logger from the log section.
func newLogger(cfg daemon.Config) (*zap.Logger, error) {
	var zc zap.Config
	if cfg.Log.Format == "json" {
		zc = zap.NewProductionConfig()
	} else {
		zc = zap.NewDevelopmentConfig()
	}
	if cfg.Log.Level != "" {
		lvl, err := zap.ParseAtomicLevel(cfg.Log.Level)
		if err != nil {
			return nil, fmt.Errorf("log level %q: %w", cfg.Log.Level, err)
		}
		zc.Level = lvl
	}
	return zc.Build()
}

// newStore builds the tabular-store client from the store section.
func newStore(cfg daemon.Config, log *zap.Logger) domain.Store {
	sc := notion.DefaultConfig(cfg.Store.Token)
	if cfg.Store.BaseURL != "" {
		sc.BaseURL = cfg.Store.BaseURL
	}
	sc.Timeout = cfg.StoreTimeout()
	return notion.NewClient(sc, log)
}

// openJournal opens the run-history journal, or returns nil when disabled.
// A journal failure is not fatal; sync works without history.
func openJournal(cfg daemon.Config, log *zap.Logger) *journal.DB {
	if !cfg.Journal.Enabled {
		return nil
	}
	jn, err := journal.Open(cfg.Journal.Dir)
	if err != nil {
		log.Warn("journal unavailable, run history disabled",
			zap.String("dir", cfg.Journal.Dir),
			zap.Error(err))
		return nil
	}
	return jn
}
