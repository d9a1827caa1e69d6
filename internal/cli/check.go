package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/haruchi-os/haruchi-sync/internal/domain"
)

func init() {
	rootCmd.AddCommand(checkCmd)
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify configuration and store access",
	Long: `Verify that the required settings are present and that the store
token can reach the profile page and the ledger collection. Run this
after changing the environment or sharing new collections with the
integration.`,
	RunE: runCheck,
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if err := cfg.ValidateSync(); err != nil {
		return err
	}
	fmt.Fprintln(os.Stdout, "✓ required settings present")

	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer log.Sync()

	store := newStore(cfg, log)
	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.StoreTimeout())
	defer cancel()

	if _, err := store.GetRecord(ctx, cfg.Ledger.ProfileID); err != nil {
		return fmt.Errorf("profile page %s unreachable: %w", cfg.Ledger.ProfileID, err)
	}
	fmt.Fprintln(os.Stdout, "✓ profile page reachable")

	if _, err := store.Query(ctx, cfg.Ledger.CollectionID, domain.Filter{}, ""); err != nil {
		return fmt.Errorf("ledger collection %s unreachable: %w", cfg.Ledger.CollectionID, err)
	}
	fmt.Fprintln(os.Stdout, "✓ ledger collection reachable")

	enabled := 0
	for _, d := range cfg.Descriptors() {
		if !d.Enabled() {
			fmt.Fprintf(os.Stdout, "- %s: disabled (no collection id)\n", d.Name)
			continue
		}
		start := time.Now()
		if _, err := store.Query(ctx, d.CollectionID, domain.Filter{}, ""); err != nil {
			fmt.Fprintf(os.Stdout, "✗ %s: %v\n", d.Name, err)
			continue
		}
		fmt.Fprintf(os.Stdout, "✓ %s: reachable (%s)\n", d.Name, time.Since(start).Round(time.Millisecond))
		enabled++
	}

	fmt.Fprintf(os.Stdout, "\n%d source(s) ready to sync.\n", enabled)
	return nil
}
