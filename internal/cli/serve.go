package cli

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/haruchi-os/haruchi-sync/internal/api"
	"github.com/haruchi-os/haruchi-sync/internal/app/game"
	syncapp "github.com/haruchi-os/haruchi-sync/internal/app/sync"
)

var serveWithSync bool

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().BoolVar(&serveWithSync, "with-sync", false, "also run sync passes on an interval")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the game summary API",
	Long: `Serve the HTTP API the widget polls:

  GET /api/game  — current XP summary: {"totalXP", "level", "exp", "maxExp"}
  GET /health    — liveness check
  GET /metrics   — Prometheus metrics (when enabled)

With --with-sync, sync passes also run on the configured interval so a
single process keeps the ledger current and serves reads.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer log.Sync()

	store := newStore(cfg, log)

	// The read endpoint degrades rather than refusing to start: an
	// unconfigured ledger serves the default payload with an error field.
	var gameSvc *game.Service
	if cfg.LedgerReadable() {
		gameSvc = game.New(store, cfg.DomainLedger(), log)
	} else {
		log.Warn("ledger not configured, /api/game serves a degraded payload")
	}

	srv := api.NewServer(api.NewGameAPI(gameSvc, log))
	if cfg.API.Metrics {
		srv.EnableMetrics()
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if serveWithSync {
		if err := cfg.ValidateSync(); err != nil {
			return err
		}
		jn := openJournal(cfg, log)
		if jn != nil {
			defer jn.Close()
		}
		engine := syncapp.New(store, syncapp.Config{
			Sources: cfg.Descriptors(),
			Ledger:  cfg.DomainLedger(),
		}, jn, log)
		go runSyncLoop(ctx, engine, cfg.SyncInterval(), cfg.PassTimeout())
	}

	httpSrv := &http.Server{
		Addr:              cfg.API.Addr(),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("api listening", zap.String("addr", cfg.API.Addr()))
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// runSyncLoop runs one pass immediately, then one per tick until the
// context is cancelled.
func runSyncLoop(ctx context.Context, engine *syncapp.Engine, interval, passTimeout time.Duration) {
	runOnce := func() {
		passCtx, cancel := context.WithTimeout(ctx, passTimeout)
		defer cancel()
		engine.Run(passCtx)
	}

	runOnce()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runOnce()
		}
	}
}
