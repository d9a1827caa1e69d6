// Package sync implements the synchronization engine: it polls each
// configured source collection for completed-but-ungranted records,
// computes the XP reward, appends a ledger entry, and marks the source
// record granted.
//
// One pass:
//  1. For each enabled source, query eligible records (done, not granted)
//  2. Compute the reward per record (flat, bonus-override, or tiered)
//  3. Write the ledger entry, then flip the granted flag
//
// Per-source and per-record failures are logged and isolated — a pass
// always runs to completion and reports partial success via its report,
// the journal, and metrics.
package sync

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/haruchi-os/haruchi-sync/internal/domain"
	"github.com/haruchi-os/haruchi-sync/internal/infra/journal"
	"github.com/haruchi-os/haruchi-sync/internal/infra/observability"
)

// Config holds the static sync configuration, read-only after load.
type Config struct {
	Sources []domain.SourceDescriptor
	Ledger  domain.LedgerConfig
}

// Engine runs sync passes. Sources and records are processed sequentially:
// there are no concurrent writers, so ordering is the simplest correct model.
type Engine struct {
	store   domain.Store
	cfg     Config
	journal *journal.DB // optional; nil disables run history
	log     *zap.Logger
	now     func() time.Time
}

// New creates a sync engine. jn may be nil.
func New(store domain.Store, cfg Config, jn *journal.DB, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{
		store:   store,
		cfg:     cfg,
		journal: jn,
		log:     log.Named("sync"),
		now:     time.Now,
	}
}

// PassReport summarizes one sync pass.
type PassReport struct {
	RunID       string
	StartedAt   time.Time
	FinishedAt  time.Time
	Sources     int // enabled sources polled
	Eligible    int // eligible records seen
	Granted     int // new ledger entries written and flags flipped
	Repaired    int // existing entries found, only the flag flipped
	XPGranted   int // XP newly written to the ledger
	QueryErrors int
	WriteErrors int
}

// Run executes one sync pass and always returns a report — failures are
// absorbed per source and per record, never raised to the caller.
func (e *Engine) Run(ctx context.Context) PassReport {
	report := PassReport{RunID: uuid.NewString(), StartedAt: e.now()}
	log := e.log.With(zap.String("run_id", report.RunID))

	log.Info("sync pass started", zap.Int("sources_configured", len(e.cfg.Sources)))
	e.runSources(ctx, &report, log)
	report.FinishedAt = e.now()

	observability.SyncPasses.Inc()
	observability.SyncPassDuration.Observe(report.FinishedAt.Sub(report.StartedAt).Seconds())

	if e.journal != nil {
		err := e.journal.InsertPass(journal.Pass{
			RunID:       report.RunID,
			StartedAt:   report.StartedAt,
			FinishedAt:  report.FinishedAt,
			Sources:     report.Sources,
			Granted:     report.Granted,
			XPGranted:   report.XPGranted,
			QueryErrors: report.QueryErrors,
			WriteErrors: report.WriteErrors,
		})
		if err != nil {
			log.Warn("journal pass insert failed", zap.Error(err))
		}
	}

	log.Info("sync pass finished",
		zap.Int("granted", report.Granted),
		zap.Int("repaired", report.Repaired),
		zap.Int("xp_granted", report.XPGranted),
		zap.Int("query_errors", report.QueryErrors),
		zap.Int("write_errors", report.WriteErrors),
		zap.Duration("took", report.FinishedAt.Sub(report.StartedAt)))
	return report
}

// runSources walks all sources. The recover boundary keeps an unexpected
// failure in one pass from crashing the host process.
func (e *Engine) runSources(ctx context.Context, report *PassReport, log *zap.Logger) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("sync pass aborted by unexpected error", zap.Any("panic", r))
		}
	}()

	for _, src := range e.cfg.Sources {
		if !src.Enabled() {
			// No collection configured — feature disabled.
			continue
		}
		report.Sources++
		e.syncSource(ctx, src, report, log)
	}
}

// syncSource processes all eligible records of one source.
func (e *Engine) syncSource(ctx context.Context, src domain.SourceDescriptor, report *PassReport, log *zap.Logger) {
	records, ok := e.queryEligible(ctx, src, log)
	if !ok {
		report.QueryErrors++
		return
	}
	report.Eligible += len(records)

	for _, rec := range records {
		res := e.grant(ctx, src, rec)

		outcome := journal.Grant{
			RunID:    report.RunID,
			Source:   src.Name,
			RecordID: rec.ID,
			GrantKey: res.Key,
			XP:       res.XP,
		}

		switch {
		case res.Err != nil:
			report.WriteErrors++
			outcome.Status = journal.StatusFailed
			outcome.Detail = res.Err.Error()
			observability.StoreWriteErrors.WithLabelValues(src.Name).Inc()
			log.Warn("grant failed, record stays eligible",
				zap.String("source", src.Name),
				zap.String("record_id", rec.ID),
				zap.Error(res.Err))

		case res.Repaired:
			report.Repaired++
			outcome.Status = journal.StatusRepaired
			log.Info("granted flag repaired for existing ledger entry",
				zap.String("source", src.Name),
				zap.String("grant_key", res.Key))

		default:
			report.Granted++
			report.XPGranted += res.XP
			outcome.Status = journal.StatusGranted
			observability.RecordsGranted.WithLabelValues(src.Name).Inc()
			observability.XPGranted.Add(float64(res.XP))
			log.Info("xp granted",
				zap.String("source", src.Name),
				zap.String("title", res.Title),
				zap.Int("xp", res.XP))
		}

		if e.journal != nil {
			if err := e.journal.RecordGrant(outcome); err != nil {
				log.Warn("journal grant insert failed", zap.Error(err))
			}
		}
	}
}

// queryEligible collects all eligible records of one source, paginating
// until the store reports no more pages. A query failure yields an empty
// result so a failing source never blocks the others.
func (e *Engine) queryEligible(ctx context.Context, src domain.SourceDescriptor, log *zap.Logger) ([]domain.Record, bool) {
	filter := domain.EligibilityFilter(src)

	var records []domain.Record
	cursor := ""
	for {
		page, err := e.store.Query(ctx, src.CollectionID, filter, cursor)
		if err != nil {
			observability.StoreQueryErrors.WithLabelValues(src.Name).Inc()
			log.Warn("source query failed, treating as empty",
				zap.String("source", src.Name),
				zap.String("collection_id", src.CollectionID),
				zap.Error(err))
			return nil, false
		}
		records = append(records, page.Records...)
		if !page.HasMore || page.NextCursor == "" {
			return records, true
		}
		cursor = page.NextCursor
	}
}
