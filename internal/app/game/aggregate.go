// Package game computes the player-facing XP summary by aggregating the
// ledger. Nothing is cached; every read walks the ledger so the answer
// always reflects the latest grants.
package game

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/haruchi-os/haruchi-sync/internal/domain"
)

// XPPerLevel is the fixed amount of XP per level.
const XPPerLevel = 100

// Summary is the read-endpoint payload.
type Summary struct {
	TotalXP int `json:"totalXP"`
	Level   int `json:"level"`
	Exp     int `json:"exp"`
	MaxExp  int `json:"maxExp"`
}

// summarize derives the level progression from a total. Levels start at 1;
// every XPPerLevel XP advances one level and the remainder is progress
// within the current level.
func summarize(total int) Summary {
	return Summary{
		TotalXP: total,
		Level:   total/XPPerLevel + 1,
		Exp:     total % XPPerLevel,
		MaxExp:  XPPerLevel,
	}
}

// Service aggregates ledger XP for one profile.
type Service struct {
	store  domain.Store
	ledger domain.LedgerConfig
	log    *zap.Logger
}

// New creates an aggregator over the given ledger collection.
func New(store domain.Store, ledger domain.LedgerConfig, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{store: store, ledger: ledger, log: log.Named("game")}
}

// Summary sums all ledger entries linked to the profile and derives the
// level progression. Entries without a numeric amount are skipped.
func (s *Service) Summary(ctx context.Context) (Summary, error) {
	filter := domain.And(domain.RelationContains(s.ledger.ProfileKey, s.ledger.ProfileID))

	total := 0
	entries := 0
	cursor := ""
	for {
		page, err := s.store.Query(ctx, s.ledger.CollectionID, filter, cursor)
		if err != nil {
			return Summary{}, fmt.Errorf("query ledger: %w", err)
		}
		for _, rec := range page.Records {
			if n, ok := rec.NumberField(s.ledger.AmountKey); ok {
				total += int(n)
				entries++
			}
		}
		if !page.HasMore || page.NextCursor == "" {
			break
		}
		cursor = page.NextCursor
	}

	s.log.Debug("xp summary computed",
		zap.Int("entries", entries),
		zap.Int("total_xp", total))
	return summarize(total), nil
}
