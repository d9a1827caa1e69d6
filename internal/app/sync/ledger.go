package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/haruchi-os/haruchi-sync/internal/domain"
)

// ─── Ledger Writer ──────────────────────────────────────────────────────────
// The store offers no multi-record transaction, so a grant is two sequential
// fallible steps: create the ledger entry, then flip the source record's
// granted flag. The ordering carries the idempotency contract:
//
//   - create fails      → nothing written, record stays eligible, retried
//   - create ok, flip
//     fails             → the record looks eligible next pass, but the
//                         grant-key lookup finds the existing entry and
//                         only the flag is retried (no duplicate entry)

// grantResult is the outcome of one grant attempt.
type grantResult struct {
	Key      string
	XP       int
	Title    string
	Repaired bool // entry already existed; only the flag was flipped
	Err      error
}

// grant writes the ledger entry for one eligible record and marks the
// record granted.
func (e *Engine) grant(ctx context.Context, src domain.SourceDescriptor, rec domain.Record) grantResult {
	reward := src.Reward.Compute(rec, src)
	res := grantResult{
		Key:   domain.GrantKey(src.Category, rec.ID),
		XP:    reward.XP,
		Title: domain.LedgerTitle(src.Category, reward.Label, reward.XP),
	}

	exists, err := e.ledgerEntryExists(ctx, res.Key)
	if err != nil {
		// Unknown ledger state — creating now could duplicate. Skip; the
		// record stays eligible and is retried next pass.
		res.Err = fmt.Errorf("grant key lookup: %w", err)
		return res
	}

	if exists {
		res.Repaired = true
	} else {
		fields := e.ledgerFields(src, reward, res.Key, rec.ID)
		if _, err := e.store.CreateRecord(ctx, e.cfg.Ledger.CollectionID, fields); err != nil {
			res.Err = fmt.Errorf("create ledger entry: %w", err)
			return res
		}
	}

	granted := map[string]domain.Value{src.GrantedKey: domain.CheckboxValue(true)}
	if err := e.store.UpdateRecord(ctx, rec.ID, granted); err != nil {
		res.Err = fmt.Errorf("mark record granted: %w", err)
		return res
	}
	return res
}

// ledgerEntryExists checks the ledger for an entry with the given grant key.
func (e *Engine) ledgerEntryExists(ctx context.Context, key string) (bool, error) {
	f := domain.And(domain.TextEquals(e.cfg.Ledger.UniqueKey, key))
	page, err := e.store.Query(ctx, e.cfg.Ledger.CollectionID, f, "")
	if err != nil {
		return false, err
	}
	return len(page.Records) > 0, nil
}

// ledgerFields builds the property set of a new ledger entry.
func (e *Engine) ledgerFields(src domain.SourceDescriptor, reward domain.Reward, key, recordID string) map[string]domain.Value {
	lc := e.cfg.Ledger
	fields := map[string]domain.Value{
		lc.TitleKey:   domain.TitleValue(domain.LedgerTitle(src.Category, reward.Label, reward.XP)),
		lc.DateKey:    domain.DateValue(e.now().Format(time.DateOnly)),
		lc.TypeKey:    domain.SelectValue(src.Category),
		lc.AmountKey:  domain.NumberValue(float64(reward.XP)),
		lc.UniqueKey:  domain.RichTextValue(key),
		lc.ProfileKey: domain.RelationValue(lc.ProfileID),
	}
	if src.RelationKey != "" {
		fields[src.RelationKey] = domain.RelationValue(recordID)
	}
	return fields
}
