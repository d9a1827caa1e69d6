package domain

import "strings"

// ─── Reward Rules ───────────────────────────────────────────────────────────
// One tagged variant dispatched in a single place, instead of a near-copy
// of the grant loop per source.

// RewardKind selects the reward strategy for a source.
type RewardKind int

const (
	// RewardFlat grants a fixed amount per eligible record.
	RewardFlat RewardKind = iota
	// RewardBonusOverride grants the record's bonus field when it holds a
	// number (zero included), else a default amount.
	RewardBonusOverride
	// RewardTiered grants by category label, matched against an ordered
	// tier table.
	RewardTiered
)

// Tier is one (label substring, amount) pair of a tier table.
type Tier struct {
	Match  string
	Amount int
}

// DefaultTierLabel is assumed when a tiered source record has no selection.
const DefaultTierLabel = "기타"

// RewardRule is a tagged reward variant. Use the constructors; only the
// fields belonging to Kind are consulted.
type RewardRule struct {
	Kind        RewardKind
	Amount      int    // flat amount, bonus default, or tier fallback
	BonusKey    string // RewardBonusOverride — numeric override field
	SelectorKey string // RewardTiered — select field holding the label
	Tiers       []Tier // RewardTiered — scanned in declared order
}

// FlatReward grants amount per eligible record.
func FlatReward(amount int) RewardRule {
	return RewardRule{Kind: RewardFlat, Amount: amount}
}

// BonusReward grants the value of bonusKey when present, else def.
func BonusReward(def int, bonusKey string) RewardRule {
	return RewardRule{Kind: RewardBonusOverride, Amount: def, BonusKey: bonusKey}
}

// TieredReward grants by the label under selectorKey, first matching tier
// wins, else fallback.
func TieredReward(selectorKey string, tiers []Tier, fallback int) RewardRule {
	return RewardRule{Kind: RewardTiered, Amount: fallback, SelectorKey: selectorKey, Tiers: tiers}
}

// Reward is the computed outcome for one eligible record.
type Reward struct {
	XP    int
	Label string // human-readable detail for the ledger title
}

// Compute applies the rule to one eligible record.
//
// Flat uses the record title as the label. BonusOverride appends the
// completion suffix to the title and honors an explicit zero bonus.
// Tiered uses the selected label itself, scanning tiers in declared order
// with first-match-wins substring matching. Stored bonus values are trusted
// as-is — negative amounts pass through unclamped.
func (r RewardRule) Compute(rec Record, desc SourceDescriptor) Reward {
	switch r.Kind {
	case RewardBonusOverride:
		xp := r.Amount
		if n, ok := rec.NumberField(r.BonusKey); ok {
			xp = int(n)
		}
		return Reward{XP: xp, Label: rec.Title(desc.TitleKey) + " 완독"}

	case RewardTiered:
		label := rec.SelectField(r.SelectorKey, DefaultTierLabel)
		xp := r.Amount
		for _, t := range r.Tiers {
			if strings.Contains(label, t.Match) {
				xp = t.Amount
				break
			}
		}
		return Reward{XP: xp, Label: label}

	default: // RewardFlat
		return Reward{XP: r.Amount, Label: rec.Title(desc.TitleKey)}
	}
}
