// Package domain contains pure business types with ZERO infrastructure imports.
// This is the innermost ring of clean architecture — it depends on nothing.
package domain

import "fmt"

// ─── Record Types ───────────────────────────────────────────────────────────

// ValueKind identifies the property type of a record field.
type ValueKind int

const (
	KindTitle ValueKind = iota
	KindRichText
	KindNumber
	KindCheckbox
	KindSelect
	KindStatus
	KindDate
	KindRelation
)

// Value is one property value on a record. Only the fields relevant to its
// Kind are meaningful. Absent or null store properties are not represented
// as Values at all — they are simply missing from the record's field map.
type Value struct {
	Kind      ValueKind
	Text      string   // KindTitle, KindRichText, KindSelect, KindStatus, KindDate
	Number    float64  // KindNumber
	Checked   bool     // KindCheckbox
	Relations []string // KindRelation — target record ids
}

// TitleValue builds a title property value.
func TitleValue(s string) Value { return Value{Kind: KindTitle, Text: s} }

// RichTextValue builds a rich text property value.
func RichTextValue(s string) Value { return Value{Kind: KindRichText, Text: s} }

// NumberValue builds a number property value.
func NumberValue(n float64) Value { return Value{Kind: KindNumber, Number: n} }

// CheckboxValue builds a checkbox property value.
func CheckboxValue(b bool) Value { return Value{Kind: KindCheckbox, Checked: b} }

// SelectValue builds a single-select property value.
func SelectValue(s string) Value { return Value{Kind: KindSelect, Text: s} }

// DateValue builds a day-granularity date property value.
func DateValue(day string) Value { return Value{Kind: KindDate, Text: day} }

// RelationValue builds a relation property value.
func RelationValue(ids ...string) Value { return Value{Kind: KindRelation, Relations: ids} }

// Record is one row in a remote collection. The store owns its lifecycle;
// this system only reads records and flips their granted flag.
type Record struct {
	ID     string
	Fields map[string]Value
}

// Untitled is the fallback title when a source record carries no title text.
const Untitled = "제목 없음"

// Title returns the record's title text under key, accepting either a title
// or a rich text property, with the Untitled fallback.
func (r Record) Title(key string) string {
	v, ok := r.Fields[key]
	if !ok || v.Text == "" {
		return Untitled
	}
	if v.Kind != KindTitle && v.Kind != KindRichText {
		return Untitled
	}
	return v.Text
}

// NumberField returns the numeric value under key and whether it is present.
// A stored zero is present; an absent or null number property is not.
func (r Record) NumberField(key string) (float64, bool) {
	v, ok := r.Fields[key]
	if !ok || v.Kind != KindNumber {
		return 0, false
	}
	return v.Number, true
}

// SelectField returns the selected label under key, or fallback if the
// property is absent or has no selection.
func (r Record) SelectField(key, fallback string) string {
	v, ok := r.Fields[key]
	if !ok || (v.Kind != KindSelect && v.Kind != KindStatus) || v.Text == "" {
		return fallback
	}
	return v.Text
}

// ─── Source Descriptors ─────────────────────────────────────────────────────

// SourceDescriptor is the static configuration for one source collection:
// where it lives, which fields mean what, and how completions are rewarded.
// Immutable after load.
type SourceDescriptor struct {
	Name         string // short identifier for logs and metrics
	CollectionID string // empty means the source is disabled
	Category     string // ledger category label, e.g. "할일"
	TitleKey     string
	DoneKey      string // checkbox-driven sources
	StatusKey    string // status-driven sources
	TargetStatus string // status label that counts as done
	GrantedKey   string // checkbox flipped after a grant
	RelationKey  string // ledger field relating back to this source
	Reward       RewardRule
}

// Enabled reports whether the source has a collection to poll.
func (d SourceDescriptor) Enabled() bool { return d.CollectionID != "" }

// StatusDriven reports whether completion is a status label rather than
// a checkbox.
func (d SourceDescriptor) StatusDriven() bool { return d.StatusKey != "" }

// ─── Ledger Types ───────────────────────────────────────────────────────────

// LedgerConfig binds the ledger collection, the profile it credits, and the
// ledger's field names. Field names mirror the remote collection schema.
type LedgerConfig struct {
	CollectionID string
	ProfileID    string // the single gamified profile all grants relate to
	TitleKey     string
	DateKey      string
	TypeKey      string
	AmountKey    string
	UniqueKey    string // holds the grant key
	ProfileKey   string // relation to the profile record
}

// GrantKey derives the deterministic idempotency key for one grant.
// Unique per (category, source record) pair.
func GrantKey(category, recordID string) string {
	return category + "_" + recordID
}

// LedgerTitle composes the human-readable ledger entry title.
func LedgerTitle(category, label string, xp int) string {
	return fmt.Sprintf("%s · %s · %dXP", category, label, xp)
}
