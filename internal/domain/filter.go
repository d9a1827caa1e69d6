package domain

// ─── Store Filters ──────────────────────────────────────────────────────────
// A small filter value object the store client compiles into its native
// query format. Only the shapes this system needs: field equality on
// checkbox/status/text properties, relation containment, AND composition.

// ConditionKind identifies one filter predicate shape.
type ConditionKind int

const (
	CondCheckboxEquals ConditionKind = iota
	CondStatusEquals
	CondTextEquals
	CondRelationContains
)

// Condition is one field predicate.
type Condition struct {
	Field string
	Kind  ConditionKind
	Bool  bool   // CondCheckboxEquals
	Text  string // CondStatusEquals, CondTextEquals, CondRelationContains
}

// Filter is the AND of its conditions. The zero Filter matches everything.
type Filter struct {
	And []Condition
}

// CheckboxEquals matches records whose checkbox field equals b.
func CheckboxEquals(field string, b bool) Condition {
	return Condition{Field: field, Kind: CondCheckboxEquals, Bool: b}
}

// StatusEquals matches records whose status field carries the given label.
func StatusEquals(field, label string) Condition {
	return Condition{Field: field, Kind: CondStatusEquals, Text: label}
}

// TextEquals matches records whose rich text field equals the given text.
func TextEquals(field, text string) Condition {
	return Condition{Field: field, Kind: CondTextEquals, Text: text}
}

// RelationContains matches records whose relation field contains the id.
func RelationContains(field, id string) Condition {
	return Condition{Field: field, Kind: CondRelationContains, Text: id}
}

// And builds a conjunction filter.
func And(conds ...Condition) Filter {
	return Filter{And: conds}
}

// EligibilityFilter selects records of the source that are done but not yet
// granted: the done/status condition AND granted=false.
func EligibilityFilter(d SourceDescriptor) Filter {
	done := CheckboxEquals(d.DoneKey, true)
	if d.StatusDriven() {
		done = StatusEquals(d.StatusKey, d.TargetStatus)
	}
	return And(done, CheckboxEquals(d.GrantedKey, false))
}
