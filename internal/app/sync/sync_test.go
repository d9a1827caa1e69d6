package sync

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/haruchi-os/haruchi-sync/internal/domain"
	"github.com/haruchi-os/haruchi-sync/internal/infra/journal"
)

// ─── Fake Store ─────────────────────────────────────────────────────────────

type fakeStore struct {
	records    map[string][]domain.Record // collection id → rows
	failQuery  map[string]error           // collection id → query error
	failCreate error
	failUpdate map[string]error // record id → update error
	pageLimit  int              // records per page; 0 means everything
	nextID     int
	queries    int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		records:    make(map[string][]domain.Record),
		failQuery:  make(map[string]error),
		failUpdate: make(map[string]error),
	}
}

func (s *fakeStore) add(collection string, rec domain.Record) {
	s.records[collection] = append(s.records[collection], rec)
}

func (s *fakeStore) Query(ctx context.Context, collectionID string, f domain.Filter, cursor string) (domain.Page, error) {
	s.queries++
	if err := s.failQuery[collectionID]; err != nil {
		return domain.Page{}, err
	}

	var matched []domain.Record
	for _, rec := range s.records[collectionID] {
		if matchesFilter(rec, f) {
			matched = append(matched, rec)
		}
	}

	if s.pageLimit <= 0 {
		return domain.Page{Records: matched}, nil
	}

	start := 0
	if cursor != "" {
		start, _ = strconv.Atoi(cursor)
	}
	end := start + s.pageLimit
	if end >= len(matched) {
		return domain.Page{Records: matched[start:]}, nil
	}
	return domain.Page{
		Records:    matched[start:end],
		HasMore:    true,
		NextCursor: strconv.Itoa(end),
	}, nil
}

func (s *fakeStore) CreateRecord(ctx context.Context, collectionID string, fields map[string]domain.Value) (string, error) {
	if s.failCreate != nil {
		return "", s.failCreate
	}
	s.nextID++
	id := fmt.Sprintf("created-%d", s.nextID)
	s.add(collectionID, domain.Record{ID: id, Fields: fields})
	return id, nil
}

func (s *fakeStore) UpdateRecord(ctx context.Context, recordID string, fields map[string]domain.Value) error {
	if err := s.failUpdate[recordID]; err != nil {
		return err
	}
	for coll, recs := range s.records {
		for i, rec := range recs {
			if rec.ID == recordID {
				for k, v := range fields {
					s.records[coll][i].Fields[k] = v
				}
				return nil
			}
		}
	}
	return domain.ErrNotFound
}

func (s *fakeStore) GetRecord(ctx context.Context, recordID string) (domain.Record, error) {
	for _, recs := range s.records {
		for _, rec := range recs {
			if rec.ID == recordID {
				return rec, nil
			}
		}
	}
	return domain.Record{}, domain.ErrNotFound
}

func matchesFilter(rec domain.Record, f domain.Filter) bool {
	for _, c := range f.And {
		v, ok := rec.Fields[c.Field]
		switch c.Kind {
		case domain.CondCheckboxEquals:
			if (ok && v.Checked) != c.Bool {
				return false
			}
		case domain.CondStatusEquals, domain.CondTextEquals:
			if !ok || v.Text != c.Text {
				return false
			}
		case domain.CondRelationContains:
			if !ok || !slices.Contains(v.Relations, c.Text) {
				return false
			}
		}
	}
	return true
}

// ─── Fixtures ───────────────────────────────────────────────────────────────

const (
	todoDB   = "db-todo"
	bookDB   = "db-book"
	ledgerDB = "db-xplog"
	haruchi  = "haruchi-page"
)

func testLedger() domain.LedgerConfig {
	return domain.LedgerConfig{
		CollectionID: ledgerDB,
		ProfileID:    haruchi,
		TitleKey:     "[타입] · [원본/내용] · [XP]",
		DateKey:      "날짜",
		TypeKey:      "타입",
		AmountKey:    "XP",
		UniqueKey:    "지급키",
		ProfileKey:   "하루치 DB",
	}
}

func todoSource() domain.SourceDescriptor {
	return domain.SourceDescriptor{
		Name:         "todo",
		CollectionID: todoDB,
		Category:     "할일",
		TitleKey:     "할 일",
		DoneKey:      "완료",
		GrantedKey:   "XP 지급됨",
		RelationKey:  "할일 DB",
		Reward:       domain.FlatReward(10),
	}
}

func bookSource() domain.SourceDescriptor {
	return domain.SourceDescriptor{
		Name:         "book",
		CollectionID: bookDB,
		Category:     "독서",
		TitleKey:     "책 이름",
		StatusKey:    "상태",
		TargetStatus: "완독",
		GrantedKey:   "XP 지급됨",
		RelationKey:  "책형DB",
		Reward:       domain.BonusReward(300, "완독 보너스 XP"),
	}
}

func todoRecord(id, title string, done, granted bool) domain.Record {
	return domain.Record{ID: id, Fields: map[string]domain.Value{
		"할 일":    domain.TitleValue(title),
		"완료":     domain.CheckboxValue(done),
		"XP 지급됨": domain.CheckboxValue(granted),
	}}
}

func testEngine(store domain.Store, sources ...domain.SourceDescriptor) *Engine {
	e := New(store, Config{Sources: sources, Ledger: testLedger()}, nil, zap.NewNop())
	e.now = func() time.Time { return time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC) }
	return e
}

func ledgerEntries(s *fakeStore) []domain.Record {
	return s.records[ledgerDB]
}

// ─── Tests ──────────────────────────────────────────────────────────────────

func TestRun_GrantsEligibleRecords(t *testing.T) {
	store := newFakeStore()
	store.add(todoDB, todoRecord("t1", "아침 산책", true, false))
	store.add(todoDB, todoRecord("t2", "책상 정리", true, false))
	store.add(todoDB, todoRecord("t3", "미완료 일", false, false))
	store.add(todoDB, todoRecord("t4", "이미 지급됨", true, true))

	engine := testEngine(store, todoSource())
	report := engine.Run(context.Background())

	if report.Granted != 2 {
		t.Fatalf("Granted = %d, want 2", report.Granted)
	}
	if report.XPGranted != 20 {
		t.Errorf("XPGranted = %d, want 20", report.XPGranted)
	}
	if report.WriteErrors != 0 || report.QueryErrors != 0 {
		t.Errorf("errors = %d/%d, want none", report.QueryErrors, report.WriteErrors)
	}

	entries := ledgerEntries(store)
	if len(entries) != 2 {
		t.Fatalf("ledger entries = %d, want 2", len(entries))
	}

	first := entries[0]
	if got := first.Fields["[타입] · [원본/내용] · [XP]"].Text; got != "할일 · 아침 산책 · 10XP" {
		t.Errorf("title = %q", got)
	}
	if got := first.Fields["지급키"].Text; got != "할일_t1" {
		t.Errorf("grant key = %q", got)
	}
	if got := first.Fields["날짜"].Text; got != "2024-05-01" {
		t.Errorf("date = %q", got)
	}
	if got := first.Fields["타입"].Text; got != "할일" {
		t.Errorf("category = %q", got)
	}
	if got := first.Fields["XP"].Number; got != 10 {
		t.Errorf("amount = %v", got)
	}
	if got := first.Fields["하루치 DB"].Relations; len(got) != 1 || got[0] != haruchi {
		t.Errorf("profile relation = %v", got)
	}
	if got := first.Fields["할일 DB"].Relations; len(got) != 1 || got[0] != "t1" {
		t.Errorf("source relation = %v", got)
	}

	// Source records flipped
	for _, id := range []string{"t1", "t2"} {
		rec, _ := store.GetRecord(context.Background(), id)
		if !rec.Fields["XP 지급됨"].Checked {
			t.Errorf("record %s granted flag not flipped", id)
		}
	}
}

func TestRun_RerunCreatesNothingNew(t *testing.T) {
	store := newFakeStore()
	store.add(todoDB, todoRecord("t1", "아침 산책", true, false))

	engine := testEngine(store, todoSource())
	engine.Run(context.Background())
	report := engine.Run(context.Background())

	if report.Eligible != 0 {
		t.Errorf("second pass Eligible = %d, want 0", report.Eligible)
	}
	if report.Granted != 0 {
		t.Errorf("second pass Granted = %d, want 0", report.Granted)
	}
	if got := len(ledgerEntries(store)); got != 1 {
		t.Errorf("ledger entries = %d, want 1", got)
	}
}

func TestRun_CreateFailureLeavesRecordEligible(t *testing.T) {
	store := newFakeStore()
	store.add(todoDB, todoRecord("t1", "아침 산책", true, false))
	store.failCreate = errors.New("store down")

	engine := testEngine(store, todoSource())
	report := engine.Run(context.Background())

	if report.WriteErrors != 1 {
		t.Errorf("WriteErrors = %d, want 1", report.WriteErrors)
	}
	if got := len(ledgerEntries(store)); got != 0 {
		t.Errorf("ledger entries = %d, want 0", got)
	}

	rec, _ := store.GetRecord(context.Background(), "t1")
	if rec.Fields["XP 지급됨"].Checked {
		t.Error("granted flag must not flip when the ledger create failed")
	}

	// Next pass with the store recovered grants normally.
	store.failCreate = nil
	report = engine.Run(context.Background())
	if report.Granted != 1 {
		t.Errorf("recovery pass Granted = %d, want 1", report.Granted)
	}
}

func TestRun_FlagFailureRepairedWithoutDuplicate(t *testing.T) {
	store := newFakeStore()
	store.add(todoDB, todoRecord("t1", "아침 산책", true, false))
	store.failUpdate["t1"] = errors.New("conflict")

	engine := testEngine(store, todoSource())
	report := engine.Run(context.Background())

	// Entry created, flag flip failed.
	if report.WriteErrors != 1 {
		t.Errorf("WriteErrors = %d, want 1", report.WriteErrors)
	}
	if got := len(ledgerEntries(store)); got != 1 {
		t.Fatalf("ledger entries = %d, want 1", got)
	}

	// Next pass: record still looks eligible, but the grant key matches an
	// existing entry — only the flag is retried.
	delete(store.failUpdate, "t1")
	report = engine.Run(context.Background())

	if report.Repaired != 1 {
		t.Errorf("Repaired = %d, want 1", report.Repaired)
	}
	if report.Granted != 0 {
		t.Errorf("Granted = %d, want 0", report.Granted)
	}
	if got := len(ledgerEntries(store)); got != 1 {
		t.Errorf("ledger entries = %d, want exactly 1 (no duplicate)", got)
	}

	rec, _ := store.GetRecord(context.Background(), "t1")
	if !rec.Fields["XP 지급됨"].Checked {
		t.Error("granted flag should be repaired")
	}
}

func TestRun_QueryFailureDoesNotBlockOtherSources(t *testing.T) {
	store := newFakeStore()
	store.failQuery[todoDB] = errors.New("database unreachable")
	store.add(bookDB, domain.Record{ID: "b1", Fields: map[string]domain.Value{
		"책 이름":   domain.TitleValue("총 균 쇠"),
		"상태":     {Kind: domain.KindStatus, Text: "완독"},
		"XP 지급됨": domain.CheckboxValue(false),
	}})

	engine := testEngine(store, todoSource(), bookSource())
	report := engine.Run(context.Background())

	if report.QueryErrors != 1 {
		t.Errorf("QueryErrors = %d, want 1", report.QueryErrors)
	}
	if report.Granted != 1 {
		t.Errorf("Granted = %d, want 1 (book source must still run)", report.Granted)
	}
	if report.XPGranted != 300 {
		t.Errorf("XPGranted = %d, want 300", report.XPGranted)
	}
}

func TestRun_DisabledSourceSkippedSilently(t *testing.T) {
	store := newFakeStore()
	disabled := todoSource()
	disabled.CollectionID = ""

	engine := testEngine(store, disabled)
	report := engine.Run(context.Background())

	if report.Sources != 0 {
		t.Errorf("Sources = %d, want 0", report.Sources)
	}
	if store.queries != 0 {
		t.Errorf("queries = %d, want 0", store.queries)
	}
}

func TestRun_PaginatesUntilExhausted(t *testing.T) {
	store := newFakeStore()
	store.pageLimit = 1
	for i := 1; i <= 3; i++ {
		store.add(todoDB, todoRecord(fmt.Sprintf("t%d", i), "할 일", true, false))
	}

	engine := testEngine(store, todoSource())
	report := engine.Run(context.Background())

	if report.Eligible != 3 {
		t.Errorf("Eligible = %d, want 3", report.Eligible)
	}
	if report.Granted != 3 {
		t.Errorf("Granted = %d, want 3", report.Granted)
	}
}

func TestRun_BonusZeroGrantsZeroXP(t *testing.T) {
	store := newFakeStore()
	store.add(bookDB, domain.Record{ID: "b1", Fields: map[string]domain.Value{
		"책 이름":      domain.TitleValue("무료 전자책"),
		"상태":        {Kind: domain.KindStatus, Text: "완독"},
		"XP 지급됨":    domain.CheckboxValue(false),
		"완독 보너스 XP": domain.NumberValue(0),
	}})

	engine := testEngine(store, bookSource())
	report := engine.Run(context.Background())

	if report.Granted != 1 {
		t.Fatalf("Granted = %d, want 1", report.Granted)
	}
	if report.XPGranted != 0 {
		t.Errorf("XPGranted = %d, want 0 (explicit zero bonus)", report.XPGranted)
	}

	entries := ledgerEntries(store)
	if got := entries[0].Fields["XP"].Number; got != 0 {
		t.Errorf("ledger amount = %v, want 0", got)
	}
	if got := entries[0].Fields["[타입] · [원본/내용] · [XP]"].Text; got != "독서 · 무료 전자책 완독 · 0XP" {
		t.Errorf("title = %q", got)
	}
}

func TestRun_WritesJournal(t *testing.T) {
	store := newFakeStore()
	store.add(todoDB, todoRecord("t1", "아침 산책", true, false))

	jn, err := journal.Open(t.TempDir())
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}
	defer jn.Close()

	engine := New(store, Config{Sources: []domain.SourceDescriptor{todoSource()}, Ledger: testLedger()}, jn, zap.NewNop())
	report := engine.Run(context.Background())

	passes, err := jn.RecentPasses(5)
	if err != nil {
		t.Fatalf("recent passes: %v", err)
	}
	if len(passes) != 1 {
		t.Fatalf("passes = %d, want 1", len(passes))
	}
	if passes[0].RunID != report.RunID {
		t.Errorf("run id = %s, want %s", passes[0].RunID, report.RunID)
	}
	if passes[0].Granted != 1 || passes[0].XPGranted != 10 {
		t.Errorf("pass row = %+v", passes[0])
	}

	grants, err := jn.GrantsForRun(report.RunID)
	if err != nil {
		t.Fatalf("grants: %v", err)
	}
	if len(grants) != 1 {
		t.Fatalf("grants = %d, want 1", len(grants))
	}
	if grants[0].Status != journal.StatusGranted || grants[0].GrantKey != "할일_t1" {
		t.Errorf("grant row = %+v", grants[0])
	}
}
