package game

import (
	"context"
	"errors"
	"strconv"
	"testing"

	"github.com/haruchi-os/haruchi-sync/internal/domain"
)

type stubStore struct {
	records   []domain.Record
	pageLimit int
	err       error
	gotFilter domain.Filter
}

func (s *stubStore) Query(ctx context.Context, collectionID string, f domain.Filter, cursor string) (domain.Page, error) {
	if s.err != nil {
		return domain.Page{}, s.err
	}
	s.gotFilter = f

	if s.pageLimit <= 0 {
		return domain.Page{Records: s.records}, nil
	}
	start := 0
	if cursor != "" {
		start, _ = strconv.Atoi(cursor)
	}
	end := start + s.pageLimit
	if end >= len(s.records) {
		return domain.Page{Records: s.records[start:]}, nil
	}
	return domain.Page{Records: s.records[start:end], HasMore: true, NextCursor: strconv.Itoa(end)}, nil
}

func (s *stubStore) CreateRecord(ctx context.Context, collectionID string, fields map[string]domain.Value) (string, error) {
	return "", errors.New("not implemented")
}

func (s *stubStore) UpdateRecord(ctx context.Context, recordID string, fields map[string]domain.Value) error {
	return errors.New("not implemented")
}

func (s *stubStore) GetRecord(ctx context.Context, recordID string) (domain.Record, error) {
	return domain.Record{}, errors.New("not implemented")
}

func entry(id string, xp float64) domain.Record {
	return domain.Record{ID: id, Fields: map[string]domain.Value{
		"XP": domain.NumberValue(xp),
	}}
}

func testLedger() domain.LedgerConfig {
	return domain.LedgerConfig{
		CollectionID: "db-xplog",
		ProfileID:    "haruchi-page",
		AmountKey:    "XP",
		ProfileKey:   "하루치 DB",
	}
}

func TestSummary_SumsAndDerivesLevel(t *testing.T) {
	store := &stubStore{records: []domain.Record{
		entry("e1", 10),
		entry("e2", 20),
		entry("e3", 80),
	}}
	svc := New(store, testLedger(), nil)

	got, err := svc.Summary(context.Background())
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	want := Summary{TotalXP: 110, Level: 2, Exp: 10, MaxExp: 100}
	if got != want {
		t.Errorf("summary = %+v, want %+v", got, want)
	}
}

func TestSummary_EmptyLedger(t *testing.T) {
	svc := New(&stubStore{}, testLedger(), nil)

	got, err := svc.Summary(context.Background())
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	want := Summary{TotalXP: 0, Level: 1, Exp: 0, MaxExp: 100}
	if got != want {
		t.Errorf("summary = %+v, want %+v", got, want)
	}
}

func TestSummary_SkipsEntriesWithoutAmount(t *testing.T) {
	store := &stubStore{records: []domain.Record{
		entry("e1", 40),
		{ID: "e2", Fields: map[string]domain.Value{"메모": domain.RichTextValue("수동 입력")}},
		entry("e3", 0),
	}}
	svc := New(store, testLedger(), nil)

	got, err := svc.Summary(context.Background())
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if got.TotalXP != 40 {
		t.Errorf("totalXP = %d, want 40", got.TotalXP)
	}
}

func TestSummary_Paginates(t *testing.T) {
	store := &stubStore{pageLimit: 2}
	for i := 0; i < 5; i++ {
		store.records = append(store.records, entry(strconv.Itoa(i), 100))
	}
	svc := New(store, testLedger(), nil)

	got, err := svc.Summary(context.Background())
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if got.TotalXP != 500 {
		t.Errorf("totalXP = %d, want 500", got.TotalXP)
	}
	if got.Level != 6 {
		t.Errorf("level = %d, want 6", got.Level)
	}
}

func TestSummary_FiltersByProfileRelation(t *testing.T) {
	store := &stubStore{}
	svc := New(store, testLedger(), nil)

	if _, err := svc.Summary(context.Background()); err != nil {
		t.Fatalf("summary: %v", err)
	}
	if len(store.gotFilter.And) != 1 {
		t.Fatalf("conditions = %d, want 1", len(store.gotFilter.And))
	}
	c := store.gotFilter.And[0]
	if c.Kind != domain.CondRelationContains || c.Field != "하루치 DB" || c.Text != "haruchi-page" {
		t.Errorf("condition = %+v", c)
	}
}

func TestSummary_QueryError(t *testing.T) {
	storeErr := errors.New("store unreachable")
	svc := New(&stubStore{err: storeErr}, testLedger(), nil)

	if _, err := svc.Summary(context.Background()); !errors.Is(err, storeErr) {
		t.Errorf("err = %v, want wrapped store error", err)
	}
}

func TestSummarize_LevelBoundaries(t *testing.T) {
	cases := []struct {
		total      int
		level, exp int
	}{
		{0, 1, 0},
		{99, 1, 99},
		{100, 2, 0},
		{101, 2, 1},
		{1000, 11, 0},
	}
	for _, tc := range cases {
		got := summarize(tc.total)
		if got.Level != tc.level || got.Exp != tc.exp {
			t.Errorf("summarize(%d) = level %d exp %d, want %d/%d",
				tc.total, got.Level, got.Exp, tc.level, tc.exp)
		}
	}
}
