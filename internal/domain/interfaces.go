package domain

import "context"

// ─── Service Interfaces ─────────────────────────────────────────────────────
// These interfaces define boundaries between layers.
// Infrastructure implements them; application layer depends on them.

// Page is one page of query results in store-provided order.
type Page struct {
	Records    []Record
	HasMore    bool
	NextCursor string
}

// Store abstracts the remote tabular store. All operations are remote I/O;
// implementations must honor ctx cancellation.
type Store interface {
	// Query returns one page of records in collectionID matching f.
	// Pass the previous page's NextCursor to continue; empty starts over.
	Query(ctx context.Context, collectionID string, f Filter, cursor string) (Page, error)

	// CreateRecord appends a record and returns its store-assigned id.
	CreateRecord(ctx context.Context, collectionID string, fields map[string]Value) (string, error)

	// UpdateRecord patches the given fields of an existing record.
	UpdateRecord(ctx context.Context, recordID string, fields map[string]Value) error

	// GetRecord fetches a single record by id.
	GetRecord(ctx context.Context, recordID string) (Record, error)
}
