package records

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/nextlevelbuilder/autoreply/internal/store"
)

// Query carries every identifier the lookup ladder may use.
type Query struct {
	Text        string
	RecordID    string
	ContactType string
	CustomerID  string
}

// Find walks the lookup ladder: reference extracted from the text, then the
// explicit record id, then the customer's latest order. It returns (nil, nil)
// when nothing matches. Store errors on one rung fall through to the next; the
// last one is returned only if no rung succeeded.
func Find(ctx context.Context, repo store.RecordStore, q Query) (*Snapshot, error) {
	var lastErr error
	try := func(rung string, fn func() (*store.OrderRecord, error)) *store.OrderRecord {
		rec, err := fn()
		if err == nil {
			return rec
		}
		if !errors.Is(err, store.ErrNotFound) {
			slog.Warn("records.lookup_failed", "rung", rung, "error", err)
			lastErr = fmt.Errorf("%s lookup: %w", rung, err)
		}
		return nil
	}

	var rec *store.OrderRecord
	source := ""

	if ref := ExtractReference(q.Text); ref != "" {
		rec = try(SourceReference, func() (*store.OrderRecord, error) { return repo.GetByNumber(ctx, ref) })
		source = SourceReference
	}
	if rec == nil && q.RecordID != "" {
		rec = try(SourceRecordID, func() (*store.OrderRecord, error) { return repo.GetByID(ctx, q.RecordID) })
		source = SourceRecordID
	}
	if rec == nil && q.ContactType == store.ContactCustomer && q.CustomerID != "" {
		rec = try(SourceCustomerLatest, func() (*store.OrderRecord, error) {
			return repo.GetLatestForCustomer(ctx, q.CustomerID)
		})
		source = SourceCustomerLatest
	}
	if rec == nil {
		return nil, lastErr
	}

	items, err := repo.ListItems(ctx, rec.ID)
	if err != nil {
		slog.Warn("records.items_failed", "order", rec.OrderNumber, "error", err)
	}
	volumes, err := repo.ListVolumes(ctx, rec.ID)
	if err != nil {
		slog.Warn("records.volumes_failed", "order", rec.OrderNumber, "error", err)
	}

	return Redact(rec, items, volumes, source), nil
}
