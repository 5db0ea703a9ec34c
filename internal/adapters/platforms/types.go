// Package platforms defines the contract between the reconciliation core
// and the three commerce platform integrations. Adapters own authentication,
// pagination, and rate limits; the core only ever sees raw records for a
// time range.
package platforms

import (
	"context"
	"fmt"
	"time"

	"ledgerlink/internal/domain/record"
)

// Adapter is implemented by each platform integration.
type Adapter interface {
	// Source identifies which platform this adapter syncs.
	Source() record.SourceKind

	// FetchRecords returns every raw record the platform holds for the
	// window, fully paginated.
	FetchRecords(ctx context.Context, start, end time.Time) ([]record.RawRecord, error)
}

// SyncError wraps an adapter failure with the source it came from, so a run
// abort can name the platform that caused it.
type SyncError struct {
	Source record.SourceKind
	Err    error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("sync %s: %v", e.Source, e.Err)
}

func (e *SyncError) Unwrap() error {
	return e.Err
}
