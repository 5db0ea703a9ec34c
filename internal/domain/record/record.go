// Package record defines the common comparison-ready record shape shared by
// all three platform sources, plus the normalization step that produces it
// from raw platform payloads.
//
// Normalization is deliberately forgiving: upstream platform APIs routinely
// return partially-populated records, so only the two fields every scoring
// signal depends on (amount and timestamp) are mandatory.
package record

import (
	"fmt"
	"strings"
	"time"
)

// SourceKind identifies which platform a record came from.
type SourceKind string

const (
	// SourceStorefront is the primary, order-of-record platform.
	SourceStorefront SourceKind = "storefront"
	// SourcePayGateway is the payment-gateway secondary source.
	SourcePayGateway SourceKind = "pay_gateway"
	// SourceOrderMgmt is the order-management secondary source.
	SourceOrderMgmt SourceKind = "order_mgmt"
)

// Valid reports whether k is one of the three known sources.
func (k SourceKind) Valid() bool {
	switch k {
	case SourceStorefront, SourcePayGateway, SourceOrderMgmt:
		return true
	}
	return false
}

// RawRecord is the shape platform adapters hand to the normalizer. Optional
// fields are empty strings / nil pointers when the platform did not supply
// them.
type RawRecord struct {
	SourceID     string
	Counterparty string     // email-like identity, optional
	ExternalRef  string     // cross-source identifier, optional
	DisplayRef   string     // human-facing reference (e.g. order number), optional
	Amount       *float64   // mandatory
	OccurredAt   *time.Time // mandatory
}

// Record is a normalized, comparison-ready platform record. Records are
// immutable once loaded into a run.
type Record struct {
	Source       SourceKind
	SourceID     string
	Counterparty string
	ExternalRef  string
	DisplayRef   string
	Amount       float64
	OccurredAt   time.Time
}

// NormalizationError reports a raw record missing a mandatory field.
type NormalizationError struct {
	Source   SourceKind
	SourceID string
	Field    string
}

func (e *NormalizationError) Error() string {
	return fmt.Sprintf("record %s/%s: missing mandatory field %q", e.Source, e.SourceID, e.Field)
}

// Normalize converts a raw platform record into a Record. It is total for
// optional fields: anything missing becomes the zero value. A missing amount
// or timestamp is an error since every downstream scoring signal needs both.
func Normalize(raw RawRecord, kind SourceKind) (Record, error) {
	if raw.Amount == nil {
		return Record{}, &NormalizationError{Source: kind, SourceID: raw.SourceID, Field: "amount"}
	}
	if raw.OccurredAt == nil || raw.OccurredAt.IsZero() {
		return Record{}, &NormalizationError{Source: kind, SourceID: raw.SourceID, Field: "occurred_at"}
	}

	return Record{
		Source:       kind,
		SourceID:     strings.TrimSpace(raw.SourceID),
		Counterparty: strings.TrimSpace(raw.Counterparty),
		ExternalRef:  strings.TrimSpace(raw.ExternalRef),
		DisplayRef:   strings.TrimSpace(raw.DisplayRef),
		Amount:       *raw.Amount,
		OccurredAt:   raw.OccurredAt.UTC(),
	}, nil
}
