// Package matcher scores candidate records from one secondary source against
// an anchor record from the primary source and selects the best candidate.
//
// Scoring combines four weighted field-level signals into a 0-100
// confidence:
//   - Identity: counterparty identifiers present on both sides and equal
//     case-insensitively.
//   - Reference: the anchor's id or display reference appears as the
//     candidate's external reference.
//   - Amount: candidate amount within a percentage tolerance of the anchor.
//   - Temporal: linearly decayed by hours apart over the profile's window.
//
// All functions here are pure: no I/O, no mutation of inputs.
package matcher

import (
	"math"
	"strings"

	"ledgerlink/internal/domain/record"
)

// Score computes the weighted confidence of candidate matching anchor under
// the given profile. The result is in [0,100]; 0 means "no match".
func Score(anchor, candidate record.Record, p Profile) float64 {
	score := 0.0

	// Identity signal: all or nothing.
	if anchor.Counterparty != "" && candidate.Counterparty != "" &&
		strings.EqualFold(anchor.Counterparty, candidate.Counterparty) {
		score += p.Weights.Identity
	}

	// Reference signal: the candidate stores the originating record's
	// identifier, compared against both the anchor's id and its display
	// reference (platforms disagree on which one they embed).
	if candidate.ExternalRef != "" &&
		(candidate.ExternalRef == anchor.SourceID || candidate.ExternalRef == anchor.DisplayRef) {
		score += p.Weights.Reference
	}

	// Amount signal: all or nothing within a tolerance proportional to the
	// anchor amount.
	if math.Abs(anchor.Amount-candidate.Amount) <= p.AmountTolerance*anchor.Amount {
		score += p.Weights.Amount
	}

	// Temporal signal: full weight at zero distance, linear decay to zero at
	// the window boundary.
	hoursApart := math.Abs(anchor.OccurredAt.Sub(candidate.OccurredAt).Hours())
	score += p.Weights.Temporal * math.Max(0, 1-hoursApart/p.WindowHours)

	return score
}
