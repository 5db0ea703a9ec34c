package matcher

import "ledgerlink/internal/domain/record"

// SelectBest scores every candidate against the anchor and returns the
// highest-scoring one with its confidence. Ties keep the first-encountered
// candidate in input order, so selection is deterministic for a fixed input
// ordering.
//
// The candidate pool is never pruned here: a secondary record already
// claimed by an earlier anchor still gets scored. First-claim-wins is the
// aggregator's job, not the selector's.
//
// Returns (nil, 0) when the pool is empty or every score is 0 — a score of
// exactly 0 is "no match", never a valid low-confidence match.
func SelectBest(anchor record.Record, candidates []record.Record, p Profile) (*record.Record, float64) {
	var best *record.Record
	bestScore := 0.0

	for i := range candidates {
		// Strictly greater keeps the earlier candidate on ties and rejects
		// zero scores outright.
		if s := Score(anchor, candidates[i], p); s > bestScore {
			best = &candidates[i]
			bestScore = s
		}
	}

	return best, bestScore
}
