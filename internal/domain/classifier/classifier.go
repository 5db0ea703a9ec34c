// Package classifier turns the per-source match confidences and the amounts
// participating in an outcome into a reconciliation status.
package classifier

import "fmt"

// Status is the reconciliation status of one outcome.
type Status string

const (
	StatusMatched      Status = "MATCHED"
	StatusPartialMatch Status = "PARTIAL_MATCH"
	StatusDiscrepancy  Status = "DISCREPANCY"
	StatusUnmatched    Status = "UNMATCHED"

	// StatusUnderReview and StatusResolved are terminal states reachable only
	// through the external manual-review workflow. The engine recognizes them
	// but never assigns them.
	StatusUnderReview Status = "UNDER_REVIEW"
	StatusResolved    Status = "RESOLVED"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusMatched, StatusPartialMatch, StatusDiscrepancy,
		StatusUnmatched, StatusUnderReview, StatusResolved:
		return true
	}
	return false
}

// Classification thresholds.
const (
	matchedConfidence = 80.0
	partialConfidence = 50.0
	matchedAmountGap  = 1.0
	partialAmountGap  = 10.0
)

// Verdict is the classifier's output for one outcome.
type Verdict struct {
	Status           Status
	MatchConfidence  float64
	AmountDifference float64
	Notes            string
}

// Classify combines the confidences of whichever secondary matches were
// found with the amounts of every participating record (primary included)
// into a status.
//
// The decision cascade is ordered and the ordering is load-bearing: the
// DISCREPANCY amount check only runs after the MATCHED and PARTIAL_MATCH
// rules have both failed, so a high-confidence outcome with a large amount
// gap falls through to DISCREPANCY (rule 1 requires the gap to be under 1).
// That fall-through is intended behavior, not an accident of ordering.
func Classify(confidences []float64, amounts []float64) Verdict {
	v := Verdict{
		MatchConfidence:  meanConfidence(confidences),
		AmountDifference: amountSpread(amounts),
	}

	switch {
	case v.MatchConfidence >= matchedConfidence && v.AmountDifference < matchedAmountGap:
		v.Status = StatusMatched
	case v.MatchConfidence >= partialConfidence && v.AmountDifference < partialAmountGap:
		v.Status = StatusPartialMatch
		v.Notes = fmt.Sprintf("partial match: amount difference %.2f", v.AmountDifference)
	case v.AmountDifference >= partialAmountGap:
		v.Status = StatusDiscrepancy
		v.Notes = fmt.Sprintf("amount discrepancy of %.2f across matched records", v.AmountDifference)
	default:
		v.Status = StatusUnmatched
		v.Notes = "no secondary record matched with sufficient confidence"
	}

	return v
}

// meanConfidence averages the found-match confidences; no matches means 0.
func meanConfidence(confidences []float64) float64 {
	if len(confidences) == 0 {
		return 0
	}
	sum := 0.0
	for _, c := range confidences {
		sum += c
	}
	return sum / float64(len(confidences))
}

// amountSpread is max minus min over the participating amounts.
func amountSpread(amounts []float64) float64 {
	if len(amounts) == 0 {
		return 0
	}
	minAmt, maxAmt := amounts[0], amounts[0]
	for _, a := range amounts[1:] {
		if a < minAmt {
			minAmt = a
		}
		if a > maxAmt {
			maxAmt = a
		}
	}
	return maxAmt - minAmt
}
