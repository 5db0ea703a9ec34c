package matcher

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledgerlink/internal/domain/record"
)

func TestSelectBest_PicksHighestScore(t *testing.T) {
	anchor := makeAnchor(1000, "a@x.com")
	candidates := []record.Record{
		{SourceID: "ch_1", Counterparty: "other@y.com", Amount: 1000, OccurredAt: anchorTime}, // 60
		{SourceID: "ch_2", Counterparty: "a@x.com", Amount: 1000, OccurredAt: anchorTime},     // 100
		{SourceID: "ch_3", Counterparty: "a@x.com", Amount: 2000, OccurredAt: anchorTime},     // 60
	}

	best, confidence := SelectBest(anchor, candidates, PayGatewayProfile())

	require.NotNil(t, best)
	assert.Equal(t, "ch_2", best.SourceID)
	assert.Equal(t, 100.0, confidence)
}

func TestSelectBest_TieKeepsFirstInInputOrder(t *testing.T) {
	anchor := makeAnchor(1000, "a@x.com")
	candidates := []record.Record{
		{SourceID: "ch_1", Counterparty: "a@x.com", Amount: 1000, OccurredAt: anchorTime},
		{SourceID: "ch_2", Counterparty: "a@x.com", Amount: 1000, OccurredAt: anchorTime},
	}

	best, confidence := SelectBest(anchor, candidates, PayGatewayProfile())

	require.NotNil(t, best)
	assert.Equal(t, "ch_1", best.SourceID)
	assert.Equal(t, 100.0, confidence)
}

func TestSelectBest_EmptyPool(t *testing.T) {
	anchor := makeAnchor(1000, "a@x.com")

	best, confidence := SelectBest(anchor, nil, PayGatewayProfile())

	assert.Nil(t, best)
	assert.Equal(t, 0.0, confidence)
}

func TestSelectBest_ZeroScoreIsNoMatch(t *testing.T) {
	// A unique candidate scoring exactly 0 must never be selected.
	anchor := makeAnchor(1000, "a@x.com")
	candidates := []record.Record{
		{
			SourceID:     "ch_1",
			Counterparty: "other@y.com",
			Amount:       5000,
			OccurredAt:   anchorTime.Add(100 * time.Hour), // beyond the 24h window
		},
	}

	best, confidence := SelectBest(anchor, candidates, PayGatewayProfile())

	assert.Nil(t, best)
	assert.Equal(t, 0.0, confidence)
}

func TestSelectBest_DoesNotPruneClaimedCandidates(t *testing.T) {
	// The selector has no notion of claims: the same candidate wins for two
	// different anchors. Claim resolution happens in the aggregator.
	anchorA := makeAnchor(1000, "a@x.com")
	anchorB := makeAnchor(1000, "a@x.com")
	anchorB.SourceID = "ord-2"
	candidates := []record.Record{
		{SourceID: "ch_1", Counterparty: "a@x.com", Amount: 1000, OccurredAt: anchorTime},
	}

	bestA, _ := SelectBest(anchorA, candidates, PayGatewayProfile())
	bestB, _ := SelectBest(anchorB, candidates, PayGatewayProfile())

	require.NotNil(t, bestA)
	require.NotNil(t, bestB)
	assert.Equal(t, bestA.SourceID, bestB.SourceID)
}
