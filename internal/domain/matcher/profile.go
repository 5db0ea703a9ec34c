package matcher

import (
	"fmt"

	"ledgerlink/internal/domain/record"
)

// Weights holds the per-signal weights of a match profile. The four weights
// must sum to 100 so a perfect candidate scores exactly 100.
type Weights struct {
	Identity  float64 `yaml:"identity"`
	Reference float64 `yaml:"reference"`
	Amount    float64 `yaml:"amount"`
	Temporal  float64 `yaml:"temporal"`
}

// Profile configures scoring against one secondary source.
type Profile struct {
	Source          record.SourceKind `yaml:"-"`
	Weights         Weights           `yaml:"weights"`
	AmountTolerance float64           `yaml:"amount_tolerance"` // fraction of the anchor amount, e.g. 0.01
	WindowHours     float64           `yaml:"window_hours"`     // temporal decay window
}

// PayGatewayProfile returns the reference configuration for the
// payment-gateway source: identity-led matching with a 24h decay window,
// since gateways carry the buyer's billing email but no order reference.
func PayGatewayProfile() Profile {
	return Profile{
		Source:          record.SourcePayGateway,
		Weights:         Weights{Identity: 40, Amount: 40, Temporal: 20},
		AmountTolerance: 0.01,
		WindowHours:     24,
	}
}

// OrderMgmtProfile returns the reference configuration for the
// order-management source: reference-led matching with a 48h window,
// reflecting its slower sync latency. OMS records carry the originating
// order number, so the reference signal dominates.
func OrderMgmtProfile() Profile {
	return Profile{
		Source:          record.SourceOrderMgmt,
		Weights:         Weights{Reference: 60, Amount: 30, Temporal: 10},
		AmountTolerance: 0.01,
		WindowHours:     48,
	}
}

// Validate checks profile consistency.
func (p Profile) Validate() error {
	sum := p.Weights.Identity + p.Weights.Reference + p.Weights.Amount + p.Weights.Temporal
	if sum != 100 {
		return fmt.Errorf("profile %s: weights must sum to 100, got %g", p.Source, sum)
	}
	if p.AmountTolerance < 0 {
		return fmt.Errorf("profile %s: amount tolerance must not be negative", p.Source)
	}
	if p.WindowHours <= 0 {
		return fmt.Errorf("profile %s: window hours must be positive", p.Source)
	}
	return nil
}
