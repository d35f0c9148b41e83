package ledger

import "context"

// openLedger waves everyone through. Used for freeplay deployments where no
// escrow contract (and no redis) is configured.
type openLedger struct{}

// NewOpen creates a ledger that treats every player as paid.
func NewOpen() *openLedger {
	return &openLedger{}
}

func (*openLedger) MarkPaid(_ context.Context, _ *MarkPaidInput) error {
	return nil
}

func (*openLedger) HasPaid(_ context.Context, _ *HasPaidInput) (bool, error) {
	return true, nil
}

func (*openLedger) PaidPlayers(_ context.Context, _ *PaidPlayersInput) (*PaidPlayersOutput, error) {
	return &PaidPlayersOutput{}, nil
}
