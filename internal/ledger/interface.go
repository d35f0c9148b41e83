package ledger

import "context"

// Ledger is the entry-fee oracle. The chain watcher marks wallets paid after
// the escrow contract confirms their deposit; the game layer only ever asks
// HasPaid and trusts the answer.
type Ledger interface {
	// MarkPaid records that a player settled the entry fee for a lobby.
	MarkPaid(ctx context.Context, input *MarkPaidInput) error

	// HasPaid reports whether a player settled the entry fee for a lobby.
	HasPaid(ctx context.Context, input *HasPaidInput) (bool, error)

	// PaidPlayers lists every player that paid into a lobby.
	PaidPlayers(ctx context.Context, input *PaidPlayersInput) (*PaidPlayersOutput, error)
}
