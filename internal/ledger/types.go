package ledger

// MarkPaidInput contains parameters for recording an entry payment
type MarkPaidInput struct {
	LobbyCode string
	PlayerID  string
}

// HasPaidInput contains parameters for checking an entry payment
type HasPaidInput struct {
	LobbyCode string
	PlayerID  string
}

// PaidPlayersInput contains parameters for listing paid players
type PaidPlayersInput struct {
	LobbyCode string
}

// PaidPlayersOutput contains the result of listing paid players
type PaidPlayersOutput struct {
	PlayerIDs []string
}
