package model

// OptionEntry is one present poll option slot.
type OptionEntry struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
	Votes uint64 `json:"votes"`
}

// Poll is a fully decoded poll. IsActive and BlocksRemaining are recomputed
// client-side from the burn block height; ContractActive preserves the
// contract's own flag for display.
type Poll struct {
	PollID          uint64        `json:"poll_id"`
	Creator         string        `json:"creator"`
	Title           string        `json:"title"`
	Description     string        `json:"description"`
	Options         []OptionEntry `json:"options"`
	EndsAtBlock     uint64        `json:"ends_at_block"`
	TotalVotes      uint64        `json:"total_votes"`
	TotalVoters     uint64        `json:"total_voters"`
	ContractActive  bool          `json:"contract_active"`
	IsActive        bool          `json:"is_active"`
	BlocksRemaining uint64        `json:"blocks_remaining"`
}

// PollReadModel partitions all known polls by the client-side activity rule.
type PollReadModel struct {
	Active       []Poll `json:"active"`
	Closed       []Poll `json:"closed"`
	CurrentBlock uint64 `json:"current_block"`
	TotalPolls   uint64 `json:"total_polls"`
}
