package model

// GmEvent is one broadcast GM as read from the contract.
type GmEvent struct {
	User        string `json:"user"`
	BlockHeight uint64 `json:"block_height"`
	Timestamp   uint64 `json:"timestamp,omitempty"`
}

// LeaderboardEntry is a derived ranking row. Ties keep first-seen order.
type LeaderboardEntry struct {
	User  string `json:"user"`
	Total uint64 `json:"total"`
}

// GmReadModel is the aggregated GM view. Nil count pointers mean "unknown":
// the value could not be fetched yet, which JSON renders as null, distinct
// from a real zero.
type GmReadModel struct {
	Today       *uint64            `json:"today"`
	Total       *uint64            `json:"total"`
	User        *uint64            `json:"user"`
	Source      string             `json:"source,omitempty"`
	LastGm      *GmEvent           `json:"last_gm"`
	LastGmAgo   string             `json:"last_gm_ago,omitempty"`
	Leaderboard []LeaderboardEntry `json:"leaderboard"`
}
