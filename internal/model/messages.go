package model

// Message is one on-chain message from the recent window.
type Message struct {
	Sender      string `json:"sender"`
	Content     string `json:"content"`
	BlockHeight uint64 `json:"block_height"`
	Timestamp   uint64 `json:"timestamp,omitempty"`
}

// MessageReadModel is the aggregated message view. The leaderboard counts
// senders within the fetched window only, an intentional approximation.
type MessageReadModel struct {
	Today       *uint64            `json:"today"`
	Total       *uint64            `json:"total"`
	User        *uint64            `json:"user"`
	Recent      []Message          `json:"recent"`
	Leaderboard []LeaderboardEntry `json:"leaderboard"`
}
