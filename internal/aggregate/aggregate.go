// Package aggregate rebuilds the application read models (GM stats,
// messages, polls, per-user voting stats) from read-only contract calls.
package aggregate

import (
	"clickship/internal/chain"
)

// Contracts names the three on-chain collaborators.
type Contracts struct {
	Gm       chain.Contract
	Messages chain.Contract
	Voting   chain.Contract
}

// Config controls aggregation behavior.
type Config struct {
	Contracts Contracts
	// Sender simulates read-only calls when no user address is involved.
	Sender string
	// RecentGmWindow bounds how many recent GM entries feed the leaderboard.
	RecentGmWindow int
	// GmLeaderboardSize truncates the derived GM leaderboard.
	GmLeaderboardSize int
	// MessageWindow bounds the recent-message fetch.
	MessageWindow int
	// MessageLeaderboardSize truncates the derived sender leaderboard.
	MessageLeaderboardSize int
}

func (c Config) withDefaults() Config {
	if c.Sender == "" {
		c.Sender = chain.DefaultSender
	}
	if c.RecentGmWindow <= 0 {
		c.RecentGmWindow = 25
	}
	if c.GmLeaderboardSize <= 0 {
		c.GmLeaderboardSize = 10
	}
	if c.MessageWindow <= 0 {
		c.MessageWindow = 20
	}
	if c.MessageLeaderboardSize <= 0 {
		c.MessageLeaderboardSize = 5
	}
	return c
}
