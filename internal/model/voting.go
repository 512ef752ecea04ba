package model

// UserVotingStats holds the per-user voting counters. All zero when no
// address is connected or the read fails.
type UserVotingStats struct {
	PollsCreated   uint64 `json:"polls_created"`
	PollsVoted     uint64 `json:"polls_voted"`
	TotalVotesCast uint64 `json:"total_votes_cast"`
}
