package model

import "time"

// Snapshot bundles all read models taken in one refresh cycle. Nil sections
// have not been fetched successfully yet.
type Snapshot struct {
	TakenAt      time.Time         `json:"taken_at"`
	CurrentBlock uint64            `json:"current_block"`
	Gm           *GmReadModel      `json:"gm,omitempty"`
	GmUpdatedAt  time.Time         `json:"gm_updated_at,omitempty"`
	Messages     *MessageReadModel `json:"messages,omitempty"`
	Polls        *PollReadModel    `json:"polls,omitempty"`
}
