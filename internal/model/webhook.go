package model

import "time"

// WebhookEvent is one chainhook-delivered contract call event.
type WebhookEvent struct {
	TxID        string    `json:"transaction_id"`
	Sender      string    `json:"sender"`
	BlockHeight uint64    `json:"block_height,omitempty"`
	ReceivedAt  time.Time `json:"received_at,omitempty"`
}

// WebhookPayload is the chainhook POST body.
type WebhookPayload struct {
	Apply []WebhookEvent `json:"apply"`
}

// Counter is the running webhook event tally.
type Counter struct {
	Total uint64 `json:"total"`
	Today uint64 `json:"today"`
}
