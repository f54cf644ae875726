package model

import (
	"time"
)

// TxLabel annotates one on-chain transaction. At most one label exists per
// (account, transaction hash) pair.
type TxLabel struct {
	ID        string    `json:"id"`
	AccountID string    `json:"accountId"`
	TxHash    string    `json:"txHash"`
	Label     string    `json:"label"`
	Category  string    `json:"category,omitempty"`
	Amount    *float64  `json:"amount,omitempty"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type CreateTxLabelParams struct {
	AccountID string
	TxHash    string
	Label     string
	Category  string
	Amount    *float64
	Notes     string
}
