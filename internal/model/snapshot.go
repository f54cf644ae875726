package model

import (
	"time"
)

type AssetBalance struct {
	Symbol  string  `json:"symbol"`
	Address string  `json:"address,omitempty"`
	Amount  float64 `json:"amount"`
	Price   float64 `json:"price"`
	Value   float64 `json:"value"`
}

// Snapshot is one portfolio point-in-time. Assets is non-empty once
// persisted; rows older than the retention window are swept by cleanup.
type Snapshot struct {
	ID         string         `json:"id"`
	AccountID  string         `json:"accountId"`
	CapturedAt time.Time      `json:"capturedAt"`
	TotalValue float64        `json:"totalValue"`
	Assets     []AssetBalance `json:"assets"`
	Network    string         `json:"network"`
}

type CreateSnapshotParams struct {
	AccountID  string
	CapturedAt time.Time
	TotalValue float64
	Assets     []AssetBalance
	Network    string
}
