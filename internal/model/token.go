package model

import (
	"time"
)

// TrackedToken is a contract an account watches. One entry exists per
// (account, network, contract address).
type TrackedToken struct {
	ID        string    `json:"id"`
	AccountID string    `json:"accountId"`
	Address   string    `json:"address"`
	Symbol    string    `json:"symbol"`
	Name      string    `json:"name,omitempty"`
	Decimals  int       `json:"decimals"`
	Network   string    `json:"network"`
	AddedAt   time.Time `json:"addedAt"`
}

type CreateTrackedTokenParams struct {
	AccountID string
	Address   string
	Symbol    string
	Name      string
	Decimals  int
	Network   string
}
