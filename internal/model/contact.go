package model

import (
	"time"
)

// Contact is an address-book entry. Notes may be stored encrypted when a
// data encryption key is configured; NotesEncrypted marks the stored form.
type Contact struct {
	ID             string     `json:"id"`
	AccountID      string     `json:"accountId"`
	Name           string     `json:"name"`
	Address        string     `json:"address"`
	Alias          string     `json:"alias,omitempty"`
	Tags           []string   `json:"tags,omitempty"`
	Notes          string     `json:"notes,omitempty"`
	NotesEncrypted bool       `json:"notesEncrypted,omitempty"`
	LastUsedAt     *time.Time `json:"lastUsedAt,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

type CreateContactParams struct {
	AccountID      string
	Name           string
	Address        string
	Alias          string
	Tags           []string
	Notes          string
	NotesEncrypted bool
}
