package model

import (
	"time"
)

type Profile struct {
	Name      string `json:"name,omitempty"`
	Email     string `json:"email,omitempty"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}

type Preferences struct {
	Currency        string `json:"currency"`
	Language        string `json:"language"`
	Theme           Theme  `json:"theme"`
	Notifications   bool   `json:"notifications"`
	AutoLockMinutes int    `json:"autoLockMinutes"`
}

// Settings holds the single preferences record for an account, keyed by the
// account id itself.
type Settings struct {
	AccountID   string      `json:"accountId"`
	Profile     Profile     `json:"profile"`
	Preferences Preferences `json:"preferences"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

// DefaultSettings returns the preferences synthesized for accounts that have
// never saved any.
func DefaultSettings(accountID string) Settings {
	return Settings{
		AccountID: accountID,
		Preferences: Preferences{
			Currency:        "usd",
			Language:        "en",
			Theme:           ThemeSystem,
			Notifications:   true,
			AutoLockMinutes: 15,
		},
		UpdatedAt: time.Now(),
	}
}
