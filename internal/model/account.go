package model

import (
	"time"
)

// Account is the owning identity for every other record in the store. The
// password credential and any verification/reset tokens are stored as one-way
// derivations only.
type Account struct {
	ID                    string     `json:"id"`
	Email                 string     `json:"email"`
	Name                  string     `json:"name,omitempty"`
	PasswordHash          string     `json:"passwordHash"`
	WalletAddress         *string    `json:"walletAddress,omitempty"`
	Role                  Role       `json:"role"`
	IsActive              bool       `json:"isActive"`
	EmailVerified         bool       `json:"emailVerified"`
	VerificationTokenHash *string    `json:"verificationTokenHash,omitempty"`
	VerificationExpiresAt *time.Time `json:"verificationExpiresAt,omitempty"`
	ResetTokenHash        *string    `json:"resetTokenHash,omitempty"`
	ResetExpiresAt        *time.Time `json:"resetExpiresAt,omitempty"`
	LoginCount            int        `json:"loginCount"`
	LastLoginAt           *time.Time `json:"lastLoginAt,omitempty"`
	CreatedAt             time.Time  `json:"createdAt"`
	UpdatedAt             time.Time  `json:"updatedAt"`
}

type CreateAccountParams struct {
	Email                 string
	Name                  string
	PasswordHash          string
	VerificationTokenHash string
	VerificationExpiresAt time.Time
}
