package model

import (
	"time"
)

// Session is one issued access/refresh credential pair. Only token digests
// are stored; ExpiresAt is the refresh-token horizon.
type Session struct {
	ID               string    `json:"id"`
	AccountID        string    `json:"accountId"`
	AccessTokenHash  string    `json:"accessTokenHash"`
	RefreshTokenHash string    `json:"refreshTokenHash"`
	ClientIP         string    `json:"clientIp,omitempty"`
	UserAgent        string    `json:"userAgent,omitempty"`
	IsActive         bool      `json:"isActive"`
	CreatedAt        time.Time `json:"createdAt"`
	ExpiresAt        time.Time `json:"expiresAt"`
	LastActivityAt   time.Time `json:"lastActivityAt"`
}

type CreateSessionParams struct {
	AccountID        string
	AccessTokenHash  string
	RefreshTokenHash string
	ClientIP         string
	UserAgent        string
	ExpiresAt        time.Time
}

// SessionInfo is the session view exposed to collaborators: metadata only,
// never a token or token hash.
type SessionInfo struct {
	ID             string    `json:"id"`
	ClientIP       string    `json:"clientIp,omitempty"`
	UserAgent      string    `json:"userAgent,omitempty"`
	IsActive       bool      `json:"isActive"`
	CreatedAt      time.Time `json:"createdAt"`
	ExpiresAt      time.Time `json:"expiresAt"`
	LastActivityAt time.Time `json:"lastActivityAt"`
}

func (s *Session) Info() SessionInfo {
	return SessionInfo{
		ID:             s.ID,
		ClientIP:       s.ClientIP,
		UserAgent:      s.UserAgent,
		IsActive:       s.IsActive,
		CreatedAt:      s.CreatedAt,
		ExpiresAt:      s.ExpiresAt,
		LastActivityAt: s.LastActivityAt,
	}
}

// Expired reports whether the session is past its refresh horizon.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
