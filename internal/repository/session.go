package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	apperrors "github.com/heliawallet/vault-server-go/internal/errors"
	"github.com/heliawallet/vault-server-go/internal/model"
	"github.com/heliawallet/vault-server-go/internal/store"
	"github.com/heliawallet/vault-server-go/internal/util"
)

type SessionRepository interface {
	Create(ctx context.Context, params model.CreateSessionParams) (*model.Session, error)
	FindByID(ctx context.Context, id string) (*model.Session, error)
	FindByAccount(ctx context.Context, accountID string) ([]model.Session, error)
	FindByRefreshHash(ctx context.Context, refreshHash string) (*model.Session, error)
	Update(ctx context.Context, session *model.Session) error
	// DeactivateAll flips every active session for the account to inactive and
	// returns how many were flipped. Rows are retained for the cleanup sweep.
	DeactivateAll(ctx context.Context, accountID string) (int, error)
	DeleteExpired(ctx context.Context) (int64, error)
	DeleteByAccount(ctx context.Context, accountID string) (int, error)
	CountByAccount(ctx context.Context, accountID string) (int, error)
	WithTx(tx *store.Tx) SessionRepository
}

type sessionRepo struct {
	runner
}

func NewSessionRepository(st *store.Store) SessionRepository {
	return &sessionRepo{runner{st: st}}
}

func (r *sessionRepo) WithTx(tx *store.Tx) SessionRepository {
	return &sessionRepo{runner{tx: tx}}
}

func (r *sessionRepo) Create(ctx context.Context, params model.CreateSessionParams) (*model.Session, error) {
	now := time.Now()
	if !params.ExpiresAt.After(now) {
		return nil, apperrors.InvalidInput("expiresAt", "must be after creation time")
	}

	session := &model.Session{
		ID:               util.NewID(),
		AccountID:        params.AccountID,
		AccessTokenHash:  params.AccessTokenHash,
		RefreshTokenHash: params.RefreshTokenHash,
		ClientIP:         params.ClientIP,
		UserAgent:        params.UserAgent,
		IsActive:         true,
		CreatedAt:        now,
		ExpiresAt:        params.ExpiresAt,
		LastActivityAt:   now,
	}

	err := r.update(func(tx *store.Tx) error {
		if err := tx.SetUnique(store.TableSessions, store.IndexSessionRefresh, session.RefreshTokenHash, session.ID); err != nil {
			return err
		}
		if err := tx.AddIndex(store.TableSessions, store.IndexSessionAccount, session.AccountID, session.ID); err != nil {
			return err
		}
		return insertRecord(tx, store.TableSessions, session.ID, session)
	})
	if err != nil {
		return nil, err
	}
	return session, nil
}

func (r *sessionRepo) FindByID(ctx context.Context, id string) (*model.Session, error) {
	var session *model.Session
	err := r.view(func(tx *store.Tx) error {
		var err error
		session, err = getRecord[model.Session](tx, store.TableSessions, id)
		return err
	})
	return session, err
}

func (r *sessionRepo) FindByAccount(ctx context.Context, accountID string) ([]model.Session, error) {
	var sessions []model.Session
	err := r.view(func(tx *store.Tx) error {
		ids, err := tx.ScanIndex(store.TableSessions, store.IndexSessionAccount, accountID)
		if err != nil {
			return err
		}
		sessions, err = fetchAll[model.Session](tx, store.TableSessions, ids)
		return err
	})
	return sessions, err
}

func (r *sessionRepo) FindByRefreshHash(ctx context.Context, refreshHash string) (*model.Session, error) {
	var session *model.Session
	err := r.view(func(tx *store.Tx) error {
		id, err := tx.LookupUnique(store.TableSessions, store.IndexSessionRefresh, refreshHash)
		if err != nil || id == "" {
			return err
		}
		session, err = getRecord[model.Session](tx, store.TableSessions, id)
		return err
	})
	return session, err
}

// Update persists the full session record, moving the refresh-hash index when
// the pair has been rotated.
func (r *sessionRepo) Update(ctx context.Context, session *model.Session) error {
	return r.update(func(tx *store.Tx) error {
		old, err := getRecord[model.Session](tx, store.TableSessions, session.ID)
		if err != nil {
			return err
		}
		if old == nil {
			return apperrors.NotFound("Session")
		}
		if old.RefreshTokenHash != session.RefreshTokenHash {
			if err := tx.SetUnique(store.TableSessions, store.IndexSessionRefresh, session.RefreshTokenHash, session.ID); err != nil {
				return err
			}
			if err := tx.DeleteUnique(store.TableSessions, store.IndexSessionRefresh, old.RefreshTokenHash); err != nil {
				return err
			}
		}
		return putRecord(tx, store.TableSessions, session.ID, session)
	})
}

func (r *sessionRepo) DeactivateAll(ctx context.Context, accountID string) (int, error) {
	count := 0
	err := r.update(func(tx *store.Tx) error {
		ids, err := tx.ScanIndex(store.TableSessions, store.IndexSessionAccount, accountID)
		if err != nil {
			return err
		}
		for _, id := range ids {
			session, err := getRecord[model.Session](tx, store.TableSessions, id)
			if err != nil {
				return err
			}
			if session == nil || !session.IsActive {
				continue
			}
			session.IsActive = false
			if err := putRecord(tx, store.TableSessions, id, session); err != nil {
				return err
			}
			count++
		}
		return nil
	})
	return count, err
}

func (r *sessionRepo) DeleteExpired(ctx context.Context) (int64, error) {
	var count int64
	now := time.Now()
	err := r.update(func(tx *store.Tx) error {
		var expired []model.Session
		err := tx.ForEach(store.TableSessions, func(key string, value []byte) error {
			var session model.Session
			if err := json.Unmarshal(value, &session); err != nil {
				return fmt.Errorf("decode session record: %w", err)
			}
			if session.Expired(now) {
				expired = append(expired, session)
			}
			return nil
		})
		if err != nil {
			return err
		}
		for _, session := range expired {
			if err := r.deleteOne(tx, &session); err != nil {
				return err
			}
			count++
		}
		return nil
	})
	return count, err
}

func (r *sessionRepo) DeleteByAccount(ctx context.Context, accountID string) (int, error) {
	count := 0
	err := r.update(func(tx *store.Tx) error {
		ids, err := tx.ScanIndex(store.TableSessions, store.IndexSessionAccount, accountID)
		if err != nil {
			return err
		}
		for _, id := range ids {
			session, err := getRecord[model.Session](tx, store.TableSessions, id)
			if err != nil {
				return err
			}
			if session == nil {
				continue
			}
			if err := r.deleteOne(tx, session); err != nil {
				return err
			}
			count++
		}
		return nil
	})
	return count, err
}

func (r *sessionRepo) deleteOne(tx *store.Tx, session *model.Session) error {
	if err := tx.DeleteUnique(store.TableSessions, store.IndexSessionRefresh, session.RefreshTokenHash); err != nil {
		return err
	}
	if err := tx.RemoveIndex(store.TableSessions, store.IndexSessionAccount, session.AccountID, session.ID); err != nil {
		return err
	}
	return tx.Delete(store.TableSessions, session.ID)
}

func (r *sessionRepo) CountByAccount(ctx context.Context, accountID string) (int, error) {
	var count int
	err := r.view(func(tx *store.Tx) error {
		ids, err := tx.ScanIndex(store.TableSessions, store.IndexSessionAccount, accountID)
		if err != nil {
			return err
		}
		count = len(ids)
		return nil
	})
	return count, err
}
