package repository

import (
	"context"
	"strings"
	"time"

	apperrors "github.com/heliawallet/vault-server-go/internal/errors"
	"github.com/heliawallet/vault-server-go/internal/model"
	"github.com/heliawallet/vault-server-go/internal/store"
	"github.com/heliawallet/vault-server-go/internal/util"
	"github.com/heliawallet/vault-server-go/internal/validate"
)

type TrackedTokenRepository interface {
	// Create fails with CONFLICT when the account already tracks the contract
	// on that network.
	Create(ctx context.Context, params model.CreateTrackedTokenParams) (*model.TrackedToken, error)
	FindByID(ctx context.Context, id string) (*model.TrackedToken, error)
	ListByAccount(ctx context.Context, accountID string) ([]model.TrackedToken, error)
	Delete(ctx context.Context, id string) error
	DeleteByAccount(ctx context.Context, accountID string) (int, error)
	CountByAccount(ctx context.Context, accountID string) (int, error)
	WithTx(tx *store.Tx) TrackedTokenRepository
}

type tokenRepo struct {
	runner
}

func NewTrackedTokenRepository(st *store.Store) TrackedTokenRepository {
	return &tokenRepo{runner{st: st}}
}

func (r *tokenRepo) WithTx(tx *store.Tx) TrackedTokenRepository {
	return &tokenRepo{runner{tx: tx}}
}

func tokenContractKey(accountID, network, address string) string {
	return store.IndexKey(accountID, strings.ToLower(network), validate.NormalizeAddress(address))
}

func (r *tokenRepo) Create(ctx context.Context, params model.CreateTrackedTokenParams) (*model.TrackedToken, error) {
	token := &model.TrackedToken{
		ID:        util.NewID(),
		AccountID: params.AccountID,
		Address:   validate.NormalizeAddress(params.Address),
		Symbol:    params.Symbol,
		Name:      params.Name,
		Decimals:  params.Decimals,
		Network:   params.Network,
		AddedAt:   time.Now(),
	}

	err := r.update(func(tx *store.Tx) error {
		key := tokenContractKey(token.AccountID, token.Network, token.Address)
		if err := tx.SetUnique(store.TableTokens, store.IndexTokenContract, key, token.ID); err != nil {
			if apperrors.HasCode(err, apperrors.ErrCodeConflict) {
				return apperrors.Conflict("token is already tracked")
			}
			return err
		}
		if err := tx.AddIndex(store.TableTokens, store.IndexTokenAccount, token.AccountID, token.ID); err != nil {
			return err
		}
		return insertRecord(tx, store.TableTokens, token.ID, token)
	})
	if err != nil {
		return nil, err
	}
	return token, nil
}

func (r *tokenRepo) FindByID(ctx context.Context, id string) (*model.TrackedToken, error) {
	var token *model.TrackedToken
	err := r.view(func(tx *store.Tx) error {
		var err error
		token, err = getRecord[model.TrackedToken](tx, store.TableTokens, id)
		return err
	})
	return token, err
}

func (r *tokenRepo) ListByAccount(ctx context.Context, accountID string) ([]model.TrackedToken, error) {
	var tokens []model.TrackedToken
	err := r.view(func(tx *store.Tx) error {
		ids, err := tx.ScanIndex(store.TableTokens, store.IndexTokenAccount, accountID)
		if err != nil {
			return err
		}
		tokens, err = fetchAll[model.TrackedToken](tx, store.TableTokens, ids)
		return err
	})
	return tokens, err
}

func (r *tokenRepo) Delete(ctx context.Context, id string) error {
	return r.update(func(tx *store.Tx) error {
		token, err := getRecord[model.TrackedToken](tx, store.TableTokens, id)
		if err != nil {
			return err
		}
		if token == nil {
			return nil
		}
		return r.deleteOne(tx, token)
	})
}

func (r *tokenRepo) deleteOne(tx *store.Tx, token *model.TrackedToken) error {
	if err := tx.DeleteUnique(store.TableTokens, store.IndexTokenContract, tokenContractKey(token.AccountID, token.Network, token.Address)); err != nil {
		return err
	}
	if err := tx.RemoveIndex(store.TableTokens, store.IndexTokenAccount, token.AccountID, token.ID); err != nil {
		return err
	}
	return tx.Delete(store.TableTokens, token.ID)
}

func (r *tokenRepo) DeleteByAccount(ctx context.Context, accountID string) (int, error) {
	count := 0
	err := r.update(func(tx *store.Tx) error {
		ids, err := tx.ScanIndex(store.TableTokens, store.IndexTokenAccount, accountID)
		if err != nil {
			return err
		}
		for _, id := range ids {
			token, err := getRecord[model.TrackedToken](tx, store.TableTokens, id)
			if err != nil {
				return err
			}
			if token == nil {
				continue
			}
			if err := r.deleteOne(tx, token); err != nil {
				return err
			}
			count++
		}
		return nil
	})
	return count, err
}

func (r *tokenRepo) CountByAccount(ctx context.Context, accountID string) (int, error) {
	var count int
	err := r.view(func(tx *store.Tx) error {
		ids, err := tx.ScanIndex(store.TableTokens, store.IndexTokenAccount, accountID)
		if err != nil {
			return err
		}
		count = len(ids)
		return nil
	})
	return count, err
}
