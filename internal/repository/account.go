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

type AccountRepository interface {
	Create(ctx context.Context, params model.CreateAccountParams) (*model.Account, error)
	FindByID(ctx context.Context, id string) (*model.Account, error)
	FindByEmail(ctx context.Context, email string) (*model.Account, error)
	FindByWallet(ctx context.Context, address string) (*model.Account, error)
	// FindByVerificationTokenHash scans for the account holding the given
	// email-verification token digest.
	FindByVerificationTokenHash(ctx context.Context, tokenHash string) (*model.Account, error)
	// FindByResetTokenHash scans for the account holding the given
	// password-reset token digest.
	FindByResetTokenHash(ctx context.Context, tokenHash string) (*model.Account, error)
	Update(ctx context.Context, account *model.Account) error
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)
	// WithTx returns a repository bound to the given transaction
	WithTx(tx *store.Tx) AccountRepository
}

type accountRepo struct {
	runner
}

func NewAccountRepository(st *store.Store) AccountRepository {
	return &accountRepo{runner{st: st}}
}

func (r *accountRepo) WithTx(tx *store.Tx) AccountRepository {
	return &accountRepo{runner{tx: tx}}
}

func (r *accountRepo) Create(ctx context.Context, params model.CreateAccountParams) (*model.Account, error) {
	now := time.Now()
	account := &model.Account{
		ID:                    util.NewID(),
		Email:                 params.Email,
		Name:                  params.Name,
		PasswordHash:          params.PasswordHash,
		Role:                  model.RoleUser,
		IsActive:              true,
		VerificationTokenHash: &params.VerificationTokenHash,
		VerificationExpiresAt: &params.VerificationExpiresAt,
		CreatedAt:             now,
		UpdatedAt:             now,
	}

	err := r.update(func(tx *store.Tx) error {
		if err := tx.SetUnique(store.TableAccounts, store.IndexAccountEmail, account.Email, account.ID); err != nil {
			if apperrors.HasCode(err, apperrors.ErrCodeConflict) {
				return apperrors.AlreadyExists("Account")
			}
			return err
		}
		return insertRecord(tx, store.TableAccounts, account.ID, account)
	})
	if err != nil {
		return nil, err
	}
	return account, nil
}

func (r *accountRepo) FindByID(ctx context.Context, id string) (*model.Account, error) {
	var account *model.Account
	err := r.view(func(tx *store.Tx) error {
		var err error
		account, err = getRecord[model.Account](tx, store.TableAccounts, id)
		return err
	})
	return account, err
}

func (r *accountRepo) FindByEmail(ctx context.Context, email string) (*model.Account, error) {
	var account *model.Account
	err := r.view(func(tx *store.Tx) error {
		id, err := tx.LookupUnique(store.TableAccounts, store.IndexAccountEmail, email)
		if err != nil || id == "" {
			return err
		}
		account, err = getRecord[model.Account](tx, store.TableAccounts, id)
		return err
	})
	return account, err
}

func (r *accountRepo) FindByWallet(ctx context.Context, address string) (*model.Account, error) {
	var account *model.Account
	err := r.view(func(tx *store.Tx) error {
		id, err := tx.LookupUnique(store.TableAccounts, store.IndexAccountWallet, address)
		if err != nil || id == "" {
			return err
		}
		account, err = getRecord[model.Account](tx, store.TableAccounts, id)
		return err
	})
	return account, err
}

func (r *accountRepo) FindByVerificationTokenHash(ctx context.Context, tokenHash string) (*model.Account, error) {
	var account *model.Account
	err := r.view(func(tx *store.Tx) error {
		return tx.ForEach(store.TableAccounts, func(key string, value []byte) error {
			if account != nil {
				return nil
			}
			var rec model.Account
			if err := json.Unmarshal(value, &rec); err != nil {
				return fmt.Errorf("decode account record: %w", err)
			}
			if rec.VerificationTokenHash != nil && util.ConstantTimeEqual(*rec.VerificationTokenHash, tokenHash) {
				account = &rec
			}
			return nil
		})
	})
	return account, err
}

func (r *accountRepo) FindByResetTokenHash(ctx context.Context, tokenHash string) (*model.Account, error) {
	var account *model.Account
	err := r.view(func(tx *store.Tx) error {
		return tx.ForEach(store.TableAccounts, func(key string, value []byte) error {
			if account != nil {
				return nil
			}
			var rec model.Account
			if err := json.Unmarshal(value, &rec); err != nil {
				return fmt.Errorf("decode account record: %w", err)
			}
			if rec.ResetTokenHash != nil && util.ConstantTimeEqual(*rec.ResetTokenHash, tokenHash) {
				account = &rec
			}
			return nil
		})
	})
	return account, err
}

// Update persists the full account record and keeps the email and wallet
// uniqueness indexes in step with any changes.
func (r *accountRepo) Update(ctx context.Context, account *model.Account) error {
	account.UpdatedAt = time.Now()
	return r.update(func(tx *store.Tx) error {
		old, err := getRecord[model.Account](tx, store.TableAccounts, account.ID)
		if err != nil {
			return err
		}
		if old == nil {
			return apperrors.NotFound("Account")
		}

		if old.Email != account.Email {
			if err := tx.SetUnique(store.TableAccounts, store.IndexAccountEmail, account.Email, account.ID); err != nil {
				return err
			}
			if err := tx.DeleteUnique(store.TableAccounts, store.IndexAccountEmail, old.Email); err != nil {
				return err
			}
		}

		oldWallet, newWallet := derefStr(old.WalletAddress), derefStr(account.WalletAddress)
		if oldWallet != newWallet {
			if newWallet != "" {
				if err := tx.SetUnique(store.TableAccounts, store.IndexAccountWallet, newWallet, account.ID); err != nil {
					return err
				}
			}
			if oldWallet != "" {
				if err := tx.DeleteUnique(store.TableAccounts, store.IndexAccountWallet, oldWallet); err != nil {
					return err
				}
			}
		}

		return putRecord(tx, store.TableAccounts, account.ID, account)
	})
}

func (r *accountRepo) Delete(ctx context.Context, id string) error {
	return r.update(func(tx *store.Tx) error {
		account, err := getRecord[model.Account](tx, store.TableAccounts, id)
		if err != nil {
			return err
		}
		if account == nil {
			return nil
		}
		if err := tx.DeleteUnique(store.TableAccounts, store.IndexAccountEmail, account.Email); err != nil {
			return err
		}
		if wallet := derefStr(account.WalletAddress); wallet != "" {
			if err := tx.DeleteUnique(store.TableAccounts, store.IndexAccountWallet, wallet); err != nil {
				return err
			}
		}
		return tx.Delete(store.TableAccounts, id)
	})
}

func (r *accountRepo) Count(ctx context.Context) (int, error) {
	var count int
	err := r.view(func(tx *store.Tx) error {
		var err error
		count, err = tx.Count(store.TableAccounts)
		return err
	})
	return count, err
}

func derefStr(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
