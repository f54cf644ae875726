package repository

import (
	"context"
	"time"

	"github.com/heliawallet/vault-server-go/internal/model"
	"github.com/heliawallet/vault-server-go/internal/store"
)

type SettingsRepository interface {
	// Put upserts; exactly one settings record exists per account.
	Put(ctx context.Context, settings *model.Settings) error
	FindByAccount(ctx context.Context, accountID string) (*model.Settings, error)
	Delete(ctx context.Context, accountID string) error
	WithTx(tx *store.Tx) SettingsRepository
}

type settingsRepo struct {
	runner
}

func NewSettingsRepository(st *store.Store) SettingsRepository {
	return &settingsRepo{runner{st: st}}
}

func (r *settingsRepo) WithTx(tx *store.Tx) SettingsRepository {
	return &settingsRepo{runner{tx: tx}}
}

func (r *settingsRepo) Put(ctx context.Context, settings *model.Settings) error {
	settings.UpdatedAt = time.Now()
	return r.update(func(tx *store.Tx) error {
		return putRecord(tx, store.TableSettings, settings.AccountID, settings)
	})
}

func (r *settingsRepo) FindByAccount(ctx context.Context, accountID string) (*model.Settings, error) {
	var settings *model.Settings
	err := r.view(func(tx *store.Tx) error {
		var err error
		settings, err = getRecord[model.Settings](tx, store.TableSettings, accountID)
		return err
	})
	return settings, err
}

func (r *settingsRepo) Delete(ctx context.Context, accountID string) error {
	return r.update(func(tx *store.Tx) error {
		return tx.Delete(store.TableSettings, accountID)
	})
}
