package repository

import (
	"context"
	"strings"
	"time"

	apperrors "github.com/heliawallet/vault-server-go/internal/errors"
	"github.com/heliawallet/vault-server-go/internal/model"
	"github.com/heliawallet/vault-server-go/internal/store"
	"github.com/heliawallet/vault-server-go/internal/util"
)

type TxLabelRepository interface {
	// Create fails with CONFLICT when the (account, txHash) pair already has a label.
	Create(ctx context.Context, params model.CreateTxLabelParams) (*model.TxLabel, error)
	FindByID(ctx context.Context, id string) (*model.TxLabel, error)
	FindByTxHash(ctx context.Context, accountID, txHash string) (*model.TxLabel, error)
	ListByAccount(ctx context.Context, accountID string) ([]model.TxLabel, error)
	Update(ctx context.Context, label *model.TxLabel) error
	Delete(ctx context.Context, id string) error
	DeleteByAccount(ctx context.Context, accountID string) (int, error)
	CountByAccount(ctx context.Context, accountID string) (int, error)
	WithTx(tx *store.Tx) TxLabelRepository
}

type labelRepo struct {
	runner
}

func NewTxLabelRepository(st *store.Store) TxLabelRepository {
	return &labelRepo{runner{st: st}}
}

func (r *labelRepo) WithTx(tx *store.Tx) TxLabelRepository {
	return &labelRepo{runner{tx: tx}}
}

func labelTxKey(accountID, txHash string) string {
	return store.IndexKey(accountID, strings.ToLower(txHash))
}

func (r *labelRepo) Create(ctx context.Context, params model.CreateTxLabelParams) (*model.TxLabel, error) {
	now := time.Now()
	label := &model.TxLabel{
		ID:        util.NewID(),
		AccountID: params.AccountID,
		TxHash:    strings.ToLower(params.TxHash),
		Label:     params.Label,
		Category:  params.Category,
		Amount:    params.Amount,
		Notes:     params.Notes,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := r.update(func(tx *store.Tx) error {
		if err := tx.SetUnique(store.TableLabels, store.IndexLabelTx, labelTxKey(label.AccountID, label.TxHash), label.ID); err != nil {
			if apperrors.HasCode(err, apperrors.ErrCodeConflict) {
				return apperrors.Conflict("transaction already has a label")
			}
			return err
		}
		return insertRecord(tx, store.TableLabels, label.ID, label)
	})
	if err != nil {
		return nil, err
	}
	return label, nil
}

func (r *labelRepo) FindByID(ctx context.Context, id string) (*model.TxLabel, error) {
	var label *model.TxLabel
	err := r.view(func(tx *store.Tx) error {
		var err error
		label, err = getRecord[model.TxLabel](tx, store.TableLabels, id)
		return err
	})
	return label, err
}

func (r *labelRepo) FindByTxHash(ctx context.Context, accountID, txHash string) (*model.TxLabel, error) {
	var label *model.TxLabel
	err := r.view(func(tx *store.Tx) error {
		id, err := tx.LookupUnique(store.TableLabels, store.IndexLabelTx, labelTxKey(accountID, txHash))
		if err != nil || id == "" {
			return err
		}
		label, err = getRecord[model.TxLabel](tx, store.TableLabels, id)
		return err
	})
	return label, err
}

func (r *labelRepo) ListByAccount(ctx context.Context, accountID string) ([]model.TxLabel, error) {
	var labels []model.TxLabel
	err := r.view(func(tx *store.Tx) error {
		ids, err := tx.ScanIndexPrefix(store.TableLabels, store.IndexLabelTx, store.IndexKey(accountID, ""))
		if err != nil {
			return err
		}
		labels, err = fetchAll[model.TxLabel](tx, store.TableLabels, ids)
		return err
	})
	return labels, err
}

func (r *labelRepo) Update(ctx context.Context, label *model.TxLabel) error {
	label.TxHash = strings.ToLower(label.TxHash)
	label.UpdatedAt = time.Now()
	return r.update(func(tx *store.Tx) error {
		old, err := getRecord[model.TxLabel](tx, store.TableLabels, label.ID)
		if err != nil {
			return err
		}
		if old == nil {
			return apperrors.NotFound("Label")
		}
		if old.TxHash != label.TxHash {
			if err := tx.SetUnique(store.TableLabels, store.IndexLabelTx, labelTxKey(label.AccountID, label.TxHash), label.ID); err != nil {
				return err
			}
			if err := tx.DeleteUnique(store.TableLabels, store.IndexLabelTx, labelTxKey(old.AccountID, old.TxHash)); err != nil {
				return err
			}
		}
		return putRecord(tx, store.TableLabels, label.ID, label)
	})
}

func (r *labelRepo) Delete(ctx context.Context, id string) error {
	return r.update(func(tx *store.Tx) error {
		label, err := getRecord[model.TxLabel](tx, store.TableLabels, id)
		if err != nil {
			return err
		}
		if label == nil {
			return nil
		}
		if err := tx.DeleteUnique(store.TableLabels, store.IndexLabelTx, labelTxKey(label.AccountID, label.TxHash)); err != nil {
			return err
		}
		return tx.Delete(store.TableLabels, id)
	})
}

func (r *labelRepo) DeleteByAccount(ctx context.Context, accountID string) (int, error) {
	count := 0
	err := r.update(func(tx *store.Tx) error {
		ids, err := tx.ScanIndexPrefix(store.TableLabels, store.IndexLabelTx, store.IndexKey(accountID, ""))
		if err != nil {
			return err
		}
		if err := tx.DeleteIndexByOwner(store.TableLabels, store.IndexLabelTx, accountID); err != nil {
			return err
		}
		for _, id := range ids {
			if err := tx.Delete(store.TableLabels, id); err != nil {
				return err
			}
			count++
		}
		return nil
	})
	return count, err
}

func (r *labelRepo) CountByAccount(ctx context.Context, accountID string) (int, error) {
	var count int
	err := r.view(func(tx *store.Tx) error {
		ids, err := tx.ScanIndexPrefix(store.TableLabels, store.IndexLabelTx, store.IndexKey(accountID, ""))
		if err != nil {
			return err
		}
		count = len(ids)
		return nil
	})
	return count, err
}
