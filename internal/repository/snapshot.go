package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/heliawallet/vault-server-go/internal/model"
	"github.com/heliawallet/vault-server-go/internal/store"
	"github.com/heliawallet/vault-server-go/internal/util"
)

type SnapshotRepository interface {
	Create(ctx context.Context, params model.CreateSnapshotParams) (*model.Snapshot, error)
	FindByID(ctx context.Context, id string) (*model.Snapshot, error)
	// ListByAccount returns snapshots captured within [from, to]. Zero bounds
	// mean unbounded; desc returns newest first.
	ListByAccount(ctx context.Context, accountID string, from, to time.Time, desc bool, limit int) ([]model.Snapshot, error)
	// DeleteOlderThan removes every snapshot captured before cutoff,
	// regardless of owner. Used by the retention sweep.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
	Delete(ctx context.Context, id string) error
	DeleteByAccount(ctx context.Context, accountID string) (int, error)
	CountByAccount(ctx context.Context, accountID string) (int, error)
	WithTx(tx *store.Tx) SnapshotRepository
}

type snapshotRepo struct {
	runner
}

func NewSnapshotRepository(st *store.Store) SnapshotRepository {
	return &snapshotRepo{runner{st: st}}
}

func (r *snapshotRepo) WithTx(tx *store.Tx) SnapshotRepository {
	return &snapshotRepo{runner{tx: tx}}
}

func (r *snapshotRepo) Create(ctx context.Context, params model.CreateSnapshotParams) (*model.Snapshot, error) {
	snapshot := &model.Snapshot{
		ID:         util.NewID(),
		AccountID:  params.AccountID,
		CapturedAt: params.CapturedAt,
		TotalValue: params.TotalValue,
		Assets:     params.Assets,
		Network:    params.Network,
	}
	if snapshot.CapturedAt.IsZero() {
		snapshot.CapturedAt = time.Now()
	}

	err := r.update(func(tx *store.Tx) error {
		key := string(store.CompoundKey(snapshot.AccountID, snapshot.CapturedAt.UnixMilli()))
		if err := tx.AddIndex(store.TableSnapshots, store.IndexSnapshotCaptured, key, snapshot.ID); err != nil {
			return err
		}
		return insertRecord(tx, store.TableSnapshots, snapshot.ID, snapshot)
	})
	if err != nil {
		return nil, err
	}
	return snapshot, nil
}

func (r *snapshotRepo) FindByID(ctx context.Context, id string) (*model.Snapshot, error) {
	var snapshot *model.Snapshot
	err := r.view(func(tx *store.Tx) error {
		var err error
		snapshot, err = getRecord[model.Snapshot](tx, store.TableSnapshots, id)
		return err
	})
	return snapshot, err
}

func (r *snapshotRepo) ListByAccount(ctx context.Context, accountID string, from, to time.Time, desc bool, limit int) ([]model.Snapshot, error) {
	lo := int64(0)
	if !from.IsZero() {
		lo = from.UnixMilli()
	}
	hi := int64(math.MaxInt64)
	if !to.IsZero() {
		hi = to.UnixMilli()
	}

	var snapshots []model.Snapshot
	err := r.view(func(tx *store.Tx) error {
		ids, err := tx.ScanRange(store.TableSnapshots, store.IndexSnapshotCaptured, accountID, lo, hi, desc, limit)
		if err != nil {
			return err
		}
		snapshots, err = fetchAll[model.Snapshot](tx, store.TableSnapshots, ids)
		return err
	})
	return snapshots, err
}

func (r *snapshotRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	var count int64
	err := r.update(func(tx *store.Tx) error {
		var stale []model.Snapshot
		err := tx.ForEach(store.TableSnapshots, func(key string, value []byte) error {
			var snapshot model.Snapshot
			if err := json.Unmarshal(value, &snapshot); err != nil {
				return fmt.Errorf("decode snapshot record: %w", err)
			}
			if snapshot.CapturedAt.Before(cutoff) {
				stale = append(stale, snapshot)
			}
			return nil
		})
		if err != nil {
			return err
		}
		for _, snapshot := range stale {
			if err := r.deleteOne(tx, &snapshot); err != nil {
				return err
			}
			count++
		}
		return nil
	})
	return count, err
}

func (r *snapshotRepo) Delete(ctx context.Context, id string) error {
	return r.update(func(tx *store.Tx) error {
		snapshot, err := getRecord[model.Snapshot](tx, store.TableSnapshots, id)
		if err != nil {
			return err
		}
		if snapshot == nil {
			return nil
		}
		return r.deleteOne(tx, snapshot)
	})
}

func (r *snapshotRepo) deleteOne(tx *store.Tx, snapshot *model.Snapshot) error {
	key := string(store.CompoundKey(snapshot.AccountID, snapshot.CapturedAt.UnixMilli()))
	if err := tx.RemoveIndex(store.TableSnapshots, store.IndexSnapshotCaptured, key, snapshot.ID); err != nil {
		return err
	}
	return tx.Delete(store.TableSnapshots, snapshot.ID)
}

func (r *snapshotRepo) DeleteByAccount(ctx context.Context, accountID string) (int, error) {
	count := 0
	err := r.update(func(tx *store.Tx) error {
		ids, err := tx.ScanIndexPrefix(store.TableSnapshots, store.IndexSnapshotCaptured, store.IndexKey(accountID, ""))
		if err != nil {
			return err
		}
		if err := tx.DeleteIndexByOwner(store.TableSnapshots, store.IndexSnapshotCaptured, accountID); err != nil {
			return err
		}
		for _, id := range ids {
			if err := tx.Delete(store.TableSnapshots, id); err != nil {
				return err
			}
			count++
		}
		return nil
	})
	return count, err
}

func (r *snapshotRepo) CountByAccount(ctx context.Context, accountID string) (int, error) {
	var count int
	err := r.view(func(tx *store.Tx) error {
		ids, err := tx.ScanIndexPrefix(store.TableSnapshots, store.IndexSnapshotCaptured, store.IndexKey(accountID, ""))
		if err != nil {
			return err
		}
		count = len(ids)
		return nil
	})
	return count, err
}
