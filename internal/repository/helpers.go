package repository

import (
	"encoding/json"
	"fmt"

	"github.com/heliawallet/vault-server-go/internal/store"
)

// runner routes repository operations either through the shared store or
// through a caller-supplied transaction, so multi-table cascades can span
// several repositories atomically. Mirrors the WithTx pattern on every
// repository interface.
type runner struct {
	st *store.Store
	tx *store.Tx
}

func (r runner) view(fn func(*store.Tx) error) error {
	if r.tx != nil {
		return fn(r.tx)
	}
	return r.st.View(fn)
}

func (r runner) update(fn func(*store.Tx) error) error {
	if r.tx != nil {
		return fn(r.tx)
	}
	return r.st.Update(fn)
}

// getRecord loads and decodes one record; a missing key yields (nil, nil),
// matching the Find* contract where absence is not an error.
func getRecord[T any](tx *store.Tx, table, key string) (*T, error) {
	raw, err := tx.Get(table, key)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, nil
	}
	var rec T
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("decode %s record: %w", table, err)
	}
	return &rec, nil
}

func putRecord(tx *store.Tx, table, key string, rec any) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode %s record: %w", table, err)
	}
	return tx.Put(table, key, raw)
}

func insertRecord(tx *store.Tx, table, key string, rec any) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode %s record: %w", table, err)
	}
	return tx.Insert(table, key, raw)
}

// fetchAll resolves a list of primary keys to decoded records, skipping keys
// whose rows vanished between index scan and fetch.
func fetchAll[T any](tx *store.Tx, table string, keys []string) ([]T, error) {
	out := make([]T, 0, len(keys))
	for _, key := range keys {
		rec, err := getRecord[T](tx, table, key)
		if err != nil {
			return nil, err
		}
		if rec != nil {
			out = append(out, *rec)
		}
	}
	return out, nil
}
