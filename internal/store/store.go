// Package store owns the embedded transactional key-value database. Tables
// are bbolt buckets with engine-managed secondary indexes; every mutation
// runs inside a serializable write transaction, so a multi-table cascade is
// atomic by construction.
package store

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"

	"go.etcd.io/bbolt"

	"github.com/heliawallet/vault-server-go/internal/config"
	apperrors "github.com/heliawallet/vault-server-go/internal/errors"
)

// SchemaVersion is bumped whenever a migration is appended.
const SchemaVersion = 1

var (
	metaBucket = []byte("_meta")
	versionKey = []byte("schemaVersion")
)

type Store struct {
	db   *bbolt.DB
	path string
}

// open creates or opens the data file and runs pending migrations in one
// upgrade transaction. Any failure is surfaced as STORE_UNAVAILABLE; there is
// no fallback at this layer.
func open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, apperrors.StoreUnavailable(err)
	}

	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: config.StoreOpenTimeout})
	if err != nil {
		return nil, apperrors.StoreUnavailable(err)
	}

	if err := migrate(db); err != nil {
		_ = db.Close()
		if apperrors.IsAppError(err) {
			return nil, err
		}
		return nil, apperrors.StoreUnavailable(err)
	}

	return &Store{db: db, path: path}, nil
}

// migrate brings the schema to SchemaVersion. Migrations are additive only:
// buckets are created, never dropped. A data file written by a newer build is
// rejected rather than guessed at.
func migrate(db *bbolt.DB) error {
	return db.Update(func(btx *bbolt.Tx) error {
		meta, err := btx.CreateBucketIfNotExists(metaBucket)
		if err != nil {
			return fmt.Errorf("create meta bucket: %w", err)
		}

		stored := uint64(0)
		if raw := meta.Get(versionKey); raw != nil {
			stored = binary.BigEndian.Uint64(raw)
		}

		if stored > SchemaVersion {
			return apperrors.StoreUnavailable(
				fmt.Errorf("data file schema version %d is newer than supported version %d", stored, SchemaVersion))
		}
		if stored == SchemaVersion {
			return nil
		}

		for v := stored + 1; v <= SchemaVersion; v++ {
			if err := migrations[v-1](btx); err != nil {
				return fmt.Errorf("migration to version %d: %w", v, err)
			}
		}

		buf := make([]byte, 8)
		binary.BigEndian.PutUint64(buf, SchemaVersion)
		return meta.Put(versionKey, buf)
	})
}

// migrations[i] upgrades the schema from version i to i+1.
var migrations = []func(*bbolt.Tx) error{
	migrateV1,
}

func migrateV1(btx *bbolt.Tx) error {
	for _, table := range Tables {
		if _, err := btx.CreateBucketIfNotExists([]byte(table.Name)); err != nil {
			return fmt.Errorf("create table %s: %w", table.Name, err)
		}
		for _, idx := range table.Indexes {
			if _, err := btx.CreateBucketIfNotExists(indexBucketName(table.Name, idx.Name)); err != nil {
				return fmt.Errorf("create index %s.%s: %w", table.Name, idx.Name, err)
			}
		}
	}
	return nil
}

func indexBucketName(table, index string) []byte {
	return []byte("idx:" + table + ":" + index)
}

// View runs fn in a read-only transaction. Independent reads may run
// concurrently; bbolt serializes them against at most one writer.
func (s *Store) View(fn func(*Tx) error) error {
	return s.db.View(func(btx *bbolt.Tx) error {
		return fn(&Tx{btx: btx})
	})
}

// Update runs fn in the single write transaction. Everything fn touches,
// across any number of tables, commits or rolls back as one unit.
func (s *Store) Update(fn func(*Tx) error) error {
	return s.db.Update(func(btx *bbolt.Tx) error {
		return fn(&Tx{btx: btx, writable: true})
	})
}

func (s *Store) Path() string {
	return s.path
}

func (s *Store) Close() error {
	return s.db.Close()
}
