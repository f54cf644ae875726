package store

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"go.etcd.io/bbolt"

	apperrors "github.com/heliawallet/vault-server-go/internal/errors"
)

// keySep separates components inside index keys. Primary keys are UUIDs and
// index components are normalized identifiers, so the separator never occurs
// in them.
const keySep = 0x00

// Tx wraps one bbolt transaction. All operations inside a Tx observe and
// mutate a single consistent view of every table.
type Tx struct {
	btx      *bbolt.Tx
	writable bool
}

func (t *Tx) bucket(name []byte) (*bbolt.Bucket, error) {
	b := t.btx.Bucket(name)
	if b == nil {
		return nil, apperrors.Internal(fmt.Sprintf("bucket %q does not exist", name))
	}
	return b, nil
}

// Insert stores value under key, failing with CONFLICT if the key exists.
func (t *Tx) Insert(table, key string, value []byte) error {
	b, err := t.bucket([]byte(table))
	if err != nil {
		return err
	}
	if b.Get([]byte(key)) != nil {
		return apperrors.Conflict(fmt.Sprintf("%s key already exists", table))
	}
	return b.Put([]byte(key), value)
}

// Put stores value under key, overwriting any existing record.
func (t *Tx) Put(table, key string, value []byte) error {
	b, err := t.bucket([]byte(table))
	if err != nil {
		return err
	}
	return b.Put([]byte(key), value)
}

// Get returns the stored value, or nil when the key is absent.
func (t *Tx) Get(table, key string) ([]byte, error) {
	b, err := t.bucket([]byte(table))
	if err != nil {
		return nil, err
	}
	return b.Get([]byte(key)), nil
}

// Delete removes key from the table. Deleting an absent key is a no-op.
func (t *Tx) Delete(table, key string) error {
	b, err := t.bucket([]byte(table))
	if err != nil {
		return err
	}
	return b.Delete([]byte(key))
}

// ForEach visits every record in the table.
func (t *Tx) ForEach(table string, fn func(key string, value []byte) error) error {
	b, err := t.bucket([]byte(table))
	if err != nil {
		return err
	}
	return b.ForEach(func(k, v []byte) error {
		return fn(string(k), v)
	})
}

// Count returns the number of records in the table.
func (t *Tx) Count(table string) (int, error) {
	n := 0
	err := t.ForEach(table, func(string, []byte) error {
		n++
		return nil
	})
	return n, err
}

// SetUnique claims indexKey for primary in a unique index, failing with
// CONFLICT when another primary already holds it.
func (t *Tx) SetUnique(table, index, indexKey, primary string) error {
	b, err := t.bucket(indexBucketName(table, index))
	if err != nil {
		return err
	}
	if existing := b.Get([]byte(indexKey)); existing != nil && string(existing) != primary {
		return apperrors.Conflict(fmt.Sprintf("%s.%s value already in use", table, index))
	}
	return b.Put([]byte(indexKey), []byte(primary))
}

// DeleteUnique releases indexKey from a unique index.
func (t *Tx) DeleteUnique(table, index, indexKey string) error {
	b, err := t.bucket(indexBucketName(table, index))
	if err != nil {
		return err
	}
	return b.Delete([]byte(indexKey))
}

// LookupUnique returns the primary key holding indexKey, or "" when free.
func (t *Tx) LookupUnique(table, index, indexKey string) (string, error) {
	b, err := t.bucket(indexBucketName(table, index))
	if err != nil {
		return "", err
	}
	return string(b.Get([]byte(indexKey))), nil
}

// AddIndex records primary under indexKey in a multi-valued index.
func (t *Tx) AddIndex(table, index, indexKey, primary string) error {
	b, err := t.bucket(indexBucketName(table, index))
	if err != nil {
		return err
	}
	return b.Put(multiKey([]byte(indexKey), primary), []byte(primary))
}

// RemoveIndex drops one (indexKey, primary) entry from a multi-valued index.
func (t *Tx) RemoveIndex(table, index, indexKey, primary string) error {
	b, err := t.bucket(indexBucketName(table, index))
	if err != nil {
		return err
	}
	return b.Delete(multiKey([]byte(indexKey), primary))
}

// ScanIndex returns the primary keys matching indexKey exactly, in key order.
func (t *Tx) ScanIndex(table, index, indexKey string) ([]string, error) {
	b, err := t.bucket(indexBucketName(table, index))
	if err != nil {
		return nil, err
	}
	prefix := append([]byte(indexKey), keySep)
	var primaries []string
	c := b.Cursor()
	for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
		primaries = append(primaries, string(v))
	}
	return primaries, nil
}

// ScanIndexPrefix returns the primary keys of every index entry whose raw key
// begins with prefix. Works on unique and multi-valued indexes alike; callers
// build prefixes with IndexKey.
func (t *Tx) ScanIndexPrefix(table, index, prefix string) ([]string, error) {
	b, err := t.bucket(indexBucketName(table, index))
	if err != nil {
		return nil, err
	}
	var primaries []string
	c := b.Cursor()
	for k, v := c.Seek([]byte(prefix)); k != nil && bytes.HasPrefix(k, []byte(prefix)); k, v = c.Next() {
		primaries = append(primaries, string(v))
	}
	return primaries, nil
}

// IndexKey joins index key components with the key separator. Owner-scoped
// indexes put the owner id first so prefix scans stay within one owner.
func IndexKey(components ...string) string {
	out := make([]byte, 0, 64)
	for i, comp := range components {
		if i > 0 {
			out = append(out, keySep)
		}
		out = append(out, comp...)
	}
	return string(out)
}

// CompoundKey builds an index key of the form owner | sep | big-endian
// timestamp, so a cursor scan over one owner visits rows in time order.
func CompoundKey(owner string, ts int64) []byte {
	k := make([]byte, 0, len(owner)+9)
	k = append(k, owner...)
	k = append(k, keySep)
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(ts))
	return append(k, buf[:]...)
}

// ScanRange returns the primary keys in a compound index whose leading
// component equals owner and whose timestamp lies in [lo, hi]. Results come
// back oldest-first, or newest-first when desc is set; limit of 0 means
// unbounded.
func (t *Tx) ScanRange(table, index, owner string, lo, hi int64, desc bool, limit int) ([]string, error) {
	b, err := t.bucket(indexBucketName(table, index))
	if err != nil {
		return nil, err
	}

	prefix := append([]byte(owner), keySep)
	start := CompoundKey(owner, lo)
	end := CompoundKey(owner, hi)

	var primaries []string
	c := b.Cursor()
	for k, v := c.Seek(start); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
		// Entry keys carry a primary-key suffix; compare on the compound part.
		if len(k) < len(end) || bytes.Compare(k[:len(end)], end) > 0 {
			break
		}
		primaries = append(primaries, string(v))
	}

	if desc {
		for i, j := 0, len(primaries)-1; i < j; i, j = i+1, j-1 {
			primaries[i], primaries[j] = primaries[j], primaries[i]
		}
	}
	if limit > 0 && len(primaries) > limit {
		primaries = primaries[:limit]
	}
	return primaries, nil
}

// DeleteIndexByOwner removes every entry in a multi-valued or compound index
// whose key begins with owner. Used by cascade deletes.
func (t *Tx) DeleteIndexByOwner(table, index, owner string) error {
	b, err := t.bucket(indexBucketName(table, index))
	if err != nil {
		return err
	}
	prefix := append([]byte(owner), keySep)
	var keys [][]byte
	c := b.Cursor()
	for k, _ := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, _ = c.Next() {
		keys = append(keys, append([]byte(nil), k...))
	}
	for _, k := range keys {
		if err := b.Delete(k); err != nil {
			return err
		}
	}
	return nil
}

func multiKey(indexKey []byte, primary string) []byte {
	k := make([]byte, 0, len(indexKey)+1+len(primary))
	k = append(k, indexKey...)
	k = append(k, keySep)
	return append(k, primary...)
}
