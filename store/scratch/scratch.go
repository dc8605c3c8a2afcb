/*
Package scratch persists raw import-source bytes (an uploaded CSV, a
scanned PDF's extracted text) between the preview and execute phases of
an import session, using a go.etcd.io/bbolt embedded key-value file.

Why a separate store from store.Store:
  The bytes behind a PENDING import session can be megabytes, are never
  queried, and have no relational structure — a single bucket keyed by
  session id is a better fit than a SQLite BLOB column, and bbolt avoids
  holding the bytes in request-scoped memory across the gap between a
  preview call and the execute call that may follow minutes later, even
  across a process restart.
*/
package scratch

import (
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/pennywise/ledger/id"
)

var sourceBucket = []byte("import_sources")

// Store is a bbolt-backed holding area for import session source bytes.
type Store struct {
	db *bbolt.DB
}

// Open opens (creating if necessary) the bbolt file at path.
func Open(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("scratch: open: %w", err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(sourceBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("scratch: create bucket: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Put stores the raw bytes an import session's parser read, so a later
// Execute call can re-parse (or re-verify) them without the caller
// having to re-upload.
func (s *Store) Put(sessionID id.ID, raw []byte) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(sourceBucket)
		cp := make([]byte, len(raw))
		copy(cp, raw)
		return b.Put([]byte(sessionID.String()), cp)
	})
}

// Get returns the stored bytes for sessionID, or ok=false if the
// session was never recorded or has already been cleared by Delete —
// the caller should treat this as spec.md's PREVIEW_EXPIRED condition.
func (s *Store) Get(sessionID id.ID) (raw []byte, ok bool, err error) {
	err = s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(sourceBucket)
		v := b.Get([]byte(sessionID.String()))
		if v == nil {
			return nil
		}
		raw = make([]byte, len(v))
		copy(raw, v)
		ok = true
		return nil
	})
	return raw, ok, err
}

// Delete clears the source bytes for a session once it reaches
// COMPLETED or FAILED; there is no further use for the raw upload.
func (s *Store) Delete(sessionID id.ID) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(sourceBucket).Delete([]byte(sessionID.String()))
	})
}
