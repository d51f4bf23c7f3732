// Package bbolt provides a BBolt-backed implementation of store.Store.
//
// Documents live in a single "documents" bucket keyed "collection:key".
// Links are written twice into a "links" bucket — once under a parent-major
// key ("p:collection:parent:child") and once under a child-major key
// ("c:collection:child:parent") — so both lookup directions are cursor
// prefix scans. Keys use ':' as the separator; collection names are fixed
// identifiers and record keys (emails, usernames, group slugs, tokens)
// never contain it.
package bbolt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/slowpost/slowpost/store"
)

var (
	documentsBucket = []byte("documents")
	linksBucket     = []byte("links")
)

// Store implements store.Store backed by a BBolt database file.
type Store struct {
	db *bbolt.DB
}

var _ store.Store = (*Store)(nil)

// New returns a Store backed by the given BBolt database.
func New(db *bbolt.DB) *Store {
	return &Store{db: db}
}

// NewFromFile opens a BBolt database at the given path and returns a Store.
func NewFromFile(path string, options *bbolt.Options) (*Store, error) {
	db, err := bbolt.Open(path, 0600, options)
	if err != nil {
		return nil, fmt.Errorf("opening bbolt db: %w", err)
	}
	return New(db), nil
}

// Close closes the underlying BBolt database.
func (s *Store) Close() error {
	return s.db.Close()
}

func docKey(collection, key string) []byte {
	return []byte(collection + ":" + key)
}

func parentMajorKey(collection, parentKey, childKey string) []byte {
	return []byte("p:" + collection + ":" + parentKey + ":" + childKey)
}

func childMajorKey(collection, childKey, parentKey string) []byte {
	return []byte("c:" + collection + ":" + childKey + ":" + parentKey)
}

func (s *Store) GetDocument(_ context.Context, collection, key string) (store.Data, error) {
	var data store.Data
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(documentsBucket)
		if b == nil {
			return nil
		}
		raw := b.Get(docKey(collection, key))
		if raw == nil {
			return nil
		}
		return json.Unmarshal(raw, &data)
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (s *Store) AddDocument(_ context.Context, collection, key string, data store.Data) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(documentsBucket)
		if err != nil {
			return err
		}
		k := docKey(collection, key)
		if b.Get(k) != nil {
			return fmt.Errorf("%s/%s: %w", collection, key, store.ErrDuplicate)
		}
		raw, err := json.Marshal(data)
		if err != nil {
			return err
		}
		return b.Put(k, raw)
	})
}

func (s *Store) UpdateDocument(_ context.Context, collection, key string, partial store.Data) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(documentsBucket)
		if b == nil {
			return fmt.Errorf("%s/%s: %w", collection, key, store.ErrNotFound)
		}
		k := docKey(collection, key)
		raw := b.Get(k)
		if raw == nil {
			return fmt.Errorf("%s/%s: %w", collection, key, store.ErrNotFound)
		}
		var existing store.Data
		if err := json.Unmarshal(raw, &existing); err != nil {
			return err
		}
		merged, err := json.Marshal(store.Merge(existing, partial))
		if err != nil {
			return err
		}
		return b.Put(k, merged)
	})
}

func (s *Store) GetAllDocuments(_ context.Context, collection string) ([]store.Document, error) {
	var docs []store.Document
	prefix := []byte(collection + ":")
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(documentsBucket)
		if b == nil {
			return nil
		}
		c := b.Cursor()
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			var data store.Data
			if err := json.Unmarshal(v, &data); err != nil {
				return err
			}
			docs = append(docs, store.Document{Key: string(k[len(prefix):]), Data: data})
		}
		return nil
	})
	return docs, err
}

func (s *Store) GetChildLinks(_ context.Context, collection, parentKey string) ([]store.Link, error) {
	var links []store.Link
	prefix := []byte("p:" + collection + ":" + parentKey + ":")
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(linksBucket)
		if b == nil {
			return nil
		}
		c := b.Cursor()
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			var data store.Data
			if err := json.Unmarshal(v, &data); err != nil {
				return err
			}
			links = append(links, store.Link{
				ParentKey: parentKey,
				ChildKey:  string(k[len(prefix):]),
				Data:      data,
			})
		}
		return nil
	})
	return links, err
}

func (s *Store) GetParentLinks(_ context.Context, collection, childKey string) ([]store.Link, error) {
	var links []store.Link
	prefix := []byte("c:" + collection + ":" + childKey + ":")
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(linksBucket)
		if b == nil {
			return nil
		}
		c := b.Cursor()
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			var data store.Data
			if err := json.Unmarshal(v, &data); err != nil {
				return err
			}
			links = append(links, store.Link{
				ParentKey: string(k[len(prefix):]),
				ChildKey:  childKey,
				Data:      data,
			})
		}
		return nil
	})
	return links, err
}

func (s *Store) AddLink(_ context.Context, collection, parentKey, childKey string, data store.Data) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(linksBucket)
		if err != nil {
			return err
		}
		pk := parentMajorKey(collection, parentKey, childKey)
		if b.Get(pk) != nil {
			return fmt.Errorf("%s/%s/%s: %w", collection, parentKey, childKey, store.ErrDuplicate)
		}
		raw, err := json.Marshal(data)
		if err != nil {
			return err
		}
		if err := b.Put(pk, raw); err != nil {
			return err
		}
		return b.Put(childMajorKey(collection, childKey, parentKey), raw)
	})
}

func (s *Store) UpdateLink(_ context.Context, collection, parentKey, childKey string, partial store.Data) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(linksBucket)
		if b == nil {
			return fmt.Errorf("%s/%s/%s: %w", collection, parentKey, childKey, store.ErrNotFound)
		}
		pk := parentMajorKey(collection, parentKey, childKey)
		raw := b.Get(pk)
		if raw == nil {
			return fmt.Errorf("%s/%s/%s: %w", collection, parentKey, childKey, store.ErrNotFound)
		}
		var existing store.Data
		if err := json.Unmarshal(raw, &existing); err != nil {
			return err
		}
		merged, err := json.Marshal(store.Merge(existing, partial))
		if err != nil {
			return err
		}
		if err := b.Put(pk, merged); err != nil {
			return err
		}
		return b.Put(childMajorKey(collection, childKey, parentKey), merged)
	})
}

func (s *Store) DeleteLink(_ context.Context, collection, parentKey, childKey string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(linksBucket)
		if b == nil {
			return nil
		}
		if err := b.Delete(parentMajorKey(collection, parentKey, childKey)); err != nil {
			return err
		}
		return b.Delete(childMajorKey(collection, childKey, parentKey))
	})
}
