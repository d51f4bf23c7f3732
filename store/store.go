// Package store provides the document/link storage abstraction that all
// Slowpost business logic runs against. A single generic address space of
// (collection, key) documents and (collection, parentKey, childKey) links
// serves profiles, groups, memberships, subscriptions, sessions and auth
// records uniformly, so the same handler code runs unmodified against the
// in-memory, bbolt, or postgres backend.
package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned when an update targets a document or link that
// does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when an insert collides with an existing
// document key or link pair.
var ErrDuplicate = errors.New("duplicate key")

// Data is a JSON object payload. Values survive a JSON round trip, so
// callers should treat numbers as float64 and timestamps as RFC 3339
// strings.
type Data = map[string]any

// Document is a record addressed by (collection, key).
type Document struct {
	Key  string
	Data Data
}

// Link is a directed relationship addressed by (collection, parentKey,
// childKey), carrying its own payload.
type Link struct {
	ParentKey string
	ChildKey  string
	Data      Data
}

// Store defines the storage contract. All operations are per-call atomic;
// there are no cross-operation transactions (check-then-act sequences in
// handlers race, and duplicate inserts surface as ErrDuplicate rather than
// silently doubling).
type Store interface {
	// GetDocument returns the document data, or (nil, nil) when absent.
	GetDocument(ctx context.Context, collection, key string) (Data, error)
	// AddDocument inserts a new document. Returns ErrDuplicate if the key
	// already exists in the collection.
	AddDocument(ctx context.Context, collection, key string, data Data) error
	// UpdateDocument shallow-merges partial into an existing document.
	// Returns ErrNotFound if the document does not exist.
	UpdateDocument(ctx context.Context, collection, key string, partial Data) error
	// GetAllDocuments returns every document in the collection. Full scan;
	// collections are small.
	GetAllDocuments(ctx context.Context, collection string) ([]Document, error)

	// GetChildLinks returns all links with the given parent.
	GetChildLinks(ctx context.Context, collection, parentKey string) ([]Link, error)
	// GetParentLinks returns all links with the given child (inverse index).
	GetParentLinks(ctx context.Context, collection, childKey string) ([]Link, error)
	// AddLink inserts a new link. Returns ErrDuplicate if the
	// (parentKey, childKey) pair already exists in the collection.
	AddLink(ctx context.Context, collection, parentKey, childKey string, data Data) error
	// UpdateLink shallow-merges partial into an existing link. Returns
	// ErrNotFound if the link does not exist.
	UpdateLink(ctx context.Context, collection, parentKey, childKey string, partial Data) error
	// DeleteLink removes a link. Removing an absent link is not an error.
	DeleteLink(ctx context.Context, collection, parentKey, childKey string) error
}

// Merge returns a copy of base with the fields of partial overwriting it.
// The merge is shallow: nested objects are replaced, not merged.
func Merge(base, partial Data) Data {
	out := make(Data, len(base)+len(partial))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range partial {
		out[k] = v
	}
	return out
}

// Clone returns a shallow copy of d. Backends that hold data in process
// memory clone on both read and write so callers cannot alias stored state.
func Clone(d Data) Data {
	if d == nil {
		return nil
	}
	out := make(Data, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}
