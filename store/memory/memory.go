// Package memory provides a thread-safe in-memory implementation of
// store.Store. Suitable for tests, demos, and single-process use.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/slowpost/slowpost/store"
)

// Store is a map-backed implementation of store.Store. Links are held in a
// forward index (parent → child) and an inverse index (child → parent) so
// both lookup directions are O(1) on the collection.
type Store struct {
	mu sync.RWMutex
	// docs: collection → key → data
	docs map[string]map[string]store.Data
	// links: collection → parentKey → childKey → data
	links map[string]map[string]map[string]store.Data
	// byChild: collection → childKey → set of parentKeys
	byChild map[string]map[string]map[string]struct{}
}

var _ store.Store = (*Store)(nil)

// New creates an empty in-memory Store.
func New() *Store {
	return &Store{
		docs:    make(map[string]map[string]store.Data),
		links:   make(map[string]map[string]map[string]store.Data),
		byChild: make(map[string]map[string]map[string]struct{}),
	}
}

func (s *Store) GetDocument(_ context.Context, collection, key string) (store.Data, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.docs[collection][key]
	if !ok {
		return nil, nil
	}
	return store.Clone(data), nil
}

func (s *Store) AddDocument(_ context.Context, collection, key string, data store.Data) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	coll, ok := s.docs[collection]
	if !ok {
		coll = make(map[string]store.Data)
		s.docs[collection] = coll
	}
	if _, exists := coll[key]; exists {
		return store.ErrDuplicate
	}
	coll[key] = store.Clone(data)
	return nil
}

func (s *Store) UpdateDocument(_ context.Context, collection, key string, partial store.Data) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.docs[collection][key]
	if !ok {
		return store.ErrNotFound
	}
	s.docs[collection][key] = store.Merge(existing, partial)
	return nil
}

func (s *Store) GetAllDocuments(_ context.Context, collection string) ([]store.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	coll := s.docs[collection]
	docs := make([]store.Document, 0, len(coll))
	for key, data := range coll {
		docs = append(docs, store.Document{Key: key, Data: store.Clone(data)})
	}
	// Map iteration order is random; a stable order keeps scans deterministic.
	sort.Slice(docs, func(i, j int) bool { return docs[i].Key < docs[j].Key })
	return docs, nil
}

func (s *Store) GetChildLinks(_ context.Context, collection, parentKey string) ([]store.Link, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	children := s.links[collection][parentKey]
	links := make([]store.Link, 0, len(children))
	for childKey, data := range children {
		links = append(links, store.Link{ParentKey: parentKey, ChildKey: childKey, Data: store.Clone(data)})
	}
	sort.Slice(links, func(i, j int) bool { return links[i].ChildKey < links[j].ChildKey })
	return links, nil
}

func (s *Store) GetParentLinks(_ context.Context, collection, childKey string) ([]store.Link, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	parents := s.byChild[collection][childKey]
	links := make([]store.Link, 0, len(parents))
	for parentKey := range parents {
		data := s.links[collection][parentKey][childKey]
		links = append(links, store.Link{ParentKey: parentKey, ChildKey: childKey, Data: store.Clone(data)})
	}
	sort.Slice(links, func(i, j int) bool { return links[i].ParentKey < links[j].ParentKey })
	return links, nil
}

func (s *Store) AddLink(_ context.Context, collection, parentKey, childKey string, data store.Data) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	coll, ok := s.links[collection]
	if !ok {
		coll = make(map[string]map[string]store.Data)
		s.links[collection] = coll
	}
	children, ok := coll[parentKey]
	if !ok {
		children = make(map[string]store.Data)
		coll[parentKey] = children
	}
	if _, exists := children[childKey]; exists {
		return store.ErrDuplicate
	}
	children[childKey] = store.Clone(data)

	inv, ok := s.byChild[collection]
	if !ok {
		inv = make(map[string]map[string]struct{})
		s.byChild[collection] = inv
	}
	parents, ok := inv[childKey]
	if !ok {
		parents = make(map[string]struct{})
		inv[childKey] = parents
	}
	parents[parentKey] = struct{}{}
	return nil
}

func (s *Store) UpdateLink(_ context.Context, collection, parentKey, childKey string, partial store.Data) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.links[collection][parentKey][childKey]
	if !ok {
		return store.ErrNotFound
	}
	s.links[collection][parentKey][childKey] = store.Merge(existing, partial)
	return nil
}

func (s *Store) DeleteLink(_ context.Context, collection, parentKey, childKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	children, ok := s.links[collection][parentKey]
	if !ok {
		return nil
	}
	if _, exists := children[childKey]; !exists {
		return nil
	}
	delete(children, childKey)
	if parents, ok := s.byChild[collection][childKey]; ok {
		delete(parents, parentKey)
	}
	return nil
}
