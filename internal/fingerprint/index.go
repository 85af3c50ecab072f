package fingerprint

import (
	"sync"

	"news_ingest/internal/domain"
)

// Index is the in-process mirror of fingerprints already persisted. It is a
// fast path only; the store's unique constraints remain authoritative.
type Index struct {
	mu       sync.Mutex
	urls     map[string]struct{}
	hashes   map[string]struct{}
	order    []domain.Fingerprint
	capacity int
}

// NewIndex creates an index holding at most capacity fingerprints; the oldest
// are evicted first. A non-positive capacity means unbounded.
func NewIndex(capacity int) *Index {
	return &Index{
		urls:     make(map[string]struct{}),
		hashes:   make(map[string]struct{}),
		capacity: capacity,
	}
}

// IsDuplicate reports whether either the url key or the content hash was registered.
func (i *Index) IsDuplicate(fp domain.Fingerprint) bool {
	i.mu.Lock()
	defer i.mu.Unlock()

	if _, ok := i.urls[fp.URLKey]; ok {
		return true
	}
	_, ok := i.hashes[fp.ContentHash]
	return ok
}

// Register records a fingerprint. Call it only after the article was persisted.
func (i *Index) Register(fp domain.Fingerprint) {
	i.mu.Lock()
	defer i.mu.Unlock()

	i.add(fp)
}

// Seed loads fingerprints from the store, typically at start-up.
func (i *Index) Seed(fps []domain.Fingerprint) {
	i.mu.Lock()
	defer i.mu.Unlock()

	for _, fp := range fps {
		i.add(fp)
	}
}

func (i *Index) Len() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return len(i.order)
}

func (i *Index) add(fp domain.Fingerprint) {
	if _, ok := i.urls[fp.URLKey]; ok {
		if _, ok := i.hashes[fp.ContentHash]; ok {
			return
		}
	}
	i.urls[fp.URLKey] = struct{}{}
	i.hashes[fp.ContentHash] = struct{}{}
	i.order = append(i.order, fp)
	i.compact()
}

func (i *Index) compact() {
	if i.capacity <= 0 {
		return
	}
	for len(i.order) > i.capacity {
		oldest := i.order[0]
		i.order = i.order[1:]
		delete(i.urls, oldest.URLKey)
		delete(i.hashes, oldest.ContentHash)
	}
}
