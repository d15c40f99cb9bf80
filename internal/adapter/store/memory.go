package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"ceiba/internal/domain"
)

// Memory is a CollectionStore kept in process memory. It backs tests and the
// "memory" driver; every instance is independent.
type Memory struct {
	mu          sync.RWMutex
	collections map[string]map[string]domain.Document
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{collections: make(map[string]map[string]domain.Document)}
}

var _ domain.CollectionStore = (*Memory)(nil)

// FindOne returns a copy of the first document matching filter.
func (m *Memory) FindOne(ctx context.Context, collection string, filter domain.Filter) (domain.Document, error) {
	docs, err := m.Find(ctx, collection, filter, 1)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, domain.ErrNotFound
	}
	return docs[0], nil
}

// Find returns copies of the matching documents ordered by key. A limit <= 0 means no limit.
func (m *Memory) Find(ctx context.Context, collection string, filter domain.Filter, limit int) ([]domain.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	coll := m.collections[collection]
	if id, ok := filter[domain.IDField]; ok {
		doc, found := coll[domain.KeyString(id)]
		if !found || !filter.Matches(doc) {
			return nil, nil
		}
		return []domain.Document{doc.Clone()}, nil
	}

	keys := make([]string, 0, len(coll))
	for k := range coll {
		keys = append(keys, k)
	}
	sortKeys(keys)

	var out []domain.Document
	for _, k := range keys {
		doc := coll[k]
		if !filter.Matches(doc) {
			continue
		}
		out = append(out, doc.Clone())
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// InsertOne stores a copy of doc. A missing _id is generated.
func (m *Memory) InsertOne(ctx context.Context, collection string, doc domain.Document) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	doc = doc.Clone()
	if doc == nil {
		doc = domain.Document{}
	}
	id, ok := doc[domain.IDField]
	if !ok || id == nil {
		id = uuid.NewString()
		doc[domain.IDField] = id
	}
	key := domain.KeyString(id)

	m.mu.Lock()
	defer m.mu.Unlock()
	coll, ok := m.collections[collection]
	if !ok {
		coll = make(map[string]domain.Document)
		m.collections[collection] = coll
	}
	if _, exists := coll[key]; exists {
		return nil, fmt.Errorf("insert %s into %s: %w", key, collection, domain.ErrDuplicate)
	}
	coll[key] = doc
	return id, nil
}

// UpdateOne sets the top-level fields of set on the first document matching
// filter. With upsert a missing document is created from the _id of the filter.
func (m *Memory) UpdateOne(ctx context.Context, collection string, filter domain.Filter, set domain.Document, upsert bool) (domain.UpdateResult, error) {
	if err := ctx.Err(); err != nil {
		return domain.UpdateResult{}, err
	}
	set = set.Clone()

	m.mu.Lock()
	defer m.mu.Unlock()
	coll, ok := m.collections[collection]
	if !ok {
		coll = make(map[string]domain.Document)
		m.collections[collection] = coll
	}

	for _, k := range matchingKeys(coll, filter) {
		doc := coll[k]
		for field, v := range set {
			if field == domain.IDField {
				continue
			}
			doc[field] = v
		}
		return domain.UpdateResult{Matched: 1}, nil
	}

	if !upsert {
		return domain.UpdateResult{}, nil
	}
	id, ok := filter[domain.IDField]
	if !ok {
		return domain.UpdateResult{}, fmt.Errorf("upsert into %s requires an _id filter: %w", collection, domain.ErrInvalidInput)
	}
	doc := domain.Document{}
	for path, v := range filter {
		if !strings.Contains(path, ".") {
			doc[path] = domain.Normalize(v)
		}
	}
	for field, v := range set {
		doc[field] = v
	}
	coll[domain.KeyString(id)] = doc
	return domain.UpdateResult{Upserted: true}, nil
}

// Collections lists the collections holding at least one document.
func (m *Memory) Collections(ctx context.Context) ([]domain.CollectionInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.CollectionInfo, 0, len(m.collections))
	for name, coll := range m.collections {
		if len(coll) == 0 {
			continue
		}
		out = append(out, domain.CollectionInfo{Name: name, Size: int64(len(coll))})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Ping always succeeds.
func (m *Memory) Ping(ctx context.Context) error {
	return ctx.Err()
}

func matchingKeys(coll map[string]domain.Document, filter domain.Filter) []string {
	if id, ok := filter[domain.IDField]; ok {
		key := domain.KeyString(id)
		if doc, found := coll[key]; found && filter.Matches(doc) {
			return []string{key}
		}
		return nil
	}
	keys := make([]string, 0, len(coll))
	for k, doc := range coll {
		if filter.Matches(doc) {
			keys = append(keys, k)
		}
	}
	sortKeys(keys)
	return keys
}

// sortKeys orders numeric keys numerically and the rest lexically after them.
func sortKeys(keys []string) {
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if len(a) != len(b) && isDigits(a) && isDigits(b) {
			return len(a) < len(b)
		}
		return a < b
	})
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
