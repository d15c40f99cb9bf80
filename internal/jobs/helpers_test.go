package jobs

import (
	"context"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"ceiba/internal/adapter/store"
	"ceiba/internal/domain"
)

type stubGate struct {
	allow bool
	calls int
}

func (g *stubGate) Authorize(ctx context.Context, credential string) bool {
	g.calls++
	return g.allow
}

// countingStore records every call reaching the wrapped store.
type countingStore struct {
	domain.CollectionStore
	mu     sync.Mutex
	reads  int
	writes int
}

func (s *countingStore) FindOne(ctx context.Context, c string, f domain.Filter) (domain.Document, error) {
	s.mu.Lock()
	s.reads++
	s.mu.Unlock()
	return s.CollectionStore.FindOne(ctx, c, f)
}

func (s *countingStore) Find(ctx context.Context, c string, f domain.Filter, limit int) ([]domain.Document, error) {
	s.mu.Lock()
	s.reads++
	s.mu.Unlock()
	return s.CollectionStore.Find(ctx, c, f, limit)
}

func (s *countingStore) InsertOne(ctx context.Context, c string, d domain.Document) (any, error) {
	s.mu.Lock()
	s.writes++
	s.mu.Unlock()
	return s.CollectionStore.InsertOne(ctx, c, d)
}

func (s *countingStore) UpdateOne(ctx context.Context, c string, f domain.Filter, set domain.Document, upsert bool) (domain.UpdateResult, error) {
	s.mu.Lock()
	s.writes++
	s.mu.Unlock()
	return s.CollectionStore.UpdateOne(ctx, c, f, set, upsert)
}

func (s *countingStore) touched() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reads + s.writes
}

type fixture struct {
	ctrl  *Controller
	store *countingStore
	mem   *store.Memory
	gate  *stubGate
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	mem := store.NewMemory()
	counting := &countingStore{CollectionStore: mem}
	gate := &stubGate{allow: true}
	return &fixture{
		ctrl:  NewController(counting, gate, zerolog.Nop(), opts),
		store: counting,
		mem:   mem,
		gate:  gate,
	}
}

func ptr[T any](v T) *T { return &v }

func attrs(s string) *domain.AttributeMap {
	m := domain.AttributeMap(s)
	return &m
}

func seed(t *testing.T, s domain.CollectionStore, collection string, v any) {
	t.Helper()
	doc, err := domain.ToDocument(v)
	require.NoError(t, err)
	_, err = s.InsertOne(context.Background(), collection, doc)
	require.NoError(t, err)
}

func loadProperty(t *testing.T, s domain.CollectionStore, collection string, id int64) domain.Property {
	t.Helper()
	doc, err := s.FindOne(context.Background(), collection, domain.IDFilter(id))
	require.NoError(t, err)
	var p domain.Property
	require.NoError(t, domain.FromDocument(doc, &p))
	return p
}

func loadJob(t *testing.T, s domain.CollectionStore, collection string, id int64) domain.Job {
	t.Helper()
	doc, err := s.FindOne(context.Background(), domain.JobsCollection(collection), domain.IDFilter(id))
	require.NoError(t, err)
	var j domain.Job
	require.NoError(t, domain.FromDocument(doc, &j))
	return j
}
