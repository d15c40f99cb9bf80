package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"ceiba/internal/domain"
)

// runContract exercises the behaviour every CollectionStore must share.
func runContract(t *testing.T, newStore func(t *testing.T) domain.CollectionStore) {
	t.Helper()

	t.Run("find one missing", func(t *testing.T) {
		s := newStore(t)
		_, err := s.FindOne(context.Background(), "molecules", domain.IDFilter(int64(1)))
		require.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("insert and find", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		doc := domain.Document{
			"_id":    int64(5),
			"smile":  "CCO",
			"status": "AVAILABLE",
			"property": domain.Document{
				"_id":             int64(7),
				"collection_name": "molecules",
			},
		}
		id, err := s.InsertOne(ctx, "jobs_molecules", doc)
		require.NoError(t, err)
		require.Equal(t, "5", domain.KeyString(id))

		got, err := s.FindOne(ctx, "jobs_molecules", domain.IDFilter(int64(5)))
		require.NoError(t, err)
		require.Equal(t, "CCO", got["smile"])
		v, ok := got.Lookup("property._id")
		require.True(t, ok)
		require.Equal(t, int64(7), v)

		byProperty, err := s.Find(ctx, "jobs_molecules", domain.Filter{"property._id": int64(7)}, 0)
		require.NoError(t, err)
		require.Len(t, byProperty, 1)

		none, err := s.Find(ctx, "jobs_molecules", domain.Filter{"property._id": int64(8)}, 0)
		require.NoError(t, err)
		require.Empty(t, none)
	})

	t.Run("duplicate id", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		_, err := s.InsertOne(ctx, "molecules", domain.Document{"_id": int64(1)})
		require.NoError(t, err)
		_, err = s.InsertOne(ctx, "molecules", domain.Document{"_id": int64(1), "smile": "C"})
		require.True(t, errors.Is(err, domain.ErrDuplicate), "got %v", err)
	})

	t.Run("find orders by id and honours limit", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		for _, id := range []int64{10, 2, 33, 1} {
			_, err := s.InsertOne(ctx, "jobs_c", domain.Document{"_id": id, "status": "AVAILABLE"})
			require.NoError(t, err)
		}
		_, err := s.InsertOne(ctx, "jobs_c", domain.Document{"_id": int64(4), "status": "DONE"})
		require.NoError(t, err)

		docs, err := s.Find(ctx, "jobs_c", domain.Filter{"status": "AVAILABLE"}, 3)
		require.NoError(t, err)
		require.Len(t, docs, 3)
		require.Equal(t, []any{int64(1), int64(2), int64(10)}, []any{docs[0]["_id"], docs[1]["_id"], docs[2]["_id"]})
	})

	t.Run("update sets top level fields", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		_, err := s.InsertOne(ctx, "molecules", domain.Document{"_id": int64(3), "smile": "C", "data": "{\"a\":1}"})
		require.NoError(t, err)

		res, err := s.UpdateOne(ctx, "molecules", domain.IDFilter(int64(3)), domain.Document{"data": "{\"b\":2}", "input": "x"}, false)
		require.NoError(t, err)
		require.Equal(t, int64(1), res.Matched)
		require.False(t, res.Upserted)

		got, err := s.FindOne(ctx, "molecules", domain.IDFilter(int64(3)))
		require.NoError(t, err)
		require.Equal(t, "C", got["smile"])
		require.Equal(t, "{\"b\":2}", got["data"])
		require.Equal(t, "x", got["input"])
	})

	t.Run("update without match", func(t *testing.T) {
		s := newStore(t)
		res, err := s.UpdateOne(context.Background(), "molecules", domain.IDFilter(int64(9)), domain.Document{"smile": "C"}, false)
		require.NoError(t, err)
		require.Zero(t, res.Matched)
		require.False(t, res.Upserted)

		_, err = s.FindOne(context.Background(), "molecules", domain.IDFilter(int64(9)))
		require.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("conditional update", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		_, err := s.InsertOne(ctx, "jobs_c", domain.Document{"_id": int64(1), "status": "RESERVED"})
		require.NoError(t, err)

		res, err := s.UpdateOne(ctx, "jobs_c", domain.Filter{"_id": int64(1), "status": "AVAILABLE"}, domain.Document{"status": "DONE"}, false)
		require.NoError(t, err)
		require.Zero(t, res.Matched)

		res, err = s.UpdateOne(ctx, "jobs_c", domain.Filter{"_id": int64(1), "status": "RESERVED"}, domain.Document{"status": "DONE"}, false)
		require.NoError(t, err)
		require.Equal(t, int64(1), res.Matched)
	})

	t.Run("upsert", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		res, err := s.UpdateOne(ctx, "users", domain.IDFilter("alice"), domain.Document{"username": "alice"}, true)
		require.NoError(t, err)
		require.True(t, res.Upserted)

		res, err = s.UpdateOne(ctx, "users", domain.IDFilter("alice"), domain.Document{"token": "t"}, true)
		require.NoError(t, err)
		require.False(t, res.Upserted)
		require.Equal(t, int64(1), res.Matched)

		got, err := s.FindOne(ctx, "users", domain.IDFilter("alice"))
		require.NoError(t, err)
		require.Equal(t, "alice", got["_id"])
		require.Equal(t, "alice", got["username"])
		require.Equal(t, "t", got["token"])
	})

	t.Run("collections", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		for _, id := range []int64{1, 2} {
			_, err := s.InsertOne(ctx, "molecules", domain.Document{"_id": id})
			require.NoError(t, err)
		}
		_, err := s.InsertOne(ctx, "jobs_molecules", domain.Document{"_id": int64(1)})
		require.NoError(t, err)

		infos, err := s.Collections(ctx)
		require.NoError(t, err)
		sizes := map[string]int64{}
		for _, info := range infos {
			sizes[info.Name] = info.Size
		}
		require.Equal(t, int64(2), sizes["molecules"])
		require.Equal(t, int64(1), sizes["jobs_molecules"])
		require.NoError(t, s.Ping(ctx))
	})
}
