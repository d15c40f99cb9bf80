package domain

import "context"

// CollectionInfo describes a collection and the number of documents it holds.
type CollectionInfo struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
}

// UpdateResult reports how many documents an update touched.
type UpdateResult struct {
	Matched  int64
	Upserted bool
}

// CollectionStore is the document database contract consumed by the core.
// FindOne returns ErrNotFound when nothing matches and InsertOne returns
// ErrDuplicate when the _id is taken.
type CollectionStore interface {
	FindOne(ctx context.Context, collection string, filter Filter) (Document, error)
	Find(ctx context.Context, collection string, filter Filter, limit int) ([]Document, error)
	InsertOne(ctx context.Context, collection string, doc Document) (any, error)
	UpdateOne(ctx context.Context, collection string, filter Filter, set Document, upsert bool) (UpdateResult, error)
	Collections(ctx context.Context) ([]CollectionInfo, error)
	Ping(ctx context.Context) error
}

// AccessGate decides whether a credential may perform mutations.
type AccessGate interface {
	Authorize(ctx context.Context, credential string) bool
}

// IdentityProvider resolves an identity token to the username that owns it.
type IdentityProvider interface {
	Username(ctx context.Context, token string) (string, error)
}
