package vectorstore

import "context"

// Collection names used by the index. The catalog holds one entry per
// course for name resolution; the content collection holds one entry per
// chunk for passage retrieval.
const (
	CollectionCatalog = "catalog"
	CollectionContent = "content"
)

// Entry is one stored record: an identity key, the embedded display text,
// and a flat metadata map.
type Entry struct {
	Key    string
	Vector []float32
	Text   string
	Meta   map[string]any
}

// Match is an entry returned from similarity search with its score.
type Match struct {
	Entry Entry
	Score float32
}

// Filter restricts content search by metadata equality. Zero values mean
// no restriction.
type Filter struct {
	CourseTitle  string
	LessonNumber *int
}

// Storage persists embedded entries in named collections and supports
// filtered nearest-neighbor search. Writes are append-only upserts keyed
// by Entry.Key; concurrent readers are safe during appends.
type Storage interface {
	Upsert(ctx context.Context, collection string, entries []Entry) error
	Search(ctx context.Context, collection string, vector []float32, limit int, filter Filter) ([]Match, error)
	Get(ctx context.Context, collection, key string) (Entry, bool, error)
	Keys(ctx context.Context, collection string) ([]string, error)
	Count(ctx context.Context, collection string) (int, error)
}
