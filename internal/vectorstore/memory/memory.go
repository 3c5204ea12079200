package memory

import (
	"context"
	"sort"
	"sync"

	"courserag/internal/vectorstore"
)

// Storage is an in-memory store using brute-force cosine similarity over
// L2-normalized vectors. Collections are created lazily on first write.
type Storage struct {
	mu          sync.RWMutex
	collections map[string]*collection
}

type collection struct {
	byKey   map[string]int
	entries []vectorstore.Entry
}

func NewStorage() *Storage {
	return &Storage{collections: make(map[string]*collection)}
}

func (s *Storage) Upsert(_ context.Context, name string, entries []vectorstore.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	col := s.collections[name]
	if col == nil {
		col = &collection{byKey: make(map[string]int)}
		s.collections[name] = col
	}
	for _, e := range entries {
		if i, ok := col.byKey[e.Key]; ok {
			col.entries[i] = e
			continue
		}
		col.byKey[e.Key] = len(col.entries)
		col.entries = append(col.entries, e)
	}
	return nil
}

func (s *Storage) Search(_ context.Context, name string, vector []float32, limit int, filter vectorstore.Filter) ([]vectorstore.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	col := s.collections[name]
	if col == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 5
	}
	matches := make([]vectorstore.Match, 0, limit)
	for _, e := range col.entries {
		if !matchesFilter(e, filter) {
			continue
		}
		matches = append(matches, vectorstore.Match{Entry: e, Score: dot(e.Vector, vector)})
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if limit < len(matches) {
		matches = matches[:limit]
	}
	return matches, nil
}

func (s *Storage) Get(_ context.Context, name, key string) (vectorstore.Entry, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	col := s.collections[name]
	if col == nil {
		return vectorstore.Entry{}, false, nil
	}
	i, ok := col.byKey[key]
	if !ok {
		return vectorstore.Entry{}, false, nil
	}
	return col.entries[i], true, nil
}

func (s *Storage) Keys(_ context.Context, name string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	col := s.collections[name]
	if col == nil {
		return nil, nil
	}
	keys := make([]string, 0, len(col.entries))
	for _, e := range col.entries {
		keys = append(keys, e.Key)
	}
	return keys, nil
}

func (s *Storage) Count(_ context.Context, name string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	col := s.collections[name]
	if col == nil {
		return 0, nil
	}
	return len(col.entries), nil
}

func matchesFilter(e vectorstore.Entry, f vectorstore.Filter) bool {
	if f.CourseTitle != "" {
		title, _ := e.Meta["course_title"].(string)
		if title != f.CourseTitle {
			return false
		}
	}
	if f.LessonNumber != nil {
		n, ok := metaInt(e.Meta, "lesson_number")
		if !ok || n != *f.LessonNumber {
			return false
		}
	}
	return true
}

func metaInt(meta map[string]any, key string) (int, bool) {
	switch v := meta[key].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}

func dot(a, b []float32) float32 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float32
	for i := 0; i < n; i++ {
		sum += a[i] * b[i]
	}
	return sum
}
