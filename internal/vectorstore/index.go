package vectorstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"courserag/internal/domain"
	"courserag/internal/embedding"
)

// Index is the dual-collection vector index: a catalog with one entry per
// course for semantic name resolution, and a content collection with one
// entry per chunk for passage retrieval. Keeping them separate lets fuzzy
// course lookup search a one-row-per-course space regardless of chunk
// volume.
type Index struct {
	store            Storage
	embedder         embedding.Embedder
	log              *zap.SugaredLogger
	maxResults       int
	resolveThreshold float32
}

type Option func(*Index)

// WithMaxResults sets the default search limit.
func WithMaxResults(n int) Option {
	return func(i *Index) {
		if n > 0 {
			i.maxResults = n
		}
	}
}

// WithResolveThreshold sets the cosine-similarity acceptance threshold
// for fuzzy course-name resolution.
func WithResolveThreshold(t float32) Option {
	return func(i *Index) { i.resolveThreshold = t }
}

func NewIndex(store Storage, embedder embedding.Embedder, log *zap.SugaredLogger, opts ...Option) *Index {
	idx := &Index{
		store:            store,
		embedder:         embedder,
		log:              log,
		maxResults:       5,
		resolveThreshold: 0.3,
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

// WriteCourse inserts one catalog entry and the course's content entries.
// Content is written first; the catalog entry lands last so a course only
// becomes "known" once its chunks are in place, and a partial write is
// repaired by the next ingestion pass re-upserting under the same keys.
func (i *Index) WriteCourse(ctx context.Context, course domain.Course, chunks []domain.CourseChunk) error {
	if course.Title == "" {
		return fmt.Errorf("course title required")
	}
	if len(chunks) > 0 {
		texts := make([]string, len(chunks))
		for n, ch := range chunks {
			texts[n] = ch.Text
		}
		vectors, err := i.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return fmt.Errorf("embed chunks: %w", err)
		}
		entries := make([]Entry, len(chunks))
		for n, ch := range chunks {
			meta := map[string]any{
				"course_title": ch.CourseTitle,
				"chunk_index":  ch.ChunkIndex,
			}
			if ch.LessonNumber != nil {
				meta["lesson_number"] = *ch.LessonNumber
			}
			entries[n] = Entry{Key: ch.Key(), Vector: vectors[n], Text: ch.Text, Meta: meta}
		}
		if err := i.store.Upsert(ctx, CollectionContent, entries); err != nil {
			return fmt.Errorf("write content: %w", err)
		}
	}

	vec, err := i.embedder.Embed(ctx, course.Title)
	if err != nil {
		return fmt.Errorf("embed course title: %w", err)
	}
	lessonsJSON, err := json.Marshal(course.Lessons)
	if err != nil {
		return err
	}
	entry := Entry{
		Key:    course.Title,
		Vector: vec,
		Text:   course.Title,
		Meta: map[string]any{
			"instructor":   course.Instructor,
			"link":         course.Link,
			"lessons_json": string(lessonsJSON),
			"lesson_count": len(course.Lessons),
		},
	}
	if err := i.store.Upsert(ctx, CollectionCatalog, []Entry{entry}); err != nil {
		return fmt.Errorf("write catalog: %w", err)
	}
	i.log.Debugw("course written", "course", course.Title, "chunks", len(chunks))
	return nil
}

// KnownTitles returns the set of course titles already in the catalog.
func (i *Index) KnownTitles(ctx context.Context) (map[string]struct{}, error) {
	keys, err := i.store.Keys(ctx, CollectionCatalog)
	if err != nil {
		return nil, err
	}
	titles := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		titles[k] = struct{}{}
	}
	return titles, nil
}

// ResolveCourseName resolves an approximate or partial course name typed
// by a user or model to an exact catalog title. The top catalog match is
// accepted only above the similarity threshold.
func (i *Index) ResolveCourseName(ctx context.Context, fuzzy string) (string, error) {
	vec, err := i.embedder.Embed(ctx, fuzzy)
	if err != nil {
		return "", fmt.Errorf("embed course name: %w", err)
	}
	matches, err := i.store.Search(ctx, CollectionCatalog, vec, 1, Filter{})
	if err != nil {
		return "", err
	}
	if len(matches) == 0 || matches[0].Score < i.resolveThreshold {
		return "", fmt.Errorf("%w: %q", domain.ErrCourseNotFound, fuzzy)
	}
	return matches[0].Entry.Key, nil
}

// Search retrieves the most similar content chunks for a query, optionally
// restricted to a course (fuzzy-matched if not an exact title) and lesson.
func (i *Index) Search(ctx context.Context, query, courseName string, lessonNumber *int, limit int) ([]domain.SearchResult, error) {
	filter := Filter{LessonNumber: lessonNumber}
	if courseName != "" {
		title := courseName
		if _, ok, err := i.store.Get(ctx, CollectionCatalog, courseName); err != nil {
			return nil, err
		} else if !ok {
			title, err = i.ResolveCourseName(ctx, courseName)
			if err != nil {
				return nil, err
			}
		}
		filter.CourseTitle = title
	}
	if limit <= 0 {
		limit = i.maxResults
	}
	vec, err := i.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	matches, err := i.store.Search(ctx, CollectionContent, vec, limit, filter)
	if err != nil {
		return nil, err
	}

	lessonLinks := i.lessonLinks(ctx, matches)
	results := make([]domain.SearchResult, 0, len(matches))
	for _, m := range matches {
		title, _ := m.Entry.Meta["course_title"].(string)
		citation := domain.Citation{CourseTitle: title}
		if n, ok := metaInt(m.Entry.Meta, "lesson_number"); ok {
			num := n
			citation.LessonNumber = &num
			citation.Link = lessonLinks[lessonKey{title, n}]
		}
		results = append(results, domain.SearchResult{
			Text:     m.Entry.Text,
			Score:    m.Score,
			Citation: citation,
		})
	}
	return results, nil
}

// Outline returns the stored metadata for an exact course title.
func (i *Index) Outline(ctx context.Context, title string) (domain.Course, error) {
	entry, ok, err := i.store.Get(ctx, CollectionCatalog, title)
	if err != nil {
		return domain.Course{}, err
	}
	if !ok {
		return domain.Course{}, fmt.Errorf("%w: %q", domain.ErrCourseNotFound, title)
	}
	return courseFromEntry(entry), nil
}

// Stats reports the catalog size and its titles, sorted.
func (i *Index) Stats(ctx context.Context) (int, []string, error) {
	keys, err := i.store.Keys(ctx, CollectionCatalog)
	if err != nil {
		return 0, nil, err
	}
	sort.Strings(keys)
	return len(keys), keys, nil
}

type lessonKey struct {
	course string
	number int
}

// lessonLinks resolves lesson links for the courses appearing in matches.
// Lookup failures only cost the link, not the result.
func (i *Index) lessonLinks(ctx context.Context, matches []Match) map[lessonKey]string {
	links := make(map[lessonKey]string)
	seen := make(map[string]bool)
	for _, m := range matches {
		title, _ := m.Entry.Meta["course_title"].(string)
		if title == "" || seen[title] {
			continue
		}
		seen[title] = true
		entry, ok, err := i.store.Get(ctx, CollectionCatalog, title)
		if err != nil || !ok {
			continue
		}
		for _, l := range courseFromEntry(entry).Lessons {
			links[lessonKey{title, l.Number}] = l.Link
		}
	}
	return links
}

func courseFromEntry(entry Entry) domain.Course {
	course := domain.Course{Title: entry.Key}
	course.Instructor, _ = entry.Meta["instructor"].(string)
	course.Link, _ = entry.Meta["link"].(string)
	if raw, ok := entry.Meta["lessons_json"].(string); ok && raw != "" {
		_ = json.Unmarshal([]byte(raw), &course.Lessons)
	}
	return course
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
