package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"courserag/internal/vectorstore"
)

const (
	payloadKeyField  = "_key"
	payloadTextField = "_text"
)

// Point IDs are derived deterministically from entry keys so upserts stay
// idempotent across ingestion passes.
var pointNamespace = uuid.MustParse("9a1e7c52-6f0d-4bd1-a5c3-2d8f41f0b7ee")

// Storage is a minimal REST client to Qdrant. Each logical collection
// maps to a Qdrant collection named "<prefix>_<collection>", created on
// first use with cosine distance.
type Storage struct {
	url       string
	apiKey    string
	prefix    string
	dimension int
	client    *http.Client
}

type Config struct {
	URL       string
	APIKey    string
	Prefix    string
	Dimension int
	Timeout   time.Duration
}

func NewStorage(cfg Config) (*Storage, error) {
	if cfg.URL == "" {
		return nil, errors.New("qdrant url required")
	}
	if cfg.Dimension <= 0 {
		return nil, errors.New("qdrant vector dimension required")
	}
	if cfg.Prefix == "" {
		cfg.Prefix = "courserag"
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	s := &Storage{
		url:       cfg.URL,
		apiKey:    cfg.APIKey,
		prefix:    cfg.Prefix,
		dimension: cfg.Dimension,
		client:    &http.Client{Timeout: timeout},
	}
	for _, name := range []string{vectorstore.CollectionCatalog, vectorstore.CollectionContent} {
		if err := s.ensureCollection(name); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Storage) collectionName(name string) string {
	return s.prefix + "_" + name
}

func (s *Storage) ensureCollection(name string) error {
	body := map[string]any{
		"vectors": map[string]any{
			"size":     s.dimension,
			"distance": "Cosine",
		},
	}
	// Qdrant returns 200 for an existing collection with the same schema.
	return s.doJSON(context.Background(), http.MethodPut,
		fmt.Sprintf("%s/collections/%s", s.url, s.collectionName(name)), body, nil)
}

func (s *Storage) Upsert(ctx context.Context, name string, entries []vectorstore.Entry) error {
	if len(entries) == 0 {
		return nil
	}
	points := make([]map[string]any, len(entries))
	for i, e := range entries {
		if len(e.Vector) != s.dimension {
			return fmt.Errorf("entry %q dimension mismatch: expected=%d got=%d", e.Key, s.dimension, len(e.Vector))
		}
		payload := make(map[string]any, len(e.Meta)+2)
		for k, v := range e.Meta {
			payload[k] = v
		}
		payload[payloadKeyField] = e.Key
		payload[payloadTextField] = e.Text
		points[i] = map[string]any{
			"id":      uuid.NewSHA1(pointNamespace, []byte(name+"/"+e.Key)).String(),
			"vector":  e.Vector,
			"payload": payload,
		}
	}
	body := map[string]any{"points": points}
	return s.doJSON(ctx, http.MethodPut,
		fmt.Sprintf("%s/collections/%s/points?wait=true", s.url, s.collectionName(name)), body, nil)
}

func (s *Storage) Search(ctx context.Context, name string, vector []float32, limit int, filter vectorstore.Filter) ([]vectorstore.Match, error) {
	if limit <= 0 {
		limit = 5
	}
	req := map[string]any{
		"vector":       vector,
		"limit":        limit,
		"with_payload": true,
	}
	if f := translateFilter(filter); f != nil {
		req["filter"] = f
	}
	var resp struct {
		Result []struct {
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	err := s.doJSON(ctx, http.MethodPost,
		fmt.Sprintf("%s/collections/%s/points/search", s.url, s.collectionName(name)), req, &resp)
	if err != nil {
		return nil, err
	}
	matches := make([]vectorstore.Match, 0, len(resp.Result))
	for _, r := range resp.Result {
		matches = append(matches, vectorstore.Match{
			Entry: entryFromPayload(r.Payload),
			Score: float32(r.Score),
		})
	}
	return matches, nil
}

func (s *Storage) Get(ctx context.Context, name, key string) (vectorstore.Entry, bool, error) {
	req := map[string]any{
		"limit":        1,
		"with_payload": true,
		"filter": map[string]any{
			"must": []any{matchCondition(payloadKeyField, key)},
		},
	}
	var resp struct {
		Result struct {
			Points []struct {
				Payload map[string]any `json:"payload"`
			} `json:"points"`
		} `json:"result"`
	}
	err := s.doJSON(ctx, http.MethodPost,
		fmt.Sprintf("%s/collections/%s/points/scroll", s.url, s.collectionName(name)), req, &resp)
	if err != nil {
		return vectorstore.Entry{}, false, err
	}
	if len(resp.Result.Points) == 0 {
		return vectorstore.Entry{}, false, nil
	}
	return entryFromPayload(resp.Result.Points[0].Payload), true, nil
}

func (s *Storage) Keys(ctx context.Context, name string) ([]string, error) {
	var keys []string
	var offset any
	for {
		req := map[string]any{
			"limit":        256,
			"with_payload": []string{payloadKeyField},
		}
		if offset != nil {
			req["offset"] = offset
		}
		var resp struct {
			Result struct {
				Points []struct {
					Payload map[string]any `json:"payload"`
				} `json:"points"`
				NextPageOffset any `json:"next_page_offset"`
			} `json:"result"`
		}
		err := s.doJSON(ctx, http.MethodPost,
			fmt.Sprintf("%s/collections/%s/points/scroll", s.url, s.collectionName(name)), req, &resp)
		if err != nil {
			return nil, err
		}
		for _, p := range resp.Result.Points {
			if k, ok := p.Payload[payloadKeyField].(string); ok {
				keys = append(keys, k)
			}
		}
		if resp.Result.NextPageOffset == nil {
			return keys, nil
		}
		offset = resp.Result.NextPageOffset
	}
}

func (s *Storage) Count(ctx context.Context, name string) (int, error) {
	var resp struct {
		Result struct {
			Count int `json:"count"`
		} `json:"result"`
	}
	err := s.doJSON(ctx, http.MethodPost,
		fmt.Sprintf("%s/collections/%s/points/count", s.url, s.collectionName(name)), map[string]any{"exact": true}, &resp)
	if err != nil {
		return 0, err
	}
	return resp.Result.Count, nil
}

func translateFilter(f vectorstore.Filter) map[string]any {
	var must []any
	if f.CourseTitle != "" {
		must = append(must, matchCondition("course_title", f.CourseTitle))
	}
	if f.LessonNumber != nil {
		must = append(must, matchCondition("lesson_number", *f.LessonNumber))
	}
	if must == nil {
		return nil
	}
	return map[string]any{"must": must}
}

func matchCondition(key string, value any) map[string]any {
	return map[string]any{
		"key":   key,
		"match": map[string]any{"value": value},
	}
}

func entryFromPayload(payload map[string]any) vectorstore.Entry {
	e := vectorstore.Entry{Meta: make(map[string]any)}
	for k, v := range payload {
		switch k {
		case payloadKeyField:
			e.Key, _ = v.(string)
		case payloadTextField:
			e.Text, _ = v.(string)
		default:
			e.Meta[k] = v
		}
	}
	return e
}

func (s *Storage) doJSON(ctx context.Context, method, url string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("qdrant %s %s failed: %s", method, url, resp.Status)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
