package rag

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"courserag/internal/docparser"
	"courserag/internal/domain"
	"courserag/internal/generator"
	"courserag/internal/session"
	"courserag/internal/tools"
	"courserag/internal/vectorstore"
)

// System wires the retrieval pipeline together: document ingestion into
// the vector index, and the tool-mediated query loop against the
// generative model. One instance is constructed at startup and shared by
// all queries; its collaborators are append-only during serving.
type System struct {
	parser   *docparser.Parser
	index    *vectorstore.Index
	registry *tools.Registry
	gen      *generator.Generator
	sessions session.Store
	log      *zap.SugaredLogger
}

func NewSystem(parser *docparser.Parser, index *vectorstore.Index, registry *tools.Registry,
	gen *generator.Generator, sessions session.Store, log *zap.SugaredLogger) *System {
	return &System{
		parser:   parser,
		index:    index,
		registry: registry,
		gen:      gen,
		sessions: sessions,
		log:      log,
	}
}

// AddCourseDocument parses and indexes a single course transcript file.
func (s *System) AddCourseDocument(ctx context.Context, path string) (domain.Course, int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Course{}, 0, err
	}
	course, chunks, err := s.parser.Parse(string(data))
	if err != nil {
		return domain.Course{}, 0, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := s.index.WriteCourse(ctx, course, chunks); err != nil {
		return domain.Course{}, 0, fmt.Errorf("index %s: %w", path, err)
	}
	return course, len(chunks), nil
}

// AddCourseFolder ingests every .txt transcript in dir, skipping courses
// already present in the catalog. Failures are logged per file and do not
// stop the pass; it reports how many courses and chunks were added.
func (s *System) AddCourseFolder(ctx context.Context, dir string) (int, int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, 0, fmt.Errorf("read documents dir: %w", err)
	}
	known, err := s.index.KnownTitles(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("list known titles: %w", err)
	}

	courses, chunks := 0, 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(strings.ToLower(entry.Name()), ".txt") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			s.log.Warnw("skipping unreadable document", "path", path, "error", err)
			continue
		}
		course, courseChunks, err := s.parser.Parse(string(data))
		if err != nil {
			s.log.Warnw("skipping malformed document", "path", path, "error", err)
			continue
		}
		if _, ok := known[course.Title]; ok {
			s.log.Debugw("course already indexed", "course", course.Title)
			continue
		}
		if err := s.index.WriteCourse(ctx, course, courseChunks); err != nil {
			s.log.Warnw("failed to index course", "course", course.Title, "error", err)
			continue
		}
		known[course.Title] = struct{}{}
		courses++
		chunks += len(courseChunks)
		s.log.Infow("course indexed", "course", course.Title, "chunks", len(courseChunks))
	}
	return courses, chunks, nil
}

// NewSession starts a fresh conversation.
func (s *System) NewSession() string { return s.sessions.Create() }

// Query answers one user question within a session. Tool-call citations
// accumulated during the turn are attached to the answer and cleared for
// the next one.
func (s *System) Query(ctx context.Context, sessionID, query string) (domain.Answer, error) {
	turns, err := s.sessions.History(ctx, sessionID)
	if err != nil {
		return domain.Answer{}, fmt.Errorf("load history: %w", err)
	}

	s.registry.ResetSources()
	res, err := s.gen.Generate(ctx, query, session.FormatHistory(turns), s.registry)
	if err != nil {
		return domain.Answer{}, err
	}
	sources := s.registry.LastSources()
	s.registry.ResetSources()

	if err := s.sessions.Append(ctx, sessionID, domain.Turn{User: query, Assistant: res.Text}); err != nil {
		s.log.Warnw("failed to append session turn", "session", sessionID, "error", err)
	}
	return domain.Answer{
		Text:             res.Text,
		Sources:          sources,
		ToolLoopExceeded: res.ToolLoopExceeded,
	}, nil
}

// Stats reports the number of indexed courses and their titles.
func (s *System) Stats(ctx context.Context) (int, []string, error) {
	return s.index.Stats(ctx)
}
