package rag

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"courserag/internal/chunker"
	"courserag/internal/docparser"
	"courserag/internal/embedding/hash"
	"courserag/internal/generator"
	"courserag/internal/session"
	"courserag/internal/tools"
	"courserag/internal/vectorstore"
	"courserag/internal/vectorstore/memory"
)

const courseDoc = `Course Title: Intro to Testing
Course Link: https://example.com/testing
Course Instructor: Pat

Lesson 1: Unit Tests
Unit tests verify one piece of behavior. They run fast and isolate failures. Keep them deterministic.

Lesson 2: Integration Tests
Integration tests exercise components together. They catch wiring mistakes.
`

// scriptedModel answers with one tool call, then a text answer.
type scriptedModel struct {
	calls int
}

func (m *scriptedModel) CreateChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	m.calls++
	if m.calls == 1 {
		return openai.ChatCompletionResponse{
			Choices: []openai.ChatCompletionChoice{{
				Message: openai.ChatCompletionMessage{
					Role: openai.ChatMessageRoleAssistant,
					ToolCalls: []openai.ToolCall{{
						ID:   "c1",
						Type: openai.ToolTypeFunction,
						Function: openai.FunctionCall{
							Name:      tools.SearchToolName,
							Arguments: `{"query":"unit tests deterministic"}`,
						},
					}},
				},
			}},
		}, nil
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{
			Message: openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleAssistant,
				Content: "Unit tests verify one piece of behavior.",
			},
		}},
	}, nil
}

func newSystem(t *testing.T, model generator.ChatClient) *System {
	t.Helper()
	log := zap.NewNop().Sugar()
	idx := vectorstore.NewIndex(memory.NewStorage(), hash.NewEmbedder(512), log)
	reg := tools.NewRegistry()
	reg.Register(tools.NewCourseSearchTool(idx))
	reg.Register(tools.NewCourseOutlineTool(idx))
	gen := generator.New(model, log, generator.Config{Model: "test"})
	parser := docparser.New(chunker.NewSentenceChunker(800, 100))
	return NewSystem(parser, idx, reg, gen, session.NewMemoryStore(5), log)
}

func writeDocs(t *testing.T, docs map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range docs {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestAddCourseFolder(t *testing.T) {
	sys := newSystem(t, &scriptedModel{})
	dir := writeDocs(t, map[string]string{
		"testing.txt": courseDoc,
		"notes.md":    "ignored, wrong extension",
	})
	courses, chunks, err := sys.AddCourseFolder(context.Background(), dir)
	if err != nil {
		t.Fatal(err)
	}
	if courses != 1 {
		t.Errorf("courses = %d, want 1", courses)
	}
	if chunks == 0 {
		t.Error("no chunks indexed")
	}
}

func TestIngestionIsIdempotent(t *testing.T) {
	sys := newSystem(t, &scriptedModel{})
	dir := writeDocs(t, map[string]string{"testing.txt": courseDoc})
	ctx := context.Background()

	if _, _, err := sys.AddCourseFolder(ctx, dir); err != nil {
		t.Fatal(err)
	}
	n1, _, _ := sys.Stats(ctx)

	courses, chunks, err := sys.AddCourseFolder(ctx, dir)
	if err != nil {
		t.Fatal(err)
	}
	if courses != 0 || chunks != 0 {
		t.Errorf("second pass added %d courses, %d chunks; want no-op", courses, chunks)
	}
	n2, _, _ := sys.Stats(ctx)
	if n1 != n2 {
		t.Errorf("catalog grew from %d to %d on re-ingestion", n1, n2)
	}
}

func TestIngestionIsolatesBadDocuments(t *testing.T) {
	sys := newSystem(t, &scriptedModel{})
	dir := writeDocs(t, map[string]string{
		"good.txt": courseDoc,
		"bad.txt":  "No header at all.\nJust prose.",
	})
	courses, _, err := sys.AddCourseFolder(context.Background(), dir)
	if err != nil {
		t.Fatalf("one bad file should not fail the pass: %v", err)
	}
	if courses != 1 {
		t.Errorf("courses = %d, want 1", courses)
	}
}

func TestQueryAttachesSourcesAndHistory(t *testing.T) {
	sys := newSystem(t, &scriptedModel{})
	ctx := context.Background()
	dir := writeDocs(t, map[string]string{"testing.txt": courseDoc})
	if _, _, err := sys.AddCourseFolder(ctx, dir); err != nil {
		t.Fatal(err)
	}

	id := sys.NewSession()
	answer, err := sys.Query(ctx, id, "what do unit tests do?")
	if err != nil {
		t.Fatal(err)
	}
	if answer.Text == "" {
		t.Error("empty answer")
	}
	if len(answer.Sources) == 0 {
		t.Fatal("no sources attached")
	}
	if answer.Sources[0].CourseTitle != "Intro to Testing" {
		t.Errorf("source = %+v", answer.Sources[0])
	}

	turns, _ := sys.sessions.History(ctx, id)
	if len(turns) != 1 || turns[0].User != "what do unit tests do?" {
		t.Errorf("history = %+v", turns)
	}
}
