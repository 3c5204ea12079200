package generator

import (
	"context"
	"errors"
	"strings"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"courserag/internal/domain"
	"courserag/internal/tools"
)

// fakeClient scripts model responses and records requests.
type fakeClient struct {
	responses []openai.ChatCompletionResponse
	errs      []error
	requests  []openai.ChatCompletionRequest
}

func (f *fakeClient) CreateChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	f.requests = append(f.requests, req)
	i := len(f.requests) - 1
	if i < len(f.errs) && f.errs[i] != nil {
		return openai.ChatCompletionResponse{}, f.errs[i]
	}
	if i >= len(f.responses) {
		return textResponse("fallback"), nil
	}
	return f.responses[i], nil
}

func textResponse(text string) openai.ChatCompletionResponse {
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: text}},
		},
	}
}

func toolCallResponse(id, name, args string) openai.ChatCompletionResponse {
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{
				Message: openai.ChatCompletionMessage{
					Role: openai.ChatMessageRoleAssistant,
					ToolCalls: []openai.ToolCall{
						{
							ID:   id,
							Type: openai.ToolTypeFunction,
							Function: openai.FunctionCall{
								Name:      name,
								Arguments: args,
							},
						},
					},
				},
				FinishReason: openai.FinishReasonToolCalls,
			},
		},
	}
}

// echoTool records invocations and returns canned text.
type echoTool struct {
	name  string
	calls int
	fail  bool
}

func (e *echoTool) Name() string { return e.name }

func (e *echoTool) Definition() openai.Tool {
	return openai.Tool{
		Type: openai.ToolTypeFunction,
		Function: &openai.FunctionDefinition{
			Name:       e.name,
			Parameters: map[string]any{"type": "object"},
		},
	}
}

func (e *echoTool) Execute(context.Context, map[string]any) (string, []domain.Citation, error) {
	e.calls++
	if e.fail {
		return "", nil, errors.New("backend unavailable")
	}
	return "tool output", []domain.Citation{{CourseTitle: "C"}}, nil
}

func newGenerator(client ChatClient) *Generator {
	return New(client, zap.NewNop().Sugar(), Config{Model: "test-model", MaxToolRounds: 2})
}

func registryWith(t tools.Tool) *tools.Registry {
	reg := tools.NewRegistry()
	reg.Register(t)
	return reg
}

func TestGenerateDirectAnswer(t *testing.T) {
	client := &fakeClient{responses: []openai.ChatCompletionResponse{textResponse("direct answer")}}
	res, err := newGenerator(client).Generate(context.Background(), "what is Go?", "", registryWith(&echoTool{name: "t"}))
	if err != nil {
		t.Fatal(err)
	}
	if res.Text != "direct answer" || res.ToolLoopExceeded {
		t.Errorf("result = %+v", res)
	}
	if len(client.requests) != 1 {
		t.Errorf("made %d calls", len(client.requests))
	}
	if len(client.requests[0].Tools) != 1 {
		t.Errorf("tool schemas not sent: %d", len(client.requests[0].Tools))
	}
}

func TestGenerateSingleToolRound(t *testing.T) {
	tool := &echoTool{name: "search"}
	client := &fakeClient{responses: []openai.ChatCompletionResponse{
		toolCallResponse("call-1", "search", `{"query":"x"}`),
		textResponse("answer with tool results"),
	}}
	res, err := newGenerator(client).Generate(context.Background(), "q", "", registryWith(tool))
	if err != nil {
		t.Fatal(err)
	}
	if res.Text != "answer with tool results" {
		t.Errorf("text = %q", res.Text)
	}
	if tool.calls != 1 {
		t.Errorf("tool calls = %d", tool.calls)
	}
	// The second request must carry the assistant tool-call message and a
	// matching tool result.
	second := client.requests[1].Messages
	last := second[len(second)-1]
	if last.Role != openai.ChatMessageRoleTool || last.ToolCallID != "call-1" || last.Content != "tool output" {
		t.Errorf("tool result message = %+v", last)
	}
}

func TestGenerateToolLoopBounded(t *testing.T) {
	tool := &echoTool{name: "search"}
	// Model requests tools every round, forever.
	client := &fakeClient{responses: []openai.ChatCompletionResponse{
		toolCallResponse("c1", "search", `{}`),
		toolCallResponse("c2", "search", `{}`),
		toolCallResponse("c3", "search", `{}`),
		textResponse("forced synthesis"),
	}}
	res, err := newGenerator(client).Generate(context.Background(), "q", "", registryWith(tool))
	if err != nil {
		t.Fatal(err)
	}
	if !res.ToolLoopExceeded {
		t.Error("ToolLoopExceeded not flagged")
	}
	if res.Text != "forced synthesis" {
		t.Errorf("text = %q", res.Text)
	}
	// 2 tool rounds + the refused third + one synthesis call.
	if len(client.requests) != 4 {
		t.Errorf("made %d generation calls", len(client.requests))
	}
	if tool.calls != 2 {
		t.Errorf("tool executed %d times, want 2", tool.calls)
	}
	// The synthesis call must not offer tools.
	if len(client.requests[3].Tools) != 0 {
		t.Error("synthesis call carried tool schemas")
	}
}

func TestGenerateToolFailureIsolated(t *testing.T) {
	tool := &echoTool{name: "search", fail: true}
	client := &fakeClient{responses: []openai.ChatCompletionResponse{
		toolCallResponse("c1", "search", `{}`),
		textResponse("apologetic answer"),
	}}
	res, err := newGenerator(client).Generate(context.Background(), "q", "", registryWith(tool))
	if err != nil {
		t.Fatalf("tool failure should not abort the turn: %v", err)
	}
	if res.Text != "apologetic answer" {
		t.Errorf("text = %q", res.Text)
	}
	msgs := client.requests[1].Messages
	last := msgs[len(msgs)-1]
	if !strings.Contains(last.Content, "Tool execution error") {
		t.Errorf("failure not surfaced to model: %q", last.Content)
	}
}

func TestGenerateTransportErrorSurfaced(t *testing.T) {
	boom := errors.New("connection reset")
	client := &fakeClient{errs: []error{boom}}
	_, err := newGenerator(client).Generate(context.Background(), "q", "", nil)
	if !errors.Is(err, boom) {
		t.Errorf("err = %v, want wrapped transport error", err)
	}
	if len(client.requests) != 1 {
		t.Errorf("transport error was retried: %d calls", len(client.requests))
	}
}

func TestGenerateHistoryInSystemPrompt(t *testing.T) {
	client := &fakeClient{responses: []openai.ChatCompletionResponse{textResponse("ok")}}
	_, err := newGenerator(client).Generate(context.Background(), "q", "User: hi\nAssistant: hello", nil)
	if err != nil {
		t.Fatal(err)
	}
	system := client.requests[0].Messages[0]
	if system.Role != openai.ChatMessageRoleSystem || !strings.Contains(system.Content, "Previous conversation:\nUser: hi") {
		t.Errorf("system message = %+v", system)
	}
}
