package generator

import (
	"context"
	"encoding/json"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"courserag/internal/tools"
)

const systemPrompt = `You are an AI assistant specialized in course materials and educational content, with search and outline tools for course information.

Tool usage:
- Use the content search tool for questions about specific course content or detailed educational materials.
- Use the course outline tool for questions about course structure, lesson lists, or course overviews.
- When users mention abbreviated course names, use the outline tool first to find the full course title, then search with the complete name.
- Synthesize tool results into accurate, fact-based responses. If tools yield no results, state this clearly without offering alternatives.

Response protocol:
- General knowledge questions: answer from existing knowledge without tools.
- Course-specific questions: use the appropriate tools first, then answer.
- Provide direct answers only; no meta-commentary about searching or tools.

All responses must be brief, educational, clear, and example-supported when examples aid understanding.`

const synthesisPrompt = "Please provide a comprehensive answer based on the search results you found above."

// ChatClient is the slice of the OpenAI client the generator needs.
// *openai.Client satisfies it.
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Generator drives the multi-round exchange with the model: it forwards
// tool-call requests to the registry, feeds results back, and bounds the
// number of tool rounds so a tool-happy model cannot loop forever.
type Generator struct {
	client        ChatClient
	log           *zap.SugaredLogger
	model         string
	maxTokens     int
	temperature   float32
	maxToolRounds int
}

type Config struct {
	Model         string
	MaxTokens     int
	Temperature   float32
	MaxToolRounds int
}

// Result carries the final answer text. ToolLoopExceeded marks answers
// degraded by hitting the tool-round budget.
type Result struct {
	Text             string
	ToolLoopExceeded bool
}

func New(client ChatClient, log *zap.SugaredLogger, cfg Config) *Generator {
	if cfg.Model == "" {
		cfg.Model = openai.GPT4oMini
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 800
	}
	if cfg.MaxToolRounds <= 0 {
		cfg.MaxToolRounds = 2
	}
	return &Generator{
		client:        client,
		log:           log,
		model:         cfg.Model,
		maxTokens:     cfg.MaxTokens,
		temperature:   cfg.Temperature,
		maxToolRounds: cfg.MaxToolRounds,
	}
}

// Generate answers a query, letting the model invoke registered tools for
// at most maxToolRounds rounds. Transport errors are returned as-is and
// never retried here; per-tool failures become tool-result entries so the
// model can recover within the turn.
func (g *Generator) Generate(ctx context.Context, query, history string, registry *tools.Registry) (Result, error) {
	system := systemPrompt
	if history != "" {
		system += "\n\nPrevious conversation:\n" + history
	}
	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: system},
		{Role: openai.ChatMessageRoleUser, Content: query},
	}
	var defs []openai.Tool
	if registry != nil {
		defs = registry.Definitions()
	}

	rounds := 0
	for {
		resp, err := g.client.CreateChatCompletion(ctx, g.request(messages, defs))
		if err != nil {
			return Result{}, fmt.Errorf("chat completion: %w", err)
		}
		if len(resp.Choices) == 0 {
			return Result{Text: "No response generated."}, nil
		}
		msg := resp.Choices[0].Message

		if len(msg.ToolCalls) == 0 || registry == nil {
			return Result{Text: msg.Content}, nil
		}
		if rounds >= g.maxToolRounds {
			// Budget spent and the model still wants tools: force a final
			// text answer without tool schemas.
			return g.synthesize(ctx, messages)
		}
		rounds++

		messages = append(messages, msg)
		for _, call := range msg.ToolCalls {
			messages = append(messages, g.executeCall(ctx, registry, call))
		}
	}
}

// executeCall runs one tool call, converting any failure into a
// tool-result entry instead of aborting the turn.
func (g *Generator) executeCall(ctx context.Context, registry *tools.Registry, call openai.ToolCall) openai.ChatCompletionMessage {
	var args map[string]any
	content := ""
	if err := json.Unmarshal([]byte(call.Function.Arguments), &args); err != nil {
		content = fmt.Sprintf("Tool execution error: invalid arguments: %v", err)
	} else {
		text, err := registry.Execute(ctx, call.Function.Name, args)
		if err != nil {
			g.log.Warnw("tool call failed", "tool", call.Function.Name, "error", err)
			content = fmt.Sprintf("Tool execution error: %v", err)
		} else {
			content = text
		}
	}
	return openai.ChatCompletionMessage{
		Role:       openai.ChatMessageRoleTool,
		ToolCallID: call.ID,
		Content:    content,
	}
}

// synthesize makes one last call without tools so the model must emit
// text; the result is flagged as degraded.
func (g *Generator) synthesize(ctx context.Context, messages []openai.ChatCompletionMessage) (Result, error) {
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: synthesisPrompt,
	})
	resp, err := g.client.CreateChatCompletion(ctx, g.request(messages, nil))
	if err != nil {
		return Result{}, fmt.Errorf("final synthesis: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Result{Text: "No response generated.", ToolLoopExceeded: true}, nil
	}
	return Result{Text: resp.Choices[0].Message.Content, ToolLoopExceeded: true}, nil
}

func (g *Generator) request(messages []openai.ChatCompletionMessage, defs []openai.Tool) openai.ChatCompletionRequest {
	return openai.ChatCompletionRequest{
		Model:       g.model,
		Messages:    messages,
		MaxTokens:   g.maxTokens,
		Temperature: g.temperature,
		Tools:       defs,
	}
}
