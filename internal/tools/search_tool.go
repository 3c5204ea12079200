package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"courserag/internal/domain"
	"courserag/internal/vectorstore"
)

// SearchToolName is the model-facing name of the content search tool.
const SearchToolName = "search_course_content"

// CourseSearchTool retrieves ranked course passages for a free-text query
// with optional course and lesson filters.
type CourseSearchTool struct {
	index *vectorstore.Index
}

func NewCourseSearchTool(index *vectorstore.Index) *CourseSearchTool {
	return &CourseSearchTool{index: index}
}

func (t *CourseSearchTool) Name() string { return SearchToolName }

func (t *CourseSearchTool) Definition() openai.Tool {
	return openai.Tool{
		Type: openai.ToolTypeFunction,
		Function: &openai.FunctionDefinition{
			Name:        SearchToolName,
			Description: "Search course materials with smart course name matching and lesson filtering",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"query": map[string]any{
						"type":        "string",
						"description": "What to search for in the course content",
					},
					"course_name": map[string]any{
						"type":        "string",
						"description": "Course title (partial matches work, e.g. 'MCP', 'Introduction')",
					},
					"lesson_number": map[string]any{
						"type":        "integer",
						"description": "Specific lesson number to search within (e.g. 1, 2, 3)",
					},
				},
				"required": []string{"query"},
			},
		},
	}
}

// Execute runs the search. A failed course resolution is reported as
// result text, not an error, so the model can recover.
func (t *CourseSearchTool) Execute(ctx context.Context, args map[string]any) (string, []domain.Citation, error) {
	query, _ := args["query"].(string)
	courseName, _ := args["course_name"].(string)
	lessonNumber := intArg(args, "lesson_number")

	results, err := t.index.Search(ctx, query, courseName, lessonNumber, 0)
	if err != nil {
		if errors.Is(err, domain.ErrCourseNotFound) {
			return fmt.Sprintf("No course found matching '%s'", courseName), nil, nil
		}
		return "", nil, err
	}
	if len(results) == 0 {
		return noResultsMessage(courseName, lessonNumber), nil, nil
	}
	return formatResults(results)
}

func noResultsMessage(courseName string, lessonNumber *int) string {
	msg := "No relevant content found"
	if courseName != "" {
		msg += fmt.Sprintf(" in course '%s'", courseName)
	}
	if lessonNumber != nil {
		msg += fmt.Sprintf(" in lesson %d", *lessonNumber)
	}
	return msg + "."
}

// formatResults renders passages as "[Course - Lesson N]" headed blocks
// and returns the parallel citation list.
func formatResults(results []domain.SearchResult) (string, []domain.Citation, error) {
	var blocks []string
	citations := make([]domain.Citation, 0, len(results))
	for _, r := range results {
		header := "[" + r.Citation.CourseTitle
		if r.Citation.LessonNumber != nil {
			header += fmt.Sprintf(" - Lesson %d", *r.Citation.LessonNumber)
		}
		header += "]"
		blocks = append(blocks, header+"\n"+r.Text)
		citations = append(citations, r.Citation)
	}
	return strings.Join(blocks, "\n\n"), citations, nil
}

func intArg(args map[string]any, key string) *int {
	switch v := args[key].(type) {
	case int:
		return &v
	case float64:
		n := int(v)
		return &n
	default:
		return nil
	}
}
