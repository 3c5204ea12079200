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

// OutlineToolName is the model-facing name of the course outline tool.
const OutlineToolName = "get_course_outline"

// CourseOutlineTool returns a course's title, link and full lesson list,
// resolving approximate course names against the catalog first.
type CourseOutlineTool struct {
	index *vectorstore.Index
}

func NewCourseOutlineTool(index *vectorstore.Index) *CourseOutlineTool {
	return &CourseOutlineTool{index: index}
}

func (t *CourseOutlineTool) Name() string { return OutlineToolName }

func (t *CourseOutlineTool) Definition() openai.Tool {
	return openai.Tool{
		Type: openai.ToolTypeFunction,
		Function: &openai.FunctionDefinition{
			Name:        OutlineToolName,
			Description: "Get the outline of a course: title, link, and the complete numbered lesson list",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"course_name": map[string]any{
						"type":        "string",
						"description": "Course title (partial matches work)",
					},
				},
				"required": []string{"course_name"},
			},
		},
	}
}

func (t *CourseOutlineTool) Execute(ctx context.Context, args map[string]any) (string, []domain.Citation, error) {
	courseName, _ := args["course_name"].(string)
	if strings.TrimSpace(courseName) == "" {
		return "A course name is required.", nil, nil
	}

	title, err := t.index.ResolveCourseName(ctx, courseName)
	if err != nil {
		if errors.Is(err, domain.ErrCourseNotFound) {
			return fmt.Sprintf("No course found matching '%s'", courseName), nil, nil
		}
		return "", nil, err
	}
	course, err := t.index.Outline(ctx, title)
	if err != nil {
		return "", nil, err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Course: %s\n", course.Title)
	if course.Link != "" {
		fmt.Fprintf(&b, "Link: %s\n", course.Link)
	}
	if course.Instructor != "" {
		fmt.Fprintf(&b, "Instructor: %s\n", course.Instructor)
	}
	fmt.Fprintf(&b, "Lessons (%d):\n", len(course.Lessons))
	for _, l := range course.Lessons {
		fmt.Fprintf(&b, "  %d. %s\n", l.Number, l.Title)
	}
	citation := domain.Citation{CourseTitle: course.Title, Link: course.Link}
	return b.String(), []domain.Citation{citation}, nil
}
