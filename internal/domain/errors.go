package domain

import "errors"

var (
	// ErrMalformedDocument indicates a course document whose header could
	// not be parsed (missing title line).
	ErrMalformedDocument = errors.New("malformed course document")

	// ErrCourseNotFound indicates fuzzy course-name resolution fell below
	// the acceptance threshold.
	ErrCourseNotFound = errors.New("course not found")

	// ErrUnknownTool indicates a dispatch to a tool name that was never
	// registered.
	ErrUnknownTool = errors.New("unknown tool")
)
