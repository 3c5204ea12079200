package domain

import (
	"fmt"
	"strconv"
)

// Course is one course transcript in the corpus. Title uniquely identifies
// the course across both index collections.
type Course struct {
	Title      string
	Link       string
	Instructor string
	Lessons    []Lesson
}

// Lesson is a single lesson within a course, immutable once created.
type Lesson struct {
	Number int    `json:"number"`
	Title  string `json:"title"`
	Link   string `json:"link,omitempty"`
}

// CourseChunk is a bounded span of course text, stored and searched
// independently. LessonNumber is nil for text that precedes the first
// lesson. ChunkIndex is zero-based and strictly increasing across the
// whole course, not per lesson.
type CourseChunk struct {
	CourseTitle  string
	LessonNumber *int
	ChunkIndex   int
	Text         string
}

// Key returns the stable identity key used by the content collection.
func (c CourseChunk) Key() string {
	return fmt.Sprintf("%s_%d", c.CourseTitle, c.ChunkIndex)
}

// Citation points at the course/lesson a retrieved passage came from.
type Citation struct {
	CourseTitle  string
	LessonNumber *int
	Link         string
}

// Display formats the citation for end-user output.
func (c Citation) Display() string {
	if c.LessonNumber != nil {
		return c.CourseTitle + " - Lesson " + strconv.Itoa(*c.LessonNumber)
	}
	return c.CourseTitle
}

// SearchResult is a retrieved passage with its similarity score.
type SearchResult struct {
	Text     string
	Score    float32
	Citation Citation
}

// Turn is one user/assistant exchange within a session.
type Turn struct {
	User      string
	Assistant string
}

// Answer is the outcome of one query turn. ToolLoopExceeded marks a
// degraded answer produced after the tool-round budget ran out.
type Answer struct {
	Text             string
	Sources          []Citation
	ToolLoopExceeded bool
}
