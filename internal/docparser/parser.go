package docparser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"courserag/internal/chunker"
	"courserag/internal/domain"
)

// Parser turns a raw course transcript into a Course and its chunks.
//
// Expected layout:
//
//	Course Title: <title>
//	Course Link: <url>
//	Course Instructor: <name>
//
//	Lesson 0: Introduction
//	Lesson Link: <url>
//	<lesson text...>
//
// The title line is mandatory; link and instructor may be absent. Lesson
// sections run until the next lesson header or end of document.
type Parser struct {
	chunker *chunker.SentenceChunker
}

var (
	titleRe      = regexp.MustCompile(`(?i)^Course Title:\s*(.+)$`)
	linkRe       = regexp.MustCompile(`(?i)^Course Link:\s*(.*)$`)
	instructorRe = regexp.MustCompile(`(?i)^Course Instructor:\s*(.*)$`)
	lessonRe     = regexp.MustCompile(`(?i)^Lesson\s+(\d+):\s*(.*)$`)
	lessonLinkRe = regexp.MustCompile(`(?i)^Lesson Link:\s*(.*)$`)
)

func New(c *chunker.SentenceChunker) *Parser {
	return &Parser{chunker: c}
}

// Parse extracts course metadata and per-lesson chunks. Chunk indexes are
// assigned sequentially across the whole course, starting at zero.
func (p *Parser) Parse(raw string) (domain.Course, []domain.CourseChunk, error) {
	lines := strings.Split(raw, "\n")

	course, body, err := parseHeader(lines)
	if err != nil {
		return domain.Course{}, nil, err
	}

	sections := splitLessons(body)
	if len(sections.lessons) == 0 {
		// A lesson-less document is a valid course with no content.
		return course, nil, nil
	}

	var chunks []domain.CourseChunk
	index := 0
	if pre := strings.TrimSpace(sections.preamble); pre != "" {
		for _, text := range p.chunker.Chunk(pre) {
			chunks = append(chunks, domain.CourseChunk{
				CourseTitle: course.Title,
				ChunkIndex:  index,
				Text:        fmt.Sprintf("Course %s content: %s", course.Title, text),
			})
			index++
		}
	}
	for _, sec := range sections.lessons {
		course.Lessons = append(course.Lessons, sec.lesson)
		n := sec.lesson.Number
		for _, text := range p.chunker.Chunk(sec.content) {
			num := n
			chunks = append(chunks, domain.CourseChunk{
				CourseTitle:  course.Title,
				LessonNumber: &num,
				ChunkIndex:   index,
				Text:         fmt.Sprintf("Course %s Lesson %d content: %s", course.Title, n, text),
			})
			index++
		}
	}
	return course, chunks, nil
}

// parseHeader consumes the labeled header lines and returns the remaining
// body. Only the title is mandatory.
func parseHeader(lines []string) (domain.Course, []string, error) {
	var course domain.Course
	i := 0
	for ; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			continue
		}
		switch {
		case titleRe.MatchString(line):
			course.Title = strings.TrimSpace(titleRe.FindStringSubmatch(line)[1])
			continue
		case linkRe.MatchString(line):
			course.Link = strings.TrimSpace(linkRe.FindStringSubmatch(line)[1])
			continue
		case instructorRe.MatchString(line):
			course.Instructor = strings.TrimSpace(instructorRe.FindStringSubmatch(line)[1])
			continue
		}
		break
	}
	if course.Title == "" {
		return domain.Course{}, nil, fmt.Errorf("%w: missing Course Title header", domain.ErrMalformedDocument)
	}
	return course, lines[i:], nil
}

type lessonSection struct {
	lesson  domain.Lesson
	content string
}

type sections struct {
	preamble string
	lessons  []lessonSection
}

// splitLessons groups body lines into the preamble and lesson sections.
func splitLessons(body []string) sections {
	var out sections
	var buf []string
	var current *domain.Lesson

	flush := func() {
		content := strings.TrimSpace(strings.Join(buf, "\n"))
		if current != nil {
			out.lessons = append(out.lessons, lessonSection{lesson: *current, content: content})
		} else {
			out.preamble = content
		}
		buf = buf[:0]
	}

	for i := 0; i < len(body); i++ {
		line := body[i]
		if m := lessonRe.FindStringSubmatch(strings.TrimSpace(line)); m != nil {
			flush()
			number, _ := strconv.Atoi(m[1])
			lesson := domain.Lesson{Number: number, Title: strings.TrimSpace(m[2])}
			// An optional lesson link line directly follows the header.
			if i+1 < len(body) {
				if lm := lessonLinkRe.FindStringSubmatch(strings.TrimSpace(body[i+1])); lm != nil {
					lesson.Link = strings.TrimSpace(lm[1])
					i++
				}
			}
			current = &lesson
			continue
		}
		buf = append(buf, line)
	}
	flush()
	return out
}
