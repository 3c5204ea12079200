package chunker

import (
	"regexp"
	"strings"
)

// SentenceChunker splits text into sentence-aligned chunks bounded by a
// character budget, seeding each chunk after the first with the trailing
// sentences of the previous one for cross-boundary context.
type SentenceChunker struct {
	maxChars     int
	overlapChars int
	splitter     *regexp.Regexp
}

func NewSentenceChunker(maxChars, overlapChars int) *SentenceChunker {
	if maxChars <= 0 {
		maxChars = 800
	}
	if overlapChars < 0 {
		overlapChars = 0
	}
	return &SentenceChunker{
		maxChars:     maxChars,
		overlapChars: overlapChars,
		splitter:     regexp.MustCompile(`(?m)(?U)([^.!?]+[.!?])`),
	}
}

// Chunk splits text into chunks. Sentences are accumulated greedily until
// the next one would exceed the character budget; a sentence longer than
// the budget becomes a chunk on its own, never split mid-sentence. Output
// is deterministic for identical input and parameters.
func (c *SentenceChunker) Chunk(text string) []string {
	sentences := c.splitSentences(text)
	if len(sentences) == 0 {
		return nil
	}

	var chunks []string
	i := 0
	for i < len(sentences) {
		// The first sentence of a window is always taken, so a sentence
		// longer than the budget forms its own chunk.
		j := i
		size := 0
		for j < len(sentences) {
			cost := len(sentences[j])
			if j > i {
				cost++ // joining space
			}
			if j > i && size+cost > c.maxChars {
				break
			}
			size += cost
			j++
		}
		chunks = append(chunks, strings.Join(sentences[i:j], " "))
		if j >= len(sentences) {
			break
		}
		i = c.nextStart(sentences, i, j)
	}
	return chunks
}

// nextStart steps the window back over whole trailing sentences whose
// combined joined length fits the overlap budget, always advancing by at
// least one sentence.
func (c *SentenceChunker) nextStart(sentences []string, start, end int) int {
	back := 0
	size := 0
	for k := end - 1; k > start; k-- {
		cost := len(sentences[k])
		if back > 0 {
			cost++
		}
		if size+cost > c.overlapChars {
			break
		}
		size += cost
		back++
	}
	next := end - back
	if next <= start {
		next = start + 1
	}
	return next
}

// splitSentences breaks text on terminal punctuation followed by anything.
// Abbreviation-unaware: "Dr. Smith" yields two sentences. Trailing text
// without terminal punctuation is kept as a final sentence.
func (c *SentenceChunker) splitSentences(text string) []string {
	locs := c.splitter.FindAllStringIndex(text, -1)
	var sentences []string
	last := 0
	for _, loc := range locs {
		if s := strings.TrimSpace(text[loc[0]:loc[1]]); s != "" {
			sentences = append(sentences, s)
		}
		last = loc[1]
	}
	if tail := strings.TrimSpace(text[last:]); tail != "" {
		sentences = append(sentences, tail)
	}
	return sentences
}
