package chunker

import (
	"fmt"
	"strings"
	"testing"
)

func TestChunkRespectsMaxChars(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 50; i++ {
		fmt.Fprintf(&b, "This is sentence number %d with some padding words. ", i)
	}
	c := NewSentenceChunker(200, 40)
	chunks := c.Chunk(b.String())
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i, ch := range chunks {
		if len(ch) > 200 {
			t.Errorf("chunk %d exceeds max chars: %d", i, len(ch))
		}
	}
}

func TestChunkOversizedSentenceIsOwnChunk(t *testing.T) {
	long := strings.Repeat("word ", 100) + "end."
	text := "Short one. " + long + " Another short one."
	c := NewSentenceChunker(50, 10)
	chunks := c.Chunk(text)
	found := false
	for _, ch := range chunks {
		if len(ch) > 50 {
			if strings.Contains(ch, "word word") && !strings.Contains(ch, "Short one") {
				found = true
			} else {
				t.Errorf("oversized chunk contains more than the long sentence: %q", ch)
			}
		}
	}
	if !found {
		t.Error("long sentence was not kept whole in its own chunk")
	}
}

func TestChunkOverlapSeedsNextChunk(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 20; i++ {
		fmt.Fprintf(&b, "Sentence %02d here. ", i)
	}
	c := NewSentenceChunker(100, 40)
	chunks := c.Chunk(b.String())
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i := 1; i < len(chunks); i++ {
		prevLast := lastSentence(chunks[i-1])
		if !strings.Contains(chunks[i], prevLast) {
			t.Errorf("chunk %d does not carry trailing sentence %q of chunk %d", i, prevLast, i-1)
		}
	}
}

// Concatenating chunks with overlapped sentences removed must reproduce
// the original sentence sequence.
func TestChunkReconstruction(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 30; i++ {
		fmt.Fprintf(&b, "Alpha beta gamma sentence %d. ", i)
	}
	c := NewSentenceChunker(150, 60)
	chunks := c.Chunk(b.String())

	var got []string
	seen := 0
	for _, ch := range chunks {
		sents := c.splitSentences(ch)
		// Skip sentences already emitted by the previous chunk.
		start := 0
		for start < len(sents) && seen > 0 && contains(got, sents[start]) {
			start++
		}
		got = append(got, sents[start:]...)
		seen = len(got)
	}
	want := c.splitSentences(b.String())
	if len(got) != len(want) {
		t.Fatalf("reconstructed %d sentences, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sentence %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestChunkDeterministic(t *testing.T) {
	text := "One sentence. Two sentences! Three sentences? Four. Five is a bit longer than the others."
	c := NewSentenceChunker(40, 15)
	a := c.Chunk(text)
	b := c.Chunk(text)
	if len(a) != len(b) {
		t.Fatalf("non-deterministic chunk count: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("chunk %d differs between runs", i)
		}
	}
}

func TestChunkEmptyAndUnpunctuated(t *testing.T) {
	c := NewSentenceChunker(100, 20)
	if got := c.Chunk("   \n\t "); got != nil {
		t.Errorf("whitespace input produced %d chunks", len(got))
	}
	got := c.Chunk("no terminal punctuation at all")
	if len(got) != 1 || got[0] != "no terminal punctuation at all" {
		t.Errorf("unpunctuated text not kept as single chunk: %#v", got)
	}
}

func lastSentence(chunk string) string {
	c := NewSentenceChunker(1, 0)
	sents := c.splitSentences(chunk)
	if len(sents) == 0 {
		return chunk
	}
	return sents[len(sents)-1]
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
