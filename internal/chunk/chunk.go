// Package chunk splits classified segments into model-sized text chunks:
// one chunk per list item, one per table row, and word-budgeted paragraphs
// for prose.
package chunk

import (
	"regexp"
	"strings"

	"github.com/clausewise/clausewise/internal/segment"
)

// DefaultMaxWords is the word budget for a prose chunk.
const DefaultMaxWords = 256

var listItemRe = regexp.MustCompile(`^\s*(\(\w+\)|\d+\.|\*|-)\s+(.*)$`)

// Split applies the per-kind chunking strategy to each segment and returns
// one flat list of chunks in document order. maxWords <= 0 uses
// DefaultMaxWords.
func Split(segments []segment.Segment, maxWords int) []string {
	if maxWords <= 0 {
		maxWords = DefaultMaxWords
	}

	var chunks []string
	for _, seg := range segments {
		switch seg.Kind {
		case segment.KindList:
			chunks = append(chunks, listChunks(seg.Text)...)
		case segment.KindTable:
			chunks = append(chunks, tableChunks(seg.Text)...)
		default:
			chunks = append(chunks, proseChunks(seg.Text, maxWords)...)
		}
	}
	return chunks
}

// listChunks treats each list item as one chunk: a new item starts at each
// marker line, continuation lines fold into the current item, markers are
// stripped.
func listChunks(text string) []string {
	var chunks []string
	current := ""

	flush := func() {
		if trimmed := strings.TrimSpace(current); trimmed != "" {
			chunks = append(chunks, trimmed)
		}
		current = ""
	}

	for _, line := range strings.Split(text, "\n") {
		if m := listItemRe.FindStringSubmatch(line); m != nil {
			flush()
			current = m[2]
			continue
		}
		if trimmed := strings.TrimSpace(line); trimmed != "" && current != "" {
			current += " " + trimmed
		}
	}
	flush()

	return chunks
}

// tableChunks treats each non-empty row as one chunk.
func tableChunks(text string) []string {
	var chunks []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			chunks = append(chunks, line)
		}
	}
	return chunks
}

// proseChunks splits by paragraph, then accumulates sentences under the
// word budget.
func proseChunks(text string, maxWords int) []string {
	var chunks []string

	for _, paragraph := range strings.Split(text, "\n\n") {
		paragraph = strings.TrimSpace(paragraph)
		if paragraph == "" {
			continue
		}

		sentences := strings.Split(paragraph, ". ")
		current := ""
		for _, sentence := range sentences {
			sentence = strings.TrimSpace(sentence)
			if sentence == "" {
				continue
			}
			if !strings.HasSuffix(sentence, ".") {
				sentence += "."
			}
			if wordCount(current)+wordCount(sentence) <= maxWords {
				current += sentence + " "
				continue
			}
			if trimmed := strings.TrimSpace(current); trimmed != "" {
				chunks = append(chunks, trimmed)
			}
			current = sentence + " "
		}
		if trimmed := strings.TrimSpace(current); trimmed != "" {
			chunks = append(chunks, trimmed)
		}
	}

	return chunks
}

func wordCount(s string) int {
	return len(strings.Fields(s))
}
