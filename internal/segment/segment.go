// Package segment classifies a raw document into prose, list, and table
// segments so each can be chunked with an appropriate strategy.
package segment

import (
	"regexp"
	"strings"
)

// Kind classifies a segment.
type Kind string

const (
	KindProse Kind = "prose"
	KindList  Kind = "list"
	KindTable Kind = "table"
)

// Segment is one classified span of the document.
type Segment struct {
	Kind Kind
	Text string
}

// markerThreshold is the fraction of lines that must match a heuristic for
// a multi-line segment to be classified as list or table.
const markerThreshold = 0.7

var (
	listMarkerRe     = regexp.MustCompile(`^\s*(\(\w+\)|\d+\.|\*|-)\s+`)
	multiSpaceRe     = regexp.MustCompile(`\s{2,}`)
	minPipesPerTable = 2
)

// Split segments a document on blank lines and classifies each block.
// A block is a list when most of its lines start with a list marker
// ("(a)", "1.", "*", "-"), a table when most lines carry pipe delimiters or
// multi-space columns, and prose otherwise.
func Split(text string) []Segment {
	var segments []Segment

	for _, block := range strings.Split(text, "\n\n") {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}

		lines := strings.Split(block, "\n")
		n := len(lines)

		if n > 1 {
			listLines := 0
			pipeLines := 0
			spacedLines := 0
			for _, line := range lines {
				if listMarkerRe.MatchString(line) {
					listLines++
				}
				if strings.Count(line, "|") > minPipesPerTable {
					pipeLines++
				}
				if multiSpaceRe.MatchString(line) {
					spacedLines++
				}
			}

			if float64(listLines)/float64(n) > markerThreshold {
				segments = append(segments, Segment{Kind: KindList, Text: block})
				continue
			}
			if float64(pipeLines)/float64(n) > markerThreshold ||
				float64(spacedLines)/float64(n) > markerThreshold {
				segments = append(segments, Segment{Kind: KindTable, Text: block})
				continue
			}
		}

		segments = append(segments, Segment{Kind: KindProse, Text: block})
	}

	return segments
}
