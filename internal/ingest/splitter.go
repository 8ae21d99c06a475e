package ingest

import (
	"strings"
	"unicode/utf8"
)

// defaultSeparators order structure-preserving breaks first: paragraphs,
// then lines, then sentence ends, then words, then single characters.
var defaultSeparators = []string{"\n\n", "\n", ". ", "? ", "! ", " ", ""}

// Splitter cuts text into overlapping chunks, preferring to break at the
// most structural separator available. Separators stay attached to the
// text that precedes them so sentences keep their punctuation.
type Splitter struct {
	chunkSize  int
	overlap    int
	separators []string
}

// NewSplitter builds a splitter. chunkSize and overlap are rune counts;
// overlap must be smaller than chunkSize.
func NewSplitter(chunkSize, overlap int) *Splitter {
	if chunkSize <= 0 {
		chunkSize = 1000
	}
	if overlap < 0 || overlap >= chunkSize {
		overlap = chunkSize / 10
	}
	return &Splitter{
		chunkSize:  chunkSize,
		overlap:    overlap,
		separators: defaultSeparators,
	}
}

// Split returns the chunks of text. Empty and whitespace-only chunks are
// dropped. The output is deterministic for identical input.
func (s *Splitter) Split(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	return s.split(text, s.separators)
}

func (s *Splitter) split(text string, separators []string) []string {
	sep := separators[len(separators)-1]
	var rest []string
	for i, candidate := range separators {
		if candidate == "" || strings.Contains(text, candidate) {
			sep = candidate
			rest = separators[i+1:]
			break
		}
	}

	pieces := splitKeepSeparator(text, sep)

	var (
		chunks []string
		fits   []string
	)
	for _, piece := range pieces {
		if utf8.RuneCountInString(piece) <= s.chunkSize {
			fits = append(fits, piece)
			continue
		}
		if len(fits) > 0 {
			chunks = append(chunks, s.merge(fits)...)
			fits = nil
		}
		// Oversized piece; recurse with the finer separators.
		chunks = append(chunks, s.split(piece, rest)...)
	}
	if len(fits) > 0 {
		chunks = append(chunks, s.merge(fits)...)
	}
	return chunks
}

// splitKeepSeparator splits text keeping sep at the end of each piece.
// The empty separator splits into single runes.
func splitKeepSeparator(text, sep string) []string {
	if sep == "" {
		runes := []rune(text)
		out := make([]string, len(runes))
		for i, r := range runes {
			out[i] = string(r)
		}
		return out
	}
	parts := strings.SplitAfter(text, sep)
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// merge packs pieces into chunks up to chunkSize, carrying up to overlap
// runes of trailing pieces into the next chunk.
func (s *Splitter) merge(pieces []string) []string {
	var (
		chunks  []string
		current []string
		total   int
	)
	for _, piece := range pieces {
		n := utf8.RuneCountInString(piece)
		if total+n > s.chunkSize && total > 0 {
			if chunk := strings.TrimSpace(strings.Join(current, "")); chunk != "" {
				chunks = append(chunks, chunk)
			}
			for total > s.overlap || (total+n > s.chunkSize && total > 0) {
				total -= utf8.RuneCountInString(current[0])
				current = current[1:]
			}
		}
		current = append(current, piece)
		total += n
	}
	if chunk := strings.TrimSpace(strings.Join(current, "")); chunk != "" {
		chunks = append(chunks, chunk)
	}
	return chunks
}
