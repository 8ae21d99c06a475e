package ingest

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestSplitShortTextIsOneChunk(t *testing.T) {
	s := NewSplitter(1000, 150)
	chunks := s.Split("A single short paragraph about whales.")
	if len(chunks) != 1 {
		t.Fatalf("got %d chunks, want 1", len(chunks))
	}
	if chunks[0] != "A single short paragraph about whales." {
		t.Errorf("chunk = %q", chunks[0])
	}
}

func TestSplitEmptyText(t *testing.T) {
	s := NewSplitter(1000, 150)
	if chunks := s.Split("   \n\n  "); chunks != nil {
		t.Fatalf("whitespace input produced %d chunks", len(chunks))
	}
}

func TestSplitPrefersParagraphBreaks(t *testing.T) {
	s := NewSplitter(50, 10)
	text := "First paragraph, fairly short.\n\nSecond paragraph, also short.\n\nThird one here."
	chunks := s.Split(text)
	if len(chunks) < 2 {
		t.Fatalf("got %d chunks, want at least 2", len(chunks))
	}
	for _, c := range chunks {
		if utf8.RuneCountInString(c) > 50 {
			t.Errorf("chunk exceeds size: %d runes: %q", utf8.RuneCountInString(c), c)
		}
	}
	if !strings.HasPrefix(chunks[0], "First paragraph") {
		t.Errorf("first chunk = %q", chunks[0])
	}
}

func TestSplitSentenceBoundaries(t *testing.T) {
	s := NewSplitter(40, 0)
	text := "One sentence here. Another sentence follows. And a third one closes."
	chunks := s.Split(text)
	for _, c := range chunks {
		if utf8.RuneCountInString(c) > 40 {
			t.Errorf("chunk exceeds size: %q", c)
		}
	}
	// Punctuation stays attached to its sentence.
	if !strings.Contains(chunks[0], "here.") {
		t.Errorf("first chunk lost its sentence end: %q", chunks[0])
	}
}

func TestSplitOverlapCarriesText(t *testing.T) {
	s := NewSplitter(30, 15)
	words := make([]string, 30)
	for i := range words {
		words[i] = "word"
	}
	chunks := s.Split(strings.Join(words, " "))
	if len(chunks) < 2 {
		t.Fatalf("got %d chunks, want at least 2", len(chunks))
	}
	// Consecutive chunks share trailing/leading text.
	for i := 1; i < len(chunks); i++ {
		prev := chunks[i-1]
		tail := prev[len(prev)-4:]
		if !strings.Contains(chunks[i], tail) {
			t.Errorf("chunk %d does not overlap with chunk %d", i, i-1)
		}
	}
}

func TestSplitLongUnbrokenText(t *testing.T) {
	s := NewSplitter(100, 20)
	text := strings.Repeat("x", 950)
	chunks := s.Split(text)
	if len(chunks) < 9 {
		t.Fatalf("got %d chunks for 950 unbroken runes", len(chunks))
	}
	for _, c := range chunks {
		if utf8.RuneCountInString(c) > 100 {
			t.Errorf("chunk exceeds size: %d runes", utf8.RuneCountInString(c))
		}
	}
}

func TestSplitDeterministic(t *testing.T) {
	s := NewSplitter(80, 20)
	text := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 20)
	first := s.Split(text)
	second := s.Split(text)
	if len(first) != len(second) {
		t.Fatalf("chunk counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("chunk %d differs between runs", i)
		}
	}
}
