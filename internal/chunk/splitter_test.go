package chunk

import (
	"strings"
	"testing"
)

func TestConfig_Validate(t *testing.T) {
	cases := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"valid fixed", Config{Size: 100, Overlap: 10, Strategy: StrategyFixed}, false},
		{"valid paragraph", Config{Size: 500, Overlap: 0, Strategy: StrategyParagraph}, false},
		{"zero size", Config{Size: 0, Overlap: 0, Strategy: StrategyFixed}, true},
		{"negative overlap", Config{Size: 10, Overlap: -1, Strategy: StrategyFixed}, true},
		{"overlap equals size", Config{Size: 10, Overlap: 10, Strategy: StrategyFixed}, true},
		{"overlap exceeds size", Config{Size: 10, Overlap: 20, Strategy: StrategyFixed}, true},
		{"unknown strategy", Config{Size: 10, Overlap: 0, Strategy: "sentence"}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if tc.wantErr && err == nil {
				t.Error("expected error")
			}
			if !tc.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestSplitter_Fixed(t *testing.T) {
	s, err := NewSplitter(Config{Size: 10, Overlap: 3, Strategy: StrategyFixed})
	if err != nil {
		t.Fatal(err)
	}
	text := "abcdefghijklmnopqrstuvwxyz"
	chunks := s.Split(text)
	if len(chunks) == 0 {
		t.Fatal("expected chunks for non-empty input")
	}
	if chunks[0] != "abcdefghij" {
		t.Errorf("first chunk = %q", chunks[0])
	}
	// Window starts advance by size-overlap, so consecutive chunks overlap by 3.
	if !strings.HasPrefix(chunks[1], "hij") {
		t.Errorf("second chunk should start with overlap, got %q", chunks[1])
	}
}

// Every input position must be covered by at least one chunk, and the number of
// chunks must be bounded by len/(size-overlap)+1.
func TestSplitter_FixedCoverageAndTermination(t *testing.T) {
	cfgs := []Config{
		{Size: 10, Overlap: 0, Strategy: StrategyFixed},
		{Size: 10, Overlap: 9, Strategy: StrategyFixed},
		{Size: 7, Overlap: 3, Strategy: StrategyFixed},
		{Size: 100, Overlap: 50, Strategy: StrategyFixed},
	}
	text := strings.Repeat("0123456789", 13) + "xyz"
	for _, cfg := range cfgs {
		s, err := NewSplitter(cfg)
		if err != nil {
			t.Fatal(err)
		}
		chunks := s.Split(text)
		bound := len(text)/(cfg.Size-cfg.Overlap) + 1
		if len(chunks) > bound {
			t.Errorf("size=%d overlap=%d: %d chunks exceeds bound %d", cfg.Size, cfg.Overlap, len(chunks), bound)
		}
		var covered int
		for i, ch := range chunks {
			if i == 0 {
				covered = len(ch)
				continue
			}
			covered += len(ch) - cfg.Overlap
		}
		if covered < len(text) {
			t.Errorf("size=%d overlap=%d: chunks cover %d of %d characters", cfg.Size, cfg.Overlap, covered, len(text))
		}
		last := chunks[len(chunks)-1]
		if !strings.HasSuffix(text, last) {
			t.Errorf("last chunk %q is not a suffix of input", last)
		}
	}
}

func TestSplitter_FixedEmpty(t *testing.T) {
	s, _ := NewSplitter(Config{Size: 10, Overlap: 2, Strategy: StrategyFixed})
	if chunks := s.Split(""); chunks != nil {
		t.Errorf("empty input should return nil, got %v", chunks)
	}
}

func TestSplitter_Paragraph(t *testing.T) {
	s, err := NewSplitter(Config{Size: 50, Overlap: 0, Strategy: StrategyParagraph})
	if err != nil {
		t.Fatal(err)
	}
	// Combined length 26 fits within 50, so both paragraphs pack into one chunk.
	chunks := s.Split("Paragraph A.\n\nParagraph B.")
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d: %v", len(chunks), chunks)
	}
	if chunks[0] != "Paragraph A.\n\nParagraph B." {
		t.Errorf("chunk = %q", chunks[0])
	}
}

func TestSplitter_ParagraphFlushBeforeExceeding(t *testing.T) {
	s, _ := NewSplitter(Config{Size: 20, Overlap: 0, Strategy: StrategyParagraph})
	chunks := s.Split("Paragraph A.\n\nParagraph B.")
	// 12 + 2 + 12 > 20, so the buffer is flushed before appending B.
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d: %v", len(chunks), chunks)
	}
	if chunks[0] != "Paragraph A." || chunks[1] != "Paragraph B." {
		t.Errorf("chunks = %v", chunks)
	}
}

func TestSplitter_ParagraphOversized(t *testing.T) {
	s, _ := NewSplitter(Config{Size: 10, Overlap: 0, Strategy: StrategyParagraph})
	long := strings.Repeat("a", 40)
	chunks := s.Split(long + "\n\nshort")
	// Oversized paragraphs are emitted whole, never cut internally.
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if chunks[0] != long {
		t.Errorf("oversized paragraph should be kept whole")
	}
	if chunks[1] != "short" {
		t.Errorf("second chunk = %q", chunks[1])
	}
}

func TestSplitter_ParagraphBlankVariants(t *testing.T) {
	s, _ := NewSplitter(Config{Size: 100, Overlap: 0, Strategy: StrategyParagraph})
	// Blank lines containing spaces or tabs still separate paragraphs.
	chunks := s.Split("one\n \t\ntwo")
	if len(chunks) != 1 || chunks[0] != "one\n\ntwo" {
		t.Errorf("chunks = %v", chunks)
	}
	if chunks := s.Split("   \n\n  \n"); chunks != nil {
		t.Errorf("whitespace-only input should return nil, got %v", chunks)
	}
}
