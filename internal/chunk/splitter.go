// Package chunk splits document text into bounded, possibly overlapping segments.
package chunk

import (
	"fmt"
	"regexp"
	"strings"
)

// Splitting strategies.
const (
	StrategyFixed     = "fixed"
	StrategyParagraph = "paragraph"
)

// blankLine matches paragraph boundaries: a newline, optional whitespace, another newline.
var blankLine = regexp.MustCompile(`\n[ \t\r]*\n`)

// Config controls chunk size, overlap, and strategy.
// Size and Overlap are in characters (runes). Overlap must be smaller than Size so
// that fixed-window splitting always advances.
type Config struct {
	Size     int    `yaml:"size"`
	Overlap  int    `yaml:"overlap"`
	Strategy string `yaml:"strategy"`
}

// Validate rejects configurations that cannot make progress or name an unknown strategy.
func (c *Config) Validate() error {
	if c.Size <= 0 {
		return fmt.Errorf("chunk size must be positive, got %d", c.Size)
	}
	if c.Overlap < 0 {
		return fmt.Errorf("chunk overlap must not be negative, got %d", c.Overlap)
	}
	if c.Overlap >= c.Size {
		return fmt.Errorf("chunk overlap (%d) must be smaller than chunk size (%d)", c.Overlap, c.Size)
	}
	switch c.Strategy {
	case StrategyFixed, StrategyParagraph:
		return nil
	default:
		return fmt.Errorf("unknown chunking strategy: %q (supported: fixed, paragraph)", c.Strategy)
	}
}

// Splitter splits text according to a validated Config. Splitting is a pure
// function of its inputs; a Splitter is safe for concurrent use.
type Splitter struct {
	cfg Config
}

// NewSplitter validates cfg and returns a Splitter.
func NewSplitter(cfg Config) (*Splitter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Splitter{cfg: cfg}, nil
}

// Split returns the chunks of text. Non-empty input yields at least one chunk.
// Chunks may be empty or whitespace-only; callers filter those before use.
func (s *Splitter) Split(text string) []string {
	switch s.cfg.Strategy {
	case StrategyParagraph:
		return s.splitParagraphs(text)
	default:
		return s.splitFixed(text)
	}
}

// splitFixed slides a window of cfg.Size runes; each next window starts
// Overlap runes before the previous end. Overlap < Size guarantees the start
// advances by at least Size-Overlap every step.
func (s *Splitter) splitFixed(text string) []string {
	runes := []rune(text)
	length := len(runes)
	if length == 0 {
		return nil
	}
	var chunks []string
	start := 0
	for start < length {
		end := start + s.cfg.Size
		if end > length {
			end = length
		}
		chunks = append(chunks, string(runes[start:end]))
		if end == length {
			break
		}
		start = end - s.cfg.Overlap
	}
	return chunks
}

// splitParagraphs splits on blank lines and greedily packs paragraphs into
// chunks of at most cfg.Size runes, flushing the buffer before a paragraph
// would push it over the limit. A single paragraph longer than cfg.Size is
// emitted whole; paragraphs are never cut internally.
func (s *Splitter) splitParagraphs(text string) []string {
	paragraphs := blankLine.Split(text, -1)
	var chunks []string
	var buf strings.Builder
	bufLen := 0
	flush := func() {
		if bufLen > 0 {
			chunks = append(chunks, buf.String())
			buf.Reset()
			bufLen = 0
		}
	}
	for _, p := range paragraphs {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		pLen := len([]rune(p))
		// +2 accounts for the "\n\n" joiner when the buffer is non-empty.
		if bufLen > 0 && bufLen+2+pLen > s.cfg.Size {
			flush()
		}
		if bufLen > 0 {
			buf.WriteString("\n\n")
			bufLen += 2
		}
		buf.WriteString(p)
		bufLen += pLen
	}
	flush()
	return chunks
}
