package generation

import (
	"fmt"
	"strings"

	"github.com/futig/nelson-backend/internal/entity"
)

const (
	contextSeparator = "\n\n---\n\n"
	truncationMarker = " [...]"
)

// Assembler renders retrieved chunks into the grounding block of the prompt.
type Assembler struct {
	corpus entity.Corpus
	budget int
}

// NewAssembler caps the block at budget characters; budget <= 0 disables the cap.
func NewAssembler(corpus entity.Corpus, budget int) *Assembler {
	return &Assembler{corpus: corpus, budget: budget}
}

// WithBudget returns an assembler sharing the corpus with a different cap.
func (a *Assembler) WithBudget(budget int) *Assembler {
	return &Assembler{corpus: a.corpus, budget: budget}
}

// Assemble keeps retrieval order. Chunks that would push the block past the
// budget are dropped whole, except the first, which is truncated to fit.
// The chunks actually rendered are returned alongside the text.
func (a *Assembler) Assemble(chunks []entity.ScoredChunk) (string, []entity.ScoredChunk) {
	var b strings.Builder
	included := make([]entity.ScoredChunk, 0, len(chunks))

	for i, sc := range chunks {
		header := a.Header(i+1, &sc.Chunk)
		block := header + sc.Chunk.Content + contextSeparator

		if a.budget > 0 && b.Len()+len(block) > a.budget {
			if i > 0 {
				break
			}
			room := a.budget - len(header) - len(contextSeparator) - len(truncationMarker)
			if room <= 0 {
				break
			}
			block = header + truncate(sc.Chunk.Content, room) + truncationMarker + contextSeparator
		}

		b.WriteString(block)
		included = append(included, sc)
	}

	return b.String(), included
}

// Header is the provenance line placed above a chunk.
func (a *Assembler) Header(n int, c *entity.Chunk) string {
	parts := []string{fmt.Sprintf("Chapter: %s", c.ChapterTitle)}
	if s := c.Section(); s != "" {
		parts = append(parts, fmt.Sprintf("Section: %s", s))
	}
	if s := c.Subsection(); s != "" {
		parts = append(parts, fmt.Sprintf("Subsection: %s", s))
	}
	parts = append(parts, fmt.Sprintf("%s, %s", a.corpus.Name, a.corpus.Edition))
	if c.PageNumber != nil {
		parts = append(parts, fmt.Sprintf("Page %d", *c.PageNumber))
	}
	return fmt.Sprintf("[Source %d] %s\n", n, strings.Join(parts, " | "))
}

// truncate cuts s to at most n bytes on a rune boundary.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !isRuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}
