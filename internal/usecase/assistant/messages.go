package assistant

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/futig/nelson-backend/internal/entity"
)

const (
	ConnectivityMessage = "I can't reach the reference database right now. Please check that the search service " +
		"is running and try again in a moment."

	GenerationFailureMessage = "Something went wrong while writing the answer. Please try again. If the problem " +
		"continues, check that the language model service is running and reachable."

	// Progress markers emitted by AskQuestionStreaming, in order.
	ProgressConnecting = "connecting"
	ProgressAnalyzing  = "analyzing"
	ProgressSearching  = "searching"
	ProgressGenerating = "generating"

	excerptRunes = 300
)

// NoResultsMessage is returned when neither vector nor text search found anything.
func NoResultsMessage(corpus entity.Corpus) string {
	return fmt.Sprintf("I couldn't find relevant information in the %s for this question. "+
		"Try rephrasing it with specific clinical terms, for example the condition, symptom, drug or age group "+
		"you are asking about.", corpus.Name)
}

// lexicalAnswer lists the keyword matches without asking the model.
func lexicalAnswer(corpus entity.Corpus, chunks []entity.ScoredChunk) string {
	var b strings.Builder
	fmt.Fprintf(&b, "I couldn't find a close semantic match, but these passages from the %s mention terms "+
		"from your question. Treat them as a starting point rather than a complete answer.\n", corpus.Name)

	for i := range chunks {
		c := &chunks[i].Chunk
		fmt.Fprintf(&b, "\n%d. %s", i+1, c.ChapterTitle)
		if s := c.Section(); s != "" {
			fmt.Fprintf(&b, ", %s", s)
		}
		if c.PageNumber != nil {
			fmt.Fprintf(&b, " (p. %d)", *c.PageNumber)
		}
		fmt.Fprintf(&b, "\n%s\n", excerpt(c.Content, excerptRunes))
	}
	return b.String()
}

func excerpt(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	cut := strings.TrimSpace(string(r[:n]))
	if i := strings.LastIndexByte(cut, ' '); i > n/2 {
		cut = cut[:i]
	}
	return cut + "..."
}
