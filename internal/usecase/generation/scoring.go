package generation

import (
	"strings"
	"unicode/utf8"

	"github.com/futig/nelson-backend/internal/entity"
)

const (
	highConfidenceMinDocs     = 3
	mediumConfidenceMinDocs   = 1
	mediumConfidenceMinLength = 200
)

// Confidence is a coarse heuristic, not a calibrated probability:
// high when at least three documents were retrieved and the answer names
// the corpus, medium when at least one was retrieved and the answer is
// longer than 200 characters, low otherwise.
func Confidence(retrieved int, content string, corpus entity.Corpus) entity.Confidence {
	if retrieved >= highConfidenceMinDocs && mentionsCorpus(content, corpus) {
		return entity.ConfidenceHigh
	}
	if retrieved >= mediumConfidenceMinDocs && utf8.RuneCountInString(content) > mediumConfidenceMinLength {
		return entity.ConfidenceMedium
	}
	return entity.ConfidenceLow
}

func mentionsCorpus(content string, corpus entity.Corpus) bool {
	lc := strings.ToLower(content)
	for _, name := range []string{corpus.ShortName, corpus.Name} {
		if name != "" && strings.Contains(lc, strings.ToLower(name)) {
			return true
		}
	}
	return false
}

// Citations emits one citation per chunk placed in the context, in
// retrieval order. Whether the answer used a chunk is not checked.
func Citations(chunks []entity.ScoredChunk, edition string) []entity.Citation {
	out := make([]entity.Citation, 0, len(chunks))
	for _, sc := range chunks {
		out = append(out, entity.Citation{
			Chapter:   sc.Chunk.ChapterTitle,
			Section:   sc.Chunk.Section(),
			Page:      sc.Chunk.PageNumber,
			Edition:   edition,
			Relevance: sc.Score,
		})
	}
	return out
}
