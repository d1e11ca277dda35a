package textproc

import (
	"strings"
	"unicode"

	"github.com/futig/nelson-backend/internal/entity"
	"github.com/google/uuid"
)

const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
)

// Chunker splits text into segments of at most chunkSize runes where
// consecutive segments share about overlap runes.
type Chunker struct {
	chunkSize int
	overlap   int
}

type ChunkerOption func(*Chunker)

func WithChunkSize(size int) ChunkerOption {
	return func(c *Chunker) {
		if size > 0 {
			c.chunkSize = size
		}
	}
}

func WithOverlap(overlap int) ChunkerOption {
	return func(c *Chunker) {
		if overlap >= 0 {
			c.overlap = overlap
		}
	}
}

func NewChunker(opts ...ChunkerOption) *Chunker {
	c := &Chunker{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.overlap >= c.chunkSize {
		c.overlap = c.chunkSize / 4
	}
	return c
}

// Split cuts text preferring sentence ends, then whitespace, as the end of
// a segment. Overlapping segments start on a word boundary.
func (c *Chunker) Split(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	runes := []rune(text)
	n := len(runes)
	if n <= c.chunkSize {
		return []string{text}
	}

	segments := make([]string, 0, n/(c.chunkSize-c.overlap)+1)
	start := 0
	for start < n {
		end := start + c.chunkSize
		if end >= n {
			end = n
		} else {
			end = c.boundary(runes, start, end)
		}

		if piece := strings.TrimSpace(string(runes[start:end])); piece != "" {
			segments = append(segments, piece)
		}
		if end >= n {
			break
		}

		next := end - c.overlap
		if next <= start {
			next = end
		} else {
			next = alignWordStart(runes, next, end)
		}
		start = next
	}

	return segments
}

// boundary moves end back to a sentence end or a space, never past the
// middle of the window.
func (c *Chunker) boundary(runes []rune, start, end int) int {
	floor := start + c.chunkSize/2
	for i := end - 1; i > floor; i-- {
		if isSentenceEnd(runes[i-1]) && unicode.IsSpace(runes[i]) {
			return i
		}
	}
	for i := end - 1; i > floor; i-- {
		if unicode.IsSpace(runes[i]) {
			return i
		}
	}
	return end
}

func alignWordStart(runes []rune, pos, limit int) int {
	for pos < limit && pos > 0 && !unicode.IsSpace(runes[pos-1]) {
		pos++
	}
	return pos
}

func isSentenceEnd(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

// ChunkChapter normalizes and splits a chapter body into corpus chunks
// numbered from zero.
func (c *Chunker) ChunkChapter(chapter, section, body string) []entity.Chunk {
	segments := c.Split(Normalize(body))
	chunks := make([]entity.Chunk, 0, len(segments))
	for i, seg := range segments {
		idx := i
		chunk := entity.Chunk{
			ID:           uuid.NewString(),
			Content:      seg,
			ChapterTitle: chapter,
			ChunkIndex:   &idx,
		}
		if section != "" {
			s := section
			chunk.SectionTitle = &s
		}
		chunks = append(chunks, chunk)
	}
	return chunks
}
