package entity

// Chunk is a retrievable segment of the reference corpus.
type Chunk struct {
	ID           string         `json:"id"`
	Content      string         `json:"content"`
	ChapterTitle string         `json:"chapter_title"`
	SectionTitle *string        `json:"section_title,omitempty"`
	PageNumber   *int           `json:"page_number,omitempty"`
	ChunkIndex   *int           `json:"chunk_index,omitempty"`
	Embedding    []float32      `json:"embedding,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// Section returns the section title or an empty string.
func (c *Chunk) Section() string {
	if c.SectionTitle == nil {
		return ""
	}
	return *c.SectionTitle
}

// Subsection reads the optional "subsection" metadata key.
func (c *Chunk) Subsection() string {
	if c.Metadata == nil {
		return ""
	}
	if s, ok := c.Metadata["subsection"].(string); ok {
		return s
	}
	return ""
}

type RetrievalMode string

const (
	RetrievalModeVector  RetrievalMode = "vector"
	RetrievalModeChapter RetrievalMode = "chapter"
	RetrievalModeHybrid  RetrievalMode = "hybrid"
	RetrievalModeLexical RetrievalMode = "lexical"
)

// ScoredChunk is a chunk together with the scores that ranked it.
// Score is the value the result set is ordered by: the cosine similarity
// for vector search, the blended score for hybrid search and the text rank
// for lexical search.
type ScoredChunk struct {
	Chunk      Chunk   `json:"chunk"`
	Similarity float64 `json:"similarity"`
	TextRank   float64 `json:"text_rank"`
	Score      float64 `json:"score"`
	Rank       int     `json:"rank"`
}

// RetrievalResult is ordered by non-increasing Score, Rank starts at 1.
type RetrievalResult struct {
	Mode   RetrievalMode `json:"mode"`
	Chunks []ScoredChunk `json:"chunks"`
}

func (r *RetrievalResult) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Chunks)
}

func (r *RetrievalResult) IsEmpty() bool {
	return r.Len() == 0
}

// RetrievedDocument is the flattened chunk shape returned to API callers.
type RetrievedDocument struct {
	ID         string         `json:"id"`
	Content    string         `json:"content"`
	Chapter    string         `json:"chapter"`
	Section    string         `json:"section,omitempty"`
	Page       *int           `json:"page,omitempty"`
	Similarity float64        `json:"similarity"`
	Rank       int            `json:"rank"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// ToRetrievedDocument maps a scored chunk to the document shape:
//
//	ID         <- Chunk.ID
//	Content    <- Chunk.Content
//	Chapter    <- Chunk.ChapterTitle
//	Section    <- Chunk.SectionTitle (empty when absent)
//	Page       <- Chunk.PageNumber
//	Similarity <- Score
//	Rank       <- Rank
//	Metadata   <- Chunk.Metadata
//
// The embedding is never copied.
func ToRetrievedDocument(sc ScoredChunk) RetrievedDocument {
	return RetrievedDocument{
		ID:         sc.Chunk.ID,
		Content:    sc.Chunk.Content,
		Chapter:    sc.Chunk.ChapterTitle,
		Section:    sc.Chunk.Section(),
		Page:       sc.Chunk.PageNumber,
		Similarity: sc.Score,
		Rank:       sc.Rank,
		Metadata:   sc.Chunk.Metadata,
	}
}

// ToRetrievedDocuments converts every chunk of the result, keeping order.
func ToRetrievedDocuments(chunks []ScoredChunk) []RetrievedDocument {
	docs := make([]RetrievedDocument, 0, len(chunks))
	for _, c := range chunks {
		docs = append(docs, ToRetrievedDocument(c))
	}
	return docs
}

// Embedding is the vector produced for a piece of text.
type Embedding struct {
	Vector     []float32 `json:"vector"`
	Model      string    `json:"model"`
	TokenCount int       `json:"token_count"`
}

// VectorQuery selects chunks whose cosine similarity to Embedding is above
// Threshold, optionally restricted to one chapter.
type VectorQuery struct {
	Embedding []float32
	Threshold float64
	Limit     int
	Chapter   *string
}
