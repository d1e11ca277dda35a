package entity

const (
	DefaultMaxDocuments        = 5
	DefaultSimilarityThreshold = 0.7
	DefaultTemperature         = 0.1
	DefaultTopP                = 0.9
	DefaultMaxTokens           = 2048
	DefaultHistoryWindow       = 6
	DefaultContextCharBudget   = 24000
)

// RAGConfig holds the per-call retrieval and sampling parameters.
// It is passed by value and never mutated after construction.
type RAGConfig struct {
	MaxDocuments        int     `json:"max_documents"`
	SimilarityThreshold float64 `json:"similarity_threshold"`
	Temperature         float32 `json:"temperature"`
	TopP                float32 `json:"top_p"`
	MaxTokens           int     `json:"max_tokens"`
	HistoryWindow       int     `json:"history_window"`
	UseHybrid           bool    `json:"use_hybrid"`
	AdaptiveRetrieval   bool    `json:"adaptive_retrieval"`
	ContextCharBudget   int     `json:"context_char_budget"`
}

func DefaultRAGConfig() RAGConfig {
	return RAGConfig{
		MaxDocuments:        DefaultMaxDocuments,
		SimilarityThreshold: DefaultSimilarityThreshold,
		Temperature:         DefaultTemperature,
		TopP:                DefaultTopP,
		MaxTokens:           DefaultMaxTokens,
		HistoryWindow:       DefaultHistoryWindow,
		UseHybrid:           true,
		AdaptiveRetrieval:   true,
		ContextCharBudget:   DefaultContextCharBudget,
	}
}

// RAGOverrides are caller supplied values, nil fields keep the base value.
type RAGOverrides struct {
	MaxDocuments        *int     `json:"max_documents,omitempty"`
	SimilarityThreshold *float64 `json:"similarity_threshold,omitempty"`
	Temperature         *float32 `json:"temperature,omitempty"`
	MaxTokens           *int     `json:"max_tokens,omitempty"`
	UseHybrid           *bool    `json:"use_hybrid,omitempty"`
}

// HasRetrievalOverrides reports whether the caller pinned retrieval breadth.
func (o *RAGOverrides) HasRetrievalOverrides() bool {
	return o != nil && (o.MaxDocuments != nil || o.SimilarityThreshold != nil)
}

// With returns a copy of c with the non-nil overrides applied.
func (c RAGConfig) With(o *RAGOverrides) RAGConfig {
	if o == nil {
		return c
	}
	if o.MaxDocuments != nil {
		c.MaxDocuments = *o.MaxDocuments
	}
	if o.SimilarityThreshold != nil {
		c.SimilarityThreshold = *o.SimilarityThreshold
	}
	if o.Temperature != nil {
		c.Temperature = *o.Temperature
	}
	if o.MaxTokens != nil {
		c.MaxTokens = *o.MaxTokens
	}
	if o.UseHybrid != nil {
		c.UseHybrid = *o.UseHybrid
	}
	return c
}

// WithRetrieval returns a copy of c with the given retrieval breadth.
func (c RAGConfig) WithRetrieval(maxDocuments int, threshold float64) RAGConfig {
	c.MaxDocuments = maxDocuments
	c.SimilarityThreshold = threshold
	return c
}

// Corpus describes the reference work the chunks were cut from.
type Corpus struct {
	Name      string `json:"name"`
	ShortName string `json:"short_name"`
	Edition   string `json:"edition"`
}
