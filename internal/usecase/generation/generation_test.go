package generation

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/futig/nelson-backend/internal/entity"
)

var testCorpus = entity.Corpus{
	Name:      "Nelson Textbook of Pediatrics",
	ShortName: "Nelson",
	Edition:   "22nd Edition",
}

func chunk(id, chapter, content string, score float64) entity.ScoredChunk {
	return entity.ScoredChunk{
		Chunk: entity.Chunk{ID: id, Content: content, ChapterTitle: chapter},
		Score: score,
	}
}

func TestConfidence(t *testing.T) {
	long := strings.Repeat("x", 201)
	exact := strings.Repeat("x", 200)

	tests := []struct {
		name      string
		retrieved int
		content   string
		want      entity.Confidence
	}{
		{"three docs naming the short name", 3, "Per Nelson, give IVIG.", entity.ConfidenceHigh},
		{"three docs naming the full title", 5, "the nelson textbook of pediatrics says", entity.ConfidenceHigh},
		{"two docs naming the corpus but short", 2, "Per Nelson, give IVIG.", entity.ConfidenceLow},
		{"two docs naming the corpus and long", 2, "Nelson " + long, entity.ConfidenceMedium},
		{"three docs without naming the corpus", 3, long, entity.ConfidenceMedium},
		{"one doc, 201 characters", 1, long, entity.ConfidenceMedium},
		{"one doc, exactly 200 characters", 1, exact, entity.ConfidenceLow},
		{"no docs", 0, "Nelson " + long, entity.ConfidenceLow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Confidence(tt.retrieved, tt.content, testCorpus))
		})
	}
}

func TestCitations(t *testing.T) {
	page := 1310
	section := "Treatment"
	chunks := []entity.ScoredChunk{
		{Chunk: entity.Chunk{ChapterTitle: "Kawasaki Disease", SectionTitle: &section, PageNumber: &page}, Score: 0.9},
		{Chunk: entity.Chunk{ChapterTitle: "Kawasaki Disease"}, Score: 0.8},
	}

	got := Citations(chunks, "22nd Edition")
	require.Len(t, got, 2, "one citation per chunk, duplicates kept")
	assert.Equal(t, entity.Citation{
		Chapter:   "Kawasaki Disease",
		Section:   "Treatment",
		Page:      &page,
		Edition:   "22nd Edition",
		Relevance: 0.9,
	}, got[0])
	assert.Empty(t, got[1].Section)
	assert.Nil(t, got[1].Page)

	assert.Empty(t, Citations(nil, "22nd Edition"))
}

func TestAssembler_Header(t *testing.T) {
	a := NewAssembler(testCorpus, 0)
	page := 42
	section := "Etiology"

	full := a.Header(2, &entity.Chunk{
		ChapterTitle: "Croup",
		SectionTitle: &section,
		PageNumber:   &page,
		Metadata:     map[string]any{"subsection": "Viral causes"},
	})
	assert.Equal(t, "[Source 2] Chapter: Croup | Section: Etiology | Subsection: Viral causes | Nelson Textbook of Pediatrics, 22nd Edition | Page 42\n", full)

	bare := a.Header(1, &entity.Chunk{ChapterTitle: "Croup"})
	assert.Equal(t, "[Source 1] Chapter: Croup | Nelson Textbook of Pediatrics, 22nd Edition\n", bare)
}

func TestAssembler_Assemble(t *testing.T) {
	t.Run("keeps order and separators", func(t *testing.T) {
		a := NewAssembler(testCorpus, 0)
		text, included := a.Assemble([]entity.ScoredChunk{
			chunk("1", "Croup", "first body", 0.9),
			chunk("2", "Asthma", "second body", 0.8),
		})

		assert.Len(t, included, 2)
		assert.Less(t, strings.Index(text, "first body"), strings.Index(text, "second body"))
		assert.Equal(t, 2, strings.Count(text, contextSeparator))
		assert.Contains(t, text, "[Source 2] Chapter: Asthma")
	})

	t.Run("drops whole chunks past the budget", func(t *testing.T) {
		small := chunk("1", "A", strings.Repeat("a", 50), 0.9)
		big := chunk("2", "B", strings.Repeat("b", 400), 0.8)
		tiny := chunk("3", "C", "c", 0.7)

		a := NewAssembler(testCorpus, 300)
		text, included := a.Assemble([]entity.ScoredChunk{small, big, tiny})

		require.Len(t, included, 1)
		assert.Equal(t, "1", included[0].Chunk.ID)
		assert.NotContains(t, text, "bbb")
		assert.NotContains(t, text, "[Source 3]", "assembly stops at the first chunk that does not fit")
		assert.LessOrEqual(t, len(text), 300)
	})

	t.Run("truncates the first chunk to fit", func(t *testing.T) {
		a := NewAssembler(testCorpus, 200)
		text, included := a.Assemble([]entity.ScoredChunk{
			chunk("1", "A", strings.Repeat("a", 500), 0.9),
			chunk("2", "B", "b", 0.8),
		})

		require.Len(t, included, 1)
		assert.Len(t, text, 200)
		assert.Contains(t, text, truncationMarker+contextSeparator)
	})

	t.Run("truncation respects rune boundaries", func(t *testing.T) {
		a := NewAssembler(testCorpus, 150)
		text, _ := a.Assemble([]entity.ScoredChunk{chunk("1", "A", strings.Repeat("ж", 200), 0.9)})
		assert.True(t, strings.HasSuffix(text, truncationMarker+contextSeparator))
		assert.NotContains(t, text, "�")
		assert.LessOrEqual(t, len(text), 150)
	})

	t.Run("budget too small for a header", func(t *testing.T) {
		a := NewAssembler(testCorpus, 10)
		text, included := a.Assemble([]entity.ScoredChunk{chunk("1", "A", "body", 0.9)})
		assert.Empty(t, text)
		assert.Empty(t, included)
	})
}

func TestBuildMessages(t *testing.T) {
	history := []entity.Turn{
		{Role: entity.RoleUser, Content: "old question"},
		{Role: entity.RoleAssistant, Content: "old answer"},
		{Role: entity.RoleUser, Content: "  "},
		{Role: entity.RoleUser, Content: "recent question"},
		{Role: entity.RoleAssistant, Content: "recent answer"},
	}

	msgs := BuildMessages("system", "CTX\n\n", "What now?", history, 3)
	require.Len(t, msgs, 4, "system, two non-blank turns of the window, user")
	assert.Equal(t, entity.ChatRoleSystem, msgs[0].Role)
	assert.Equal(t, entity.ChatMessage{Role: entity.ChatRoleUser, Content: "recent question"}, msgs[1])
	assert.Equal(t, entity.ChatMessage{Role: entity.ChatRoleAssistant, Content: "recent answer"}, msgs[2])
	assert.Equal(t, entity.ChatRoleUser, msgs[3].Role)
	assert.Equal(t, "Context:\n\nCTX\n\nQuestion: What now?", msgs[3].Content)

	noHistory := BuildMessages("system", "", "q", history, 0)
	assert.Len(t, noHistory, 2)
}

func TestSystemPrompt(t *testing.T) {
	p := SystemPrompt(testCorpus)
	assert.Contains(t, p, "Nelson Textbook of Pediatrics (22nd Edition)")
	assert.Contains(t, p, `"(Nelson, Chapter: Asthma`)
}

func TestGenerator_Generate(t *testing.T) {
	ctx := context.Background()
	cfg := entity.RAGConfig{Temperature: 0.1, TopP: 0.9, MaxTokens: 512, HistoryWindow: 6, ContextCharBudget: 24000}
	chunks := []entity.ScoredChunk{
		chunk("1", "Kawasaki Disease", "IVIG within 10 days.", 0.9),
		chunk("2", "Kawasaki Disease", "Aspirin is added.", 0.8),
		chunk("3", "Kawasaki Disease", "Echocardiography is repeated.", 0.7),
	}

	t.Run("blocking", func(t *testing.T) {
		llm := &mockLLM{completion: &entity.Completion{Content: "According to Nelson, IVIG and aspirin.", Model: "gpt-test"}}
		g := NewGenerator(llm, testCorpus)

		answer, err := g.Generate(ctx, "How is Kawasaki disease treated?", chunks, nil, cfg)
		require.NoError(t, err)
		assert.Equal(t, entity.OutcomeAnswered, answer.Outcome)
		assert.Equal(t, entity.ConfidenceHigh, answer.Confidence)
		assert.Equal(t, "gpt-test", answer.Model)
		assert.Len(t, answer.Citations, 3)
		assert.Len(t, answer.RetrievedDocuments, 3)

		req := llm.request
		require.NotNil(t, req)
		assert.Equal(t, float32(0.1), req.Temperature)
		assert.Equal(t, 512, req.MaxTokens)
		assert.Contains(t, req.Messages[len(req.Messages)-1].Content, "IVIG within 10 days.")
	})

	t.Run("citations follow the chunks that fit", func(t *testing.T) {
		llm := &mockLLM{completion: &entity.Completion{Content: "short"}}
		g := NewGenerator(llm, testCorpus)

		tight := cfg
		tight.ContextCharBudget = 120
		answer, err := g.Generate(ctx, "q", chunks, nil, tight)
		require.NoError(t, err)
		assert.Len(t, answer.Citations, 1)
		assert.Len(t, answer.RetrievedDocuments, 3)
	})

	t.Run("streaming forwards deltas", func(t *testing.T) {
		llm := &mockLLM{deltas: []string{"According to ", "Nelson."}}
		g := NewGenerator(llm, testCorpus)

		var got []string
		answer, err := g.GenerateStream(ctx, "q", chunks, nil, cfg, func(s string) error {
			got = append(got, s)
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"According to ", "Nelson."}, got)
		assert.Equal(t, "According to Nelson.", answer.Content)
		assert.Equal(t, entity.ConfidenceHigh, answer.Confidence)
	})

	t.Run("errors become generation errors", func(t *testing.T) {
		g := NewGenerator(&mockLLM{err: errors.New("connection reset")}, testCorpus)
		_, err := g.Generate(ctx, "q", chunks, nil, cfg)

		var genErr *entity.GenerationError
		require.ErrorAs(t, err, &genErr)
		assert.Zero(t, genErr.StatusCode)
	})

	t.Run("generation errors pass through", func(t *testing.T) {
		orig := &entity.GenerationError{StatusCode: 429, Err: errors.New("rate limited")}
		g := NewGenerator(&mockLLM{err: orig}, testCorpus)
		_, err := g.GenerateStream(ctx, "q", chunks, nil, cfg, func(string) error { return nil })
		assert.Same(t, orig, err)
	})
}

// --- Mock implementations ---

type mockLLM struct {
	completion *entity.Completion
	deltas     []string
	err        error
	request    *entity.CompletionRequest
}

func (m *mockLLM) Complete(_ context.Context, req *entity.CompletionRequest) (*entity.Completion, error) {
	m.request = req
	if m.err != nil {
		return nil, m.err
	}
	return m.completion, nil
}

func (m *mockLLM) Stream(_ context.Context, req *entity.CompletionRequest, onDelta func(string) error) (*entity.Completion, error) {
	m.request = req
	if m.err != nil {
		return nil, m.err
	}
	var b strings.Builder
	for _, d := range m.deltas {
		if err := onDelta(d); err != nil {
			return nil, err
		}
		b.WriteString(d)
	}
	return &entity.Completion{Content: b.String(), Model: "stream-model"}, nil
}
