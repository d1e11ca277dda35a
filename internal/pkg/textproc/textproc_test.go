package textproc

import (
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"collapses whitespace", "  Fever \t in\n\n infants  ", "Fever in infants"},
		{"collapses repeated periods", "Wait... then reassess..", "Wait. then reassess."},
		{"attaches units", "give 10 mg/kg every 6 h, max 40 MG", "give 10mg/kg every 6 h, max 40MG"},
		{"keeps abbreviations", "RSV and IVIG in the NICU", "RSV and IVIG in the NICU"},
		{"lowercases shouting", "URGENT question about RSV", "urgent question about RSV"},
		{"empty", "   ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{
		"PLEASE   explain KAWASAKI disease...   treatment with 2 g/kg IVIG",
		"Dose:  5 ml  of  ORS per kg",
		"",
	}
	for _, in := range inputs {
		once := Normalize(in)
		assert.Equal(t, once, Normalize(once), in)
	}
}

func TestChunker_Split(t *testing.T) {
	t.Run("short text is one segment", func(t *testing.T) {
		segments := NewChunker().Split("  Fever is common.  ")
		assert.Equal(t, []string{"Fever is common."}, segments)
	})

	t.Run("empty text", func(t *testing.T) {
		assert.Empty(t, NewChunker().Split(" \n "))
	})

	t.Run("long text overlaps within the size limit", func(t *testing.T) {
		var sb strings.Builder
		for i := range 30 {
			fmt.Fprintf(&sb, "Sentence number %d is here. ", i)
		}
		text := sb.String()

		c := NewChunker(WithChunkSize(80), WithOverlap(20))
		segments := c.Split(text)
		require.Greater(t, len(segments), 1)

		for _, seg := range segments {
			assert.LessOrEqual(t, utf8.RuneCountInString(seg), 80)
		}

		first := strings.Fields(segments[1])[0]
		assert.Contains(t, segments[0], first, "consecutive segments share text")

		joined := strings.Join(segments, " ")
		for _, word := range strings.Fields(text) {
			assert.Contains(t, joined, word)
		}
	})

	t.Run("prefers sentence ends", func(t *testing.T) {
		c := NewChunker(WithChunkSize(50), WithOverlap(0))
		segments := c.Split("Bronchiolitis peaks in winter. Supportive care is the mainstay of treatment for infants.")
		require.NotEmpty(t, segments)
		assert.Equal(t, "Bronchiolitis peaks in winter.", segments[0])
	})
}

func TestNewChunker_ClampsOverlap(t *testing.T) {
	c := NewChunker(WithChunkSize(40), WithOverlap(40))
	assert.Equal(t, 40, c.chunkSize)
	assert.Equal(t, 10, c.overlap)

	d := NewChunker(WithChunkSize(-1), WithOverlap(-5))
	assert.Equal(t, DefaultChunkSize, d.chunkSize)
	assert.Equal(t, DefaultChunkOverlap, d.overlap)
}

func TestChunker_ChunkChapter(t *testing.T) {
	c := NewChunker(WithChunkSize(50), WithOverlap(10))
	body := "ACUTE otitis media is common.   It often follows a viral URI. Amoxicillin is first line therapy."

	chunks := c.ChunkChapter("Otitis Media", "Treatment", body)
	require.Greater(t, len(chunks), 1)

	ids := make(map[string]bool)
	for i, ch := range chunks {
		require.NotNil(t, ch.ChunkIndex)
		assert.Equal(t, i, *ch.ChunkIndex)
		assert.Equal(t, "Otitis Media", ch.ChapterTitle)
		require.NotNil(t, ch.SectionTitle)
		assert.Equal(t, "Treatment", *ch.SectionTitle)
		assert.False(t, ids[ch.ID], "ids are unique")
		ids[ch.ID] = true
	}
	assert.True(t, strings.HasPrefix(chunks[0].Content, "acute otitis media"), "content is normalized")

	noSection := c.ChunkChapter("Fever", "", "Fever is common.")
	require.Len(t, noSection, 1)
	assert.Nil(t, noSection[0].SectionTitle)
}
