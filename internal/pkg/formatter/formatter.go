package formatter

import (
	"fmt"
	"time"

	"github.com/futig/nelson-backend/internal/entity"
)

const timeLayout = "2006-01-02 15:04 MST"

// Transcript is a chat session prepared for export.
type Transcript struct {
	Session    *entity.Session
	Messages   []*entity.Message
	Corpus     entity.Corpus
	ExportedAt time.Time
}

// Title falls back to a generic heading for untitled sessions.
func (t *Transcript) Title() string {
	if t.Session != nil && t.Session.Title != "" {
		return t.Session.Title
	}
	return "Conversation transcript"
}

type Formatter interface {
	Format(t *Transcript) ([]byte, error)
	ContentType() string
	FileExtension() string
}

type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

func (f *Factory) Create(format entity.ResultFormat) (Formatter, error) {
	switch format {
	case entity.FormatMarkdown:
		return NewMarkdownFormatter(), nil
	case entity.FormatDOCX:
		return NewDOCXFormatter(), nil
	case entity.FormatPDF:
		return NewPDFFormatter(), nil
	default:
		return nil, fmt.Errorf("%w: unsupported format %q", entity.ErrInvalidFormat, format)
	}
}

func roleLabel(r entity.Role) string {
	if r == entity.RoleAssistant {
		return "Assistant"
	}
	return "You"
}

// citationLine renders one source as "Chapter, Section, p. N (Edition)".
func citationLine(c entity.Citation) string {
	line := c.Chapter
	if c.Section != "" {
		line += ", " + c.Section
	}
	if c.Page != nil {
		line += fmt.Sprintf(", p. %d", *c.Page)
	}
	if c.Edition != "" {
		line += " (" + c.Edition + ")"
	}
	return line
}

func subtitle(t *Transcript) string {
	return fmt.Sprintf("Answers grounded in the %s, %s. Exported %s.",
		t.Corpus.Name, t.Corpus.Edition, t.ExportedAt.Format(timeLayout))
}
