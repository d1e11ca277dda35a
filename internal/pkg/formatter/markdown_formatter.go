package formatter

import (
	"bytes"
	"fmt"
)

const (
	markdownContentType   = "text/markdown; charset=utf-8"
	markdownFileExtension = ".md"
)

type MarkdownFormatter struct{}

func NewMarkdownFormatter() *MarkdownFormatter {
	return &MarkdownFormatter{}
}

func (mf *MarkdownFormatter) Format(t *Transcript) ([]byte, error) {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "# %s\n\n_%s_\n", t.Title(), subtitle(t))

	for _, m := range t.Messages {
		fmt.Fprintf(&buf, "\n## %s · %s\n\n%s\n", roleLabel(m.Role), m.CreatedAt.Format(timeLayout), m.Content)

		if m.Confidence != nil {
			fmt.Fprintf(&buf, "\n**Confidence:** %s\n", *m.Confidence)
		}
		if len(m.Citations) > 0 {
			buf.WriteString("\n**Sources:**\n\n")
			for _, c := range m.Citations {
				fmt.Fprintf(&buf, "- %s\n", citationLine(c))
			}
		}
	}
	return buf.Bytes(), nil
}

func (mf *MarkdownFormatter) ContentType() string {
	return markdownContentType
}

func (mf *MarkdownFormatter) FileExtension() string {
	return markdownFileExtension
}
