package formatter

import (
	"bytes"
	"fmt"

	"github.com/unidoc/unioffice/document"
)

const (
	docxContentType   = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	docxFileExtension = ".docx"
)

type DOCXFormatter struct{}

func NewDOCXFormatter() *DOCXFormatter {
	return &DOCXFormatter{}
}

func (df *DOCXFormatter) Format(t *Transcript) ([]byte, error) {
	doc := document.New()
	defer doc.Close()

	titlePar := doc.AddParagraph()
	titlePar.SetStyle("Title")
	titlePar.AddRun().AddText(t.Title())

	subPar := doc.AddParagraph()
	subRun := subPar.AddRun()
	subRun.Properties().SetItalic(true)
	subRun.AddText(subtitle(t))

	for _, m := range t.Messages {
		head := doc.AddParagraph()
		head.SetStyle("Heading2")
		head.AddRun().AddText(fmt.Sprintf("%s, %s", roleLabel(m.Role), m.CreatedAt.Format(timeLayout)))

		doc.AddParagraph().AddRun().AddText(m.Content)

		if m.Confidence != nil {
			run := doc.AddParagraph().AddRun()
			run.Properties().SetBold(true)
			run.AddText("Confidence: " + string(*m.Confidence))
		}
		for _, c := range m.Citations {
			src := doc.AddParagraph()
			src.SetStyle("ListBullet")
			src.AddRun().AddText(citationLine(c))
		}
	}

	var buf bytes.Buffer
	if err := doc.Save(&buf); err != nil {
		return nil, fmt.Errorf("render docx: %w", err)
	}
	return buf.Bytes(), nil
}

func (df *DOCXFormatter) ContentType() string {
	return docxContentType
}

func (df *DOCXFormatter) FileExtension() string {
	return docxFileExtension
}
