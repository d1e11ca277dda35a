package formatter

import (
	"bytes"
	"fmt"
	"os"

	"github.com/jung-kurt/gofpdf"
)

const (
	pdfContentType   = "application/pdf"
	pdfFileExtension = ".pdf"

	// pdfFontName is the internal name used by gofpdf
	// for the UTF-8 capable font.
	pdfFontName = "DejaVuSans"

	// In Docker runtime fonts are copied to /app/ttf.
	pdfFontRuntimePath = "ttf/DejaVuSans.ttf"
	pdfFontSourcePath  = "internal/pkg/formatter/ttf/DejaVuSans.ttf"
)

type PDFFormatter struct {
	fontPaths []string
}

func NewPDFFormatter() *PDFFormatter {
	return &PDFFormatter{fontPaths: []string{pdfFontRuntimePath, pdfFontSourcePath}}
}

// resolveFontPath returns the first DejaVuSans location that exists.
func (pf *PDFFormatter) resolveFontPath() string {
	for _, p := range pf.fontPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

func (pf *PDFFormatter) Format(t *Transcript) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()

	// Core fonts only cover cp1252, so text is translated when the
	// bundled UTF-8 font is missing.
	fontName := "Arial"
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	if fontPath := pf.resolveFontPath(); fontPath != "" {
		pdf.AddUTF8Font(pdfFontName, "", fontPath)
		pdf.AddUTF8Font(pdfFontName, "B", fontPath)
		fontName = pdfFontName
		tr = func(s string) string { return s }
	}

	pdf.SetFont(fontName, "B", 18)
	pdf.MultiCell(0, 9, tr(t.Title()), "", "", false)
	pdf.SetFont(fontName, "", 9)
	pdf.MultiCell(0, 5, tr(subtitle(t)), "", "", false)
	pdf.Ln(4)

	for _, m := range t.Messages {
		pdf.SetFont(fontName, "B", 12)
		pdf.MultiCell(0, 7, tr(fmt.Sprintf("%s, %s", roleLabel(m.Role), m.CreatedAt.Format(timeLayout))), "", "", false)

		pdf.SetFont(fontName, "", 11)
		_, lineHeight := pdf.GetFontSize()
		pdf.MultiCell(0, lineHeight*1.5, tr(m.Content), "", "", false)

		if m.Confidence != nil {
			pdf.SetFont(fontName, "", 9)
			pdf.MultiCell(0, 5, tr("Confidence: "+string(*m.Confidence)), "", "", false)
		}
		for _, c := range m.Citations {
			pdf.SetFont(fontName, "", 9)
			pdf.MultiCell(0, 5, tr("Source: "+citationLine(c)), "", "", false)
		}
		pdf.Ln(3)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func (pf *PDFFormatter) ContentType() string {
	return pdfContentType
}

func (pf *PDFFormatter) FileExtension() string {
	return pdfFileExtension
}
