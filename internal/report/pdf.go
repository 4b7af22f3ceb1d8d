package report

import (
	"fmt"
	"strings"

	"github.com/go-pdf/fpdf"
)

// PDFRenderer renders blocks to a PDF artifact: letter page, 0.7 inch
// margins, Helvetica 12 with fixed leading.
type PDFRenderer struct{}

// NewPDFRenderer creates a PDF renderer.
func NewPDFRenderer() *PDFRenderer {
	return &PDFRenderer{}
}

// Render writes the block sequence to path.
func (r *PDFRenderer) Render(path string, blocks []Block) error {
	pdf := fpdf.New("P", "pt", "Letter", "")
	pdf.SetMargins(PageMargin, PageMargin, PageMargin)
	pdf.SetAutoPageBreak(true, PageMargin)
	pdf.AddPage()
	pdf.SetFont("Helvetica", "", 12)

	html := pdf.HTMLBasicNew()

	for _, b := range blocks {
		switch b.Kind {
		case BlockParagraph:
			// Inline bold goes through the basic HTML writer, which only
			// supports left alignment. Plain paragraphs are justified.
			if strings.Contains(b.Text, "<b>") {
				html.Write(ParagraphLeading, b.Text)
				pdf.Ln(ParagraphLeading)
			} else {
				pdf.MultiCell(0, ParagraphLeading, b.Text, "", "J", false)
			}

		case BlockTable:
			r.renderTable(pdf, b)

		case BlockSpacer:
			pdf.Ln(b.Height)
		}
	}

	if err := pdf.OutputFileAndClose(path); err != nil {
		return fmt.Errorf("pdf output: %w", err)
	}
	return nil
}

func (r *PDFRenderer) renderTable(pdf *fpdf.Fpdf, b Block) {
	if len(b.Headers) == 0 {
		return
	}

	pageWidth, _ := pdf.GetPageSize()
	usable := pageWidth - 2*PageMargin
	colWidth := usable / float64(len(b.Headers))

	pdf.SetFont("Helvetica", "B", 10)
	for _, h := range b.Headers {
		pdf.CellFormat(colWidth, ParagraphLeading, h, "1", 0, "L", false, 0, "")
	}
	pdf.Ln(ParagraphLeading)

	pdf.SetFont("Helvetica", "", 10)
	for _, row := range b.Rows {
		for i := 0; i < len(b.Headers); i++ {
			cell := ""
			if i < len(row) {
				cell = row[i]
			}
			pdf.CellFormat(colWidth, ParagraphLeading, cell, "1", 0, "L", false, 0, "")
		}
		pdf.Ln(ParagraphLeading)
	}

	pdf.SetFont("Helvetica", "", 12)
}
