package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

const (
	pdfPageWidth  = 190.0
	pdfRowHeight  = 7.0
	pdfPageBottom = 280.0
)

// PDFExporter renders datasets into a tabular PDF used for time log printouts.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// Render creates a PDF with an optional title. The header row repeats on every page and the footer row is bold.
func (e *PDFExporter) Render(data Dataset, title string) ([]byte, error) {
	if err := data.validate("pdf"); err != nil {
		return nil, err
	}
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)
	pdf.SetAutoPageBreak(false, 15)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	widths := data.widths(pdfPageWidth)

	header := func() {
		pdf.SetFont("Arial", "B", 10)
		for i, h := range data.Headers {
			pdf.CellFormat(widths[i], 8, tr(h), "1", 0, "C", false, 0, "")
		}
		pdf.Ln(-1)
	}
	row := func(values []string, bold bool) {
		if pdf.GetY()+pdfRowHeight > pdfPageBottom {
			pdf.AddPage()
			header()
		}
		style := ""
		if bold {
			style = "B"
		}
		pdf.SetFont("Arial", style, 9)
		for i, v := range values {
			pdf.CellFormat(widths[i], pdfRowHeight, tr(fitText(pdf, v, widths[i])), "1", 0, "", false, 0, "")
		}
		pdf.Ln(-1)
	}

	pdf.AddPage()
	if title != "" {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 10, tr(strings.ToUpper(title)), "", 1, "C", false, 0, "")
		pdf.Ln(5)
	}
	header()
	for _, r := range data.Rows {
		row(data.record(r), false)
	}
	if len(data.Footer) > 0 {
		row(data.record(data.Footer), true)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// fitText truncates v with an ellipsis so it fits in a cell of width w.
func fitText(pdf *gofpdf.Fpdf, v string, w float64) string {
	limit := w - 2
	if pdf.GetStringWidth(v) <= limit {
		return v
	}
	runes := []rune(v)
	for len(runes) > 0 && pdf.GetStringWidth(string(runes)+"...") > limit {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + "..."
}
