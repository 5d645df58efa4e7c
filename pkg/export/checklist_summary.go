package export

import (
	"bytes"
	"fmt"
	"image/png"
	"time"

	"github.com/disintegration/imaging"
	"github.com/jung-kurt/gofpdf"
)

// SummaryItem is one requirement row on the completion summary.
type SummaryItem struct {
	Title      string
	Status     string
	Files      int
	ReviewedBy string
	ReviewedAt string
}

// ChecklistSummary is the content of a completion summary document.
type ChecklistSummary struct {
	StudentName  string
	StudentEmail string
	GeneratedAt  time.Time
	Items        []SummaryItem
	// SignatureImage is raw image bytes (png/jpeg/gif). When empty or undecodable
	// SignatureURL is printed in its place.
	SignatureImage []byte
	SignatureURL   string
}

// ChecklistSummaryRenderer produces the completion summary PDF.
type ChecklistSummaryRenderer struct {
	signatureWidth int
}

// NewChecklistSummaryRenderer constructs a renderer.
func NewChecklistSummaryRenderer() *ChecklistSummaryRenderer {
	return &ChecklistSummaryRenderer{signatureWidth: 480}
}

// NormalizeSignature decodes a signature image, flattens it to grayscale and resizes it to a fixed width, returning PNG bytes.
func (r *ChecklistSummaryRenderer) NormalizeSignature(raw []byte) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decode signature: %w", err)
	}
	gray := imaging.Grayscale(img)
	if gray.Bounds().Dx() > r.signatureWidth {
		gray = imaging.Resize(gray, r.signatureWidth, 0, imaging.Lanczos)
	}
	buf := &bytes.Buffer{}
	if err := png.Encode(buf, gray); err != nil {
		return nil, fmt.Errorf("encode signature: %w", err)
	}
	return buf.Bytes(), nil
}

// Render creates the summary document. A signature that cannot be embedded degrades to its URL.
func (r *ChecklistSummaryRenderer) Render(summary ChecklistSummary) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 14)
	pdf.CellFormat(0, 10, "OJT REQUIREMENTS COMPLETION SUMMARY", "", 1, "C", false, 0, "")
	pdf.Ln(3)

	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(0, 6, "Student: "+summary.StudentName, "", 1, "", false, 0, "")
	if summary.StudentEmail != "" {
		pdf.CellFormat(0, 6, "Email: "+summary.StudentEmail, "", 1, "", false, 0, "")
	}
	generated := summary.GeneratedAt
	if generated.IsZero() {
		generated = time.Now().UTC()
	}
	pdf.CellFormat(0, 6, "Generated: "+generated.Format("2006-01-02 15:04 MST"), "", 1, "", false, 0, "")
	pdf.Ln(4)

	widths := []float64{70, 30, 15, 35, 30}
	headers := []string{"Requirement", "Status", "Files", "Reviewed By", "Reviewed At"}
	pdf.SetFont("Arial", "B", 9)
	for i, header := range headers {
		pdf.CellFormat(widths[i], 8, header, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 9)
	for _, item := range summary.Items {
		values := []string{item.Title, item.Status, fmt.Sprintf("%d", item.Files), item.ReviewedBy, item.ReviewedAt}
		for i, value := range values {
			pdf.CellFormat(widths[i], 7, value, "1", 0, "", false, 0, "")
		}
		pdf.Ln(-1)
	}

	pdf.Ln(10)
	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(0, 6, "Adviser signature", "", 1, "", false, 0, "")
	if !r.embedSignature(pdf, summary.SignatureImage) {
		pdf.SetFont("Arial", "", 8)
		fallback := summary.SignatureURL
		if fallback == "" {
			fallback = "(not available)"
		}
		pdf.MultiCell(0, 5, fallback, "", "", false)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render summary pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *ChecklistSummaryRenderer) embedSignature(pdf *gofpdf.Fpdf, raw []byte) bool {
	if len(raw) == 0 {
		return false
	}
	normalized, err := r.NormalizeSignature(raw)
	if err != nil {
		return false
	}
	opts := gofpdf.ImageOptions{ImageType: "PNG", ReadDpi: true}
	pdf.RegisterImageOptionsReader("signature", opts, bytes.NewReader(normalized))
	if !pdf.Ok() {
		pdf.ClearError()
		return false
	}
	pdf.ImageOptions("signature", pdf.GetX(), pdf.GetY(), 60, 0, true, opts, 0, "")
	return pdf.Ok()
}
