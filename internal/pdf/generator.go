package pdf

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"

	"github.com/nurpe/haulops/internal/model"
)

const fontName = "Helvetica"

type Generator struct{}

func NewGenerator() *Generator {
	return &Generator{}
}

// page bundles a document with the translator that maps UTF-8 text onto
// the core font code page.
type page struct {
	pdf *gofpdf.Fpdf
	tr  func(string) string
}

func newPage(orientation string) *page {
	pdf := gofpdf.New(orientation, "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.AddPage()
	return &page{pdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor("")}
}

func (p *page) line(style string, size float64, height float64, text, align string) {
	p.pdf.SetFont(fontName, style, size)
	p.pdf.CellFormat(0, height, p.tr(text), "", 1, align, false, 0, "")
}

func (p *page) output() ([]byte, error) {
	var buf bytes.Buffer
	if err := p.pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (g *Generator) Invoice(doc model.InvoiceDocument) ([]byte, error) {
	p := newPage("P")
	inv := doc.Invoice

	p.line("B", 16, 10, "INVOICE", "C")
	p.line("", 11, 6, fmt.Sprintf("No. %s", inv.Number), "C")
	p.line("", 10, 6, fmt.Sprintf("Issued %s, due %s", formatDate(inv.IssueDate), formatDate(inv.DueDate)), "C")
	p.line("", 10, 6, fmt.Sprintf("Status: %s", inv.Status), "C")
	p.pdf.Ln(4)

	addCompanyBlock(p, "Issuer", doc.Issuer)
	p.pdf.Ln(2)
	addCompanyBlock(p, "Bill to", doc.Client)
	p.pdf.Ln(4)

	p.line("B", 12, 8, "Operations", "L")
	headers := []string{"Reference", "Route", "Date", "Amount"}
	colWidths := []float64{35, 95, 25, 25}
	drawTableRow(p, headers, colWidths, true)
	for _, op := range doc.Operations {
		drawTableRow(p, []string{
			op.Reference,
			route(op),
			formatDatePtr(op.DeliveryAt, op.CreatedAt),
			formatAmountPtr(op.SalePrice),
		}, colWidths, false)
	}

	p.pdf.Ln(2)
	p.line("", 11, 6, fmt.Sprintf("Amount excl. tax: %s", formatAmount(inv.AmountExclTax)), "R")
	p.line("", 11, 6, fmt.Sprintf("Tax (%.2f%%): %s", inv.TaxRate, formatAmount(inv.TaxAmount)), "R")
	p.line("B", 12, 7, fmt.Sprintf("Total: %s", formatAmount(inv.TotalAmount)), "R")

	if inv.Status == model.InvoiceStatusCancelled {
		p.pdf.SetTextColor(200, 0, 0)
		p.line("B", 12, 8, "CANCELLED", "L")
		p.pdf.SetTextColor(0, 0, 0)
	}

	return p.output()
}

func (g *Generator) Payment(doc model.PaymentDocument) ([]byte, error) {
	p := newPage("P")
	pay := doc.Payment

	p.line("B", 16, 10, "SUBCONTRACTOR PAYMENT STATEMENT", "C")
	p.line("", 11, 6, fmt.Sprintf("No. %s of %s", pay.Number, formatDate(pay.PaidAt)), "C")
	p.pdf.Ln(4)

	addCompanyBlock(p, "Payer", doc.Issuer)
	p.pdf.Ln(2)
	p.line("B", 11, 6, "Payee", "L")
	p.pdf.SetFont(fontName, "", 10)
	for _, l := range []string{
		doc.Subcontractor.Name,
		fmt.Sprintf("Email: %s", safeValue(doc.Subcontractor.Email)),
		fmt.Sprintf("Phone: %s", safeValue(doc.Subcontractor.Phone)),
	} {
		p.pdf.MultiCell(0, 5, p.tr(l), "", "L", false)
	}
	p.pdf.Ln(4)

	p.line("B", 12, 8, "Settled operations", "L")
	headers := []string{"Reference", "Route", "Date", "Amount"}
	colWidths := []float64{35, 95, 25, 25}
	drawTableRow(p, headers, colWidths, true)
	for _, op := range doc.Operations {
		drawTableRow(p, []string{
			op.Reference,
			route(op),
			formatDatePtr(op.DeliveryAt, op.CreatedAt),
			formatAmountPtr(op.PurchasePrice),
		}, colWidths, false)
	}

	p.pdf.Ln(2)
	p.line("B", 12, 7, fmt.Sprintf("Total paid: %s (%d operations)", formatAmount(pay.Amount), pay.OperationCount), "R")
	if strings.TrimSpace(pay.Note) != "" {
		p.pdf.Ln(2)
		p.pdf.SetFont(fontName, "", 10)
		p.pdf.MultiCell(0, 5, p.tr("Note: "+pay.Note), "", "L", false)
	}

	return p.output()
}

func addCompanyBlock(p *page, title string, company model.Company) {
	p.line("B", 11, 6, title, "L")
	p.pdf.SetFont(fontName, "", 10)
	lines := []string{
		company.Name,
		fmt.Sprintf("Registration no.: %s", safeValue(company.RegistrationNumber)),
		fmt.Sprintf("Address: %s", safeValue(company.Address)),
		fmt.Sprintf("Phone: %s", safeValue(company.Phone)),
	}
	for _, line := range lines {
		p.pdf.MultiCell(0, 5, p.tr(line), "", "L", false)
	}
}

func drawTableRow(p *page, cols []string, widths []float64, header bool) {
	style := ""
	if header {
		style = "B"
	}
	p.pdf.SetFont(fontName, style, 9)
	for i, col := range cols {
		align := "L"
		if i == len(cols)-1 {
			align = "R"
		}
		p.pdf.CellFormat(widths[i], 7, p.tr(truncate(col, 60)), "1", 0, align, false, 0, "")
	}
	p.pdf.Ln(-1)
}

func route(op model.Operation) string {
	from, to := safeValue(op.PickupAddress), safeValue(op.DeliveryAddress)
	return from + " > " + to
}

func truncate(value string, max int) string {
	runes := []rune(value)
	if len(runes) <= max {
		return value
	}
	return string(runes[:max-3]) + "..."
}

func safeValue(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}

func formatAmount(value float64) string {
	return fmt.Sprintf("%.2f", value)
}

func formatAmountPtr(value *float64) string {
	if value == nil {
		return "-"
	}
	return formatAmount(*value)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("02.01.2006")
}

func formatDatePtr(t *time.Time, fallback time.Time) string {
	if t == nil {
		return formatDate(fallback)
	}
	return formatDate(*t)
}
