package infra

// pdf.go — purchase-order document generation using go-pdf/fpdf.
// Produces an A4 PDF with order header, vendor block, line-item table,
// and bold total. The file is saved to storagePath/{po_number}.pdf.

import (
	"fmt"
	"os"
	"path/filepath"

	"restock/internal/model"

	"github.com/go-pdf/fpdf"
)

// GeneratePurchaseOrderPDF renders the PO document and returns its path.
func GeneratePurchaseOrderPDF(po *model.PurchaseOrder, vendor *model.Vendor, storagePath string) (string, error) {
	if err := os.MkdirAll(storagePath, 0755); err != nil {
		return "", fmt.Errorf("pdf: create storage dir: %w", err)
	}

	filePath := filepath.Join(storagePath, po.PONumber+".pdf")

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.AddPage()

	pageW, _ := pdf.GetPageSize()
	contentW := pageW - 30

	// ── Header ───────────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(contentW, 10, "PURCHASE ORDER", "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(contentW, 7, po.PONumber, "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(contentW, 5, "Date: "+po.CreatedAt.Format("2006-01-02"), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	// ── Vendor block ─────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(contentW, 6, "Vendor", "B", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(contentW, 5, vendor.Name, "", 1, "L", false, 0, "")
	if vendor.Email != nil {
		pdf.CellFormat(contentW, 5, *vendor.Email, "", 1, "L", false, 0, "")
	}
	if vendor.Phone != nil {
		pdf.CellFormat(contentW, 5, *vendor.Phone, "", 1, "L", false, 0, "")
	}
	pdf.Ln(6)

	// ── Line-item table ──────────────────────────────────────────────────────
	col1 := contentW * 0.40 // sku
	col2 := contentW * 0.15 // qty
	col3 := contentW * 0.20 // unit cost
	col4 := contentW * 0.25 // line total

	pdf.SetFont("Helvetica", "B", 9)
	pdf.CellFormat(col1, 6, "SKU", "B", 0, "L", false, 0, "")
	pdf.CellFormat(col2, 6, "Qty", "B", 0, "C", false, 0, "")
	pdf.CellFormat(col3, 6, "Unit Cost", "B", 0, "R", false, 0, "")
	pdf.CellFormat(col4, 6, "Total", "B", 1, "R", false, 0, "")

	pdf.SetFont("Helvetica", "", 9)
	for _, item := range po.Items {
		pdf.CellFormat(col1, 6, item.SKU, "", 0, "L", false, 0, "")
		pdf.CellFormat(col2, 6, fmt.Sprintf("%d", item.Quantity), "", 0, "C", false, 0, "")
		pdf.CellFormat(col3, 6, "$"+item.UnitCost.StringFixed(2), "", 0, "R", false, 0, "")
		pdf.CellFormat(col4, 6, "$"+item.LineTotal.StringFixed(2), "", 1, "R", false, 0, "")
	}

	pdf.Ln(2)
	pdf.Line(15, pdf.GetY(), pageW-15, pdf.GetY())
	pdf.Ln(2)

	// ── Total ────────────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(col1+col2+col3, 8, "TOTAL:", "", 0, "R", false, 0, "")
	pdf.CellFormat(col4, 8, "$"+po.TotalAmount.StringFixed(2), "", 1, "R", false, 0, "")

	if err := pdf.OutputFileAndClose(filePath); err != nil {
		return "", fmt.Errorf("pdf: write file: %w", err)
	}

	return filePath, nil
}
