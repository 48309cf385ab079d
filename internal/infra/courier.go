package infra

import (
	"context"
	"fmt"

	"restock/internal/apierror"
	"restock/internal/model"
)

// POCourier delivers purchase-order documents to vendors: renders the PDF,
// then hands it off over SMTP. The hand-off is synchronous on purpose — the
// caller conditions the order's "sent" transition on its success.
type POCourier struct {
	mailer      *Mailer
	storagePath string
}

func NewPOCourier(mailer *Mailer, storagePath string) *POCourier {
	return &POCourier{mailer: mailer, storagePath: storagePath}
}

// DeliverPurchaseOrder sends the PO document to recipient. Any failure is an
// external-API error and leaves no side effects the caller must undo.
func (c *POCourier) DeliverPurchaseOrder(ctx context.Context, po *model.PurchaseOrder, vendor *model.Vendor, recipient string) error {
	pdfPath, err := GeneratePurchaseOrderPDF(po, vendor, c.storagePath)
	if err != nil {
		return apierror.ExternalAPI("courier: render document", err)
	}

	subject := fmt.Sprintf("Purchase Order %s", po.PONumber)
	body := fmt.Sprintf(
		"Please find attached purchase order %s for %d item(s), total $%s.\n",
		po.PONumber, len(po.Items), po.TotalAmount.StringFixed(2),
	)
	if err := c.mailer.SendPurchaseOrder(recipient, subject, body, pdfPath); err != nil {
		return apierror.ExternalAPI("courier: deliver document", err)
	}
	return nil
}
