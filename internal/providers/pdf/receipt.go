package pdf

import (
	"context"
	"fmt"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

type MarotoRenderer struct{}

func New() Renderer {
	return &MarotoRenderer{}
}

func (r *MarotoRenderer) RenderReceipt(ctx context.Context, data ReceiptData) ([]byte, error) {
	if data.PaymentIntentID == "" {
		return nil, fmt.Errorf("receipt requires a payment intent id")
	}

	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()

	m := maroto.New(cfg)

	title := "Receipt"
	headline := data.Amount + " paid on " + data.Date
	if !data.Succeeded {
		title = "Payment notice"
		headline = data.Amount + " could not be collected on " + data.Date
	}

	m.AddRow(20,
		text.NewCol(8, title, props.Text{
			Size:  20,
			Style: fontstyle.Bold,
			Align: align.Left,
		}),
		text.NewCol(4, data.MerchantName, props.Text{
			Size:  12,
			Style: fontstyle.Bold,
			Align: align.Right,
		}),
	)

	m.AddRow(24,
		col.New(6).Add(
			text.New("Receipt number: "+data.ReceiptNumber, props.Text{Top: 0}),
			text.New("Payment: "+data.PaymentIntentID, props.Text{Top: 5}),
			text.New("Status: "+data.Status, props.Text{Top: 10}),
		),
		col.New(6).Add(
			text.New("Billed to", props.Text{Style: fontstyle.Bold}),
			text.New(data.Email, props.Text{Top: 5}),
		),
	)

	m.AddRow(15,
		text.NewCol(12, headline, props.Text{
			Size:  14,
			Style: fontstyle.Bold,
			Top:   5,
		}),
	)

	m.AddRow(10,
		text.NewCol(8, "Description", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(4, "Amount", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
	)
	m.AddRow(12,
		text.NewCol(8, data.Description, props.Text{Size: 9}),
		text.NewCol(4, data.Amount, props.Text{Size: 9, Align: align.Right}),
	)

	if data.InvoiceID != "" {
		invoiceLine := "Invoice " + data.InvoiceID
		if data.InvoiceNumber != "" {
			invoiceLine = "Invoice " + data.InvoiceNumber + " (" + data.InvoiceID + ")"
		}
		if data.InvoiceStatus != "" {
			invoiceLine += ", " + data.InvoiceStatus
		}
		m.AddRow(10, text.NewCol(12, invoiceLine, props.Text{Size: 9, Top: 4}))
	} else if data.Succeeded {
		m.AddRow(10, text.NewCol(12, "No invoice was issued for this payment.", props.Text{Size: 9, Top: 4}))
	}

	doc, err := m.Generate()
	if err != nil {
		return nil, err
	}
	return doc.GetBytes(), nil
}
