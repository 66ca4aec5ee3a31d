// Package email provides email templates.
package email

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	"text/template"

	"github.com/printhubapp/printhub/internal/models"
)

// ConfirmationData is the model for the order confirmation templates.
type ConfirmationData struct {
	CustomerName string
	OrderID      string
	Total        string
	Currency     string
	Items        []ConfirmationItem
}

type ConfirmationItem struct {
	Name     string
	Variant  string
	Quantity int
	Price    string
}

const confirmationTextTemplate = `Hi {{.CustomerName}},

Thanks for your order! Payment has been received and your order is confirmed.

Order {{.OrderID}}
{{range .Items}}  - {{.Name}}{{if .Variant}} ({{.Variant}}){{end}} x{{.Quantity}} - {{.Price}}
{{end}}
Total: {{.Total}}

We'll let you know as soon as it ships.
`

const confirmationHTMLTemplate = `<p>Hi {{.CustomerName}},</p>
<p>Thanks for your order! Payment has been received and your order is confirmed.</p>
<p><strong>Order {{.OrderID}}</strong></p>
<ul>
{{range .Items}}  <li>{{.Name}}{{if .Variant}} ({{.Variant}}){{end}} &times;{{.Quantity}} - {{.Price}}</li>
{{end}}</ul>
<p><strong>Total: {{.Total}}</strong></p>
<p>We'll let you know as soon as it ships.</p>
`

// The HTML variant goes through html/template so customer-supplied fields
// are escaped.
var (
	confirmationText = template.Must(template.New("confirmation_text").Parse(confirmationTextTemplate))
	confirmationHTML = htmltemplate.Must(htmltemplate.New("confirmation_html").Parse(confirmationHTMLTemplate))
)

// RenderOrderConfirmation builds the confirmation email for a paid order.
func RenderOrderConfirmation(order *models.Order) (*Email, error) {
	if order == nil {
		return nil, fmt.Errorf("order is required")
	}

	data := ConfirmationData{
		CustomerName: order.CustomerName,
		OrderID:      order.ID.String(),
		Total:        FormatCents(order.TotalAmountCents, order.Currency),
		Currency:     order.Currency,
	}
	for _, item := range order.Items {
		data.Items = append(data.Items, ConfirmationItem{
			Name:     item.ProductName,
			Variant:  item.Variant,
			Quantity: item.Quantity,
			Price:    FormatCents(item.UnitPriceCents*int64(item.Quantity), order.Currency),
		})
	}

	var text bytes.Buffer
	if err := confirmationText.Execute(&text, data); err != nil {
		return nil, fmt.Errorf("failed to render text body: %w", err)
	}
	var html bytes.Buffer
	if err := confirmationHTML.Execute(&html, data); err != nil {
		return nil, fmt.Errorf("failed to render html body: %w", err)
	}

	return &Email{
		To:      order.CustomerEmail,
		Subject: fmt.Sprintf("Your order is confirmed - %s", shortOrderRef(order.ID.String())),
		Text:    text.String(),
		HTML:    html.String(),
	}, nil
}

// FormatCents renders integer cents as a decimal amount with currency code.
func FormatCents(cents int64, currency string) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d %s", sign, cents/100, cents%100, currency)
}

func shortOrderRef(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}
