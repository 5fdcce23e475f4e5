package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Joaozinhos/jf-imports-elegance-sub000/internal/models"
)

const defaultEmailBaseURL = "https://api.resend.com"

type EmailType string

const (
	EmailConfirmation    EmailType = "confirmation"
	EmailPaymentApproved EmailType = "payment_approved"
	EmailShipped         EmailType = "shipped"
)

var ErrUnknownEmailType = errors.New("unknown email type")

// ParseEmailType accepts only the three transactional email kinds.
func ParseEmailType(value string) (EmailType, error) {
	switch t := EmailType(strings.TrimSpace(value)); t {
	case EmailConfirmation, EmailPaymentApproved, EmailShipped:
		return t, nil
	}
	return "", ErrUnknownEmailType
}

const layoutHTML = `<!DOCTYPE html>
<html lang="pt-BR">
<body style="margin:0;padding:0;background:#f6f3ee;font-family:Georgia,serif;color:#1c1c1c">
<table width="100%" cellpadding="0" cellspacing="0"><tr><td align="center" style="padding:32px 16px">
<table width="600" cellpadding="0" cellspacing="0" style="background:#ffffff;border-radius:8px;padding:32px">
<tr><td style="text-align:center;letter-spacing:4px;font-size:20px;color:#b08d57">{{.StoreName}}</td></tr>
<tr><td style="padding-top:24px">
<h1 style="font-size:22px;font-weight:normal">{{template "heading" .}}</h1>
<p>Olá, {{.CustomerName}}.</p>
{{template "body" .}}
<p style="margin-top:24px">Pedido <strong>{{.OrderNumber}}</strong></p>
<table width="100%" cellpadding="6" cellspacing="0" style="border-collapse:collapse;font-size:14px">
{{range .Items}}<tr style="border-bottom:1px solid #eee">
<td>{{.Name}}{{if .Brand}} · {{.Brand}}{{end}}{{if .Size}} · {{.Size}}{{end}}</td>
<td align="center">{{.Quantity}}x</td>
<td align="right">{{.LineTotal}}</td>
</tr>{{end}}
<tr><td colspan="2">Subtotal</td><td align="right">{{.Subtotal}}</td></tr>
{{if .Discount}}<tr><td colspan="2">Descontos</td><td align="right">-{{.Discount}}</td></tr>{{end}}
<tr><td colspan="2">Frete</td><td align="right">{{.Shipping}}</td></tr>
<tr><td colspan="2"><strong>Total</strong></td><td align="right"><strong>{{.Total}}</strong></td></tr>
</table>
{{if .TrackURL}}<p style="margin-top:24px"><a href="{{.TrackURL}}" style="color:#b08d57">Acompanhar pedido</a></p>{{end}}
</td></tr>
</table>
</td></tr></table>
</body>
</html>`

var emailBodies = map[EmailType]string{
	EmailConfirmation: `{{define "heading"}}Recebemos seu pedido{{end}}
{{define "body"}}<p>Seu pedido foi registrado e aguarda a confirmação do pagamento.</p>{{end}}`,
	EmailPaymentApproved: `{{define "heading"}}Pagamento aprovado{{end}}
{{define "body"}}<p>Confirmamos o pagamento do seu pedido. Agora vamos separar e embalar seus perfumes.</p>{{end}}`,
	EmailShipped: `{{define "heading"}}Seu pedido foi enviado{{end}}
{{define "body"}}<p>Seu pedido está a caminho.</p>
<p>Código de rastreio: <strong>{{.TrackingCode}}</strong></p>{{end}}`,
}

var emailSubjects = map[EmailType]string{
	EmailConfirmation:    "Pedido %s recebido",
	EmailPaymentApproved: "Pagamento do pedido %s aprovado",
	EmailShipped:         "Pedido %s enviado",
}

type emailLine struct {
	Name      string
	Brand     string
	Size      string
	Quantity  int
	LineTotal string
}

type emailView struct {
	StoreName    string
	CustomerName string
	OrderNumber  string
	Items        []emailLine
	Subtotal     string
	Discount     string
	Shipping     string
	Total        string
	TrackingCode string
	TrackURL     string
}

// EmailService renders the transactional templates and posts them to a
// Resend style email API.
type EmailService struct {
	baseURL    string
	apiKey     string
	from       string
	siteURL    string
	storeName  string
	templates  map[EmailType]*template.Template
	httpClient *http.Client
}

type EmailOptions struct {
	BaseURL   string
	APIKey    string
	From      string
	SiteURL   string
	StoreName string
	Client    *http.Client
}

func NewEmailService(opts EmailOptions) *EmailService {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultEmailBaseURL
	}
	if opts.StoreName == "" {
		opts.StoreName = "JF IMPORTS"
	}

	templates := make(map[EmailType]*template.Template, len(emailBodies))
	for kind, body := range emailBodies {
		tmpl := template.Must(template.New("layout").Parse(layoutHTML))
		templates[kind] = template.Must(tmpl.Parse(body))
	}

	return &EmailService{
		baseURL:    baseURL,
		apiKey:     strings.TrimSpace(opts.APIKey),
		from:       opts.From,
		siteURL:    strings.TrimRight(opts.SiteURL, "/"),
		storeName:  opts.StoreName,
		templates:  templates,
		httpClient: newHTTPClient(opts.Client),
	}
}

func (s *EmailService) Enabled() bool {
	return s != nil && s.apiKey != ""
}

// Render builds the subject and HTML body for an order.
func (s *EmailService) Render(kind EmailType, order *models.Order) (string, string, error) {
	tmpl, ok := s.templates[kind]
	if !ok {
		return "", "", ErrUnknownEmailType
	}
	if order == nil {
		return "", "", errors.New("order is required")
	}

	view := emailView{
		StoreName:    s.storeName,
		CustomerName: order.CustomerName,
		OrderNumber:  order.OrderNumber,
		Subtotal:     FormatBRL(order.Subtotal),
		Shipping:     FormatBRL(order.ShippingAmount),
		Total:        FormatBRL(order.TotalAmount),
	}
	discount := order.DiscountAmount.Add(order.LoyaltyDiscount)
	if discount.IsPositive() {
		view.Discount = FormatBRL(discount)
	}
	if order.TrackingCode != nil {
		view.TrackingCode = *order.TrackingCode
	}
	if s.siteURL != "" && order.AccessToken != "" {
		view.TrackURL = s.siteURL + "/pedido/" + order.AccessToken
	}
	for _, item := range order.Items {
		view.Items = append(view.Items, emailLine{
			Name:      item.ProductName,
			Brand:     item.Brand,
			Size:      item.Size,
			Quantity:  item.Quantity,
			LineTotal: FormatBRL(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))),
		})
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", view); err != nil {
		return "", "", fmt.Errorf("render %s email: %w", kind, err)
	}
	return fmt.Sprintf(emailSubjects[kind], order.OrderNumber), buf.String(), nil
}

type emailPayload struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

// Send renders kind for order and delivers it to the customer.
func (s *EmailService) Send(ctx context.Context, kind EmailType, order *models.Order) error {
	subject, html, err := s.Render(kind, order)
	if err != nil {
		return err
	}
	if !s.Enabled() {
		return ErrNotConfigured
	}
	if strings.TrimSpace(order.CustomerEmail) == "" {
		return errors.New("order has no customer email")
	}

	_, err = doJSON(ctx, s.httpClient, apiRequestOpts{
		Service: "email",
		Method:  http.MethodPost,
		URL:     s.baseURL + "/emails",
		Token:   s.apiKey,
		Body: emailPayload{
			From:    s.from,
			To:      []string{order.CustomerEmail},
			Subject: subject,
			HTML:    html,
		},
	})
	return err
}
