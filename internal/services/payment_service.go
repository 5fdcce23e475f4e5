package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"
)

const defaultPaymentBaseURL = "https://api.mercadopago.com"

// PaymentService creates hosted-checkout preferences and reads payments back
// from a Mercado Pago style gateway.
type PaymentService struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func NewPaymentService(baseURL, accessToken string, client *http.Client) *PaymentService {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = defaultPaymentBaseURL
	}
	return &PaymentService{
		baseURL:    baseURL,
		token:      strings.TrimSpace(accessToken),
		httpClient: newHTTPClient(client),
	}
}

// Enabled reports whether an access token is configured.
func (s *PaymentService) Enabled() bool {
	return s != nil && s.token != ""
}

type PreferenceItem struct {
	ID         string
	Title      string
	Quantity   int
	UnitPrice  decimal.Decimal
	CurrencyID string
}

// preferenceItemPayload carries prices as JSON numbers, which the gateway requires.
type preferenceItemPayload struct {
	ID         string  `json:"id,omitempty"`
	Title      string  `json:"title"`
	Quantity   int     `json:"quantity"`
	UnitPrice  float64 `json:"unit_price"`
	CurrencyID string  `json:"currency_id,omitempty"`
}

type PreferencePayer struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email"`
	Phone string `json:"-"`
}

type preferencePhone struct {
	Number string `json:"number"`
}

type preferencePayerPayload struct {
	Name  string           `json:"name,omitempty"`
	Email string           `json:"email"`
	Phone *preferencePhone `json:"phone,omitempty"`
}

type PreferenceRequest struct {
	Items             []PreferenceItem
	Payer             PreferencePayer
	ShippingCost      decimal.Decimal
	ExternalReference string
	SuccessURL        string
	FailureURL        string
	PendingURL        string
	NotificationURL   string
}

type preferenceShipments struct {
	Cost float64 `json:"cost"`
	Mode string  `json:"mode"`
}

type preferenceBackURLs struct {
	Success string `json:"success,omitempty"`
	Failure string `json:"failure,omitempty"`
	Pending string `json:"pending,omitempty"`
}

type preferencePayload struct {
	Items             []preferenceItemPayload `json:"items"`
	Payer             preferencePayerPayload  `json:"payer"`
	Shipments         *preferenceShipments    `json:"shipments,omitempty"`
	ExternalReference string                  `json:"external_reference"`
	BackURLs          *preferenceBackURLs     `json:"back_urls,omitempty"`
	AutoReturn        string                  `json:"auto_return,omitempty"`
	NotificationURL   string                  `json:"notification_url,omitempty"`
}

// Preference is the hosted checkout created for an order.
type Preference struct {
	ID               string `json:"id"`
	InitPoint        string `json:"init_point"`
	SandboxInitPoint string `json:"sandbox_init_point"`
}

// CreatePreference registers the order with the gateway and returns the redirect URL.
func (s *PaymentService) CreatePreference(ctx context.Context, req PreferenceRequest) (*Preference, error) {
	if !s.Enabled() {
		return nil, ErrNotConfigured
	}
	if len(req.Items) == 0 {
		return nil, errors.New("payment preference requires at least one item")
	}
	if req.ExternalReference == "" {
		return nil, errors.New("payment preference requires an external reference")
	}

	payload := preferencePayload{
		Items: make([]preferenceItemPayload, 0, len(req.Items)),
		Payer: preferencePayerPayload{
			Name:  req.Payer.Name,
			Email: req.Payer.Email,
		},
		ExternalReference: req.ExternalReference,
		NotificationURL:   req.NotificationURL,
	}
	for _, item := range req.Items {
		payload.Items = append(payload.Items, preferenceItemPayload{
			ID:         item.ID,
			Title:      item.Title,
			Quantity:   item.Quantity,
			UnitPrice:  item.UnitPrice.Round(2).InexactFloat64(),
			CurrencyID: item.CurrencyID,
		})
	}
	if req.Payer.Phone != "" {
		payload.Payer.Phone = &preferencePhone{Number: req.Payer.Phone}
	}
	if req.ShippingCost.IsPositive() {
		payload.Shipments = &preferenceShipments{Cost: req.ShippingCost.Round(2).InexactFloat64(), Mode: "not_specified"}
	}
	if req.SuccessURL != "" || req.FailureURL != "" || req.PendingURL != "" {
		payload.BackURLs = &preferenceBackURLs{Success: req.SuccessURL, Failure: req.FailureURL, Pending: req.PendingURL}
		if req.SuccessURL != "" {
			payload.AutoReturn = "approved"
		}
	}

	resp, err := doJSON(ctx, s.httpClient, apiRequestOpts{
		Service: "payment",
		Method:  http.MethodPost,
		URL:     s.baseURL + "/checkout/preferences",
		Body:    payload,
		Token:   s.token,
		Headers: map[string]string{"X-Idempotency-Key": req.ExternalReference},
	})
	if err != nil {
		return nil, err
	}

	var pref Preference
	if err := json.Unmarshal(resp.Body, &pref); err != nil {
		return nil, fmt.Errorf("unmarshal payment preference: %w", err)
	}
	if pref.ID == "" || pref.InitPoint == "" {
		return nil, errors.New("payment preference response missing id or init_point")
	}
	return &pref, nil
}

// PaymentStatusApproved is the gateway status for a captured payment.
const PaymentStatusApproved = "approved"

type Payment struct {
	ID                int64           `json:"id"`
	Status            string          `json:"status"`
	StatusDetail      string          `json:"status_detail"`
	ExternalReference string          `json:"external_reference"`
	TransactionAmount decimal.Decimal `json:"transaction_amount"`
}

func (p *Payment) Approved() bool {
	return p != nil && p.Status == PaymentStatusApproved
}

// GetPayment fetches a payment by the id carried in a gateway notification.
func (s *PaymentService) GetPayment(ctx context.Context, id string) (*Payment, error) {
	if !s.Enabled() {
		return nil, ErrNotConfigured
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, errors.New("payment id is required")
	}

	resp, err := doJSON(ctx, s.httpClient, apiRequestOpts{
		Service: "payment",
		Method:  http.MethodGet,
		URL:     s.baseURL + "/v1/payments/" + url.PathEscape(id),
		Token:   s.token,
	})
	if err != nil {
		return nil, err
	}

	var payment Payment
	if err := json.Unmarshal(resp.Body, &payment); err != nil {
		return nil, fmt.Errorf("unmarshal payment: %w", err)
	}
	return &payment, nil
}
