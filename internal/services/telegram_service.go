package services

import (
	"context"
	"fmt"
	"html"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Joaozinhos/jf-imports-elegance-sub000/internal/models"
)

const defaultTelegramBaseURL = "https://api.telegram.org"

// TelegramService sends back-office notifications to the admin chat.
type TelegramService struct {
	baseURL     string
	botToken    string
	adminChatID string
	httpClient  *http.Client
}

func NewTelegramService(botToken, adminChatID string) *TelegramService {
	return &TelegramService{
		baseURL:     defaultTelegramBaseURL,
		botToken:    strings.TrimSpace(botToken),
		adminChatID: strings.TrimSpace(adminChatID),
		httpClient:  newHTTPClient(nil),
	}
}

// WithBaseURL points the service at another API host.
func (s *TelegramService) WithBaseURL(baseURL string) *TelegramService {
	s.baseURL = strings.TrimRight(baseURL, "/")
	return s
}

func (s *TelegramService) Enabled() bool {
	return s != nil && s.botToken != "" && s.adminChatID != ""
}

type telegramMessage struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

// SendToAdmin posts an HTML message to the admin chat. Unconfigured bots are a no-op.
func (s *TelegramService) SendToAdmin(ctx context.Context, text string) error {
	if !s.Enabled() {
		return nil
	}
	_, err := doJSON(ctx, s.httpClient, apiRequestOpts{
		Service: "telegram",
		Method:  http.MethodPost,
		URL:     fmt.Sprintf("%s/bot%s/sendMessage", s.baseURL, s.botToken),
		Body:    telegramMessage{ChatID: s.adminChatID, Text: text, ParseMode: "HTML"},
	})
	return err
}

// NewOrderMessage formats the admin notification for a freshly placed order.
func NewOrderMessage(order *models.Order) string {
	var items strings.Builder
	for i, item := range order.Items {
		lineTotal := item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
		fmt.Fprintf(&items, "%d. <b>%s</b> %s\n   %d x %s = %s\n",
			i+1,
			html.EscapeString(item.ProductName),
			html.EscapeString(item.Size),
			item.Quantity,
			FormatBRL(item.UnitPrice),
			FormatBRL(lineTotal),
		)
	}

	var extras strings.Builder
	if order.CouponCode != "" {
		fmt.Fprintf(&extras, "<b>🏷 Cupom:</b> %s\n", html.EscapeString(order.CouponCode))
	}
	if order.LoyaltyPointsUsed > 0 {
		fmt.Fprintf(&extras, "<b>⭐ Pontos:</b> %d (-%s)\n", order.LoyaltyPointsUsed, FormatBRL(order.LoyaltyDiscount))
	}

	message := fmt.Sprintf(`<b>🛒 NOVO PEDIDO!</b>
<b>📋 Pedido:</b> %s
<b>👤 Cliente:</b> %s
<b>📧 E-mail:</b> %s
<b>📞 Telefone:</b> %s
<b>📦 Produtos:</b>
%s
%s<b>🚚 Frete:</b> %s %s
<b>💰 Total:</b> %s
<b>💳 Pagamento:</b> %s
━━━━━━━━━━━━━━━━━━`,
		order.OrderNumber,
		html.EscapeString(order.CustomerName),
		html.EscapeString(order.CustomerEmail),
		html.EscapeString(order.CustomerPhone),
		items.String(),
		extras.String(),
		html.EscapeString(order.ShippingService),
		FormatBRL(order.ShippingAmount),
		FormatBRL(order.TotalAmount),
		html.EscapeString(order.PaymentMethod),
	)
	return strings.TrimSpace(message)
}

// NotifyNewOrder tells the admin chat about a new order.
func (s *TelegramService) NotifyNewOrder(ctx context.Context, order *models.Order) error {
	return s.SendToAdmin(ctx, NewOrderMessage(order))
}

// NotifyPaymentApproved tells the admin chat an order was paid.
func (s *TelegramService) NotifyPaymentApproved(ctx context.Context, order *models.Order) error {
	message := fmt.Sprintf(`<b>✅ PAGAMENTO APROVADO!</b>
<b>📋 Pedido:</b> %s
<b>💰 Valor:</b> %s
<b>💳 Pagamento:</b> %s`,
		order.OrderNumber,
		FormatBRL(order.TotalAmount),
		html.EscapeString(order.PaymentID),
	)
	return s.SendToAdmin(ctx, message)
}
