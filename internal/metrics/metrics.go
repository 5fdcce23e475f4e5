package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Storefront groups the business counters exported on /metrics.
// A nil *Storefront is valid and records nothing.
type Storefront struct {
	ordersCreated  prometheus.Counter
	loyaltyPoints  *prometheus.CounterVec
	shippingQuotes *prometheus.CounterVec
	adminLogins    *prometheus.CounterVec
}

// NewStorefront registers the storefront counters on reg.
func NewStorefront(reg prometheus.Registerer) *Storefront {
	if reg == nil {
		return nil
	}
	m := &Storefront{
		ordersCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "storefront_orders_created_total",
			Help: "Orders committed at checkout.",
		}),
		loyaltyPoints: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_loyalty_points_total",
			Help: "Loyalty points moved through the ledger.",
		}, []string{"kind"}),
		shippingQuotes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_shipping_quotes_total",
			Help: "Shipping quotes by outcome.",
		}, []string{"outcome"}),
		adminLogins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_admin_login_total",
			Help: "Admin login attempts by outcome.",
		}, []string{"outcome"}),
	}
	reg.MustRegister(m.ordersCreated, m.loyaltyPoints, m.shippingQuotes, m.adminLogins)
	return m
}

func (m *Storefront) OrderCreated() {
	if m == nil {
		return
	}
	m.ordersCreated.Inc()
}

// LoyaltyPoints records points earned or redeemed.
func (m *Storefront) LoyaltyPoints(kind string, points int64) {
	if m == nil || points <= 0 {
		return
	}
	m.loyaltyPoints.WithLabelValues(normalizeLabel(kind)).Add(float64(points))
}

// ShippingQuote records "live", "partial" or "fallback".
func (m *Storefront) ShippingQuote(outcome string) {
	if m == nil {
		return
	}
	m.shippingQuotes.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func (m *Storefront) AdminLogin(outcome string) {
	if m == nil {
		return
	}
	m.adminLogins.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
