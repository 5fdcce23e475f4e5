// Package shipping quotes carrier tiers for a destination postal code and
// falls back to a regional estimate when the rate API cannot price any tier.
package shipping

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/Joaozinhos/jf-imports-elegance-sub000/internal/logger"
	"github.com/Joaozinhos/jf-imports-elegance-sub000/internal/metrics"
)

const (
	DefaultTimeout = 10 * time.Second

	unavailableMessage = "service unavailable"
)

// DefaultFreeShippingThreshold is the declared value at which every tier is free.
var DefaultFreeShippingThreshold = decimal.NewFromInt(299)

// RateRequest asks for one tier's price.
type RateRequest struct {
	OriginPostalCode string
	PostalCode       string
	DeclaredValue    decimal.Decimal
	Package          Package
	Tier             Tier
}

// Rate is a carrier price for one tier.
type Rate struct {
	Price        decimal.Decimal
	DeliveryDays int
}

// RateClient prices a single tier.
type RateClient interface {
	Quote(ctx context.Context, req RateRequest) (Rate, error)
}

// Option is one tier in a quote. A tier that could not be priced carries Error
// instead of a price.
type Option struct {
	Service      string          `json:"service"`
	Name         string          `json:"name"`
	Price        decimal.Decimal `json:"price"`
	DeliveryTime string          `json:"delivery_time,omitempty"`
	Error        string          `json:"error,omitempty"`
}

func (o Option) Priced() bool {
	return o.Error == ""
}

// Quote is the resolver result.
type Quote struct {
	PostalCode   string   `json:"postal_code"`
	Options      []Option `json:"options"`
	Fallback     bool     `json:"fallback"`
	FreeShipping bool     `json:"free_shipping"`
	Error        string   `json:"error,omitempty"`
}

// Option returns the priced option for a tier code or carrier name.
func (q *Quote) Option(service string) (Option, bool) {
	tier, ok := TierByCode(service)
	if !ok {
		return Option{}, false
	}
	for _, o := range q.Options {
		if o.Service == tier.Code && o.Priced() {
			return o, true
		}
	}
	return Option{}, false
}

type ResolverOptions struct {
	OriginPostalCode      string
	Timeout               time.Duration
	FreeShippingThreshold decimal.Decimal
	Package               Package
	Logger                *logger.Logger
	Metrics               *metrics.Storefront
}

type Resolver struct {
	client    RateClient
	origin    string
	timeout   time.Duration
	threshold decimal.Decimal
	pkg       Package
	log       *logger.Logger
	metrics   *metrics.Storefront
}

func NewResolver(client RateClient, opts ResolverOptions) *Resolver {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.FreeShippingThreshold.Sign() <= 0 {
		opts.FreeShippingThreshold = DefaultFreeShippingThreshold
	}
	if opts.Package.WeightKG.IsZero() {
		opts.Package = DefaultPackage
	}
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}
	return &Resolver{
		client:    client,
		origin:    opts.OriginPostalCode,
		timeout:   opts.Timeout,
		threshold: opts.FreeShippingThreshold,
		pkg:       opts.Package,
		log:       opts.Logger,
		metrics:   opts.Metrics,
	}
}

// Resolve validates the postal code, quotes every tier concurrently and applies
// the fallback and free-shipping rules. Only a malformed postal code is an error;
// rate API failures are reported inside the quote.
func (r *Resolver) Resolve(ctx context.Context, postalCode string, declaredValue decimal.Decimal) (*Quote, error) {
	cep, err := NormalizePostalCode(postalCode)
	if err != nil {
		return nil, err
	}

	options := make([]Option, len(Tiers))
	g, gctx := errgroup.WithContext(ctx)
	for i, tier := range Tiers {
		g.Go(func() error {
			options[i] = r.quoteTier(gctx, cep, declaredValue, tier)
			return nil
		})
	}
	_ = g.Wait()

	quote := &Quote{PostalCode: cep, Options: options}

	priced := 0
	firstFailure := ""
	for _, o := range options {
		if o.Priced() {
			priced++
		} else if firstFailure == "" {
			firstFailure = o.Error
		}
	}

	switch {
	case priced == 0:
		if firstFailure == "" {
			firstFailure = unavailableMessage
		}
		quote.Error = firstFailure
		quote.Options = estimate(cep)
		quote.Fallback = true
		ctx = r.log.WithFields(ctx, map[string]any{"postal_code": cep, "error": firstFailure})
		r.log.Warn(ctx, "shipping rate api unavailable, using regional estimate")
		r.metrics.ShippingQuote("fallback")
	case priced < len(options):
		r.metrics.ShippingQuote("partial")
	default:
		r.metrics.ShippingQuote("live")
	}

	if declaredValue.GreaterThanOrEqual(r.threshold) {
		quote.FreeShipping = true
		for i := range quote.Options {
			if quote.Options[i].Priced() {
				quote.Options[i].Price = decimal.Zero
			}
		}
	}

	sortOptions(quote.Options)
	return quote, nil
}

func (r *Resolver) quoteTier(ctx context.Context, cep string, declared decimal.Decimal, tier Tier) Option {
	option := Option{Service: tier.Code, Name: tier.Name}
	if r.client == nil {
		option.Error = unavailableMessage
		return option
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	rate, err := r.client.Quote(ctx, RateRequest{
		OriginPostalCode: r.origin,
		PostalCode:       cep,
		DeclaredValue:    declared,
		Package:          r.pkg,
		Tier:             tier,
	})
	if err != nil {
		option.Error = tierError(err)
		r.log.Error(r.log.WithField(ctx, "tier", tier.Name), "shipping tier quote failed", err)
		return option
	}
	if rate.Price.IsNegative() {
		option.Error = unavailableMessage
		return option
	}

	option.Price = rate.Price.Round(2)
	if rate.DeliveryDays > 0 {
		option.DeliveryTime = businessDays(rate.DeliveryDays)
	}
	return option
}

func tierError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	// HTTP failures carry the raw response body, which stays in the log line.
	var rateErr *RateError
	if errors.As(err, &rateErr) && rateErr.Status == 0 && rateErr.Message != "" {
		return rateErr.Message
	}
	return unavailableMessage
}

// sortOptions orders priced options by ascending price; unpriced tiers go last.
func sortOptions(options []Option) {
	sort.SliceStable(options, func(i, j int) bool {
		a, b := options[i], options[j]
		if a.Priced() != b.Priced() {
			return a.Priced()
		}
		return a.Price.LessThan(b.Price)
	})
}
