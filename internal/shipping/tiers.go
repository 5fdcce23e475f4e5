package shipping

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Tier is a carrier service level quoted independently of the others.
type Tier struct {
	Code      string
	Name      string
	ServiceID int
}

var (
	Economy = Tier{Code: "economy", Name: "PAC", ServiceID: 1}
	Express = Tier{Code: "express", Name: "SEDEX", ServiceID: 2}
)

// Tiers lists every tier the resolver quotes.
var Tiers = []Tier{Economy, Express}

// TierByCode accepts either the tier code or the carrier name.
func TierByCode(code string) (Tier, bool) {
	for _, t := range Tiers {
		if t.Code == code || t.Name == code {
			return t, true
		}
	}
	return Tier{}, false
}

// Package is the parcel sent to the rate API.
type Package struct {
	HeightCM int
	WidthCM  int
	LengthCM int
	WeightKG decimal.Decimal
}

// DefaultPackage fits a boxed perfume bottle.
var DefaultPackage = Package{
	HeightCM: 12,
	WidthCM:  15,
	LengthCM: 20,
	WeightKG: decimal.RequireFromString("0.5"),
}

type regionalRate struct {
	price   decimal.Decimal
	minDays int
	maxDays int
}

type regionalEstimate struct {
	economy regionalRate
	express regionalRate
}

func rate(price string, minDays, maxDays int) regionalRate {
	return regionalRate{price: decimal.RequireFromString(price), minDays: minDays, maxDays: maxDays}
}

// regionalEstimates is keyed by the first postal code digit, which identifies
// the destination region.
var regionalEstimates = map[byte]regionalEstimate{
	'0': {economy: rate("18.90", 3, 5), express: rate("29.90", 1, 2)},
	'1': {economy: rate("20.90", 4, 6), express: rate("32.90", 1, 3)},
	'2': {economy: rate("24.90", 5, 8), express: rate("39.90", 2, 3)},
	'3': {economy: rate("24.90", 5, 8), express: rate("39.90", 2, 4)},
	'4': {economy: rate("32.90", 7, 10), express: rate("54.90", 3, 5)},
	'5': {economy: rate("34.90", 8, 12), express: rate("59.90", 3, 6)},
	'6': {economy: rate("39.90", 10, 15), express: rate("69.90", 4, 7)},
	'7': {economy: rate("29.90", 6, 9), express: rate("49.90", 2, 4)},
	'8': {economy: rate("26.90", 5, 8), express: rate("44.90", 2, 4)},
	'9': {economy: rate("28.90", 6, 9), express: rate("46.90", 2, 4)},
}

func leadTime(minDays, maxDays int) string {
	if minDays == maxDays {
		return businessDays(maxDays)
	}
	return fmt.Sprintf("%d-%d business days", minDays, maxDays)
}

func businessDays(days int) string {
	if days == 1 {
		return "1 business day"
	}
	return fmt.Sprintf("%d business days", days)
}

// estimate synthesizes both tiers for a normalized postal code.
func estimate(postalCode string) []Option {
	region, ok := regionalEstimates[postalCode[0]]
	if !ok {
		region = regionalEstimates['6']
	}
	return []Option{
		{Service: Economy.Code, Name: Economy.Name, Price: region.economy.price, DeliveryTime: leadTime(region.economy.minDays, region.economy.maxDays)},
		{Service: Express.Code, Name: Express.Name, Price: region.express.price, DeliveryTime: leadTime(region.express.minDays, region.express.maxDays)},
	}
}
