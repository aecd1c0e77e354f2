package handler

import "github.com/shopspring/decimal"

// priceFrom converts a request's float price into the decimal type the
// domain uses for money. Request DTOs bind prices as float64; the
// domain never does float arithmetic on them.
func priceFrom(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

// optionalPrice is priceFrom for optional request fields.
func optionalPrice(f float64) *decimal.Decimal {
	d := decimal.NewFromFloat(f)
	return &d
}
