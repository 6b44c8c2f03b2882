package order

// Shipping is a deterministic table keyed on method and unit count: a flat
// base plus an increment per unit beyond the first. Standard shipping is free
// above a subtotal threshold; express never is. Amounts are cents.
const (
	ShippingMethodStandard = "standard"
	ShippingMethodExpress  = "express"

	standardBase      int64 = 500
	standardPerExtra  int64 = 100
	expressBase       int64 = 1200
	expressPerExtra   int64 = 150
	freeStandardAbove int64 = 15000
)

func shippingCost(method string, units int, subtotal int64) int64 {
	if units <= 0 {
		return 0
	}
	extra := int64(units - 1)

	switch method {
	case ShippingMethodExpress:
		return expressBase + expressPerExtra*extra
	default:
		if subtotal >= freeStandardAbove {
			return 0
		}
		return standardBase + standardPerExtra*extra
	}
}

// taxFor is zero in the current domain: listed prices are tax-inclusive. The
// hook stays so the total formula (subtotal + shipping + tax - discount)
// reads the same when the policy changes.
func taxFor(subtotal int64) int64 {
	_ = subtotal
	return 0
}
