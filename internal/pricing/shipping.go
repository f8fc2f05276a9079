package pricing

// CalculateShipping returns the shipping charge for the given net amount.
// In-store fulfillment is always free; otherwise amounts at or above the
// threshold ship free and everything else pays the flat rate.
func CalculateShipping(amount Money, rule ShippingRule, store StoreConfig) Money {
	if store.PaymentGateway == GatewayInStore {
		return 0
	}
	if amount >= rule.FreeThreshold {
		return 0
	}
	return rule.FlatAmount
}
