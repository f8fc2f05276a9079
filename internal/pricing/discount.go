package pricing

// CartSession is the slice of checkout session state the pricing rules read and write.
type CartSession struct {
	DiscountCodeApplied bool
	TotalCartNetAmount  Money
	TotalCartDiscount   Money
}

// ApplyDiscount records the computed discount, replacing any previous value.
func (s *CartSession) ApplyDiscount(amount Money) {
	if amount < 0 {
		amount = 0
	}
	s.TotalCartDiscount = amount
}

// CalculateDiscount recomputes the session discount from scratch. Percent rules
// apply to the net amount only, so shipping is never discounted.
func CalculateDiscount(rule DiscountRule, session *CartSession, clamp bool) {
	if session == nil {
		return
	}
	if !session.DiscountCodeApplied {
		session.ApplyDiscount(0)
		return
	}
	var discount Money
	switch rule.Type {
	case DiscountAmount:
		discount = rule.Value
		if clamp && discount > session.TotalCartNetAmount {
			discount = session.TotalCartNetAmount
		}
	case DiscountPercent:
		discount = (session.TotalCartNetAmount * rule.PercentBps) / 10000
	}
	session.ApplyDiscount(discount)
}
