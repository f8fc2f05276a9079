package pricing

// Quote aggregates computed pricing components for a checkout session.
type Quote struct {
	Subtotal Money
	Discount Money
	Shipping Money
	Total    Money
}

// Calculator applies a fixed Config to checkout sessions. It holds no mutable
// state and may be shared across goroutines.
type Calculator struct {
	cfg Config
}

// NewCalculator returns a Calculator bound to cfg.
func NewCalculator(cfg Config) *Calculator {
	return &Calculator{cfg: cfg}
}

// Config returns the configuration the calculator was built with.
func (c *Calculator) Config() Config { return c.cfg }

// Discount populates session.TotalCartDiscount.
func (c *Calculator) Discount(session *CartSession) {
	CalculateDiscount(c.cfg.Discount, session, c.cfg.ClampDiscount)
}

// Shipping returns the shipping charge for the provided net amount.
func (c *Calculator) Shipping(amount Money) Money {
	return CalculateShipping(amount, c.cfg.Shipping, c.cfg.Store)
}

// Quote runs the discount first and then evaluates shipping against the
// pre-discount net amount. A nil session yields the zero Quote.
func (c *Calculator) Quote(session *CartSession) Quote {
	if session == nil {
		return Quote{}
	}
	if session.TotalCartNetAmount < 0 {
		session.TotalCartNetAmount = 0
	}
	c.Discount(session)
	net := session.TotalCartNetAmount
	shipping := c.Shipping(net)
	return Quote{
		Subtotal: net,
		Discount: session.TotalCartDiscount,
		Shipping: shipping,
		Total:    net - session.TotalCartDiscount + shipping,
	}
}
