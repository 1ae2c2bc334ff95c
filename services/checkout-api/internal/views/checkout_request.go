package views

type CheckoutRequest struct {
	ShippingAddress AddressPayload `json:"shippingAddress" binding:"required"`
	// PaymentMethod is forwarded verbatim to the payment provider when the
	// intent is created.
	PaymentMethod string `json:"paymentMethod"`
}

// AddressPayload carries the shipping destination. Field-level rules are
// checked in the service so rejections come back as one list of issues.
type AddressPayload struct {
	Name       string `json:"name"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2"`
	City       string `json:"city"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
}
