package commerce

// Wire types for the commerce platform's Admin API. Monetary values travel
// as decimal strings; identifiers are numeric on the wire and exposed as
// strings by the domain layer.

type userError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type cartLineWire struct {
	MerchandiseID string `json:"merchandise_id"`
	Quantity      int    `json:"quantity"`
}

type cartWire struct {
	ID            string      `json:"id"`
	SubtotalPrice string      `json:"subtotal_price"`
	Currency      string      `json:"currency"`
	UserErrors    []userError `json:"user_errors"`
}

type cartRequest struct {
	Cart struct {
		Lines []cartLineWire `json:"lines"`
	} `json:"cart"`
}

type cartResponse struct {
	Cart cartWire `json:"cart"`
}

type lineItemWire struct {
	VariantID int64 `json:"variant_id"`
	Quantity  int   `json:"quantity"`
}

type shippingLineWire struct {
	Title string `json:"title"`
	Price string `json:"price"`
}

type addressWire struct {
	Address1 string `json:"address1"`
	Address2 string `json:"address2,omitempty"`
	City     string `json:"city"`
	Zip      string `json:"zip"`
	Country  string `json:"country,omitempty"`
	Phone    string `json:"phone,omitempty"`
}

type customerWire struct {
	ID              int64        `json:"id,omitempty"`
	FirstName       string       `json:"first_name,omitempty"`
	LastName        string       `json:"last_name,omitempty"`
	Email           string       `json:"email,omitempty"`
	Phone           string       `json:"phone,omitempty"`
	DefaultAddress  *addressWire `json:"default_address,omitempty"`
	ShippingAddress *addressWire `json:"shipping_address,omitempty"`
}

type draftOrderWire struct {
	ID            int64             `json:"id"`
	SubtotalPrice string            `json:"subtotal_price"`
	TotalPrice    string            `json:"total_price"`
	Currency      string            `json:"currency"`
	InvoiceURL    string            `json:"invoice_url"`
	OrderID       int64             `json:"order_id"`
	Status        string            `json:"status"`
	LineItems     []lineItemWire    `json:"line_items"`
	ShippingLine  *shippingLineWire `json:"shipping_line,omitempty"`
	Customer      *customerWire     `json:"customer,omitempty"`
	Note          string            `json:"note,omitempty"`
}

type draftOrderRequest struct {
	DraftOrder draftOrderWire `json:"draft_order"`
}

type draftOrderResponse struct {
	DraftOrder draftOrderWire `json:"draft_order"`
}

type orderWire struct {
	ID              int64  `json:"id"`
	Name            string `json:"name"`
	FinancialStatus string `json:"financial_status"`
	TotalPrice      string `json:"total_price"`
	Currency        string `json:"currency"`
}

type orderResponse struct {
	Order orderWire `json:"order"`
}

type customerRequest struct {
	Customer customerWire `json:"customer"`
}

type customerResponse struct {
	Customer customerWire `json:"customer"`
}

type customerSearchResponse struct {
	Customers []customerWire `json:"customers"`
}

type completeRequest struct {
	Payment struct {
		Gateway       string `json:"gateway"`
		TransactionID string `json:"transaction_id"`
		Status        string `json:"status"`
	} `json:"payment"`
}

type errorResponse struct {
	Errors string `json:"errors"`
}
