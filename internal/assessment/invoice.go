package assessment

import "time"

// InvoiceDateLayout is the layout of Invoice.Date
const InvoiceDateLayout = "2006-01-02"

// BilledTo is the customer an invoice is addressed to
type BilledTo struct {
	Name         string `json:"name"`
	AddressLine1 string `json:"addressLine1" validate:"required"`
	AddressLine2 string `json:"addressLine2,omitempty"`
	City         string `json:"city" validate:"required"`
	State        string `json:"state"`
	Zip          string `json:"zip"`
	Country      string `json:"country" validate:"required"`
	Company      string `json:"company" validate:"required"`
}

// Invoice is a paid subscription invoice
type Invoice struct {
	Number       string   `json:"invoiceNumber" validate:"required"`
	Date         string   `json:"invoiceDate" validate:"required,datetime=2006-01-02"`
	BilledTo     BilledTo `json:"billedTo"`
	Plan         string   `json:"plan" validate:"required"`
	Price        float64  `json:"price" validate:"gte=0"`
	BillingCycle string   `json:"billingCycle" validate:"required"`
}

// Day parses the invoice date, returning the zero time when it is malformed
func (i Invoice) Day() time.Time {
	t, err := time.Parse(InvoiceDateLayout, i.Date)
	if err != nil {
		return time.Time{}
	}
	return t
}
