package view

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/lamim/assessment-reports/internal/assessment"
)

// TaxRate is applied to every invoice subtotal
const TaxRate = 0.10

const (
	sellerName  = "Panorama Management Advisory Services Ltd."
	sellerPhone = "(123) 456-7890"
	sellerEmail = "info@panoramamas.com"
	productName = "Panorama Assessment Tool (PAT)"
	invoiceNote = "Thank you for your business! Payment has been successfully processed."
)

var (
	bangladeshOffice = []string{"Awal Center, CoSpace Level 4", "34 Kamal Ataturk Avenue, Banani", "Dhaka-1230, Bangladesh"}
	usOffice         = []string{"2727 Palomar Road", "Celina, TX 75009, USA"}
)

// InvoiceView is a printable paid invoice
type InvoiceView struct {
	Number    string     `json:"number"`
	Date      string     `json:"date"`
	From      Party      `json:"from"`
	To        Party      `json:"to"`
	Status    string     `json:"status"`
	PaymentOn string     `json:"payment_on"`
	Items     []LineItem `json:"items"`
	Subtotal  string     `json:"subtotal"`
	TaxRate   string     `json:"tax_rate"`
	Tax       string     `json:"tax"`
	Total     string     `json:"total"`
	Notes     string     `json:"notes"`
	Logo      string     `json:"logo"`
}

// Party is the seller or the customer block of an invoice
type Party struct {
	Name  string   `json:"name"`
	Lines []string `json:"lines"`
	Phone string   `json:"phone,omitempty"`
	Email string   `json:"email,omitempty"`
}

// LineItem is one billed product
type LineItem struct {
	Description string `json:"description"`
	PlanCycle   string `json:"plan_cycle"`
	UnitPrice   string `json:"unit_price"`
	Quantity    int    `json:"quantity"`
	Amount      string `json:"amount"`
}

// BuildInvoice builds the invoice view. The seller address depends on the
// customer country.
func BuildInvoice(inv assessment.Invoice) InvoiceView {
	p := message.NewPrinter(language.English)
	money := func(v float64) string { return p.Sprintf("$%.2f", v) }
	title := cases.Title(language.English)

	date := inv.Date
	if d := inv.Day(); !d.IsZero() {
		date = d.Format("January 2, 2006")
	}

	plan := title.String(strings.ToLower(strings.TrimSpace(inv.Plan)))
	cycle := title.String(strings.ToLower(strings.TrimSpace(inv.BillingCycle)))

	tax := inv.Price * TaxRate
	return InvoiceView{
		Number:    inv.Number,
		Date:      date,
		From:      seller(inv.BilledTo.Country),
		To:        customer(inv.BilledTo),
		Status:    "PAID",
		PaymentOn: "Payment on: " + date,
		Items: []LineItem{{
			Description: productName,
			PlanCycle:   plan + " Plan (" + cycle + ")",
			UnitPrice:   money(inv.Price),
			Quantity:    1,
			Amount:      money(inv.Price),
		}},
		Subtotal: money(inv.Price),
		TaxRate:  p.Sprintf("%d%%", int(TaxRate*100)),
		Tax:      money(tax),
		Total:    money(inv.Price + tax),
		Notes:    invoiceNote,
		Logo:     DefaultLogo,
	}
}

func seller(country string) Party {
	lines := usOffice
	if strings.EqualFold(strings.TrimSpace(country), "Bangladesh") {
		lines = bangladeshOffice
	}
	return Party{
		Name:  sellerName,
		Lines: append([]string(nil), lines...),
		Phone: sellerPhone,
		Email: sellerEmail,
	}
}

func customer(b assessment.BilledTo) Party {
	lines := []string{b.AddressLine1}
	if b.AddressLine2 != "" {
		lines = append(lines, b.AddressLine2)
	}
	lines = append(lines, strings.TrimSpace(b.City+", "+b.State+" "+b.Zip), b.Country)
	return Party{Name: b.Company, Lines: lines}
}
