package domain

import (
	"fmt"
	"strings"
)

// Delivery kinds as submitted by the order form.
const (
	DeliveryPickup   = "abholung"
	DeliveryShipping = "versand"
)

// Order is the typed view of the order form payload. Field tags follow the
// storefront's JSON, which is German.
type Order struct {
	JobName        string          `json:"auftragsname" validate:"required"`
	Product        ProductInfo     `json:"produktInfo"`
	Prices         Prices          `json:"preise"`
	Customer       OrderCustomer   `json:"kunde"`
	Delivery       Delivery        `json:"lieferung"`
	Producer       string          `json:"producer,omitempty"`
	BillingAddress *BillingAddress `json:"abweichendeRechnungsadresse,omitempty"`
	BillingEmail   string          `json:"abweichendeRechnungsEmail,omitempty" validate:"omitempty,email"`
}

type ProductInfo struct {
	Product     string   `json:"produkt"`
	Format      string   `json:"format"`
	Pages       string   `json:"umfang"`
	Quantity    int      `json:"auflage"`
	Material    string   `json:"material"`
	Fold        string   `json:"falzart,omitempty"`
	Colors      string   `json:"farbigkeit,omitempty"`
	ColorsFront []string `json:"farbenVorderseite,omitempty"`
	ColorsBack  []string `json:"farbenRueckseite,omitempty"`
}

type Prices struct {
	NetTotal               float64       `json:"gesamtpreisNetto"`
	VAT                    float64       `json:"mwstBetrag"`
	GrossTotal             float64       `json:"gesamtpreisBrutto"`
	Shipping               *ShippingCost `json:"versandkosten,omitempty"`
	NetTotalWithShipping   float64       `json:"gesamtpreisNettoMitVersand,omitempty"`
	VATWithShipping        float64       `json:"mwstBetragMitVersand,omitempty"`
	GrossTotalWithShipping float64       `json:"gesamtpreisBruttoMitVersand,omitempty"`
}

type ShippingCost struct {
	Net   float64 `json:"netto"`
	VAT   float64 `json:"mwst"`
	Gross float64 `json:"brutto"`
}

type OrderCustomer struct {
	FirstName string `json:"vorname" validate:"required"`
	LastName  string `json:"nachname" validate:"required"`
	Company   string `json:"firma,omitempty"`
	Street    string `json:"strasse"`
	Zip       string `json:"plz"`
	City      string `json:"ort"`
	Email     string `json:"email" validate:"required,email"`
	Privacy   bool   `json:"datenschutz"`
}

type Delivery struct {
	Kind            string   `json:"art" validate:"required,oneof=abholung versand"`
	ShippingAddress *Address `json:"lieferadresse,omitempty"`
	BillingAddress  *Address `json:"rechnungsadresse,omitempty"`
}

type Address struct {
	Name   string `json:"name,omitempty"`
	Street string `json:"strasse"`
	Zip    string `json:"plz"`
	City   string `json:"ort"`
}

// Ships reports whether the order goes out by parcel rather than being picked up.
func (o *Order) Ships() bool { return o.Delivery.Kind == DeliveryShipping }

// GrandTotal is the gross amount the customer pays, shipping included when present.
func (p Prices) GrandTotal() float64 {
	if p.Shipping != nil {
		return p.GrossTotalWithShipping
	}
	return p.GrossTotal
}

// TotalVAT is the VAT on the grand total.
func (p Prices) TotalVAT() float64 {
	if p.Shipping != nil {
		return p.VATWithShipping
	}
	return p.VAT
}

// CustomerName formats the name the back office files jobs under:
// "Company LastName FirstName", or "LastName FirstName" without a company.
func (c OrderCustomer) CustomerName() string {
	if strings.TrimSpace(c.Company) != "" {
		return c.Company + " " + c.LastName + " " + c.FirstName
	}
	return c.LastName + " " + c.FirstName
}

// Fields maps the form's customer block onto stored customer fields.
func (c OrderCustomer) Fields() CustomerFields {
	return CustomerFields{
		FirstName:   c.FirstName,
		LastName:    c.LastName,
		Email:       c.Email,
		Address:     c.Street,
		Zip:         c.Zip,
		City:        c.City,
		Company:     c.Company,
		CountryCode: DefaultCountryCode,
	}
}

// DeliveryAddress is where a shipped order goes: the separate shipping
// address when given, else the billing address of the delivery block, else
// the customer's own address.
func (o *Order) DeliveryAddress() Address {
	if a := o.Delivery.ShippingAddress; a != nil {
		return *a
	}
	name := o.Customer.FirstName + " " + o.Customer.LastName
	if o.Customer.Company != "" {
		name = o.Customer.Company + ", " + name
	}
	if a := o.Delivery.BillingAddress; a != nil {
		return Address{Name: name, Street: a.Street, Zip: a.Zip, City: a.City}
	}
	return Address{Name: name, Street: o.Customer.Street, Zip: o.Customer.Zip, City: o.Customer.City}
}

func (p ProductInfo) HasPages() bool { return p.Pages != "" && p.Pages != "-" }
func (p ProductInfo) HasFold() bool  { return p.Fold != "" && p.Fold != "-" }

// ColorLabel describes the inks as "<n>-farbig <front> / <back>", e.g.
// "2-farbig Schwarz, HKS 43 / keine". Empty when no front colors are set.
func (p ProductInfo) ColorLabel() string {
	if len(p.ColorsFront) == 0 {
		return ""
	}
	back := "keine"
	if len(p.ColorsBack) > 0 {
		back = strings.Join(p.ColorsBack, ", ")
	}
	return fmt.Sprintf("%s-farbig %s / %s", p.Colors, strings.Join(p.ColorsFront, ", "), back)
}

// Summary is the one-line product description stored on the job:
// "Product, Format, Material[, Pages]". Pages are omitted when unset or "-".
func (p ProductInfo) Summary() string {
	parts := []string{p.Product, p.Format, p.Material}
	if p.HasPages() {
		parts = append(parts, p.Pages)
	}
	return strings.Join(parts, ", ")
}
