package domain

// DefaultProducer is the production type for digital print jobs.
const DefaultProducer = "doe"

// Job is a print job as the shop's back office tracks it.
type Job struct {
	JobID             string          `json:"id" dynamodbav:"job_id"`
	JobName           string          `json:"jobname" dynamodbav:"jobname"`
	Amount            float64         `json:"amount" dynamodbav:"amount"`
	Customer          string          `json:"customer" dynamodbav:"customer"`
	Details           string          `json:"details" dynamodbav:"details"`
	Quantity          int             `json:"quantity" dynamodbav:"quantity"`
	Producer          string          `json:"producer" dynamodbav:"producer"`
	Archiv            bool            `json:"archiv" dynamodbav:"archiv"`
	InvoiceReady      bool            `json:"invoice_ready" dynamodbav:"invoice_ready"`
	PaperReady        bool            `json:"paper_ready" dynamodbav:"paper_ready"`
	PrintReady        bool            `json:"print_ready" dynamodbav:"print_ready"`
	ShippedReady      bool            `json:"shipped_ready" dynamodbav:"shipped_ready"`
	ToShip            bool            `json:"toShip" dynamodbav:"to_ship"`
	FixGuenstig       bool            `json:"FixGuenstig" dynamodbav:"fix_guenstig"`
	JobStart          int64           `json:"jobstart" dynamodbav:"jobstart"` // unix seconds
	ShipmentAddressID *string         `json:"shipmentAddressId,omitempty" dynamodbav:"shipment_address_id,omitempty"`
	CustomerID        *string         `json:"customerId,omitempty" dynamodbav:"customer_id,omitempty"`
	BillingAddress    *BillingAddress `json:"billingAddress,omitempty" dynamodbav:"billing_address,omitempty"`
	BillingEmail      *string         `json:"billingEmail,omitempty" dynamodbav:"billing_email,omitempty"`
	Files             []string        `json:"files,omitempty" dynamodbav:"files,omitempty"` // S3 object keys
}

type BillingAddress struct {
	Company string `json:"firma" dynamodbav:"company"`
	Street  string `json:"strasse" dynamodbav:"street"`
	Zip     string `json:"plz" dynamodbav:"zip"`
	City    string `json:"ort" dynamodbav:"city"`
	Country string `json:"land" dynamodbav:"country"`
}
