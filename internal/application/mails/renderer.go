package mails

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
	"time"
	_ "time/tzdata"

	"github.com/print-order-api/internal/domain"
)

// Shop is the business contact block printed in customer mails.
type Shop struct {
	Name           string
	Phone          string
	Email          string
	Web            string
	PrintDataEmail string
	PickupAddress  string
	PickupHours    string
}

// OrderMail carries everything the order notices print.
type OrderMail struct {
	Order     *domain.Order
	JobID     string
	Files     []string
	FileLinks []string
	// Deadline is when a missing print file is due.
	Deadline time.Time
	// Verification describes how the customer proved the address.
	Verification string
	// CustomerNote is an optional marker for the operator, e.g. "NEUKUNDE".
	CustomerNote string
}

// Renderer turns orders and links into ready-to-send mails.
type Renderer struct {
	shop Shop
	tmpl *template.Template
}

var funcs = template.FuncMap{
	"money": func(v float64) string { return fmt.Sprintf("%.2f", v) },
	"join":  strings.Join,
}

var berlin = loadBerlin()

func loadBerlin() *time.Location {
	loc, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		return time.UTC
	}
	return loc
}

func NewRenderer(shop Shop) *Renderer {
	t := template.Must(template.New("partials").Funcs(funcs).Parse(partials))
	template.Must(t.New("orderConfirmationRequest").Parse(orderConfirmationRequest))
	template.Must(t.New("emailVerification").Parse(emailVerification))
	template.Must(t.New("operatorNotice").Parse(operatorNotice))
	template.Must(t.New("customerConfirmation").Parse(customerConfirmation))
	template.Must(t.New("operatorSMS").Parse(operatorSMS))
	return &Renderer{shop: shop, tmpl: t}
}

// OrderConfirmationRequest is the mail with the link that confirms a pending order.
func (r *Renderer) OrderConfirmationRequest(o *domain.Order, link string, validity time.Duration) (domain.Mail, error) {
	body, err := r.render("orderConfirmationRequest", map[string]any{
		"Order":    o,
		"Shop":     r.shop,
		"Link":     link,
		"Validity": Validity(validity),
	})
	if err != nil {
		return domain.Mail{}, err
	}
	return domain.Mail{
		To:      o.Customer.Email,
		Subject: "Bitte bestätigen Sie Ihre Bestellung bei " + r.shop.Name,
		Body:    body,
	}, nil
}

// EmailVerification is the mail with the link that proves ownership of email.
func (r *Renderer) EmailVerification(email, link string, validity time.Duration) (domain.Mail, error) {
	body, err := r.render("emailVerification", map[string]any{
		"Shop":     r.shop,
		"Link":     link,
		"Validity": Validity(validity),
	})
	if err != nil {
		return domain.Mail{}, err
	}
	return domain.Mail{
		To:      email,
		Subject: "Bitte verifizieren Sie Ihre E-Mail-Adresse",
		Body:    body,
	}, nil
}

// OperatorNotice is the back-office mail for a confirmed order. It carries
// the print files and replies go to the customer.
func (r *Renderer) OperatorNotice(to string, m OrderMail, attachments []domain.Attachment) (domain.Mail, error) {
	body, err := r.render("operatorNotice", r.orderData(m))
	if err != nil {
		return domain.Mail{}, err
	}
	return domain.Mail{
		To:          to,
		ReplyTo:     m.Order.Customer.Email,
		Subject:     fmt.Sprintf("Neue Bestellung: %s - %s", m.Order.JobName, m.Order.Customer.LastName),
		Body:        body,
		Attachments: attachments,
	}, nil
}

// CustomerConfirmation thanks the customer for a confirmed order.
func (r *Renderer) CustomerConfirmation(m OrderMail) (domain.Mail, error) {
	body, err := r.render("customerConfirmation", r.orderData(m))
	if err != nil {
		return domain.Mail{}, err
	}
	return domain.Mail{
		To:      m.Order.Customer.Email,
		Subject: "Ihre Bestellung bei " + r.shop.Name,
		Body:    body,
	}, nil
}

func (r *Renderer) OperatorSMS(m OrderMail) (string, error) {
	return r.render("operatorSMS", r.orderData(m))
}

func (r *Renderer) orderData(m OrderMail) map[string]any {
	return map[string]any{
		"Order":        m.Order,
		"Shop":         r.shop,
		"JobID":        m.JobID,
		"Files":        m.Files,
		"FileLinks":    m.FileLinks,
		"Deadline":     FormatDeadline(m.Deadline),
		"Verification": m.Verification,
		"CustomerNote": m.CustomerNote,
	}
}

func (r *Renderer) render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}

// Validity spells out a link lifetime, e.g. "24 Stunden".
func Validity(d time.Duration) string {
	switch {
	case d >= time.Hour && d%time.Hour == 0:
		if d == time.Hour {
			return "1 Stunde"
		}
		return fmt.Sprintf("%d Stunden", d/time.Hour)
	case d == time.Minute:
		return "1 Minute"
	default:
		return fmt.Sprintf("%d Minuten", d/time.Minute)
	}
}

// FormatDeadline renders t in German local time: "02.01.2006 um 15:04 Uhr".
func FormatDeadline(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.In(berlin).Format("02.01.2006") + " um " + t.In(berlin).Format("15:04") + " Uhr"
}
