package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/print-order-api/internal/application/mails"
	"github.com/print-order-api/internal/domain"
	"github.com/print-order-api/internal/pkg/dispatch"
	"github.com/print-order-api/internal/pkg/id"
	"github.com/print-order-api/internal/pkg/token"
	"github.com/print-order-api/internal/pkg/validate"
)

// PrintFileGrace is how long a customer has to send a print file they did not upload.
const PrintFileGrace = 24 * time.Hour

// Persistence steps, as reported to the observer.
const (
	stepCustomer = "customer"
	stepAddress  = "shipment_address"
	stepArchive  = "archive"
	stepJob      = "job"
)

// Result reports what a confirmed order left behind. IDs are empty when the
// step that creates them failed; Persisted is true only if every step succeeded.
type Result struct {
	JobID      string `json:"jobId,omitempty"`
	CustomerID string `json:"customerId,omitempty"`
	Persisted  bool   `json:"persisted"`
}

type Service interface {
	// RequestConfirmation parks the order and mails the confirmation link.
	RequestConfirmation(ctx context.Context, orderData json.RawMessage, attachments []domain.Attachment) error
	// Confirm redeems a confirmation token and carries the order out.
	Confirm(ctx context.Context, tok string) (*Result, error)
	// SubmitVerified carries out an order whose email was verified up front.
	SubmitVerified(ctx context.Context, orderData json.RawMessage, attachments []domain.Attachment, existingCustomerID string) (*Result, error)
}

type pendingOrders interface {
	Save(ctx context.Context, orderData json.RawMessage, attachments []domain.Attachment) (string, error)
	Redeem(ctx context.Context, tok string) (*domain.PendingOrder, error)
	Discard(ctx context.Context, tok string) error
	SweepExpired(ctx context.Context) (int, error)
	TTL() time.Duration
}

type customers interface {
	FindByEmail(ctx context.Context, email string) (*domain.Customer, error)
	Create(ctx context.Context, f domain.CustomerFields) (*domain.Customer, error)
	Update(ctx context.Context, customerID string, f domain.CustomerFields) error
	AddShipmentAddress(ctx context.Context, addr domain.Address, customerID string) (string, bool, error)
}

type jobStore interface {
	Create(ctx context.Context, j *domain.Job) error
}

type fileArchive interface {
	Archive(ctx context.Context, jobID string, a domain.Attachment) (string, error)
	PresignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}

type mailSender interface {
	Send(ctx context.Context, m domain.Mail) error
}

type smsSender interface {
	SendSMS(ctx context.Context, to, message string) error
}

type taskQueue interface {
	Submit(t dispatch.Task) bool
}

type observer interface {
	RecordOrderConfirmed()
	RecordPersistFailure(step string)
	RecordNotification(channel string, err error)
}

type nopObserver struct{}

func (nopObserver) RecordOrderConfirmed()            {}
func (nopObserver) RecordPersistFailure(string)      {}
func (nopObserver) RecordNotification(string, error) {}

type service struct {
	pending        pendingOrders
	customers      customers
	jobs           jobStore
	archive        fileArchive
	mailer         mailSender
	sms            smsSender
	tasks          taskQueue
	obs            observer
	mails          *mails.Renderer
	publicBaseURL  string
	operatorEmail  string
	operatorPhone  string
	archiveLinkTTL time.Duration
	now            func() time.Time
}

type ServiceDeps struct {
	PendingOrders pendingOrders
	Customers     customers
	JobRepo       jobStore
	// Archive is optional; without it print files only travel by mail.
	Archive fileArchive
	Mailer  mailSender
	// SMS is optional; it is used only when OperatorPhone is set.
	SMS            smsSender
	Tasks          taskQueue
	Observer       observer
	Mails          *mails.Renderer
	PublicBaseURL  string
	OperatorEmail  string
	OperatorPhone  string
	ArchiveLinkTTL time.Duration
	Now            func() time.Time
}

func NewService(deps ServiceDeps) Service {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	obs := deps.Observer
	if obs == nil {
		obs = nopObserver{}
	}
	return &service{
		pending:        deps.PendingOrders,
		customers:      deps.Customers,
		jobs:           deps.JobRepo,
		archive:        deps.Archive,
		mailer:         deps.Mailer,
		sms:            deps.SMS,
		tasks:          deps.Tasks,
		obs:            obs,
		mails:          deps.Mails,
		publicBaseURL:  deps.PublicBaseURL,
		operatorEmail:  deps.OperatorEmail,
		operatorPhone:  deps.OperatorPhone,
		archiveLinkTTL: deps.ArchiveLinkTTL,
		now:            now,
	}
}

// Parse decodes and validates the order form payload.
func Parse(orderData json.RawMessage) (*domain.Order, error) {
	var o domain.Order
	if err := json.Unmarshal(orderData, &o); err != nil {
		return nil, fmt.Errorf("invalid order data: %w", domain.ErrBadRequest)
	}
	if err := validate.Struct(&o); err != nil {
		return nil, fmt.Errorf("%s: %w", err.Error(), domain.ErrBadRequest)
	}
	return &o, nil
}

func (s *service) RequestConfirmation(ctx context.Context, orderData json.RawMessage, attachments []domain.Attachment) error {
	o, err := Parse(orderData)
	if err != nil {
		return err
	}
	tok, err := s.pending.Save(ctx, orderData, attachments)
	if err != nil {
		return err
	}
	link := s.publicBaseURL + "/bestellung/bestaetigen?token=" + url.QueryEscape(tok)
	m, err := s.mails.OrderConfirmationRequest(o, link, s.pending.TTL())
	if err == nil {
		err = s.mailer.Send(ctx, m)
	}
	s.obs.RecordNotification("verification_mail", err)
	if err != nil {
		// Nobody can confirm an order whose link never arrived.
		if derr := s.pending.Discard(ctx, tok); derr != nil {
			slog.Warn("discard unconfirmable order", "token_prefix", token.Prefix(tok), "err", derr)
		}
		slog.Error("confirmation mail failed", "token_prefix", token.Prefix(tok), "err", err)
		if errors.Is(err, domain.ErrNotification) {
			return err
		}
		return fmt.Errorf("send confirmation mail: %v: %w", err, domain.ErrNotification)
	}
	slog.Info("order awaiting confirmation", "token_prefix", token.Prefix(tok), "attachments", len(attachments))
	return nil
}

func (s *service) Confirm(ctx context.Context, tok string) (*Result, error) {
	if strings.TrimSpace(tok) == "" {
		return nil, fmt.Errorf("token is required: %w", domain.ErrBadRequest)
	}
	if _, err := s.pending.SweepExpired(ctx); err != nil {
		slog.Warn("sweep expired orders", "err", err)
	}

	po, err := s.pending.Redeem(ctx, tok)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			slog.Info("order token not found or expired", "token_prefix", token.Prefix(tok))
		}
		return nil, err
	}
	o, err := Parse(po.OrderData)
	if err != nil {
		return nil, fmt.Errorf("stored order unreadable: %v: %w", err, domain.ErrStorage)
	}

	res, files := s.persist(ctx, o, po.Attachments, s.lookupCustomer)
	s.notify(o, po.Attachments, files, res, mails.OrderMail{
		Verification: "Diese Bestellung wurde vom Kunden per E-Mail-Bestätigungslink verifiziert.",
	})
	s.obs.RecordOrderConfirmed()
	slog.Info("order confirmed", "job_id", res.JobID, "customer_id", res.CustomerID, "persisted", res.Persisted)
	return res, nil
}

func (s *service) SubmitVerified(ctx context.Context, orderData json.RawMessage, attachments []domain.Attachment, existingCustomerID string) (*Result, error) {
	o, err := Parse(orderData)
	if err != nil {
		return nil, err
	}
	existingCustomerID = strings.TrimSpace(existingCustomerID)
	if existingCustomerID == "null" {
		existingCustomerID = ""
	}

	res, files := s.persist(ctx, o, attachments, s.upsertCustomer(existingCustomerID))
	note := "NEUKUNDE - Erstbestellung"
	if existingCustomerID != "" {
		note = "BESTANDSKUNDE - Kundendaten wurden aktualisiert"
	}
	s.notify(o, attachments, files, res, mails.OrderMail{
		Verification: "Diese Bestellung wurde vom Kunden per E-Mail-Verifizierung bestätigt.",
		CustomerNote: note,
	})
	s.obs.RecordOrderConfirmed()
	slog.Info("verified order submitted", "job_id", res.JobID, "customer_id", res.CustomerID, "persisted", res.Persisted)
	return res, nil
}

// customerStep resolves the customer an order is filed under.
type customerStep func(ctx context.Context, o *domain.Order) (string, error)

// lookupCustomer reuses the customer registered under the order's email
// as-is, or creates one.
func (s *service) lookupCustomer(ctx context.Context, o *domain.Order) (string, error) {
	c, err := s.customers.FindByEmail(ctx, o.Customer.Email)
	if err == nil {
		return c.CustomerID, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return "", fmt.Errorf("look up customer: %w", err)
	}
	c, err = s.customers.Create(ctx, o.Customer.Fields())
	if err != nil {
		return "", err
	}
	return c.CustomerID, nil
}

// upsertCustomer refreshes the known customer customerID with the form's
// data, or creates a new one when customerID is empty.
func (s *service) upsertCustomer(customerID string) customerStep {
	return func(ctx context.Context, o *domain.Order) (string, error) {
		if customerID != "" {
			// The ID stays on the job even if the refresh fails.
			return customerID, s.customers.Update(ctx, customerID, o.Customer.Fields())
		}
		c, err := s.customers.Create(ctx, o.Customer.Fields())
		if err != nil {
			return "", err
		}
		return c.CustomerID, nil
	}
}

// persist files the order in the back office. Every step is attempted even
// when an earlier one failed; failures are logged and counted.
func (s *service) persist(ctx context.Context, o *domain.Order, attachments []domain.Attachment, resolve customerStep) (*Result, []string) {
	res := &Result{Persisted: true}
	fail := func(step string, err error) {
		res.Persisted = false
		s.obs.RecordPersistFailure(step)
		slog.Error("persist order step failed", "step", step, "job", o.JobName, "err", err)
	}

	customerID, err := resolve(ctx, o)
	if err != nil {
		fail(stepCustomer, err)
	}
	res.CustomerID = customerID

	var addressID string
	if o.Ships() && o.Delivery.ShippingAddress != nil {
		aid, existing, err := s.customers.AddShipmentAddress(ctx, *o.Delivery.ShippingAddress, customerID)
		if err != nil {
			fail(stepAddress, err)
		} else {
			addressID = aid
			slog.Info("shipment address stored", "address_id", aid, "reused", existing)
		}
	}

	jobID := id.New()
	var files []string
	if s.archive != nil {
		for _, a := range attachments {
			key, err := s.archive.Archive(ctx, jobID, a)
			if err != nil {
				fail(stepArchive, fmt.Errorf("%s: %w", a.Filename, err))
				continue
			}
			files = append(files, key)
		}
	}

	producer := o.Producer
	if producer == "" {
		producer = domain.DefaultProducer
	}
	job := &domain.Job{
		JobID:          jobID,
		JobName:        o.JobName,
		Amount:         o.Prices.NetTotal,
		Customer:       o.Customer.CustomerName(),
		Details:        o.Product.Summary(),
		Quantity:       o.Product.Quantity,
		Producer:       producer,
		ToShip:         o.Ships(),
		FixGuenstig:    true,
		JobStart:       s.now().Unix(),
		BillingAddress: o.BillingAddress,
		Files:          files,
	}
	if addressID != "" {
		job.ShipmentAddressID = &addressID
	}
	if customerID != "" {
		job.CustomerID = &customerID
	}
	if o.BillingEmail != "" {
		job.BillingEmail = &o.BillingEmail
	}
	if err := s.jobs.Create(ctx, job); err != nil {
		fail(stepJob, err)
	} else {
		res.JobID = jobID
	}
	return res, files
}

// notify hands the operator and customer notices to the background queue.
// The caller does not wait for delivery.
func (s *service) notify(o *domain.Order, attachments []domain.Attachment, archived []string, res *Result, m mails.OrderMail) {
	m.Order = o
	m.JobID = res.JobID
	m.Deadline = s.now().Add(PrintFileGrace)
	for _, a := range attachments {
		m.Files = append(m.Files, a.Filename)
	}
	if s.archive != nil && s.archiveLinkTTL > 0 {
		for _, key := range archived {
			link, err := s.archive.PresignedURL(context.Background(), key, s.archiveLinkTTL)
			if err != nil {
				slog.Warn("presign archived file", "key", key, "err", err)
				continue
			}
			m.FileLinks = append(m.FileLinks, link)
		}
	}

	if mail, err := s.mails.OperatorNotice(s.operatorEmail, m, attachments); err != nil {
		slog.Error("render operator mail", "err", err)
	} else {
		s.submit("operator_mail", func(ctx context.Context) error { return s.mailer.Send(ctx, mail) })
	}
	if mail, err := s.mails.CustomerConfirmation(m); err != nil {
		slog.Error("render customer mail", "err", err)
	} else {
		s.submit("customer_mail", func(ctx context.Context) error { return s.mailer.Send(ctx, mail) })
	}
	if s.sms != nil && s.operatorPhone != "" {
		if text, err := s.mails.OperatorSMS(m); err != nil {
			slog.Error("render operator sms", "err", err)
		} else {
			s.submit("operator_sms", func(ctx context.Context) error { return s.sms.SendSMS(ctx, s.operatorPhone, text) })
		}
	}
}

func (s *service) submit(channel string, run func(ctx context.Context) error) {
	ok := s.tasks.Submit(dispatch.Task{
		Name: channel,
		Run: func(ctx context.Context) error {
			err := run(ctx)
			s.obs.RecordNotification(channel, err)
			return err
		},
	})
	if !ok {
		s.obs.RecordNotification(channel, fmt.Errorf("queue full: %w", domain.ErrNotification))
		slog.Error("notification dropped", "channel", channel)
	}
}
