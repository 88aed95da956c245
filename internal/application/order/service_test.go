package order

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/print-order-api/internal/application/expiring"
	"github.com/print-order-api/internal/application/mails"
	"github.com/print-order-api/internal/application/pendingorder"
	"github.com/print-order-api/internal/domain"
	"github.com/print-order-api/internal/infrastructure/memory"
	"github.com/print-order-api/internal/pkg/dispatch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockCustomers struct{ mock.Mock }

func (m *mockCustomers) FindByEmail(ctx context.Context, email string) (*domain.Customer, error) {
	args := m.Called(ctx, email)
	if c, _ := args.Get(0).(*domain.Customer); c != nil {
		return c, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockCustomers) Create(ctx context.Context, f domain.CustomerFields) (*domain.Customer, error) {
	args := m.Called(ctx, f)
	if c, _ := args.Get(0).(*domain.Customer); c != nil {
		return c, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockCustomers) Update(ctx context.Context, customerID string, f domain.CustomerFields) error {
	return m.Called(ctx, customerID, f).Error(0)
}
func (m *mockCustomers) AddShipmentAddress(ctx context.Context, addr domain.Address, customerID string) (string, bool, error) {
	args := m.Called(ctx, addr, customerID)
	return args.String(0), args.Bool(1), args.Error(2)
}

type mockJobs struct{ mock.Mock }

func (m *mockJobs) Create(ctx context.Context, j *domain.Job) error {
	return m.Called(ctx, j).Error(0)
}

type mockArchive struct{ mock.Mock }

func (m *mockArchive) Archive(ctx context.Context, jobID string, a domain.Attachment) (string, error) {
	args := m.Called(ctx, jobID, a)
	return args.String(0), args.Error(1)
}
func (m *mockArchive) PresignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	args := m.Called(ctx, key, ttl)
	return args.String(0), args.Error(1)
}

// fakeMailer records sent mails; failFor makes sends to that address fail.
type fakeMailer struct {
	mu      sync.Mutex
	sent    []domain.Mail
	failFor string
}

func (f *fakeMailer) Send(_ context.Context, m domain.Mail) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failFor != "" && m.To == f.failFor {
		return errors.New("smtp down")
	}
	f.sent = append(f.sent, m)
	return nil
}

func (f *fakeMailer) to(addr string) []domain.Mail {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Mail
	for _, m := range f.sent {
		if m.To == addr {
			out = append(out, m)
		}
	}
	return out
}

type fakeSMS struct {
	to, text string
}

func (f *fakeSMS) SendSMS(_ context.Context, to, text string) error {
	f.to, f.text = to, text
	return nil
}

// inlineQueue runs tasks as they are submitted.
type inlineQueue struct {
	names []string
	full  bool
}

func (q *inlineQueue) Submit(t dispatch.Task) bool {
	if q.full {
		return false
	}
	q.names = append(q.names, t.Name)
	_ = t.Run(context.Background())
	return true
}

type fakeObserver struct {
	confirmed     int
	persistFailed []string
	notified      map[string]int
	failed        map[string]int
}

func (o *fakeObserver) RecordOrderConfirmed()            { o.confirmed++ }
func (o *fakeObserver) RecordPersistFailure(step string) { o.persistFailed = append(o.persistFailed, step) }

func (o *fakeObserver) RecordNotification(ch string, err error) {
	if o.notified == nil {
		o.notified, o.failed = map[string]int{}, map[string]int{}
	}
	if err != nil {
		o.failed[ch]++
		return
	}
	o.notified[ch]++
}

// --- fixtures ---

const operator = "orders@example.com"

var tokenInLink = regexp.MustCompile(`token=([0-9a-f]{64})`)

type fixture struct {
	svc       Service
	pending   *pendingorder.Manager
	backend   *memory.RecordStore
	customers *mockCustomers
	jobs      *mockJobs
	archive   *mockArchive
	mailer    *fakeMailer
	sms       *fakeSMS
	queue     *inlineQueue
	obs       *fakeObserver
	clock     time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	backend, err := memory.NewRecordStore(100)
	require.NoError(t, err)
	f := &fixture{
		backend:   backend,
		customers: new(mockCustomers),
		jobs:      new(mockJobs),
		archive:   new(mockArchive),
		mailer:    &fakeMailer{},
		sms:       &fakeSMS{},
		queue:     &inlineQueue{},
		obs:       &fakeObserver{},
		clock:     time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	now := func() time.Time { return f.clock }
	f.pending = pendingorder.NewManager(backend, 24*time.Hour, expiring.WithClock(now))
	f.svc = NewService(ServiceDeps{
		PendingOrders:  f.pending,
		Customers:      f.customers,
		JobRepo:        f.jobs,
		Archive:        f.archive,
		Mailer:         f.mailer,
		SMS:            f.sms,
		Tasks:          f.queue,
		Observer:       f.obs,
		Mails:          mails.NewRenderer(mails.Shop{Name: "Testdruck", PrintDataEmail: "daten@example.com"}),
		PublicBaseURL:  "https://shop.example",
		OperatorEmail:  operator,
		OperatorPhone:  "+4915100000",
		ArchiveLinkTTL: time.Hour,
		Now:            now,
	})
	return f
}

func orderJSON(email string) json.RawMessage {
	return json.RawMessage(`{
		"auftragsname": "Flyer A4",
		"produktInfo": {"produkt": "Flyer", "format": "A4", "umfang": "-", "auflage": 500, "material": "135g"},
		"preise": {"gesamtpreisNetto": 100, "mwstBetrag": 19, "gesamtpreisBrutto": 119},
		"kunde": {"vorname": "Ada", "nachname": "Lovelace", "strasse": "Hauptstr. 1", "plz": "10115", "ort": "Berlin", "email": "` + email + `", "datenschutz": true},
		"lieferung": {"art": "versand", "lieferadresse": {"name": "Lager", "strasse": "Weg 2", "plz": "20095", "ort": "Hamburg"}}
	}`)
}

func (f *fixture) requestToken(t *testing.T, attachments []domain.Attachment) string {
	t.Helper()
	require.NoError(t, f.svc.RequestConfirmation(context.Background(), orderJSON("ada@example.com"), attachments))
	sent := f.mailer.to("ada@example.com")
	require.Len(t, sent, 1)
	m := tokenInLink.FindStringSubmatch(sent[0].Body)
	require.Len(t, m, 2)
	f.mailer.sent = nil
	return m[1]
}

// --- RequestConfirmation ---

func TestRequestConfirmation_MailsLink(t *testing.T) {
	f := newFixture(t)

	tok := f.requestToken(t, nil)

	po, err := f.pending.Resolve(context.Background(), tok)
	require.NoError(t, err)
	assert.JSONEq(t, string(orderJSON("ada@example.com")), string(po.OrderData))
	assert.Equal(t, 1, f.obs.notified["verification_mail"])
}

func TestRequestConfirmation_LinkFormat(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.svc.RequestConfirmation(context.Background(), orderJSON("ada@example.com"), nil))

	body := f.mailer.to("ada@example.com")[0].Body
	assert.Regexp(t, `https://shop\.example/bestellung/bestaetigen\?token=[0-9a-f]{64}`, body)
}

func TestRequestConfirmation_InvalidOrder(t *testing.T) {
	f := newFixture(t)

	err := f.svc.RequestConfirmation(context.Background(), orderJSON("not-an-email"), nil)
	assert.True(t, errors.Is(err, domain.ErrBadRequest))
	assert.ErrorContains(t, err, "kunde.email")

	err = f.svc.RequestConfirmation(context.Background(), json.RawMessage(`{`), nil)
	assert.True(t, errors.Is(err, domain.ErrBadRequest))
	assert.Empty(t, f.mailer.sent)
}

func TestRequestConfirmation_MailFailureDiscardsOrder(t *testing.T) {
	f := newFixture(t)
	f.mailer.failFor = "ada@example.com"

	err := f.svc.RequestConfirmation(context.Background(), orderJSON("ada@example.com"), nil)
	assert.True(t, errors.Is(err, domain.ErrNotification))
	assert.Equal(t, 1, f.obs.failed["verification_mail"])

	assert.Zero(t, f.backend.Len())
}

// --- Confirm ---

func TestConfirm_PersistsAndNotifies(t *testing.T) {
	f := newFixture(t)
	pdf := domain.Attachment{Filename: "flyer.pdf", Content: []byte("%PDF-1.4"), ContentType: "application/pdf"}
	tok := f.requestToken(t, []domain.Attachment{pdf})

	f.customers.On("FindByEmail", mock.Anything, "ada@example.com").Return(nil, domain.ErrNotFound)
	f.customers.On("Create", mock.Anything, mock.MatchedBy(func(c domain.CustomerFields) bool {
		return c.Email == "ada@example.com" && c.CountryCode == "DE"
	})).Return(&domain.Customer{CustomerID: "C1"}, nil)
	f.customers.On("AddShipmentAddress", mock.Anything,
		domain.Address{Name: "Lager", Street: "Weg 2", Zip: "20095", City: "Hamburg"}, "C1").Return("A1", false, nil)
	f.archive.On("Archive", mock.Anything, mock.Anything, pdf).Return("jobs/J/flyer.pdf", nil)
	f.archive.On("PresignedURL", mock.Anything, "jobs/J/flyer.pdf", time.Hour).Return("https://s3.example/flyer.pdf", nil)
	var job *domain.Job
	f.jobs.On("Create", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		job = args.Get(1).(*domain.Job)
	}).Return(nil)

	res, err := f.svc.Confirm(context.Background(), tok)
	require.NoError(t, err)

	assert.True(t, res.Persisted)
	assert.Equal(t, "C1", res.CustomerID)
	require.NotNil(t, job)
	assert.Equal(t, job.JobID, res.JobID)
	assert.Equal(t, "Flyer A4", job.JobName)
	assert.Equal(t, 100.0, job.Amount)
	assert.Equal(t, "Lovelace Ada", job.Customer)
	assert.Equal(t, "Flyer, A4, 135g", job.Details)
	assert.Equal(t, 500, job.Quantity)
	assert.Equal(t, domain.DefaultProducer, job.Producer)
	assert.True(t, job.ToShip)
	assert.True(t, job.FixGuenstig)
	assert.False(t, job.Archiv)
	assert.Equal(t, f.clock.Unix(), job.JobStart)
	assert.Equal(t, "A1", *job.ShipmentAddressID)
	assert.Equal(t, "C1", *job.CustomerID)
	assert.Equal(t, []string{"jobs/J/flyer.pdf"}, job.Files)

	ops := f.mailer.to(operator)
	require.Len(t, ops, 1)
	assert.Equal(t, "ada@example.com", ops[0].ReplyTo)
	require.Len(t, ops[0].Attachments, 1)
	assert.Equal(t, pdf.Content, ops[0].Attachments[0].Content)
	assert.Contains(t, ops[0].Body, "https://s3.example/flyer.pdf")
	assert.Contains(t, ops[0].Body, "Bestätigungslink verifiziert")

	customer := f.mailer.to("ada@example.com")
	require.Len(t, customer, 1)
	assert.Empty(t, customer[0].Attachments)

	assert.Equal(t, "+4915100000", f.sms.to)
	assert.Contains(t, f.sms.text, "Flyer A4")
	assert.Equal(t, []string{"operator_mail", "customer_mail", "operator_sms"}, f.queue.names)
	assert.Equal(t, 1, f.obs.confirmed)
}

func TestConfirm_TokenIsSingleUse(t *testing.T) {
	f := newFixture(t)
	tok := f.requestToken(t, nil)
	f.customers.On("FindByEmail", mock.Anything, mock.Anything).Return(&domain.Customer{CustomerID: "C1"}, nil)
	f.customers.On("AddShipmentAddress", mock.Anything, mock.Anything, mock.Anything).Return("A1", true, nil)
	f.jobs.On("Create", mock.Anything, mock.Anything).Return(nil)

	_, err := f.svc.Confirm(context.Background(), tok)
	require.NoError(t, err)

	_, err = f.svc.Confirm(context.Background(), tok)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
	f.jobs.AssertNumberOfCalls(t, "Create", 1)
}

func TestConfirm_ExistingCustomerIsNotUpdated(t *testing.T) {
	f := newFixture(t)
	tok := f.requestToken(t, nil)
	f.customers.On("FindByEmail", mock.Anything, "ada@example.com").Return(&domain.Customer{CustomerID: "C9"}, nil)
	f.customers.On("AddShipmentAddress", mock.Anything, mock.Anything, "C9").Return("A1", true, nil)
	f.jobs.On("Create", mock.Anything, mock.Anything).Return(nil)

	res, err := f.svc.Confirm(context.Background(), tok)
	require.NoError(t, err)
	assert.Equal(t, "C9", res.CustomerID)
	f.customers.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	f.customers.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
}

func TestConfirm_ExpiredToken(t *testing.T) {
	f := newFixture(t)
	tok := f.requestToken(t, nil)
	f.clock = f.clock.Add(24*time.Hour + time.Second)

	_, err := f.svc.Confirm(context.Background(), tok)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
	f.jobs.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	assert.Empty(t, f.mailer.sent)
}

func TestConfirm_UnknownAndEmptyToken(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Confirm(context.Background(), strings.Repeat("ab", 32))
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	_, err = f.svc.Confirm(context.Background(), "  ")
	assert.True(t, errors.Is(err, domain.ErrBadRequest))
}

func TestConfirm_PersistFailuresDoNotStopNotification(t *testing.T) {
	f := newFixture(t)
	tok := f.requestToken(t, nil)
	f.customers.On("FindByEmail", mock.Anything, mock.Anything).Return(nil, errors.New("throttled"))
	f.customers.On("AddShipmentAddress", mock.Anything, mock.Anything, "").Return("", false, errors.New("throttled"))
	f.jobs.On("Create", mock.Anything, mock.MatchedBy(func(j *domain.Job) bool {
		return j.CustomerID == nil && j.ShipmentAddressID == nil
	})).Return(errors.New("throttled"))

	res, err := f.svc.Confirm(context.Background(), tok)
	require.NoError(t, err)

	assert.False(t, res.Persisted)
	assert.Empty(t, res.JobID)
	assert.Empty(t, res.CustomerID)
	assert.Equal(t, []string{stepCustomer, stepAddress, stepJob}, f.obs.persistFailed)
	ops := f.mailer.to(operator)
	require.Len(t, ops, 1)
	assert.Contains(t, ops[0].Body, "KEINE DRUCKDATEI")
	assert.Contains(t, ops[0].Body, "Job-ID: [N/A]")
	f.customers.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestConfirm_ArchiveFailureKeepsJob(t *testing.T) {
	f := newFixture(t)
	pdf := domain.Attachment{Filename: "flyer.pdf", Content: []byte("%PDF")}
	tok := f.requestToken(t, []domain.Attachment{pdf})
	f.customers.On("FindByEmail", mock.Anything, mock.Anything).Return(&domain.Customer{CustomerID: "C1"}, nil)
	f.customers.On("AddShipmentAddress", mock.Anything, mock.Anything, mock.Anything).Return("A1", false, nil)
	f.archive.On("Archive", mock.Anything, mock.Anything, mock.Anything).Return("", domain.ErrStorage)
	f.jobs.On("Create", mock.Anything, mock.MatchedBy(func(j *domain.Job) bool { return len(j.Files) == 0 })).Return(nil)

	res, err := f.svc.Confirm(context.Background(), tok)
	require.NoError(t, err)
	assert.False(t, res.Persisted)
	assert.NotEmpty(t, res.JobID)
	assert.Equal(t, []string{stepArchive}, f.obs.persistFailed)
	assert.Len(t, f.mailer.to(operator)[0].Attachments, 1)
}

func TestConfirm_QueueFullIsCounted(t *testing.T) {
	f := newFixture(t)
	tok := f.requestToken(t, nil)
	f.customers.On("FindByEmail", mock.Anything, mock.Anything).Return(&domain.Customer{CustomerID: "C1"}, nil)
	f.customers.On("AddShipmentAddress", mock.Anything, mock.Anything, mock.Anything).Return("A1", false, nil)
	f.jobs.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.queue.full = true

	res, err := f.svc.Confirm(context.Background(), tok)
	require.NoError(t, err)
	assert.True(t, res.Persisted)
	assert.Equal(t, 1, f.obs.failed["operator_mail"])
	assert.Equal(t, 1, f.obs.failed["customer_mail"])
}

// --- SubmitVerified ---

func TestSubmitVerified_UpdatesExistingCustomer(t *testing.T) {
	f := newFixture(t)
	data := json.RawMessage(`{
		"auftragsname": "Visitenkarten",
		"producer": "offset",
		"produktInfo": {"produkt": "Visitenkarten", "format": "85x55", "umfang": "2 Seiten", "auflage": 250, "material": "300g"},
		"preise": {"gesamtpreisNetto": 40, "mwstBetrag": 7.6, "gesamtpreisBrutto": 47.6},
		"kunde": {"vorname": "Ada", "nachname": "Lovelace", "email": "ada@example.com"},
		"lieferung": {"art": "abholung"},
		"abweichendeRechnungsadresse": {"firma": "ACME", "strasse": "Ring 3", "plz": "80331", "ort": "München", "land": "DE"},
		"abweichendeRechnungsEmail": "rechnung@example.com"
	}`)
	f.customers.On("Update", mock.Anything, "C7", mock.MatchedBy(func(c domain.CustomerFields) bool {
		return c.FirstName == "Ada"
	})).Return(nil)
	var job *domain.Job
	f.jobs.On("Create", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		job = args.Get(1).(*domain.Job)
	}).Return(nil)

	res, err := f.svc.SubmitVerified(context.Background(), data, nil, "C7")
	require.NoError(t, err)

	assert.True(t, res.Persisted)
	assert.Equal(t, "C7", res.CustomerID)
	assert.Equal(t, "offset", job.Producer)
	assert.False(t, job.ToShip)
	assert.Nil(t, job.ShipmentAddressID)
	assert.Equal(t, "Visitenkarten, 85x55, 300g, 2 Seiten", job.Details)
	require.NotNil(t, job.BillingAddress)
	assert.Equal(t, "ACME", job.BillingAddress.Company)
	assert.Equal(t, "rechnung@example.com", *job.BillingEmail)
	f.customers.AssertNotCalled(t, "FindByEmail", mock.Anything, mock.Anything)

	ops := f.mailer.to(operator)
	require.Len(t, ops, 1)
	assert.Contains(t, ops[0].Body, "BESTANDSKUNDE")
	assert.Contains(t, ops[0].Body, "E-Mail-Verifizierung")

	customer := f.mailer.to("ada@example.com")
	require.Len(t, customer, 1)
	assert.Contains(t, customer[0].Body, "DRUCKDATEI ERFORDERLICH")
	assert.Contains(t, customer[0].Body, "02.03.2026 um 13:00 Uhr")
	assert.Contains(t, customer[0].Body, res.JobID)
}

func TestSubmitVerified_CreatesCustomer(t *testing.T) {
	f := newFixture(t)
	f.customers.On("Create", mock.Anything, mock.Anything).Return(&domain.Customer{CustomerID: "C2"}, nil)
	f.customers.On("AddShipmentAddress", mock.Anything, mock.Anything, "C2").Return("A2", false, nil)
	f.jobs.On("Create", mock.Anything, mock.Anything).Return(nil)

	for _, existing := range []string{"", "null"} {
		res, err := f.svc.SubmitVerified(context.Background(), orderJSON("ada@example.com"), nil, existing)
		require.NoError(t, err)
		assert.Equal(t, "C2", res.CustomerID)
	}
	f.customers.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
	assert.Contains(t, f.mailer.to(operator)[0].Body, "NEUKUNDE")
}

func TestSubmitVerified_UpdateFailureKeepsCustomerID(t *testing.T) {
	f := newFixture(t)
	f.customers.On("Update", mock.Anything, "C7", mock.Anything).Return(domain.ErrNotFound)
	f.customers.On("AddShipmentAddress", mock.Anything, mock.Anything, "C7").Return("A1", false, nil)
	f.jobs.On("Create", mock.Anything, mock.MatchedBy(func(j *domain.Job) bool {
		return j.CustomerID != nil && *j.CustomerID == "C7"
	})).Return(nil)

	res, err := f.svc.SubmitVerified(context.Background(), orderJSON("ada@example.com"), nil, "C7")
	require.NoError(t, err)
	assert.False(t, res.Persisted)
	assert.Equal(t, []string{stepCustomer}, f.obs.persistFailed)
}

func TestSubmitVerified_InvalidOrder(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.SubmitVerified(context.Background(), json.RawMessage(`{"auftragsname":""}`), nil, "")
	assert.True(t, errors.Is(err, domain.ErrBadRequest))
	f.jobs.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}
