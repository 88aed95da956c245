package verification

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
	"github.com/print-order-api/internal/pkg/token"
)

// CheckResult is what a followed verification link reveals about the address.
type CheckResult struct {
	Email          string           `json:"email"`
	CustomerExists bool             `json:"customerExists"`
	CustomerData   *domain.Customer `json:"customerData"`
	CustomerID     *string          `json:"customerId"`
	OrderState     json.RawMessage  `json:"orderState"`
}

// PollResult answers a waiting client. Only Verified is set while the
// address has not been confirmed yet.
type PollResult struct {
	Verified bool `json:"verified"`
	*CheckResult
}

type Service interface {
	// Request mails a verification link for email. orderState is handed back
	// once the link is followed.
	Request(ctx context.Context, email string, orderState json.RawMessage) error
	// Check redeems a verification token.
	Check(ctx context.Context, tok string) (*CheckResult, error)
	// Poll reports, once, that email was verified elsewhere.
	Poll(ctx context.Context, email string) (*PollResult, error)
}

type verifications interface {
	Save(ctx context.Context, email string, resumableState json.RawMessage) (string, error)
	Redeem(ctx context.Context, tok string) (*domain.EmailVerification, error)
	Discard(ctx context.Context, tok string) error
	SweepExpired(ctx context.Context) (int, error)
	TTL() time.Duration
}

type notices interface {
	Publish(ctx context.Context, email string, resumableState, customerData json.RawMessage) error
	Consume(ctx context.Context, email string) (*domain.VerifiedEmailNotice, error)
}

type customerFinder interface {
	FindByEmail(ctx context.Context, email string) (*domain.Customer, error)
}

type mailSender interface {
	Send(ctx context.Context, m domain.Mail) error
}

type notificationObserver interface {
	RecordNotification(channel string, err error)
}

type service struct {
	verifications verifications
	notices       notices
	customers     customerFinder
	mailer        mailSender
	mails         *mails.Renderer
	obs           notificationObserver
	publicBaseURL string
}

type ServiceDeps struct {
	Verifications verifications
	Notices       notices
	Customers     customerFinder
	Mailer        mailSender
	Mails         *mails.Renderer
	Observer      notificationObserver
	PublicBaseURL string
}

func NewService(deps ServiceDeps) Service {
	return &service{
		verifications: deps.Verifications,
		notices:       deps.Notices,
		customers:     deps.Customers,
		mailer:        deps.Mailer,
		mails:         deps.Mails,
		obs:           deps.Observer,
		publicBaseURL: deps.PublicBaseURL,
	}
}

// noticeCustomer is the customer part of a verified-email notice.
type noticeCustomer struct {
	CustomerExists bool             `json:"customerExists"`
	CustomerData   *domain.Customer `json:"customerData"`
	CustomerID     *string          `json:"customerId"`
}

func (s *service) Request(ctx context.Context, email string, orderState json.RawMessage) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return fmt.Errorf("email is required: %w", domain.ErrBadRequest)
	}
	tok, err := s.verifications.Save(ctx, email, orderState)
	if err != nil {
		return err
	}
	link := s.publicBaseURL + "/fixguenstig?emailToken=" + url.QueryEscape(tok)
	m, err := s.mails.EmailVerification(email, link, s.verifications.TTL())
	if err == nil {
		err = s.mailer.Send(ctx, m)
	}
	s.record("email_verification_mail", err)
	if err != nil {
		if derr := s.verifications.Discard(ctx, tok); derr != nil {
			slog.Warn("discard unverifiable email", "token_prefix", token.Prefix(tok), "err", derr)
		}
		slog.Error("verification mail failed", "token_prefix", token.Prefix(tok), "err", err)
		if errors.Is(err, domain.ErrNotification) {
			return err
		}
		return fmt.Errorf("send verification mail: %v: %w", err, domain.ErrNotification)
	}
	slog.Info("email verification sent", "token_prefix", token.Prefix(tok))
	return nil
}

func (s *service) Check(ctx context.Context, tok string) (*CheckResult, error) {
	if strings.TrimSpace(tok) == "" {
		return nil, fmt.Errorf("token is required: %w", domain.ErrBadRequest)
	}
	if _, err := s.verifications.SweepExpired(ctx); err != nil {
		slog.Warn("sweep expired email verifications", "err", err)
	}

	v, err := s.verifications.Redeem(ctx, tok)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			slog.Info("email token not found or expired", "token_prefix", token.Prefix(tok))
		}
		return nil, err
	}

	res := &CheckResult{Email: v.Email, OrderState: v.ResumableState}
	c, err := s.customers.FindByEmail(ctx, v.Email)
	switch {
	case err == nil:
		res.CustomerExists = true
		res.CustomerData = c
		res.CustomerID = &c.CustomerID
	case errors.Is(err, domain.ErrNotFound):
	default:
		// The address is verified either way.
		slog.Error("customer lookup after verification", "err", err)
	}

	customerData, err := json.Marshal(noticeCustomer{
		CustomerExists: res.CustomerExists,
		CustomerData:   res.CustomerData,
		CustomerID:     res.CustomerID,
	})
	if err == nil {
		err = s.notices.Publish(ctx, v.Email, v.ResumableState, customerData)
	}
	if err != nil {
		slog.Error("publish verified email notice", "err", err)
	}
	return res, nil
}

func (s *service) Poll(ctx context.Context, email string) (*PollResult, error) {
	if strings.TrimSpace(email) == "" {
		return nil, fmt.Errorf("email is required: %w", domain.ErrBadRequest)
	}
	n, err := s.notices.Consume(ctx, email)
	if errors.Is(err, domain.ErrNotFound) {
		return &PollResult{Verified: false}, nil
	}
	if err != nil {
		return nil, err
	}

	res := &CheckResult{Email: n.Email, OrderState: n.ResumableState}
	if len(n.CustomerData) > 0 {
		var nc noticeCustomer
		if err := json.Unmarshal(n.CustomerData, &nc); err != nil {
			slog.Warn("undecodable customer data in notice", "err", err)
		} else {
			res.CustomerExists = nc.CustomerExists
			res.CustomerData = nc.CustomerData
			res.CustomerID = nc.CustomerID
		}
	}
	return &PollResult{Verified: true, CheckResult: res}, nil
}

func (s *service) record(channel string, err error) {
	if s.obs != nil {
		s.obs.RecordNotification(channel, err)
	}
}
