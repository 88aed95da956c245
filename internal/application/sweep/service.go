package sweep

import (
	"context"
	"errors"
)

// Result counts the records removed per kind.
type Result struct {
	PendingOrders      int `json:"pendingOrders"`
	EmailVerifications int `json:"emailVerifications"`
	VerifiedNotices    int `json:"verifiedNotices"`
}

type expirer interface {
	SweepExpired(ctx context.Context) (int, error)
}

// Service removes expired records of every kind. It doubles as the
// scheduled job.
type Service struct {
	pendingOrders      expirer
	emailVerifications expirer
	verifiedNotices    expirer
}

func NewService(pendingOrders, emailVerifications, verifiedNotices expirer) *Service {
	return &Service{
		pendingOrders:      pendingOrders,
		emailVerifications: emailVerifications,
		verifiedNotices:    verifiedNotices,
	}
}

// SweepAll runs every sweep even when one fails and joins the errors.
func (s *Service) SweepAll(ctx context.Context) (*Result, error) {
	var res Result
	var errs []error
	var err error
	if res.PendingOrders, err = s.pendingOrders.SweepExpired(ctx); err != nil {
		errs = append(errs, err)
	}
	if res.EmailVerifications, err = s.emailVerifications.SweepExpired(ctx); err != nil {
		errs = append(errs, err)
	}
	if res.VerifiedNotices, err = s.verifiedNotices.SweepExpired(ctx); err != nil {
		errs = append(errs, err)
	}
	return &res, errors.Join(errs...)
}

func (s *Service) Name() string { return "expiry_sweep" }

func (s *Service) Run(ctx context.Context) error {
	_, err := s.SweepAll(ctx)
	return err
}
