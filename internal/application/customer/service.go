package customer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/print-order-api/internal/domain"
	"github.com/print-order-api/internal/pkg/id"
)

type Service interface {
	Get(ctx context.Context, customerID string) (*domain.Customer, error)
	FindByEmail(ctx context.Context, email string) (*domain.Customer, error)
	Create(ctx context.Context, f domain.CustomerFields) (*domain.Customer, error)
	Update(ctx context.Context, customerID string, f domain.CustomerFields) error
	AddShipmentAddress(ctx context.Context, addr domain.Address, customerID string) (string, bool, error)
	ListShipmentAddresses(ctx context.Context, customerID string) ([]domain.ShipmentAddress, error)
}

type customerStore interface {
	Put(ctx context.Context, c *domain.Customer) error
	Get(ctx context.Context, customerID string) (*domain.Customer, error)
	GetByEmail(ctx context.Context, email string) (*domain.Customer, error)
	Update(ctx context.Context, customerID string, f domain.CustomerFields) error
}

type addressStore interface {
	Put(ctx context.Context, a *domain.ShipmentAddress) error
	FindByKey(ctx context.Context, addressKey string) (*domain.ShipmentAddress, error)
	ListByCustomer(ctx context.Context, customerID string) ([]domain.ShipmentAddress, error)
}

type service struct {
	repo        customerStore
	addressRepo addressStore
	now         func() time.Time
}

type ServiceDeps struct {
	CustomerRepo customerStore
	AddressRepo  addressStore
}

func NewService(deps ServiceDeps) Service {
	return &service{
		repo:        deps.CustomerRepo,
		addressRepo: deps.AddressRepo,
		now:         time.Now,
	}
}

func (s *service) Get(ctx context.Context, customerID string) (*domain.Customer, error) {
	return s.repo.Get(ctx, customerID)
}

// FindByEmail returns domain.ErrNotFound when no customer uses email.
func (s *service) FindByEmail(ctx context.Context, email string) (*domain.Customer, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, fmt.Errorf("email is required: %w", domain.ErrBadRequest)
	}
	return s.repo.GetByEmail(ctx, email)
}

func (s *service) Create(ctx context.Context, f domain.CustomerFields) (*domain.Customer, error) {
	if f.CountryCode == "" {
		f.CountryCode = domain.DefaultCountryCode
	}
	now := s.now().UTC()
	c := &domain.Customer{
		CustomerID:  id.New(),
		FirstName:   f.FirstName,
		LastName:    f.LastName,
		Email:       strings.TrimSpace(f.Email),
		Address:     f.Address,
		Zip:         f.Zip,
		City:        f.City,
		Company:     f.Company,
		CountryCode: f.CountryCode,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Put(ctx, c); err != nil {
		return nil, fmt.Errorf("create customer: %w", err)
	}
	return c, nil
}

func (s *service) Update(ctx context.Context, customerID string, f domain.CustomerFields) error {
	if customerID == "" {
		return fmt.Errorf("customer id is required: %w", domain.ErrBadRequest)
	}
	if f.CountryCode == "" {
		f.CountryCode = domain.DefaultCountryCode
	}
	f.Email = strings.TrimSpace(f.Email)
	return s.repo.Update(ctx, customerID, f)
}

// AddShipmentAddress stores addr for customerID (which may be empty) and
// returns its ID. An address identical in name, street, zip and city is
// reused; the boolean reports that case.
func (s *service) AddShipmentAddress(ctx context.Context, addr domain.Address, customerID string) (string, bool, error) {
	key := AddressKey(addr)
	existing, err := s.addressRepo.FindByKey(ctx, key)
	if err == nil {
		return existing.AddressID, true, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return "", false, fmt.Errorf("look up shipment address: %w", err)
	}

	a := &domain.ShipmentAddress{
		AddressID:  id.New(),
		Name:       addr.Name,
		Street:     addr.Street,
		Zip:        addr.Zip,
		City:       addr.City,
		AddressKey: key,
		CreatedAt:  s.now().Unix(),
	}
	if customerID != "" {
		a.CustomerID = &customerID
	}
	if err := s.addressRepo.Put(ctx, a); err != nil {
		return "", false, fmt.Errorf("create shipment address: %w", err)
	}
	return a.AddressID, false, nil
}

func (s *service) ListShipmentAddresses(ctx context.Context, customerID string) ([]domain.ShipmentAddress, error) {
	if customerID == "" {
		return nil, fmt.Errorf("customerId is required: %w", domain.ErrBadRequest)
	}
	return s.addressRepo.ListByCustomer(ctx, customerID)
}

// AddressKey is the lookup key for identical shipment addresses.
func AddressKey(a domain.Address) string {
	return strings.Join([]string{a.Name, a.Street, a.Zip, a.City}, "|")
}
