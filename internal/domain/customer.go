package domain

import "time"

// DefaultCountryCode is applied when a customer is stored without a country.
const DefaultCountryCode = "DE"

type Customer struct {
	CustomerID  string    `json:"id" dynamodbav:"customer_id"`
	FirstName   string    `json:"firstName" dynamodbav:"first_name"`
	LastName    string    `json:"lastName" dynamodbav:"last_name"`
	Email       string    `json:"email" dynamodbav:"email"`
	Address     string    `json:"address" dynamodbav:"address"`
	Zip         string    `json:"zip" dynamodbav:"zip"`
	City        string    `json:"city" dynamodbav:"city"`
	Company     string    `json:"company" dynamodbav:"company"`
	CountryCode string    `json:"countryCode" dynamodbav:"country_code"`
	CreatedAt   time.Time `json:"created" dynamodbav:"created_at"`
	UpdatedAt   time.Time `json:"updated" dynamodbav:"updated_at"`
}

// CustomerFields is the mutable part of a customer, as collected by the order form.
type CustomerFields struct {
	FirstName   string
	LastName    string
	Email       string
	Address     string
	Zip         string
	City        string
	Company     string
	CountryCode string
}

type ShipmentAddress struct {
	AddressID  string  `json:"id" dynamodbav:"address_id"`
	Name       string  `json:"name" dynamodbav:"name"`
	Street     string  `json:"street" dynamodbav:"street"`
	Zip        string  `json:"zip" dynamodbav:"zip"`
	City       string  `json:"city" dynamodbav:"city"`
	CustomerID *string `json:"customerId,omitempty" dynamodbav:"customer_id,omitempty"`
	// AddressKey is name|street|zip|city, used to find an identical address again.
	AddressKey string `json:"-" dynamodbav:"address_key"`
	CreatedAt  int64  `json:"createdAt" dynamodbav:"created_at"`
}
