package domain

import (
	"bytes"
	"encoding/json"
	"time"
)

// Attachment is a file that travels with an order (usually a print-ready PDF).
type Attachment struct {
	Filename    string `json:"filename"`
	Content     []byte `json:"-"`
	ContentType string `json:"contentType"`
}

// PendingOrder is an order submission parked until the customer follows the
// confirmation link. OrderData is kept verbatim as submitted by the web form.
type PendingOrder struct {
	OrderData   json.RawMessage
	Attachments []Attachment
	CreatedAt   time.Time
	ExpiresAt   time.Time
}

// EmailVerification is an address-ownership check in flight. ResumableState is
// the optional in-progress form state the client wants back after verifying.
type EmailVerification struct {
	Email          string
	ResumableState json.RawMessage
	CreatedAt      time.Time
	ExpiresAt      time.Time
}

// VerifiedEmailNotice is the short-lived, read-once record a polling client
// picks up once the verification link has been followed in another tab or device.
type VerifiedEmailNotice struct {
	Email          string
	ResumableState json.RawMessage
	CustomerData   json.RawMessage
	VerifiedAt     time.Time
	ExpiresAt      time.Time
}

// OptionalJSON maps an empty or JSON-null payload to nil.
func OptionalJSON(s json.RawMessage) json.RawMessage {
	t := bytes.TrimSpace(s)
	if len(t) == 0 || bytes.Equal(t, []byte("null")) {
		return nil
	}
	return s
}
