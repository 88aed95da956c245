package domain

import "time"

// ExpiringRecord is the storage-level shape every record backend persists:
// an opaque payload under a key, plus its lifetime.
type ExpiringRecord struct {
	Key       string
	Payload   []byte
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Expired reports whether the record is past its lifetime at now.
func (r *ExpiringRecord) Expired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}
