package domain

import (
	"encoding/json"
	"time"
)

// ShopConfig is a named configuration document for the storefront (e.g. "fixguenstig").
type ShopConfig struct {
	DocID     string          `json:"id"`
	Config    json.RawMessage `json:"config"`
	UpdatedAt time.Time       `json:"updated"`
}
