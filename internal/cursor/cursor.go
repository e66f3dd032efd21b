// Package cursor encodes opaque keyset pagination tokens for store listings.
package cursor

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// Cursor marks the last row of a page. It is only valid for the listing
// filter it was issued for.
type Cursor struct {
	Filter string `json:"filter,omitempty"`
	LastID string `json:"last_id"`
}

// New creates a cursor positioned after lastID.
func New(filter, lastID string) (*Cursor, error) {
	if lastID == "" {
		return nil, fmt.Errorf("last ID required")
	}
	return &Cursor{Filter: filter, LastID: lastID}, nil
}

// Encode serializes the cursor to an opaque base64 string
func (c *Cursor) Encode() (string, error) {
	jsonData, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("failed to marshal cursor: %w", err)
	}
	return base64.URLEncoding.EncodeToString(jsonData), nil
}

// Decode deserializes a cursor from an opaque base64 string
func Decode(encoded string) (*Cursor, error) {
	if encoded == "" {
		return nil, fmt.Errorf("empty cursor string")
	}

	jsonData, err := base64.URLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("invalid cursor encoding: %w", err)
	}

	var c Cursor
	if err := json.Unmarshal(jsonData, &c); err != nil {
		return nil, fmt.Errorf("invalid cursor format: %w", err)
	}
	if c.LastID == "" {
		return nil, fmt.Errorf("cursor missing last ID")
	}
	return &c, nil
}

// Resume decodes token and checks it was issued for filter. It returns the
// id to continue after, or "" for an empty token.
func Resume(token, filter string) (string, error) {
	if token == "" {
		return "", nil
	}
	c, err := Decode(token)
	if err != nil {
		return "", err
	}
	if c.Filter != filter {
		return "", fmt.Errorf("cursor was issued for filter %q, not %q", c.Filter, filter)
	}
	return c.LastID, nil
}
