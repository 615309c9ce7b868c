// Package domain contains entities without transport logic, just meta-data
package domain

import (
	"strings"
)

const MaxIdentityLen = 64

// Identity is the caller-supplied name a connection is addressed by.
// It is not authenticated.
type Identity string

// ParseIdentity trims the raw value and validates it.
func ParseIdentity(raw string) (Identity, error) {
	id := strings.TrimSpace(raw)
	if id == "" {
		return "", ErrIdentityMissing
	}
	if len(id) > MaxIdentityLen {
		return "", ErrIdentityTooLong
	}
	return Identity(id), nil
}

func (i Identity) String() string { return string(i) }

// ConnectionID is an opaque, transport-assigned connection handle.
type ConnectionID string
