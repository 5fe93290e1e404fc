// Package domain holds typed identifiers shared across modules. Typed IDs
// prevent a member id from being passed where a transaction id is expected.
package domain

import (
	"fmt"
	"strconv"
)

// MemberID is the stable numeric identifier of a community member
// (a Discord snowflake).
type MemberID uint64

// ParseMemberID validates and returns a MemberID from its decimal form.
func ParseMemberID(s string) (MemberID, error) {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid member id %q: %w", s, err)
	}
	if n == 0 {
		return 0, fmt.Errorf("member id must be non-zero")
	}
	return MemberID(n), nil
}

func (m MemberID) String() string {
	return strconv.FormatUint(uint64(m), 10)
}

// IsNil returns true when the id carries no value.
func (m MemberID) IsNil() bool {
	return m == 0
}

// TransactionID is the network-assigned identifier of a published
// transaction (base64url on Arweave-style networks).
type TransactionID string

func (t TransactionID) String() string {
	return string(t)
}

func (t TransactionID) IsNil() bool {
	return t == ""
}
