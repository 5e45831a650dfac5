package domain

import (
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/sha3"

	dErrors "flightsurety/pkg/domain-errors"
)

// Address identifies a ledger account (airline, passenger, oracle or owner).
// Invariant: "0x" followed by 40 lower-case hex characters.
//
// Usage: construct via ParseAddress at trust boundaries; JSON decoding goes
// through UnmarshalText so request bodies are validated on decode.
type Address string

const addressHexLen = 40

// ParseAddress validates and normalises an account handle. Mixed-case input is
// accepted and lower-cased; the checksum is not enforced.
func ParseAddress(s string) (Address, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", dErrors.New(dErrors.CodeValidation, "address is required")
	}
	body, ok := strings.CutPrefix(s, "0x")
	if !ok {
		body, ok = strings.CutPrefix(s, "0X")
	}
	if !ok || len(body) != addressHexLen {
		return "", dErrors.New(dErrors.CodeValidation, "address must be 0x followed by 40 hex characters")
	}
	if _, err := hex.DecodeString(body); err != nil {
		return "", dErrors.New(dErrors.CodeValidation, "address must be hex encoded")
	}
	return Address("0x" + strings.ToLower(body)), nil
}

// MustParseAddress is ParseAddress for constants and tests.
func MustParseAddress(s string) Address {
	a, err := ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return a
}

func (a Address) String() string {
	return string(a)
}

// IsZero reports whether the address is unset.
func (a Address) IsZero() bool {
	return a == ""
}

// Bytes returns the 20 raw address bytes, or nil for an unset address.
func (a Address) Bytes() []byte {
	if a.IsZero() {
		return nil
	}
	b, err := hex.DecodeString(strings.TrimPrefix(string(a), "0x"))
	if err != nil {
		return nil
	}
	return b
}

// Checksum renders the mixed-case keccak checksum form of the address.
func (a Address) Checksum() string {
	body := strings.TrimPrefix(string(a), "0x")
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(body))
	digest := h.Sum(nil)

	out := []byte(body)
	for i, c := range out {
		if c < 'a' || c > 'f' {
			continue
		}
		nibble := digest[i/2]
		if i%2 == 0 {
			nibble >>= 4
		}
		if nibble&0x0f >= 8 {
			out[i] = c - 'a' + 'A'
		}
	}
	return "0x" + string(out)
}

func (a Address) MarshalText() ([]byte, error) {
	return []byte(a), nil
}

func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := ParseAddress(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
