package flight

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"

	"flightsurety/pkg/domain"
	dErrors "flightsurety/pkg/domain-errors"
)

// StatusCode is the resolved state of a flight. Values match the codes oracles report.
type StatusCode uint8

const (
	StatusUnknown       StatusCode = 0
	StatusOnTime        StatusCode = 10
	StatusLateAirline   StatusCode = 20
	StatusLateWeather   StatusCode = 30
	StatusLateTechnical StatusCode = 40
	StatusLateOther     StatusCode = 50
)

var statusNames = map[StatusCode]string{
	StatusUnknown:       "unknown",
	StatusOnTime:        "on_time",
	StatusLateAirline:   "late_airline",
	StatusLateWeather:   "late_weather",
	StatusLateTechnical: "late_technical",
	StatusLateOther:     "late_other",
}

// ParseStatusCode validates a numeric status reported from outside the ledger.
func ParseStatusCode(v int) (StatusCode, error) {
	if v < 0 || v > 255 {
		return 0, dErrors.New(dErrors.CodeValidation, fmt.Sprintf("unknown status code %d", v))
	}
	code := StatusCode(v)
	if !code.Valid() {
		return 0, dErrors.New(dErrors.CodeValidation, fmt.Sprintf("unknown status code %d", v))
	}
	return code, nil
}

func (c StatusCode) Valid() bool {
	_, ok := statusNames[c]
	return ok
}

// Resolved reports whether the status is anything other than Unknown.
func (c StatusCode) Resolved() bool {
	return c != StatusUnknown
}

func (c StatusCode) String() string {
	if name, ok := statusNames[c]; ok {
		return name
	}
	return fmt.Sprintf("status(%d)", uint8(c))
}

// Key identifies a flight. Timestamp is an opaque bucket chosen by the caller;
// the ledger only compares it for equality.
type Key struct {
	Airline   domain.Address `json:"airline"`
	Flight    string         `json:"flight"`
	Timestamp uint64         `json:"timestamp"`
}

// NewKey validates and builds a flight key.
func NewKey(airline domain.Address, designator string, timestamp uint64) (Key, error) {
	designator = strings.TrimSpace(designator)
	if airline.IsZero() {
		return Key{}, dErrors.New(dErrors.CodeValidation, "airline address is required")
	}
	if designator == "" {
		return Key{}, dErrors.New(dErrors.CodeValidation, "flight designator is required")
	}
	if len(designator) > 32 {
		return Key{}, dErrors.New(dErrors.CodeValidation, "flight designator must be 32 characters or less")
	}
	return Key{Airline: airline, Flight: designator, Timestamp: timestamp}, nil
}

// ID is the hex keccak-256 of airline bytes, designator and big-endian timestamp.
func (k Key) ID() string {
	var ts [8]byte
	binary.BigEndian.PutUint64(ts[:], k.Timestamp)
	sum := domain.Keccak256(k.Airline.Bytes(), []byte(k.Flight), ts[:])
	return "0x" + hex.EncodeToString(sum[:])
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%s/%d", k.Airline, k.Flight, k.Timestamp)
}

// Flight is a registered flight.
type Flight struct {
	Key          Key            `json:"key"`
	Status       StatusCode     `json:"status"`
	RegisteredBy domain.Address `json:"registered_by"`
}

// Registration is the prepared outcome of RegisterFlight. Created is false for
// an idempotent repeat of an existing key.
type Registration struct {
	Key          Key            `json:"key"`
	RegisteredBy domain.Address `json:"registered_by"`
	Created      bool           `json:"created"`
}
