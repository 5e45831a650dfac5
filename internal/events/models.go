// Package events publishes ledger events to the oracle relay and other
// listeners. Publishing happens after a transition commits and is best-effort.
package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Type names an event.
type Type string

const (
	TypeOperationalStatusChanged Type = "OperationalStatusChanged"
	TypeAirlineNominated         Type = "AirlineNominated"
	TypeAirlineRegistered        Type = "AirlineRegistered"
	TypeAirlineFunded            Type = "AirlineFunded"
	TypeFlightRegistered         Type = "FlightRegistered"
	TypeOracleRegistered         Type = "OracleRegistered"
	TypeOracleRequest            Type = "OracleRequest"
	TypeOracleReport             Type = "OracleReport"
	TypeFlightStatusInfo         Type = "FlightStatusInfo"
	TypeInsurancePurchased       Type = "InsurancePurchased"
	TypeInsureesCredited         Type = "InsureesCredited"
	TypePassengerPaid            Type = "PassengerPaid"
)

// Event is the envelope written to every bus. Key groups related events
// (a flight id or an account address) for partitioning.
type Event struct {
	ID        uuid.UUID       `json:"id"`
	Type      Type            `json:"type"`
	Key       string          `json:"key"`
	At        time.Time       `json:"at"`
	RequestID string          `json:"request_id,omitempty"`
	Data      json.RawMessage `json:"data"`
}

// New marshals data into an event envelope.
func New(t Type, key string, data any, at time.Time) (Event, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Event{}, err
	}
	return Event{
		ID:   uuid.New(),
		Type: t,
		Key:  key,
		At:   at.UTC(),
		Data: raw,
	}, nil
}

// Decode unmarshals the event data into v.
func (e Event) Decode(v any) error {
	return json.Unmarshal(e.Data, v)
}

// FlightRef is how relay-facing events identify a flight.
type FlightRef struct {
	Airline   string `json:"airline"`
	Flight    string `json:"flight"`
	Timestamp uint64 `json:"timestamp"`
}

// OracleRequest asks oracles holding Index to report the flight's status.
type OracleRequest struct {
	Index uint8 `json:"index"`
	FlightRef
}

// OracleReport records one accepted oracle response.
type OracleReport struct {
	Index uint8 `json:"index"`
	FlightRef
	Status uint8  `json:"status"`
	Oracle string `json:"oracle"`
}

// FlightStatusInfo announces a finalized request.
type FlightStatusInfo struct {
	Index uint8 `json:"index"`
	FlightRef
	Status uint8 `json:"status"`
}
