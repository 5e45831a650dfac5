package handler

import (
	"strings"

	"github.com/shopspring/decimal"

	"flightsurety/internal/surety/flight"
	"flightsurety/pkg/domain"
	dErrors "flightsurety/pkg/domain-errors"
)

// SetOperationalRequest flips the ledger's operational switch.
type SetOperationalRequest struct {
	Operational *bool `json:"operational"`
}

func (r SetOperationalRequest) Validate() error {
	if r.Operational == nil {
		return dErrors.New(dErrors.CodeValidation, "operational is required")
	}
	return nil
}

// RegisterAirlineRequest nominates or votes for an airline. The caller is the
// proposer.
type RegisterAirlineRequest struct {
	Address string `json:"address"`
	Name    string `json:"name"`
}

func (r *RegisterAirlineRequest) Normalize() {
	r.Address = strings.TrimSpace(r.Address)
	r.Name = strings.TrimSpace(r.Name)
}

func (r RegisterAirlineRequest) Candidate() (domain.Address, error) {
	return domain.ParseAddress(r.Address)
}

// FundRequest pays an airline's participation funding.
type FundRequest struct {
	Amount string `json:"amount"`
}

func (r FundRequest) ParsedAmount() (decimal.Decimal, error) {
	return domain.ParseAmount(strings.TrimSpace(r.Amount))
}

// RegisterFlightRequest registers a flight operated by the calling airline.
type RegisterFlightRequest struct {
	Flight    string `json:"flight"`
	Timestamp uint64 `json:"timestamp"`
}

// RegisterOracleRequest registers the caller as an oracle.
type RegisterOracleRequest struct {
	Fee string `json:"fee"`
}

func (r RegisterOracleRequest) ParsedFee() (decimal.Decimal, error) {
	return domain.ParseAmount(strings.TrimSpace(r.Fee))
}

// FlightRequest identifies a flight in a request body.
type FlightRequest struct {
	Airline   string `json:"airline"`
	Flight    string `json:"flight"`
	Timestamp uint64 `json:"timestamp"`
}

func (r FlightRequest) Key() (flight.Key, error) {
	airline, err := domain.ParseAddress(strings.TrimSpace(r.Airline))
	if err != nil {
		return flight.Key{}, err
	}
	return flight.NewKey(airline, strings.TrimSpace(r.Flight), r.Timestamp)
}

// OracleResponseRequest is an oracle's status report for an open request.
type OracleResponseRequest struct {
	Index uint8 `json:"index"`
	FlightRequest
	StatusCode int `json:"status_code"`
}

func (r OracleResponseRequest) Status() (flight.StatusCode, error) {
	return flight.ParseStatusCode(r.StatusCode)
}

// BuyInsuranceRequest buys cover for the caller on a flight.
type BuyInsuranceRequest struct {
	FlightRequest
	Premium string `json:"premium"`
}

func (r BuyInsuranceRequest) ParsedPremium() (decimal.Decimal, error) {
	return domain.ParseAmount(strings.TrimSpace(r.Premium))
}
