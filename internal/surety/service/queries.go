package service

import (
	"github.com/shopspring/decimal"

	"flightsurety/internal/surety/airline"
	"flightsurety/internal/surety/flight"
	"flightsurety/internal/surety/insurance"
	"flightsurety/internal/surety/oracle"
	"flightsurety/pkg/domain"
)

func (s *Service) IsOperational() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.gate.IsOperational()
}

func (s *Service) Owner() domain.Address {
	return s.gate.Owner()
}

func (s *Service) Airline(addr domain.Address) (airline.Airline, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.airlines.Airline(addr)
}

// Airlines lists every known airline, candidates included.
func (s *Service) Airlines() []airline.Airline {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.airlines.Airlines()
}

// RequiredVotes is the vote count a candidate needs right now.
func (s *Service) RequiredVotes() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.airlines.RequiredVotes()
}

func (s *Service) Flight(key flight.Key) (flight.Flight, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.flights.Flight(key)
}

func (s *Service) Flights() []flight.Flight {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.flights.Flights()
}

// FlightStatus reports Unknown for flights that were never registered.
func (s *Service) FlightStatus(key flight.Key) flight.StatusCode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.flights.Status(key)
}

func (s *Service) Indexes(identity domain.Address) ([3]uint8, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.directory.Indexes(identity)
}

func (s *Service) Oracles() []oracle.Oracle {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.directory.Oracles()
}

func (s *Service) Request(key oracle.RequestKey) (oracle.Request, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine.Request(key)
}

func (s *Service) OpenRequests(key flight.Key) []oracle.Request {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine.OpenRequests(key)
}

func (s *Service) Balance(passenger domain.Address) decimal.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.insurance.Balance(passenger)
}

func (s *Service) Policy(passenger domain.Address, key flight.Key) (insurance.Policy, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.insurance.Policy(passenger, key)
}

func (s *Service) Policies(key flight.Key) []insurance.Policy {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.insurance.Policies(key)
}
