// Package flight keeps the registry of flights and their resolved status.
package flight

import (
	"flightsurety/internal/surety/gate"
	"flightsurety/pkg/domain"
	dErrors "flightsurety/pkg/domain-errors"
)

// AirlineEligibility answers whether an airline may register flights.
type AirlineEligibility interface {
	IsActive(airline domain.Address) bool
}

// Registry owns flight state. Not safe for concurrent use.
type Registry struct {
	airlines AirlineEligibility
	flights  map[Key]*Flight
	order    []Key
}

func NewRegistry(airlines AirlineEligibility) *Registry {
	return &Registry{
		airlines: airlines,
		flights:  make(map[Key]*Flight),
	}
}

// PrepareRegistration validates a flight registration without changing state.
func (r *Registry) PrepareRegistration(g *gate.Gate, key Key, caller domain.Address) (Registration, error) {
	if err := g.RequireOperational(); err != nil {
		return Registration{}, err
	}
	if !r.airlines.IsActive(key.Airline) {
		return Registration{}, dErrors.New(dErrors.CodeAirlineNotEligible, "airline must be registered and funded to register flights")
	}
	_, exists := r.flights[key]
	return Registration{Key: key, RegisteredBy: caller, Created: !exists}, nil
}

// ApplyRegistration stores a new flight; repeats are no-ops.
func (r *Registry) ApplyRegistration(reg Registration) {
	if !reg.Created {
		return
	}
	if _, exists := r.flights[reg.Key]; exists {
		return
	}
	r.flights[reg.Key] = &Flight{Key: reg.Key, Status: StatusUnknown, RegisteredBy: reg.RegisteredBy}
	r.order = append(r.order, reg.Key)
}

// RegisterFlight validates and applies in one call.
func (r *Registry) RegisterFlight(g *gate.Gate, key Key, caller domain.Address) (Registration, error) {
	reg, err := r.PrepareRegistration(g, key, caller)
	if err != nil {
		return Registration{}, err
	}
	r.ApplyRegistration(reg)
	return reg, nil
}

// Status returns the flight's status, Unknown when the flight is not registered.
func (r *Registry) Status(key Key) StatusCode {
	if f, ok := r.flights[key]; ok {
		return f.Status
	}
	return StatusUnknown
}

func (r *Registry) Flight(key Key) (Flight, bool) {
	f, ok := r.flights[key]
	if !ok {
		return Flight{}, false
	}
	return *f, true
}

// Flights lists registered flights in registration order.
func (r *Registry) Flights() []Flight {
	out := make([]Flight, 0, len(r.order))
	for _, k := range r.order {
		out = append(out, *r.flights[k])
	}
	return out
}

// Resolve sets the status of an unresolved flight. The first resolution wins;
// later calls, unknown flights and Unknown statuses return false.
func (r *Registry) Resolve(key Key, status StatusCode) bool {
	f, ok := r.flights[key]
	if !ok || f.Status.Resolved() || !status.Resolved() {
		return false
	}
	f.Status = status
	return true
}
