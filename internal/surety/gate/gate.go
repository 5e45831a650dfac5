// Package gate implements the ledger's operational switch.
//
// A Gate is an explicit value handed to every mutating component call rather
// than process-wide state, so each test can build an isolated ledger.
package gate

import (
	"flightsurety/pkg/domain"
	dErrors "flightsurety/pkg/domain-errors"
)

// Gate guards mutating operations. Reads stay available while it is closed.
type Gate struct {
	owner       domain.Address
	operational bool
}

// New returns an operational gate controlled by owner.
func New(owner domain.Address) *Gate {
	return &Gate{owner: owner, operational: true}
}

func (g *Gate) Owner() domain.Address {
	return g.owner
}

func (g *Gate) IsOperational() bool {
	return g.operational
}

// CanSetOperatingStatus checks that caller may flip the switch.
func (g *Gate) CanSetOperatingStatus(caller domain.Address) error {
	if caller != g.owner {
		return dErrors.New(dErrors.CodeUnauthorized, "caller is not the contract owner")
	}
	return nil
}

// ApplyOperatingStatus sets the switch. Call CanSetOperatingStatus first.
func (g *Gate) ApplyOperatingStatus(operational bool) {
	g.operational = operational
}

// SetOperatingStatus validates and applies in one call.
func (g *Gate) SetOperatingStatus(caller domain.Address, operational bool) error {
	if err := g.CanSetOperatingStatus(caller); err != nil {
		return err
	}
	g.ApplyOperatingStatus(operational)
	return nil
}

// RequireOperational fails with OperationsSuspended while the gate is closed.
func (g *Gate) RequireOperational() error {
	if !g.operational {
		return dErrors.New(dErrors.CodeOperationsSuspended, "contract is currently not operational")
	}
	return nil
}
