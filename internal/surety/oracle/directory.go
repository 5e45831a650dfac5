// Package oracle registers status-reporting oracles and runs the response
// consensus that resolves flight status.
package oracle

import (
	"fmt"

	"github.com/shopspring/decimal"

	"flightsurety/internal/surety/config"
	"flightsurety/internal/surety/gate"
	"flightsurety/pkg/domain"
	dErrors "flightsurety/pkg/domain-errors"
)

// maxDrawAttempts bounds the search for distinct indexes.
const maxDrawAttempts = 256

// Directory owns oracle registrations and the draw nonce shared by index
// assignment and status requests. Not safe for concurrent use.
type Directory struct {
	rules   config.Rules
	source  IndexSource
	oracles map[domain.Address]*Oracle
	order   []domain.Address
	nonce   uint64
}

func NewDirectory(rules config.Rules, source IndexSource) *Directory {
	if source == nil {
		source = NewKeccakIndexSource()
	}
	return &Directory{
		rules:   rules,
		source:  source,
		oracles: make(map[domain.Address]*Oracle),
	}
}

func (d *Directory) canRegister(g *gate.Gate, identity domain.Address, fee decimal.Decimal) error {
	if err := g.RequireOperational(); err != nil {
		return err
	}
	if identity.IsZero() {
		return dErrors.New(dErrors.CodeValidation, "oracle address is required")
	}
	if fee.LessThan(d.rules.OracleFee) {
		return dErrors.New(dErrors.CodeInsufficientFee, "registration fee must be at least "+d.rules.OracleFee.String())
	}
	if _, ok := d.oracles[identity]; ok {
		return dErrors.New(dErrors.CodeAlreadyRegistered, "oracle is already registered")
	}
	return nil
}

// PrepareRegistration validates a registration and draws three distinct
// indexes without changing state.
func (d *Directory) PrepareRegistration(g *gate.Gate, identity domain.Address, fee decimal.Decimal) (Registration, error) {
	if err := d.canRegister(g, identity, fee); err != nil {
		return Registration{}, err
	}
	var indexes [config.IndexesPerOracle]uint8
	nonce := d.nonce
	for i := range indexes {
		var (
			v   uint8
			err error
		)
		v, nonce, err = d.drawExcluding(identity, nonce, indexes[:i])
		if err != nil {
			return Registration{}, err
		}
		indexes[i] = v
	}
	return Registration{
		Oracle: Oracle{Address: identity, Indexes: indexes, Fee: fee},
		Nonce:  nonce,
	}, nil
}

// PrepareRegistrationWithIndexes validates a registration whose indexes were
// drawn earlier, as when replaying the journal.
func (d *Directory) PrepareRegistrationWithIndexes(g *gate.Gate, identity domain.Address, fee decimal.Decimal, indexes [3]uint8, nonce uint64) (Registration, error) {
	if err := d.canRegister(g, identity, fee); err != nil {
		return Registration{}, err
	}
	for i, v := range indexes {
		if v >= d.rules.IndexRange {
			return Registration{}, dErrors.New(dErrors.CodeValidation, fmt.Sprintf("index %d is out of range", v))
		}
		for _, prev := range indexes[:i] {
			if prev == v {
				return Registration{}, dErrors.New(dErrors.CodeValidation, "indexes must be distinct")
			}
		}
	}
	return Registration{
		Oracle: Oracle{Address: identity, Indexes: indexes, Fee: fee},
		Nonce:  nonce,
	}, nil
}

// ApplyRegistration stores a prepared registration and advances the nonce.
func (d *Directory) ApplyRegistration(reg Registration) {
	if _, ok := d.oracles[reg.Oracle.Address]; ok {
		return
	}
	o := reg.Oracle
	d.oracles[o.Address] = &o
	d.order = append(d.order, o.Address)
	d.AdvanceNonce(reg.Nonce)
}

// RegisterOracle validates and applies in one call.
func (d *Directory) RegisterOracle(g *gate.Gate, identity domain.Address, fee decimal.Decimal) (Oracle, error) {
	reg, err := d.PrepareRegistration(g, identity, fee)
	if err != nil {
		return Oracle{}, err
	}
	d.ApplyRegistration(reg)
	return reg.Oracle, nil
}

// Indexes returns the identity's assigned indexes.
func (d *Directory) Indexes(identity domain.Address) ([3]uint8, error) {
	o, ok := d.oracles[identity]
	if !ok {
		return [3]uint8{}, dErrors.New(dErrors.CodeNotRegistered, "oracle is not registered")
	}
	return o.Indexes, nil
}

func (d *Directory) Oracle(identity domain.Address) (Oracle, bool) {
	o, ok := d.oracles[identity]
	if !ok {
		return Oracle{}, false
	}
	return *o, true
}

// Oracles lists registered oracles in registration order.
func (d *Directory) Oracles() []Oracle {
	out := make([]Oracle, 0, len(d.order))
	for _, a := range d.order {
		out = append(out, *d.oracles[a])
	}
	return out
}

func (d *Directory) Nonce() uint64 {
	return d.nonce
}

// DrawIndex draws one index for identity at the current nonce and returns the
// nonce to store once the draw is committed.
func (d *Directory) DrawIndex(identity domain.Address) (uint8, uint64) {
	return d.source.Index(identity, d.nonce, d.rules.IndexRange), d.nonce + 1
}

// AdvanceNonce moves the nonce forward. It never moves backwards.
func (d *Directory) AdvanceNonce(next uint64) {
	if next > d.nonce {
		d.nonce = next
	}
}

func (d *Directory) drawExcluding(identity domain.Address, nonce uint64, taken []uint8) (uint8, uint64, error) {
	for attempt := 0; attempt < maxDrawAttempts; attempt++ {
		v := d.source.Index(identity, nonce, d.rules.IndexRange)
		nonce++
		if !contains(taken, v) {
			return v, nonce, nil
		}
	}
	return 0, nonce, dErrors.New(dErrors.CodeInternal, "index source did not yield distinct indexes")
}

func contains(values []uint8, v uint8) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}
