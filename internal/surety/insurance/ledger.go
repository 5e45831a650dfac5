// Package insurance records premiums, credits payouts for flights delayed by
// the airline and pays out withdrawable balances.
package insurance

import (
	"context"

	"github.com/shopspring/decimal"

	"flightsurety/internal/surety/config"
	"flightsurety/internal/surety/flight"
	"flightsurety/internal/surety/gate"
	"flightsurety/pkg/domain"
	dErrors "flightsurety/pkg/domain-errors"
)

// FlightLookup reads registered flights.
type FlightLookup interface {
	Flight(key flight.Key) (flight.Flight, bool)
}

// Transfer moves a withdrawn amount out of the ledger.
type Transfer func(ctx context.Context, w Withdrawal) error

// Ledger owns policies and passenger balances. Not safe for concurrent use.
type Ledger struct {
	rules    config.Rules
	flights  FlightLookup
	policies map[policyKey]*Policy
	byFlight map[flight.Key][]domain.Address
	balances map[domain.Address]decimal.Decimal
}

func NewLedger(rules config.Rules, flights FlightLookup) *Ledger {
	return &Ledger{
		rules:    rules,
		flights:  flights,
		policies: make(map[policyKey]*Policy),
		byFlight: make(map[flight.Key][]domain.Address),
		balances: make(map[domain.Address]decimal.Decimal),
	}
}

// PrepareBuy validates a purchase without changing state.
func (l *Ledger) PrepareBuy(g *gate.Gate, passenger domain.Address, key flight.Key, premium decimal.Decimal) (Policy, error) {
	if err := g.RequireOperational(); err != nil {
		return Policy{}, err
	}
	if passenger.IsZero() {
		return Policy{}, dErrors.New(dErrors.CodeValidation, "passenger address is required")
	}
	f, ok := l.flights.Flight(key)
	if !ok {
		return Policy{}, dErrors.New(dErrors.CodeFlightNotFound, "flight is not registered")
	}
	if f.Status.Resolved() {
		return Policy{}, dErrors.New(dErrors.CodeFlightAlreadyResolved, "flight status is already "+f.Status.String())
	}
	if !premium.IsPositive() || premium.GreaterThan(l.rules.PremiumCap) {
		return Policy{}, dErrors.New(dErrors.CodePremiumOutOfRange, "premium must be above 0 and at most "+l.rules.PremiumCap.String())
	}
	if _, exists := l.policies[policyKey{passenger, key}]; exists {
		return Policy{}, dErrors.New(dErrors.CodeAlreadyInsured, "passenger already holds a policy for this flight")
	}
	return Policy{Passenger: passenger, Flight: key, Premium: premium, Payout: decimal.Zero}, nil
}

// ApplyBuy stores a prepared policy.
func (l *Ledger) ApplyBuy(p Policy) {
	pk := policyKey{p.Passenger, p.Flight}
	if _, exists := l.policies[pk]; exists {
		return
	}
	stored := p
	l.policies[pk] = &stored
	l.byFlight[p.Flight] = append(l.byFlight[p.Flight], p.Passenger)
}

// Buy validates and applies in one call.
func (l *Ledger) Buy(g *gate.Gate, passenger domain.Address, key flight.Key, premium decimal.Decimal) (Policy, error) {
	p, err := l.PrepareBuy(g, passenger, key, premium)
	if err != nil {
		return Policy{}, err
	}
	l.ApplyBuy(p)
	return p, nil
}

// CreditInsurees credits every uncredited policy on the flight with
// premium x PayoutMultiplier. A second call for the same flight credits nothing.
func (l *Ledger) CreditInsurees(key flight.Key) []Credit {
	var credits []Credit
	for _, passenger := range l.byFlight[key] {
		p := l.policies[policyKey{passenger, key}]
		if p.Credited {
			continue
		}
		amount := p.Premium.Mul(l.rules.PayoutMultiplier)
		p.Credited = true
		p.Payout = amount
		l.balances[passenger] = l.Balance(passenger).Add(amount)
		credits = append(credits, Credit{Passenger: passenger, Flight: key, Amount: amount})
	}
	return credits
}

// PreparePay validates a withdrawal and returns the amount that would be paid.
func (l *Ledger) PreparePay(g *gate.Gate, passenger domain.Address) (Withdrawal, error) {
	if err := g.RequireOperational(); err != nil {
		return Withdrawal{}, err
	}
	balance := l.Balance(passenger)
	if !balance.IsPositive() {
		return Withdrawal{}, dErrors.New(dErrors.CodeNoBalance, "no withdrawable balance")
	}
	return Withdrawal{Passenger: passenger, Amount: balance}, nil
}

// ApplyPay zeroes the passenger's balance.
func (l *Ledger) ApplyPay(w Withdrawal) {
	delete(l.balances, w.Passenger)
}

// RevertPay restores a balance zeroed by ApplyPay after a failed transfer.
func (l *Ledger) RevertPay(w Withdrawal) {
	l.balances[w.Passenger] = l.Balance(w.Passenger).Add(w.Amount)
}

// Pay zeroes the balance, then transfers. A failed transfer restores the balance.
func (l *Ledger) Pay(ctx context.Context, g *gate.Gate, passenger domain.Address, transfer Transfer) (Withdrawal, error) {
	w, err := l.PreparePay(g, passenger)
	if err != nil {
		return Withdrawal{}, err
	}
	l.ApplyPay(w)
	if transfer == nil {
		return w, nil
	}
	if err := transfer(ctx, w); err != nil {
		l.RevertPay(w)
		return Withdrawal{}, dErrors.Wrap(err, dErrors.CodeInternal, "transfer failed")
	}
	return w, nil
}

// Balance returns the passenger's withdrawable balance.
func (l *Ledger) Balance(passenger domain.Address) decimal.Decimal {
	if b, ok := l.balances[passenger]; ok {
		return b
	}
	return decimal.Zero
}

func (l *Ledger) Policy(passenger domain.Address, key flight.Key) (Policy, bool) {
	p, ok := l.policies[policyKey{passenger, key}]
	if !ok {
		return Policy{}, false
	}
	return *p, true
}

// Policies lists the policies on a flight in purchase order.
func (l *Ledger) Policies(key flight.Key) []Policy {
	passengers := l.byFlight[key]
	out := make([]Policy, 0, len(passengers))
	for _, passenger := range passengers {
		out = append(out, *l.policies[policyKey{passenger, key}])
	}
	return out
}
