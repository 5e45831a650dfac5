// Package airline tracks airline admission and the multiparty vote that admits
// airlines once the early-growth phase is over.
package airline

import (
	"strings"

	"github.com/shopspring/decimal"

	"flightsurety/internal/surety/config"
	"flightsurety/internal/surety/gate"
	"flightsurety/pkg/domain"
	dErrors "flightsurety/pkg/domain-errors"
)

const maxNameLength = 128

// Registry owns airline admission state. It is not safe for concurrent use;
// the ledger service serializes access.
type Registry struct {
	rules    config.Rules
	airlines map[domain.Address]*record
	order    []domain.Address
}

func NewRegistry(rules config.Rules) *Registry {
	return &Registry{
		rules:    rules,
		airlines: make(map[domain.Address]*record),
	}
}

// CanSeed checks that the registry is still empty of registered airlines.
func (r *Registry) CanSeed(first domain.Address, name string) error {
	if first.IsZero() {
		return dErrors.New(dErrors.CodeValidation, "first airline address is required")
	}
	if err := validateName(name); err != nil {
		return err
	}
	if r.RegisteredCount() > 0 {
		return dErrors.New(dErrors.CodeAlreadyRegistered, "registry is already seeded")
	}
	return nil
}

// ApplySeed registers the first airline, unfunded.
func (r *Registry) ApplySeed(first domain.Address, name string) {
	rec := r.ensure(first, strings.TrimSpace(name), "")
	rec.registered = true
}

// Seed validates and applies in one call.
func (r *Registry) Seed(first domain.Address, name string) error {
	if err := r.CanSeed(first, name); err != nil {
		return err
	}
	r.ApplySeed(first, name)
	return nil
}

// PrepareFunding validates a funding payment without changing state.
func (r *Registry) PrepareFunding(g *gate.Gate, caller, airline domain.Address, amount decimal.Decimal) (Funding, error) {
	if err := g.RequireOperational(); err != nil {
		return Funding{}, err
	}
	if caller != airline {
		return Funding{}, dErrors.New(dErrors.CodeUnauthorized, "only the airline itself can pay its funding")
	}
	rec, ok := r.airlines[airline]
	if !ok || !rec.registered {
		return Funding{}, dErrors.New(dErrors.CodeNotRegistered, "airline is not registered")
	}
	if rec.funded {
		return Funding{}, dErrors.New(dErrors.CodeAlreadyFunded, "airline has already paid its funding")
	}
	if amount.LessThan(r.rules.FundThreshold) {
		return Funding{}, dErrors.New(dErrors.CodeInsufficientFunds, "funding must be at least "+r.rules.FundThreshold.String())
	}
	return Funding{Airline: airline, Amount: amount}, nil
}

// ApplyFunding marks the airline funded. Call PrepareFunding first.
func (r *Registry) ApplyFunding(f Funding) {
	rec := r.airlines[f.Airline]
	rec.funded = true
	rec.fundedAmount = f.Amount
}

// Fund validates and applies in one call.
func (r *Registry) Fund(g *gate.Gate, caller, airline domain.Address, amount decimal.Decimal) (Funding, error) {
	f, err := r.PrepareFunding(g, caller, airline, amount)
	if err != nil {
		return Funding{}, err
	}
	r.ApplyFunding(f)
	return f, nil
}

// PrepareAdmission computes what registering candidate on behalf of proposer
// would do: admit it outright during early growth, or count the proposer's vote
// against the live majority threshold.
func (r *Registry) PrepareAdmission(g *gate.Gate, candidate domain.Address, name string, proposer domain.Address) (Admission, error) {
	if err := g.RequireOperational(); err != nil {
		return Admission{}, err
	}
	if candidate.IsZero() {
		return Admission{}, dErrors.New(dErrors.CodeValidation, "candidate address is required")
	}
	name = strings.TrimSpace(name)
	if err := validateName(name); err != nil {
		return Admission{}, err
	}
	if prop, ok := r.airlines[proposer]; !ok || !prop.active() {
		return Admission{}, dErrors.New(dErrors.CodeNotEligibleToPropose, "proposer must be a registered and funded airline")
	}

	adm := Admission{Candidate: candidate, Name: name, Proposer: proposer}
	rec, exists := r.airlines[candidate]
	if exists {
		if rec.registered {
			return Admission{}, dErrors.New(dErrors.CodeAlreadyRegistered, "airline is already registered")
		}
		adm.Name = rec.name
	}

	if r.RegisteredCount() < r.rules.EarlyGrowthLimit {
		adm.Early = true
		adm.Registered = true
		return adm, nil
	}

	votes := 0
	if exists {
		votes = len(rec.voters)
		adm.DuplicateVote = rec.hasVoted(proposer)
	}
	if !adm.DuplicateVote {
		votes++
	}
	adm.Votes = votes
	adm.Required = r.RequiredVotes()
	adm.Registered = votes >= adm.Required
	return adm, nil
}

// ApplyAdmission records the prepared vote or early admission.
func (r *Registry) ApplyAdmission(a Admission) {
	rec := r.ensure(a.Candidate, a.Name, a.Proposer)
	if !a.Early {
		rec.voters[a.Proposer] = struct{}{}
	}
	if a.Registered {
		rec.registered = true
	}
}

// RegisterAirline validates and applies in one call.
func (r *Registry) RegisterAirline(g *gate.Gate, candidate domain.Address, name string, proposer domain.Address) (Admission, error) {
	a, err := r.PrepareAdmission(g, candidate, name, proposer)
	if err != nil {
		return Admission{}, err
	}
	r.ApplyAdmission(a)
	return a, nil
}

// RequiredVotes is ceil(fundedRegistered / 2), computed from live state on
// every call. It is never cached so airlines funded after a proposal count.
func (r *Registry) RequiredVotes() int {
	n := r.FundedRegisteredCount()
	return (n + 1) / 2
}

func (r *Registry) IsRegistered(a domain.Address) bool {
	rec, ok := r.airlines[a]
	return ok && rec.registered
}

func (r *Registry) IsFunded(a domain.Address) bool {
	rec, ok := r.airlines[a]
	return ok && rec.funded
}

// IsActive reports registered and funded.
func (r *Registry) IsActive(a domain.Address) bool {
	rec, ok := r.airlines[a]
	return ok && rec.active()
}

func (r *Registry) Airline(a domain.Address) (Airline, bool) {
	rec, ok := r.airlines[a]
	if !ok {
		return Airline{}, false
	}
	return rec.view(), true
}

// Airlines lists every known airline, nominated or registered, in nomination order.
func (r *Registry) Airlines() []Airline {
	out := make([]Airline, 0, len(r.order))
	for _, a := range r.order {
		out = append(out, r.airlines[a].view())
	}
	return out
}

func (r *Registry) RegisteredCount() int {
	n := 0
	for _, rec := range r.airlines {
		if rec.registered {
			n++
		}
	}
	return n
}

func (r *Registry) FundedRegisteredCount() int {
	n := 0
	for _, rec := range r.airlines {
		if rec.active() {
			n++
		}
	}
	return n
}

func (r *Registry) ensure(a domain.Address, name string, nominatedBy domain.Address) *record {
	rec, ok := r.airlines[a]
	if !ok {
		rec = newRecord(a, name, nominatedBy)
		r.airlines[a] = rec
		r.order = append(r.order, a)
	}
	return rec
}

func validateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return dErrors.New(dErrors.CodeValidation, "airline name cannot be empty")
	}
	if len(name) > maxNameLength {
		return dErrors.New(dErrors.CodeValidation, "airline name must be 128 characters or less")
	}
	return nil
}
