package airline

import (
	"sort"

	"github.com/shopspring/decimal"

	"flightsurety/pkg/domain"
)

// Airline is a read-only view of an airline's admission state.
type Airline struct {
	Address      domain.Address   `json:"address"`
	Name         string           `json:"name"`
	Registered   bool             `json:"registered"`
	Funded       bool             `json:"funded"`
	FundedAmount decimal.Decimal  `json:"funded_amount"`
	NominatedBy  domain.Address   `json:"nominated_by,omitempty"`
	Voters       []domain.Address `json:"voters"`
}

// IsActive reports whether the airline may propose and vote.
func (a Airline) IsActive() bool {
	return a.Registered && a.Funded
}

// record is the mutable state behind an Airline.
//
// Invariants:
//   - registered only becomes true through early growth or a vote majority
//   - voters holds each voter once, so duplicate votes never count twice
//   - funded is set at most once
type record struct {
	address      domain.Address
	name         string
	registered   bool
	funded       bool
	fundedAmount decimal.Decimal
	nominatedBy  domain.Address
	voters       map[domain.Address]struct{}
}

func newRecord(address domain.Address, name string, nominatedBy domain.Address) *record {
	return &record{
		address:      address,
		name:         name,
		nominatedBy:  nominatedBy,
		fundedAmount: decimal.Zero,
		voters:       make(map[domain.Address]struct{}),
	}
}

func (r *record) active() bool {
	return r.registered && r.funded
}

func (r *record) hasVoted(voter domain.Address) bool {
	_, ok := r.voters[voter]
	return ok
}

func (r *record) view() Airline {
	voters := make([]domain.Address, 0, len(r.voters))
	for v := range r.voters {
		voters = append(voters, v)
	}
	sort.Slice(voters, func(i, j int) bool { return voters[i] < voters[j] })
	return Airline{
		Address:      r.address,
		Name:         r.name,
		Registered:   r.registered,
		Funded:       r.funded,
		FundedAmount: r.fundedAmount,
		NominatedBy:  r.nominatedBy,
		Voters:       voters,
	}
}

// Admission is the prepared outcome of a RegisterAirline call.
type Admission struct {
	Candidate domain.Address `json:"candidate"`
	Name      string         `json:"name"`
	Proposer  domain.Address `json:"proposer"`
	// Early is set when the candidate was admitted without a vote.
	Early bool `json:"early"`
	// DuplicateVote is set when the proposer had already voted for the candidate.
	DuplicateVote bool `json:"duplicate_vote"`
	Votes         int  `json:"votes"`
	Required      int  `json:"required"`
	Registered    bool `json:"registered"`
}

// Funding is the prepared outcome of a Fund call.
type Funding struct {
	Airline domain.Address  `json:"airline"`
	Amount  decimal.Decimal `json:"amount"`
}
