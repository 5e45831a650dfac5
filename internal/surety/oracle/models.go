package oracle

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"flightsurety/internal/surety/flight"
	"flightsurety/internal/surety/insurance"
	"flightsurety/pkg/domain"
)

// Oracle is a registered status reporter and its assigned indexes.
type Oracle struct {
	Address domain.Address  `json:"address"`
	Indexes [3]uint8        `json:"indexes"`
	Fee     decimal.Decimal `json:"fee"`
}

// HasIndex reports whether index is one of the oracle's assigned values.
func (o Oracle) HasIndex(index uint8) bool {
	for _, i := range o.Indexes {
		if i == index {
			return true
		}
	}
	return false
}

// Registration is a prepared oracle registration. Nonce is the directory nonce
// after the draw.
type Registration struct {
	Oracle Oracle `json:"oracle"`
	Nonce  uint64 `json:"nonce"`
}

// RequestKey identifies a status request: one index and one flight.
type RequestKey struct {
	Index  uint8      `json:"index"`
	Flight flight.Key `json:"flight"`
}

func (k RequestKey) String() string {
	return fmt.Sprintf("%d:%s", k.Index, k.Flight)
}

// Request is a read-only view of a status request.
type Request struct {
	Key       RequestKey                             `json:"key"`
	Requester domain.Address                         `json:"requester"`
	Finalized bool                                   `json:"finalized"`
	Status    flight.StatusCode                      `json:"status"`
	Votes     map[flight.StatusCode][]domain.Address `json:"votes"`
}

// Fetch is a prepared status request.
type Fetch struct {
	Key       RequestKey     `json:"key"`
	Requester domain.Address `json:"requester"`
	Nonce     uint64         `json:"nonce"`
	Reopened  bool           `json:"reopened"`
}

// Submission is the outcome of an oracle response. Counted is false for a
// repeated vote. FlightResolved is true only for the submission that set the
// flight's status.
type Submission struct {
	Key            RequestKey         `json:"key"`
	Oracle         domain.Address     `json:"oracle"`
	Status         flight.StatusCode  `json:"status"`
	Counted        bool               `json:"counted"`
	Votes          int                `json:"votes"`
	Finalized      bool               `json:"finalized"`
	FlightResolved bool               `json:"flight_resolved"`
	Credits        []insurance.Credit `json:"credits,omitempty"`
}

type request struct {
	requester domain.Address
	finalized bool
	status    flight.StatusCode
	votes     map[flight.StatusCode]map[domain.Address]struct{}
}

func newRequest(requester domain.Address) *request {
	return &request{
		requester: requester,
		votes:     make(map[flight.StatusCode]map[domain.Address]struct{}),
	}
}

func (r *request) hasVoted(status flight.StatusCode, oracle domain.Address) bool {
	_, ok := r.votes[status][oracle]
	return ok
}

func (r *request) view(key RequestKey) Request {
	votes := make(map[flight.StatusCode][]domain.Address, len(r.votes))
	for status, voters := range r.votes {
		list := make([]domain.Address, 0, len(voters))
		for v := range voters {
			list = append(list, v)
		}
		sort.Slice(list, func(i, j int) bool { return list[i] < list[j] })
		votes[status] = list
	}
	return Request{
		Key:       key,
		Requester: r.requester,
		Finalized: r.finalized,
		Status:    r.status,
		Votes:     votes,
	}
}
