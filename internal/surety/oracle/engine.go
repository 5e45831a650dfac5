package oracle

import (
	"fmt"
	"sort"

	"flightsurety/internal/surety/config"
	"flightsurety/internal/surety/flight"
	"flightsurety/internal/surety/gate"
	"flightsurety/internal/surety/insurance"
	"flightsurety/pkg/domain"
	dErrors "flightsurety/pkg/domain-errors"
)

// FlightBook is the flight state the engine reads and resolves.
type FlightBook interface {
	Flight(key flight.Key) (flight.Flight, bool)
	Resolve(key flight.Key, status flight.StatusCode) bool
}

// Insurer credits policies when a flight is late due to the airline.
type Insurer interface {
	CreditInsurees(key flight.Key) []insurance.Credit
}

// Engine matches oracle responses to open requests and finalizes a request
// once MinOracleResponses oracles agree. Not safe for concurrent use.
type Engine struct {
	rules     config.Rules
	flights   FlightBook
	directory *Directory
	insurer   Insurer
	requests  map[RequestKey]*request
}

func NewEngine(rules config.Rules, flights FlightBook, directory *Directory, insurer Insurer) *Engine {
	return &Engine{
		rules:     rules,
		flights:   flights,
		directory: directory,
		insurer:   insurer,
		requests:  make(map[RequestKey]*request),
	}
}

func (e *Engine) canFetch(g *gate.Gate, key flight.Key) error {
	if err := g.RequireOperational(); err != nil {
		return err
	}
	f, ok := e.flights.Flight(key)
	if !ok {
		return dErrors.New(dErrors.CodeFlightNotFound, "flight is not registered")
	}
	if f.Status.Resolved() {
		return dErrors.New(dErrors.CodeFlightAlreadyResolved, "flight status is already "+f.Status.String())
	}
	return nil
}

// PrepareFetch validates a status request and draws its index.
func (e *Engine) PrepareFetch(g *gate.Gate, key flight.Key, requester domain.Address) (Fetch, error) {
	if err := e.canFetch(g, key); err != nil {
		return Fetch{}, err
	}
	index, nonce := e.directory.DrawIndex(requester)
	return e.fetchPlan(RequestKey{Index: index, Flight: key}, requester, nonce)
}

// PrepareFetchWithIndex validates a status request with an index drawn
// earlier, as when replaying the journal.
func (e *Engine) PrepareFetchWithIndex(g *gate.Gate, key flight.Key, requester domain.Address, index uint8, nonce uint64) (Fetch, error) {
	if err := e.canFetch(g, key); err != nil {
		return Fetch{}, err
	}
	if index >= e.rules.IndexRange {
		return Fetch{}, dErrors.New(dErrors.CodeValidation, fmt.Sprintf("index %d is out of range", index))
	}
	return e.fetchPlan(RequestKey{Index: index, Flight: key}, requester, nonce)
}

func (e *Engine) fetchPlan(rk RequestKey, requester domain.Address, nonce uint64) (Fetch, error) {
	req, exists := e.requests[rk]
	if exists && req.finalized {
		return Fetch{}, dErrors.New(dErrors.CodeAlreadyFinalized, "request "+rk.String()+" is already finalized")
	}
	return Fetch{Key: rk, Requester: requester, Nonce: nonce, Reopened: exists}, nil
}

// ApplyFetch opens the request. Reopening an open request keeps its votes.
func (e *Engine) ApplyFetch(f Fetch) {
	e.directory.AdvanceNonce(f.Nonce)
	if _, exists := e.requests[f.Key]; exists {
		return
	}
	e.requests[f.Key] = newRequest(f.Requester)
}

// FetchFlightStatus validates and applies in one call.
func (e *Engine) FetchFlightStatus(g *gate.Gate, key flight.Key, requester domain.Address) (Fetch, error) {
	f, err := e.PrepareFetch(g, key, requester)
	if err != nil {
		return Fetch{}, err
	}
	e.ApplyFetch(f)
	return f, nil
}

// PrepareResponse validates an oracle response and computes whether it would
// finalize the request. Credits are only known after ApplyResponse.
func (e *Engine) PrepareResponse(g *gate.Gate, index uint8, key flight.Key, status flight.StatusCode, oracle domain.Address) (Submission, error) {
	if err := g.RequireOperational(); err != nil {
		return Submission{}, err
	}
	o, ok := e.directory.Oracle(oracle)
	if !ok {
		return Submission{}, dErrors.New(dErrors.CodeNotRegistered, "oracle is not registered")
	}
	if !o.HasIndex(index) {
		return Submission{}, dErrors.New(dErrors.CodeIndexMismatch, fmt.Sprintf("index %d is not assigned to this oracle", index))
	}
	if !status.Valid() || !status.Resolved() {
		return Submission{}, dErrors.New(dErrors.CodeValidation, "status must be a known code other than unknown")
	}
	rk := RequestKey{Index: index, Flight: key}
	req, exists := e.requests[rk]
	if !exists {
		return Submission{}, dErrors.New(dErrors.CodeNoOpenRequest, "no open request for "+rk.String())
	}
	if req.finalized {
		return Submission{}, dErrors.New(dErrors.CodeAlreadyFinalized, "request "+rk.String()+" is already finalized")
	}

	sub := Submission{Key: rk, Oracle: oracle, Status: status, Counted: !req.hasVoted(status, oracle)}
	sub.Votes = len(req.votes[status])
	if sub.Counted {
		sub.Votes++
	}
	sub.Finalized = sub.Votes >= e.rules.MinOracleResponses
	return sub, nil
}

// ApplyResponse records the vote. On finalization it resolves the flight and,
// for LateAirline, credits insurees once.
func (e *Engine) ApplyResponse(sub Submission) Submission {
	req, ok := e.requests[sub.Key]
	if !ok || req.finalized {
		return sub
	}
	if sub.Counted {
		voters, ok := req.votes[sub.Status]
		if !ok {
			voters = make(map[domain.Address]struct{})
			req.votes[sub.Status] = voters
		}
		voters[sub.Oracle] = struct{}{}
	}
	if !sub.Finalized {
		return sub
	}
	req.finalized = true
	req.status = sub.Status
	sub.FlightResolved = e.flights.Resolve(sub.Key.Flight, sub.Status)
	if sub.FlightResolved && sub.Status == flight.StatusLateAirline && e.insurer != nil {
		sub.Credits = e.insurer.CreditInsurees(sub.Key.Flight)
	}
	return sub
}

// SubmitOracleResponse validates and applies in one call.
func (e *Engine) SubmitOracleResponse(g *gate.Gate, index uint8, key flight.Key, status flight.StatusCode, oracle domain.Address) (Submission, error) {
	sub, err := e.PrepareResponse(g, index, key, status, oracle)
	if err != nil {
		return Submission{}, err
	}
	return e.ApplyResponse(sub), nil
}

// Request returns a view of the request, if it was ever opened.
func (e *Engine) Request(key RequestKey) (Request, bool) {
	req, ok := e.requests[key]
	if !ok {
		return Request{}, false
	}
	return req.view(key), true
}

// OpenRequests lists the unfinalized requests for a flight.
func (e *Engine) OpenRequests(key flight.Key) []Request {
	var out []Request
	for rk, req := range e.requests {
		if rk.Flight == key && !req.finalized {
			out = append(out, req.view(rk))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key.Index < out[j].Key.Index })
	return out
}
