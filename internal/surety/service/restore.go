package service

import (
	"context"
	"fmt"

	"flightsurety/internal/journal"
	"flightsurety/internal/surety/airline"
	"flightsurety/internal/surety/flight"
	"flightsurety/internal/surety/insurance"
	"flightsurety/internal/surety/oracle"
	dErrors "flightsurety/pkg/domain-errors"
)

// Restore rebuilds state from the journal. It must run on a freshly built
// service before it takes traffic, and returns the number of entries replayed.
// Every entry is validated again as it is applied; an entry that no longer
// validates means the journal and the rules disagree, and Restore stops.
func (s *Service) Restore(ctx context.Context) (int, error) {
	entries, err := s.journal.List(ctx)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list journal")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.replaying = true
	defer func() { s.replaying = false }()

	for i, entry := range entries {
		if err := s.replay(entry); err != nil {
			return i, fmt.Errorf("replay entry %d (%s): %w", entry.Seq, entry.Op, err)
		}
	}
	s.refreshCounts()
	s.logger.InfoContext(ctx, "ledger restored", "entries", len(entries))
	return len(entries), nil
}

func (s *Service) replay(entry journal.Entry) error {
	switch entry.Op {
	case OpSetOperational:
		var c operationalChange
		if err := entry.Decode(&c); err != nil {
			return err
		}
		if err := s.gate.CanSetOperatingStatus(entry.Actor); err != nil {
			return err
		}
		s.gate.ApplyOperatingStatus(c.Operational)

	case OpFundAirline:
		var f airline.Funding
		if err := entry.Decode(&f); err != nil {
			return err
		}
		plan, err := s.airlines.PrepareFunding(s.gate, entry.Actor, f.Airline, f.Amount)
		if err != nil {
			return err
		}
		s.airlines.ApplyFunding(plan)

	case OpRegisterAirline:
		var a airline.Admission
		if err := entry.Decode(&a); err != nil {
			return err
		}
		plan, err := s.airlines.PrepareAdmission(s.gate, a.Candidate, a.Name, a.Proposer)
		if err != nil {
			return err
		}
		s.airlines.ApplyAdmission(plan)

	case OpRegisterFlight:
		var r flight.Registration
		if err := entry.Decode(&r); err != nil {
			return err
		}
		plan, err := s.flights.PrepareRegistration(s.gate, r.Key, r.RegisteredBy)
		if err != nil {
			return err
		}
		s.flights.ApplyRegistration(plan)

	case OpRegisterOracle:
		var r oracle.Registration
		if err := entry.Decode(&r); err != nil {
			return err
		}
		plan, err := s.directory.PrepareRegistrationWithIndexes(s.gate, r.Oracle.Address, r.Oracle.Fee, r.Oracle.Indexes, r.Nonce)
		if err != nil {
			return err
		}
		s.directory.ApplyRegistration(plan)

	case OpFetchFlightStatus:
		var f oracle.Fetch
		if err := entry.Decode(&f); err != nil {
			return err
		}
		plan, err := s.engine.PrepareFetchWithIndex(s.gate, f.Key.Flight, f.Requester, f.Key.Index, f.Nonce)
		if err != nil {
			return err
		}
		s.engine.ApplyFetch(plan)

	case OpSubmitResponse:
		var sub oracle.Submission
		if err := entry.Decode(&sub); err != nil {
			return err
		}
		plan, err := s.engine.PrepareResponse(s.gate, sub.Key.Index, sub.Key.Flight, sub.Status, sub.Oracle)
		if err != nil {
			return err
		}
		s.engine.ApplyResponse(plan)

	case OpBuyInsurance:
		var p insurance.Policy
		if err := entry.Decode(&p); err != nil {
			return err
		}
		plan, err := s.insurance.PrepareBuy(s.gate, p.Passenger, p.Flight, p.Premium)
		if err != nil {
			return err
		}
		s.insurance.ApplyBuy(plan)

	case OpWithdraw:
		var w insurance.Withdrawal
		if err := entry.Decode(&w); err != nil {
			return err
		}
		plan, err := s.insurance.PreparePay(s.gate, w.Passenger)
		if err != nil {
			return err
		}
		s.insurance.ApplyPay(plan)

	case OpWithdrawReverted:
		var w insurance.Withdrawal
		if err := entry.Decode(&w); err != nil {
			return err
		}
		s.insurance.RevertPay(w)

	default:
		return dErrors.New(dErrors.CodeInvariantViolation, "unknown journal op "+string(entry.Op))
	}
	return nil
}
