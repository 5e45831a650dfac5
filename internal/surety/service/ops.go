package service

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"flightsurety/internal/events"
	"flightsurety/internal/journal"
	"flightsurety/internal/surety/airline"
	"flightsurety/internal/surety/flight"
	"flightsurety/internal/surety/insurance"
	"flightsurety/internal/surety/oracle"
	"flightsurety/pkg/domain"
	dErrors "flightsurety/pkg/domain-errors"
)

const (
	OpSetOperational    journal.Op = "operational.set"
	OpFundAirline       journal.Op = "airline.fund"
	OpRegisterAirline   journal.Op = "airline.register"
	OpRegisterFlight    journal.Op = "flight.register"
	OpRegisterOracle    journal.Op = "oracle.register"
	OpFetchFlightStatus journal.Op = "oracle.fetch"
	OpSubmitResponse    journal.Op = "oracle.respond"
	OpBuyInsurance      journal.Op = "insurance.buy"
	OpWithdraw          journal.Op = "insurance.withdraw"
	OpWithdrawReverted  journal.Op = "insurance.withdraw_reverted"
)

type operationalChange struct {
	Operational bool `json:"operational"`
}

func flightRef(k flight.Key) events.FlightRef {
	return events.FlightRef{Airline: k.Airline.String(), Flight: k.Flight, Timestamp: k.Timestamp}
}

// SetOperatingStatus opens or closes the gate. Only the owner may call it.
func (s *Service) SetOperatingStatus(ctx context.Context, caller domain.Address, operational bool) error {
	_, err := execute(ctx, s, transition[operationalChange]{
		op:    OpSetOperational,
		actor: caller,
		prepare: func() (operationalChange, error) {
			if err := s.gate.CanSetOperatingStatus(caller); err != nil {
				return operationalChange{}, err
			}
			return operationalChange{Operational: operational}, nil
		},
		apply: func(c operationalChange) operationalChange {
			s.gate.ApplyOperatingStatus(c.Operational)
			return c
		},
		events: func(c operationalChange) []pendingEvent {
			return []pendingEvent{{typ: events.TypeOperationalStatusChanged, key: s.gate.Owner().String(), data: c}}
		},
	})
	return err
}

// Fund records an airline's funding payment. caller must be the airline.
func (s *Service) Fund(ctx context.Context, caller, airlineAddr domain.Address, amount decimal.Decimal) (airline.Funding, error) {
	return execute(ctx, s, transition[airline.Funding]{
		op:    OpFundAirline,
		actor: caller,
		prepare: func() (airline.Funding, error) {
			return s.airlines.PrepareFunding(s.gate, caller, airlineAddr, amount)
		},
		apply: func(f airline.Funding) airline.Funding {
			s.airlines.ApplyFunding(f)
			return f
		},
		events: func(f airline.Funding) []pendingEvent {
			return []pendingEvent{{typ: events.TypeAirlineFunded, key: f.Airline.String(), data: f}}
		},
	})
}

// RegisterAirline nominates or votes for candidate on behalf of proposer.
func (s *Service) RegisterAirline(ctx context.Context, proposer, candidate domain.Address, name string) (airline.Admission, error) {
	return execute(ctx, s, transition[airline.Admission]{
		op:    OpRegisterAirline,
		actor: proposer,
		prepare: func() (airline.Admission, error) {
			return s.airlines.PrepareAdmission(s.gate, candidate, name, proposer)
		},
		apply: func(a airline.Admission) airline.Admission {
			s.airlines.ApplyAdmission(a)
			return a
		},
		events: func(a airline.Admission) []pendingEvent {
			typ := events.TypeAirlineNominated
			if a.Registered {
				typ = events.TypeAirlineRegistered
			}
			return []pendingEvent{{typ: typ, key: a.Candidate.String(), data: a}}
		},
	})
}

// RegisterFlight registers a flight for an active airline. Repeats succeed
// without change.
func (s *Service) RegisterFlight(ctx context.Context, caller domain.Address, key flight.Key) (flight.Registration, error) {
	return execute(ctx, s, transition[flight.Registration]{
		op:    OpRegisterFlight,
		actor: caller,
		prepare: func() (flight.Registration, error) {
			return s.flights.PrepareRegistration(s.gate, key, caller)
		},
		apply: func(r flight.Registration) flight.Registration {
			s.flights.ApplyRegistration(r)
			return r
		},
		events: func(r flight.Registration) []pendingEvent {
			if !r.Created {
				return nil
			}
			return []pendingEvent{{typ: events.TypeFlightRegistered, key: r.Key.ID(), data: r}}
		},
	})
}

// RegisterOracle registers caller as an oracle and assigns its indexes.
func (s *Service) RegisterOracle(ctx context.Context, caller domain.Address, fee decimal.Decimal) (oracle.Oracle, error) {
	reg, err := execute(ctx, s, transition[oracle.Registration]{
		op:    OpRegisterOracle,
		actor: caller,
		prepare: func() (oracle.Registration, error) {
			return s.directory.PrepareRegistration(s.gate, caller, fee)
		},
		apply: func(r oracle.Registration) oracle.Registration {
			s.directory.ApplyRegistration(r)
			return r
		},
		events: func(r oracle.Registration) []pendingEvent {
			return []pendingEvent{{typ: events.TypeOracleRegistered, key: r.Oracle.Address.String(), data: r.Oracle}}
		},
	})
	if err != nil {
		return oracle.Oracle{}, err
	}
	return reg.Oracle, nil
}

// FetchFlightStatus opens a status request and announces it to oracles.
func (s *Service) FetchFlightStatus(ctx context.Context, caller domain.Address, key flight.Key) (oracle.RequestKey, error) {
	f, err := execute(ctx, s, transition[oracle.Fetch]{
		op:    OpFetchFlightStatus,
		actor: caller,
		prepare: func() (oracle.Fetch, error) {
			return s.engine.PrepareFetch(s.gate, key, caller)
		},
		apply: func(f oracle.Fetch) oracle.Fetch {
			s.engine.ApplyFetch(f)
			return f
		},
		events: func(f oracle.Fetch) []pendingEvent {
			return []pendingEvent{{
				typ:  events.TypeOracleRequest,
				key:  f.Key.Flight.ID(),
				data: events.OracleRequest{Index: f.Key.Index, FlightRef: flightRef(f.Key.Flight)},
			}}
		},
	})
	if err != nil {
		return oracle.RequestKey{}, err
	}
	return f.Key, nil
}

// SubmitOracleResponse records an oracle's status vote.
func (s *Service) SubmitOracleResponse(ctx context.Context, caller domain.Address, index uint8, key flight.Key, status flight.StatusCode) (oracle.Submission, error) {
	return execute(ctx, s, transition[oracle.Submission]{
		op:    OpSubmitResponse,
		actor: caller,
		prepare: func() (oracle.Submission, error) {
			return s.engine.PrepareResponse(s.gate, index, key, status, caller)
		},
		apply: func(sub oracle.Submission) oracle.Submission {
			sub = s.engine.ApplyResponse(sub)
			s.observeSubmission(sub)
			return sub
		},
		events: s.submissionEvents,
	})
}

func (s *Service) observeSubmission(sub oracle.Submission) {
	if s.metrics == nil || s.replaying {
		return
	}
	if sub.FlightResolved {
		s.metrics.ObserveResolution(sub.Status.String())
	}
	for _, c := range sub.Credits {
		s.metrics.AddPayout(c.Amount)
	}
}

func (s *Service) submissionEvents(sub oracle.Submission) []pendingEvent {
	key := sub.Key.Flight.ID()
	ref := flightRef(sub.Key.Flight)
	var out []pendingEvent
	if sub.Counted {
		out = append(out, pendingEvent{typ: events.TypeOracleReport, key: key, data: events.OracleReport{
			Index:     sub.Key.Index,
			FlightRef: ref,
			Status:    uint8(sub.Status),
			Oracle:    sub.Oracle.String(),
		}})
	}
	if sub.Finalized {
		out = append(out, pendingEvent{typ: events.TypeFlightStatusInfo, key: key, data: events.FlightStatusInfo{
			Index:     sub.Key.Index,
			FlightRef: ref,
			Status:    uint8(sub.Status),
		}})
	}
	if len(sub.Credits) > 0 {
		out = append(out, pendingEvent{typ: events.TypeInsureesCredited, key: key, data: sub.Credits})
	}
	return out
}

// BuyInsurance buys cover for passenger on a registered, unresolved flight.
func (s *Service) BuyInsurance(ctx context.Context, passenger domain.Address, key flight.Key, premium decimal.Decimal) (insurance.Policy, error) {
	return execute(ctx, s, transition[insurance.Policy]{
		op:    OpBuyInsurance,
		actor: passenger,
		prepare: func() (insurance.Policy, error) {
			return s.insurance.PrepareBuy(s.gate, passenger, key, premium)
		},
		apply: func(p insurance.Policy) insurance.Policy {
			s.insurance.ApplyBuy(p)
			if s.metrics != nil && !s.replaying {
				s.metrics.AddPremium(p.Premium)
			}
			return p
		},
		events: func(p insurance.Policy) []pendingEvent {
			return []pendingEvent{{typ: events.TypeInsurancePurchased, key: key.ID(), data: p}}
		},
	})
}

// Pay withdraws the passenger's whole balance. The balance is zeroed and
// journaled before the transfer runs; a failed transfer restores it and is
// journaled as a reversal.
func (s *Service) Pay(ctx context.Context, passenger domain.Address) (insurance.Withdrawal, error) {
	ctx, span := s.tracer.Start(ctx, "ledger."+string(OpWithdraw),
		trace.WithAttributes(attribute.String("ledger.actor", passenger.String())))
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkHalted(); err != nil {
		s.reject(ctx, span, OpWithdraw, err)
		return insurance.Withdrawal{}, err
	}
	w, err := s.insurance.PreparePay(s.gate, passenger)
	if err != nil {
		s.reject(ctx, span, OpWithdraw, err)
		return insurance.Withdrawal{}, err
	}
	if err := s.record(ctx, OpWithdraw, passenger, w); err != nil {
		span.SetStatus(codes.Error, "journal append failed")
		return insurance.Withdrawal{}, err
	}
	s.insurance.ApplyPay(w)

	if err := s.transfer(ctx, w); err != nil {
		s.insurance.RevertPay(w)
		if recErr := s.recordDurably(ctx, OpWithdrawReverted, passenger, w); recErr != nil {
			s.halt(ctx, fmt.Errorf("reversal of %s withdrawal for %s not journaled: %w", w.Amount, passenger, recErr))
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "transfer failed")
		if s.metrics != nil {
			s.metrics.ObserveTransition(string(OpWithdraw), "transfer_failed")
		}
		s.logger.WarnContext(ctx, "withdrawal transfer failed",
			"passenger", passenger,
			"error", err,
		)
		return insurance.Withdrawal{}, dErrors.Wrap(err, dErrors.CodeInternal, "transfer failed")
	}

	if s.metrics != nil {
		s.metrics.AddWithdrawal(w.Amount)
	}
	s.accept(ctx, span, OpWithdraw)
	return w, nil
}
