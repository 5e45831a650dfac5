package oracle

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"flightsurety/internal/surety/config"
	"flightsurety/internal/surety/flight"
	"flightsurety/internal/surety/gate"
	"flightsurety/internal/surety/insurance"
	"flightsurety/pkg/domain"
	dErrors "flightsurety/pkg/domain-errors"
)

var (
	airline   = domain.MustParseAddress("0xf17f52151ebef6c7334fad080c5704d77216b732")
	passenger = domain.MustParseAddress("0x821aea9a577a9b44299b9c15c88cf3087f3b5544")
	stranger  = domain.MustParseAddress("0x0d1d4e623d10f9fba5db95830f7d3839406c6af2")
)

type activeAirlines map[domain.Address]bool

func (a activeAirlines) IsActive(addr domain.Address) bool { return a[addr] }

type EngineSuite struct {
	suite.Suite
	gate      *gate.Gate
	flights   *flight.Registry
	directory *Directory
	ledger    *insurance.Ledger
	engine    *Engine
	key       flight.Key
}

func TestEngineSuite(t *testing.T) {
	suite.Run(t, new(EngineSuite))
}

func (s *EngineSuite) SetupTest() {
	rules := config.Defaults()
	s.gate = gate.New(owner)
	s.flights = flight.NewRegistry(activeAirlines{airline: true})
	// Four oracles all receive {1, 2, 3}; the first status request draws 2
	// and later ones cycle through the sequence again.
	s.directory = NewDirectory(rules, NewSequenceIndexSource(1, 2, 3, 1, 2, 3, 1, 2, 3, 1, 2, 3, 2))
	s.ledger = insurance.NewLedger(rules, s.flights)
	s.engine = NewEngine(rules, s.flights, s.directory, s.ledger)

	for _, o := range []domain.Address{oracle1, oracle2, oracle3, oracle4} {
		reg, err := s.directory.RegisterOracle(s.gate, o, decimal.NewFromInt(1))
		s.Require().NoError(err)
		s.Require().Equal([3]uint8{1, 2, 3}, reg.Indexes)
	}

	key, err := flight.NewKey(airline, "ND1309", 1700)
	s.Require().NoError(err)
	s.key = key
	_, err = s.flights.RegisterFlight(s.gate, key, airline)
	s.Require().NoError(err)
}

func (s *EngineSuite) open() RequestKey {
	f, err := s.engine.FetchFlightStatus(s.gate, s.key, passenger)
	s.Require().NoError(err)
	return f.Key
}

func (s *EngineSuite) vote(rk RequestKey, status flight.StatusCode, o domain.Address) Submission {
	sub, err := s.engine.SubmitOracleResponse(s.gate, rk.Index, rk.Flight, status, o)
	s.Require().NoError(err)
	return sub
}

func (s *EngineSuite) TestFetchFlightStatus() {
	s.Run("unregistered flight", func() {
		other, _ := flight.NewKey(airline, "ND0000", 1700)
		_, err := s.engine.FetchFlightStatus(s.gate, other, passenger)
		s.True(dErrors.HasCode(err, dErrors.CodeFlightNotFound))
	})

	s.Run("opens a request at the drawn index", func() {
		nonce := s.directory.Nonce()
		f, err := s.engine.FetchFlightStatus(s.gate, s.key, passenger)
		s.Require().NoError(err)
		s.Equal(uint8(2), f.Key.Index)
		s.False(f.Reopened)
		s.Equal(nonce+1, s.directory.Nonce())

		req, ok := s.engine.Request(f.Key)
		s.Require().True(ok)
		s.False(req.Finalized)
		s.Equal(passenger, req.Requester)
	})

	s.Run("reopening keeps collected votes", func() {
		rk := RequestKey{Index: 2, Flight: s.key}
		s.vote(rk, flight.StatusLateAirline, oracle1)

		f, err := s.engine.PrepareFetchWithIndex(s.gate, s.key, stranger, 2, s.directory.Nonce()+1)
		s.Require().NoError(err)
		s.True(f.Reopened)
		s.engine.ApplyFetch(f)

		req, _ := s.engine.Request(rk)
		s.Equal([]domain.Address{oracle1}, req.Votes[flight.StatusLateAirline])
		s.Equal(passenger, req.Requester)
	})
}

func (s *EngineSuite) TestSubmitValidation() {
	s.Run("no open request", func() {
		_, err := s.engine.SubmitOracleResponse(s.gate, 1, s.key, flight.StatusOnTime, oracle1)
		s.True(dErrors.HasCode(err, dErrors.CodeNoOpenRequest))
	})

	rk := s.open()

	s.Run("unregistered oracle", func() {
		_, err := s.engine.SubmitOracleResponse(s.gate, rk.Index, s.key, flight.StatusOnTime, stranger)
		s.True(dErrors.HasCode(err, dErrors.CodeNotRegistered))
	})

	s.Run("index outside the oracle's set is rejected without a vote", func() {
		_, err := s.engine.SubmitOracleResponse(s.gate, 7, s.key, flight.StatusOnTime, oracle1)
		s.True(dErrors.HasCode(err, dErrors.CodeIndexMismatch))

		req, _ := s.engine.Request(rk)
		s.Empty(req.Votes)
	})

	s.Run("unknown status is not a vote", func() {
		_, err := s.engine.SubmitOracleResponse(s.gate, rk.Index, s.key, flight.StatusUnknown, oracle1)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
		_, err = s.engine.SubmitOracleResponse(s.gate, rk.Index, s.key, flight.StatusCode(11), oracle1)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("suspended gate", func() {
		s.Require().NoError(s.gate.SetOperatingStatus(owner, false))
		_, err := s.engine.SubmitOracleResponse(s.gate, rk.Index, s.key, flight.StatusOnTime, oracle1)
		s.True(dErrors.HasCode(err, dErrors.CodeOperationsSuspended))
	})
}

func (s *EngineSuite) TestConsensus() {
	_, err := s.ledger.Buy(s.gate, passenger, s.key, decimal.NewFromInt(1))
	s.Require().NoError(err)
	rk := s.open()

	s.Run("split votes keep the flight unknown", func() {
		s.False(s.vote(rk, flight.StatusLateAirline, oracle1).Finalized)
		s.False(s.vote(rk, flight.StatusLateAirline, oracle2).Finalized)
		s.False(s.vote(rk, flight.StatusOnTime, oracle3).Finalized)
		s.Equal(flight.StatusUnknown, s.flights.Status(s.key))
	})

	s.Run("repeat vote is not counted", func() {
		sub := s.vote(rk, flight.StatusLateAirline, oracle2)
		s.False(sub.Counted)
		s.Equal(2, sub.Votes)
		s.False(sub.Finalized)
	})

	s.Run("third agreeing vote finalizes and credits", func() {
		sub := s.vote(rk, flight.StatusLateAirline, oracle4)
		s.True(sub.Finalized)
		s.True(sub.FlightResolved)
		s.Equal(3, sub.Votes)
		s.Require().Len(sub.Credits, 1)
		s.True(sub.Credits[0].Amount.Equal(decimal.RequireFromString("1.5")))

		s.Equal(flight.StatusLateAirline, s.flights.Status(s.key))
		s.True(s.ledger.Balance(passenger).Equal(decimal.RequireFromString("1.5")))

		req, _ := s.engine.Request(rk)
		s.True(req.Finalized)
		s.Equal(flight.StatusLateAirline, req.Status)
		s.Empty(s.engine.OpenRequests(s.key))
	})

	s.Run("finalized request rejects further responses", func() {
		_, err := s.engine.SubmitOracleResponse(s.gate, rk.Index, s.key, flight.StatusOnTime, oracle1)
		s.True(dErrors.HasCode(err, dErrors.CodeAlreadyFinalized))
		s.Equal(flight.StatusLateAirline, s.flights.Status(s.key))
	})

	s.Run("resolved flight takes no new requests", func() {
		_, err := s.engine.FetchFlightStatus(s.gate, s.key, passenger)
		s.True(dErrors.HasCode(err, dErrors.CodeFlightAlreadyResolved))
	})

	s.Run("balance is credited once", func() {
		s.True(s.ledger.Balance(passenger).Equal(decimal.RequireFromString("1.5")))
	})
}

func (s *EngineSuite) TestFirstWriterWinsAcrossRequests() {
	_, err := s.ledger.Buy(s.gate, passenger, s.key, decimal.NewFromInt(1))
	s.Require().NoError(err)

	onTime := s.open()
	late, err := s.engine.PrepareFetchWithIndex(s.gate, s.key, passenger, 1, s.directory.Nonce()+1)
	s.Require().NoError(err)
	s.engine.ApplyFetch(late)
	s.Len(s.engine.OpenRequests(s.key), 2)

	s.vote(late.Key, flight.StatusLateAirline, oracle1)
	s.vote(late.Key, flight.StatusLateAirline, oracle2)

	s.vote(onTime, flight.StatusOnTime, oracle1)
	s.vote(onTime, flight.StatusOnTime, oracle2)
	first := s.vote(onTime, flight.StatusOnTime, oracle3)
	s.True(first.FlightResolved)
	s.Empty(first.Credits)

	second := s.vote(late.Key, flight.StatusLateAirline, oracle3)
	s.True(second.Finalized)
	s.False(second.FlightResolved)
	s.Empty(second.Credits)

	s.Equal(flight.StatusOnTime, s.flights.Status(s.key))
	s.True(s.ledger.Balance(passenger).IsZero())
}
