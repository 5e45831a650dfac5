package insurance

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"flightsurety/internal/surety/config"
	"flightsurety/internal/surety/flight"
	"flightsurety/internal/surety/gate"
	"flightsurety/pkg/domain"
	dErrors "flightsurety/pkg/domain-errors"
)

var (
	owner      = domain.MustParseAddress("0x627306090abab3a6e1400e9345bc60c78a8bef57")
	airline    = domain.MustParseAddress("0xf17f52151ebef6c7334fad080c5704d77216b732")
	passenger1 = domain.MustParseAddress("0x821aea9a577a9b44299b9c15c88cf3087f3b5544")
	passenger2 = domain.MustParseAddress("0x0d1d4e623d10f9fba5db95830f7d3839406c6af2")
	passenger3 = domain.MustParseAddress("0x2932b7a2355d6fecc4b5c0b6bd44cc31df247a2e")
)

type flightBook map[flight.Key]flight.Flight

func (b flightBook) Flight(key flight.Key) (flight.Flight, bool) {
	f, ok := b[key]
	return f, ok
}

type LedgerSuite struct {
	suite.Suite
	gate    *gate.Gate
	flights flightBook
	ledger  *Ledger
	key     flight.Key
}

func TestLedgerSuite(t *testing.T) {
	suite.Run(t, new(LedgerSuite))
}

func (s *LedgerSuite) SetupTest() {
	s.gate = gate.New(owner)
	key, err := flight.NewKey(airline, "ND1309", 1700)
	s.Require().NoError(err)
	s.key = key
	s.flights = flightBook{key: {Key: key, Status: flight.StatusUnknown}}
	s.ledger = NewLedger(config.Defaults(), s.flights)
}

func dec(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func (s *LedgerSuite) TestBuy() {
	s.Run("unknown flight", func() {
		other, _ := flight.NewKey(airline, "ND0000", 1700)
		_, err := s.ledger.Buy(s.gate, passenger1, other, dec("1"))
		s.True(dErrors.HasCode(err, dErrors.CodeFlightNotFound))
	})

	s.Run("premium bounds", func() {
		for _, premium := range []string{"0", "-1", "1.000001", "2"} {
			_, err := s.ledger.Buy(s.gate, passenger1, s.key, dec(premium))
			s.True(dErrors.HasCode(err, dErrors.CodePremiumOutOfRange), "premium %s", premium)
		}
		s.Empty(s.ledger.Policies(s.key))
	})

	s.Run("premium at the cap is accepted once", func() {
		p, err := s.ledger.Buy(s.gate, passenger1, s.key, dec("1"))
		s.Require().NoError(err)
		s.True(p.Premium.Equal(dec("1")))
		s.False(p.Credited)

		_, err = s.ledger.Buy(s.gate, passenger1, s.key, dec("0.5"))
		s.True(dErrors.HasCode(err, dErrors.CodeAlreadyInsured))

		stored, ok := s.ledger.Policy(passenger1, s.key)
		s.Require().True(ok)
		s.True(stored.Premium.Equal(dec("1")))
	})

	s.Run("resolved flight closes the window", func() {
		s.flights[s.key] = flight.Flight{Key: s.key, Status: flight.StatusOnTime}
		_, err := s.ledger.Buy(s.gate, passenger2, s.key, dec("0.5"))
		s.True(dErrors.HasCode(err, dErrors.CodeFlightAlreadyResolved))
	})

	s.Run("suspended gate", func() {
		s.Require().NoError(s.gate.SetOperatingStatus(owner, false))
		_, err := s.ledger.Buy(s.gate, passenger3, s.key, dec("0.5"))
		s.True(dErrors.HasCode(err, dErrors.CodeOperationsSuspended))
	})
}

func (s *LedgerSuite) TestCreditInsurees() {
	premiums := map[domain.Address]string{passenger1: "1", passenger2: "0.3", passenger3: "0.07"}
	total := decimal.Zero
	for p, v := range premiums {
		_, err := s.ledger.Buy(s.gate, p, s.key, dec(v))
		s.Require().NoError(err)
		total = total.Add(dec(v))
	}

	credits := s.ledger.CreditInsurees(s.key)
	s.Len(credits, 3)

	paid := decimal.Zero
	for _, c := range credits {
		paid = paid.Add(c.Amount)
	}
	s.True(paid.Equal(total.Mul(dec("1.5"))), "paid %s", paid)
	s.True(s.ledger.Balance(passenger1).Equal(dec("1.5")))
	s.True(s.ledger.Balance(passenger3).Equal(dec("0.105")))

	s.Run("second call credits nothing", func() {
		s.Empty(s.ledger.CreditInsurees(s.key))
		s.True(s.ledger.Balance(passenger1).Equal(dec("1.5")))
	})

	s.Run("policies are marked credited", func() {
		for _, p := range s.ledger.Policies(s.key) {
			s.True(p.Credited)
			s.True(p.Payout.Equal(p.Premium.Mul(dec("1.5"))))
		}
	})
}

func (s *LedgerSuite) TestPay() {
	_, err := s.ledger.Buy(s.gate, passenger1, s.key, dec("1"))
	s.Require().NoError(err)

	s.Run("no balance before crediting", func() {
		_, err := s.ledger.Pay(context.Background(), s.gate, passenger1, nil)
		s.True(dErrors.HasCode(err, dErrors.CodeNoBalance))
	})

	s.ledger.CreditInsurees(s.key)

	s.Run("failed transfer restores the balance", func() {
		var seen decimal.Decimal
		_, err := s.ledger.Pay(context.Background(), s.gate, passenger1, func(_ context.Context, w Withdrawal) error {
			seen = s.ledger.Balance(w.Passenger)
			return errors.New("wallet offline")
		})
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
		s.True(seen.IsZero(), "balance must be zero while the transfer runs")
		s.True(s.ledger.Balance(passenger1).Equal(dec("1.5")))
	})

	s.Run("pay zeroes the balance and returns the amount", func() {
		var transferred Withdrawal
		w, err := s.ledger.Pay(context.Background(), s.gate, passenger1, func(_ context.Context, w Withdrawal) error {
			transferred = w
			return nil
		})
		s.Require().NoError(err)
		s.Equal(passenger1, w.Passenger)
		s.True(w.Amount.Equal(dec("1.5")))
		s.Equal(w, transferred)
		s.True(s.ledger.Balance(passenger1).IsZero())
	})

	s.Run("second pay fails", func() {
		_, err := s.ledger.Pay(context.Background(), s.gate, passenger1, nil)
		s.True(dErrors.HasCode(err, dErrors.CodeNoBalance))
	})
}
