package airline

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"flightsurety/internal/surety/config"
	"flightsurety/internal/surety/gate"
	"flightsurety/pkg/domain"
	dErrors "flightsurety/pkg/domain-errors"
)

var (
	owner = domain.MustParseAddress("0x627306090abab3a6e1400e9345bc60c78a8bef57")
	a0    = domain.MustParseAddress("0xf17f52151ebef6c7334fad080c5704d77216b732")
	a1    = domain.MustParseAddress("0xc5fdf4076b8f3a5357c5e395ab970b5b54098fef")
	a2    = domain.MustParseAddress("0x821aea9a577a9b44299b9c15c88cf3087f3b5544")
	a3    = domain.MustParseAddress("0x0d1d4e623d10f9fba5db95830f7d3839406c6af2")
	a4    = domain.MustParseAddress("0x2932b7a2355d6fecc4b5c0b6bd44cc31df247a2e")
	a5    = domain.MustParseAddress("0x2191ef87e392377ec08e7c08eb105ef5448eced5")
)

var ten = decimal.NewFromInt(10)

type RegistrySuite struct {
	suite.Suite
	gate     *gate.Gate
	registry *Registry
}

func TestRegistrySuite(t *testing.T) {
	suite.Run(t, new(RegistrySuite))
}

func (s *RegistrySuite) SetupTest() {
	s.gate = gate.New(owner)
	s.registry = NewRegistry(config.Defaults())
	s.Require().NoError(s.registry.Seed(a0, "Airline_A"))
}

func (s *RegistrySuite) fund(a domain.Address) {
	_, err := s.registry.Fund(s.gate, a, a, ten)
	s.Require().NoError(err)
}

func (s *RegistrySuite) register(candidate, proposer domain.Address) Admission {
	adm, err := s.registry.RegisterAirline(s.gate, candidate, "Airline", proposer)
	s.Require().NoError(err)
	return adm
}

// growToFour funds a0 and admits a1..a3 through early growth.
func (s *RegistrySuite) growToFour() {
	s.fund(a0)
	for _, a := range []domain.Address{a1, a2, a3} {
		s.register(a, a0)
	}
	s.Require().Equal(4, s.registry.RegisteredCount())
}

func (s *RegistrySuite) TestSeed() {
	s.Run("first airline is registered but unfunded", func() {
		s.True(s.registry.IsRegistered(a0))
		s.False(s.registry.IsFunded(a0))
	})

	s.Run("seeding twice is rejected", func() {
		err := s.registry.Seed(a1, "Airline_B")
		s.True(dErrors.HasCode(err, dErrors.CodeAlreadyRegistered))
		s.False(s.registry.IsRegistered(a1))
	})
}

func (s *RegistrySuite) TestFund() {
	s.Run("caller must be the airline", func() {
		_, err := s.registry.Fund(s.gate, owner, a0, ten)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("unknown airline cannot fund", func() {
		_, err := s.registry.Fund(s.gate, a5, a5, ten)
		s.True(dErrors.HasCode(err, dErrors.CodeNotRegistered))
	})

	s.Run("amount below threshold is rejected", func() {
		_, err := s.registry.Fund(s.gate, a0, a0, decimal.RequireFromString("9.99"))
		s.True(dErrors.HasCode(err, dErrors.CodeInsufficientFunds))
		s.False(s.registry.IsFunded(a0))
	})

	s.Run("threshold amount funds the airline once", func() {
		f, err := s.registry.Fund(s.gate, a0, a0, ten)
		s.Require().NoError(err)
		s.True(f.Amount.Equal(ten))
		s.True(s.registry.IsFunded(a0))

		_, err = s.registry.Fund(s.gate, a0, a0, ten)
		s.True(dErrors.HasCode(err, dErrors.CodeAlreadyFunded))
	})

	s.Run("suspended gate blocks funding", func() {
		s.Require().NoError(s.gate.SetOperatingStatus(owner, false))
		defer func() { s.Require().NoError(s.gate.SetOperatingStatus(owner, true)) }()
		_, err := s.registry.Fund(s.gate, a1, a1, ten)
		s.True(dErrors.HasCode(err, dErrors.CodeOperationsSuspended))
	})
}

func (s *RegistrySuite) TestEarlyGrowth() {
	s.Run("unfunded seed cannot propose", func() {
		_, err := s.registry.RegisterAirline(s.gate, a1, "Airline_B", a0)
		s.True(dErrors.HasCode(err, dErrors.CodeNotEligibleToPropose))
		_, known := s.registry.Airline(a1)
		s.False(known)
	})

	s.Run("first four airlines are admitted without a vote", func() {
		s.growToFour()
		for _, a := range []domain.Address{a1, a2, a3} {
			s.True(s.registry.IsRegistered(a))
			s.False(s.registry.IsFunded(a))
		}
	})

	s.Run("registered but unfunded airline cannot propose", func() {
		_, err := s.registry.RegisterAirline(s.gate, a4, "Airline_E", a1)
		s.True(dErrors.HasCode(err, dErrors.CodeNotEligibleToPropose))
	})

	s.Run("already registered candidate is rejected", func() {
		_, err := s.registry.RegisterAirline(s.gate, a1, "Airline_B", a0)
		s.True(dErrors.HasCode(err, dErrors.CodeAlreadyRegistered))
	})
}

// TestMajorityThresholdUsesFundedCountAtVoteTime covers the scenario where only
// a0 and a1 are funded: ceil(2/2) = 1, so a single vote admits the fifth airline.
func (s *RegistrySuite) TestMajorityThresholdUsesFundedCountAtVoteTime() {
	s.growToFour()
	s.fund(a1)

	adm := s.register(a4, a1)
	s.False(adm.Early)
	s.Equal(1, adm.Votes)
	s.Equal(1, adm.Required)
	s.True(adm.Registered)
	s.True(s.registry.IsRegistered(a4))
}

func (s *RegistrySuite) TestMajorityVoting() {
	s.growToFour()
	s.fund(a1)
	s.fund(a2)
	s.fund(a3)
	s.Require().Equal(4, s.registry.FundedRegisteredCount())

	s.Run("one vote of two required leaves the candidate pending", func() {
		adm := s.register(a4, a2)
		s.Equal(1, adm.Votes)
		s.Equal(2, adm.Required)
		s.False(adm.Registered)
		s.False(s.registry.IsRegistered(a4))
	})

	s.Run("duplicate vote does not increase the tally", func() {
		adm := s.register(a4, a2)
		s.True(adm.DuplicateVote)
		s.Equal(1, adm.Votes)
		s.False(s.registry.IsRegistered(a4))

		got, ok := s.registry.Airline(a4)
		s.Require().True(ok)
		s.Equal([]domain.Address{a2}, got.Voters)
	})

	s.Run("second distinct vote reaches the majority", func() {
		adm := s.register(a4, a1)
		s.Equal(2, adm.Votes)
		s.True(adm.Registered)
		s.True(s.registry.IsRegistered(a4))
	})
}

// TestThresholdIsRecomputedPerVote checks that airlines funded after the first
// vote raise the bar for the next one: a threshold frozen at proposal time would
// have admitted a4 on its second vote.
func (s *RegistrySuite) TestThresholdIsRecomputedPerVote() {
	s.growToFour()
	s.fund(a1)
	s.fund(a2)
	s.Require().Equal(2, s.registry.RequiredVotes())

	adm := s.register(a4, a0)
	s.Equal(2, adm.Required)
	s.False(adm.Registered)

	s.register(a5, a0)
	adm = s.register(a5, a1)
	s.Require().True(adm.Registered)
	s.fund(a3)
	s.fund(a5)
	s.Require().Equal(5, s.registry.FundedRegisteredCount())

	adm = s.register(a4, a1)
	s.Equal(2, adm.Votes)
	s.Equal(3, adm.Required)
	s.False(adm.Registered)

	adm = s.register(a4, a2)
	s.Equal(3, adm.Votes)
	s.True(adm.Registered)
}

func (s *RegistrySuite) TestPrepareAdmissionDoesNotMutate() {
	s.growToFour()
	s.fund(a1)

	adm, err := s.registry.PrepareAdmission(s.gate, a4, "Airline_E", a1)
	s.Require().NoError(err)
	s.True(adm.Registered)
	s.False(s.registry.IsRegistered(a4))
	_, known := s.registry.Airline(a4)
	s.False(known)
}

func (s *RegistrySuite) TestNameValidation() {
	s.fund(a0)
	_, err := s.registry.RegisterAirline(s.gate, a1, "   ", a0)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}
