package handler

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	jwttoken "flightsurety/internal/jwt_token"
	"flightsurety/internal/ratelimit"
	"flightsurety/internal/surety/oracle"
	"flightsurety/internal/surety/service"
	"flightsurety/pkg/domain"
	"flightsurety/pkg/testutil"
)

var (
	owner     = domain.MustParseAddress("0x627306090abab3a6e1400e9345bc60c78a8bef57")
	seed      = domain.MustParseAddress("0xf17f52151ebef6c7334fad080c5704d77216b732")
	passenger = domain.MustParseAddress("0x821aea9a577a9b44299b9c15c88cf3087f3b5544")
	oracles   = []domain.Address{
		domain.MustParseAddress("0x0d1d4e623d10f9fba5db95830f7d3839406c6af2"),
		domain.MustParseAddress("0x2932b7a2355d6fecc4b5c0b6bd44cc31df247a2e"),
		domain.MustParseAddress("0x2191ef87e392377ec08e7c08eb105ef5448eced5"),
	}
)

type HandlerSuite struct {
	suite.Suite
	jwt    *jwttoken.JWTService
	ledger *service.Service
	router chi.Router
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ledger, err := service.New(owner, seed, "Seed Air",
		service.WithLogger(logger),
		service.WithIndexSource(oracle.NewSequenceIndexSource(0, 1, 2)),
	)
	s.Require().NoError(err)
	s.ledger = ledger
	s.jwt = jwttoken.NewJWTService("test-signing-key", "flightsurety", "flightsurety-api")

	h := New(ledger, Deployment{LedgerEndpoint: "http://ledger.test"}, jwttoken.NewJWTServiceAdapter(s.jwt), logger)
	s.router = chi.NewRouter()
	h.Register(s.router)
}

func (s *HandlerSuite) do(method, path string, caller domain.Address, body any) *httptest.ResponseRecorder {
	req := testutil.NewJSONRequest(s.T(), method, path, body)
	if caller != "" {
		token, err := s.jwt.GenerateAccessToken(caller, time.Hour)
		s.Require().NoError(err)
		req = testutil.WithBearer(req, token)
	}
	return testutil.DoRequest(s.router, req)
}

func flightPath(suffix string) string {
	return "/v1/flights/" + seed.String() + "/ND1309/1700000000" + suffix
}

func (s *HandlerSuite) TestPublicReads() {
	s.Run("operational", func() {
		rr := s.do(http.MethodGet, "/v1/operational", "", nil)
		testutil.AssertStatus(s.T(), rr, http.StatusOK)
		testutil.AssertJSONContains(s.T(), rr, "operational", true)
	})

	s.Run("deployment", func() {
		rr := s.do(http.MethodGet, "/v1/deployment", "", nil)
		resp := testutil.UnmarshalResponse[DeploymentResponse](s.T(), rr)
		s.Equal("http://ledger.test", resp.LedgerEndpoint)
		s.Equal(owner.String(), resp.Owner)
	})

	s.Run("unregistered flight reports unknown", func() {
		rr := s.do(http.MethodGet, flightPath(""), "", nil)
		testutil.AssertStatus(s.T(), rr, http.StatusOK)
		resp := testutil.UnmarshalResponse[FlightResponse](s.T(), rr)
		s.Equal("unknown", resp.Status)
	})

	s.Run("unknown airline is not found", func() {
		rr := s.do(http.MethodGet, "/v1/airlines/"+passenger.String(), "", nil)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusNotFound, "not_found")
	})

	s.Run("malformed address is rejected", func() {
		rr := s.do(http.MethodGet, "/v1/airlines/not-an-address", "", nil)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusUnprocessableEntity, "validation_error")
	})
}

func (s *HandlerSuite) TestMutationsRequireToken() {
	rr := s.do(http.MethodPost, "/v1/insurance/withdrawals", "", nil)
	testutil.AssertStatusAndError(s.T(), rr, http.StatusUnauthorized, "unauthorized")
}

func (s *HandlerSuite) TestOperationalSwitch() {
	s.Run("non-owner is rejected", func() {
		rr := s.do(http.MethodPut, "/v1/operational", passenger, map[string]any{"operational": false})
		testutil.AssertStatusAndError(s.T(), rr, http.StatusUnauthorized, "unauthorized")
	})

	s.Run("missing field is a validation error", func() {
		rr := s.do(http.MethodPut, "/v1/operational", owner, map[string]any{})
		testutil.AssertStatusAndError(s.T(), rr, http.StatusUnprocessableEntity, "validation_error")
	})

	s.Run("suspended ledger refuses funding", func() {
		rr := s.do(http.MethodPut, "/v1/operational", owner, map[string]any{"operational": false})
		testutil.AssertStatus(s.T(), rr, http.StatusOK)

		rr = s.do(http.MethodPost, "/v1/airlines/"+seed.String()+"/fund", seed, FundRequest{Amount: "10"})
		testutil.AssertStatusAndError(s.T(), rr, http.StatusServiceUnavailable, "operations_suspended")
	})
}

func (s *HandlerSuite) TestUnknownFieldsAreRejected() {
	rr := s.do(http.MethodPost, "/v1/oracles", oracles[0], map[string]any{"fee": "1", "bonus": "1"})
	testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "bad_request")
}

func (s *HandlerSuite) TestInsuranceLifecycle() {
	rr := s.do(http.MethodPost, "/v1/airlines/"+seed.String()+"/fund", seed, FundRequest{Amount: "10"})
	testutil.AssertStatus(s.T(), rr, http.StatusOK)

	rr = s.do(http.MethodPost, "/v1/flights", seed, RegisterFlightRequest{Flight: "ND1309", Timestamp: 1700000000})
	testutil.AssertStatus(s.T(), rr, http.StatusCreated)

	ref := FlightRequest{Airline: seed.String(), Flight: "ND1309", Timestamp: 1700000000}
	rr = s.do(http.MethodPost, "/v1/insurance/policies", passenger, BuyInsuranceRequest{FlightRequest: ref, Premium: "1"})
	testutil.AssertStatus(s.T(), rr, http.StatusCreated)

	rr = s.do(http.MethodPost, "/v1/insurance/policies", passenger, BuyInsuranceRequest{FlightRequest: ref, Premium: "1"})
	testutil.AssertStatusAndError(s.T(), rr, http.StatusConflict, "already_insured")

	for _, o := range oracles {
		rr = s.do(http.MethodPost, "/v1/oracles", o, RegisterOracleRequest{Fee: "1"})
		testutil.AssertStatus(s.T(), rr, http.StatusCreated)
	}
	rr = s.do(http.MethodGet, "/v1/oracles/me/indexes", oracles[0], nil)
	idx := testutil.UnmarshalResponse[OracleResponse](s.T(), rr)
	s.Equal([3]uint8{0, 1, 2}, idx.Indexes)

	rr = s.do(http.MethodPost, flightPath("/status-requests"), passenger, nil)
	testutil.AssertStatus(s.T(), rr, http.StatusAccepted)
	req := testutil.UnmarshalResponse[StatusRequestResponse](s.T(), rr)

	var sub *SubmissionResponse
	for _, o := range oracles {
		rr = s.do(http.MethodPost, "/v1/oracle/responses", o, OracleResponseRequest{
			Index:         req.Index,
			FlightRequest: ref,
			StatusCode:    20,
		})
		testutil.AssertStatus(s.T(), rr, http.StatusOK)
		sub = testutil.UnmarshalResponse[SubmissionResponse](s.T(), rr)
	}
	s.True(sub.Finalized)
	s.Equal(1, sub.Credited)

	rr = s.do(http.MethodGet, flightPath(""), "", nil)
	s.Equal("late_airline", testutil.UnmarshalResponse[FlightResponse](s.T(), rr).Status)

	rr = s.do(http.MethodGet, "/v1/insurance/balance", passenger, nil)
	s.Equal("1.5", testutil.UnmarshalResponse[BalanceResponse](s.T(), rr).Balance)

	rr = s.do(http.MethodPost, "/v1/insurance/withdrawals", passenger, nil)
	testutil.AssertStatus(s.T(), rr, http.StatusOK)
	s.Equal("1.5", testutil.UnmarshalResponse[WithdrawalResponse](s.T(), rr).Amount)

	rr = s.do(http.MethodPost, "/v1/insurance/withdrawals", passenger, nil)
	testutil.AssertStatusAndError(s.T(), rr, http.StatusUnprocessableEntity, "no_balance")
}

func (s *HandlerSuite) TestOracleResponseValidation() {
	rr := s.do(http.MethodPost, "/v1/oracle/responses", oracles[0], OracleResponseRequest{
		FlightRequest: FlightRequest{Airline: seed.String(), Flight: "ND1309", Timestamp: 1},
		StatusCode:    25,
	})
	testutil.AssertStatusAndError(s.T(), rr, http.StatusUnprocessableEntity, "validation_error")
}

func (s *HandlerSuite) TestAirlineAdmission() {
	candidate := domain.MustParseAddress("0xc5fdf4076b8f3a5357c5e395ab970b5b54098fef")

	rr := s.do(http.MethodPost, "/v1/airlines", seed, RegisterAirlineRequest{Address: candidate.String(), Name: "Second Air"})
	testutil.AssertStatusAndError(s.T(), rr, http.StatusForbidden, "not_eligible_to_propose")

	rr = s.do(http.MethodPost, "/v1/airlines/"+seed.String()+"/fund", seed, FundRequest{Amount: "10"})
	testutil.AssertStatus(s.T(), rr, http.StatusOK)

	rr = s.do(http.MethodPost, "/v1/airlines", seed, RegisterAirlineRequest{Address: candidate.String(), Name: "Second Air"})
	testutil.AssertStatus(s.T(), rr, http.StatusCreated)

	rr = s.do(http.MethodGet, "/v1/airlines/"+candidate.String(), "", nil)
	a := testutil.UnmarshalResponse[AirlineResponse](s.T(), rr)
	s.True(a.Registered)
	s.False(a.Funded)
	s.Equal("Second Air", a.Name)
}

func (s *HandlerSuite) TestCallerLimitAppliesToMutations() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	limiter := ratelimit.New(ratelimit.NewInMemoryStore(), 1, time.Minute, logger)
	h := New(s.ledger, Deployment{}, jwttoken.NewJWTServiceAdapter(s.jwt), logger, WithCallerLimit(limiter.PerCaller))
	s.router = chi.NewRouter()
	h.Register(s.router)

	rr := s.do(http.MethodPost, "/v1/oracles", oracles[0], RegisterOracleRequest{Fee: "1"})
	testutil.AssertStatus(s.T(), rr, http.StatusCreated)
	rr = s.do(http.MethodPost, "/v1/oracles", oracles[0], RegisterOracleRequest{Fee: "1"})
	testutil.AssertStatusAndError(s.T(), rr, http.StatusTooManyRequests, "rate_limit_exceeded")

	rr = s.do(http.MethodGet, "/v1/oracles/me/indexes", oracles[0], nil)
	testutil.AssertStatus(s.T(), rr, http.StatusOK)
}

func (s *HandlerSuite) TestCallerScopedReadsUseContextCaller() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := New(s.ledger, Deployment{}, jwttoken.NewJWTServiceAdapter(s.jwt), logger)

	s.Run("balance of a fresh account is zero", func() {
		req := testutil.NewRequest(s.T(), http.MethodGet, "/v1/insurance/balance")
		req = testutil.WithRequestID(testutil.WithCaller(req, passenger), "req-balance")
		rr := httptest.NewRecorder()
		h.handleGetBalance(rr, req)

		testutil.AssertStatus(s.T(), rr, http.StatusOK)
		resp := testutil.UnmarshalResponse[BalanceResponse](s.T(), rr)
		s.Equal(passenger.String(), resp.Passenger)
		s.Equal("0", resp.Balance)
	})

	s.Run("indexes of a non-oracle are not found", func() {
		req := testutil.WithCaller(testutil.NewRequest(s.T(), http.MethodGet, "/v1/oracles/me/indexes"), passenger)
		rr := httptest.NewRecorder()
		h.handleGetIndexes(rr, req)

		testutil.AssertStatusAndError(s.T(), rr, http.StatusNotFound, "not_registered")
	})
}
