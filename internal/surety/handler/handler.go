// Package handler exposes the ledger over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"flightsurety/internal/platform/middleware"
	"flightsurety/internal/surety/airline"
	"flightsurety/internal/surety/flight"
	"flightsurety/internal/surety/insurance"
	"flightsurety/internal/surety/oracle"
	"flightsurety/pkg/domain"
	dErrors "flightsurety/pkg/domain-errors"
	"flightsurety/pkg/platform/httputil"
	"flightsurety/pkg/requestcontext"
)

// Ledger is the subset of the ledger service the HTTP layer drives.
type Ledger interface {
	IsOperational() bool
	Owner() domain.Address
	SetOperatingStatus(ctx context.Context, caller domain.Address, operational bool) error
	Fund(ctx context.Context, caller, airline domain.Address, amount decimal.Decimal) (airline.Funding, error)
	RegisterAirline(ctx context.Context, proposer, candidate domain.Address, name string) (airline.Admission, error)
	Airline(addr domain.Address) (airline.Airline, bool)
	RegisterFlight(ctx context.Context, caller domain.Address, key flight.Key) (flight.Registration, error)
	Flight(key flight.Key) (flight.Flight, bool)
	Flights() []flight.Flight
	FetchFlightStatus(ctx context.Context, caller domain.Address, key flight.Key) (oracle.RequestKey, error)
	RegisterOracle(ctx context.Context, caller domain.Address, fee decimal.Decimal) (oracle.Oracle, error)
	Indexes(identity domain.Address) ([3]uint8, error)
	SubmitOracleResponse(ctx context.Context, caller domain.Address, index uint8, key flight.Key, status flight.StatusCode) (oracle.Submission, error)
	BuyInsurance(ctx context.Context, passenger domain.Address, key flight.Key, premium decimal.Decimal) (insurance.Policy, error)
	Balance(passenger domain.Address) decimal.Decimal
	Pay(ctx context.Context, passenger domain.Address) (insurance.Withdrawal, error)
}

// Deployment is the record served at /v1/deployment.
type Deployment struct {
	LedgerEndpoint      string
	DataContractAddress string
	AppContractAddress  string
}

type Handler struct {
	ledger       Ledger
	deployment   Deployment
	jwtValidator middleware.JWTValidator
	callerLimit  func(http.Handler) http.Handler
	logger       *slog.Logger
}

type Option func(*Handler)

// WithCallerLimit installs a per-caller limiter on the authenticated routes.
func WithCallerLimit(mw func(http.Handler) http.Handler) Option {
	return func(h *Handler) {
		h.callerLimit = mw
	}
}

func New(ledger Ledger, deployment Deployment, jwtValidator middleware.JWTValidator, logger *slog.Logger, opts ...Option) *Handler {
	h := &Handler{
		ledger:       ledger,
		deployment:   deployment,
		jwtValidator: jwtValidator,
		logger:       logger,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts the ledger routes. Reads of public state are open; every
// mutation and caller-scoped read requires a bearer token.
func (h *Handler) Register(r chi.Router) {
	r.Route("/v1", func(r chi.Router) {
		r.Get("/operational", h.handleGetOperational)
		r.Get("/deployment", h.handleGetDeployment)
		r.Get("/airlines/{address}", h.handleGetAirline)
		r.Get("/flights", h.handleListFlights)
		r.Get("/flights/{airline}/{flight}/{timestamp}", h.handleGetFlight)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth(h.jwtValidator, h.logger))
			if h.callerLimit != nil {
				r.Use(h.callerLimit)
			}
			r.Put("/operational", h.handleSetOperational)
			r.Post("/airlines", h.handleRegisterAirline)
			r.Post("/airlines/{address}/fund", h.handleFund)
			r.Post("/flights", h.handleRegisterFlight)
			r.Post("/flights/{airline}/{flight}/{timestamp}/status-requests", h.handleFetchFlightStatus)
			r.Post("/oracles", h.handleRegisterOracle)
			r.Get("/oracles/me/indexes", h.handleGetIndexes)
			r.Post("/oracle/responses", h.handleSubmitOracleResponse)
			r.Post("/insurance/policies", h.handleBuyInsurance)
			r.Get("/insurance/balance", h.handleGetBalance)
			r.Post("/insurance/withdrawals", h.handleWithdraw)
		})
	})
}

func (h *Handler) handleGetOperational(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, OperationalResponse{Operational: h.ledger.IsOperational()})
}

func (h *Handler) handleSetOperational(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := decode[SetOperationalRequest](w, r, h.logger)
	if !ok {
		return
	}
	if err := req.Validate(); err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.ledger.SetOperatingStatus(ctx, requestcontext.Caller(ctx), *req.Operational); err != nil {
		h.fail(w, r, "set operating status", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, OperationalResponse{Operational: *req.Operational})
}

func (h *Handler) handleGetDeployment(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, DeploymentResponse{
		LedgerEndpoint:      h.deployment.LedgerEndpoint,
		DataContractAddress: h.deployment.DataContractAddress,
		AppContractAddress:  h.deployment.AppContractAddress,
		Owner:               h.ledger.Owner().String(),
	})
}

func (h *Handler) handleRegisterAirline(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := decode[RegisterAirlineRequest](w, r, h.logger)
	if !ok {
		return
	}
	req.Normalize()
	candidate, err := req.Candidate()
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	adm, err := h.ledger.RegisterAirline(ctx, requestcontext.Caller(ctx), candidate, req.Name)
	if err != nil {
		h.fail(w, r, "register airline", err)
		return
	}
	status := http.StatusAccepted
	if adm.Registered {
		status = http.StatusCreated
	}
	httputil.WriteJSON(w, status, toAdmissionResponse(adm))
}

func (h *Handler) handleFund(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	addr, err := domain.ParseAddress(chi.URLParam(r, "address"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := decode[FundRequest](w, r, h.logger)
	if !ok {
		return
	}
	amount, err := req.ParsedAmount()
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	f, err := h.ledger.Fund(ctx, requestcontext.Caller(ctx), addr, amount)
	if err != nil {
		h.fail(w, r, "fund airline", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FundingResponse{Airline: f.Airline.String(), Amount: f.Amount.String()})
}

func (h *Handler) handleGetAirline(w http.ResponseWriter, r *http.Request) {
	addr, err := domain.ParseAddress(chi.URLParam(r, "address"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	a, ok := h.ledger.Airline(addr)
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "airline not found"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toAirlineResponse(a))
}

func (h *Handler) handleRegisterFlight(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := decode[RegisterFlightRequest](w, r, h.logger)
	if !ok {
		return
	}
	caller := requestcontext.Caller(ctx)
	key, err := flight.NewKey(caller, req.Flight, req.Timestamp)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	reg, err := h.ledger.RegisterFlight(ctx, caller, key)
	if err != nil {
		h.fail(w, r, "register flight", err)
		return
	}
	f, _ := h.ledger.Flight(reg.Key)
	status := http.StatusOK
	if reg.Created {
		status = http.StatusCreated
	}
	httputil.WriteJSON(w, status, toFlightResponse(f))
}

func (h *Handler) handleListFlights(w http.ResponseWriter, r *http.Request) {
	flights := h.ledger.Flights()
	resp := FlightListResponse{Flights: make([]FlightResponse, 0, len(flights))}
	for _, f := range flights {
		resp.Flights = append(resp.Flights, toFlightResponse(f))
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleGetFlight(w http.ResponseWriter, r *http.Request) {
	key, err := flightKeyFromPath(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	f, ok := h.ledger.Flight(key)
	if !ok {
		// Unregistered flights report Unknown rather than failing.
		f = flight.Flight{Key: key, Status: flight.StatusUnknown}
	}
	httputil.WriteJSON(w, http.StatusOK, toFlightResponse(f))
}

func (h *Handler) handleFetchFlightStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	key, err := flightKeyFromPath(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	rk, err := h.ledger.FetchFlightStatus(ctx, requestcontext.Caller(ctx), key)
	if err != nil {
		h.fail(w, r, "fetch flight status", err)
		return
	}
	httputil.WriteJSON(w, http.StatusAccepted, StatusRequestResponse{Index: rk.Index, FlightID: rk.Flight.ID()})
}

func (h *Handler) handleRegisterOracle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := decode[RegisterOracleRequest](w, r, h.logger)
	if !ok {
		return
	}
	fee, err := req.ParsedFee()
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	o, err := h.ledger.RegisterOracle(ctx, requestcontext.Caller(ctx), fee)
	if err != nil {
		h.fail(w, r, "register oracle", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toOracleResponse(o))
}

func (h *Handler) handleGetIndexes(w http.ResponseWriter, r *http.Request) {
	caller := requestcontext.Caller(r.Context())
	indexes, err := h.ledger.Indexes(caller)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, OracleResponse{Address: caller.String(), Indexes: indexes})
}

func (h *Handler) handleSubmitOracleResponse(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := decode[OracleResponseRequest](w, r, h.logger)
	if !ok {
		return
	}
	key, err := req.Key()
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	status, err := req.Status()
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	sub, err := h.ledger.SubmitOracleResponse(ctx, requestcontext.Caller(ctx), req.Index, key, status)
	if err != nil {
		h.fail(w, r, "submit oracle response", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toSubmissionResponse(sub))
}

func (h *Handler) handleBuyInsurance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := decode[BuyInsuranceRequest](w, r, h.logger)
	if !ok {
		return
	}
	key, err := req.Key()
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	premium, err := req.ParsedPremium()
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	p, err := h.ledger.BuyInsurance(ctx, requestcontext.Caller(ctx), key, premium)
	if err != nil {
		h.fail(w, r, "buy insurance", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toPolicyResponse(p))
}

func (h *Handler) handleGetBalance(w http.ResponseWriter, r *http.Request) {
	caller := requestcontext.Caller(r.Context())
	httputil.WriteJSON(w, http.StatusOK, BalanceResponse{
		Passenger: caller.String(),
		Balance:   h.ledger.Balance(caller).String(),
	})
}

func (h *Handler) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	wd, err := h.ledger.Pay(ctx, requestcontext.Caller(ctx))
	if err != nil {
		h.fail(w, r, "withdraw", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, WithdrawalResponse{Passenger: wd.Passenger.String(), Amount: wd.Amount.String()})
}

// fail writes err and logs it at a level matching its code. Domain rejections
// are expected traffic; anything unclassified is an error.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, action string, err error) {
	ctx := r.Context()
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, "failed to "+action,
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
	} else {
		h.logger.DebugContext(ctx, action+" rejected",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
	}
	httputil.WriteError(w, err)
}

func decode[T any](w http.ResponseWriter, r *http.Request, logger *slog.Logger) (T, bool) {
	v, err := httputil.DecodeJSON[T](r)
	if err != nil {
		logger.WarnContext(r.Context(), "invalid request body",
			"path", r.URL.Path,
			"error", err,
			"request_id", requestcontext.RequestID(r.Context()),
		)
		httputil.WriteError(w, err)
		return v, false
	}
	return v, true
}

func flightKeyFromPath(r *http.Request) (flight.Key, error) {
	airlineAddr, err := domain.ParseAddress(chi.URLParam(r, "airline"))
	if err != nil {
		return flight.Key{}, err
	}
	ts, err := strconv.ParseUint(chi.URLParam(r, "timestamp"), 10, 64)
	if err != nil {
		return flight.Key{}, dErrors.New(dErrors.CodeValidation, "timestamp must be an unsigned integer")
	}
	return flight.NewKey(airlineAddr, chi.URLParam(r, "flight"), ts)
}
