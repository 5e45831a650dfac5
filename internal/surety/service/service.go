// Package service is the ledger's single entry point. It serializes every
// transition, journals it before applying it, and publishes the resulting
// events once it has committed.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"flightsurety/internal/events"
	"flightsurety/internal/journal"
	"flightsurety/internal/surety/airline"
	"flightsurety/internal/surety/config"
	"flightsurety/internal/surety/flight"
	"flightsurety/internal/surety/gate"
	"flightsurety/internal/surety/insurance"
	"flightsurety/internal/surety/metrics"
	"flightsurety/internal/surety/oracle"
	"flightsurety/pkg/domain"
	dErrors "flightsurety/pkg/domain-errors"
	"flightsurety/pkg/platform/sentinel"
	"flightsurety/pkg/requestcontext"
)

// Service owns one ledger. Transitions take the write lock, queries the read
// lock.
type Service struct {
	mu sync.RWMutex

	rules     config.Rules
	gate      *gate.Gate
	airlines  *airline.Registry
	flights   *flight.Registry
	directory *oracle.Directory
	engine    *oracle.Engine
	insurance *insurance.Ledger

	journal     JournalStore
	publisher   EventPublisher
	transfer    insurance.Transfer
	indexSource oracle.IndexSource
	metrics     *metrics.Metrics
	tracer      trace.Tracer
	logger      *slog.Logger

	journalRetry func() backoff.BackOff
	halted       error
	replaying    bool
}

type Option func(*Service)

func defaultJournalRetry() backoff.BackOff {
	return backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 5)
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithJournal(store JournalStore) Option {
	return func(s *Service) {
		s.journal = store
	}
}

func WithPublisher(publisher EventPublisher) Option {
	return func(s *Service) {
		s.publisher = publisher
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = tracer
	}
}

// WithIndexSource replaces the random index draw, typically with a
// reproducible source in tests.
func WithIndexSource(source oracle.IndexSource) Option {
	return func(s *Service) {
		s.indexSource = source
	}
}

// WithTransfer sets how withdrawals leave the ledger. The default publishes a
// PassengerPaid event and fails if that event cannot be delivered.
func WithTransfer(transfer insurance.Transfer) Option {
	return func(s *Service) {
		s.transfer = transfer
	}
}

// WithJournalRetry sets the retry policy for compensating journal entries,
// which must land for the journal to match the ledger.
func WithJournalRetry(policy func() backoff.BackOff) Option {
	return func(s *Service) {
		s.journalRetry = policy
	}
}

func WithRules(rules config.Rules) Option {
	return func(s *Service) {
		s.rules = rules
	}
}

// New builds a ledger owned by owner with firstAirline registered and unfunded.
func New(owner, firstAirline domain.Address, firstAirlineName string, opts ...Option) (*Service, error) {
	if owner.IsZero() {
		return nil, fmt.Errorf("ledger owner is required")
	}

	s := &Service{
		rules:     config.Defaults(),
		journal:   journal.NewInMemoryStore(),
		publisher: nopPublisher{},
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.tracer == nil {
		s.tracer = otel.Tracer("flightsurety/ledger")
	}
	if s.journalRetry == nil {
		s.journalRetry = defaultJournalRetry
	}
	if s.indexSource == nil {
		s.indexSource = oracle.NewKeccakIndexSource()
	}
	if s.transfer == nil {
		s.transfer = s.publishPayout
	}

	s.gate = gate.New(owner)
	s.airlines = airline.NewRegistry(s.rules)
	s.flights = flight.NewRegistry(s.airlines)
	s.directory = oracle.NewDirectory(s.rules, s.indexSource)
	s.insurance = insurance.NewLedger(s.rules, s.flights)
	s.engine = oracle.NewEngine(s.rules, s.flights, s.directory, s.insurance)

	if err := s.airlines.Seed(firstAirline, firstAirlineName); err != nil {
		return nil, fmt.Errorf("seed first airline: %w", err)
	}
	s.refreshCounts()
	return s, nil
}

// Halted returns the reason the ledger stopped accepting transitions, or nil.
// A halted ledger still answers queries.
func (s *Service) Halted() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.halted
}

// Rules returns the constants the ledger enforces.
func (s *Service) Rules() config.Rules {
	return s.rules
}

// transition describes one state change: prepare validates without mutating,
// apply commits the prepared plan and returns the final result.
type transition[P any] struct {
	op      journal.Op
	actor   domain.Address
	prepare func() (P, error)
	apply   func(P) P
	events  func(P) []pendingEvent
}

type pendingEvent struct {
	typ  events.Type
	key  string
	data any
}

// execute runs a transition under the write lock: prepare, journal, apply,
// then publish. A journal failure aborts before apply.
func execute[P any](ctx context.Context, s *Service, t transition[P]) (P, error) {
	ctx, span := s.tracer.Start(ctx, "ledger."+string(t.op),
		trace.WithAttributes(attribute.String("ledger.actor", t.actor.String())))
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	var zero P
	if err := s.checkHalted(); err != nil {
		s.reject(ctx, span, t.op, err)
		return zero, err
	}
	plan, err := t.prepare()
	if err != nil {
		s.reject(ctx, span, t.op, err)
		return zero, err
	}
	if err := s.record(ctx, t.op, t.actor, plan); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "journal append failed")
		return zero, err
	}
	result := t.apply(plan)
	s.accept(ctx, span, t.op)
	if t.events != nil {
		s.publish(ctx, t.events(result))
	}
	return result, nil
}

func (s *Service) record(ctx context.Context, op journal.Op, actor domain.Address, payload any) error {
	if s.replaying {
		return nil
	}
	entry, err := s.newEntry(ctx, op, actor, payload)
	if err != nil {
		return err
	}
	if _, err := s.journal.Append(ctx, entry); err != nil {
		s.journalFailed(ctx, op, entry, err)
		if errors.Is(err, sentinel.ErrConflict) {
			return dErrors.Wrap(err, dErrors.CodeInvariantViolation, "journal entry already exists")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record transition")
	}
	return nil
}

// recordDurably appends a compensating entry, retrying the same entry until it
// lands or the retry policy gives up. A conflict means an earlier attempt
// landed.
func (s *Service) recordDurably(ctx context.Context, op journal.Op, actor domain.Address, payload any) error {
	if s.replaying {
		return nil
	}
	entry, err := s.newEntry(ctx, op, actor, payload)
	if err != nil {
		return err
	}
	ctx = context.WithoutCancel(ctx)
	return backoff.Retry(func() error {
		_, err := s.journal.Append(ctx, entry)
		if err == nil || errors.Is(err, sentinel.ErrConflict) {
			return nil
		}
		s.journalFailed(ctx, op, entry, err)
		return err
	}, s.journalRetry())
}

func (s *Service) newEntry(ctx context.Context, op journal.Op, actor domain.Address, payload any) (journal.Entry, error) {
	entry, err := journal.NewEntry(op, actor, payload, requestcontext.Now(ctx))
	if err != nil {
		return journal.Entry{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to encode journal entry")
	}
	entry.RequestID = requestcontext.RequestID(ctx)
	return entry, nil
}

func (s *Service) journalFailed(ctx context.Context, op journal.Op, entry journal.Entry, err error) {
	if s.metrics != nil {
		s.metrics.IncrementJournalFailures()
	}
	s.logger.ErrorContext(ctx, "journal append failed",
		"op", op,
		"entry_id", entry.ID,
		"error", err,
		"request_id", entry.RequestID,
	)
}

// halt stops all further transitions. It is used when the journal no longer
// describes the ledger, so accepting more work would widen the gap.
func (s *Service) halt(ctx context.Context, reason error) {
	s.halted = reason
	s.logger.ErrorContext(ctx, "ledger halted",
		"error", reason,
		"request_id", requestcontext.RequestID(ctx),
	)
}

func (s *Service) checkHalted() error {
	if s.halted == nil {
		return nil
	}
	return dErrors.Wrap(s.halted, dErrors.CodeInternal, "ledger halted")
}

func (s *Service) reject(ctx context.Context, span trace.Span, op journal.Op, err error) {
	code := dErrors.CodeOf(err)
	span.SetAttributes(attribute.String("ledger.result", string(code)))
	span.SetStatus(codes.Error, string(code))
	if s.metrics != nil {
		s.metrics.ObserveTransition(string(op), string(code))
	}
	s.logger.DebugContext(ctx, "transition rejected",
		"op", op,
		"code", code,
		"error", err,
		"request_id", requestcontext.RequestID(ctx),
	)
}

func (s *Service) accept(ctx context.Context, span trace.Span, op journal.Op) {
	span.SetAttributes(attribute.String("ledger.result", "ok"))
	s.refreshCounts()
	if s.replaying {
		return
	}
	if s.metrics != nil {
		s.metrics.ObserveTransition(string(op), "ok")
	}
	s.logger.InfoContext(ctx, "transition accepted",
		"op", op,
		"request_id", requestcontext.RequestID(ctx),
	)
}

// publish is best-effort: the transition has already committed.
func (s *Service) publish(ctx context.Context, pending []pendingEvent) {
	if s.replaying {
		return
	}
	for _, p := range pending {
		if err := s.emit(ctx, p); err != nil {
			if s.metrics != nil {
				s.metrics.IncrementPublishFailures()
			}
			s.logger.WarnContext(ctx, "event publish failed",
				"type", p.typ,
				"error", err,
				"request_id", requestcontext.RequestID(ctx),
			)
		}
	}
}

func (s *Service) emit(ctx context.Context, p pendingEvent) error {
	e, err := events.New(p.typ, p.key, p.data, requestcontext.Now(ctx))
	if err != nil {
		return err
	}
	e.RequestID = requestcontext.RequestID(ctx)
	return s.publisher.Publish(ctx, e)
}

func (s *Service) publishPayout(ctx context.Context, w insurance.Withdrawal) error {
	return s.emit(ctx, pendingEvent{typ: events.TypePassengerPaid, key: w.Passenger.String(), data: w})
}

func (s *Service) refreshCounts() {
	if s.metrics == nil {
		return
	}
	s.metrics.SetCounts(
		s.airlines.RegisteredCount(),
		s.airlines.FundedRegisteredCount(),
		len(s.flights.Flights()),
		len(s.directory.Oracles()),
	)
}
