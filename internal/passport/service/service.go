package service

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	passportmetrics "passport/internal/passport/metrics"
	"passport/internal/passport/models"
	id "passport/pkg/domain"
)

// Store persists passports and items. Loads return copies the caller may
// mutate freely; saves are compare-and-swap on the record version.
//
// Implementations return sentinel errors: ErrNotFound for missing records,
// ErrVersionMismatch when expectedVersion is stale, ErrAlreadyExists on
// duplicate creates, and ErrUnavailable when the backend cannot be reached.
// A successful save sets the record's Version to expectedVersion+1.
type Store interface {
	CreatePassport(ctx context.Context, p *models.Passport) error
	LoadPassport(ctx context.Context, passportID id.PassportID) (*models.Passport, error)
	SavePassport(ctx context.Context, p *models.Passport, expectedVersion int64) error

	LoadItem(ctx context.Context, itemID id.ItemID) (*models.ContentItem, error)
	SaveItem(ctx context.Context, item *models.ContentItem, expectedVersion int64) error

	// AddItem creates item and saves p in one atomic step. Neither record
	// changes unless both writes succeed.
	AddItem(ctx context.Context, p *models.Passport, expectedVersion int64, item *models.ContentItem) error
}

// Notifier receives committed transitions. Implementations must not block;
// delivery is best effort.
type Notifier interface {
	Notify(ctx context.Context, t models.Transition)
}

// Config tunes the workflow engine.
type Config struct {
	// SuggestedMax is the soft per-section item limit. Zero disables the warning.
	SuggestedMax map[models.Section]int
	// CASAttempts bounds read-modify-write retries after a version mismatch.
	CASAttempts int
	// StoreTimeout bounds every individual store call.
	StoreTimeout time.Duration
	// LockTimeout bounds the wait for a record's in-process write lock.
	LockTimeout time.Duration
	// LoadConcurrency bounds parallel item loads in queue and view queries.
	LoadConcurrency int
}

func DefaultConfig() Config {
	return Config{
		SuggestedMax: map[models.Section]int{
			models.SectionLoves:     5,
			models.SectionHates:     4,
			models.SectionStrengths: 5,
			models.SectionNeeds:     4,
		},
		CASAttempts:     3,
		StoreTimeout:    2 * time.Second,
		LockTimeout:     5 * time.Second,
		LoadConcurrency: 8,
	}
}

// Service is the revision and approval workflow engine. It serializes writers
// per record, enforces the item state machine, and reports every committed
// transition to the notifier.
type Service struct {
	store    Store
	notifier Notifier
	logger   *slog.Logger
	metrics  *passportmetrics.Metrics
	tracer   trace.Tracer
	locks    *recordLocks
	cfg      Config
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *passportmetrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithNotifier(n Notifier) Option {
	return func(s *Service) {
		s.notifier = n
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = t
	}
}

// WithConfig overrides the defaults. Zero fields keep their default value.
func WithConfig(cfg Config) Option {
	return func(s *Service) {
		def := DefaultConfig()
		if cfg.SuggestedMax == nil {
			cfg.SuggestedMax = def.SuggestedMax
		}
		if cfg.CASAttempts <= 0 {
			cfg.CASAttempts = def.CASAttempts
		}
		if cfg.StoreTimeout <= 0 {
			cfg.StoreTimeout = def.StoreTimeout
		}
		if cfg.LockTimeout <= 0 {
			cfg.LockTimeout = def.LockTimeout
		}
		if cfg.LoadConcurrency <= 0 {
			cfg.LoadConcurrency = def.LoadConcurrency
		}
		s.cfg = cfg
	}
}

func New(store Store, opts ...Option) *Service {
	s := &Service{
		store:  store,
		logger: slog.Default(),
		tracer: otel.Tracer("passport/internal/passport/service"),
		locks:  newRecordLocks(),
		cfg:    DefaultConfig(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) notify(ctx context.Context, t models.Transition) {
	if s.metrics != nil {
		s.metrics.IncrementTransition(string(t.Kind))
	}
	if s.notifier == nil {
		return
	}
	s.notifier.Notify(context.WithoutCancel(ctx), t)
}
