package refresher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"flashai/internal/models"
	"flashai/internal/token"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

const (
	DefaultInterval  = time.Minute
	DefaultThreshold = 5 * time.Minute
)

var ticksTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "flashai_token_refresh_ticks_total",
		Help: "Token refresh scheduler ticks by outcome.",
	},
	[]string{"outcome"},
)

// IdentityFetcher получает актуальную личность владельца токена из доверенного источника.
type IdentityFetcher interface {
	FetchIdentity(ctx context.Context, token string) (models.Identity, error)
}

// TokenMinter выпускает новый токен для личности.
type TokenMinter interface {
	MintToken(ctx context.Context, token string, identity models.Identity) (string, error)
}

// Outcome - результат одного прохода.
type Outcome string

const (
	OutcomeNoToken     Outcome = "no_token"
	OutcomeUndecodable Outcome = "undecodable"
	OutcomeFresh       Outcome = "fresh"
	OutcomeRefreshed   Outcome = "refreshed"
	OutcomeFailed      Outcome = "failed"
	OutcomeBusy        Outcome = "busy"
)

type Config struct {
	Interval  time.Duration
	Threshold time.Duration
}

type Option func(*Scheduler)

// WithClock подменяет источник времени.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// Scheduler периодически проверяет срок действия токена и заменяет его,
// когда до истечения остается меньше Threshold.
type Scheduler struct {
	store     TokenStore
	identity  IdentityFetcher
	minter    TokenMinter
	interval  time.Duration
	threshold time.Duration
	now       func() time.Time
	logger    *zap.Logger

	inFlight atomic.Bool

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func New(cfg Config, store TokenStore, identity IdentityFetcher, minter TokenMinter, logger *zap.Logger, opts ...Option) (*Scheduler, error) {
	if store == nil || identity == nil || minter == nil {
		return nil, errors.New("refresher: store, identity fetcher and minter are required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Scheduler{
		store:     store,
		identity:  identity,
		minter:    minter,
		interval:  cfg.Interval,
		threshold: cfg.Threshold,
		now:       time.Now,
		logger:    logger.Named("TokenRefresher"),
	}
	if s.interval <= 0 {
		s.interval = DefaultInterval
	}
	if s.threshold <= 0 {
		s.threshold = DefaultThreshold
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Start запускает фоновый цикл. Первая проверка - через Interval после запуска.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return errors.New("refresher: already started")
	}

	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.loop(loopCtx, s.done)

	s.logger.Info("Token refresher started",
		zap.Duration("interval", s.interval),
		zap.Duration("threshold", s.threshold),
	)
	return nil
}

// Stop отменяет текущий проход и ждет завершения цикла. Повторный вызов безопасен.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel = nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	s.logger.Info("Token refresher stopped")
}

// Done закрывается, когда цикл завершился. До Start возвращает nil.
func (s *Scheduler) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

func (s *Scheduler) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// time.Ticker сам отбрасывает тики, пока предыдущий проход не закончился.
			s.Tick(ctx)
		}
	}
}

// Tick выполняет одну проверку. Безопасен для конкурентного вызова: если
// предыдущая проверка еще идет, возвращает OutcomeBusy.
func (s *Scheduler) Tick(ctx context.Context) (outcome Outcome) {
	if !s.inFlight.CompareAndSwap(false, true) {
		s.logger.Debug("Previous refresh still in flight, skipping tick")
		ticksTotal.WithLabelValues(string(OutcomeBusy)).Inc()
		return OutcomeBusy
	}
	defer s.inFlight.Store(false)

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Recovered from panic in token refresh", zap.Any("panic", r), zap.Stack("stack"))
			outcome = OutcomeFailed
		}
		ticksTotal.WithLabelValues(string(outcome)).Inc()
	}()

	return s.tick(ctx)
}

func (s *Scheduler) tick(ctx context.Context) Outcome {
	current, err := s.store.Load(ctx)
	if err != nil {
		if !errors.Is(err, ErrNoToken) {
			s.logger.Warn("Failed to load token", zap.Error(err))
		}
		return OutcomeNoToken
	}

	exp, err := token.DecodeExpiry(current)
	if err != nil {
		s.logger.Debug("Stored token cannot be decoded, skipping", zap.Error(err))
		return OutcomeUndecodable
	}

	remaining := exp.Sub(s.now())
	if remaining >= s.threshold {
		return OutcomeFresh
	}

	log := s.logger.With(zap.Duration("remaining", remaining))
	if err := s.refresh(ctx, current); err != nil {
		if errors.Is(err, models.ErrInvalidToken) {
			log.Warn("Server rejected the stored token, a new login is required", zap.Error(err))
		} else {
			log.Error("Failed to refresh token, keeping the current one", zap.Error(err))
		}
		return OutcomeFailed
	}
	log.Info("Token refreshed")
	return OutcomeRefreshed
}

func (s *Scheduler) refresh(ctx context.Context, current string) error {
	identity, err := s.identity.FetchIdentity(ctx, current)
	if err != nil {
		return fmt.Errorf("fetch identity: %w", err)
	}
	next, err := s.minter.MintToken(ctx, current, identity)
	if err != nil {
		return fmt.Errorf("mint token: %w", err)
	}
	if next == "" {
		return errors.New("mint token: empty token returned")
	}
	if err := s.store.Store(ctx, next); err != nil {
		return fmt.Errorf("store token: %w", err)
	}
	return nil
}
