package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/healthpool/riskpool/internal/access"
	"github.com/healthpool/riskpool/internal/auth"
	"github.com/healthpool/riskpool/internal/claims"
	"github.com/healthpool/riskpool/internal/events"
	"github.com/healthpool/riskpool/internal/membership"
	"github.com/healthpool/riskpool/internal/observability"
	"github.com/healthpool/riskpool/internal/platform/cache"
	"github.com/healthpool/riskpool/internal/platform/db"
	"github.com/healthpool/riskpool/internal/platform/txn"
	"github.com/healthpool/riskpool/internal/pool"
	"github.com/healthpool/riskpool/internal/shared"
)

// App is the wired riskpool ledger set.
type App struct {
	Config     *Config
	Logger     *slog.Logger
	Runner     txn.Runner
	Bus        *events.Bus
	Access     *access.Service
	Membership *membership.Service
	Pool       *pool.Service
	Claims     *claims.Service
	Auth       *auth.Service
	Summary    *cache.Versioned
	Metrics    *observability.Metrics
	DB         *pgxpool.Pool
	Redis      *redis.Client

	health  []Pinger
	closers []func() error
}

// Option customises Build.
type Option func(*buildOptions)

type buildOptions struct {
	db        *pgxpool.Pool
	redis     *redis.Client
	scheduler claims.DisbursementScheduler
	now       func() time.Time
	sinks     []events.Sink
}

// WithDB reuses an existing Postgres pool instead of dialing PG_DSN.
func WithDB(pool *pgxpool.Pool) Option {
	return func(o *buildOptions) { o.db = pool }
}

// WithRedis reuses an existing Redis client instead of dialing REDIS_ADDR.
func WithRedis(client *redis.Client) Option {
	return func(o *buildOptions) { o.redis = client }
}

// WithScheduler installs the deferred disbursement scheduler.
func WithScheduler(s claims.DisbursementScheduler) Option {
	return func(o *buildOptions) { o.scheduler = s }
}

// WithClock overrides the clock of every ledger.
func WithClock(now func() time.Time) Option {
	return func(o *buildOptions) { o.now = now }
}

// WithSinks appends event sinks after those named in EVENT_SINKS.
func WithSinks(sinks ...events.Sink) Option {
	return func(o *buildOptions) { o.sinks = append(o.sinks, sinks...) }
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

// Ping calls f.
func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

type stores struct {
	runner     txn.Runner
	access     access.Repository
	membership membership.Repository
	pool       pool.Repository
	claims     claims.Repository
}

// Build connects the configured stores, wires the four ledgers and seeds the
// initial grants and tier fees.
func Build(ctx context.Context, cfg *Config, logger *slog.Logger, opts ...Option) (_ *App, err error) {
	if cfg == nil {
		return nil, errors.New("app: config required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	var o buildOptions
	for _, opt := range opts {
		opt(&o)
	}

	a := &App{Config: cfg, Logger: logger, Metrics: observability.NewMetrics()}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	st, err := a.openStores(ctx, o)
	if err != nil {
		return nil, err
	}
	a.Runner = st.runner

	if err := a.openRedis(ctx, o); err != nil {
		return nil, err
	}

	sinks, err := a.openSinks(o)
	if err != nil {
		return nil, err
	}
	a.Bus = events.NewBus(logger, sinks...)

	a.Access = access.NewService(st.access, st.runner, a.Bus)

	a.Pool, err = pool.NewService(st.pool, st.runner, a.Access, pool.NewBookTransferer(st.pool), a.Bus,
		pool.Config{AdminFeePercent: cfg.PoolAdminFeePercent})
	if err != nil {
		return nil, fmt.Errorf("app: pool: %w", err)
	}

	var feeSink membership.FeeSink
	if membership.FeeRouting(cfg.FeeRouting) == membership.RoutePool {
		feeSink = a.Pool
	}
	a.Membership, err = membership.NewService(st.membership, st.runner, a.Access, feeSink, a.Bus, membership.Config{
		BillingPeriod: cfg.BillingPeriod,
		Routing:       membership.FeeRouting(cfg.FeeRouting),
	})
	if err != nil {
		return nil, fmt.Errorf("app: membership: %w", err)
	}

	a.Claims, err = claims.NewService(claims.Deps{
		Repo:       st.claims,
		Runner:     st.runner,
		Membership: a.Membership,
		Pool:       a.Pool,
		Access:     a.Access,
		Scheduler:  o.scheduler,
		Events:     a.Bus,
		Logger:     logger,
	}, claims.Config{
		Principal:           cfg.Claims(),
		PayoutMode:          claims.PayoutMode(cfg.PayoutMode),
		RequireHospitalRole: cfg.RequireHospitalRole,
	})
	if err != nil {
		return nil, fmt.Errorf("app: claims: %w", err)
	}

	if o.now != nil {
		a.Access.WithNow(o.now)
		a.Pool.WithNow(o.now)
		a.Membership.WithNow(o.now)
		a.Claims.WithNow(o.now)
	}

	a.Summary = cache.NewVersioned(a.Redis, "riskpool:pool", cfg.SummaryCacheTTL)
	a.Pool.OnChange(func(ctx context.Context) {
		if err := a.Summary.Bump(ctx); err != nil {
			logger.Warn("bump pool summary version", slog.Any("error", err))
		}
	})

	a.Auth, err = auth.NewService(cfg.JWTSecret, cfg.JWTIssuer)
	if err != nil {
		return nil, fmt.Errorf("app: auth: %w", err)
	}
	if o.now != nil {
		a.Auth.WithNow(o.now)
	}

	if err := a.seed(ctx); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *App) openStores(ctx context.Context, o buildOptions) (stores, error) {
	if a.Config.StoreBackend != BackendPostgres {
		return stores{
			runner:     txn.NewMemory(),
			access:     access.NewMemoryRepository(),
			membership: membership.NewMemoryRepository(),
			pool:       pool.NewMemoryRepository(),
			claims:     claims.NewMemoryRepository(),
		}, nil
	}
	pg := o.db
	if pg == nil {
		var err error
		pg, err = db.New(ctx, a.Config.PGDSN)
		if err != nil {
			return stores{}, err
		}
		a.closers = append(a.closers, func() error { pg.Close(); return nil })
	}
	a.DB = pg
	a.health = append(a.health, pg)
	return stores{
		runner:     txn.NewPostgres(pg),
		access:     access.NewPostgresRepository(pg),
		membership: membership.NewPostgresRepository(pg),
		pool:       pool.NewPostgresRepository(pg),
		claims:     claims.NewPostgresRepository(pg),
	}, nil
}

func (a *App) openRedis(ctx context.Context, o buildOptions) error {
	if o.redis != nil {
		a.Redis = o.redis
	} else if a.Config.HasSink("redis") {
		client, err := cache.Dial(ctx, a.Config.RedisAddr)
		if err != nil {
			return err
		}
		a.Redis = client
		a.closers = append(a.closers, client.Close)
	}
	if a.Redis != nil {
		a.health = append(a.health, PingFunc(cache.Pinger(a.Redis)))
	}
	return nil
}

func (a *App) openSinks(o buildOptions) ([]events.Sink, error) {
	var sinks []events.Sink
	for _, name := range a.Config.EventSinks {
		switch name {
		case "memory":
			sinks = append(sinks, events.NewMemorySink())
		case "postgres":
			if a.DB == nil {
				return nil, errors.New("app: postgres event sink needs STORE_BACKEND=postgres")
			}
			sinks = append(sinks, events.NewPostgresSink(a.DB))
		case "redis":
			if a.Redis == nil {
				return nil, errors.New("app: redis event sink needs a redis client")
			}
			sinks = append(sinks, events.NewRedisSink(a.Redis, a.Config.RedisChannel))
		case "kafka":
			sink, err := events.NewKafkaSink(a.Config.KafkaBrokers, a.Config.KafkaTopic)
			if err != nil {
				return nil, fmt.Errorf("app: kafka sink: %w", err)
			}
			a.closers = append(a.closers, func() error { sink.Close(); return nil })
			sinks = append(sinks, sink)
		case "leveldb":
			journal, err := events.OpenJournal(a.Config.EventJournalPath)
			if err != nil {
				return nil, fmt.Errorf("app: event journal: %w", err)
			}
			a.closers = append(a.closers, journal.Close)
			sinks = append(sinks, journal)
		default:
			return nil, fmt.Errorf("app: unknown event sink %q", name)
		}
	}
	return append(sinks, o.sinks...), nil
}

type seedGrant struct {
	role      shared.Role
	principal shared.Principal
}

// seed applies the deployment grants and tier fees on the first start over
// an empty store. Later starts leave the registry and fees to their admins:
// a revoked grant stays revoked and a fee set at runtime stays set.
func (a *App) seed(ctx context.Context) error {
	deployer := a.Config.Deployer()
	providers, err := a.Config.Providers()
	if err != nil {
		return err
	}
	var fresh bool
	err = a.Runner.Run(ctx, func(ctx context.Context) error {
		if err := a.Access.Bootstrap(ctx, deployer); err != nil {
			if errors.Is(err, access.ErrAlreadyBootstrapped) {
				return nil
			}
			return fmt.Errorf("app: bootstrap: %w", err)
		}
		fresh = true
		grants := []seedGrant{
			{shared.RoleAdmin, deployer},
			{shared.RoleClaimManager, a.Config.Claims()},
		}
		for _, p := range providers {
			grants = append(grants, seedGrant{shared.RoleHospital, p})
		}
		for _, g := range grants {
			if err := a.Access.GrantRole(ctx, deployer, g.role, g.principal); err != nil {
				return fmt.Errorf("app: grant %s to %s: %w", g.role, g.principal, err)
			}
		}
		fees := a.Config.TierFees()
		for _, tier := range membership.Tiers() {
			want, ok := fees[tier]
			if !ok {
				continue
			}
			if have, err := a.Membership.MonthlyFee(ctx, tier); err == nil && have == want {
				continue
			}
			if err := a.Membership.SetMonthlyFee(ctx, deployer, tier, want); err != nil {
				return fmt.Errorf("app: fee %s: %w", tier, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	if fresh {
		a.Logger.Info("store bootstrapped", slog.String("deployer", deployer.String()), slog.Int("providers", len(providers)))
	} else {
		a.Logger.Info("store already bootstrapped, skipping seed")
	}
	return nil
}

// Handler builds the HTTP surface. jobs may be nil.
func (a *App) Handler(jobs RouteMounter) http.Handler {
	params := RouterParams{
		Logger:            a.Logger,
		Config:            a.Config,
		Auth:              a.Auth,
		Metrics:           a.Metrics,
		AccessHandler:     access.NewHandler(a.Logger, a.Access),
		MembershipHandler: membership.NewHandler(a.Logger, a.Membership),
		PoolHandler:       pool.NewHandler(a.Logger, a.Pool, a.Summary),
		ClaimsHandler:     claims.NewHandler(a.Logger, a.Claims, a.Access),
		Health:            a.health,
	}
	if jobs != nil {
		params.JobsHandler = jobs
	}
	if reader, ok := a.Bus.Reader(); ok {
		params.EventsHandler = events.NewHandler(a.Logger, reader)
	}
	return NewRouter(params)
}

// Close releases every connection Build opened, in reverse order.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
