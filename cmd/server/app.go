package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/twmb/franz-go/pkg/kgo"

	"titlechain/internal/fhe/backend"
	fhehandler "titlechain/internal/fhe/handler"
	fhemetrics "titlechain/internal/fhe/metrics"
	"titlechain/internal/fhe/proof"
	"titlechain/internal/fhe/relayer"
	fheservice "titlechain/internal/fhe/service"
	"titlechain/internal/ledger"
	ledgerstore "titlechain/internal/ledger/store"
	"titlechain/internal/platform/config"
	"titlechain/internal/platform/kafka"
	"titlechain/internal/platform/postgres"
	redisclient "titlechain/internal/platform/redis"
	"titlechain/internal/property"
	"titlechain/internal/ratelimit"
	ratelimitmetrics "titlechain/internal/ratelimit/metrics"
	ratelimitmw "titlechain/internal/ratelimit/middleware"
	"titlechain/internal/ratelimit/store/bucket"
	propertyhandler "titlechain/internal/property/handler"
	propertymetrics "titlechain/internal/property/metrics"
	"titlechain/internal/wallet"
	wallethandler "titlechain/internal/wallet/handler"
	walletmetrics "titlechain/internal/wallet/metrics"
	walletstore "titlechain/internal/wallet/store"
	"titlechain/pkg/platform/audit"
	"titlechain/pkg/platform/audit/publishers/compliance"
	"titlechain/pkg/platform/audit/publishers/ops"
	kafkaaudit "titlechain/pkg/platform/audit/store/kafka"
	auditmemory "titlechain/pkg/platform/audit/store/memory"
	auditpostgres "titlechain/pkg/platform/audit/store/postgres"
	"titlechain/pkg/platform/audit/worker"
	"titlechain/pkg/platform/circuit"
	"titlechain/pkg/platform/httputil"
	"titlechain/pkg/platform/middleware/logging"
	"titlechain/pkg/platform/middleware/metadata"
	"titlechain/pkg/platform/middleware/requestid"
	"titlechain/pkg/platform/middleware/requesttime"
	"titlechain/pkg/platform/tx"
)

// app holds the wired services and the resources that must be released on exit.
type app struct {
	log     *slog.Logger
	proxies metadata.TrustedProxies

	fhe      *fheservice.Service
	wallets  *wallet.Service
	registry *property.Service
	relay    *worker.Relay
	limiter  *ratelimitmw.Middleware

	redis   *redisclient.Client
	checks  map[string]func(context.Context) error
	closers []func() error
}

func buildApp(ctx context.Context, cfg config.Config, log *slog.Logger, reg prometheus.Registerer) (a *app, err error) {
	a = &app{log: log, checks: map[string]func(context.Context) error{}}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	a.proxies, err = metadata.ParseTrustedProxies(cfg.Server.TrustedProxies)
	if err != nil {
		return nil, err
	}

	fheMetrics := fhemetrics.NewWithRegisterer(reg)
	be, err := backend.Open(ctx, backendConfig(cfg), backend.WithLogger(log), backend.WithMetrics(fheMetrics))
	if err != nil {
		return nil, fmt.Errorf("open encryption backend: %w", err)
	}
	a.closers = append(a.closers, be.Close)
	if info := be.Info(); info.Insecure {
		log.Warn("encryption backend is insecure and must not protect real data", "scheme", info.Scheme.String())
	}

	prover, err := openProver(cfg, log)
	if err != nil {
		return nil, err
	}

	var db *sql.DB
	if cfg.Database.URL != "" {
		db, err = postgres.Open(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, db.Close)
		a.checks["postgres"] = db.PingContext
		if err := postgres.Migrate(ctx, db); err != nil {
			return nil, err
		}
	}

	auditStore, err := a.openAuditStore(ctx, cfg, db)
	if err != nil {
		return nil, err
	}
	complianceAudit := compliance.New(auditStore,
		compliance.WithLogger(log),
		compliance.WithMetrics(compliance.NewMetrics(reg)),
	)
	opsAudit := ops.New(auditStore,
		ops.WithLogger(log),
		ops.WithMetrics(ops.NewMetrics(reg)),
		ops.WithBreaker(circuit.New("audit")),
	)

	a.fhe = fheservice.New(be, prover,
		fheservice.WithLogger(log),
		fheservice.WithMetrics(fheMetrics),
		fheservice.WithAuditPublisher(opsAudit),
	)

	sessions, err := a.openSessionStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.wallets = wallet.NewService(sessions, wallet.NewTokenService(cfg.Wallet.JWTSigningKey), cfg.Wallet.SessionTTL,
		wallet.WithLogger(log),
		wallet.WithMetrics(walletmetrics.New(reg)),
		wallet.WithAuditPublisher(opsAudit),
	)

	a.limiter, err = a.openLimiter(ctx, cfg, reg)
	if err != nil {
		return nil, err
	}

	var (
		records ledger.Store
		runner  tx.Runner
	)
	if db != nil {
		records, runner = ledgerstore.NewPostgres(db), tx.NewSQLRunner(db)
	} else {
		records, runner = ledgerstore.New(), tx.NewLockRunner()
	}
	contract := ledger.NewContract(records, prover.Verifier, ledger.WithLogger(log))
	a.registry = property.NewService(contract, a.fhe, complianceAudit,
		property.WithLogger(log),
		property.WithMetrics(propertymetrics.New(reg)),
		property.WithTxRunner(runner),
	)
	return a, nil
}

// Router builds the HTTP handler tree.
func (a *app) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(requestid.Middleware)
	r.Use(metadata.ClientMetadata(a.proxies))
	r.Use(requesttime.Middleware)
	r.Use(logging.Middleware(a.log))
	r.Use(logging.Recoverer(a.log))
	r.Use(wallet.LoadSession(a.wallets, a.log))
	r.Use(a.limiter.Classify(routeClass))

	r.Get("/healthz", a.health)
	fhehandler.New(a.fhe, a.log, fhehandler.WithDecryptPolicy(a.registry)).Register(r)
	wallethandler.New(a.wallets, a.log).Register(r)
	propertyhandler.New(a.registry, a.log).Register(r)
	return r
}

// health reports each configured dependency. Any failing check turns the
// response into a 503.
func (a *app) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status, code := map[string]string{"status": "ok"}, http.StatusOK
	for name, check := range a.checks {
		if err := check(ctx); err != nil {
			a.log.WarnContext(ctx, "health check failed", "dependency", name, "error", err)
			status[name], status["status"], code = "down", "degraded", http.StatusServiceUnavailable
			continue
		}
		status[name] = "up"
	}
	httputil.WriteJSON(w, code, status)
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.log.Warn("failed to release resource", "error", err)
		}
	}
	a.closers = nil
}

func (a *app) openAuditStore(ctx context.Context, cfg config.Config, db *sql.DB) (audit.Store, error) {
	switch cfg.Audit.Sink {
	case "kafka":
		producer, err := a.openKafka(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return kafkaaudit.New(producer, cfg.Kafka.AuditTopic), nil
	case "postgres":
		if db == nil {
			return nil, errors.New("AUDIT_SINK=postgres needs DATABASE_URL")
		}
		outbox := auditpostgres.New(db)
		if len(cfg.Kafka.Brokers) == 0 {
			a.log.Warn("audit outbox has no relay; set KAFKA_BROKERS to forward events")
			return outbox, nil
		}
		producer, err := a.openKafka(ctx, cfg)
		if err != nil {
			return nil, err
		}
		a.relay = worker.NewRelay(outbox, kafkaaudit.New(producer, cfg.Kafka.AuditTopic), cfg.Audit.RelayInterval, 100, a.log)
		return outbox, nil
	default:
		return auditmemory.NewInMemoryStore(), nil
	}
}

func (a *app) openKafka(ctx context.Context, cfg config.Config) (*kgo.Client, error) {
	client, err := kafka.NewClient(ctx, cfg.Kafka)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func() error {
		client.Close()
		return nil
	})
	if err := kafka.EnsureTopic(ctx, client, cfg.Kafka); err != nil {
		return nil, err
	}
	return client, nil
}

func (a *app) openSessionStore(ctx context.Context, cfg config.Config) (wallet.Store, error) {
	if cfg.Wallet.SessionStore != "redis" {
		return walletstore.New(), nil
	}
	client, err := a.openRedis(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return walletstore.NewRedis(client.Client), nil
}

func (a *app) openLimiter(ctx context.Context, cfg config.Config, reg prometheus.Registerer) (*ratelimitmw.Middleware, error) {
	var store ratelimit.BucketStore = bucket.New()
	if cfg.RateLimit.Store == "redis" {
		client, err := a.openRedis(ctx, cfg)
		if err != nil {
			return nil, err
		}
		store = bucket.NewRedis(client.Client)
	}
	perMinute := func(n int) ratelimit.Policy {
		return ratelimit.Policy{Limit: n, Window: time.Minute}
	}
	return ratelimitmw.New(store, a.log,
		ratelimitmw.WithDisabled(cfg.RateLimit.Disabled),
		ratelimitmw.WithMetrics(ratelimitmetrics.New(reg)),
		ratelimitmw.WithPolicy(ratelimit.ClassConnect, perMinute(cfg.RateLimit.Connect)),
		ratelimitmw.WithPolicy(ratelimit.ClassSensitive, perMinute(cfg.RateLimit.Sensitive)),
		ratelimitmw.WithPolicy(ratelimit.ClassWrite, perMinute(cfg.RateLimit.Write)),
		ratelimitmw.WithPolicy(ratelimit.ClassRead, perMinute(cfg.RateLimit.Read)),
	), nil
}

// openRedis connects once and shares the client between session and rate limit stores.
func (a *app) openRedis(ctx context.Context, cfg config.Config) (*redisclient.Client, error) {
	if a.redis != nil {
		return a.redis, nil
	}
	client, err := redisclient.New(ctx, cfg.Redis)
	if err != nil {
		return nil, err
	}
	if client == nil {
		return nil, errors.New("redis is required but REDIS_URL is empty")
	}
	a.closers = append(a.closers, client.Close)
	a.checks["redis"] = client.Health
	a.redis = client
	return client, nil
}

// routeClass assigns rate limit classes. Health checks are not limited.
func routeClass(r *http.Request) (ratelimit.EndpointClass, bool) {
	switch {
	case r.URL.Path == "/healthz":
		return "", false
	case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/decrypt"):
		return ratelimit.ClassSensitive, true
	case r.Method == http.MethodPost && (r.URL.Path == "/wallet/challenge" || r.URL.Path == "/wallet/connect"):
		return ratelimit.ClassConnect, true
	case r.Method == http.MethodPost:
		return ratelimit.ClassWrite, true
	default:
		return ratelimit.ClassRead, true
	}
}

func backendConfig(cfg config.Config) backend.Config {
	return backend.Config{
		Kind:              backend.Kind(cfg.FHE.Backend),
		Production:        cfg.Server.Production(),
		AllowInsecure:     cfg.FHE.AllowInsecure,
		TestSecretKey:     cfg.FHE.TestSecretKey,
		TestEvaluationKey: cfg.FHE.TestEvaluationKey,
		Relayer: relayer.Config{
			BaseURL:          cfg.FHE.RelayerURL,
			Timeout:          cfg.FHE.RelayerTimeout,
			DecryptToken:     cfg.FHE.RelayerToken,
			FailureThreshold: cfg.FHE.BreakerFailures,
			Cooldown:         cfg.FHE.BreakerCooldown,
		},
	}
}

// openProver loads the proof signing seed. Outside production an empty seed
// yields an ephemeral key, so proofs do not survive a restart.
func openProver(cfg config.Config, log *slog.Logger) (*proof.Service, error) {
	if cfg.FHE.ProofSeed != "" {
		return proof.NewFromHex(cfg.FHE.ProofSeed)
	}
	seed, err := proof.GenerateSeed()
	if err != nil {
		return nil, err
	}
	log.Warn("FHE_PROOF_SEED not set; using an ephemeral proof key")
	return proof.New(seed)
}
