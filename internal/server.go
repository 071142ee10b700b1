package internal

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/IBM/pgxpoolprometheus"
	"github.com/getsentry/sentry-go"
	"github.com/go-redis/redis/extra/redisotel/v8"
	"github.com/go-redis/redis/v8"
	"github.com/go-redis/redis_rate/v9"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/multierr"

	"github.com/2beens/blogstore/internal/auth"
	"github.com/2beens/blogstore/internal/blog"
	"github.com/2beens/blogstore/internal/config"
	"github.com/2beens/blogstore/internal/db"
	"github.com/2beens/blogstore/internal/middleware"
	"github.com/2beens/blogstore/internal/telemetry/metrics"
	"github.com/2beens/blogstore/internal/telemetry/tracing"
	"github.com/2beens/blogstore/pkg"
)

const (
	megabyte               = 1024 * 1024
	maxRequestBodyBytes    = megabyte
	sessionCleanupInterval = 8 * time.Hour
	shutdownTimeout        = 15 * time.Second
)

type Server struct {
	httpServer        *http.Server
	metricsHttpServer *http.Server
	versionInfo       string

	config      *config.Config
	dbPool      *pgxpool.Pool
	blogStore   blog.Store
	blogService *blog.Service

	redisClient  *redis.Client
	loginChecker auth.Checker
	authService  *auth.Service
	rateLimiter  middleware.RequestRateLimiter

	// metrics
	metricsManager *metrics.Manager
	promRegistry   *prometheus.Registry
	otelShutdown   func()

	stopSessionCleanup context.CancelFunc
	sessionCleanupDone chan struct{}
}

type NewServerParams struct {
	Config                  *config.Config
	VersionInfo             string
	RedisPassword           string
	PostgresPassword        string
	HoneycombTracingEnabled bool
}

func NewServer(
	ctx context.Context,
	params NewServerParams,
) (*Server, error) {
	cfg := params.Config

	// use honeycomb distro to setup OpenTelemetry SDK
	otelShutdown, err := tracing.HoneycombSetup(params.HoneycombTracingEnabled, "blogstore-backend")
	if err != nil {
		return nil, err
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     net.JoinHostPort(cfg.RedisHost, cfg.RedisPort),
		Password: params.RedisPassword,
		DB:       0, // use default DB
	})
	if params.HoneycombTracingEnabled {
		rdb.AddHook(redisotel.NewTracingHook())
	}

	rdbStatus := rdb.Ping(ctx)
	if err := rdbStatus.Err(); err != nil {
		log.Errorf("--> failed to ping redis: %s", err)
	} else {
		log.Debugf("redis ping: %s", rdbStatus.Val())
	}

	s := &Server{
		config:       cfg,
		versionInfo:  params.VersionInfo,
		redisClient:  rdb,
		otelShutdown: otelShutdown,
	}

	var extraCollectors []prometheus.Collector
	if cfg.Store == config.StorePostgres {
		dbParams := db.NewDBPoolParams{
			DBHost:         cfg.PostgresHost,
			DBPort:         cfg.PostgresPort,
			DBName:         cfg.PostgresDBName,
			DBPassword:     params.PostgresPassword,
			TracingEnabled: params.HoneycombTracingEnabled,
		}
		if err := db.Migrate(ctx, dbParams); err != nil {
			return nil, fmt.Errorf("migrate db: %w", err)
		}

		s.dbPool, err = db.NewDBPool(ctx, dbParams)
		if err != nil {
			return nil, fmt.Errorf("new db pool: %w", err)
		}
		if err := s.dbPool.Ping(ctx); err != nil {
			log.Warnf("failed to ping db: %s", err)
		}

		extraCollectors = append(extraCollectors, pgxpoolprometheus.NewCollector(
			s.dbPool,
			map[string]string{"db_name": cfg.PostgresDBName},
		))
	}

	s.blogStore = newBlogStore(cfg, rdb, s.dbPool)
	if cached, ok := s.blogStore.(*blog.CachedStore); ok {
		extraCollectors = append(extraCollectors, metrics.NewCacheCollectors("backend", "blogstore", "blogs", cached)...)
	}

	s.promRegistry = metrics.SetupPrometheus(extraCollectors...)
	s.metricsManager = metrics.NewManager("backend", "blogstore", s.promRegistry)
	s.metricsManager.GaugeLifeSignal.Set(0)

	s.blogService = blog.NewService(
		s.blogStore,
		blog.UUIDGenerator{},
		blog.SystemClock{},
		auth.ContextCaller{},
	)

	accounts := make([]auth.Account, 0, len(cfg.Accounts))
	for _, a := range cfg.Accounts {
		accounts = append(accounts, auth.Account{
			Username:     a.Username,
			PasswordHash: a.PasswordHash,
		})
	}
	if len(accounts) == 0 {
		log.Warnln("no accounts configured, nobody will be able to log in")
	}

	s.authService = auth.NewAuthService(accounts, cfg.SessionTTL(), rdb)
	s.loginChecker = auth.NewLoginChecker(cfg.SessionTTL(), rdb)
	s.rateLimiter = redis_rate.NewLimiter(rdb)

	return s, nil
}

// newBlogStore picks the configured blog store. Redis and postgres stores get
// a read-through cache in front, unless cache_size_mb is 0.
func newBlogStore(cfg *config.Config, rdb *redis.Client, dbPool *pgxpool.Pool) blog.Store {
	var store blog.Store
	switch cfg.Store {
	case config.StoreRedis:
		store = blog.NewRedisStore(rdb, cfg.RedisBlogsKey)
	case config.StorePostgres:
		store = blog.NewPsqlStore(dbPool)
	default:
		log.Infoln("using in-memory blog store, blogs are lost on restart")
		return blog.NewMemoryStore()
	}

	if cfg.CacheSizeMB <= 0 {
		return store
	}
	log.Debugf("blog store [%s] cached, size %d MB", cfg.Store, cfg.CacheSizeMB)
	return blog.NewCachedStore(store, cfg.CacheSizeMB*megabyte, cfg.CacheTTL())
}

func (s *Server) routerSetup() *mux.Router {
	r := mux.NewRouter()
	r.Use(otelmux.Middleware("blogstore-router"))

	blogHandler := blog.NewBlogHandler(s.blogService, s.metricsManager)
	blogHandler.SetupRoutes(r)

	authRouter := r.PathPrefix("/a").Subrouter()
	authRouter.Use(middleware.RateLimit(
		s.rateLimiter,
		"auth",
		s.config.LoginRateLimitAllowedPerMin,
		s.metricsManager,
	))
	auth.NewHandler(s.authService).SetupRoutes(authRouter)

	r.HandleFunc("/version", s.handleVersion).Methods("GET").Name("version")

	// all the rest - unhandled paths
	r.HandleFunc("/{unknown}", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}).Methods("GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS").Name("unknown")

	authMiddleware := middleware.NewAuthMiddlewareHandler(s.loginChecker)

	r.Use(middleware.PanicRecovery(s.metricsManager))
	r.Use(middleware.RequestMetrics(s.metricsManager))
	r.Use(middleware.Cors(s.config.AllowedOrigins))
	r.Use(authMiddleware.AuthCheck())
	r.Use(middleware.LogRequest())
	r.Use(middleware.LimitAndDrainRequest(maxRequestBodyBytes))

	return r
}

func (s *Server) handleVersion(w http.ResponseWriter, _ *http.Request) {
	version := s.versionInfo
	if version == "" {
		version = "unknown"
	}
	pkg.WriteTextResponseOK(w, version)
}

func (s *Server) Serve(ctx context.Context, host string, port int) {
	router := s.routerSetup()

	ipAndPort := net.JoinHostPort(host, strconv.Itoa(port))
	s.httpServer = &http.Server{
		Handler:      otelhttp.NewHandler(router, "blogstore-server"),
		Addr:         ipAndPort,
		WriteTimeout: time.Minute,
		ReadTimeout:  time.Minute,
		ConnState:    s.connStateMetrics,
	}

	metricsRouter := mux.NewRouter()
	metricsRouter.Handle("/metrics", metrics.Handler(s.promRegistry))
	metricsAddr := net.JoinHostPort(s.config.PrometheusMetricsHost, s.config.PrometheusMetricsPort)
	s.metricsHttpServer = &http.Server{
		Addr:    metricsAddr,
		Handler: metricsRouter,
	}

	go func() {
		log.Infof(" > server listening on: [%s]", ipAndPort)
		err := s.httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("main service, listen and serve: %s", err)
		}
	}()

	go func() {
		log.Debugf(" > metrics listening on: [%s]", metricsAddr)
		err := s.metricsHttpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("metrics service, listen and serve: %s", err)
		}
	}()

	s.startSessionCleanup(ctx)
	s.metricsManager.GaugeLifeSignal.Set(1)
}

// startSessionCleanup evicts expired sessions periodically, until shutdown.
func (s *Server) startSessionCleanup(ctx context.Context) {
	ctx, s.stopSessionCleanup = context.WithCancel(ctx)
	s.sessionCleanupDone = make(chan struct{})

	go func() {
		defer close(s.sessionCleanupDone)
		ticker := time.NewTicker(sessionCleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.authService.ScanAndClean(ctx)
			}
		}
	}()
}

func (s *Server) GracefulShutdown() {
	log.Debug("graceful shutdown initiated ...")
	s.metricsManager.GaugeLifeSignal.Set(0)

	ctx, timeoutCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer timeoutCancel()

	var shutdownErr error
	if s.httpServer != nil {
		shutdownErr = multierr.Append(shutdownErr, s.httpServer.Shutdown(ctx))
		log.Warnln("server shut down")
	}
	if s.metricsHttpServer != nil {
		shutdownErr = multierr.Append(shutdownErr, s.metricsHttpServer.Shutdown(ctx))
		log.Warnln("metrics server shut down")
	}

	if s.stopSessionCleanup != nil {
		s.stopSessionCleanup()
		<-s.sessionCleanupDone
	}

	s.otelShutdown()
	log.Trace("otel shut down ...")

	if s.redisClient != nil {
		shutdownErr = multierr.Append(shutdownErr, s.redisClient.Close())
	}

	if s.dbPool != nil {
		log.Debugln("closing db pool ...")
		s.dbPool.Close() // blocking operation
		log.Debugln("db pool closed")
	}

	if ok := sentry.Flush(5 * time.Second); ok {
		log.Debugf("sentry flush ok: %t", ok)
	}

	for _, err := range multierr.Errors(shutdownErr) {
		log.Errorf(" >>> graceful shutdown: %s", err)
	}
}

func (s *Server) connStateMetrics(_ net.Conn, state http.ConnState) {
	switch state {
	case http.StateNew:
		s.metricsManager.GaugeRequests.Add(1)
	case http.StateClosed:
		s.metricsManager.GaugeRequests.Add(-1)
	default:
		// do nothing
	}
}
