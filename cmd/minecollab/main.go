package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/aadyantmaity/minecollab/internal/application/auth"
	"github.com/aadyantmaity/minecollab/internal/application/identity"
	"github.com/aadyantmaity/minecollab/internal/application/ports"
	"github.com/aadyantmaity/minecollab/internal/application/reconcile"
	"github.com/aadyantmaity/minecollab/internal/config"
	infraauth "github.com/aadyantmaity/minecollab/internal/infrastructure/auth"
	httprouter "github.com/aadyantmaity/minecollab/internal/infrastructure/http"
	"github.com/aadyantmaity/minecollab/internal/infrastructure/http/handlers"
	"github.com/aadyantmaity/minecollab/internal/infrastructure/http/middleware"
	"github.com/aadyantmaity/minecollab/internal/infrastructure/identity/local"
	"github.com/aadyantmaity/minecollab/internal/infrastructure/lockout"
	"github.com/aadyantmaity/minecollab/internal/infrastructure/persistence/documents"
	redisstore "github.com/aadyantmaity/minecollab/internal/infrastructure/persistence/redis"
	"github.com/aadyantmaity/minecollab/internal/infrastructure/queue"
	"github.com/aadyantmaity/minecollab/internal/infrastructure/security"
	"github.com/aadyantmaity/minecollab/internal/infrastructure/webhook"
)

func main() {
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}

	ctx := context.Background()
	checks := make(map[string]ports.Pinger)

	var redisClient *goredis.Client
	if cfg.Redis.URL != "" {
		redisClient, err = redisstore.NewClient(ctx, cfg.Redis.URL)
		if err != nil {
			if cfg.Store.Backend == config.StoreRedis {
				log.Fatal().Err(err).Msg("connect to redis")
			}
			log.Warn().Err(err).Msg("redis unavailable; continuing without redis")
			redisClient = nil
		} else {
			defer redisClient.Close()
			checks["redis"] = redisstore.NewDocumentStore(redisClient)
		}
	}

	// A nil *goredis.Client must not reach the interface.
	var sharedRedis goredis.UniversalClient
	if redisClient != nil {
		sharedRedis = redisClient
	}

	backends, err := openStores(ctx, cfg, sharedRedis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("open stores")
	}
	defer backends.Close()
	for name, p := range backends.checks {
		checks[name] = p
	}
	store, accounts, verifications := backends.documents, backends.accounts, backends.verifications

	var emitter ports.WebhookEmitter = webhook.NewNoopEmitter()
	if cfg.Webhook.URL != "" {
		emitter = webhook.NewHTTPEmitter(cfg.Webhook.URL, webhook.WithSecret(cfg.Webhook.Secret))
	}
	taskHandlers := queue.NewHandlers(emitter, log)

	var taskEnqueuer ports.TaskEnqueuer
	var asynqWorker *queue.Worker
	if redisClient != nil {
		redisOpt := asynq.RedisClientOpt{
			Addr:     redisClient.Options().Addr,
			Username: redisClient.Options().Username,
			Password: redisClient.Options().Password,
			DB:       redisClient.Options().DB,
		}
		asynqEnq := queue.NewAsynqEnqueuer(redisOpt, log)
		defer asynqEnq.Close()
		taskEnqueuer = asynqEnq
		asynqWorker = queue.NewWorker(redisOpt, cfg.Queue.Concurrency, taskHandlers)
		go func() {
			if err := asynqWorker.Run(); err != nil {
				log.Warn().Err(err).Msg("asynq worker stopped")
			}
		}()
	} else {
		taskEnqueuer = queue.NewInlineEnqueuer(taskHandlers)
	}

	hasher := security.NewArgon2Hasher(security.Argon2Params{
		Memory:      cfg.Argon2.Memory,
		Iterations:  cfg.Argon2.Iterations,
		Parallelism: cfg.Argon2.Parallelism,
		SaltLength:  16,
		KeyLength:   32,
	})
	provider, err := local.NewProvider(accounts, verifications, hasher, taskEnqueuer, local.Config{
		BaseURL:            cfg.Verification.BaseURL,
		VerificationExpiry: cfg.Verification.Expiry,
	}, log)
	if err != nil {
		log.Fatal().Err(err).Msg("create identity provider")
	}

	privateKey, generated, err := infraauth.LoadSigningKey(cfg.JWT.PrivateKeyPath)
	if err != nil {
		log.Fatal().Err(err).Msg("load JWT signing key")
	}
	if generated {
		log.Warn().Msg("JWT_PRIVATE_KEY_PATH not set; generated an ephemeral signing key")
	}
	issuer := infraauth.NewTokenIssuer(privateKey, cfg.JWT.Issuer, cfg.JWT.Audience)

	var lockouts ports.LoginLockoutStore = lockout.NewMemoryStore(cfg.Lockout.MaxAttempts, cfg.Lockout.Cooldown)
	if sharedRedis != nil {
		lockouts = lockout.NewRedisStore(sharedRedis, cfg.Lockout.MaxAttempts, cfg.Lockout.Cooldown, log)
	}

	reservations := documents.NewReservationRepository(store)
	profiles := documents.NewProfileRepository(store)
	journalRepo := documents.NewJournalRepository(store)
	var journal ports.ProvisioningJournal
	if cfg.Store.Journal {
		journal = journalRepo
	}
	sagaOpts := identity.SagaOptions{
		StepTimeout:         cfg.Saga.StepTimeout,
		CompensationTimeout: cfg.Saga.CompensationTimeout,
		CompensationRetries: cfg.Saga.CompensationRetries,
		RetryInterval:       cfg.Saga.RetryInterval,
	}
	provisionUC := identity.NewProvisioner(provider, reservations, profiles, journal, sagaOpts, log)
	renameUC := identity.NewRenameCoordinator(provider, reservations, profiles, sagaOpts, log)
	reconciler := reconcile.NewReconciler(reservations, profiles, cfg.Store.ReclaimGrace, log)

	loginUC := auth.NewLogin(provider, issuer, lockouts, cfg.JWT.AccessExpiry)
	verifyEmailUC := auth.NewVerifyEmail(provider)
	resendUC := auth.NewResendVerification(provider, provider)

	limiterStore, err := middleware.NewLimiterStore(sharedRedis)
	if err != nil {
		log.Fatal().Err(err).Msg("create rate limit store")
	}
	ipLimit, err := middleware.NewIPRateLimiter(cfg.RateLimit.RatePerIP, limiterStore)
	if err != nil {
		log.Fatal().Err(err).Msg("create IP rate limiter")
	}
	accountLimit, err := middleware.NewAccountRateLimiter(cfg.RateLimit.RatePerAccount, limiterStore)
	if err != nil {
		log.Fatal().Err(err).Msg("create account rate limiter")
	}

	var adminHandler *handlers.AdminHandler
	var requireAdmin func(http.Handler) http.Handler
	if cfg.Admin.Secret != "" {
		adminHandler = handlers.NewAdminHandler(reconciler, journal, taskEnqueuer, log)
		requireAdmin = middleware.RequireAdminSecret(cfg.Admin.Secret)
	}

	router := httprouter.NewRouter(httprouter.RouterConfig{
		AccountsHandler:  handlers.NewAccountsHandler(provisionUC, renameUC, provider, profiles, taskEnqueuer, log),
		AuthHandler:      handlers.NewAuthHandler(loginUC, verifyEmailUC, resendUC, taskEnqueuer, log),
		HealthHandler:    handlers.NewHealthHandler(checks),
		AdminHandler:     adminHandler,
		RequireJWT:       middleware.NewAuthValidator(issuer).Handler,
		RequireAdmin:     requireAdmin,
		Log:              log,
		Secure:           middleware.NewSecure(middleware.SecureOptions(cfg.Secure.IsDevelopment)),
		CORS:             middleware.CORS(cfg.CORS.AllowedOrigins),
		IPRateLimit:      ipLimit,
		AccountRateLimit: accountLimit,
		Metrics:          true,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Server.Port).Str("store", cfg.Store.Backend).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown")
	}
	if asynqWorker != nil {
		asynqWorker.Shutdown()
	}
	log.Info().Msg("server stopped")
}
