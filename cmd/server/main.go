package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"yfi-bank/backend/internal/audit"
	auditrepo "yfi-bank/backend/internal/audit/repository"
	"yfi-bank/backend/internal/config"
	"yfi-bank/backend/internal/db"
	"yfi-bank/backend/internal/handler"
	"yfi-bank/backend/internal/identity"
	"yfi-bank/backend/internal/postal"
	profilerepo "yfi-bank/backend/internal/profile/repository"
	"yfi-bank/backend/internal/provision"
	"yfi-bank/backend/internal/server"
	"yfi-bank/backend/internal/telemetry/otel"
	"yfi-bank/backend/internal/verification"
	"yfi-bank/backend/internal/verification/devchannel"
	verifdomain "yfi-bank/backend/internal/verification/domain"
	"yfi-bank/backend/internal/verification/rate"
	verifrepo "yfi-bank/backend/internal/verification/repository"
	"yfi-bank/backend/internal/verification/verifyapi"
	"yfi-bank/backend/internal/wizard"
	"yfi-bank/backend/internal/wizard/session"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	providers, err := otel.NewProviders(ctx, cfg.OTLPEndpoint, "yfi-signup", cfg.OTLPInsecure)
	if err != nil {
		log.Fatalf("telemetry: %v", err)
	}
	providers.SetGlobal()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = providers.Shutdown(shutdownCtx)
	}()

	pool, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer pool.Close()

	attemptStore := verifrepo.NewPostgresStore(pool)
	profiles := profilerepo.NewPostgresRepo(pool)
	auditor := audit.NewLogger(auditrepo.NewPostgresRepository(pool), logger)

	var (
		sessions wizard.SessionStore
		limiter  verification.SendLimiter
	)
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		sessions = session.NewRedisStore(rdb, cfg.SessionTTLDuration())
		limiter = rate.NewLimiter(rdb, cfg.SendWindowDuration(), cfg.MaxSendsInWindow)
	} else {
		logger.Warn("REDIS_ADDR not set; signup sessions are in-memory and lost on restart")
		sessions = session.NewMemoryStore()
	}

	channels := buildChannels(cfg, logger)
	tracker := verification.NewTracker(
		attemptStore, channels, limiter,
		cfg.CodeTTLDuration(), cfg.ResendCooldownDuration(), cfg.MaxCodeChecks,
	)

	order := make([]verifdomain.ChannelKind, 0, 2)
	for _, ch := range cfg.ChannelOrderList() {
		order = append(order, verifdomain.ChannelKind(ch))
	}

	sequencer := wizard.NewSequencer(
		sessions, tracker, profiles,
		postal.NewClient(cfg.PostalBaseURL), order,
	)
	coordinator := provision.NewCoordinator(
		identity.NewClient(cfg.IdentityServiceKey, cfg.IdentityBaseURL),
		profiles, tracker, sequencer, auditor,
		otel.NewEventEmitter(providers.LoggerProvider),
	)

	signup := handler.NewSignupHandler(sequencer, tracker, coordinator, logger)
	router := server.NewRouter(signup, cfg.AllowedOriginsList(), func(r *http.Request) error {
		return pool.Ping(r.Context())
	})

	if err := server.New(cfg.HTTPAddr, router, logger).Run(ctx); err != nil {
		log.Fatalf("server: %v", err)
	}
	logger.Info("server stopped")
}

func buildChannels(cfg *config.Config, logger *slog.Logger) map[verifdomain.ChannelKind]verification.Channel {
	if cfg.VerifyDevMode {
		logger.Warn("VERIFY_DEV_MODE enabled; codes are generated locally and logged")
		dev := devchannel.New(cfg.CodeTTLDuration(), devchannel.FixedCode, logger)
		return map[verifdomain.ChannelKind]verification.Channel{
			verifdomain.ChannelPhone: dev,
			verifdomain.ChannelEmail: dev,
		}
	}
	return map[verifdomain.ChannelKind]verification.Channel{
		verifdomain.ChannelPhone: verifyapi.NewClient(cfg.VerifyAPIKey, cfg.VerifyBaseURL, verifdomain.ChannelPhone),
		verifdomain.ChannelEmail: verifyapi.NewClient(cfg.VerifyAPIKey, cfg.VerifyBaseURL, verifdomain.ChannelEmail),
	}
}
