package main

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "practice/api/swagger" // swagger docs
	"practice/internal/auth"
	"practice/internal/config"
	"practice/internal/database"
	"practice/internal/handler"
	"practice/internal/logger"
	"practice/internal/middleware"
	"practice/internal/model"
	"practice/internal/notify"
	"practice/internal/repository"
	"practice/internal/service"
	"practice/internal/store"
	"practice/internal/websocket"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// @title           Practice Booking API
// @version         1.0
// @description     Client accounts, appointment booking and therapy workbooks for the practice website.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.Init(logger.Config{Level: cfg.Log.Level, Dev: cfg.Log.Dev})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg config.Config, log *zap.Logger) error {
	gin.SetMode(cfg.GinMode)
	clock := clockwork.NewRealClock()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ids, err := store.NewIDGenerator(cfg.IDStrategy, cfg.SnowflakeNode)
	if err != nil {
		return err
	}

	repos, err := openRepositories(ctx, cfg, ids, clock, log)
	if err != nil {
		return err
	}

	sessions, err := auth.NewSessionManager(cfg.JWTSecret, auth.DefaultSessionTTL, clock)
	if err != nil {
		return err
	}
	authn := middleware.NewAuthenticator(sessions, cfg.Release())

	// Set up WebSocket Hub
	hub := websocket.NewHub(log, cfg.CORSOrigins)
	go hub.Run(ctx)

	events := notify.Fanout{hub}
	if cfg.RabbitMQURL != "" {
		broker := notify.NewAMQPPublisher(cfg.RabbitMQURL, log)
		defer func() { _ = broker.Close() }()
		events = append(events, notify.NewBreakerPublisher(broker, notify.BreakerConfig{Name: "rabbitmq"}, log))
	}

	mailer := notify.NewBreakerMailer(notify.NewMailer(cfg.Email, log), notify.BreakerConfig{Name: "email"}, log)
	notifier := notify.NewBookingNotifier(mailer, cfg.Email.NotifyTo)
	catalogue := service.NewCatalogueService(nil)

	// Set up dependencies (Repository -> Service -> Handler)
	services := handler.Services{
		Users:        service.NewUserService(repos, sessions, cfg.BcryptCost),
		Appointments: service.NewAppointmentService(repos, catalogue, notifier, events, clock, log),
		Workbooks:    service.NewWorkbookService(repos, events, clock, log),
		Audit:        service.NewAuditService(repos),
		Dashboard:    service.NewDashboardService(repos),
		Catalogue:    catalogue,
	}

	var limiter middleware.Limiter
	if cfg.RateLimit.Enabled {
		limiter = middleware.NewLocalLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window, clock)
		if cfg.RateLimit.RedisAddr != "" {
			if rdb := middleware.NewRedisClient(ctx, cfg.RateLimit.RedisAddr); rdb != nil {
				defer func() { _ = rdb.Close() }()
				limiter = middleware.NewRedisLimiter(rdb, cfg.RateLimit.Requests, cfg.RateLimit.Window, clock)
				log.Info("rate limiting through redis", zap.String("addr", cfg.RateLimit.RedisAddr))
			} else {
				log.Warn("redis unreachable, rate limiting per process", zap.String("addr", cfg.RateLimit.RedisAddr))
			}
		}
	}

	router, err := handler.NewRouter(handler.RouterConfig{
		Services:    services,
		Auth:        authn,
		Log:         log,
		CORSOrigins: cfg.CORSOrigins,
		Limiter:     limiter,
		LimitPrefix: cfg.RateLimit.Prefix,
		LiveEvents:  hub.ServeWs,
		Swagger:     !cfg.Release(),
		Metrics:     true,
	})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.String("addr", srv.Addr), zap.String("store", cfg.StoreDriver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// openRepositories selects the storage driver and seeds sample data when asked.
func openRepositories(ctx context.Context, cfg config.Config, ids store.IDGenerator, clock clockwork.Clock, log *zap.Logger) (repository.Repositories, error) {
	if cfg.StoreDriver == "postgres" {
		db, err := database.NewConnection(cfg.DB.DSN(), log)
		if err != nil {
			return repository.Repositories{}, fmt.Errorf("database connection failed: %w", err)
		}
		log.Info("connected to PostgreSQL")
		repos := repository.NewPostgres(db, ids)
		if cfg.SeedData {
			if err := seedAdmin(ctx, repos, cfg, log); err != nil {
				return repository.Repositories{}, err
			}
		}
		return repos, nil
	}

	s := store.New(store.WithClock(clock), store.WithIDGenerator(ids))
	if cfg.SeedData {
		adminHash, err := seedPassword(cfg.Seed.AdminPassword, cfg.Seed.AdminEmail, cfg.BcryptCost, log)
		if err != nil {
			return repository.Repositories{}, err
		}
		demoHash, err := seedPassword(cfg.Seed.DemoPassword, cfg.Seed.DemoEmail, cfg.BcryptCost, log)
		if err != nil {
			return repository.Repositories{}, err
		}
		if err := store.Seed(s, store.SeedConfig{
			AdminName:         cfg.Seed.AdminName,
			AdminEmail:        cfg.Seed.AdminEmail,
			AdminPasswordHash: adminHash,
			DemoName:          cfg.Seed.DemoName,
			DemoEmail:         cfg.Seed.DemoEmail,
			DemoPasswordHash:  demoHash,
		}); err != nil {
			return repository.Repositories{}, err
		}
		log.Info("seeded in-memory store", zap.Int("users", s.Users.Count(nil)), zap.Int("appointments", s.Appointments.Count(nil)))
	}
	return repository.NewMemory(s), nil
}

// seedAdmin makes sure a database has at least the configured admin account.
func seedAdmin(ctx context.Context, repos repository.Repositories, cfg config.Config, log *zap.Logger) error {
	_, err := repos.Users.GetByEmail(ctx, cfg.Seed.AdminEmail)
	if err == nil {
		return nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("look up seed admin: %w", err)
	}
	hash, err := seedPassword(cfg.Seed.AdminPassword, cfg.Seed.AdminEmail, cfg.BcryptCost, log)
	if err != nil {
		return err
	}
	return repos.Users.Create(ctx, &model.User{
		Name:     cfg.Seed.AdminName,
		Email:    cfg.Seed.AdminEmail,
		Password: hash,
		Role:     model.RoleAdmin,
	})
}

// seedPassword hashes the configured password, or a random one that is
// logged once so the operator can sign in.
func seedPassword(plain, email string, cost int, log *zap.Logger) (string, error) {
	if plain == "" {
		buf := make([]byte, 12)
		if _, err := rand.Read(buf); err != nil {
			return "", err
		}
		plain = base64.RawURLEncoding.EncodeToString(buf)
		log.Warn("generated seed password", zap.String("email", email), zap.String("password", plain))
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", fmt.Errorf("hash seed password: %w", err)
	}
	return string(hash), nil
}
