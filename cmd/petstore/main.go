package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/Skotchmaster/petstore/internal/httpserver"
	"github.com/Skotchmaster/petstore/internal/models"
	"github.com/Skotchmaster/petstore/internal/notify"
	"github.com/Skotchmaster/petstore/internal/payment"
	"github.com/Skotchmaster/petstore/internal/repo"
	"github.com/Skotchmaster/petstore/internal/service"
	"github.com/Skotchmaster/petstore/pkg/config"
	pkgdb "github.com/Skotchmaster/petstore/pkg/db"
	"github.com/Skotchmaster/petstore/pkg/events"
	"github.com/Skotchmaster/petstore/pkg/logging"
	"github.com/Skotchmaster/petstore/pkg/middleware/ratelimit"
	"github.com/Skotchmaster/petstore/pkg/search"
	"github.com/Skotchmaster/petstore/pkg/storage"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("warning: could not load .env: %v", err)
	}

	cfg := config.Load()
	config.MustValid(cfg)

	logger := logging.New(cfg.LogLevel).With("service", cfg.ServiceName)
	slog.SetDefault(logger)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	db, err := pkgdb.Open(ctx, cfg.Database.URL)
	if err != nil {
		cancel()
		log.Fatalf("db open: %v", err)
	}
	if err := pkgdb.Migrate(ctx, db, models.All()...); err != nil {
		cancel()
		log.Fatalf("db migrate: %v", err)
	}
	cancel()

	publisher, closePublisher := newPublisher(cfg, logger)
	defer closePublisher()

	var notifier notify.Notifier = notify.NewLogNotifier(logger)
	if len(cfg.Kafka.Brokers) > 0 {
		notifier = notify.NewKafkaNotifier(publisher, cfg.Kafka.NotificationsTopic)
	}

	r := repo.New(db)

	authSvc := &service.AuthService{
		Repo:          r,
		AccessSecret:  cfg.Auth.JWTAccessSecret,
		RefreshSecret: cfg.Auth.JWTRefreshSecret,
		AccessTTL:     cfg.Auth.AccessTTL,
		RefreshTTL:    cfg.Auth.RefreshTTL,
		Notifier:      notifier,
	}
	images := newImageStore(cfg, logger)
	orderSvc := &service.OrderService{Repo: r, Events: publisher, Notifier: notifier, Topic: cfg.Kafka.OrderTopic}
	catalogSvc := &service.CatalogService{
		Repo:   r,
		Index:  newProductIndex(cfg, logger),
		Images: images,
		Events: publisher,
		Topic:  cfg.Kafka.ProductTopic,
	}

	limiter, closeLimiter := newLimiter(cfg, logger)
	defer closeLimiter()

	e := httpserver.New(logger, httpserver.Options{
		Development: cfg.IsDevelopment(),
		BodyLimit:   cfg.Server.BodyLimit,
		CORSOrigins: cfg.Server.CORSOrigins,
		Limiter:     limiter,
	})

	httpserver.Register(e, &httpserver.Deps{
		Auth:         &httpserver.AuthHTTP{Svc: authSvc, SecureCookies: cfg.Auth.SecureCookies},
		Users:        &httpserver.UserHTTP{Svc: &service.UserService{Repo: r}, SecureCookies: cfg.Auth.SecureCookies},
		Catalog:      &httpserver.CatalogHTTP{Svc: catalogSvc},
		Cart:         &httpserver.CartHTTP{Svc: &service.CartService{Repo: r}},
		Orders:       &httpserver.OrderHTTP{Svc: orderSvc},
		Payments:     &httpserver.PaymentHTTP{Svc: &service.PaymentService{Orders: orderSvc, Gateways: newGateways(cfg, logger)}},
		Pets:         &httpserver.PetHTTP{Svc: &service.PetService{Repo: r}},
		Appointments: &httpserver.AppointmentHTTP{Svc: &service.AppointmentService{Repo: r, Notifier: notifier}},
		Professional: &httpserver.ProfessionalHTTP{Svc: &service.ProfessionalService{Repo: r, Images: images}},
		Reviews:      &httpserver.ReviewHTTP{Svc: &service.ReviewService{Repo: r}},

		JWTSecret:     cfg.Auth.JWTAccessSecret,
		Refresher:     authSvc,
		SecureCookies: cfg.Auth.SecureCookies,
		DB:            db,
	})

	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.Server.Port),
		Handler:           e,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		ReadHeaderTimeout: 3 * time.Second,
	}

	go func() {
		logger.Info("server_listening", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server_shutdown_failed", "error", err)
	}
	if err := pkgdb.Close(db); err != nil {
		logger.Error("db_close_failed", "error", err)
	}

	logger.Info("server_stopped")
}

func newPublisher(cfg config.Config, logger *slog.Logger) (events.Publisher, func()) {
	if len(cfg.Kafka.Brokers) == 0 {
		logger.Info("kafka_disabled")
		return events.Noop{}, func() {}
	}
	p, err := events.NewProducer(cfg.Kafka.Brokers)
	if err != nil {
		log.Fatalf("kafka producer: %v", err)
	}
	return p, func() {
		if err := p.Close(); err != nil {
			logger.Error("kafka_close_failed", "error", err)
		}
	}
}

// newProductIndex returns nil when search is not configured or unreachable;
// the catalog then searches the database.
func newProductIndex(cfg config.Config, logger *slog.Logger) service.ProductIndex {
	if cfg.Search.URL == "" {
		logger.Info("search_disabled")
		return nil
	}
	client, err := search.NewClient(search.Config{
		URL:      cfg.Search.URL,
		User:     cfg.Search.User,
		Password: cfg.Search.Password,
		Index:    cfg.Search.Index,
	})
	if err != nil {
		logger.Warn("search_client_failed", "error", err)
		return nil
	}
	idx := search.NewIndex(client, cfg.Search.Index)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := idx.Ping(ctx); err != nil {
		logger.Warn("search_unavailable", "url", cfg.Search.URL, "error", err)
		return nil
	}
	return idx
}

func newImageStore(cfg config.Config, logger *slog.Logger) storage.ImageStore {
	if cfg.Storage.Bucket == "" {
		logger.Info("image_storage_disabled")
		return storage.Disabled{}
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	store, err := storage.NewS3Store(ctx, storage.Config{
		Bucket:    cfg.Storage.Bucket,
		Region:    cfg.Storage.Region,
		Endpoint:  cfg.Storage.Endpoint,
		AccessKey: cfg.Storage.AccessKey,
		SecretKey: cfg.Storage.SecretKey,
		PublicURL: cfg.Storage.PublicURL,
	})
	if err != nil {
		log.Fatalf("s3 store: %v", err)
	}
	return store
}

func newLimiter(cfg config.Config, logger *slog.Logger) (ratelimit.Limiter, func()) {
	if cfg.Redis.Addr == "" {
		return ratelimit.NewMemoryLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window), func() {}
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis_unavailable", "addr", cfg.Redis.Addr, "error", err)
	}
	closeRedis := func() {
		if err := client.Close(); err != nil {
			logger.Error("redis_close_failed", "error", err)
		}
	}
	return ratelimit.NewRedisLimiter(client, "ratelimit:", cfg.RateLimit.Requests, cfg.RateLimit.Window), closeRedis
}

func newGateways(cfg config.Config, logger *slog.Logger) payment.Registry {
	hc := &http.Client{Timeout: 15 * time.Second}
	reg := payment.Registry{}
	p := cfg.Payments
	if p.StripeSecretKey != "" {
		reg[payment.ProviderStripe] = payment.NewStripe(payment.StripeConfig{
			SecretKey:     p.StripeSecretKey,
			WebhookSecret: p.StripeWebhookSecret,
			BaseURL:       p.StripeBaseURL,
			Currency:      p.Currency,
		}, hc)
	}
	if p.PayPalClientID != "" {
		pp, err := payment.NewPayPal(payment.PayPalConfig{
			ClientID:  p.PayPalClientID,
			Secret:    p.PayPalSecret,
			WebhookID: p.PayPalWebhookID,
			BaseURL:   p.PayPalBaseURL,
			Currency:  p.Currency,
			ReturnURL: p.ReturnURL,
			CancelURL: p.CancelURL,
		}, hc)
		if err != nil {
			logger.Error("paypal_gateway_disabled", "error", err)
		} else {
			reg[payment.ProviderPayPal] = pp
		}
	}
	logger.Info("payment_gateways", "count", len(reg))
	return reg
}
