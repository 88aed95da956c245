package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/print-order-api/internal/application/customer"
	"github.com/print-order-api/internal/application/emailverification"
	"github.com/print-order-api/internal/application/expiring"
	"github.com/print-order-api/internal/application/mails"
	"github.com/print-order-api/internal/application/notice"
	"github.com/print-order-api/internal/application/order"
	"github.com/print-order-api/internal/application/pendingorder"
	"github.com/print-order-api/internal/application/shopconfig"
	"github.com/print-order-api/internal/application/sweep"
	"github.com/print-order-api/internal/application/verification"
	"github.com/print-order-api/internal/config"
	"github.com/print-order-api/internal/infrastructure/dynamo"
	jwtinfra "github.com/print-order-api/internal/infrastructure/jwt"
	"github.com/print-order-api/internal/infrastructure/memory"
	"github.com/print-order-api/internal/infrastructure/metrics"
	redisinfra "github.com/print-order-api/internal/infrastructure/redis"
	s3infra "github.com/print-order-api/internal/infrastructure/s3"
	"github.com/print-order-api/internal/infrastructure/smtp"
	"github.com/print-order-api/internal/infrastructure/sns"
	"github.com/print-order-api/internal/pkg/dispatch"
	"github.com/print-order-api/internal/pkg/schedule"
	transporthttp "github.com/print-order-api/internal/transport/http"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// backends holds one expiring-record backend per record kind.
type backends struct {
	pendingOrders      expiring.Backend
	emailVerifications expiring.Backend
	verifiedNotices    expiring.Backend
	close              func()
}

func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Fprintln(os.Stderr, "No .env file found, reading from environment")
	}

	cfg := config.Load()
	setupLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("server exited", "err", err)
		os.Exit(1)
	}
}

func setupLogger(cfg *config.Config) {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	var h slog.Handler = slog.NewTextHandler(os.Stdout, opts)
	if cfg.IsProduction() {
		h = slog.NewJSONHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(h))
}

func run(ctx context.Context, cfg *config.Config) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// Bootstrap DynamoDB tables (creates them if they don't exist).
	dynamoClient := dynamo.NewClient(cfg)
	dynamo.Bootstrap(ctx, dynamoClient, cfg.DynamoTables, cfg.StoreBackend == config.StoreDynamo)

	store, err := openBackends(ctx, cfg, dynamoClient)
	if err != nil {
		return err
	}
	defer store.close()

	observe := expiring.WithObserver(m)
	pendingOrders := pendingorder.NewManager(store.pendingOrders, cfg.PendingOrderTTL, observe)
	emailVerifications := emailverification.NewManager(store.emailVerifications, cfg.EmailVerificationTTL, observe)
	verifiedNotices := notice.NewManager(store.verifiedNotices, cfg.VerifiedNoticeTTL, observe)

	mailer, err := smtp.NewMailer(cfg)
	if err != nil {
		return fmt.Errorf("smtp mailer: %w", err)
	}

	s3Client, err := s3infra.NewClient(ctx, cfg)
	if err != nil {
		return fmt.Errorf("s3 client: %w", err)
	}
	archive := s3infra.NewStore(s3Client, cfg.S3BucketName)

	// SMS is optional; without a phone number or SNS access orders are only mailed.
	var smsSender *sns.Sender
	if cfg.OperatorPhone != "" {
		if smsSender, err = sns.NewSender(ctx, cfg); err != nil {
			slog.Warn("SNS sender not available, operator SMS disabled", "err", err)
			smsSender = nil
		}
	}

	dispatcher := dispatch.New(cfg.MailWorkers, cfg.MailQueueSize, cfg.MailTimeout, m)
	dispatcher.Start(ctx)

	renderer := mails.NewRenderer(mails.Shop{
		Name:           cfg.Shop.Name,
		Phone:          cfg.Shop.Phone,
		Email:          cfg.SMTPFrom,
		Web:            cfg.Shop.Web,
		PrintDataEmail: cfg.Shop.PrintDataEmail,
		PickupAddress:  cfg.Shop.PickupAddress,
		PickupHours:    cfg.Shop.PickupHours,
	})

	customerSvc := customer.NewService(customer.ServiceDeps{
		CustomerRepo: dynamo.NewCustomerRepo(dynamoClient, cfg.DynamoTables.Customers),
		AddressRepo:  dynamo.NewShipmentAddressRepo(dynamoClient, cfg.DynamoTables.ShipmentAddresses),
	})

	orderDeps := order.ServiceDeps{
		PendingOrders:  pendingOrders,
		Customers:      customerSvc,
		JobRepo:        dynamo.NewJobRepo(dynamoClient, cfg.DynamoTables.Jobs),
		Archive:        archive,
		Mailer:         mailer,
		Tasks:          dispatcher,
		Observer:       m,
		Mails:          renderer,
		PublicBaseURL:  cfg.PublicBaseURL,
		OperatorEmail:  cfg.OperatorEmail,
		OperatorPhone:  cfg.OperatorPhone,
		ArchiveLinkTTL: cfg.ArchiveLinkTTL,
	}
	if smsSender != nil {
		orderDeps.SMS = smsSender
	}

	sweeper := sweep.NewService(pendingOrders, emailVerifications, verifiedNotices)

	scheduler := schedule.NewCronScheduler()
	if cfg.SweepSchedule != "" {
		if err := scheduler.AddJob(sweeper, cfg.SweepSchedule); err != nil {
			return fmt.Errorf("schedule expiry sweep: %w", err)
		}
	}
	scheduler.Start(ctx)

	deps := &transporthttp.Deps{
		Orders: order.NewService(orderDeps),
		Verifications: verification.NewService(verification.ServiceDeps{
			Verifications: emailVerifications,
			Notices:       verifiedNotices,
			Customers:     customerSvc,
			Mailer:        mailer,
			Mails:         renderer,
			Observer:      m,
			PublicBaseURL: cfg.PublicBaseURL,
		}),
		Customers: customerSvc,
		ShopConfig: shopconfig.NewService(shopconfig.ServiceDeps{
			ConfigRepo:   dynamo.NewShopConfigRepo(dynamoClient, cfg.DynamoTables.ShopConfig),
			FallbackPath: cfg.ShopConfigFallbackPath,
		}),
		Sweeper: sweeper,
		Metrics: m,
	}

	// Admin routes stay closed without a public key.
	if p, err := jwtinfra.NewVerifier(cfg.JWTPublicKeyPath); err == nil {
		deps.AdminVerifier = p
	} else {
		slog.Warn("JWT verifier not available, admin routes disabled", "err", err)
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      transporthttp.NewRouter(ctx, cfg, deps),
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "port", cfg.AppPort, "env", cfg.AppEnv, "store", cfg.StoreBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	slog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "err", err)
	}
	scheduler.Stop()
	if err := dispatcher.Stop(); err != nil {
		slog.Error("dispatcher stop", "err", err)
	}
	slog.Info("server stopped")
	return nil
}

// openBackends builds the expiring-record backends for the configured store.
// Exactly one kind of backend serves all three record kinds.
func openBackends(ctx context.Context, cfg *config.Config, dynamoClient dynamo.RecordsAPI) (*backends, error) {
	switch cfg.StoreBackend {
	case config.StoreDynamo:
		return &backends{
			pendingOrders:      dynamo.NewRecordRepo(dynamoClient, cfg.DynamoTables.PendingOrders),
			emailVerifications: dynamo.NewRecordRepo(dynamoClient, cfg.DynamoTables.EmailVerifications),
			verifiedNotices:    dynamo.NewRecordRepo(dynamoClient, cfg.DynamoTables.VerifiedNotices),
			close:              func() {},
		}, nil
	case config.StoreRedis:
		rdb, err := redisinfra.NewClient(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return &backends{
			pendingOrders:      redisinfra.NewRecordStore(rdb, cfg.RedisKeyPrefix+pendingorder.Kind+":"),
			emailVerifications: redisinfra.NewRecordStore(rdb, cfg.RedisKeyPrefix+emailverification.Kind+":"),
			verifiedNotices:    redisinfra.NewRecordStore(rdb, cfg.RedisKeyPrefix+notice.Kind+":"),
			close:              func() { _ = rdb.Close() },
		}, nil
	case config.StoreMemory:
		b := &backends{close: func() {}}
		for _, slot := range []*expiring.Backend{&b.pendingOrders, &b.emailVerifications, &b.verifiedNotices} {
			s, err := memory.NewRecordStore(cfg.MemoryStoreSize)
			if err != nil {
				return nil, err
			}
			*slot = s
		}
		return b, nil
	default:
		return nil, fmt.Errorf("unknown STORE_BACKEND %q", cfg.StoreBackend)
	}
}
