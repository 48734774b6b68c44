package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"academybook/internal/config"
	"academybook/internal/database"
	"academybook/internal/modules/media"
	"academybook/internal/modules/notification"
	"academybook/internal/modules/payout"
	"academybook/internal/ops"
	"academybook/internal/queue"
	"academybook/internal/repository"

	domainpkg "academybook/internal/domain"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	logger, err := zap.NewProduction()
	if cfg.AppEnv == "dev" {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("database connect failed", zap.Error(err))
	}
	if err := repository.Migrate(db); err != nil {
		logger.Fatal("migrate failed", zap.Error(err))
	}

	jobRepo := repository.NewJobRepository(db)
	payoutRepo := repository.NewPayoutAccountRepository(db)

	hub := ops.NewHub(logger)
	jobs := queue.New(jobRepo, logger, hub)

	notification.RegisterHandlers(jobs,
		notification.LogChannelSender{Log: logger, Channel: "email"},
		notification.LogChannelSender{Log: logger, Channel: "sms"},
		notification.LogChannelSender{Log: logger, Channel: "whatsapp"},
	)
	payout.RegisterHandlers(jobs, devPaymentProvider{log: logger}, payoutRepo, logger)
	media.RegisterHandlers(jobs, devMediaProcessor{log: logger})

	pool := queue.NewPool(jobs, queue.PoolConfig{
		Concurrency:     cfg.WorkerConcurrency,
		Lease:           cfg.JobLease,
		ReaperInterval:  cfg.ReaperInterval,
		PruneInterval:   cfg.PruneInterval,
		CompletedMaxAge: cfg.CompletedMaxAge,
		CompletedKeep:   cfg.CompletedMaxCount,
		FailedMaxAge:    cfg.FailedMaxAge,
	}, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opsServer := &http.Server{Addr: cfg.OpsAddr, Handler: opsMux(hub)}
	go func() {
		logger.Info("ops dashboard listening", zap.String("addr", cfg.OpsAddr))
		if err := opsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("ops server stopped", zap.Error(err))
		}
	}()

	logger.Info("worker pool starting", zap.Int("concurrency", cfg.WorkerConcurrency))
	pool.Run(ctx)

	_ = opsServer.Shutdown(context.Background())
	logger.Info("worker stopped")
}

func opsMux(hub *ops.Hub) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws/jobs", hub.ServeWS)
	return mux
}

// devPaymentProvider accepts every request; the real provider is configured
// in deployment.
type devPaymentProvider struct{ log *zap.Logger }

func (p devPaymentProvider) CreateStakeholder(_ context.Context, accountID string, data domainpkg.StakeholderData) (string, error) {
	id := "stk_" + uuid.NewString()
	p.log.Info("stakeholder created (dev provider)",
		zap.String("account_id", accountID),
		zap.String("name", data.Name),
		zap.String("stakeholder_id", id))
	return id, nil
}

func (p devPaymentProvider) CreateTransfer(_ context.Context, payoutID, accountID string, amount float64, currency, notes string) error {
	p.log.Info("transfer created (dev provider)",
		zap.String("payout_id", payoutID),
		zap.String("account_id", accountID),
		zap.Float64("amount", amount),
		zap.String("currency", currency))
	return nil
}

type devMediaProcessor struct{ log *zap.Logger }

func (p devMediaProcessor) Process(_ context.Context, objectKey, kind string) error {
	p.log.Info("media processed (dev processor)",
		zap.String("object_key", objectKey),
		zap.String("kind", kind))
	return nil
}
