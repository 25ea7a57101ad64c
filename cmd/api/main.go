package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"asapshop-backend/internal/auth"
	"asapshop-backend/internal/client"
	"asapshop-backend/internal/config"
	"asapshop-backend/internal/logger"
	"asapshop-backend/internal/repository"
	"asapshop-backend/internal/server"
	"asapshop-backend/internal/service"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func main() {
	// load .env into os.Environ
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found (ok in prod)")
	}

	cfg := &config.Config{}
	if err := env.Parse(cfg); err != nil {
		fmt.Printf("Failed to parse config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg)
	if err != nil {
		fmt.Printf("Failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	// prices go over the wire as JSON numbers
	decimal.MarshalJSONWithoutQuotes = true

	if err := run(cfg, log); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	db, err := client.InitDB(cfg.Database, log)
	if err != nil {
		return err
	}

	paymentCache := repository.NewNopPaymentCache()
	if cfg.Redis.Enabled() {
		rdb, err := client.InitRedisClient(cfg.Redis, log)
		if err != nil {
			log.Warn("redis unavailable, payment cache disabled", zap.Error(err))
		} else {
			defer rdb.Close()
			paymentCache = repository.NewRedisPaymentCache(rdb, cfg.Redis.TTL)
		}
	}

	if cfg.MercadoPago.AccessToken == "" {
		log.Warn("MP_ACCESS_TOKEN not set, payment routes will fail")
	}
	mpClient := client.NewMercadoPagoClient(&cfg.MercadoPago)
	mailSender := client.NewMailSender(cfg.SMTP, log)

	userRepo := repository.NewUserRepository(db)
	pendingUserRepo := repository.NewPendingUserRepository(db)
	productRepo := repository.NewProductRepository(db)
	couponRepo := repository.NewCouponRepository(db)
	cartRepo := repository.NewCartRepository(db)
	historyRepo := repository.NewHistoryRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	webhookEventRepo := repository.NewWebhookEventRepository(db)

	hasher := auth.NewBcrypt(auth.DefaultCost)
	tokens := auth.NewHSProvider(cfg.JWT.Secret, cfg.JWT.TTL)

	notifier := service.NewNotifier(mailSender, cfg.AdminEmail, cfg.ContactEmail, log)
	materializer := service.NewOrderMaterializer(
		mpClient,
		orderRepo,
		productRepo,
		userRepo,
		historyRepo,
		paymentCache,
		notifier,
		log,
	)
	accountService := service.NewAccountService(
		db, cfg,
		userRepo,
		pendingUserRepo,
		historyRepo,
		cartRepo,
		productRepo,
		hasher,
		tokens,
		notifier,
		log,
	)
	paymentService := service.NewPaymentService(
		cfg,
		mpClient,
		materializer,
		productRepo,
		userRepo,
		webhookEventRepo,
		log,
	)

	srv := server.NewServer(cfg, server.Services{
		Catalog:  service.NewCatalogService(productRepo, log),
		Coupons:  service.NewCouponService(couponRepo, log),
		Accounts: accountService,
		Payments: paymentService,
		Notifier: notifier,
		Tokens:   tokens,
	}, log)

	serverAddr := cfg.HTTP.Host + ":" + cfg.HTTP.Port

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(serverAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case sig := <-sigChan:
		log.Info("signal received, starting graceful shutdown", zap.String("signal", sig.String()))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}

	// order e-mails still in flight
	materializer.Wait()

	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	log.Info("shutdown complete")
	return nil
}
