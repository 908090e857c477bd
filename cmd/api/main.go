package main

import (
	"context"
	"errors"

	"github.com/cypherx/rewards-backend/internal/config"
	"github.com/cypherx/rewards-backend/internal/consumer"
	"github.com/cypherx/rewards-backend/internal/db"
	"github.com/cypherx/rewards-backend/internal/logger"
	"github.com/cypherx/rewards-backend/internal/model"
	"github.com/cypherx/rewards-backend/internal/repository"
	"github.com/cypherx/rewards-backend/internal/server"
	"github.com/cypherx/rewards-backend/internal/worker"
	"github.com/joho/godotenv"
)

var (
	gitSHA    = "dev"
	buildTime = "unknown"
)

func main() {
	_ = godotenv.Load()

	log := logger.New()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	conn, err := db.Connect(cfg)
	if err != nil {
		log.Fatalf("db connect error: %v", err)
	}
	if err := conn.AutoMigrate(
		&model.User{},
		&model.WalletLink{},
		&model.RewardsLedger{},
		&model.ReferralCode{},
		&model.ReferralRecord{},
		&model.SwapReward{},
		&model.FeeTransaction{},
	); err != nil {
		log.Fatalf("auto migrate error: %v", err)
	}

	srv := server.New(conn, cfg, log, gitSHA, buildTime)

	swapRepo := repository.NewSwapRewardRepository(conn)
	feeTxRepo := repository.NewFeeTransactionRepository(conn)
	reconciler := worker.NewReconciler(swapRepo, feeTxRepo, log)
	sched, err := reconciler.Start(cfg.ReconcileInterval)
	if err != nil {
		log.Fatalf("reconciler start error: %v", err)
	}
	defer func() { _ = sched.Shutdown() }()

	if cfg.RewardsQueueURL != "" {
		c := consumer.New(cfg.RewardsQueueURL, cfg.RewardsQueueName, srv.Rewards(), log)
		go func() {
			if err := c.Run(context.Background()); err != nil && !errors.Is(err, context.Canceled) {
				log.WithError(err).Error("rewards queue consumer stopped")
			}
		}()
	}

	addr := ":" + cfg.Port
	log.WithField("addr", addr).Info("starting server")
	if err := srv.Start(addr); err != nil {
		log.Fatalf("server stopped: %v", err)
	}
}
