package server

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/cypherx/rewards-backend/internal/config"
	"github.com/cypherx/rewards-backend/internal/handler"
	appmw "github.com/cypherx/rewards-backend/internal/middleware"
	"github.com/cypherx/rewards-backend/internal/repository"
	"github.com/cypherx/rewards-backend/internal/service"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type Server struct {
	e       *echo.Echo
	rewards service.RewardsService
	sha     string
	build   string
}

func New(db *gorm.DB, cfg *config.Config, log *logrus.Logger, sha, buildTime string) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.Logger())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:     []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
		AllowOriginFunc: func(origin string) (bool, error) {
			low := strings.ToLower(origin)
			if strings.HasPrefix(low, "http://localhost:") || strings.HasPrefix(low, "http://127.0.0.1:") ||
				strings.HasPrefix(low, "https://localhost:") || strings.HasPrefix(low, "https://127.0.0.1:") {
				return true, nil
			}
			u, err := url.Parse(origin)
			if err != nil {
				return false, nil
			}
			if u.Scheme != "http" && u.Scheme != "https" {
				return false, nil
			}
			host := u.Hostname()
			if strings.HasSuffix(host, "cypherx.io") || strings.HasSuffix(host, "vercel.app") {
				return true, nil
			}
			return false, nil
		},
	}))

	userRepo := repository.NewUserRepository(db)
	linkRepo := repository.NewWalletLinkRepository(db)
	ledgerRepo := repository.NewRewardsLedgerRepository(db)
	swapRepo := repository.NewSwapRewardRepository(db)
	feeTxRepo := repository.NewFeeTransactionRepository(db)
	referralRepo := repository.NewReferralRepository(db)
	txManager := repository.NewTxManager(db)

	referralSvc := service.NewReferralService(referralRepo, ledgerRepo, log)
	rewardsSvc := service.NewRewardsService(
		userRepo, linkRepo, ledgerRepo, swapRepo, feeTxRepo,
		referralRepo, referralSvc, txManager, cfg.AffiliateFeeBps, log,
	)
	rewardsHandler := handler.NewRewardsHandler(rewardsSvc)

	var authMw *appmw.AuthMiddleware
	if cfg.FirebaseProjectID != "" {
		mw, err := appmw.NewAuthMiddleware(context.Background(), cfg.FirebaseProjectID)
		if err != nil {
			e.Logger.Fatalf("failed to init firebase auth: %v", err)
		}
		authMw = mw
	}

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"ok":         "true",
			"git_sha":    sha,
			"build_time": buildTime,
		})
	})

	api := e.Group("/api")
	api.POST("/rewards/swaps", rewardsHandler.ProcessSwap)
	api.GET("/rewards/:wallet", rewardsHandler.GetByWallet)
	if authMw != nil {
		api.GET("/me/rewards", rewardsHandler.GetMine, authMw.RequireAuth)
		api.GET("/me/referrals", rewardsHandler.ListMyReferrals, authMw.RequireAuth)
	} else {
		api.GET("/me/rewards", rewardsHandler.GetMine)
		api.GET("/me/referrals", rewardsHandler.ListMyReferrals)
	}

	return &Server{e: e, rewards: rewardsSvc, sha: sha, build: buildTime}
}

func (s *Server) Start(addr string) error {
	return s.e.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.e.Shutdown(ctx)
}

// Rewards exposes the wired service for the queue consumer and the
// reconciliation worker.
func (s *Server) Rewards() service.RewardsService {
	return s.rewards
}
