package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/cypherx/rewards-backend/internal/model"
	"github.com/cypherx/rewards-backend/internal/repository"
	"github.com/cypherx/rewards-backend/internal/rewards"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var (
	ErrAlreadyProcessed = errors.New("transaction already processed")
	ErrUserNotFound     = errors.New("user not found for wallet")
	ErrInvalidInput     = errors.New("invalid swap input")
	ErrLedgerNotFound   = errors.New("rewards ledger not found")
)

const codeRetries = 5

// SwapInput is the economic fact sheet of one settled on-chain swap.
// Token identifiers and amounts are audit strings, not parsed here.
type SwapInput struct {
	WalletAddress   string
	ValueUSD        float64
	ValueETH        float64
	TransactionHash string
	InputToken      string
	OutputToken     string
	InputAmount     string
	OutputAmount    string
	FeeBps          int
}

// RewardBreakdown is everything a successful processing run computed.
type RewardBreakdown struct {
	CashbackAmount  float64
	Points          int64
	ReferralReward  float64
	TreasuryFee     float64
	AffiliateFee    float64
	TotalRewards    float64
	CashbackPercent float64
}

type RewardsService interface {
	ProcessSwapRewards(ctx context.Context, in SwapInput) (*RewardBreakdown, error)
	GetLedgerByWallet(ctx context.Context, wallet string) (*model.RewardsLedger, error)
	GetLedger(ctx context.Context, userID string) (*model.RewardsLedger, error)
	ListReferrals(ctx context.Context, userID string) ([]model.ReferralRecord, error)
}

type rewardsService struct {
	users     repository.UserRepository
	links     repository.WalletLinkRepository
	ledgers   repository.RewardsLedgerRepository
	swaps     repository.SwapRewardRepository
	feeTxs    repository.FeeTransactionRepository
	referrals repository.ReferralRepository
	resolver  ReferralService
	tx        repository.TxManager
	feeBps    int
	log       *logrus.Logger
}

func NewRewardsService(
	users repository.UserRepository,
	links repository.WalletLinkRepository,
	ledgers repository.RewardsLedgerRepository,
	swaps repository.SwapRewardRepository,
	feeTxs repository.FeeTransactionRepository,
	referrals repository.ReferralRepository,
	resolver ReferralService,
	tx repository.TxManager,
	affiliateFeeBps int,
	log *logrus.Logger,
) RewardsService {
	return &rewardsService{
		users:     users,
		links:     links,
		ledgers:   ledgers,
		swaps:     swaps,
		feeTxs:    feeTxs,
		referrals: referrals,
		resolver:  resolver,
		tx:        tx,
		feeBps:    affiliateFeeBps,
		log:       log,
	}
}

// ProcessSwapRewards runs the full accounting pass for one settled
// swap: fee split, tier/cashback, points, referral payout, ledger
// increments and audit records. Every write happens in one database
// transaction whose first statement is the unique-keyed swap_rewards
// insert, so a transaction hash is processed at most once even under
// concurrent retries.
func (s *rewardsService) ProcessSwapRewards(ctx context.Context, in SwapInput) (*RewardBreakdown, error) {
	if in.TransactionHash == "" || in.WalletAddress == "" {
		return nil, fmt.Errorf("%w: wallet address and transaction hash are required", ErrInvalidInput)
	}
	if in.ValueUSD < 0 || math.IsNaN(in.ValueUSD) || math.IsInf(in.ValueUSD, 0) {
		return nil, fmt.Errorf("%w: swap value %v", ErrInvalidInput, in.ValueUSD)
	}

	// Cheap rejection of obvious retries. Not load-bearing: the unique
	// index on transaction_hash is the real guard.
	if exists, err := s.swaps.ExistsByTxHash(ctx, in.TransactionHash); err != nil {
		return nil, fmt.Errorf("idempotency check: %w", err)
	} else if exists {
		return nil, ErrAlreadyProcessed
	}

	user, err := s.resolveUser(ctx, in.WalletAddress)
	if err != nil {
		return nil, err
	}

	bps := in.FeeBps
	if bps <= 0 {
		bps = s.feeBps
	}
	fees := rewards.ComputeFees(in.ValueUSD, bps)

	oldTier := rewards.TierForPoints(user.Points)
	referredVolume, err := s.referrals.SumReferredVolume(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("sum referred volume: %w", err)
	}
	cashback := rewards.Cashback(fees.TreasuryFee, oldTier, referredVolume)
	cashbackPct := 0.0
	if in.ValueUSD > 0 {
		cashbackPct = cashback / in.ValueUSD * 100
	}
	points := rewards.Points(in.ValueUSD)
	newTier := rewards.TierForPoints(user.Points + points)

	referrerID, hasReferrer := s.resolver.ResolveReferrer(ctx, user.ReferredBy)
	referralReward := 0.0
	if hasReferrer {
		referralReward = rewards.ReferralReward(fees.TreasuryFee)
	}

	err = s.tx.Do(ctx, func(ctx context.Context) error {
		now := time.Now().UTC()

		if err := s.swaps.Create(ctx, &model.SwapReward{
			ID:              uuid.NewString(),
			UserID:          user.ID,
			WalletAddress:   strings.ToLower(in.WalletAddress),
			TransactionHash: in.TransactionHash,
			SwapValueUSD:    in.ValueUSD,
			SwapValueETH:    in.ValueETH,
			InputToken:      in.InputToken,
			OutputToken:     in.OutputToken,
			InputAmount:     in.InputAmount,
			OutputAmount:    in.OutputAmount,
			PlatformFee:     fees.PlatformFee,
			ProtocolFee:     fees.ProtocolFee,
			TreasuryFee:     fees.TreasuryFee,
			AffiliateFee:    fees.AffiliateFee,
			CashbackAmount:  cashback,
			CashbackPercent: cashbackPct,
			PointsEarned:    points,
			ReferralReward:  referralReward,
			ReferrerID:      referrerID,
			OldTier:         string(oldTier),
			NewTier:         string(newTier),
		}); err != nil {
			return err
		}

		if _, err := s.ensureOwnLedger(ctx, user.ID, now); err != nil {
			return err
		}
		if err := s.ledgers.ApplySwap(ctx, user.ID, cashback, in.ValueUSD, string(newTier), now); err != nil {
			return err
		}
		if err := s.users.AddPoints(ctx, user.ID, points, now); err != nil {
			return err
		}

		if hasReferrer {
			if err := s.resolver.CreditReferrer(ctx, ReferralCredit{
				ReferrerID:      referrerID,
				RefereeID:       user.ID,
				RefereeWallet:   strings.ToLower(in.WalletAddress),
				Code:            user.ReferredBy,
				TransactionHash: in.TransactionHash,
				SwapValueUSD:    in.ValueUSD,
				SwapValueETH:    in.ValueETH,
				PlatformFee:     fees.PlatformFee,
				TreasuryFee:     fees.TreasuryFee,
				Reward:          referralReward,
			}); err != nil {
				return err
			}
		}

		return s.feeTxs.Create(ctx, &model.FeeTransaction{
			ID:              uuid.NewString(),
			UserID:          user.ID,
			WalletAddress:   strings.ToLower(in.WalletAddress),
			TransactionHash: in.TransactionHash,
			SwapValueUSD:    in.ValueUSD,
			PlatformFee:     fees.PlatformFee,
			ProtocolFee:     fees.ProtocolFee,
			TreasuryFee:     fees.TreasuryFee,
			AffiliateFee:    fees.AffiliateFee,
		})
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrAlreadyProcessed
		}
		s.log.WithError(err).WithFields(logrus.Fields{
			"user":    user.ID,
			"tx_hash": in.TransactionHash,
		}).Error("swap reward processing failed, transaction rolled back")
		return nil, fmt.Errorf("process swap rewards: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"user":     user.ID,
		"tx_hash":  in.TransactionHash,
		"usd":      in.ValueUSD,
		"cashback": cashback,
		"points":   points,
		"referrer": referrerID,
	}).Info("swap rewards processed")

	return &RewardBreakdown{
		CashbackAmount:  cashback,
		Points:          points,
		ReferralReward:  referralReward,
		TreasuryFee:     fees.TreasuryFee,
		AffiliateFee:    fees.AffiliateFee,
		TotalRewards:    cashback,
		CashbackPercent: cashbackPct,
	}, nil
}

func (s *rewardsService) GetLedgerByWallet(ctx context.Context, wallet string) (*model.RewardsLedger, error) {
	user, err := s.resolveUser(ctx, wallet)
	if err != nil {
		return nil, err
	}
	return s.GetLedger(ctx, user.ID)
}

func (s *rewardsService) GetLedger(ctx context.Context, userID string) (*model.RewardsLedger, error) {
	l, err := s.ledgers.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLedgerNotFound
		}
		return nil, err
	}
	return l, nil
}

func (s *rewardsService) ListReferrals(ctx context.Context, userID string) ([]model.ReferralRecord, error) {
	return s.referrals.ListByReferrer(ctx, userID)
}

// resolveUser maps a wallet address to a user: active wallet link
// first, then the user record's own wallet field. Unlinked wallets are
// a steady-state case, reported as ErrUserNotFound.
func (s *rewardsService) resolveUser(ctx context.Context, wallet string) (*model.User, error) {
	addr := strings.ToLower(strings.TrimSpace(wallet))
	if addr == "" {
		return nil, fmt.Errorf("%w: empty wallet address", ErrInvalidInput)
	}

	link, err := s.links.FindActiveByAddress(ctx, addr)
	if err == nil {
		user, err := s.users.FindByID(ctx, link.UserID)
		if err == nil {
			return user, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("load linked user: %w", err)
		}
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("wallet link lookup: %w", err)
	}

	user, err := s.users.FindByWallet(ctx, addr)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("wallet fallback lookup: %w", err)
	}
	return user, nil
}

func (s *rewardsService) ensureOwnLedger(ctx context.Context, userID string, now time.Time) (*model.RewardsLedger, error) {
	l, err := s.ledgers.Get(ctx, userID)
	if err == nil {
		return l, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	return ensureLedger(ctx, s.ledgers, s.referrals, userID, now)
}

// ensureLedger creates a zeroed ledger with a freshly minted referral
// code. The code row is claimed first; its primary key rejects
// collisions and generation is retried. Runs inside the caller's
// transaction, so a failed ledger insert also releases the claim.
func ensureLedger(ctx context.Context, ledgers repository.RewardsLedgerRepository, referrals repository.ReferralRepository, userID string, now time.Time) (*model.RewardsLedger, error) {
	var lastErr error
	for i := 0; i < codeRetries; i++ {
		code, err := rewards.NewReferralCode()
		if err != nil {
			return nil, err
		}
		if err := referrals.CreateCode(ctx, &model.ReferralCode{Code: code, UserID: userID}); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				lastErr = err
				continue
			}
			return nil, err
		}
		l := &model.RewardsLedger{
			UserID:       userID,
			ReferralCode: code,
			ReferralRate: 30,
			Tier:         string(rewards.TierNormie),
			LastUpdated:  now,
		}
		if err := ledgers.Create(ctx, l); err != nil {
			// A concurrent writer created the ledger between our Get
			// and this insert; theirs wins.
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ledgers.Get(ctx, userID)
			}
			return nil, err
		}
		return l, nil
	}
	return nil, fmt.Errorf("mint referral code: %w", lastErr)
}
