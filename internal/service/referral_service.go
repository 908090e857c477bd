package service

import (
	"context"
	"errors"
	"time"

	"github.com/cypherx/rewards-backend/internal/model"
	"github.com/cypherx/rewards-backend/internal/repository"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ReferralCredit carries everything needed to pay a referrer and write
// the audit entry for one qualifying swap.
type ReferralCredit struct {
	ReferrerID      string
	RefereeID       string
	RefereeWallet   string
	Code            string
	TransactionHash string
	SwapValueUSD    float64
	SwapValueETH    float64
	PlatformFee     float64
	TreasuryFee     float64
	Reward          float64
}

type ReferralService interface {
	// ResolveReferrer maps a referral code to its owner's user id.
	// Returns ok=false for empty, unknown or dangling codes; a bad
	// code never blocks the referee's own reward processing.
	ResolveReferrer(ctx context.Context, code string) (string, bool)
	// CreditReferrer pays the referrer and appends the audit record.
	// Must run inside the caller's transaction.
	CreditReferrer(ctx context.Context, cr ReferralCredit) error
}

type referralService struct {
	referrals repository.ReferralRepository
	ledgers   repository.RewardsLedgerRepository
	log       *logrus.Logger
}

func NewReferralService(referrals repository.ReferralRepository, ledgers repository.RewardsLedgerRepository, log *logrus.Logger) ReferralService {
	return &referralService{referrals: referrals, ledgers: ledgers, log: log}
}

func (s *referralService) ResolveReferrer(ctx context.Context, code string) (string, bool) {
	if code == "" {
		return "", false
	}
	ownerID, err := s.referrals.FindCodeOwner(ctx, code)
	if err == nil {
		return ownerID, true
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		s.log.WithError(err).WithField("code", code).Warn("referral code lookup failed")
		return "", false
	}

	// Legacy path: codes minted before the referral_codes index exist
	// only as a field on the owner's ledger. Warn-logged so removal
	// can be scheduled once these stop appearing.
	ledger, err := s.ledgers.FindByReferralCode(ctx, code)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.log.WithError(err).WithField("code", code).Warn("legacy referral code scan failed")
		} else {
			s.log.WithField("code", code).Info("referral code resolves to no user")
		}
		return "", false
	}
	s.log.WithFields(logrus.Fields{
		"code":     code,
		"referrer": ledger.UserID,
	}).Warn("referral code resolved via legacy ledger scan")
	return ledger.UserID, true
}

func (s *referralService) CreditReferrer(ctx context.Context, cr ReferralCredit) error {
	now := time.Now().UTC()

	// A user can be a referrer before ever swapping; bootstrap their
	// ledger with a fresh code in that case.
	if _, err := s.ledgers.Get(ctx, cr.ReferrerID); err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if _, err := ensureLedger(ctx, s.ledgers, s.referrals, cr.ReferrerID, now); err != nil {
			return err
		}
	}

	if err := s.ledgers.CreditReferral(ctx, cr.ReferrerID, cr.Reward, now); err != nil {
		return err
	}
	return s.referrals.CreateRecord(ctx, &model.ReferralRecord{
		ID:              uuid.NewString(),
		ReferrerID:      cr.ReferrerID,
		RefereeID:       cr.RefereeID,
		RefereeWallet:   cr.RefereeWallet,
		ReferralCode:    cr.Code,
		SwapValueUSD:    cr.SwapValueUSD,
		SwapValueETH:    cr.SwapValueETH,
		PlatformFee:     cr.PlatformFee,
		TreasuryFee:     cr.TreasuryFee,
		ReferralReward:  cr.Reward,
		TransactionHash: cr.TransactionHash,
		Status:          model.ReferralStatusActive,
	})
}
