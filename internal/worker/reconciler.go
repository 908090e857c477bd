package worker

import (
	"context"
	"time"

	"github.com/cypherx/rewards-backend/internal/model"
	"github.com/cypherx/rewards-backend/internal/repository"
	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const repairBatchSize = 100

// Reconciler periodically re-appends fee_transactions rows that are
// missing for an existing swap_rewards row, so a crash between the two
// audit writes is repairable instead of silent.
type Reconciler struct {
	swaps  repository.SwapRewardRepository
	feeTxs repository.FeeTransactionRepository
	log    *logrus.Logger
}

func NewReconciler(swaps repository.SwapRewardRepository, feeTxs repository.FeeTransactionRepository, log *logrus.Logger) *Reconciler {
	return &Reconciler{swaps: swaps, feeTxs: feeTxs, log: log}
}

// Start schedules the repair job. The returned scheduler should be
// shut down by the caller on exit.
func (r *Reconciler) Start(interval time.Duration) (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}
	_, err = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			if err := r.RepairFeeAudits(context.Background()); err != nil {
				r.log.WithError(err).Error("fee audit reconciliation failed")
			}
		}),
	)
	if err != nil {
		return nil, err
	}
	sched.Start()
	return sched, nil
}

func (r *Reconciler) RepairFeeAudits(ctx context.Context) error {
	missing, err := r.swaps.ListMissingFeeAudit(ctx, repairBatchSize)
	if err != nil {
		return err
	}
	if len(missing) == 0 {
		return nil
	}
	repaired := 0
	for _, sr := range missing {
		err := r.feeTxs.Create(ctx, &model.FeeTransaction{
			ID:              uuid.NewString(),
			UserID:          sr.UserID,
			WalletAddress:   sr.WalletAddress,
			TransactionHash: sr.TransactionHash,
			SwapValueUSD:    sr.SwapValueUSD,
			PlatformFee:     sr.PlatformFee,
			ProtocolFee:     sr.ProtocolFee,
			TreasuryFee:     sr.TreasuryFee,
			AffiliateFee:    sr.AffiliateFee,
		})
		if err != nil {
			r.log.WithError(err).WithField("tx_hash", sr.TransactionHash).Warn("failed to repair fee audit")
			continue
		}
		repaired++
	}
	r.log.WithFields(logrus.Fields{
		"missing":  len(missing),
		"repaired": repaired,
	}).Info("fee audit reconciliation pass complete")
	return nil
}
