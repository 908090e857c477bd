package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/cypherx/rewards-backend/internal/model"
	"github.com/cypherx/rewards-backend/internal/service"
	"github.com/labstack/echo/v4"
)

type RewardsHandler struct {
	svc service.RewardsService
}

func NewRewardsHandler(svc service.RewardsService) *RewardsHandler {
	return &RewardsHandler{svc: svc}
}

type ProcessSwapRequest struct {
	WalletAddress   string  `json:"walletAddress"`
	SwapValueUSD    float64 `json:"swapValueUsd"`
	SwapValueETH    float64 `json:"swapValueEth"`
	TransactionHash string  `json:"transactionHash"`
	InputToken      string  `json:"inputToken"`
	OutputToken     string  `json:"outputToken"`
	InputAmount     string  `json:"inputAmount"`
	OutputAmount    string  `json:"outputAmount"`
	FeeBps          int     `json:"feeBps,omitempty"`
}

type RewardsPayload struct {
	CashbackAmount  float64 `json:"cashbackAmount"`
	Points          int64   `json:"points"`
	ReferralReward  float64 `json:"referralReward"`
	TreasuryFee     float64 `json:"treasuryFee"`
	AffiliateFee    float64 `json:"affiliateFee"`
	TotalRewards    float64 `json:"totalRewards"`
	CashbackPercent float64 `json:"cashbackPercent"`
}

type ProcessSwapResponse struct {
	Success bool           `json:"success"`
	Rewards RewardsPayload `json:"rewards"`
	Error   string         `json:"error,omitempty"`
}

// ProcessSwap is the swap executor's entry point, invoked once the
// transaction receipt is confirmed. Expected failures come back as
// success:false with zeroed rewards, never as a 5xx.
func (h *RewardsHandler) ProcessSwap(c echo.Context) error {
	var body ProcessSwapRequest
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, ProcessSwapResponse{Error: "malformed request body"})
	}

	breakdown, err := h.svc.ProcessSwapRewards(c.Request().Context(), service.SwapInput{
		WalletAddress:   body.WalletAddress,
		ValueUSD:        body.SwapValueUSD,
		ValueETH:        body.SwapValueETH,
		TransactionHash: body.TransactionHash,
		InputToken:      body.InputToken,
		OutputToken:     body.OutputToken,
		InputAmount:     body.InputAmount,
		OutputAmount:    body.OutputAmount,
		FeeBps:          body.FeeBps,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAlreadyProcessed):
			return c.JSON(http.StatusConflict, ProcessSwapResponse{Error: "transaction already processed"})
		case errors.Is(err, service.ErrUserNotFound):
			return c.JSON(http.StatusNotFound, ProcessSwapResponse{Error: "user not found for wallet"})
		case errors.Is(err, service.ErrInvalidInput):
			return c.JSON(http.StatusBadRequest, ProcessSwapResponse{Error: err.Error()})
		default:
			return c.JSON(http.StatusInternalServerError, ProcessSwapResponse{Error: "rewards processing failed"})
		}
	}

	return c.JSON(http.StatusOK, ProcessSwapResponse{
		Success: true,
		Rewards: RewardsPayload{
			CashbackAmount:  breakdown.CashbackAmount,
			Points:          breakdown.Points,
			ReferralReward:  breakdown.ReferralReward,
			TreasuryFee:     breakdown.TreasuryFee,
			AffiliateFee:    breakdown.AffiliateFee,
			TotalRewards:    breakdown.TotalRewards,
			CashbackPercent: breakdown.CashbackPercent,
		},
	})
}

type LedgerResponse struct {
	UserID       string  `json:"userId"`
	EthRewards   float64 `json:"ethRewards"`
	ReferralCode string  `json:"referralCode"`
	Referrals    int64   `json:"referrals"`
	ReferralRate float64 `json:"referralRate"`
	VolumeTraded float64 `json:"volumeTraded"`
	Transactions int64   `json:"transactions"`
	Tier         string  `json:"tier"`
	LastUpdated  string  `json:"lastUpdated"`
}

func toLedgerResponse(l *model.RewardsLedger) LedgerResponse {
	return LedgerResponse{
		UserID:       l.UserID,
		EthRewards:   l.EthRewards,
		ReferralCode: l.ReferralCode,
		Referrals:    l.Referrals,
		ReferralRate: l.ReferralRate,
		VolumeTraded: l.VolumeTraded,
		Transactions: l.Transactions,
		Tier:         l.Tier,
		LastUpdated:  l.LastUpdated.Format(time.RFC3339),
	}
}

func (h *RewardsHandler) GetByWallet(c echo.Context) error {
	wallet := c.Param("wallet")
	l, err := h.svc.GetLedgerByWallet(c.Request().Context(), wallet)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUserNotFound), errors.Is(err, service.ErrLedgerNotFound):
			return c.JSON(http.StatusNotFound, NewErrorResponse("not_found", "no rewards ledger for wallet"))
		case errors.Is(err, service.ErrInvalidInput):
			return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid wallet address"))
		default:
			return c.JSON(http.StatusInternalServerError, NewErrorResponse("internal_error", "failed to fetch ledger"))
		}
	}
	return c.JSON(http.StatusOK, toLedgerResponse(l))
}

func (h *RewardsHandler) GetMine(c echo.Context) error {
	uid, _ := c.Get("uid").(string)
	if uid == "" {
		return c.JSON(http.StatusUnauthorized, NewErrorResponse("unauthorized", "missing uid"))
	}
	l, err := h.svc.GetLedger(c.Request().Context(), uid)
	if err != nil {
		if errors.Is(err, service.ErrLedgerNotFound) {
			return c.JSON(http.StatusNotFound, NewErrorResponse("not_found", "no rewards ledger yet"))
		}
		return c.JSON(http.StatusInternalServerError, NewErrorResponse("internal_error", "failed to fetch ledger"))
	}
	return c.JSON(http.StatusOK, toLedgerResponse(l))
}

type ReferralRecordResponse struct {
	ID             string  `json:"id"`
	RefereeID      string  `json:"refereeId"`
	RefereeWallet  string  `json:"refereeWallet"`
	ReferralCode   string  `json:"referralCode"`
	SwapValueUSD   float64 `json:"swapValueUsd"`
	ReferralReward float64 `json:"referralReward"`
	Status         string  `json:"status"`
	CreatedAt      string  `json:"createdAt"`
}

func (h *RewardsHandler) ListMyReferrals(c echo.Context) error {
	uid, _ := c.Get("uid").(string)
	if uid == "" {
		return c.JSON(http.StatusUnauthorized, NewErrorResponse("unauthorized", "missing uid"))
	}
	records, err := h.svc.ListReferrals(c.Request().Context(), uid)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, NewErrorResponse("internal_error", "failed to fetch referrals"))
	}
	resp := make([]ReferralRecordResponse, 0, len(records))
	for _, rec := range records {
		resp = append(resp, ReferralRecordResponse{
			ID:             rec.ID,
			RefereeID:      rec.RefereeID,
			RefereeWallet:  rec.RefereeWallet,
			ReferralCode:   rec.ReferralCode,
			SwapValueUSD:   rec.SwapValueUSD,
			ReferralReward: rec.ReferralReward,
			Status:         rec.Status,
			CreatedAt:      rec.CreatedAt.Format(time.RFC3339),
		})
	}
	return c.JSON(http.StatusOK, resp)
}
