package service

import (
	"context"
	"testing"

	"github.com/cypherx/rewards-backend/internal/model"
)

func TestResolveReferrerIndexed(t *testing.T) {
	store := newMemStore()
	store.codes["CYPHERXAB12"] = "u2"
	svc := NewReferralService(store, store, quietLogger())

	id, ok := svc.ResolveReferrer(context.Background(), "CYPHERXAB12")
	if !ok || id != "u2" {
		t.Fatalf("got id=%q ok=%v", id, ok)
	}
}

func TestResolveReferrerLegacyLedgerScan(t *testing.T) {
	store := newMemStore()
	// Code exists only on the ledger, predating the referral_codes
	// index.
	store.ledgers["u3"] = &model.RewardsLedger{UserID: "u3", ReferralCode: "CYPHERXOLD1"}
	svc := NewReferralService(store, store, quietLogger())

	id, ok := svc.ResolveReferrer(context.Background(), "CYPHERXOLD1")
	if !ok || id != "u3" {
		t.Fatalf("got id=%q ok=%v", id, ok)
	}
}

func TestResolveReferrerMisses(t *testing.T) {
	store := newMemStore()
	svc := NewReferralService(store, store, quietLogger())

	tests := []struct {
		name string
		code string
	}{
		{"empty code", ""},
		{"unknown code", "CYPHERXNONE"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if id, ok := svc.ResolveReferrer(context.Background(), tt.code); ok || id != "" {
				t.Fatalf("got id=%q ok=%v want miss", id, ok)
			}
		})
	}
}

func TestCreditReferrerExistingLedger(t *testing.T) {
	store := newMemStore()
	store.ledgers["u2"] = &model.RewardsLedger{UserID: "u2", ReferralCode: "CYPHERXAB12", EthRewards: 1.00}
	svc := NewReferralService(store, store, quietLogger())

	err := svc.CreditReferrer(context.Background(), ReferralCredit{
		ReferrerID:      "u2",
		RefereeID:       "u1",
		Code:            "CYPHERXAB12",
		TransactionHash: "0xcredit",
		SwapValueUSD:    1000,
		TreasuryFee:     6.00,
		Reward:          1.80,
	})
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if got := store.ledgers["u2"].EthRewards; got != 2.80 {
		t.Fatalf("ethRewards=%v want=2.80", got)
	}
	if len(store.refRecords) != 1 || store.refRecords[0].TransactionHash != "0xcredit" {
		t.Fatalf("records=%+v", store.refRecords)
	}
}

func TestCreditReferrerBootstrapsLedger(t *testing.T) {
	store := newMemStore()
	svc := NewReferralService(store, store, quietLogger())

	err := svc.CreditReferrer(context.Background(), ReferralCredit{
		ReferrerID: "u2",
		RefereeID:  "u1",
		Reward:     1.80,
	})
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	l := store.ledgers["u2"]
	if l == nil {
		t.Fatal("ledger not bootstrapped")
	}
	if l.EthRewards != 1.80 {
		t.Fatalf("ethRewards=%v want=1.80", l.EthRewards)
	}
	if l.ReferralCode == "" || store.codes[l.ReferralCode] != "u2" {
		t.Fatalf("bootstrap code not minted/indexed: %+v", l)
	}
}
