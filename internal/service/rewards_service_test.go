package service

import (
	"context"
	"errors"
	"io"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/cypherx/rewards-backend/internal/model"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const eps = 1e-9

// memStore is an in-memory stand-in for every repository port plus the
// transaction manager. Duplicate-key and not-found behavior mirrors the
// gorm error translation the real repositories rely on.
type memStore struct {
	users      map[string]*model.User
	links      []model.WalletLink
	ledgers    map[string]*model.RewardsLedger
	codes      map[string]string
	refRecords []model.ReferralRecord
	swaps      map[string]model.SwapReward
	feeTxs     []model.FeeTransaction

	// hideExisting makes ExistsByTxHash lie so tests can exercise the
	// unique-index fallback path.
	hideExisting bool
}

func newMemStore() *memStore {
	return &memStore{
		users:   map[string]*model.User{},
		ledgers: map[string]*model.RewardsLedger{},
		codes:   map[string]string{},
		swaps:   map[string]model.SwapReward{},
	}
}

func (m *memStore) FindByID(_ context.Context, id string) (*model.User, error) {
	if u, ok := m.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memStore) FindByWallet(_ context.Context, address string) (*model.User, error) {
	for _, u := range m.users {
		if u.WalletAddress == address {
			cp := *u
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memStore) AddPoints(_ context.Context, id string, points int64, activeAt time.Time) error {
	u, ok := m.users[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	u.Points += points
	u.LastActiveAt = &activeAt
	return nil
}

func (m *memStore) FindActiveByAddress(_ context.Context, address string) (*model.WalletLink, error) {
	for i := len(m.links) - 1; i >= 0; i-- {
		if m.links[i].Address == address && m.links[i].IsActive {
			cp := m.links[i]
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memStore) Get(_ context.Context, userID string) (*model.RewardsLedger, error) {
	if l, ok := m.ledgers[userID]; ok {
		cp := *l
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memStore) Create(_ context.Context, l *model.RewardsLedger) error {
	if _, ok := m.ledgers[l.UserID]; ok {
		return gorm.ErrDuplicatedKey
	}
	cp := *l
	m.ledgers[l.UserID] = &cp
	return nil
}

func (m *memStore) ApplySwap(_ context.Context, userID string, cashback, volumeUSD float64, tier string, at time.Time) error {
	l, ok := m.ledgers[userID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	l.EthRewards += cashback
	l.VolumeTraded += volumeUSD
	l.Transactions++
	l.Tier = tier
	l.LastUpdated = at
	return nil
}

func (m *memStore) CreditReferral(_ context.Context, userID string, amount float64, at time.Time) error {
	l, ok := m.ledgers[userID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	l.EthRewards += amount
	l.LastUpdated = at
	return nil
}

func (m *memStore) FindByReferralCode(_ context.Context, code string) (*model.RewardsLedger, error) {
	for _, l := range m.ledgers {
		if l.ReferralCode == code {
			cp := *l
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memStore) FindCodeOwner(_ context.Context, code string) (string, error) {
	if owner, ok := m.codes[code]; ok {
		return owner, nil
	}
	return "", gorm.ErrRecordNotFound
}

func (m *memStore) CreateCode(_ context.Context, c *model.ReferralCode) error {
	if _, ok := m.codes[c.Code]; ok {
		return gorm.ErrDuplicatedKey
	}
	m.codes[c.Code] = c.UserID
	return nil
}

func (m *memStore) CreateRecord(_ context.Context, rec *model.ReferralRecord) error {
	m.refRecords = append(m.refRecords, *rec)
	return nil
}

func (m *memStore) SumReferredVolume(_ context.Context, referrerID string) (float64, error) {
	var total float64
	for _, rec := range m.refRecords {
		if rec.ReferrerID == referrerID {
			total += rec.SwapValueUSD
		}
	}
	return total, nil
}

func (m *memStore) ListByReferrer(_ context.Context, referrerID string) ([]model.ReferralRecord, error) {
	var out []model.ReferralRecord
	for _, rec := range m.refRecords {
		if rec.ReferrerID == referrerID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (m *memStore) ExistsByTxHash(_ context.Context, hash string) (bool, error) {
	if m.hideExisting {
		return false, nil
	}
	_, ok := m.swaps[hash]
	return ok, nil
}

func (m *memStore) CreateSwap(_ context.Context, rec *model.SwapReward) error {
	if _, ok := m.swaps[rec.TransactionHash]; ok {
		return gorm.ErrDuplicatedKey
	}
	m.swaps[rec.TransactionHash] = *rec
	return nil
}

func (m *memStore) ListMissingFeeAudit(_ context.Context, limit int) ([]model.SwapReward, error) {
	audited := map[string]bool{}
	for _, ft := range m.feeTxs {
		audited[ft.TransactionHash] = true
	}
	var out []model.SwapReward
	for _, sr := range m.swaps {
		if !audited[sr.TransactionHash] {
			out = append(out, sr)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *memStore) CreateFeeTx(_ context.Context, ft *model.FeeTransaction) error {
	m.feeTxs = append(m.feeTxs, *ft)
	return nil
}

// swapRewardPort / feeTxPort adapt memStore method names to the
// repository interfaces that share a Create method.
type swapRewardPort struct{ *memStore }

func (p swapRewardPort) Create(ctx context.Context, rec *model.SwapReward) error {
	return p.CreateSwap(ctx, rec)
}

type feeTxPort struct{ *memStore }

func (p feeTxPort) Create(ctx context.Context, ft *model.FeeTransaction) error {
	return p.CreateFeeTx(ctx, ft)
}

type passthroughTx struct{}

func (passthroughTx) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func newTestService(store *memStore, feeBps int) RewardsService {
	log := quietLogger()
	resolver := NewReferralService(store, store, log)
	return NewRewardsService(
		store, store, store,
		swapRewardPort{store}, feeTxPort{store},
		store, resolver, passthroughTx{}, feeBps, log,
	)
}

func seedUser(store *memStore, id, wallet, referredBy string, points int64) {
	store.users[id] = &model.User{ID: id, WalletAddress: wallet, ReferredBy: referredBy, Points: points}
	store.links = append(store.links, model.WalletLink{
		Address: wallet, UserID: id, IsActive: true, IsPrimary: true,
	})
}

func TestProcessSwapRewardsFirstTimeSwapper(t *testing.T) {
	store := newMemStore()
	seedUser(store, "u1", "0xaaa0000000000000000000000000000000000001", "", 0)
	svc := newTestService(store, 0)

	got, err := svc.ProcessSwapRewards(context.Background(), SwapInput{
		WalletAddress:   "0xAAA0000000000000000000000000000000000001",
		ValueUSD:        1000,
		ValueETH:        0.25,
		TransactionHash: "0xhash1",
		InputToken:      "ETH",
		OutputToken:     "USDC",
		InputAmount:     "0.25",
		OutputAmount:    "1000",
	})
	if err != nil {
		t.Fatalf("err=%v", err)
	}

	checks := []struct {
		name string
		got  float64
		want float64
	}{
		{"treasuryFee", got.TreasuryFee, 6.00},
		{"affiliateFee", got.AffiliateFee, 1.50},
		{"cashback", got.CashbackAmount, 0.30},
		{"totalRewards", got.TotalRewards, 0.30},
		{"referralReward", got.ReferralReward, 0},
		{"cashbackPercent", got.CashbackPercent, 0.03},
	}
	for _, c := range checks {
		if math.Abs(c.got-c.want) > eps {
			t.Fatalf("%s got=%v want=%v", c.name, c.got, c.want)
		}
	}
	if got.Points != 100 {
		t.Fatalf("points got=%d want=100", got.Points)
	}

	if store.users["u1"].Points != 100 {
		t.Fatalf("user points=%d want=100", store.users["u1"].Points)
	}
	l := store.ledgers["u1"]
	if l == nil {
		t.Fatal("ledger not created")
	}
	if math.Abs(l.EthRewards-0.30) > eps || l.VolumeTraded != 1000 || l.Transactions != 1 {
		t.Fatalf("ledger=%+v", l)
	}
	if l.Tier != "normie" {
		t.Fatalf("tier=%s want normie", l.Tier)
	}
	if !strings.HasPrefix(l.ReferralCode, "CYPHERX") || len(l.ReferralCode) != 11 {
		t.Fatalf("referral code %q", l.ReferralCode)
	}
	if store.codes[l.ReferralCode] != "u1" {
		t.Fatal("referral code not indexed")
	}
	if len(store.feeTxs) != 1 {
		t.Fatalf("fee transactions=%d want=1", len(store.feeTxs))
	}
	if len(store.refRecords) != 0 {
		t.Fatalf("referral records=%d want=0", len(store.refRecords))
	}
	sr, ok := store.swaps["0xhash1"]
	if !ok {
		t.Fatal("swap reward record missing")
	}
	if sr.OldTier != "normie" || sr.NewTier != "normie" || sr.PointsEarned != 100 {
		t.Fatalf("swap record=%+v", sr)
	}
}

func TestProcessSwapRewardsReferredSwapper(t *testing.T) {
	store := newMemStore()
	seedUser(store, "u1", "0xaaa0000000000000000000000000000000000001", "CYPHERXAB12", 0)
	store.users["u2"] = &model.User{ID: "u2"}
	store.codes["CYPHERXAB12"] = "u2"
	svc := newTestService(store, 0)

	got, err := svc.ProcessSwapRewards(context.Background(), SwapInput{
		WalletAddress:   "0xaaa0000000000000000000000000000000000001",
		ValueUSD:        1000,
		TransactionHash: "0xhash2",
	})
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if math.Abs(got.ReferralReward-1.80) > eps {
		t.Fatalf("referralReward got=%v want=1.80", got.ReferralReward)
	}
	// The referee's own numbers are unchanged by having a referrer.
	if math.Abs(got.CashbackAmount-0.30) > eps || got.Points != 100 {
		t.Fatalf("referee breakdown=%+v", got)
	}

	// u2 had no ledger; it was bootstrapped and credited.
	l2 := store.ledgers["u2"]
	if l2 == nil {
		t.Fatal("referrer ledger not bootstrapped")
	}
	if math.Abs(l2.EthRewards-1.80) > eps {
		t.Fatalf("referrer ethRewards=%v want=1.80", l2.EthRewards)
	}
	if l2.Transactions != 0 || l2.VolumeTraded != 0 {
		t.Fatalf("referrer swap counters should stay zero: %+v", l2)
	}
	if len(store.refRecords) != 1 {
		t.Fatalf("referral records=%d want=1", len(store.refRecords))
	}
	rec := store.refRecords[0]
	if rec.ReferrerID != "u2" || rec.RefereeID != "u1" || math.Abs(rec.ReferralReward-1.80) > eps {
		t.Fatalf("referral record=%+v", rec)
	}
	if rec.Status != model.ReferralStatusActive {
		t.Fatalf("status=%s", rec.Status)
	}
	if store.swaps["0xhash2"].ReferrerID != "u2" {
		t.Fatal("swap record missing referrer id")
	}
}

func TestProcessSwapRewardsDuplicateCall(t *testing.T) {
	store := newMemStore()
	seedUser(store, "u1", "0xaaa0000000000000000000000000000000000001", "", 0)
	svc := newTestService(store, 0)

	in := SwapInput{
		WalletAddress:   "0xaaa0000000000000000000000000000000000001",
		ValueUSD:        1000,
		TransactionHash: "0xdup",
	}
	if _, err := svc.ProcessSwapRewards(context.Background(), in); err != nil {
		t.Fatalf("first call err=%v", err)
	}
	_, err := svc.ProcessSwapRewards(context.Background(), in)
	if !errors.Is(err, ErrAlreadyProcessed) {
		t.Fatalf("second call err=%v want ErrAlreadyProcessed", err)
	}
	if store.ledgers["u1"].Transactions != 1 {
		t.Fatalf("transactions=%d want=1", store.ledgers["u1"].Transactions)
	}
	if store.users["u1"].Points != 100 {
		t.Fatalf("points=%d want=100", store.users["u1"].Points)
	}
}

func TestProcessSwapRewardsDuplicateRaceClosedByUniqueIndex(t *testing.T) {
	store := newMemStore()
	seedUser(store, "u1", "0xaaa0000000000000000000000000000000000001", "", 0)
	svc := newTestService(store, 0)

	in := SwapInput{
		WalletAddress:   "0xaaa0000000000000000000000000000000000001",
		ValueUSD:        1000,
		TransactionHash: "0xrace",
	}
	if _, err := svc.ProcessSwapRewards(context.Background(), in); err != nil {
		t.Fatalf("first call err=%v", err)
	}

	// Simulate the pre-check racing a concurrent first attempt: the
	// existence query says fresh, the unique index says otherwise.
	store.hideExisting = true
	_, err := svc.ProcessSwapRewards(context.Background(), in)
	if !errors.Is(err, ErrAlreadyProcessed) {
		t.Fatalf("err=%v want ErrAlreadyProcessed", err)
	}
	if store.ledgers["u1"].Transactions != 1 {
		t.Fatalf("transactions=%d want=1", store.ledgers["u1"].Transactions)
	}
}

func TestProcessSwapRewardsUserNotFound(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, 0)

	_, err := svc.ProcessSwapRewards(context.Background(), SwapInput{
		WalletAddress:   "0xdeadbeef00000000000000000000000000000001",
		ValueUSD:        50,
		TransactionHash: "0xnouser",
	})
	if !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("err=%v want ErrUserNotFound", err)
	}
	if len(store.swaps) != 0 || len(store.feeTxs) != 0 {
		t.Fatal("no audit rows may be written for unresolved wallets")
	}
}

func TestProcessSwapRewardsWalletFallback(t *testing.T) {
	store := newMemStore()
	// User has the wallet on their record but no active link.
	store.users["u1"] = &model.User{ID: "u1", WalletAddress: "0xbbb0000000000000000000000000000000000002"}
	svc := newTestService(store, 0)

	got, err := svc.ProcessSwapRewards(context.Background(), SwapInput{
		WalletAddress:   "0xBBB0000000000000000000000000000000000002",
		ValueUSD:        100,
		TransactionHash: "0xfallback",
	})
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if got.Points != 10 {
		t.Fatalf("points=%d want=10", got.Points)
	}
}

func TestProcessSwapRewardsZeroValue(t *testing.T) {
	store := newMemStore()
	seedUser(store, "u1", "0xaaa0000000000000000000000000000000000001", "", 0)
	svc := newTestService(store, 0)

	got, err := svc.ProcessSwapRewards(context.Background(), SwapInput{
		WalletAddress:   "0xaaa0000000000000000000000000000000000001",
		ValueUSD:        0,
		TransactionHash: "0xzero",
	})
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if got.CashbackAmount != 0 || got.Points != 0 || got.CashbackPercent != 0 {
		t.Fatalf("breakdown=%+v want all zero", got)
	}
	// Audit rows are still written so the hash stays guarded.
	if _, ok := store.swaps["0xzero"]; !ok {
		t.Fatal("zero-value swap must still write its audit record")
	}
	if len(store.feeTxs) != 1 {
		t.Fatalf("fee transactions=%d want=1", len(store.feeTxs))
	}
	if store.ledgers["u1"].Transactions != 1 {
		t.Fatalf("transactions=%d want=1", store.ledgers["u1"].Transactions)
	}
}

func TestProcessSwapRewardsInvalidInput(t *testing.T) {
	store := newMemStore()
	seedUser(store, "u1", "0xaaa0000000000000000000000000000000000001", "", 0)
	svc := newTestService(store, 0)

	tests := []struct {
		name string
		in   SwapInput
	}{
		{"negative value", SwapInput{WalletAddress: "0xaaa0000000000000000000000000000000000001", ValueUSD: -1, TransactionHash: "0xneg"}},
		{"nan value", SwapInput{WalletAddress: "0xaaa0000000000000000000000000000000000001", ValueUSD: math.NaN(), TransactionHash: "0xnan"}},
		{"missing hash", SwapInput{WalletAddress: "0xaaa0000000000000000000000000000000000001", ValueUSD: 10}},
		{"missing wallet", SwapInput{ValueUSD: 10, TransactionHash: "0xnowallet"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.ProcessSwapRewards(context.Background(), tt.in); !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("err=%v want ErrInvalidInput", err)
			}
		})
	}
	if len(store.swaps) != 0 {
		t.Fatal("rejected inputs must not write records")
	}
}

func TestProcessSwapRewardsDanglingReferralCode(t *testing.T) {
	store := newMemStore()
	seedUser(store, "u1", "0xaaa0000000000000000000000000000000000001", "CYPHERXGONE", 0)
	svc := newTestService(store, 0)

	got, err := svc.ProcessSwapRewards(context.Background(), SwapInput{
		WalletAddress:   "0xaaa0000000000000000000000000000000000001",
		ValueUSD:        1000,
		TransactionHash: "0xdangling",
	})
	if err != nil {
		t.Fatalf("dangling code must not block processing: %v", err)
	}
	if got.ReferralReward != 0 {
		t.Fatalf("referralReward=%v want=0", got.ReferralReward)
	}
	if len(store.refRecords) != 0 {
		t.Fatal("no referral record for a dangling code")
	}
}

func TestProcessSwapRewardsVolumeBonusFromReferredVolume(t *testing.T) {
	store := newMemStore()
	seedUser(store, "u1", "0xaaa0000000000000000000000000000000000001", "", 0)
	// u1 has referred $5000 of other users' volume: +10 points on the
	// base normie rate.
	store.refRecords = append(store.refRecords, model.ReferralRecord{
		ReferrerID: "u1", RefereeID: "u9", SwapValueUSD: 5000,
	})
	svc := newTestService(store, 0)

	got, err := svc.ProcessSwapRewards(context.Background(), SwapInput{
		WalletAddress:   "0xaaa0000000000000000000000000000000000001",
		ValueUSD:        1000,
		TransactionHash: "0xboost",
	})
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	// 6.00 * (0.05 + 0.10) = 0.90
	if math.Abs(got.CashbackAmount-0.90) > eps {
		t.Fatalf("cashback=%v want=0.90", got.CashbackAmount)
	}
}

func TestProcessSwapRewardsAffiliateBpsOverride(t *testing.T) {
	store := newMemStore()
	seedUser(store, "u1", "0xaaa0000000000000000000000000000000000001", "", 0)
	svc := newTestService(store, 20) // configured default: 20 bps

	got, err := svc.ProcessSwapRewards(context.Background(), SwapInput{
		WalletAddress:   "0xaaa0000000000000000000000000000000000001",
		ValueUSD:        1000,
		TransactionHash: "0xbps1",
	})
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if math.Abs(got.AffiliateFee-2.00) > eps {
		t.Fatalf("affiliateFee=%v want=2.00 (config bps)", got.AffiliateFee)
	}

	got, err = svc.ProcessSwapRewards(context.Background(), SwapInput{
		WalletAddress:   "0xaaa0000000000000000000000000000000000001",
		ValueUSD:        1000,
		TransactionHash: "0xbps2",
		FeeBps:          50,
	})
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if math.Abs(got.AffiliateFee-5.00) > eps {
		t.Fatalf("affiliateFee=%v want=5.00 (per-call bps)", got.AffiliateFee)
	}
}

func TestProcessSwapRewardsTierUpgrade(t *testing.T) {
	store := newMemStore()
	// 1950 points + 100 from a $1000 swap crosses the degen boundary.
	seedUser(store, "u1", "0xaaa0000000000000000000000000000000000001", "", 1950)
	svc := newTestService(store, 0)

	if _, err := svc.ProcessSwapRewards(context.Background(), SwapInput{
		WalletAddress:   "0xaaa0000000000000000000000000000000000001",
		ValueUSD:        1000,
		TransactionHash: "0xtierup",
	}); err != nil {
		t.Fatalf("err=%v", err)
	}
	sr := store.swaps["0xtierup"]
	if sr.OldTier != "normie" || sr.NewTier != "degen" {
		t.Fatalf("old=%s new=%s want normie->degen", sr.OldTier, sr.NewTier)
	}
	if store.ledgers["u1"].Tier != "degen" {
		t.Fatalf("ledger tier=%s want degen", store.ledgers["u1"].Tier)
	}
	// Cashback was computed at the pre-swap tier.
	if math.Abs(store.swaps["0xtierup"].CashbackAmount-0.30) > eps {
		t.Fatalf("cashback=%v want=0.30 (normie rate)", sr.CashbackAmount)
	}
}

func TestGetLedgerByWallet(t *testing.T) {
	store := newMemStore()
	seedUser(store, "u1", "0xaaa0000000000000000000000000000000000001", "", 0)
	svc := newTestService(store, 0)

	if _, err := svc.GetLedgerByWallet(context.Background(), "0xaaa0000000000000000000000000000000000001"); !errors.Is(err, ErrLedgerNotFound) {
		t.Fatalf("err=%v want ErrLedgerNotFound before first swap", err)
	}

	if _, err := svc.ProcessSwapRewards(context.Background(), SwapInput{
		WalletAddress:   "0xaaa0000000000000000000000000000000000001",
		ValueUSD:        100,
		TransactionHash: "0xledger",
	}); err != nil {
		t.Fatalf("err=%v", err)
	}
	l, err := svc.GetLedgerByWallet(context.Background(), "0xAAA0000000000000000000000000000000000001")
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if l.Transactions != 1 || l.VolumeTraded != 100 {
		t.Fatalf("ledger=%+v", l)
	}
}
