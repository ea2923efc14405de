package ledger_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dinarlabs/ledger/business/core/chain"
	"github.com/dinarlabs/ledger/business/core/ledger"
	"github.com/dinarlabs/ledger/business/core/miner"
	"github.com/dinarlabs/ledger/business/core/user"
	"github.com/dinarlabs/ledger/business/core/utxo"
	"github.com/dinarlabs/ledger/business/core/wallet"
	"github.com/dinarlabs/ledger/business/sys/dbtest"
	"github.com/dinarlabs/ledger/foundation/keystore"
	"github.com/dinarlabs/ledger/foundation/money"
	"go.uber.org/zap"
)

// Success and failure markers.
const (
	success = "✓"
	failed  = "✗"
)

// captureSender keeps the last issued passcode so the test can complete
// the verification round-trip.
type captureSender struct {
	otp string
}

func (s *captureSender) Send(ctx context.Context, email string, otp string) error {
	s.otp = otp
	return nil
}

func Test_LedgerLifecycle(t *testing.T) {
	db := dbtest.New(t)
	log := zap.NewNop().Sugar()
	ctx := context.Background()

	aesKey, err := keystore.GenerateKey()
	if err != nil {
		t.Fatalf("Should be able to generate a service key: %v", err)
	}

	sender := &captureSender{}

	cfg := ledger.Config{
		Log:            log,
		DB:             db,
		AESKey:         aesKey,
		Fee:            money.MustParse("0.1"),
		MaxBatch:       500,
		Skew:           5 * time.Minute,
		PendingTTL:     time.Hour,
		InitialReward:  money.MustParse("500"),
		HalvingEvery:   10,
		Difficulty:     1,
		ZakatRate:      money.MustParse("0.025"),
		ZakatThreshold: money.MustParse("100"),
		ZakatPeriod:    720 * time.Hour,
		OTPSender:      sender,
	}

	t.Log("Given the need to run a full wallet lifecycle against the ledger core.")

	// =========================================================================
	// Bootstrap

	t.Log("\tWhen bootstrapping a fresh chain.")

	lgr, err := ledger.New(ctx, cfg)
	if err != nil {
		t.Fatalf("\t%s\tShould be able to construct the ledger: %v", failed, err)
	}
	t.Logf("\t%s\tShould be able to construct the ledger.", success)

	info, err := lgr.Info(ctx)
	if err != nil {
		t.Fatalf("\t%s\tShould be able to read chain info: %v", failed, err)
	}
	if info.Height != 0 || info.LatestHash == "" {
		t.Fatalf("\t%s\tShould start at a genesis tip. got height: %d", failed, info.Height)
	}
	if !info.CurrentReward.Equal(money.MustParse("500")) {
		t.Fatalf("\t%s\tShould carry the initial reward. got: %s", failed, info.CurrentReward)
	}
	t.Logf("\t%s\tShould start at a genesis tip with the initial reward.", success)

	poolID := lgr.ZakatPoolID()
	if poolID == "" {
		t.Fatalf("\t%s\tShould provision the zakat pool wallet.", failed)
	}
	t.Logf("\t%s\tShould provision the zakat pool wallet.", success)

	lgr2, err := ledger.New(ctx, cfg)
	if err != nil {
		t.Fatalf("\t%s\tShould be able to restart over the same database: %v", failed, err)
	}
	info2, err := lgr2.Info(ctx)
	if err != nil {
		t.Fatalf("\t%s\tShould be able to read chain info after restart: %v", failed, err)
	}
	if info2.LatestHash != info.LatestHash || lgr2.ZakatPoolID() != poolID {
		t.Fatalf("\t%s\tShould reuse the existing genesis and pool on restart.", failed)
	}
	t.Logf("\t%s\tShould reuse the existing genesis and pool on restart.", success)

	// =========================================================================
	// Registration and verification

	t.Log("\tWhen registering accounts.")

	alice, err := lgr.Register(ctx, user.NewUser{
		Email:    "alice@example.com",
		Password: "gophers",
		FullName: "Alice Rahman",
		CNIC:     "42101-1234567-1",
	}, "127.0.0.1")
	if err != nil {
		t.Fatalf("\t%s\tShould be able to register alice: %v", failed, err)
	}
	if alice.User.WalletID != alice.Wallet.WalletID || alice.Wallet.WalletID == "" {
		t.Fatalf("\t%s\tShould attach a wallet at registration.", failed)
	}
	if sender.otp == "" {
		t.Fatalf("\t%s\tShould deliver a verification passcode.", failed)
	}
	t.Logf("\t%s\tShould register alice with a wallet and a passcode.", success)

	if _, err := lgr.Authenticate(ctx, "alice@example.com", "gophers", "127.0.0.1"); !errors.Is(err, user.ErrNotVerified) {
		t.Fatalf("\t%s\tShould refuse login before verification. got: %v", failed, err)
	}
	t.Logf("\t%s\tShould refuse login before verification.", success)

	wrong := "000000"
	if wrong == sender.otp {
		wrong = "000001"
	}
	if err := lgr.VerifyAccount(ctx, "alice@example.com", wrong, "127.0.0.1"); !errors.Is(err, user.ErrInvalidOTP) {
		t.Fatalf("\t%s\tShould reject a wrong passcode. got: %v", failed, err)
	}
	if err := lgr.VerifyAccount(ctx, "alice@example.com", sender.otp, "127.0.0.1"); err != nil {
		t.Fatalf("\t%s\tShould accept the issued passcode: %v", failed, err)
	}
	if _, err := lgr.Authenticate(ctx, "alice@example.com", "gophers", "127.0.0.1"); err != nil {
		t.Fatalf("\t%s\tShould login after verification: %v", failed, err)
	}
	t.Logf("\t%s\tShould verify the account and allow login.", success)

	bob, err := lgr.Register(ctx, user.NewUser{
		Email:    "bob@example.com",
		Password: "gophers",
		FullName: "Bob Malik",
		CNIC:     "42101-7654321-2",
	}, "127.0.0.1")
	if err != nil {
		t.Fatalf("\t%s\tShould be able to register bob: %v", failed, err)
	}
	if err := lgr.VerifyAccount(ctx, "bob@example.com", sender.otp, "127.0.0.1"); err != nil {
		t.Fatalf("\t%s\tShould verify bob: %v", failed, err)
	}
	t.Logf("\t%s\tShould register and verify bob.", success)

	// =========================================================================
	// Transfers

	t.Log("\tWhen submitting transfers.")

	if _, err := lgr.CreateTransaction(ctx, alice.User.ID, bob.Wallet.WalletID, money.MustParse("10"), "", "127.0.0.1", "test"); !errors.Is(err, utxo.ErrInsufficientFunds) {
		t.Fatalf("\t%s\tShould refuse a transfer from an unfunded wallet. got: %v", failed, err)
	}
	t.Logf("\t%s\tShould refuse a transfer from an unfunded wallet.", success)

	// Seed alice's wallet the way a mined grant would.
	outputs := utxo.New(log, db)
	if err := outputs.Create(ctx, db, utxo.NewUTXO{
		WalletID:    alice.Wallet.WalletID,
		Amount:      money.MustParse("1000"),
		TxHash:      "grant",
		OutputIndex: 0,
	}, time.Now().UTC()); err != nil {
		t.Fatalf("\t%s\tShould be able to seed alice's wallet: %v", failed, err)
	}

	rcpt, err := lgr.CreateTransaction(ctx, alice.User.ID, bob.Wallet.WalletID, money.MustParse("100"), "rent", "127.0.0.1", "test")
	if err != nil {
		t.Fatalf("\t%s\tShould admit a funded transfer: %v", failed, err)
	}
	if rcpt.Status != ledger.StatusPending {
		t.Fatalf("\t%s\tShould report the transfer pending. got: %s", failed, rcpt.Status)
	}
	t.Logf("\t%s\tShould admit a funded transfer as pending.", success)

	entry, err := lgr.TxByHash(ctx, rcpt.TxHash)
	if err != nil {
		t.Fatalf("\t%s\tShould find the pending transaction by hash: %v", failed, err)
	}
	if entry.Status != ledger.StatusPending || entry.BlockIndex != -1 {
		t.Fatalf("\t%s\tShould report the entry pending outside any block. got: %s %d", failed, entry.Status, entry.BlockIndex)
	}
	t.Logf("\t%s\tShould find the pending transaction by hash.", success)

	pending, err := lgr.PendingTransactions(ctx)
	if err != nil || len(pending) != 1 {
		t.Fatalf("\t%s\tShould list one pending transaction. got: %d %v", failed, len(pending), err)
	}
	t.Logf("\t%s\tShould list one pending transaction.", success)

	// =========================================================================
	// Mining

	t.Log("\tWhen mining blocks.")

	mined, err := lgr.Mine(ctx, alice.Wallet.WalletID)
	if err != nil {
		t.Fatalf("\t%s\tShould mine the first block: %v", failed, err)
	}
	if mined.Block.Index != 1 || mined.TxCount != 2 {
		t.Fatalf("\t%s\tShould settle the coinbase plus one transfer. got index: %d txs: %d", failed, mined.Block.Index, mined.TxCount)
	}
	t.Logf("\t%s\tShould mine the first block with two transactions.", success)

	balance, err := lgr.Balance(ctx, alice.Wallet.WalletID)
	if err != nil {
		t.Fatalf("\t%s\tShould read alice's balance: %v", failed, err)
	}
	if !balance.Equal(money.MustParse("1400")) {
		t.Logf("\t%s\tgot: %s", failed, balance)
		t.Logf("\t%s\texp: 1400", failed)
		t.Fatalf("\t%s\tShould credit change plus the coinbase to alice.", failed)
	}
	t.Logf("\t%s\tShould credit change plus the coinbase to alice.", success)

	balance, err = lgr.Balance(ctx, bob.Wallet.WalletID)
	if err != nil || !balance.Equal(money.MustParse("100")) {
		t.Fatalf("\t%s\tShould credit the transfer to bob. got: %s %v", failed, balance, err)
	}
	t.Logf("\t%s\tShould credit the transfer to bob.", success)

	entry, err = lgr.TxByHash(ctx, rcpt.TxHash)
	if err != nil || entry.Status != ledger.StatusConfirmed || entry.BlockIndex != 1 {
		t.Fatalf("\t%s\tShould confirm the transfer in block 1. got: %s %d %v", failed, entry.Status, entry.BlockIndex, err)
	}
	t.Logf("\t%s\tShould confirm the transfer in block 1.", success)

	info, err = lgr.Info(ctx)
	if err != nil {
		t.Fatalf("\t%s\tShould read chain info: %v", failed, err)
	}
	if info.Height != 1 || !info.CirculatingCoins.Equal(money.MustParse("500")) || info.Pending != 0 {
		t.Fatalf("\t%s\tShould advance counters with the block. got height: %d circulating: %s", failed, info.Height, info.CirculatingCoins)
	}
	if info.LatestHash != mined.Block.Hash {
		t.Fatalf("\t%s\tShould report the mined block as the tip.", failed)
	}
	t.Logf("\t%s\tShould advance the monetary counters with the block.", success)

	history, err := lgr.History(ctx, alice.Wallet.WalletID, 1, 10)
	if err != nil || len(history) != 2 {
		t.Fatalf("\t%s\tShould merge alice's settled history. got: %d %v", failed, len(history), err)
	}
	t.Logf("\t%s\tShould merge alice's settled history.", success)

	if _, err := lgr.Mine(ctx, alice.Wallet.WalletID); !errors.Is(err, miner.ErrEmptyMempool) {
		t.Fatalf("\t%s\tShould refuse to mine an empty mempool. got: %v", failed, err)
	}
	t.Logf("\t%s\tShould refuse to mine an empty mempool.", success)

	report, err := lgr.Validate(ctx)
	if err != nil || !report.Valid {
		t.Fatalf("\t%s\tShould validate the chain end to end. got: %+v %v", failed, report.Issues, err)
	}
	t.Logf("\t%s\tShould validate the chain end to end.", success)

	// =========================================================================
	// Block lookups

	t.Log("\tWhen resolving block references.")

	blk, err := lgr.BlockByRef(ctx, "1")
	if err != nil || blk.Index != 1 {
		t.Fatalf("\t%s\tShould resolve a block by height. got: %d %v", failed, blk.Index, err)
	}
	blk, err = lgr.BlockByRef(ctx, mined.Block.Hash)
	if err != nil || blk.Index != 1 {
		t.Fatalf("\t%s\tShould resolve a block by hash. got: %d %v", failed, blk.Index, err)
	}
	if _, err := lgr.BlockByRef(ctx, "not-a-ref"); !errors.Is(err, chain.ErrNotFound) {
		t.Fatalf("\t%s\tShould reject a malformed reference. got: %v", failed, err)
	}
	t.Logf("\t%s\tShould resolve blocks by height and by hash.", success)

	txs, err := lgr.BlockTxs(ctx, 1)
	if err != nil || len(txs) != 2 || txs[0].TxType != chain.TypeCoinbase {
		t.Fatalf("\t%s\tShould list block transactions coinbase first. got: %d %v", failed, len(txs), err)
	}
	t.Logf("\t%s\tShould list block transactions coinbase first.", success)

	// =========================================================================
	// Beneficiaries

	t.Log("\tWhen managing beneficiaries.")

	ben, err := lgr.AddBeneficiary(ctx, alice.User.ID, bob.Wallet.WalletID, "Bob")
	if err != nil {
		t.Fatalf("\t%s\tShould save a beneficiary: %v", failed, err)
	}
	if _, err := lgr.AddBeneficiary(ctx, alice.User.ID, "0000000000000000000000000000000000000000000000000000000000000000", "Nobody"); !errors.Is(err, wallet.ErrNotFound) {
		t.Fatalf("\t%s\tShould refuse an unknown beneficiary wallet. got: %v", failed, err)
	}
	saved, err := lgr.Beneficiaries(ctx, alice.User.ID)
	if err != nil || len(saved) != 1 {
		t.Fatalf("\t%s\tShould list the saved beneficiary. got: %d %v", failed, len(saved), err)
	}
	if err := lgr.RemoveBeneficiary(ctx, alice.User.ID, ben.ID); err != nil {
		t.Fatalf("\t%s\tShould remove the beneficiary: %v", failed, err)
	}
	t.Logf("\t%s\tShould manage the beneficiary address book.", success)

	// =========================================================================
	// Sweeping expired pending transactions

	t.Log("\tWhen sweeping expired pending transactions.")

	swRcpt, err := lgr.CreateTransaction(ctx, alice.User.ID, bob.Wallet.WalletID, money.MustParse("50"), "", "127.0.0.1", "test")
	if err != nil {
		t.Fatalf("\t%s\tShould admit a transfer to expire: %v", failed, err)
	}

	swept, err := lgr.SweepExpired(ctx, time.Now().UTC())
	if err != nil || swept != 0 {
		t.Fatalf("\t%s\tShould sweep nothing before the TTL. got: %d %v", failed, swept, err)
	}
	t.Logf("\t%s\tShould sweep nothing before the TTL.", success)

	swept, err = lgr.SweepExpired(ctx, time.Now().UTC().Add(2*time.Hour))
	if err != nil || swept != 1 {
		t.Fatalf("\t%s\tShould sweep the expired transaction. got: %d %v", failed, swept, err)
	}
	if _, err := lgr.TxByHash(ctx, swRcpt.TxHash); !errors.Is(err, chain.ErrNotFound) {
		t.Fatalf("\t%s\tShould forget the swept transaction. got: %v", failed, err)
	}
	balance, err = lgr.Balance(ctx, alice.Wallet.WalletID)
	if err != nil || !balance.Equal(money.MustParse("1400")) {
		t.Fatalf("\t%s\tShould restore the reserved funds. got: %s %v", failed, balance, err)
	}
	t.Logf("\t%s\tShould sweep the expired transaction and restore funds.", success)

	// =========================================================================
	// Zakat

	t.Log("\tWhen running a zakat cycle.")

	sum, err := lgr.RunZakat(ctx)
	if err != nil {
		t.Fatalf("\t%s\tShould run the zakat cycle: %v", failed, err)
	}
	if sum.Deducted != 2 || !sum.Total.Equal(money.MustParse("37.5")) {
		t.Logf("\t%s\tgot: deducted %d total %s", failed, sum.Deducted, sum.Total)
		t.Logf("\t%s\texp: deducted 2 total 37.5", failed)
		t.Fatalf("\t%s\tShould deduct from both holders.", failed)
	}
	t.Logf("\t%s\tShould deduct 2.5%% from both qualifying holders.", success)

	recs, err := lgr.ZakatRecords(ctx, "", 1, 10)
	if err != nil || len(recs) != 2 {
		t.Fatalf("\t%s\tShould record both deductions. got: %d %v", failed, len(recs), err)
	}
	t.Logf("\t%s\tShould record both deductions.", success)

	if _, err := lgr.Mine(ctx, bob.Wallet.WalletID); err != nil {
		t.Fatalf("\t%s\tShould mine the zakat block: %v", failed, err)
	}

	poolBalance, err := lgr.ZakatPoolBalance(ctx)
	if err != nil || !poolBalance.Equal(money.MustParse("37.5")) {
		t.Fatalf("\t%s\tShould settle the deductions into the pool. got: %s %v", failed, poolBalance, err)
	}
	t.Logf("\t%s\tShould settle the deductions into the pool.", success)

	entry, err = lgr.TxByHash(ctx, recs[0].TxHash)
	if err != nil || entry.TxType != chain.TypeZakat {
		t.Fatalf("\t%s\tShould type the settled deduction as zakat. got: %s %v", failed, entry.TxType, err)
	}
	t.Logf("\t%s\tShould type the settled deduction as zakat.", success)

	// =========================================================================
	// Reports

	t.Log("\tWhen building reports.")

	at := time.Unix(rcpt.Timestamp, 0).UTC()
	st, err := lgr.MonthlyStatement(ctx, alice.Wallet.WalletID, at.Year(), at.Month())
	if err != nil {
		t.Fatalf("\t%s\tShould build alice's statement: %v", failed, err)
	}
	if !st.Sent.Equal(money.MustParse("135")) || !st.Zakat.Equal(money.MustParse("35")) ||
		!st.Mined.Equal(money.MustParse("500.1")) || !st.Fees.Equal(money.MustParse("0.1")) {
		t.Logf("\t%s\tgot: sent %s zakat %s mined %s fees %s", failed, st.Sent, st.Zakat, st.Mined, st.Fees)
		t.Logf("\t%s\texp: sent 135 zakat 35 mined 500.1 fees 0.1", failed)
		t.Fatalf("\t%s\tShould fold the statement by role.", failed)
	}
	t.Logf("\t%s\tShould fold alice's monthly statement by role.", success)

	stats, err := lgr.MiningStats(ctx)
	if err != nil {
		t.Fatalf("\t%s\tShould build mining stats: %v", failed, err)
	}
	if stats.Height != 2 || stats.Blocks != 3 || stats.Transactions != 5 || stats.AvgTxPerBlock != 2.5 {
		t.Fatalf("\t%s\tShould count production figures. got: height %d blocks %d txs %d avg %.2f",
			failed, stats.Height, stats.Blocks, stats.Transactions, stats.AvgTxPerBlock)
	}
	t.Logf("\t%s\tShould count production figures.", success)

	logsPage, err := lgr.SystemLogs(ctx, "", 1, 50)
	if err != nil || len(logsPage) == 0 {
		t.Fatalf("\t%s\tShould keep a system audit trail. got: %d %v", failed, len(logsPage), err)
	}
	tranLogs, err := lgr.TransactionLogs(ctx, alice.Wallet.WalletID, 1, 10)
	if err != nil || len(tranLogs) == 0 {
		t.Fatalf("\t%s\tShould keep a wallet audit trail. got: %d %v", failed, len(tranLogs), err)
	}
	t.Logf("\t%s\tShould keep audit trails for the session.", success)

	if !lgr.Fee().Equal(money.MustParse("0.1")) {
		t.Fatalf("\t%s\tShould expose the configured fee. got: %s", failed, lgr.Fee())
	}
	if !lgr.Healthy() {
		t.Fatalf("\t%s\tShould stay healthy through the lifecycle.", failed)
	}
	t.Logf("\t%s\tShould expose the fee and stay healthy.", success)
}
