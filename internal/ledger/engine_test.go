package ledger_test

import (
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/jmerrifield20/educoin/internal/ledger"
)

func fixedClock() func() time.Time {
	t := time.Date(2024, 9, 2, 8, 30, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(time.Second)
		return t
	}
}

func reward(student string, amount int64) ledger.Transaction {
	return ledger.NewTransaction(ledger.Issuer, student, amount, "")
}

func TestNew_genesisBlock(t *testing.T) {
	e := ledger.New()

	if n := e.Len(); n != 1 {
		t.Fatalf("expected 1 genesis block, got %d", n)
	}
	g := e.LastBlock()
	if g.Index != 1 {
		t.Errorf("genesis index: got %d, want 1", g.Index)
	}
	if g.PreviousHash != ledger.GenesisPreviousHash {
		t.Errorf("genesis previous hash: got %q, want %q", g.PreviousHash, ledger.GenesisPreviousHash)
	}
	if g.Proof != ledger.GenesisProof {
		t.Errorf("genesis proof: got %d, want %d", g.Proof, ledger.GenesisProof)
	}
	if len(g.Transactions) != 0 {
		t.Errorf("genesis should carry no transactions, got %d", len(g.Transactions))
	}
	if g.Hash != ledger.HashBlock(g) {
		t.Errorf("genesis hash is not self-consistent")
	}
	if len(e.Pending()) != 0 || len(e.Balances()) != 0 {
		t.Error("fresh engine should have no pending transactions and no balances")
	}
	if len(e.RewardHistory()) != 0 || len(e.TransferHistory()) != 0 {
		t.Error("fresh engine should have empty histories")
	}
	if !e.IsChainValid() {
		t.Error("genesis-only chain should be valid")
	}
}

func TestScenario_rewardTransferReject(t *testing.T) {
	e := ledger.New()

	if _, err := e.Record(reward("Alice", 100), 123); err != nil {
		t.Fatalf("reward: %v", err)
	}
	if got := e.BalanceOf("Alice"); got != 100 {
		t.Errorf("Alice after reward: got %d, want 100", got)
	}
	if n := e.Len(); n != 2 {
		t.Errorf("chain length after reward: got %d, want 2", n)
	}

	if _, err := e.Record(ledger.NewTransaction("Alice", "Bob", 40, ""), 123); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if got := e.BalanceOf("Alice"); got != 60 {
		t.Errorf("Alice after transfer: got %d, want 60", got)
	}
	if got := e.BalanceOf("Bob"); got != 40 {
		t.Errorf("Bob after transfer: got %d, want 40", got)
	}
	if n := e.Len(); n != 3 {
		t.Errorf("chain length after transfer: got %d, want 3", n)
	}
	if !e.IsChainValid() {
		t.Error("chain should be valid")
	}

	_, err := e.Record(ledger.NewTransaction("Alice", "Bob", 1000, ""), 123)
	if !errors.Is(err, ledger.ErrInsufficientBalance) {
		t.Fatalf("overdraft: got %v, want ErrInsufficientBalance", err)
	}
	if e.BalanceOf("Alice") != 60 || e.BalanceOf("Bob") != 40 {
		t.Errorf("balances changed after rejection: Alice=%d Bob=%d", e.BalanceOf("Alice"), e.BalanceOf("Bob"))
	}
	if n := e.Len(); n != 3 {
		t.Errorf("chain length after rejection: got %d, want 3", n)
	}
}

func TestSubmitTransaction_returnsNextIndex(t *testing.T) {
	e := ledger.New()

	next, err := e.SubmitTransaction(reward("Alice", 5))
	if err != nil {
		t.Fatal(err)
	}
	if next != 2 {
		t.Errorf("next index: got %d, want 2", next)
	}

	// A second queued transaction predicts the same index.
	next, err = e.SubmitTransaction(reward("Bob", 5))
	if err != nil {
		t.Fatal(err)
	}
	if next != 2 {
		t.Errorf("next index with two pending: got %d, want 2", next)
	}
	if n := len(e.Pending()); n != 2 {
		t.Errorf("pending: got %d, want 2", n)
	}
}

func TestSubmitTransaction_rejectionLeavesStateUnchanged(t *testing.T) {
	e := ledger.New()
	if _, err := e.Record(reward("Alice", 10), 1); err != nil {
		t.Fatal(err)
	}
	if _, err := e.Record(ledger.NewTransaction("Alice", "Bob", 3, ""), 1); err != nil {
		t.Fatal(err)
	}

	balances := e.Balances()
	rewards := len(e.RewardHistory())
	transfers := len(e.TransferHistory())
	length := e.Len()

	cases := []struct {
		name string
		tx   ledger.Transaction
		want error
	}{
		{"overdraft", ledger.NewTransaction("Alice", "Bob", 8, ""), ledger.ErrInsufficientBalance},
		{"unknown sender", ledger.NewTransaction("Carol", "Bob", 1, ""), ledger.ErrInsufficientBalance},
		{"zero amount", reward("Alice", 0), ledger.ErrInvalidAmount},
		{"negative amount", ledger.NewTransaction("Alice", "Bob", -5, ""), ledger.ErrInvalidAmount},
		{"empty recipient", reward("", 5), ledger.ErrInvalidParticipant},
		{"empty sender", ledger.NewTransaction("", "Bob", 5, ""), ledger.ErrInvalidParticipant},
		{"supply overflow", reward("Bob", math.MaxInt64), ledger.ErrAmountOverflow},
		{"invalid utf-8 recipient", reward("A\xff", 5), ledger.ErrInvalidParticipant},
		{"invalid utf-8 sender", ledger.NewTransaction("Alice\xfe", "Bob", 1, ""), ledger.ErrInvalidParticipant},
		{"invalid utf-8 teacher", ledger.NewTransaction(ledger.Issuer, "Bob", 1, "Ms\xff"), ledger.ErrInvalidParticipant},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := e.SubmitTransaction(tc.tx); !errors.Is(err, tc.want) {
				t.Fatalf("got %v, want %v", err, tc.want)
			}
			if n := len(e.Pending()); n != 0 {
				t.Errorf("pending grew to %d", n)
			}
			for k, v := range e.Balances() {
				if balances[k] != v {
					t.Errorf("balance %s changed: %d → %d", k, balances[k], v)
				}
			}
			if len(e.Balances()) != len(balances) {
				t.Errorf("balance table size changed: %d → %d", len(balances), len(e.Balances()))
			}
			if len(e.RewardHistory()) != rewards || len(e.TransferHistory()) != transfers {
				t.Error("history changed after rejection")
			}
			if e.Len() != length {
				t.Errorf("chain length changed: %d → %d", length, e.Len())
			}
		})
	}
}

func TestSubmitTransaction_issuerExemptFromBalance(t *testing.T) {
	e := ledger.New()
	if _, err := e.SubmitTransaction(reward("Alice", 1_000_000)); err != nil {
		t.Fatalf("issuer should not need a balance: %v", err)
	}
	if got := e.BalanceOf(ledger.Issuer); got != 0 {
		t.Errorf("issuer balance should not be debited, got %d", got)
	}
}

func TestSealBlock_batchesPending(t *testing.T) {
	e := ledger.New(ledger.WithClock(fixedClock()))
	_, _ = e.SubmitTransaction(reward("Alice", 5))
	_, _ = e.SubmitTransaction(ledger.NewTransaction("Alice", "Bob", 2, "Ms. Frizzle"))

	b := e.SealBlock(42)
	if b.Index != 2 {
		t.Errorf("index: got %d, want 2", b.Index)
	}
	if b.Proof != 42 {
		t.Errorf("proof: got %d, want 42", b.Proof)
	}
	if len(b.Transactions) != 2 {
		t.Fatalf("transactions: got %d, want 2", len(b.Transactions))
	}
	if b.Transactions[0].Recipient != "Alice" || b.Transactions[1].Recipient != "Bob" {
		t.Error("transactions not in insertion order")
	}
	if b.Transactions[1].TeacherName() != "Ms. Frizzle" {
		t.Errorf("teacher field lost: got %q", b.Transactions[1].TeacherName())
	}
	if n := len(e.Pending()); n != 0 {
		t.Errorf("pending not cleared: %d", n)
	}
	if b.PreviousHash != e.Chain()[0].Hash {
		t.Error("sealed block does not link to genesis")
	}
}

func TestSealBlock_emptyBlock(t *testing.T) {
	e := ledger.New()
	b := e.SealBlock(7)
	if len(b.Transactions) != 0 {
		t.Errorf("expected empty block, got %d transactions", len(b.Transactions))
	}
	if !e.IsChainValid() {
		t.Error("chain with empty block should be valid")
	}
}

func TestSealBlock_returnedBlockIsACopy(t *testing.T) {
	e := ledger.New()
	b, err := e.Record(ledger.NewTransaction(ledger.Issuer, "Alice", 5, "Ms. Frizzle"), 1)
	if err != nil {
		t.Fatal(err)
	}
	b.Transactions[0].Amount = 500
	*b.Transactions[0].Teacher = "Mallory"
	b.Hash = "bogus"

	stored, err := e.Block(2)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Transactions[0].Amount != 5 || stored.Transactions[0].TeacherName() != "Ms. Frizzle" {
		t.Error("mutating a returned block changed the sealed block")
	}
	if !e.IsChainValid() {
		t.Error("chain should remain valid")
	}
}

func TestChainLinkInvariant(t *testing.T) {
	e := ledger.New()
	for i := 0; i < 10; i++ {
		if _, err := e.Record(reward("Alice", int64(i+1)), int64(i)); err != nil {
			t.Fatal(err)
		}
		chain := e.Chain()
		for j := 1; j < len(chain); j++ {
			if chain[j].PreviousHash != chain[j-1].Hash {
				t.Fatalf("after seal %d: block %d not linked", i, chain[j].Index)
			}
			if chain[j].Index != chain[j-1].Index+1 {
				t.Fatalf("after seal %d: index gap at %d", i, chain[j].Index)
			}
		}
	}
}

func TestBalanceConservationAndNonNegative(t *testing.T) {
	e := ledger.New()
	students := []string{"Alice", "Bob", "Carol", "Dan"}
	var issued int64

	// Deterministic pseudo-random walk of rewards and transfers.
	seed := uint32(7)
	next := func(n int) int {
		seed = seed*1103515245 + 12345
		return int(seed>>16) % n
	}
	for i := 0; i < 200; i++ {
		amount := int64(next(30) + 1)
		var tx ledger.Transaction
		if next(3) == 0 {
			tx = reward(students[next(len(students))], amount)
		} else {
			tx = ledger.NewTransaction(students[next(len(students))], students[next(len(students))], amount, "")
		}
		if _, err := e.Record(tx, 123); err == nil && tx.IsReward() {
			issued += tx.Amount
		} else if err != nil && !errors.Is(err, ledger.ErrInsufficientBalance) {
			t.Fatalf("unexpected error: %v", err)
		}

		var sum int64
		for name, bal := range e.Balances() {
			if name != ledger.Issuer && bal < 0 {
				t.Fatalf("step %d: %s went negative (%d)", i, name, bal)
			}
			sum += bal
		}
		if sum != issued {
			t.Fatalf("step %d: sum of balances %d != issued %d", i, sum, issued)
		}
		if e.Supply() != issued {
			t.Fatalf("step %d: Supply() %d != issued %d", i, e.Supply(), issued)
		}
	}
	if !e.IsChainValid() {
		t.Error("chain should be valid after random walk")
	}
}

func TestHistoryPartition(t *testing.T) {
	e := ledger.New()
	_, _ = e.Record(ledger.NewTransaction(ledger.Issuer, "Alice", 50, "Ms. Frizzle"), 1)
	_, _ = e.Record(reward("Bob", 20), 1)
	_, _ = e.Record(ledger.NewTransaction("Alice", "Bob", 10, "Ms. Frizzle"), 1)
	_, _ = e.Record(ledger.NewTransaction("Bob", "Carol", 5, ""), 1)

	rewards := e.RewardHistory()
	transfers := e.TransferHistory()

	var sealed int
	for _, b := range e.Chain() {
		sealed += len(b.Transactions)
	}
	if len(rewards)+len(transfers) != sealed {
		t.Fatalf("history entries %d+%d != sealed transactions %d", len(rewards), len(transfers), sealed)
	}

	wantRewards := []ledger.RewardEntry{
		{Teacher: "Ms. Frizzle", Student: "Alice", Amount: 50},
		{Teacher: ledger.Issuer, Student: "Bob", Amount: 20},
	}
	for i, w := range wantRewards {
		if rewards[i] != w {
			t.Errorf("reward %d: got %+v, want %+v", i, rewards[i], w)
		}
	}
	wantTransfers := []ledger.TransferEntry{
		{From: "Alice", To: "Bob", Amount: 10},
		{From: "Bob", To: "Carol", Amount: 5},
	}
	for i, w := range wantTransfers {
		if transfers[i] != w {
			t.Errorf("transfer %d: got %+v, want %+v", i, transfers[i], w)
		}
	}
}

func TestBlock_outOfRange(t *testing.T) {
	e := ledger.New()
	for _, idx := range []int{0, -1, 2} {
		if _, err := e.Block(idx); !errors.Is(err, ledger.ErrBlockNotFound) {
			t.Errorf("Block(%d): got %v, want ErrBlockNotFound", idx, err)
		}
	}
}

func TestRecord_concurrentCallers(t *testing.T) {
	e := ledger.New()
	const workers, perWorker = 8, 25

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				if _, err := e.Record(reward("Alice", 1), 123); err != nil {
					t.Error(err)
					return
				}
			}
		}()
	}
	wg.Wait()

	if n := e.Len(); n != 1+workers*perWorker {
		t.Errorf("chain length: got %d, want %d", n, 1+workers*perWorker)
	}
	for _, b := range e.Chain()[1:] {
		if len(b.Transactions) != 1 {
			t.Fatalf("block %d holds %d transactions, want 1", b.Index, len(b.Transactions))
		}
	}
	if got := e.BalanceOf("Alice"); got != workers*perWorker {
		t.Errorf("Alice: got %d, want %d", got, workers*perWorker)
	}
	if !e.IsChainValid() {
		t.Error("chain should be valid")
	}
}

func TestRecord_rejectsBalanceOverflow(t *testing.T) {
	e := ledger.New()
	if _, err := e.Record(reward("Alice", math.MaxInt64), 1); err != nil {
		t.Fatalf("first reward: %v", err)
	}

	if _, err := e.Record(reward("Alice", 1), 1); !errors.Is(err, ledger.ErrAmountOverflow) {
		t.Fatalf("second reward: got %v, want ErrAmountOverflow", err)
	}
	if got := e.BalanceOf("Alice"); got != math.MaxInt64 {
		t.Errorf("Alice: got %d, want %d", got, int64(math.MaxInt64))
	}
	if got := e.Supply(); got != math.MaxInt64 {
		t.Errorf("supply: got %d, want %d", got, int64(math.MaxInt64))
	}
	if e.Len() != 2 {
		t.Errorf("rejected reward sealed a block: len %d", e.Len())
	}

	// A self-transfer of the full balance nets to zero and is allowed.
	if _, err := e.Record(ledger.NewTransaction("Alice", "Alice", math.MaxInt64, ""), 1); err != nil {
		t.Errorf("self transfer: %v", err)
	}
	if got := e.BalanceOf("Alice"); got != math.MaxInt64 {
		t.Errorf("Alice after self transfer: got %d", got)
	}
}
