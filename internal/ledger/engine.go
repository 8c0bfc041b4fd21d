package ledger

import (
	"fmt"
	"math"
	"sort"
	"sync"
	"time"
	"unicode/utf8"
)

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the clock used to timestamp sealed blocks.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// Engine owns one chain together with its pending buffer, balances and
// histories. It is safe for concurrent use; Record runs submission and
// sealing as one critical section.
type Engine struct {
	mu        sync.RWMutex
	chain     []*Block
	pending   []Transaction
	balances  map[string]int64
	rewards   []RewardEntry
	transfers []TransferEntry
	supply    int64
	now       func() time.Time
}

// New creates an Engine whose chain holds only the genesis block.
func New(opts ...Option) *Engine {
	e := &Engine{
		balances: make(map[string]int64),
		now:      time.Now,
	}
	for _, o := range opts {
		o(e)
	}
	e.sealLocked(GenesisProof, GenesisPreviousHash)
	return e
}

// SubmitTransaction validates tx and adds it to the pending buffer, applying
// its balance changes immediately. It returns the index the next sealed block
// will carry. On error no state is changed.
func (e *Engine) SubmitTransaction(tx Transaction) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.submitLocked(tx); err != nil {
		return 0, err
	}
	return e.chain[len(e.chain)-1].Index + 1, nil
}

// SealBlock moves every pending transaction into a new block chained to the
// current tip and returns a copy of it. It always succeeds.
func (e *Engine) SealBlock(proof int64) *Block {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sealLocked(proof, e.chain[len(e.chain)-1].Hash).Clone()
}

// Record submits tx and seals it into a block under a single lock, so no
// other caller can observe or interleave with the pending state in between.
func (e *Engine) Record(tx Transaction, proof int64) (*Block, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.submitLocked(tx); err != nil {
		return nil, err
	}
	return e.sealLocked(proof, e.chain[len(e.chain)-1].Hash).Clone(), nil
}

func (e *Engine) submitLocked(tx Transaction) error {
	if tx.Amount <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidAmount, tx.Amount)
	}
	if tx.Sender == "" || tx.Recipient == "" {
		return ErrInvalidParticipant
	}
	// Invalid UTF-8 would collapse to U+FFFD in the canonical encoding.
	if !utf8.ValidString(tx.Sender) || !utf8.ValidString(tx.Recipient) ||
		(tx.Teacher != nil && !utf8.ValidString(*tx.Teacher)) {
		return fmt.Errorf("%w: names must be valid UTF-8", ErrInvalidParticipant)
	}
	issued := tx.IsReward()
	if issued {
		if e.supply > math.MaxInt64-tx.Amount {
			return fmt.Errorf("%w: supply %d + %d", ErrAmountOverflow, e.supply, tx.Amount)
		}
	} else if have := e.balances[tx.Sender]; have < tx.Amount {
		return fmt.Errorf("%w: %s has %d, needs %d", ErrInsufficientBalance, tx.Sender, have, tx.Amount)
	}
	have := e.balances[tx.Recipient]
	if !issued && tx.Recipient == tx.Sender {
		have -= tx.Amount
	}
	if have > math.MaxInt64-tx.Amount {
		return fmt.Errorf("%w: %s has %d, credit %d", ErrAmountOverflow, tx.Recipient, have, tx.Amount)
	}

	e.pending = append(e.pending, tx.clone())
	if issued {
		e.supply += tx.Amount
		teacher := tx.TeacherName()
		if teacher == "" {
			teacher = Issuer
		}
		e.rewards = append(e.rewards, RewardEntry{Teacher: teacher, Student: tx.Recipient, Amount: tx.Amount})
	} else {
		e.balances[tx.Sender] -= tx.Amount
		e.transfers = append(e.transfers, TransferEntry{From: tx.Sender, To: tx.Recipient, Amount: tx.Amount})
	}
	e.balances[tx.Recipient] += tx.Amount
	return nil
}

func (e *Engine) sealLocked(proof int64, previousHash string) *Block {
	txs := make([]Transaction, len(e.pending))
	for i, tx := range e.pending {
		txs[i] = tx.clone()
	}
	b := &Block{
		Index:        len(e.chain) + 1,
		Timestamp:    e.now().UTC().Truncate(time.Microsecond),
		Transactions: txs,
		Proof:        proof,
		PreviousHash: previousHash,
	}
	b.Hash = HashBlock(b)
	e.pending = nil
	e.chain = append(e.chain, b)
	return b
}

// Verify walks the chain in order and returns a *ChainError for the first
// block whose link or hash does not check out. A chain of zero or one block
// is valid.
func (e *Engine) Verify() error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	for i := 1; i < len(e.chain); i++ {
		prev, curr := e.chain[i-1], e.chain[i]
		if curr.PreviousHash != prev.Hash {
			return &ChainError{Index: curr.Index, Err: ErrChainBroken}
		}
		if !validNames(curr) || curr.Hash != HashBlock(curr) {
			return &ChainError{Index: curr.Index, Err: ErrHashMismatch}
		}
	}
	return nil
}

// validNames reports whether every name in b is valid UTF-8. Invalid bytes
// encode as U+FFFD, so such a block cannot be told apart from its rewrite.
func validNames(b *Block) bool {
	for _, tx := range b.Transactions {
		if !utf8.ValidString(tx.Sender) || !utf8.ValidString(tx.Recipient) {
			return false
		}
		if tx.Teacher != nil && !utf8.ValidString(*tx.Teacher) {
			return false
		}
	}
	return true
}

// IsChainValid reports whether Verify finds no integrity failure.
func (e *Engine) IsChainValid() bool {
	return e.Verify() == nil
}

// BalanceOf returns participant's balance; unseen participants hold 0.
func (e *Engine) BalanceOf(participant string) int64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.balances[participant]
}

// Balances returns a copy of the balance table.
func (e *Engine) Balances() map[string]int64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make(map[string]int64, len(e.balances))
	for k, v := range e.balances {
		out[k] = v
	}
	return out
}

// Participants returns every participant holding a balance entry, sorted.
func (e *Engine) Participants() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	names := make([]string, 0, len(e.balances))
	for k := range e.balances {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Supply returns the total amount ever issued by the teacher.
func (e *Engine) Supply() int64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.supply
}

// RewardHistory returns the reward log in insertion order.
func (e *Engine) RewardHistory() []RewardEntry {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]RewardEntry(nil), e.rewards...)
}

// TransferHistory returns the transfer log in insertion order.
func (e *Engine) TransferHistory() []TransferEntry {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]TransferEntry(nil), e.transfers...)
}

// Chain returns a deep copy of every sealed block in chain order.
func (e *Engine) Chain() []Block {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]Block, len(e.chain))
	for i, b := range e.chain {
		out[i] = *b.Clone()
	}
	return out
}

// Block returns a copy of the block with the given 1-based index.
func (e *Engine) Block(index int) (*Block, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if index < 1 || index > len(e.chain) {
		return nil, fmt.Errorf("%w: index %d", ErrBlockNotFound, index)
	}
	return e.chain[index-1].Clone(), nil
}

// LastBlock returns a copy of the chain tip.
func (e *Engine) LastBlock() *Block {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.chain[len(e.chain)-1].Clone()
}

// Len returns the number of sealed blocks, genesis included.
func (e *Engine) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.chain)
}

// Pending returns a copy of the transactions not yet sealed.
func (e *Engine) Pending() []Transaction {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]Transaction, len(e.pending))
	for i, tx := range e.pending {
		out[i] = tx.clone()
	}
	return out
}
