package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/jmerrifield20/educoin/internal/ledger"
	"go.uber.org/zap"
)

// DefaultProof is the proof value attached to blocks sealed by the service.
const DefaultProof int64 = 123

var (
	// ErrIssuerTransfer is returned by Transfer when the sender is the
	// issuer; teacher credits go through Reward.
	ErrIssuerTransfer = errors.New("the teacher issues coins with Reward, not Transfer")

	// ErrChainInvalid is returned in strict mode when the chain fails
	// verification before a write.
	ErrChainInvalid = errors.New("chain failed integrity verification")
)

// ledgerEngine is the chain interface the service drives.
// *ledger.Engine satisfies this interface.
type ledgerEngine interface {
	Record(tx ledger.Transaction, proof int64) (*ledger.Block, error)
	Verify() error
	IsChainValid() bool
	BalanceOf(participant string) int64
	Balances() map[string]int64
	Supply() int64
	Pending() []ledger.Transaction
	LastBlock() *ledger.Block
	Chain() []ledger.Block
	Block(index int) (*ledger.Block, error)
	RewardHistory() []ledger.RewardEntry
	TransferHistory() []ledger.TransferEntry
}

// SealObserver is called after every block the service seals, in seal order.
type SealObserver func(ctx context.Context, b *ledger.Block)

// Standing is one row of the leaderboard.
type Standing struct {
	Rank        int    `json:"rank"`
	Participant string `json:"participant"`
	Balance     int64  `json:"balance"`
}

// Status summarises the chain for dashboards.
type Status struct {
	Length  int    `json:"length"`
	Valid   bool   `json:"valid"`
	Tip     string `json:"tip"`
	Supply  int64  `json:"supply"`
	Pending int    `json:"pending"`
}

// ClassroomService owns one ledger engine for the lifetime of a session and
// turns each user action into exactly one sealed block.
type ClassroomService struct {
	engine    ledgerEngine
	proof     int64
	strict    bool // reject writes while the chain fails Verify
	observers []SealObserver
	notifyMu  sync.Mutex // keeps observer calls in seal order
	logger    *zap.Logger
}

// NewClassroomService creates a ClassroomService around engine.
func NewClassroomService(engine ledgerEngine, logger *zap.Logger) *ClassroomService {
	return &ClassroomService{
		engine: engine,
		proof:  DefaultProof,
		logger: logger,
	}
}

// SetProof sets the opaque proof value stored in newly sealed blocks.
func (s *ClassroomService) SetProof(proof int64) {
	s.proof = proof
}

// SetStrict enables or disables strict mode. When enabled, Reward and
// Transfer refuse to write while the chain fails verification.
func (s *ClassroomService) SetStrict(strict bool) {
	s.strict = strict
}

// Observe registers fn to be called with every sealed block.
// Observers must be registered before the service starts taking writes.
func (s *ClassroomService) Observe(fn SealObserver) {
	s.observers = append(s.observers, fn)
}

// Reward issues amount EduCoin from the teacher to student and seals it.
// teacher names the supervising teacher and may be empty.
func (s *ClassroomService) Reward(ctx context.Context, teacher, student string, amount int64) (*ledger.Block, error) {
	return s.record(ctx, ledger.NewTransaction(ledger.Issuer, student, amount, teacher))
}

// Transfer moves amount from one student to another and seals it.
func (s *ClassroomService) Transfer(ctx context.Context, from, to string, amount int64, teacher string) (*ledger.Block, error) {
	if from == ledger.Issuer {
		return nil, ErrIssuerTransfer
	}
	return s.record(ctx, ledger.NewTransaction(from, to, amount, teacher))
}

func (s *ClassroomService) record(ctx context.Context, tx ledger.Transaction) (*ledger.Block, error) {
	if s.strict {
		if err := s.engine.Verify(); err != nil {
			s.logger.Error("write refused: chain integrity check failed", zap.Error(err))
			return nil, fmt.Errorf("%w: %v", ErrChainInvalid, err)
		}
	}

	// Observers run outside the engine lock but under notifyMu, so they see
	// blocks in the order they were sealed.
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	b, err := s.engine.Record(tx, s.proof)
	if err != nil {
		s.logger.Info("transaction rejected",
			zap.String("sender", tx.Sender),
			zap.String("recipient", tx.Recipient),
			zap.Int64("amount", tx.Amount),
			zap.Error(err),
		)
		return nil, err
	}

	s.logger.Info("block sealed",
		zap.Int("index", b.Index),
		zap.String("hash", b.Hash),
		zap.String("sender", tx.Sender),
		zap.String("recipient", tx.Recipient),
		zap.Int64("amount", tx.Amount),
	)
	for _, fn := range s.observers {
		fn(ctx, b.Clone())
	}
	return b, nil
}

// Leaderboard returns participants ordered by balance, highest first, ties
// broken by name. limit <= 0 returns everyone.
func (s *ClassroomService) Leaderboard(limit int) []Standing {
	balances := s.engine.Balances()
	out := make([]Standing, 0, len(balances))
	for name, bal := range balances {
		out = append(out, Standing{Participant: name, Balance: bal})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Balance != out[j].Balance {
			return out[i].Balance > out[j].Balance
		}
		return out[i].Participant < out[j].Participant
	})
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}

// Status returns the current chain summary.
func (s *ClassroomService) Status() Status {
	tip := s.engine.LastBlock()
	return Status{
		Length:  tip.Index,
		Valid:   s.engine.IsChainValid(),
		Tip:     tip.Hash,
		Supply:  s.engine.Supply(),
		Pending: len(s.engine.Pending()),
	}
}

// Verify runs a full integrity check of the chain.
func (s *ClassroomService) Verify() error {
	return s.engine.Verify()
}

// Chain returns a snapshot of every sealed block. newestFirst reverses the
// order for explorer views.
func (s *ClassroomService) Chain(newestFirst bool) []ledger.Block {
	chain := s.engine.Chain()
	if newestFirst {
		for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
			chain[i], chain[j] = chain[j], chain[i]
		}
	}
	return chain
}

// Block returns the block at the given 1-based index.
func (s *ClassroomService) Block(index int) (*ledger.Block, error) {
	return s.engine.Block(index)
}

// Balance returns one participant's balance.
func (s *ClassroomService) Balance(participant string) int64 {
	return s.engine.BalanceOf(participant)
}

// Balances returns the full balance table.
func (s *ClassroomService) Balances() map[string]int64 {
	return s.engine.Balances()
}

// Rewards returns the reward history.
func (s *ClassroomService) Rewards() []ledger.RewardEntry {
	return s.engine.RewardHistory()
}

// Transfers returns the transfer history.
func (s *ClassroomService) Transfers() []ledger.TransferEntry {
	return s.engine.TransferHistory()
}
