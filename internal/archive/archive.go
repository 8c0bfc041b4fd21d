// Package archive keeps an append-only mirror of sealed EduCoin blocks.
//
// The archive is write-only from the ledger's point of view: blocks are
// appended in seal order and never read back into an Engine. Each record
// stores the block's canonical encoding so the mirror can be re-verified
// independently of the process that produced it.
//
// Two implementations of the Archive interface are provided:
//   - Memory: in-process, for tests and development.
//   - Postgres: durable, one chain per daemon session.
package archive

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmerrifield20/educoin/internal/ledger"
)

// ErrOutOfOrder is returned when an appended block does not extend the
// archived tip.
var ErrOutOfOrder = errors.New("block does not extend archived chain")

// ErrNotFound is returned by Get for an index that was never archived.
var ErrNotFound = errors.New("archived block not found")

// Record is one archived block.
type Record struct {
	Index        int       `json:"index"`
	Hash         string    `json:"hash"`
	PreviousHash string    `json:"previous_hash"`
	Body         []byte    `json:"-"` // canonical encoding the hash was computed over
	ArchivedAt   time.Time `json:"archived_at"`
}

// Archive is the interface for the sealed-block mirror.
type Archive interface {
	// Append stores b. It must extend the current tip by exactly one index.
	Append(ctx context.Context, b *ledger.Block) error

	// Get returns the record at the given 1-based index.
	Get(ctx context.Context, index int) (*Record, error)

	// Len returns the number of archived blocks.
	Len(ctx context.Context) (int, error)

	// Verify walks the archive and checks every body digest and link.
	Verify(ctx context.Context) error

	// Root returns the hash of the most recently archived block.
	Root(ctx context.Context) (string, error)
}

func newRecord(b *ledger.Block) *Record {
	return &Record{
		Index:        b.Index,
		Hash:         b.Hash,
		PreviousHash: b.PreviousHash,
		Body:         ledger.CanonicalBytes(b),
		ArchivedAt:   time.Now().UTC(),
	}
}

// checkExtends reports whether next may follow tip. A nil tip means the
// archive is empty and next must be block 1.
func checkExtends(tip *Record, next *ledger.Block) error {
	if tip == nil {
		if next.Index != 1 {
			return fmt.Errorf("%w: empty archive, got block %d", ErrOutOfOrder, next.Index)
		}
		return nil
	}
	if next.Index != tip.Index+1 {
		return fmt.Errorf("%w: tip is %d, got block %d", ErrOutOfOrder, tip.Index, next.Index)
	}
	if next.PreviousHash != tip.Hash {
		return fmt.Errorf("%w: block %d previous hash does not match tip", ErrOutOfOrder, next.Index)
	}
	return nil
}

// verifyRecord checks r's body digest, and its link to prev when prev is set.
func verifyRecord(prev, r *Record) error {
	if ledger.Digest(r.Body) != r.Hash {
		return &ledger.ChainError{Index: r.Index, Err: ledger.ErrHashMismatch}
	}
	if prev == nil {
		return nil
	}
	if r.Index != prev.Index+1 || r.PreviousHash != prev.Hash {
		return &ledger.ChainError{Index: r.Index, Err: ledger.ErrChainBroken}
	}
	return nil
}
