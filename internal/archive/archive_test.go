package archive_test

import (
	"context"
	"errors"
	"testing"

	"github.com/jmerrifield20/educoin/internal/archive"
	"github.com/jmerrifield20/educoin/internal/ledger"
)

var ctx = context.Background()

// sealedChain returns a chain of n blocks including genesis.
func sealedChain(t *testing.T, n int) []ledger.Block {
	t.Helper()
	e := ledger.New()
	for i := 1; i < n; i++ {
		if _, err := e.Record(ledger.NewTransaction(ledger.Issuer, "Alice", int64(i), ""), 123); err != nil {
			t.Fatal(err)
		}
	}
	return e.Chain()
}

func TestMemory_appendAndVerify(t *testing.T) {
	a := archive.NewMemory()
	chain := sealedChain(t, 4)
	for i := range chain {
		if err := a.Append(ctx, &chain[i]); err != nil {
			t.Fatalf("append block %d: %v", chain[i].Index, err)
		}
	}

	n, err := a.Len(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 4 {
		t.Errorf("expected 4 records, got %d", n)
	}
	if err := a.Verify(ctx); err != nil {
		t.Errorf("Verify() failed on intact archive: %v", err)
	}

	root, err := a.Root(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if root != chain[3].Hash {
		t.Errorf("Root(): got %q, want %q", root, chain[3].Hash)
	}

	rec, err := a.Get(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if string(rec.Body) != string(ledger.CanonicalBytes(&chain[1])) {
		t.Error("archived body is not the canonical encoding")
	}
}

func TestMemory_rejectsOutOfOrder(t *testing.T) {
	a := archive.NewMemory()
	chain := sealedChain(t, 3)

	if err := a.Append(ctx, &chain[1]); !errors.Is(err, archive.ErrOutOfOrder) {
		t.Errorf("appending block 2 first: got %v, want ErrOutOfOrder", err)
	}
	if err := a.Append(ctx, &chain[0]); err != nil {
		t.Fatal(err)
	}
	if err := a.Append(ctx, &chain[2]); !errors.Is(err, archive.ErrOutOfOrder) {
		t.Errorf("skipping block 2: got %v, want ErrOutOfOrder", err)
	}

	forged := chain[1]
	forged.PreviousHash = "deadbeef"
	if err := a.Append(ctx, &forged); !errors.Is(err, archive.ErrOutOfOrder) {
		t.Errorf("wrong previous hash: got %v, want ErrOutOfOrder", err)
	}
}

func TestMemory_verifyDetectsForgedHash(t *testing.T) {
	a := archive.NewMemory()
	chain := sealedChain(t, 2)
	if err := a.Append(ctx, &chain[0]); err != nil {
		t.Fatal(err)
	}

	// A block whose stored hash does not match its body.
	bad := chain[1]
	bad.Proof = 999
	if err := a.Append(ctx, &bad); err != nil {
		t.Fatal(err)
	}
	if err := a.Verify(ctx); !errors.Is(err, ledger.ErrHashMismatch) {
		t.Errorf("got %v, want ErrHashMismatch", err)
	}
}

func TestMemory_getOutOfRange(t *testing.T) {
	a := archive.NewMemory()
	if _, err := a.Get(ctx, 1); !errors.Is(err, archive.ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

func TestMemory_emptyRoot(t *testing.T) {
	root, err := archive.NewMemory().Root(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if root != "" {
		t.Errorf("empty archive root: got %q, want empty", root)
	}
}
