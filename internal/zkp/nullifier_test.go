package zkp

import (
	"context"
	"testing"
)

func TestNullifierUniquenessWithinSet(t *testing.T) {
	set := NewNullifierSet(NewInMemoryNullifierStore(), nil)
	ctx := context.Background()

	nf := DeriveNullifier([]byte("sk"), bytesOf(1), 0)
	if err := set.MarkSpent(ctx, nf, [32]byte{}, 1); err != nil {
		t.Fatalf("first spend: %v", err)
	}
	if err := set.MarkSpent(ctx, nf, [32]byte{}, 1); err != ErrNullifierSpent {
		t.Fatalf("expected ErrNullifierSpent, got %v", err)
	}
}

func TestZeroNullifierRejected(t *testing.T) {
	set := NewNullifierSet(NewInMemoryNullifierStore(), nil)
	if err := set.MarkSpent(context.Background(), Commitment{}, [32]byte{}, 1); err != ErrZeroNullifier {
		t.Fatalf("expected ErrZeroNullifier, got %v", err)
	}
}

func TestDeriveNullifierDeterministic(t *testing.T) {
	a := DeriveNullifier([]byte("sk"), bytesOf(7), 3)
	b := DeriveNullifier([]byte("sk"), bytesOf(7), 3)
	if a != b {
		t.Fatal("nullifier derivation is not deterministic")
	}
	c := DeriveNullifier([]byte("sk"), bytesOf(7), 4)
	if a == c {
		t.Fatal("changing position should change the nullifier")
	}
}
