package zkp

import (
	"math/big"
	"testing"

	"github.com/veilchain/core/pkg/types"
)

func TestDeriveBatchChallengesDeterministic(t *testing.T) {
	nfs := []types.Hash{{1, 2, 3}, {4, 5, 6}}

	a1 := DeriveBatchChallenges(nfs)
	a2 := DeriveBatchChallenges(nfs)
	if a1 != a2 {
		t.Fatal("batch challenge derivation is not deterministic")
	}

	a3 := DeriveBatchChallenges([]types.Hash{{9, 9, 9}})
	if a3 == a1 {
		t.Fatal("changing the nullifier list should change the challenge")
	}
}

func TestDeriveBatchChallengesNeverZero(t *testing.T) {
	alpha := DeriveBatchChallenges(nil)
	if alpha == 0 {
		t.Fatal("the challenge must never be zero, even for an empty nullifier list")
	}
}

func TestSortedCombinedWitnessIsSorted(t *testing.T) {
	nfs := []types.Hash{{}, {0x2f}, {}, {0x01}}
	sorted := sortedCombinedWitness(nfs)

	if len(sorted) != len(nfs) {
		t.Fatalf("expected %d entries, got %d", len(nfs), len(sorted))
	}
	for i := 1; i < len(sorted); i++ {
		if sorted[i-1].Cmp(sorted[i]) > 0 {
			t.Fatalf("entries not ascending at index %d: %v > %v", i, sorted[i-1], sorted[i])
		}
	}

	zeroCount := 0
	for _, v := range sorted {
		if v.Cmp(big.NewInt(0)) == 0 {
			zeroCount++
		}
	}
	if zeroCount != 2 {
		t.Fatalf("expected the two zero (inactive-slot) nullifiers to fold to zero and sort first, got %d zeros", zeroCount)
	}
}

func TestNewBatchCircuitShapeSizing(t *testing.T) {
	shape := NewBatchCircuitShape(TreeDepth)

	if len(shape.Nullifiers) != MaxBatchSize*BatchMaxInputs {
		t.Fatalf("expected %d flattened nullifier slots, got %d", MaxBatchSize*BatchMaxInputs, len(shape.Nullifiers))
	}
	if len(shape.Commitments) != MaxBatchSize*BatchMaxOutputs {
		t.Fatalf("expected %d flattened commitment slots, got %d", MaxBatchSize*BatchMaxOutputs, len(shape.Commitments))
	}
	if len(shape.Txs) != MaxBatchSize {
		t.Fatalf("expected %d transaction slots, got %d", MaxBatchSize, len(shape.Txs))
	}
	for _, tx := range shape.Txs {
		if len(tx.InputPathSiblings[0]) != TreeDepth {
			t.Fatalf("expected authentication paths sized to the tree depth %d, got %d", TreeDepth, len(tx.InputPathSiblings[0]))
		}
	}
}
