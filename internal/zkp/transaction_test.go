package zkp

import (
	"context"
	"testing"

	"github.com/veilchain/core/pkg/types"
)

// testTreeDepth keeps the compiled circuit and the commitment tree small
// enough for Groth16 setup/proving to run inside a unit test.
const testTreeDepth = 4

// buildTestTransactionPool compiles a transaction circuit shaped for two
// inputs and two outputs and wires it into a fresh shielded pool.
func buildTestTransactionPool(t *testing.T) (*CircuitManager, *CommitmentTree, *ShieldedPool) {
	t.Helper()

	cm := NewCircuitManager()
	if err := cm.CompileTransactionCircuit(2, 2, testTreeDepth); err != nil {
		t.Fatalf("CompileTransactionCircuit: %v", err)
	}

	tree, err := NewCommitmentTree(testTreeDepth, 0)
	if err != nil {
		t.Fatalf("NewCommitmentTree: %v", err)
	}

	pool := NewShieldedPool(tree, NewNullifierSet(NewInMemoryNullifierStore(), nil), cm)
	return cm, tree, pool
}

func noteOf(value, asset uint64, pk, rho, r []byte) types.Note {
	var n types.Note
	n.Value = value
	n.AssetID = asset
	copy(n.PkRecipient[:], pk)
	copy(n.Rho[:], rho)
	copy(n.R[:], r)
	return n
}

// TestTransactionCircuitRoundTrip is scenario S2: a transaction spending a
// native-asset note and a non-native-asset note, producing change in both
// assets plus a fee, proves and verifies end to end through real
// frontend.Compile/groth16.Setup/groth16.Prove/groth16.Verify — not just the
// off-circuit hash helpers.
func TestTransactionCircuitRoundTrip(t *testing.T) {
	ctx := context.Background()
	cm, tree, pool := buildTestTransactionPool(t)

	in0 := noteOf(10, 0, bytesOf(1), bytesOf(2), bytesOf(3))
	in1 := noteOf(5, 7, bytesOf(4), bytesOf(5), bytesOf(6))

	pos0, _, err := tree.Append(commitmentOf(in0.Value, in0.AssetID, in0.PkRecipient[:], in0.Rho[:], in0.R[:]))
	if err != nil {
		t.Fatalf("append input 0: %v", err)
	}
	pos1, _, err := tree.Append(commitmentOf(in1.Value, in1.AssetID, in1.PkRecipient[:], in1.Rho[:], in1.R[:]))
	if err != nil {
		t.Fatalf("append input 1: %v", err)
	}

	tb := NewTransactionBuilder(cm, testTreeDepth)
	tb.AddInput(in0, bytesOf(9), pos0)
	tb.AddInput(in1, bytesOf(10), pos1)
	tb.AddOutput(noteOf(5, 0, bytesOf(11), nil, nil))
	tb.AddOutput(noteOf(5, 7, bytesOf(12), nil, nil))
	tb.SetFee(5)

	tx, err := tb.Build(ctx, tree)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	ok, err := pool.VerifyTransactionProof(ctx, tx)
	if err != nil {
		t.Fatalf("VerifyTransactionProof: %v", err)
	}
	if !ok {
		t.Fatal("expected the balanced two-asset transaction's proof to verify")
	}
}

// TestConsensusDoubleSpendRejected is scenario S3: a transaction applied
// once by ProcessTransaction must be rejected the second time because its
// nullifiers are already spent, even though the proof itself still verifies.
func TestConsensusDoubleSpendRejected(t *testing.T) {
	ctx := context.Background()
	cm, tree, pool := buildTestTransactionPool(t)

	in0 := noteOf(10, 0, bytesOf(1), bytesOf(2), bytesOf(3))
	in1 := noteOf(5, 7, bytesOf(4), bytesOf(5), bytesOf(6))

	pos0, _, err := tree.Append(commitmentOf(in0.Value, in0.AssetID, in0.PkRecipient[:], in0.Rho[:], in0.R[:]))
	if err != nil {
		t.Fatalf("append input 0: %v", err)
	}
	pos1, _, err := tree.Append(commitmentOf(in1.Value, in1.AssetID, in1.PkRecipient[:], in1.Rho[:], in1.R[:]))
	if err != nil {
		t.Fatalf("append input 1: %v", err)
	}

	tb := NewTransactionBuilder(cm, testTreeDepth)
	tb.AddInput(in0, bytesOf(9), pos0)
	tb.AddInput(in1, bytesOf(10), pos1)
	tb.AddOutput(noteOf(5, 0, bytesOf(11), nil, nil))
	tb.AddOutput(noteOf(5, 7, bytesOf(12), nil, nil))
	tb.SetFee(5)

	tx, err := tb.Build(ctx, tree)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if err := pool.ProcessTransaction(ctx, tx, 1); err != nil {
		t.Fatalf("first ProcessTransaction: %v", err)
	}

	if err := pool.ProcessTransaction(ctx, tx, 2); err != ErrNullifierSpent {
		t.Fatalf("expected ErrNullifierSpent on replay, got %v", err)
	}
}
