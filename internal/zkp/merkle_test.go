package zkp

import (
	"testing"
)

func commitmentOf(value, asset uint64, pk, rho, r []byte) Commitment {
	return nativeElementToBytes32(nativeNoteCommitment(value, asset, pk, rho, r))
}

func bytesOf(b byte) []byte {
	out := make([]byte, 32)
	for i := range out {
		out[i] = b
	}
	return out
}

// TestTwoLeafRootConsistency is scenario S1: build a depth-32 tree, append
// two leaves, recompute the root independently and verify both
// authentication paths.
func TestTwoLeafRootConsistency(t *testing.T) {
	tree, err := NewCommitmentTree(32, 0)
	if err != nil {
		t.Fatalf("NewCommitmentTree: %v", err)
	}

	l0 := commitmentOf(8, 0, bytesOf(2), bytesOf(3), bytesOf(4))
	l1 := commitmentOf(5, 1, bytesOf(5), bytesOf(6), bytesOf(7))

	idx0, root0, err := tree.Append(l0)
	if err != nil {
		t.Fatalf("append l0: %v", err)
	}
	idx1, root1, err := tree.Append(l1)
	if err != nil {
		t.Fatalf("append l1: %v", err)
	}

	if idx0 != 0 || idx1 != 1 {
		t.Fatalf("unexpected leaf positions: %d, %d", idx0, idx1)
	}
	if root1 != tree.Root() {
		t.Fatalf("tree root mismatch after two appends")
	}
	_ = root0

	path0, err := tree.AuthenticationPath(idx0)
	if err != nil {
		t.Fatalf("path0: %v", err)
	}
	path1, err := tree.AuthenticationPath(idx1)
	if err != nil {
		t.Fatalf("path1: %v", err)
	}

	if !VerifyPath(l0, idx0, path0, tree.Root()) {
		t.Fatal("leaf 0 authentication path does not verify against the current root")
	}
	if !VerifyPath(l1, idx1, path1, tree.Root()) {
		t.Fatal("leaf 1 authentication path does not verify against the current root")
	}
}

func TestTreeFullBoundary(t *testing.T) {
	tree, err := NewCommitmentTree(1, 0)
	if err != nil {
		t.Fatalf("NewCommitmentTree: %v", err)
	}
	if _, _, err := tree.Append(commitmentOf(1, 0, nil, nil, nil)); err != nil {
		t.Fatalf("first append: %v", err)
	}
	if _, _, err := tree.Append(commitmentOf(2, 0, nil, nil, nil)); err != nil {
		t.Fatalf("second append: %v", err)
	}
	if _, _, err := tree.Append(commitmentOf(3, 0, nil, nil, nil)); err != ErrTreeFull {
		t.Fatalf("expected ErrTreeFull, got %v", err)
	}
}

func TestInvalidLeafIndexBoundary(t *testing.T) {
	tree, _ := NewCommitmentTree(4, 0)
	tree.Append(commitmentOf(1, 0, nil, nil, nil))
	if _, err := tree.AuthenticationPath(tree.LeafCount()); err != ErrInvalidLeafIndex {
		t.Fatalf("expected ErrInvalidLeafIndex, got %v", err)
	}
}

// TestAnchorStaleness is scenario S4: after enough appends, an old root
// falls out of the bounded history window.
func TestAnchorStaleness(t *testing.T) {
	tree, err := NewCommitmentTree(32, 100)
	if err != nil {
		t.Fatalf("NewCommitmentTree: %v", err)
	}
	genesisRoot := tree.Root()

	for i := 0; i < 101; i++ {
		if _, _, err := tree.Append(commitmentOf(uint64(i), 0, nil, nil, nil)); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}

	if tree.ContainsRoot(genesisRoot) {
		t.Fatal("genesis root should have been evicted from root history after 101 appends")
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	tree, _ := NewCommitmentTree(8, 10)
	for i := 0; i < 3; i++ {
		tree.Append(commitmentOf(uint64(i), 0, nil, nil, nil))
	}

	snap := tree.Snapshot()
	restored, err := FromCompact(snap)
	if err != nil {
		t.Fatalf("FromCompact: %v", err)
	}
	if restored.Root() != tree.Root() {
		t.Fatal("restored tree root mismatch")
	}
	if restored.LeafCount() != tree.LeafCount() {
		t.Fatal("restored tree leaf count mismatch")
	}
}
