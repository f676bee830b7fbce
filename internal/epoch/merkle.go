package epoch

import (
	"github.com/zeebo/blake3"

	"github.com/veilchain/core/pkg/types"
)

func hashPair(left, right types.Hash) types.Hash {
	var combined [64]byte
	copy(combined[:32], left[:])
	copy(combined[32:], right[:])
	sum := blake3.Sum256(combined[:])
	return types.Hash(sum)
}

// ComputeProofRoot folds a list of proof hashes into a single Merkle root,
// padding with zero leaves up to the next power of two. An empty list
// roots to the zero hash; a single leaf is its own root.
func ComputeProofRoot(proofHashes []types.Hash) types.Hash {
	if len(proofHashes) == 0 {
		return types.Hash{}
	}
	if len(proofHashes) == 1 {
		return proofHashes[0]
	}

	leaves := padToPowerOfTwo(proofHashes)
	for len(leaves) > 1 {
		next := make([]types.Hash, len(leaves)/2)
		for i := range next {
			next[i] = hashPair(leaves[2*i], leaves[2*i+1])
		}
		leaves = next
	}
	return leaves[0]
}

// GenerateMerkleProof returns the sibling hashes from leaf index to root,
// in leaf-to-root order, for inclusion of proofHashes[index] in
// ComputeProofRoot(proofHashes).
func GenerateMerkleProof(proofHashes []types.Hash, index int) []types.Hash {
	if len(proofHashes) == 0 || index >= len(proofHashes) || len(proofHashes) == 1 {
		return nil
	}

	leaves := padToPowerOfTwo(proofHashes)
	idx := index

	var proof []types.Hash
	for len(leaves) > 1 {
		siblingIdx := idx ^ 1
		proof = append(proof, leaves[siblingIdx])

		next := make([]types.Hash, len(leaves)/2)
		for i := range next {
			next[i] = hashPair(leaves[2*i], leaves[2*i+1])
		}
		leaves = next
		idx /= 2
	}
	return proof
}

// VerifyMerkleProof recomputes the root from leaf up through proof and
// reports whether it matches root.
func VerifyMerkleProof(root, leaf types.Hash, index int, proof []types.Hash) bool {
	current := leaf
	idx := index
	for _, sibling := range proof {
		if idx%2 == 0 {
			current = hashPair(current, sibling)
		} else {
			current = hashPair(sibling, current)
		}
		idx /= 2
	}
	return current == root
}

func padToPowerOfTwo(hashes []types.Hash) []types.Hash {
	n := 1
	for n < len(hashes) {
		n *= 2
	}
	leaves := make([]types.Hash, n)
	copy(leaves, hashes)
	return leaves
}
