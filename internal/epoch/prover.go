package epoch

import (
	"github.com/veilchain/core/internal/field"
	"github.com/veilchain/core/pkg/types"
)

// EpochProof is the result of proving an epoch: the closed epoch header
// plus the sponge accumulator over the epoch's proof hashes. The original
// core wraps this in a STARK proof of the absorb trace; here the heavy
// proving work already happened at the transaction/batch circuit layer; the
// epoch layer's job is to commit to, and let a light client verify
// inclusion in, the list of proof hashes those circuits produced.
type EpochProof struct {
	Epoch            Epoch
	ProofAccumulator field.Digest
	NumProofs        uint32
}

// EpochProver folds an epoch's transaction proof hashes into a proof
// accumulator and closes out the epoch header.
type EpochProver struct{}

// NewEpochProver constructs an epoch prover.
func NewEpochProver() *EpochProver {
	return &EpochProver{}
}

// Prove absorbs proofHashes into a domain-tagged sponge to produce the
// epoch's proof accumulator, computes the Merkle root over the same list,
// and returns the closed epoch (with ProofRoot filled in) alongside the
// accumulator.
func (p *EpochProver) Prove(epoch Epoch, proofHashes []types.Hash) (*EpochProof, error) {
	if len(proofHashes) == 0 {
		return nil, ErrEmptyEpoch
	}

	accumulator := proofAccumulator(proofHashes)

	closed := epoch
	closed.ProofRoot = ComputeProofRoot(proofHashes)

	return &EpochProof{
		Epoch:            closed,
		ProofAccumulator: accumulator,
		NumProofs:        uint32(len(proofHashes)),
	}, nil
}

// Verify recomputes the proof accumulator and proof root from proofHashes
// and checks them against ep, the way a light client re-derives an epoch
// proof's claims before trusting its header commitment.
func (p *EpochProver) Verify(ep *EpochProof, proofHashes []types.Hash) (bool, error) {
	if len(proofHashes) == 0 {
		return false, ErrEmptyEpoch
	}
	if uint32(len(proofHashes)) != ep.NumProofs {
		return false, nil
	}
	if proofAccumulator(proofHashes) != ep.ProofAccumulator {
		return false, ErrAccumulatorMismatch
	}
	return ComputeProofRoot(proofHashes) == ep.Epoch.ProofRoot, nil
}

// proofAccumulator absorbs every proof hash, as four Goldilocks limbs each,
// into one domain-tagged sponge call and returns its digest.
func proofAccumulator(proofHashes []types.Hash) field.Digest {
	elements := make([]field.Element, 0, len(proofHashes)*4)
	for _, h := range proofHashes {
		d, err := field.Bytes32ToDigest(h)
		if err != nil {
			elements = append(elements, field.BytesToElements(h[:])...)
			continue
		}
		elements = append(elements, d[0], d[1], d[2], d[3])
	}
	return field.SpongeHash(field.DomainEpoch, elements)
}

// LightClient verifies block inclusion against a trusted set of closed
// epoch headers, without needing to replay or store the underlying proof
// hashes.
type LightClient struct {
	epochs map[uint64]Epoch
}

// NewLightClient creates a light client with no trusted epochs yet.
func NewLightClient() *LightClient {
	return &LightClient{epochs: make(map[uint64]Epoch)}
}

// TrustEpoch records epoch as trusted, keyed by its epoch number. A real
// deployment gates this on verifying ep against a checkpoint or a chain of
// prior epoch commitments; that trust-bootstrap policy lives with the
// caller, not here.
func (lc *LightClient) TrustEpoch(e Epoch) {
	lc.epochs[e.EpochNumber] = e
}

// VerifyInclusion checks that proofHash is included, at index, in the
// trusted epoch covering blockNumber, via a Merkle path against that
// epoch's proof root.
func (lc *LightClient) VerifyInclusion(blockNumber uint64, proofHash types.Hash, index int, path []types.Hash) (bool, error) {
	epochNumber := EpochForBlock(blockNumber)
	e, ok := lc.epochs[epochNumber]
	if !ok {
		return false, ErrEmptyEpoch
	}
	if !e.ContainsBlock(blockNumber) {
		return false, ErrMerklePathInvalid
	}
	if !VerifyMerkleProof(e.ProofRoot, proofHash, index, path) {
		return false, ErrMerklePathInvalid
	}
	return true, nil
}
