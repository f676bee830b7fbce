// Package epoch implements the proof-hash accumulator, epoch headers and
// light-client Merkle inclusion that let a client verify a transaction was
// admitted without replaying the whole chain: every EPOCH_SIZE blocks, the
// proof hashes of every admitted transaction are folded into a Merkle root
// and a sponge accumulator, and the resulting epoch header is what a light
// client actually trusts.
package epoch

import (
	"encoding/binary"

	"github.com/zeebo/blake3"

	"github.com/veilchain/core/pkg/types"
)

// EpochSize is the number of blocks accumulated into one epoch.
const EpochSize = 1000

const (
	proofHashDomain      = "veilchain-proof-hash-v1"
	batchProofHashDomain = "veilchain-batch-proof-hash-v1"
)

// Epoch is the metadata committed to by one epoch's proof: the block range
// it covers and the four roots a light client needs to check a claim
// against (proof hashes, chain state, spent nullifiers, open commitments).
type Epoch struct {
	EpochNumber        uint64
	StartBlock         uint64
	EndBlock           uint64
	ProofRoot          types.Hash
	StateRoot          types.Hash
	NullifierSetRoot   types.Hash
	CommitmentTreeRoot types.Hash
}

// NewEpoch derives the block range of epoch number from EpochSize; the four
// roots start zeroed and are filled in once the epoch closes.
func NewEpoch(epochNumber uint64) Epoch {
	return Epoch{
		EpochNumber: epochNumber,
		StartBlock:  epochNumber * EpochSize,
		EndBlock:    (epochNumber+1)*EpochSize - 1,
	}
}

// Commitment hashes the epoch's metadata into the public fingerprint an
// epoch proof attests to: blake3 over the little-endian-encoded numeric
// fields followed by the four roots, in field order.
func (e Epoch) Commitment() types.Hash {
	var buf [3 * 8]byte
	binary.LittleEndian.PutUint64(buf[0:8], e.EpochNumber)
	binary.LittleEndian.PutUint64(buf[8:16], e.StartBlock)
	binary.LittleEndian.PutUint64(buf[16:24], e.EndBlock)

	h := blake3.New()
	h.Write(buf[:])
	h.Write(e.ProofRoot[:])
	h.Write(e.StateRoot[:])
	h.Write(e.NullifierSetRoot[:])
	h.Write(e.CommitmentTreeRoot[:])

	var out types.Hash
	copy(out[:], h.Sum(nil))
	return out
}

// ContainsBlock reports whether blockNumber falls within this epoch's range.
func (e Epoch) ContainsBlock(blockNumber uint64) bool {
	return blockNumber >= e.StartBlock && blockNumber <= e.EndBlock
}

// EpochForBlock returns the epoch number a block belongs to.
func EpochForBlock(blockNumber uint64) uint64 {
	return blockNumber / EpochSize
}

// ProofHashInputs is the public-input material a single transaction proof
// is bound to before it becomes an epoch leaf.
type ProofHashInputs struct {
	Anchor       types.Hash
	Nullifiers   []types.Hash
	Commitments  []types.Hash
	Fee          uint64
	ValueBalance int64
	ProofBytes   []byte
}

// ProofHash binds a transaction proof's public inputs into one leaf value
// for the epoch's proof-hash accumulator, domain-separated from
// BatchProofHash so a single-tx leaf can never be replayed as a batch leaf.
func ProofHash(in ProofHashInputs) types.Hash {
	h := blake3.New()
	h.Write([]byte(proofHashDomain))
	h.Write(in.Anchor[:])

	writeHashList(h, in.Nullifiers)
	writeHashList(h, in.Commitments)

	var num [8]byte
	binary.LittleEndian.PutUint64(num[:], in.Fee)
	h.Write(num[:])
	binary.LittleEndian.PutUint64(num[:], uint64(in.ValueBalance))
	h.Write(num[:])

	writeLenPrefixed(h, in.ProofBytes)

	var out types.Hash
	copy(out[:], h.Sum(nil))
	return out
}

// BatchProofHashInputs is the public-input material a batch proof is bound
// to before it becomes an epoch leaf.
type BatchProofHashInputs struct {
	Anchor      types.Hash
	Nullifiers  []types.Hash
	Commitments []types.Hash
	TotalFee    uint64
	BatchSize   uint32
	ProofBytes  []byte
}

// BatchProofHash is ProofHash's batch-proof counterpart: total_fee and
// batch_size replace a single transaction's fee and signed value balance.
func BatchProofHash(in BatchProofHashInputs) types.Hash {
	h := blake3.New()
	h.Write([]byte(batchProofHashDomain))
	h.Write(in.Anchor[:])

	var size [4]byte
	binary.LittleEndian.PutUint32(size[:], in.BatchSize)
	h.Write(size[:])

	writeHashList(h, in.Nullifiers)
	writeHashList(h, in.Commitments)

	var fee [8]byte
	binary.LittleEndian.PutUint64(fee[:], in.TotalFee)
	h.Write(fee[:])

	writeLenPrefixed(h, in.ProofBytes)

	var out types.Hash
	copy(out[:], h.Sum(nil))
	return out
}

func writeHashList(h *blake3.Hasher, list []types.Hash) {
	var n [4]byte
	binary.LittleEndian.PutUint32(n[:], uint32(len(list)))
	h.Write(n[:])
	for _, v := range list {
		h.Write(v[:])
	}
}

func writeLenPrefixed(h *blake3.Hasher, b []byte) {
	var n [4]byte
	binary.LittleEndian.PutUint32(n[:], uint32(len(b)))
	h.Write(n[:])
	h.Write(b)
}
