// Package types defines core data structures for the veilchain core.
package types

import (
	"crypto/sha256"
	"encoding/binary"
	"math/big"
	"time"
)

// Constants for the protocol.
const (
	// HashSize is the size of a hash in bytes.
	HashSize = 32

	// AddressSize is the size of an address in bytes.
	AddressSize = 20

	// SignatureSize is the size of an ECDSA signature.
	SignatureSize = 65

	// MaxTransactionsPerBlock is the maximum transactions in a single block.
	MaxTransactionsPerBlock = 10000

	// CoinbaseMaturity is the number of confirmations before coinbase can be spent.
	CoinbaseMaturity = 100
)

// Hash represents a 32-byte hash.
type Hash [HashSize]byte

// Address represents a 20-byte address (hash of a public key).
type Address [AddressSize]byte

// Signature represents a 65-byte ECDSA signature.
type Signature [SignatureSize]byte

// EmptyHash is the zero hash.
var EmptyHash = Hash{}

// EmptyAddress is the zero address.
var EmptyAddress = Address{}

// IsEmpty returns true if the hash is empty (all zeros).
func (h Hash) IsEmpty() bool {
	return h == EmptyHash
}

// Bytes returns the hash as a byte slice.
func (h Hash) Bytes() []byte {
	return h[:]
}

// String returns the hex string representation of the hash.
func (h Hash) String() string {
	return bytesToHex(h[:])
}

// HashFromBytes creates a Hash from a byte slice.
func HashFromBytes(b []byte) Hash {
	var h Hash
	if len(b) >= HashSize {
		copy(h[:], b[:HashSize])
	}
	return h
}

// BlockHeader is the metadata for a block in a single-parent PoW chain. The
// header commits to the proof, the fee schedule, the data-availability root,
// the nullifier set, the state and the validator set, rather than carrying
// any of that data directly.
type BlockHeader struct {
	// Hash is the hash of this header (computed, not serialized).
	Hash Hash

	// Version is the block format version.
	Version uint32

	// ParentHash is the hash of the preceding block. The genesis block is
	// the only header with an empty ParentHash.
	ParentHash Hash

	// ProofCommitment is the digest of the recursive proof attesting to the
	// validity of every transaction included in this block (or the batch
	// circuit's aggregate proof, before recursion folds it further).
	ProofCommitment Hash

	// VersionCommitment binds the header to the exact circuit/verifying-key
	// version the proof was produced against, so a future circuit upgrade
	// cannot be replayed against old verifying keys.
	VersionCommitment Hash

	// FeeCommitment is the digest of the block's aggregate fee accounting.
	FeeCommitment Hash

	// DataAvailabilityRoot roots the block's published transaction payload.
	DataAvailabilityRoot Hash

	// NullifierRoot is the blake3 digest of the nullifiers this block's
	// transactions reveal, in order; it does not commit to nullifiers spent
	// in earlier blocks.
	NullifierRoot Hash

	// CommitmentRoot is the commitment-tree root after applying this
	// block's transactions.
	CommitmentRoot Hash

	// StateRoot is the blake3 accumulator over the parent block's StateRoot
	// followed by the note commitments this block's transactions create.
	StateRoot Hash

	// ValidatorSetCommitment digests the active validator/miner set, for
	// chains that mix PoW block production with a validator-signed
	// finality layer; zero when unused.
	ValidatorSetCommitment Hash

	// SupplyDigest is the running commitment to total minted/burned
	// native-asset supply (see internal/supply).
	SupplyDigest Hash

	// Difficulty is the compact-bits PoW target this block's seal must
	// satisfy.
	Difficulty uint32

	// Nonce is the value found by the miner to satisfy the PoW seal.
	Nonce uint64

	// Timestamp is the Unix timestamp when this block was sealed.
	Timestamp uint64

	// Height is this block's position in the chain (genesis = 0).
	Height uint64

	// ExtraData is arbitrary miner-supplied data (bounded by consensus).
	ExtraData []byte
}

// Block represents a complete block including header and transactions.
type Block struct {
	Header       *BlockHeader
	Transactions []*Transaction

	// RecursiveProof, when non-empty, is a serialized outer aggregation
	// proof (the internal/recursion.EncodeAggregatedProof encoding, which
	// VerifyAggregationBytes decodes) attesting that
	// every transaction proof in this block (or a prior batch of blocks)
	// was individually verified. It is optional per block: a miner may
	// publish blocks proof-by-proof and aggregate later.
	RecursiveProof []byte
}

// NewBlock creates a new block with the given header and transactions.
func NewBlock(header *BlockHeader, txs []*Transaction) *Block {
	return &Block{
		Header:       header,
		Transactions: txs,
	}
}

// ComputeHash calculates the hash of the block header.
func (h *BlockHeader) ComputeHash() Hash {
	data := h.serializeForHash()
	return sha256.Sum256(data)
}

// serializeForHash serializes header fields for hashing.
func (h *BlockHeader) serializeForHash() []byte {
	buf := make([]byte, 0, 512)

	versionBytes := make([]byte, 4)
	binary.BigEndian.PutUint32(versionBytes, h.Version)
	buf = append(buf, versionBytes...)

	buf = append(buf, h.ParentHash[:]...)
	buf = append(buf, h.ProofCommitment[:]...)
	buf = append(buf, h.VersionCommitment[:]...)
	buf = append(buf, h.FeeCommitment[:]...)
	buf = append(buf, h.DataAvailabilityRoot[:]...)
	buf = append(buf, h.NullifierRoot[:]...)
	buf = append(buf, h.CommitmentRoot[:]...)
	buf = append(buf, h.StateRoot[:]...)
	buf = append(buf, h.ValidatorSetCommitment[:]...)
	buf = append(buf, h.SupplyDigest[:]...)

	diffBytes := make([]byte, 4)
	binary.BigEndian.PutUint32(diffBytes, h.Difficulty)
	buf = append(buf, diffBytes...)

	nonceBytes := make([]byte, 8)
	binary.BigEndian.PutUint64(nonceBytes, h.Nonce)
	buf = append(buf, nonceBytes...)

	tsBytes := make([]byte, 8)
	binary.BigEndian.PutUint64(tsBytes, h.Timestamp)
	buf = append(buf, tsBytes...)

	heightBytes := make([]byte, 8)
	binary.BigEndian.PutUint64(heightBytes, h.Height)
	buf = append(buf, heightBytes...)

	buf = append(buf, h.ExtraData...)

	return buf
}

// PreSealHash hashes every header field except Nonce, the value a miner
// varies while searching for a seal: work = H(pre_hash, nonce).
func (h *BlockHeader) PreSealHash() Hash {
	saved := h.Nonce
	h.Nonce = 0
	data := h.serializeForHash()
	// Nonce sits at a fixed offset within serializeForHash's buffer; since
	// it's zeroed above, the pre-seal hash is stable regardless of the
	// actual nonce being searched.
	h.Nonce = saved
	return sha256.Sum256(data)
}

// IsGenesis returns true if this is the genesis block (no parent).
func (h *BlockHeader) IsGenesis() bool {
	return h.ParentHash.IsEmpty() && h.Height == 0
}

// Time returns the block timestamp as a time.Time.
func (h *BlockHeader) Time() time.Time {
	return time.Unix(int64(h.Timestamp), 0)
}

// Work returns the amount of expected hashing work a difficulty target
// represents: work = 2^256 / (target + 1), with target derived from the
// compact difficulty encoding by the caller (internal/consensus).
func Work(target *big.Int) *big.Int {
	if target == nil || target.Sign() <= 0 {
		return big.NewInt(0)
	}
	maxTarget := new(big.Int).Lsh(big.NewInt(1), 256)
	divisor := new(big.Int).Add(target, big.NewInt(1))
	return new(big.Int).Div(maxTarget, divisor)
}

// bytesToHex converts bytes to a hex string.
func bytesToHex(b []byte) string {
	const hexChars = "0123456789abcdef"
	result := make([]byte, len(b)*2)
	for i, v := range b {
		result[i*2] = hexChars[v>>4]
		result[i*2+1] = hexChars[v&0x0f]
	}
	return string(result)
}
