// Package types defines core transaction structures for the veilchain core.
// Transactions use zk-SNARKs to hide sender, receiver and amount.
package types

import (
	"crypto/sha256"
	"encoding/binary"
)

// Note is a shielded output: value, asset, recipient and the randomness
// needed to recompute its commitment and (once spent) its nullifier.
type Note struct {
	Value        uint64
	AssetID      uint64
	PkRecipient  [32]byte
	Rho          [32]byte
	R            [32]byte
}

// Transaction represents a shielded transaction.
// It uses zk-SNARKs to hide sender, receiver, and amount while proving
// validity against the commitment-tree anchor and the nullifier set.
type Transaction struct {
	// TxHash is the unique identifier for this transaction.
	TxHash Hash

	// Version is the transaction format version, bound into the proof's
	// public inputs so a verifying-key upgrade cannot be replayed.
	Version uint32

	// Anchor is the commitment-tree root the input notes are proven
	// against. It must be within the tree's bounded root history at the
	// time this transaction is applied.
	Anchor Hash

	// Nullifiers are the spend tags for this transaction's input notes.
	// A zero entry marks an absent input slot, never a real nullifier.
	Nullifiers []Hash

	// Commitments are the output note commitments this transaction adds
	// to the commitment tree.
	Commitments []Hash

	// BalanceTag commits to the transaction's per-asset net value flow;
	// it is the public handle consensus uses to enforce conservation
	// without learning any individual note's value.
	BalanceTag Hash

	// Fee is the explicit public transaction fee in the native asset's
	// base units.
	Fee uint64

	// ValueBalance permits controlled transparency when a surrounding
	// layer admits it; the default policy forces it to zero, so native
	// conservation always reduces to inputs minus outputs equaling fee.
	ValueBalance uint64

	// Proof is the zk-SNARK proof attesting to this transaction's
	// validity.
	Proof ZKProof

	// Memo is an optional encrypted memo field.
	Memo []byte
}

// ZKProof represents a zk-SNARK proof (Groth16, in this implementation).
type ZKProof struct {
	// ProofData contains the serialized proof.
	ProofData []byte

	// PublicInputs contains the public inputs to the circuit, encoded as
	// canonical 32-byte field-element digests.
	PublicInputs []Hash
}

// NewTransaction creates a new, empty transaction.
func NewTransaction() *Transaction {
	return &Transaction{
		Version:     1,
		Nullifiers:  make([]Hash, 0),
		Commitments: make([]Hash, 0),
	}
}

// ComputeHash calculates the transaction hash.
func (tx *Transaction) ComputeHash() Hash {
	data := tx.serializeForHash()
	return sha256.Sum256(data)
}

// serializeForHash serializes transaction fields for hashing.
func (tx *Transaction) serializeForHash() []byte {
	buf := make([]byte, 0, 4096)

	versionBytes := make([]byte, 4)
	binary.BigEndian.PutUint32(versionBytes, tx.Version)
	buf = append(buf, versionBytes...)

	buf = append(buf, tx.Anchor[:]...)

	for _, nullifier := range tx.Nullifiers {
		buf = append(buf, nullifier[:]...)
	}

	for _, commitment := range tx.Commitments {
		buf = append(buf, commitment[:]...)
	}

	buf = append(buf, tx.BalanceTag[:]...)

	feeBytes := make([]byte, 8)
	binary.BigEndian.PutUint64(feeBytes, tx.Fee)
	buf = append(buf, feeBytes...)

	valueBalanceBytes := make([]byte, 8)
	binary.BigEndian.PutUint64(valueBalanceBytes, tx.ValueBalance)
	buf = append(buf, valueBalanceBytes...)

	buf = append(buf, tx.Proof.ProofData...)

	return buf
}

// IsShielded returns true if this transaction spends or creates shielded
// notes (as opposed to being, say, a coinbase with only outputs).
func (tx *Transaction) IsShielded() bool {
	return len(tx.Nullifiers) > 0 || len(tx.Commitments) > 0
}

// TxSize returns the serialized size of the transaction in bytes.
func (tx *Transaction) TxSize() int {
	size := 4 // Version
	size += HashSize // Anchor
	size += len(tx.Nullifiers) * HashSize
	size += len(tx.Commitments) * HashSize
	size += HashSize // BalanceTag
	size += 8        // Fee
	size += 8        // ValueBalance
	size += len(tx.Proof.ProofData) + len(tx.Proof.PublicInputs)*HashSize
	size += len(tx.Memo)
	return size
}

