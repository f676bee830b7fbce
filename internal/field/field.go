// Package field implements the Goldilocks prime field and an algebraic
// sponge hash over it. internal/epoch hashes with this sponge; internal/zkp
// hashes over BN254 instead and reuses only its constants, domain tags and
// Width.
package field

import (
	"encoding/binary"
	"errors"

	"github.com/consensys/gnark-crypto/field/goldilocks"
)

// Element is a value in the 64-bit Goldilocks field p = 2^64 - 2^32 + 1.
type Element = goldilocks.Element

// Digest is the canonical 4-limb hash output of the sponge (rate 2, two
// squeezes), matching the circuit's public-input encoding.
type Digest [4]Element

// Width of the Poseidon-like permutation state: rate 2, capacity 1.
const width = 3
const rounds = 63

// Domain tags separate the sponge's use sites. Mixing them is a correctness
// bug, so every call site must route through the named constant.
const (
	DomainNote      uint64 = 0x6e6f74652d76310a // "note-v1\n"
	DomainMerkle    uint64 = 0x6d726b6c2d763100 // "mrkl-v1"
	DomainNullifier uint64 = 0x6e756c6c2d763100 // "null-v1"
	DomainBalance   uint64 = 0x62616c6e2d763100 // "baln-v1"
	DomainEpoch     uint64 = 0x65706f63682d7631 // "epoch-v1"
)

// ErrNonCanonical is returned when a byte encoding has a limb that is not
// strictly less than the field modulus.
var ErrNonCanonical = errors.New("field: non-canonical byte encoding")

func zero() Element {
	var e Element
	return e
}

func newElement(v uint64) Element {
	var e Element
	e.SetUint64(v)
	return e
}

// mix applies the fixed MDS matrix to the sponge state.
func mix(state *[width]Element) {
	snapshot := *state
	var out [width]Element
	for row := 0; row < width; row++ {
		var acc Element
		for col := 0; col < width; col++ {
			var term Element
			term.Mul(&snapshot[col], &mdsMatrix[row][col])
			acc.Add(&acc, &term)
		}
		out[row] = acc
	}
	*state = out
}

// sbox computes x^5 in place.
func sbox(e *Element) {
	var sq, quad Element
	sq.Mul(e, e)
	quad.Mul(&sq, &sq)
	e.Mul(&quad, e)
}

func permutation(state *[width]Element) {
	for round := 0; round < rounds; round++ {
		for pos := range state {
			state[pos].Add(&state[pos], &roundConstants[round][pos])
		}
		for pos := range state {
			sbox(&state[pos])
		}
		mix(state)
	}
}

func absorb(state *[width]Element, chunk [width - 1]Element) {
	for i, v := range chunk {
		state[i].Add(&state[i], &v)
	}
	permutation(state)
}

// SpongeSingle absorbs inputs with the given domain tag and squeezes a
// single field element. Used for the PRF key and the balance commitment,
// whose public encoding is a single element rather than a 4-limb digest.
func SpongeSingle(domainTag uint64, inputs []Element) Element {
	state := [width]Element{newElement(domainTag), zero(), newElement(1)}
	rate := width - 1
	cursor := 0
	for cursor < len(inputs) {
		take := rate
		if remaining := len(inputs) - cursor; remaining < take {
			take = remaining
		}
		var chunk [width - 1]Element
		copy(chunk[:], inputs[cursor:cursor+take])
		absorb(&state, chunk)
		cursor += take
	}
	return state[0]
}

// SpongeHash absorbs inputs with the given domain tag and squeezes a
// 4-limb digest: two elements from the pre-permutation state, two more
// after one additional permutation. This mirrors note_commitment,
// merkle_node and nullifier in the original hashing core.
func SpongeHash(domainTag uint64, inputs []Element) Digest {
	state := [width]Element{newElement(domainTag), zero(), newElement(1)}
	rate := width - 1
	cursor := 0
	for cursor < len(inputs) {
		take := rate
		if remaining := len(inputs) - cursor; remaining < take {
			take = remaining
		}
		var chunk [width - 1]Element
		copy(chunk[:], inputs[cursor:cursor+take])
		absorb(&state, chunk)
		cursor += take
	}
	var out Digest
	out[0], out[1] = state[0], state[1]
	permutation(&state)
	out[2], out[3] = state[0], state[1]
	return out
}

// BytesToElements splits a byte slice into big-endian 8-byte-limb field
// elements, right-aligning a short final chunk (matching the original
// core's bytes_to_field_elements).
func BytesToElements(data []byte) []Element {
	out := make([]Element, 0, (len(data)+7)/8)
	for len(data) > 0 {
		take := 8
		if len(data) < take {
			take = len(data)
		}
		var buf [8]byte
		copy(buf[8-take:], data[:take])
		out = append(out, newElement(binary.BigEndian.Uint64(buf[:])))
		data = data[take:]
	}
	return out
}

// FeltToBytes32 left-pads a single field element into a 32-byte buffer,
// matching felt_to_bytes32 — used for single-element public values such as
// the balance tag and the PRF key commitment.
func FeltToBytes32(e Element) [32]byte {
	var out [32]byte
	b := e.Bytes()
	copy(out[24:], b[:])
	return out
}

// DigestToBytes32 packs 4 field elements into 32 canonical big-endian bytes,
// 8 bytes per limb (felts_to_bytes32).
func DigestToBytes32(d Digest) [32]byte {
	var out [32]byte
	for i, e := range d {
		b := e.Bytes()
		copy(out[i*8:i*8+8], b[:])
	}
	return out
}

// IsCanonicalBytes32 reports whether every 8-byte limb of b is strictly
// less than the field modulus. Every external byte-to-field boundary must
// gate on this before trusting the decoded value.
func IsCanonicalBytes32(b [32]byte) bool {
	for i := 0; i < 4; i++ {
		limb := binary.BigEndian.Uint64(b[i*8 : i*8+8])
		if limb >= goldilocksModulus {
			return false
		}
	}
	return true
}

// Bytes32ToDigest decodes a canonical 32-byte encoding into a 4-limb digest,
// rejecting non-canonical limbs.
func Bytes32ToDigest(b [32]byte) (Digest, error) {
	if !IsCanonicalBytes32(b) {
		return Digest{}, ErrNonCanonical
	}
	var d Digest
	for i := range d {
		d[i] = newElement(binary.BigEndian.Uint64(b[i*8 : i*8+8]))
	}
	return d, nil
}

const goldilocksModulus uint64 = 0xFFFFFFFF00000001

func elementToU64(e Element) uint64 {
	b := e.Bytes()
	return binary.BigEndian.Uint64(b[:])
}

// ElementToU64 exposes a field element's canonical uint64 value, for
// callers assigning circuit witnesses outside the Goldilocks field.
func ElementToU64(e Element) uint64 {
	return elementToU64(e)
}

// DigestLimbsU64 extracts a digest's four limbs as raw uint64 values, for
// witness assignment into circuits that mirror the sponge as separate
// per-limb variables.
func DigestLimbsU64(d Digest) [4]uint64 {
	var out [4]uint64
	for i, e := range d {
		out[i] = elementToU64(e)
	}
	return out
}

// MDSMatrixU64 exposes the sponge's MDS coefficients as raw uint64 values,
// so circuits whose native field differs from Goldilocks (e.g. a gnark
// circuit over the proving curve's scalar field) can rebuild the same
// NUMS constants as in-circuit field constants without re-deriving them.
func MDSMatrixU64() [width][width]uint64 {
	var out [width][width]uint64
	for i := range mdsMatrix {
		for j := range mdsMatrix[i] {
			out[i][j] = elementToU64(mdsMatrix[i][j])
		}
	}
	return out
}

// RoundConstantsU64 exposes the sponge's round constants as raw uint64
// values; see MDSMatrixU64.
func RoundConstantsU64() [rounds][width]uint64 {
	var out [rounds][width]uint64
	for i := range roundConstants {
		for j := range roundConstants[i] {
			out[i][j] = elementToU64(roundConstants[i][j])
		}
	}
	return out
}

// Rounds is the number of permutation rounds (exported for circuits that
// size fixed-length loops from it).
const Rounds = rounds

// Width is the sponge's state width (exported for the same reason).
const Width = width


// NoteCommitment hashes a note's plaintext fields into its on-chain digest.
func NoteCommitment(value, assetID uint64, pk, rho, r []byte) Digest {
	inputs := make([]Element, 0, 2+len(pk)/8+len(rho)/8+len(r)/8+3)
	inputs = append(inputs, newElement(value), newElement(assetID))
	inputs = append(inputs, BytesToElements(pk)...)
	inputs = append(inputs, BytesToElements(rho)...)
	inputs = append(inputs, BytesToElements(r)...)
	return SpongeHash(DomainNote, inputs)
}

// MerkleNode combines two child digests into a parent digest. The limb
// reorder (last-two-then-first-two of each child) mirrors the reference
// core's merkle_node and must be preserved exactly for root compatibility.
func MerkleNode(left, right Digest) Digest {
	inputs := []Element{
		left[2], left[3], left[0], left[1],
		right[2], right[3], right[0], right[1],
	}
	return SpongeHash(DomainMerkle, inputs)
}

// Nullifier derives the spend tag for an input note.
func Nullifier(prfKey Element, rho []byte, position uint64) Digest {
	inputs := make([]Element, 0, 2+len(rho)/8+1)
	inputs = append(inputs, prfKey, newElement(position))
	inputs = append(inputs, BytesToElements(rho)...)
	return SpongeHash(DomainNullifier, inputs)
}

// PRFKey derives a wallet's per-session nullifier PRF key from its spending
// key, under the nullifier domain tag rather than a dedicated one — this
// matches the original hashing core's prf_key, which reuses
// NULLIFIER_DOMAIN_TAG for key derivation instead of a separate constant.
func PRFKey(skSpend []byte) Element {
	return SpongeSingle(DomainNullifier, BytesToElements(skSpend))
}

// BalanceSlot is one per-asset net flow used in the balance tag.
type BalanceSlot struct {
	AssetID uint64
	Delta   int64
}

// BalanceTag computes the consensus-visible commitment to a transaction's
// per-asset net flow: H(native_delta, asset_id_1, delta_1, ...), with
// slots assumed pre-sorted by asset ID by the caller (witness construction
// sorts before calling this).
func BalanceTag(nativeDelta int64, slots []BalanceSlot) Element {
	inputs := make([]Element, 0, 1+2*len(slots))
	inputs = append(inputs, signedElement(nativeDelta))
	for _, s := range slots {
		inputs = append(inputs, newElement(s.AssetID), signedElement(s.Delta))
	}
	return SpongeSingle(DomainBalance, inputs)
}

// signedElement maps a signed magnitude onto the field by encoding its
// absolute value; the balance tag is a commitment to unsigned magnitudes
// the same way the reference core's balance_commitment operates on
// unsigned_abs() magnitudes, with the sign implied by which side
// (input/output) enforced the conservation constraint.
func signedElement(v int64) Element {
	if v < 0 {
		v = -v
	}
	return newElement(uint64(v))
}
