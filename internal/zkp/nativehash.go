package zkp

import (
	"errors"
	"math/big"

	bn254fr "github.com/consensys/gnark-crypto/ecc/bn254/fr"

	"github.com/veilchain/core/internal/field"
)

// nativeElement is a BN254 scalar-field element: the off-circuit twin of a
// frontend.Variable inside the sponge gadgets in gadgets.go. Every function
// in this file mirrors its *Gadget counterpart exactly — same constants
// (field.MDSMatrixU64/field.RoundConstantsU64), same domain tags, same
// absorb/squeeze schedule — so a witness built here satisfies the circuit
// that re-derives it. See DESIGN.md for why the commitment-tree and
// nullifier-set hashing moved off internal/field's Goldilocks sponge onto
// this one, while internal/field itself stays untouched.
type nativeElement = bn254fr.Element

// ErrNonCanonicalElement is returned when a 32-byte encoding is not strictly
// less than the BN254 scalar field modulus.
var ErrNonCanonicalElement = errors.New("zkp: non-canonical field element encoding")

var (
	nativeMDS            [field.Width][field.Width]nativeElement
	nativeRoundConstants [field.Rounds][field.Width]nativeElement
)

func init() {
	mds := field.MDSMatrixU64()
	for i := range mds {
		for j := range mds[i] {
			nativeMDS[i][j].SetUint64(mds[i][j])
		}
	}
	rc := field.RoundConstantsU64()
	for r := range rc {
		for j := range rc[r] {
			nativeRoundConstants[r][j].SetUint64(rc[r][j])
		}
	}
}

func nativeSbox(x nativeElement) nativeElement {
	var sq, quad, out nativeElement
	sq.Square(&x)
	quad.Square(&sq)
	out.Mul(&quad, &x)
	return out
}

func nativeMix(state *[field.Width]nativeElement) {
	snapshot := *state
	var out [field.Width]nativeElement
	for row := 0; row < field.Width; row++ {
		var acc, term nativeElement
		for col := 0; col < field.Width; col++ {
			term.Mul(&snapshot[col], &nativeMDS[row][col])
			acc.Add(&acc, &term)
		}
		out[row] = acc
	}
	*state = out
}

func nativePermutation(state *[field.Width]nativeElement) {
	for round := 0; round < field.Rounds; round++ {
		for pos := range state {
			state[pos].Add(&state[pos], &nativeRoundConstants[round][pos])
		}
		for pos := range state {
			state[pos] = nativeSbox(state[pos])
		}
		nativeMix(state)
	}
}

func nativeAbsorb(state *[field.Width]nativeElement, chunk [field.Width - 1]nativeElement) {
	for i, v := range chunk {
		state[i].Add(&state[i], &v)
	}
	nativePermutation(state)
}

func nativeSink(domainTag uint64, inputs []nativeElement) [field.Width]nativeElement {
	var state [field.Width]nativeElement
	state[0].SetUint64(domainTag)
	state[2].SetOne()
	rate := field.Width - 1
	cursor := 0
	for cursor < len(inputs) {
		take := rate
		if remaining := len(inputs) - cursor; remaining < take {
			take = remaining
		}
		var chunk [field.Width - 1]nativeElement
		copy(chunk[:take], inputs[cursor:cursor+take])
		nativeAbsorb(&state, chunk)
		cursor += take
	}
	return state
}

// nativeSpongeSingle is the off-circuit analogue of spongeSingleGadget. A
// single BN254 element already carries ~254 bits of output, enough security
// margin on its own, which is why every hash in this package (unlike
// internal/field's Goldilocks sponge, whose 64-bit elements need four limbs
// to reach the same margin) squeezes just one element.
func nativeSpongeSingle(domainTag uint64, inputs []nativeElement) nativeElement {
	state := nativeSink(domainTag, inputs)
	return state[0]
}

func nativeFromUint64(v uint64) nativeElement {
	var e nativeElement
	e.SetUint64(v)
	return e
}

// nativeElementFromBytesPadded decodes a byte slice of any length into one
// field element by right-aligning it into a 32-byte big-endian buffer
// (input longer than 32 bytes keeps only its last 32 bytes, which never
// happens for the 32-byte-or-shorter secrets this is used on) and reducing
// via SetBytes.
// Unlike nativeElementFromBytes32 this never rejects its input: it is used
// on private witness material (note pk/rho/r fields, spending keys) where a
// reduction is a self-consistency concern for whoever derived the key, not
// a consensus soundness concern, mirroring field.BytesToElements's
// right-aligning treatment of its input.
func nativeElementFromBytesPadded(data []byte) nativeElement {
	var buf [32]byte
	if len(data) >= 32 {
		copy(buf[:], data[len(data)-32:])
	} else {
		copy(buf[32-len(data):], data)
	}
	var e nativeElement
	e.SetBytes(buf[:])
	return e
}

// nativeNoteCommitment hashes a note's plaintext fields into its on-chain
// digest, mirroring noteCommitmentGadget and field.NoteCommitment.
func nativeNoteCommitment(value, assetID uint64, pk, rho, r []byte) nativeElement {
	inputs := []nativeElement{
		nativeFromUint64(value),
		nativeFromUint64(assetID),
		nativeElementFromBytesPadded(pk),
		nativeElementFromBytesPadded(rho),
		nativeElementFromBytesPadded(r),
	}
	return nativeSpongeSingle(field.DomainNote, inputs)
}

// nativeMerkleNode combines two child digests into a parent digest,
// mirroring merkleNodeGadget. Unlike note fields, tree nodes are
// consensus-visible digests, so callers decode them with the strict
// nativeElementFromBytes32 rather than the padding-based decode above.
func nativeMerkleNode(left, right nativeElement) nativeElement {
	inputs := []nativeElement{left, right}
	return nativeSpongeSingle(field.DomainMerkle, inputs)
}

// nativeNullifier derives the spend tag for an input note, mirroring
// nullifierGadget and field.Nullifier. The field order (prfKey, position,
// rho) matches nullifierGadget's input ordering exactly.
func nativeNullifier(prfKey nativeElement, rho []byte, position uint64) nativeElement {
	inputs := []nativeElement{prfKey, nativeFromUint64(position), nativeElementFromBytesPadded(rho)}
	return nativeSpongeSingle(field.DomainNullifier, inputs)
}

// nativePRFKey derives a wallet's per-session nullifier PRF key from its
// spending key, under the nullifier domain tag rather than a dedicated one —
// this intentionally matches the original hashing core's prf_key, which
// reuses NULLIFIER_DOMAIN_TAG for key derivation instead of a separate
// constant. See DESIGN.md and field.PRFKey, which carries the identical fix
// on the Goldilocks side.
func nativePRFKey(skSpend []byte) nativeElement {
	return nativeSpongeSingle(field.DomainNullifier, []nativeElement{nativeElementFromBytesPadded(skSpend)})
}

// balanceSlot is one per-asset net flow used in the balance tag, mirroring
// field.BalanceSlot.
type balanceSlot struct {
	AssetID uint64
	Delta   int64
}

// nativeSignedElement maps a signed magnitude onto the field by encoding its
// absolute value, mirroring field.signedElement. Every caller in this
// package only ever passes a value already known nonnegative (fee minus the
// always-zero value balance; a per-asset delta forced to zero by the
// conservation constraint), so the absolute value is a no-op in practice —
// kept for exact structural parity with the Goldilocks-side formula.
func nativeSignedElement(v int64) nativeElement {
	if v < 0 {
		v = -v
	}
	return nativeFromUint64(uint64(v))
}

// nativeBalanceTag computes the consensus-visible commitment to a
// transaction's per-asset net flow: H(native_delta, asset_id_1, delta_1,
// ...), mirroring field.BalanceTag and the in-circuit tag computation in
// circuits.go's Define. slots must be the full, fixed-size, zero-prefix
// padded SlotAssetIDs ledger (padding entries included, asset ID 0 / delta
// 0), not just the real non-native assets — the circuit hashes over every
// slot it carries as witness, since a fixed-arithmetization circuit cannot
// absorb a variable number of elements, so the off-circuit tag must walk
// the identical fixed-width sequence to agree with it.
func nativeBalanceTag(nativeDelta int64, slots []balanceSlot) nativeElement {
	inputs := make([]nativeElement, 0, 1+2*len(slots))
	inputs = append(inputs, nativeSignedElement(nativeDelta))
	for _, s := range slots {
		inputs = append(inputs, nativeFromUint64(s.AssetID), nativeSignedElement(s.Delta))
	}
	return nativeSpongeSingle(field.DomainBalance, inputs)
}

// nativeElementFromBytes32 decodes a canonical big-endian 32-byte encoding
// into a BN254 element, rejecting values that are not strictly less than the
// scalar field modulus (gnark-crypto's Element.SetBytes silently reduces
// out-of-range input instead of rejecting it, which would let two distinct
// byte encodings collide on the same element). Used for consensus-visible
// digest values: tree nodes, anchors, nullifiers, commitments.
func nativeElementFromBytes32(b [32]byte) (nativeElement, error) {
	bi := new(big.Int).SetBytes(b[:])
	if bi.Cmp(bn254fr.Modulus()) >= 0 {
		return nativeElement{}, ErrNonCanonicalElement
	}
	var e nativeElement
	e.SetBytes(b[:])
	return e, nil
}

// nativeElementToBytes32 canonically encodes a BN254 element as 32
// big-endian bytes.
func nativeElementToBytes32(e nativeElement) [32]byte {
	return e.Bytes()
}

// nativeElementToBigInt converts a BN254 element to a big.Int, the
// representation gnark accepts when assigning a frontend.Variable witness
// field to a value outside the uint64 range.
func nativeElementToBigInt(e nativeElement) *big.Int {
	var bi big.Int
	e.BigInt(&bi)
	return &bi
}
