// Package zkp implements shielded transaction processing.
package zkp

import (
	"bytes"
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/frontend"

	"github.com/veilchain/core/pkg/types"
)

// Transaction processing errors
var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInvalidNote       = errors.New("invalid note")
	ErrInvalidAnchor     = errors.New("invalid or stale merkle anchor")
	ErrProofFailed       = errors.New("transaction proof verification failed")
	ErrTooManyInputs     = errors.New("more inputs than the compiled circuit supports")
	ErrTooManyOutputs    = errors.New("more outputs than the compiled circuit supports")
)

// NoteInput is an input note being spent: the plaintext note, its spending
// key and its position in the commitment tree at the time it was created.
type NoteInput struct {
	Note        types.Note
	SpendingKey []byte
	Position    uint64
}

// NoteOutput is an output note being created. Rho and R are sampled fresh
// per output unless the caller has already chosen them (e.g. when
// constructing a deterministic test vector).
type NoteOutput struct {
	Note types.Note
}

// TransactionBuilder assembles a shielded transaction: it balances inputs
// against outputs and fee, derives nullifiers and commitments, and drives
// the circuit manager to produce the proof.
type TransactionBuilder struct {
	inputs  []*NoteInput
	outputs []*NoteOutput
	fee     uint64
	memo    []byte

	circuits  *CircuitManager
	treeDepth int
}

// NewTransactionBuilder creates a new transaction builder bound to a
// circuit manager that already has a transaction circuit compiled for at
// least as many input/output slots as will be used.
func NewTransactionBuilder(circuits *CircuitManager, treeDepth int) *TransactionBuilder {
	if treeDepth == 0 {
		treeDepth = TreeDepth
	}
	return &TransactionBuilder{
		circuits:  circuits,
		treeDepth: treeDepth,
	}
}

// AddInput adds an input note to spend.
func (tb *TransactionBuilder) AddInput(note types.Note, spendingKey []byte, position uint64) {
	tb.inputs = append(tb.inputs, &NoteInput{Note: note, SpendingKey: spendingKey, Position: position})
}

// AddOutput adds an output note to create. If Rho or R are unset (zero),
// fresh randomness is sampled for them at Build time.
func (tb *TransactionBuilder) AddOutput(note types.Note) {
	tb.outputs = append(tb.outputs, &NoteOutput{Note: note})
}

// SetFee sets the transaction's public fee.
func (tb *TransactionBuilder) SetFee(fee uint64) {
	tb.fee = fee
}

// SetMemo sets the transaction's encrypted memo field.
func (tb *TransactionBuilder) SetMemo(memo []byte) {
	tb.memo = memo
}

// Build assembles and proves the transaction against tree's current state.
func (tb *TransactionBuilder) Build(ctx context.Context, tree *CommitmentTree) (*types.Transaction, error) {
	var inputNative, outputNative uint64
	assetDeltas := make(map[uint64]int64)

	for _, in := range tb.inputs {
		if in.Note.AssetID == 0 {
			inputNative += in.Note.Value
		} else {
			assetDeltas[in.Note.AssetID] -= int64(in.Note.Value)
		}
	}
	for _, out := range tb.outputs {
		if out.Note.R == ([32]byte{}) {
			if err := randomizeNonce(&out.Note.R); err != nil {
				return nil, err
			}
		}
		if out.Note.Rho == ([32]byte{}) {
			if err := randomizeNonce(&out.Note.Rho); err != nil {
				return nil, err
			}
		}
		if out.Note.AssetID == 0 {
			outputNative += out.Note.Value
		} else {
			assetDeltas[out.Note.AssetID] += int64(out.Note.Value)
		}
	}

	// Native-asset conservation: value_balance is always zero (no
	// transparency-admission layer exists yet), so inputs minus outputs in
	// the native asset must equal the fee exactly.
	if inputNative != outputNative+tb.fee {
		return nil, ErrInsufficientFunds
	}
	// Per-asset conservation: every other asset's net flow across this
	// transaction's notes must independently be zero.
	for asset, delta := range assetDeltas {
		if delta != 0 {
			return nil, fmt.Errorf("zkp: unbalanced asset flow for asset %d", asset)
		}
	}

	numSlots := len(tb.inputs) + len(tb.outputs)
	slotAssetIDs, slots := buildBalanceSlots(assetDeltas, numSlots)

	anchor := tree.Root()

	nullifiers := make([]types.Hash, len(tb.inputs))
	for i, in := range tb.inputs {
		nf := DeriveNullifier(in.SpendingKey, in.Note.Rho[:], in.Position)
		nullifiers[i] = types.Hash(nf)
	}

	commitments := make([]types.Hash, len(tb.outputs))
	for i, out := range tb.outputs {
		cm := nativeElementToBytes32(nativeNoteCommitment(out.Note.Value, out.Note.AssetID, out.Note.PkRecipient[:], out.Note.Rho[:], out.Note.R[:]))
		commitments[i] = types.Hash(cm)
	}

	nativeDelta := int64(inputNative) - int64(outputNative)
	balanceTag := nativeElementToBytes32(nativeBalanceTag(nativeDelta, slots))

	proof, err := tb.generateProof(ctx, anchor, nullifiers, commitments, types.Hash(balanceTag), slotAssetIDs, tree)
	if err != nil {
		return nil, err
	}

	tx := &types.Transaction{
		Version:      transactionCircuitVersion,
		Anchor:       types.Hash(anchor),
		Nullifiers:   nullifiers,
		Commitments:  commitments,
		BalanceTag:   types.Hash(balanceTag),
		Fee:          tb.fee,
		ValueBalance: 0,
		Proof:        proof,
		Memo:         tb.memo,
	}
	tx.TxHash = tx.ComputeHash()

	return tx, nil
}

// buildBalanceSlots turns a transaction's per-asset net flows into the
// fixed-size, zero-prefix-padded ledger the circuit witnesses as
// SlotAssetIDs: numSlots entries, real (nonzero) asset IDs ascending after
// any zero padding. slots mirrors slotAssetIDs one-for-one (same length,
// same order) since nativeBalanceTag hashes over the full fixed-width
// sequence the circuit does, padding entries included.
func buildBalanceSlots(assetDeltas map[uint64]int64, numSlots int) ([]uint64, []balanceSlot) {
	assets := make([]uint64, 0, len(assetDeltas))
	for asset := range assetDeltas {
		assets = append(assets, asset)
	}
	sort.Slice(assets, func(i, j int) bool { return assets[i] < assets[j] })

	slotAssetIDs := make([]uint64, numSlots)
	pad := numSlots - len(assets)
	copy(slotAssetIDs[pad:], assets)

	slots := make([]balanceSlot, numSlots)
	for k, asset := range slotAssetIDs {
		slots[k] = balanceSlot{AssetID: asset, Delta: assetDeltas[asset]}
	}
	return slotAssetIDs, slots
}

func randomizeNonce(out *[32]byte) error {
	_, err := rand.Read(out[:])
	return err
}

// generateProof builds the full circuit witness and proves it.
func (tb *TransactionBuilder) generateProof(
	ctx context.Context,
	anchor Commitment,
	nullifiers []types.Hash,
	commitments []types.Hash,
	balanceTag types.Hash,
	slotAssetIDs []uint64,
	tree *CommitmentTree,
) (types.ZKProof, error) {
	anchorElem, err := digestVariable(anchor)
	if err != nil {
		return types.ZKProof{}, ErrInvalidAnchor
	}
	balanceTagElem, err := digestVariable(balanceTag)
	if err != nil {
		return types.ZKProof{}, ErrInvalidAnchor
	}

	circuit := &TransactionCircuit{
		Anchor:       anchorElem,
		Nullifiers:   make([]circuitDigest, len(nullifiers)),
		Commitments:  make([]circuitDigest, len(commitments)),
		BalanceTag:   balanceTagElem,
		Fee:          tb.fee,
		ValueBalance: uint64(0),
		Version:      uint64(transactionCircuitVersion),

		InputValues:       make([]frontend.Variable, 0, len(tb.inputs)),
		InputAssetIDs:     make([]frontend.Variable, 0, len(tb.inputs)),
		InputPk:           make([]circuitDigest, 0, len(tb.inputs)),
		InputRho:          make([]circuitDigest, 0, len(tb.inputs)),
		InputR:            make([]circuitDigest, 0, len(tb.inputs)),
		InputSpendKey:     make([]circuitDigest, 0, len(tb.inputs)),
		InputPosition:     make([]frontend.Variable, 0, len(tb.inputs)),
		InputPathBits:     make([][]frontend.Variable, 0, len(tb.inputs)),
		InputPathSiblings: make([][]circuitDigest, 0, len(tb.inputs)),

		OutputValues:   make([]frontend.Variable, 0, len(tb.outputs)),
		OutputAssetIDs: make([]frontend.Variable, 0, len(tb.outputs)),
		OutputPk:       make([]circuitDigest, 0, len(tb.outputs)),
		OutputRho:      make([]circuitDigest, 0, len(tb.outputs)),
		OutputR:        make([]circuitDigest, 0, len(tb.outputs)),

		SlotAssetIDs: make([]frontend.Variable, len(slotAssetIDs)),
	}
	for k, id := range slotAssetIDs {
		circuit.SlotAssetIDs[k] = id
	}

	for i, nf := range nullifiers {
		d, err := digestVariable(nf)
		if err != nil {
			return types.ZKProof{}, err
		}
		circuit.Nullifiers[i] = d
	}
	for i, cm := range commitments {
		d, err := digestVariable(cm)
		if err != nil {
			return types.ZKProof{}, err
		}
		circuit.Commitments[i] = d
	}

	for _, in := range tb.inputs {
		path, err := tree.AuthenticationPath(in.Position)
		if err != nil {
			return types.ZKProof{}, err
		}
		bits := make([]frontend.Variable, len(path))
		siblings := make([]circuitDigest, len(path))
		position := in.Position
		for lvl, sib := range path {
			bits[lvl] = uint64(position & 1)
			position >>= 1
			d, err := digestVariable(types.Hash(sib))
			if err != nil {
				return types.ZKProof{}, err
			}
			siblings[lvl] = d
		}

		circuit.InputValues = append(circuit.InputValues, in.Note.Value)
		circuit.InputAssetIDs = append(circuit.InputAssetIDs, in.Note.AssetID)
		circuit.InputPk = append(circuit.InputPk, noteFieldVariable(in.Note.PkRecipient[:]))
		circuit.InputRho = append(circuit.InputRho, noteFieldVariable(in.Note.Rho[:]))
		circuit.InputR = append(circuit.InputR, noteFieldVariable(in.Note.R[:]))
		circuit.InputSpendKey = append(circuit.InputSpendKey, noteFieldVariable(in.SpendingKey))
		circuit.InputPosition = append(circuit.InputPosition, in.Position)
		circuit.InputPathBits = append(circuit.InputPathBits, bits)
		circuit.InputPathSiblings = append(circuit.InputPathSiblings, siblings)
	}

	for _, out := range tb.outputs {
		circuit.OutputValues = append(circuit.OutputValues, out.Note.Value)
		circuit.OutputAssetIDs = append(circuit.OutputAssetIDs, out.Note.AssetID)
		circuit.OutputPk = append(circuit.OutputPk, noteFieldVariable(out.Note.PkRecipient[:]))
		circuit.OutputRho = append(circuit.OutputRho, noteFieldVariable(out.Note.Rho[:]))
		circuit.OutputR = append(circuit.OutputR, noteFieldVariable(out.Note.R[:]))
	}

	proofData, err := tb.circuits.GenerateProof(ctx, ProofTypeTransaction, circuit)
	if err != nil {
		return types.ZKProof{}, err
	}

	publicInputs := make([]types.Hash, 0, len(nullifiers)+len(commitments)+2)
	publicInputs = append(publicInputs, types.Hash(anchor))
	publicInputs = append(publicInputs, nullifiers...)
	publicInputs = append(publicInputs, commitments...)
	publicInputs = append(publicInputs, balanceTag)

	return types.ZKProof{
		ProofData:    proofData.Proof,
		PublicInputs: publicInputs,
	}, nil
}

// digestVariable strictly decodes a canonical 32-byte digest (anchor,
// nullifier, commitment, balance tag, Merkle sibling) into a witness value,
// rejecting non-canonical encodings the same way field.Bytes32ToDigest does
// on the Goldilocks side.
func digestVariable(h types.Hash) (frontend.Variable, error) {
	e, err := nativeElementFromBytes32(h)
	if err != nil {
		return nil, err
	}
	return nativeElementToBigInt(e), nil
}

// noteFieldVariable witnesses a note's plaintext byte field (pk, rho, r, a
// spending key) as the same single field element nativeNoteCommitment,
// nativeNullifier and nativePRFKey fold it into off-circuit.
func noteFieldVariable(b []byte) frontend.Variable {
	return nativeElementToBigInt(nativeElementFromBytesPadded(b))
}

// ShieldedPool manages the shielded transaction pool: the commitment tree,
// the nullifier set and the circuit manager used to verify incoming
// transactions.
type ShieldedPool struct {
	mu sync.RWMutex

	commitmentTree *CommitmentTree
	nullifierSet   *NullifierSet
	circuits       *CircuitManager
}

// NewShieldedPool creates a new shielded pool.
func NewShieldedPool(tree *CommitmentTree, nullifiers *NullifierSet, circuits *CircuitManager) *ShieldedPool {
	return &ShieldedPool{
		commitmentTree: tree,
		nullifierSet:   nullifiers,
		circuits:       circuits,
	}
}

// verifyAgainstState checks a transaction's anchor, nullifier-freshness and
// proof without mutating any state. Shared by ProcessTransaction (which
// then applies the transaction) and VerifyTransactionProof (read-only,
// for mempool admission).
func (sp *ShieldedPool) verifyAgainstState(ctx context.Context, tx *types.Transaction) ([]Commitment, error) {
	if tx.ValueBalance != 0 {
		return nil, ErrProofFailed
	}
	if !sp.commitmentTree.ContainsRoot(Commitment(tx.Anchor)) {
		return nil, ErrInvalidAnchor
	}

	nullifiers := make([]Commitment, len(tx.Nullifiers))
	for i, nf := range tx.Nullifiers {
		nullifiers[i] = Commitment(nf)
	}
	spent, err := sp.nullifierSet.BatchCheck(ctx, nullifiers)
	if err != nil {
		return nil, err
	}
	for _, s := range spent {
		if s {
			return nil, ErrNullifierSpent
		}
	}

	publicWitnessBytes, err := buildPublicWitnessBytes(tx)
	if err != nil {
		return nil, ErrInvalidAnchor
	}

	ok, err := sp.circuits.VerifyProof(ctx, &ProofData{
		ProofType:    ProofTypeTransaction,
		Proof:        tx.Proof.ProofData,
		PublicInputs: publicWitnessBytes,
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrProofFailed
	}

	return nullifiers, nil
}

// ProcessTransaction validates and applies a shielded transaction: the
// anchor must be within the tree's bounded root history, none of the
// nullifiers may already be spent, and the proof must verify.
func (sp *ShieldedPool) ProcessTransaction(ctx context.Context, tx *types.Transaction, blockHeight uint64) error {
	sp.mu.Lock()
	defer sp.mu.Unlock()

	nullifiers, err := sp.verifyAgainstState(ctx, tx)
	if err != nil {
		return err
	}

	for _, nf := range nullifiers {
		if err := sp.nullifierSet.MarkSpent(ctx, nf, tx.TxHash, blockHeight); err != nil {
			return err
		}
	}

	for _, cm := range tx.Commitments {
		if _, _, err := sp.commitmentTree.Append(Commitment(cm)); err != nil {
			return err
		}
	}

	return nil
}

// VerifyTransactionProof runs the same anchor/nullifier/proof checks
// ProcessTransaction applies, without mutating the commitment tree or
// nullifier set. Used by the mempool to admit transactions ahead of
// consensus and by external callers per the verify_transaction interface.
func (sp *ShieldedPool) VerifyTransactionProof(ctx context.Context, tx *types.Transaction) (bool, error) {
	sp.mu.RLock()
	defer sp.mu.RUnlock()

	_, err := sp.verifyAgainstState(ctx, tx)
	if err != nil {
		if errors.Is(err, ErrInvalidAnchor) || errors.Is(err, ErrNullifierSpent) || errors.Is(err, ErrProofFailed) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// GetCurrentAnchor returns the current commitment tree root.
func (sp *ShieldedPool) GetCurrentAnchor() types.Hash {
	return types.Hash(sp.commitmentTree.Root())
}

// MempoolVerifier adapts ShieldedPool to internal/mempool.ProofVerifier.
type MempoolVerifier struct {
	Pool *ShieldedPool
}

// Verify satisfies internal/mempool.ProofVerifier.
func (v *MempoolVerifier) Verify(ctx context.Context, tx *types.Transaction) bool {
	ok, err := v.Pool.VerifyTransactionProof(ctx, tx)
	return err == nil && ok
}

// buildPublicWitnessBytes rebuilds the transaction circuit's public-only
// witness from the transaction's own public-input digests, so a verifier
// that only holds the transaction (not the prover's original witness) can
// still reconstruct the exact encoding groth16.Verify expects.
func buildPublicWitnessBytes(tx *types.Transaction) ([]byte, error) {
	anchorVar, err := digestVariable(tx.Anchor)
	if err != nil {
		return nil, err
	}
	balanceTagVar, err := digestVariable(tx.BalanceTag)
	if err != nil {
		return nil, err
	}

	circuit := &TransactionCircuit{
		Anchor:       anchorVar,
		Nullifiers:   make([]circuitDigest, len(tx.Nullifiers)),
		Commitments:  make([]circuitDigest, len(tx.Commitments)),
		BalanceTag:   balanceTagVar,
		Fee:          tx.Fee,
		ValueBalance: tx.ValueBalance,
		Version:      uint64(tx.Version),
	}
	for i, nf := range tx.Nullifiers {
		d, err := digestVariable(nf)
		if err != nil {
			return nil, err
		}
		circuit.Nullifiers[i] = d
	}
	for i, cm := range tx.Commitments {
		d, err := digestVariable(cm)
		if err != nil {
			return nil, err
		}
		circuit.Commitments[i] = d
	}

	w, err := frontend.NewWitness(circuit, ecc.BN254.ScalarField(), frontend.PublicOnly())
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if _, err := w.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

