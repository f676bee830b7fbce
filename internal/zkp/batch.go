package zkp

import (
	"bytes"
	"context"
	"errors"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/r1cs"
	"github.com/zeebo/blake3"

	"github.com/veilchain/core/pkg/types"
)

// Batch circuit errors.
var (
	ErrEmptyBatch          = errors.New("zkp: batch has no transactions")
	ErrBatchTooLarge       = errors.New("zkp: batch exceeds MaxBatchSize")
	ErrBatchAnchorMismatch = errors.New("zkp: batch transactions do not share an anchor")
	ErrBatchTooManyInputs  = errors.New("zkp: transaction has more inputs than BatchMaxInputs")
	ErrBatchTooManyOutputs = errors.New("zkp: transaction has more outputs than BatchMaxOutputs")
)

// Batch circuit sizing, mirroring the reference core's public_inputs.rs:
// a fixed number of transaction slots, each with a fixed number of input
// and output slots, so the circuit shape is knowable at compile time.
const (
	MaxBatchSize    = 16
	BatchMaxInputs  = 2
	BatchMaxOutputs = 2

	// batchSlotAssets is the per-slot balance ledger width, sized the same
	// way TransactionCircuit.SlotAssetIDs is: one entry per note the slot
	// can hold.
	batchSlotAssets = BatchMaxInputs + BatchMaxOutputs

	batchCircuitVersion = 1

	// batchPermDomain tags the Fiat-Shamir hash that derives the
	// permutation argument's alpha challenge from the batch's flattened
	// nullifier list.
	batchPermDomain = "blk-nullifier-perm-v1"

	ProofTypeBatch ProofType = 2
)

// batchTxSlot is one transaction replica inside the batch circuit: the same
// witness shape as TransactionCircuit, minus the public fields (those are
// rolled up into the batch's flattened public arrays), plus an Active
// selector that disables its constraints when the slot is unused padding.
type batchTxSlot struct {
	Active       frontend.Variable
	Fee          frontend.Variable
	ValueBalance frontend.Variable

	InputValues       []frontend.Variable
	InputAssetIDs     []frontend.Variable
	InputPk           []circuitDigest
	InputRho          []circuitDigest
	InputR            []circuitDigest
	InputSpendKey     []circuitDigest
	InputPosition     []frontend.Variable
	InputPathBits     [][]frontend.Variable
	InputPathSiblings [][]circuitDigest

	OutputValues   []frontend.Variable
	OutputAssetIDs []frontend.Variable
	OutputPk       []circuitDigest
	OutputRho      []circuitDigest
	OutputR        []circuitDigest

	// SlotAssetIDs is this transaction's own per-asset balance ledger,
	// the same zero-prefix-padded shape TransactionCircuit.SlotAssetIDs
	// carries, sized to this slot's own inputs+outputs.
	SlotAssetIDs []frontend.Variable
}

// BatchCircuit proves that every active transaction slot verifies against a
// shared anchor, balances per-asset on its own, and that the batch's
// flattened nullifiers are pairwise distinct, via a permutation argument
// against a prover-supplied sorted copy: see Define for the grand-product
// and consecutive-strict-increase checks that realize this.
type BatchCircuit struct {
	// Public inputs.
	Anchor         circuitDigest     `gnark:",public"`
	Nullifiers     []circuitDigest   `gnark:",public"` // flattened MaxBatchSize*BatchMaxInputs
	Commitments    []circuitDigest   `gnark:",public"` // flattened MaxBatchSize*BatchMaxOutputs
	TotalFee       frontend.Variable `gnark:",public"`
	BatchSize      frontend.Variable `gnark:",public"`
	CircuitVersion frontend.Variable `gnark:",public"`
	Alpha          frontend.Variable `gnark:",public"`

	// Private witness.
	Txs            []batchTxSlot
	SortedCombined []frontend.Variable // flattened MaxBatchSize*BatchMaxInputs, sorted
}

// Define implements the batch AIR.
func (c *BatchCircuit) Define(api frontend.API) error {
	api.AssertIsEqual(c.CircuitVersion, batchCircuitVersion)

	combined := make([]frontend.Variable, 0, len(c.Nullifiers))
	feeSum := frontend.Variable(0)
	nfCursor, cmCursor := 0, 0

	for _, tx := range c.Txs {
		api.AssertIsBoolean(tx.Active)

		for i := range tx.InputValues {
			prfKey := prfKeyGadget(api, tx.InputSpendKey[i])
			leaf := noteCommitmentGadget(api, tx.InputValues[i], tx.InputAssetIDs[i], tx.InputPk[i], tx.InputRho[i], tx.InputR[i])

			for _, bit := range tx.InputPathBits[i] {
				api.AssertIsBoolean(bit)
			}
			verifyPathSelectGadget(api, leaf, tx.InputPathBits[i], tx.InputPathSiblings[i], c.Anchor, tx.Active)

			nf := nullifierGadget(api, prfKey, tx.InputRho[i], tx.InputPosition[i])
			diff := api.Sub(nf, c.Nullifiers[nfCursor])
			api.AssertIsEqual(api.Mul(diff, tx.Active), 0)

			combined = append(combined, c.Nullifiers[nfCursor])
			nfCursor++
		}

		for j := range tx.OutputValues {
			cm := noteCommitmentGadget(api, tx.OutputValues[j], tx.OutputAssetIDs[j], tx.OutputPk[j], tx.OutputRho[j], tx.OutputR[j])
			diff := api.Sub(cm, c.Commitments[cmCursor])
			api.AssertIsEqual(api.Mul(diff, tx.Active), 0)
			cmCursor++
		}

		// Native-asset conservation, gated by Active so a padding slot's
		// zero-filled witness never constrains anything.
		nativeIn := frontend.Variable(0)
		for i, v := range tx.InputValues {
			isNative := api.IsZero(tx.InputAssetIDs[i])
			nativeIn = api.Add(nativeIn, api.Mul(v, isNative))
		}
		nativeOut := frontend.Variable(0)
		for j, v := range tx.OutputValues {
			isNative := api.IsZero(tx.OutputAssetIDs[j])
			nativeOut = api.Add(nativeOut, api.Mul(v, isNative))
		}
		nativeDelta := api.Sub(tx.Fee, tx.ValueBalance)
		nativeDiff := api.Sub(api.Sub(nativeIn, nativeOut), nativeDelta)
		api.AssertIsEqual(api.Mul(nativeDiff, tx.Active), 0)

		// Per-asset conservation: every non-native asset this slot's
		// notes touch must net to zero on its own, the same slot-ledger
		// scheme TransactionCircuit.Define uses.
		assertZeroPrefixSorted(api, tx.SlotAssetIDs)
		for _, assetID := range tx.SlotAssetIDs {
			slotActive := api.Sub(1, api.IsZero(assetID))
			delta := frontend.Variable(0)
			for i, v := range tx.InputValues {
				match := api.Mul(equalGadget(api, tx.InputAssetIDs[i], assetID), slotActive)
				delta = api.Sub(delta, api.Mul(v, match))
			}
			for j, v := range tx.OutputValues {
				match := api.Mul(equalGadget(api, tx.OutputAssetIDs[j], assetID), slotActive)
				delta = api.Add(delta, api.Mul(v, match))
			}
			api.AssertIsEqual(api.Mul(delta, tx.Active), 0)
		}
		for _, assetID := range tx.InputAssetIDs {
			assertAssetCovered(api, assetID, tx.SlotAssetIDs)
		}
		for _, assetID := range tx.OutputAssetIDs {
			assertAssetCovered(api, assetID, tx.SlotAssetIDs)
		}

		feeSum = api.Add(feeSum, api.Mul(tx.Fee, tx.Active))
	}

	api.AssertIsEqual(feeSum, c.TotalFee)

	// Permutation argument: the flattened nullifiers and the prover's
	// sorted copy must be the same multiset, proven by equal grand
	// products of (value + alpha) over a nonzero challenge alpha. Each
	// nullifier is already a single BN254 element, so no limb-packing
	// fold is needed before it enters the grand product.
	prodOrig := frontend.Variable(1)
	for _, v := range combined {
		prodOrig = api.Mul(prodOrig, api.Add(v, c.Alpha))
	}
	prodSorted := frontend.Variable(1)
	for _, v := range c.SortedCombined {
		prodSorted = api.Mul(prodSorted, api.Add(v, c.Alpha))
	}
	api.AssertIsEqual(prodOrig, prodSorted)

	// Sortedness + uniqueness: zero (inactive-slot) entries must cluster
	// at the start, and every nonzero entry must strictly exceed its
	// predecessor, which rules out duplicate active nullifiers.
	assertZeroPrefixSorted(api, c.SortedCombined)

	return nil
}

// verifyPathSelectGadget is verifyPathGadget gated by active: when active is
// 0 the recomputed-root check is skipped (an inactive batch slot's witness
// is never derived from a real note).
func verifyPathSelectGadget(api frontend.API, leaf circuitDigest, pathBits []frontend.Variable, siblings []circuitDigest, anchor circuitDigest, active frontend.Variable) {
	current := leaf
	for level := range siblings {
		left := api.Select(pathBits[level], siblings[level], current)
		right := api.Select(pathBits[level], current, siblings[level])
		current = merkleNodeGadget(api, left, right)
	}
	diff := api.Sub(current, anchor)
	api.AssertIsEqual(api.Mul(diff, active), 0)
}

// NewBatchCircuitShape allocates a batch circuit sized for compilation; the
// zero-valued Variables within are placeholders, not a witness.
func NewBatchCircuitShape(treeDepth int) *BatchCircuit {
	numNullifiers := MaxBatchSize * BatchMaxInputs
	numCommitments := MaxBatchSize * BatchMaxOutputs

	c := &BatchCircuit{
		Nullifiers:     make([]circuitDigest, numNullifiers),
		Commitments:    make([]circuitDigest, numCommitments),
		Txs:            make([]batchTxSlot, MaxBatchSize),
		SortedCombined: make([]frontend.Variable, numNullifiers),
	}

	for i := range c.Txs {
		slot := &c.Txs[i]
		slot.InputValues = make([]frontend.Variable, BatchMaxInputs)
		slot.InputAssetIDs = make([]frontend.Variable, BatchMaxInputs)
		slot.InputPk = make([]circuitDigest, BatchMaxInputs)
		slot.InputRho = make([]circuitDigest, BatchMaxInputs)
		slot.InputR = make([]circuitDigest, BatchMaxInputs)
		slot.InputSpendKey = make([]circuitDigest, BatchMaxInputs)
		slot.InputPosition = make([]frontend.Variable, BatchMaxInputs)
		slot.InputPathBits = make([][]frontend.Variable, BatchMaxInputs)
		slot.InputPathSiblings = make([][]circuitDigest, BatchMaxInputs)
		for k := 0; k < BatchMaxInputs; k++ {
			slot.InputPathBits[k] = make([]frontend.Variable, treeDepth)
			slot.InputPathSiblings[k] = make([]circuitDigest, treeDepth)
		}
		slot.OutputValues = make([]frontend.Variable, BatchMaxOutputs)
		slot.OutputAssetIDs = make([]frontend.Variable, BatchMaxOutputs)
		slot.OutputPk = make([]circuitDigest, BatchMaxOutputs)
		slot.OutputRho = make([]circuitDigest, BatchMaxOutputs)
		slot.OutputR = make([]circuitDigest, BatchMaxOutputs)
		slot.SlotAssetIDs = make([]frontend.Variable, batchSlotAssets)
	}

	return c
}

// CompileBatchCircuit compiles the batch circuit and registers its Groth16
// keys under ProofTypeBatch.
func (cm *CircuitManager) CompileBatchCircuit(treeDepth int) error {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	circuit := NewBatchCircuitShape(treeDepth)

	cs, err := frontend.Compile(ecc.BN254.ScalarField(), r1cs.NewBuilder, circuit)
	if err != nil {
		return err
	}

	pk, vk, err := groth16.Setup(cs)
	if err != nil {
		return err
	}

	cm.circuits[ProofTypeBatch] = &CompiledCircuit{CS: cs, Compiled: true}
	cm.provingKeys[ProofTypeBatch] = pk
	cm.verifyingKeys[ProofTypeBatch] = vk

	return nil
}

// BatchInput is one transaction's plaintext witness material going into a
// batch proof: the same shape TransactionBuilder assembles for a single
// transaction, reused so a batch can be built from already-validated
// transaction inputs/outputs.
type BatchInput struct {
	Anchor  types.Hash
	Inputs  []*NoteInput
	Outputs []*NoteOutput
	Fee     uint64
}

// BatchBuilder assembles a batch of transactions sharing one anchor into a
// single BatchCircuit witness and drives the circuit manager to prove it.
type BatchBuilder struct {
	circuits  *CircuitManager
	treeDepth int
}

// NewBatchBuilder creates a batch builder bound to a circuit manager that
// already has a batch circuit compiled.
func NewBatchBuilder(circuits *CircuitManager, treeDepth int) *BatchBuilder {
	if treeDepth == 0 {
		treeDepth = TreeDepth
	}
	return &BatchBuilder{circuits: circuits, treeDepth: treeDepth}
}

// BatchProof is the externally visible result of proving a batch: the
// flattened public inputs (as canonical hashes) alongside the raw proof.
type BatchProof struct {
	BatchSize   uint32
	Anchor      types.Hash
	Nullifiers  []types.Hash
	Commitments []types.Hash
	TotalFee    uint64
	Proof       []byte
}

// Prove assembles and proves a batch of transactions against tree's current
// state. Every transaction must reference the same anchor; this is checked
// structurally before any circuit work is attempted.
func (bb *BatchBuilder) Prove(ctx context.Context, txs []BatchInput, tree *CommitmentTree) (*BatchProof, error) {
	if len(txs) == 0 {
		return nil, ErrEmptyBatch
	}
	if len(txs) > MaxBatchSize {
		return nil, ErrBatchTooLarge
	}

	anchor := tree.Root()
	for i := range txs {
		if txs[i].Anchor != (types.Hash{}) && txs[i].Anchor != types.Hash(anchor) {
			return nil, ErrBatchAnchorMismatch
		}
	}

	circuit := &BatchCircuit{
		Anchor:         digestMustDecode(anchor),
		Nullifiers:     make([]circuitDigest, MaxBatchSize*BatchMaxInputs),
		Commitments:    make([]circuitDigest, MaxBatchSize*BatchMaxOutputs),
		BatchSize:      uint64(len(txs)),
		CircuitVersion: uint64(batchCircuitVersion),
		Txs:            make([]batchTxSlot, MaxBatchSize),
		SortedCombined: make([]frontend.Variable, MaxBatchSize*BatchMaxInputs),
	}

	var flatNullifiers []types.Hash
	var flatCommitments []types.Hash
	var totalFee uint64

	for slot := 0; slot < MaxBatchSize; slot++ {
		active := uint64(0)
		var tx *BatchInput
		if slot < len(txs) {
			tx = &txs[slot]
			if len(tx.Inputs) > BatchMaxInputs {
				return nil, ErrBatchTooManyInputs
			}
			if len(tx.Outputs) > BatchMaxOutputs {
				return nil, ErrBatchTooManyOutputs
			}
			active = 1
		}

		txSlot := batchTxSlot{
			Active:            active,
			ValueBalance:      uint64(0),
			InputValues:       make([]frontend.Variable, BatchMaxInputs),
			InputAssetIDs:     make([]frontend.Variable, BatchMaxInputs),
			InputPk:           make([]circuitDigest, BatchMaxInputs),
			InputRho:          make([]circuitDigest, BatchMaxInputs),
			InputR:            make([]circuitDigest, BatchMaxInputs),
			InputSpendKey:     make([]circuitDigest, BatchMaxInputs),
			InputPosition:     make([]frontend.Variable, BatchMaxInputs),
			InputPathBits:     make([][]frontend.Variable, BatchMaxInputs),
			InputPathSiblings: make([][]circuitDigest, BatchMaxInputs),
			OutputValues:      make([]frontend.Variable, BatchMaxOutputs),
			OutputAssetIDs:    make([]frontend.Variable, BatchMaxOutputs),
			OutputPk:          make([]circuitDigest, BatchMaxOutputs),
			OutputRho:         make([]circuitDigest, BatchMaxOutputs),
			OutputR:           make([]circuitDigest, BatchMaxOutputs),
			SlotAssetIDs:      make([]frontend.Variable, batchSlotAssets),
		}

		assetDeltas := make(map[uint64]int64)

		var slotFee uint64
		for i := 0; i < BatchMaxInputs; i++ {
			txSlot.InputPathBits[i] = make([]frontend.Variable, bb.treeDepth)
			txSlot.InputPathSiblings[i] = make([]circuitDigest, bb.treeDepth)

			if tx == nil || i >= len(tx.Inputs) {
				flatNullifiers = append(flatNullifiers, types.Hash{})
				txSlot.InputAssetIDs[i] = uint64(0)
				continue
			}
			in := tx.Inputs[i]
			path, err := tree.AuthenticationPath(in.Position)
			if err != nil {
				return nil, err
			}
			bits := make([]frontend.Variable, len(path))
			siblings := make([]circuitDigest, len(path))
			position := in.Position
			for lvl, sib := range path {
				bits[lvl] = uint64(position & 1)
				position >>= 1
				siblings[lvl] = digestMustDecode(sib)
			}

			nf := DeriveNullifier(in.SpendingKey, in.Note.Rho[:], in.Position)

			if in.Note.AssetID != 0 {
				assetDeltas[in.Note.AssetID] -= int64(in.Note.Value)
			}

			txSlot.InputValues[i] = in.Note.Value
			txSlot.InputAssetIDs[i] = in.Note.AssetID
			txSlot.InputPk[i] = noteFieldVariable(in.Note.PkRecipient[:])
			txSlot.InputRho[i] = noteFieldVariable(in.Note.Rho[:])
			txSlot.InputR[i] = noteFieldVariable(in.Note.R[:])
			txSlot.InputSpendKey[i] = noteFieldVariable(in.SpendingKey)
			txSlot.InputPosition[i] = in.Position
			txSlot.InputPathBits[i] = bits
			txSlot.InputPathSiblings[i] = siblings

			flatNullifiers = append(flatNullifiers, types.Hash(nf))
		}

		for j := 0; j < BatchMaxOutputs; j++ {
			if tx == nil || j >= len(tx.Outputs) {
				flatCommitments = append(flatCommitments, types.Hash{})
				txSlot.OutputAssetIDs[j] = uint64(0)
				continue
			}
			out := tx.Outputs[j]
			cm := nativeElementToBytes32(nativeNoteCommitment(out.Note.Value, out.Note.AssetID, out.Note.PkRecipient[:], out.Note.Rho[:], out.Note.R[:]))

			if out.Note.AssetID != 0 {
				assetDeltas[out.Note.AssetID] += int64(out.Note.Value)
			}

			txSlot.OutputValues[j] = out.Note.Value
			txSlot.OutputAssetIDs[j] = out.Note.AssetID
			txSlot.OutputPk[j] = noteFieldVariable(out.Note.PkRecipient[:])
			txSlot.OutputRho[j] = noteFieldVariable(out.Note.Rho[:])
			txSlot.OutputR[j] = noteFieldVariable(out.Note.R[:])

			flatCommitments = append(flatCommitments, types.Hash(cm))
		}

		slotAssetIDs, _ := buildBalanceSlots(assetDeltas, batchSlotAssets)
		for k, id := range slotAssetIDs {
			txSlot.SlotAssetIDs[k] = id
		}

		if tx != nil {
			slotFee = tx.Fee
			totalFee += tx.Fee
		}
		txSlot.Fee = slotFee

		circuit.Txs[slot] = txSlot
	}

	for i, nf := range flatNullifiers {
		circuit.Nullifiers[i] = digestMustDecode(Commitment(nf))
	}
	for i, cm := range flatCommitments {
		circuit.Commitments[i] = digestMustDecode(Commitment(cm))
	}
	circuit.TotalFee = totalFee

	alpha := DeriveBatchChallenges(flatNullifiers)
	circuit.Alpha = alpha

	sorted := sortedCombinedWitness(flatNullifiers)
	circuit.SortedCombined = make([]frontend.Variable, len(sorted))
	for i, v := range sorted {
		circuit.SortedCombined[i] = v
	}

	proofData, err := bb.circuits.GenerateProof(ctx, ProofTypeBatch, circuit)
	if err != nil {
		return nil, err
	}

	return &BatchProof{
		BatchSize:   uint32(len(txs)),
		Anchor:      types.Hash(anchor),
		Nullifiers:  flatNullifiers,
		Commitments: flatCommitments,
		TotalFee:    totalFee,
		Proof:       proofData.Proof,
	}, nil
}

// VerifyBatchProof reconstructs the batch circuit's public-only witness from
// a BatchProof's own fields and verifies the proof against it, the same way
// buildPublicWitnessBytes does for a single transaction.
func (cm *CircuitManager) VerifyBatchProof(ctx context.Context, bp *BatchProof) (bool, error) {
	if len(bp.Nullifiers) != MaxBatchSize*BatchMaxInputs {
		return false, ErrInvalidPublicInputs
	}
	if len(bp.Commitments) != MaxBatchSize*BatchMaxOutputs {
		return false, ErrInvalidPublicInputs
	}

	alpha := DeriveBatchChallenges(bp.Nullifiers)

	circuit := &BatchCircuit{
		Anchor:         digestMustDecode(Commitment(bp.Anchor)),
		Nullifiers:     make([]circuitDigest, len(bp.Nullifiers)),
		Commitments:    make([]circuitDigest, len(bp.Commitments)),
		TotalFee:       bp.TotalFee,
		BatchSize:      uint64(bp.BatchSize),
		CircuitVersion: uint64(batchCircuitVersion),
		Alpha:          alpha,
	}
	for i, nf := range bp.Nullifiers {
		circuit.Nullifiers[i] = digestMustDecode(Commitment(nf))
	}
	for i, cmv := range bp.Commitments {
		circuit.Commitments[i] = digestMustDecode(Commitment(cmv))
	}

	w, err := frontend.NewWitness(circuit, ecc.BN254.ScalarField(), frontend.PublicOnly())
	if err != nil {
		return false, err
	}
	var buf bytes.Buffer
	if _, err := w.WriteTo(&buf); err != nil {
		return false, err
	}

	return cm.VerifyProof(ctx, &ProofData{
		ProofType:    ProofTypeBatch,
		Proof:        bp.Proof,
		PublicInputs: buf.Bytes(),
	})
}

// DeriveBatchChallenges derives the permutation argument's alpha challenge
// from a domain-tagged blake3 hash of the flattened nullifier list,
// big-endian over the first 8 bytes, falling back to a fixed nonzero value
// if the raw hash output happens to reduce to zero.
func DeriveBatchChallenges(nullifiers []types.Hash) (alpha uint64) {
	h := blake3.New()
	h.Write([]byte(batchPermDomain))
	for _, nf := range nullifiers {
		h.Write(nf[:])
	}
	sum := h.Sum(nil)

	alpha = beOctetsToUint64(sum[0:8])
	if alpha == 0 {
		alpha = 1
	}
	return alpha
}

func beOctetsToUint64(b []byte) uint64 {
	var v uint64
	for _, c := range b {
		v = v<<8 | uint64(c)
	}
	return v
}

// sortedCombinedWitness computes the off-circuit sorted copy of the
// flattened nullifier list the prover supplies as SortedCombined: each
// digest decoded to its BN254 element (zero entries, from padding/inactive
// slots, naturally sort first), then sorted ascending.
//
// The values are math/big, not machine words: api.Add/api.Mul inside the
// circuit operate mod the SNARK scalar field, which has no fixed bit width,
// so any truncating conversion here would produce a witness that does not
// satisfy the circuit's grand-product identity.
func sortedCombinedWitness(nullifiers []types.Hash) []*big.Int {
	combined := make([]*big.Int, len(nullifiers))
	for i, nf := range nullifiers {
		e, err := nativeElementFromBytes32(nf)
		if err != nil {
			combined[i] = new(big.Int)
			continue
		}
		combined[i] = nativeElementToBigInt(e)
	}
	for i := 1; i < len(combined); i++ {
		for j := i; j > 0 && combined[j-1].Cmp(combined[j]) > 0; j-- {
			combined[j-1], combined[j] = combined[j], combined[j-1]
		}
	}
	return combined
}

func digestMustDecode(c Commitment) circuitDigest {
	e, err := nativeElementFromBytes32(c)
	if err != nil {
		return new(big.Int)
	}
	return nativeElementToBigInt(e)
}
