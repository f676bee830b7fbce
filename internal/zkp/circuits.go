// Package zkp implements the note/nullifier/commitment-tree primitives and
// the transaction circuit built on top of them.
package zkp

import (
	"bytes"
	"context"
	"errors"
	"sync"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/r1cs"

	"github.com/veilchain/core/internal/field"
)

// Circuit errors
var (
	ErrCircuitNotCompiled      = errors.New("circuit not compiled")
	ErrProofGenerationFailed   = errors.New("proof generation failed")
	ErrProofVerificationFailed = errors.New("proof verification failed")
	ErrInvalidPublicInputs     = errors.New("invalid public inputs")
)

// ProofType identifies which compiled circuit a proof belongs to.
type ProofType uint8

const (
	ProofTypeTransaction ProofType = iota
)

// CircuitManager owns the compiled constraint systems and Groth16 key pairs
// for every circuit this node can prove or verify.
type CircuitManager struct {
	mu sync.RWMutex

	circuits      map[ProofType]*CompiledCircuit
	provingKeys   map[ProofType]groth16.ProvingKey
	verifyingKeys map[ProofType]groth16.VerifyingKey
}

// CompiledCircuit holds a compiled circuit's constraint system.
type CompiledCircuit struct {
	CS       constraint.ConstraintSystem
	Compiled bool
}

// NewCircuitManager creates a new circuit manager.
func NewCircuitManager() *CircuitManager {
	return &CircuitManager{
		circuits:      make(map[ProofType]*CompiledCircuit),
		provingKeys:   make(map[ProofType]groth16.ProvingKey),
		verifyingKeys: make(map[ProofType]groth16.VerifyingKey),
	}
}

// transactionCircuitVersion is baked into every compiled transaction
// circuit; a verifying-key upgrade changes this constant, so a proof
// produced against one circuit version can never satisfy another
// version's public Version input.
const transactionCircuitVersion = 1

// circuitDigest is a single element of the circuit's native field: every
// hash output in this package (note commitments, Merkle nodes, nullifiers,
// the balance tag) is one element wide. See DESIGN.md and nativehash.go.
type circuitDigest = frontend.Variable

// TransactionCircuit is the shielded transaction AIR: it enforces input
// note validity and Merkle membership against the anchor, correct
// nullifier derivation, correct output commitment derivation, per-asset
// value conservation (native asset against fee/value_balance, every other
// asset against its own zero-delta slot) via the public balance tag, and
// binds the proof to a specific circuit version. Slice lengths (set before
// Compile) fix the number of input and output slots; unused slots are
// witnessed as the zero sentinel.
type TransactionCircuit struct {
	// Public inputs
	Anchor       circuitDigest   `gnark:",public"`
	Nullifiers   []circuitDigest `gnark:",public"`
	Commitments  []circuitDigest `gnark:",public"`
	Fee          frontend.Variable `gnark:",public"`
	ValueBalance frontend.Variable `gnark:",public"`
	BalanceTag   frontend.Variable `gnark:",public"`
	Version      frontend.Variable `gnark:",public"`

	// Input note witness
	InputValues       []frontend.Variable
	InputAssetIDs     []frontend.Variable
	InputPk           []circuitDigest
	InputRho          []circuitDigest
	InputR            []circuitDigest
	InputSpendKey     []circuitDigest
	InputPosition     []frontend.Variable
	InputPathBits     [][]frontend.Variable
	InputPathSiblings [][]circuitDigest

	// Output note witness
	OutputValues   []frontend.Variable
	OutputAssetIDs []frontend.Variable
	OutputPk       []circuitDigest
	OutputRho      []circuitDigest
	OutputR        []circuitDigest

	// SlotAssetIDs is the per-asset balance ledger: a zero-prefix-padded,
	// ascending-sorted list of the distinct non-native asset IDs touched by
	// this transaction's inputs and outputs, sized numInputs+numOutputs (an
	// upper bound on how many distinct non-native assets a transaction can
	// touch). Padding entries are the zero asset ID, which can never be a
	// real non-native slot.
	SlotAssetIDs []frontend.Variable
}

// Define implements the transaction circuit's constraints.
func (c *TransactionCircuit) Define(api frontend.API) error {
	api.AssertIsEqual(c.Version, transactionCircuitVersion)

	for i := range c.InputValues {
		prfKey := prfKeyGadget(api, c.InputSpendKey[i])
		leaf := noteCommitmentGadget(api, c.InputValues[i], c.InputAssetIDs[i], c.InputPk[i], c.InputRho[i], c.InputR[i])

		for _, bit := range c.InputPathBits[i] {
			api.AssertIsBoolean(bit)
		}
		verifyPathGadget(api, leaf, c.InputPathBits[i], c.InputPathSiblings[i], c.Anchor)

		nf := nullifierGadget(api, prfKey, c.InputRho[i], c.InputPosition[i])
		api.AssertIsEqual(nf, c.Nullifiers[i])
	}

	for j := range c.OutputValues {
		cm := noteCommitmentGadget(api, c.OutputValues[j], c.OutputAssetIDs[j], c.OutputPk[j], c.OutputRho[j], c.OutputR[j])
		api.AssertIsEqual(cm, c.Commitments[j])
	}

	// Native-asset conservation: inputs minus outputs in asset 0 must equal
	// fee - value_balance (value_balance is asserted zero by every caller in
	// this codebase, since no transparency-admission layer exists yet).
	nativeIn := frontend.Variable(0)
	for i, v := range c.InputValues {
		isNative := api.IsZero(c.InputAssetIDs[i])
		nativeIn = api.Add(nativeIn, api.Mul(v, isNative))
	}
	nativeOut := frontend.Variable(0)
	for j, v := range c.OutputValues {
		isNative := api.IsZero(c.OutputAssetIDs[j])
		nativeOut = api.Add(nativeOut, api.Mul(v, isNative))
	}
	nativeDelta := api.Sub(c.Fee, c.ValueBalance)
	api.AssertIsEqual(api.Sub(nativeIn, nativeOut), nativeDelta)

	// Per-asset conservation: every non-native asset's net flow across this
	// transaction's notes must be zero. SlotAssetIDs enumerates the asset
	// IDs to check; assertZeroPrefixSorted pins its canonical shape (zero
	// padding first, strictly increasing real entries after) so a prover
	// cannot hide a real asset behind a duplicate or an out-of-order slot.
	assertZeroPrefixSorted(api, c.SlotAssetIDs)

	slotDeltas := make([]frontend.Variable, len(c.SlotAssetIDs))
	for k, assetID := range c.SlotAssetIDs {
		slotActive := api.Sub(1, api.IsZero(assetID))
		delta := frontend.Variable(0)
		for i, v := range c.InputValues {
			match := api.Mul(equalGadget(api, c.InputAssetIDs[i], assetID), slotActive)
			delta = api.Sub(delta, api.Mul(v, match))
		}
		for j, v := range c.OutputValues {
			match := api.Mul(equalGadget(api, c.OutputAssetIDs[j], assetID), slotActive)
			delta = api.Add(delta, api.Mul(v, match))
		}
		api.AssertIsEqual(delta, 0)
		slotDeltas[k] = delta
	}

	// Coverage: every non-native note's asset ID must appear in at least
	// one slot, so a prover cannot omit a real asset from SlotAssetIDs and
	// so dodge its zero-delta assertion above.
	for _, assetID := range c.InputAssetIDs {
		assertAssetCovered(api, assetID, c.SlotAssetIDs)
	}
	for _, assetID := range c.OutputAssetIDs {
		assertAssetCovered(api, assetID, c.SlotAssetIDs)
	}

	// Balance tag: a commitment to the native delta and every per-asset
	// slot's (asset_id, delta) pair, walking the full fixed-width
	// SlotAssetIDs sequence including zero padding — a circuit can't loop a
	// variable number of times, so nativeBalanceTag off-circuit folds the
	// identical padded sequence to agree with this tag.
	tagInputs := make([]frontend.Variable, 0, 1+2*len(c.SlotAssetIDs))
	tagInputs = append(tagInputs, nativeDelta)
	for k, assetID := range c.SlotAssetIDs {
		tagInputs = append(tagInputs, assetID, slotDeltas[k])
	}
	tag := spongeSingleGadget(api, field.DomainBalance, tagInputs)
	api.AssertIsEqual(tag, c.BalanceTag)

	return nil
}

// assertAssetCovered asserts that assetID, if non-native (nonzero), appears
// in slots at least once.
func assertAssetCovered(api frontend.API, assetID frontend.Variable, slots []frontend.Variable) {
	isNonNative := api.Sub(1, api.IsZero(assetID))
	matchCount := frontend.Variable(0)
	for _, slotID := range slots {
		matchCount = api.Add(matchCount, equalGadget(api, assetID, slotID))
	}
	api.AssertIsEqual(api.Mul(isNonNative, api.IsZero(matchCount)), 0)
}

// CompileTransactionCircuit compiles the transaction circuit for a fixed
// number of input and output slots.
func (cm *CircuitManager) CompileTransactionCircuit(numInputs, numOutputs, treeDepth int) error {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	circuit := newTransactionCircuitShape(numInputs, numOutputs, treeDepth)

	cs, err := frontend.Compile(ecc.BN254.ScalarField(), r1cs.NewBuilder, circuit)
	if err != nil {
		return err
	}

	pk, vk, err := groth16.Setup(cs)
	if err != nil {
		return err
	}

	cm.circuits[ProofTypeTransaction] = &CompiledCircuit{CS: cs, Compiled: true}
	cm.provingKeys[ProofTypeTransaction] = pk
	cm.verifyingKeys[ProofTypeTransaction] = vk

	return nil
}

// NewTransactionCircuitShape allocates a TransactionCircuit whose slices are
// sized for compilation, with zero-valued placeholders rather than a real
// witness. Exported so other compilation paths (internal/recursion's
// recursion-friendly curve compile) can size the same circuit shape
// CircuitManager uses for standalone proving.
func NewTransactionCircuitShape(numInputs, numOutputs, treeDepth int) *TransactionCircuit {
	return newTransactionCircuitShape(numInputs, numOutputs, treeDepth)
}

// newTransactionCircuitShape allocates a circuit whose slices are sized for
// compilation; the zero-valued Variables within are placeholders, not a
// witness.
func newTransactionCircuitShape(numInputs, numOutputs, treeDepth int) *TransactionCircuit {
	c := &TransactionCircuit{
		Nullifiers:        make([]circuitDigest, numInputs),
		Commitments:       make([]circuitDigest, numOutputs),
		InputValues:       make([]frontend.Variable, numInputs),
		InputAssetIDs:     make([]frontend.Variable, numInputs),
		InputPk:           make([]circuitDigest, numInputs),
		InputRho:          make([]circuitDigest, numInputs),
		InputR:            make([]circuitDigest, numInputs),
		InputSpendKey:     make([]circuitDigest, numInputs),
		InputPosition:     make([]frontend.Variable, numInputs),
		InputPathBits:     make([][]frontend.Variable, numInputs),
		InputPathSiblings: make([][]circuitDigest, numInputs),
		OutputValues:      make([]frontend.Variable, numOutputs),
		OutputAssetIDs:    make([]frontend.Variable, numOutputs),
		OutputPk:          make([]circuitDigest, numOutputs),
		OutputRho:         make([]circuitDigest, numOutputs),
		OutputR:           make([]circuitDigest, numOutputs),
		SlotAssetIDs:      make([]frontend.Variable, numInputs+numOutputs),
	}
	for i := 0; i < numInputs; i++ {
		c.InputPathBits[i] = make([]frontend.Variable, treeDepth)
		c.InputPathSiblings[i] = make([]circuitDigest, treeDepth)
	}
	return c
}

// ProofData holds a generated proof.
type ProofData struct {
	ProofType    ProofType
	Proof        []byte
	PublicInputs []byte
}

// GenerateProof generates a proof for a given circuit and witness.
func (cm *CircuitManager) GenerateProof(ctx context.Context, proofType ProofType, witness frontend.Circuit) (*ProofData, error) {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	compiled, exists := cm.circuits[proofType]
	if !exists || !compiled.Compiled {
		return nil, ErrCircuitNotCompiled
	}

	pk, exists := cm.provingKeys[proofType]
	if !exists {
		return nil, ErrCircuitNotCompiled
	}

	w, err := frontend.NewWitness(witness, ecc.BN254.ScalarField())
	if err != nil {
		return nil, err
	}

	proof, err := groth16.Prove(compiled.CS, pk, w)
	if err != nil {
		return nil, ErrProofGenerationFailed
	}

	var proofBuf bytes.Buffer
	if _, err := proof.WriteTo(&proofBuf); err != nil {
		return nil, err
	}

	publicWitness, err := w.Public()
	if err != nil {
		return nil, err
	}
	var publicBuf bytes.Buffer
	if _, err := publicWitness.WriteTo(&publicBuf); err != nil {
		return nil, err
	}

	return &ProofData{
		ProofType:    proofType,
		Proof:        proofBuf.Bytes(),
		PublicInputs: publicBuf.Bytes(),
	}, nil
}

// VerifyProof verifies a previously generated proof.
func (cm *CircuitManager) VerifyProof(ctx context.Context, proofData *ProofData) (bool, error) {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	vk, exists := cm.verifyingKeys[proofData.ProofType]
	if !exists {
		return false, ErrCircuitNotCompiled
	}

	proof := groth16.NewProof(ecc.BN254)
	if _, err := proof.ReadFrom(bytes.NewReader(proofData.Proof)); err != nil {
		return false, err
	}

	publicWitness, err := frontend.NewWitness(nil, ecc.BN254.ScalarField(), frontend.PublicOnly())
	if err != nil {
		return false, err
	}
	if _, err := publicWitness.ReadFrom(bytes.NewReader(proofData.PublicInputs)); err != nil {
		return false, err
	}

	if err := groth16.Verify(proof, vk, publicWitness); err != nil {
		return false, nil
	}

	return true, nil
}

// GetVerifyingKey returns the verifying key for a circuit.
func (cm *CircuitManager) GetVerifyingKey(proofType ProofType) (groth16.VerifyingKey, error) {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	vk, exists := cm.verifyingKeys[proofType]
	if !exists {
		return nil, ErrCircuitNotCompiled
	}

	return vk, nil
}

