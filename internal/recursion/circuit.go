package recursion

import (
	"fmt"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/r1cs"
	"github.com/consensys/gnark/std/algebra/native/sw_bls12377"
	recgroth16 "github.com/consensys/gnark/std/recursion/groth16"

	"github.com/veilchain/core/internal/zkp"
)

// InnerCurve is the curve the recursion-compatible copy of an inner circuit
// (transaction or batch) is compiled over. BLS12-377's scalar field equals
// BW6-761's base field, so BW6-761-hosted verification of a BLS12-377 proof
// uses sw_bls12377's native (non-emulated) group law instead of nonnative
// field emulation — the standard Groth16-in-Groth16 recursion cycle. This is
// independent of zkp.CircuitManager's BN254 compile, which exists for
// standalone (non-recursive) verification by a full node or light client
// that only ever checks one proof at a time.
const InnerCurve = ecc.BLS12_377

// OuterCurve hosts the outer (aggregation) circuit.
const OuterCurve = ecc.BW6_761

// InnerCompiled is a recursion-compatible compile of one of internal/zkp's
// circuits (TransactionCircuit or BatchCircuit): the same Define
// logic as zkp.CircuitManager compiles over BN254, recompiled over
// InnerCurve so its proofs can be verified inside an outer circuit.
type InnerCompiled struct {
	CS constraint.ConstraintSystem
	PK groth16.ProvingKey
	VK groth16.VerifyingKey
}

// CompileTransactionInner compiles zkp.TransactionCircuit's shape over
// InnerCurve. Call once per (numInputs, numOutputs, treeDepth) shape; the
// result is reused for every proof of that shape.
func CompileTransactionInner(numInputs, numOutputs, treeDepth int) (*InnerCompiled, error) {
	circuit := zkp.NewTransactionCircuitShape(numInputs, numOutputs, treeDepth)
	return compileInner(circuit)
}

// CompileBatchInner compiles zkp.BatchCircuit's shape over InnerCurve.
func CompileBatchInner(treeDepth int) (*InnerCompiled, error) {
	circuit := zkp.NewBatchCircuitShape(treeDepth)
	return compileInner(circuit)
}

func compileInner(circuit frontend.Circuit) (*InnerCompiled, error) {
	cs, err := frontend.Compile(InnerCurve.ScalarField(), r1cs.NewBuilder, circuit)
	if err != nil {
		return nil, fmt.Errorf("%w: compile inner circuit: %v", ErrCircuitBuild, err)
	}
	pk, vk, err := groth16.Setup(cs)
	if err != nil {
		return nil, fmt.Errorf("%w: setup inner circuit: %v", ErrCircuitBuild, err)
	}
	return &InnerCompiled{CS: cs, PK: pk, VK: vk}, nil
}

// aggregationCircuit verifies K inner Groth16 proofs, all produced against
// the same inner verifying key (spec §4.5: "all inner proofs in one
// recursion call must share ... shape"). Each slot's public witness already
// carries that proof's (anchor, nullifiers, commitments, fee, ...) public
// inputs, so those values flow straight through as the outer circuit's own
// public inputs once gnark flattens InnerWitnesses into the outer witness —
// exactly the "flattened, packed inner public inputs" the spec calls for.
type aggregationCircuit struct {
	Proofs         []recgroth16.Proof[sw_bls12377.G1Affine, sw_bls12377.G2Affine]
	VerifyingKey   recgroth16.VerifyingKey[sw_bls12377.G1Affine, sw_bls12377.G2Affine, sw_bls12377.GT] `gnark:"-"`
	InnerWitnesses []recgroth16.Witness[sw_bls12377.ScalarField]
}

// Define implements the outer circuit's sole job: call the in-circuit
// Groth16 verifier once per inner proof. This is the "verifier-in-circuit"
// composition spec §9 calls out as compile-time, not runtime,
// self-reference: the Verifier type here is parameterized once, at Go
// compile time, over the inner curve's field/group types.
func (c *aggregationCircuit) Define(api frontend.API) error {
	verifier, err := recgroth16.NewVerifier[sw_bls12377.ScalarField, sw_bls12377.G1Affine, sw_bls12377.G2Affine, sw_bls12377.GT](api)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCircuitBuild, err)
	}
	for i := range c.Proofs {
		if err := verifier.AssertProof(c.VerifyingKey, c.Proofs[i], c.InnerWitnesses[i]); err != nil {
			return fmt.Errorf("%w: inner proof %d: %v", ErrCircuitRun, i, err)
		}
	}
	return nil
}

func newAggregationCircuitShape(k int, innerCS constraint.ConstraintSystem) (*aggregationCircuit, error) {
	proofs := make([]recgroth16.Proof[sw_bls12377.G1Affine, sw_bls12377.G2Affine], k)
	witnesses := make([]recgroth16.Witness[sw_bls12377.ScalarField], k)
	for i := 0; i < k; i++ {
		p, err := recgroth16.PlaceholderProof[sw_bls12377.G1Affine, sw_bls12377.G2Affine](innerCS)
		if err != nil {
			return nil, fmt.Errorf("%w: placeholder proof: %v", ErrCircuitBuild, err)
		}
		proofs[i] = p

		w, err := recgroth16.PlaceholderWitness[sw_bls12377.ScalarField](innerCS)
		if err != nil {
			return nil, fmt.Errorf("%w: placeholder witness: %v", ErrCircuitBuild, err)
		}
		witnesses[i] = w
	}
	vk, err := recgroth16.PlaceholderVerifyingKey[sw_bls12377.G1Affine, sw_bls12377.G2Affine, sw_bls12377.GT](innerCS)
	if err != nil {
		return nil, fmt.Errorf("%w: placeholder verifying key: %v", ErrCircuitBuild, err)
	}
	return &aggregationCircuit{
		Proofs:         proofs,
		VerifyingKey:   vk,
		InnerWitnesses: witnesses,
	}, nil
}
