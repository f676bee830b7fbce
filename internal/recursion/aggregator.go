package recursion

import (
	"bytes"
	"context"
	"fmt"
	"sync"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/backend/witness"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/r1cs"
	"github.com/consensys/gnark/std/algebra/native/sw_bls12377"
	recgroth16 "github.com/consensys/gnark/std/recursion/groth16"
)

// InnerProof is one proof handed to an aggregation call: the raw Groth16
// proof and its public witness, both produced against the same InnerCompiled
// circuit, plus the shape descriptor CheckShapeDiscipline compares.
type InnerProof struct {
	Proof         groth16.Proof
	PublicWitness witness.Witness
	Shape         ProofShape
}

// AggregatedProof is the output of Aggregator.ProveAggregation: a single
// outer Groth16 proof (over OuterCurve) plus its public witness, standing in
// for every inner proof that was folded into it.
type AggregatedProof struct {
	ProofBytes   []byte
	PublicBytes  []byte
	NumInner     int
}

// Aggregator compiles and proves/verifies the outer recursion circuit for a
// fixed number of inner-proof slots K. One Aggregator instance is bound to
// one inner circuit shape (the InnerCompiled it was built from) and one K;
// a node that aggregates both transaction and batch proofs, or different K
// values, keeps one Aggregator per (inner shape, K) pair.
type Aggregator struct {
	mu sync.RWMutex

	inner *InnerCompiled
	k     int

	outerCS constraint.ConstraintSystem
	outerPK groth16.ProvingKey
	outerVK groth16.VerifyingKey
}

// NewAggregator builds (but does not yet compile) an aggregator for up to k
// inner proofs sharing inner's shape.
func NewAggregator(inner *InnerCompiled, k int) *Aggregator {
	return &Aggregator{inner: inner, k: k}
}

// Setup compiles the outer circuit for this aggregator's (inner, k) and runs
// Groth16 setup over OuterCurve. Must be called once before ProveAggregation.
func (a *Aggregator) Setup() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	shape, err := newAggregationCircuitShape(a.k, a.inner.CS)
	if err != nil {
		return err
	}

	cs, err := frontend.Compile(OuterCurve.ScalarField(), r1cs.NewBuilder, shape)
	if err != nil {
		return fmt.Errorf("%w: compile outer circuit: %v", ErrCircuitBuild, err)
	}
	pk, vk, err := groth16.Setup(cs)
	if err != nil {
		return fmt.Errorf("%w: setup outer circuit: %v", ErrCircuitBuild, err)
	}

	a.outerCS = cs
	a.outerPK = pk
	a.outerVK = vk
	return nil
}

// ProveAggregation folds innerProofs (1..=K of them, all sharing
// CheckShapeDiscipline's shape check) into a single outer proof. Padding
// slots beyond len(innerProofs), when K exceeds the number supplied, repeat
// the last real inner proof — its constraints are redundant but harmless,
// since the outer public inputs for a padding slot duplicate a real one
// rather than introducing an unconstrained slot.
func (a *Aggregator) ProveAggregation(ctx context.Context, innerProofs []InnerProof) (*AggregatedProof, error) {
	if len(innerProofs) == 0 {
		return nil, ErrNoInnerProofs
	}
	if len(innerProofs) > a.k {
		return nil, ErrTooManyInnerProofs
	}

	shapes := make([]ProofShape, len(innerProofs))
	for i, p := range innerProofs {
		shapes[i] = p.Shape
	}
	if err := CheckShapeDiscipline(shapes); err != nil {
		return nil, err
	}

	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.outerCS == nil {
		return nil, ErrOuterCircuitNotCompiled
	}

	assignment := &aggregationCircuit{
		Proofs:         make([]recgroth16.Proof[sw_bls12377.G1Affine, sw_bls12377.G2Affine], a.k),
		InnerWitnesses: make([]recgroth16.Witness[sw_bls12377.ScalarField], a.k),
	}

	vkValue, err := recgroth16.ValueOfVerifyingKey[sw_bls12377.G1Affine, sw_bls12377.G2Affine, sw_bls12377.GT](a.inner.VK)
	if err != nil {
		return nil, fmt.Errorf("%w: verifying key assignment: %v", ErrCircuitRun, err)
	}
	assignment.VerifyingKey = vkValue

	last := innerProofs[len(innerProofs)-1]
	for i := 0; i < a.k; i++ {
		p := last
		if i < len(innerProofs) {
			p = innerProofs[i]
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		proofValue, err := recgroth16.ValueOfProof[sw_bls12377.G1Affine, sw_bls12377.G2Affine](p.Proof)
		if err != nil {
			return nil, fmt.Errorf("%w: inner proof %d assignment: %v", ErrChallengeDerivation, i, err)
		}
		witValue, err := recgroth16.ValueOfWitness[sw_bls12377.ScalarField](p.PublicWitness)
		if err != nil {
			return nil, fmt.Errorf("%w: inner witness %d assignment: %v", ErrChallengeDerivation, i, err)
		}
		assignment.Proofs[i] = proofValue
		assignment.InnerWitnesses[i] = witValue
	}

	w, err := frontend.NewWitness(assignment, OuterCurve.ScalarField())
	if err != nil {
		return nil, fmt.Errorf("%w: outer witness: %v", ErrCircuitRun, err)
	}

	proof, err := groth16.Prove(a.outerCS, a.outerPK, w)
	if err != nil {
		return nil, fmt.Errorf("%w: %w: %v", ErrAggregationProofVerification, ErrCircuitRun, err)
	}

	publicWitness, err := w.Public()
	if err != nil {
		return nil, err
	}

	if err := groth16.Verify(proof, a.outerVK, publicWitness); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAggregationProofVerification, err)
	}

	var proofBuf, publicBuf bytes.Buffer
	if _, err := proof.WriteTo(&proofBuf); err != nil {
		return nil, err
	}
	if _, err := publicWitness.WriteTo(&publicBuf); err != nil {
		return nil, err
	}

	return &AggregatedProof{
		ProofBytes:  proofBuf.Bytes(),
		PublicBytes: publicBuf.Bytes(),
		NumInner:    len(innerProofs),
	}, nil
}

// VerifyAggregation re-verifies a previously produced (or wire-received)
// aggregated proof against this aggregator's outer verifying key. Flipping
// even a single byte of one inner proof changes its ValueOfProof assignment
// and therefore the outer witness, so an aggregated proof built over a
// corrupted inner proof never reaches this function in the first
// place — the in-circuit verifier leaves the outer constraints unsatisfied,
// so ProveAggregation's groth16.Prove call fails and ProveAggregation
// rejects it with ErrAggregationProofVerification (scenario S5). VerifyAggregation
// covers the complementary case: a proof transmitted over the wire and
// independently re-checked by a light client that never ran the prover.
func (a *Aggregator) VerifyAggregation(ctx context.Context, agg *AggregatedProof) (bool, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.outerVK == nil {
		return false, ErrOuterCircuitNotCompiled
	}

	proof := groth16.NewProof(ecc.BW6_761)
	if _, err := proof.ReadFrom(bytes.NewReader(agg.ProofBytes)); err != nil {
		return false, err
	}

	publicWitness, err := frontend.NewWitness(nil, OuterCurve.ScalarField(), frontend.PublicOnly())
	if err != nil {
		return false, err
	}
	if _, err := publicWitness.ReadFrom(bytes.NewReader(agg.PublicBytes)); err != nil {
		return false, err
	}

	if err := groth16.Verify(proof, a.outerVK, publicWitness); err != nil {
		return false, nil
	}
	return true, nil
}

// VerifyAggregationBytes decodes and verifies a wire-encoded aggregated
// proof (see EncodeAggregatedProof); the consensus engine's apply-block step
// 6 ("if a recursive proof is present, verify it") calls this directly
// against a block's RecursiveProof field.
func (a *Aggregator) VerifyAggregationBytes(ctx context.Context, data []byte) (bool, error) {
	agg, err := DecodeAggregatedProof(data)
	if err != nil {
		return false, err
	}
	return a.VerifyAggregation(ctx, agg)
}
