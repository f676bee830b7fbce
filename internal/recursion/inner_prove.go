package recursion

import (
	"context"

	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/frontend"
)

// ProveInner produces an InnerProof over InnerCurve from a fully-populated
// circuit assignment (the same zkp.TransactionCircuit or zkp.BatchCircuit
// value a caller would otherwise hand to zkp.CircuitManager.GenerateProof
// for standalone BN254 proving): gnark circuit assignments are plain value
// structs, independent of which curve the constraint system was compiled
// for, so the witness-construction logic in internal/zkp is reused as-is
// here, just compiled against inner's BLS12-377 constraint system instead.
func ProveInner(ctx context.Context, inner *InnerCompiled, assignment frontend.Circuit, shape ProofShape) (*InnerProof, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	w, err := frontend.NewWitness(assignment, InnerCurve.ScalarField())
	if err != nil {
		return nil, err
	}

	proof, err := groth16.Prove(inner.CS, inner.PK, w)
	if err != nil {
		return nil, err
	}

	publicWitness, err := w.Public()
	if err != nil {
		return nil, err
	}

	return &InnerProof{
		Proof:         proof,
		PublicWitness: publicWitness,
		Shape:         shape,
	}, nil
}

// VerifyInner verifies a single InnerProof against inner's verifying key,
// independent of any aggregation — used by a node that wants to check one
// recursion-compatible proof without folding it into an outer proof.
func VerifyInner(inner *InnerCompiled, p *InnerProof) error {
	return groth16.Verify(p.Proof, inner.VK, p.PublicWitness)
}
