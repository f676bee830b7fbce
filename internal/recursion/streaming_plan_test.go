package recursion

import "testing"

// TestStreamingPlanDeterministic checks that NewStreamingPlan is a pure
// function of its inputs (spec §4.5 "this plan is a pure function with
// testable outputs").
func TestStreamingPlanDeterministic(t *testing.T) {
	params := StreamingPlanParams{
		TraceWidth:               40,
		ConstraintFrameWidth:     80,
		NumTransitionConstraints: 60,
		NumAssertions:            8,
		TraceLength:              1024,
		BlowupFactor:             8,
		NumQueries:               28,
		NumDraws:                 28,
		FieldExtension:           FieldExtensionQuadratic,
		InnerPublicInputsLen:     16,
		FRIFoldingFactor:         4,
		NumFRILayers:             5,
	}

	a := NewStreamingPlan(params)
	b := NewStreamingPlan(params)
	if a != b {
		t.Fatalf("NewStreamingPlan is not deterministic: %+v vs %+v", a, b)
	}
	if a.TotalRows == 0 {
		t.Fatal("expected a nonzero row budget for a nonempty plan")
	}
	if a.TotalRows&(a.TotalRows-1) != 0 {
		t.Fatalf("TotalRows %d is not a power of two", a.TotalRows)
	}
	if a.TotalRows < a.RowsUnpadded {
		t.Fatalf("TotalRows %d must be >= RowsUnpadded %d", a.TotalRows, a.RowsUnpadded)
	}
}

func TestStreamingPlanEmptyParams(t *testing.T) {
	plan := NewStreamingPlan(StreamingPlanParams{})
	if plan.TotalRows != 32 {
		t.Fatalf("expected 32 rows for an all-zero plan (3 fixed global perms: one public-input block, one seed block, one z draw; 24 rows padded to 32), got %d", plan.TotalRows)
	}
}

func TestCheckShapeDisciplineRejectsMismatch(t *testing.T) {
	shapes := []ProofShape{
		{ProofType: 0, CircuitVersion: 1, NumPublicInputs: 7, NumConstraints: 1000},
		{ProofType: 0, CircuitVersion: 1, NumPublicInputs: 9, NumConstraints: 1000},
	}
	if err := CheckShapeDiscipline(shapes); err != ErrProofShapeMismatch {
		t.Fatalf("expected ErrProofShapeMismatch, got %v", err)
	}
}

func TestCheckShapeDisciplineAcceptsMatching(t *testing.T) {
	shapes := []ProofShape{
		{ProofType: 0, CircuitVersion: 1, NumPublicInputs: 7, NumConstraints: 1000},
		{ProofType: 0, CircuitVersion: 1, NumPublicInputs: 7, NumConstraints: 1000},
	}
	if err := CheckShapeDiscipline(shapes); err != nil {
		t.Fatalf("expected matching shapes to pass, got %v", err)
	}
}

func TestCheckShapeDisciplineRejectsEmpty(t *testing.T) {
	if err := CheckShapeDiscipline(nil); err != ErrNoInnerProofs {
		t.Fatalf("expected ErrNoInnerProofs, got %v", err)
	}
}
