// Package recursion proves and verifies that a batch of K inner STARK/SNARK
// proofs were each individually verified, producing a single outer proof a
// light client can check in place of all K. It also hosts the streaming-plan
// budgeting function used to size a recursion trace before it is built.
package recursion

import "errors"

// RecursionError values, one per aggregation failure mode. ChallengeDerivation
// and CircuitRun failures carry which inner proof (by index) triggered them;
// the error values here are the sentinel kinds callers switch on, while
// Aggregator wraps them with the offending index via fmt.Errorf("%w: ...").
var (
	// ErrChallengeDerivation indicates the Fiat-Shamir transcript for one of
	// the inner proofs could not be re-derived (malformed public inputs).
	ErrChallengeDerivation = errors.New("recursion: challenge derivation failed")

	// ErrCircuitBuild indicates an inner or outer circuit could not be
	// compiled or set up (e.g. a bad slot count).
	ErrCircuitBuild = errors.New("recursion: outer circuit build failed")

	// ErrCircuitRun indicates the in-circuit verifier rejected one of the
	// inner proofs while the outer proof was being generated.
	ErrCircuitRun = errors.New("recursion: in-circuit inner-proof verification failed")

	// ErrAggregationProofVerification indicates no valid outer proof could
	// be produced for the supplied inner proofs: either groth16.Prove failed
	// because an inner proof did not satisfy the in-circuit verifier (that
	// error also wraps ErrCircuitRun), or the produced outer proof failed
	// Groth16 verification (see scenario S5: flipping one byte of an inner
	// proof surfaces here, at outer-proof-build time, not earlier).
	ErrAggregationProofVerification = errors.New("recursion: aggregation proof failed to verify")

	// ErrNoInnerProofs rejects an aggregation request with zero inner
	// proofs; there is nothing to compress.
	ErrNoInnerProofs = errors.New("recursion: aggregation requires at least one inner proof")

	// ErrTooManyInnerProofs rejects a request for more inner proofs than the
	// compiled outer circuit has slots for.
	ErrTooManyInnerProofs = errors.New("recursion: more inner proofs than the compiled outer circuit supports")

	// ErrOuterCircuitNotCompiled is returned by ProveAggregation/VerifyAggregation
	// before Setup has been called for the requested slot count.
	ErrOuterCircuitNotCompiled = errors.New("recursion: outer circuit not compiled for this slot count")
)

// ErrProofShapeMismatch is returned by CheckShapeDiscipline (and therefore by
// Aggregator.ProveAggregation, which calls it before assigning any inner
// proof to the outer circuit) when the inner proofs handed to one recursion
// call do not all share the same ProofShape (proof type, circuit version,
// public-input count, constraint count). It is raised before any outer
// witness is built or proved, per spec §4.5's shape-discipline rule and
// testable property 10.
var ErrProofShapeMismatch = errors.New("recursion: inner proofs do not share a common shape")
