package epoch

import "errors"

// EpochError values, one per epoch-prover/light-client failure mode.
var (
	ErrEmptyEpoch          = errors.New("epoch: cannot prove an epoch with no proof hashes")
	ErrMerklePathInvalid   = errors.New("epoch: merkle inclusion proof does not verify against the claimed root")
	ErrAccumulatorMismatch = errors.New("epoch: recomputed proof accumulator does not match the epoch proof")
)
