package consensus

import "errors"

// ConsensusError values, one per apply-block failure mode. Every check in
// Engine.ApplyBlock maps to exactly one of these so callers can
// distinguish, e.g., a malformed header from a conflicting transaction.
var (
	ErrInvalidHeader          = errors.New("consensus: invalid header")
	ErrDuplicateNullifier     = errors.New("consensus: duplicate nullifier within block or against the parent state")
	ErrUnexpectedAnchor       = errors.New("consensus: transaction anchor not in the commitment tree's root history")
	ErrTransactionVerification = errors.New("consensus: transaction proof failed to verify")
	ErrTimestampDrift         = errors.New("consensus: block timestamp outside the allowed drift bound")
	ErrUnknownParent          = errors.New("consensus: parent block not found in the fork tree")
	ErrWrongHeight            = errors.New("consensus: block height is not parent height + 1")
	ErrStateRootMismatch      = errors.New("consensus: recomputed state root does not match header")
	ErrNullifierRootMismatch  = errors.New("consensus: recomputed nullifier root does not match header")
	ErrRecursiveProofInvalid  = errors.New("consensus: recursive proof failed to verify")
)
