package recursion

import (
	"encoding/binary"
	"errors"
)

// ErrMalformedAggregatedProof is returned by DecodeAggregatedProof when the
// wire encoding is truncated or its length prefixes don't fit the buffer.
var ErrMalformedAggregatedProof = errors.New("recursion: malformed aggregated proof encoding")

// EncodeAggregatedProof serializes an AggregatedProof for a block body or
// the epoch store: a 4-byte NumInner, then length-prefixed ProofBytes and
// PublicBytes. A block's consensus-level verifier needs both halves since
// an outer Groth16 proof is meaningless without the public witness it was
// produced against.
func EncodeAggregatedProof(agg *AggregatedProof) []byte {
	out := make([]byte, 0, 12+len(agg.ProofBytes)+len(agg.PublicBytes))
	var numInner [4]byte
	binary.BigEndian.PutUint32(numInner[:], uint32(agg.NumInner))
	out = append(out, numInner[:]...)

	out = appendLenPrefixed(out, agg.ProofBytes)
	out = appendLenPrefixed(out, agg.PublicBytes)
	return out
}

// DecodeAggregatedProof is EncodeAggregatedProof's inverse.
func DecodeAggregatedProof(data []byte) (*AggregatedProof, error) {
	if len(data) < 4 {
		return nil, ErrMalformedAggregatedProof
	}
	numInner := binary.BigEndian.Uint32(data[:4])
	rest := data[4:]

	proofBytes, rest, err := readLenPrefixed(rest)
	if err != nil {
		return nil, err
	}
	publicBytes, rest, err := readLenPrefixed(rest)
	if err != nil {
		return nil, err
	}
	if len(rest) != 0 {
		return nil, ErrMalformedAggregatedProof
	}

	return &AggregatedProof{
		ProofBytes:  proofBytes,
		PublicBytes: publicBytes,
		NumInner:    int(numInner),
	}, nil
}

func appendLenPrefixed(out []byte, b []byte) []byte {
	var length [4]byte
	binary.BigEndian.PutUint32(length[:], uint32(len(b)))
	out = append(out, length[:]...)
	return append(out, b...)
}

func readLenPrefixed(data []byte) (value []byte, rest []byte, err error) {
	if len(data) < 4 {
		return nil, nil, ErrMalformedAggregatedProof
	}
	length := binary.BigEndian.Uint32(data[:4])
	data = data[4:]
	if uint64(len(data)) < uint64(length) {
		return nil, nil, ErrMalformedAggregatedProof
	}
	return data[:length], data[length:], nil
}
