package zkp

import (
	"crypto/cipher"
	"errors"

	"github.com/zeebo/blake3"
	"golang.org/x/crypto/chacha20poly1305"

	"github.com/veilchain/core/pkg/types"
)

// memoNonceDomain separates memo-nonce derivation from every other
// blake3-keyed use in this package.
const memoNonceDomain = "memo-nonce-v1"

// ErrMemoTooShort is returned by DecryptMemo when the ciphertext is shorter
// than the AEAD's authentication tag.
var ErrMemoTooShort = errors.New("zkp: memo ciphertext shorter than the authentication tag")

// EncryptMemo seals a transaction's memo field under a 32-byte symmetric
// key the sender and recipient already share (established by whatever
// out-of-band key agreement a wallet uses; deriving that key is outside
// this package). The nonce is derived deterministically from the
// transaction hash and output index rather than drawn at random, so a
// transaction's serialized form is reproducible from its witness: since
// txHash/outputIndex never repeat for two distinct outputs, the
// (key, nonce) pair is never reused.
func EncryptMemo(key [32]byte, txHash types.Hash, outputIndex uint32, plaintext []byte) ([]byte, error) {
	aead, err := newMemoAEAD(key)
	if err != nil {
		return nil, err
	}
	nonce := memoNonce(txHash, outputIndex)
	return aead.Seal(nil, nonce, plaintext, nil), nil
}

// DecryptMemo opens a ciphertext produced by EncryptMemo. A failed open
// (wrong key, or a corrupted/truncated ciphertext) returns an error rather
// than partial plaintext.
func DecryptMemo(key [32]byte, txHash types.Hash, outputIndex uint32, ciphertext []byte) ([]byte, error) {
	aead, err := newMemoAEAD(key)
	if err != nil {
		return nil, err
	}
	if len(ciphertext) < aead.Overhead() {
		return nil, ErrMemoTooShort
	}
	nonce := memoNonce(txHash, outputIndex)
	return aead.Open(nil, nonce, ciphertext, nil)
}

func newMemoAEAD(key [32]byte) (cipher.AEAD, error) {
	return chacha20poly1305.New(key[:])
}

func memoNonce(txHash types.Hash, outputIndex uint32) []byte {
	h := blake3.New()
	h.Write([]byte(memoNonceDomain))
	h.Write(txHash[:])
	var idx [4]byte
	idx[0] = byte(outputIndex)
	idx[1] = byte(outputIndex >> 8)
	idx[2] = byte(outputIndex >> 16)
	idx[3] = byte(outputIndex >> 24)
	h.Write(idx[:])
	return h.Sum(nil)[:chacha20poly1305.NonceSize]
}
