package zkp

import (
	"bytes"
	"testing"

	"github.com/veilchain/core/pkg/types"
)

func TestMemoRoundTrip(t *testing.T) {
	var key [32]byte
	copy(key[:], []byte("a shared symmetric memo key!!!!"))

	txHash := types.Hash{1, 2, 3}
	plaintext := []byte("thanks for dinner")

	ciphertext, err := EncryptMemo(key, txHash, 0, plaintext)
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}

	recovered, err := DecryptMemo(key, txHash, 0, ciphertext)
	if err != nil {
		t.Fatalf("decrypt: %v", err)
	}
	if !bytes.Equal(recovered, plaintext) {
		t.Fatalf("round trip mismatch: got %q, want %q", recovered, plaintext)
	}
}

func TestMemoWrongKeyFails(t *testing.T) {
	var key, wrongKey [32]byte
	copy(key[:], []byte("a shared symmetric memo key!!!!"))
	copy(wrongKey[:], []byte("a different memo key............"))

	txHash := types.Hash{9}
	ciphertext, err := EncryptMemo(key, txHash, 1, []byte("secret"))
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}

	if _, err := DecryptMemo(wrongKey, txHash, 1, ciphertext); err == nil {
		t.Fatal("expected decryption with the wrong key to fail")
	}
}

func TestMemoWrongOutputIndexFails(t *testing.T) {
	var key [32]byte
	copy(key[:], []byte("a shared symmetric memo key!!!!"))

	txHash := types.Hash{4, 5}
	ciphertext, err := EncryptMemo(key, txHash, 0, []byte("secret"))
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}

	if _, err := DecryptMemo(key, txHash, 1, ciphertext); err == nil {
		t.Fatal("expected decryption against a different output index to fail")
	}
}
