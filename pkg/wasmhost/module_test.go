package wasmhost

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/binary"
	"testing"
)

func TestSplitTrailer(t *testing.T) {
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	token := []byte("fake-token-bytes")
	wasmBytes := []byte("\x00asm-fake-module")

	var buf bytes.Buffer
	lenBuf := make([]byte, 4)
	binary.LittleEndian.PutUint32(lenBuf, uint32(len(token)))
	buf.Write(lenBuf)
	buf.Write(token)
	buf.Write(pub)
	buf.Write(wasmBytes)

	gotToken, gotKey, gotWasm, err := splitTrailer(buf.Bytes())
	if err != nil {
		t.Fatalf("splitTrailer: %v", err)
	}
	if !bytes.Equal(gotToken, token) {
		t.Fatalf("token mismatch: %q", gotToken)
	}
	if !bytes.Equal(gotKey, pub) {
		t.Fatalf("key mismatch")
	}
	if !bytes.Equal(gotWasm, wasmBytes) {
		t.Fatalf("wasm bytes mismatch: %q", gotWasm)
	}
}

func TestSplitTrailerTooShort(t *testing.T) {
	if _, _, _, err := splitTrailer([]byte{1, 2}); err == nil {
		t.Fatalf("expected error for too-short buffer")
	}
}
