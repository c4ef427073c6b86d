// Package wasmhost implements spec.md §4.E: loading a claims-verified wasm
// module and invoking its components through a sandboxed host-call ABI.
//
// Grounded on github.com/wasmerio/wasmer-go (the wasm runtime the retrieval
// pack's lsm-fiso example wires up) for the sandbox itself, and on the
// teacher's internal/ron command/response shape for the "one call in, a
// stream of acks out" pattern that __host_write turns into here.
package wasmhost

import (
	"crypto/ed25519"
	"encoding/binary"
	"fmt"

	"github.com/wasmerio/wasmer-go/wasmer"

	"wafl/pkg/claims"
	"wafl/pkg/waflerr"
)

// Module is a loaded, claims-verified wasm component host, holding its
// compiled wasmer.Module plus the claims token it was signed with. A
// Module is immutable after FromBytes; every Invoke instantiates its own
// sandbox (spec.md §4.E "Isolation").
type Module struct {
	claims *claims.Claims
	raw    []byte

	engine *wasmer.Engine
	store  *wasmer.Store
	module *wasmer.Module
}

// Claims returns the module's verified claims.
func (m *Module) Claims() *claims.Claims { return m.claims }

// trailer is this host's embedding convention for "a signed claims token
// inside the module": a module file is
//
//	[4-byte LE claims length][claims token bytes][32-byte Ed25519 issuer
//	public key][raw wasm bytes]
//
// The wasm binary format's own custom-section mechanism would be the
// production-grade place for this, but parsing custom sections needs a
// wasm-aware decoder beyond what wasmer-go's embedder API exposes
// directly; this fixed trailer is a deliberate stand-in with the same
// externally-observable contract (spec.md §4.E "extracts a signed claims
// token embedded in the module").
func splitTrailer(buf []byte) (tokenBytes []byte, issuerKey ed25519.PublicKey, wasmBytes []byte, err error) {
	if len(buf) < 4 {
		return nil, nil, nil, &waflerr.ClaimsError{Reason: "module too short for claims trailer"}
	}
	n := binary.LittleEndian.Uint32(buf[:4])
	rest := buf[4:]
	if uint32(len(rest)) < n+ed25519.PublicKeySize {
		return nil, nil, nil, &waflerr.ClaimsError{Reason: "module truncated before claims trailer end"}
	}
	tokenBytes = rest[:n]
	issuerKey = ed25519.PublicKey(rest[n : n+ed25519.PublicKeySize])
	wasmBytes = rest[n+ed25519.PublicKeySize:]
	return tokenBytes, issuerKey, wasmBytes, nil
}

// FromBytes verifies buf's embedded claims token and compiles the wasm
// module it wraps (spec.md §4.E "Load: from_bytes").
func FromBytes(buf []byte) (*Module, error) {
	tokenBytes, issuerKey, wasmBytes, err := splitTrailer(buf)
	if err != nil {
		return nil, err
	}

	c, err := claims.Verify(string(tokenBytes), issuerKey)
	if err != nil {
		return nil, err
	}

	engine := wasmer.NewEngine()
	store := wasmer.NewStore(engine)
	module, err := wasmer.NewModule(store, wasmBytes)
	if err != nil {
		return nil, &waflerr.ProviderError{Message: fmt.Sprintf("compile module: %v", err)}
	}

	return &Module{claims: c, raw: buf, engine: engine, store: store, module: module}, nil
}

// FromFile is FromBytes over path's contents (spec.md §4.E "from_file").
func FromFile(path string) (*Module, error) {
	buf, err := readFile(path)
	if err != nil {
		return nil, err
	}
	return FromBytes(buf)
}
